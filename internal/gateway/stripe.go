package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

const accountMetadataKey = "wallet_account_id"

// StripeGateway implements Gateway against Stripe. The API client is owned by
// this value rather than the package-global stripe key, so tests and disabled
// deployments never mutate process-wide state.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
}

// New returns a StripeGateway when a secret key is present, Disabled otherwise.
func New(secretKey, webhookSecret string) Gateway {
	if secretKey == "" {
		return Disabled{}
	}
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeGateway{api: api, webhookSecret: webhookSecret}
}

func (g *StripeGateway) CreateIntent(ctx context.Context, accountID string, amountMinor int64, currency string) (Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountMinor),
		Currency: stripe.String(strings.ToLower(currency)),
		PaymentMethodTypes: stripe.StringSlice([]string{
			"card",
		}),
	}
	params.Context = ctx
	params.AddMetadata(accountMetadataKey, accountID)
	intent, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return Intent{}, fmt.Errorf("create payment intent: %w", err)
	}
	return fromPaymentIntent(intent), nil
}

func (g *StripeGateway) GetIntent(ctx context.Context, intentID string) (Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	intent, err := g.api.PaymentIntents.Get(intentID, params)
	if err != nil {
		return Intent{}, fmt.Errorf("get payment intent: %w", err)
	}
	return fromPaymentIntent(intent), nil
}

// VerifyEvent authenticates the raw webhook payload and parses it into a
// closed event variant. An unrecognized but authentic event comes back as
// EventUnknown, never as an error.
func (g *StripeGateway) VerifyEvent(payload []byte, signatureHeader string) (Event, error) {
	stripeEvent, err := webhook.ConstructEvent(payload, signatureHeader, g.webhookSecret)
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	event := Event{
		ID:   stripeEvent.ID,
		Type: string(stripeEvent.Type),
	}
	switch stripeEvent.Type {
	case "payment_intent.succeeded":
		event.Kind = EventPaymentSucceeded
	case "payment_intent.payment_failed":
		event.Kind = EventPaymentFailed
	default:
		event.Kind = EventUnknown
		return event, nil
	}
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(stripeEvent.Data.Raw, &intent); err != nil {
		return Event{}, fmt.Errorf("parse payment intent payload: %w", err)
	}
	event.IntentID = intent.ID
	event.AccountID = intent.Metadata[accountMetadataKey]
	event.AmountMinor = intent.Amount
	event.Currency = strings.ToUpper(string(intent.Currency))
	return event, nil
}

func fromPaymentIntent(intent *stripe.PaymentIntent) Intent {
	return Intent{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		AccountID:    intent.Metadata[accountMetadataKey],
		AmountMinor:  intent.Amount,
		Currency:     strings.ToUpper(string(intent.Currency)),
		Status:       string(intent.Status),
	}
}
