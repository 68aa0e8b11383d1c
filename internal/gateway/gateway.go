package gateway

import (
	"context"
	"errors"
)

var (
	// ErrNotConfigured is returned by every method when the provider is not
	// set up. Running without payment capability is a supported mode.
	ErrNotConfigured = errors.New("payment gateway not configured")
	// ErrInvalidSignature means the webhook payload failed authentication.
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// Intent is the provider-side record of an in-progress top-up. Only its
// identifier and client material matter locally; the ledger is untouched
// until a verified confirmation event arrives.
type Intent struct {
	ID           string
	ClientSecret string
	AccountID    string
	AmountMinor  int64
	Currency     string
	Status       string
}

// EventKind classifies confirmation events. Anything the provider sends that
// is not a terminal payment outcome maps to EventUnknown and is acknowledged
// without effect.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventPaymentSucceeded
	EventPaymentFailed
)

// Event is a verified confirmation event from the provider.
type Event struct {
	ID          string
	Kind        EventKind
	Type        string
	IntentID    string
	AccountID   string
	AmountMinor int64
	Currency    string
}

// Gateway is the boundary to the external payment provider.
type Gateway interface {
	CreateIntent(ctx context.Context, accountID string, amountMinor int64, currency string) (Intent, error)
	GetIntent(ctx context.Context, intentID string) (Intent, error)
	VerifyEvent(payload []byte, signatureHeader string) (Event, error)
}

// Disabled is the gateway used when no provider credentials are configured.
type Disabled struct{}

func (Disabled) CreateIntent(context.Context, string, int64, string) (Intent, error) {
	return Intent{}, ErrNotConfigured
}

func (Disabled) GetIntent(context.Context, string) (Intent, error) {
	return Intent{}, ErrNotConfigured
}

func (Disabled) VerifyEvent([]byte, string) (Event, error) {
	return Event{}, ErrNotConfigured
}
