package store

import "context"

// EventStore is the durable set of gateway events that already produced a
// ledger mutation. Rows are written in the same transaction as the credit
// they guard and are never removed.
type EventStore struct {
	db DB
}

func NewEventStore(db DB) *EventStore {
	return &EventStore{db: db}
}

// MarkProcessed records the event as applied. It returns the number of rows
// actually inserted: 0 means the event or its intent was seen before and the
// caller must treat the delivery as an idempotent no-op. Both the event id
// and the intent id are unique, so a redelivery under a fresh event id still
// collides on the intent.
func (s *EventStore) MarkProcessed(ctx context.Context, tx Execer, eventID, intentID, transactionID string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO processed_events (event_id, intent_id, transaction_id)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`, eventID, intentID, transactionID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
