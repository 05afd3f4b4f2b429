package storage

import (
	"context"
	"fmt"
)

// AdmitResult is the outcome of the idempotency guard's check-and-insert.
type AdmitResult int

const (
	// AdmitInserted means the message id was new and has been recorded;
	// the event must be processed.
	AdmitInserted AdmitResult = iota
	// AdmitAlreadyExists means the message id was seen before; the whole
	// event must be treated as a no-op.
	AdmitAlreadyExists
	// AdmitFailed means the ledger itself could not be written; the
	// accompanying error carries the cause.
	AdmitFailed
)

func (r AdmitResult) String() string {
	switch r {
	case AdmitInserted:
		return "inserted"
	case AdmitAlreadyExists:
		return "already_exists"
	default:
		return "failed"
	}
}

// ProcessedMessage is one row of the append-only idempotency ledger.
type ProcessedMessage struct {
	MessageID     string
	EventType     string
	TransactionID int64
	UserID        string
}

// Admit atomically tests-and-inserts a ledger row keyed by message id.
// The unique constraint on message_id makes the insert the arbiter: a
// conflict, including one raced by a concurrent delivery of the identical
// message, is the expected AdmitAlreadyExists outcome, never an error.
func (s *Store) Admit(ctx context.Context, m ProcessedMessage) (AdmitResult, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO processed_messages (message_id, event_type, transaction_id, user_id)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (message_id) DO NOTHING`,
		m.MessageID, m.EventType, m.TransactionID, m.UserID)
	if err != nil {
		return AdmitFailed, fmt.Errorf("record processed message: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return AdmitFailed, fmt.Errorf("record processed message: %w", err)
	}
	if n == 0 {
		return AdmitAlreadyExists, nil
	}
	return AdmitInserted, nil
}
