// Package worker orchestrates event processing: idempotency guard, then
// operation expansion, then aggregate application with bounded retry and
// dead-lettering.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"reportsvc/internal/amqp"
	"reportsvc/internal/core"
	"reportsvc/internal/storage"
)

// maxAttempts bounds the apply retry loop. On the final failure the event
// is dead-lettered and swallowed so the broker stops redelivering it.
const maxAttempts = 3

// IdempotencyGuard is the atomic check-and-record of processed message ids.
type IdempotencyGuard interface {
	Admit(ctx context.Context, m storage.ProcessedMessage) (storage.AdmitResult, error)
}

// AggregateStore applies one signed operation to the report bucket the
// operation's date falls in.
type AggregateStore interface {
	ApplyOperation(ctx context.Context, userID string, op core.ApplyOperation) (*core.Report, error)
}

// Processor consumes transaction lifecycle events and maintains the
// per-user per-period aggregates. All three event kinds run through the
// same pipeline: guard, expand, apply.
type Processor struct {
	guard IdempotencyGuard
	store AggregateStore
}

func NewProcessor(guard IdempotencyGuard, store AggregateStore) *Processor {
	return &Processor{guard: guard, store: store}
}

// Handle processes one inbound message. It returns an error only when the
// event was not admitted yet and broker redelivery is safe (ledger write
// failure); everything past admission is either applied, discarded as a
// duplicate, or dead-lettered here.
func (p *Processor) Handle(ctx context.Context, kind core.EventKind, msg *amqp.TransactionMessage) error {
	event, err := msg.ToEvent()
	if err != nil {
		// Invalid payloads are never retried; redelivery cannot fix them.
		slog.ErrorContext(ctx, "Discarding invalid transaction event",
			"kind", string(kind),
			"transaction_id", msg.TransactionID,
			"error", err)
		return nil
	}

	messageID, err := idempotencyKey(kind, event)
	if err != nil {
		slog.ErrorContext(ctx, "Discarding event without usable message id",
			"kind", string(kind),
			"transaction_id", event.TransactionID,
			"error", err)
		return nil
	}

	result, err := p.guard.Admit(ctx, storage.ProcessedMessage{
		MessageID:     messageID,
		EventType:     string(kind),
		TransactionID: event.TransactionID,
		UserID:        event.UserID,
	})
	if err != nil {
		return fmt.Errorf("admit message %s: %w", messageID, err)
	}
	if result == storage.AdmitAlreadyExists {
		slog.WarnContext(ctx, "Duplicate message discarded",
			"message_id", messageID,
			"kind", string(kind),
			"transaction_id", event.TransactionID)
		return nil
	}

	ops := core.ExpandOperations(kind, event)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if lastErr = p.applyAll(ctx, event.UserID, ops); lastErr == nil {
			slog.InfoContext(ctx, "Transaction event applied",
				"message_id", messageID,
				"kind", string(kind),
				"transaction_id", event.TransactionID,
				"operations", len(ops))
			return nil
		}
		slog.WarnContext(ctx, "Apply failed, retrying",
			"message_id", messageID,
			"attempt", attempt,
			"error", lastErr)
	}

	p.deadLetter(ctx, kind, event, messageID, lastErr)
	return nil
}

// applyAll runs the expanded operations in order. An update's reversal and
// forward operation are retried together as a unit.
func (p *Processor) applyAll(ctx context.Context, userID string, ops []core.ApplyOperation) error {
	for _, op := range ops {
		if _, err := p.store.ApplyOperation(ctx, userID, op); err != nil {
			return err
		}
	}
	return nil
}

// deadLetter is the terminal path for an event that failed beyond the
// retry bound. The actual DLQ infrastructure lives outside this service;
// here the event is logged and dropped so the broker sees it as handled.
func (p *Processor) deadLetter(ctx context.Context, kind core.EventKind, event core.TransactionEvent, messageID string, cause error) {
	slog.ErrorContext(ctx, "Dead-lettering event after retries",
		"message_id", messageID,
		"kind", string(kind),
		"transaction_id", event.TransactionID,
		"user_id", event.UserID,
		"attempts", maxAttempts,
		"error", cause)
}

// idempotencyKey picks the ledger key for an event. Producers are expected
// to stamp a message id; the created and deleted channels historically
// lacked one, so their redeliveries are deduplicated under a synthetic key
// derived from the transaction id.
func idempotencyKey(kind core.EventKind, event core.TransactionEvent) (string, error) {
	if event.MessageID != "" {
		return event.MessageID, nil
	}
	switch kind {
	case core.EventCreated:
		return fmt.Sprintf("CREATED-%d", event.TransactionID), nil
	case core.EventDeleted:
		return fmt.Sprintf("DELETED-%d", event.TransactionID), nil
	default:
		return "", core.Invalidf("update event %d is missing messageId", event.TransactionID)
	}
}
