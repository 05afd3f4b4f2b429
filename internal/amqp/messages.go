package amqp

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"reportsvc/internal/core"
)

const dateLayout = "2006-01-02"

// TransactionMessage is the wire form of a transaction lifecycle event.
// previousAmount/previousDate are present only on update events and mark
// the contribution the update replaces.
type TransactionMessage struct {
	MessageID      string           `json:"messageId,omitempty"`
	TransactionID  int64            `json:"transactionId"`
	UserID         string           `json:"userId"`
	Type           string           `json:"type"`
	Amount         decimal.Decimal  `json:"amount"`
	Date           string           `json:"date"`
	Category       string           `json:"category,omitempty"`
	Description    string           `json:"description,omitempty"`
	PreviousAmount *decimal.Decimal `json:"previousAmount,omitempty"`
	PreviousDate   *string          `json:"previousDate,omitempty"`
}

// ToJSON converts the message to JSON bytes.
func (m *TransactionMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionMessageFromJSON decodes a message from JSON bytes.
func TransactionMessageFromJSON(data []byte) (*TransactionMessage, error) {
	var msg TransactionMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ToEvent parses wire fields into the domain event and validates it.
// Previous values are carried over only when both are present; a lone
// previousAmount or previousDate has nothing to compensate and is dropped.
func (m *TransactionMessage) ToEvent() (core.TransactionEvent, error) {
	date, err := time.Parse(dateLayout, m.Date)
	if err != nil {
		return core.TransactionEvent{}, core.Invalidf("invalid date %q, expected yyyy-MM-dd", m.Date)
	}

	event := core.TransactionEvent{
		MessageID:     m.MessageID,
		TransactionID: m.TransactionID,
		UserID:        m.UserID,
		Type:          core.TransactionType(m.Type),
		Amount:        m.Amount,
		Date:          date,
		Category:      m.Category,
		Description:   m.Description,
	}

	if m.PreviousAmount != nil && m.PreviousDate != nil {
		prevDate, err := time.Parse(dateLayout, *m.PreviousDate)
		if err != nil {
			return core.TransactionEvent{}, core.Invalidf("invalid previousDate %q, expected yyyy-MM-dd", *m.PreviousDate)
		}
		prevAmount := *m.PreviousAmount
		event.PreviousAmount = &prevAmount
		event.PreviousDate = &prevDate
	}

	if err := event.Validate(); err != nil {
		return core.TransactionEvent{}, err
	}
	return event, nil
}
