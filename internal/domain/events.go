package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeTransactionCreated = "TransactionCreated"

	// TransactionCreatedVersion must be bumped whenever the payload shape
	// below changes, so downstream consumers can branch on it.
	TransactionCreatedVersion = 1

	TransactionEventsTopic = "transaction_events"
)

// TransactionCreatedEvent is the outbox wire payload consumed by the
// publisher and, eventually, by billing/fraud/ledger-sync. Amount travels as
// a string to keep decimal precision out of JSON float hands.
type TransactionCreatedEvent struct {
	EventID       uuid.UUID `json:"event_id"`
	EventType     string    `json:"event_type"`
	EventVersion  int       `json:"event_version"`
	OccurredAt    time.Time `json:"occurred_at"`
	TransactionID uuid.UUID `json:"transaction_id"`
	AccountID     uuid.UUID `json:"account_id"`
	Amount        string    `json:"amount"`
	Currency      string    `json:"currency"`
	Country       string    `json:"country"`
}

// NewTransactionCreatedEvent snapshots a committed-to-be transaction. The
// caller must only invoke this after the insert assigned tx.ID.
func NewTransactionCreatedEvent(eventID uuid.UUID, tx *Transaction) TransactionCreatedEvent {
	return TransactionCreatedEvent{
		EventID:       eventID,
		EventType:     EventTypeTransactionCreated,
		EventVersion:  TransactionCreatedVersion,
		OccurredAt:    time.Now().UTC(),
		TransactionID: tx.ID,
		AccountID:     tx.AccountID,
		Amount:        tx.Amount.StringFixed(2),
		Currency:      tx.Currency,
		Country:       tx.Country,
	}
}
