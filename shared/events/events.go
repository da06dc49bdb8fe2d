package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types
const (
	AccountCreated = "account.created"
	AccountUpdated = "account.updated"
	AccountDeleted = "account.deleted"

	TransactionCreated = "transaction.created"
	BalanceUpdated     = "balance.updated"

	KYCSubmitted    = "kyc.submitted"
	KYCResolved     = "kyc.resolved"
	UpdateSubmitted = "update.submitted"
	UpdateResolved  = "update.resolved"
)

// Stream names
const (
	AccountEventsStream = "account.events"
	LedgerEventsStream  = "ledger.events"
	RequestEventsStream = "request.events"
)

// Event is the envelope stored under the "event" field of a stream entry.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// DecodeData re-decodes the generic Data payload into out.
func (e Event) DecodeData(out any) error {
	raw, err := json.Marshal(e.Data)
	if err != nil {
		return fmt.Errorf("failed to re-encode %s payload: %w", e.Type, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", e.Type, err)
	}
	return nil
}

// Account events
type AccountCreatedEvent struct {
	AccountID     string `json:"accountId"`
	AccountNumber string `json:"accountNumber"`
	AccountType   string `json:"accountType"`
}

type AccountUpdatedEvent struct {
	AccountID string   `json:"accountId"`
	Fields    []string `json:"fields"`
}

type AccountDeletedEvent struct {
	AccountID     string `json:"accountId"`
	AccountNumber string `json:"accountNumber"`
}

// Ledger events
type TransactionCreatedEvent struct {
	TransactionID int64     `json:"transactionId,string"`
	AccountID     string    `json:"accountId"`
	Amount        int64     `json:"amount"`
	Type          string    `json:"type"`
	Kind          string    `json:"kind"`
	Counterparty  string    `json:"counterparty,omitempty"`
	BalanceAfter  int64     `json:"balanceAfter"`
	CreatedAt     time.Time `json:"createdAt"`
}

type BalanceUpdatedEvent struct {
	AccountID  string `json:"accountId"`
	NewBalance int64  `json:"newBalance"`
	Change     int64  `json:"change"`
}

// Request queue events
type RequestSubmittedEvent struct {
	RequestID string `json:"requestId"`
	AccountID string `json:"accountId"`
}

type RequestResolvedEvent struct {
	RequestID string `json:"requestId"`
	AccountID string `json:"accountId"`
	Status    string `json:"status"`
	AdminID   string `json:"adminId"`
}
