package core

import "time"

const (
	EventTransactionCreated  EventKind = "transaction.created"
	EventTransactionsUpdated EventKind = "transactions.updated"
	EventAccountDeleted      EventKind = "account.deleted"
	EventLedgerReset         EventKind = "ledger.reset"
	EventLedgerRestored      EventKind = "ledger.restored"
)

type EventKind string

// LedgerEvent describes a committed change to the ledger. Transactions carry
// the full post-change records so consumers never read the store.
type LedgerEvent struct {
	ID           string        `json:"id"`
	Kind         EventKind     `json:"kind"`
	Transactions []Transaction `json:"transactions,omitempty"`
	AccountID    int64         `json:"account_id,omitempty"`
	Tag          string        `json:"tag,omitempty"`
	OccurredAt   time.Time     `json:"occurred_at"`
}
