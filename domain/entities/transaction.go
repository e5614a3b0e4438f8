package entities

import "time"

// TransactionState is the lifecycle state of a transaction.
type TransactionState string

const (
	// TransactionActive means mutations may be made through the sub-bridges.
	TransactionActive TransactionState = "active"

	// TransactionCommitted means all mutations became visible atomically.
	TransactionCommitted TransactionState = "committed"

	// TransactionRolledBack means no mutation became visible.
	TransactionRolledBack TransactionState = "rolled_back"
)

// TransactionInfo describes a transaction for reporting.
type TransactionInfo struct {
	StartedAt time.Time        `json:"started_at"`
	EndedAt   time.Time        `json:"ended_at,omitempty"`
	ID        string           `json:"id"`
	Label     string           `json:"label"`
	Owner     string           `json:"owner,omitempty"`
	State     TransactionState `json:"state"`
}
