// Package transaction serializes mutations of the host model.
//
// At most one transaction is active at a time. Mutations made through the
// active transaction's editor are staged and become visible together on
// Commit, or not at all.
package transaction

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aj-geddes/revitpy-sub005/domain/entities"
	"github.com/aj-geddes/revitpy-sub005/domain/errors"
	"github.com/aj-geddes/revitpy-sub005/domain/ports"
	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/atomic"
)

// Transaction is one unit of host model mutations.
type Transaction struct {
	startedAt time.Time
	endedAt   time.Time
	changes   ports.ChangeSet
	id        string
	label     string
	owner     string
	state     entities.TransactionState
}

// ID returns the transaction's unique id.
func (t *Transaction) ID() string { return t.id }

// Label returns the label given to Begin.
func (t *Transaction) Label() string { return t.label }

// Manager hands out transactions over one host model.
type Manager struct {
	model  ports.HostModel
	clock  clock.Clock
	logger *slog.Logger

	total      *atomic.Uint64
	committed  *atomic.Uint64
	rolledBack *atomic.Uint64
	failures   *atomic.Uint64

	mu     sync.Mutex
	active *Transaction
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithClock sets the clock used for transaction timestamps.
func WithClock(clk clock.Clock) ManagerOption {
	return func(m *Manager) {
		m.clock = clk
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager over model.
func NewManager(model ports.HostModel, opts ...ManagerOption) *Manager {
	m := &Manager{
		model:      model,
		clock:      clock.New(),
		logger:     slog.Default(),
		total:      atomic.NewUint64(0),
		committed:  atomic.NewUint64(0),
		rolledBack: atomic.NewUint64(0),
		failures:   atomic.NewUint64(0),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// BeginOption configures one transaction.
type BeginOption func(*Transaction)

// WithOwner records who started the transaction.
func WithOwner(owner string) BeginOption {
	return func(t *Transaction) {
		t.owner = owner
	}
}

// Begin starts a transaction. It fails with
// *errors.TransactionAlreadyActiveError while another one is active.
func (m *Manager) Begin(label string, opts ...BeginOption) (*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		m.failures.Inc()
		return nil, &errors.TransactionAlreadyActiveError{Active: m.active.label}
	}

	changes, err := m.model.Begin(label)
	if err != nil {
		m.failures.Inc()
		return nil, fmt.Errorf("failed to open change set: %w", err)
	}

	tx := &Transaction{
		id:        uuid.NewString(),
		label:     label,
		state:     entities.TransactionActive,
		startedAt: m.clock.Now(),
		changes:   changes,
	}
	for _, opt := range opts {
		opt(tx)
	}
	m.active = tx
	m.total.Inc()
	m.logger.Debug("transaction started", "transaction_id", tx.id, "label", label)
	return tx, nil
}

// Commit applies every mutation of tx at once. If applying fails, nothing
// is applied, the transaction is rolled back and *errors.TransactionError
// is returned.
func (m *Manager) Commit(tx *Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkActive(tx, "commit"); err != nil {
		return err
	}

	if err := tx.changes.Commit(); err != nil {
		tx.changes.Discard()
		m.end(tx, entities.TransactionRolledBack)
		m.rolledBack.Inc()
		m.failures.Inc()
		m.logger.Warn("transaction commit failed, rolled back",
			"transaction_id", tx.id, "label", tx.label, "error", err)
		return &errors.TransactionError{Label: tx.label, Err: err}
	}

	m.end(tx, entities.TransactionCommitted)
	m.committed.Inc()
	m.logger.Debug("transaction committed", "transaction_id", tx.id, "label", tx.label)
	return nil
}

// Rollback discards every mutation of tx.
func (m *Manager) Rollback(tx *Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkActive(tx, "rollback"); err != nil {
		return err
	}

	tx.changes.Discard()
	m.end(tx, entities.TransactionRolledBack)
	m.rolledBack.Inc()
	m.logger.Debug("transaction rolled back", "transaction_id", tx.id, "label", tx.label)
	return nil
}

// checkActive requires tx to be the active transaction. Callers hold m.mu.
func (m *Manager) checkActive(tx *Transaction, op string) error {
	if tx == nil || m.active != tx || tx.state != entities.TransactionActive {
		m.failures.Inc()
		return &errors.NoActiveTransactionError{Operation: op}
	}
	return nil
}

func (m *Manager) end(tx *Transaction, state entities.TransactionState) {
	tx.state = state
	tx.endedAt = m.clock.Now()
	tx.changes = nil
	m.active = nil
}

// Run executes fn inside a new transaction. The transaction commits when fn
// returns nil and rolls back when fn fails or panics.
func (m *Manager) Run(label string, fn func(ports.ModelEditor) error) error {
	tx, err := m.Begin(label)
	if err != nil {
		return err
	}
	editor := tx.changes

	defer func() {
		if rec := recover(); rec != nil {
			_ = m.Rollback(tx)
			panic(rec)
		}
	}()

	if err := fn(editor); err != nil {
		if rbErr := m.Rollback(tx); rbErr != nil {
			m.logger.Warn("rollback after failure did not run", "label", label, "error", rbErr)
		}
		return err
	}
	return m.Commit(tx)
}

// Active returns the active transaction, if any.
func (m *Manager) Active() (*Transaction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active, m.active != nil
}

// Info describes tx.
func (m *Manager) Info(tx *Transaction) entities.TransactionInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return entities.TransactionInfo{
		ID:        tx.id,
		Label:     tx.label,
		Owner:     tx.owner,
		State:     tx.state,
		StartedAt: tx.startedAt,
		EndedAt:   tx.endedAt,
	}
}

// Editor returns the editor of the active transaction. Mutations require
// one; op names the attempted mutation in the error.
func (m *Manager) Editor(op string) (ports.ModelEditor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		m.failures.Inc()
		return nil, &errors.NoActiveTransactionError{Operation: op}
	}
	return m.active.changes, nil
}

// View returns the committed model. Reads never need a transaction and
// never see staged mutations.
func (m *Manager) View() ports.ModelView {
	return m.model
}

// Stats returns the transaction counters.
func (m *Manager) Stats() entities.TransactionStats {
	m.mu.Lock()
	active := 0
	if m.active != nil {
		active = 1
	}
	m.mu.Unlock()

	return entities.TransactionStats{
		Active:     active,
		Total:      m.total.Load(),
		Committed:  m.committed.Load(),
		RolledBack: m.rolledBack.Load(),
		Failures:   m.failures.Load(),
	}
}

// ResetStats zeroes the counters. The active transaction is unaffected.
func (m *Manager) ResetStats() {
	m.total.Store(0)
	m.committed.Store(0)
	m.rolledBack.Store(0)
	m.failures.Store(0)
}
