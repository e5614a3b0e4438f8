package transaction

import (
	stdErrors "errors"
	"testing"
	"time"

	"github.com/aj-geddes/revitpy-sub005/domain/entities"
	"github.com/aj-geddes/revitpy-sub005/domain/errors"
	"github.com/aj-geddes/revitpy-sub005/domain/ports"
	"github.com/aj-geddes/revitpy-sub005/infrastructure/memmodel"
	"github.com/aj-geddes/revitpy-sub005/internal/testutil"
	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_BeginWhileActiveFails(t *testing.T) {
	m := NewManager(memmodel.New())

	tx, err := m.Begin("first", WithOwner("script-1"))
	require.NoError(t, err)
	assert.NotEmpty(t, tx.ID())
	assert.Equal(t, "first", tx.Label())

	_, err = m.Begin("second")
	activeErr := testutil.RequireErrorAs[*errors.TransactionAlreadyActiveError](t, err)
	assert.Equal(t, "first", activeErr.Active)

	active, ok := m.Active()
	require.True(t, ok)
	assert.Same(t, tx, active)

	require.NoError(t, m.Rollback(tx))
	_, ok = m.Active()
	assert.False(t, ok)

	tx, err = m.Begin("second")
	require.NoError(t, err)
	require.NoError(t, m.Rollback(tx))
}

func TestManager_CommitMakesMutationsVisible(t *testing.T) {
	model := memmodel.New()
	m := NewManager(model)

	tx, err := m.Begin("create")
	require.NoError(t, err)
	editor, err := m.Editor("create element")
	require.NoError(t, err)
	e, err := editor.CreateElement("Walls", "W1")
	require.NoError(t, err)

	// Not visible before commit.
	_, err = m.View().Element(e.ID)
	testutil.RequireErrorAs[*errors.ElementNotFoundError](t, err)

	require.NoError(t, m.Commit(tx))

	got, err := m.View().Element(e.ID)
	require.NoError(t, err)
	assert.Equal(t, "W1", got.Name)
	assert.Equal(t, entities.TransactionCommitted, m.Info(tx).State)
}

func TestManager_RollbackMakesNothingVisible(t *testing.T) {
	model := memmodel.New()
	m := NewManager(model)

	tx, err := m.Begin("create")
	require.NoError(t, err)
	editor, err := m.Editor("create element")
	require.NoError(t, err)
	_, err = editor.CreateElement("Walls", "W1")
	require.NoError(t, err)
	_, err = editor.CreateElement("Walls", "W2")
	require.NoError(t, err)

	require.NoError(t, m.Rollback(tx))

	all, err := m.View().Elements("")
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Equal(t, entities.TransactionRolledBack, m.Info(tx).State)
}

func TestManager_CommitFailureRollsBack(t *testing.T) {
	rejected := stdErrors.New("store offline")
	model := memmodel.New(memmodel.WithCommitHook(func(entities.ModelSnapshot) error {
		return rejected
	}))
	m := NewManager(model)

	tx, err := m.Begin("doomed")
	require.NoError(t, err)
	editor, err := m.Editor("create element")
	require.NoError(t, err)
	_, err = editor.CreateElement("Walls", "W1")
	require.NoError(t, err)

	err = m.Commit(tx)
	txErr := testutil.RequireErrorAs[*errors.TransactionError](t, err)
	assert.Equal(t, "doomed", txErr.Label)
	assert.ErrorIs(t, err, rejected)

	all, err := m.View().Elements("")
	require.NoError(t, err)
	assert.Empty(t, all)
	_, ok := m.Active()
	assert.False(t, ok)

	stats := m.Stats()
	assert.Equal(t, uint64(1), stats.RolledBack)
	assert.Equal(t, uint64(1), stats.Failures)
	assert.Equal(t, uint64(0), stats.Committed)
}

func TestManager_MutationsRequireActiveTransaction(t *testing.T) {
	m := NewManager(memmodel.New())

	_, err := m.Editor("create element")
	noActive := testutil.RequireErrorAs[*errors.NoActiveTransactionError](t, err)
	assert.Equal(t, "create element", noActive.Operation)

	// Reads never need one.
	_, err = m.View().Elements("")
	require.NoError(t, err)
}

func TestManager_EndedTransactionCannotBeReused(t *testing.T) {
	m := NewManager(memmodel.New())

	tx, err := m.Begin("once")
	require.NoError(t, err)
	require.NoError(t, m.Commit(tx))

	testutil.RequireErrorAs[*errors.NoActiveTransactionError](t, m.Commit(tx))
	testutil.RequireErrorAs[*errors.NoActiveTransactionError](t, m.Rollback(tx))
	testutil.RequireErrorAs[*errors.NoActiveTransactionError](t, m.Commit(nil))
}

func TestManager_Run(t *testing.T) {
	m := NewManager(memmodel.New())

	err := m.Run("ok", func(editor ports.ModelEditor) error {
		_, err := editor.CreateElement("Walls", "W1")
		return err
	})
	require.NoError(t, err)

	boom := stdErrors.New("boom")
	err = m.Run("fails", func(editor ports.ModelEditor) error {
		_, _ = editor.CreateElement("Walls", "W2")
		return boom
	})
	assert.ErrorIs(t, err, boom)

	assert.Panics(t, func() {
		_ = m.Run("panics", func(editor ports.ModelEditor) error {
			_, _ = editor.CreateElement("Walls", "W3")
			panic("unexpected")
		})
	})

	all, err := m.View().Elements("")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "W1", all[0].Name)
	_, ok := m.Active()
	assert.False(t, ok)

	stats := m.Stats()
	assert.Equal(t, uint64(3), stats.Total)
	assert.Equal(t, uint64(1), stats.Committed)
	assert.Equal(t, uint64(2), stats.RolledBack)
}

func TestManager_InfoAndStats(t *testing.T) {
	mock := clock.NewMock()
	m := NewManager(memmodel.New(), WithClock(mock))

	tx, err := m.Begin("timed", WithOwner("cli"))
	require.NoError(t, err)
	assert.Equal(t, 1, m.Stats().Active)

	mock.Add(time.Second)
	require.NoError(t, m.Commit(tx))

	info := m.Info(tx)
	assert.Equal(t, "cli", info.Owner)
	assert.Equal(t, time.Second, info.EndedAt.Sub(info.StartedAt))

	_, err = m.Begin("other")
	require.NoError(t, err)
	_, err = m.Begin("again")
	require.Error(t, err)

	stats := m.Stats()
	assert.Equal(t, 1, stats.Active)
	assert.Equal(t, uint64(2), stats.Total)
	assert.Equal(t, uint64(1), stats.Failures)

	m.ResetStats()
	stats = m.Stats()
	assert.Equal(t, 1, stats.Active)
	assert.Zero(t, stats.Total)
	assert.Zero(t, stats.Failures)
}
