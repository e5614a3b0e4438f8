package pool

import (
	"context"
	stdErrors "errors"
	"slices"

	"github.com/aj-geddes/revitpy-sub005/domain/ports"
	"golang.org/x/sync/semaphore"
)

var errGenerationRetired = stdErrors.New("pool generation retired")

type slotState int

const (
	// slotVacant has no instance: creation or replacement failed.
	slotVacant slotState = iota
	// slotLazy has no instance yet; Rent creates it on demand.
	slotLazy
	slotCreating
	slotIdle
	slotBusy
)

type slot struct {
	interp  ports.Interpreter
	index   int
	rentals int
	state   slotState
}

// generation is one lifetime of the pool's membership between resets.
// Its semaphore has one permit per slot; a permit is free exactly when its
// slot is idle.
type generation struct {
	ctx    context.Context
	sem    *semaphore.Weighted
	cancel context.CancelCauseFunc
	slots  []*slot
	idle   []int // idle slot indices, least recently returned first
	id     uint64
}

func newGeneration(id uint64, capacity int) *generation {
	ctx, cancel := context.WithCancelCause(context.Background())
	sem := semaphore.NewWeighted(int64(capacity))
	// Every slot starts without an instance, so every permit starts held.
	_ = sem.TryAcquire(int64(capacity))

	slots := make([]*slot, capacity)
	for i := range slots {
		slots[i] = &slot{index: i, state: slotLazy}
	}
	return &generation{
		ctx:    ctx,
		sem:    sem,
		cancel: cancel,
		slots:  slots,
		id:     id,
	}
}

// claim marks the first n slots as being created and returns them.
func (g *generation) claim(n int) []*slot {
	targets := g.slots[:min(n, len(g.slots))]
	for _, s := range targets {
		s.state = slotCreating
	}
	return targets
}

func (g *generation) retire(cause error) {
	g.cancel(cause)
}

// acquire waits for a permit until ctx is done or the generation retires.
func (g *generation) acquire(ctx context.Context) error {
	actx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	stop := context.AfterFunc(g.ctx, func() {
		cancel(errGenerationRetired)
	})
	defer stop()

	if err := g.sem.Acquire(actx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return context.Cause(actx)
	}
	return nil
}

// popIdle removes and returns the least recently returned idle slot.
// Callers hold the pool mutex.
func (g *generation) popIdle() *slot {
	if len(g.idle) == 0 {
		return nil
	}
	idx := g.idle[0]
	g.idle = g.idle[1:]
	return g.slots[idx]
}

// takeIdle removes a specific slot from the idle queue.
func (g *generation) takeIdle(idx int) bool {
	pos := slices.Index(g.idle, idx)
	if pos < 0 {
		return false
	}
	g.idle = slices.Delete(g.idle, pos, pos+1)
	return true
}

func (g *generation) pushIdle(s *slot) {
	s.state = slotIdle
	g.idle = append(g.idle, s.index)
}

func (g *generation) count(state slotState) int {
	n := 0
	for _, s := range g.slots {
		if s.state == state {
			n++
		}
	}
	return n
}
