package pool

import (
	"time"

	"github.com/aj-geddes/revitpy-sub005/domain/ports"
	"go.uber.org/atomic"
)

// Rental is exclusive, temporary use of one pooled interpreter.
// Release must be called exactly once on every path; extra calls are no-ops.
type Rental struct {
	rentedAt  time.Time
	pool      *Pool
	gen       *generation
	slot      *slot
	interp    ports.Interpreter
	released  *atomic.Bool
	unhealthy *atomic.Bool
}

func newRental(p *Pool, gen *generation, s *slot, now time.Time) *Rental {
	return &Rental{
		rentedAt:  now,
		pool:      p,
		gen:       gen,
		slot:      s,
		interp:    s.interp,
		released:  atomic.NewBool(false),
		unhealthy: atomic.NewBool(false),
	}
}

// Interpreter returns the rented interpreter.
func (r *Rental) Interpreter() ports.Interpreter {
	return r.interp
}

// RentedAt returns when the rental started.
func (r *Rental) RentedAt() time.Time {
	return r.rentedAt
}

// Valid reports whether the rental has not been released yet.
func (r *Rental) Valid() bool {
	return !r.released.Load()
}

// Generation returns the pool generation the interpreter belongs to.
func (r *Rental) Generation() uint64 {
	return r.gen.id
}

// MarkUnhealthy makes the pool replace the interpreter on release.
func (r *Rental) MarkUnhealthy() {
	r.unhealthy.Store(true)
}

// Release returns the interpreter to the pool.
func (r *Rental) Release() {
	if r.released.Swap(true) {
		return
	}
	r.pool.release(r)
}
