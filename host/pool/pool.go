package pool

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aj-geddes/revitpy-sub005/domain/entities"
	"github.com/aj-geddes/revitpy-sub005/domain/errors"
	"github.com/aj-geddes/revitpy-sub005/domain/ports"
	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// ErrNotInitialized is returned by Rent before Initialize succeeded.
var ErrNotInitialized = stdErrors.New("interpreter pool is not initialized")

var errPoolClosed = stdErrors.New("pool closed")

// Pool owns a fixed number of interpreters and lends them to callers.
// All bookkeeping happens under one mutex; interpreter creation, probing,
// reset and close run outside it.
type Pool struct {
	factory ports.InterpreterFactory
	clock   clock.Clock
	logger  *slog.Logger

	totalCreated   *atomic.Uint64
	totalDestroyed *atomic.Uint64
	totalRentals   *atomic.Uint64
	totalTimeouts  *atomic.Uint64
	waiting        *atomic.Int64

	mu          sync.Mutex
	gen         *generation
	createdAt   time.Time
	lastResetAt time.Time
	cfg         entities.PoolConfig
	initialized bool
	disposed    bool
}

// New creates a pool. No interpreter is created until Initialize.
func New(cfg entities.PoolConfig, factory ports.InterpreterFactory, opts ...PoolOption) (*Pool, error) {
	if cfg.Capacity < 1 {
		return nil, &errors.ConfigError{Field: "Capacity", Err: fmt.Errorf("must be at least 1, got %d", cfg.Capacity)}
	}
	if cfg.MinInstances < 0 || cfg.MinInstances > cfg.Capacity {
		return nil, &errors.ConfigError{Field: "MinInstances", Err: fmt.Errorf("must be between 0 and %d", cfg.Capacity)}
	}
	if factory == nil {
		return nil, &errors.ConfigError{Field: "factory", Err: fmt.Errorf("interpreter factory is required")}
	}

	c := defaultPoolConfig()
	for _, opt := range opts {
		opt(&c)
	}
	logger := c.logger
	if logger == nil {
		logger = slog.Default()
	}

	now := c.clock.Now()
	return &Pool{
		factory:        factory,
		clock:          c.clock,
		logger:         logger,
		cfg:            cfg,
		totalCreated:   atomic.NewUint64(0),
		totalDestroyed: atomic.NewUint64(0),
		totalRentals:   atomic.NewUint64(0),
		totalTimeouts:  atomic.NewUint64(0),
		waiting:        atomic.NewInt64(0),
		createdAt:      now,
		lastResetAt:    now,
	}, nil
}

// Initialize creates the eager instances (MinInstances, or Capacity when
// zero) in parallel. Individual failures leave vacant slots; only a total
// failure is fatal and returns *errors.PoolInitializationError.
// Calling Initialize again after success is a no-op.
func (p *Pool) Initialize(ctx context.Context) error {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return &errors.PoolDisposedError{Operation: "initialize"}
	}
	if p.initialized {
		p.mu.Unlock()
		return nil
	}
	eager := p.cfg.EffectiveMinInstances()
	gen := newGeneration(1, p.cfg.Capacity)
	targets := gen.claim(eager)
	p.gen = gen
	p.initialized = true
	p.mu.Unlock()

	created, err := p.fill(ctx, gen, targets)
	if created == 0 && eager > 0 {
		p.mu.Lock()
		if p.gen == gen {
			p.gen = nil
			p.initialized = false
		}
		p.mu.Unlock()
		gen.retire(errPoolClosed)
		return &errors.PoolInitializationError{Requested: eager, Err: err}
	}
	if err != nil {
		p.logger.Warn("interpreter pool partially initialized",
			"requested", eager, "created", created, "error", err)
	}
	p.logger.Info("interpreter pool initialized",
		"capacity", p.cfg.Capacity, "created", created, "generation", gen.id)
	return nil
}

// fill creates instances for claimed slots, at most WarmupParallelism at a
// time. It returns how many were placed and the combined creation errors.
func (p *Pool) fill(ctx context.Context, gen *generation, targets []*slot) (int, error) {
	limit := p.cfg.WarmupParallelism
	if limit <= 0 {
		limit = len(targets)
	}

	var (
		errMu   sync.Mutex
		errs    error
		created = atomic.NewInt64(0)
		g       errgroup.Group
	)
	g.SetLimit(max(limit, 1))
	for _, s := range targets {
		g.Go(func() error {
			if err := p.populate(ctx, gen, s); err != nil {
				errMu.Lock()
				errs = multierr.Append(errs, err)
				errMu.Unlock()
				return nil
			}
			created.Inc()
			return nil
		})
	}
	_ = g.Wait()
	return int(created.Load()), errs
}

// populate creates an instance for a slot in slotCreating state and makes it
// idle. On failure the slot becomes vacant and keeps its permit.
func (p *Pool) populate(ctx context.Context, gen *generation, s *slot) error {
	interp, err := p.create(ctx, gen, s.index)

	p.mu.Lock()
	if gen != p.gen || p.disposed {
		p.mu.Unlock()
		if interp != nil {
			p.destroy(ctx, interp, gen, s.index, "generation retired")
		}
		return errGenerationRetired
	}
	if err != nil {
		s.state = slotVacant
		p.mu.Unlock()
		return err
	}
	s.interp = interp
	s.rentals = 0
	gen.pushIdle(s)
	p.mu.Unlock()
	gen.sem.Release(1)
	return nil
}

// create builds and initializes one interpreter.
func (p *Pool) create(ctx context.Context, gen *generation, index int) (ports.Interpreter, error) {
	interp, err := p.factory(ctx)
	if err != nil {
		p.logger.Warn("interpreter creation failed", "slot", index, "generation", gen.id, "error", err)
		return nil, err
	}
	if err := interp.Initialize(ctx); err != nil {
		_ = interp.Close(ctx)
		p.logger.Warn("interpreter initialization failed",
			"interpreter_id", interp.ID(), "slot", index, "generation", gen.id, "error", err)
		return nil, err
	}
	p.totalCreated.Inc()
	p.logger.Info("interpreter created", "interpreter_id", interp.ID(), "slot", index, "generation", gen.id)
	return interp, nil
}

// destroy closes an interpreter and counts it.
func (p *Pool) destroy(ctx context.Context, interp ports.Interpreter, gen *generation, index int, reason string) {
	p.totalDestroyed.Inc()
	p.closeInterp(ctx, interp, gen, index, reason)
}

// detachLocked takes a busy slot's instance out of gen and counts it as
// destroyed. It reports false when gen has already retired; retirement
// counted the instance then. The slot stays in slotCreating until a
// replacement or vacancy is recorded. Callers hold p.mu.
func (p *Pool) detachLocked(gen *generation, s *slot) bool {
	if gen != p.gen || p.disposed {
		return false
	}
	s.interp = nil
	s.state = slotCreating
	p.totalDestroyed.Inc()
	return true
}

// closeInterp closes an interpreter without counting it.
func (p *Pool) closeInterp(ctx context.Context, interp ports.Interpreter, gen *generation, index int, reason string) {
	if err := interp.Close(ctx); err != nil {
		p.logger.Warn("interpreter close failed", "interpreter_id", interp.ID(), "error", err)
	}
	p.logger.Info("interpreter destroyed",
		"interpreter_id", interp.ID(), "slot", index, "generation", gen.id, "reason", reason)
}

// Rent borrows an interpreter, waiting up to the configured RentTimeout.
func (p *Pool) Rent(ctx context.Context) (*Rental, error) {
	return p.RentWithTimeout(ctx, p.cfg.RentTimeout)
}

// RentWithTimeout borrows an interpreter, waiting up to timeout (0 means
// only ctx bounds the wait). Waiters are served in arrival order.
func (p *Pool) RentWithTimeout(ctx context.Context, timeout time.Duration) (*Rental, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = p.clock.WithTimeout(ctx, timeout)
		defer cancel()
	}

	for {
		p.mu.Lock()
		if p.disposed {
			p.mu.Unlock()
			return nil, &errors.PoolDisposedError{Operation: "rent"}
		}
		if !p.initialized {
			p.mu.Unlock()
			return nil, ErrNotInitialized
		}
		gen := p.gen

		if gen.sem.TryAcquire(1) {
			r := p.checkout(gen)
			p.mu.Unlock()
			return r, nil
		}
		if lazy := p.claimLazy(gen); lazy != nil {
			p.mu.Unlock()
			r, err := p.rentLazy(ctx, gen, lazy)
			if stdErrors.Is(err, errGenerationRetired) {
				continue
			}
			return r, err
		}
		p.mu.Unlock()

		p.waiting.Inc()
		err := gen.acquire(ctx)
		p.waiting.Dec()
		if err != nil {
			if stdErrors.Is(err, errGenerationRetired) {
				continue
			}
			if stdErrors.Is(err, context.DeadlineExceeded) {
				p.totalTimeouts.Inc()
			}
			return nil, errors.FromContext("rent", err, timeout)
		}

		p.mu.Lock()
		if gen != p.gen {
			p.mu.Unlock()
			gen.sem.Release(1)
			continue
		}
		r := p.checkout(gen)
		p.mu.Unlock()
		return r, nil
	}
}

// checkout hands out an idle slot for a permit the caller already holds.
// Callers hold p.mu.
func (p *Pool) checkout(gen *generation) *Rental {
	s := gen.popIdle()
	s.state = slotBusy
	s.rentals++
	p.totalRentals.Inc()
	return newRental(p, gen, s, p.clock.Now())
}

// claimLazy reserves a not-yet-created slot for on-demand creation.
// Callers hold p.mu.
func (p *Pool) claimLazy(gen *generation) *slot {
	for _, s := range gen.slots {
		if s.state == slotLazy {
			s.state = slotCreating
			return s
		}
	}
	return nil
}

// rentLazy creates an instance for a claimed lazy slot and rents it
// directly; the slot's permit passes to the rental.
func (p *Pool) rentLazy(ctx context.Context, gen *generation, s *slot) (*Rental, error) {
	interp, err := p.create(ctx, gen, s.index)

	p.mu.Lock()
	if gen != p.gen || p.disposed {
		p.mu.Unlock()
		if interp != nil {
			p.destroy(ctx, interp, gen, s.index, "generation retired")
		}
		return nil, errGenerationRetired
	}
	if err != nil {
		// Waiters are already queued on the semaphore; a vacant slot is
		// left to the health check instead of the next caller.
		s.state = slotVacant
		p.mu.Unlock()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.FromContext("rent", ctxErr, 0)
		}
		return nil, &errors.InitializationError{Err: err}
	}
	s.interp = interp
	s.state = slotBusy
	s.rentals = 1
	p.totalRentals.Inc()
	r := newRental(p, gen, s, p.clock.Now())
	p.mu.Unlock()
	return r, nil
}

// release returns a rental's interpreter. Unhealthy, recycled or
// unresettable instances are replaced in the same slot.
func (p *Pool) release(r *Rental) {
	ctx := context.Background()
	gen, s, interp := r.gen, r.slot, r.interp

	p.mu.Lock()
	retired := gen != p.gen || p.disposed
	p.mu.Unlock()
	if retired {
		// Counted as destroyed when the generation retired.
		if err := interp.Close(ctx); err != nil {
			p.logger.Warn("interpreter close failed", "interpreter_id", interp.ID(), "error", err)
		}
		return
	}

	reason := ""
	switch {
	case r.unhealthy.Load():
		reason = "marked unhealthy"
	case !interp.Healthy():
		reason = "unhealthy"
	case p.cfg.MaxRentalsPerInstance > 0 && s.rentals >= p.cfg.MaxRentalsPerInstance:
		reason = "rental limit reached"
	case p.cfg.SanitizeOnReturn:
		if err := interp.Reset(ctx); err != nil {
			reason = "reset failed"
		}
	}

	if reason == "" {
		p.mu.Lock()
		if gen != p.gen || p.disposed {
			p.mu.Unlock()
			_ = interp.Close(ctx)
			return
		}
		gen.pushIdle(s)
		p.mu.Unlock()
		gen.sem.Release(1)
		return
	}

	p.mu.Lock()
	detached := p.detachLocked(gen, s)
	p.mu.Unlock()
	p.closeInterp(ctx, interp, gen, s.index, reason)
	if !detached {
		return
	}

	replacement, createErr := p.create(ctx, gen, s.index)

	p.mu.Lock()
	if gen != p.gen || p.disposed {
		p.mu.Unlock()
		if replacement != nil {
			p.destroy(ctx, replacement, gen, s.index, "generation retired")
		}
		return
	}
	s.rentals = 0
	if createErr != nil {
		s.state = slotVacant
		p.mu.Unlock()
		p.logger.Warn("interpreter replacement failed, slot left vacant",
			"slot", s.index, "generation", gen.id, "error", createErr)
		return
	}
	s.interp = replacement
	p.logger.Info("interpreter replaced",
		"old_interpreter_id", interp.ID(), "interpreter_id", replacement.ID(),
		"slot", s.index, "generation", gen.id, "reason", reason)
	gen.pushIdle(s)
	p.mu.Unlock()
	gen.sem.Release(1)
}

// With rents an interpreter, runs fn and always returns the interpreter.
// A panic in fn marks the interpreter unhealthy before propagating.
func (p *Pool) With(ctx context.Context, fn func(ports.Interpreter) error) error {
	r, err := p.Rent(ctx)
	if err != nil {
		return err
	}
	defer r.Release()
	defer func() {
		if rec := recover(); rec != nil {
			r.MarkUnhealthy()
			panic(rec)
		}
	}()
	return fn(r.Interpreter())
}

// HealthCheck probes every idle interpreter, replaces failing ones and
// backfills vacant slots. Rented interpreters are reported unchecked.
func (p *Pool) HealthCheck(ctx context.Context) (entities.HealthReport, error) {
	report := entities.HealthReport{CheckedAt: p.clock.Now(), Healthy: true}

	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return report, &errors.PoolDisposedError{Operation: "health check"}
	}
	if !p.initialized {
		p.mu.Unlock()
		return report, ErrNotInitialized
	}
	gen := p.gen
	n := len(gen.slots)
	p.mu.Unlock()

	live := 0
	for idx := 0; idx < n; idx++ {
		if err := ctx.Err(); err != nil {
			return report, errors.FromContext("health check", err, 0)
		}
		health, ok := p.checkSlot(ctx, gen, idx)
		if !ok {
			continue
		}
		report.Instances = append(report.Instances, health)
		if health.Checked && !health.Healthy {
			report.Healthy = false
		}
		if health.Healthy {
			live++
		}
	}
	if live == 0 {
		report.Healthy = false
	}

	p.logger.Info("pool health check completed",
		"healthy", report.Healthy, "instances", len(report.Instances), "generation", gen.id)
	return report, nil
}

func (p *Pool) checkSlot(ctx context.Context, gen *generation, idx int) (entities.InstanceHealth, bool) {
	p.mu.Lock()
	if gen != p.gen || p.disposed {
		p.mu.Unlock()
		return entities.InstanceHealth{}, false
	}
	s := gen.slots[idx]
	health := entities.InstanceHealth{Slot: idx}

	switch s.state {
	case slotLazy:
		p.mu.Unlock()
		return health, false

	case slotBusy, slotCreating:
		if s.interp != nil {
			health.InterpreterID = s.interp.ID()
		}
		health.Healthy = true
		p.mu.Unlock()
		return health, true

	case slotVacant:
		s.state = slotCreating
		p.mu.Unlock()
		health.Checked = true
		if err := p.populate(ctx, gen, s); err != nil {
			health.Error = err.Error()
			return health, true
		}
		p.mu.Lock()
		health.InterpreterID = s.interp.ID()
		p.mu.Unlock()
		health.Healthy = true
		p.logger.Info("vacant slot backfilled", "slot", idx, "interpreter_id", health.InterpreterID, "generation", gen.id)
		return health, true
	}

	// Idle: take the slot out of circulation with its permit.
	if !gen.sem.TryAcquire(1) {
		health.InterpreterID = s.interp.ID()
		health.Healthy = true
		p.mu.Unlock()
		return health, true
	}
	gen.takeIdle(idx)
	s.state = slotBusy
	interp := s.interp
	p.mu.Unlock()

	health.InterpreterID = interp.ID()
	health.Checked = true
	err := interp.Ping(ctx)
	if err == nil && !interp.Healthy() {
		err = fmt.Errorf("interpreter reports unhealthy")
	}
	if err == nil {
		health.Healthy = true
		p.putBack(gen, s, nil)
		return health, true
	}

	health.Error = err.Error()
	p.logger.Warn("interpreter failed health probe", "interpreter_id", interp.ID(), "slot", idx, "error", err)
	p.mu.Lock()
	detached := p.detachLocked(gen, s)
	p.mu.Unlock()
	p.closeInterp(ctx, interp, gen, idx, "failed health probe")
	if !detached {
		return health, true
	}
	replacement, createErr := p.create(ctx, gen, idx)
	if createErr != nil {
		p.mu.Lock()
		if gen == p.gen && !p.disposed {
			s.state = slotVacant
		}
		p.mu.Unlock()
		return health, true
	}
	p.putBack(gen, s, replacement)
	return health, true
}

// putBack returns a slot taken out for probing. A non-nil replacement takes
// the slot's place.
func (p *Pool) putBack(gen *generation, s *slot, replacement ports.Interpreter) {
	p.mu.Lock()
	if gen != p.gen || p.disposed {
		p.mu.Unlock()
		if replacement != nil {
			p.destroy(context.Background(), replacement, gen, s.index, "generation retired")
		} else {
			_ = s.interp.Close(context.Background())
		}
		return
	}
	if replacement != nil {
		s.interp = replacement
		s.rentals = 0
	}
	gen.pushIdle(s)
	p.mu.Unlock()
	gen.sem.Release(1)
}

// Optimize asks every idle interpreter to drop its caches and returns how
// many were visited. Rented interpreters are left alone.
func (p *Pool) Optimize(ctx context.Context) (int, error) {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return 0, &errors.PoolDisposedError{Operation: "optimize"}
	}
	if !p.initialized {
		p.mu.Unlock()
		return 0, nil
	}
	gen := p.gen
	p.mu.Unlock()

	optimized := 0
	for idx := range gen.slots {
		if err := ctx.Err(); err != nil {
			return optimized, errors.FromContext("optimize", err, 0)
		}
		p.mu.Lock()
		s := gen.slots[idx]
		if gen != p.gen || s.state != slotIdle || !gen.sem.TryAcquire(1) {
			p.mu.Unlock()
			continue
		}
		gen.takeIdle(idx)
		s.state = slotBusy
		p.mu.Unlock()

		s.interp.Collect()
		optimized++
		p.putBack(gen, s, nil)
	}
	return optimized, nil
}

// Reset retires every current interpreter and recreates the pool. Rentals
// taken before the reset stay usable; their interpreters are closed on
// return. New rentals wait until fresh instances are available.
func (p *Pool) Reset(ctx context.Context) error {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return &errors.PoolDisposedError{Operation: "reset"}
	}
	if !p.initialized {
		p.mu.Unlock()
		return ErrNotInitialized
	}
	old := p.gen
	idle := p.retireLocked(old)
	eager := p.cfg.EffectiveMinInstances()
	gen := newGeneration(old.id+1, p.cfg.Capacity)
	targets := gen.claim(eager)
	p.gen = gen
	p.lastResetAt = p.clock.Now()
	p.mu.Unlock()

	old.retire(errGenerationRetired)
	var errs error
	for _, s := range idle {
		errs = multierr.Append(errs, s.interp.Close(ctx))
		p.logger.Info("interpreter destroyed",
			"interpreter_id", s.interp.ID(), "slot", s.index, "generation", old.id, "reason", "pool reset")
	}

	created, fillErr := p.fill(ctx, gen, targets)
	p.logger.Info("interpreter pool reset", "generation", gen.id, "created", created)
	if created == 0 && eager > 0 {
		errs = multierr.Append(errs, &errors.PoolInitializationError{
			Requested: eager,
			Err:       fillErr,
		})
	}
	return errs
}

// retireLocked counts every instance of gen as destroyed and returns the
// idle slots for closing. Busy instances are closed on return. Callers hold
// p.mu.
func (p *Pool) retireLocked(gen *generation) []*slot {
	var idle []*slot
	for _, s := range gen.slots {
		switch s.state {
		case slotIdle:
			idle = append(idle, s)
			p.totalDestroyed.Inc()
		case slotBusy:
			p.totalDestroyed.Inc()
		}
	}
	gen.idle = nil
	return idle
}

// Stats returns a consistent snapshot of the pool.
func (p *Pool) Stats() entities.PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := entities.PoolStats{
		Capacity:       p.cfg.Capacity,
		LastResetAt:    p.lastResetAt,
		Uptime:         p.clock.Since(p.createdAt),
		Disposed:       p.disposed,
		Waiting:        int(p.waiting.Load()),
		TotalCreated:   p.totalCreated.Load(),
		TotalDestroyed: p.totalDestroyed.Load(),
		TotalRentals:   p.totalRentals.Load(),
		TotalTimeouts:  p.totalTimeouts.Load(),
	}
	if p.gen != nil && !p.disposed {
		stats.Generation = p.gen.id
		stats.Available = p.gen.count(slotIdle)
		stats.Busy = p.gen.count(slotBusy)
		stats.Total = stats.Available + stats.Busy
	}
	return stats
}

// ResetCounters zeroes the cumulative counters without touching instances.
func (p *Pool) ResetCounters() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.totalCreated.Store(0)
	p.totalDestroyed.Store(0)
	p.totalRentals.Store(0)
	p.totalTimeouts.Store(0)
}

// Close disposes the pool. Waiting renters fail with PoolDisposedError, idle
// interpreters are closed now and rented ones on return. Closing twice is a
// no-op.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return nil
	}
	p.disposed = true
	gen := p.gen
	var idle []*slot
	if gen != nil {
		idle = p.retireLocked(gen)
	}
	p.mu.Unlock()

	if gen == nil {
		return nil
	}
	gen.retire(errPoolClosed)

	var errs error
	for _, s := range idle {
		errs = multierr.Append(errs, s.interp.Close(ctx))
	}
	p.logger.Info("interpreter pool disposed", "closed", len(idle), "generation", gen.id)
	return errs
}
