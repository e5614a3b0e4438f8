package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aj-geddes/revitpy-sub005/domain/entities"
	domainerrors "github.com/aj-geddes/revitpy-sub005/domain/errors"
	"github.com/aj-geddes/revitpy-sub005/domain/ports"
)

// FakeInterpreter is a controllable ports.Interpreter for pool and bridge
// tests. Its zero value is not usable; create it with a FakeFactory or
// NewFakeInterpreter.
type FakeInterpreter struct {
	// ExecuteFunc, when set, replaces the default successful Execute.
	ExecuteFunc func(ctx context.Context, code string) (*entities.ExecutionResult, error)

	// ResetFunc, when set, runs after the namespace is cleared and its
	// error is returned from Reset.
	ResetFunc func(ctx context.Context) error

	vars         map[string]entities.Value
	pingErr      error
	resetErr     error
	lastActivity time.Time
	id           string
	resets       int
	collects     int
	pings        int
	mu           sync.Mutex
	initialized  bool
	closed       bool
	unhealthy    bool
}

var _ ports.Interpreter = (*FakeInterpreter)(nil)

// NewFakeInterpreter creates an uninitialized fake with the given id.
func NewFakeInterpreter(id string) *FakeInterpreter {
	return &FakeInterpreter{id: id, vars: map[string]entities.Value{}}
}

func (f *FakeInterpreter) ID() string { return f.id }

func (f *FakeInterpreter) Initialize(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return &domainerrors.DisposedError{InterpreterID: f.id}
	}
	f.initialized = true
	return nil
}

func (f *FakeInterpreter) check() error {
	f.lastActivity = time.Now()
	if f.closed {
		return &domainerrors.DisposedError{InterpreterID: f.id}
	}
	return nil
}

func (f *FakeInterpreter) Execute(ctx context.Context, code string, globals map[string]entities.Value) (*entities.ExecutionResult, error) {
	f.mu.Lock()
	if err := f.check(); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	for k, v := range globals {
		f.vars[k] = v
	}
	fn := f.ExecuteFunc
	f.mu.Unlock()

	if fn != nil {
		return fn(ctx, code)
	}
	return &entities.ExecutionResult{InterpreterID: f.id, Success: true, StartedAt: time.Now()}, nil
}

func (f *FakeInterpreter) Evaluate(ctx context.Context, expr string) (entities.Value, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(); err != nil {
		return entities.NoneValue(), err
	}
	if v, ok := f.vars[expr]; ok {
		return v, nil
	}
	return entities.StringValue(expr), nil
}

func (f *FakeInterpreter) Call(ctx context.Context, module, function string, args []entities.Value, kwargs map[string]entities.Value) (entities.Value, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(); err != nil {
		return entities.NoneValue(), err
	}
	return entities.ListValue(args...), nil
}

func (f *FakeInterpreter) SetVariable(name string, value entities.Value) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(); err != nil {
		return err
	}
	f.vars[name] = value
	return nil
}

func (f *FakeInterpreter) GetVariable(name string) (entities.Value, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(); err != nil {
		return entities.NoneValue(), err
	}
	v, ok := f.vars[name]
	if !ok {
		return entities.NoneValue(), &domainerrors.NameNotFoundError{Name: name}
	}
	return v, nil
}

func (f *FakeInterpreter) ImportModule(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.check()
}

func (f *FakeInterpreter) AddPath(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.check()
}

func (f *FakeInterpreter) HasModule(name string) bool { return false }

func (f *FakeInterpreter) MemoryInfo() entities.MemoryInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	return entities.MemoryInfo{ObjectCount: len(f.vars)}
}

func (f *FakeInterpreter) LastActivity() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastActivity
}

func (f *FakeInterpreter) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pings++
	if err := f.check(); err != nil {
		return err
	}
	return f.pingErr
}

func (f *FakeInterpreter) Healthy() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.initialized && !f.closed && !f.unhealthy
}

func (f *FakeInterpreter) Reset(ctx context.Context) error {
	f.mu.Lock()
	if err := f.check(); err != nil {
		f.mu.Unlock()
		return err
	}
	f.resets++
	f.vars = map[string]entities.Value{}
	err := f.resetErr
	fn := f.ResetFunc
	f.mu.Unlock()

	if fn != nil {
		return fn(ctx)
	}
	return err
}

func (f *FakeInterpreter) Collect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.collects++
}

func (f *FakeInterpreter) Close(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// SetUnhealthy makes Healthy report false.
func (f *FakeInterpreter) SetUnhealthy(unhealthy bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unhealthy = unhealthy
}

// FailPing makes Ping return err.
func (f *FakeInterpreter) FailPing(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pingErr = err
}

// FailReset makes Reset return err.
func (f *FakeInterpreter) FailReset(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetErr = err
}

// Closed reports whether Close was called.
func (f *FakeInterpreter) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Resets returns how many times Reset ran.
func (f *FakeInterpreter) Resets() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resets
}

// Collects returns how many times Collect ran.
func (f *FakeInterpreter) Collects() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.collects
}

// Pings returns how many times Ping ran.
func (f *FakeInterpreter) Pings() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pings
}

// ErrFactoryFailure is returned by a FakeFactory told to fail.
var ErrFactoryFailure = errors.New("fake interpreter creation failed")

// FakeFactory creates FakeInterpreters and can be told to fail.
type FakeFactory struct {
	// Configure, when set, runs on every interpreter created.
	Configure func(*FakeInterpreter)

	created  []*FakeInterpreter
	failNext int
	seq      int
	mu       sync.Mutex
	failAll  bool
}

// Create implements ports.InterpreterFactory.
func (f *FakeFactory) Create(ctx context.Context) (ports.Interpreter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return nil, ErrFactoryFailure
	}
	if f.failNext > 0 {
		f.failNext--
		return nil, ErrFactoryFailure
	}
	f.seq++
	interp := NewFakeInterpreter(fmt.Sprintf("fake-%d", f.seq))
	if f.Configure != nil {
		f.Configure(interp)
	}
	f.created = append(f.created, interp)
	return interp, nil
}

// FailNext makes the next n creations fail.
func (f *FakeFactory) FailNext(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failNext = n
}

// FailAll makes every creation fail until called with false.
func (f *FakeFactory) FailAll(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failAll = fail
}

// Created returns every interpreter created so far.
func (f *FakeFactory) Created() []*FakeInterpreter {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakeInterpreter(nil), f.created...)
}

// Get returns the interpreter with the given id, or nil.
func (f *FakeFactory) Get(id string) *FakeInterpreter {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, interp := range f.created {
		if interp.id == id {
			return interp
		}
	}
	return nil
}
