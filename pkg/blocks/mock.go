package blocks

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"gitlab.com/tinyland/lab/barpulse/pkg/format"
	"gitlab.com/tinyland/lab/barpulse/pkg/protocol"
)

// MockBlock implements Block, Notifier and Clicker for testing. It tracks
// how many times Update and Click were called and the peak number of
// concurrent Update calls.
type MockBlock struct {
	mu     sync.RWMutex
	out    *Output
	err    error
	delay  time.Duration
	events chan struct{}

	callCount   atomic.Int64
	clickCount  atomic.Int64
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	closed      atomic.Bool

	// UpdateFunc, if set, overrides the default Update behavior.
	UpdateFunc func(ctx context.Context) (*Output, error)

	// ClickFunc, if set, handles Click. Without it clicks are ignored.
	ClickFunc func(ctx context.Context, ev protocol.ClickEvent) (bool, error)
}

// MockBlockOption configures a MockBlock.
type MockBlockOption func(*MockBlock)

// WithOutput sets the output returned by Update.
func WithOutput(out *Output) MockBlockOption {
	return func(m *MockBlock) { m.out = out }
}

// WithValues sets the values returned by Update.
func WithValues(vals format.Values) MockBlockOption {
	return func(m *MockBlock) { m.out = Values(vals) }
}

// WithError sets the error returned by Update.
func WithError(err error) MockBlockOption {
	return func(m *MockBlock) { m.err = err }
}

// WithDelay makes every Update take d (or until ctx is done).
func WithDelay(d time.Duration) MockBlockOption {
	return func(m *MockBlock) { m.delay = d }
}

// WithEvents makes the block a Notifier reading from ch.
func WithEvents(ch chan struct{}) MockBlockOption {
	return func(m *MockBlock) { m.events = ch }
}

// WithUpdateFunc sets a custom function for Update.
func WithUpdateFunc(fn func(ctx context.Context) (*Output, error)) MockBlockOption {
	return func(m *MockBlock) { m.UpdateFunc = fn }
}

// WithClickFunc sets a custom click handler.
func WithClickFunc(fn func(ctx context.Context, ev protocol.ClickEvent) (bool, error)) MockBlockOption {
	return func(m *MockBlock) { m.ClickFunc = fn }
}

// NewMockBlock creates a mock block with the given options. Without
// options it returns an empty value map.
func NewMockBlock(opts ...MockBlockOption) *MockBlock {
	m := &MockBlock{out: Values(format.Values{})}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetValues updates the returned values (thread-safe).
func (m *MockBlock) SetValues(vals format.Values) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.out = Values(vals)
}

// SetError updates the returned error (thread-safe).
func (m *MockBlock) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Update performs a mock update. It increments the call counter and
// returns the configured output and error, or delegates to UpdateFunc.
func (m *MockBlock) Update(ctx context.Context) (*Output, error) {
	m.callCount.Add(1)
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		peak := m.maxInFlight.Load()
		if n <= peak || m.maxInFlight.CompareAndSwap(peak, n) {
			break
		}
	}

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.out, m.err
}

// Events implements Notifier. It returns nil (never ready) unless
// WithEvents was given.
func (m *MockBlock) Events() <-chan struct{} {
	return m.events
}

// Click implements Clicker.
func (m *MockBlock) Click(ctx context.Context, ev protocol.ClickEvent) (bool, error) {
	m.clickCount.Add(1)
	if m.ClickFunc != nil {
		return m.ClickFunc(ctx, ev)
	}
	return false, nil
}

// Close implements io.Closer.
func (m *MockBlock) Close() error {
	m.closed.Store(true)
	return nil
}

// CallCount returns how many times Update has been called.
func (m *MockBlock) CallCount() int64 { return m.callCount.Load() }

// ClickCount returns how many times Click has been called.
func (m *MockBlock) ClickCount() int64 { return m.clickCount.Load() }

// MaxInFlight returns the largest number of concurrent Update calls seen.
func (m *MockBlock) MaxInFlight() int32 { return m.maxInFlight.Load() }

// Closed reports whether Close was called.
func (m *MockBlock) Closed() bool { return m.closed.Load() }

// MockFactory builds MockBlocks and remembers each one, so tests can
// observe rebuilds after errors and restarts.
type MockFactory struct {
	mu     sync.Mutex
	opts   []MockBlockOption
	err    error
	builds []*MockBlock

	// Prepare, if set, runs on every new block before it is returned.
	Prepare func(build int, m *MockBlock)
}

// NewMockFactory returns a factory applying opts to every block it builds.
func NewMockFactory(opts ...MockBlockOption) *MockFactory {
	return &MockFactory{opts: opts}
}

// SetError makes subsequent builds fail with err; nil restores success.
func (f *MockFactory) SetError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// New implements Factory.
func (f *MockFactory) New(_ Settings, env Env) (Block, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, &ConfigError{Block: env.Name, Err: f.err}
	}
	m := NewMockBlock(f.opts...)
	if f.Prepare != nil {
		f.Prepare(len(f.builds), m)
	}
	f.builds = append(f.builds, m)
	return m, nil
}

// Type returns a registrable Type backed by f.
func (f *MockFactory) Type(name string, interval time.Duration) Type {
	return Type{Name: name, New: f.New, DefaultFormat: "{text}", DefaultInterval: interval}
}

// Builds returns how many blocks f has built.
func (f *MockFactory) Builds() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.builds)
}

// Last returns the most recently built block, or nil.
func (f *MockFactory) Last() *MockBlock {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.builds) == 0 {
		return nil
	}
	return f.builds[len(f.builds)-1]
}

// All returns every block built so far.
func (f *MockFactory) All() []*MockBlock {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*MockBlock(nil), f.builds...)
}
