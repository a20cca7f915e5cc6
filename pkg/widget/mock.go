package widget

import (
	"context"
	"sync"
	"sync/atomic"

	"gitlab.com/tinyland/lab/ledgebar/pkg/render"
)

// MockSource implements Source for testing. All behavior is configurable
// through options, and it records stream invocations and delivered
// actions.
type MockSource struct {
	name    string
	items   []Content
	result  error
	buttons map[render.Button]string

	mu          sync.Mutex
	actions     []Action
	streamCalls atomic.Int64

	// StreamFunc, if set, overrides the default Stream behavior entirely.
	// Tests use it to emit items on demand or to block until canceled.
	StreamFunc func(ctx context.Context, out chan<- Content) error
}

// MockSourceOption configures a MockSource.
type MockSourceOption func(*MockSource)

// WithItems sets the content items the default Stream emits before
// returning.
func WithItems(items ...Content) MockSourceOption {
	return func(m *MockSource) { m.items = items }
}

// WithResult sets the error the default Stream returns after emitting its
// items. nil means normal termination.
func WithResult(err error) MockSourceOption {
	return func(m *MockSource) { m.result = err }
}

// WithButtons sets the capability descriptor.
func WithButtons(buttons map[render.Button]string) MockSourceOption {
	return func(m *MockSource) { m.buttons = buttons }
}

// WithStreamFunc sets a custom stream implementation.
func WithStreamFunc(fn func(ctx context.Context, out chan<- Content) error) MockSourceOption {
	return func(m *MockSource) { m.StreamFunc = fn }
}

// NewMockSource creates a mock source with the given widget name.
func NewMockSource(name string, opts ...MockSourceOption) *MockSource {
	m := &MockSource{name: name}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns the configured widget name.
func (m *MockSource) Name() string { return m.name }

// Capabilities returns the configured button descriptor.
func (m *MockSource) Capabilities() Capabilities {
	return Capabilities{Buttons: m.buttons}
}

// Stream emits the configured items in order, then returns the configured
// result. It respects ctx between items.
func (m *MockSource) Stream(ctx context.Context, out chan<- Content) error {
	m.streamCalls.Add(1)

	if m.StreamFunc != nil {
		return m.StreamFunc(ctx, out)
	}

	for _, item := range m.items {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- item:
		}
	}
	return m.result
}

// Do records the delivered action (thread-safe).
func (m *MockSource) Do(_ context.Context, action Action) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions = append(m.actions, action)
	return nil
}

// Actions returns a copy of all actions delivered so far.
func (m *MockSource) Actions() []Action {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Action(nil), m.actions...)
}

// StreamCalls returns how many times Stream has been invoked.
func (m *MockSource) StreamCalls() int64 {
	return m.streamCalls.Load()
}
