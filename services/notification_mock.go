package services

import (
	"context"
	"errors"
	"sync"
)

// ErrMockDispatch is returned by a failing MockDispatcher
var ErrMockDispatch = errors.New("mock dispatcher failure")

// MockDispatcher records dispatched events for testing
type MockDispatcher struct {
	events []LifecycleEvent
	fail   bool
	mu     sync.RWMutex
}

// NewMockDispatcher creates a new mock dispatcher
func NewMockDispatcher() *MockDispatcher {
	return &MockDispatcher{}
}

// Dispatch records the event, or fails when SetFail(true) was called
func (m *MockDispatcher) Dispatch(ctx context.Context, event LifecycleEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fail {
		return ErrMockDispatch
	}
	m.events = append(m.events, event)
	return nil
}

// SetFail makes every following Dispatch return ErrMockDispatch
func (m *MockDispatcher) SetFail(fail bool) {
	m.mu.Lock()
	m.fail = fail
	m.mu.Unlock()
}

// Events returns a copy of the recorded events
func (m *MockDispatcher) Events() []LifecycleEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]LifecycleEvent, len(m.events))
	copy(out, m.events)
	return out
}

// Reset clears the recorded events
func (m *MockDispatcher) Reset() {
	m.mu.Lock()
	m.events = nil
	m.mu.Unlock()
}
