package client

import (
	"fmt"
	"sync"
	"time"
)

// ConnectionState represents the lifecycle state of a Client's live connection.
type ConnectionState int

const (
	// NOT_CONNECTED indicates no physical connection has been opened yet.
	NOT_CONNECTED ConnectionState = iota
	// CONNECTING indicates the connection is being opened and initialized.
	CONNECTING
	// CONNECTED indicates a live, initialized connection.
	CONNECTED
	// CLOSED indicates the client was closed explicitly. Terminal.
	CLOSED
)

// String returns the string representation of the connection state.
func (cs ConnectionState) String() string {
	switch cs {
	case NOT_CONNECTED:
		return "NOT_CONNECTED"
	case CONNECTING:
		return "CONNECTING"
	case CONNECTED:
		return "CONNECTED"
	case CLOSED:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// StateTransition represents a change in connection state with enriched context.
//
// Standard Metadata Keys:
//   - reason: string - "user_initiated" | "error" | "lazy_connect"
//   - driver: string - engine name
//   - database: string - database name from the connection string
type StateTransition struct {
	// From is the previous state.
	From ConnectionState

	// To is the new current state.
	To ConnectionState

	// Timestamp is when the transition occurred.
	Timestamp time.Time

	// Error is the error that caused the transition (if any).
	Error error

	// Duration is how long the previous state was held.
	Duration time.Duration

	// Metadata contains additional context about the transition.
	Metadata map[string]interface{}
}

// StateChangeHandler is called when the connection state changes.
type StateChangeHandler func(transition StateTransition)

// StateManager manages connection state transitions and event handlers.
type StateManager struct {
	current        ConnectionState
	lastTransition time.Time
	handlers       []StateChangeHandler
	mu             sync.RWMutex
}

// NewStateManager creates a new state manager in NOT_CONNECTED state.
func NewStateManager() *StateManager {
	return &StateManager{
		current:        NOT_CONNECTED,
		lastTransition: time.Now(),
	}
}

// TransitionTo attempts to transition to a new state.
// Returns error if the transition is illegal.
//
// Legal transitions:
//   - NOT_CONNECTED → CONNECTING
//   - CONNECTING → CONNECTED
//   - CONNECTING → NOT_CONNECTED (failed connection)
//   - NOT_CONNECTED → CLOSED
//   - CONNECTED → CLOSED
func (sm *StateManager) TransitionTo(newState ConnectionState, err error, metadata map[string]interface{}) error {
	sm.mu.Lock()

	if !isLegalTransition(sm.current, newState) {
		from := sm.current
		sm.mu.Unlock()
		return fmt.Errorf("illegal state transition: %s → %s", from, newState)
	}

	now := time.Now()
	transition := StateTransition{
		From:      sm.current,
		To:        newState,
		Timestamp: now,
		Error:     err,
		Duration:  now.Sub(sm.lastTransition),
		Metadata:  metadata,
	}

	sm.current = newState
	sm.lastTransition = now

	handlers := make([]StateChangeHandler, len(sm.handlers))
	copy(handlers, sm.handlers)
	sm.mu.Unlock()

	// Handlers run without the lock so they may read the state.
	for _, handler := range handlers {
		handler(transition)
	}

	return nil
}

func isLegalTransition(from, to ConnectionState) bool {
	switch from {
	case NOT_CONNECTED:
		return to == CONNECTING || to == CLOSED
	case CONNECTING:
		return to == CONNECTED || to == NOT_CONNECTED
	case CONNECTED:
		return to == CLOSED
	default:
		return false
	}
}

// OnStateChange registers a handler to be called on state transitions.
func (sm *StateManager) OnStateChange(handler StateChangeHandler) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.handlers = append(sm.handlers, handler)
}

// GetState returns the current connection state (thread-safe).
func (sm *StateManager) GetState() ConnectionState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.current
}

// Since returns how long the current state has been held.
func (sm *StateManager) Since() time.Duration {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return time.Since(sm.lastTransition)
}
