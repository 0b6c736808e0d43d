package orchestrator

import "time"

// Policy holds the retry budget and settle delays of an objective run
type Policy struct {
	// MaxAttempts bounds execution plus verification attempts per action
	MaxAttempts       int
	Backoff           time.Duration
	StabilityTimeout  time.Duration
	StabilityInterval time.Duration
	FocusDelay        time.Duration
	RollbackSettle    time.Duration
	// StrictScreenChange fails a click-class action that leaves the screen unchanged
	StrictScreenChange bool
}

// DefaultPolicy returns the policy used when configuration overrides nothing.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:       3,
		Backoff:           2 * time.Second,
		StabilityTimeout:  2 * time.Second,
		StabilityInterval: 500 * time.Millisecond,
		FocusDelay:        500 * time.Millisecond,
		RollbackSettle:    500 * time.Millisecond,
	}
}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// State is the lifecycle position of one action inside an objective run
type State string

const (
	StatePending   State = "pending"
	StateExecuting State = "executing"
	StateVerifying State = "verifying"
	StateCompleted State = "completed"
	StateRetrying  State = "retrying"
	StateFailed    State = "failed"
)

// StateObserver is notified of every state transition of every action
type StateObserver func(index int, action string, state State)
