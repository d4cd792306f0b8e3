package delivery

import (
	"fmt"
	"time"
)

// Default polling configuration values.
const (
	DefaultMaxAttempts = 6
	DefaultInterval    = 5 * time.Second
)

// State is the polling state of one address.
type State int

const (
	// StateIdle means no attempt has been made for the current address.
	StateIdle State = iota
	// StatePolling means attempts are in progress.
	StatePolling
	// StateFound means an attempt returned messages.
	StateFound
	// StateExhausted means every attempt came back empty.
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePolling:
		return "polling"
	case StateFound:
		return "found"
	case StateExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Progress tracks one polling run.
type Progress struct {
	Attempts    int   `json:"attempts"`
	MaxAttempts int   `json:"max_attempts"`
	State       State `json:"state"`
}

// NewProgress returns an idle run with the given budget. A non-positive
// budget means DefaultMaxAttempts.
func NewProgress(maxAttempts int) Progress {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return Progress{MaxAttempts: maxAttempts, State: StateIdle}
}

// Complete reports whether the run reached Found or Exhausted.
func (p Progress) Complete() bool {
	return p.State == StateFound || p.State == StateExhausted
}

// CanPoll reports whether another attempt may start.
func (p Progress) CanPoll() bool {
	return !p.Complete() && p.Attempts < p.MaxAttempts
}

// Begin starts an attempt and returns its 1-based number. It returns false
// without changing anything when no attempt may start.
func (p *Progress) Begin() (int, bool) {
	if !p.CanPoll() {
		return p.Attempts, false
	}
	p.Attempts++
	p.State = StatePolling
	return p.Attempts, true
}

// Record closes the current attempt. A found result ends the run
// immediately; an empty one ends it only when the budget is spent.
func (p *Progress) Record(found bool) {
	switch {
	case found:
		p.State = StateFound
	case p.Attempts >= p.MaxAttempts:
		p.State = StateExhausted
	}
}

// Reset returns the run to Idle, keeping the budget.
func (p *Progress) Reset() {
	p.Attempts = 0
	p.State = StateIdle
}

// Abandon rolls back an attempt that was started but never produced a
// result, for example because its request was canceled.
func (p *Progress) Abandon() {
	if p.State != StatePolling || p.Attempts == 0 {
		return
	}
	p.Attempts--
	if p.Attempts == 0 {
		p.State = StateIdle
	}
}

// Pause returns an interrupted run to Idle, keeping its attempts, so a later
// run continues the same budget. Complete runs are left alone.
func (p *Progress) Pause() {
	if p.State == StatePolling {
		p.State = StateIdle
	}
}
