// internal/score/session.go
//
// Score session: the observable state of one player's score recording.
//
// idle → switching_network (optional) → sending → confirming → confirmed
// error is reachable from any non-terminal state; skipped from idle when no
// contract is configured.

package score

import (
	"sync"
	"time"
)

// Status is a recording state.
type Status string

const (
	StatusIdle             Status = "idle"
	StatusSwitchingNetwork Status = "switching_network"
	StatusSending          Status = "sending"
	StatusConfirming       Status = "confirming"
	StatusConfirmed        Status = "confirmed"
	StatusSkipped          Status = "skipped"
	StatusError            Status = "error"
)

// Pending reports whether a recording is underway in this status.
func (s Status) Pending() bool {
	return s == StatusSwitchingNetwork || s == StatusSending || s == StatusConfirming
}

// Success reports whether the recording finished without error.
func (s Status) Success() bool {
	return s == StatusConfirmed || s == StatusSkipped
}

// Step is one timeline entry.
type Step struct {
	Status Status    `json:"status"`
	At     time.Time `json:"at"`
}

// Snapshot is the JSON view of a Session.
type Snapshot struct {
	Status    Status `json:"status"`
	LastError string `json:"lastError,omitempty"`
	TxHash    string `json:"txHash,omitempty"`
	Stage     uint32 `json:"stage,omitempty"`
	Moves     uint32 `json:"moves,omitempty"`
	Pending   bool   `json:"pending"`
	Success   bool   `json:"success"`
	Skipped   bool   `json:"skipped"`
	Timeline  []Step `json:"timeline"`
}

// Session is safe for concurrent use.
type Session struct {
	mu        sync.Mutex
	status    Status
	lastError string
	txHash    string
	stage     uint32
	moves     uint32
	timeline  []Step
	inFlight  bool
	now       func() time.Time
}

// NewSession returns an idle session.
func NewSession() *Session {
	return &Session{status: StatusIdle, now: time.Now}
}

// Status returns the current status.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Pending reports whether a recording is in progress.
func (s *Session) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight || s.status.Pending()
}

// Success reports whether the last recording confirmed or was skipped.
func (s *Session) Success() bool {
	return s.Status().Success()
}

// Snapshot copies the session for display.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	tl := make([]Step, len(s.timeline))
	copy(tl, s.timeline)
	return Snapshot{
		Status:    s.status,
		LastError: s.lastError,
		TxHash:    s.txHash,
		Stage:     s.stage,
		Moves:     s.moves,
		Pending:   s.inFlight || s.status.Pending(),
		Success:   s.status.Success(),
		Skipped:   s.status == StatusSkipped,
		Timeline:  tl,
	}
}

// Reset clears the session back to idle. It is refused while a recording
// is in flight.
func (s *Session) Reset() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return false
	}
	s.status = StatusIdle
	s.lastError = ""
	s.txHash = ""
	s.stage, s.moves = 0, 0
	s.timeline = nil
	return true
}

// begin claims the session for one recording. A confirmed or skipped
// session stays claimed until Reset.
func (s *Session) begin(stage, moves uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight || s.status.Pending() {
		return ErrRecordInProgress
	}
	if s.status.Success() {
		return ErrAlreadyRecorded
	}
	s.inFlight = true
	s.lastError = ""
	s.txHash = ""
	s.stage, s.moves = stage, moves
	s.timeline = nil
	return nil
}

func (s *Session) end() {
	s.mu.Lock()
	s.inFlight = false
	s.mu.Unlock()
}

func (s *Session) set(st Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = st
	s.timeline = append(s.timeline, Step{Status: st, At: s.now()})
}

func (s *Session) setTx(hash string) {
	s.mu.Lock()
	s.txHash = hash
	s.mu.Unlock()
}

func (s *Session) fail(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusError
	s.lastError = msg
	s.timeline = append(s.timeline, Step{Status: StatusError, At: s.now()})
}
