// Package scanner turns raw barcode-reader input into queued scan jobs.
// Readers present as keyboards: a burst of characters followed by a
// terminator. The Machine owns the input buffer and its state transitions;
// the Service persists validated codes onto the scan queue.
package scanner

import (
	"strings"
	"sync"
	"time"

	"github.com/robinjoseph08/golib/logger"
	"github.com/shelfscan/shelfscan/pkg/isbn"
)

// State is the scan buffer's position in its lifecycle.
type State string

const (
	StateIdle       State = "idle"
	StateBuffering  State = "buffering"
	StateValidating State = "validating"
	StateDispatched State = "dispatched"
)

// ScanEvent is emitted for every validated code.
type ScanEvent struct {
	Code       string
	Identifier *isbn.Identifier
	ScannedAt  time.Time
}

// Machine accumulates reader input until a terminator (\r or \n) or the idle
// timeout, then validates the buffered code and hands it to the dispatch
// callback. Invalid codes are logged and dropped. All methods are safe for
// concurrent use; there is exactly one buffer per Machine.
type Machine struct {
	mu          sync.Mutex
	state       State
	buffer      strings.Builder
	idleTimeout time.Duration
	idleTimer   *time.Timer
	dispatch    func(ScanEvent)
	log         logger.Logger
}

func NewMachine(idleTimeout time.Duration, dispatch func(ScanEvent)) *Machine {
	return &Machine{
		state:       StateIdle,
		idleTimeout: idleTimeout,
		dispatch:    dispatch,
		log:         logger.New(),
	}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Input feeds one character of reader output into the buffer. A terminator
// finishes the scan; any other character starts or extends it.
func (m *Machine) Input(ch rune) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ch == '\r' || ch == '\n' {
		m.finishLocked()
		return
	}

	if m.state == StateIdle {
		m.state = StateBuffering
	}
	m.buffer.WriteRune(ch)
	m.resetIdleTimerLocked()
}

// InputString feeds a whole chunk of reader output through the buffer.
func (m *Machine) InputString(s string) {
	for _, ch := range s {
		m.Input(ch)
	}
}

// Cancel drops the buffered input. It only applies while buffering; once
// validation starts the scan runs to its outcome.
func (m *Machine) Cancel() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateBuffering {
		return false
	}
	m.resetLocked()
	return true
}

// finishLocked runs the Buffering → Validating → Dispatched (or back to
// Idle) tail of the lifecycle.
func (m *Machine) finishLocked() {
	code := m.buffer.String()
	if code == "" {
		m.resetLocked()
		return
	}

	m.state = StateValidating
	id, err := isbn.Resolve(code)
	if err != nil {
		// A failed scan never reaches the pipeline.
		m.log.Warn("dropping invalid scan", logger.Data{"code": code})
		m.resetLocked()
		return
	}

	m.state = StateDispatched
	event := ScanEvent{Code: code, Identifier: id, ScannedAt: time.Now()}
	m.resetLocked()

	if m.dispatch != nil {
		m.dispatch(event)
	}
}

func (m *Machine) resetLocked() {
	m.state = StateIdle
	m.buffer.Reset()
	if m.idleTimer != nil {
		m.idleTimer.Stop()
		m.idleTimer = nil
	}
}

// resetIdleTimerLocked arms the idle timeout. A reader burst arrives in
// milliseconds, so a stretch of silence means the scan is over.
func (m *Machine) resetIdleTimerLocked() {
	if m.idleTimeout <= 0 {
		return
	}
	if m.idleTimer != nil {
		m.idleTimer.Stop()
	}
	m.idleTimer = time.AfterFunc(m.idleTimeout, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.state == StateBuffering {
			m.finishLocked()
		}
	})
}
