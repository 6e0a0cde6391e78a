package form

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

// ErrBusy is returned by Submit while a submission of the same form is in flight.
var ErrBusy = errors.New("form: submission already in progress")

// Status is the lifecycle stage of a form.
type Status int

const (
	Idle Status = iota
	Submitting
	Success
	Error
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	case Success:
		return "success"
	case Error:
		return "error"
	}
	return "unknown"
}

// State is a snapshot of a form as a view renders it. At most one of Err and Success is
// non-empty.
type State struct {
	Status  Status
	Success string
	Err     string
	// Saved is the location of the last downloaded artifact, harvest form only.
	Saved string
}

// Disabled reports whether inputs and the submit control are disabled.
func (s State) Disabled() bool {
	return s.Status == Submitting
}

// ValidationError blocks a submission before any request is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// machine holds the state shared by both forms. Every message change bumps seq, which
// keys the auto-clear timer to the message it was started for.
type machine struct {
	mu    sync.Mutex
	state State
	seq   uint64
	timer *time.Timer

	subs map[chan State]struct{}
}

func newMachine() *machine {
	return &machine{subs: make(map[chan State]struct{})}
}

// set replaces the state and cancels any pending auto-clear. Caller must hold mu.
func (m *machine) set(s State) {
	m.seq++
	m.stopTimer()
	m.state = s
	m.publish()
}

// clearAfter schedules the current success message to be cleared after d, unless
// another state change happens first. Caller must hold mu.
func (m *machine) clearAfter(d time.Duration) {
	seq := m.seq
	m.timer = time.AfterFunc(d, func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		if m.seq != seq {
			return
		}
		m.timer = nil
		m.seq++
		m.state.Success = ""
		m.state.Status = Idle
		m.publish()
	})
}

func (m *machine) stopTimer() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *machine) snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// publish delivers the current state to subscribers. A subscriber that is not keeping
// up misses intermediate states; the latest one is always attempted. Caller must hold mu.
func (m *machine) publish() {
	for ch := range m.subs {
		select {
		case ch <- m.state:
		default:
			// Drop the stale snapshot and retry once with the latest.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- m.state:
			default:
			}
		}
	}
}

func (m *machine) subscribe() (<-chan State, func()) {
	ch := make(chan State, 8)

	m.mu.Lock()
	m.subs[ch] = struct{}{}
	ch <- m.state
	m.mu.Unlock()

	return ch, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if _, ok := m.subs[ch]; ok {
			delete(m.subs, ch)
			close(ch)
		}
	}
}

// close cancels the pending timer and ends every subscription.
func (m *machine) close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	m.stopTimer()
	for ch := range m.subs {
		delete(m.subs, ch)
		close(ch)
	}
}
