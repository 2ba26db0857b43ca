// internal/status/snapshot.go
package status

import (
	"sync"
	"time"
)

// Snapshot represents the board health at one instant.
// It contains no logic.
type Snapshot struct {
	State          string
	Health         uint16
	LastErrorCode  uint16
	SecondsInError uint16
	Aborts         uint64
	Rounds         uint64
}

// Tracker accumulates health across state transitions.
// Safe for concurrent use.
type Tracker struct {
	mu sync.Mutex

	state   string
	health  uint16
	errCode uint16
	since   time.Time // first error of the current streak; zero when healthy
	aborts  uint64
	rounds  uint64
}

func NewTracker() *Tracker {
	return &Tracker{health: HealthUnknown}
}

// Enter records a state transition. errCode is ignored unless health is
// HealthError or HealthStale. Returns true when state or health changed.
func (t *Tracker) Enter(state string, health, errCode uint16, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	changed := state != t.state || health != t.health
	t.state, t.health = state, health

	switch health {
	case HealthError, HealthStale:
		t.errCode = errCode
		if t.since.IsZero() {
			t.since = now
		}
	case HealthOK:
		t.errCode = ErrorNone
		t.since = time.Time{}
	}
	return changed
}

// Abort counts one heartbeat abort.
func (t *Tracker) Abort() {
	t.mu.Lock()
	t.aborts++
	t.mu.Unlock()
}

// Round counts one completed acquisition round.
func (t *Tracker) Round() {
	t.mu.Lock()
	t.rounds++
	t.mu.Unlock()
}

// Snapshot returns the current health as seen at now.
func (t *Tracker) Snapshot(now time.Time) Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Snapshot{
		State:         t.state,
		Health:        t.health,
		LastErrorCode: t.errCode,
		Aborts:        t.aborts,
		Rounds:        t.rounds,
	}
	if !t.since.IsZero() {
		secs := now.Sub(t.since) / time.Second
		if secs > 0xFFFF {
			secs = 0xFFFF
		}
		if secs > 0 {
			s.SecondsInError = uint16(secs)
		}
	}
	return s
}
