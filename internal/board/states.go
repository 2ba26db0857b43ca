// internal/board/states.go
package board

import "github.com/tamzrod/sam-firmware/internal/heartbeat"

// State is one phase of the board. Each variant carries exactly the
// resources its phase needs; they move to the next state on transition.
type State interface {
	Name() string
}

// Init maps hardware and runs every converter's register sequence.
type Init struct{}

// Connect resolves the flight computer and performs the handshake.
type Connect struct {
	hw      *Hardware
	aborted bool // entered from Abort
}

// InitAdcs re-arms conversions for a fresh, supervised session.
type InitAdcs struct {
	hw   *Hardware
	sess *session
	sup  *heartbeat.Supervisor
}

// PollAdcs streams rounds while heartbeats keep arriving.
type PollAdcs struct {
	hw   *Hardware
	sess *session
	sup  *heartbeat.Supervisor
}

// Abort de-energizes every output and stops the converters.
type Abort struct {
	hw   *Hardware
	sess *session
}

func (Init) Name() string     { return "init" }
func (Connect) Name() string  { return "connect" }
func (InitAdcs) Name() string { return "init_adcs" }
func (PollAdcs) Name() string { return "poll_adcs" }
func (Abort) Name() string    { return "abort" }
