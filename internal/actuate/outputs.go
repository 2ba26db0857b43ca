// internal/actuate/outputs.go
package actuate

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/tamzrod/sam-firmware/internal/gpio"
	"github.com/tamzrod/sam-firmware/internal/telemetry"
)

// Output is a commandable actuation line.
type Output struct {
	Channel uint32
	Name    string
	Pin     gpio.Pin
	Active  gpio.Level // level when powered
	Safe    gpio.Level // de-energized level
}

// Line is a fixed output that only ever sits at its safe level: chip
// selects, valve select lines, enables the flight computer cannot command.
type Line struct {
	Name string
	Pin  gpio.Pin
	Safe gpio.Level
}

// Outputs is the command execution surface. Safe may be called from any
// goroutine; every write goes through the atomic register file.
type Outputs struct {
	byChannel map[uint32]Output
	outputs   []Output
	lines     []Line
	logger    *zap.Logger
}

func New(outputs []Output, lines []Line, logger *zap.Logger) (*Outputs, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Outputs{
		byChannel: make(map[uint32]Output, len(outputs)),
		outputs:   outputs,
		lines:     lines,
		logger:    logger,
	}
	for _, out := range outputs {
		if _, dup := o.byChannel[out.Channel]; dup {
			return nil, fmt.Errorf("actuate: duplicate channel %d", out.Channel)
		}
		o.byChannel[out.Channel] = out
	}
	return o, nil
}

// Init sets every pin to output mode and drives the safe pattern.
func (o *Outputs) Init() {
	for _, out := range o.outputs {
		out.Pin.SetMode(gpio.Output)
	}
	for _, l := range o.lines {
		l.Pin.SetMode(gpio.Output)
	}
	o.Safe()
}

// Safe drives every output and line to its safe level. Idempotent.
func (o *Outputs) Safe() {
	for _, out := range o.outputs {
		out.Pin.Write(out.Safe)
	}
	for _, l := range o.lines {
		l.Pin.Write(l.Safe)
	}
}

// Execute applies one command from the flight computer.
func (o *Outputs) Execute(cmd telemetry.Command) error {
	if cmd.Action != telemetry.ActionActuateValve {
		return fmt.Errorf("actuate: unsupported action %d", cmd.Action)
	}
	out, ok := o.byChannel[cmd.Channel]
	if !ok {
		return fmt.Errorf("actuate: unrecognized channel %d", cmd.Channel)
	}

	level := out.Safe
	if cmd.Powered {
		level = out.Active
	}
	out.Pin.Write(level)

	o.logger.Info("actuated",
		zap.String("output", out.Name),
		zap.Uint32("channel", out.Channel),
		zap.Bool("powered", cmd.Powered),
		zap.Stringer("level", level),
	)
	return nil
}

// Channels returns the commandable channel numbers in table order.
func (o *Outputs) Channels() []uint32 {
	out := make([]uint32, len(o.outputs))
	for i, x := range o.outputs {
		out[i] = x.Channel
	}
	return out
}
