// internal/board/hardware.go
package board

import (
	"fmt"
	"sort"

	"github.com/benbjohnson/clock"
	"github.com/samber/lo"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/tamzrod/sam-firmware/internal/actuate"
	"github.com/tamzrod/sam-firmware/internal/config"
	"github.com/tamzrod/sam-firmware/internal/gpio"
	"github.com/tamzrod/sam-firmware/internal/poller"
)

// Hardware is the context built once at Init and threaded through every
// state. Nothing reaches it through a package global.
type Hardware struct {
	Controller  *gpio.Controller
	Pinout      *config.Pinout
	Acquisition *poller.Acquisition
	Outputs     *actuate.Outputs

	closeAcq func() error
}

// HardwareOpener builds the Hardware for a normalized config.
// Any error is a hardware mapping fault.
type HardwareOpener func(cfg *config.Config, clk clock.Clock, logger *zap.Logger) (*Hardware, error)

// OpenHardware maps the GPIO banks and opens the SPI buses.
func OpenHardware(cfg *config.Config, clk clock.Clock, logger *zap.Logger) (*Hardware, error) {
	ctrl, err := gpio.OpenController()
	if err != nil {
		return nil, err
	}
	hw, err := NewHardware(cfg, ctrl, poller.OpenSPI, clk, logger)
	if err != nil {
		return nil, multierr.Append(err, ctrl.Close())
	}
	return hw, nil
}

// NewHardware wires a Hardware over an existing controller. Every output is
// driven to its safe level before any converter is bound.
func NewHardware(cfg *config.Config, ctrl *gpio.Controller, open poller.BusOpener, clk clock.Clock, logger *zap.Logger) (*Hardware, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	pinout, err := config.ResolvePinout(cfg)
	if err != nil {
		return nil, err
	}
	outputs, err := buildOutputs(pinout, ctrl, logger)
	if err != nil {
		return nil, err
	}
	outputs.Init()

	acq, closeAcq, err := poller.Build(cfg, pinout, ctrl, open, clk, logger.Named("poller"))
	if err != nil {
		return nil, err
	}

	return &Hardware{
		Controller:  ctrl,
		Pinout:      pinout,
		Acquisition: acq,
		Outputs:     outputs,
		closeAcq:    closeAcq,
	}, nil
}

// Close releases buses, the rail transport and the bank mappings.
func (h *Hardware) Close() error {
	var err error
	if h.closeAcq != nil {
		err = h.closeAcq()
	}
	return multierr.Append(err, h.Controller.Close())
}

// buildOutputs turns the pinout into the actuation surface. Every converter
// chip select is added as a line idling high.
func buildOutputs(p *config.Pinout, ctrl *gpio.Controller, logger *zap.Logger) (*actuate.Outputs, error) {
	outs := make([]actuate.Output, 0, len(p.Outputs))
	for _, o := range p.Outputs {
		active, err := config.ParseLevel(o.Active)
		if err != nil {
			return nil, err
		}
		safe, err := config.ParseLevel(o.Safe)
		if err != nil {
			return nil, err
		}
		outs = append(outs, actuate.Output{
			Channel: o.Channel,
			Name:    o.Name,
			Pin:     ctrl.Pin(o.Bank, o.Bit),
			Active:  active,
			Safe:    safe,
		})
	}

	lines := make([]actuate.Line, 0, len(p.Lines)+len(p.Converters))
	for _, l := range p.Lines {
		safe, err := config.ParseLevel(l.Safe)
		if err != nil {
			return nil, err
		}
		lines = append(lines, actuate.Line{Name: l.Name, Pin: ctrl.Pin(l.Bank, l.Bit), Safe: safe})
	}
	for _, name := range sortedKeys(p.Converters) {
		if cs := p.Converters[name].CS; cs != nil {
			lines = append(lines, actuate.Line{
				Name: fmt.Sprintf("%s_cs", name),
				Pin:  ctrl.Pin(cs.Bank, cs.Bit),
				Safe: gpio.High,
			})
		}
	}

	return actuate.New(outs, lines, logger.Named("actuate"))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}
