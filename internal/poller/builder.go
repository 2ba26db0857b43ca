// internal/poller/builder.go
package poller

import (
	"fmt"
	"io"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/tamzrod/sam-firmware/internal/adc"
	cfg "github.com/tamzrod/sam-firmware/internal/config"
	"github.com/tamzrod/sam-firmware/internal/gpio"
	"github.com/tamzrod/sam-firmware/internal/rail"
	"github.com/tamzrod/sam-firmware/internal/spi"
)

// BusOpener opens one SPI bus. OpenSPI in production.
type BusOpener func(spi.Config) (adc.Bus, io.Closer, error)

// OpenSPI opens a periph backed bus.
func OpenSPI(c spi.Config) (adc.Bus, io.Closer, error) {
	h, err := spi.Open(c)
	if err != nil {
		return nil, nil, err
	}
	return h, h, nil
}

// Acquisition is everything Build wired.
type Acquisition struct {
	Poller     *Poller
	Converters []*adc.Converter
	Rail       rail.Source
}

// Build opens the buses, binds each configured converter to its pins and
// constructs the rail source. No converter traffic happens here.
// The closer releases buses and the rail transport.
func Build(c *cfg.Config, pinout *cfg.Pinout, ctrl *gpio.Controller, open BusOpener, clk clock.Clock, logger *zap.Logger) (*Acquisition, func() error, error) {
	if open == nil {
		open = OpenSPI
	}

	var closers []io.Closer
	closeAll := func() error {
		var err error
		for i := len(closers) - 1; i >= 0; i-- {
			err = multierr.Append(err, closers[i].Close())
		}
		return err
	}
	fail := func(err error) (*Acquisition, func() error, error) {
		return nil, nil, multierr.Append(err, closeAll())
	}

	// ------------------------------------------------------------
	// BUSES
	// ------------------------------------------------------------

	buses := make(map[string]adc.Bus, len(c.SPI))
	for _, s := range c.SPI {
		var mode uint8
		if s.Mode != nil {
			mode = *s.Mode
		}
		bus, closer, err := open(spi.Config{
			Device:      s.Device,
			ClockHz:     s.ClockHz,
			Mode:        mode,
			LSBFirst:    s.LSBFirst,
			BitsPerWord: s.BitsPerWord,
		})
		if err != nil {
			return fail(fmt.Errorf("poller: spi %s: %w", s.Name, err))
		}
		closers = append(closers, closer)
		buses[s.Name] = bus
	}

	// ------------------------------------------------------------
	// CONVERTERS
	// ------------------------------------------------------------

	converters := make([]*adc.Converter, 0, len(c.Converters))
	for _, cc := range c.Converters {
		kind, err := adc.ParseKind(cc.Kind)
		if err != nil {
			return fail(err)
		}
		bus, ok := buses[cc.Bus]
		if !ok {
			return fail(fmt.Errorf("poller: %v: unknown bus %q", kind, cc.Bus))
		}
		pins, ok := pinout.Converters[kind.String()]
		if !ok {
			return fail(fmt.Errorf("poller: %v: no pins in %s", kind, pinout.Name))
		}

		conv, err := adc.New(kind, bus, pin(ctrl, pins.CS), pin(ctrl, pins.DRDY))
		if err != nil {
			return fail(err)
		}
		converters = append(converters, conv)
	}

	// ------------------------------------------------------------
	// RAIL
	// ------------------------------------------------------------

	src, closer, err := BuildRail(c.Rail)
	if err != nil {
		return fail(err)
	}
	if closer != nil {
		closers = append(closers, closer)
	}

	polled := make([]Converter, len(converters))
	for i, conv := range converters {
		polled[i] = conv
	}
	p, err := New(
		Config{Interval: time.Duration(c.Bench.IntervalMs) * time.Millisecond},
		polled,
		src,
		clk,
		logger,
	)
	if err != nil {
		return fail(err)
	}

	return &Acquisition{Poller: p, Converters: converters, Rail: src}, closeAll, nil
}

// BuildRail constructs the configured rail source. A nil source means the
// board has no rail channels. The closer is nil when nothing needs closing.
func BuildRail(rc cfg.RailConfig) (rail.Source, io.Closer, error) {
	channels := make([]rail.Channel, 0, len(rc.Channels))
	for i, ch := range rc.Channels {
		typ, err := cfg.RailChannelType(ch.Type)
		if err != nil {
			return nil, nil, fmt.Errorf("poller: rail channel %d: %w", i, err)
		}
		channels = append(channels, rail.Channel{ID: ch.ID, Type: typ, Scale: ch.Scale})
	}

	switch rc.Source {
	case cfg.RailNone:
		return nil, nil, nil

	case cfg.RailModbus:
		m, err := rail.NewModbus(rail.ModbusConfig{
			Endpoint: rc.Modbus.Endpoint,
			UnitID:   rc.Modbus.UnitID,
			Timeout:  time.Duration(rc.Modbus.TimeoutMs) * time.Millisecond,
			Address:  rc.Modbus.Address,
			Channels: channels,
		})
		if err != nil {
			return nil, nil, err
		}
		return m, m, nil

	default:
		nodes := make([]rail.Node, len(channels))
		for i, ch := range channels {
			nodes[i] = rail.Node{Path: rc.Channels[i].Path, Channel: ch}
		}
		if len(nodes) == 0 {
			nodes = rail.DefaultNodes()
		}
		s, err := rail.NewSysfs(nodes)
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	}
}

func pin(ctrl *gpio.Controller, ref *cfg.PinRef) *gpio.Pin {
	if ref == nil {
		return nil
	}
	p := ctrl.Pin(ref.Bank, ref.Bit)
	return &p
}
