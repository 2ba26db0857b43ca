// internal/config/validate.go
package config

import (
	"errors"
	"fmt"

	"github.com/samber/lo"

	"github.com/tamzrod/sam-firmware/internal/adc"
	"github.com/tamzrod/sam-firmware/internal/gpio"
	"github.com/tamzrod/sam-firmware/internal/rail"
	"github.com/tamzrod/sam-firmware/internal/telemetry"
)

// Heartbeat timeout bounds.
const (
	MinHeartbeatTimeoutMs = 50
	MaxHeartbeatTimeoutMs = 2000
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil config")
	}

	pinout, err := ResolvePinout(cfg)
	if err != nil {
		return err
	}
	if err := ValidatePinout(pinout); err != nil {
		return err
	}

	// ------------------------------------------------------------
	// NETWORK
	// ------------------------------------------------------------

	if cfg.FlightComputer.Host == "" {
		return errors.New("config: flight_computer.host required")
	}
	if err := port("flight_computer.data_port", cfg.FlightComputer.DataPort); err != nil {
		return err
	}
	if err := port("network.command_port", cfg.Network.CommandPort); err != nil {
		return err
	}
	if err := port("network.data_port", cfg.Network.DataPort); err != nil {
		return err
	}
	if cfg.Network.DataPort != 0 && cfg.Network.DataPort == cfg.Network.CommandPort {
		return fmt.Errorf("config: network.data_port and command_port are both %d", cfg.Network.DataPort)
	}

	if t := cfg.Heartbeat.TimeoutMs; t != 0 && (t < MinHeartbeatTimeoutMs || t > MaxHeartbeatTimeoutMs) {
		return fmt.Errorf("config: heartbeat.timeout_ms %d outside %d..%d", t, MinHeartbeatTimeoutMs, MaxHeartbeatTimeoutMs)
	}
	for name, v := range map[string]int{
		"heartbeat.poll_ms":        cfg.Heartbeat.PollMs,
		"handshake.attempts":       cfg.Handshake.Attempts,
		"handshake.timeout_ms":     cfg.Handshake.TimeoutMs,
		"handshake.retry_delay_ms": cfg.Handshake.RetryDelayMs,
		"loop.delay_ms":            cfg.Loop.DelayMs,
		"bench.interval_ms":        cfg.Bench.IntervalMs,
	} {
		if v < 0 {
			return fmt.Errorf("config: %s must be >= 0", name)
		}
	}

	// ------------------------------------------------------------
	// BUSES AND CONVERTERS
	// ------------------------------------------------------------

	if dups := lo.FindDuplicatesBy(cfg.SPI, func(s SPIConfig) string { return s.Name }); len(dups) > 0 {
		return fmt.Errorf("config: duplicate spi bus %q", dups[0].Name)
	}
	for i, s := range cfg.SPI {
		if s.Name == "" || s.Device == "" {
			return fmt.Errorf("config: spi[%d]: name and device required", i)
		}
		if s.Mode != nil && *s.Mode > 3 {
			return fmt.Errorf("config: spi %q: mode %d outside 0..3", s.Name, *s.Mode)
		}
		if s.ClockHz < 0 {
			return fmt.Errorf("config: spi %q: clock_hz must be > 0", s.Name)
		}
	}

	if len(cfg.Converters) == 0 && cfg.Rail.Source == RailNone {
		return errors.New("config: nothing to acquire: no converters and rail.source is none")
	}

	kinds := make([]adc.Kind, 0, len(cfg.Converters))
	for i, c := range cfg.Converters {
		k, err := adc.ParseKind(c.Kind)
		if err != nil {
			return fmt.Errorf("config: converters[%d]: %w", i, err)
		}
		if _, ok := pinout.Converters[k.String()]; !ok {
			return fmt.Errorf("config: converters[%d]: pinout %s has no pins for %v", i, pinout.Name, k)
		}
		if c.Bus != "" && len(cfg.SPI) > 0 && !lo.ContainsBy(cfg.SPI, func(s SPIConfig) bool { return s.Name == c.Bus }) {
			return fmt.Errorf("config: converters[%d]: unknown spi bus %q", i, c.Bus)
		}
		kinds = append(kinds, k)
	}
	if dups := lo.FindDuplicates(kinds); len(dups) > 0 {
		return fmt.Errorf("config: converter kind %v configured twice", dups[0])
	}

	// ------------------------------------------------------------
	// RAIL
	// ------------------------------------------------------------

	return validateRail(&cfg.Rail)
}

func validateRail(r *RailConfig) error {
	switch r.Source {
	case "", RailSysfs, RailModbus, RailNone:
	default:
		return fmt.Errorf("config: rail.source %q: want sysfs, modbus or none", r.Source)
	}
	if len(r.Channels) > rail.NumChannels {
		return fmt.Errorf("config: rail: %d channels, at most %d", len(r.Channels), rail.NumChannels)
	}
	for i, ch := range r.Channels {
		if ch.Type != "" {
			if _, err := RailChannelType(ch.Type); err != nil {
				return fmt.Errorf("config: rail.channels[%d]: %w", i, err)
			}
		}
		if (r.Source == "" || r.Source == RailSysfs) && ch.Path == "" {
			return fmt.Errorf("config: rail.channels[%d]: path required for sysfs", i)
		}
	}
	if r.Source == RailModbus && r.Modbus.Endpoint == "" {
		return errors.New("config: rail.modbus.endpoint required")
	}
	return nil
}

// ValidatePinout checks ranges, levels and pin collisions.
func ValidatePinout(p *Pinout) error {
	type use struct {
		pin   PinRef
		owner string
	}
	var uses []use

	for name, c := range p.Converters {
		if _, err := adc.ParseKind(name); err != nil {
			return fmt.Errorf("config: pinout %s: %w", p.Name, err)
		}
		if c.CS != nil {
			uses = append(uses, use{*c.CS, name + " cs"})
		}
		if c.DRDY != nil {
			uses = append(uses, use{*c.DRDY, name + " drdy"})
		}
	}
	for _, o := range p.Outputs {
		if _, err := ParseLevel(o.Active); err != nil {
			return fmt.Errorf("config: pinout %s: output %s: %w", p.Name, o.Name, err)
		}
		if _, err := ParseLevel(o.Safe); err != nil {
			return fmt.Errorf("config: pinout %s: output %s: %w", p.Name, o.Name, err)
		}
		uses = append(uses, use{o.PinRef, "output " + o.Name})
	}
	for _, l := range p.Lines {
		if _, err := ParseLevel(l.Safe); err != nil {
			return fmt.Errorf("config: pinout %s: line %s: %w", p.Name, l.Name, err)
		}
		uses = append(uses, use{l.PinRef, "line " + l.Name})
	}

	for _, u := range uses {
		if u.pin.Bank < 0 || u.pin.Bank >= gpio.NumBanks || u.pin.Bit < 0 || u.pin.Bit > 31 {
			return fmt.Errorf("config: pinout %s: %s: %v out of range", p.Name, u.owner, u.pin)
		}
	}

	if dups := lo.FindDuplicatesBy(uses, func(u use) PinRef { return u.pin }); len(dups) > 0 {
		owners := lo.FilterMap(uses, func(u use, _ int) (string, bool) { return u.owner, u.pin == dups[0].pin })
		return fmt.Errorf("config: pinout %s: pin collision on %v: %v", p.Name, dups[0].pin, owners)
	}
	if dups := lo.FindDuplicatesBy(p.Outputs, func(o OutputPin) uint32 { return o.Channel }); len(dups) > 0 {
		return fmt.Errorf("config: pinout %s: output channel %d used twice", p.Name, dups[0].Channel)
	}
	return nil
}

// RailChannelType maps a rail channel type name to its telemetry tag.
func RailChannelType(s string) (telemetry.ChannelType, error) {
	switch s {
	case telemetry.ChannelRailVoltage.String():
		return telemetry.ChannelRailVoltage, nil
	case telemetry.ChannelRailCurrent.String():
		return telemetry.ChannelRailCurrent, nil
	default:
		return telemetry.ChannelUnknown, fmt.Errorf("invalid rail channel type %q", s)
	}
}

// port checks v as a UDP port. Zero selects the default.
func port(name string, v int) error {
	if v < 0 || v > 65535 {
		return fmt.Errorf("config: %s %d outside 1..65535", name, v)
	}
	return nil
}
