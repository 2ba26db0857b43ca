// internal/config/normalize.go
package config

import (
	"fmt"
	"os"

	"github.com/tamzrod/sam-firmware/internal/rail"
)

// Defaults.
const (
	DefaultFlightComputerPort = 4573
	DefaultCommandPort        = 8378
	DefaultHeartbeatTimeoutMs = 250
	DefaultHeartbeatPollMs    = 10
	DefaultHandshakeAttempts  = 5
	DefaultHandshakeTimeoutMs = 500
	DefaultRetryDelayMs       = 1000
	DefaultLoopDelayMs        = 10
	DefaultBenchIntervalMs    = 1000
	DefaultSPIClockHz         = 2_000_000
	DefaultSPIMode            = 1
)

// hostname is the board identity provider.
var hostname = os.Hostname

// Normalize applies post-validation defaults.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) error {
	if cfg == nil {
		return nil
	}

	if cfg.Board.ID == "" {
		h, err := hostname()
		if err != nil {
			return fmt.Errorf("config: board id: %w", err)
		}
		cfg.Board.ID = h
	}

	// ------------------------------------------------------------
	// NETWORK
	// ------------------------------------------------------------

	setDefault(&cfg.FlightComputer.DataPort, DefaultFlightComputerPort)
	setDefault(&cfg.Network.CommandPort, DefaultCommandPort)
	setDefault(&cfg.Heartbeat.TimeoutMs, DefaultHeartbeatTimeoutMs)
	setDefault(&cfg.Heartbeat.PollMs, DefaultHeartbeatPollMs)
	setDefault(&cfg.Handshake.Attempts, DefaultHandshakeAttempts)
	setDefault(&cfg.Handshake.TimeoutMs, DefaultHandshakeTimeoutMs)
	setDefault(&cfg.Handshake.RetryDelayMs, DefaultRetryDelayMs)
	setDefault(&cfg.Loop.DelayMs, DefaultLoopDelayMs)
	setDefault(&cfg.Bench.IntervalMs, DefaultBenchIntervalMs)

	// ------------------------------------------------------------
	// BUSES AND CONVERTERS
	// ------------------------------------------------------------

	if len(cfg.SPI) == 0 {
		cfg.SPI = []SPIConfig{{Name: "spi0", Device: "SPI0.0"}}
	}
	for i := range cfg.SPI {
		s := &cfg.SPI[i]
		if s.ClockHz == 0 {
			s.ClockHz = DefaultSPIClockHz
		}
		if s.Mode == nil {
			m := uint8(DefaultSPIMode)
			s.Mode = &m
		}
		if s.BitsPerWord == 0 {
			s.BitsPerWord = 8
		}
	}
	for i := range cfg.Converters {
		if cfg.Converters[i].Bus == "" {
			cfg.Converters[i].Bus = cfg.SPI[0].Name
		}
	}

	// ------------------------------------------------------------
	// RAIL
	// ------------------------------------------------------------

	if cfg.Rail.Source == "" {
		cfg.Rail.Source = RailSysfs
	}
	if cfg.Rail.Source != RailNone && len(cfg.Rail.Channels) == 0 {
		for i, ch := range rail.DefaultChannels() {
			c := RailChannelConfig{ID: ch.ID, Type: ch.Type.String(), Scale: ch.Scale}
			if cfg.Rail.Source == RailSysfs {
				c.Path = fmt.Sprintf(rail.DefaultNodeFormat, i)
			}
			cfg.Rail.Channels = append(cfg.Rail.Channels, c)
		}
	}
	for i := range cfg.Rail.Channels {
		c := &cfg.Rail.Channels[i]
		if c.ID == 0 {
			c.ID = uint32(i + 1)
		}
		if c.Type == "" {
			c.Type = "rail_voltage"
		}
		if c.Scale == 0 {
			c.Scale = 1
		}
	}
	setDefault(&cfg.Rail.Modbus.TimeoutMs, 1000)

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	return nil
}

func setDefault(v *int, def int) {
	if *v == 0 {
		*v = def
	}
}
