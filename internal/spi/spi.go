// internal/spi/spi.go
package spi

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"periph.io/x/conn/v3/physic"
	pspi "periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
)

// Config is fixed at open time.
type Config struct {
	// Device is the periph port name, e.g. "SPI0.0" for /dev/spidev0.0.
	Device      string
	ClockHz     int64
	Mode        uint8 // 0..3
	LSBFirst    bool
	BitsPerWord int
}

// Handle is one opened bus path. Chip selects are driven over GPIO by the
// converter driver, so every converter on the bus shares one Handle.
type Handle struct {
	cfg  Config
	port pspi.PortCloser
	conn pspi.Conn
}

// Open opens and configures the bus. Failure is a hardware mapping fault.
func Open(cfg Config) (*Handle, error) {
	if cfg.Device == "" {
		return nil, errors.New("spi: device required")
	}
	if cfg.ClockHz <= 0 {
		return nil, fmt.Errorf("spi: %s: clock must be > 0", cfg.Device)
	}
	if cfg.Mode > 3 {
		return nil, fmt.Errorf("spi: %s: invalid mode %d", cfg.Device, cfg.Mode)
	}
	if cfg.BitsPerWord == 0 {
		cfg.BitsPerWord = 8
	}

	port, err := spireg.Open(cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("spi: open %s: %w", cfg.Device, err)
	}

	mode := pspi.Mode(cfg.Mode)
	if cfg.LSBFirst {
		mode |= pspi.LSBFirst
	}
	conn, err := port.Connect(physic.Hertz*physic.Frequency(cfg.ClockHz), mode, cfg.BitsPerWord)
	if err != nil {
		return nil, multierr.Combine(fmt.Errorf("spi: connect %s: %w", cfg.Device, err), port.Close())
	}

	return &Handle{cfg: cfg, port: port, conn: conn}, nil
}

// Tx performs one full duplex transfer. r may be nil for write only frames.
func (h *Handle) Tx(w, r []byte) error {
	if err := h.conn.Tx(w, r); err != nil {
		return fmt.Errorf("spi: %s: %w", h.cfg.Device, err)
	}
	return nil
}

func (h *Handle) Config() Config { return h.cfg }

func (h *Handle) Close() error {
	return h.port.Close()
}
