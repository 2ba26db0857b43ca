// internal/rail/modbus.go
package rail

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/goburrow/modbus"
)

// registerReader is the part of modbus.Client the source needs.
type registerReader interface {
	ReadInputRegisters(address, quantity uint16) ([]byte, error)
}

// ModbusConfig is a ground support power monitor exposing the rails as
// consecutive input registers.
type ModbusConfig struct {
	Endpoint string
	UnitID   uint8
	Timeout  time.Duration
	Address  uint16 // first input register
	Channels []Channel
}

// Modbus reads rail channels from a Modbus TCP monitor.
// The connection is dialled on first use and dropped on any error;
// a later Read dials again.
type Modbus struct {
	cfg  ModbusConfig
	dial func() (registerReader, io.Closer, error)

	client registerReader
	closer io.Closer
}

func NewModbus(cfg ModbusConfig) (*Modbus, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("rail: modbus endpoint required")
	}
	if cfg.Timeout <= 0 {
		return nil, errors.New("rail: modbus timeout must be > 0")
	}
	if len(cfg.Channels) == 0 {
		cfg.Channels = DefaultChannels()
	}

	m := &Modbus{cfg: cfg}
	m.dial = func() (registerReader, io.Closer, error) {
		h := modbus.NewTCPClientHandler(cfg.Endpoint)
		h.Timeout = cfg.Timeout
		h.SlaveId = cfg.UnitID
		if err := h.Connect(); err != nil {
			return nil, nil, err
		}
		return modbus.NewClient(h), h, nil
	}
	return m, nil
}

func (m *Modbus) Channels() int { return len(m.cfg.Channels) }

func (m *Modbus) Read(index int) (Reading, error) {
	if index < 0 || index >= len(m.cfg.Channels) {
		return Reading{Value: Sentinel}, fmt.Errorf("rail: index %d out of range", index)
	}
	ch := m.cfg.Channels[index]

	if m.client == nil {
		c, closer, err := m.dial()
		if err != nil {
			return sentinel(ch), fmt.Errorf("rail: dial %s: %w", m.cfg.Endpoint, err)
		}
		m.client, m.closer = c, closer
	}

	addr := m.cfg.Address + uint16(index)
	b, err := m.client.ReadInputRegisters(addr, 1)
	if err == nil && len(b) < 2 {
		err = fmt.Errorf("short payload (%d bytes)", len(b))
	}
	if err != nil {
		m.drop()
		return sentinel(ch), fmt.Errorf("rail: %s register %d: %w", m.cfg.Endpoint, addr, err)
	}

	raw := uint16(b[0])<<8 | uint16(b[1])
	return Reading{Channel: ch.ID, Type: ch.Type, Value: float64(raw) * ch.Scale}, nil
}

func (m *Modbus) drop() {
	if m.closer != nil {
		_ = m.closer.Close()
	}
	m.client, m.closer = nil, nil
}

// Close releases the connection, if any.
func (m *Modbus) Close() error {
	var err error
	if m.closer != nil {
		err = m.closer.Close()
	}
	m.client, m.closer = nil, nil
	return err
}
