// internal/adc/driver.go
package adc

import (
	"errors"
	"fmt"
	"time"

	"github.com/tamzrod/sam-firmware/internal/gpio"
)

var ErrNotResponding = errors.New("adc: converter not responding")

// resetSettle covers the 4096 clock cycles the chip needs after RESET.
const resetSettle = time.Millisecond

// Bus abstracts the full duplex transfer the driver needs.
type Bus interface {
	Tx(w, r []byte) error
}

// Converter drives one ADS114S06 wired to one sensor kind.
// It is used from the control loop only.
type Converter struct {
	kind Kind
	bus  Bus
	cs   *gpio.Pin // active low; nil when tied low on the board
	drdy *gpio.Pin // active low; nil when not routed

	ambient float64 // last ambient junction temperature, C
}

// New binds a converter. No bus traffic happens here.
func New(kind Kind, bus Bus, cs, drdy *gpio.Pin) (*Converter, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("adc: invalid kind %v", kind)
	}
	if bus == nil {
		return nil, fmt.Errorf("adc: %v: bus required", kind)
	}
	if cs != nil {
		cs.SetMode(gpio.Output)
		cs.Write(gpio.High)
	}
	if drdy != nil {
		drdy.SetMode(gpio.Input)
	}
	return &Converter{kind: kind, bus: bus, cs: cs, drdy: drdy}, nil
}

func (c *Converter) Kind() Kind { return c.kind }

// Ambient returns the cached ambient junction temperature in C.
func (c *Converter) Ambient() float64 { return c.ambient }

func (c *Converter) selectChip() {
	if c.cs != nil {
		c.cs.Write(gpio.Low)
	}
}

func (c *Converter) deselect() {
	if c.cs != nil {
		c.cs.Write(gpio.High)
	}
}

// ------------------------------------------------------------
// lifecycle
// ------------------------------------------------------------

// Init resets the chip, writes the kind's register sequence and reads the
// map back. An all zero read back returns ErrNotResponding; the caller
// decides whether that matters.
func (c *Converter) Init() error {
	c.selectChip()
	defer c.deselect()

	if err := c.command(cmdReset); err != nil {
		return err
	}
	time.Sleep(resetSettle)

	if err := c.writeAll(c.kind.info().init); err != nil {
		return err
	}
	_, err := c.readRegisters()
	return err
}

// Start selects channel 0 and starts continuous conversions.
func (c *Converter) Start() error {
	c.selectChip()
	defer c.deselect()

	if err := c.writeAll(c.kind.muxWrites(0)); err != nil {
		return err
	}
	return c.command(cmdStart)
}

// Stop halts conversions and leaves chip select deasserted.
func (c *Converter) Stop() error {
	c.selectChip()
	defer c.deselect()
	return c.command(cmdStop)
}

// ReadRegisters dumps the whole register map.
func (c *Converter) ReadRegisters() ([]byte, error) {
	c.selectChip()
	defer c.deselect()
	return c.readRegisters()
}

// ------------------------------------------------------------
// conversion
// ------------------------------------------------------------

// Read takes the sample for iteration and programs the mux for the next one.
// Data ready is polled without a timeout.
func (c *Converter) Read(iteration uint64) (float64, error) {
	c.selectChip()
	defer c.deselect()

	if c.drdy != nil && c.kind.HasDataReady() {
		for c.drdy.Read() != gpio.Low {
		}
	}

	raw, err := c.rdata()
	if err != nil {
		return 0, err
	}

	ch := c.kind.Channel(iteration)
	var v float64
	switch {
	case c.kind.IsThermocouple() && ch == 0:
		c.ambient = ambientFromRaw(raw)
		v = c.ambient
		// back to the external inputs at gain 32
		if err := c.writeAll([]regWrite{{regSys, sysNormal}, {regPGA, pgaGain32}}); err != nil {
			return v, err
		}
	case c.kind.IsThermocouple():
		v = CompensateTypeK(c.ambient, thermocoupleMillivolts(raw)) + 273.15
	default:
		v, _ = Convert(c.kind, raw)
	}

	next := c.kind.Channel(iteration + 1)
	if err := c.writeAll(c.kind.muxWrites(next)); err != nil {
		return v, err
	}
	return v, nil
}

// ------------------------------------------------------------
// bus frames
// ------------------------------------------------------------

func (c *Converter) command(op byte) error {
	if err := c.bus.Tx([]byte{op}, nil); err != nil {
		return fmt.Errorf("adc: %v: command %#02x: %w", c.kind, op, err)
	}
	return nil
}

func (c *Converter) rdata() (int16, error) {
	tx := []byte{cmdRData, 0, 0}
	rx := make([]byte, len(tx))
	if err := c.bus.Tx(tx, rx); err != nil {
		return 0, fmt.Errorf("adc: %v: rdata: %w", c.kind, err)
	}
	return int16(uint16(rx[1])<<8 | uint16(rx[2])), nil
}

func (c *Converter) writeReg(reg, data byte) error {
	tx := []byte{cmdWReg | reg, 0x00, data}
	rx := make([]byte, len(tx))
	if err := c.bus.Tx(tx, rx); err != nil {
		return fmt.Errorf("adc: %v: write reg %#02x: %w", c.kind, reg, err)
	}
	return nil
}

func (c *Converter) writeAll(ws []regWrite) error {
	for _, w := range ws {
		if err := c.writeReg(w.reg, w.data); err != nil {
			return err
		}
	}
	return nil
}

func (c *Converter) readRegisters() ([]byte, error) {
	tx := make([]byte, 2+NumRegisters)
	rx := make([]byte, len(tx))
	tx[0] = cmdRReg
	tx[1] = NumRegisters - 1
	if err := c.bus.Tx(tx, rx); err != nil {
		return nil, fmt.Errorf("adc: %v: read regs: %w", c.kind, err)
	}

	regs := rx[2:]
	for _, b := range regs {
		if b != 0 {
			return regs, nil
		}
	}
	return regs, fmt.Errorf("%w: %v", ErrNotResponding, c.kind)
}
