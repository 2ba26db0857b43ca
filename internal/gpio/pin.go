// internal/gpio/pin.go
package gpio

import (
	"fmt"
	"sync/atomic"
)

type Mode uint8

const (
	Input Mode = iota
	Output
)

type Level uint8

const (
	Low Level = iota
	High
)

func (l Level) String() string {
	if l == High {
		return "high"
	}
	return "low"
}

// Pin is a (bank, bit) handle. It holds no state of its own.
type Pin struct {
	bank *Bank
	bit  uint8
}

func (p Pin) mask() uint32 { return 1 << p.bit }

// SetMode configures the pin direction.
// The OE register is inverted: a set bit makes the pin an input.
func (p Pin) SetMode(m Mode) {
	if m == Input {
		setBits(p.bank.oe, p.mask())
	} else {
		clearBits(p.bank.oe, p.mask())
	}
}

// Write drives the output latch.
func (p Pin) Write(l Level) {
	if l == High {
		setBits(p.bank.dataOut, p.mask())
	} else {
		clearBits(p.bank.dataOut, p.mask())
	}
}

// Read returns the instantaneous input level. Never blocks.
func (p Pin) Read() Level {
	if atomic.LoadUint32(p.bank.dataIn)&p.mask() != 0 {
		return High
	}
	return Low
}

// Driven returns the level currently latched in DATAOUT.
func (p Pin) Driven() Level {
	if atomic.LoadUint32(p.bank.dataOut)&p.mask() != 0 {
		return High
	}
	return Low
}

func (p Pin) Bank() int { return p.bank.index }
func (p Pin) Bit() int  { return int(p.bit) }

func (p Pin) String() string {
	return fmt.Sprintf("gpio%d_%d", p.bank.index, p.bit)
}
