// internal/gpio/bank.go
package gpio

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"
)

// NumBanks is the number of GPIO banks on the AM335x.
const NumBanks = 4

// PageSize is the size of one bank's register page.
const PageSize = 4096

// Register offsets inside a bank page.
const (
	regOE      = 0x134 // output enable, 1 = input
	regDataIn  = 0x138
	regDataOut = 0x13C
)

// bankBase holds the physical base address of each bank.
var bankBase = [NumBanks]int64{
	0x44E07000,
	0x4804C000,
	0x481AC000,
	0x481AE000,
}

var ErrMapping = errors.New("gpio: register mapping failed")

// Bank is one mapped register page.
// It is shared by every Pin created from it. All bit access is atomic.
type Bank struct {
	index int

	oe      *uint32
	dataIn  *uint32
	dataOut *uint32

	release   func() error
	closeOnce sync.Once
	closeErr  error
}

// NewBank binds a Bank to an already mapped page.
// mem must be at least PageSize bytes and stay valid until Close.
// Tests pass a plain heap slice.
func NewBank(index int, mem []byte) (*Bank, error) {
	if index < 0 || index >= NumBanks {
		return nil, fmt.Errorf("%w: bank %d out of range", ErrMapping, index)
	}
	if len(mem) < PageSize {
		return nil, fmt.Errorf("%w: bank %d page is %d bytes", ErrMapping, index, len(mem))
	}
	return &Bank{
		index:   index,
		oe:      word(mem, regOE),
		dataIn:  word(mem, regDataIn),
		dataOut: word(mem, regDataOut),
	}, nil
}

func word(mem []byte, off int) *uint32 {
	return (*uint32)(unsafe.Pointer(&mem[off]))
}

// Index returns the bank number.
func (b *Bank) Index() int { return b.index }

// Pin returns bit of this bank as a Pin. It panics when bit is not in 0..31.
func (b *Bank) Pin(bit int) Pin {
	if bit < 0 || bit > 31 {
		panic(fmt.Sprintf("gpio: bit %d out of range", bit))
	}
	return Pin{bank: b, bit: uint8(bit)}
}

// Registers returns the current OE, DATAOUT and DATAIN words.
func (b *Bank) Registers() (oe, dataOut, dataIn uint32) {
	return atomic.LoadUint32(b.oe), atomic.LoadUint32(b.dataOut), atomic.LoadUint32(b.dataIn)
}

// Close releases the mapping. Only the first call does any work.
func (b *Bank) Close() error {
	b.closeOnce.Do(func() {
		if b.release != nil {
			b.closeErr = b.release()
		}
	})
	return b.closeErr
}

func setBits(reg *uint32, mask uint32)   { atomic.OrUint32(reg, mask) }
func clearBits(reg *uint32, mask uint32) { atomic.AndUint32(reg, ^mask) }
