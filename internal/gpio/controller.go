// internal/gpio/controller.go
package gpio

import (
	"fmt"

	"go.uber.org/multierr"
)

// Controller owns the four bank mappings for the process.
// It is built once at Init and passed to whoever needs pins.
type Controller struct {
	banks [NumBanks]*Bank
}

// OpenController maps every bank. Any failure unmaps what was opened.
func OpenController() (*Controller, error) {
	c := &Controller{}
	for i := 0; i < NumBanks; i++ {
		b, err := Open(i)
		if err != nil {
			return nil, multierr.Append(err, c.Close())
		}
		c.banks[i] = b
	}
	return c, nil
}

// InMemory returns a Controller backed by heap pages instead of /dev/mem.
func InMemory() *Controller {
	c := &Controller{}
	for i := 0; i < NumBanks; i++ {
		b, err := NewBank(i, make([]byte, PageSize))
		if err != nil {
			// unreachable: index and size are valid
			panic(err)
		}
		c.banks[i] = b
	}
	return c
}

// Bank returns bank i.
func (c *Controller) Bank(i int) *Bank {
	if i < 0 || i >= NumBanks || c.banks[i] == nil {
		panic(fmt.Sprintf("gpio: bank %d not mapped", i))
	}
	return c.banks[i]
}

// Pin returns the handle for (bank, bit). Ranges are checked by config validation.
func (c *Controller) Pin(bank, bit int) Pin {
	return c.Bank(bank).Pin(bit)
}

// Close releases every mapped bank.
func (c *Controller) Close() error {
	var err error
	for _, b := range c.banks {
		if b != nil {
			err = multierr.Append(err, b.Close())
		}
	}
	return err
}
