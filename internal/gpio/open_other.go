// internal/gpio/open_other.go
//go:build !linux

package gpio

import "fmt"

// Open is only supported on linux.
func Open(index int) (*Bank, error) {
	return nil, fmt.Errorf("%w: bank %d: /dev/mem requires linux", ErrMapping, index)
}
