// internal/gpio/open_linux.go
//go:build linux

package gpio

import (
	"fmt"

	"go.uber.org/multierr"
	"golang.org/x/sys/unix"
)

const devMem = "/dev/mem"

// Open maps the register page of bank index from /dev/mem.
func Open(index int) (*Bank, error) {
	if index < 0 || index >= NumBanks {
		return nil, fmt.Errorf("%w: bank %d out of range", ErrMapping, index)
	}

	fd, err := unix.Open(devMem, unix.O_RDWR|unix.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrMapping, devMem, err)
	}

	mem, err := unix.Mmap(fd, bankBase[index], PageSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("%w: mmap bank %d: %v", ErrMapping, index, err)
	}

	b, err := NewBank(index, mem)
	if err != nil {
		_ = unix.Munmap(mem)
		_ = unix.Close(fd)
		return nil, err
	}
	b.release = func() error {
		return multierr.Combine(unix.Munmap(mem), unix.Close(fd))
	}
	return b, nil
}
