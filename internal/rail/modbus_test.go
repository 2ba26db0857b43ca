// internal/rail/modbus_test.go
package rail

import (
	"errors"
	"io"
	"testing"
	"time"
)

type fakeRegisters struct {
	regs   map[uint16]uint16
	fail   bool
	closed int
}

func (f *fakeRegisters) ReadInputRegisters(addr, qty uint16) ([]byte, error) {
	if f.fail {
		return nil, errors.New("connection reset")
	}
	v := f.regs[addr]
	return []byte{byte(v >> 8), byte(v)}, nil
}

func (f *fakeRegisters) Close() error {
	f.closed++
	return nil
}

func newTestModbus(t *testing.T, f *fakeRegisters, dials *int) *Modbus {
	t.Helper()
	m, err := NewModbus(ModbusConfig{Endpoint: "10.0.0.9:502", Timeout: time.Second, Address: 100})
	if err != nil {
		t.Fatalf("NewModbus err=%v", err)
	}
	m.dial = func() (registerReader, io.Closer, error) {
		*dials++
		return f, f, nil
	}
	return m
}

func TestModbus_Read(t *testing.T) {
	f := &fakeRegisters{regs: map[uint16]uint16{100: 24000, 104: 5000}}
	dials := 0
	m := newTestModbus(t, f, &dials)

	r, err := m.Read(4)
	if err != nil {
		t.Fatalf("Read err=%v", err)
	}
	if r.Value != 5000 || r.Channel != 5 {
		t.Fatalf("unexpected reading %+v", r)
	}
	if _, err := m.Read(0); err != nil {
		t.Fatalf("Read err=%v", err)
	}
	if dials != 1 {
		t.Fatalf("expected connection reuse, dialled %d times", dials)
	}
}

func TestModbus_RedialsAfterFailure(t *testing.T) {
	f := &fakeRegisters{fail: true}
	dials := 0
	m := newTestModbus(t, f, &dials)

	r, err := m.Read(1)
	if err == nil || r.Value != Sentinel {
		t.Fatalf("expected sentinel error, got %+v %v", r, err)
	}
	if f.closed != 1 {
		t.Fatalf("expected dropped connection to be closed")
	}

	f.fail = false
	if _, err := m.Read(1); err != nil {
		t.Fatalf("Read after recovery err=%v", err)
	}
	if dials != 2 {
		t.Fatalf("expected redial, dialled %d times", dials)
	}
}

func TestModbus_DialFailure(t *testing.T) {
	m, err := NewModbus(ModbusConfig{Endpoint: "10.0.0.9:502", Timeout: time.Second})
	if err != nil {
		t.Fatalf("NewModbus err=%v", err)
	}
	m.dial = func() (registerReader, io.Closer, error) {
		return nil, nil, errors.New("refused")
	}
	if r, err := m.Read(0); err == nil || r.Value != Sentinel {
		t.Fatalf("expected sentinel error, got %+v %v", r, err)
	}
}

func TestNewModbus_Rejects(t *testing.T) {
	if _, err := NewModbus(ModbusConfig{Timeout: time.Second}); err == nil {
		t.Fatalf("expected error for missing endpoint")
	}
	if _, err := NewModbus(ModbusConfig{Endpoint: "x:502"}); err == nil {
		t.Fatalf("expected error for missing timeout")
	}
}
