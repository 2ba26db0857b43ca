// internal/adc/driver_test.go
package adc

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/tamzrod/sam-firmware/internal/gpio"
)

// fakeBus answers RDATA with queued samples and RREG with a fixed map.
type fakeBus struct {
	frames  [][]byte
	samples []int16
	regs    []byte
	failOp  byte
}

func (f *fakeBus) Tx(w, r []byte) error {
	f.frames = append(f.frames, append([]byte(nil), w...))
	if f.failOp != 0 && w[0] == f.failOp {
		return errors.New("bus fault")
	}
	switch {
	case w[0] == cmdRData && len(r) == 3:
		var s int16
		if len(f.samples) > 0 {
			s, f.samples = f.samples[0], f.samples[1:]
		}
		r[1] = byte(uint16(s) >> 8)
		r[2] = byte(uint16(s))
	case w[0]&0xE0 == cmdRReg && r != nil:
		copy(r[2:], f.regs)
	}
	return nil
}

// writes returns the register writes seen, as reg -> data pairs in order.
func (f *fakeBus) writes() []regWrite {
	var out []regWrite
	for _, fr := range f.frames {
		if len(fr) == 3 && fr[0]&0xE0 == cmdWReg {
			out = append(out, regWrite{fr[0] &^ cmdWReg, fr[2]})
		}
	}
	return out
}

func (f *fakeBus) reset() { f.frames = nil }

func alive() []byte {
	regs := make([]byte, NumRegisters)
	regs[0] = 0x04 // device id
	return regs
}

func newTestConverter(t *testing.T, kind Kind, bus *fakeBus) (*Converter, gpio.Pin) {
	t.Helper()
	c := gpio.InMemory()
	cs := c.Pin(0, 30)
	drdy := c.Pin(1, 28)
	conv, err := New(kind, bus, &cs, &drdy)
	if err != nil {
		t.Fatalf("New err=%v", err)
	}
	return conv, cs
}

func TestNew_DeassertsChipSelect(t *testing.T) {
	_, cs := newTestConverter(t, CurrentLoop, &fakeBus{})
	if cs.Driven() != gpio.High {
		t.Fatalf("chip select should idle high")
	}
}

func TestNew_Rejects(t *testing.T) {
	if _, err := New(KindUnknown, &fakeBus{}, nil, nil); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
	if _, err := New(CurrentLoop, nil, nil, nil); err == nil {
		t.Fatalf("expected error for nil bus")
	}
}

func TestInit_WritesKindSequence(t *testing.T) {
	bus := &fakeBus{regs: alive()}
	conv, cs := newTestConverter(t, RtdA, bus)

	if err := conv.Init(); err != nil {
		t.Fatalf("Init err=%v", err)
	}
	if bus.frames[0][0] != cmdReset {
		t.Fatalf("expected RESET first, got %#x", bus.frames[0][0])
	}
	got := bus.writes()
	want := initRtd
	if len(got) != len(want) {
		t.Fatalf("writes %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("writes %v, want %v", got, want)
		}
	}
	if cs.Driven() != gpio.High {
		t.Fatalf("chip select left asserted")
	}
}

func TestInit_AllZeroReadBack(t *testing.T) {
	bus := &fakeBus{regs: make([]byte, NumRegisters)}
	conv, _ := newTestConverter(t, CurrentLoop, bus)

	err := conv.Init()
	if !errors.Is(err, ErrNotResponding) {
		t.Fatalf("expected ErrNotResponding, got %v", err)
	}
}

func TestReadRegisters(t *testing.T) {
	bus := &fakeBus{regs: alive()}
	conv, _ := newTestConverter(t, ValveVoltage, bus)

	regs, err := conv.ReadRegisters()
	if err != nil {
		t.Fatalf("ReadRegisters err=%v", err)
	}
	if len(regs) != NumRegisters || regs[0] != 0x04 {
		t.Fatalf("unexpected regs %v", regs)
	}
	fr := bus.frames[0]
	if fr[0] != cmdRReg || fr[1] != NumRegisters-1 {
		t.Fatalf("unexpected RREG frame % x", fr[:2])
	}
}

func TestStartStop(t *testing.T) {
	bus := &fakeBus{}
	conv, cs := newTestConverter(t, DifferentialSignal, bus)

	if err := conv.Start(); err != nil {
		t.Fatalf("Start err=%v", err)
	}
	if w := bus.writes(); len(w) != 1 || w[0] != (regWrite{regInpMux, 0x01}) {
		t.Fatalf("Start should select channel 0, got %v", w)
	}
	if last := bus.frames[len(bus.frames)-1]; last[0] != cmdStart {
		t.Fatalf("expected START, got %#x", last[0])
	}

	bus.reset()
	if err := conv.Stop(); err != nil {
		t.Fatalf("Stop err=%v", err)
	}
	if len(bus.frames) != 1 || bus.frames[0][0] != cmdStop {
		t.Fatalf("expected single STOP frame, got %v", bus.frames)
	}
	if cs.Driven() != gpio.High {
		t.Fatalf("chip select left asserted")
	}
}

func TestRead_ConvertsAndProgramsNextChannel(t *testing.T) {
	bus := &fakeBus{samples: []int16{8192}}
	conv, _ := newTestConverter(t, CurrentLoop, bus)

	v, err := conv.Read(5)
	if err != nil {
		t.Fatalf("Read err=%v", err)
	}
	if v != 8192*2.5/16384 {
		t.Fatalf("unexpected value %v", v)
	}
	// iteration 5 wraps to channel 0
	if w := bus.writes(); len(w) != 1 || w[0] != (regWrite{regInpMux, 0x0C}) {
		t.Fatalf("expected mux for channel 0, got %v", w)
	}
}

func TestRead_NegativeSample(t *testing.T) {
	bus := &fakeBus{samples: []int16{-32768}}
	conv, _ := newTestConverter(t, RailCurrent, bus)

	v, err := conv.Read(0)
	if err != nil {
		t.Fatalf("Read err=%v", err)
	}
	if v != 0 {
		t.Fatalf("expected 0 for full negative scale, got %v", v)
	}
}

func TestRead_BusFault(t *testing.T) {
	bus := &fakeBus{failOp: cmdRData}
	conv, cs := newTestConverter(t, ValveCurrent, bus)

	if _, err := conv.Read(0); err == nil {
		t.Fatalf("expected error")
	}
	if cs.Driven() != gpio.High {
		t.Fatalf("chip select left asserted after fault")
	}
}

func TestThermocouple_AmbientCachedForCycle(t *testing.T) {
	ambRaw := int16(2000)
	samples := []int16{ambRaw, 100, 200, 300}
	bus := &fakeBus{samples: append([]int16(nil), samples...)}
	conv, _ := newTestConverter(t, ThermocoupleA, bus)

	wantAmbient := ambientFromRaw(ambRaw)

	got0, err := conv.Read(0)
	if err != nil {
		t.Fatalf("Read(0) err=%v", err)
	}
	if got0 != wantAmbient || conv.Ambient() != wantAmbient {
		t.Fatalf("ambient: got %v / cached %v, want %v", got0, conv.Ambient(), wantAmbient)
	}

	for i := uint64(1); i < 4; i++ {
		v, err := conv.Read(i)
		if err != nil {
			t.Fatalf("Read(%d) err=%v", i, err)
		}
		want := CompensateTypeK(wantAmbient, thermocoupleMillivolts(samples[i])) + 273.15
		if v != want {
			t.Fatalf("iteration %d: got %v, want %v", i, v, want)
		}
		if conv.Ambient() != wantAmbient {
			t.Fatalf("iteration %d changed cached ambient", i)
		}
	}

	// next cycle refreshes the cache
	bus.samples = []int16{3000}
	if _, err := conv.Read(4); err != nil {
		t.Fatalf("Read(4) err=%v", err)
	}
	if conv.Ambient() != ambientFromRaw(3000) {
		t.Fatalf("ambient not refreshed")
	}
}

func TestThermocouple_AmbientRegisterDance(t *testing.T) {
	bus := &fakeBus{}
	conv, _ := newTestConverter(t, ThermocoupleB, bus)

	if _, err := conv.Read(0); err != nil {
		t.Fatalf("Read(0) err=%v", err)
	}
	want := []regWrite{{regSys, sysNormal}, {regPGA, pgaGain32}, {regInpMux, 0x01}}
	got := bus.writes()
	if len(got) != len(want) {
		t.Fatalf("writes %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("writes %v, want %v", got, want)
		}
	}

	bus.reset()
	if _, err := conv.Read(3); err != nil {
		t.Fatalf("Read(3) err=%v", err)
	}
	got = bus.writes()
	if len(got) != 2 || got[0] != (regWrite{regSys, sysTempSensor}) || got[1] != (regWrite{regPGA, pgaAmbient}) {
		t.Fatalf("expected ambient setup before iteration 4, got %v", got)
	}
}

func TestThermocouple_NoDataReadyPoll(t *testing.T) {
	mem := make([]byte, gpio.PageSize)
	bank, err := gpio.NewBank(1, mem)
	if err != nil {
		t.Fatalf("NewBank err=%v", err)
	}
	// DATAIN bit 28 high: not ready. A thermocouple must not wait on it.
	binary.LittleEndian.PutUint32(mem[0x138:], 1<<28)

	drdy := bank.Pin(28)
	conv, err := New(ThermocoupleA, &fakeBus{}, nil, &drdy)
	if err != nil {
		t.Fatalf("New err=%v", err)
	}
	if _, err := conv.Read(1); err != nil {
		t.Fatalf("Read err=%v", err)
	}
}
