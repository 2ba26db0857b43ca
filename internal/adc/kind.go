// internal/adc/kind.go
package adc

import (
	"fmt"
	"strings"

	"github.com/tamzrod/sam-firmware/internal/telemetry"
)

// Kind is the sensor kind a converter is wired to.
type Kind uint8

const (
	KindUnknown Kind = iota
	CurrentLoop
	ValveVoltage
	ValveCurrent
	RailVoltage
	RailCurrent
	ThermocoupleA
	ThermocoupleB
	DifferentialSignal
	RtdA
	RtdB
	RtdC
)

type family uint8

const (
	famPlain family = iota
	famValveCurrent
	famRtd
	famDiff
	famTc
)

// kindInfo is everything kind specific, in one row per kind.
type kindInfo struct {
	name        string
	family      family
	channels    int
	dataReady   bool
	channelType telemetry.ChannelType
	idBase      uint32 // telemetry id = iteration % channels + idBase
	init        []regWrite
	convert     func(raw int16) float64 // nil for thermocouples
}

var (
	initPlain = []regWrite{
		{regPGA, pgaBypass},
		{regDataRate, dataRate4000},
		{regRef, refInternal},
	}
	initRtd = []regWrite{
		{regPGA, pgaBypass},
		{regDataRate, dataRate4000},
		{regIDACMag, idacMag1000uA},
		{regIDACMux, idacMuxAIN5},
	}
	initGain32 = []regWrite{
		{regPGA, pgaGain32},
		{regDataRate, dataRate4000},
		{regRef, refInternal},
	}
)

var kinds = [...]kindInfo{
	KindUnknown: {name: "unknown"},
	CurrentLoop: {
		name: "current_loop", family: famPlain, channels: 6, dataReady: true,
		channelType: telemetry.ChannelCurrentLoop, idBase: 1,
		init: initPlain, convert: currentLoop,
	},
	ValveVoltage: {
		name: "valve_voltage", family: famPlain, channels: 6, dataReady: true,
		channelType: telemetry.ChannelValveVoltage, idBase: 1,
		init: initPlain, convert: dividedVoltage,
	},
	ValveCurrent: {
		name: "valve_current", family: famValveCurrent, channels: 6, dataReady: true,
		channelType: telemetry.ChannelValveCurrent, idBase: 1,
		init: initPlain, convert: valveCurrent,
	},
	RailVoltage: {
		name: "rail_voltage", family: famPlain, channels: 5, dataReady: true,
		channelType: telemetry.ChannelRailVoltage, idBase: 1,
		init: initPlain, convert: dividedVoltage,
	},
	RailCurrent: {
		name: "rail_current", family: famPlain, channels: 2, dataReady: true,
		channelType: telemetry.ChannelRailCurrent, idBase: 1,
		init: initPlain, convert: railCurrent,
	},
	ThermocoupleA: {
		name: "tc_a", family: famTc, channels: 4, dataReady: false,
		channelType: telemetry.ChannelTc, idBase: 0,
		init: initGain32,
	},
	ThermocoupleB: {
		name: "tc_b", family: famTc, channels: 4, dataReady: false,
		channelType: telemetry.ChannelTc, idBase: 3,
		init: initGain32,
	},
	DifferentialSignal: {
		name: "diff", family: famDiff, channels: 2, dataReady: true,
		channelType: telemetry.ChannelDifferentialSignal, idBase: 1,
		init: initGain32, convert: differential,
	},
	RtdA: {
		name: "rtd_a", family: famRtd, channels: 2, dataReady: true,
		channelType: telemetry.ChannelRtd, idBase: 1,
		init: initRtd, convert: rtd,
	},
	RtdB: {
		name: "rtd_b", family: famRtd, channels: 2, dataReady: true,
		channelType: telemetry.ChannelRtd, idBase: 3,
		init: initRtd, convert: rtd,
	},
	RtdC: {
		name: "rtd_c", family: famRtd, channels: 2, dataReady: true,
		channelType: telemetry.ChannelRtd, idBase: 5,
		init: initRtd, convert: rtd,
	},
}

func (k Kind) info() kindInfo {
	if int(k) >= len(kinds) {
		return kinds[KindUnknown]
	}
	return kinds[k]
}

// ParseKind maps a config name ("current_loop", "rtd_b", ...) to a Kind.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k := CurrentLoop; int(k) < len(kinds); k++ {
		if kinds[k].name == s {
			return k, nil
		}
	}
	return KindUnknown, fmt.Errorf("adc: unknown sensor kind %q", s)
}

// Kinds lists every valid kind.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kinds)-1)
	for k := CurrentLoop; int(k) < len(kinds); k++ {
		out = append(out, k)
	}
	return out
}

func (k Kind) String() string {
	if int(k) >= len(kinds) {
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
	return kinds[k].name
}

func (k Kind) Valid() bool { return k != KindUnknown && int(k) < len(kinds) }

// Channels is the number of multiplexed inputs for the kind.
func (k Kind) Channels() int { return k.info().channels }

// HasDataReady reports whether the kind signals conversions on a DRDY line.
func (k Kind) HasDataReady() bool { return k.info().dataReady }

func (k Kind) ChannelType() telemetry.ChannelType { return k.info().channelType }

// IsThermocouple reports whether the kind keeps an ambient junction value.
func (k Kind) IsThermocouple() bool { return k.info().family == famTc }

// Channel returns the mux input selected for iteration.
func (k Kind) Channel(iteration uint64) int {
	n := k.Channels()
	if n == 0 {
		return 0
	}
	return int(iteration % uint64(n))
}

// ChannelID maps (kind, iteration) to the telemetry channel id.
// The bool is false for iterations that produce no data point
// (the thermocouple ambient read).
func (k Kind) ChannelID(iteration uint64) (uint32, bool) {
	info := k.info()
	if info.channels == 0 {
		return 0, false
	}
	ch := k.Channel(iteration)
	if info.family == famTc && ch == 0 {
		return 0, false
	}
	return uint32(ch) + info.idBase, true
}

// muxWrites returns the register writes that select channel ch.
func (k Kind) muxWrites(ch int) []regWrite {
	switch k.info().family {
	case famPlain:
		return []regWrite{{regInpMux, byte(ch<<4) | muxNegAINCOM}}

	case famValveCurrent:
		// one sense resistor per valve pair
		return []regWrite{{regInpMux, byte((ch/2)<<4) | muxNegAINCOM}}

	case famRtd:
		if ch == 0 {
			return []regWrite{{regInpMux, 0x12}, {regRef, 0x12}}
		}
		return []regWrite{{regInpMux, 0x34}, {regRef, 0x16}}

	case famDiff:
		if ch == 0 {
			return []regWrite{{regInpMux, 0x01}}
		}
		return []regWrite{{regInpMux, 0x23}}

	case famTc:
		if ch == 0 {
			return []regWrite{{regSys, sysTempSensor}, {regPGA, pgaAmbient}}
		}
		return []regWrite{{regInpMux, [...]byte{0x01, 0x23, 0x45}[ch-1]}}
	}
	return nil
}
