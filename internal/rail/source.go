// internal/rail/source.go
package rail

import "github.com/tamzrod/sam-firmware/internal/telemetry"

// Sentinel is reported for a channel that could not be read.
const Sentinel = -1.0

// NumChannels is the number of onboard rail nodes.
const NumChannels = 5

// Reading is one converted rail value.
type Reading struct {
	Channel uint32
	Type    telemetry.ChannelType
	Value   float64
}

// Source is an onboard rail monitor, read one channel per call.
// A failed read returns the Sentinel value together with the error;
// the reading is still usable.
type Source interface {
	Channels() int
	Read(index int) (Reading, error)
}

// Channel describes one rail input.
type Channel struct {
	ID    uint32
	Type  telemetry.ChannelType
	Scale float64
}

// DefaultChannels are five rail voltages, ids 1..5, unscaled.
func DefaultChannels() []Channel {
	out := make([]Channel, NumChannels)
	for i := range out {
		out[i] = Channel{ID: uint32(i + 1), Type: telemetry.ChannelRailVoltage, Scale: 1}
	}
	return out
}

func sentinel(ch Channel) Reading {
	return Reading{Channel: ch.ID, Type: ch.Type, Value: Sentinel}
}
