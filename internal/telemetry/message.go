// internal/telemetry/message.go
package telemetry

import "fmt"

// MaxDatagram is the receive buffer size for one telemetry datagram.
const MaxDatagram = 64 * 1024

// ChannelType tags what a DataPoint measures.
// Values are part of the wire format and MUST NOT be renumbered.
type ChannelType uint8

const (
	ChannelUnknown ChannelType = iota
	ChannelCurrentLoop
	ChannelValveVoltage
	ChannelValveCurrent
	ChannelRailVoltage
	ChannelRailCurrent
	ChannelDifferentialSignal
	ChannelTc
	ChannelRtd
)

func (c ChannelType) String() string {
	switch c {
	case ChannelCurrentLoop:
		return "current_loop"
	case ChannelValveVoltage:
		return "valve_voltage"
	case ChannelValveCurrent:
		return "valve_current"
	case ChannelRailVoltage:
		return "rail_voltage"
	case ChannelRailCurrent:
		return "rail_current"
	case ChannelDifferentialSignal:
		return "differential_signal"
	case ChannelTc:
		return "tc"
	case ChannelRtd:
		return "rtd"
	default:
		return fmt.Sprintf("channel_type(%d)", uint8(c))
	}
}

// DataPoint is one physical measurement.
// Timestamp is Unix seconds.
type DataPoint struct {
	Channel     uint32
	ChannelType ChannelType
	Value       float64
	Timestamp   float64
}

// Kind identifies a message variant on the wire.
type Kind uint8

const (
	KindIdentity    Kind = 1
	KindSensorBatch Kind = 2
	KindHeartbeat   Kind = 3
	KindCommand     Kind = 4
)

func (k Kind) String() string {
	switch k {
	case KindIdentity:
		return "identity"
	case KindSensorBatch:
		return "sensor_batch"
	case KindHeartbeat:
		return "heartbeat"
	case KindCommand:
		return "command"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Message is implemented by every telemetry message variant.
type Message interface {
	Kind() Kind
}

// Identity announces a board (or acknowledges one, when sent by the flight computer).
type Identity struct {
	BoardID string
}

// SensorBatch carries one acquisition round, in order.
type SensorBatch struct {
	BoardID string
	Points  []DataPoint
}

// Heartbeat is the flight computer's liveness message. No payload.
type Heartbeat struct{}

// Action is the requested command operation.
type Action uint8

const (
	ActionActuateValve Action = 1
)

// Command is a structured actuation request from the flight computer.
type Command struct {
	Action  Action
	Channel uint32
	Powered bool
}

func (Identity) Kind() Kind    { return KindIdentity }
func (SensorBatch) Kind() Kind { return KindSensorBatch }
func (Heartbeat) Kind() Kind   { return KindHeartbeat }
func (Command) Kind() Kind     { return KindCommand }
