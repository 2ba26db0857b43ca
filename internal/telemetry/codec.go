// internal/telemetry/codec.go
package telemetry

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

var (
	ErrShortBuffer = errors.New("telemetry: short buffer")
	ErrUnknownKind = errors.New("telemetry: unknown message kind")
	ErrMalformed   = errors.New("telemetry: malformed message")
)

// Frame layout (one UDP datagram):
//
//	varint  payload length
//	byte    kind
//	...     protowire fields for the kind
//
// Zero-valued fields are always written so decoding is exact.

// field numbers
const (
	fieldBoardID = 1
	fieldPoint   = 2

	fieldPointChannel   = 1
	fieldPointType      = 2
	fieldPointValue     = 3
	fieldPointTimestamp = 4

	fieldCommandAction  = 1
	fieldCommandChannel = 2
	fieldCommandPowered = 3
)

// Encode returns the framed datagram for m.
func Encode(m Message) ([]byte, error) {
	return Append(nil, m)
}

// Append appends the framed encoding of m to dst.
func Append(dst []byte, m Message) ([]byte, error) {
	payload, err := appendPayload(nil, m)
	if err != nil {
		return dst, err
	}
	dst = protowire.AppendVarint(dst, uint64(len(payload)))
	return append(dst, payload...), nil
}

func appendPayload(b []byte, m Message) ([]byte, error) {
	switch v := m.(type) {
	case Identity:
		b = append(b, byte(KindIdentity))
		b = appendString(b, fieldBoardID, v.BoardID)
	case *Identity:
		return appendPayload(b, *v)

	case SensorBatch:
		b = append(b, byte(KindSensorBatch))
		b = appendString(b, fieldBoardID, v.BoardID)
		var pb []byte
		for _, p := range v.Points {
			pb = appendPoint(pb[:0], p)
			b = protowire.AppendTag(b, fieldPoint, protowire.BytesType)
			b = protowire.AppendBytes(b, pb)
		}
	case *SensorBatch:
		return appendPayload(b, *v)

	case Heartbeat, *Heartbeat:
		b = append(b, byte(KindHeartbeat))

	case Command:
		b = append(b, byte(KindCommand))
		b = appendVarint(b, fieldCommandAction, uint64(v.Action))
		b = appendVarint(b, fieldCommandChannel, uint64(v.Channel))
		b = appendVarint(b, fieldCommandPowered, protowire.EncodeBool(v.Powered))
	case *Command:
		return appendPayload(b, *v)

	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownKind, m)
	}
	return b, nil
}

func appendPoint(b []byte, p DataPoint) []byte {
	b = appendVarint(b, fieldPointChannel, uint64(p.Channel))
	b = appendVarint(b, fieldPointType, uint64(p.ChannelType))
	b = appendFloat(b, fieldPointValue, p.Value)
	b = appendFloat(b, fieldPointTimestamp, p.Timestamp)
	return b
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendFloat(b []byte, num protowire.Number, f float64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(f))
}

// ------------------------------------------------------------
// decode
// ------------------------------------------------------------

// Decode parses one framed datagram.
// Trailing bytes after the frame are rejected.
func Decode(datagram []byte) (Message, error) {
	n, w := protowire.ConsumeVarint(datagram)
	if w < 0 {
		return nil, fmt.Errorf("%w: length prefix", ErrShortBuffer)
	}
	rest := datagram[w:]
	if uint64(len(rest)) < n {
		return nil, fmt.Errorf("%w: want %d payload bytes, have %d", ErrShortBuffer, n, len(rest))
	}
	if uint64(len(rest)) > n {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformed, uint64(len(rest))-n)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformed)
	}

	kind, body := Kind(rest[0]), rest[1:]
	switch kind {
	case KindIdentity:
		var m Identity
		err := walk(body, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
			if num == fieldBoardID && typ == protowire.BytesType {
				s, n := protowire.ConsumeString(b)
				m.BoardID = s
				return n, nil
			}
			return skip, nil
		})
		return m, err

	case KindSensorBatch:
		var m SensorBatch
		err := walk(body, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
			switch {
			case num == fieldBoardID && typ == protowire.BytesType:
				s, n := protowire.ConsumeString(b)
				m.BoardID = s
				return n, nil
			case num == fieldPoint && typ == protowire.BytesType:
				raw, n := protowire.ConsumeBytes(b)
				if n < 0 {
					return n, nil
				}
				p, err := decodePoint(raw)
				if err != nil {
					return 0, err
				}
				m.Points = append(m.Points, p)
				return n, nil
			}
			return skip, nil
		})
		return m, err

	case KindHeartbeat:
		err := walk(body, func(protowire.Number, protowire.Type, []byte) (int, error) {
			return skip, nil
		})
		return Heartbeat{}, err

	case KindCommand:
		var m Command
		err := walk(body, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
			if typ != protowire.VarintType {
				return skip, nil
			}
			v, n := protowire.ConsumeVarint(b)
			switch num {
			case fieldCommandAction:
				m.Action = Action(v)
			case fieldCommandChannel:
				m.Channel = uint32(v)
			case fieldCommandPowered:
				m.Powered = protowire.DecodeBool(v)
			default:
				return skip, nil
			}
			return n, nil
		})
		return m, err

	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, uint8(kind))
	}
}

func decodePoint(b []byte) (DataPoint, error) {
	var p DataPoint
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == fieldPointChannel && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			p.Channel = uint32(v)
			return n, nil
		case num == fieldPointType && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			p.ChannelType = ChannelType(v)
			return n, nil
		case num == fieldPointValue && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			p.Value = math.Float64frombits(v)
			return n, nil
		case num == fieldPointTimestamp && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			p.Timestamp = math.Float64frombits(v)
			return n, nil
		}
		return skip, nil
	})
	return p, err
}

// skip tells walk to consume the field as unknown.
const skip = math.MinInt32

// fieldFunc consumes the value of one field and returns the bytes used.
type fieldFunc func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

func walk(b []byte, fn fieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]

		used, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		if used == skip {
			used = protowire.ConsumeFieldValue(num, typ, b)
		}
		if used < 0 {
			return fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(used))
		}
		b = b[used:]
	}
	return nil
}
