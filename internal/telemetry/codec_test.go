// internal/telemetry/codec_test.go
package telemetry

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSensorBatch_RoundTrip(t *testing.T) {
	in := SensorBatch{
		BoardID: "sam-01",
		Points: []DataPoint{
			{Channel: 1, ChannelType: ChannelCurrentLoop, Value: 0.0125, Timestamp: 1700000000.25},
			{Channel: 6, ChannelType: ChannelValveVoltage, Value: -3.5, Timestamp: 1700000000.5},
			{Channel: 0, ChannelType: ChannelUnknown, Value: 0, Timestamp: 0},
			{Channel: 4, ChannelType: ChannelTc, Value: 296.15, Timestamp: 1700000001},
			{Channel: 2, ChannelType: ChannelRailCurrent, Value: 1e-9, Timestamp: 1700000001.75},
		},
	}

	b, err := Encode(in)
	if err != nil {
		t.Fatalf("Encode err=%v", err)
	}

	out, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode err=%v", err)
	}
	got, ok := out.(SensorBatch)
	if !ok {
		t.Fatalf("expected SensorBatch, got %T", out)
	}
	if diff := cmp.Diff(in, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSensorBatch_Empty(t *testing.T) {
	b, err := Encode(&SensorBatch{BoardID: "bms"})
	if err != nil {
		t.Fatalf("Encode err=%v", err)
	}
	out, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode err=%v", err)
	}
	got := out.(SensorBatch)
	if got.BoardID != "bms" || len(got.Points) != 0 {
		t.Fatalf("unexpected batch %+v", got)
	}
}

func TestMessages_RoundTrip(t *testing.T) {
	cases := []Message{
		Identity{BoardID: "bms-01"},
		Identity{},
		Heartbeat{},
		Command{Action: ActionActuateValve, Channel: 20, Powered: true},
		Command{Action: ActionActuateValve, Channel: 3},
	}

	for _, in := range cases {
		b, err := Encode(in)
		if err != nil {
			t.Fatalf("Encode(%v) err=%v", in.Kind(), err)
		}
		out, err := Decode(b)
		if err != nil {
			t.Fatalf("Decode(%v) err=%v", in.Kind(), err)
		}
		if diff := cmp.Diff(in, out); diff != "" {
			t.Fatalf("%v mismatch (-want +got):\n%s", in.Kind(), diff)
		}
	}
}

func TestDecode_Truncated(t *testing.T) {
	b, err := Encode(Identity{BoardID: "sam-01"})
	if err != nil {
		t.Fatalf("Encode err=%v", err)
	}

	_, err = Decode(b[:len(b)-2])
	if !errors.Is(err, ErrShortBuffer) {
		t.Fatalf("expected ErrShortBuffer, got %v", err)
	}

	_, err = Decode(nil)
	if !errors.Is(err, ErrShortBuffer) {
		t.Fatalf("expected ErrShortBuffer for empty datagram, got %v", err)
	}
}

func TestDecode_Rejects(t *testing.T) {
	cases := []struct {
		name string
		in   []byte
		want error
	}{
		{"unknown kind", []byte{1, 0x7f}, ErrUnknownKind},
		{"empty payload", []byte{0}, ErrMalformed},
		{"trailing bytes", []byte{1, byte(KindHeartbeat), 0xff}, ErrMalformed},
		{"bad tag", []byte{2, byte(KindIdentity), 0x80}, ErrMalformed},
		// field 1 bytes, length 5, only 1 byte present
		{"short string", []byte{4, byte(KindIdentity), 0x0a, 0x05, 'a'}, ErrMalformed},
	}

	for _, tc := range cases {
		_, err := Decode(tc.in)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestDecode_SkipsUnknownFields(t *testing.T) {
	// Identity with an extra varint field 9 ahead of board id.
	payload := []byte{byte(KindIdentity), 0x48, 0x01, 0x0a, 0x02, 'f', 'c'}
	in := append([]byte{byte(len(payload))}, payload...)

	out, err := Decode(in)
	if err != nil {
		t.Fatalf("Decode err=%v", err)
	}
	if got := out.(Identity).BoardID; got != "fc" {
		t.Fatalf("expected board id fc, got %q", got)
	}
}

func TestEncode_UnknownMessage(t *testing.T) {
	if _, err := Encode(nil); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}
