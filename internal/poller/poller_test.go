// internal/poller/poller_test.go
package poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/go-cmp/cmp"

	"github.com/tamzrod/sam-firmware/internal/adc"
	"github.com/tamzrod/sam-firmware/internal/rail"
	"github.com/tamzrod/sam-firmware/internal/telemetry"
)

type fakeConverter struct {
	kind   adc.Kind
	reads  []uint64
	failAt int // iteration that fails, -1 for none
}

func (f *fakeConverter) Kind() adc.Kind { return f.kind }

func (f *fakeConverter) Read(iteration uint64) (float64, error) {
	f.reads = append(f.reads, iteration)
	if int(iteration) == f.failAt {
		return 0, errors.New("bus fault")
	}
	return float64(iteration) / 10, nil
}

type fakeRail struct {
	reads []int
	fail  bool
}

func (f *fakeRail) Channels() int { return rail.NumChannels }

func (f *fakeRail) Read(index int) (rail.Reading, error) {
	f.reads = append(f.reads, index)
	r := rail.Reading{Channel: uint32(index + 1), Type: telemetry.ChannelRailVoltage, Value: 24}
	if f.fail {
		r.Value = rail.Sentinel
		return r, errors.New("no such file")
	}
	return r, nil
}

type tuple struct {
	Channel uint32
	Type    telemetry.ChannelType
}

func tuples(points []telemetry.DataPoint) []tuple {
	out := make([]tuple, len(points))
	for i, p := range points {
		out[i] = tuple{p.Channel, p.ChannelType}
	}
	return out
}

func TestRoundOnce_CurrentLoopAndRail(t *testing.T) {
	clk := clock.NewMock()
	cl := &fakeConverter{kind: adc.CurrentLoop, failAt: -1}
	rl := &fakeRail{}

	p, err := New(Config{}, []Converter{cl}, rl, clk, nil)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}

	var all []telemetry.DataPoint
	for i := 0; i < 3; i++ {
		b := p.RoundOnce()
		if b.Round != uint64(i) {
			t.Fatalf("round %d: got index %d", i, b.Round)
		}
		if len(b.Faults) != 0 {
			t.Fatalf("round %d: unexpected faults %v", i, b.Faults)
		}
		all = append(all, b.Points...)
	}

	if len(all) != 21 {
		t.Fatalf("expected 21 data points, got %d", len(all))
	}

	var want []tuple
	for r := 0; r < 3; r++ {
		for id := uint32(1); id <= 6; id++ {
			want = append(want, tuple{id, telemetry.ChannelCurrentLoop})
		}
		want = append(want, tuple{uint32(r + 1), telemetry.ChannelRailVoltage})
	}
	if diff := cmp.Diff(want, tuples(all)); diff != "" {
		t.Fatalf("channel sequence mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{0, 1, 2}, rl.reads); diff != "" {
		t.Fatalf("rail index mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundOnce_SkipsExhaustedKinds(t *testing.T) {
	cl := &fakeConverter{kind: adc.CurrentLoop, failAt: -1}
	rtd := &fakeConverter{kind: adc.RtdB, failAt: -1}
	tc := &fakeConverter{kind: adc.ThermocoupleA, failAt: -1}

	p, err := New(Config{}, []Converter{cl, rtd, tc}, nil, clock.NewMock(), nil)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	b := p.RoundOnce()

	if diff := cmp.Diff([]uint64{0, 1, 2, 3, 4, 5}, cl.reads); diff != "" {
		t.Fatalf("current loop reads (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]uint64{0, 1}, rtd.reads); diff != "" {
		t.Fatalf("rtd reads (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]uint64{0, 1, 2, 3}, tc.reads); diff != "" {
		t.Fatalf("thermocouple reads (-want +got):\n%s", diff)
	}

	// iteration-major order, thermocouple ambient read not emitted
	want := []tuple{
		{1, telemetry.ChannelCurrentLoop}, {3, telemetry.ChannelRtd},
		{2, telemetry.ChannelCurrentLoop}, {4, telemetry.ChannelRtd}, {1, telemetry.ChannelTc},
		{3, telemetry.ChannelCurrentLoop}, {2, telemetry.ChannelTc},
		{4, telemetry.ChannelCurrentLoop}, {3, telemetry.ChannelTc},
		{5, telemetry.ChannelCurrentLoop},
		{6, telemetry.ChannelCurrentLoop},
	}
	if diff := cmp.Diff(want, tuples(b.Points)); diff != "" {
		t.Fatalf("batch mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundOnce_FaultsBecomeSentinels(t *testing.T) {
	cl := &fakeConverter{kind: adc.RailCurrent, failAt: 1}
	rl := &fakeRail{fail: true}

	p, err := New(Config{}, []Converter{cl}, rl, clock.NewMock(), nil)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	b := p.RoundOnce()

	if len(b.Points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(b.Points))
	}
	if b.Points[0].Value != 0 || b.Points[1].Value != Sentinel || b.Points[2].Value != rail.Sentinel {
		t.Fatalf("unexpected values %+v", b.Points)
	}
	if len(b.Faults) != 2 || b.Faults[0].Source != "rail_current" || b.Faults[1].Source != "rail" {
		t.Fatalf("unexpected faults %+v", b.Faults)
	}
}

func TestRoundOnce_Timestamps(t *testing.T) {
	clk := clock.NewMock()
	clk.Set(time.Unix(1700000000, 500000000))

	p, err := New(Config{}, []Converter{&fakeConverter{kind: adc.DifferentialSignal, failAt: -1}}, nil, clk, nil)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	b := p.RoundOnce()
	for _, pt := range b.Points {
		if pt.Timestamp != 1700000000.5 {
			t.Fatalf("unexpected timestamp %v", pt.Timestamp)
		}
	}
}

func TestNew_Rejects(t *testing.T) {
	if _, err := New(Config{}, nil, nil, nil, nil); err == nil {
		t.Fatalf("expected error with nothing to poll")
	}
	if _, err := New(Config{}, []Converter{&fakeConverter{kind: adc.KindUnknown}}, nil, nil, nil); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestRun_EmitsOnTick(t *testing.T) {
	clk := clock.NewMock()
	p, err := New(Config{Interval: 100 * time.Millisecond}, nil, &fakeRail{}, clk, nil)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan Batch)
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, out) }()

	for i := 0; i < 2; i++ {
		// give Run a chance to arm its ticker
		time.Sleep(5 * time.Millisecond)
		clk.Add(100 * time.Millisecond)
		b := <-out
		if b.Round != uint64(i) || len(b.Points) != 1 {
			t.Fatalf("tick %d: unexpected batch %+v", i, b)
		}
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRun_RequiresInterval(t *testing.T) {
	p, err := New(Config{}, nil, &fakeRail{}, clock.NewMock(), nil)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	if err := p.Run(context.Background(), make(chan Batch)); err == nil {
		t.Fatalf("expected error for zero interval")
	}
}
