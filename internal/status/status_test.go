// internal/status/status_test.go
package status

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestTracker_ErrorStreak(t *testing.T) {
	tr := NewTracker()
	t0 := time.Unix(1_700_000_000, 0)

	if !tr.Enter("connect", HealthError, ErrorHandshake, t0) {
		t.Fatalf("expected change on first transition")
	}
	// still failing: streak start is kept
	tr.Enter("connect", HealthError, ErrorNetwork, t0.Add(3*time.Second))

	got := tr.Snapshot(t0.Add(5 * time.Second))
	want := Snapshot{State: "connect", Health: HealthError, LastErrorCode: ErrorNetwork, SecondsInError: 5}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("snapshot (-want +got):\n%s", diff)
	}

	tr.Enter("poll_adcs", HealthOK, ErrorHeartbeat, t0.Add(6*time.Second))
	tr.Round()
	tr.Round()

	got = tr.Snapshot(t0.Add(7 * time.Second))
	want = Snapshot{State: "poll_adcs", Health: HealthOK, Rounds: 2}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("snapshot (-want +got):\n%s", diff)
	}
}

func TestTracker_SameStateIsNoChange(t *testing.T) {
	tr := NewTracker()
	now := time.Now()
	tr.Enter("poll_adcs", HealthOK, ErrorNone, now)
	if tr.Enter("poll_adcs", HealthOK, ErrorNone, now) {
		t.Fatalf("expected no change")
	}
}

func TestTracker_SecondsInErrorSaturates(t *testing.T) {
	tr := NewTracker()
	t0 := time.Unix(0, 0)
	tr.Enter("abort", HealthStale, ErrorHeartbeat, t0)
	tr.Abort()

	s := tr.Snapshot(t0.Add(48 * time.Hour))
	if s.SecondsInError != 0xFFFF || s.Aborts != 1 {
		t.Fatalf("unexpected snapshot %+v", s)
	}
}

func TestSnapshot_LogObject(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	zap.New(core).Info("status", zap.Object("status", Snapshot{State: "abort", Health: HealthStale, Aborts: 3}))

	fields := logs.All()[0].ContextMap()["status"].(map[string]interface{})
	if fields["health"] != "stale" || fields["state"] != "abort" || fields["aborts"] != uint64(3) {
		t.Fatalf("unexpected fields %v", fields)
	}
}
