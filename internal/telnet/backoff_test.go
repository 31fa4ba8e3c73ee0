package telnet

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestJitteredDelayBounds(t *testing.T) {
	var lo, hi time.Duration = time.Hour, 0
	for i := 0; i < 10000; i++ {
		d := JitteredDelay()
		if d < 17*time.Second || d > 34*time.Second {
			t.Fatalf("JitteredDelay() = %v, outside [17s, 34s]", d)
		}
		lo = min(lo, d)
		hi = max(hi, d)
	}
	// With 10000 uniform samples the spread covers most of the range.
	if hi-lo < 15*time.Second {
		t.Errorf("samples span only %v..%v", lo, hi)
	}
}

func TestSleepContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := sleepContext(ctx, time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("sleepContext() = %v, want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Error("sleepContext did not return promptly")
	}
}

func TestSleepContextElapses(t *testing.T) {
	if err := sleepContext(context.Background(), time.Millisecond); err != nil {
		t.Errorf("sleepContext() = %v, want nil", err)
	}
}

func TestStateString(t *testing.T) {
	for s, want := range map[State]string{
		Disconnected:   "disconnected",
		Connecting:     "connecting",
		Authenticating: "authenticating",
		Active:         "active",
		State(9):       "State(9)",
	} {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int32(s), got, want)
		}
	}
}
