package network

import (
	"testing"
	"time"
)

func TestThrottle_SkipsFirstCall(t *testing.T) {
	slept := 0
	gate := newThrottle(time.Second, func(time.Duration) { slept++ })

	gate.Wait()
	if slept != 0 {
		t.Fatalf("First wait should not sleep, slept %d times", slept)
	}

	for i := 0; i < 4; i++ {
		gate.Wait()
	}
	if slept != 4 {
		t.Fatalf("Expected 4 sleeps for 5 waits, got %d", slept)
	}
}

func TestThrottle_ZeroIntervalNeverSleeps(t *testing.T) {
	gate := newThrottle(0, func(time.Duration) {
		t.Fatal("Sleep called with zero interval")
	})
	gate.Wait()
	gate.Wait()
	gate.Wait()
}

func TestThrottle_UsesConfiguredInterval(t *testing.T) {
	var got time.Duration
	gate := newThrottle(250*time.Millisecond, func(d time.Duration) { got = d })
	gate.Wait()
	gate.Wait()
	if got != 250*time.Millisecond {
		t.Fatalf("Expected 250ms sleep, got %v", got)
	}
}
