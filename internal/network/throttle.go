package network

import "time"

// throttle enforces a fixed interval between successive operations. Bulk
// provisioning runs through it so a batch cannot saturate the router's
// command queue; the sleep function is injectable so tests never wait on
// the wall clock.
type throttle struct {
	interval time.Duration
	sleep    func(time.Duration)
	started  bool
}

func newThrottle(interval time.Duration, sleep func(time.Duration)) *throttle {
	if sleep == nil {
		sleep = time.Sleep
	}
	return &throttle{interval: interval, sleep: sleep}
}

// Wait blocks for the configured interval, except before the first
// operation.
func (t *throttle) Wait() {
	if !t.started {
		t.started = true
		return
	}
	if t.interval > 0 {
		t.sleep(t.interval)
	}
}
