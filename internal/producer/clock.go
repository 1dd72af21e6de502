package producer

import "github.com/jonboulle/clockwork"

// clock paces the publish loop. Tests swap in a fake via SetClock.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source for pacing. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}
