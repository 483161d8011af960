package session

import (
	"context"
	"time"
)

// RunClock feeds one Tick per second into dispatch until ctx is cancelled.
// The ticker is stopped on return, so an ended session leaks no timers.
// Nothing else produces Tick events. It always returns ctx.Err().
func RunClock(ctx context.Context, dispatch func(Event)) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case t := <-ticker.C:
			dispatch(Tick{Now: t.Unix()})
		}
	}
}
