package protect

import (
	"context"
	"time"
)

// Revalidator re-runs validation on every tick it receives. The tick
// channel is injected rather than owned, so tests drive it directly and
// Guard.Run feeds it from a time.Ticker.
type Revalidator struct {
	Guard *Guard
	Ticks <-chan time.Time
}

// Run consumes ticks until ctx is cancelled. Each tick triggers one
// ValidateNow; transport errors are already handled by the enforcer's
// grace window, so they are not surfaced here.
func (r *Revalidator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-r.Ticks:
			if !ok {
				return
			}
			_ = r.Guard.ValidateNow(ctx)
		}
	}
}
