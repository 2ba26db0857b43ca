// internal/poller/runner.go
package poller

import (
	"context"
	"errors"
)

// Run performs a round on every tick and emits the batch on out.
// No overlap. Returns when ctx is done.
func (p *Poller) Run(ctx context.Context, out chan<- Batch) error {
	if p.cfg.Interval <= 0 {
		return errors.New("poller: interval must be > 0")
	}
	ticker := p.clock.Ticker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			select {
			case out <- p.RoundOnce():
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}
