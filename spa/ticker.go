package spa

import (
	"context"
	"fmt"
	"time"
)

// Run registers the component, runs the domain Init and then publishes every
// period until ctx is done. Ticks never overlap.
func (c *ComponentBase) Run(ctx context.Context, period time.Duration) error {
	if period <= 0 {
		return ErrInvalidPeriod
	}

	if err := c.Register(ctx); err != nil {
		return err
	}

	if err := c.domain.Init(); err != nil {
		return fmt.Errorf("init %s: %w", c.name, err)
	}

	return c.publishLoop(ctx, period)
}

func (c *ComponentBase) publishLoop(
	ctx context.Context,
	period time.Duration,
) error {
	ticker := c.clock.Ticker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.Publish()
		}
	}
}
