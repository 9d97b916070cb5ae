// Package pacing enforces a minimum gap between consecutive deployment
// attempts against the same platform.
package pacing

import (
	"context"
	"sync"
	"time"

	"github.com/manideepv28/delopment-netlify/internal/core/domain"
	"github.com/manideepv28/delopment-netlify/internal/shell/clock"
)

// Controller tracks, per platform, when the last attempt completed.
// The gap is measured from completion, so a long retrying unit never
// shortens the window for the next one. Platforms never block each other.
type Controller struct {
	clock     clock.Clock
	delay     time.Duration
	overrides map[domain.PlatformKind]time.Duration

	mu   sync.Mutex
	last map[domain.PlatformKind]time.Time
}

// New creates a controller with a default inter-deployment delay.
// overrides may set a different delay for individual platforms.
func New(delay time.Duration, overrides map[domain.PlatformKind]time.Duration, clk clock.Clock) *Controller {
	if clk == nil {
		clk = clock.Real{}
	}
	o := make(map[domain.PlatformKind]time.Duration, len(overrides))
	for k, v := range overrides {
		o[k] = v
	}
	return &Controller{
		clock:     clk,
		delay:     delay,
		overrides: o,
		last:      make(map[domain.PlatformKind]time.Time),
	}
}

// Delay returns the configured gap for platform.
func (c *Controller) Delay(platform domain.PlatformKind) time.Duration {
	if d, ok := c.overrides[platform]; ok {
		return d
	}
	return c.delay
}

// AwaitTurn blocks until the platform's delay has elapsed since its previous
// attempt completed. The first attempt against a platform never waits.
// It returns ctx.Err() if the context is done first.
func (c *Controller) AwaitTurn(ctx context.Context, platform domain.PlatformKind) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	last, ok := c.last[platform]
	c.mu.Unlock()

	delay := c.Delay(platform)
	if !ok || delay <= 0 {
		return nil
	}

	remaining := delay - c.clock.Now().Sub(last)
	if remaining <= 0 {
		return nil
	}
	return c.clock.Sleep(ctx, remaining)
}

// Completed records that an attempt against platform has just finished.
func (c *Controller) Completed(platform domain.PlatformKind) {
	now := c.clock.Now()
	c.mu.Lock()
	c.last[platform] = now
	c.mu.Unlock()
}

// LastCompleted returns when the previous attempt against platform finished.
func (c *Controller) LastCompleted(platform domain.PlatformKind) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.last[platform]
	return t, ok
}
