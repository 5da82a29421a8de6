// Package keepalive keeps the quiz server warm during long attempts: a
// periodic ping plus an extra ping on user activity after an idle spell.
// Failures are logged and never retried.
package keepalive

import (
	"context"
	"sync"
	"time"

	"github.com/vytor/quizkeeper/internal/clock"
	"github.com/vytor/quizkeeper/internal/logger"
)

const (
	DefaultInterval = 5 * time.Minute
	DefaultIdle     = 4 * time.Minute
)

// Target is pinged.
type Target interface {
	Keepalive(ctx context.Context) error
}

// TargetFunc adapts a function to Target.
type TargetFunc func(ctx context.Context) error

func (f TargetFunc) Keepalive(ctx context.Context) error { return f(ctx) }

type Pinger struct {
	target   Target
	interval time.Duration
	idle     time.Duration
	clock    clock.Clock
	log      *logger.Logger

	mu   sync.Mutex
	last time.Time
}

// New returns a pinger. The idle window starts now.
func New(target Target, interval, idle time.Duration, clk clock.Clock) *Pinger {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if idle <= 0 {
		idle = DefaultIdle
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &Pinger{
		target:   target,
		interval: interval,
		idle:     idle,
		clock:    clk,
		log:      logger.Default().WithPrefix("keepalive"),
		last:     clk.Now(),
	}
}

// Ping pings the target once.
func (p *Pinger) Ping(ctx context.Context) error {
	p.mu.Lock()
	p.last = p.clock.Now()
	p.mu.Unlock()
	return p.ping(ctx)
}

func (p *Pinger) ping(ctx context.Context) error {
	if err := p.target.Keepalive(ctx); err != nil {
		p.log.Warn("keepalive failed: %v", err)
		return err
	}
	p.log.Debug("keepalive ok")
	return nil
}

// Touch records user activity and pings when the last ping is older than
// the idle window. It reports whether a ping was sent.
func (p *Pinger) Touch(ctx context.Context) bool {
	p.mu.Lock()
	now := p.clock.Now()
	if now.Sub(p.last) <= p.idle {
		p.mu.Unlock()
		return false
	}
	p.last = now
	p.mu.Unlock()

	_ = p.ping(ctx)
	return true
}

// Run pings every interval until ctx is done.
func (p *Pinger) Run(ctx context.Context) {
	t := time.NewTicker(p.interval)
	defer t.Stop()
	p.log.Debug("keepalive every %s", p.interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			_ = p.Ping(ctx)
		}
	}
}
