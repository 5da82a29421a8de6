// Package timer implements the quiz countdown. The canonical state is an
// absolute deadline, persisted in epoch milliseconds on every tick, so the
// remaining time never drifts with tick jitter and survives a restart.
package timer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vytor/quizkeeper/internal/clock"
	"github.com/vytor/quizkeeper/internal/keys"
	"github.com/vytor/quizkeeper/internal/logger"
	"github.com/vytor/quizkeeper/internal/storage"
)

// CriticalThreshold is the remaining time at or below which the display
// switches to its blinking critical appearance.
const CriticalThreshold = 60 * time.Second

// State of an Engine.
type State int

const (
	Idle State = iota
	Armed
	Expired
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Expired:
		return "expired"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Reading is what one tick reports to the display.
type Reading struct {
	Remaining time.Duration
	Seconds   int
	// Expired is set only on the tick that crossed the deadline.
	Expired  bool
	Critical bool
	// Blink alternates each second while Critical.
	Blink bool
	Text  string
}

// NewReading derives the display state for remaining.
func NewReading(remaining time.Duration) Reading {
	if remaining < 0 {
		remaining = 0
	}
	secs := int(remaining / time.Second)
	return Reading{
		Remaining: remaining,
		Seconds:   secs,
		Critical:  remaining <= CriticalThreshold,
		Blink:     remaining <= CriticalThreshold && secs%2 == 0,
		Text:      fmt.Sprintf("Time Left : %02d: %02d", secs/60, secs%60),
	}
}

// DeadlinePassed reports whether less than one whole second is left
// before deadline at now. Both the countdown and the resume decision use it.
func DeadlinePassed(deadline, now time.Time) bool {
	return deadline.Sub(now) < time.Second
}

// Engine counts down to a deadline and persists it under a session key.
type Engine struct {
	store *storage.Adapter
	key   keys.SessionKey
	clock clock.Clock
	log   *logger.Logger

	mu       sync.Mutex
	state    State
	deadline time.Time
}

// New returns an idle engine.
func New(store *storage.Adapter, key keys.SessionKey, clk clock.Clock) *Engine {
	if clk == nil {
		clk = clock.System{}
	}
	return &Engine{
		store: store,
		key:   key,
		clock: clk,
		log:   logger.Default().WithPrefix("timer").WithField("session", key.String()),
	}
}

// Start arms the engine with a fresh deadline duration from now.
func (e *Engine) Start(ctx context.Context, duration time.Duration) time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.deadline = e.clock.Now().Add(duration).Truncate(time.Millisecond)
	e.state = Armed
	e.persist(ctx)
	e.log.Info("countdown started: %s, deadline %s", duration, e.deadline.Format(time.RFC3339))
	return e.deadline
}

// Resume arms the engine with a persisted deadline. A deadline less than a
// second away is discarded and the engine starts fresh with fallback
// instead; Resume then returns false.
func (e *Engine) Resume(ctx context.Context, deadline time.Time, fallback time.Duration) bool {
	e.mu.Lock()
	now := e.clock.Now()
	if !DeadlinePassed(deadline, now) {
		e.deadline = deadline
		e.state = Armed
		e.persist(ctx)
		e.mu.Unlock()
		e.log.Info("countdown resumed with %s remaining", deadline.Sub(now).Truncate(time.Second))
		return true
	}
	e.mu.Unlock()

	e.log.Info("persisted deadline already passed, starting fresh")
	e.Start(ctx, fallback)
	return false
}

// Tick recomputes the remaining time and persists the deadline. The tick
// that reaches zero moves the engine to Expired and reports Expired once;
// later ticks are inert.
func (e *Engine) Tick(ctx context.Context) Reading {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != Armed {
		return NewReading(e.remainingLocked())
	}

	r := NewReading(e.remainingLocked())
	if DeadlinePassed(e.deadline, e.clock.Now()) {
		e.state = Expired
		r.Expired = true
		e.log.Info("countdown expired")
		return r
	}
	e.persist(ctx)
	return r
}

// Stop disarms the engine without touching persisted state.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Expired {
		e.state = Stopped
	}
}

// State returns the current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Deadline returns the armed deadline, zero while idle.
func (e *Engine) Deadline() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.deadline
}

// Remaining returns max(0, deadline-now).
func (e *Engine) Remaining() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.remainingLocked()
}

func (e *Engine) remainingLocked() time.Duration {
	if e.deadline.IsZero() {
		return 0
	}
	d := e.deadline.Sub(e.clock.Now())
	if d < 0 {
		return 0
	}
	return d
}

func (e *Engine) persist(ctx context.Context) {
	// Best-effort: the in-memory deadline stays authoritative.
	_ = e.store.SetInt64(ctx, e.key.EndTime(), clock.EpochMillis(e.deadline))
}

// Load reads the persisted deadline for key. The deadline key wins; when
// only the legacy remaining-seconds counter exists it is converted to a
// deadline relative to now.
func Load(ctx context.Context, store *storage.Adapter, key keys.SessionKey, now time.Time) (time.Time, bool) {
	if ms, ok := store.GetInt64(ctx, key.EndTime()); ok && ms > 0 {
		return clock.FromEpochMillis(ms), true
	}
	if secs, ok := store.GetInt64(ctx, key.LegacyTimer()); ok {
		logger.FromContext(ctx).WithPrefix("timer").Debug("converting legacy counter %ds for %s", secs, key)
		return now.Add(time.Duration(secs) * time.Second), true
	}
	return time.Time{}, false
}
