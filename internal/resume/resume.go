// Package resume decides, when a quiz attempt starts, whether to begin
// fresh or continue a persisted attempt.
package resume

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vytor/quizkeeper/internal/clock"
	"github.com/vytor/quizkeeper/internal/keys"
	"github.com/vytor/quizkeeper/internal/logger"
	"github.com/vytor/quizkeeper/internal/storage"
	"github.com/vytor/quizkeeper/internal/timer"
)

// Mode is the path a start took.
type Mode int

const (
	// ModeFresh: nothing was persisted.
	ModeFresh Mode = iota
	// ModeExpiredReset: the persisted deadline had passed; state was cleared.
	ModeExpiredReset
	// ModeResumed: the user chose to continue the persisted attempt.
	ModeResumed
	// ModeDiscarded: the user chose to drop the persisted attempt.
	ModeDiscarded
)

func (m Mode) String() string {
	switch m {
	case ModeFresh:
		return "fresh"
	case ModeExpiredReset:
		return "expired-reset"
	case ModeResumed:
		return "resumed"
	case ModeDiscarded:
		return "discarded"
	default:
		return "unknown"
	}
}

// Choice is the user's answer to the resume prompt.
type Choice int

const (
	ChoiceResume Choice = iota
	ChoiceDiscard
)

// Prompt is what the user is asked about.
type Prompt struct {
	Key       keys.SessionKey
	Deadline  time.Time
	Remaining time.Duration
}

// Message renders the prompt the way it is shown to users.
func (p Prompt) Message() string {
	return fmt.Sprintf("You have a saved quiz in progress with %d minutes remaining. Resume?", int(p.Remaining/time.Minute))
}

// Decider supplies the user's choice. Decide blocks until the decision
// arrives or ctx is done.
type Decider interface {
	Decide(ctx context.Context, p Prompt) (Choice, error)
}

// DeciderFunc adapts a function to Decider.
type DeciderFunc func(ctx context.Context, p Prompt) (Choice, error)

func (f DeciderFunc) Decide(ctx context.Context, p Prompt) (Choice, error) { return f(ctx, p) }

// Always answers every prompt with c.
func Always(c Choice) Decider {
	return DeciderFunc(func(context.Context, Prompt) (Choice, error) { return c, nil })
}

// ChannelDecider publishes prompts and waits for the matching decision
// event, letting a UI loop answer asynchronously.
type ChannelDecider struct {
	prompts   chan Prompt
	decisions chan Choice
}

func NewChannelDecider() *ChannelDecider {
	return &ChannelDecider{prompts: make(chan Prompt, 1), decisions: make(chan Choice)}
}

// Prompts delivers pending prompts to the UI.
func (d *ChannelDecider) Prompts() <-chan Prompt { return d.prompts }

// Resolve delivers the user's decision. It blocks until Decide receives it
// or ctx is done.
func (d *ChannelDecider) Resolve(ctx context.Context, c Choice) error {
	select {
	case d.decisions <- c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *ChannelDecider) Decide(ctx context.Context, p Prompt) (Choice, error) {
	select {
	case d.prompts <- p:
	case <-ctx.Done():
		return ChoiceDiscard, ctx.Err()
	}
	select {
	case c := <-d.decisions:
		return c, nil
	case <-ctx.Done():
		return ChoiceDiscard, ctx.Err()
	}
}

// Outcome is the result of reconciling one start.
type Outcome struct {
	Key  keys.SessionKey
	Mode Mode
	// Deadline is the persisted deadline when Mode is ModeResumed and zero
	// otherwise; callers start a fresh countdown for the other modes.
	Deadline time.Time
}

// Started is emitted once the start path is decided. Consumers use it to
// restore answers into the now-visible form.
type Started struct {
	Outcome
}

// Reconciler compares persisted timer state with the clock.
type Reconciler struct {
	store   *storage.Adapter
	clock   clock.Clock
	decider Decider

	mu        sync.Mutex
	listeners []func(context.Context, Started)
}

func New(store *storage.Adapter, decider Decider, clk clock.Clock) *Reconciler {
	if clk == nil {
		clk = clock.System{}
	}
	if decider == nil {
		decider = Always(ChoiceResume)
	}
	return &Reconciler{store: store, decider: decider, clock: clk}
}

// OnStarted registers fn to receive the Started event of every successful
// reconciliation.
func (r *Reconciler) OnStarted(fn func(context.Context, Started)) {
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

// Reconcile decides how the attempt under key starts. Stale state is
// cleared on every path except ModeResumed. A past deadline never leads to
// an automatic submit: it resets to a fresh start. An error is returned
// only when the decision was abandoned through ctx.
func (r *Reconciler) Reconcile(ctx context.Context, key keys.SessionKey) (Outcome, error) {
	log := logger.FromContext(ctx).WithPrefix("resume").WithField("session", key.String())
	now := r.clock.Now()
	out := Outcome{Key: key}

	deadline, ok := timer.Load(ctx, r.store, key, now)
	switch {
	case !ok:
		log.Debug("no persisted attempt")
		out.Mode = ModeFresh
		r.clear(ctx, key)

	case timer.DeadlinePassed(deadline, now):
		log.Info("persisted attempt expired at %s, starting fresh", deadline.Format(time.RFC3339))
		out.Mode = ModeExpiredReset
		r.clear(ctx, key)

	default:
		p := Prompt{Key: key, Deadline: deadline, Remaining: deadline.Sub(now)}
		log.Info("persisted attempt found with %s remaining, asking user", p.Remaining.Truncate(time.Second))
		choice, err := r.decider.Decide(ctx, p)
		if err != nil {
			log.Warn("resume decision abandoned: %v", err)
			return Outcome{}, fmt.Errorf("resume decision: %w", err)
		}
		switch {
		case choice != ChoiceResume:
			out.Mode = ModeDiscarded
			r.clear(ctx, key)
		case timer.DeadlinePassed(deadline, r.clock.Now()):
			log.Info("persisted attempt expired while the user decided, starting fresh")
			out.Mode = ModeExpiredReset
			r.clear(ctx, key)
		default:
			out.Mode = ModeResumed
			out.Deadline = deadline
		}
	}

	log.Info("start path: %s", out.Mode)
	r.emit(ctx, Started{Outcome: out})
	return out, nil
}

func (r *Reconciler) clear(ctx context.Context, key keys.SessionKey) {
	_ = r.store.RemoveAll(ctx, key.All()...)
}

func (r *Reconciler) emit(ctx context.Context, ev Started) {
	r.mu.Lock()
	listeners := append([]func(context.Context, Started){}, r.listeners...)
	r.mu.Unlock()
	for _, fn := range listeners {
		fn(ctx, ev)
	}
}
