// Package quiz runs one timed quiz attempt: identity guard, start
// reconciliation, countdown, autosave and submission.
//
// A Session serializes every event (ticks, answer changes, autosaves,
// unload and submit) on one mutex, so the engines it owns never see
// concurrent calls. Tick and autosave loops run in goroutines that Submit
// and Unload cancel and wait for.
package quiz

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vytor/quizkeeper/internal/clock"
	apperrors "github.com/vytor/quizkeeper/internal/errors"
	"github.com/vytor/quizkeeper/internal/form"
	"github.com/vytor/quizkeeper/internal/keys"
	"github.com/vytor/quizkeeper/internal/logger"
	"github.com/vytor/quizkeeper/internal/notify"
	"github.com/vytor/quizkeeper/internal/resume"
	"github.com/vytor/quizkeeper/internal/snapshot"
	"github.com/vytor/quizkeeper/internal/storage"
	"github.com/vytor/quizkeeper/internal/timer"
)

// State of a Session.
type State int

const (
	NotStarted State = iota
	Running
	Submitted
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not-started"
	case Running:
		return "running"
	case Submitted:
		return "submitted"
	default:
		return "unknown"
	}
}

var (
	ErrIdentityRequired = apperrors.NewValidationError("name", "cannot be empty")
	ErrAlreadyStarted   = apperrors.NewConflictError("quiz already started")
	ErrNotRunning       = apperrors.NewConflictError("quiz is not running")
)

// Reason tells why a submission happened.
type Reason string

const (
	ReasonManual  Reason = "manual"
	ReasonExpired Reason = "expired"
)

// Submission is handed to the Submitter once the session is submitted.
type Submission struct {
	ID          string
	SessionID   string
	QuizID      string
	Name        string
	Answers     map[string]string
	Values      url.Values
	Reason      Reason
	SubmittedAt time.Time
}

// Submitter delivers a finished attempt.
type Submitter interface {
	Submit(ctx context.Context, sub Submission) error
}

// SubmitterFunc adapts a function to Submitter.
type SubmitterFunc func(ctx context.Context, sub Submission) error

func (f SubmitterFunc) Submit(ctx context.Context, sub Submission) error { return f(ctx, sub) }

// Options configure a Session.
type Options struct {
	QuizID string
	Scheme keys.Scheme
	// PerUser scopes persisted state by the normalised user name. When
	// false every user of the quiz shares one persisted attempt.
	PerUser          bool
	Duration         time.Duration
	TickInterval     time.Duration
	AutosaveInterval time.Duration
	SubmitDelay      time.Duration
	Clock            clock.Clock
}

func (o Options) withDefaults() Options {
	if o.Duration <= 0 {
		o.Duration = 45 * time.Minute
	}
	if o.TickInterval <= 0 {
		o.TickInterval = time.Second
	}
	if o.AutosaveInterval <= 0 {
		o.AutosaveInterval = 30 * time.Second
	}
	if o.SubmitDelay < 0 {
		o.SubmitDelay = 0
	}
	if o.Clock == nil {
		o.Clock = clock.System{}
	}
	return o
}

// Deps are the collaborators of a Session. Only Store is required.
type Deps struct {
	Store     storage.Store
	Form      *form.Form
	Decider   resume.Decider
	Notifier  notify.Notifier
	Submitter Submitter
	// Activity is called on every user interaction; the keepalive pinger
	// hooks in here.
	Activity func()
}

// Session is one quiz attempt.
type Session struct {
	id    string
	opts  Options
	store *storage.Adapter
	form  *form.Form
	deps  Deps
	note  notify.Notifier

	mu       sync.Mutex
	state    State
	starting bool
	unloaded bool
	name     string
	key      keys.SessionKey
	timer    *timer.Engine
	snap     *snapshot.Engine
	ctx      context.Context
	cancel   context.CancelFunc
	expiry   *time.Timer
	loops    sync.WaitGroup
	done     chan struct{}
	doneOnce sync.Once
	log      *logger.Logger
}

// New creates a session in NotStarted.
func New(deps Deps, opts Options) *Session {
	s := &Session{
		id:    uuid.NewString(),
		opts:  opts.withDefaults(),
		store: storage.NewAdapter(deps.Store),
		form:  deps.Form,
		deps:  deps,
		note:  deps.Notifier,
		done:  make(chan struct{}),
	}
	if s.note == nil {
		s.note = notify.Nop{}
	}
	s.log = logger.Default().WithPrefix("quiz").WithFields(map[string]any{
		"quiz":    opts.QuizID,
		"session": s.id,
	})
	if s.form != nil {
		s.form.OnChange(s.onChange)
	}
	return s
}

// ID returns the session's unique id.
func (s *Session) ID() string { return s.id }

// State returns the lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Key returns the storage key of the attempt; zero before Start.
func (s *Session) Key() keys.SessionKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key
}

// Remaining returns the time left, zero before Start.
func (s *Session) Remaining() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer == nil {
		return 0
	}
	return s.timer.Remaining()
}

// Done is closed once the session is submitted or unloaded.
func (s *Session) Done() <-chan struct{} { return s.done }

// Start begins the attempt for name. It blocks while the user decides
// whether to resume a persisted attempt. Cancelling ctx afterwards unloads
// the session: progress is kept for a later resume.
func (s *Session) Start(ctx context.Context, name string) (resume.Outcome, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		s.note.IdentityRequired()
		return resume.Outcome{}, ErrIdentityRequired
	}

	s.mu.Lock()
	if s.state != NotStarted || s.starting || s.unloaded {
		s.mu.Unlock()
		return resume.Outcome{}, ErrAlreadyStarted
	}
	s.starting = true
	s.mu.Unlock()

	user := ""
	if s.opts.PerUser {
		user = name
	}
	key, err := s.opts.Scheme.For(s.opts.QuizID, user)
	if err != nil {
		s.abortStart()
		return resume.Outcome{}, err
	}

	log := s.log.WithField("user", keys.NormalizeUser(name))
	ctx = logger.NewContext(ctx, log)
	snap := snapshot.New(s.store, key, s.opts.Clock)

	reconciler := resume.New(s.store, s.deps.Decider, s.opts.Clock)
	reconciler.OnStarted(func(ctx context.Context, ev resume.Started) {
		if s.form == nil {
			return
		}
		s.note.AnswersRestored(snap.RestoreSaved(ctx, s.form))
	})

	outcome, err := reconciler.Reconcile(ctx, key)
	if err != nil {
		s.abortStart()
		return resume.Outcome{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.starting = false
	s.name = name
	s.key = key
	s.snap = snap
	s.timer = timer.New(s.store, key, s.opts.Clock)
	s.ctx = context.WithoutCancel(ctx)
	s.log = log

	if outcome.Mode != resume.ModeResumed {
		s.timer.Start(s.ctx, s.opts.Duration)
	} else if !s.timer.Resume(s.ctx, outcome.Deadline, s.opts.Duration) {
		// The deadline ran out after the decision; the restored answers
		// belong to the expired attempt.
		snap.Clear(s.ctx)
		if s.form != nil {
			s.form.Clear()
		}
		outcome.Mode = resume.ModeExpiredReset
		outcome.Deadline = time.Time{}
	}
	s.state = Running
	log.Info("quiz started (%s), %s remaining", outcome.Mode, s.timer.Remaining().Truncate(time.Second))

	s.tickLocked()

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.loops.Add(2)
	go s.every(loopCtx, s.opts.TickInterval, s.Tick)
	go s.every(loopCtx, s.opts.AutosaveInterval, s.Autosave)
	go func() {
		<-loopCtx.Done()
		if ctx.Err() != nil {
			s.Unload()
		}
	}()

	return outcome, nil
}

func (s *Session) abortStart() {
	s.mu.Lock()
	s.starting = false
	s.mu.Unlock()
}

func (s *Session) every(ctx context.Context, d time.Duration, fn func()) {
	defer s.loops.Done()
	t := time.NewTicker(d)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			fn()
		}
	}
}

// Tick advances the countdown. It is driven by the tick loop and may be
// called directly.
func (s *Session) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Running || s.unloaded {
		return
	}
	s.tickLocked()
}

func (s *Session) tickLocked() {
	r := s.timer.Tick(s.ctx)
	s.note.Countdown(r)
	if r.Expired {
		s.expireLocked()
	}
}

// expireLocked writes the final snapshot and schedules the submit after
// SubmitDelay.
func (s *Session) expireLocked() {
	s.log.Info("time is up")
	s.note.TimeUp()
	if s.form != nil {
		s.snap.Save(s.ctx, s.form)
	}
	ctx := s.ctx
	s.expiry = time.AfterFunc(s.opts.SubmitDelay, func() {
		if err := s.submit(ctx, ReasonExpired); err != nil && !apperrors.Is(err, ErrNotRunning) {
			s.log.Error("automatic submit failed: %v", err)
		}
	})
}

// Answer records a user selection. The change is persisted immediately.
func (s *Session) Answer(questionID, value string) error {
	s.mu.Lock()
	if s.state != Running || s.unloaded {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.mu.Unlock()

	if s.deps.Activity != nil {
		s.deps.Activity()
	}
	if s.form == nil {
		return nil
	}
	return s.form.Select(questionID, value)
}

func (s *Session) onChange(form.Change) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Running || s.unloaded {
		return
	}
	s.saveLocked()
}

// Autosave persists the current answers while the attempt runs.
func (s *Session) Autosave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Running || s.unloaded || s.timer.State() != timer.Armed {
		return
	}
	s.saveLocked()
}

func (s *Session) saveLocked() {
	if s.form == nil {
		return
	}
	n := s.snap.Save(s.ctx, s.form)
	s.note.AnswersSaved(n, s.opts.Clock.Now())
}

// Unload is the best-effort save when the front-end goes away without
// submitting. Persisted state is kept for a later resume.
func (s *Session) Unload() {
	s.mu.Lock()
	if s.state != Running || s.unloaded {
		s.mu.Unlock()
		return
	}
	s.unloaded = true
	if s.form != nil {
		s.snap.Save(s.ctx, s.form)
	}
	s.timer.Stop()
	s.note.LeavingUnsubmitted()
	s.stopLocked()
	s.mu.Unlock()

	s.loops.Wait()
	s.doneOnce.Do(func() { close(s.done) })
	s.log.Info("session unloaded, progress kept for resume")
}

// Submit ends the attempt on user request.
func (s *Session) Submit(ctx context.Context) error {
	if s.deps.Activity != nil {
		s.deps.Activity()
	}
	return s.submit(ctx, ReasonManual)
}

// submit stops both loops, marks the session submitted, clears every
// persisted key and hands the answers to the Submitter, in that order.
func (s *Session) submit(ctx context.Context, reason Reason) error {
	s.mu.Lock()
	if s.state != Running || s.unloaded {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.state = Submitted
	s.timer.Stop()
	s.stopLocked()

	sub := Submission{
		ID:          uuid.NewString(),
		SessionID:   s.id,
		QuizID:      s.opts.QuizID,
		Name:        s.name,
		Answers:     map[string]string{},
		Reason:      reason,
		SubmittedAt: s.opts.Clock.Now(),
	}
	if s.form != nil {
		sub.Answers = s.form.Selected()
		sub.Values = s.form.Values()
	}
	key := s.key
	log := s.log
	s.mu.Unlock()

	s.loops.Wait()
	if err := s.store.RemoveAll(ctx, key.All()...); err != nil {
		log.Warn("could not clear persisted state: %v", err)
	}
	s.doneOnce.Do(func() { close(s.done) })
	log.Info("quiz submitted (%s) with %d answers", reason, len(sub.Answers))

	if s.deps.Submitter == nil {
		return nil
	}
	if err := s.deps.Submitter.Submit(ctx, sub); err != nil {
		return fmt.Errorf("hand off submission: %w", err)
	}
	return nil
}

// stopLocked cancels the loops and any pending automatic submit. Stopping
// an expiry timer that already fired is a no-op.
func (s *Session) stopLocked() {
	if s.expiry != nil {
		s.expiry.Stop()
	}
	if s.cancel != nil {
		s.cancel()
	}
}
