// Package snapshot captures the selected answers of a form, persists them
// under a session key and restores them into a form after a restart.
package snapshot

import (
	"context"
	"time"

	"github.com/vytor/quizkeeper/internal/clock"
	"github.com/vytor/quizkeeper/internal/keys"
	"github.com/vytor/quizkeeper/internal/logger"
	"github.com/vytor/quizkeeper/internal/storage"
)

// TimeLayout is ISO-8601 with milliseconds, matching what browsers write
// for Date.toISOString.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Form is the part of a quiz form the engine reads and writes.
type Form interface {
	Selected() map[string]string
	// Mark selects value without emitting a change; false when the question
	// or option does not exist.
	Mark(questionID, value string) bool
}

// Snapshot maps question ids to the selected option value.
type Snapshot struct {
	Answers map[string]string
	SavedAt time.Time
}

// Len returns the number of answered questions.
func (s Snapshot) Len() int {
	return len(s.Answers)
}

// Engine persists snapshots for one session key.
type Engine struct {
	store *storage.Adapter
	key   keys.SessionKey
	clock clock.Clock
	log   *logger.Logger
}

func New(store *storage.Adapter, key keys.SessionKey, clk clock.Clock) *Engine {
	if clk == nil {
		clk = clock.System{}
	}
	return &Engine{
		store: store,
		key:   key,
		clock: clk,
		log:   logger.Default().WithPrefix("snapshot").WithField("session", key.String()),
	}
}

// Capture reads the current selections. A nil form yields an empty snapshot.
func (e *Engine) Capture(f Form) Snapshot {
	s := Snapshot{Answers: map[string]string{}, SavedAt: e.clock.Now()}
	if f == nil {
		return s
	}
	for q, v := range f.Selected() {
		s.Answers[q] = v
	}
	return s
}

// Persist writes the answers and the save time. It returns the number of
// answers written.
func (e *Engine) Persist(ctx context.Context, s Snapshot) (int, error) {
	answers := s.Answers
	if answers == nil {
		answers = map[string]string{}
	}
	if err := e.store.SetJSON(ctx, e.key.Answers(), answers); err != nil {
		return 0, err
	}
	savedAt := s.SavedAt
	if savedAt.IsZero() {
		savedAt = e.clock.Now()
	}
	if err := e.store.Set(ctx, e.key.SaveTime(), savedAt.UTC().Format(TimeLayout)); err != nil {
		return 0, err
	}
	e.log.Debug("saved %d answers", len(answers))
	return len(answers), nil
}

// Save captures f and persists it, logging failures. It returns the number
// of answers saved, zero when the write failed.
func (e *Engine) Save(ctx context.Context, f Form) int {
	n, err := e.Persist(ctx, e.Capture(f))
	if err != nil {
		e.log.Warn("autosave failed, answers kept in memory only: %v", err)
		return 0
	}
	return n
}

// Load reads the persisted snapshot. Missing or malformed answers report
// false; a missing or malformed save time leaves SavedAt zero.
func (e *Engine) Load(ctx context.Context) (Snapshot, bool) {
	var answers map[string]string
	if !e.store.GetJSON(ctx, e.key.Answers(), &answers) || answers == nil {
		return Snapshot{}, false
	}
	s := Snapshot{Answers: answers}
	if raw, ok := e.store.Get(ctx, e.key.SaveTime()); ok {
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			s.SavedAt = t
		}
	}
	return s, true
}

// Restore marks every snapshot answer that still exists in f and returns
// how many matched. Answers for questions or options f no longer offers are
// skipped.
func (e *Engine) Restore(f Form, s Snapshot) int {
	if f == nil {
		return 0
	}
	restored := 0
	for q, v := range s.Answers {
		if f.Mark(q, v) {
			restored++
		}
	}
	if skipped := len(s.Answers) - restored; skipped > 0 {
		e.log.Debug("skipped %d saved answers not present in the form", skipped)
	}
	return restored
}

// RestoreSaved loads the persisted snapshot into f.
func (e *Engine) RestoreSaved(ctx context.Context, f Form) int {
	s, ok := e.Load(ctx)
	if !ok {
		return 0
	}
	n := e.Restore(f, s)
	e.log.Info("restored %d of %d saved answers", n, s.Len())
	return n
}

// Clear removes the persisted answers and save time.
func (e *Engine) Clear(ctx context.Context) {
	_ = e.store.RemoveAll(ctx, e.key.Answers(), e.key.SaveTime())
}
