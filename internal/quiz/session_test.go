package quiz_test

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vytor/quizkeeper/internal/clock"
	"github.com/vytor/quizkeeper/internal/form"
	"github.com/vytor/quizkeeper/internal/keys"
	"github.com/vytor/quizkeeper/internal/quiz"
	"github.com/vytor/quizkeeper/internal/resume"
	"github.com/vytor/quizkeeper/internal/storage"
	"github.com/vytor/quizkeeper/internal/testutil"
	"github.com/vytor/quizkeeper/internal/testutil/mocks"
)

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func questions() []form.Question {
	opts := []form.Option{{Value: "A", Label: "a"}, {Value: "B", Label: "b"}, {Value: "C", Label: "c"}, {Value: "D", Label: "d"}}
	return []form.Question{
		{ID: "1", Text: "first", Options: opts},
		{ID: "2", Text: "second", Options: opts},
	}
}

type harness struct {
	mem       *storage.MemoryStore
	clock     *testutil.Clock
	form      *form.Form
	submitted chan quiz.Submission
	key       keys.SessionKey
}

func newHarness(t *testing.T) *harness {
	key, err := keys.Scheme{Prefix: "quiz"}.For("4", "Jane")
	require.NoError(t, err)
	return &harness{
		mem:       storage.NewMemoryStore(0),
		clock:     testutil.NewClock(epoch),
		form:      form.New(questions()),
		submitted: make(chan quiz.Submission, 1),
		key:       key,
	}
}

func (h *harness) session(deps quiz.Deps) *quiz.Session {
	deps.Store = h.mem
	deps.Form = h.form
	if deps.Submitter == nil {
		deps.Submitter = quiz.SubmitterFunc(func(_ context.Context, sub quiz.Submission) error {
			h.submitted <- sub
			return nil
		})
	}
	return quiz.New(deps, quiz.Options{
		QuizID:           "4",
		Scheme:           keys.Scheme{Prefix: "quiz"},
		PerUser:          true,
		Duration:         2700 * time.Second,
		TickInterval:     time.Hour,
		AutosaveInterval: time.Hour,
		SubmitDelay:      10 * time.Millisecond,
		Clock:            h.clock,
	})
}

func (h *harness) get(t *testing.T, key string) (string, bool) {
	v, err := h.mem.Get(context.Background(), key)
	if errors.Is(err, storage.ErrNotFound) {
		return "", false
	}
	require.NoError(t, err)
	return v, true
}

func (h *harness) waitSubmitted(t *testing.T) quiz.Submission {
	select {
	case sub := <-h.submitted:
		return sub
	case <-time.After(2 * time.Second):
		t.Fatal("no submission")
		return quiz.Submission{}
	}
}

func TestSession_FreshAttemptRunsToExpiry(t *testing.T) {
	h := newHarness(t)
	note := new(mocks.MockNotifier)
	note.On("AnswersRestored", 0).Once()
	note.On("TimeUp").Once()
	s := h.session(quiz.Deps{Notifier: note})

	out, err := s.Start(context.Background(), "  Jane ")
	require.NoError(t, err)
	assert.Equal(t, resume.ModeFresh, out.Mode)
	assert.Equal(t, quiz.Running, s.State())
	assert.Equal(t, 2700*time.Second, s.Remaining())

	end, ok := h.get(t, h.key.EndTime())
	require.True(t, ok)
	assert.Equal(t, "1772358300000", end)

	require.NoError(t, s.Answer("1", "B"))
	answers, _ := h.get(t, h.key.Answers())
	assert.JSONEq(t, `{"1":"B"}`, answers)
	saved, _ := h.get(t, h.key.SaveTime())
	assert.Equal(t, "2026-03-01T09:00:00.000Z", saved)

	h.clock.Advance(2700 * time.Second)
	s.Tick()

	sub := h.waitSubmitted(t)
	assert.Equal(t, quiz.ReasonExpired, sub.Reason)
	assert.Equal(t, "Jane", sub.Name)
	assert.Equal(t, "4", sub.QuizID)
	assert.Equal(t, map[string]string{"1": "B"}, sub.Answers)
	assert.Equal(t, "B", sub.Values.Get("q1"))
	assert.NotEmpty(t, sub.ID)

	<-s.Done()
	assert.Equal(t, quiz.Submitted, s.State())
	assert.Equal(t, 0, h.mem.Len(), "submission clears persisted state")
	note.AssertExpectations(t)
}

func TestSession_ResumeRestoresAnswersAndDeadline(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	deadline := epoch.Add(1700 * time.Second)
	require.NoError(t, h.mem.Set(ctx, h.key.EndTime(), "1772357300000"))
	require.NoError(t, h.mem.Set(ctx, h.key.Answers(), `{"1":"C","2":"A"}`))
	require.NoError(t, h.mem.Set(ctx, h.key.SaveTime(), "2026-03-01T08:59:00.000Z"))

	decider := new(mocks.MockDecider)
	decider.On("Decide", mock.Anything, mock.MatchedBy(func(p resume.Prompt) bool {
		return p.Remaining == 1700*time.Second
	})).Return(resume.ChoiceResume, nil).Once()
	note := new(mocks.MockNotifier)
	note.On("AnswersRestored", 2).Once()
	s := h.session(quiz.Deps{Decider: decider, Notifier: note})

	out, err := s.Start(ctx, "jane")
	require.NoError(t, err)

	assert.Equal(t, resume.ModeResumed, out.Mode)
	assert.Equal(t, clock.EpochMillis(deadline), clock.EpochMillis(out.Deadline))
	assert.Equal(t, 1700*time.Second, s.Remaining())
	assert.Equal(t, map[string]string{"1": "C", "2": "A"}, h.form.Selected())
	decider.AssertExpectations(t)
	note.AssertExpectations(t)
}

func TestSession_PastDeadlineStartsFreshWithoutSubmitting(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.mem.Set(ctx, h.key.EndTime(), "1772355500000"))
	require.NoError(t, h.mem.Set(ctx, h.key.Answers(), `{"1":"C"}`))
	decider := new(mocks.MockDecider)
	s := h.session(quiz.Deps{Decider: decider})

	out, err := s.Start(ctx, "Jane")
	require.NoError(t, err)

	assert.Equal(t, resume.ModeExpiredReset, out.Mode)
	assert.Equal(t, 2700*time.Second, s.Remaining())
	assert.Empty(t, h.form.Selected())
	_, ok := h.get(t, h.key.Answers())
	assert.False(t, ok)
	select {
	case <-h.submitted:
		t.Fatal("an expired attempt must not be auto-submitted")
	case <-time.After(50 * time.Millisecond):
	}
	decider.AssertNotCalled(t, "Decide", mock.Anything, mock.Anything)
}

func TestSession_IdentityRequired(t *testing.T) {
	h := newHarness(t)
	note := new(mocks.MockNotifier)
	note.On("IdentityRequired").Once()
	s := h.session(quiz.Deps{Notifier: note})

	_, err := s.Start(context.Background(), "   ")

	assert.ErrorIs(t, err, quiz.ErrIdentityRequired)
	assert.Equal(t, quiz.NotStarted, s.State())
	assert.Equal(t, 0, h.mem.Len())
	note.AssertExpectations(t)
}

func TestSession_ManualSubmit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	s := h.session(quiz.Deps{})

	assert.ErrorIs(t, s.Answer("1", "A"), quiz.ErrNotRunning)

	_, err := s.Start(ctx, "Jane")
	require.NoError(t, err)
	_, err = s.Start(ctx, "Jane")
	assert.ErrorIs(t, err, quiz.ErrAlreadyStarted)

	require.NoError(t, s.Answer("2", "D"))
	assert.ErrorIs(t, s.Answer("2", "Z"), form.ErrUnknownOption)

	require.NoError(t, s.Submit(ctx))
	sub := h.waitSubmitted(t)
	assert.Equal(t, quiz.ReasonManual, sub.Reason)
	assert.Equal(t, map[string]string{"2": "D"}, sub.Answers)
	assert.Equal(t, s.ID(), sub.SessionID)
	assert.Equal(t, 0, h.mem.Len())

	assert.ErrorIs(t, s.Submit(ctx), quiz.ErrNotRunning)
	assert.ErrorIs(t, s.Answer("1", "A"), quiz.ErrNotRunning)
}

func TestSession_SubmitHandOffError(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	submitter := new(mocks.MockSubmitter)
	submitter.On("Submit", mock.Anything, mock.AnythingOfType("quiz.Submission")).Return(errors.New("offline")).Once()
	s := h.session(quiz.Deps{Submitter: submitter})

	_, err := s.Start(ctx, "Jane")
	require.NoError(t, err)
	err = s.Submit(ctx)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "offline")
	assert.Equal(t, quiz.Submitted, s.State())
	submitter.AssertExpectations(t)
}

func TestSession_UnloadKeepsProgress(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	note := new(mocks.MockNotifier)
	note.On("AnswersRestored", 0).Once()
	note.On("LeavingUnsubmitted").Once()
	s := h.session(quiz.Deps{Notifier: note})

	_, err := s.Start(ctx, "Jane")
	require.NoError(t, err)
	require.NoError(t, s.Answer("1", "A"))
	h.clock.Advance(10 * time.Minute)
	s.Unload()

	<-s.Done()
	answers, ok := h.get(t, h.key.Answers())
	require.True(t, ok)
	assert.JSONEq(t, `{"1":"A"}`, answers)
	_, ok = h.get(t, h.key.EndTime())
	assert.True(t, ok)
	assert.ErrorIs(t, s.Submit(ctx), quiz.ErrNotRunning)
	note.AssertExpectations(t)

	// A new session for the same user picks the attempt up again.
	next := h.session(quiz.Deps{Decider: resume.Always(resume.ChoiceResume)})
	h.form.Clear()
	out, err := next.Start(ctx, "JANE")
	require.NoError(t, err)
	assert.Equal(t, resume.ModeResumed, out.Mode)
	assert.Equal(t, 35*time.Minute, next.Remaining())
	assert.Equal(t, map[string]string{"1": "A"}, h.form.Selected())
}

func TestSession_AutosaveWritesSnapshot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	s := h.session(quiz.Deps{})
	_, err := s.Start(ctx, "Jane")
	require.NoError(t, err)

	h.form.Mark("2", "C")
	h.clock.Advance(30 * time.Second)
	s.Autosave()

	answers, _ := h.get(t, h.key.Answers())
	assert.JSONEq(t, `{"2":"C"}`, answers)
	saved, _ := h.get(t, h.key.SaveTime())
	assert.Equal(t, "2026-03-01T09:00:30.000Z", saved)
}

func TestSession_ActivityHook(t *testing.T) {
	h := newHarness(t)
	calls := 0
	s := h.session(quiz.Deps{Activity: func() { calls++ }})
	_, err := s.Start(context.Background(), "Jane")
	require.NoError(t, err)

	require.NoError(t, s.Answer("1", "A"))
	require.NoError(t, s.Submit(context.Background()))
	h.waitSubmitted(t)

	assert.Equal(t, 2, calls)
}

func TestSession_SharedKeyWhenNotPerUser(t *testing.T) {
	mem := storage.NewMemoryStore(0)
	s := quiz.New(quiz.Deps{Store: mem}, quiz.Options{QuizID: "9", Clock: testutil.NewClock(epoch), TickInterval: time.Hour})
	_, err := s.Start(context.Background(), "Anyone")
	require.NoError(t, err)
	defer s.Unload()

	assert.Equal(t, "quiz_9", s.Key().String())
	v, err := mem.Get(context.Background(), "quiz_9_end_time")
	require.NoError(t, err)
	assert.Equal(t, "1772358300000", v)
}

func TestSession_DeadlinePassingDuringPromptStartsFresh(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.mem.Set(ctx, h.key.EndTime(), "1772357300000"))
	require.NoError(t, h.mem.Set(ctx, h.key.Answers(), `{"1":"C"}`))

	// The user sits on the prompt longer than the 1700s that were left.
	decider := resume.DeciderFunc(func(context.Context, resume.Prompt) (resume.Choice, error) {
		h.clock.Advance(1800 * time.Second)
		return resume.ChoiceResume, nil
	})
	s := h.session(quiz.Deps{Decider: decider})

	out, err := s.Start(ctx, "Jane")
	require.NoError(t, err)
	defer s.Unload()

	assert.Equal(t, resume.ModeExpiredReset, out.Mode)
	assert.True(t, out.Deadline.IsZero())
	assert.Equal(t, 2700*time.Second, s.Remaining())
	assert.Empty(t, h.form.Selected())
	_, ok := h.get(t, h.key.Answers())
	assert.False(t, ok)
}

func TestSession_DeadlinePassingBeforeTimerArmsClearsRestoredAnswers(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.mem.Set(ctx, h.key.EndTime(), "1772357300000"))
	require.NoError(t, h.mem.Set(ctx, h.key.Answers(), `{"1":"C"}`))
	require.NoError(t, h.mem.Set(ctx, h.key.SaveTime(), "2026-03-01T08:59:00.000Z"))

	note := new(mocks.MockNotifier)
	note.On("AnswersRestored", 1).Run(func(mock.Arguments) {
		h.clock.Advance(1700 * time.Second)
	}).Once()
	note.On("LeavingUnsubmitted").Maybe()
	s := h.session(quiz.Deps{Decider: resume.Always(resume.ChoiceResume), Notifier: note})

	out, err := s.Start(ctx, "Jane")
	require.NoError(t, err)
	defer s.Unload()

	assert.Equal(t, resume.ModeExpiredReset, out.Mode)
	assert.Equal(t, 2700*time.Second, s.Remaining())
	assert.Empty(t, h.form.Selected())
	_, ok := h.get(t, h.key.Answers())
	assert.False(t, ok)
	_, ok = h.get(t, h.key.SaveTime())
	assert.False(t, ok)
	select {
	case <-h.submitted:
		t.Fatal("an expired attempt must not be auto-submitted")
	case <-time.After(50 * time.Millisecond):
	}
	note.AssertExpectations(t)
}

func TestSession_SubSecondDeadlineIsNotOffered(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.mem.Set(ctx, h.key.EndTime(), strconv.FormatInt(clock.EpochMillis(epoch.Add(500*time.Millisecond)), 10)))
	require.NoError(t, h.mem.Set(ctx, h.key.Answers(), `{"1":"C"}`))
	decider := new(mocks.MockDecider)
	s := h.session(quiz.Deps{Decider: decider})

	out, err := s.Start(ctx, "Jane")
	require.NoError(t, err)
	defer s.Unload()
	s.Tick()

	assert.Equal(t, resume.ModeExpiredReset, out.Mode)
	assert.Equal(t, quiz.Running, s.State())
	assert.Empty(t, h.form.Selected())
	select {
	case <-h.submitted:
		t.Fatal("an expired attempt must not be auto-submitted")
	case <-time.After(50 * time.Millisecond):
	}
	decider.AssertNotCalled(t, "Decide", mock.Anything, mock.Anything)
}

func TestSession_CancelledContextUnloads(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	s := h.session(quiz.Deps{})

	_, err := s.Start(ctx, "Jane")
	require.NoError(t, err)
	require.NoError(t, s.Answer("2", "B"))
	cancel()

	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session not unloaded after cancel")
	}
	answers, ok := h.get(t, h.key.Answers())
	require.True(t, ok)
	assert.JSONEq(t, `{"2":"B"}`, answers)
	_, ok = h.get(t, h.key.EndTime())
	assert.True(t, ok)
	assert.ErrorIs(t, s.Submit(context.Background()), quiz.ErrNotRunning)
}
