// Package notify is the user-facing side of a quiz session: countdown
// display, the time-up notice, save and restore feedback.
package notify

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/vytor/quizkeeper/internal/logger"
	"github.com/vytor/quizkeeper/internal/timer"
)

// Notifier receives session events worth showing to the user.
type Notifier interface {
	Countdown(r timer.Reading)
	TimeUp()
	AnswersRestored(n int)
	AnswersSaved(n int, at time.Time)
	IdentityRequired()
	// LeavingUnsubmitted fires when a running session is unloaded.
	LeavingUnsubmitted()
}

// Nop ignores every event.
type Nop struct{}

func (Nop) Countdown(timer.Reading)     {}
func (Nop) TimeUp()                     {}
func (Nop) AnswersRestored(int)         {}
func (Nop) AnswersSaved(int, time.Time) {}
func (Nop) IdentityRequired()           {}
func (Nop) LeavingUnsubmitted()         {}

// Log writes events to a logger.
type Log struct {
	Logger *logger.Logger
}

func (l Log) log() *logger.Logger {
	if l.Logger == nil {
		return logger.Default().WithPrefix("notify")
	}
	return l.Logger
}

func (l Log) Countdown(r timer.Reading) {
	if r.Critical {
		l.log().Debug("%s (critical)", r.Text)
	}
}

func (l Log) TimeUp() { l.log().Info("time is up, submitting answers") }

func (l Log) AnswersRestored(n int) {
	if n > 0 {
		l.log().Info("recovered %d saved answers", n)
	}
}

func (l Log) AnswersSaved(n int, at time.Time) {
	l.log().Debug("auto-saved %d answers at %s", n, at.Format(time.TimeOnly))
}

func (l Log) IdentityRequired() { l.log().Warn("a name is required before starting") }

func (l Log) LeavingUnsubmitted() { l.log().Warn("leaving an unsubmitted quiz; progress is saved locally") }

// Terminal renders events as text lines. The countdown is printed once a
// minute, and every second once it turns critical.
type Terminal struct {
	mu  sync.Mutex
	out io.Writer
}

func NewTerminal(out io.Writer) *Terminal {
	return &Terminal{out: out}
}

func (t *Terminal) printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, format+"\n", args...)
}

func (t *Terminal) Countdown(r timer.Reading) {
	switch {
	case r.Critical && r.Blink:
		t.printf("\033[31;40m %s \033[0m", r.Text)
	case r.Critical:
		t.printf("\033[97;41m %s \033[0m", r.Text)
	case r.Seconds%60 == 0:
		t.printf("%s", r.Text)
	}
}

func (t *Terminal) TimeUp() { t.printf("Time is up! Submitting your answers...") }

func (t *Terminal) AnswersRestored(n int) {
	if n > 0 {
		t.printf("✓ Recovered %d saved answers", n)
	}
}

func (t *Terminal) AnswersSaved(n int, at time.Time) {
	t.printf("Auto-saved %d answers at %s", n, at.Format(time.TimeOnly))
}

func (t *Terminal) IdentityRequired() { t.printf("Please enter your name before starting the test!") }

func (t *Terminal) LeavingUnsubmitted() {
	t.printf("Your quiz is not submitted. Answers are saved on this device; start again with the same name to resume.")
}
