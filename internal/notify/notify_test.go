package notify_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/vytor/quizkeeper/internal/notify"
	"github.com/vytor/quizkeeper/internal/timer"
)

func TestTerminal_CountdownThrottling(t *testing.T) {
	var buf bytes.Buffer
	term := notify.NewTerminal(&buf)

	term.Countdown(timer.NewReading(2700 * time.Second))
	term.Countdown(timer.NewReading(2699 * time.Second))
	term.Countdown(timer.NewReading(59 * time.Second))
	term.Countdown(timer.NewReading(58 * time.Second))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 3)
	assert.Contains(t, lines[0], "Time Left : 45: 00")
	assert.Contains(t, lines[1], "\033[97;41m")
	assert.Contains(t, lines[2], "\033[31;40m")
}

func TestTerminal_Messages(t *testing.T) {
	var buf bytes.Buffer
	term := notify.NewTerminal(&buf)

	term.AnswersRestored(0)
	term.AnswersRestored(3)
	term.TimeUp()
	term.IdentityRequired()

	out := buf.String()
	assert.NotContains(t, out, "Recovered 0")
	assert.Contains(t, out, "Recovered 3 saved answers")
	assert.Contains(t, out, "Time is up!")
	assert.Contains(t, out, "enter your name")
}

func TestNotifiersSatisfyInterface(t *testing.T) {
	var _ notify.Notifier = notify.Nop{}
	var _ notify.Notifier = notify.Log{}
	var _ notify.Notifier = notify.NewTerminal(&bytes.Buffer{})
}
