package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/quizkeeper/internal/quiz"
	"github.com/vytor/quizkeeper/internal/resume"
	"github.com/vytor/quizkeeper/internal/timer"
)

// MockDecider is a mock implementation of resume.Decider
type MockDecider struct {
	mock.Mock
}

func (m *MockDecider) Decide(ctx context.Context, p resume.Prompt) (resume.Choice, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(resume.Choice), args.Error(1)
}

// MockSubmitter is a mock implementation of quiz.Submitter
type MockSubmitter struct {
	mock.Mock
}

func (m *MockSubmitter) Submit(ctx context.Context, sub quiz.Submission) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

// MockNotifier is a mock implementation of notify.Notifier. Countdown and
// AnswersSaved are recorded only when an expectation for them is set.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Countdown(r timer.Reading) {
	if m.expects("Countdown") {
		m.Called(r)
	}
}

func (m *MockNotifier) TimeUp() { m.Called() }

func (m *MockNotifier) AnswersRestored(n int) { m.Called(n) }

func (m *MockNotifier) AnswersSaved(n int, at time.Time) {
	if m.expects("AnswersSaved") {
		m.Called(n, at)
	}
}

func (m *MockNotifier) IdentityRequired() { m.Called() }

func (m *MockNotifier) LeavingUnsubmitted() { m.Called() }

func (m *MockNotifier) expects(method string) bool {
	for _, c := range m.ExpectedCalls {
		if c.Method == method {
			return true
		}
	}
	return false
}
