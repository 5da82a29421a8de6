package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/quizkeeper/internal/config"
	"github.com/vytor/quizkeeper/internal/form"
	"github.com/vytor/quizkeeper/internal/models"
)

func quizServer(t *testing.T, submitted chan<- models.SubmissionRequest) *httptest.Server {
	opts := []form.Option{{Value: "A", Label: "a"}, {Value: "B", Label: "b"}, {Value: "C", Label: "c"}, {Value: "D", Label: "d"}}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/chapters/7/quiz":
			json.NewEncoder(w).Encode(models.QuizForm{
				ChapterID:       7,
				Chapter:         "Optics",
				Subject:         "Physics",
				DurationSeconds: 2700,
				Questions:       []form.Question{{ID: "1", Text: "Lens?", Options: opts}, {ID: "2", Text: "Mirror?", Options: opts}},
			})
		case "/api/chapters/7/submissions":
			var req models.SubmissionRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			submitted <- req
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(models.Submission{ID: req.ID})
		default:
			w.Write([]byte("OK"))
		}
	}))
}

func testConfig(url string) config.Config {
	return config.Config{
		StorageBackend:    config.BackendMemory,
		StorageOrigin:     "test",
		KeyPrefix:         "quiz",
		QuizDuration:      45 * time.Minute,
		TickInterval:      time.Hour,
		AutosaveInterval:  time.Hour,
		SubmitDelay:       10 * time.Millisecond,
		ServerURL:         url,
		ChapterID:         7,
		KeepaliveInterval: time.Hour,
		KeepaliveIdle:     time.Hour,
	}
}

func TestRun_AnswerAndSubmit(t *testing.T) {
	submitted := make(chan models.SubmissionRequest, 1)
	srv := quizServer(t, submitted)
	defer srv.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out bytes.Buffer
	in := strings.NewReader("\nJane\n1 b\n9 A\n2 E\nsubmit\n")
	require.NoError(t, run(ctx, testConfig(srv.URL), in, &out))

	req := <-submitted
	assert.Equal(t, "Jane", req.Name)
	assert.Equal(t, "manual", req.Reason)
	assert.Equal(t, map[string]string{"1": "B"}, req.Answers)

	text := out.String()
	assert.Contains(t, text, "Physics - Optics (2 questions)")
	assert.Contains(t, text, "Please enter your name")
	assert.Contains(t, text, "No question 9 in this quiz.")
	assert.Contains(t, text, "Question 2 has no option E.")
	assert.Contains(t, text, "Submitted. Thank you!")
}

func TestRun_QuitKeepsProgress(t *testing.T) {
	submitted := make(chan models.SubmissionRequest, 1)
	srv := quizServer(t, submitted)
	defer srv.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out bytes.Buffer
	require.NoError(t, run(ctx, testConfig(srv.URL), strings.NewReader("Jane\n1 C\nquit\n"), &out))

	assert.Contains(t, out.String(), "Your quiz is not submitted")
	assert.Empty(t, submitted)
}
