// Package client talks to the quiz server over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vytor/quizkeeper/internal/logger"
	"github.com/vytor/quizkeeper/internal/models"
	"github.com/vytor/quizkeeper/internal/quiz"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *logger.Logger
}

func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        logger.Default().WithPrefix("client"),
	}
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s status %d: %s", e.Op, e.Status, e.Body)
}

// do sends a request and decodes a 2xx JSON body into out when out is
// non-nil.
func (c *Client) do(ctx context.Context, op, method, path string, body any, out any) error {
	log := logger.FromContext(ctx).WithPrefix("client").WithField("op", op)

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode body: %w", op, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		log.Error("failed to create request: %v", err)
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error("request failed: %v", err)
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	log.Debug("response received in %v, status=%d", time.Since(start), resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		log.Error("failed to decode response: %v", err)
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// FetchQuiz retrieves a freshly sampled quiz for a chapter.
func (c *Client) FetchQuiz(ctx context.Context, chapterID int64) (*models.QuizForm, error) {
	var out models.QuizForm
	if err := c.do(ctx, "fetch quiz", http.MethodGet, fmt.Sprintf("/api/chapters/%d/quiz", chapterID), nil, &out); err != nil {
		return nil, err
	}
	c.log.Info("fetched quiz %q with %d questions", out.Chapter, len(out.Questions))
	return &out, nil
}

// Submit posts a finished attempt.
func (c *Client) Submit(ctx context.Context, chapterID int64, req models.SubmissionRequest) (*models.Submission, error) {
	var out models.Submission
	if err := c.do(ctx, "submit", http.MethodPost, fmt.Sprintf("/api/chapters/%d/submissions", chapterID), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Keepalive pings the server's keepalive endpoint once.
func (c *Client) Keepalive(ctx context.Context) error {
	return c.do(ctx, "keepalive", http.MethodGet, "/keepalive/", nil, nil)
}

// Submitter delivers quiz sessions of chapterID to the server.
func (c *Client) Submitter(chapterID int64) quiz.Submitter {
	return quiz.SubmitterFunc(func(ctx context.Context, sub quiz.Submission) error {
		_, err := c.Submit(ctx, chapterID, models.SubmissionRequest{
			ID:          sub.ID,
			Name:        sub.Name,
			Answers:     sub.Answers,
			Reason:      string(sub.Reason),
			SubmittedAt: sub.SubmittedAt,
		})
		return err
	})
}
