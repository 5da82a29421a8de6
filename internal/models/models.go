package models

import (
	"strconv"
	"time"

	"github.com/vytor/quizkeeper/internal/form"
)

type Subject struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Chapter struct {
	ID        int64  `json:"id"`
	SubjectID int64  `json:"subject_id"`
	Name      string `json:"name"`
}

// Question is a stored four-option question. CorrectOption never leaves
// the server.
type Question struct {
	ID            int64  `json:"id"`
	ChapterID     int64  `json:"chapter_id"`
	Text          string `json:"text"`
	OptionA       string `json:"option_a"`
	OptionB       string `json:"option_b"`
	OptionC       string `json:"option_c"`
	OptionD       string `json:"option_d"`
	CorrectOption string `json:"-"`
}

// FormQuestion converts q to the single-choice form representation.
func (q Question) FormQuestion() form.Question {
	return form.Question{
		ID:   strconv.FormatInt(q.ID, 10),
		Text: q.Text,
		Options: []form.Option{
			{Value: "A", Label: q.OptionA},
			{Value: "B", Label: q.OptionB},
			{Value: "C", Label: q.OptionC},
			{Value: "D", Label: q.OptionD},
		},
	}
}

// QuizForm is the form definition served for one attempt.
type QuizForm struct {
	ChapterID       int64           `json:"chapter_id"`
	Chapter         string          `json:"chapter"`
	Subject         string          `json:"subject"`
	DurationSeconds int             `json:"duration_seconds"`
	Questions       []form.Question `json:"questions"`
}

const (
	ReasonManual  = "manual"
	ReasonExpired = "expired"
)

// Submission is a recorded attempt. Answers map question ids to option
// values.
type Submission struct {
	ID          string            `json:"id"`
	ChapterID   int64             `json:"chapter_id"`
	Name        string            `json:"name"`
	Answers     map[string]string `json:"answers"`
	Reason      string            `json:"reason"`
	SubmittedAt time.Time         `json:"submitted_at"`
	CreatedAt   time.Time         `json:"created_at"`
}

// SubmissionRequest is the body of a submission POST.
type SubmissionRequest struct {
	ID          string            `json:"id,omitempty"`
	Name        string            `json:"name"`
	Answers     map[string]string `json:"answers"`
	Reason      string            `json:"reason"`
	SubmittedAt time.Time         `json:"submitted_at"`
}
