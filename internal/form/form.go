// Package form models a quiz form of single-choice questions: the state a
// browser keeps in its radio inputs. At most one option is selected per
// question.
package form

import (
	"errors"
	"net/url"
	"strings"
	"sync"
)

var (
	ErrUnknownQuestion = errors.New("form: unknown question")
	ErrUnknownOption   = errors.New("form: unknown option")
)

// FieldPrefix prefixes question ids in submitted field names ("q17").
const FieldPrefix = "q"

// Option is one selectable answer.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Question is one single-choice question.
type Question struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []Option `json:"options"`
}

// Change describes a user selection.
type Change struct {
	QuestionID string
	Value      string
}

// Form holds the questions and the current selections.
type Form struct {
	mu        sync.RWMutex
	questions []Question
	index     map[string]int
	selected  map[string]string
	answered  map[string]bool
	listeners []func(Change)
}

// New builds a form. Questions with duplicate ids keep the first occurrence.
func New(questions []Question) *Form {
	f := &Form{
		index:    make(map[string]int, len(questions)),
		selected: map[string]string{},
		answered: map[string]bool{},
	}
	for _, q := range questions {
		if _, dup := f.index[q.ID]; dup {
			continue
		}
		f.index[q.ID] = len(f.questions)
		f.questions = append(f.questions, q)
	}
	return f
}

// FieldName returns the submitted field name of a question.
func FieldName(questionID string) string {
	return FieldPrefix + questionID
}

// ParseFieldName extracts the question id from a field name.
func ParseFieldName(name string) (string, bool) {
	if !strings.HasPrefix(name, FieldPrefix) || len(name) == len(FieldPrefix) {
		return "", false
	}
	return strings.TrimPrefix(name, FieldPrefix), true
}

// Questions returns the questions in form order.
func (f *Form) Questions() []Question {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]Question, len(f.questions))
	copy(out, f.questions)
	return out
}

// Len returns the number of questions.
func (f *Form) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.questions)
}

// OnChange registers fn to run after every user selection.
func (f *Form) OnChange(fn func(Change)) {
	f.mu.Lock()
	f.listeners = append(f.listeners, fn)
	f.mu.Unlock()
}

// Select records a user selection and notifies change listeners.
func (f *Form) Select(questionID, value string) error {
	f.mu.Lock()
	if err := f.checkLocked(questionID, value); err != nil {
		f.mu.Unlock()
		return err
	}
	f.selected[questionID] = value
	f.answered[questionID] = true
	listeners := append([]func(Change){}, f.listeners...)
	f.mu.Unlock()

	for _, fn := range listeners {
		fn(Change{QuestionID: questionID, Value: value})
	}
	return nil
}

// Mark selects value programmatically, without change notifications. It
// reports whether the question and option exist.
func (f *Form) Mark(questionID, value string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.checkLocked(questionID, value) != nil {
		return false
	}
	f.selected[questionID] = value
	f.answered[questionID] = true
	return true
}

// Has reports whether the form offers value for questionID.
func (f *Form) Has(questionID, value string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.checkLocked(questionID, value) == nil
}

func (f *Form) checkLocked(questionID, value string) error {
	i, ok := f.index[questionID]
	if !ok {
		return ErrUnknownQuestion
	}
	for _, o := range f.questions[i].Options {
		if o.Value == value {
			return nil
		}
	}
	return ErrUnknownOption
}

// Selected returns a copy of the current selections keyed by question id.
func (f *Form) Selected() map[string]string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[string]string, len(f.selected))
	for k, v := range f.selected {
		out[k] = v
	}
	return out
}

// Selection returns the selected value of one question.
func (f *Form) Selection(questionID string) (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.selected[questionID]
	return v, ok
}

// Answered reports whether the question has been marked answered.
func (f *Form) Answered(questionID string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.answered[questionID]
}

// Clear drops every selection.
func (f *Form) Clear() {
	f.mu.Lock()
	f.selected = map[string]string{}
	f.answered = map[string]bool{}
	f.mu.Unlock()
}

// Values encodes the selections the way a browser submits the form.
func (f *Form) Values() url.Values {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v := url.Values{}
	for _, q := range f.questions {
		if sel, ok := f.selected[q.ID]; ok {
			v.Set(FieldName(q.ID), sel)
		}
	}
	return v
}
