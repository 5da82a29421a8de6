// Package keys derives the storage keys a quiz attempt is persisted under.
//
// A key has the shape {prefix}_{quizID}[_{user}]_{suffix}. The user part is
// present only in the per-user variant; the normalised user name keeps
// [a-z0-9] and turns every other rune into "_", so "Jane Doe" and
// "jane_doe" deliberately address the same attempt.
package keys

import (
	"strings"

	apperrors "github.com/vytor/quizkeeper/internal/errors"
)

// Suffixes of the persisted values.
const (
	SuffixAnswers     = "answers"
	SuffixSaveTime    = "save_time"
	SuffixEndTime     = "end_time"
	SuffixLegacyTimer = "timer"
)

// DefaultPrefix is used when a Scheme has no prefix.
const DefaultPrefix = "quiz"

const separator = '_'

// NormalizeUser trims and lowercases name and replaces every rune outside
// [a-z0-9] with "_".
func NormalizeUser(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	var sb strings.Builder
	sb.Grow(len(name))
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		} else {
			sb.WriteRune(separator)
		}
	}
	return sb.String()
}

// Scheme builds SessionKeys under a common prefix.
type Scheme struct {
	Prefix string
}

// For returns the key of quizID for userName. An empty userName selects the
// single-session-per-quiz variant.
func (s Scheme) For(quizID, userName string) (SessionKey, error) {
	quizID = strings.TrimSpace(quizID)
	if quizID == "" {
		return SessionKey{}, apperrors.NewValidationError("quiz id", "cannot be empty")
	}
	// The separator may only appear between parts, or "1"+"2_x" and "1_2"+"x"
	// would share a key.
	if strings.ContainsRune(quizID, separator) {
		return SessionKey{}, apperrors.NewValidationError("quiz id", "cannot contain '_'")
	}
	prefix := s.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return SessionKey{
		Prefix: prefix,
		QuizID: quizID,
		UserID: NormalizeUser(userName),
	}, nil
}

// SessionKey identifies one persisted quiz attempt.
type SessionKey struct {
	Prefix string
	QuizID string
	UserID string
}

// Base is the key without its suffix.
func (k SessionKey) Base() string {
	var sb strings.Builder
	sb.WriteString(k.Prefix)
	sb.WriteByte(separator)
	sb.WriteString(k.QuizID)
	if k.UserID != "" {
		sb.WriteByte(separator)
		sb.WriteString(k.UserID)
	}
	return sb.String()
}

// Key returns the storage key for suffix.
func (k SessionKey) Key(suffix string) string {
	return k.Base() + string(separator) + suffix
}

func (k SessionKey) Answers() string     { return k.Key(SuffixAnswers) }
func (k SessionKey) SaveTime() string    { return k.Key(SuffixSaveTime) }
func (k SessionKey) EndTime() string     { return k.Key(SuffixEndTime) }
func (k SessionKey) LegacyTimer() string { return k.Key(SuffixLegacyTimer) }

// All returns every key an attempt may have written, legacy counter included.
func (k SessionKey) All() []string {
	return []string{k.Answers(), k.SaveTime(), k.EndTime(), k.LegacyTimer()}
}

func (k SessionKey) String() string {
	return k.Base()
}
