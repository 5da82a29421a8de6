package testutil

import (
	"database/sql"
	"embed"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

//go:embed migrations/*.sql
var testMigrationsFS embed.FS

// NewTestDB creates an in-memory SQLite database with all migrations applied.
func NewTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	migrations := []string{
		"migrations/0001_quiz.sql",
		"migrations/0002_kv_store.sql",
	}

	for _, migration := range migrations {
		sqlBytes, err := testMigrationsFS.ReadFile(migration)
		require.NoError(t, err, "failed to read migration %s", migration)

		_, err = db.Exec(string(sqlBytes))
		require.NoError(t, err, "failed to apply migration %s", migration)
	}

	return db
}

// MustClose closes a resource and fails the test on error.
func MustClose(t *testing.T, closer interface{ Close() error }) {
	require.NoError(t, closer.Close())
}

// SeedChapter inserts a subject, one chapter and n four-option questions
// whose correct option is always "A". It returns the chapter id.
func SeedChapter(t *testing.T, db *sql.DB, subject, chapter string, n int) int64 {
	_, err := db.Exec(`INSERT INTO subjects (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, subject)
	require.NoError(t, err)

	var subjectID int64
	require.NoError(t, db.QueryRow(`SELECT id FROM subjects WHERE name = ?`, subject).Scan(&subjectID))

	res, err := db.Exec(`INSERT INTO chapters (subject_id, name) VALUES (?, ?)`, subjectID, chapter)
	require.NoError(t, err)
	chapterID, err := res.LastInsertId()
	require.NoError(t, err)

	for i := 0; i < n; i++ {
		_, err := db.Exec(`
INSERT INTO questions (chapter_id, text, option_a, option_b, option_c, option_d, correct_option)
VALUES (?, ?, 'a', 'b', 'c', 'd', 'A')`, chapterID, chapter+" question")
		require.NoError(t, err)
	}
	return chapterID
}

// Clock is a manually advanced clock.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock frozen at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}
