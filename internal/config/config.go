package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/vytor/quizkeeper/internal/logger"
)

// Storage backends understood by storage.Open.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

type Config struct {
	Addr     string
	DBPath   string
	LogLevel string

	StorageBackend    string
	StoragePath       string
	StorageOrigin     string
	StorageQuotaBytes int
	RedisAddr         string
	RedisPassword     string
	RedisDB           int

	KeyPrefix        string
	QuizDuration     time.Duration
	TickInterval     time.Duration
	AutosaveInterval time.Duration
	SubmitDelay      time.Duration
	QuestionsPerQuiz int

	ServerURL         string
	ChapterID         int64
	KeepaliveInterval time.Duration
	KeepaliveIdle     time.Duration
}

// Load reads configuration from a .env file (if present) and environment variables,
// applying defaults when values are missing or invalid.
func Load() Config {
	// Ignore error so the app still starts when .env is absent in production.
	_ = godotenv.Load()

	return Config{
		Addr:     envOr("ADDR", ":8080"),
		DBPath:   envOr("DB_PATH", "file:quizkeeper.db"),
		LogLevel: envOr("LOG_LEVEL", "INFO"),

		StorageBackend:    envOr("STORAGE_BACKEND", BackendSQLite),
		StoragePath:       envOr("STORAGE_PATH", "file:quizkeeper-local.db"),
		StorageOrigin:     envOr("STORAGE_ORIGIN", "http://localhost:8080"),
		StorageQuotaBytes: envIntOr("STORAGE_QUOTA_BYTES", 5*1024*1024),
		RedisAddr:         envOr("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     envOr("REDIS_PASSWORD", ""),
		RedisDB:           envIntOr("REDIS_DB", 0),

		KeyPrefix:        envOr("KEY_PREFIX", "quiz"),
		QuizDuration:     envDurationOr("QUIZ_DURATION", 45*time.Minute),
		TickInterval:     envDurationOr("TICK_INTERVAL", time.Second),
		AutosaveInterval: envDurationOr("AUTOSAVE_INTERVAL", 30*time.Second),
		SubmitDelay:      envDurationOr("SUBMIT_DELAY", 100*time.Millisecond),
		QuestionsPerQuiz: envIntOr("QUESTIONS_PER_QUIZ", 50),

		ServerURL:         envOr("SERVER_URL", "http://localhost:8080"),
		ChapterID:         int64(envIntOr("CHAPTER_ID", 0)),
		KeepaliveInterval: envDurationOr("KEEPALIVE_INTERVAL", 5*time.Minute),
		KeepaliveIdle:     envDurationOr("KEEPALIVE_IDLE", 4*time.Minute),
	}
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.Addr == "" {
		add("ADDR cannot be empty")
	}
	if c.DBPath == "" {
		add("DB_PATH cannot be empty")
	}
	if !logger.ValidLevel(c.LogLevel) {
		add("LOG_LEVEL must be one of DEBUG, INFO, WARN, ERROR (got %q)", c.LogLevel)
	}

	switch c.StorageBackend {
	case BackendMemory:
	case BackendSQLite:
		if c.StoragePath == "" {
			add("STORAGE_PATH cannot be empty for the sqlite backend")
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			add("REDIS_ADDR cannot be empty for the redis backend")
		}
	default:
		add("STORAGE_BACKEND must be one of memory, sqlite, redis (got %q)", c.StorageBackend)
	}
	if c.StorageQuotaBytes < 0 {
		add("STORAGE_QUOTA_BYTES cannot be negative")
	}
	if c.KeyPrefix == "" {
		add("KEY_PREFIX cannot be empty")
	}

	if c.QuizDuration <= 0 {
		add("QUIZ_DURATION must be positive")
	}
	if c.TickInterval <= 0 {
		add("TICK_INTERVAL must be positive")
	}
	if c.AutosaveInterval <= 0 {
		add("AUTOSAVE_INTERVAL must be positive")
	}
	if c.SubmitDelay < 0 {
		add("SUBMIT_DELAY cannot be negative")
	}
	if c.QuestionsPerQuiz <= 0 {
		add("QUESTIONS_PER_QUIZ must be positive")
	}
	if c.KeepaliveInterval <= 0 {
		add("KEEPALIVE_INTERVAL must be positive")
	}
	if c.KeepaliveIdle <= 0 {
		add("KEEPALIVE_IDLE must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		log.Printf("invalid value for %s=%q, using default %d", key, v, def)
	}
	return def
}

// envDurationOr accepts Go durations ("90s") and bare integers, read as seconds.
func envDurationOr(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	log.Printf("invalid value for %s=%q, using default %s", key, v, def)
	return def
}
