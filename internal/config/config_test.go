package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/quizkeeper/internal/config"
)

func validConfig() config.Config {
	return config.Config{
		Addr:              ":8080",
		DBPath:            "test.db",
		LogLevel:          "INFO",
		StorageBackend:    config.BackendSQLite,
		StoragePath:       "local.db",
		StorageOrigin:     "http://localhost",
		StorageQuotaBytes: 1024,
		KeyPrefix:         "quiz",
		QuizDuration:      45 * time.Minute,
		TickInterval:      time.Second,
		AutosaveInterval:  30 * time.Second,
		SubmitDelay:       100 * time.Millisecond,
		QuestionsPerQuiz:  50,
		KeepaliveInterval: 5 * time.Minute,
		KeepaliveIdle:     4 * time.Minute,
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_EmptyAddr(t *testing.T) {
	cfg := validConfig()
	cfg.Addr = ""

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ADDR cannot be empty")
}

func TestValidate_StorageBackend(t *testing.T) {
	tests := []struct {
		name          string
		mutate        func(*config.Config)
		expectedError string
	}{
		{
			name:          "unknown backend",
			mutate:        func(c *config.Config) { c.StorageBackend = "indexeddb" },
			expectedError: "STORAGE_BACKEND",
		},
		{
			name: "sqlite without path",
			mutate: func(c *config.Config) {
				c.StorageBackend = config.BackendSQLite
				c.StoragePath = ""
			},
			expectedError: "STORAGE_PATH",
		},
		{
			name: "redis without addr",
			mutate: func(c *config.Config) {
				c.StorageBackend = config.BackendRedis
				c.RedisAddr = ""
			},
			expectedError: "REDIS_ADDR",
		},
		{
			name:          "negative quota",
			mutate:        func(c *config.Config) { c.StorageQuotaBytes = -1 },
			expectedError: "STORAGE_QUOTA_BYTES",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedError)
		})
	}
}

func TestValidate_MemoryBackendNeedsNothingElse(t *testing.T) {
	cfg := validConfig()
	cfg.StorageBackend = config.BackendMemory
	cfg.StoragePath = ""
	cfg.RedisAddr = ""

	assert.NoError(t, cfg.Validate())
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	tests := []struct {
		name  string
		level string
		ok    bool
	}{
		{name: "invalid level", level: "INVALID"},
		{name: "empty level", level: ""},
		{name: "lowercase valid level", level: "debug", ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.LogLevel = tt.level

			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), "LOG_LEVEL")
			}
		})
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := config.Config{
		LogLevel:       "INVALID",
		StorageBackend: "nope",
		SubmitDelay:    -time.Second,
	}

	err := cfg.Validate()
	require.Error(t, err)

	errStr := err.Error()
	assert.Contains(t, errStr, "ADDR cannot be empty")
	assert.Contains(t, errStr, "DB_PATH cannot be empty")
	assert.Contains(t, errStr, "LOG_LEVEL")
	assert.Contains(t, errStr, "STORAGE_BACKEND")
	assert.Contains(t, errStr, "KEY_PREFIX")
	assert.Contains(t, errStr, "QUIZ_DURATION")
	assert.Contains(t, errStr, "TICK_INTERVAL")
	assert.Contains(t, errStr, "AUTOSAVE_INTERVAL")
	assert.Contains(t, errStr, "SUBMIT_DELAY")
	assert.Contains(t, errStr, "QUESTIONS_PER_QUIZ")
	assert.Contains(t, errStr, "KEEPALIVE_INTERVAL")
	assert.Contains(t, errStr, "KEEPALIVE_IDLE")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("QUIZ_DURATION", "")
	t.Setenv("TICK_INTERVAL", "")

	cfg := config.Load()

	assert.Equal(t, 2700*time.Second, cfg.QuizDuration)
	assert.Equal(t, time.Second, cfg.TickInterval)
	assert.Equal(t, 30*time.Second, cfg.AutosaveInterval)
	assert.Equal(t, 100*time.Millisecond, cfg.SubmitDelay)
	assert.Equal(t, 5*time.Minute, cfg.KeepaliveInterval)
	assert.Equal(t, 4*time.Minute, cfg.KeepaliveIdle)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("ADDR", ":9090")
	t.Setenv("DB_PATH", "custom.db")
	t.Setenv("STORAGE_BACKEND", "redis")
	t.Setenv("QUIZ_DURATION", "600")
	t.Setenv("AUTOSAVE_INTERVAL", "10s")
	t.Setenv("CHAPTER_ID", "42")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg := config.Load()

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "custom.db", cfg.DBPath)
	assert.Equal(t, config.BackendRedis, cfg.StorageBackend)
	assert.Equal(t, 10*time.Minute, cfg.QuizDuration)
	assert.Equal(t, 10*time.Second, cfg.AutosaveInterval)
	assert.Equal(t, int64(42), cfg.ChapterID)
	assert.Equal(t, 0, cfg.RedisDB)
}
