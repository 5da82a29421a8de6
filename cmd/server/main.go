package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vytor/quizkeeper/internal/api"
	"github.com/vytor/quizkeeper/internal/config"
	"github.com/vytor/quizkeeper/internal/db"
	"github.com/vytor/quizkeeper/internal/logger"
	"github.com/vytor/quizkeeper/internal/repository/sqlite"
	"github.com/vytor/quizkeeper/internal/services"
)

func main() {
	cfg := config.Load()

	log := logger.New(
		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithColors(true),
	)
	logger.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}

	log.Info("quizkeeper server starting")
	log.Debug("addr=%s", cfg.Addr)
	log.Debug("db_path=%s", cfg.DBPath)
	log.Debug("log_level=%s", cfg.LogLevel)
	log.Debug("quiz_duration=%s", cfg.QuizDuration)
	log.Debug("questions_per_quiz=%d", cfg.QuestionsPerQuiz)

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Error("failed to open database: %v", err)
		os.Exit(1)
	}
	defer func() {
		log.Debug("closing database connection")
		database.Close()
	}()

	subjectRepo := sqlite.NewSubjectRepository(database.DB)
	questionRepo := sqlite.NewQuestionRepository(database.DB)
	submissionRepo := sqlite.NewSubmissionRepository(database.DB)

	srv := &api.Server{
		DB:                database,
		CatalogService:    services.NewCatalogService(subjectRepo),
		QuizService:       services.NewQuizService(subjectRepo, questionRepo, cfg.QuestionsPerQuiz, cfg.QuizDuration),
		SubmissionService: services.NewSubmissionService(subjectRepo, submissionRepo),
	}

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error: %v", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop
	log.Info("received signal %v, initiating graceful shutdown", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error: %v", err)
	}

	log.Info("quizkeeper server stopped")
}
