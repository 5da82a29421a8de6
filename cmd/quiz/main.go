package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/vytor/quizkeeper/internal/client"
	"github.com/vytor/quizkeeper/internal/config"
	apperrors "github.com/vytor/quizkeeper/internal/errors"
	"github.com/vytor/quizkeeper/internal/form"
	"github.com/vytor/quizkeeper/internal/keepalive"
	"github.com/vytor/quizkeeper/internal/keys"
	"github.com/vytor/quizkeeper/internal/logger"
	"github.com/vytor/quizkeeper/internal/models"
	"github.com/vytor/quizkeeper/internal/notify"
	"github.com/vytor/quizkeeper/internal/quiz"
	"github.com/vytor/quizkeeper/internal/resume"
	"github.com/vytor/quizkeeper/internal/storage/backend"
)

func main() {
	cfg := config.Load()

	log := logger.New(
		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithColors(true),
	)
	logger.SetDefault(log)

	if len(os.Args) > 1 {
		id, err := strconv.ParseInt(os.Args[1], 10, 64)
		if err != nil {
			log.Error("invalid chapter id %q", os.Args[1])
			os.Exit(2)
		}
		cfg.ChapterID = id
	}
	if err := cfg.Validate(); err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}
	if cfg.ChapterID <= 0 {
		log.Error("no chapter selected: set CHAPTER_ID or pass it as the first argument")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdin, os.Stdout); err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, in io.Reader, out io.Writer) error {
	log := logger.Default().WithPrefix("cli").WithField("chapter_id", cfg.ChapterID)
	ctx = logger.NewContext(ctx, log)

	store, closer, err := backend.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	api := client.New(cfg.ServerURL)
	qf, err := api.FetchQuiz(ctx, cfg.ChapterID)
	if err != nil {
		return fmt.Errorf("load quiz: %w", err)
	}
	duration := cfg.QuizDuration
	if qf.DurationSeconds > 0 {
		duration = time.Duration(qf.DurationSeconds) * time.Second
	}

	pinger := keepalive.New(api, cfg.KeepaliveInterval, cfg.KeepaliveIdle, nil)
	go pinger.Run(ctx)

	f := form.New(qf.Questions)
	decider := resume.NewChannelDecider()
	session := quiz.New(quiz.Deps{
		Store:     store,
		Form:      f,
		Decider:   decider,
		Notifier:  notify.NewTerminal(out),
		Submitter: api.Submitter(cfg.ChapterID),
		Activity:  func() { go pinger.Touch(ctx) },
	}, quiz.Options{
		QuizID:           strconv.FormatInt(cfg.ChapterID, 10),
		Scheme:           keys.Scheme{Prefix: cfg.KeyPrefix},
		PerUser:          true,
		Duration:         duration,
		TickInterval:     cfg.TickInterval,
		AutosaveInterval: cfg.AutosaveInterval,
		SubmitDelay:      cfg.SubmitDelay,
	})

	lines := readLines(in)
	printQuiz(out, qf, f)

	if err := start(ctx, out, session, decider, lines); err != nil {
		return err
	}
	fmt.Fprintln(out, "Answer with '<question> <option>', or type 'save', 'submit' or 'quit'.")

	for {
		select {
		case <-ctx.Done():
			session.Unload()
			return nil
		case <-session.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				session.Unload()
				return nil
			}
			if done := handle(ctx, out, session, line); done {
				return nil
			}
		}
	}
}

// start asks for a name until the session starts, answering the resume
// prompt from stdin when a saved attempt exists.
func start(ctx context.Context, out io.Writer, s *quiz.Session, decider *resume.ChannelDecider, lines <-chan string) error {
	for {
		fmt.Fprint(out, "Your name: ")
		var name string
		select {
		case <-ctx.Done():
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				return io.EOF
			}
			name = l
		}

		errc := make(chan error, 1)
		go func() {
			_, err := s.Start(ctx, name)
			errc <- err
		}()

	wait:
		for {
			select {
			case err := <-errc:
				if errors.Is(err, quiz.ErrIdentityRequired) {
					break wait
				}
				return err
			case p := <-decider.Prompts():
				fmt.Fprintf(out, "%s [Y/n] ", p.Message())
				choice := resume.ChoiceResume
				select {
				case l, ok := <-lines:
					if ok && strings.HasPrefix(strings.ToLower(strings.TrimSpace(l)), "n") {
						choice = resume.ChoiceDiscard
					}
				case <-ctx.Done():
					return ctx.Err()
				}
				if err := decider.Resolve(ctx, choice); err != nil {
					return err
				}
			}
		}
	}
}

func handle(ctx context.Context, out io.Writer, s *quiz.Session, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	switch strings.ToLower(fields[0]) {
	case "quit", "exit":
		s.Unload()
		return true
	case "save":
		s.Autosave()
		return false
	case "submit":
		if err := s.Submit(ctx); err != nil {
			fmt.Fprintf(out, "Submission failed: %v\n", err)
		} else {
			fmt.Fprintln(out, "Submitted. Thank you!")
		}
		return true
	}

	if len(fields) != 2 {
		fmt.Fprintln(out, "Expected '<question> <option>', e.g. '3 B'.")
		return false
	}
	qid, value := strings.TrimPrefix(fields[0], form.FieldPrefix), strings.ToUpper(fields[1])
	err := s.Answer(qid, value)
	switch {
	case err == nil:
	case errors.Is(err, form.ErrUnknownQuestion):
		fmt.Fprintf(out, "No question %s in this quiz.\n", qid)
	case errors.Is(err, form.ErrUnknownOption):
		fmt.Fprintf(out, "Question %s has no option %s.\n", qid, value)
	case apperrors.Is(err, quiz.ErrNotRunning):
		return true
	default:
		fmt.Fprintf(out, "Could not record the answer: %v\n", err)
	}
	return false
}

func printQuiz(out io.Writer, qf *models.QuizForm, f *form.Form) {
	fmt.Fprintf(out, "%s - %s (%d questions)\n\n", qf.Subject, qf.Chapter, f.Len())
	for _, q := range f.Questions() {
		fmt.Fprintf(out, "[%s] %s\n", q.ID, q.Text)
		for _, o := range q.Options {
			fmt.Fprintf(out, "    %s) %s\n", o.Value, o.Label)
		}
	}
	fmt.Fprintln(out)
}

func readLines(in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()
	return lines
}
