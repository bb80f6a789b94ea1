package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/papergrader/backend/internal/ai"
	"github.com/papergrader/backend/internal/automation"
	"github.com/papergrader/backend/internal/exam"
	"github.com/papergrader/backend/internal/infrastructure/config"
	"github.com/papergrader/backend/internal/judge"
	"github.com/papergrader/backend/internal/logger"
	"github.com/papergrader/backend/internal/ocr"
	"github.com/papergrader/backend/internal/pipeline"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config (defaults to $CONFIG_PATH or ./config/grader.yaml)")
	flag.Parse()

	path := *configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "./config/grader.yaml"
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("configuration rejected: %v", err)
	}

	slogger := logger.Setup(cfg.Env)
	slogger.Info("config loaded",
		"env", cfg.Env,
		"questions", len(cfg.Exam.Questions),
		"passing_score", cfg.Exam.PassingScore,
		"target", cfg.Browser.URL,
	)

	template, err := judge.TemplateByName(cfg.Exam.PromptTemplate)
	if err != nil {
		slogger.Error("configuration rejected", "error", err)
		os.Exit(1)
	}

	// Cancellation stops the run loop before the next attempt starts.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// ── Dependencies ────────────────────────────────────────────────
	client := ai.NewClient(ai.Config{
		BaseURL:     cfg.AI.BaseURL,
		APIKey:      cfg.AI.APIKey,
		Model:       cfg.AI.Model,
		Temperature: cfg.AI.Temperature,
		Timeout:     cfg.AI.Timeout,
		MaxRetries:  cfg.AI.MaxRetries,
	}, slogger)
	slogger.Info("inference client ready",
		"model", client.Model(),
		"endpoint", cfg.AI.BaseURL,
		"temperature", cfg.AI.Temperature,
		"max_retries", cfg.AI.MaxRetries,
	)

	engine := ocr.NewTesseract(cfg.OCR.Language, slogger)

	// The browser session outlives individual attempts; its lifetime is
	// not tied to the interrupt context so Close can still run cleanly.
	session, err := automation.NewSession(context.Background(), automation.SessionOptions{
		Headless:     cfg.Browser.Headless,
		WindowWidth:  cfg.Browser.WindowWidth,
		WindowHeight: cfg.Browser.WindowHeight,
	}, slogger)
	if err != nil {
		slogger.Error("failed to start browser session", "error", err)
		os.Exit(1)
	}
	defer session.Close()

	if err := session.Navigate(ctx, cfg.Browser.URL); err != nil {
		slogger.Error("failed to open grading page", "error", err)
		os.Exit(1)
	}

	questions := cfg.DomainQuestions()
	runner := pipeline.New(
		session,
		engine,
		judge.New(client, template, slogger),
		exam.NewCalculator(questions, cfg.Exam.PassingScore),
		questions,
		pipeline.Config{
			ExamImageSelector:  cfg.Browser.Selectors.ExamImage,
			ScoreInputSelector: cfg.Browser.Selectors.ScoreInput,
			NextButtonSelector: cfg.Browser.Selectors.NextButton,
			ElementTimeout:     cfg.Browser.ElementTimeout,
			WaitAfterFill:      cfg.Browser.WaitAfterFill,
			ExamInterval:       cfg.Browser.ExamInterval,
			OCRMinConfidence:   cfg.OCR.MinConfidence,
			ContinueOnFailure:  cfg.Exam.ContinueOnFailure,
		},
		slogger,
	)

	processed, err := runner.Run(ctx, cfg.Exam.MaxExams)
	if err != nil && !errors.Is(err, context.Canceled) {
		slogger.Error("run stopped on failure", "processed", processed, "error", err)
		session.Close()
		os.Exit(1)
	}
	slogger.Info("done", "processed", processed)
}
