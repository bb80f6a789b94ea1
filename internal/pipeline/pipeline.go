// Package pipeline runs the per-exam state machine: wait for the exam
// image, recognize its text, judge every question, aggregate the report,
// and submit the score back into the page.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/papergrader/backend/internal/automation"
	"github.com/papergrader/backend/internal/exam"
	"github.com/papergrader/backend/internal/id"
	"github.com/papergrader/backend/internal/ocr"
)

// Judger grades one question against the recognized answer text. It never
// fails; grading problems surface as zero-score judgments.
type Judger interface {
	Judge(ctx context.Context, q exam.Question, studentAnswer string) exam.Judgment
}

// Config holds the selectors, timing constants, and failure policy of the
// run loop.
type Config struct {
	ExamImageSelector  string
	ScoreInputSelector string
	NextButtonSelector string

	ElementTimeout time.Duration // how long to wait for the exam image
	WaitAfterFill  time.Duration // settle delay between filling the score and clicking next
	ExamInterval   time.Duration // pause between exams

	// OCRMinConfidence drops fragments the recognizer is unsure about.
	// Zero keeps everything.
	OCRMinConfidence float64

	// ContinueOnFailure skips a failed exam and moves on instead of
	// stopping the whole run. Failed exams do not count as processed.
	ContinueOnFailure bool
}

// Runner owns one grading run. The driver and the judge's inference client
// are created once and reused across all attempts; the runner itself is
// single-goroutine and processes exams strictly one at a time.
type Runner struct {
	driver     automation.Driver
	recognizer ocr.Service
	judge      Judger
	calc       *exam.Calculator
	questions  []exam.Question
	cfg        Config
	logger     *slog.Logger

	// wait suspends between exams; swapped out in tests.
	wait func(ctx context.Context, d time.Duration) error
}

// New creates a runner.
func New(
	driver automation.Driver,
	recognizer ocr.Service,
	judge Judger,
	calc *exam.Calculator,
	questions []exam.Question,
	cfg Config,
	logger *slog.Logger,
) *Runner {
	return &Runner{
		driver:     driver,
		recognizer: recognizer,
		judge:      judge,
		calc:       calc,
		questions:  questions,
		cfg:        cfg,
		logger:     logger,
		wait:       waitTimer,
	}
}

// ProcessOneExam runs a single attempt from image capture through score
// submission and returns the report it submitted.
func (r *Runner) ProcessOneExam(ctx context.Context) (exam.Report, error) {
	logger := r.logger.With("attempt_id", id.NewAttemptID())

	logger.Info("waiting for exam image", "selector", r.cfg.ExamImageSelector)
	if err := r.driver.WaitForElement(ctx, r.cfg.ExamImageSelector, r.cfg.ElementTimeout); err != nil {
		return exam.Report{}, fmt.Errorf("waiting for exam image %q: %w", r.cfg.ExamImageSelector, err)
	}

	logger.Info("capturing exam image")
	imageData, err := r.driver.CaptureElement(ctx, r.cfg.ExamImageSelector)
	if err != nil {
		return exam.Report{}, fmt.Errorf("capturing exam image %q: %w", r.cfg.ExamImageSelector, err)
	}

	logger.Info("recognizing exam text")
	fragments, err := r.recognizer.Recognize(ctx, imageData)
	if err != nil {
		return exam.Report{}, fmt.Errorf("recognizing exam text: %w", err)
	}
	fragments = ocr.FilterByConfidence(fragments, r.cfg.OCRMinConfidence)
	answerText := ocr.JoinText(fragments)
	logger.Info("exam text recognized", "fragments", len(fragments), "chars", len(answerText))

	// Every question is judged against the full recognized page text,
	// strictly in list order, one inference call in flight at a time.
	judgments := make([]exam.Judgment, 0, len(r.questions))
	for _, q := range r.questions {
		j := r.judge.Judge(ctx, q, answerText)
		judgments = append(judgments, j)
		logger.Debug("question judged", "question_id", q.ID, "score", j.Score, "points", q.Points)
	}

	report, err := r.calc.GenerateReport(judgments)
	if err != nil {
		return exam.Report{}, fmt.Errorf("aggregating report: %w", err)
	}
	logger.Info("exam graded",
		"total", report.TotalScore,
		"max", report.MaxScore,
		"percentage", report.Percentage,
		"passed", report.Passed,
	)

	if err := r.submit(ctx, report); err != nil {
		return exam.Report{}, err
	}
	return report, nil
}

// submit writes the total score into the form and advances to the next exam.
func (r *Runner) submit(ctx context.Context, report exam.Report) error {
	score := strconv.FormatFloat(report.TotalScore, 'f', -1, 64)
	if err := r.driver.FillField(ctx, r.cfg.ScoreInputSelector, score); err != nil {
		return fmt.Errorf("filling score field %q: %w", r.cfg.ScoreInputSelector, err)
	}
	if err := r.wait(ctx, r.cfg.WaitAfterFill); err != nil {
		return err
	}
	if err := r.driver.Click(ctx, r.cfg.NextButtonSelector); err != nil {
		return fmt.Errorf("clicking next button %q: %w", r.cfg.NextButtonSelector, err)
	}
	return nil
}

// Run processes exams until maxExams is reached (0 means no limit), the
// context is cancelled, or an attempt fails under the fail-fast policy.
// Cancellation takes effect before the next attempt starts; it does not
// roll back an attempt whose score was already submitted. The number of
// successfully processed exams is returned in every case.
func (r *Runner) Run(ctx context.Context, maxExams int) (int, error) {
	processed := 0

	for maxExams <= 0 || processed < maxExams {
		if ctx.Err() != nil {
			r.logger.Info("run interrupted", "processed", processed)
			return processed, nil
		}

		start := time.Now()
		r.logger.Info("processing exam", "index", processed+1)

		report, err := r.ProcessOneExam(ctx)
		if err != nil {
			r.logger.Error("exam attempt failed",
				"index", processed+1,
				"elapsed", time.Since(start),
				"error", err,
			)
			if cancelled(err) {
				r.logger.Info("run interrupted", "processed", processed)
				return processed, nil
			}
			if !r.cfg.ContinueOnFailure {
				return processed, err
			}
		} else {
			processed++
			r.logger.Info("exam processed",
				"index", processed,
				"score", report.TotalScore,
				"elapsed", time.Since(start),
			)
		}

		if maxExams > 0 && processed >= maxExams {
			break
		}
		if err := r.wait(ctx, r.cfg.ExamInterval); err != nil {
			r.logger.Info("run interrupted", "processed", processed)
			return processed, nil
		}
	}

	r.logger.Info("run finished", "processed", processed)
	return processed, nil
}

func cancelled(err error) bool {
	return errors.Is(err, context.Canceled)
}

func waitTimer(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
