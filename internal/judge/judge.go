package judge

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/papergrader/backend/internal/ai"
	"github.com/papergrader/backend/internal/exam"
)

// judgeTemperature keeps scoring variance low regardless of the client's
// default temperature.
const judgeTemperature = 0.3

// ChatClient is the slice of the inference gateway the judge needs.
// Implementations may call an LLM or return canned replies (for tests).
type ChatClient interface {
	ChatJSON(ctx context.Context, messages []ai.Message, opts *ai.Options) (ai.Reply, error)
}

// Judge grades one question at a time against the recognized answer text.
type Judge struct {
	client   ChatClient
	template Template
	logger   *slog.Logger
}

// New creates a judge using the given template.
func New(client ChatClient, template Template, logger *slog.Logger) *Judge {
	return &Judge{
		client:   client,
		template: template,
		logger:   logger,
	}
}

// Judge grades a single question. It never fails: any gateway error or
// malformed reply is absorbed into a zero-score judgment with an
// explanatory comment, so one bad question cannot abort the exam.
func (j *Judge) Judge(ctx context.Context, q exam.Question, studentAnswer string) exam.Judgment {
	prompt := j.template.Render(q, studentAnswer)

	temp := judgeTemperature
	reply, err := j.client.ChatJSON(ctx,
		[]ai.Message{{Role: "user", Content: prompt}},
		&ai.Options{Temperature: &temp},
	)
	if err != nil {
		j.logger.Error("grading call failed", "question_id", q.ID, "error", err)
		return exam.Judgment{
			QuestionID: q.ID,
			Score:      0,
			Comment:    fmt.Sprintf("grading failed: %v", err),
		}
	}
	if reply.Malformed {
		j.logger.Error("grading reply was not valid JSON",
			"question_id", q.ID,
			"raw", reply.Raw,
		)
		return exam.Judgment{
			QuestionID: q.ID,
			Score:      0,
			Comment:    "grading failed: reply was not valid JSON",
		}
	}

	score := clamp(coerceScore(reply.Fields["score"]), 0, q.Points)
	comment, _ := reply.Fields["comment"].(string)

	return exam.Judgment{
		QuestionID: q.ID,
		Score:      score,
		Comment:    comment,
	}
}

// coerceScore converts whatever the model put in the score field to a
// float. Anything unusable becomes 0.
func coerceScore(v any) float64 {
	switch s := v.(type) {
	case float64:
		return s
	case string:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
