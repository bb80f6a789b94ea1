package judge_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/papergrader/backend/internal/ai"
	"github.com/papergrader/backend/internal/exam"
	"github.com/papergrader/backend/internal/judge"
)

// fakeClient returns canned replies and records the prompts it received.
type fakeClient struct {
	reply   ai.Reply
	err     error
	prompts []string
	temps   []float64
}

func (f *fakeClient) ChatJSON(ctx context.Context, messages []ai.Message, opts *ai.Options) (ai.Reply, error) {
	for _, m := range messages {
		f.prompts = append(f.prompts, m.Content)
	}
	if opts != nil && opts.Temperature != nil {
		f.temps = append(f.temps, *opts.Temperature)
	}
	return f.reply, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func question() exam.Question {
	return exam.Question{
		ID:     "q1",
		Text:   "What does DNS do?",
		Answer: "Resolves names to addresses",
		Points: 10,
	}
}

func TestJudgeParsesScoreAndComment(t *testing.T) {
	client := &fakeClient{reply: ai.Reply{
		Fields: map[string]any{"score": 7.5, "comment": "mostly correct"},
	}}
	j := judge.New(client, judge.DefaultTemplate, testLogger())

	result := j.Judge(context.Background(), question(), "It maps hostnames to IPs")

	if result.QuestionID != "q1" {
		t.Errorf("expected question id carried through, got %q", result.QuestionID)
	}
	if result.Score != 7.5 {
		t.Errorf("expected score 7.5, got %v", result.Score)
	}
	if result.Comment != "mostly correct" {
		t.Errorf("expected comment preserved, got %q", result.Comment)
	}
}

func TestJudgeNeverFailsOnGatewayError(t *testing.T) {
	client := &fakeClient{err: errors.New("endpoint unreachable")}
	j := judge.New(client, judge.DefaultTemplate, testLogger())

	result := j.Judge(context.Background(), question(), "anything")

	if result.Score != 0 {
		t.Errorf("expected score 0 on failure, got %v", result.Score)
	}
	if result.Comment == "" {
		t.Error("expected a non-empty comment describing the failure")
	}
	if result.QuestionID != "q1" {
		t.Errorf("expected question id even on failure, got %q", result.QuestionID)
	}
}

func TestJudgeHandlesMalformedReply(t *testing.T) {
	client := &fakeClient{reply: ai.Reply{Raw: "I give it an 8.", Malformed: true}}
	j := judge.New(client, judge.DefaultTemplate, testLogger())

	result := j.Judge(context.Background(), question(), "anything")

	if result.Score != 0 {
		t.Errorf("expected score 0 for malformed reply, got %v", result.Score)
	}
	if result.Comment == "" {
		t.Error("expected a non-empty comment for malformed reply")
	}
}

func TestJudgeClampsScore(t *testing.T) {
	tests := []struct {
		name  string
		score any
		want  float64
	}{
		{"above max", 42.0, 10},
		{"negative", -3.0, 0},
		{"in range", 6.0, 6},
		{"at max", 10.0, 10},
		{"numeric string", "7.5", 7.5},
		{"garbage string", "ten", 0},
		{"missing", nil, 0},
		{"wrong type", true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := map[string]any{"comment": "c"}
			if tt.score != nil {
				fields["score"] = tt.score
			}
			client := &fakeClient{reply: ai.Reply{Fields: fields}}
			j := judge.New(client, judge.DefaultTemplate, testLogger())

			result := j.Judge(context.Background(), question(), "answer")
			if result.Score != tt.want {
				t.Errorf("expected score %v, got %v", tt.want, result.Score)
			}
		})
	}
}

func TestJudgeMissingCommentDefaultsToEmpty(t *testing.T) {
	client := &fakeClient{reply: ai.Reply{Fields: map[string]any{"score": 5.0}}}
	j := judge.New(client, judge.DefaultTemplate, testLogger())

	result := j.Judge(context.Background(), question(), "answer")
	if result.Comment != "" {
		t.Errorf("expected empty comment when field is missing, got %q", result.Comment)
	}
}

func TestJudgeUsesFixedLowTemperature(t *testing.T) {
	client := &fakeClient{reply: ai.Reply{Fields: map[string]any{"score": 5.0}}}
	j := judge.New(client, judge.DefaultTemplate, testLogger())

	j.Judge(context.Background(), question(), "answer")

	if len(client.temps) != 1 || client.temps[0] != 0.3 {
		t.Errorf("expected temperature override 0.3, got %v", client.temps)
	}
}

func TestJudgePromptSubstitution(t *testing.T) {
	client := &fakeClient{reply: ai.Reply{Fields: map[string]any{"score": 5.0}}}
	j := judge.New(client, judge.DefaultTemplate, testLogger())

	j.Judge(context.Background(), question(), "It maps hostnames to IPs")

	if len(client.prompts) != 1 {
		t.Fatalf("expected one user message, got %d", len(client.prompts))
	}
	prompt := client.prompts[0]
	for _, want := range []string{
		"What does DNS do?",
		"Resolves names to addresses",
		"It maps hostnames to IPs",
		"10",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("expected prompt to contain %q", want)
		}
	}
	if strings.Contains(prompt, "{question}") || strings.Contains(prompt, "{max_points}") {
		t.Error("expected all placeholders to be substituted")
	}
}

func TestTemplateByName(t *testing.T) {
	for _, name := range []string{"", "default", "strict", "lenient"} {
		if _, err := judge.TemplateByName(name); err != nil {
			t.Errorf("expected template for %q, got error: %v", name, err)
		}
	}
	if _, err := judge.TemplateByName("harsh"); err == nil {
		t.Error("expected error for unknown template name")
	}
}

func TestBuiltInTemplatesCarryAllPlaceholders(t *testing.T) {
	templates := map[string]judge.Template{
		"default": judge.DefaultTemplate,
		"strict":  judge.StrictTemplate,
		"lenient": judge.LenientTemplate,
	}
	placeholders := []string{"{question}", "{standard_answer}", "{student_answer}", "{max_points}"}

	for name, tmpl := range templates {
		for _, ph := range placeholders {
			if !strings.Contains(string(tmpl), ph) {
				t.Errorf("template %q is missing placeholder %s", name, ph)
			}
		}
	}
}
