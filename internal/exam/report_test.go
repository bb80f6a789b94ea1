package exam_test

import (
	"strings"
	"testing"

	"github.com/papergrader/backend/internal/exam"
)

func twoQuestions() []exam.Question {
	return []exam.Question{
		{ID: "q1", Text: "Explain TCP slow start", Answer: "...", Points: 10},
		{ID: "q2", Text: "Describe a B-tree split", Answer: "...", Points: 20},
	}
}

func TestMaxScoreComputedAtConstruction(t *testing.T) {
	calc := exam.NewCalculator(twoQuestions(), 20)

	if calc.MaxScore() != 30 {
		t.Errorf("expected max score 30, got %v", calc.MaxScore())
	}
}

func TestGenerateReport(t *testing.T) {
	calc := exam.NewCalculator(twoQuestions(), 20)

	report, err := calc.GenerateReport([]exam.Judgment{
		{QuestionID: "q1", Score: 8, Comment: "mostly right"},
		{QuestionID: "q2", Score: 15, Comment: "missed the edge case"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.TotalScore != 23 {
		t.Errorf("expected total 23, got %v", report.TotalScore)
	}
	if report.MaxScore != 30 {
		t.Errorf("expected max 30, got %v", report.MaxScore)
	}
	if report.Percentage != 76.67 {
		t.Errorf("expected percentage 76.67, got %v", report.Percentage)
	}
	if !report.Passed {
		t.Error("expected passed with total 23 >= passing 20")
	}
}

func TestGenerateReportDetailsFollowQuestionOrder(t *testing.T) {
	calc := exam.NewCalculator(twoQuestions(), 20)

	// Judgments arrive out of order; details must still follow questions.
	report, err := calc.GenerateReport([]exam.Judgment{
		{QuestionID: "q2", Score: 15},
		{QuestionID: "q1", Score: 8},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(report.Details) != 2 {
		t.Fatalf("expected 2 details, got %d", len(report.Details))
	}
	if report.Details[0].QuestionID != "q1" || report.Details[1].QuestionID != "q2" {
		t.Errorf("details out of order: %q, %q",
			report.Details[0].QuestionID, report.Details[1].QuestionID)
	}
	if report.Details[1].MaxPoints != 20 {
		t.Errorf("expected max points 20 carried from question, got %v", report.Details[1].MaxPoints)
	}
}

func TestGenerateReportEmptyQuestions(t *testing.T) {
	calc := exam.NewCalculator(nil, 60)

	report, err := calc.GenerateReport(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// No division-by-zero fault: percentage is simply 0.
	if report.Percentage != 0 {
		t.Errorf("expected percentage 0 with empty question list, got %v", report.Percentage)
	}
	if report.Passed {
		t.Error("expected not passed with total 0 and passing 60")
	}
}

func TestGenerateReportZeroPassingScore(t *testing.T) {
	calc := exam.NewCalculator(twoQuestions(), 0)

	report, err := calc.GenerateReport([]exam.Judgment{
		{QuestionID: "q1", Score: 0},
		{QuestionID: "q2", Score: 0},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !report.Passed {
		t.Error("expected passed: total 0 meets passing score 0")
	}
}

func TestGenerateReportMissingJudgment(t *testing.T) {
	calc := exam.NewCalculator(twoQuestions(), 20)

	_, err := calc.GenerateReport([]exam.Judgment{
		{QuestionID: "q1", Score: 8},
	})
	if err == nil {
		t.Fatal("expected error for missing judgment, got nil")
	}
	if !strings.Contains(err.Error(), "q2") {
		t.Errorf("expected error to name the unmatched question, got %q", err)
	}
}

func TestGenerateReportDuplicateJudgment(t *testing.T) {
	calc := exam.NewCalculator(twoQuestions(), 20)

	_, err := calc.GenerateReport([]exam.Judgment{
		{QuestionID: "q1", Score: 8},
		{QuestionID: "q1", Score: 9},
		{QuestionID: "q2", Score: 15},
	})
	if err == nil {
		t.Fatal("expected error for duplicate judgment, got nil")
	}
}

func TestGenerateReportUnknownQuestion(t *testing.T) {
	calc := exam.NewCalculator(twoQuestions(), 20)

	_, err := calc.GenerateReport([]exam.Judgment{
		{QuestionID: "q1", Score: 8},
		{QuestionID: "q2", Score: 15},
		{QuestionID: "ghost", Score: 5},
	})
	if err == nil {
		t.Fatal("expected error for judgment of unknown question, got nil")
	}
}

func TestQuestionValidate(t *testing.T) {
	tests := []struct {
		name     string
		question exam.Question
		wantErr  bool
	}{
		{"valid", exam.Question{ID: "q1", Text: "What is DNS?", Points: 5}, false},
		{"empty id", exam.Question{Text: "What is DNS?", Points: 5}, true},
		{"empty text", exam.Question{ID: "q1", Points: 5}, true},
		{"zero points", exam.Question{ID: "q1", Text: "What is DNS?"}, true},
		{"negative points", exam.Question{ID: "q1", Text: "What is DNS?", Points: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.question.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
