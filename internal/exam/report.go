package exam

import (
	"fmt"
	"math"
)

// Report summarizes one graded exam attempt. It lives only for the
// attempt that produced it and is not persisted anywhere.
type Report struct {
	TotalScore   float64
	MaxScore     float64
	PassingScore float64
	Percentage   float64 // rounded to two decimals; 0 when MaxScore is 0
	Passed       bool
	Details      []Detail // one entry per question, in question order
}

// Detail carries the per-question breakdown of a report.
type Detail struct {
	QuestionID string
	Question   string
	MaxPoints  float64
	Score      float64
	Comment    string
}

// Calculator turns a set of judgments into a Report. The question list and
// passing score are fixed at construction; MaxScore is computed once.
type Calculator struct {
	questions    []Question
	passingScore float64
	maxScore     float64
}

// NewCalculator creates a calculator for the given questions.
func NewCalculator(questions []Question, passingScore float64) *Calculator {
	maxScore := 0.0
	for _, q := range questions {
		maxScore += q.Points
	}
	return &Calculator{
		questions:    questions,
		passingScore: passingScore,
		maxScore:     maxScore,
	}
}

// MaxScore returns the sum of all question point values.
func (c *Calculator) MaxScore() float64 { return c.maxScore }

// PassingScore returns the configured passing threshold.
func (c *Calculator) PassingScore() float64 { return c.passingScore }

// GenerateReport pairs judgments with questions by question ID and computes
// the totals. Every question must have exactly one judgment and every
// judgment must belong to a known question; a missing, duplicate, or
// unknown ID is an error rather than a silent truncation.
func (c *Calculator) GenerateReport(judgments []Judgment) (Report, error) {
	byID := make(map[string]Judgment, len(judgments))
	for _, j := range judgments {
		if _, ok := byID[j.QuestionID]; ok {
			return Report{}, fmt.Errorf("duplicate judgment for question %q", j.QuestionID)
		}
		byID[j.QuestionID] = j
	}

	totalScore := 0.0
	details := make([]Detail, 0, len(c.questions))
	for _, q := range c.questions {
		j, ok := byID[q.ID]
		if !ok {
			return Report{}, fmt.Errorf("no judgment for question %q", q.ID)
		}
		delete(byID, q.ID)

		totalScore += j.Score
		details = append(details, Detail{
			QuestionID: q.ID,
			Question:   q.Text,
			MaxPoints:  q.Points,
			Score:      j.Score,
			Comment:    j.Comment,
		})
	}
	for id := range byID {
		return Report{}, fmt.Errorf("judgment for unknown question %q", id)
	}

	percentage := 0.0
	if c.maxScore > 0 {
		percentage = round2(totalScore / c.maxScore * 100)
	}

	return Report{
		TotalScore:   totalScore,
		MaxScore:     c.maxScore,
		PassingScore: c.passingScore,
		Percentage:   percentage,
		Passed:       totalScore >= c.passingScore,
		Details:      details,
	}, nil
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
