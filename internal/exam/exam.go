package exam

import "errors"

// Question is one exam question as supplied by configuration. The question
// list is loaded once at startup and shared read-only across all exam
// attempts in a run.
type Question struct {
	ID     string
	Text   string
	Answer string // the standard answer the student's text is graded against
	Points float64
}

// Validate checks the fields a question must carry before grading can use it.
func (q Question) Validate() error {
	if q.ID == "" {
		return errors.New("question id cannot be empty")
	}
	if q.Text == "" {
		return errors.New("question text cannot be empty")
	}
	if q.Points <= 0 {
		return errors.New("question points must be positive")
	}
	return nil
}

// Judgment is the score and feedback produced for a single question.
// Score is always within [0, Points] of the question it belongs to;
// the judge clamps rather than rejects.
type Judgment struct {
	QuestionID string
	Score      float64
	Comment    string
}
