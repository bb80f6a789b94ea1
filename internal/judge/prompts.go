package judge

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/papergrader/backend/internal/exam"
)

// Template is a grading prompt with four named placeholders: {question},
// {standard_answer}, {student_answer}, and {max_points}. All built-in
// templates ask for the same reply shape, {"score": number, "comment": string},
// and differ only in grading leniency.
type Template string

// Render substitutes the question, its standard answer, the student's
// recognized answer text, and the point value into the template.
func (t Template) Render(q exam.Question, studentAnswer string) string {
	return strings.NewReplacer(
		"{question}", q.Text,
		"{standard_answer}", q.Answer,
		"{student_answer}", studentAnswer,
		"{max_points}", strconv.FormatFloat(q.Points, 'f', -1, 64),
	).Replace(string(t))
}

const DefaultTemplate Template = `You are an exam grader. Grade the student's answer using the information below.

Question: {question}
Standard answer: {standard_answer}
Student answer: {student_answer}
Maximum points: {max_points}

Grading requirements:
1. Compare the student answer carefully against the standard answer.
2. Award points based on completeness and correctness.
3. The score must be between 0 and {max_points}.
4. Always give a short comment explaining the score.

Respond with ONLY this JSON, no explanation, no markdown:
{"score": <awarded points>, "comment": "<short justification>"}`

const StrictTemplate Template = `You are a strict exam grader. Grade the student's answer using the information below.

Question: {question}
Standard answer: {standard_answer}
Student answer: {student_answer}
Maximum points: {max_points}

Grading requirements:
1. Full points only when the student answer closely matches the standard answer.
2. Partially correct answers receive partial credit.
3. A wrong or unrelated answer receives 0 points.

Respond with ONLY this JSON, no explanation, no markdown:
{"score": <awarded points>, "comment": "<short justification>"}`

const LenientTemplate Template = `You are a lenient exam grader. Grade the student's answer using the information below.

Question: {question}
Standard answer: {standard_answer}
Student answer: {student_answer}
Maximum points: {max_points}

Grading requirements:
1. Award high marks whenever the student covers the core points of the standard answer.
2. Different wording with the same meaning deserves full recognition.
3. Minor mistakes should still leave most of the points intact.

Respond with ONLY this JSON, no explanation, no markdown:
{"score": <awarded points>, "comment": "<short justification>"}`

// TemplateByName resolves a configured template name. Unknown names are
// rejected so a typo in configuration fails at startup, not mid-run.
func TemplateByName(name string) (Template, error) {
	switch name {
	case "", "default":
		return DefaultTemplate, nil
	case "strict":
		return StrictTemplate, nil
	case "lenient":
		return LenientTemplate, nil
	default:
		return "", fmt.Errorf("unknown prompt template %q (expected default, strict, or lenient)", name)
	}
}
