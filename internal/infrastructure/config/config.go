// Package config loads and validates the run configuration.
package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/papergrader/backend/internal/exam"
)

// Config is the full, validated configuration of a grading run. All values
// are resolved once at startup and treated as immutable afterwards.
type Config struct {
	Env     string  `yaml:"env" env:"ENV" env-default:"local"`
	AI      AI      `yaml:"ai"`
	OCR     OCR     `yaml:"ocr"`
	Browser Browser `yaml:"browser"`
	Exam    Exam    `yaml:"exam"`
}

// AI configures the inference gateway.
type AI struct {
	BaseURL     string        `yaml:"base_url" env:"AI_BASE_URL" env-default:"http://localhost:11434/v1"`
	APIKey      string        `yaml:"api_key" env:"AI_API_KEY"`
	Model       string        `yaml:"model" env:"AI_MODEL" env-default:"gpt-4o-mini"`
	Timeout     time.Duration `yaml:"timeout" env-default:"60s"`
	MaxRetries  int           `yaml:"max_retries" env-default:"3"`
	Temperature float64       `yaml:"temperature" env-default:"0.3"`
}

// OCR configures the recognition engine.
type OCR struct {
	Language      string  `yaml:"language" env-default:"eng"`
	MinConfidence float64 `yaml:"min_confidence" env-default:"0"`
}

// Browser configures the automation session and the timing constants of
// the pipeline.
type Browser struct {
	URL            string        `yaml:"url" env:"TARGET_URL"`
	Headless       bool          `yaml:"headless" env-default:"false"`
	WindowWidth    int           `yaml:"window_width" env-default:"1920"`
	WindowHeight   int           `yaml:"window_height" env-default:"1080"`
	ElementTimeout time.Duration `yaml:"element_timeout" env-default:"30s"`
	WaitAfterFill  time.Duration `yaml:"wait_after_fill" env-default:"500ms"`
	ExamInterval   time.Duration `yaml:"exam_interval" env-default:"2s"`
	Selectors      Selectors     `yaml:"selectors"`
}

// Selectors locate the page elements the pipeline interacts with.
type Selectors struct {
	ExamImage  string `yaml:"exam_image" env-default:"#exam-container img"`
	ScoreInput string `yaml:"score_input" env-default:"input[name='score']"`
	NextButton string `yaml:"next_button" env-default:"button.next-exam"`
}

// Exam configures the question list and the grading policy.
type Exam struct {
	PromptTemplate    string     `yaml:"prompt_template" env-default:"default"`
	PassingScore      float64    `yaml:"passing_score" env-default:"60"`
	MaxExams          int        `yaml:"max_exams"`           // 0 = no limit
	ContinueOnFailure bool       `yaml:"continue_on_failure"` // false = stop the run on the first failed exam
	Questions         []Question `yaml:"questions"`
}

// Question is the on-disk form of an exam question.
type Question struct {
	ID     string  `yaml:"id"`
	Text   string  `yaml:"text"`
	Answer string  `yaml:"answer"`
	Points float64 `yaml:"points"`
}

// Domain converts the config entry into the domain type.
func (q Question) Domain() exam.Question {
	return exam.Question{ID: q.ID, Text: q.Text, Answer: q.Answer, Points: q.Points}
}

// ValidationError reports a rejected configuration field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// Load reads the YAML file at path, applies environment overrides (a .env
// file is honored when present), and validates the result. Invalid
// configuration fails here, before any exam is processed.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("cannot read config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Browser.URL == "" {
		return &ValidationError{Field: "browser.url", Reason: "target URL is required"}
	}
	if c.AI.MaxRetries < 1 {
		return &ValidationError{Field: "ai.max_retries", Reason: "must be at least 1"}
	}
	if c.Exam.PassingScore < 0 {
		return &ValidationError{Field: "exam.passing_score", Reason: "cannot be negative"}
	}
	if len(c.Exam.Questions) == 0 {
		return &ValidationError{Field: "exam.questions", Reason: "at least one question is required"}
	}

	seen := make(map[string]bool, len(c.Exam.Questions))
	for i, q := range c.Exam.Questions {
		if err := q.Domain().Validate(); err != nil {
			return &ValidationError{
				Field:  fmt.Sprintf("exam.questions[%d]", i),
				Reason: err.Error(),
			}
		}
		if seen[q.ID] {
			return &ValidationError{
				Field:  fmt.Sprintf("exam.questions[%d].id", i),
				Reason: fmt.Sprintf("duplicate question id %q", q.ID),
			}
		}
		seen[q.ID] = true
	}
	return nil
}

// DomainQuestions converts all configured questions into domain types.
func (c *Config) DomainQuestions() []exam.Question {
	questions := make([]exam.Question, 0, len(c.Exam.Questions))
	for _, q := range c.Exam.Questions {
		questions = append(questions, q.Domain())
	}
	return questions
}
