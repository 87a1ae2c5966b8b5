package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// QuizQuestion is a single multiple-choice question. Answer indexes Options.
type QuizQuestion struct {
	Prompt  string   `json:"prompt" validate:"required,max=1000"`
	Options []string `json:"options" validate:"required,min=2,max=10,dive,required"`
	Answer  *int     `json:"answer,omitempty" validate:"required,min=0"`
	Points  float64  `json:"points" validate:"gt=0"`
}

// QuizQuestions is stored as a JSONB column.
type QuizQuestions []QuizQuestion

// Value implements driver.Valuer.
func (q QuizQuestions) Value() (driver.Value, error) {
	if q == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(q)
}

// Scan implements sql.Scanner.
func (q *QuizQuestions) Scan(src interface{}) error {
	return scanJSON(src, q)
}

// TotalPoints sums the points of every question.
func (q QuizQuestions) TotalPoints() float64 {
	total := 0.0
	for _, question := range q {
		total += question.Points
	}
	return total
}

// Redacted returns a copy without the correct answers.
func (q QuizQuestions) Redacted() QuizQuestions {
	out := make(QuizQuestions, len(q))
	for i, question := range q {
		question.Answer = nil
		out[i] = question
	}
	return out
}

// Quiz is an assessment attached to a course.
type Quiz struct {
	ID          string        `db:"id" json:"id"`
	CourseID    string        `db:"course_id" json:"course_id"`
	Title       string        `db:"title" json:"title"`
	Description string        `db:"description" json:"description"`
	Questions   QuizQuestions `db:"questions" json:"questions"`
	TotalPoints float64       `db:"total_points" json:"total_points"`
	DueAt       *time.Time    `db:"due_at" json:"due_at,omitempty"`
	CreatedBy   string        `db:"created_by" json:"created_by"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
}

// Closed reports whether the due date has passed at now.
func (q Quiz) Closed(now time.Time) bool {
	return q.DueAt != nil && now.After(*q.DueAt)
}

// QuizAnswers holds the option index chosen for each question.
type QuizAnswers []int

// Value implements driver.Valuer.
func (a QuizAnswers) Value() (driver.Value, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(a)
}

// Scan implements sql.Scanner.
func (a *QuizAnswers) Scan(src interface{}) error {
	return scanJSON(src, a)
}

// QuizSubmission is a student's single attempt at a quiz. (quiz_id,
// student_id) is unique.
type QuizSubmission struct {
	ID          string      `db:"id" json:"id"`
	QuizID      string      `db:"quiz_id" json:"quiz_id"`
	StudentID   string      `db:"student_id" json:"student_id"`
	Answers     QuizAnswers `db:"answers" json:"answers"`
	Score       float64     `db:"score" json:"score"`
	MaxScore    float64     `db:"max_score" json:"max_score"`
	SubmittedAt time.Time   `db:"submitted_at" json:"submitted_at"`
}

// CreateQuizRequest is the payload for a new quiz.
type CreateQuizRequest struct {
	Title       string         `json:"title" validate:"required,max=200"`
	Description string         `json:"description" validate:"max=2000"`
	DueAt       *time.Time     `json:"due_at"`
	Questions   []QuizQuestion `json:"questions" validate:"required,min=1,max=100,dive"`
}

// UpdateQuizRequest replaces a quiz's mutable fields.
type UpdateQuizRequest CreateQuizRequest

// SubmitQuizRequest answers every question of a quiz in order.
type SubmitQuizRequest struct {
	Answers []int `json:"answers" validate:"required,min=1"`
}

func scanJSON(src interface{}, dst interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported type %T for json column", src)
	}
}
