package models

import "time"

// GPARule maps an inclusive GPA band to a per-semester credit-hour cap.
type GPARule struct {
	ID             string    `db:"id" json:"id"`
	MinGPA         float64   `db:"min_gpa" json:"min_gpa"`
	MaxGPA         float64   `db:"max_gpa" json:"max_gpa"`
	MaxCreditHours int       `db:"max_credit_hours" json:"max_credit_hours"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Contains reports whether gpa falls inside the band, both ends inclusive.
func (r GPARule) Contains(gpa float64) bool {
	return gpa >= r.MinGPA && gpa <= r.MaxGPA
}

// Overlaps reports whether two bands share more than a single endpoint.
func (r GPARule) Overlaps(other GPARule) bool {
	return r.MinGPA < other.MaxGPA && r.MaxGPA > other.MinGPA
}

// GPARuleRequest creates or replaces a GPA band.
type GPARuleRequest struct {
	MinGPA         *float64 `json:"min_gpa" validate:"required,gte=0,lte=4"`
	MaxGPA         *float64 `json:"max_gpa" validate:"required,gte=0,lte=4"`
	MaxCreditHours int      `json:"max_credit_hours" validate:"required,min=3,max=24"`
}

// LevelProgression holds the requirements to move between academic levels.
type LevelProgression struct {
	ID                  string    `db:"id" json:"id"`
	FromLevel           int       `db:"from_level" json:"from_level"`
	ToLevel             int       `db:"to_level" json:"to_level"`
	RequiredCreditHours int       `db:"required_credit_hours" json:"required_credit_hours"`
	RequiredGPA         float64   `db:"required_gpa" json:"required_gpa"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
}

// LevelProgressionRequest creates a progression rule.
type LevelProgressionRequest struct {
	FromLevel           int     `json:"from_level" validate:"required,min=1,max=7"`
	ToLevel             int     `json:"to_level" validate:"required,min=2,max=8"`
	RequiredCreditHours int     `json:"required_credit_hours" validate:"gte=0"`
	RequiredGPA         float64 `json:"required_gpa" validate:"gte=0,lte=4"`
}
