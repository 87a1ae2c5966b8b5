package dto

import "github.com/noah-isme/lms-api/internal/models"

// GradeCommit reports a recorded grade and whether it completed the term.
type GradeCommit struct {
	Grade models.Grade `json:"grade"`
	// Archived is true when this grade was the last outstanding one and the
	// student's registrations were rolled into the permanent record.
	Archived             bool    `json:"archived"`
	GPA                  float64 `json:"gpa,omitempty"`
	EarnedCreditHours    int     `json:"earnedCreditHours,omitempty"`
	PendingRegistrations int     `json:"pendingRegistrations"`
}
