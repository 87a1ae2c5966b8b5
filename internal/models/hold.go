package models

import "time"

// Hold is an administrative flag on a student account.
type Hold struct {
	ID                   string    `db:"id" json:"id"`
	StudentID            string    `db:"student_id" json:"student_id"`
	Reason               string    `db:"reason" json:"reason"`
	RestrictRegistration bool      `db:"restrict_registration" json:"restrict_registration"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
}

// CreateHoldRequest places a hold on a student.
type CreateHoldRequest struct {
	Reason               string `json:"reason" validate:"required,max=255"`
	RestrictRegistration bool   `json:"restrict_registration"`
}
