package models

import "time"

// RegistrationStatus is the lifecycle state of a course registration.
type RegistrationStatus string

const (
	RegistrationPending    RegistrationStatus = "pending"
	RegistrationApproved   RegistrationStatus = "approved"
	RegistrationRejected   RegistrationStatus = "rejected"
	RegistrationWaitlisted RegistrationStatus = "waitlisted"
	RegistrationDropped    RegistrationStatus = "dropped"
	RegistrationCompleted  RegistrationStatus = "completed"
)

// Valid reports whether s is a known status.
func (s RegistrationStatus) Valid() bool {
	switch s {
	case RegistrationPending, RegistrationApproved, RegistrationRejected,
		RegistrationWaitlisted, RegistrationDropped, RegistrationCompleted:
		return true
	}
	return false
}

// InFlight reports whether the registration still occupies a seat and
// counts against the semester credit-hour cap.
func (s RegistrationStatus) InFlight() bool {
	switch s {
	case RegistrationPending, RegistrationApproved, RegistrationWaitlisted:
		return true
	}
	return false
}

// Withdrawn reports whether the registration was dropped or rejected and
// may be replaced by a fresh request for the same term.
func (s RegistrationStatus) Withdrawn() bool {
	return s == RegistrationDropped || s == RegistrationRejected
}

// Registration is a student's request to take a course in a term.
type Registration struct {
	ID           string             `db:"id" json:"id"`
	StudentID    string             `db:"student_id" json:"student_id"`
	CourseID     string             `db:"course_id" json:"course_id"`
	Semester     int                `db:"semester" json:"semester"`
	AcademicYear string             `db:"academic_year" json:"academic_year"`
	Status       RegistrationStatus `db:"status" json:"status"`
	Grade        LetterGrade        `db:"grade" json:"grade"`
	IsPassed     bool               `db:"is_passed" json:"is_passed"`
	ApprovedBy   *string            `db:"approved_by" json:"approved_by,omitempty"`
	CreatedAt    time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `db:"updated_at" json:"updated_at"`
}

// RegistrationDetail is a registration joined with its course.
type RegistrationDetail struct {
	Registration
	CourseCode    string     `db:"course_code" json:"course_code"`
	CourseName    string     `db:"course_name" json:"course_name"`
	CreditHours   int        `db:"credit_hours" json:"credit_hours"`
	AcademicLevel int        `db:"academic_level" json:"academic_level"`
	CourseType    CourseType `db:"course_type" json:"course_type"`
}

// RegistrationFilter narrows registration listings.
type RegistrationFilter struct {
	Status       *RegistrationStatus
	Semester     int
	AcademicYear string
}

// RegisterCourseRequest is the payload of the registration workflow.
type RegisterCourseRequest struct {
	StudentID    string `json:"student_id" validate:"required"`
	CourseID     string `json:"course_id" validate:"required"`
	Semester     int    `json:"semester" validate:"required,min=1,max=8"`
	AcademicYear string `json:"academic_year" validate:"required,len=9"`
}
