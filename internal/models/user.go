package models

import "time"

// UserRole is the closed set of roles a principal may hold.
type UserRole string

const (
	RoleStudent    UserRole = "student"
	RoleInstructor UserRole = "instructor"
	RoleAdmin      UserRole = "admin"
	RoleManager    UserRole = "manager"
)

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleStudent, RoleInstructor, RoleAdmin, RoleManager:
		return true
	}
	return false
}

// Staff reports whether the role administers the catalog or registrations.
func (r UserRole) Staff() bool {
	return r == RoleAdmin || r == RoleManager
}

const (
	MinAcademicLevel = 1
	MaxAcademicLevel = 8
)

// User is an account stored in the users table. Academic fields are only
// meaningful for students and are mutated by the grade commit or by admins.
type User struct {
	ID                   string    `db:"id" json:"id"`
	Email                string    `db:"email" json:"email"`
	PasswordHash         string    `db:"password_hash" json:"-"`
	FullName             string    `db:"full_name" json:"full_name"`
	Role                 UserRole  `db:"role" json:"role"`
	Major                string    `db:"major" json:"major,omitempty"`
	AcademicLevel        int       `db:"academic_level" json:"academic_level"`
	GPA                  float64   `db:"gpa" json:"gpa"`
	CompletedCreditHours int       `db:"completed_credit_hours" json:"completed_credit_hours"`
	Semester             int       `db:"semester" json:"semester"`
	Active               bool      `db:"active" json:"active"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}

// StudentProfile aggregates a student's permanent academic record.
type StudentProfile struct {
	User          User     `json:"user"`
	PassedCourses []string `json:"passed_courses"`
	Holds         []Hold   `json:"holds"`
}

// Principal is the authenticated caller passed explicitly into every
// service operation.
type Principal struct {
	UserID string
	Role   UserRole
}

// Is reports whether the principal is the given user.
func (p Principal) Is(userID string) bool {
	return p.UserID != "" && p.UserID == userID
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
