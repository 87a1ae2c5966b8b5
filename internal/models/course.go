package models

import (
	"strings"
	"time"

	"github.com/lib/pq"
)

// CourseType distinguishes required courses from electives.
type CourseType string

const (
	CourseTypeCore     CourseType = "core"
	CourseTypeElective CourseType = "elective"
)

// Valid reports whether t is a known course type.
func (t CourseType) Valid() bool {
	return t == CourseTypeCore || t == CourseTypeElective
}

// GeneralMajor matches every student major.
const GeneralMajor = "General"

// Course is a catalog entry.
type Course struct {
	ID            string         `db:"id" json:"id"`
	Code          string         `db:"code" json:"code"`
	Name          string         `db:"name" json:"name"`
	CreditHours   int            `db:"credit_hours" json:"credit_hours"`
	AcademicLevel int            `db:"academic_level" json:"academic_level"`
	CourseType    CourseType     `db:"course_type" json:"course_type"`
	Majors        pq.StringArray `db:"majors" json:"majors"`
	Department    string         `db:"department" json:"department"`
	InstructorID  *string        `db:"instructor_id" json:"instructor_id,omitempty"`
	IsActive      bool           `db:"is_active" json:"is_active"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// OpenTo reports whether a student of the given major may take the course.
// Majors compare case-insensitively and "General" admits everyone.
func (c Course) OpenTo(major string) bool {
	for _, m := range c.Majors {
		if strings.EqualFold(m, GeneralMajor) || strings.EqualFold(m, major) {
			return true
		}
	}
	return false
}

// TaughtBy reports whether the course is assigned to the instructor.
func (c Course) TaughtBy(userID string) bool {
	return c.InstructorID != nil && *c.InstructorID == userID
}

// CourseFilter narrows catalog queries.
type CourseFilter struct {
	Search     string
	Major      string
	Department string
	CourseType *CourseType
	MinLevel   int
	MaxLevel   int
	Active     *bool
	Page       int
	PageSize   int
}

// CreateCourseRequest is the payload for adding a catalog course.
type CreateCourseRequest struct {
	Code          string     `json:"code" validate:"required,max=20"`
	Name          string     `json:"name" validate:"required,max=200"`
	CreditHours   int        `json:"credit_hours" validate:"required,min=1,max=6"`
	AcademicLevel int        `json:"academic_level" validate:"required,min=1,max=8"`
	CourseType    CourseType `json:"course_type" validate:"required,oneof=core elective"`
	Majors        []string   `json:"majors" validate:"required,min=1,dive,required"`
	Department    string     `json:"department" validate:"required"`
	InstructorID  *string    `json:"instructor_id" validate:"omitempty,uuid"`
}

// UpdateCourseRequest replaces the mutable catalog fields of a course.
type UpdateCourseRequest struct {
	Name          string     `json:"name" validate:"required,max=200"`
	CreditHours   int        `json:"credit_hours" validate:"required,min=1,max=6"`
	AcademicLevel int        `json:"academic_level" validate:"required,min=1,max=8"`
	CourseType    CourseType `json:"course_type" validate:"required,oneof=core elective"`
	Majors        []string   `json:"majors" validate:"required,min=1,dive,required"`
	Department    string     `json:"department" validate:"required"`
	InstructorID  *string    `json:"instructor_id" validate:"omitempty,uuid"`
	IsActive      *bool      `json:"is_active"`
}

// CoursePrerequisite links a course to one of its prerequisites. Code and
// Name describe the prerequisite course when loaded with a join.
type CoursePrerequisite struct {
	ID             string      `db:"id" json:"id"`
	CourseID       string      `db:"course_id" json:"course_id"`
	PrerequisiteID string      `db:"prerequisite_id" json:"prerequisite_id"`
	IsRequired     bool        `db:"is_required" json:"is_required"`
	MinimumGrade   LetterGrade `db:"minimum_grade" json:"minimum_grade"`
	Code           string      `db:"prerequisite_code" json:"prerequisite_code,omitempty"`
	Name           string      `db:"prerequisite_name" json:"prerequisite_name,omitempty"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
}

// AddPrerequisiteRequest attaches a prerequisite to a course.
type AddPrerequisiteRequest struct {
	PrerequisiteID string      `json:"prerequisite_id" validate:"required"`
	IsRequired     *bool       `json:"is_required"`
	MinimumGrade   LetterGrade `json:"minimum_grade"`
}

// SemesterCourse records that a course is offered in a given term.
type SemesterCourse struct {
	ID            string    `db:"id" json:"id"`
	CourseID      string    `db:"course_id" json:"course_id"`
	Semester      int       `db:"semester" json:"semester"`
	AcademicYear  string    `db:"academic_year" json:"academic_year"`
	Capacity      int       `db:"capacity" json:"capacity"`
	EnrolledCount int       `db:"enrolled_count" json:"enrolled_count"`
	IsActive      bool      `db:"is_active" json:"is_active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// CreateOfferingRequest schedules a course for a semester.
type CreateOfferingRequest struct {
	Semester     int    `json:"semester" validate:"required,min=1,max=8"`
	AcademicYear string `json:"academic_year" validate:"required,len=9"`
	Capacity     int    `json:"capacity" validate:"required,min=1"`
}
