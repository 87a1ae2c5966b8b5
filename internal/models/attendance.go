package models

import "time"

// AttendanceStatus records how a student attended a class meeting.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceLate    AttendanceStatus = "late"
	AttendanceExcused AttendanceStatus = "excused"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceLate, AttendanceExcused:
		return true
	default:
		return false
	}
}

// Attendance is one student's attendance for one meeting of a course.
// (student_id, course_id, date) is unique.
type Attendance struct {
	ID         string           `db:"id" json:"id"`
	StudentID  string           `db:"student_id" json:"student_id"`
	CourseID   string           `db:"course_id" json:"course_id"`
	Date       time.Time        `db:"date" json:"date"`
	Status     AttendanceStatus `db:"status" json:"status"`
	Notes      *string          `db:"notes" json:"notes,omitempty"`
	RecordedBy string           `db:"recorded_by" json:"recorded_by"`
	CreatedAt  time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceFilter scopes attendance listings.
type AttendanceFilter struct {
	CourseID  string
	StudentID string
	Status    *AttendanceStatus
	DateFrom  *time.Time
	DateTo    *time.Time
}

// AttendanceSummary counts a student's attendance in a course. Late
// counts as attended.
type AttendanceSummary struct {
	Present int     `db:"present" json:"present"`
	Absent  int     `db:"absent" json:"absent"`
	Late    int     `db:"late" json:"late"`
	Excused int     `db:"excused" json:"excused"`
	Total   int     `db:"total" json:"total"`
	Percent float64 `db:"-" json:"percent"`
}

// ComputePercent fills Percent from the counts, rounded to two decimals.
func (s *AttendanceSummary) ComputePercent() {
	if s.Total == 0 {
		s.Percent = 0
		return
	}
	attended := float64(s.Present+s.Late) / float64(s.Total) * 100
	s.Percent = float64(int(attended*100+0.5)) / 100
}

// StudentAttendance is a student's attendance record for one course.
type StudentAttendance struct {
	StudentID string            `json:"student_id"`
	CourseID  string            `json:"course_id"`
	Records   []Attendance      `json:"records"`
	Summary   AttendanceSummary `json:"summary"`
}

// MarkAttendanceRequest records one student's attendance on a date.
type MarkAttendanceRequest struct {
	StudentID string  `json:"student_id" validate:"required"`
	Date      string  `json:"date" validate:"required,datetime=2006-01-02"`
	Status    string  `json:"status" validate:"required,oneof=present absent late excused"`
	Notes     *string `json:"notes" validate:"omitempty,max=255"`
}

// BulkAttendanceItem is one row of a bulk attendance sheet.
type BulkAttendanceItem struct {
	StudentID string  `json:"student_id" validate:"required"`
	Status    string  `json:"status" validate:"required,oneof=present absent late excused"`
	Notes     *string `json:"notes" validate:"omitempty,max=255"`
}

// BulkMarkAttendanceRequest records a whole meeting at once. Every row is
// written or none is.
type BulkMarkAttendanceRequest struct {
	Date  string               `json:"date" validate:"required,datetime=2006-01-02"`
	Items []BulkAttendanceItem `json:"items" validate:"required,min=1,max=500,dive"`
}
