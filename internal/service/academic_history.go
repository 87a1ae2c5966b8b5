package service

import (
	"context"
	"sort"

	"github.com/noah-isme/lms-api/internal/models"
)

type completedRegistrationReader interface {
	ListCompleted(ctx context.Context, studentID string) ([]models.RegistrationDetail, error)
}

type gradeHistoryReader interface {
	ListHistory(ctx context.Context, studentID string) ([]models.GradedCourse, error)
}

// historyLoader loads a student's academic history.
type historyLoader interface {
	Load(ctx context.Context, studentID string) (StudentHistory, error)
}

// StudentHistory holds the most recent graded result per course.
type StudentHistory map[string]models.GradedCourse

// Completed reports how many distinct courses the student has a result for.
func (h StudentHistory) Completed() int {
	return len(h)
}

// Result returns the latest result for a course.
func (h StudentHistory) Result(courseID string) (models.GradedCourse, bool) {
	rec, ok := h[courseID]
	return rec, ok
}

// Failed reports whether the latest attempt at the course was not passing.
func (h StudentHistory) Failed(courseID string) bool {
	rec, ok := h[courseID]
	return ok && !rec.LetterGrade.Passing()
}

// Passed reports whether the latest attempt at the course earned credit.
func (h StudentHistory) Passed(courseID string) bool {
	rec, ok := h[courseID]
	return ok && rec.LetterGrade.Passing()
}

// FailedCourseIDs lists courses whose latest attempt failed, sorted for stable output.
func (h StudentHistory) FailedCourseIDs() []string {
	ids := make([]string, 0)
	for id, rec := range h {
		if !rec.LetterGrade.Passing() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Records returns the latest result per course ordered by course code.
func (h StudentHistory) Records() []models.GradedCourse {
	records := make([]models.GradedCourse, 0, len(h))
	for _, rec := range h {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].CourseCode < records[j].CourseCode })
	return records
}

// latestByCourse keeps the first entry per course of a newest-first list.
func latestByCourse(history []models.GradedCourse) StudentHistory {
	out := make(StudentHistory, len(history))
	for _, rec := range history {
		if _, seen := out[rec.CourseID]; !seen {
			out[rec.CourseID] = rec
		}
	}
	return out
}

// AcademicHistory merges completed registrations with archived grade rows.
// Registrations are consumed by the grade roll-up, so grade rows are the
// durable record; a completed registration, when present, is the newest
// result for its course.
type AcademicHistory struct {
	registrations completedRegistrationReader
	grades        gradeHistoryReader
}

// NewAcademicHistory constructs the history loader.
func NewAcademicHistory(registrations completedRegistrationReader, grades gradeHistoryReader) *AcademicHistory {
	return &AcademicHistory{registrations: registrations, grades: grades}
}

// Load returns the student's latest result per course.
func (h *AcademicHistory) Load(ctx context.Context, studentID string) (StudentHistory, error) {
	regs, err := h.registrations.ListCompleted(ctx, studentID)
	if err != nil {
		return nil, err
	}
	grades, err := h.grades.ListHistory(ctx, studentID)
	if err != nil {
		return nil, err
	}

	history := make(StudentHistory, len(regs)+len(grades))
	for _, reg := range regs {
		if _, seen := history[reg.CourseID]; seen || reg.Grade == models.GradeNone {
			continue
		}
		history[reg.CourseID] = models.GradedCourse{
			CourseID:     reg.CourseID,
			CourseCode:   reg.CourseCode,
			CourseName:   reg.CourseName,
			CreditHours:  reg.CreditHours,
			LetterGrade:  reg.Grade,
			Semester:     reg.Semester,
			AcademicYear: reg.AcademicYear,
			GradedAt:     reg.UpdatedAt,
		}
	}
	for course, rec := range latestByCourse(grades) {
		if _, seen := history[course]; !seen {
			history[course] = rec
		}
	}
	return history, nil
}
