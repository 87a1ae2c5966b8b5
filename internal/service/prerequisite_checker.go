package service

import (
	"context"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/models"
)

type prerequisiteLister interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.CoursePrerequisite, error)
	ListByCourses(ctx context.Context, courseIDs []string) ([]models.CoursePrerequisite, error)
}

// PrerequisiteChecker decides whether a student satisfies a course's prerequisites.
type PrerequisiteChecker struct {
	prereqs prerequisiteLister
	history historyLoader
}

// NewPrerequisiteChecker constructs the checker.
func NewPrerequisiteChecker(prereqs prerequisiteLister, history historyLoader) *PrerequisiteChecker {
	return &PrerequisiteChecker{prereqs: prereqs, history: history}
}

// Check loads the course's prerequisites and the student's history and evaluates them.
func (c *PrerequisiteChecker) Check(ctx context.Context, studentID, courseID string) (dto.PrerequisiteResult, error) {
	prereqs, err := c.prereqs.ListByCourse(ctx, courseID)
	if err != nil {
		return dto.PrerequisiteResult{}, err
	}
	if len(prereqs) == 0 {
		return dto.PrerequisiteResult{Passed: true, MissingPrerequisites: []dto.MissingPrerequisite{}}, nil
	}
	history, err := c.history.Load(ctx, studentID)
	if err != nil {
		return dto.PrerequisiteResult{}, err
	}
	return evaluatePrerequisites(prereqs, history), nil
}

// evaluatePrerequisites collects every unmet prerequisite. Optional ones are
// reported but only a missing required prerequisite fails the result.
func evaluatePrerequisites(prereqs []models.CoursePrerequisite, history StudentHistory) dto.PrerequisiteResult {
	result := dto.PrerequisiteResult{Passed: true, MissingPrerequisites: []dto.MissingPrerequisite{}}
	for _, p := range prereqs {
		minimum := p.MinimumGrade
		if minimum == models.GradeNone {
			minimum = models.GradeDMinus
		}
		rec, ok := history.Result(p.PrerequisiteID)
		if ok && rec.LetterGrade.Passing() && rec.LetterGrade.Meets(minimum) {
			continue
		}
		missing := dto.MissingPrerequisite{
			CourseID:     p.PrerequisiteID,
			Code:         p.Code,
			Name:         p.Name,
			IsRequired:   p.IsRequired,
			MinimumGrade: minimum,
		}
		if ok {
			missing.AchievedGrade = rec.LetterGrade
		}
		result.MissingPrerequisites = append(result.MissingPrerequisites, missing)
		if p.IsRequired {
			result.Passed = false
		}
	}
	return result
}

// groupPrerequisites indexes prerequisite rows by the course they gate.
func groupPrerequisites(prereqs []models.CoursePrerequisite) map[string][]models.CoursePrerequisite {
	grouped := make(map[string][]models.CoursePrerequisite)
	for _, p := range prereqs {
		grouped[p.CourseID] = append(grouped[p.CourseID], p)
	}
	return grouped
}
