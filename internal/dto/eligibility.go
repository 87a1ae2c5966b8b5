package dto

import "github.com/noah-isme/lms-api/internal/models"

// StudentInfo summarises the student a recommendation was computed for.
type StudentInfo struct {
	ID            string `json:"id"`
	FullName      string `json:"fullName"`
	Major         string `json:"major"`
	AcademicLevel int    `json:"academicLevel"`
	Semester      int    `json:"semester"`
}

// SuggestedCourses is the output of the eligibility filter.
type SuggestedCourses struct {
	FailedCourses        []models.Course `json:"failedCourses"`
	CoreCourses          []models.Course `json:"coreCourses"`
	ElectiveCourses      []models.Course `json:"electiveCourses"`
	MaxCreditHours       int             `json:"maxCreditHours"`
	CurrentGPA           float64         `json:"currentGPA"`
	CurrentCreditHours   int             `json:"currentCreditHours"`
	RemainingCreditHours int             `json:"remainingCreditHours"`
	Holds                []models.Hold   `json:"holds"`
	StudentInfo          StudentInfo     `json:"studentInfo"`
}

// MissingPrerequisite describes one unmet prerequisite of a course.
type MissingPrerequisite struct {
	CourseID      string             `json:"courseId"`
	Code          string             `json:"code"`
	Name          string             `json:"name"`
	IsRequired    bool               `json:"isRequired"`
	MinimumGrade  models.LetterGrade `json:"minimumGrade"`
	AchievedGrade models.LetterGrade `json:"achievedGrade,omitempty"`
}

// PrerequisiteResult is the verdict of a prerequisite check. Passed is false
// only when a required prerequisite is missing.
type PrerequisiteResult struct {
	Passed               bool                  `json:"passed"`
	MissingPrerequisites []MissingPrerequisite `json:"missingPrerequisites"`
}

// MissingRequiredCodes lists the course codes of missing required prerequisites.
func (r PrerequisiteResult) MissingRequiredCodes() []string {
	codes := make([]string, 0, len(r.MissingPrerequisites))
	for _, m := range r.MissingPrerequisites {
		if m.IsRequired {
			codes = append(codes, m.Code)
		}
	}
	return codes
}

// ProgressionResult answers whether a student may advance one level.
type ProgressionResult struct {
	CanProgress  bool   `json:"canProgress"`
	CurrentLevel int    `json:"currentLevel"`
	NextLevel    int    `json:"nextLevel,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

// PromotionResult reports a multi-level promotion carried out one step at a time.
type PromotionResult struct {
	StartLevel int                 `json:"startLevel"`
	FinalLevel int                 `json:"finalLevel"`
	Steps      []ProgressionResult `json:"steps"`
	Reason     string              `json:"reason,omitempty"`
}

// PromoteRequest asks for promotion up to a target level.
type PromoteRequest struct {
	TargetLevel int `json:"targetLevel" validate:"omitempty,min=2,max=8"`
}

// OverrideLevelRequest sets a student's level directly.
type OverrideLevelRequest struct {
	Level int `json:"level" validate:"required,min=1,max=8"`
}
