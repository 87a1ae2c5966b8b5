package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/models"
)

// DefaultMaxCreditHours applies when no GPA rule covers a student's GPA.
const DefaultMaxCreditHours = 12

type gpaRuleLookup interface {
	FindForGPA(ctx context.Context, gpa float64) (*models.GPARule, error)
}

type levelProgressionLookup interface {
	FindByLevels(ctx context.Context, fromLevel, toLevel int) (*models.LevelProgression, error)
}

// CalculateGPA returns the credit-weighted grade-point average of records,
// rounded half away from zero to two decimals. No records yields zero.
func CalculateGPA(records []models.GradedCourse) float64 {
	var points float64
	var hours int
	for _, rec := range records {
		points += rec.LetterGrade.Points() * float64(rec.CreditHours)
		hours += rec.CreditHours
	}
	if hours == 0 {
		return 0
	}
	return math.Round(points/float64(hours)*100) / 100
}

// AcademicCalculator answers GPA, credit-cap and progression questions.
type AcademicCalculator struct {
	rules             gpaRuleLookup
	progressions      levelProgressionLookup
	history           historyLoader
	defaultMaxCredits int
	logger            *zap.Logger
}

// NewAcademicCalculator constructs the calculator.
func NewAcademicCalculator(rules gpaRuleLookup, progressions levelProgressionLookup, history historyLoader, defaultMaxCredits int, logger *zap.Logger) *AcademicCalculator {
	if defaultMaxCredits <= 0 {
		defaultMaxCredits = DefaultMaxCreditHours
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AcademicCalculator{
		rules:             rules,
		progressions:      progressions,
		history:           history,
		defaultMaxCredits: defaultMaxCredits,
		logger:            logger,
	}
}

// MaxCreditHours returns the cap of the GPA band containing gpa. A missing
// rule or a failed lookup falls back to the default and never errors.
func (c *AcademicCalculator) MaxCreditHours(ctx context.Context, gpa float64) int {
	rule, err := c.rules.FindForGPA(ctx, gpa)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			c.logger.Warn("gpa rule lookup failed", zap.Float64("gpa", gpa), zap.Error(err))
		}
		return c.defaultMaxCredits
	}
	return rule.MaxCreditHours
}

// EffectiveGPA returns the stored GPA, computing it from history when the
// stored value is zero.
func (c *AcademicCalculator) EffectiveGPA(student *models.User, history StudentHistory) float64 {
	if student.GPA > 0 {
		return student.GPA
	}
	return CalculateGPA(history.Records())
}

// CanProgress evaluates a single step from the student's current level to
// the next one. It never skips levels.
func (c *AcademicCalculator) CanProgress(ctx context.Context, student *models.User) (dto.ProgressionResult, error) {
	result := dto.ProgressionResult{CurrentLevel: student.AcademicLevel}
	if student.AcademicLevel >= models.MaxAcademicLevel {
		result.Reason = "already at the highest academic level"
		return result, nil
	}
	next := student.AcademicLevel + 1
	result.NextLevel = next

	rule, err := c.progressions.FindByLevels(ctx, student.AcademicLevel, next)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			result.Reason = fmt.Sprintf("no rule for progression from level %d to %d", student.AcademicLevel, next)
			return result, nil
		}
		return result, err
	}

	gpa := student.GPA
	if gpa == 0 {
		history, err := c.history.Load(ctx, student.ID)
		if err != nil {
			return result, err
		}
		gpa = CalculateGPA(history.Records())
	}

	switch {
	case student.CompletedCreditHours < rule.RequiredCreditHours:
		result.Reason = fmt.Sprintf("requires %d completed credit hours, has %d", rule.RequiredCreditHours, student.CompletedCreditHours)
	case gpa < rule.RequiredGPA:
		result.Reason = fmt.Sprintf("requires GPA %.2f, has %.2f", rule.RequiredGPA, gpa)
	default:
		result.CanProgress = true
	}
	return result, nil
}
