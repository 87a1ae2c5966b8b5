package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

type studentRecordStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ListPassedCourseIDs(ctx context.Context, studentID string) ([]string, error)
	UpdateAcademicLevel(ctx context.Context, id string, level int) error
}

type holdStore interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.Hold, error)
	Create(ctx context.Context, hold *models.Hold) error
	Delete(ctx context.Context, studentID, holdID string) error
}

// StudentService exposes student records and level administration.
type StudentService struct {
	users      studentRecordStore
	holds      holdStore
	calculator *AcademicCalculator
	cache      *CacheService
	notifier   notifier
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewStudentService constructs the service.
func NewStudentService(users studentRecordStore, holds holdStore, calculator *AcademicCalculator, cache *CacheService, notify notifier, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{
		users:      users,
		holds:      holds,
		calculator: calculator,
		cache:      cache,
		notifier:   notify,
		validator:  validate,
		logger:     logger,
	}
}

// Profile returns the student's account with passed courses and holds.
func (s *StudentService) Profile(ctx context.Context, principal models.Principal, studentID string) (*models.StudentProfile, error) {
	if err := requireStudentAccess(principal, studentID); err != nil {
		return nil, err
	}
	student, err := loadStudent(ctx, s.users, studentID)
	if err != nil {
		return nil, err
	}
	passed, err := s.users.ListPassedCourseIDs(ctx, studentID)
	if err != nil {
		return nil, internalError(err, "failed to load passed courses")
	}
	holds, err := s.holds.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, internalError(err, "failed to load holds")
	}
	if passed == nil {
		passed = []string{}
	}
	if holds == nil {
		holds = []models.Hold{}
	}
	return &models.StudentProfile{User: *student, PassedCourses: passed, Holds: holds}, nil
}

// AddHold places an administrative hold on a student.
func (s *StudentService) AddHold(ctx context.Context, principal models.Principal, studentID string, req models.CreateHoldRequest) (*models.Hold, error) {
	if err := requireStaff(principal); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid hold payload")
	}
	if _, err := loadStudent(ctx, s.users, studentID); err != nil {
		return nil, err
	}
	hold := &models.Hold{StudentID: studentID, Reason: req.Reason, RestrictRegistration: req.RestrictRegistration}
	if err := s.holds.Create(ctx, hold); err != nil {
		return nil, internalError(err, "failed to create hold")
	}
	s.cache.InvalidateStudent(ctx, studentID)
	return hold, nil
}

// RemoveHold lifts a hold.
func (s *StudentService) RemoveHold(ctx context.Context, principal models.Principal, studentID, holdID string) error {
	if err := requireStaff(principal); err != nil {
		return err
	}
	if err := s.holds.Delete(ctx, studentID, holdID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "hold not found")
		}
		return internalError(err, "failed to delete hold")
	}
	s.cache.InvalidateStudent(ctx, studentID)
	return nil
}

// Evaluate reports whether the student may move up one level without
// changing anything.
func (s *StudentService) Evaluate(ctx context.Context, principal models.Principal, studentID string) (dto.ProgressionResult, error) {
	if err := requireStudentAccess(principal, studentID); err != nil {
		return dto.ProgressionResult{}, err
	}
	student, err := loadStudent(ctx, s.users, studentID)
	if err != nil {
		return dto.ProgressionResult{}, err
	}
	result, err := s.calculator.CanProgress(ctx, student)
	if err != nil {
		return dto.ProgressionResult{}, internalError(err, "failed to evaluate progression")
	}
	return result, nil
}

// Progress advances the student by exactly one level when the rule allows.
func (s *StudentService) Progress(ctx context.Context, principal models.Principal, studentID string) (dto.ProgressionResult, error) {
	if err := requireStaff(principal); err != nil {
		return dto.ProgressionResult{}, err
	}
	student, err := loadStudent(ctx, s.users, studentID)
	if err != nil {
		return dto.ProgressionResult{}, err
	}
	return s.step(ctx, student)
}

// PromoteTo advances one level at a time up to target, stopping at the first
// step that is not allowed. A zero target means as far as the rules permit.
func (s *StudentService) PromoteTo(ctx context.Context, principal models.Principal, studentID string, req dto.PromoteRequest) (*dto.PromotionResult, error) {
	if err := requireStaff(principal); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid promotion payload")
	}
	student, err := loadStudent(ctx, s.users, studentID)
	if err != nil {
		return nil, err
	}
	target := req.TargetLevel
	if target == 0 {
		target = models.MaxAcademicLevel
	}
	if target <= student.AcademicLevel {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("target level %d must be above current level %d", target, student.AcademicLevel))
	}

	result := &dto.PromotionResult{StartLevel: student.AcademicLevel, Steps: []dto.ProgressionResult{}}
	for student.AcademicLevel < target {
		step, err := s.step(ctx, student)
		if err != nil {
			return nil, err
		}
		result.Steps = append(result.Steps, step)
		if !step.CanProgress {
			result.Reason = step.Reason
			break
		}
	}
	result.FinalLevel = student.AcademicLevel
	return result, nil
}

// OverrideLevel sets the level directly, bypassing progression rules.
func (s *StudentService) OverrideLevel(ctx context.Context, principal models.Principal, studentID string, req dto.OverrideLevelRequest) (*models.User, error) {
	if err := requireStaff(principal); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid level payload")
	}
	student, err := loadStudent(ctx, s.users, studentID)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateAcademicLevel(ctx, studentID, req.Level); err != nil {
		return nil, internalError(err, "failed to update academic level")
	}
	s.logger.Info("academic level overridden",
		zap.String("student_id", studentID),
		zap.String("by", principal.UserID),
		zap.Int("from", student.AcademicLevel),
		zap.Int("to", req.Level),
	)
	student.AcademicLevel = req.Level
	s.cache.InvalidateStudent(ctx, studentID)
	return student, nil
}

// step applies one progression and mutates student on success.
func (s *StudentService) step(ctx context.Context, student *models.User) (dto.ProgressionResult, error) {
	result, err := s.calculator.CanProgress(ctx, student)
	if err != nil {
		return result, internalError(err, "failed to evaluate progression")
	}
	if !result.CanProgress {
		return result, nil
	}
	if err := s.users.UpdateAcademicLevel(ctx, student.ID, result.NextLevel); err != nil {
		return result, internalError(err, "failed to update academic level")
	}
	student.AcademicLevel = result.NextLevel
	s.cache.InvalidateStudent(ctx, student.ID)
	if s.notifier != nil {
		s.notifier.Notify(ctx, models.Notification{
			UserID:  student.ID,
			Type:    models.NotificationLevelProgressed,
			Title:   "Academic level updated",
			Message: fmt.Sprintf("You have progressed to level %d.", result.NextLevel),
		})
	}
	return result, nil
}
