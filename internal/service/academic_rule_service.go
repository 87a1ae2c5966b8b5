package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/repository"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

type gpaRuleStore interface {
	List(ctx context.Context) ([]models.GPARule, error)
	FindByID(ctx context.Context, id string) (*models.GPARule, error)
	Create(ctx context.Context, rule *models.GPARule) error
	Update(ctx context.Context, rule *models.GPARule) error
	Delete(ctx context.Context, id string) error
}

type levelProgressionStore interface {
	List(ctx context.Context) ([]models.LevelProgression, error)
	Create(ctx context.Context, rule *models.LevelProgression) error
	Delete(ctx context.Context, id string) error
}

// AcademicRuleService manages GPA bands and level progression rules.
type AcademicRuleService struct {
	gpaRules     gpaRuleStore
	progressions levelProgressionStore
	cache        *CacheService
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewAcademicRuleService constructs the service.
func NewAcademicRuleService(gpaRules gpaRuleStore, progressions levelProgressionStore, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *AcademicRuleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AcademicRuleService{gpaRules: gpaRules, progressions: progressions, cache: cache, validator: validate, logger: logger}
}

// ListGPARules returns every band ordered by minimum GPA.
func (s *AcademicRuleService) ListGPARules(ctx context.Context) ([]models.GPARule, error) {
	rules, err := s.gpaRules.List(ctx)
	if err != nil {
		return nil, internalError(err, "failed to list gpa rules")
	}
	return rules, nil
}

// CreateGPARule adds a band that must not overlap an existing one.
func (s *AcademicRuleService) CreateGPARule(ctx context.Context, principal models.Principal, req models.GPARuleRequest) (*models.GPARule, error) {
	if err := requireStaff(principal); err != nil {
		return nil, err
	}
	rule, err := s.buildGPARule(req)
	if err != nil {
		return nil, err
	}
	if err := s.ensureNoOverlap(ctx, rule); err != nil {
		return nil, err
	}
	if err := s.gpaRules.Create(ctx, rule); err != nil {
		return nil, internalError(err, "failed to create gpa rule")
	}
	s.cache.InvalidateAllSuggestions(ctx)
	return rule, nil
}

// UpdateGPARule replaces a band, re-checking overlap against the others.
func (s *AcademicRuleService) UpdateGPARule(ctx context.Context, principal models.Principal, id string, req models.GPARuleRequest) (*models.GPARule, error) {
	if err := requireStaff(principal); err != nil {
		return nil, err
	}
	rule, err := s.buildGPARule(req)
	if err != nil {
		return nil, err
	}
	existing, err := s.gpaRules.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "gpa rule not found")
		}
		return nil, internalError(err, "failed to load gpa rule")
	}
	rule.ID = existing.ID
	rule.CreatedAt = existing.CreatedAt
	if err := s.ensureNoOverlap(ctx, rule); err != nil {
		return nil, err
	}
	if err := s.gpaRules.Update(ctx, rule); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "gpa rule not found")
		}
		return nil, internalError(err, "failed to update gpa rule")
	}
	s.cache.InvalidateAllSuggestions(ctx)
	return rule, nil
}

// DeleteGPARule removes a band.
func (s *AcademicRuleService) DeleteGPARule(ctx context.Context, principal models.Principal, id string) error {
	if err := requireStaff(principal); err != nil {
		return err
	}
	if err := s.gpaRules.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "gpa rule not found")
		}
		return internalError(err, "failed to delete gpa rule")
	}
	s.cache.InvalidateAllSuggestions(ctx)
	return nil
}

func (s *AcademicRuleService) buildGPARule(req models.GPARuleRequest) (*models.GPARule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid gpa rule payload")
	}
	if *req.MinGPA > *req.MaxGPA {
		return nil, appErrors.Clone(appErrors.ErrValidation, "min_gpa must not exceed max_gpa")
	}
	return &models.GPARule{MinGPA: *req.MinGPA, MaxGPA: *req.MaxGPA, MaxCreditHours: req.MaxCreditHours}, nil
}

// ensureNoOverlap rejects bands that share an interior with another rule.
// Touching endpoints are allowed.
func (s *AcademicRuleService) ensureNoOverlap(ctx context.Context, rule *models.GPARule) error {
	rules, err := s.gpaRules.List(ctx)
	if err != nil {
		return internalError(err, "failed to list gpa rules")
	}
	for _, other := range rules {
		if other.ID == rule.ID {
			continue
		}
		if rule.Overlaps(other) {
			return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("gpa range %.2f-%.2f overlaps existing rule %.2f-%.2f", rule.MinGPA, rule.MaxGPA, other.MinGPA, other.MaxGPA))
		}
	}
	return nil
}

// ListLevelProgressions returns the progression rules.
func (s *AcademicRuleService) ListLevelProgressions(ctx context.Context) ([]models.LevelProgression, error) {
	rules, err := s.progressions.List(ctx)
	if err != nil {
		return nil, internalError(err, "failed to list level progressions")
	}
	return rules, nil
}

// CreateLevelProgression adds a from→to rule. The target must be above the source.
func (s *AcademicRuleService) CreateLevelProgression(ctx context.Context, principal models.Principal, req models.LevelProgressionRequest) (*models.LevelProgression, error) {
	if err := requireStaff(principal); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid level progression payload")
	}
	if req.ToLevel <= req.FromLevel {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to_level must be greater than from_level")
	}
	rule := &models.LevelProgression{
		FromLevel:           req.FromLevel,
		ToLevel:             req.ToLevel,
		RequiredCreditHours: req.RequiredCreditHours,
		RequiredGPA:         req.RequiredGPA,
	}
	if err := s.progressions.Create(ctx, rule); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("progression from level %d to %d already exists", req.FromLevel, req.ToLevel))
		}
		return nil, internalError(err, "failed to create level progression")
	}
	return rule, nil
}

// DeleteLevelProgression removes a progression rule.
func (s *AcademicRuleService) DeleteLevelProgression(ctx context.Context, principal models.Principal, id string) error {
	if err := requireStaff(principal); err != nil {
		return err
	}
	if err := s.progressions.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "level progression not found")
		}
		return internalError(err, "failed to delete level progression")
	}
	return nil
}
