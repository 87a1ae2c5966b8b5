package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/repository"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

type courseCatalog interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Deactivate(ctx context.Context, id string) error
}

type prerequisiteStore interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.CoursePrerequisite, error)
	Create(ctx context.Context, prereq *models.CoursePrerequisite) error
	Delete(ctx context.Context, courseID, prerequisiteID string) error
}

type offeringStore interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.SemesterCourse, error)
	Create(ctx context.Context, offering *models.SemesterCourse) error
}

// CourseService administers the course catalog, prerequisites and offerings.
type CourseService struct {
	courses   courseCatalog
	prereqs   prerequisiteStore
	offerings offeringStore
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs the service.
func NewCourseService(courses courseCatalog, prereqs prerequisiteStore, offerings offeringStore, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{courses: courses, prereqs: prereqs, offerings: offerings, cache: cache, validator: validate, logger: logger}
}

// List returns a page of courses.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	courses, total, err := s.courses.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list courses")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return courses, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a course by id.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, internalError(err, "failed to load course")
	}
	return course, nil
}

// Create adds a course to the catalog.
func (s *CourseService) Create(ctx context.Context, principal models.Principal, req models.CreateCourseRequest) (*models.Course, error) {
	if err := requireStaff(principal); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course := &models.Course{
		Code:          strings.ToUpper(strings.TrimSpace(req.Code)),
		Name:          strings.TrimSpace(req.Name),
		CreditHours:   req.CreditHours,
		AcademicLevel: req.AcademicLevel,
		CourseType:    req.CourseType,
		Majors:        pq.StringArray(normalizeMajors(req.Majors)),
		Department:    req.Department,
		InstructorID:  req.InstructorID,
		IsActive:      true,
	}
	if err := s.courses.Create(ctx, course); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "course code or name already exists")
		}
		return nil, internalError(err, "failed to create course")
	}
	s.cache.InvalidateAllSuggestions(ctx)
	return course, nil
}

// Update replaces a course's mutable fields. Instructors may only edit the
// courses they teach and cannot reassign them.
func (s *CourseService) Update(ctx context.Context, principal models.Principal, id string, req models.UpdateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !principal.Role.Staff() {
		if principal.Role != models.RoleInstructor || !course.TaughtBy(principal.UserID) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to modify this course")
		}
		if req.InstructorID != nil && *req.InstructorID != principal.UserID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "instructors cannot reassign courses")
		}
	}

	course.Name = strings.TrimSpace(req.Name)
	course.CreditHours = req.CreditHours
	course.AcademicLevel = req.AcademicLevel
	course.CourseType = req.CourseType
	course.Majors = pq.StringArray(normalizeMajors(req.Majors))
	course.Department = req.Department
	if req.InstructorID != nil {
		course.InstructorID = req.InstructorID
	}
	if req.IsActive != nil {
		course.IsActive = *req.IsActive
	}
	if err := s.courses.Update(ctx, course); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, appErrors.Clone(appErrors.ErrConflict, "course name already exists")
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, internalError(err, "failed to update course")
	}
	s.cache.InvalidateAllSuggestions(ctx)
	return course, nil
}

// Deactivate withdraws a course from the catalog.
func (s *CourseService) Deactivate(ctx context.Context, principal models.Principal, id string) error {
	if err := requireStaff(principal); err != nil {
		return err
	}
	if err := s.courses.Deactivate(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return internalError(err, "failed to deactivate course")
	}
	s.cache.InvalidateAllSuggestions(ctx)
	return nil
}

// ListPrerequisites returns a course's prerequisites.
func (s *CourseService) ListPrerequisites(ctx context.Context, courseID string) ([]models.CoursePrerequisite, error) {
	if _, err := s.Get(ctx, courseID); err != nil {
		return nil, err
	}
	prereqs, err := s.prereqs.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, internalError(err, "failed to list prerequisites")
	}
	return prereqs, nil
}

// AddPrerequisite links prerequisiteID to courseID. A course can never be
// its own prerequisite.
func (s *CourseService) AddPrerequisite(ctx context.Context, principal models.Principal, courseID string, req models.AddPrerequisiteRequest) (*models.CoursePrerequisite, error) {
	if err := requireStaff(principal); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid prerequisite payload")
	}
	if req.PrerequisiteID == courseID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a course cannot be its own prerequisite")
	}
	minimum := req.MinimumGrade
	if minimum == models.GradeNone {
		minimum = models.GradeDMinus
	}
	if !minimum.Valid() || !minimum.Passing() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid minimum grade %q", req.MinimumGrade))
	}

	if _, err := s.Get(ctx, courseID); err != nil {
		return nil, err
	}
	prereqCourse, err := s.courses.FindByID(ctx, req.PrerequisiteID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "prerequisite course not found")
		}
		return nil, internalError(err, "failed to load prerequisite course")
	}

	required := true
	if req.IsRequired != nil {
		required = *req.IsRequired
	}
	prereq := &models.CoursePrerequisite{
		CourseID:       courseID,
		PrerequisiteID: prereqCourse.ID,
		IsRequired:     required,
		MinimumGrade:   minimum,
		Code:           prereqCourse.Code,
		Name:           prereqCourse.Name,
	}
	if err := s.prereqs.Create(ctx, prereq); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "prerequisite already exists")
		}
		return nil, internalError(err, "failed to create prerequisite")
	}
	s.cache.InvalidateAllSuggestions(ctx)
	return prereq, nil
}

// RemovePrerequisite unlinks a prerequisite.
func (s *CourseService) RemovePrerequisite(ctx context.Context, principal models.Principal, courseID, prerequisiteID string) error {
	if err := requireStaff(principal); err != nil {
		return err
	}
	if err := s.prereqs.Delete(ctx, courseID, prerequisiteID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "prerequisite not found")
		}
		return internalError(err, "failed to delete prerequisite")
	}
	s.cache.InvalidateAllSuggestions(ctx)
	return nil
}

// ListOfferings returns the semesters a course is offered in.
func (s *CourseService) ListOfferings(ctx context.Context, courseID string) ([]models.SemesterCourse, error) {
	if _, err := s.Get(ctx, courseID); err != nil {
		return nil, err
	}
	offerings, err := s.offerings.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, internalError(err, "failed to list offerings")
	}
	return offerings, nil
}

// AddOffering schedules a course for a semester of an academic year.
func (s *CourseService) AddOffering(ctx context.Context, principal models.Principal, courseID string, req models.CreateOfferingRequest) (*models.SemesterCourse, error) {
	if err := requireStaff(principal); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid offering payload")
	}
	if err := validateAcademicYear(req.AcademicYear); err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, courseID); err != nil {
		return nil, err
	}
	offering := &models.SemesterCourse{
		CourseID:     courseID,
		Semester:     req.Semester,
		AcademicYear: req.AcademicYear,
		Capacity:     req.Capacity,
		IsActive:     true,
	}
	if err := s.offerings.Create(ctx, offering); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "course is already offered in this term")
		}
		return nil, internalError(err, "failed to create offering")
	}
	return offering, nil
}

// validateAcademicYear accepts "YYYY-YYYY" spanning consecutive years.
func validateAcademicYear(value string) error {
	invalid := appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("academic year %q must look like 2024-2025", value))
	parts := strings.Split(value, "-")
	if len(parts) != 2 || len(parts[0]) != 4 || len(parts[1]) != 4 {
		return invalid
	}
	start, err := strconv.Atoi(parts[0])
	if err != nil {
		return invalid
	}
	end, err := strconv.Atoi(parts[1])
	if err != nil || end != start+1 {
		return invalid
	}
	return nil
}

func normalizeMajors(majors []string) []string {
	seen := make(map[string]bool, len(majors))
	out := make([]string, 0, len(majors))
	for _, m := range majors {
		m = strings.TrimSpace(m)
		if strings.EqualFold(m, models.GeneralMajor) {
			m = models.GeneralMajor
		}
		key := strings.ToLower(m)
		if m == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, m)
	}
	return out
}
