package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/repository"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

type registrationStore interface {
	Create(ctx context.Context, reg *models.Registration) error
	FindByID(ctx context.Context, id string) (*models.Registration, error)
	FindForTerm(ctx context.Context, studentID, courseID string, semester int, academicYear string) (*models.Registration, error)
	ListByStudent(ctx context.Context, studentID string, filter models.RegistrationFilter) ([]models.RegistrationDetail, error)
	SumInFlightCreditHours(ctx context.Context, studentID string, semester int, academicYear string) (int, error)
	UpdateStatus(ctx context.Context, id string, status models.RegistrationStatus, approvedBy *string) error
}

type courseFinder interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type offeringLister interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.SemesterCourse, error)
}

// RegistrationService runs the registration workflow and the registration lifecycle.
type RegistrationService struct {
	registrations registrationStore
	users         studentFinder
	courses       courseFinder
	offerings     offeringLister
	holds         holdLister
	prereqs       prerequisiteLister
	history       historyLoader
	calculator    *AcademicCalculator
	cache         *CacheService
	notifier      notifier
	metrics       *MetricsService
	validator     *validator.Validate
	logger        *zap.Logger
}

// RegistrationServiceDeps groups the collaborators of RegistrationService.
type RegistrationServiceDeps struct {
	Registrations registrationStore
	Users         studentFinder
	Courses       courseFinder
	Offerings     offeringLister
	Holds         holdLister
	Prerequisites prerequisiteLister
	History       historyLoader
	Calculator    *AcademicCalculator
	Cache         *CacheService
	Notifier      notifier
	Metrics       *MetricsService
	Validator     *validator.Validate
	Logger        *zap.Logger
}

// NewRegistrationService constructs the service.
func NewRegistrationService(deps RegistrationServiceDeps) *RegistrationService {
	validate := deps.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationService{
		registrations: deps.Registrations,
		users:         deps.Users,
		courses:       deps.Courses,
		offerings:     deps.Offerings,
		holds:         deps.Holds,
		prereqs:       deps.Prerequisites,
		history:       deps.History,
		calculator:    deps.Calculator,
		cache:         deps.Cache,
		notifier:      deps.Notifier,
		metrics:       deps.Metrics,
		validator:     validate,
		logger:        logger,
	}
}

// Register validates a registration request against every eligibility rule
// in order and, when all pass, stores it as pending. Nothing is written
// before the final insert.
func (s *RegistrationService) Register(ctx context.Context, principal models.Principal, req models.RegisterCourseRequest) (*models.Registration, error) {
	reg, err := s.register(ctx, principal, req)
	s.metrics.RecordRegistration(registrationOutcome(err))
	if err != nil {
		return nil, err
	}
	s.cache.InvalidateStudent(ctx, req.StudentID)
	s.notify(ctx, models.Notification{
		UserID:  req.StudentID,
		Type:    models.NotificationRegistrationSubmitted,
		Title:   "Registration submitted",
		Message: "Your course registration is pending approval.",
	})
	return reg, nil
}

func (s *RegistrationService) register(ctx context.Context, principal models.Principal, req models.RegisterCourseRequest) (*models.Registration, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}
	if err := validateAcademicYear(req.AcademicYear); err != nil {
		return nil, err
	}
	if !(principal.Role == models.RoleStudent && principal.Is(req.StudentID)) && !principal.Role.Staff() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "students may only register themselves")
	}

	student, err := loadStudent(ctx, s.users, req.StudentID)
	if err != nil {
		return nil, err
	}
	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, internalError(err, "failed to load course")
	}
	log := s.logger.With(zap.String("student_id", student.ID), zap.String("course_id", course.ID))

	holds, err := s.holds.ListByStudent(ctx, student.ID)
	if err != nil {
		return nil, internalError(err, "failed to load holds")
	}
	if hold := restrictingHold(holds); hold != nil {
		log.Info("registration blocked by hold", zap.String("hold_id", hold.ID))
		return nil, appErrors.WithDetails(appErrors.ErrRegistrationHold, "registration is blocked by a hold on the student account", map[string]string{"reason": hold.Reason})
	}

	if !course.IsActive {
		return nil, deny(log, "course is not active", nil)
	}
	if !course.OpenTo(student.Major) {
		return nil, deny(log, fmt.Sprintf("course %s is not offered to major %s", course.Code, student.Major), nil)
	}

	history, err := s.history.Load(ctx, student.ID)
	if err != nil {
		return nil, internalError(err, "failed to load academic history")
	}
	// A failed course stays open for retake below the student's level, the
	// same way suggestions list it under failedCourses.
	retake := history.Failed(course.ID)
	if minLevel, maxLevel := levelWindow(student.AcademicLevel, history.Completed()); !retake && (course.AcademicLevel < minLevel || course.AcademicLevel > maxLevel) {
		return nil, deny(log, fmt.Sprintf("course level %d is outside the allowed range %d-%d", course.AcademicLevel, minLevel, maxLevel), nil)
	}

	if req.Semester > student.Semester+1 {
		return nil, deny(log, fmt.Sprintf("cannot register for semester %d while in semester %d", req.Semester, student.Semester), nil)
	}

	existing, err := s.registrations.FindForTerm(ctx, student.ID, course.ID, req.Semester, req.AcademicYear)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, internalError(err, "failed to check existing registration")
	}
	if existing != nil && !existing.Status.Withdrawn() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "already registered for this course in this term")
	}

	if !retake {
		prereqs, err := s.prereqs.ListByCourse(ctx, course.ID)
		if err != nil {
			return nil, internalError(err, "failed to load prerequisites")
		}
		if result := evaluatePrerequisites(prereqs, history); !result.Passed {
			codes := result.MissingRequiredCodes()
			return nil, deny(log, "missing required prerequisites: "+strings.Join(codes, ", "), map[string]any{"missingPrerequisites": codes})
		}
	}

	current, err := s.registrations.SumInFlightCreditHours(ctx, student.ID, req.Semester, req.AcademicYear)
	if err != nil {
		return nil, internalError(err, "failed to sum registered credit hours")
	}
	maxCredits := s.calculator.MaxCreditHours(ctx, s.calculator.EffectiveGPA(student, history))
	if current+course.CreditHours > maxCredits {
		return nil, deny(log, fmt.Sprintf("credit hour limit exceeded: %d registered + %d requested > %d allowed", current, course.CreditHours, maxCredits),
			map[string]int{"registered": current, "requested": course.CreditHours, "maxCreditHours": maxCredits})
	}

	offerings, err := s.offerings.ListByCourse(ctx, course.ID)
	if err != nil {
		return nil, internalError(err, "failed to load course offerings")
	}
	if len(offerings) > 0 && !offeredIn(offerings, req.Semester) {
		return nil, deny(log, fmt.Sprintf("course %s is not offered in semester %d", course.Code, req.Semester), nil)
	}

	reg := &models.Registration{
		StudentID:    student.ID,
		CourseID:     course.ID,
		Semester:     req.Semester,
		AcademicYear: req.AcademicYear,
	}
	if err := s.registrations.Create(ctx, reg); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "already registered for this course in this term")
		}
		return nil, internalError(err, "failed to create registration")
	}
	log.Info("registration created", zap.String("registration_id", reg.ID))
	return reg, nil
}

// Approve accepts a pending or waitlisted registration.
func (s *RegistrationService) Approve(ctx context.Context, principal models.Principal, id string) (*models.Registration, error) {
	return s.decide(ctx, principal, id, models.RegistrationApproved)
}

// Reject declines a pending or waitlisted registration.
func (s *RegistrationService) Reject(ctx context.Context, principal models.Principal, id string) (*models.Registration, error) {
	return s.decide(ctx, principal, id, models.RegistrationRejected)
}

func (s *RegistrationService) decide(ctx context.Context, principal models.Principal, id string, status models.RegistrationStatus) (*models.Registration, error) {
	reg, err := s.findRegistration(ctx, id)
	if err != nil {
		return nil, err
	}
	if !principal.Role.Staff() {
		if principal.Role != models.RoleInstructor {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to review registrations")
		}
		course, err := s.courses.FindByID(ctx, reg.CourseID)
		if err != nil {
			return nil, internalError(err, "failed to load course")
		}
		if !course.TaughtBy(principal.UserID) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "instructors may only review registrations for their own courses")
		}
	}
	if reg.Status != models.RegistrationPending && reg.Status != models.RegistrationWaitlisted {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("registration is %s", reg.Status))
	}

	var approvedBy *string
	if status == models.RegistrationApproved {
		approvedBy = &principal.UserID
	}
	if err := s.registrations.UpdateStatus(ctx, reg.ID, status, approvedBy); err != nil {
		return nil, internalError(err, "failed to update registration")
	}
	reg.Status = status
	if approvedBy != nil {
		reg.ApprovedBy = approvedBy
	}

	s.cache.InvalidateStudent(ctx, reg.StudentID)
	n := models.Notification{UserID: reg.StudentID, Type: models.NotificationRegistrationApproved, Title: "Registration approved", Message: "Your course registration was approved."}
	if status == models.RegistrationRejected {
		n = models.Notification{UserID: reg.StudentID, Type: models.NotificationRegistrationRejected, Title: "Registration rejected", Message: "Your course registration was rejected."}
	}
	s.notify(ctx, n)
	return reg, nil
}

// Drop withdraws a registration that has not been graded.
func (s *RegistrationService) Drop(ctx context.Context, principal models.Principal, id string) (*models.Registration, error) {
	reg, err := s.findRegistration(ctx, id)
	if err != nil {
		return nil, err
	}
	if !principal.Role.Staff() && !(principal.Role == models.RoleStudent && principal.Is(reg.StudentID)) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to drop this registration")
	}
	if !reg.Status.InFlight() {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("registration is %s", reg.Status))
	}
	if err := s.registrations.UpdateStatus(ctx, reg.ID, models.RegistrationDropped, nil); err != nil {
		return nil, internalError(err, "failed to drop registration")
	}
	reg.Status = models.RegistrationDropped
	s.cache.InvalidateStudent(ctx, reg.StudentID)
	return reg, nil
}

// ListForStudent returns a student's registrations with course details.
func (s *RegistrationService) ListForStudent(ctx context.Context, principal models.Principal, studentID string, filter models.RegistrationFilter) ([]models.RegistrationDetail, error) {
	if err := requireStudentAccess(principal, studentID); err != nil {
		return nil, err
	}
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid registration status")
	}
	regs, err := s.registrations.ListByStudent(ctx, studentID, filter)
	if err != nil {
		return nil, internalError(err, "failed to list registrations")
	}
	return regs, nil
}

func (s *RegistrationService) findRegistration(ctx context.Context, id string) (*models.Registration, error) {
	reg, err := s.registrations.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
		return nil, internalError(err, "failed to load registration")
	}
	return reg, nil
}

func (s *RegistrationService) notify(ctx context.Context, n models.Notification) {
	if s.notifier != nil {
		s.notifier.Notify(ctx, n)
	}
}

func deny(log *zap.Logger, message string, details any) error {
	log.Info("registration denied", zap.String("reason", message))
	return appErrors.WithDetails(appErrors.ErrEligibilityDenied, message, details)
}

func offeredIn(offerings []models.SemesterCourse, semester int) bool {
	for _, o := range offerings {
		if o.Semester == semester {
			return true
		}
	}
	return false
}

func registrationOutcome(err error) string {
	switch {
	case err == nil:
		return OutcomeAccepted
	case errors.Is(err, appErrors.ErrConflict):
		return OutcomeConflict
	case errors.Is(err, appErrors.ErrInternal):
		return OutcomeError
	default:
		return OutcomeDenied
	}
}
