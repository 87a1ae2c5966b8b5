package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

// Component caps out of a 100 point total.
const (
	MaxMidterm     = 20
	MaxFinalExam   = 40
	MaxAssignments = 20
	MaxQuizzes     = 20
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type gradeStore interface {
	CreateWithTx(ctx context.Context, tx *sqlx.Tx, grade *models.Grade) error
	ListHistoryWithTx(ctx context.Context, tx *sqlx.Tx, studentID string) ([]models.GradedCourse, error)
	List(ctx context.Context, filter models.GradeFilter) ([]models.Grade, error)
}

type gradedRegistrationStore interface {
	ApplyGradeWithTx(ctx context.Context, tx *sqlx.Tx, studentID, courseID string, semester int, academicYear string, grade models.LetterGrade) error
	CountUngradedWithTx(ctx context.Context, tx *sqlx.Tx, studentID string) (int, error)
	ListCompletedWithTx(ctx context.Context, tx *sqlx.Tx, studentID string) ([]models.RegistrationDetail, error)
	DeleteByStudentWithTx(ctx context.Context, tx *sqlx.Tx, studentID string) (int64, error)
}

type academicRecordStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	AddPassedCourseWithTx(ctx context.Context, tx *sqlx.Tx, studentID, courseID string) (bool, error)
	UpdateAcademicRecordWithTx(ctx context.Context, tx *sqlx.Tx, studentID string, gpa float64, earnedCreditHours int) error
}

// GradeService records grades and rolls completed terms into the student's
// permanent record.
type GradeService struct {
	tx            txProvider
	grades        gradeStore
	registrations gradedRegistrationStore
	users         academicRecordStore
	courses       courseFinder
	cache         *CacheService
	notifier      notifier
	metrics       *MetricsService
	validator     *validator.Validate
	logger        *zap.Logger
}

// GradeServiceDeps groups the collaborators of GradeService.
type GradeServiceDeps struct {
	Tx            txProvider
	Grades        gradeStore
	Registrations gradedRegistrationStore
	Users         academicRecordStore
	Courses       courseFinder
	Cache         *CacheService
	Notifier      notifier
	Metrics       *MetricsService
	Validator     *validator.Validate
	Logger        *zap.Logger
}

// NewGradeService constructs GradeService.
func NewGradeService(deps GradeServiceDeps) *GradeService {
	validate := deps.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{
		tx:            deps.Tx,
		grades:        deps.Grades,
		registrations: deps.Registrations,
		users:         deps.Users,
		courses:       deps.Courses,
		cache:         deps.Cache,
		notifier:      deps.Notifier,
		metrics:       deps.Metrics,
		validator:     validate,
		logger:        logger,
	}
}

// ScoreComponents clamps each component to its cap and derives the total and letter.
func ScoreComponents(midterm, finalExam, assignments, quizzes float64) (models.Grade, error) {
	for _, v := range []float64{midterm, finalExam, assignments, quizzes} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return models.Grade{}, appErrors.Clone(appErrors.ErrValidation, "grade components must be non-negative numbers")
		}
	}
	g := models.Grade{
		Midterm:     math.Min(midterm, MaxMidterm),
		FinalExam:   math.Min(finalExam, MaxFinalExam),
		Assignments: math.Min(assignments, MaxAssignments),
		Quizzes:     math.Min(quizzes, MaxQuizzes),
	}
	g.TotalGrade = g.Midterm + g.FinalExam + g.Assignments + g.Quizzes
	g.LetterGrade = models.LetterForTotal(g.TotalGrade)
	return g, nil
}

// Record saves a grade and, when it was the student's last ungraded
// registration, recomputes GPA, records passed courses and deletes the
// student's registrations. All of it happens in one transaction.
func (s *GradeService) Record(ctx context.Context, principal models.Principal, req models.RecordGradeRequest) (*dto.GradeCommit, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	if err := validateAcademicYear(req.AcademicYear); err != nil {
		return nil, err
	}
	course, err := loadCourse(ctx, s.courses, req.CourseID)
	if err != nil {
		return nil, err
	}
	if err := requireCourseStaff(principal, course, "only the course instructor or an administrator may grade this course"); err != nil {
		return nil, err
	}
	if _, err := loadStudent(ctx, s.users, req.StudentID); err != nil {
		return nil, err
	}

	grade, err := ScoreComponents(req.Midterm, req.FinalExam, req.Assignments, req.Quizzes)
	if err != nil {
		return nil, err
	}
	grade.StudentID = req.StudentID
	grade.CourseID = req.CourseID
	grade.InstructorID = principal.UserID
	grade.Semester = req.Semester
	grade.AcademicYear = req.AcademicYear

	result, err := s.commit(ctx, &grade)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordGradeCommit(result.Archived)
	s.cache.InvalidateStudent(ctx, req.StudentID)
	if s.notifier != nil {
		s.notifier.Notify(ctx, models.Notification{
			UserID:  req.StudentID,
			Type:    models.NotificationGradePosted,
			Title:   "Grade posted",
			Message: fmt.Sprintf("Your grade for %s is %s.", course.Code, grade.LetterGrade),
		})
	}
	return result, nil
}

func (s *GradeService) commit(ctx context.Context, grade *models.Grade) (result *dto.GradeCommit, err error) {
	log := s.logger.With(zap.String("student_id", grade.StudentID), zap.String("course_id", grade.CourseID))

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, internalError(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				log.Warn("grade commit rollback failed", zap.Error(rbErr))
			}
		}
	}()

	if err = s.grades.CreateWithTx(ctx, tx, grade); err != nil {
		return nil, internalError(err, "failed to save grade")
	}
	if err = s.registrations.ApplyGradeWithTx(ctx, tx, grade.StudentID, grade.CourseID, grade.Semester, grade.AcademicYear, grade.LetterGrade); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no approved registration for this course and term")
		}
		return nil, internalError(err, "failed to apply grade to registration")
	}

	pending, err := s.registrations.CountUngradedWithTx(ctx, tx, grade.StudentID)
	if err != nil {
		return nil, internalError(err, "failed to count ungraded registrations")
	}
	result = &dto.GradeCommit{Grade: *grade, PendingRegistrations: pending}

	if pending == 0 {
		if err = s.archiveTerm(ctx, tx, grade.StudentID, result); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, internalError(err, "failed to commit grade")
	}
	log.Info("grade recorded", zap.String("letter", string(grade.LetterGrade)), zap.Bool("archived", result.Archived))
	return result, nil
}

// archiveTerm rolls every graded registration into the permanent record.
func (s *GradeService) archiveTerm(ctx context.Context, tx *sqlx.Tx, studentID string, result *dto.GradeCommit) error {
	regs, err := s.registrations.ListCompletedWithTx(ctx, tx, studentID)
	if err != nil {
		return internalError(err, "failed to load completed registrations")
	}
	history, err := s.grades.ListHistoryWithTx(ctx, tx, studentID)
	if err != nil {
		return internalError(err, "failed to load grade history")
	}
	gpa := CalculateGPA(latestByCourse(history).Records())

	earned := 0
	for _, reg := range regs {
		if !reg.IsPassed {
			continue
		}
		added, err := s.users.AddPassedCourseWithTx(ctx, tx, studentID, reg.CourseID)
		if err != nil {
			return internalError(err, "failed to record passed course")
		}
		if added {
			earned += reg.CreditHours
		}
	}
	if err := s.users.UpdateAcademicRecordWithTx(ctx, tx, studentID, gpa, earned); err != nil {
		return internalError(err, "failed to update academic record")
	}
	if _, err := s.registrations.DeleteByStudentWithTx(ctx, tx, studentID); err != nil {
		return internalError(err, "failed to archive registrations")
	}

	result.Archived = true
	result.GPA = gpa
	result.EarnedCreditHours = earned
	return nil
}

// List returns grades. Students only see their own.
func (s *GradeService) List(ctx context.Context, principal models.Principal, filter models.GradeFilter) ([]models.Grade, error) {
	if principal.Role == models.RoleStudent {
		if filter.StudentID == "" {
			filter.StudentID = principal.UserID
		}
		if !principal.Is(filter.StudentID) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "students may only view their own grades")
		}
	}
	grades, err := s.grades.List(ctx, filter)
	if err != nil {
		return nil, internalError(err, "failed to list grades")
	}
	return grades, nil
}
