package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/repository"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

type quizStore interface {
	Create(ctx context.Context, quiz *models.Quiz) error
	FindByID(ctx context.Context, id string) (*models.Quiz, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.Quiz, error)
	Update(ctx context.Context, quiz *models.Quiz) error
	Delete(ctx context.Context, id string) error
	CountSubmissions(ctx context.Context, quizID string) (int, error)
	CreateSubmission(ctx context.Context, sub *models.QuizSubmission) error
	ListSubmissions(ctx context.Context, quizID string) ([]models.QuizSubmission, error)
	FindSubmission(ctx context.Context, quizID, studentID string) (*models.QuizSubmission, error)
}

// QuizService manages course quizzes and grades student attempts.
type QuizService struct {
	quizzes     quizStore
	courses     courseFinder
	enrollments enrollmentLookup
	notifier    notifier
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// QuizServiceDeps groups the collaborators of QuizService.
type QuizServiceDeps struct {
	Quizzes     quizStore
	Courses     courseFinder
	Enrollments enrollmentLookup
	Notifier    notifier
	Validator   *validator.Validate
	Logger      *zap.Logger
}

// NewQuizService constructs QuizService.
func NewQuizService(deps QuizServiceDeps) *QuizService {
	validate := deps.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuizService{
		quizzes:     deps.Quizzes,
		courses:     deps.Courses,
		enrollments: deps.Enrollments,
		notifier:    deps.Notifier,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// ScoreQuiz awards each question's points when the chosen option is the
// correct one. answers must line up with questions.
func ScoreQuiz(questions models.QuizQuestions, answers []int) (float64, error) {
	if len(answers) != len(questions) {
		return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("expected %d answers, got %d", len(questions), len(answers)))
	}
	score := 0.0
	for i, q := range questions {
		if answers[i] < 0 || answers[i] >= len(q.Options) {
			return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("answer %d is out of range", i+1))
		}
		if q.Answer != nil && *q.Answer == answers[i] {
			score += q.Points
		}
	}
	return math.Round(score*100) / 100, nil
}

// Create adds a quiz to a course and notifies its enrolled students.
func (s *QuizService) Create(ctx context.Context, principal models.Principal, courseID string, req models.CreateQuizRequest) (*models.Quiz, error) {
	if err := s.validateQuiz(req); err != nil {
		return nil, err
	}
	course, err := loadCourse(ctx, s.courses, courseID)
	if err != nil {
		return nil, err
	}
	if err := requireCourseStaff(principal, course, "only the course instructor or an administrator may manage quizzes"); err != nil {
		return nil, err
	}

	quiz := &models.Quiz{
		CourseID:    course.ID,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Questions:   models.QuizQuestions(req.Questions),
		DueAt:       req.DueAt,
		CreatedBy:   principal.UserID,
	}
	quiz.TotalPoints = quiz.Questions.TotalPoints()
	if err := s.quizzes.Create(ctx, quiz); err != nil {
		return nil, internalError(err, "failed to create quiz")
	}
	s.announce(ctx, course, quiz)
	return quiz, nil
}

func (s *QuizService) announce(ctx context.Context, course *models.Course, quiz *models.Quiz) {
	if s.notifier == nil {
		return
	}
	students, err := s.enrollments.ListEnrolledStudentIDs(ctx, course.ID)
	if err != nil {
		s.logger.Warn("quiz announcement skipped", zap.String("quiz_id", quiz.ID), zap.Error(err))
		return
	}
	for _, id := range students {
		s.notifier.Notify(ctx, models.Notification{
			UserID:  id,
			Type:    models.NotificationQuizCreated,
			Title:   "New quiz",
			Message: fmt.Sprintf("%s posted a new quiz: %s.", course.Code, quiz.Title),
		})
	}
}

// Get returns a quiz. Students see it without the correct answers.
func (s *QuizService) Get(ctx context.Context, principal models.Principal, id string) (*models.Quiz, error) {
	quiz, course, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	full, err := s.canView(ctx, principal, course)
	if err != nil {
		return nil, err
	}
	if !full {
		quiz.Questions = quiz.Questions.Redacted()
	}
	return quiz, nil
}

// ListByCourse returns the quizzes of a course.
func (s *QuizService) ListByCourse(ctx context.Context, principal models.Principal, courseID string) ([]models.Quiz, error) {
	course, err := loadCourse(ctx, s.courses, courseID)
	if err != nil {
		return nil, err
	}
	full, err := s.canView(ctx, principal, course)
	if err != nil {
		return nil, err
	}
	quizzes, err := s.quizzes.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, internalError(err, "failed to list quizzes")
	}
	if !full {
		for i := range quizzes {
			quizzes[i].Questions = quizzes[i].Questions.Redacted()
		}
	}
	return quizzes, nil
}

// Update replaces a quiz's content while nobody has submitted it.
func (s *QuizService) Update(ctx context.Context, principal models.Principal, id string, req models.UpdateQuizRequest) (*models.Quiz, error) {
	if err := s.validateQuiz(models.CreateQuizRequest(req)); err != nil {
		return nil, err
	}
	quiz, course, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireCourseStaff(principal, course, "only the course instructor or an administrator may manage quizzes"); err != nil {
		return nil, err
	}
	submitted, err := s.quizzes.CountSubmissions(ctx, id)
	if err != nil {
		return nil, internalError(err, "failed to count submissions")
	}
	if submitted > 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict, "quiz already has submissions")
	}

	quiz.Title = strings.TrimSpace(req.Title)
	quiz.Description = strings.TrimSpace(req.Description)
	quiz.Questions = models.QuizQuestions(req.Questions)
	quiz.TotalPoints = quiz.Questions.TotalPoints()
	quiz.DueAt = req.DueAt
	if err := s.quizzes.Update(ctx, quiz); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "quiz not found")
		}
		return nil, internalError(err, "failed to update quiz")
	}
	return quiz, nil
}

// Delete removes a quiz together with its submissions.
func (s *QuizService) Delete(ctx context.Context, principal models.Principal, id string) error {
	_, course, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := requireCourseStaff(principal, course, "only the course instructor or an administrator may manage quizzes"); err != nil {
		return err
	}
	if err := s.quizzes.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "quiz not found")
		}
		return internalError(err, "failed to delete quiz")
	}
	return nil
}

// Submit grades and stores the caller's single attempt at a quiz.
func (s *QuizService) Submit(ctx context.Context, principal models.Principal, id string, req models.SubmitQuizRequest) (*models.QuizSubmission, error) {
	if principal.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students may submit quizzes")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}
	quiz, course, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireEnrolled(ctx, principal.UserID, course.ID); err != nil {
		return nil, err
	}
	if quiz.Closed(s.now()) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "quiz is closed")
	}
	score, err := ScoreQuiz(quiz.Questions, req.Answers)
	if err != nil {
		return nil, err
	}

	sub := &models.QuizSubmission{
		QuizID:    quiz.ID,
		StudentID: principal.UserID,
		Answers:   models.QuizAnswers(req.Answers),
		Score:     score,
		MaxScore:  quiz.TotalPoints,
	}
	if err := s.quizzes.CreateSubmission(ctx, sub); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "quiz already submitted")
		}
		return nil, internalError(err, "failed to save submission")
	}
	s.logger.Info("quiz submitted", zap.String("quiz_id", quiz.ID), zap.String("student_id", principal.UserID), zap.Float64("score", score))
	return sub, nil
}

// ListSubmissions returns every attempt at a quiz for its course staff.
func (s *QuizService) ListSubmissions(ctx context.Context, principal models.Principal, id string) ([]models.QuizSubmission, error) {
	_, course, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireCourseStaff(principal, course, "only the course instructor or an administrator may view submissions"); err != nil {
		return nil, err
	}
	subs, err := s.quizzes.ListSubmissions(ctx, id)
	if err != nil {
		return nil, internalError(err, "failed to list submissions")
	}
	return subs, nil
}

// StudentSubmission returns one student's attempt at a quiz.
func (s *QuizService) StudentSubmission(ctx context.Context, principal models.Principal, id, studentID string) (*models.QuizSubmission, error) {
	if err := requireStudentAccess(principal, studentID); err != nil {
		return nil, err
	}
	sub, err := s.quizzes.FindSubmission(ctx, id, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, internalError(err, "failed to load submission")
	}
	return sub, nil
}

func (s *QuizService) load(ctx context.Context, id string) (*models.Quiz, *models.Course, error) {
	quiz, err := s.quizzes.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "quiz not found")
		}
		return nil, nil, internalError(err, "failed to load quiz")
	}
	course, err := loadCourse(ctx, s.courses, quiz.CourseID)
	if err != nil {
		return nil, nil, err
	}
	return quiz, course, nil
}

// canView reports whether the caller sees answers. Enrolled students may
// view without them; anyone else is refused.
func (s *QuizService) canView(ctx context.Context, principal models.Principal, course *models.Course) (bool, error) {
	if requireCourseStaff(principal, course, "") == nil {
		return true, nil
	}
	if principal.Role != models.RoleStudent {
		return false, appErrors.Clone(appErrors.ErrForbidden, "not allowed to view quizzes of this course")
	}
	if err := s.requireEnrolled(ctx, principal.UserID, course.ID); err != nil {
		return false, err
	}
	return false, nil
}

func (s *QuizService) requireEnrolled(ctx context.Context, studentID, courseID string) error {
	enrolled, err := s.enrollments.IsEnrolled(ctx, studentID, courseID)
	if err != nil {
		return internalError(err, "failed to check enrollment")
	}
	if !enrolled {
		return appErrors.Clone(appErrors.ErrForbidden, "not enrolled in this course")
	}
	return nil
}

func (s *QuizService) validateQuiz(req models.CreateQuizRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid quiz payload")
	}
	for i, q := range req.Questions {
		if *q.Answer >= len(q.Options) {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("question %d: answer must index one of its options", i+1))
		}
	}
	if req.DueAt != nil && !req.DueAt.After(s.now()) {
		return appErrors.Clone(appErrors.ErrValidation, "due date must be in the future")
	}
	return nil
}
