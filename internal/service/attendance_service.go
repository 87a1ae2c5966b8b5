package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

const dateLayout = "2006-01-02"

type attendanceStore interface {
	Upsert(ctx context.Context, record *models.Attendance) (*models.Attendance, error)
	BulkUpsert(ctx context.Context, records []models.Attendance) ([]models.Attendance, error)
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, error)
	Summary(ctx context.Context, studentID, courseID string) (*models.AttendanceSummary, error)
}

type enrollmentLookup interface {
	IsEnrolled(ctx context.Context, studentID, courseID string) (bool, error)
	ListEnrolledStudentIDs(ctx context.Context, courseID string) ([]string, error)
}

// AttendanceService records class attendance for enrolled students.
type AttendanceService struct {
	store       attendanceStore
	courses     courseFinder
	users       studentFinder
	enrollments enrollmentLookup
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(store attendanceStore, courses courseFinder, users studentFinder, enrollments enrollmentLookup, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{store: store, courses: courses, users: users, enrollments: enrollments, validator: validate, logger: logger}
}

// Mark records one student's attendance for a course meeting.
func (s *AttendanceService) Mark(ctx context.Context, principal models.Principal, courseID string, req models.MarkAttendanceRequest) (*models.Attendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	date, err := parseMeetingDate(req.Date)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorize(ctx, principal, courseID); err != nil {
		return nil, err
	}
	if err := s.ensureEnrolled(ctx, req.StudentID, courseID); err != nil {
		return nil, err
	}
	stored, err := s.store.Upsert(ctx, &models.Attendance{
		StudentID:  req.StudentID,
		CourseID:   courseID,
		Date:       date,
		Status:     models.AttendanceStatus(req.Status),
		Notes:      req.Notes,
		RecordedBy: principal.UserID,
	})
	if err != nil {
		return nil, internalError(err, "failed to record attendance")
	}
	return stored, nil
}

// BulkMark records a whole meeting. Every student must be enrolled or
// nothing is written.
func (s *AttendanceService) BulkMark(ctx context.Context, principal models.Principal, courseID string, req models.BulkMarkAttendanceRequest) ([]models.Attendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	date, err := parseMeetingDate(req.Date)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorize(ctx, principal, courseID); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(req.Items))
	records := make([]models.Attendance, 0, len(req.Items))
	for _, item := range req.Items {
		if _, dup := seen[item.StudentID]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("student %s appears more than once", item.StudentID))
		}
		seen[item.StudentID] = struct{}{}
		if err := s.ensureEnrolled(ctx, item.StudentID, courseID); err != nil {
			return nil, err
		}
		records = append(records, models.Attendance{
			StudentID:  item.StudentID,
			CourseID:   courseID,
			Date:       date,
			Status:     models.AttendanceStatus(item.Status),
			Notes:      item.Notes,
			RecordedBy: principal.UserID,
		})
	}
	stored, err := s.store.BulkUpsert(ctx, records)
	if err != nil {
		return nil, internalError(err, "failed to record attendance")
	}
	s.logger.Info("attendance sheet recorded", zap.String("course_id", courseID), zap.String("date", req.Date), zap.Int("students", len(stored)))
	return stored, nil
}

// ListByCourse returns a course's attendance for staff and its instructor.
func (s *AttendanceService) ListByCourse(ctx context.Context, principal models.Principal, courseID string, filter models.AttendanceFilter) ([]models.Attendance, error) {
	if _, err := s.authorize(ctx, principal, courseID); err != nil {
		return nil, err
	}
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown attendance status")
	}
	filter.CourseID = courseID
	rows, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, internalError(err, "failed to list attendance")
	}
	return rows, nil
}

// StudentRecord returns a student's attendance in one course with totals.
func (s *AttendanceService) StudentRecord(ctx context.Context, principal models.Principal, studentID, courseID string) (*models.StudentAttendance, error) {
	if err := requireStudentAccess(principal, studentID); err != nil {
		return nil, err
	}
	if _, err := loadStudent(ctx, s.users, studentID); err != nil {
		return nil, err
	}
	if _, err := loadCourse(ctx, s.courses, courseID); err != nil {
		return nil, err
	}
	rows, err := s.store.List(ctx, models.AttendanceFilter{CourseID: courseID, StudentID: studentID})
	if err != nil {
		return nil, internalError(err, "failed to list attendance")
	}
	summary, err := s.store.Summary(ctx, studentID, courseID)
	if err != nil {
		return nil, internalError(err, "failed to summarise attendance")
	}
	return &models.StudentAttendance{StudentID: studentID, CourseID: courseID, Records: rows, Summary: *summary}, nil
}

func (s *AttendanceService) authorize(ctx context.Context, principal models.Principal, courseID string) (*models.Course, error) {
	course, err := loadCourse(ctx, s.courses, courseID)
	if err != nil {
		return nil, err
	}
	if err := requireCourseStaff(principal, course, "only the course instructor or an administrator may manage attendance"); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *AttendanceService) ensureEnrolled(ctx context.Context, studentID, courseID string) error {
	enrolled, err := s.enrollments.IsEnrolled(ctx, studentID, courseID)
	if err != nil {
		return internalError(err, "failed to check enrollment")
	}
	if !enrolled {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("student %s is not enrolled in this course", studentID))
	}
	return nil
}

func parseMeetingDate(value string) (time.Time, error) {
	date, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}
	return date, nil
}
