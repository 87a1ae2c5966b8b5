package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

// notifier is the fire-and-forget boundary to the notification subsystem.
type notifier interface {
	Notify(ctx context.Context, n models.Notification)
}

type studentFinder interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// requireStaff allows admins and managers.
func requireStaff(p models.Principal) error {
	if p.Role.Staff() {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "administrator role required")
}

// requireStudentAccess allows a student to act on their own record and
// staff or instructors to act on any student.
func requireStudentAccess(p models.Principal, studentID string) error {
	switch p.Role {
	case models.RoleAdmin, models.RoleManager, models.RoleInstructor:
		return nil
	case models.RoleStudent:
		if p.Is(studentID) {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrForbidden, "not allowed to access this student")
}

// requireCourseStaff allows staff and the instructor assigned to the course.
func requireCourseStaff(p models.Principal, course *models.Course, message string) error {
	if p.Role.Staff() || (p.Role == models.RoleInstructor && course.TaughtBy(p.UserID)) {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, message)
}

// loadCourse fetches a course or maps a miss onto ErrNotFound.
func loadCourse(ctx context.Context, courses courseFinder, id string) (*models.Course, error) {
	course, err := courses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, internalError(err, "failed to load course")
	}
	return course, nil
}

// loadStudent fetches a user and ensures it is a student account.
func loadStudent(ctx context.Context, users studentFinder, id string) (*models.User, error) {
	user, err := users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if user.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return user, nil
}

func internalError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
