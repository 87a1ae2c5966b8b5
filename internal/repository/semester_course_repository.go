package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-api/internal/models"
)

// SemesterCourseRepository stores term offerings of courses.
type SemesterCourseRepository struct {
	db *sqlx.DB
}

// NewSemesterCourseRepository constructs the repository.
func NewSemesterCourseRepository(db *sqlx.DB) *SemesterCourseRepository {
	return &SemesterCourseRepository{db: db}
}

// ListByCourse returns the offerings of a course.
func (r *SemesterCourseRepository) ListByCourse(ctx context.Context, courseID string) ([]models.SemesterCourse, error) {
	const query = `SELECT id, course_id, semester, academic_year, capacity, enrolled_count, is_active, created_at FROM semester_courses WHERE course_id = $1 ORDER BY academic_year, semester`
	offerings := []models.SemesterCourse{}
	if err := r.db.SelectContext(ctx, &offerings, query, courseID); err != nil {
		return nil, fmt.Errorf("list semester courses: %w", err)
	}
	return offerings, nil
}

// Create schedules an offering. A repeated (course, semester, year) yields ErrDuplicate.
func (r *SemesterCourseRepository) Create(ctx context.Context, offering *models.SemesterCourse) error {
	if offering.ID == "" {
		offering.ID = uuid.NewString()
	}
	offering.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO semester_courses (id, course_id, semester, academic_year, capacity, enrolled_count, is_active, created_at) VALUES (:id, :course_id, :semester, :academic_year, :capacity, :enrolled_count, :is_active, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, offering); err != nil {
		return translateWriteError("create semester course", err)
	}
	return nil
}
