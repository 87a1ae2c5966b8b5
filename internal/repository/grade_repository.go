package repository

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-api/internal/models"
)

// GradeRepository stores recorded grades, the permanent transcript.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository constructs the repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// CreateWithTx inserts a grade inside the caller's transaction.
func (r *GradeRepository) CreateWithTx(ctx context.Context, tx *sqlx.Tx, grade *models.Grade) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	if grade.CreatedAt.IsZero() {
		grade.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO grades (id, student_id, course_id, instructor_id, semester, academic_year, midterm, final_exam, assignments, quizzes, total_grade, letter_grade, created_at) VALUES (:id, :student_id, :course_id, :instructor_id, :semester, :academic_year, :midterm, :final_exam, :assignments, :quizzes, :total_grade, :letter_grade, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, grade); err != nil {
		return translateWriteError("create grade", err)
	}
	return nil
}

// List returns grades matching filter, newest first.
func (r *GradeRepository) List(ctx context.Context, filter models.GradeFilter) ([]models.Grade, error) {
	b := psql.Select("id", "student_id", "course_id", "instructor_id", "semester", "academic_year", "midterm", "final_exam", "assignments", "quizzes", "total_grade", "letter_grade", "created_at").
		From("grades")
	if filter.StudentID != "" {
		b = b.Where(sq.Eq{"student_id": filter.StudentID})
	}
	if filter.CourseID != "" {
		b = b.Where(sq.Eq{"course_id": filter.CourseID})
	}
	query, args, err := b.OrderBy("created_at DESC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list grades query: %w", err)
	}
	grades := []models.Grade{}
	if err := r.db.SelectContext(ctx, &grades, query, args...); err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}
	return grades, nil
}

// ListHistory returns the student's graded courses, newest first.
func (r *GradeRepository) ListHistory(ctx context.Context, studentID string) ([]models.GradedCourse, error) {
	return r.listHistory(ctx, r.db, studentID)
}

// ListHistoryWithTx reads the graded history inside the caller's transaction
// so it includes a grade inserted earlier in the same transaction.
func (r *GradeRepository) ListHistoryWithTx(ctx context.Context, tx *sqlx.Tx, studentID string) ([]models.GradedCourse, error) {
	if tx == nil {
		return nil, fmt.Errorf("nil transaction provided")
	}
	return r.listHistory(ctx, tx, studentID)
}

func (r *GradeRepository) listHistory(ctx context.Context, q sqlx.QueryerContext, studentID string) ([]models.GradedCourse, error) {
	const query = `SELECT g.course_id, c.code AS course_code, c.name AS course_name, c.credit_hours, g.letter_grade, g.total_grade, g.semester, g.academic_year, g.created_at AS graded_at FROM grades g JOIN courses c ON c.id = g.course_id WHERE g.student_id = $1 ORDER BY g.created_at DESC`
	history := []models.GradedCourse{}
	if err := sqlx.SelectContext(ctx, q, &history, query, studentID); err != nil {
		return nil, fmt.Errorf("list grade history: %w", err)
	}
	return history, nil
}
