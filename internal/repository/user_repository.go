package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-api/internal/models"
)

const userColumns = `id, email, password_hash, full_name, role, major, academic_level, gpa, completed_credit_hours, semester, active, created_at, updated_at`

// UserRepository provides database access for accounts and the permanent
// academic record of students.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail returns a user by email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// Create inserts a new user. A taken email yields ErrDuplicate.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	const query = `INSERT INTO users (id, email, password_hash, full_name, role, major, academic_level, gpa, completed_credit_hours, semester, active, created_at, updated_at) VALUES (:id, :email, :password_hash, :full_name, :role, :major, :academic_level, :gpa, :completed_credit_hours, :semester, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return translateWriteError("create user", err)
	}
	return nil
}

// UpdateAcademicLevel sets a student's level.
func (r *UserRepository) UpdateAcademicLevel(ctx context.Context, id string, level int) error {
	const query = `UPDATE users SET academic_level = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, level, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update academic level: %w", err)
	}
	return expectAffected(res)
}

// ListPassedCourseIDs returns the set of courses the student has passed.
func (r *UserRepository) ListPassedCourseIDs(ctx context.Context, studentID string) ([]string, error) {
	const query = `SELECT course_id FROM student_passed_courses WHERE student_id = $1 ORDER BY course_id`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, studentID); err != nil {
		return nil, fmt.Errorf("list passed courses: %w", err)
	}
	return ids, nil
}

// AddPassedCourseWithTx records a passed course and reports whether it was new.
func (r *UserRepository) AddPassedCourseWithTx(ctx context.Context, tx *sqlx.Tx, studentID, courseID string) (bool, error) {
	if tx == nil {
		return false, fmt.Errorf("nil transaction provided")
	}
	const query = `INSERT INTO student_passed_courses (student_id, course_id, created_at) VALUES ($1, $2, $3) ON CONFLICT (student_id, course_id) DO NOTHING`
	res, err := tx.ExecContext(ctx, query, studentID, courseID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("add passed course: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("add passed course rows: %w", err)
	}
	return n > 0, nil
}

// UpdateAcademicRecordWithTx writes the recomputed GPA and adds earned credit hours.
func (r *UserRepository) UpdateAcademicRecordWithTx(ctx context.Context, tx *sqlx.Tx, studentID string, gpa float64, earnedCreditHours int) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	const query = `UPDATE users SET gpa = $2, completed_credit_hours = completed_credit_hours + $3, updated_at = $4 WHERE id = $1`
	res, err := tx.ExecContext(ctx, query, studentID, gpa, earnedCreditHours, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update academic record: %w", err)
	}
	return expectAffected(res)
}

// expectAffected turns a no-op update or delete into sql.ErrNoRows.
func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
