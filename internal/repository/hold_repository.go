package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-api/internal/models"
)

// HoldRepository stores administrative holds on students.
type HoldRepository struct {
	db *sqlx.DB
}

// NewHoldRepository constructs the repository.
func NewHoldRepository(db *sqlx.DB) *HoldRepository {
	return &HoldRepository{db: db}
}

// ListByStudent returns the student's holds, oldest first.
func (r *HoldRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Hold, error) {
	const query = `SELECT id, student_id, reason, restrict_registration, created_at FROM student_holds WHERE student_id = $1 ORDER BY created_at ASC`
	holds := []models.Hold{}
	if err := r.db.SelectContext(ctx, &holds, query, studentID); err != nil {
		return nil, fmt.Errorf("list holds: %w", err)
	}
	return holds, nil
}

// Create places a hold.
func (r *HoldRepository) Create(ctx context.Context, hold *models.Hold) error {
	if hold.ID == "" {
		hold.ID = uuid.NewString()
	}
	hold.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO student_holds (id, student_id, reason, restrict_registration, created_at) VALUES (:id, :student_id, :reason, :restrict_registration, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, hold); err != nil {
		return fmt.Errorf("create hold: %w", err)
	}
	return nil
}

// Delete lifts a hold from a student.
func (r *HoldRepository) Delete(ctx context.Context, studentID, holdID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM student_holds WHERE id = $1 AND student_id = $2`, holdID, studentID)
	if err != nil {
		return fmt.Errorf("delete hold: %w", err)
	}
	return expectAffected(res)
}
