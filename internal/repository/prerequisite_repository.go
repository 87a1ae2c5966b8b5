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

// PrerequisiteRepository stores course prerequisite links.
type PrerequisiteRepository struct {
	db *sqlx.DB
}

// NewPrerequisiteRepository constructs the repository.
func NewPrerequisiteRepository(db *sqlx.DB) *PrerequisiteRepository {
	return &PrerequisiteRepository{db: db}
}

func prerequisiteSelect() sq.SelectBuilder {
	return psql.Select(
		"cp.id", "cp.course_id", "cp.prerequisite_id", "cp.is_required", "cp.minimum_grade",
		"p.code AS prerequisite_code", "p.name AS prerequisite_name", "cp.created_at",
	).From("course_prerequisites cp").
		Join("courses p ON p.id = cp.prerequisite_id")
}

// ListByCourse returns the prerequisites of a course ordered by code.
func (r *PrerequisiteRepository) ListByCourse(ctx context.Context, courseID string) ([]models.CoursePrerequisite, error) {
	return r.ListByCourses(ctx, []string{courseID})
}

// ListByCourses returns the prerequisites of several courses in one query.
func (r *PrerequisiteRepository) ListByCourses(ctx context.Context, courseIDs []string) ([]models.CoursePrerequisite, error) {
	if len(courseIDs) == 0 {
		return []models.CoursePrerequisite{}, nil
	}
	query, args, err := prerequisiteSelect().
		Where(sq.Eq{"cp.course_id": courseIDs}).
		OrderBy("cp.course_id ASC", "p.code ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list prerequisites query: %w", err)
	}
	prereqs := []models.CoursePrerequisite{}
	if err := r.db.SelectContext(ctx, &prereqs, query, args...); err != nil {
		return nil, fmt.Errorf("list prerequisites: %w", err)
	}
	return prereqs, nil
}

// Create links a prerequisite. A repeated pair yields ErrDuplicate.
func (r *PrerequisiteRepository) Create(ctx context.Context, prereq *models.CoursePrerequisite) error {
	if prereq.ID == "" {
		prereq.ID = uuid.NewString()
	}
	prereq.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO course_prerequisites (id, course_id, prerequisite_id, is_required, minimum_grade, created_at) VALUES (:id, :course_id, :prerequisite_id, :is_required, :minimum_grade, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, prereq); err != nil {
		return translateWriteError("create prerequisite", err)
	}
	return nil
}

// Delete unlinks a prerequisite from a course.
func (r *PrerequisiteRepository) Delete(ctx context.Context, courseID, prerequisiteID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM course_prerequisites WHERE course_id = $1 AND prerequisite_id = $2`, courseID, prerequisiteID)
	if err != nil {
		return fmt.Errorf("delete prerequisite: %w", err)
	}
	return expectAffected(res)
}
