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

const levelProgressionColumns = `id, from_level, to_level, required_credit_hours, required_gpa, created_at`

// LevelProgressionRepository stores academic level progression rules.
type LevelProgressionRepository struct {
	db *sqlx.DB
}

// NewLevelProgressionRepository constructs the repository.
func NewLevelProgressionRepository(db *sqlx.DB) *LevelProgressionRepository {
	return &LevelProgressionRepository{db: db}
}

// List returns all rules ordered by starting level.
func (r *LevelProgressionRepository) List(ctx context.Context) ([]models.LevelProgression, error) {
	rules := []models.LevelProgression{}
	if err := r.db.SelectContext(ctx, &rules, `SELECT `+levelProgressionColumns+` FROM level_progressions ORDER BY from_level ASC, to_level ASC`); err != nil {
		return nil, fmt.Errorf("list level progressions: %w", err)
	}
	return rules, nil
}

// FindByLevels returns the rule for moving from one level to another.
func (r *LevelProgressionRepository) FindByLevels(ctx context.Context, fromLevel, toLevel int) (*models.LevelProgression, error) {
	var rule models.LevelProgression
	query := `SELECT ` + levelProgressionColumns + ` FROM level_progressions WHERE from_level = $1 AND to_level = $2 LIMIT 1`
	if err := r.db.GetContext(ctx, &rule, query, fromLevel, toLevel); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find level progression: %w", err)
	}
	return &rule, nil
}

// Create inserts a rule. A repeated (from, to) pair yields ErrDuplicate.
func (r *LevelProgressionRepository) Create(ctx context.Context, rule *models.LevelProgression) error {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	rule.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO level_progressions (id, from_level, to_level, required_credit_hours, required_gpa, created_at) VALUES (:id, :from_level, :to_level, :required_credit_hours, :required_gpa, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, rule); err != nil {
		return translateWriteError("create level progression", err)
	}
	return nil
}

// Delete removes a rule.
func (r *LevelProgressionRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM level_progressions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete level progression: %w", err)
	}
	return expectAffected(res)
}
