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

const gpaRuleColumns = `id, min_gpa, max_gpa, max_credit_hours, created_at, updated_at`

// GPARuleRepository stores GPA bands and their credit-hour caps.
type GPARuleRepository struct {
	db *sqlx.DB
}

// NewGPARuleRepository constructs the repository.
func NewGPARuleRepository(db *sqlx.DB) *GPARuleRepository {
	return &GPARuleRepository{db: db}
}

// List returns all rules ordered by band.
func (r *GPARuleRepository) List(ctx context.Context) ([]models.GPARule, error) {
	rules := []models.GPARule{}
	if err := r.db.SelectContext(ctx, &rules, `SELECT `+gpaRuleColumns+` FROM gpa_rules ORDER BY min_gpa ASC`); err != nil {
		return nil, fmt.Errorf("list gpa rules: %w", err)
	}
	return rules, nil
}

// FindByID returns a rule by id.
func (r *GPARuleRepository) FindByID(ctx context.Context, id string) (*models.GPARule, error) {
	var rule models.GPARule
	if err := r.db.GetContext(ctx, &rule, `SELECT `+gpaRuleColumns+` FROM gpa_rules WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find gpa rule: %w", err)
	}
	return &rule, nil
}

// FindForGPA returns the band containing gpa. Where two bands touch at a
// shared boundary the one with the higher minimum wins.
func (r *GPARuleRepository) FindForGPA(ctx context.Context, gpa float64) (*models.GPARule, error) {
	var rule models.GPARule
	query := `SELECT ` + gpaRuleColumns + ` FROM gpa_rules WHERE $1 BETWEEN min_gpa AND max_gpa ORDER BY min_gpa DESC LIMIT 1`
	if err := r.db.GetContext(ctx, &rule, query, gpa); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find gpa rule for gpa: %w", err)
	}
	return &rule, nil
}

// Create inserts a rule.
func (r *GPARuleRepository) Create(ctx context.Context, rule *models.GPARule) error {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now
	const query = `INSERT INTO gpa_rules (id, min_gpa, max_gpa, max_credit_hours, created_at, updated_at) VALUES (:id, :min_gpa, :max_gpa, :max_credit_hours, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, rule); err != nil {
		return translateWriteError("create gpa rule", err)
	}
	return nil
}

// Update replaces a rule's band and cap.
func (r *GPARuleRepository) Update(ctx context.Context, rule *models.GPARule) error {
	rule.UpdatedAt = time.Now().UTC()
	const query = `UPDATE gpa_rules SET min_gpa = :min_gpa, max_gpa = :max_gpa, max_credit_hours = :max_credit_hours, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, rule)
	if err != nil {
		return fmt.Errorf("update gpa rule: %w", err)
	}
	return expectAffected(res)
}

// Delete removes a rule.
func (r *GPARuleRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM gpa_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete gpa rule: %w", err)
	}
	return expectAffected(res)
}
