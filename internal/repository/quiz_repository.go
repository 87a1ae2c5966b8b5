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

const (
	quizColumns       = `id, course_id, title, description, questions, total_points, due_at, created_by, created_at, updated_at`
	submissionColumns = `id, quiz_id, student_id, answers, score, max_score, submitted_at`
)

// QuizRepository stores quizzes and their submissions.
type QuizRepository struct {
	db *sqlx.DB
}

// NewQuizRepository constructs the repository.
func NewQuizRepository(db *sqlx.DB) *QuizRepository {
	return &QuizRepository{db: db}
}

// Create inserts a quiz.
func (r *QuizRepository) Create(ctx context.Context, quiz *models.Quiz) error {
	if quiz.ID == "" {
		quiz.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	quiz.CreatedAt = now
	quiz.UpdatedAt = now
	const query = `INSERT INTO quizzes (id, course_id, title, description, questions, total_points, due_at, created_by, created_at, updated_at) VALUES (:id, :course_id, :title, :description, :questions, :total_points, :due_at, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, quiz); err != nil {
		return translateWriteError("create quiz", err)
	}
	return nil
}

// FindByID returns a quiz by id.
func (r *QuizRepository) FindByID(ctx context.Context, id string) (*models.Quiz, error) {
	query := `SELECT ` + quizColumns + ` FROM quizzes WHERE id = $1 LIMIT 1`
	var quiz models.Quiz
	if err := r.db.GetContext(ctx, &quiz, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find quiz: %w", err)
	}
	return &quiz, nil
}

// ListByCourse returns a course's quizzes, newest first.
func (r *QuizRepository) ListByCourse(ctx context.Context, courseID string) ([]models.Quiz, error) {
	query := `SELECT ` + quizColumns + ` FROM quizzes WHERE course_id = $1 ORDER BY created_at DESC`
	quizzes := []models.Quiz{}
	if err := r.db.SelectContext(ctx, &quizzes, query, courseID); err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	return quizzes, nil
}

// Update replaces a quiz's content.
func (r *QuizRepository) Update(ctx context.Context, quiz *models.Quiz) error {
	quiz.UpdatedAt = time.Now().UTC()
	const query = `UPDATE quizzes SET title = :title, description = :description, questions = :questions, total_points = :total_points, due_at = :due_at, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, quiz)
	if err != nil {
		return fmt.Errorf("update quiz: %w", err)
	}
	return expectAffected(res)
}

// Delete removes a quiz and, by cascade, its submissions.
func (r *QuizRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM quizzes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	return expectAffected(res)
}

// CountSubmissions returns how many students answered the quiz.
func (r *QuizRepository) CountSubmissions(ctx context.Context, quizID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM quiz_submissions WHERE quiz_id = $1`, quizID); err != nil {
		return 0, fmt.Errorf("count quiz submissions: %w", err)
	}
	return count, nil
}

// CreateSubmission stores a student's attempt. A second attempt by the
// same student yields ErrDuplicate.
func (r *QuizRepository) CreateSubmission(ctx context.Context, sub *models.QuizSubmission) error {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	sub.SubmittedAt = time.Now().UTC()
	const query = `INSERT INTO quiz_submissions (id, quiz_id, student_id, answers, score, max_score, submitted_at) VALUES (:id, :quiz_id, :student_id, :answers, :score, :max_score, :submitted_at)`
	if _, err := r.db.NamedExecContext(ctx, query, sub); err != nil {
		return translateWriteError("create quiz submission", err)
	}
	return nil
}

// ListSubmissions returns every attempt at a quiz, best score first.
func (r *QuizRepository) ListSubmissions(ctx context.Context, quizID string) ([]models.QuizSubmission, error) {
	query := `SELECT ` + submissionColumns + ` FROM quiz_submissions WHERE quiz_id = $1 ORDER BY score DESC, submitted_at ASC`
	subs := []models.QuizSubmission{}
	if err := r.db.SelectContext(ctx, &subs, query, quizID); err != nil {
		return nil, fmt.Errorf("list quiz submissions: %w", err)
	}
	return subs, nil
}

// FindSubmission returns a student's attempt at a quiz.
func (r *QuizRepository) FindSubmission(ctx context.Context, quizID, studentID string) (*models.QuizSubmission, error) {
	query := `SELECT ` + submissionColumns + ` FROM quiz_submissions WHERE quiz_id = $1 AND student_id = $2 LIMIT 1`
	var sub models.QuizSubmission
	if err := r.db.GetContext(ctx, &sub, query, quizID, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find quiz submission: %w", err)
	}
	return &sub, nil
}
