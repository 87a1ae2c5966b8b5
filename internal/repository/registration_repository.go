package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-api/internal/models"
)

const registrationColumns = `id, student_id, course_id, semester, academic_year, status, grade, is_passed, approved_by, created_at, updated_at`

// RegistrationRepository stores student course registrations.
type RegistrationRepository struct {
	db *sqlx.DB
}

// NewRegistrationRepository constructs the repository.
func NewRegistrationRepository(db *sqlx.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// Create inserts a pending registration. A dropped or rejected row for the
// same (student, course, semester, year) is reactivated in place; any other
// existing row yields ErrDuplicate, which makes the unique index the
// arbiter between concurrent requests.
func (r *RegistrationRepository) Create(ctx context.Context, reg *models.Registration) error {
	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	reg.Status = models.RegistrationPending
	reg.Grade = models.GradeNone
	reg.IsPassed = false
	reg.ApprovedBy = nil
	reg.CreatedAt = now
	reg.UpdatedAt = now

	const query = `INSERT INTO student_course_registrations (id, student_id, course_id, semester, academic_year, status, grade, is_passed, approved_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, '', FALSE, NULL, $7, $7)
ON CONFLICT (student_id, course_id, semester, academic_year) DO UPDATE
SET status = EXCLUDED.status, grade = '', is_passed = FALSE, approved_by = NULL, updated_at = EXCLUDED.updated_at
WHERE student_course_registrations.status IN ('dropped', 'rejected')
RETURNING id`
	var id string
	err := r.db.GetContext(ctx, &id, query, reg.ID, reg.StudentID, reg.CourseID, reg.Semester, reg.AcademicYear, reg.Status, now)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("create registration: %w", ErrDuplicate)
		}
		return translateWriteError("create registration", err)
	}
	reg.ID = id
	return nil
}

// FindByID returns a registration by id.
func (r *RegistrationRepository) FindByID(ctx context.Context, id string) (*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM student_course_registrations WHERE id = $1 LIMIT 1`
	var reg models.Registration
	if err := r.db.GetContext(ctx, &reg, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find registration: %w", err)
	}
	return &reg, nil
}

// FindForTerm returns the registration for an exact (student, course, semester, year).
func (r *RegistrationRepository) FindForTerm(ctx context.Context, studentID, courseID string, semester int, academicYear string) (*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM student_course_registrations WHERE student_id = $1 AND course_id = $2 AND semester = $3 AND academic_year = $4 LIMIT 1`
	var reg models.Registration
	if err := r.db.GetContext(ctx, &reg, query, studentID, courseID, semester, academicYear); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find registration for term: %w", err)
	}
	return &reg, nil
}

// ListByStudent returns the student's registrations joined with their courses.
func (r *RegistrationRepository) ListByStudent(ctx context.Context, studentID string, filter models.RegistrationFilter) ([]models.RegistrationDetail, error) {
	b := psql.Select(
		"r.id", "r.student_id", "r.course_id", "r.semester", "r.academic_year", "r.status", "r.grade",
		"r.is_passed", "r.approved_by", "r.created_at", "r.updated_at",
		"c.code AS course_code", "c.name AS course_name", "c.credit_hours", "c.academic_level", "c.course_type",
	).From("student_course_registrations r").
		Join("courses c ON c.id = r.course_id").
		Where(sq.Eq{"r.student_id": studentID})
	if filter.Status != nil {
		b = b.Where(sq.Eq{"r.status": *filter.Status})
	}
	if filter.Semester > 0 {
		b = b.Where(sq.Eq{"r.semester": filter.Semester})
	}
	if filter.AcademicYear != "" {
		b = b.Where(sq.Eq{"r.academic_year": filter.AcademicYear})
	}
	query, args, err := b.OrderBy("r.academic_year ASC", "r.semester ASC", "c.code ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list registrations query: %w", err)
	}
	regs := []models.RegistrationDetail{}
	if err := r.db.SelectContext(ctx, &regs, query, args...); err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return regs, nil
}

// SumInFlightCreditHours totals the credit hours of the student's pending,
// approved and waitlisted registrations in a term.
func (r *RegistrationRepository) SumInFlightCreditHours(ctx context.Context, studentID string, semester int, academicYear string) (int, error) {
	const query = `SELECT COALESCE(SUM(c.credit_hours), 0) FROM student_course_registrations r JOIN courses c ON c.id = r.course_id WHERE r.student_id = $1 AND r.semester = $2 AND r.academic_year = $3 AND r.status IN ('pending', 'approved', 'waitlisted')`
	var total int
	if err := r.db.GetContext(ctx, &total, query, studentID, semester, academicYear); err != nil {
		return 0, fmt.Errorf("sum in-flight credit hours: %w", err)
	}
	return total, nil
}

// UpdateStatus moves a registration to a new status.
func (r *RegistrationRepository) UpdateStatus(ctx context.Context, id string, status models.RegistrationStatus, approvedBy *string) error {
	const query = `UPDATE student_course_registrations SET status = $2, approved_by = COALESCE($3, approved_by), updated_at = $4 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status, approvedBy, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update registration status: %w", err)
	}
	return expectAffected(res)
}

// ApplyGradeWithTx stamps a letter onto the student's approved registration
// for the course and term and marks it completed. sql.ErrNoRows is returned
// when no approved registration exists.
func (r *RegistrationRepository) ApplyGradeWithTx(ctx context.Context, tx *sqlx.Tx, studentID, courseID string, semester int, academicYear string, grade models.LetterGrade) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	const query = `UPDATE student_course_registrations SET grade = $5, is_passed = $6, status = 'completed', updated_at = $7 WHERE student_id = $1 AND course_id = $2 AND semester = $3 AND academic_year = $4 AND status = 'approved'`
	res, err := tx.ExecContext(ctx, query, studentID, courseID, semester, academicYear, grade, grade.Passing(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("apply grade to registration: %w", err)
	}
	return expectAffected(res)
}

// CountUngradedWithTx counts the student's live registrations still lacking a grade.
func (r *RegistrationRepository) CountUngradedWithTx(ctx context.Context, tx *sqlx.Tx, studentID string) (int, error) {
	if tx == nil {
		return 0, fmt.Errorf("nil transaction provided")
	}
	const query = `SELECT COUNT(*) FROM student_course_registrations WHERE student_id = $1 AND status NOT IN ('dropped', 'rejected') AND grade = ''`
	var count int
	if err := tx.GetContext(ctx, &count, query, studentID); err != nil {
		return 0, fmt.Errorf("count ungraded registrations: %w", err)
	}
	return count, nil
}

// ListCompletedWithTx returns the student's graded registrations with course credit hours.
func (r *RegistrationRepository) ListCompletedWithTx(ctx context.Context, tx *sqlx.Tx, studentID string) ([]models.RegistrationDetail, error) {
	if tx == nil {
		return nil, fmt.Errorf("nil transaction provided")
	}
	return r.listCompleted(ctx, tx, studentID)
}

// ListCompleted returns the student's graded registrations with course details.
func (r *RegistrationRepository) ListCompleted(ctx context.Context, studentID string) ([]models.RegistrationDetail, error) {
	return r.listCompleted(ctx, r.db, studentID)
}

func (r *RegistrationRepository) listCompleted(ctx context.Context, q sqlx.QueryerContext, studentID string) ([]models.RegistrationDetail, error) {
	const query = `SELECT r.id, r.student_id, r.course_id, r.semester, r.academic_year, r.status, r.grade, r.is_passed, r.approved_by, r.created_at, r.updated_at, c.code AS course_code, c.name AS course_name, c.credit_hours, c.academic_level, c.course_type FROM student_course_registrations r JOIN courses c ON c.id = r.course_id WHERE r.student_id = $1 AND r.status = 'completed' ORDER BY r.updated_at DESC`
	regs := []models.RegistrationDetail{}
	if err := sqlx.SelectContext(ctx, q, &regs, query, studentID); err != nil {
		return nil, fmt.Errorf("list completed registrations: %w", err)
	}
	return regs, nil
}

// DeleteByStudentWithTx removes every registration of the student.
func (r *RegistrationRepository) DeleteByStudentWithTx(ctx context.Context, tx *sqlx.Tx, studentID string) (int64, error) {
	if tx == nil {
		return 0, fmt.Errorf("nil transaction provided")
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM student_course_registrations WHERE student_id = $1`, studentID)
	if err != nil {
		return 0, fmt.Errorf("delete student registrations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete student registrations rows: %w", err)
	}
	return n, nil
}

// IsEnrolled reports whether the student holds an approved or completed
// registration for the course.
func (r *RegistrationRepository) IsEnrolled(ctx context.Context, studentID, courseID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM student_course_registrations WHERE student_id = $1 AND course_id = $2 AND status IN ('approved', 'completed'))`
	var enrolled bool
	if err := r.db.GetContext(ctx, &enrolled, query, studentID, courseID); err != nil {
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return enrolled, nil
}

// ListEnrolledStudentIDs returns the distinct students with an approved
// registration for the course.
func (r *RegistrationRepository) ListEnrolledStudentIDs(ctx context.Context, courseID string) ([]string, error) {
	const query = `SELECT DISTINCT student_id FROM student_course_registrations WHERE course_id = $1 AND status = 'approved' ORDER BY student_id`
	ids := []string{}
	if err := r.db.SelectContext(ctx, &ids, query, courseID); err != nil {
		return nil, fmt.Errorf("list enrolled students: %w", err)
	}
	return ids, nil
}
