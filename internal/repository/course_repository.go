package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-api/internal/models"
)

var courseColumns = []string{"id", "code", "name", "credit_hours", "academic_level", "course_type", "majors", "department", "instructor_id", "is_active", "created_at", "updated_at"}

// CourseRepository manages the course catalog.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a course repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID returns a course by id.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	query, args, err := psql.Select(courseColumns...).From("courses").Where(sq.Eq{"id": id}).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find course query: %w", err)
	}
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find course by id: %w", err)
	}
	return &course, nil
}

// FindByIDs returns the courses among ids, ordered by level then code.
func (r *CourseRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Course, error) {
	if len(ids) == 0 {
		return []models.Course{}, nil
	}
	query, args, err := psql.Select(courseColumns...).From("courses").
		Where(sq.Eq{"id": ids}).
		OrderBy("academic_level ASC", "code ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find courses query: %w", err)
	}
	courses := []models.Course{}
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, fmt.Errorf("find courses by ids: %w", err)
	}
	return courses, nil
}

// List returns a page of courses matching filter and the total count.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	query, args, err := applyCourseFilter(psql.Select(courseColumns...).From("courses"), filter).
		OrderBy("academic_level ASC", "code ASC").
		Limit(uint64(pageSize)).
		Offset(uint64((page - 1) * pageSize)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list courses query: %w", err)
	}
	courses := []models.Course{}
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	countQuery, countArgs, err := applyCourseFilter(psql.Select("COUNT(*)").From("courses"), filter).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count courses query: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// ListCandidates returns every course matching filter without paging,
// ordered by level then code. It feeds the eligibility filter.
func (r *CourseRepository) ListCandidates(ctx context.Context, filter models.CourseFilter) ([]models.Course, error) {
	query, args, err := applyCourseFilter(psql.Select(courseColumns...).From("courses"), filter).
		OrderBy("academic_level ASC", "code ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build candidate courses query: %w", err)
	}
	courses := []models.Course{}
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, fmt.Errorf("list candidate courses: %w", err)
	}
	return courses, nil
}

func applyCourseFilter(b sq.SelectBuilder, filter models.CourseFilter) sq.SelectBuilder {
	if filter.Active != nil {
		b = b.Where(sq.Eq{"is_active": *filter.Active})
	}
	if filter.CourseType != nil {
		b = b.Where(sq.Eq{"course_type": *filter.CourseType})
	}
	if filter.Department != "" {
		b = b.Where(sq.Eq{"department": filter.Department})
	}
	if filter.MinLevel > 0 {
		b = b.Where(sq.GtOrEq{"academic_level": filter.MinLevel})
	}
	if filter.MaxLevel > 0 {
		b = b.Where(sq.LtOrEq{"academic_level": filter.MaxLevel})
	}
	if filter.Major != "" {
		b = b.Where(sq.Expr("EXISTS (SELECT 1 FROM unnest(majors) AS m WHERE LOWER(m) = LOWER(?) OR LOWER(m) = LOWER(?))", filter.Major, models.GeneralMajor))
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		b = b.Where(sq.Or{sq.Like{"LOWER(code)": like}, sq.Like{"LOWER(name)": like}})
	}
	return b
}

// Create inserts a course. A taken code or name yields ErrDuplicate.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now

	const query = `INSERT INTO courses (id, code, name, credit_hours, academic_level, course_type, majors, department, instructor_id, is_active, created_at, updated_at) VALUES (:id, :code, :name, :credit_hours, :academic_level, :course_type, :majors, :department, :instructor_id, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return translateWriteError("create course", err)
	}
	return nil
}

// Update replaces the mutable fields of a course.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET name = :name, credit_hours = :credit_hours, academic_level = :academic_level, course_type = :course_type, majors = :majors, department = :department, instructor_id = :instructor_id, is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, course)
	if err != nil {
		return translateWriteError("update course", err)
	}
	return expectAffected(res)
}

// Deactivate hides a course from new registrations. Courses are never deleted.
func (r *CourseRepository) Deactivate(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE courses SET is_active = FALSE, updated_at = $2 WHERE id = $1`, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("deactivate course: %w", err)
	}
	return expectAffected(res)
}
