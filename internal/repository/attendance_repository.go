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

const attendanceColumns = `id, student_id, course_id, date, status, notes, recorded_by, created_at, updated_at`

const upsertAttendance = `INSERT INTO course_attendance (id, student_id, course_id, date, status, notes, recorded_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
ON CONFLICT (student_id, course_id, date)
DO UPDATE SET status = EXCLUDED.status, notes = EXCLUDED.notes, recorded_by = EXCLUDED.recorded_by, updated_at = EXCLUDED.updated_at
RETURNING ` + attendanceColumns

// AttendanceRepository persists per-course attendance.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Upsert records attendance, replacing any earlier mark for the same
// student, course and date.
func (r *AttendanceRepository) Upsert(ctx context.Context, record *models.Attendance) (*models.Attendance, error) {
	return upsertAttendanceRow(ctx, r.db, record)
}

// BulkUpsert writes every record in one transaction.
func (r *AttendanceRepository) BulkUpsert(ctx context.Context, records []models.Attendance) ([]models.Attendance, error) {
	if len(records) == 0 {
		return []models.Attendance{}, nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin bulk attendance: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	stored := make([]models.Attendance, 0, len(records))
	for i := range records {
		row, err := upsertAttendanceRow(ctx, tx, &records[i])
		if err != nil {
			return nil, err
		}
		stored = append(stored, *row)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit bulk attendance: %w", err)
	}
	committed = true
	return stored, nil
}

func upsertAttendanceRow(ctx context.Context, q sqlx.QueryerContext, record *models.Attendance) (*models.Attendance, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	var stored models.Attendance
	if err := sqlx.GetContext(ctx, q, &stored, upsertAttendance,
		record.ID, record.StudentID, record.CourseID, record.Date, record.Status, record.Notes, record.RecordedBy, now,
	); err != nil {
		return nil, translateWriteError("upsert attendance", err)
	}
	return &stored, nil
}

// List returns attendance rows matching the filter, oldest meeting first.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, error) {
	b := psql.Select(attendanceColumns).From("course_attendance")
	if filter.CourseID != "" {
		b = b.Where(sq.Eq{"course_id": filter.CourseID})
	}
	if filter.StudentID != "" {
		b = b.Where(sq.Eq{"student_id": filter.StudentID})
	}
	if filter.Status != nil {
		b = b.Where(sq.Eq{"status": *filter.Status})
	}
	if filter.DateFrom != nil {
		b = b.Where(sq.GtOrEq{"date": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		b = b.Where(sq.LtOrEq{"date": *filter.DateTo})
	}
	query, args, err := b.OrderBy("date ASC", "student_id ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list attendance query: %w", err)
	}
	rows := []models.Attendance{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return rows, nil
}

// Summary counts a student's attendance in a course by status.
func (r *AttendanceRepository) Summary(ctx context.Context, studentID, courseID string) (*models.AttendanceSummary, error) {
	const query = `SELECT
COUNT(*) FILTER (WHERE status = 'present') AS present,
COUNT(*) FILTER (WHERE status = 'absent') AS absent,
COUNT(*) FILTER (WHERE status = 'late') AS late,
COUNT(*) FILTER (WHERE status = 'excused') AS excused,
COUNT(*) AS total
FROM course_attendance WHERE student_id = $1 AND course_id = $2`
	var summary models.AttendanceSummary
	if err := r.db.GetContext(ctx, &summary, query, studentID, courseID); err != nil {
		return nil, fmt.Errorf("attendance summary: %w", err)
	}
	summary.ComputePercent()
	return &summary, nil
}
