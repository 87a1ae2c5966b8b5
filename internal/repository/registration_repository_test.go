package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-api/internal/models"
)

func TestRegistrationRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO student_course_registrations")).
		WithArgs(sqlmock.AnyArg(), "s1", "c1", 2, "2024-2025", models.RegistrationPending, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("existing-id"))

	reg := &models.Registration{StudentID: "s1", CourseID: "c1", Semester: 2, AcademicYear: "2024-2025"}
	require.NoError(t, repo.Create(context.Background(), reg))
	assert.Equal(t, "existing-id", reg.ID)
	assert.Equal(t, models.RegistrationPending, reg.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	// the conflict clause only fires for withdrawn rows; otherwise nothing is returned
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (student_id, course_id, semester, academic_year) DO UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	err := repo.Create(context.Background(), &models.Registration{StudentID: "s1", CourseID: "c1", Semester: 2, AcademicYear: "2024-2025"})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositorySumInFlightCreditHours(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(c.credit_hours), 0) FROM student_course_registrations r")).
		WithArgs("s1", 1, "2024-2025").
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(10))

	total, err := repo.SumInFlightCreditHours(context.Background(), "s1", 1, "2024-2025")
	require.NoError(t, err)
	assert.Equal(t, 10, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryApplyGradeWithTxNoRegistration(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE student_course_registrations SET grade = $5, is_passed = $6, status = 'completed'")).
		WithArgs("s1", "c1", 1, "2024-2025", models.GradeB, true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	err = repo.ApplyGradeWithTx(context.Background(), tx, "s1", "c1", 1, "2024-2025", models.GradeB)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryCountAndDeleteWithTx(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM student_course_registrations WHERE student_id = $1 AND status NOT IN ('dropped', 'rejected') AND grade = ''")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM student_course_registrations WHERE student_id = $1")).
		WithArgs("s1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	count, err := repo.CountUngradedWithTx(context.Background(), tx, "s1")
	require.NoError(t, err)
	assert.Zero(t, count)
	deleted, err := repo.DeleteByStudentWithTx(context.Background(), tx, "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryEnrollmentLookups(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("status IN ('approved', 'completed')")).
		WithArgs("s1", "c1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT student_id FROM student_course_registrations WHERE course_id = $1 AND status = 'approved'")).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"student_id"}).AddRow("s1").AddRow("s2"))

	enrolled, err := repo.IsEnrolled(context.Background(), "s1", "c1")
	require.NoError(t, err)
	assert.True(t, enrolled)

	ids, err := repo.ListEnrolledStudentIDs(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}
