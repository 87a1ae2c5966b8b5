package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-api/internal/models"
)

func TestHoldRepositoryListByStudent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewHoldRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM student_holds WHERE student_id = $1 ORDER BY created_at ASC")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "reason", "restrict_registration", "created_at"}).
			AddRow("h1", "s1", "Unpaid tuition", true, time.Now()))

	holds, err := repo.ListByStudent(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, holds, 1)
	assert.True(t, holds[0].RestrictRegistration)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHoldRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewHoldRepository(db)

	mock.ExpectExec("INSERT INTO student_holds").WillReturnResult(sqlmock.NewResult(1, 1))

	hold := &models.Hold{StudentID: "s1", Reason: "Library fine"}
	require.NoError(t, repo.Create(context.Background(), hold))
	assert.NotEmpty(t, hold.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHoldRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewHoldRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM student_holds WHERE id = $1 AND student_id = $2")).
		WithArgs("h9", "s1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "s1", "h9")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
