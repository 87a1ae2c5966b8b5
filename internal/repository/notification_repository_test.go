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

func TestNotificationRepositoryCreateKeepsTimestamp(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectExec("INSERT INTO notifications").WillReturnResult(sqlmock.NewResult(1, 1))

	at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	n := &models.Notification{UserID: "s1", Type: models.NotificationGradePosted, Title: "Grade posted", CreatedAt: at}
	require.NoError(t, repo.Create(context.Background(), n))
	assert.NotEmpty(t, n.ID)
	assert.Equal(t, at, n.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryListClampsLimit(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	cols := []string{"id", "user_id", "type", "title", "message", "read", "created_at"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM notifications WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2")).
		WithArgs("s1", 50).
		WillReturnRows(sqlmock.NewRows(cols).AddRow("n1", "s1", "registration_approved", "Approved", "CS101 approved", false, time.Now()))

	items, err := repo.ListByUser(context.Background(), "s1", 500)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.NotificationRegistrationApproved, items[0].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryMarkRead(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	query := regexp.QuoteMeta("UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2")
	mock.ExpectExec(query).WithArgs("n1", "s1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(query).WithArgs("n1", "s2").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.MarkRead(context.Background(), "s1", "n1"))
	assert.ErrorIs(t, repo.MarkRead(context.Background(), "s2", "n1"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
