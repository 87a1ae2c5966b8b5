package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
	"github.com/noah-isme/lms-api/pkg/export"
)

type stubTranscriptHistory struct {
	rows []models.GradedCourse
}

func (s stubTranscriptHistory) ListHistory(ctx context.Context, studentID string) ([]models.GradedCourse, error) {
	return s.rows, nil
}

type failingRenderer struct{}

func (failingRenderer) Render(export.Document) ([]byte, error) {
	return nil, errors.New("font missing")
}

func attempt(courseID, code string, credits int, letter models.LetterGrade, semester int, year string) models.GradedCourse {
	rec := graded(courseID, code, credits, letter)
	rec.Semester = semester
	rec.AcademicYear = year
	return rec
}

func newTranscriptFixture(pdf documentRenderer) *TranscriptService {
	users := newFakeUsers(&models.User{ID: "s1", FullName: "Ada Lovelace", Role: models.RoleStudent, Major: "Computer Science", AcademicLevel: 2, CompletedCreditHours: 6})
	// newest first, as the repository returns it
	history := stubTranscriptHistory{rows: []models.GradedCourse{
		attempt("c102", "CS102", 3, models.GradeB, 2, "2024-2025"),
		attempt("c101", "CS101", 3, models.GradeA, 1, "2024-2025"),
		attempt("c102", "CS102", 3, models.GradeF, 1, "2023-2024"),
	}}
	svc := NewTranscriptService(users, history, nil, pdf, nil)
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC) }
	return svc
}

func TestTranscriptBuild(t *testing.T) {
	svc := newTranscriptFixture(nil)

	transcript, err := svc.Build(context.Background(), studentPrincipal("s1"), "s1")
	require.NoError(t, err)

	require.Len(t, transcript.Courses, 3)
	assert.Equal(t, models.GradeF, transcript.Courses[0].LetterGrade)
	assert.Equal(t, "CS101", transcript.Courses[1].CourseCode)
	// the failed first attempt of CS102 is superseded by the B
	assert.Equal(t, 3.5, transcript.GPA)
	assert.Equal(t, "Ada Lovelace", transcript.Student.FullName)

	_, err = svc.Build(context.Background(), studentPrincipal("s2"), "s1")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestTranscriptRenderCSV(t *testing.T) {
	svc := newTranscriptFixture(nil)

	file, err := svc.Render(context.Background(), adminPrincipal, "s1", dto.TranscriptCSV)
	require.NoError(t, err)
	assert.Equal(t, "transcript-s1-20250601.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)

	body := string(file.Body)
	assert.Contains(t, body, "GPA,3.50")
	assert.Contains(t, body, "Term,Code,Course,Credits,Total,Grade")
	assert.Less(t, strings.Index(body, "2023-2024 S1"), strings.Index(body, "2024-2025 S2"))
}

func TestTranscriptRenderErrors(t *testing.T) {
	svc := newTranscriptFixture(failingRenderer{})

	_, err := svc.Render(context.Background(), adminPrincipal, "s1", "xlsx")
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Render(context.Background(), adminPrincipal, "s1", dto.TranscriptPDF)
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}
