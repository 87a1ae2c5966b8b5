package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/repository"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

func TestScoreComponents(t *testing.T) {
	g, err := ScoreComponents(18, 35, 20, 17)
	require.NoError(t, err)
	assert.Equal(t, 90.0, g.TotalGrade)
	assert.Equal(t, models.GradeAMinus, g.LetterGrade)

	g, err = ScoreComponents(25, 55, 30, 21)
	require.NoError(t, err)
	assert.Equal(t, 100.0, g.TotalGrade, "components are clamped to their caps")
	assert.Equal(t, models.GradeAPlus, g.LetterGrade)

	g, err = ScoreComponents(10, 20, 10, 5)
	require.NoError(t, err)
	assert.Equal(t, models.GradeF, g.LetterGrade)

	_, err = ScoreComponents(-1, 20, 10, 5)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = ScoreComponents(math.NaN(), 20, 10, 5)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

// studentRecords serves FindByID from memory and the transactional
// writes from the real repository.
type studentRecords struct {
	*repository.UserRepository
	students *fakeUsers
}

func (s studentRecords) FindByID(ctx context.Context, id string) (*models.User, error) {
	return s.students.FindByID(ctx, id)
}

type gradeFixture struct {
	mock     sqlmock.Sqlmock
	notifier *recordingNotifier
	service  *GradeService
}

func newGradeFixture(t *testing.T) *gradeFixture {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	sqlxdb := sqlx.NewDb(db, "sqlmock")

	instructor := "inst-1"
	cs201 := mkCourse("c201", "CS201", 2, 3, models.CourseTypeCore)
	cs201.InstructorID = &instructor
	courses := newFakeCourses(cs201, mkCourse("c202", "CS202", 2, 4, models.CourseTypeCore))
	students := newFakeUsers(&models.User{ID: "s1", Role: models.RoleStudent, AcademicLevel: 2, Semester: 3})

	notifier := &recordingNotifier{}
	svc := NewGradeService(GradeServiceDeps{
		Tx:            sqlxdb,
		Grades:        repository.NewGradeRepository(sqlxdb),
		Registrations: repository.NewRegistrationRepository(sqlxdb),
		Users:         studentRecords{UserRepository: repository.NewUserRepository(sqlxdb), students: students},
		Courses:       courses,
		Notifier:      notifier,
		Metrics:       NewMetricsService(),
	})
	return &gradeFixture{mock: mock, notifier: notifier, service: svc}
}

func gradeReq() models.RecordGradeRequest {
	return models.RecordGradeRequest{
		StudentID:    "s1",
		CourseID:     "c201",
		Semester:     3,
		AcademicYear: "2024-2025",
		Midterm:      16,
		FinalExam:    32,
		Assignments:  18,
		Quizzes:      17,
	}
}

var (
	completedColumns = []string{"id", "student_id", "course_id", "semester", "academic_year", "status", "grade", "is_passed", "approved_by", "created_at", "updated_at", "course_code", "course_name", "credit_hours", "academic_level", "course_type"}
	historyColumns   = []string{"course_id", "course_code", "course_name", "credit_hours", "letter_grade", "total_grade", "semester", "academic_year", "graded_at"}
)

func expectGradeApplied(mock sqlmock.Sqlmock, ungraded int) {
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO grades`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE student_course_registrations SET grade`).
		WithArgs("s1", "c201", 3, "2024-2025", models.GradeB, true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM student_course_registrations`).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(ungraded))
}

func expectArchiveReads(mock sqlmock.Sqlmock) {
	now := time.Now()
	mock.ExpectQuery(`FROM student_course_registrations r JOIN courses c`).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows(completedColumns).
			AddRow("r1", "s1", "c201", 3, "2024-2025", "completed", "B", true, nil, now, now, "CS201", "Data Structures", 3, 2, "core").
			AddRow("r2", "s1", "c202", 3, "2024-2025", "completed", "F", false, nil, now, now, "CS202", "Algorithms", 4, 2, "core"))
	mock.ExpectQuery(`FROM grades g JOIN courses c`).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows(historyColumns).
			AddRow("c201", "CS201", "Data Structures", 3, "B", 83.0, 3, "2024-2025", now).
			AddRow("c202", "CS202", "Algorithms", 4, "F", 40.0, 3, "2024-2025", now).
			AddRow("c101", "CS101", "Programming", 3, "A", 95.0, 1, "2023-2024", now.Add(-time.Hour)))
}

func TestRecordGradeArchivesCompletedTerm(t *testing.T) {
	f := newGradeFixture(t)

	expectGradeApplied(f.mock, 0)
	expectArchiveReads(f.mock)
	// Only c201 earned credit; the failed c202 stays retakeable and is not inserted.
	f.mock.ExpectExec(`INSERT INTO student_passed_courses`).
		WithArgs("s1", "c201", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// (3*3.0 + 4*0 + 3*4.0) / 10 = 2.1
	f.mock.ExpectExec(`UPDATE users SET gpa`).
		WithArgs("s1", 2.1, 3, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectExec(`DELETE FROM student_course_registrations`).
		WithArgs("s1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	f.mock.ExpectCommit()

	res, err := f.service.Record(context.Background(), instructorOne, gradeReq())
	require.NoError(t, err)
	assert.True(t, res.Archived)
	assert.Equal(t, 2.1, res.GPA)
	assert.Equal(t, 3, res.EarnedCreditHours)
	assert.Equal(t, models.GradeB, res.Grade.LetterGrade)
	assert.Equal(t, []models.NotificationType{models.NotificationGradePosted}, f.notifier.types())
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRecordGradeWithOutstandingRegistrations(t *testing.T) {
	f := newGradeFixture(t)

	expectGradeApplied(f.mock, 1)
	f.mock.ExpectCommit()

	res, err := f.service.Record(context.Background(), adminPrincipal, gradeReq())
	require.NoError(t, err)
	assert.False(t, res.Archived)
	assert.Equal(t, 1, res.PendingRegistrations)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRecordGradeRollsBackOnArchiveFailure(t *testing.T) {
	f := newGradeFixture(t)

	expectGradeApplied(f.mock, 0)
	expectArchiveReads(f.mock)
	f.mock.ExpectExec(`INSERT INTO student_passed_courses`).
		WillReturnError(errors.New("connection reset"))
	f.mock.ExpectRollback()

	_, err := f.service.Record(context.Background(), instructorOne, gradeReq())
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrInternal)
	assert.Empty(t, f.notifier.types(), "nothing is announced when the commit fails")
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRecordGradeRequiresApprovedRegistration(t *testing.T) {
	f := newGradeFixture(t)

	f.mock.ExpectBegin()
	f.mock.ExpectExec(`INSERT INTO grades`).WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectExec(`UPDATE student_course_registrations SET grade`).WillReturnResult(sqlmock.NewResult(0, 0))
	f.mock.ExpectRollback()

	_, err := f.service.Record(context.Background(), adminPrincipal, gradeReq())
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRecordGradeAuthorization(t *testing.T) {
	f := newGradeFixture(t)

	_, err := f.service.Record(context.Background(), models.Principal{UserID: "inst-2", Role: models.RoleInstructor}, gradeReq())
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = f.service.Record(context.Background(), studentPrincipal("s1"), gradeReq())
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	req := gradeReq()
	req.StudentID = "ghost"
	_, err = f.service.Record(context.Background(), adminPrincipal, req)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

type stubGradeList struct {
	gradeStore
	filter models.GradeFilter
}

func (s *stubGradeList) List(ctx context.Context, filter models.GradeFilter) ([]models.Grade, error) {
	s.filter = filter
	return []models.Grade{{StudentID: filter.StudentID}}, nil
}

func TestListGradesScopesStudents(t *testing.T) {
	grades := &stubGradeList{}
	svc := NewGradeService(GradeServiceDeps{Grades: grades})

	_, err := svc.List(context.Background(), studentPrincipal("s1"), models.GradeFilter{})
	require.NoError(t, err)
	assert.Equal(t, "s1", grades.filter.StudentID)

	_, err = svc.List(context.Background(), studentPrincipal("s1"), models.GradeFilter{StudentID: "s2"})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.List(context.Background(), instructorOne, models.GradeFilter{CourseID: "c201"})
	require.NoError(t, err)
	assert.Equal(t, "c201", grades.filter.CourseID)
}
