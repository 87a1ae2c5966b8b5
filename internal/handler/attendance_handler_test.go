package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

type attendanceServiceMock struct {
	lastCourse  string
	lastStudent string
	lastMark    models.MarkAttendanceRequest
	lastFilter  models.AttendanceFilter
	markErr     error
}

func (m *attendanceServiceMock) Mark(ctx context.Context, p models.Principal, courseID string, req models.MarkAttendanceRequest) (*models.Attendance, error) {
	m.lastCourse = courseID
	m.lastMark = req
	if m.markErr != nil {
		return nil, m.markErr
	}
	return &models.Attendance{ID: "a1", CourseID: courseID, StudentID: req.StudentID, Status: models.AttendanceStatus(req.Status)}, nil
}

func (m *attendanceServiceMock) BulkMark(ctx context.Context, p models.Principal, courseID string, req models.BulkMarkAttendanceRequest) ([]models.Attendance, error) {
	m.lastCourse = courseID
	return make([]models.Attendance, len(req.Items)), nil
}

func (m *attendanceServiceMock) ListByCourse(ctx context.Context, p models.Principal, courseID string, filter models.AttendanceFilter) ([]models.Attendance, error) {
	m.lastCourse = courseID
	m.lastFilter = filter
	return []models.Attendance{}, nil
}

func (m *attendanceServiceMock) StudentRecord(ctx context.Context, p models.Principal, studentID, courseID string) (*models.StudentAttendance, error) {
	m.lastStudent = studentID
	m.lastCourse = courseID
	return &models.StudentAttendance{StudentID: studentID, CourseID: courseID}, nil
}

var instructorClaims = &models.JWTClaims{UserID: "inst-1", Role: models.RoleInstructor}

func TestAttendanceHandlerMark(t *testing.T) {
	mockSvc := &attendanceServiceMock{}
	handler := NewAttendanceHandler(mockSvc)

	c, w := newTestContext(http.MethodPost, "/courses/c1/attendance", []byte(`{"student_id":"s1","date":"2024-09-02","status":"late"}`), instructorClaims)
	c.Params = gin.Params{{Key: "id", Value: "c1"}}

	handler.Mark(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "c1", mockSvc.lastCourse)
	assert.Equal(t, "late", mockSvc.lastMark.Status)
}

func TestAttendanceHandlerMarkForbidden(t *testing.T) {
	handler := NewAttendanceHandler(&attendanceServiceMock{markErr: appErrors.Clone(appErrors.ErrForbidden, "only the course instructor or an administrator may manage attendance")})

	c, w := newTestContext(http.MethodPost, "/courses/c1/attendance", []byte(`{"student_id":"s1","date":"2024-09-02","status":"late"}`), studentClaims)
	c.Params = gin.Params{{Key: "id", Value: "c1"}}

	handler.Mark(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAttendanceHandlerListParsesFilter(t *testing.T) {
	mockSvc := &attendanceServiceMock{}
	handler := NewAttendanceHandler(mockSvc)

	c, w := newTestContext(http.MethodGet, "/courses/c1/attendance?status=absent&from=2024-09-01", nil, instructorClaims)
	c.Params = gin.Params{{Key: "id", Value: "c1"}}

	handler.ListByCourse(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mockSvc.lastFilter.Status)
	assert.Equal(t, models.AttendanceAbsent, *mockSvc.lastFilter.Status)
	require.NotNil(t, mockSvc.lastFilter.DateFrom)
	assert.Equal(t, 1, mockSvc.lastFilter.DateFrom.Day())
	assert.Nil(t, mockSvc.lastFilter.DateTo)

	c, w = newTestContext(http.MethodGet, "/courses/c1/attendance?to=yesterday", nil, instructorClaims)
	c.Params = gin.Params{{Key: "id", Value: "c1"}}
	handler.ListByCourse(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAttendanceHandlerStudentRecord(t *testing.T) {
	mockSvc := &attendanceServiceMock{}
	handler := NewAttendanceHandler(mockSvc)

	c, w := newTestContext(http.MethodGet, "/students/s1/attendance/c1", nil, studentClaims)
	c.Params = gin.Params{{Key: "id", Value: "s1"}, {Key: "courseId", Value: "c1"}}

	handler.StudentRecord(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "s1", mockSvc.lastStudent)
	assert.Equal(t, "c1", mockSvc.lastCourse)
}
