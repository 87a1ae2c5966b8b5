package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-api/internal/middleware"
	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

type registrationServiceMock struct {
	registerResp  *models.Registration
	registerErr   error
	lastRequest   models.RegisterCourseRequest
	lastPrincipal models.Principal
	lastID        string
	lastFilter    models.RegistrationFilter
	approved      bool
}

func (m *registrationServiceMock) Register(ctx context.Context, p models.Principal, req models.RegisterCourseRequest) (*models.Registration, error) {
	m.lastPrincipal = p
	m.lastRequest = req
	return m.registerResp, m.registerErr
}

func (m *registrationServiceMock) Approve(ctx context.Context, p models.Principal, id string) (*models.Registration, error) {
	m.approved = true
	m.lastID = id
	return &models.Registration{ID: id, Status: models.RegistrationApproved}, nil
}

func (m *registrationServiceMock) Reject(ctx context.Context, p models.Principal, id string) (*models.Registration, error) {
	return nil, appErrors.ErrForbidden
}

func (m *registrationServiceMock) Drop(ctx context.Context, p models.Principal, id string) (*models.Registration, error) {
	return &models.Registration{ID: id, Status: models.RegistrationDropped}, nil
}

func (m *registrationServiceMock) ListForStudent(ctx context.Context, p models.Principal, studentID string, filter models.RegistrationFilter) ([]models.RegistrationDetail, error) {
	m.lastID = studentID
	m.lastFilter = filter
	return []models.RegistrationDetail{}, nil
}

func newTestContext(method, target string, body []byte, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) appErrors.Error {
	t.Helper()
	var envelope struct {
		Error appErrors.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope.Error
}

var studentClaims = &models.JWTClaims{UserID: "s1", Role: models.RoleStudent}

func TestRegistrationHandlerRegisterDefaultsStudent(t *testing.T) {
	mockSvc := &registrationServiceMock{registerResp: &models.Registration{ID: "reg-1", Status: models.RegistrationPending}}
	handler := NewRegistrationHandler(mockSvc)

	body := []byte(`{"course_id":"c1","semester":1,"academic_year":"2024-2025"}`)
	c, w := newTestContext(http.MethodPost, "/registrations", body, studentClaims)

	handler.Register(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "s1", mockSvc.lastRequest.StudentID)
	assert.Equal(t, models.Principal{UserID: "s1", Role: models.RoleStudent}, mockSvc.lastPrincipal)
}

func TestRegistrationHandlerRegisterDenied(t *testing.T) {
	denied := appErrors.Clone(appErrors.ErrEligibilityDenied, "missing required prerequisites: CS150")
	handler := NewRegistrationHandler(&registrationServiceMock{registerErr: denied})

	body := []byte(`{"student_id":"s1","course_id":"c1","semester":1,"academic_year":"2024-2025"}`)
	c, w := newTestContext(http.MethodPost, "/registrations", body, studentClaims)

	handler.Register(c)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "missing required prerequisites: CS150", decodeError(t, w).Message)
}

func TestRegistrationHandlerRequiresAuth(t *testing.T) {
	mockSvc := &registrationServiceMock{}
	handler := NewRegistrationHandler(mockSvc)

	c, w := newTestContext(http.MethodPost, "/registrations", []byte(`{}`), nil)

	handler.Register(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, mockSvc.lastRequest.CourseID)
}

func TestRegistrationHandlerInvalidBody(t *testing.T) {
	handler := NewRegistrationHandler(&registrationServiceMock{})
	c, w := newTestContext(http.MethodPost, "/registrations", []byte(`{"course_id":`), studentClaims)

	handler.Register(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegistrationHandlerTransitions(t *testing.T) {
	mockSvc := &registrationServiceMock{}
	handler := NewRegistrationHandler(mockSvc)
	admin := &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin}

	c, w := newTestContext(http.MethodPost, "/registrations/reg-9/approve", nil, admin)
	c.Params = gin.Params{{Key: "id", Value: "reg-9"}}
	handler.Approve(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.approved)
	assert.Equal(t, "reg-9", mockSvc.lastID)

	c, w = newTestContext(http.MethodPost, "/registrations/reg-9/reject", nil, studentClaims)
	c.Params = gin.Params{{Key: "id", Value: "reg-9"}}
	handler.Reject(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestRegistrationHandlerListFilters(t *testing.T) {
	mockSvc := &registrationServiceMock{}
	handler := NewRegistrationHandler(mockSvc)

	c, w := newTestContext(http.MethodGet, "/students/s1/registrations?status=pending&semester=2&academicYear=2024-2025", nil, studentClaims)
	c.Params = gin.Params{{Key: "id", Value: "s1"}}
	handler.ListForStudent(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mockSvc.lastFilter.Status)
	assert.Equal(t, models.RegistrationPending, *mockSvc.lastFilter.Status)
	assert.Equal(t, 2, mockSvc.lastFilter.Semester)
	assert.Equal(t, "2024-2025", mockSvc.lastFilter.AcademicYear)

	c, w = newTestContext(http.MethodGet, "/students/s1/registrations?status=lost", nil, studentClaims)
	c.Params = gin.Params{{Key: "id", Value: "s1"}}
	handler.ListForStudent(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
