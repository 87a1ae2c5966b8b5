package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

type courseServiceMock struct {
	courseService
	lastFilter models.CourseFilter
	createErr  error
}

func (m *courseServiceMock) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	m.lastFilter = filter
	return []models.Course{{ID: "c1", Code: "CS101"}}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: 1}, nil
}

func (m *courseServiceMock) Create(ctx context.Context, p models.Principal, req models.CreateCourseRequest) (*models.Course, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &models.Course{ID: "c9", Code: req.Code}, nil
}

func TestCourseHandlerListParsesFilter(t *testing.T) {
	mockSvc := &courseServiceMock{}
	handler := NewCourseHandler(mockSvc)

	c, w := newTestContext(http.MethodGet, "/courses?search=%20data%20&major=Computer%20Science&type=elective&level=3&active=true&page=2&limit=5", nil, studentClaims)
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	f := mockSvc.lastFilter
	assert.Equal(t, "data", f.Search)
	assert.Equal(t, "Computer Science", f.Major)
	require.NotNil(t, f.CourseType)
	assert.Equal(t, models.CourseTypeElective, *f.CourseType)
	assert.Equal(t, 3, f.MinLevel)
	assert.Equal(t, 3, f.MaxLevel)
	require.NotNil(t, f.Active)
	assert.True(t, *f.Active)
	assert.Equal(t, 2, f.Page)
	assert.Equal(t, 5, f.PageSize)
	assert.Contains(t, w.Body.String(), `"total_count":1`)
}

func TestCourseHandlerCreateConflict(t *testing.T) {
	handler := NewCourseHandler(&courseServiceMock{createErr: appErrors.Clone(appErrors.ErrConflict, "course code or name already exists")})

	body := []byte(`{"code":"CS101","name":"Intro","credit_hours":3,"academic_level":1,"course_type":"core","majors":["General"],"department":"Computing"}`)
	c, w := newTestContext(http.MethodPost, "/courses", body, adminClaims)
	handler.Create(c)

	require.Equal(t, http.StatusConflict, w.Code)
}
