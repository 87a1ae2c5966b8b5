package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
	"github.com/noah-isme/lms-api/pkg/response"
)

type courseService interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Course, error)
	Create(ctx context.Context, principal models.Principal, req models.CreateCourseRequest) (*models.Course, error)
	Update(ctx context.Context, principal models.Principal, id string, req models.UpdateCourseRequest) (*models.Course, error)
	Deactivate(ctx context.Context, principal models.Principal, id string) error
	ListPrerequisites(ctx context.Context, courseID string) ([]models.CoursePrerequisite, error)
	AddPrerequisite(ctx context.Context, principal models.Principal, courseID string, req models.AddPrerequisiteRequest) (*models.CoursePrerequisite, error)
	RemovePrerequisite(ctx context.Context, principal models.Principal, courseID, prerequisiteID string) error
	ListOfferings(ctx context.Context, courseID string) ([]models.SemesterCourse, error)
	AddOffering(ctx context.Context, principal models.Principal, courseID string, req models.CreateOfferingRequest) (*models.SemesterCourse, error)
}

// CourseHandler exposes the course catalog.
type CourseHandler struct {
	courses courseService
}

// NewCourseHandler constructs CourseHandler.
func NewCourseHandler(courses courseService) *CourseHandler {
	return &CourseHandler{courses: courses}
}

// List godoc
// @Summary List courses
// @Tags Courses
// @Produce json
// @Param search query string false "Search by code or name"
// @Param major query string false "Only courses open to this major"
// @Param department query string false "Department"
// @Param type query string false "core or elective"
// @Param level query int false "Academic level"
// @Param active query bool false "Filter by active state"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	filter := models.CourseFilter{
		Search:     strings.TrimSpace(c.Query("search")),
		Major:      c.Query("major"),
		Department: c.Query("department"),
		Active:     queryBool(c, "active"),
		Page:       queryInt(c, "page", 1),
		PageSize:   queryInt(c, "limit", 20),
	}
	if kind := models.CourseType(c.Query("type")); kind.Valid() {
		filter.CourseType = &kind
	}
	if level := queryInt(c, "level", 0); level > 0 {
		filter.MinLevel, filter.MaxLevel = level, level
	}

	courses, pagination, err := h.courses.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, pagination)
}

// Get godoc
// @Summary Get course detail
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	course, err := h.courses.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Create godoc
// @Summary Create course
// @Tags Courses
// @Accept json
// @Produce json
// @Param payload body models.CreateCourseRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req models.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	course, err := h.courses.Create(c.Request.Context(), principal, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// Update godoc
// @Summary Update course
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body models.UpdateCourseRequest true "Course payload"
// @Success 200 {object} response.Envelope
// @Router /courses/{id} [put]
func (h *CourseHandler) Update(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req models.UpdateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	course, err := h.courses.Update(c.Request.Context(), principal, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Deactivate godoc
// @Summary Deactivate course
// @Tags Courses
// @Param id path string true "Course ID"
// @Success 204
// @Router /courses/{id} [delete]
func (h *CourseHandler) Deactivate(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	if err := h.courses.Deactivate(c.Request.Context(), principal, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListPrerequisites godoc
// @Summary List course prerequisites
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/prerequisites [get]
func (h *CourseHandler) ListPrerequisites(c *gin.Context) {
	prereqs, err := h.courses.ListPrerequisites(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, prereqs, nil)
}

// AddPrerequisite godoc
// @Summary Add course prerequisite
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body models.AddPrerequisiteRequest true "Prerequisite payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /courses/{id}/prerequisites [post]
func (h *CourseHandler) AddPrerequisite(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req models.AddPrerequisiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	prereq, err := h.courses.AddPrerequisite(c.Request.Context(), principal, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, prereq)
}

// RemovePrerequisite godoc
// @Summary Remove course prerequisite
// @Tags Courses
// @Param id path string true "Course ID"
// @Param prerequisiteId path string true "Prerequisite course ID"
// @Success 204
// @Router /courses/{id}/prerequisites/{prerequisiteId} [delete]
func (h *CourseHandler) RemovePrerequisite(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	if err := h.courses.RemovePrerequisite(c.Request.Context(), principal, c.Param("id"), c.Param("prerequisiteId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListOfferings godoc
// @Summary List semester offerings of a course
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/offerings [get]
func (h *CourseHandler) ListOfferings(c *gin.Context) {
	offerings, err := h.courses.ListOfferings(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, offerings, nil)
}

// AddOffering godoc
// @Summary Offer a course in a semester
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body models.CreateOfferingRequest true "Offering payload"
// @Success 201 {object} response.Envelope
// @Router /courses/{id}/offerings [post]
func (h *CourseHandler) AddOffering(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req models.CreateOfferingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	offering, err := h.courses.AddOffering(c.Request.Context(), principal, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, offering)
}
