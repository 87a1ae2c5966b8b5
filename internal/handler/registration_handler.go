package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
	"github.com/noah-isme/lms-api/pkg/response"
)

type registrationService interface {
	Register(ctx context.Context, principal models.Principal, req models.RegisterCourseRequest) (*models.Registration, error)
	Approve(ctx context.Context, principal models.Principal, id string) (*models.Registration, error)
	Reject(ctx context.Context, principal models.Principal, id string) (*models.Registration, error)
	Drop(ctx context.Context, principal models.Principal, id string) (*models.Registration, error)
	ListForStudent(ctx context.Context, principal models.Principal, studentID string, filter models.RegistrationFilter) ([]models.RegistrationDetail, error)
}

// RegistrationHandler exposes the course registration workflow.
type RegistrationHandler struct {
	registrations registrationService
}

// NewRegistrationHandler constructs RegistrationHandler.
func NewRegistrationHandler(registrations registrationService) *RegistrationHandler {
	return &RegistrationHandler{registrations: registrations}
}

// Register godoc
// @Summary Register for a course
// @Description Creates a pending registration after the enrolment, level, major, credit-hour and prerequisite checks pass.
// @Tags Registrations
// @Accept json
// @Produce json
// @Param payload body models.RegisterCourseRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /registrations [post]
func (h *RegistrationHandler) Register(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req models.RegisterCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}
	if req.StudentID == "" && principal.Role == models.RoleStudent {
		req.StudentID = principal.UserID
	}
	registration, err := h.registrations.Register(c.Request.Context(), principal, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, registration)
}

// Approve godoc
// @Summary Approve a pending registration
// @Tags Registrations
// @Produce json
// @Param id path string true "Registration ID"
// @Success 200 {object} response.Envelope
// @Router /registrations/{id}/approve [post]
func (h *RegistrationHandler) Approve(c *gin.Context) {
	h.transition(c, h.registrations.Approve)
}

// Reject godoc
// @Summary Reject a pending registration
// @Tags Registrations
// @Produce json
// @Param id path string true "Registration ID"
// @Success 200 {object} response.Envelope
// @Router /registrations/{id}/reject [post]
func (h *RegistrationHandler) Reject(c *gin.Context) {
	h.transition(c, h.registrations.Reject)
}

// Drop godoc
// @Summary Drop a registration
// @Tags Registrations
// @Produce json
// @Param id path string true "Registration ID"
// @Success 200 {object} response.Envelope
// @Router /registrations/{id}/drop [post]
func (h *RegistrationHandler) Drop(c *gin.Context) {
	h.transition(c, h.registrations.Drop)
}

func (h *RegistrationHandler) transition(c *gin.Context, fn func(context.Context, models.Principal, string) (*models.Registration, error)) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	registration, err := fn(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, registration, nil)
}

// ListForStudent godoc
// @Summary List a student's registrations
// @Tags Registrations
// @Produce json
// @Param id path string true "Student ID"
// @Param status query string false "Registration status"
// @Param semester query int false "Semester"
// @Param academicYear query string false "Academic year, e.g. 2024-2025"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/registrations [get]
func (h *RegistrationHandler) ListForStudent(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	filter := models.RegistrationFilter{
		Semester:     queryInt(c, "semester", 0),
		AcademicYear: c.Query("academicYear"),
	}
	if raw := c.Query("status"); raw != "" {
		status := models.RegistrationStatus(raw)
		if !status.Valid() {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown registration status"))
			return
		}
		filter.Status = &status
	}
	items, err := h.registrations.ListForStudent(c.Request.Context(), principal, c.Param("id"), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}
