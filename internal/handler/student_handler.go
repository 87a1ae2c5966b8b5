package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
	"github.com/noah-isme/lms-api/pkg/response"
)

type studentService interface {
	Profile(ctx context.Context, principal models.Principal, studentID string) (*models.StudentProfile, error)
	AddHold(ctx context.Context, principal models.Principal, studentID string, req models.CreateHoldRequest) (*models.Hold, error)
	RemoveHold(ctx context.Context, principal models.Principal, studentID, holdID string) error
	Evaluate(ctx context.Context, principal models.Principal, studentID string) (dto.ProgressionResult, error)
	Progress(ctx context.Context, principal models.Principal, studentID string) (dto.ProgressionResult, error)
	PromoteTo(ctx context.Context, principal models.Principal, studentID string, req dto.PromoteRequest) (*dto.PromotionResult, error)
	OverrideLevel(ctx context.Context, principal models.Principal, studentID string, req dto.OverrideLevelRequest) (*models.User, error)
}

// StudentHandler exposes student records, holds and level progression.
type StudentHandler struct {
	students studentService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(students studentService) *StudentHandler {
	return &StudentHandler{students: students}
}

// Profile godoc
// @Summary Get student academic profile
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope{data=models.StudentProfile}
// @Router /students/{id} [get]
func (h *StudentHandler) Profile(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	profile, err := h.students.Profile(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// AddHold godoc
// @Summary Place a hold on a student
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body models.CreateHoldRequest true "Hold payload"
// @Success 201 {object} response.Envelope
// @Router /students/{id}/holds [post]
func (h *StudentHandler) AddHold(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req models.CreateHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	hold, err := h.students.AddHold(c.Request.Context(), principal, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, hold)
}

// RemoveHold godoc
// @Summary Lift a hold
// @Tags Students
// @Param id path string true "Student ID"
// @Param holdId path string true "Hold ID"
// @Success 204
// @Router /students/{id}/holds/{holdId} [delete]
func (h *StudentHandler) RemoveHold(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	if err := h.students.RemoveHold(c.Request.Context(), principal, c.Param("id"), c.Param("holdId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Evaluate godoc
// @Summary Evaluate level progression
// @Description Reports whether the student meets the credit-hour requirement for the next level without changing it.
// @Tags Progression
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope{data=dto.ProgressionResult}
// @Router /students/{id}/progression [get]
func (h *StudentHandler) Evaluate(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	result, err := h.students.Evaluate(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Progress godoc
// @Summary Advance a student
// @Description Without a body the student advances one level. With targetLevel the student is promoted one level at a time until the target or the first unmet requirement.
// @Tags Progression
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body dto.PromoteRequest false "Promotion target"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/progression [post]
func (h *StudentHandler) Progress(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req dto.PromoteRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	if req.TargetLevel == 0 {
		result, err := h.students.Progress(c.Request.Context(), principal, c.Param("id"))
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, result, nil)
		return
	}

	result, err := h.students.PromoteTo(c.Request.Context(), principal, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// OverrideLevel godoc
// @Summary Set a student's academic level
// @Tags Progression
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body dto.OverrideLevelRequest true "Level"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/level [post]
func (h *StudentHandler) OverrideLevel(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req dto.OverrideLevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	student, err := h.students.OverrideLevel(c.Request.Context(), principal, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}
