package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
	"github.com/noah-isme/lms-api/pkg/response"
)

type academicRuleService interface {
	ListGPARules(ctx context.Context) ([]models.GPARule, error)
	CreateGPARule(ctx context.Context, principal models.Principal, req models.GPARuleRequest) (*models.GPARule, error)
	UpdateGPARule(ctx context.Context, principal models.Principal, id string, req models.GPARuleRequest) (*models.GPARule, error)
	DeleteGPARule(ctx context.Context, principal models.Principal, id string) error
	ListLevelProgressions(ctx context.Context) ([]models.LevelProgression, error)
	CreateLevelProgression(ctx context.Context, principal models.Principal, req models.LevelProgressionRequest) (*models.LevelProgression, error)
	DeleteLevelProgression(ctx context.Context, principal models.Principal, id string) error
}

// AcademicRuleHandler manages GPA credit bands and level progression rules.
type AcademicRuleHandler struct {
	rules academicRuleService
}

// NewAcademicRuleHandler constructs AcademicRuleHandler.
func NewAcademicRuleHandler(rules academicRuleService) *AcademicRuleHandler {
	return &AcademicRuleHandler{rules: rules}
}

// ListGPARules godoc
// @Summary List GPA credit-hour rules
// @Tags Academic Rules
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /gpa-rules [get]
func (h *AcademicRuleHandler) ListGPARules(c *gin.Context) {
	rules, err := h.rules.ListGPARules(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rules, nil)
}

// CreateGPARule godoc
// @Summary Create GPA credit-hour rule
// @Tags Academic Rules
// @Accept json
// @Produce json
// @Param payload body models.GPARuleRequest true "Rule payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /gpa-rules [post]
func (h *AcademicRuleHandler) CreateGPARule(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req models.GPARuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	rule, err := h.rules.CreateGPARule(c.Request.Context(), principal, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rule)
}

// UpdateGPARule godoc
// @Summary Update GPA credit-hour rule
// @Tags Academic Rules
// @Accept json
// @Produce json
// @Param id path string true "Rule ID"
// @Param payload body models.GPARuleRequest true "Rule payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /gpa-rules/{id} [put]
func (h *AcademicRuleHandler) UpdateGPARule(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req models.GPARuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	rule, err := h.rules.UpdateGPARule(c.Request.Context(), principal, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rule, nil)
}

// DeleteGPARule godoc
// @Summary Delete GPA credit-hour rule
// @Tags Academic Rules
// @Param id path string true "Rule ID"
// @Success 204
// @Router /gpa-rules/{id} [delete]
func (h *AcademicRuleHandler) DeleteGPARule(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	if err := h.rules.DeleteGPARule(c.Request.Context(), principal, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListLevelProgressions godoc
// @Summary List level progression rules
// @Tags Academic Rules
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /level-progressions [get]
func (h *AcademicRuleHandler) ListLevelProgressions(c *gin.Context) {
	rules, err := h.rules.ListLevelProgressions(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rules, nil)
}

// CreateLevelProgression godoc
// @Summary Create level progression rule
// @Tags Academic Rules
// @Accept json
// @Produce json
// @Param payload body models.LevelProgressionRequest true "Rule payload"
// @Success 201 {object} response.Envelope
// @Router /level-progressions [post]
func (h *AcademicRuleHandler) CreateLevelProgression(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req models.LevelProgressionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	rule, err := h.rules.CreateLevelProgression(c.Request.Context(), principal, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rule)
}

// DeleteLevelProgression godoc
// @Summary Delete level progression rule
// @Tags Academic Rules
// @Param id path string true "Rule ID"
// @Success 204
// @Router /level-progressions/{id} [delete]
func (h *AcademicRuleHandler) DeleteLevelProgression(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	if err := h.rules.DeleteLevelProgression(c.Request.Context(), principal, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
