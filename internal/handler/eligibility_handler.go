package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/pkg/response"
)

type eligibilityService interface {
	SuggestedCourses(ctx context.Context, principal models.Principal, studentID string) (*dto.SuggestedCourses, error)
	CheckPrerequisites(ctx context.Context, principal models.Principal, studentID, courseID string) (dto.PrerequisiteResult, error)
}

// EligibilityHandler serves course recommendations and prerequisite checks.
type EligibilityHandler struct {
	eligibility eligibilityService
}

// NewEligibilityHandler constructs EligibilityHandler.
func NewEligibilityHandler(eligibility eligibilityService) *EligibilityHandler {
	return &EligibilityHandler{eligibility: eligibility}
}

// SuggestedCourses godoc
// @Summary Suggested courses for next registration
// @Description Failed courses to retake, eligible core courses and electives that fit the remaining credit-hour budget.
// @Tags Eligibility
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope{data=dto.SuggestedCourses}
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/suggested-courses [get]
func (h *EligibilityHandler) SuggestedCourses(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	result, err := h.eligibility.SuggestedCourses(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// CheckPrerequisites godoc
// @Summary Check a student's prerequisites for a course
// @Tags Eligibility
// @Produce json
// @Param id path string true "Student ID"
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope{data=dto.PrerequisiteResult}
// @Router /students/{id}/prerequisites/{courseId} [get]
func (h *EligibilityHandler) CheckPrerequisites(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	result, err := h.eligibility.CheckPrerequisites(c.Request.Context(), principal, c.Param("id"), c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
