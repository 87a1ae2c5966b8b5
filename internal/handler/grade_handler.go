package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
	"github.com/noah-isme/lms-api/pkg/response"
)

type gradeService interface {
	Record(ctx context.Context, principal models.Principal, req models.RecordGradeRequest) (*dto.GradeCommit, error)
	List(ctx context.Context, principal models.Principal, filter models.GradeFilter) ([]models.Grade, error)
}

// GradeHandler exposes grade entry.
type GradeHandler struct {
	grades gradeService
}

// NewGradeHandler constructs GradeHandler.
func NewGradeHandler(grades gradeService) *GradeHandler {
	return &GradeHandler{grades: grades}
}

// Record godoc
// @Summary Record a grade
// @Description Scores the components, derives the letter grade and, when it is the student's last outstanding grade, rolls the term into the permanent record.
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body models.RecordGradeRequest true "Grade payload"
// @Success 201 {object} response.Envelope{data=dto.GradeCommit}
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /grades [post]
func (h *GradeHandler) Record(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req models.RecordGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid grade payload"))
		return
	}
	commit, err := h.grades.Record(c.Request.Context(), principal, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, commit)
}

// List godoc
// @Summary List grades
// @Tags Grades
// @Produce json
// @Param studentId query string false "Student ID"
// @Param courseId query string false "Course ID"
// @Success 200 {object} response.Envelope
// @Router /grades [get]
func (h *GradeHandler) List(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	filter := models.GradeFilter{StudentID: c.Query("studentId"), CourseID: c.Query("courseId")}
	grades, err := h.grades.List(c.Request.Context(), principal, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grades, nil)
}
