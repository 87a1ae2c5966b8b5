package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
	"github.com/noah-isme/lms-api/pkg/response"
)

type quizService interface {
	Create(ctx context.Context, principal models.Principal, courseID string, req models.CreateQuizRequest) (*models.Quiz, error)
	Get(ctx context.Context, principal models.Principal, id string) (*models.Quiz, error)
	ListByCourse(ctx context.Context, principal models.Principal, courseID string) ([]models.Quiz, error)
	Update(ctx context.Context, principal models.Principal, id string, req models.UpdateQuizRequest) (*models.Quiz, error)
	Delete(ctx context.Context, principal models.Principal, id string) error
	Submit(ctx context.Context, principal models.Principal, id string, req models.SubmitQuizRequest) (*models.QuizSubmission, error)
	ListSubmissions(ctx context.Context, principal models.Principal, id string) ([]models.QuizSubmission, error)
	StudentSubmission(ctx context.Context, principal models.Principal, id, studentID string) (*models.QuizSubmission, error)
}

// QuizHandler exposes course quizzes and submissions.
type QuizHandler struct {
	quizzes quizService
}

// NewQuizHandler constructs QuizHandler.
func NewQuizHandler(quizzes quizService) *QuizHandler {
	return &QuizHandler{quizzes: quizzes}
}

// Create godoc
// @Summary Create a quiz
// @Description Enrolled students receive a quiz_created notification.
// @Tags Quizzes
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body models.CreateQuizRequest true "Quiz payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /courses/{id}/quizzes [post]
func (h *QuizHandler) Create(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req models.CreateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid quiz payload"))
		return
	}
	quiz, err := h.quizzes.Create(c.Request.Context(), principal, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, quiz)
}

// ListByCourse godoc
// @Summary List a course's quizzes
// @Tags Quizzes
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/quizzes [get]
func (h *QuizHandler) ListByCourse(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	quizzes, err := h.quizzes.ListByCourse(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, quizzes, nil)
}

// Get godoc
// @Summary Get a quiz
// @Tags Quizzes
// @Produce json
// @Param id path string true "Quiz ID"
// @Success 200 {object} response.Envelope
// @Router /quizzes/{id} [get]
func (h *QuizHandler) Get(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	quiz, err := h.quizzes.Get(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, quiz, nil)
}

// Update godoc
// @Summary Update a quiz
// @Tags Quizzes
// @Accept json
// @Produce json
// @Param id path string true "Quiz ID"
// @Param payload body models.UpdateQuizRequest true "Quiz payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /quizzes/{id} [put]
func (h *QuizHandler) Update(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req models.UpdateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid quiz payload"))
		return
	}
	quiz, err := h.quizzes.Update(c.Request.Context(), principal, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, quiz, nil)
}

// Delete godoc
// @Summary Delete a quiz
// @Tags Quizzes
// @Param id path string true "Quiz ID"
// @Success 204
// @Router /quizzes/{id} [delete]
func (h *QuizHandler) Delete(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	if err := h.quizzes.Delete(c.Request.Context(), principal, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Submit godoc
// @Summary Submit answers to a quiz
// @Tags Quizzes
// @Accept json
// @Produce json
// @Param id path string true "Quiz ID"
// @Param payload body models.SubmitQuizRequest true "Answers"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /quizzes/{id}/submissions [post]
func (h *QuizHandler) Submit(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req models.SubmitQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid submission payload"))
		return
	}
	sub, err := h.quizzes.Submit(c.Request.Context(), principal, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, sub)
}

// ListSubmissions godoc
// @Summary List a quiz's submissions
// @Tags Quizzes
// @Produce json
// @Param id path string true "Quiz ID"
// @Success 200 {object} response.Envelope
// @Router /quizzes/{id}/submissions [get]
func (h *QuizHandler) ListSubmissions(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	subs, err := h.quizzes.ListSubmissions(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subs, nil)
}

// StudentSubmission godoc
// @Summary A student's submission to a quiz
// @Tags Quizzes
// @Produce json
// @Param id path string true "Student ID"
// @Param quizId path string true "Quiz ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/quizzes/{quizId}/submission [get]
func (h *QuizHandler) StudentSubmission(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	sub, err := h.quizzes.StudentSubmission(c.Request.Context(), principal, c.Param("quizId"), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sub, nil)
}
