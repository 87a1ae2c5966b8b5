package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/pkg/response"
)

type transcriptService interface {
	Build(ctx context.Context, principal models.Principal, studentID string) (*dto.Transcript, error)
	Render(ctx context.Context, principal models.Principal, studentID string, format dto.TranscriptFormat) (*dto.TranscriptFile, error)
}

// TranscriptHandler serves student transcripts.
type TranscriptHandler struct {
	transcripts transcriptService
}

// NewTranscriptHandler constructs TranscriptHandler.
func NewTranscriptHandler(transcripts transcriptService) *TranscriptHandler {
	return &TranscriptHandler{transcripts: transcripts}
}

// Get godoc
// @Summary Student transcript
// @Description Graded history oldest term first with cumulative GPA. format=csv or format=pdf downloads a file.
// @Tags Students
// @Produce json
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Student ID"
// @Param format query string false "json (default), csv or pdf"
// @Success 200 {object} response.Envelope{data=dto.Transcript}
// @Router /students/{id}/transcript [get]
func (h *TranscriptHandler) Get(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	format := dto.TranscriptFormat(strings.ToLower(c.DefaultQuery("format", string(dto.TranscriptJSON))))
	if format == dto.TranscriptJSON {
		transcript, err := h.transcripts.Build(c.Request.Context(), principal, c.Param("id"))
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, transcript, nil)
		return
	}

	file, err := h.transcripts.Render(c.Request.Context(), principal, c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
