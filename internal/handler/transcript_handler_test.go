package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/models"
)

type transcriptServiceMock struct {
	lastFormat dto.TranscriptFormat
}

func (m *transcriptServiceMock) Build(ctx context.Context, p models.Principal, id string) (*dto.Transcript, error) {
	return &dto.Transcript{GPA: 3.25}, nil
}

func (m *transcriptServiceMock) Render(ctx context.Context, p models.Principal, id string, format dto.TranscriptFormat) (*dto.TranscriptFile, error) {
	m.lastFormat = format
	return &dto.TranscriptFile{Filename: "transcript-s1-20250601.csv", ContentType: "text/csv", Body: []byte("GPA,3.25\n")}, nil
}

func TestTranscriptHandlerJSONByDefault(t *testing.T) {
	mockSvc := &transcriptServiceMock{}
	handler := NewTranscriptHandler(mockSvc)

	c, w := newTestContext(http.MethodGet, "/students/s1/transcript", nil, studentClaims)
	c.Params = gin.Params{{Key: "id", Value: "s1"}}
	handler.Get(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"gpa":3.25`)
	assert.Empty(t, mockSvc.lastFormat)
}

func TestTranscriptHandlerDownload(t *testing.T) {
	mockSvc := &transcriptServiceMock{}
	handler := NewTranscriptHandler(mockSvc)

	c, w := newTestContext(http.MethodGet, "/students/s1/transcript?format=CSV", nil, studentClaims)
	c.Params = gin.Params{{Key: "id", Value: "s1"}}
	handler.Get(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dto.TranscriptCSV, mockSvc.lastFormat)
	assert.Equal(t, `attachment; filename="transcript-s1-20250601.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Equal(t, "GPA,3.25\n", w.Body.String())
}
