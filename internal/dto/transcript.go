package dto

import (
	"time"

	"github.com/noah-isme/lms-api/internal/models"
)

// TranscriptFormat selects the transcript rendering.
type TranscriptFormat string

const (
	TranscriptJSON TranscriptFormat = "json"
	TranscriptCSV  TranscriptFormat = "csv"
	TranscriptPDF  TranscriptFormat = "pdf"
)

// Transcript is a student's graded history with cumulative standing.
type Transcript struct {
	Student              StudentInfo           `json:"student"`
	GPA                  float64               `json:"gpa"`
	CompletedCreditHours int                   `json:"completedCreditHours"`
	Courses              []models.GradedCourse `json:"courses"`
	GeneratedAt          time.Time             `json:"generatedAt"`
}

// TranscriptFile is a rendered transcript ready for download.
type TranscriptFile struct {
	Filename    string
	ContentType string
	Body        []byte
}
