package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
	"github.com/noah-isme/lms-api/pkg/export"
)

var transcriptHeaders = []string{"Term", "Code", "Course", "Credits", "Total", "Grade"}

type transcriptHistoryReader interface {
	ListHistory(ctx context.Context, studentID string) ([]models.GradedCourse, error)
}

type documentRenderer interface {
	Render(doc export.Document) ([]byte, error)
}

// TranscriptService assembles and renders student transcripts.
type TranscriptService struct {
	users  studentFinder
	grades transcriptHistoryReader
	csv    documentRenderer
	pdf    documentRenderer
	now    func() time.Time
	logger *zap.Logger
}

// NewTranscriptService constructs the service. Nil renderers default to the
// pkg/export implementations.
func NewTranscriptService(users studentFinder, grades transcriptHistoryReader, csv, pdf documentRenderer, logger *zap.Logger) *TranscriptService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter("Credits", "Total")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TranscriptService{users: users, grades: grades, csv: csv, pdf: pdf, now: time.Now, logger: logger}
}

// Build returns every graded attempt, oldest term first, with the GPA
// computed from the latest attempt of each course.
func (s *TranscriptService) Build(ctx context.Context, principal models.Principal, studentID string) (*dto.Transcript, error) {
	if err := requireStudentAccess(principal, studentID); err != nil {
		return nil, err
	}
	student, err := loadStudent(ctx, s.users, studentID)
	if err != nil {
		return nil, err
	}
	history, err := s.grades.ListHistory(ctx, studentID)
	if err != nil {
		return nil, internalError(err, "failed to load grade history")
	}

	courses := make([]models.GradedCourse, len(history))
	for i := range history {
		courses[len(history)-1-i] = history[i]
	}
	return &dto.Transcript{
		Student: dto.StudentInfo{
			ID:            student.ID,
			FullName:      student.FullName,
			Major:         student.Major,
			AcademicLevel: student.AcademicLevel,
			Semester:      student.Semester,
		},
		GPA:                  CalculateGPA(latestByCourse(history).Records()),
		CompletedCreditHours: student.CompletedCreditHours,
		Courses:              courses,
		GeneratedAt:          s.now().UTC(),
	}, nil
}

// Render produces a downloadable CSV or PDF transcript.
func (s *TranscriptService) Render(ctx context.Context, principal models.Principal, studentID string, format dto.TranscriptFormat) (*dto.TranscriptFile, error) {
	var renderer documentRenderer
	var contentType string
	switch format {
	case dto.TranscriptCSV:
		renderer, contentType = s.csv, "text/csv"
	case dto.TranscriptPDF:
		renderer, contentType = s.pdf, "application/pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported transcript format %q", format))
	}

	transcript, err := s.Build(ctx, principal, studentID)
	if err != nil {
		return nil, err
	}
	body, err := renderer.Render(transcriptDocument(transcript))
	if err != nil {
		s.logger.Error("transcript render failed", zap.String("student_id", studentID), zap.String("format", string(format)), zap.Error(err))
		return nil, internalError(err, "failed to render transcript")
	}
	return &dto.TranscriptFile{
		Filename:    fmt.Sprintf("transcript-%s-%s.%s", studentID, transcript.GeneratedAt.Format("20060102"), format),
		ContentType: contentType,
		Body:        body,
	}, nil
}

func transcriptDocument(t *dto.Transcript) export.Document {
	rows := make([]map[string]string, 0, len(t.Courses))
	for _, c := range t.Courses {
		rows = append(rows, map[string]string{
			"Term":    fmt.Sprintf("%s S%d", c.AcademicYear, c.Semester),
			"Code":    c.CourseCode,
			"Course":  c.CourseName,
			"Credits": strconv.Itoa(c.CreditHours),
			"Total":   strconv.FormatFloat(c.TotalGrade, 'f', 2, 64),
			"Grade":   string(c.LetterGrade),
		})
	}
	return export.Document{
		Title: "Academic Transcript",
		Summary: []export.Field{
			{Label: "Student", Value: t.Student.FullName},
			{Label: "Major", Value: t.Student.Major},
			{Label: "Level", Value: strconv.Itoa(t.Student.AcademicLevel)},
			{Label: "GPA", Value: strconv.FormatFloat(t.GPA, 'f', 2, 64)},
			{Label: "Completed credit hours", Value: strconv.Itoa(t.CompletedCreditHours)},
			{Label: "Generated", Value: t.GeneratedAt.Format(time.RFC3339)},
		},
		Data: export.Dataset{Headers: transcriptHeaders, Rows: rows},
	}
}
