package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
	"github.com/noah-isme/lms-api/pkg/response"
)

type attendanceService interface {
	Mark(ctx context.Context, principal models.Principal, courseID string, req models.MarkAttendanceRequest) (*models.Attendance, error)
	BulkMark(ctx context.Context, principal models.Principal, courseID string, req models.BulkMarkAttendanceRequest) ([]models.Attendance, error)
	ListByCourse(ctx context.Context, principal models.Principal, courseID string, filter models.AttendanceFilter) ([]models.Attendance, error)
	StudentRecord(ctx context.Context, principal models.Principal, studentID, courseID string) (*models.StudentAttendance, error)
}

// AttendanceHandler exposes course attendance.
type AttendanceHandler struct {
	attendance attendanceService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance attendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// Mark godoc
// @Summary Mark attendance for one student
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body models.MarkAttendanceRequest true "Attendance payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /courses/{id}/attendance [post]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req models.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid attendance payload"))
		return
	}
	record, err := h.attendance.Mark(c.Request.Context(), principal, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// BulkMark godoc
// @Summary Mark attendance for a whole meeting
// @Description All rows are written in one transaction or none are.
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body models.BulkMarkAttendanceRequest true "Attendance sheet"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/attendance/bulk [post]
func (h *AttendanceHandler) BulkMark(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req models.BulkMarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid attendance payload"))
		return
	}
	records, err := h.attendance.BulkMark(c.Request.Context(), principal, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// ListByCourse godoc
// @Summary List a course's attendance
// @Tags Attendance
// @Produce json
// @Param id path string true "Course ID"
// @Param status query string false "present, absent, late or excused"
// @Param from query string false "First date, YYYY-MM-DD"
// @Param to query string false "Last date, YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/attendance [get]
func (h *AttendanceHandler) ListByCourse(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	var filter models.AttendanceFilter
	if raw := c.Query("status"); raw != "" {
		status := models.AttendanceStatus(raw)
		filter.Status = &status
	}
	var err error
	if filter.DateFrom, err = queryDate(c, "from"); err != nil {
		response.Error(c, err)
		return
	}
	if filter.DateTo, err = queryDate(c, "to"); err != nil {
		response.Error(c, err)
		return
	}
	rows, err := h.attendance.ListByCourse(c.Request.Context(), principal, c.Param("id"), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// StudentRecord godoc
// @Summary A student's attendance in one course
// @Tags Attendance
// @Produce json
// @Param id path string true "Student ID"
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/attendance/{courseId} [get]
func (h *AttendanceHandler) StudentRecord(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	record, err := h.attendance.StudentRecord(c.Request.Context(), principal, c.Param("id"), c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

func queryDate(c *gin.Context, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, key+" must be a date in YYYY-MM-DD format")
	}
	return &parsed, nil
}
