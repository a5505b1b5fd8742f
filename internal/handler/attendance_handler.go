package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/intern-tracker-api/internal/models"
	appErrors "github.com/noah-isme/intern-tracker-api/pkg/errors"
	"github.com/noah-isme/intern-tracker-api/pkg/response"
)

type attendanceService interface {
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceDetail, *models.Pagination, error)
	ListByStudent(ctx context.Context, studentID string, page, pageSize int) ([]models.AttendanceDetail, *models.Pagination, error)
	ListByRange(ctx context.Context, query models.AttendanceRangeQuery, page, pageSize int) ([]models.AttendanceDetail, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Attendance, error)
	Create(ctx context.Context, req models.AttendanceRequest) (*models.Attendance, error)
	Update(ctx context.Context, id string, req models.AttendanceUpdateRequest) (*models.Attendance, error)
	Delete(ctx context.Context, id string) error
}

// AttendanceHandler exposes attendance endpoints.
type AttendanceHandler struct {
	attendance attendanceService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance attendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// List godoc
// @Summary List attendance records
// @Tags Attendance
// @Produce json
// @Param student_id query string false "Filter by student"
// @Param status query string false "present, absent or late"
// @Param date query string false "Single day (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	filter := models.AttendanceFilter{
		StudentID: strings.TrimSpace(c.Query("student_id")),
		Status:    models.AttendanceStatus(strings.ToLower(strings.TrimSpace(c.Query("status")))),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		response.Error(c, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "invalid status"),
			map[string][]string{"status": {"status must be one of [present absent late]"}}))
		return
	}
	if date := strings.TrimSpace(c.Query("date")); date != "" {
		filter.StartDate, filter.EndDate = date, date
	}
	filter.Page, filter.PageSize = pageParams(c)
	records, pagination, err := h.attendance.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// ByStudent godoc
// @Summary List attendance of one student
// @Tags Attendance
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/student/{studentId} [get]
func (h *AttendanceHandler) ByStudent(c *gin.Context) {
	page, size := pageParams(c)
	records, pagination, err := h.attendance.ListByStudent(c.Request.Context(), c.Param("studentId"), page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// ByRange godoc
// @Summary List attendance between two dates
// @Tags Attendance
// @Produce json
// @Param start_date query string true "Start date (YYYY-MM-DD)"
// @Param end_date query string true "End date (YYYY-MM-DD)"
// @Param student_id query string false "Filter by student"
// @Success 200 {object} response.Envelope
// @Router /attendance/range [get]
func (h *AttendanceHandler) ByRange(c *gin.Context) {
	var query models.AttendanceRangeQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	page, size := pageParams(c)
	records, pagination, err := h.attendance.ListByRange(c.Request.Context(), query, page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// Get godoc
// @Summary Get attendance record
// @Tags Attendance
// @Produce json
// @Param id path string true "Attendance ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/{id} [get]
func (h *AttendanceHandler) Get(c *gin.Context) {
	record, err := h.attendance.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Create godoc
// @Summary Record attendance
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body models.AttendanceRequest true "Attendance payload"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /attendance [post]
func (h *AttendanceHandler) Create(c *gin.Context) {
	var req models.AttendanceRequest
	if !bindJSON(c, &req) {
		return
	}
	record, err := h.attendance.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Attendance recorded successfully", record)
}

// Update godoc
// @Summary Update attendance status and check-in time
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Attendance ID"
// @Param payload body models.AttendanceUpdateRequest true "Attendance payload"
// @Success 200 {object} response.Envelope
// @Router /attendance/{id} [put]
func (h *AttendanceHandler) Update(c *gin.Context) {
	var req models.AttendanceUpdateRequest
	if !bindJSON(c, &req) {
		return
	}
	record, err := h.attendance.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Attendance updated successfully", record)
}

// Delete godoc
// @Summary Delete attendance record
// @Tags Attendance
// @Produce json
// @Param id path string true "Attendance ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/{id} [delete]
func (h *AttendanceHandler) Delete(c *gin.Context) {
	if err := h.attendance.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Attendance deleted successfully", nil)
}
