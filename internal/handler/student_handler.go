package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/intern-tracker-api/internal/dto"
	"github.com/noah-isme/intern-tracker-api/internal/models"
	"github.com/noah-isme/intern-tracker-api/internal/service"
	appErrors "github.com/noah-isme/intern-tracker-api/pkg/errors"
	"github.com/noah-isme/intern-tracker-api/pkg/logger"
	"github.com/noah-isme/intern-tracker-api/pkg/response"
)

type studentService interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.StudentDetail, error)
	Create(ctx context.Context, req models.StudentRequest) (*models.StudentDetail, error)
	Update(ctx context.Context, id string, req models.StudentRequest) (*models.StudentDetail, error)
	Delete(ctx context.Context, actor *models.JWTClaims, id string) error
}

type studentImporter interface {
	Import(ctx context.Context, actor *models.JWTClaims, upload service.ImportUpload) (*dto.ImportResult, error)
}

type studentExporter interface {
	ExportStudents(ctx context.Context, filter models.StudentFilter, format service.ExportFormat) (*service.ExportFile, error)
}

// StudentHandler exposes student endpoints.
type StudentHandler struct {
	students studentService
	importer studentImporter
	exporter studentExporter
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(students studentService, importer studentImporter, exporter studentExporter) *StudentHandler {
	return &StudentHandler{students: students, importer: importer, exporter: exporter}
}

func studentFilter(c *gin.Context) models.StudentFilter {
	filter := models.StudentFilter{
		Search:    strings.TrimSpace(c.Query("search")),
		SchoolID:  strings.TrimSpace(c.Query("school_id")),
		Year:      strings.TrimSpace(c.Query("year")),
		SortBy:    c.Query("sort"),
		SortOrder: c.Query("order"),
	}
	filter.Page, filter.PageSize = pageParams(c)
	return filter
}

// List godoc
// @Summary List students
// @Tags Students
// @Produce json
// @Param search query string false "Search by name, email, roll number or NRC"
// @Param school_id query string false "Filter by school"
// @Param year query string false "Filter by year"
// @Param page query int false "Page"
// @Param per_page query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	students, pagination, err := h.students.List(c.Request.Context(), studentFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination)
}

// Get godoc
// @Summary Get student detail
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.students.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Create godoc
// @Summary Create student
// @Description Students at or above the iq threshold are added as employees in the same transaction.
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body models.StudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	var req models.StudentRequest
	if !bindJSON(c, &req) {
		return
	}
	student, err := h.students.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	message := "Student created successfully"
	if student.IsEmployee() {
		message += " and automatically added as employee"
	}
	response.Created(c, message, student)
}

// Update godoc
// @Summary Update student
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body models.StudentRequest true "Student payload"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [put]
func (h *StudentHandler) Update(c *gin.Context) {
	var req models.StudentRequest
	if !bindJSON(c, &req) {
		return
	}
	student, err := h.students.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Student updated successfully", student)
}

// Delete godoc
// @Summary Delete student with its employee and attendance records
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	if err := h.students.Delete(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Student deleted successfully", nil)
}

// Import godoc
// @Summary Import students from a spreadsheet
// @Tags Students
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "xlsx or csv sheet"
// @Success 200 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /students/import [post]
func (h *StudentHandler) Import(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "Validation failed"),
			map[string][]string{"file": {"file is required"}}))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open upload"))
		return
	}
	defer file.Close() //nolint:errcheck

	result, err := h.importer.Import(c.Request.Context(), claimsFromContext(c), service.ImportUpload{
		Filename: header.Filename,
		Size:     header.Size,
		Content:  file,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, result.Message, result)
}

// Export godoc
// @Summary Export students
// @Tags Students
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "xlsx (default), csv or pdf"
// @Param school_id query string false "Filter by school"
// @Success 200 {file} file
// @Router /students/export [get]
func (h *StudentHandler) Export(c *gin.Context) {
	format, err := service.ParseExportFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	filter := studentFilter(c)
	file, err := h.exporter.ExportStudents(c.Request.Context(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	logger.FromContext(c, nil).Info("students exported",
		zap.String("format", string(format)),
		zap.String("file", file.Filename),
		zap.Int("bytes", len(file.Data)),
	)
	c.Header("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
