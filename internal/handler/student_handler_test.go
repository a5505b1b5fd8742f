package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/intern-tracker-api/internal/dto"
	"github.com/noah-isme/intern-tracker-api/internal/middleware"
	"github.com/noah-isme/intern-tracker-api/internal/models"
	"github.com/noah-isme/intern-tracker-api/internal/service"
	appErrors "github.com/noah-isme/intern-tracker-api/pkg/errors"
)

type fakeStudentSrv struct {
	lastFilter models.StudentFilter
	lastReq    models.StudentRequest
	lastActor  *models.JWTClaims
	created    *models.StudentDetail
	err        error
}

func (f *fakeStudentSrv) List(_ context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	f.lastFilter = filter
	return []models.StudentDetail{}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize}, f.err
}

func (f *fakeStudentSrv) Get(_ context.Context, id string) (*models.StudentDetail, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.StudentDetail{Student: models.Student{ID: id}}, nil
}

func (f *fakeStudentSrv) Create(_ context.Context, req models.StudentRequest) (*models.StudentDetail, error) {
	f.lastReq = req
	return f.created, f.err
}

func (f *fakeStudentSrv) Update(_ context.Context, id string, req models.StudentRequest) (*models.StudentDetail, error) {
	f.lastReq = req
	return &models.StudentDetail{Student: models.Student{ID: id}}, f.err
}

func (f *fakeStudentSrv) Delete(_ context.Context, actor *models.JWTClaims, _ string) error {
	f.lastActor = actor
	return f.err
}

type fakeImporter struct {
	upload  service.ImportUpload
	content []byte
	result  *dto.ImportResult
	err     error
}

func (f *fakeImporter) Import(_ context.Context, _ *models.JWTClaims, upload service.ImportUpload) (*dto.ImportResult, error) {
	f.upload = upload
	f.content, _ = io.ReadAll(upload.Content)
	return f.result, f.err
}

type fakeExporter struct {
	format service.ExportFormat
	filter models.StudentFilter
}

func (f *fakeExporter) ExportStudents(_ context.Context, filter models.StudentFilter, format service.ExportFormat) (*service.ExportFile, error) {
	f.format = format
	f.filter = filter
	return &service.ExportFile{Filename: "students." + string(format), ContentType: "text/csv", Data: []byte("ID\n")}, nil
}

func newStudentRouter(students *fakeStudentSrv, importer *fakeImporter, exporter *fakeExporter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewStudentHandler(students, importer, exporter)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "actor-1", Role: models.RoleHRAdmin})
		c.Next()
	})
	router.GET("/students", h.List)
	router.GET("/students/export", h.Export)
	router.POST("/students/import", h.Import)
	router.GET("/students/:id", h.Get)
	router.POST("/students", h.Create)
	router.PUT("/students/:id", h.Update)
	router.DELETE("/students/:id", h.Delete)
	return router
}

func serveRequest(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestStudentHandlerListPassesFilter(t *testing.T) {
	students := &fakeStudentSrv{}
	router := newStudentRouter(students, &fakeImporter{}, &fakeExporter{})

	rec := serveRequest(router, httptest.NewRequest(http.MethodGet, "/students?search=%20aye%20&school_id=s-1&page=2&per_page=500", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "aye", students.lastFilter.Search)
	assert.Equal(t, "s-1", students.lastFilter.SchoolID)
	assert.Equal(t, 2, students.lastFilter.Page)
	assert.Equal(t, 20, students.lastFilter.PageSize)
}

func TestStudentHandlerCreateMentionsEmployee(t *testing.T) {
	students := &fakeStudentSrv{created: &models.StudentDetail{
		Student:  models.Student{ID: "st-1", IQScore: 75},
		Employee: &models.Employee{ID: "emp-1"},
	}}
	router := newStudentRouter(students, &fakeImporter{}, &fakeExporter{})

	body := `{"school_id":"s-1","name":"Aye","iq_score":75}`
	req := httptest.NewRequest(http.MethodPost, "/students", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := serveRequest(router, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "Student created successfully and automatically added as employee", envelope.Message)
	require.NotNil(t, students.lastReq.IQScore)
	assert.Equal(t, 75, *students.lastReq.IQScore)
}

func TestStudentHandlerCreateRejectsMalformedJSON(t *testing.T) {
	router := newStudentRouter(&fakeStudentSrv{}, &fakeImporter{}, &fakeExporter{})

	req := httptest.NewRequest(http.MethodPost, "/students", bytes.NewBufferString(`{"name":`))
	req.Header.Set("Content-Type", "application/json")
	rec := serveRequest(router, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStudentHandlerDeletePassesActor(t *testing.T) {
	students := &fakeStudentSrv{}
	router := newStudentRouter(students, &fakeImporter{}, &fakeExporter{})

	rec := serveRequest(router, httptest.NewRequest(http.MethodDelete, "/students/st-1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, students.lastActor)
	assert.Equal(t, "actor-1", students.lastActor.UserID)
}

func TestStudentHandlerGetNotFound(t *testing.T) {
	students := &fakeStudentSrv{err: appErrors.Clone(appErrors.ErrNotFound, "Student not found")}
	router := newStudentRouter(students, &fakeImporter{}, &fakeExporter{})

	rec := serveRequest(router, httptest.NewRequest(http.MethodGet, "/students/missing", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Student not found")
}

func TestStudentHandlerImportRequiresFile(t *testing.T) {
	router := newStudentRouter(&fakeStudentSrv{}, &fakeImporter{}, &fakeExporter{})

	req := httptest.NewRequest(http.MethodPost, "/students/import", nil)
	rec := serveRequest(router, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "file is required")
}

func TestStudentHandlerImportForwardsUpload(t *testing.T) {
	importer := &fakeImporter{result: &dto.ImportResult{Success: true, Message: "Import completed", RowsProcessed: 1}}
	router := newStudentRouter(&fakeStudentSrv{}, importer, &fakeExporter{})

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "roster.csv")
	require.NoError(t, err)
	_, _ = part.Write([]byte("School,Name\nA,B\n"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/students/import", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := serveRequest(router, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "roster.csv", importer.upload.Filename)
	assert.Equal(t, "School,Name\nA,B\n", string(importer.content))
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "Import completed", envelope.Message)
	assert.Equal(t, float64(1), envelope.Data["rows_processed"])
}

func TestStudentHandlerExport(t *testing.T) {
	exporter := &fakeExporter{}
	router := newStudentRouter(&fakeStudentSrv{}, &fakeImporter{}, exporter)

	rec := serveRequest(router, httptest.NewRequest(http.MethodGet, "/students/export?format=csv&school_id=s-1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.ExportFormatCSV, exporter.format)
	assert.Equal(t, "s-1", exporter.filter.SchoolID)
	assert.Equal(t, `attachment; filename="students.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "ID\n", rec.Body.String())
}

func TestStudentHandlerExportRejectsUnknownFormat(t *testing.T) {
	router := newStudentRouter(&fakeStudentSrv{}, &fakeImporter{}, &fakeExporter{})

	rec := serveRequest(router, httptest.NewRequest(http.MethodGet, "/students/export?format=doc", nil))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
