package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/intern-tracker-api/internal/models"
	appErrors "github.com/noah-isme/intern-tracker-api/pkg/errors"
	"github.com/noah-isme/intern-tracker-api/pkg/export"
)

// ExportFormat names a roster file type.
type ExportFormat string

const (
	ExportFormatXLSX ExportFormat = "xlsx"
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatPDF  ExportFormat = "pdf"
)

const exportTimestampLayout = "2006-01-02_15-04-05"

// StudentExportColumns is the column order of every roster export.
var StudentExportColumns = []string{
	"ID", "School", "Roll No", "Branch", "Name", "Email", "NRC No", "Phone",
	"Major", "Year", "IQ Score", "Is Employee", "Created At", "Updated At",
}

var exportContentTypes = map[ExportFormat]string{
	ExportFormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	ExportFormatCSV:  "text/csv",
	ExportFormatPDF:  "application/pdf",
}

// ParseExportFormat accepts xlsx, csv and pdf in any case. Blank means xlsx.
func ParseExportFormat(raw string) (ExportFormat, error) {
	format := ExportFormat(strings.ToLower(strings.TrimSpace(raw)))
	if format == "" {
		return ExportFormatXLSX, nil
	}
	if _, ok := exportContentTypes[format]; !ok {
		return "", fieldError(appErrors.ErrValidation, "invalid export format", "format", "format must be one of [xlsx csv pdf]")
	}
	return format, nil
}

// ExportFile is a rendered roster ready to be streamed to the client.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

type studentExportRepository interface {
	ListForExport(ctx context.Context, filter models.StudentFilter) ([]models.StudentExportRow, error)
}

// ExportService renders the student roster.
type ExportService struct {
	students studentExportRepository
	csv      *export.CSVExporter
	xlsx     *export.XLSXExporter
	pdf      *export.PDFExporter
	logger   *zap.Logger
	now      func() time.Time
}

// NewExportService constructs the roster exporter.
func NewExportService(students studentExportRepository, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		students: students,
		csv:      export.NewCSVExporter(),
		xlsx:     export.NewXLSXExporter("Students"),
		pdf:      export.NewPDFExporter(),
		logger:   logger,
		now:      time.Now,
	}
}

// ExportStudents renders every student matching filter in the requested format.
func (s *ExportService) ExportStudents(ctx context.Context, filter models.StudentFilter, format ExportFormat) (*ExportFile, error) {
	contentType, ok := exportContentTypes[format]
	if !ok {
		return nil, fieldError(appErrors.ErrValidation, "invalid export format", "format", "format must be one of [xlsx csv pdf]")
	}
	rows, err := s.students.ListForExport(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}

	dataset := StudentDataset(rows)
	var data []byte
	switch format {
	case ExportFormatCSV:
		data, err = s.csv.Render(dataset)
	case ExportFormatPDF:
		data, err = s.pdf.Render(dataset, "Students")
	default:
		data, err = s.xlsx.Render(dataset)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	s.logger.Info("students exported", zap.String("format", string(format)), zap.Int("rows", len(rows)))
	return &ExportFile{
		Filename:    fmt.Sprintf("students_%s.%s", s.now().Format(exportTimestampLayout), format),
		ContentType: contentType,
		Data:        data,
	}, nil
}

// StudentDataset flattens export rows into the roster columns.
func StudentDataset(rows []models.StudentExportRow) export.Dataset {
	dataset := export.Dataset{Headers: StudentExportColumns, Rows: make([]map[string]string, 0, len(rows))}
	for _, row := range rows {
		isEmployee := "No"
		if row.IsEmployee {
			isEmployee = "Yes"
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"ID":          row.ID,
			"School":      row.SchoolName,
			"Roll No":     row.RollNo,
			"Branch":      row.Branch,
			"Name":        row.Name,
			"Email":       row.Email,
			"NRC No":      row.NrcNo,
			"Phone":       row.Phone,
			"Major":       row.Major,
			"Year":        row.Year,
			"IQ Score":    strconv.Itoa(row.IQScore),
			"Is Employee": isEmployee,
			"Created At":  row.CreatedAt.Format("2006-01-02 15:04:05"),
			"Updated At":  row.UpdatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return dataset
}
