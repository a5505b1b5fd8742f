package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/intern-tracker-api/internal/dto"
	"github.com/noah-isme/intern-tracker-api/internal/models"
	"github.com/noah-isme/intern-tracker-api/pkg/database"
	appErrors "github.com/noah-isme/intern-tracker-api/pkg/errors"
	"github.com/noah-isme/intern-tracker-api/pkg/spreadsheet"
	"github.com/noah-isme/intern-tracker-api/pkg/validation"
)

const (
	defaultImportMaxSize = 10 * 1024 * 1024
	importSuccessMessage = "Students imported successfully"
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

type importArchive interface {
	SaveStream(filename string, r io.Reader) (int64, error)
}

type batchReconciler interface {
	Reconcile(ctx context.Context, exec sqlx.ExtContext, rows []dto.ImportRow) (*dto.ImportResult, error)
}

// ImportUpload is a student sheet received from a client.
type ImportUpload struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// importRowSchema bounds the shape of a row before reconciliation. Blank
// values pass here and are reported as missing by the reconciler.
type importRowSchema struct {
	School string `json:"school" validate:"omitempty,max=255"`
	RollNo string `json:"roll_no" validate:"omitempty,max=50"`
	Branch string `json:"branch" validate:"omitempty,max=100"`
	Name   string `json:"name" validate:"omitempty,max=255"`
	Email  string `json:"email" validate:"omitempty,email,max=255"`
	NrcNo  string `json:"nrc_no" validate:"omitempty,max=100"`
	Phone  string `json:"phone" validate:"omitempty,max=20"`
	Major  string `json:"major" validate:"omitempty,max=100"`
	Year   string `json:"year" validate:"omitempty,max=50"`
}

// ImportServiceParams groups constructor dependencies.
type ImportServiceParams struct {
	DB          database.TxBeginner
	Reconciler  batchReconciler
	Archive     importArchive
	Audit       auditRecorder
	Cache       *CacheService
	Metrics     *MetricsService
	Validator   *validator.Validate
	Logger      *zap.Logger
	MaxFileSize int64
}

// ImportService turns uploaded spreadsheets into reconciled student rows inside one transaction.
type ImportService struct {
	db          database.TxBeginner
	reconciler  batchReconciler
	archive     importArchive
	audit       auditRecorder
	cache       *CacheService
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	maxFileSize int64
	now         func() time.Time
}

// NewImportService constructs the import service.
func NewImportService(params ImportServiceParams) *ImportService {
	validate := params.Validator
	if validate == nil {
		validate = validation.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxSize := params.MaxFileSize
	if maxSize <= 0 {
		maxSize = defaultImportMaxSize
	}
	return &ImportService{
		db:          params.DB,
		reconciler:  params.Reconciler,
		archive:     params.Archive,
		audit:       params.Audit,
		cache:       params.Cache,
		metrics:     params.Metrics,
		validator:   validate,
		logger:      logger,
		maxFileSize: maxSize,
		now:         time.Now,
	}
}

// Import parses, validates and reconciles an uploaded sheet. Row problems are
// reported in the result; a storage failure rolls back the whole batch.
func (s *ImportService) Import(ctx context.Context, actor *models.JWTClaims, upload ImportUpload) (*dto.ImportResult, error) {
	if upload.Size > s.maxFileSize {
		return nil, s.tooLarge()
	}
	if _, err := spreadsheet.Format(upload.Filename); err != nil {
		return nil, fieldError(appErrors.ErrValidation, "Validation failed", "file", "file must be a file of type: xlsx, csv")
	}

	content, err := io.ReadAll(io.LimitReader(upload.Content, s.maxFileSize+1))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload")
	}
	if int64(len(content)) > s.maxFileSize {
		return nil, s.tooLarge()
	}

	table, err := spreadsheet.Read(upload.Filename, bytes.NewReader(content))
	if err != nil {
		if errors.Is(err, spreadsheet.ErrNoHeader) {
			return nil, fieldError(appErrors.ErrValidation, "Validation failed", "file", "file does not contain a header row")
		}
		return nil, fieldError(appErrors.ErrValidation, "Validation failed", "file", "file could not be read")
	}

	s.archiveUpload(upload.Filename, content)

	rows, rejected := s.validateRows(table.Rows)

	var result *dto.ImportResult
	err = database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		var rerr error
		result, rerr = s.reconciler.Reconcile(ctx, tx, rows)
		return rerr
	})
	if err != nil {
		s.metrics.RecordImport(false, 0, 0)
		s.logger.Error("student import rolled back", zap.String("file", upload.Filename), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "Import failed")
	}

	result.SkippedRows = append(result.SkippedRows, rejected...)
	sort.SliceStable(result.SkippedRows, func(i, j int) bool {
		return result.SkippedRows[i].Row < result.SkippedRows[j].Row
	})
	result.Message = importSuccessMessage

	s.metrics.RecordImport(true, result.RowsProcessed, len(result.SkippedRows))
	s.logger.Info("student import committed",
		zap.String("file", upload.Filename),
		zap.Int("rows_processed", result.RowsProcessed),
		zap.Int("rows_skipped", len(result.SkippedRows)),
		zap.Int("schools_created", result.SchoolsCreated),
	)
	s.recordAudit(ctx, actor, upload.Filename, result)
	if err := s.cache.Invalidate(ctx, dashboardCachePattern); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
	return result, nil
}

func (s *ImportService) validateRows(rows []spreadsheet.Row) ([]dto.ImportRow, []dto.SkippedRow) {
	valid := make([]dto.ImportRow, 0, len(rows))
	var rejected []dto.SkippedRow
	for _, row := range rows {
		v := row.Values
		schema := importRowSchema{
			School: strings.TrimSpace(v["school"]),
			RollNo: strings.TrimSpace(v["roll_no"]),
			Branch: strings.TrimSpace(v["branch"]),
			Name:   strings.TrimSpace(v["name"]),
			Email:  strings.TrimSpace(v["email"]),
			NrcNo:  strings.TrimSpace(v["nrc_no"]),
			Phone:  strings.TrimSpace(v["phone"]),
			Major:  strings.TrimSpace(v["major"]),
			Year:   strings.TrimSpace(v["year"]),
		}

		var messages []string
		if err := s.validator.Struct(schema); err != nil {
			fields := validation.FieldErrors(err)
			keys := make([]string, 0, len(fields))
			for k := range fields {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				messages = append(messages, fields[k]...)
			}
		}
		if raw := strings.TrimSpace(v["iq_score"]); raw != "" {
			if _, err := ParseIQScore(raw); err != nil {
				messages = append(messages, "iq_score must be an integer between 0 and 100")
			}
		}

		if len(messages) > 0 {
			rejected = append(rejected, dto.SkippedRow{Row: row.Number, Errors: messages, Values: row.Values})
			continue
		}
		valid = append(valid, dto.ImportRow{Number: row.Number, Values: row.Values})
	}
	return valid, rejected
}

func (s *ImportService) archiveUpload(filename string, content []byte) {
	if s.archive == nil {
		return
	}
	base := unsafeFilenameChars.ReplaceAllString(filepath.Base(filename), "_")
	name := fmt.Sprintf("%s_%s", s.now().UTC().Format("20060102T150405"), base)
	if _, err := s.archive.SaveStream(name, bytes.NewReader(content)); err != nil {
		s.logger.Warn("failed to archive import upload", zap.String("file", name), zap.Error(err))
	}
}

func (s *ImportService) recordAudit(ctx context.Context, actor *models.JWTClaims, filename string, result *dto.ImportResult) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(map[string]interface{}{
		"file":              filename,
		"rows_processed":    result.RowsProcessed,
		"rows_skipped":      len(result.SkippedRows),
		"schools_created":   result.SchoolsCreated,
		"students_created":  result.StudentsCreated,
		"students_updated":  result.StudentsUpdated,
		"employees_created": result.EmployeesCreated,
		"employees_deleted": result.EmployeesDeleted,
	})
	entry := &models.AuditLog{Action: models.AuditActionStudentImport, Resource: models.AuditResourceStudent, NewValues: payload}
	if actor != nil {
		entry.UserID = &actor.UserID
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record import audit log", zap.Error(err))
	}
}

func (s *ImportService) tooLarge() error {
	detail := fmt.Sprintf("file may not be greater than %d kilobytes", s.maxFileSize/1024)
	return fieldError(appErrors.ErrPayloadTooLarge, "Validation failed", "file", detail)
}
