package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/intern-tracker-api/internal/models"
	appErrors "github.com/noah-isme/intern-tracker-api/pkg/errors"
	"github.com/noah-isme/intern-tracker-api/pkg/validation"
)

const (
	attendanceDateLayout   = "2006-01-02"
	defaultLateAfter       = "08:00:00"
	attendanceDuplicateMsg = "Attendance record already exists for this student on this date"
)

type attendanceRepository interface {
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Attendance, error)
	ExistsForDay(ctx context.Context, studentID, date string) (bool, error)
	Create(ctx context.Context, record *models.Attendance) error
	Update(ctx context.Context, record *models.Attendance) error
	Delete(ctx context.Context, id string) error
}

type attendanceStudentFinder interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Student, error)
}

// AttendanceService records one attendance entry per student and day.
type AttendanceService struct {
	repo      attendanceRepository
	students  attendanceStudentFinder
	cache     *CacheService
	lateAfter string
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs the attendance service. lateAfter is the
// HH:MM cutoff used when a record is submitted without a status.
func NewAttendanceService(repo attendanceRepository, students attendanceStudentFinder, cache *CacheService, lateAfter string, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cutoff := NormalizeClock(lateAfter)
	if cutoff == "" || !validation.IsClock(cutoff) {
		cutoff = defaultLateAfter
	}
	return &AttendanceService{repo: repo, students: students, cache: cache, lateAfter: cutoff, validator: validate, logger: logger}
}

// NormalizeClock turns HH:MM into HH:MM:SS and leaves other input trimmed.
func NormalizeClock(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) == len("15:04") {
		return trimmed + ":00"
	}
	return trimmed
}

// DeriveAttendanceStatus picks a status from the check-in time: none means
// absent, after the cutoff means late.
func DeriveAttendanceStatus(checkIn *string, lateAfter string) models.AttendanceStatus {
	if checkIn == nil || strings.TrimSpace(*checkIn) == "" {
		return models.AttendanceStatusAbsent
	}
	if NormalizeClock(*checkIn) > NormalizeClock(lateAfter) {
		return models.AttendanceStatusLate
	}
	return models.AttendanceStatusPresent
}

// List returns attendance records filtered by student, dates and status.
func (s *AttendanceService) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceDetail, *models.Pagination, error) {
	filter.Page, filter.PageSize = models.NormalizePage(filter.Page, filter.PageSize)
	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	if records == nil {
		records = []models.AttendanceDetail{}
	}
	return records, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// ListByStudent returns the records of one student.
func (s *AttendanceService) ListByStudent(ctx context.Context, studentID string, page, pageSize int) ([]models.AttendanceDetail, *models.Pagination, error) {
	if err := s.ensureStudent(ctx, studentID); err != nil {
		return nil, nil, err
	}
	return s.List(ctx, models.AttendanceFilter{StudentID: studentID, Page: page, PageSize: pageSize})
}

// ListByRange returns records between two inclusive dates.
func (s *AttendanceService) ListByRange(ctx context.Context, query models.AttendanceRangeQuery, page, pageSize int) ([]models.AttendanceDetail, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, validationError(err, "invalid date range")
	}
	if query.EndDate < query.StartDate {
		return nil, nil, fieldError(appErrors.ErrValidation, "invalid date range", "end_date", "end_date must be a date after or equal to start_date")
	}
	return s.List(ctx, models.AttendanceFilter{
		StudentID: query.StudentID,
		StartDate: query.StartDate,
		EndDate:   query.EndDate,
		Page:      page,
		PageSize:  pageSize,
	})
}

// Get returns one attendance record.
func (s *AttendanceService) Get(ctx context.Context, id string) (*models.Attendance, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Attendance record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	return record, nil
}

// Create stores a new record. A second record for the same student and day is rejected.
func (s *AttendanceService) Create(ctx context.Context, req models.AttendanceRequest) (*models.Attendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid attendance payload")
	}
	if err := s.ensureStudent(ctx, req.StudentID); err != nil {
		return nil, err
	}
	exists, err := s.repo.ExistsForDay(ctx, req.StudentID, req.Date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check attendance")
	}
	if exists {
		return nil, fieldError(appErrors.ErrUnprocessable, attendanceDuplicateMsg, "date", attendanceDuplicateMsg)
	}

	record := &models.Attendance{
		StudentID:   req.StudentID,
		Date:        req.Date,
		Status:      req.Status,
		CheckInTime: normalizeCheckIn(req.CheckInTime),
	}
	if record.Status == "" {
		record.Status = DeriveAttendanceStatus(record.CheckInTime, s.lateAfter)
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create attendance")
	}
	s.invalidate(ctx)
	return record, nil
}

// Update changes the status and check-in time of a record.
func (s *AttendanceService) Update(ctx context.Context, id string, req models.AttendanceUpdateRequest) (*models.Attendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid attendance payload")
	}
	record, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	record.Status = req.Status
	record.CheckInTime = normalizeCheckIn(req.CheckInTime)
	if err := s.repo.Update(ctx, record); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Attendance record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update attendance")
	}
	s.invalidate(ctx)
	return record, nil
}

// Delete removes a record.
func (s *AttendanceService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "Attendance record not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete attendance")
	}
	s.invalidate(ctx)
	return nil
}

func (s *AttendanceService) ensureStudent(ctx context.Context, studentID string) error {
	if _, err := s.students.FindByID(ctx, nil, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fieldError(appErrors.ErrValidation, "invalid attendance payload", "student_id", "The selected student_id is invalid.")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return nil
}

func (s *AttendanceService) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, dashboardCachePattern); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}

func normalizeCheckIn(raw *string) *string {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil
	}
	normalized := NormalizeClock(*raw)
	return &normalized
}
