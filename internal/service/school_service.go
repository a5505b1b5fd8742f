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
)

type schoolRepository interface {
	List(ctx context.Context, filter models.SchoolFilter) ([]models.SchoolSummary, int, error)
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.School, error)
	Create(ctx context.Context, exec sqlx.ExtContext, school *models.School) error
	Update(ctx context.Context, school *models.School) error
	Delete(ctx context.Context, id string) error
	TeacherEmailTaken(ctx context.Context, email, excludeID string) (bool, error)
	NameTaken(ctx context.Context, name, excludeID string) (bool, error)
	CountStudents(ctx context.Context, id string) (int, error)
}

// SchoolService manages partner schools.
type SchoolService struct {
	repo      schoolRepository
	audit     auditRecorder
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSchoolService constructs the school service.
func NewSchoolService(repo schoolRepository, audit auditRecorder, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *SchoolService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchoolService{repo: repo, audit: audit, cache: cache, validator: validate, logger: logger}
}

// List returns schools with student and employee counts.
func (s *SchoolService) List(ctx context.Context, filter models.SchoolFilter) ([]models.SchoolSummary, *models.Pagination, error) {
	filter.Page, filter.PageSize = models.NormalizePage(filter.Page, filter.PageSize)
	schools, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schools")
	}
	if schools == nil {
		schools = []models.SchoolSummary{}
	}
	return schools, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns a single school.
func (s *SchoolService) Get(ctx context.Context, id string) (*models.School, error) {
	school, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "School not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school")
	}
	return school, nil
}

// Create registers a school.
func (s *SchoolService) Create(ctx context.Context, req models.SchoolRequest) (*models.School, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid school payload")
	}
	school := &models.School{}
	applySchool(school, req)
	if err := s.ensureUnique(ctx, school, ""); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, nil, school); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create school")
	}
	s.invalidate(ctx)
	return school, nil
}

// Update edits a school.
func (s *SchoolService) Update(ctx context.Context, id string, req models.SchoolRequest) (*models.School, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid school payload")
	}
	school, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	applySchool(school, req)
	if err := s.ensureUnique(ctx, school, id); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, school); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update school")
	}
	s.invalidate(ctx)
	return school, nil
}

// Delete removes a school that has no students.
func (s *SchoolService) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	count, err := s.repo.CountStudents(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count school students")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrUnprocessable, "Cannot delete school with existing students")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "School not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete school")
	}

	if s.audit != nil {
		entry := models.ForResource(models.AuditActionSchoolDelete, models.AuditResourceSchool, id)
		if actor != nil {
			entry.UserID = &actor.UserID
		}
		if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
			s.logger.Warn("failed to record school delete audit log", zap.Error(err))
		}
	}
	s.invalidate(ctx)
	return nil
}

func (s *SchoolService) ensureUnique(ctx context.Context, school *models.School, excludeID string) error {
	details := map[string][]string{}
	taken, err := s.repo.NameTaken(ctx, school.Name, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate name")
	}
	if taken {
		details["name"] = []string{"name has already been taken"}
	}
	if school.TeacherEmail != nil {
		taken, err = s.repo.TeacherEmailTaken(ctx, *school.TeacherEmail, excludeID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate teacher_email")
		}
		if taken {
			details["teacher_email"] = []string{"teacher_email has already been taken"}
		}
	}
	if len(details) > 0 {
		return appErrors.WithDetails(appErrors.Clone(appErrors.ErrConflict, "school already exists"), details)
	}
	return nil
}

func (s *SchoolService) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, dashboardCachePattern); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}

func applySchool(school *models.School, req models.SchoolRequest) {
	school.Name = strings.TrimSpace(req.Name)
	school.TeacherName = strings.TrimSpace(req.TeacherName)
	email := strings.TrimSpace(req.TeacherEmail)
	school.TeacherEmail = &email
}
