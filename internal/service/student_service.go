package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/intern-tracker-api/internal/models"
	"github.com/noah-isme/intern-tracker-api/pkg/database"
	appErrors "github.com/noah-isme/intern-tracker-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	FindDetail(ctx context.Context, exec sqlx.ExtContext, id string) (*models.StudentDetail, error)
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Student, error)
	FindByRollNo(ctx context.Context, exec sqlx.ExtContext, schoolID, year, rollNo string) (*models.Student, error)
	Taken(ctx context.Context, column, value, excludeID string) (bool, error)
	Create(ctx context.Context, exec sqlx.ExtContext, student *models.Student) error
	Update(ctx context.Context, exec sqlx.ExtContext, student *models.Student) error
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
}

type schoolFinder interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.School, error)
}

type studentEmployeeRepository interface {
	FindByStudentID(ctx context.Context, exec sqlx.ExtContext, studentID string) (*models.Employee, error)
	ListByStudentIDs(ctx context.Context, studentIDs []string) ([]models.Employee, error)
	DeleteByStudentID(ctx context.Context, exec sqlx.ExtContext, studentID string) error
}

type studentAttendanceRepository interface {
	DeleteByStudentID(ctx context.Context, exec sqlx.ExtContext, studentID string) error
}

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// StudentServiceParams groups constructor dependencies.
type StudentServiceParams struct {
	DB         database.TxBeginner
	Students   studentRepository
	Schools    schoolFinder
	Employees  studentEmployeeRepository
	Attendance studentAttendanceRepository
	Syncer     *EmployeeSyncer
	Audit      auditRecorder
	Cache      *CacheService
	Validator  *validator.Validate
	Logger     *zap.Logger
}

// StudentService handles student use-cases. Every write runs in one transaction
// together with the employee mutation it implies.
type StudentService struct {
	db         database.TxBeginner
	students   studentRepository
	schools    schoolFinder
	employees  studentEmployeeRepository
	attendance studentAttendanceRepository
	syncer     *EmployeeSyncer
	audit      auditRecorder
	cache      *CacheService
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(params StudentServiceParams) *StudentService {
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{
		db:         params.DB,
		students:   params.Students,
		schools:    params.Schools,
		employees:  params.Employees,
		attendance: params.Attendance,
		syncer:     params.Syncer,
		audit:      params.Audit,
		cache:      params.Cache,
		validator:  validate,
		logger:     logger,
	}
}

// List returns students with their employee records and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	filter.Page, filter.PageSize = models.NormalizePage(filter.Page, filter.PageSize)
	students, total, err := s.students.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}

	if len(students) > 0 {
		ids := make([]string, len(students))
		for i := range students {
			ids[i] = students[i].ID
		}
		employees, err := s.employees.ListByStudentIDs(ctx, ids)
		if err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load employees")
		}
		byStudent := make(map[string]models.Employee, len(employees))
		for _, e := range employees {
			byStudent[e.StudentID] = e
		}
		for i := range students {
			if e, ok := byStudent[students[i].ID]; ok {
				employee := e
				students[i].Employee = &employee
			}
		}
	}

	return students, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns a student with school name and employee record.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentDetail, error) {
	detail, err := s.students.FindDetail(ctx, nil, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	employee, err := s.employees.FindByStudentID(ctx, nil, id)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load employee")
	}
	detail.Employee = employee
	return detail, nil
}

// Create registers a student and, when the score qualifies, its employee record.
func (s *StudentService) Create(ctx context.Context, req models.StudentRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid student payload")
	}
	school, err := s.loadSchool(ctx, req.SchoolID)
	if err != nil {
		return nil, err
	}
	student := &models.Student{}
	req.Apply(student)
	if err := s.ensureUnique(ctx, student, ""); err != nil {
		return nil, err
	}

	var outcome *SyncOutcome
	err = database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := s.students.Create(ctx, tx, student); err != nil {
			return err
		}
		outcome, err = s.syncer.Sync(ctx, tx, student, nil, SyncModeStudent)
		return err
	})
	if err != nil {
		s.logger.Error("student create rolled back", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "Failed to create student")
	}

	s.invalidateDashboard(ctx)
	return &models.StudentDetail{Student: *student, SchoolName: school.Name, Employee: outcome.Employee}, nil
}

// Update overwrites a student and applies the employee rule against its previous score.
func (s *StudentService) Update(ctx context.Context, id string, req models.StudentRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid student payload")
	}
	student, err := s.students.FindByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	school, err := s.loadSchool(ctx, req.SchoolID)
	if err != nil {
		return nil, err
	}

	previous := student.IQScore
	req.Apply(student)
	if err := s.ensureUnique(ctx, student, id); err != nil {
		return nil, err
	}

	var outcome *SyncOutcome
	err = database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := s.students.Update(ctx, tx, student); err != nil {
			return err
		}
		outcome, err = s.syncer.Sync(ctx, tx, student, &previous, SyncModeStudent)
		return err
	})
	if err != nil {
		s.logger.Error("student update rolled back", zap.String("student_id", id), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "Failed to update student")
	}

	s.invalidateDashboard(ctx)
	return &models.StudentDetail{Student: *student, SchoolName: school.Name, Employee: outcome.Employee}, nil
}

// Delete removes a student together with its attendance and employee rows.
func (s *StudentService) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	var removed *models.Student
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		student, err := s.students.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		removed = student
		if err := s.attendance.DeleteByStudentID(ctx, tx, id); err != nil {
			return err
		}
		if err := s.employees.DeleteByStudentID(ctx, tx, id); err != nil {
			return err
		}
		return s.students.Delete(ctx, tx, id)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "Student not found")
		}
		s.logger.Error("student delete rolled back", zap.String("student_id", id), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "Failed to delete student")
	}

	s.recordAudit(ctx, actor, id, removed)
	s.invalidateDashboard(ctx)
	return nil
}

func (s *StudentService) loadSchool(ctx context.Context, schoolID string) (*models.School, error) {
	school, err := s.schools.FindByID(ctx, nil, schoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fieldError(appErrors.ErrValidation, "invalid student payload", "school_id", "the selected school_id is invalid")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school")
	}
	return school, nil
}

func (s *StudentService) ensureUnique(ctx context.Context, student *models.Student, excludeID string) error {
	details := map[string][]string{}
	for _, check := range []struct{ column, value string }{{"email", student.Email}, {"nrc_no", student.NrcNo}} {
		taken, err := s.students.Taken(ctx, check.column, check.value, excludeID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate "+check.column)
		}
		if taken {
			details[check.column] = []string{check.column + " has already been taken"}
		}
	}

	holder, err := s.students.FindByRollNo(ctx, nil, student.SchoolID, student.Year, student.RollNo)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate roll_no")
	}
	if holder != nil && holder.ID != excludeID {
		details["roll_no"] = []string{"roll_no has already been taken for this school and year"}
	}

	if len(details) > 0 {
		return appErrors.WithDetails(appErrors.Clone(appErrors.ErrConflict, "student already exists"), details)
	}
	return nil
}

func (s *StudentService) recordAudit(ctx context.Context, actor *models.JWTClaims, id string, removed *models.Student) {
	if s.audit == nil {
		return
	}
	entry := models.ForResource(models.AuditActionStudentDelete, models.AuditResourceStudent, id)
	if actor != nil {
		entry.UserID = &actor.UserID
	}
	if removed != nil {
		if payload, err := json.Marshal(removed); err == nil {
			entry.OldValues = payload
		}
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record student delete audit log", zap.Error(err))
	}
}

func (s *StudentService) invalidateDashboard(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, dashboardCachePattern); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}
