package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/intern-tracker-api/internal/models"
)

// DefaultIQThreshold is the inclusive iq score at which a student becomes an employee.
const DefaultIQThreshold = 60

// EmployeeAction is the single employee mutation a sync call performs.
type EmployeeAction int

const (
	EmployeeActionNone EmployeeAction = iota
	EmployeeActionCreate
	EmployeeActionUpdate
	EmployeeActionDelete
)

func (a EmployeeAction) String() string {
	switch a {
	case EmployeeActionCreate:
		return "create"
	case EmployeeActionUpdate:
		return "update"
	case EmployeeActionDelete:
		return "delete"
	default:
		return "none"
	}
}

// SyncMode selects which employee fields an update rewrites.
type SyncMode int

const (
	// SyncModeStudent rewrites only iq_score.
	SyncModeStudent SyncMode = iota
	// SyncModeImport rewrites school_id and iq_score.
	SyncModeImport
)

// DecideEmployeeAction maps a student's current score and employee presence to the
// mutation that restores "employee exists iff iq_score >= threshold".
func DecideEmployeeAction(threshold, iqScore int, hasEmployee bool) EmployeeAction {
	switch {
	case iqScore >= threshold && hasEmployee:
		return EmployeeActionUpdate
	case iqScore >= threshold:
		return EmployeeActionCreate
	case hasEmployee:
		return EmployeeActionDelete
	default:
		return EmployeeActionNone
	}
}

type employeeSyncRepository interface {
	FindByStudentID(ctx context.Context, exec sqlx.ExtContext, studentID string) (*models.Employee, error)
	Create(ctx context.Context, exec sqlx.ExtContext, employee *models.Employee) error
	UpdateScore(ctx context.Context, exec sqlx.ExtContext, id string, iqScore int) error
	UpdatePlacement(ctx context.Context, exec sqlx.ExtContext, id, schoolID string, iqScore int) error
	DeleteByStudentID(ctx context.Context, exec sqlx.ExtContext, studentID string) error
}

// SyncOutcome describes what a sync call did.
type SyncOutcome struct {
	Action   EmployeeAction
	Employee *models.Employee
}

// EmployeeSyncer keeps the employees table consistent with student iq scores.
// It never manages transactions; callers pass the transaction in exec.
type EmployeeSyncer struct {
	repo      employeeSyncRepository
	threshold int
	logger    *zap.Logger
}

// NewEmployeeSyncer constructs a syncer. A non-positive threshold falls back to DefaultIQThreshold.
func NewEmployeeSyncer(repo employeeSyncRepository, threshold int, logger *zap.Logger) *EmployeeSyncer {
	if threshold <= 0 {
		threshold = DefaultIQThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmployeeSyncer{repo: repo, threshold: threshold, logger: logger}
}

// Threshold returns the configured iq score threshold.
func (s *EmployeeSyncer) Threshold() int {
	return s.threshold
}

// Qualifies reports whether iqScore makes a student an employee.
func (s *EmployeeSyncer) Qualifies(iqScore int) bool {
	return iqScore >= s.threshold
}

// Sync applies at most one employee mutation for student. previous is the score
// before the current write, nil for a new student.
func (s *EmployeeSyncer) Sync(ctx context.Context, exec sqlx.ExtContext, student *models.Student, previous *int, mode SyncMode) (*SyncOutcome, error) {
	existing, err := s.repo.FindByStudentID(ctx, exec, student.ID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("load employee for student %s: %w", student.ID, err)
		}
		existing = nil
	}

	action := DecideEmployeeAction(s.threshold, student.IQScore, existing != nil)
	if action == EmployeeActionCreate && previous != nil && s.Qualifies(*previous) {
		s.logger.Warn("employee record missing for qualifying student, recreating",
			zap.String("student_id", student.ID),
			zap.Int("previous_iq_score", *previous),
		)
	}

	outcome := &SyncOutcome{Action: action, Employee: existing}
	switch action {
	case EmployeeActionCreate:
		employee := &models.Employee{
			StudentID: student.ID,
			SchoolID:  student.SchoolID,
			IQScore:   student.IQScore,
		}
		if err := s.repo.Create(ctx, exec, employee); err != nil {
			return nil, fmt.Errorf("create employee for student %s: %w", student.ID, err)
		}
		outcome.Employee = employee
	case EmployeeActionUpdate:
		if mode == SyncModeImport {
			if err := s.repo.UpdatePlacement(ctx, exec, existing.ID, student.SchoolID, student.IQScore); err != nil {
				return nil, fmt.Errorf("update employee %s: %w", existing.ID, err)
			}
			existing.SchoolID = student.SchoolID
		} else {
			if err := s.repo.UpdateScore(ctx, exec, existing.ID, student.IQScore); err != nil {
				return nil, fmt.Errorf("update employee %s: %w", existing.ID, err)
			}
		}
		existing.IQScore = student.IQScore
	case EmployeeActionDelete:
		if err := s.repo.DeleteByStudentID(ctx, exec, student.ID); err != nil {
			return nil, fmt.Errorf("delete employee for student %s: %w", student.ID, err)
		}
		outcome.Employee = nil
	}

	return outcome, nil
}
