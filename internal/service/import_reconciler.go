package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/intern-tracker-api/internal/dto"
	"github.com/noah-isme/intern-tracker-api/internal/models"
)

// ImportRequiredFields lists the columns every import row must carry, in check order.
var ImportRequiredFields = []string{"school", "roll_no", "branch", "name", "email", "nrc_no", "phone", "major", "year", "iq_score"}

const duplicateRowMessage = "Duplicate data occurred!"

type reconcileSchoolRepository interface {
	FindByNames(ctx context.Context, exec sqlx.ExtContext, names []string) ([]models.School, error)
	Create(ctx context.Context, exec sqlx.ExtContext, school *models.School) error
}

type reconcileStudentRepository interface {
	FindByNrcNo(ctx context.Context, exec sqlx.ExtContext, nrcNo string) (*models.Student, error)
	FindByEmail(ctx context.Context, exec sqlx.ExtContext, email string) (*models.Student, error)
	FindByRollNo(ctx context.Context, exec sqlx.ExtContext, schoolID, year, rollNo string) (*models.Student, error)
	Create(ctx context.Context, exec sqlx.ExtContext, student *models.Student) error
	Update(ctx context.Context, exec sqlx.ExtContext, student *models.Student) error
}

// rowError marks a row-level business failure that skips the row without aborting the batch.
type rowError struct {
	message string
}

func (e *rowError) Error() string { return e.message }

func skipRow(format string, args ...interface{}) error {
	return &rowError{message: fmt.Sprintf(format, args...)}
}

// ImportReconciler applies a batch of student rows against stored students.
// It runs entirely on the executor it is given and never commits or rolls back.
type ImportReconciler struct {
	schools  reconcileSchoolRepository
	students reconcileStudentRepository
	syncer   *EmployeeSyncer
	logger   *zap.Logger
}

// NewImportReconciler constructs the reconciler.
func NewImportReconciler(schools reconcileSchoolRepository, students reconcileStudentRepository, syncer *EmployeeSyncer, logger *zap.Logger) *ImportReconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportReconciler{schools: schools, students: students, syncer: syncer, logger: logger}
}

// Reconcile processes rows in order. Row-level problems land in SkippedRows;
// any storage error is returned so the caller can roll back the whole batch.
func (r *ImportReconciler) Reconcile(ctx context.Context, exec sqlx.ExtContext, rows []dto.ImportRow) (*dto.ImportResult, error) {
	result := &dto.ImportResult{SkippedRows: []dto.SkippedRow{}}

	schoolIDs, created, err := r.resolveSchools(ctx, exec, rows)
	if err != nil {
		return nil, err
	}
	result.SchoolsCreated = created

	for _, row := range rows {
		if err := r.reconcileRow(ctx, exec, row, schoolIDs, result); err != nil {
			var skip *rowError
			if errors.As(err, &skip) {
				result.Skip(row, skip.message)
				continue
			}
			return nil, fmt.Errorf("row %d: %w", row.Number, err)
		}
		result.RowsProcessed++
	}

	result.Success = true
	return result, nil
}

func (r *ImportReconciler) resolveSchools(ctx context.Context, exec sqlx.ExtContext, rows []dto.ImportRow) (map[string]string, int, error) {
	names := make([]string, 0)
	seen := make(map[string]struct{})
	for _, row := range rows {
		name := strings.TrimSpace(row.Values["school"])
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	ids := make(map[string]string, len(names))
	if len(names) == 0 {
		return ids, 0, nil
	}

	existing, err := r.schools.FindByNames(ctx, exec, names)
	if err != nil {
		return nil, 0, fmt.Errorf("resolve schools: %w", err)
	}
	for _, school := range existing {
		ids[school.Name] = school.ID
	}

	created := 0
	for _, name := range names {
		if _, ok := ids[name]; ok {
			continue
		}
		school := &models.School{Name: name, TeacherName: models.DefaultTeacherName}
		if err := r.schools.Create(ctx, exec, school); err != nil {
			return nil, 0, fmt.Errorf("create school %q: %w", name, err)
		}
		ids[name] = school.ID
		created++
		r.logger.Info("school created from import", zap.String("school", name), zap.String("school_id", school.ID))
	}

	return ids, created, nil
}

func (r *ImportReconciler) reconcileRow(ctx context.Context, exec sqlx.ExtContext, row dto.ImportRow, schoolIDs map[string]string, result *dto.ImportResult) error {
	values := make(map[string]string, len(ImportRequiredFields))
	for _, field := range ImportRequiredFields {
		value := strings.TrimSpace(row.Values[field])
		if value == "" {
			return skipRow("Field '%s' is required", field)
		}
		values[field] = value
	}

	schoolID, ok := schoolIDs[values["school"]]
	if !ok {
		return skipRow("School '%s' not found or could not be created", values["school"])
	}

	iqScore, err := ParseIQScore(values["iq_score"])
	if err != nil {
		return skipRow("Field 'iq_score' must be an integer between 0 and 100")
	}

	incoming := &models.Student{
		SchoolID: schoolID,
		RollNo:   values["roll_no"],
		Branch:   values["branch"],
		Name:     values["name"],
		Email:    values["email"],
		NrcNo:    values["nrc_no"],
		Phone:    values["phone"],
		Major:    values["major"],
		Year:     values["year"],
		IQScore:  iqScore,
	}

	byNrc, err := optionalStudent(r.students.FindByNrcNo(ctx, exec, incoming.NrcNo))
	if err != nil {
		return fmt.Errorf("lookup nrc_no: %w", err)
	}
	byEmail, err := optionalStudent(r.students.FindByEmail(ctx, exec, incoming.Email))
	if err != nil {
		return fmt.Errorf("lookup email: %w", err)
	}
	byRollNo, err := optionalStudent(r.students.FindByRollNo(ctx, exec, schoolID, incoming.Year, incoming.RollNo))
	if err != nil {
		return fmt.Errorf("lookup roll_no: %w", err)
	}

	if byNrc != nil && byEmail != nil {
		if byNrc.ID != byEmail.ID {
			return skipRow("NRC number %s and email %s belong to different students", incoming.NrcNo, incoming.Email)
		}
		if byNrc.SameData(incoming) {
			return skipRow(duplicateRowMessage)
		}
	}
	if byRollNo != nil && !sameStudent(byRollNo, byNrc) && !sameStudent(byRollNo, byEmail) {
		return skipRow("roll number %s already exists for school %s in year %s", incoming.RollNo, values["school"], incoming.Year)
	}

	target := byNrc
	if target == nil {
		target = byEmail
	}

	var previous *int
	if target == nil {
		if err := r.students.Create(ctx, exec, incoming); err != nil {
			return fmt.Errorf("create student: %w", err)
		}
		target = incoming
		result.StudentsCreated++
	} else {
		before := target.IQScore
		previous = &before
		incoming.ID = target.ID
		incoming.CreatedAt = target.CreatedAt
		if err := r.students.Update(ctx, exec, incoming); err != nil {
			return fmt.Errorf("update student %s: %w", target.ID, err)
		}
		target = incoming
		result.StudentsUpdated++
	}

	outcome, err := r.syncer.Sync(ctx, exec, target, previous, SyncModeImport)
	if err != nil {
		return err
	}
	switch outcome.Action {
	case EmployeeActionCreate:
		result.EmployeesCreated++
	case EmployeeActionUpdate:
		result.EmployeesUpdated++
	case EmployeeActionDelete:
		result.EmployeesDeleted++
	}
	return nil
}

// ParseIQScore accepts whole numbers in [0, 100], including spreadsheet renderings such as "75.0".
func ParseIQScore(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	score, err := strconv.Atoi(raw)
	if err != nil {
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil || f != math.Trunc(f) || f < 0 || f > 100 {
			return 0, fmt.Errorf("iq_score %q is not an integer between 0 and 100", raw)
		}
		score = int(f)
	}
	if score < 0 || score > 100 {
		return 0, fmt.Errorf("iq_score %d out of range", score)
	}
	return score, nil
}

func optionalStudent(student *models.Student, err error) (*models.Student, error) {
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return student, nil
}

func sameStudent(a, b *models.Student) bool {
	return a != nil && b != nil && a.ID == b.ID
}
