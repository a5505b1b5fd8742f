package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/intern-tracker-api/internal/models"
)

const employeeColumns = `id, student_id, school_id, iq_score, jp_level, skill_language, created_at, updated_at`

// EmployeeRepository persists employee records derived from students.
type EmployeeRepository struct {
	db *sqlx.DB
}

// NewEmployeeRepository constructs repository.
func NewEmployeeRepository(db *sqlx.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

func (r *EmployeeRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns employees joined with student and school names.
func (r *EmployeeRepository) List(ctx context.Context, filter models.EmployeeFilter) ([]models.EmployeeDetail, int, error) {
	var conditions []string
	var args []interface{}
	if filter.SchoolID != "" {
		args = append(args, filter.SchoolID)
		conditions = append(conditions, fmt.Sprintf("e.school_id = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(st.name) LIKE $%d OR LOWER(st.email) LIKE $%d)", len(args), len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}
	page, pageSize := models.NormalizePage(filter.Page, filter.PageSize)

	from := ` FROM employees e JOIN students st ON st.id = e.student_id JOIN schools sc ON sc.id = e.school_id`
	query := fmt.Sprintf(`SELECT e.id, e.student_id, e.school_id, e.iq_score, e.jp_level, e.skill_language, e.created_at, e.updated_at,
st.name AS student_name, st.email AS student_email, sc.name AS school_name%s%s ORDER BY e.created_at DESC LIMIT %d OFFSET %d`, from, where, pageSize, (page-1)*pageSize)

	var employees []models.EmployeeDetail
	if err := r.db.SelectContext(ctx, &employees, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list employees: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*)"+from+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count employees: %w", err)
	}
	return employees, total, nil
}

// FindDetail loads one employee with student and school names.
func (r *EmployeeRepository) FindDetail(ctx context.Context, id string) (*models.EmployeeDetail, error) {
	const query = `SELECT e.id, e.student_id, e.school_id, e.iq_score, e.jp_level, e.skill_language, e.created_at, e.updated_at,
st.name AS student_name, st.email AS student_email, sc.name AS school_name
FROM employees e JOIN students st ON st.id = e.student_id JOIN schools sc ON sc.id = e.school_id WHERE e.id = $1`
	var detail models.EmployeeDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find employee: %w", err)
	}
	return &detail, nil
}

// FindByStudentID loads the employee record of a student.
func (r *EmployeeRepository) FindByStudentID(ctx context.Context, exec sqlx.ExtContext, studentID string) (*models.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE student_id = $1 LIMIT 1`
	var employee models.Employee
	if err := sqlx.GetContext(ctx, r.exec(exec), &employee, query, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find employee by student: %w", err)
	}
	return &employee, nil
}

// ListByStudentIDs loads the employee records of the given students.
func (r *EmployeeRepository) ListByStudentIDs(ctx context.Context, studentIDs []string) ([]models.Employee, error) {
	if len(studentIDs) == 0 {
		return nil, nil
	}
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE student_id::text = ANY($1)`
	var employees []models.Employee
	if err := r.db.SelectContext(ctx, &employees, query, pq.Array(studentIDs)); err != nil {
		return nil, fmt.Errorf("list employees by student: %w", err)
	}
	return employees, nil
}

// Create inserts an employee record.
func (r *EmployeeRepository) Create(ctx context.Context, exec sqlx.ExtContext, employee *models.Employee) error {
	if employee.ID == "" {
		employee.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	employee.CreatedAt = now
	employee.UpdatedAt = now

	const query = `INSERT INTO employees (id, student_id, school_id, iq_score, jp_level, skill_language, created_at, updated_at)
VALUES (:id, :student_id, :school_id, :iq_score, :jp_level, :skill_language, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, employee); err != nil {
		return fmt.Errorf("create employee: %w", err)
	}
	return nil
}

// UpdateScore copies a new iq score onto the employee record.
func (r *EmployeeRepository) UpdateScore(ctx context.Context, exec sqlx.ExtContext, id string, iqScore int) error {
	const query = `UPDATE employees SET iq_score = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.exec(exec).ExecContext(ctx, query, iqScore, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update employee score: %w", err)
	}
	return nil
}

// UpdatePlacement copies a new school and iq score onto the employee record.
func (r *EmployeeRepository) UpdatePlacement(ctx context.Context, exec sqlx.ExtContext, id, schoolID string, iqScore int) error {
	const query = `UPDATE employees SET school_id = $1, iq_score = $2, updated_at = $3 WHERE id = $4`
	if _, err := r.exec(exec).ExecContext(ctx, query, schoolID, iqScore, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update employee placement: %w", err)
	}
	return nil
}

// UpdateAttributes edits jp_level and skill_language.
func (r *EmployeeRepository) UpdateAttributes(ctx context.Context, id string, jpLevel, skillLanguage *string) error {
	const query = `UPDATE employees SET jp_level = $1, skill_language = $2, updated_at = $3 WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, jpLevel, skillLanguage, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update employee attributes: %w", err)
	}
	return requireAffected(result, "employee")
}

// Delete removes an employee by identifier.
func (r *EmployeeRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete employee: %w", err)
	}
	return requireAffected(result, "employee")
}

// DeleteByStudentID removes the employee record of a student, if any.
func (r *EmployeeRepository) DeleteByStudentID(ctx context.Context, exec sqlx.ExtContext, studentID string) error {
	if _, err := r.exec(exec).ExecContext(ctx, `DELETE FROM employees WHERE student_id = $1`, studentID); err != nil {
		return fmt.Errorf("delete employee by student: %w", err)
	}
	return nil
}

func requireAffected(result sql.Result, entity string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", entity, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
