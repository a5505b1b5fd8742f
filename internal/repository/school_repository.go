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

const schoolColumns = `id, name, teacher_name, teacher_email, created_at, updated_at`

// SchoolRepository persists partner schools.
type SchoolRepository struct {
	db *sqlx.DB
}

// NewSchoolRepository constructs repository.
func NewSchoolRepository(db *sqlx.DB) *SchoolRepository {
	return &SchoolRepository{db: db}
}

func (r *SchoolRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns schools with roster counts, newest first.
func (r *SchoolRepository) List(ctx context.Context, filter models.SchoolFilter) ([]models.SchoolSummary, int, error) {
	where := ""
	var args []interface{}
	if filter.Search != "" {
		where = " WHERE LOWER(s.name) LIKE $1 OR LOWER(s.teacher_name) LIKE $1"
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	page, pageSize := models.NormalizePage(filter.Page, filter.PageSize)

	listQuery := fmt.Sprintf(`SELECT s.id, s.name, s.teacher_name, s.teacher_email, s.created_at, s.updated_at,
(SELECT COUNT(*) FROM students st WHERE st.school_id = s.id) AS students_count,
(SELECT COUNT(*) FROM employees e WHERE e.school_id = s.id) AS employees_count
FROM schools s%s ORDER BY s.created_at DESC LIMIT %d OFFSET %d`, where, pageSize, (page-1)*pageSize)

	var schools []models.SchoolSummary
	if err := r.db.SelectContext(ctx, &schools, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list schools: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM schools s"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count schools: %w", err)
	}
	return schools, total, nil
}

// FindByID loads a school by identifier.
func (r *SchoolRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.School, error) {
	query := `SELECT ` + schoolColumns + ` FROM schools WHERE id = $1`
	var school models.School
	if err := sqlx.GetContext(ctx, r.exec(exec), &school, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find school: %w", err)
	}
	return &school, nil
}

// FindByNames returns the schools whose name exactly matches one of names.
func (r *SchoolRepository) FindByNames(ctx context.Context, exec sqlx.ExtContext, names []string) ([]models.School, error) {
	if len(names) == 0 {
		return nil, nil
	}
	query := `SELECT ` + schoolColumns + ` FROM schools WHERE name = ANY($1)`
	var schools []models.School
	if err := sqlx.SelectContext(ctx, r.exec(exec), &schools, query, pq.Array(names)); err != nil {
		return nil, fmt.Errorf("find schools by name: %w", err)
	}
	return schools, nil
}

// Create inserts a school.
func (r *SchoolRepository) Create(ctx context.Context, exec sqlx.ExtContext, school *models.School) error {
	if school.ID == "" {
		school.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	school.CreatedAt = now
	school.UpdatedAt = now

	const query = `INSERT INTO schools (id, name, teacher_name, teacher_email, created_at, updated_at)
VALUES (:id, :name, :teacher_name, :teacher_email, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, school); err != nil {
		return fmt.Errorf("create school: %w", err)
	}
	return nil
}

// Update persists the mutable fields of a school.
func (r *SchoolRepository) Update(ctx context.Context, school *models.School) error {
	school.UpdatedAt = time.Now().UTC()
	const query = `UPDATE schools SET name = :name, teacher_name = :teacher_name, teacher_email = :teacher_email, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, school); err != nil {
		return fmt.Errorf("update school: %w", err)
	}
	return nil
}

// Delete removes a school. Returns sql.ErrNoRows when nothing was deleted.
func (r *SchoolRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM schools WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete school: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("school rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// TeacherEmailTaken reports whether another school already uses email.
func (r *SchoolRepository) TeacherEmailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM schools WHERE teacher_email = $1 AND id::text <> $2)`
	var taken bool
	if err := r.db.GetContext(ctx, &taken, query, email, excludeID); err != nil {
		return false, fmt.Errorf("check teacher email: %w", err)
	}
	return taken, nil
}

// NameTaken reports whether another school already uses name.
func (r *SchoolRepository) NameTaken(ctx context.Context, name, excludeID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM schools WHERE name = $1 AND id::text <> $2)`
	var taken bool
	if err := r.db.GetContext(ctx, &taken, query, name, excludeID); err != nil {
		return false, fmt.Errorf("check school name: %w", err)
	}
	return taken, nil
}

// CountStudents returns how many students belong to the school.
func (r *SchoolRepository) CountStudents(ctx context.Context, id string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM students WHERE school_id = $1`, id); err != nil {
		return 0, fmt.Errorf("count school students: %w", err)
	}
	return count, nil
}
