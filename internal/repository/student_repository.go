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

	"github.com/noah-isme/intern-tracker-api/internal/models"
)

const studentColumns = `id, school_id, roll_no, branch, name, email, nrc_no, phone, major, year, iq_score, created_at, updated_at`

// StudentRepository handles persistence of students.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a new StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

func (r *StudentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

func studentWhere(filter models.StudentFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}
	if filter.SchoolID != "" {
		args = append(args, filter.SchoolID)
		conditions = append(conditions, fmt.Sprintf("s.school_id = $%d", len(args)))
	}
	if filter.Year != "" {
		args = append(args, filter.Year)
		conditions = append(conditions, fmt.Sprintf("s.year = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(LOWER(s.name) LIKE $%d OR LOWER(s.email) LIKE $%d OR LOWER(s.nrc_no) LIKE $%d OR LOWER(s.roll_no) LIKE $%d)", n, n, n, n))
	}
	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// List returns students with school names for the provided filter.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	where, args := studentWhere(filter)

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{"name": true, "roll_no": true, "iq_score": true, "created_at": true, "year": true}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}
	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}
	page, pageSize := models.NormalizePage(filter.Page, filter.PageSize)

	query := fmt.Sprintf(`SELECT s.id, s.school_id, s.roll_no, s.branch, s.name, s.email, s.nrc_no, s.phone, s.major, s.year, s.iq_score, s.created_at, s.updated_at, sc.name AS school_name
FROM students s JOIN schools sc ON sc.id = s.school_id%s ORDER BY s.%s %s LIMIT %d OFFSET %d`, where, sortBy, sortOrder, pageSize, (page-1)*pageSize)

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM students s"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// ListForExport returns every student matching filter with school name and employee flag.
func (r *StudentRepository) ListForExport(ctx context.Context, filter models.StudentFilter) ([]models.StudentExportRow, error) {
	where, args := studentWhere(filter)
	query := `SELECT s.id, s.school_id, s.roll_no, s.branch, s.name, s.email, s.nrc_no, s.phone, s.major, s.year, s.iq_score, s.created_at, s.updated_at,
sc.name AS school_name, (e.id IS NOT NULL) AS is_employee
FROM students s JOIN schools sc ON sc.id = s.school_id LEFT JOIN employees e ON e.student_id = s.id` + where + ` ORDER BY sc.name, s.year, s.roll_no`

	var rows []models.StudentExportRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list students for export: %w", err)
	}
	return rows, nil
}

// FindDetail loads a student with its school name.
func (r *StudentRepository) FindDetail(ctx context.Context, exec sqlx.ExtContext, id string) (*models.StudentDetail, error) {
	const query = `SELECT s.id, s.school_id, s.roll_no, s.branch, s.name, s.email, s.nrc_no, s.phone, s.major, s.year, s.iq_score, s.created_at, s.updated_at, sc.name AS school_name
FROM students s JOIN schools sc ON sc.id = s.school_id WHERE s.id = $1`
	var detail models.StudentDetail
	if err := sqlx.GetContext(ctx, r.exec(exec), &detail, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find student detail: %w", err)
	}
	return &detail, nil
}

// FindByID loads a student by identifier.
func (r *StudentRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Student, error) {
	return r.findOne(ctx, exec, "id = $1", id)
}

// FindByNrcNo loads the student holding the national id.
func (r *StudentRepository) FindByNrcNo(ctx context.Context, exec sqlx.ExtContext, nrcNo string) (*models.Student, error) {
	return r.findOne(ctx, exec, "nrc_no = $1", nrcNo)
}

// FindByEmail loads the student holding the email.
func (r *StudentRepository) FindByEmail(ctx context.Context, exec sqlx.ExtContext, email string) (*models.Student, error) {
	return r.findOne(ctx, exec, "email = $1", email)
}

// FindByRollNo loads the student holding the roll number for a school and year.
func (r *StudentRepository) FindByRollNo(ctx context.Context, exec sqlx.ExtContext, schoolID, year, rollNo string) (*models.Student, error) {
	return r.findOne(ctx, exec, "school_id = $1 AND year = $2 AND roll_no = $3", schoolID, year, rollNo)
}

func (r *StudentRepository) findOne(ctx context.Context, exec sqlx.ExtContext, cond string, args ...interface{}) (*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE ` + cond + ` LIMIT 1`
	var student models.Student
	if err := sqlx.GetContext(ctx, r.exec(exec), &student, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &student, nil
}

// Create inserts a student.
func (r *StudentRepository) Create(ctx context.Context, exec sqlx.ExtContext, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now

	const query = `INSERT INTO students (id, school_id, roll_no, branch, name, email, nrc_no, phone, major, year, iq_score, created_at, updated_at)
VALUES (:id, :school_id, :roll_no, :branch, :name, :email, :nrc_no, :phone, :major, :year, :iq_score, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update overwrites every mutable field of the student.
func (r *StudentRepository) Update(ctx context.Context, exec sqlx.ExtContext, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET school_id = :school_id, roll_no = :roll_no, branch = :branch, name = :name, email = :email,
nrc_no = :nrc_no, phone = :phone, major = :major, year = :year, iq_score = :iq_score, updated_at = :updated_at WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// Delete removes a student. Returns sql.ErrNoRows when nothing was deleted.
func (r *StudentRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	result, err := r.exec(exec).ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("student rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Taken reports whether another student already holds value in column.
// Only email and nrc_no are accepted.
func (r *StudentRepository) Taken(ctx context.Context, column, value, excludeID string) (bool, error) {
	if column != "email" && column != "nrc_no" {
		return false, fmt.Errorf("unsupported unique column %q", column)
	}
	query := `SELECT EXISTS(SELECT 1 FROM students WHERE ` + column + ` = $1 AND id::text <> $2)`
	var taken bool
	if err := r.db.GetContext(ctx, &taken, query, value, excludeID); err != nil {
		return false, fmt.Errorf("check student %s: %w", column, err)
	}
	return taken, nil
}
