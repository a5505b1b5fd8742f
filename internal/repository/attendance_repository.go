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

// date and time columns are read back as text so they round-trip unchanged.
const attendanceSelect = `SELECT a.id, a.student_id, to_char(a.date, 'YYYY-MM-DD') AS date, a.status,
to_char(a.check_in_time, 'HH24:MI:SS') AS check_in_time, a.created_at, a.updated_at`

// AttendanceRepository persists daily attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

func (r *AttendanceRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns attendance rows with student names, newest date first.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceDetail, int, error) {
	var conditions []string
	var args []interface{}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("a.student_id = $%d", len(args)))
	}
	if filter.StartDate != "" {
		args = append(args, filter.StartDate)
		conditions = append(conditions, fmt.Sprintf("a.date >= $%d", len(args)))
	}
	if filter.EndDate != "" {
		args = append(args, filter.EndDate)
		conditions = append(conditions, fmt.Sprintf("a.date <= $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conditions = append(conditions, fmt.Sprintf("a.status = $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}
	page, pageSize := models.NormalizePage(filter.Page, filter.PageSize)

	from := ` FROM attendences a JOIN students st ON st.id = a.student_id`
	query := fmt.Sprintf(`%s, st.name AS student_name, st.roll_no%s%s ORDER BY a.date DESC, st.name LIMIT %d OFFSET %d`,
		attendanceSelect, from, where, pageSize, (page-1)*pageSize)

	var records []models.AttendanceDetail
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*)"+from+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance: %w", err)
	}
	return records, total, nil
}

// FindByID loads one attendance record.
func (r *AttendanceRepository) FindByID(ctx context.Context, id string) (*models.Attendance, error) {
	query := attendanceSelect + ` FROM attendences a WHERE a.id = $1`
	var record models.Attendance
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find attendance: %w", err)
	}
	return &record, nil
}

// ExistsForDay reports whether the student already has a record on date.
func (r *AttendanceRepository) ExistsForDay(ctx context.Context, studentID, date string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM attendences WHERE student_id = $1 AND date = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, studentID, date); err != nil {
		return false, fmt.Errorf("check attendance day: %w", err)
	}
	return exists, nil
}

// Create inserts an attendance record.
func (r *AttendanceRepository) Create(ctx context.Context, record *models.Attendance) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now

	const query = `INSERT INTO attendences (id, student_id, date, status, check_in_time, created_at, updated_at)
VALUES (:id, :student_id, :date, :status, :check_in_time, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create attendance: %w", err)
	}
	return nil
}

// Update edits the status and check-in time of a record.
func (r *AttendanceRepository) Update(ctx context.Context, record *models.Attendance) error {
	record.UpdatedAt = time.Now().UTC()
	const query = `UPDATE attendences SET status = $1, check_in_time = $2, updated_at = $3 WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, string(record.Status), record.CheckInTime, record.UpdatedAt, record.ID)
	if err != nil {
		return fmt.Errorf("update attendance: %w", err)
	}
	return requireAffected(result, "attendance")
}

// Delete removes one attendance record.
func (r *AttendanceRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM attendences WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	return requireAffected(result, "attendance")
}

// DeleteByStudentID removes every attendance record of a student.
func (r *AttendanceRepository) DeleteByStudentID(ctx context.Context, exec sqlx.ExtContext, studentID string) error {
	if _, err := r.exec(exec).ExecContext(ctx, `DELETE FROM attendences WHERE student_id = $1`, studentID); err != nil {
		return fmt.Errorf("delete attendance by student: %w", err)
	}
	return nil
}
