package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/intern-tracker-api/internal/dto"
)

// DashboardTotals are the raw headline counts.
type DashboardTotals struct {
	Schools   int `db:"schools"`
	Students  int `db:"students"`
	Employees int `db:"employees"`
}

// DashboardRepository runs the aggregate queries behind the dashboard.
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository constructs repository.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// Totals counts schools, students and employees.
func (r *DashboardRepository) Totals(ctx context.Context) (DashboardTotals, error) {
	const query = `SELECT (SELECT COUNT(*) FROM schools) AS schools,
(SELECT COUNT(*) FROM students) AS students,
(SELECT COUNT(*) FROM employees) AS employees`
	var totals DashboardTotals
	if err := r.db.GetContext(ctx, &totals, query); err != nil {
		return DashboardTotals{}, fmt.Errorf("dashboard totals: %w", err)
	}
	return totals, nil
}

// AttendanceByStatus counts the records of one day per status.
func (r *DashboardRepository) AttendanceByStatus(ctx context.Context, date string) (map[string]int, error) {
	const query = `SELECT status, COUNT(*) AS total FROM attendences WHERE date = $1 GROUP BY status`
	var rows []struct {
		Status string `db:"status"`
		Total  int    `db:"total"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, date); err != nil {
		return nil, fmt.Errorf("dashboard attendance: %w", err)
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

// HeadcountBySchool returns student and employee counts per school.
func (r *DashboardRepository) HeadcountBySchool(ctx context.Context) ([]dto.SchoolHeadcount, error) {
	const query = `SELECT sc.id AS school_id, sc.name,
(SELECT COUNT(*) FROM students st WHERE st.school_id = sc.id) AS students,
(SELECT COUNT(*) FROM employees e WHERE e.school_id = sc.id) AS employees
FROM schools sc ORDER BY sc.name`
	var rows []dto.SchoolHeadcount
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("dashboard headcount: %w", err)
	}
	return rows, nil
}
