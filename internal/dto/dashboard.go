package dto

import "time"

// DashboardSummary aggregates the headline numbers shown on the dashboard.
type DashboardSummary struct {
	Schools          int                  `json:"schools"`
	Students         int                  `json:"students"`
	Employees        int                  `json:"employees"`
	EmployeeRate     float64              `json:"employee_rate"`
	Attendance       AttendanceDaySummary `json:"attendance"`
	StudentsBySchool []SchoolHeadcount    `json:"students_by_school"`
	GeneratedAt      time.Time            `json:"generated_at"`
}

// AttendanceDaySummary counts one day's records by status.
type AttendanceDaySummary struct {
	Date    string `json:"date"`
	Present int    `json:"present"`
	Late    int    `json:"late"`
	Absent  int    `json:"absent"`
}

// SchoolHeadcount is the per-school student and employee split.
type SchoolHeadcount struct {
	SchoolID  string `db:"school_id" json:"school_id"`
	Name      string `db:"name" json:"name"`
	Students  int    `db:"students" json:"students"`
	Employees int    `db:"employees" json:"employees"`
}

// SystemMetrics is a lightweight snapshot of process metrics.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	ImportsTotal             uint64    `json:"imports_total"`
	ImportRowsSkipped        uint64    `json:"import_rows_skipped"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
