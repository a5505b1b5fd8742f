package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
	AttendanceStatusLate    AttendanceStatus = "late"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusLate:
		return true
	default:
		return false
	}
}

// Attendance is one student's record for one day. Date is YYYY-MM-DD and
// CheckInTime HH:MM:SS.
type Attendance struct {
	ID          string           `db:"id" json:"id"`
	StudentID   string           `db:"student_id" json:"student_id"`
	Date        string           `db:"date" json:"date"`
	Status      AttendanceStatus `db:"status" json:"status"`
	CheckInTime *string          `db:"check_in_time" json:"check_in_time"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceDetail joins the student name for listings.
type AttendanceDetail struct {
	Attendance
	StudentName string `db:"student_name" json:"student_name"`
	RollNo      string `db:"roll_no" json:"roll_no"`
}

// AttendanceFilter captures list parameters. Dates are inclusive.
type AttendanceFilter struct {
	StudentID string
	StartDate string
	EndDate   string
	Status    AttendanceStatus
	Page      int
	PageSize  int
}

// AttendanceRequest creates an attendance record.
type AttendanceRequest struct {
	StudentID   string           `json:"student_id" validate:"required,uuid"`
	Date        string           `json:"date" validate:"required,datetime=2006-01-02"`
	Status      AttendanceStatus `json:"status" validate:"omitempty,oneof=present absent late"`
	CheckInTime *string          `json:"check_in_time" validate:"omitempty,clock"`
}

// AttendanceUpdateRequest edits status and check-in time.
type AttendanceUpdateRequest struct {
	Status      AttendanceStatus `json:"status" validate:"required,oneof=present absent late"`
	CheckInTime *string          `json:"check_in_time" validate:"omitempty,clock"`
}

// AttendanceRangeQuery selects records between two dates.
type AttendanceRangeQuery struct {
	StartDate string `form:"start_date" json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `form:"end_date" json:"end_date" validate:"required,datetime=2006-01-02"`
	StudentID string `form:"student_id" json:"student_id" validate:"omitempty,uuid"`
}
