package models

import "time"

// Employee is the record kept for students whose iq score reached the threshold.
type Employee struct {
	ID            string    `db:"id" json:"id"`
	StudentID     string    `db:"student_id" json:"student_id"`
	SchoolID      string    `db:"school_id" json:"school_id"`
	IQScore       int       `db:"iq_score" json:"iq_score"`
	JPLevel       *string   `db:"jp_level" json:"jp_level"`
	SkillLanguage *string   `db:"skill_language" json:"skill_language"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// EmployeeDetail joins the student and school names for listings.
type EmployeeDetail struct {
	Employee
	StudentName  string `db:"student_name" json:"student_name"`
	StudentEmail string `db:"student_email" json:"student_email"`
	SchoolName   string `db:"school_name" json:"school_name"`
}

// EmployeeFilter captures list parameters for employees.
type EmployeeFilter struct {
	Search   string
	SchoolID string
	Page     int
	PageSize int
}

// EmployeeUpdateRequest edits the attributes the sync rule never touches.
type EmployeeUpdateRequest struct {
	JPLevel       *string `json:"jp_level" validate:"omitempty,max=50"`
	SkillLanguage *string `json:"skill_language" validate:"omitempty,max=255"`
}
