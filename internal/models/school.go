package models

import "time"

// DefaultTeacherName is assigned to schools created implicitly by an import.
const DefaultTeacherName = "Default Teacher"

// School is a partner institution students are enrolled at.
type School struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	TeacherName  string    `db:"teacher_name" json:"teacher_name"`
	TeacherEmail *string   `db:"teacher_email" json:"teacher_email"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// SchoolSummary adds roster counts for listings.
type SchoolSummary struct {
	School
	StudentsCount  int `db:"students_count" json:"students_count"`
	EmployeesCount int `db:"employees_count" json:"employees_count"`
}

// SchoolFilter captures list parameters for schools.
type SchoolFilter struct {
	Search   string
	Page     int
	PageSize int
}

// SchoolRequest is the create/update payload for a school.
type SchoolRequest struct {
	Name         string `json:"name" validate:"required,max=255"`
	TeacherName  string `json:"teacher_name" validate:"required,max=255"`
	TeacherEmail string `json:"teacher_email" validate:"required,email,max=255"`
}
