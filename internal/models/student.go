package models

import "time"

// Student represents an intern candidate registered under a school.
type Student struct {
	ID        string    `db:"id" json:"id"`
	SchoolID  string    `db:"school_id" json:"school_id"`
	RollNo    string    `db:"roll_no" json:"roll_no"`
	Branch    string    `db:"branch" json:"branch"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	NrcNo     string    `db:"nrc_no" json:"nrc_no"`
	Phone     string    `db:"phone" json:"phone"`
	Major     string    `db:"major" json:"major"`
	Year      string    `db:"year" json:"year"`
	IQScore   int       `db:"iq_score" json:"iq_score"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SameData reports whether every user-supplied field of s equals other.
func (s *Student) SameData(other *Student) bool {
	return s.SchoolID == other.SchoolID &&
		s.RollNo == other.RollNo &&
		s.Branch == other.Branch &&
		s.Name == other.Name &&
		s.Email == other.Email &&
		s.NrcNo == other.NrcNo &&
		s.Phone == other.Phone &&
		s.Major == other.Major &&
		s.Year == other.Year &&
		s.IQScore == other.IQScore
}

// StudentDetail is a student with its school name and employee record.
type StudentDetail struct {
	Student
	SchoolName string    `db:"school_name" json:"school_name"`
	Employee   *Employee `db:"-" json:"employee"`
}

// IsEmployee reports whether an employee record is attached.
func (d *StudentDetail) IsEmployee() bool {
	return d.Employee != nil
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	SchoolID  string
	Year      string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// StudentRequest is the create/update payload for a student.
type StudentRequest struct {
	SchoolID string `json:"school_id" validate:"required,uuid"`
	RollNo   string `json:"roll_no" validate:"required,max=50"`
	Branch   string `json:"branch" validate:"required,max=100"`
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	NrcNo    string `json:"nrc_no" validate:"required,max=100"`
	Phone    string `json:"phone" validate:"required,max=20"`
	Major    string `json:"major" validate:"required,max=100"`
	Year     string `json:"year" validate:"required,max=50"`
	IQScore  *int   `json:"iq_score" validate:"required,min=0,max=100"`
}

// Apply copies the request fields onto s.
func (r *StudentRequest) Apply(s *Student) {
	s.SchoolID = r.SchoolID
	s.RollNo = r.RollNo
	s.Branch = r.Branch
	s.Name = r.Name
	s.Email = r.Email
	s.NrcNo = r.NrcNo
	s.Phone = r.Phone
	s.Major = r.Major
	s.Year = r.Year
	if r.IQScore != nil {
		s.IQScore = *r.IQScore
	}
}

// StudentExportRow is the flattened shape written to roster exports.
type StudentExportRow struct {
	Student
	SchoolName string `db:"school_name"`
	IsEmployee bool   `db:"is_employee"`
}
