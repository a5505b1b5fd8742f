package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/intern-tracker-api/internal/models"
)

// memoryStore backs the fake repositories below with shared maps so tests can
// check cross-table invariants. Executors are ignored.
type memoryStore struct {
	schools    map[string]*models.School
	students   map[string]*models.Student
	employees  map[string]*models.Employee
	attendance map[string]*models.Attendance
	seq        int
	fail       map[string]error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		schools:    map[string]*models.School{},
		students:   map[string]*models.Student{},
		employees:  map[string]*models.Employee{},
		attendance: map[string]*models.Attendance{},
		fail:       map[string]error{},
	}
}

func (m *memoryStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memoryStore) employeeFor(studentID string) *models.Employee {
	for _, e := range m.employees {
		if e.StudentID == studentID {
			return e
		}
	}
	return nil
}

func (m *memoryStore) studentsAt(schoolID string) int {
	count := 0
	for _, s := range m.students {
		if s.SchoolID == schoolID {
			count++
		}
	}
	return count
}

func (m *memoryStore) addSchool(name string) *models.School {
	school := &models.School{ID: m.nextID("school"), Name: name, TeacherName: "T"}
	m.schools[school.ID] = school
	return school
}

func (m *memoryStore) addStudent(s models.Student) *models.Student {
	if s.ID == "" {
		s.ID = m.nextID("student")
	}
	m.students[s.ID] = &s
	return &s
}

// assertInvariant fails when any student's employee presence disagrees with its score.
func (m *memoryStore) assertInvariant(t *testing.T, threshold int) {
	t.Helper()
	for _, s := range m.students {
		has := m.employeeFor(s.ID) != nil
		require.Equalf(t, s.IQScore >= threshold, has, "student %s iq=%d employee=%v", s.ID, s.IQScore, has)
	}
	for _, e := range m.employees {
		_, ok := m.students[e.StudentID]
		require.Truef(t, ok, "employee %s references missing student %s", e.ID, e.StudentID)
	}
}

type memSchoolRepo struct{ *memoryStore }

func (r memSchoolRepo) FindByNames(_ context.Context, _ sqlx.ExtContext, names []string) ([]models.School, error) {
	if err := r.fail["schools.find"]; err != nil {
		return nil, err
	}
	var out []models.School
	for _, name := range names {
		for _, s := range r.schools {
			if s.Name == name {
				out = append(out, *s)
			}
		}
	}
	return out, nil
}

func (r memSchoolRepo) FindByID(_ context.Context, _ sqlx.ExtContext, id string) (*models.School, error) {
	s, ok := r.schools[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *s
	return &clone, nil
}

func (r memSchoolRepo) Create(_ context.Context, _ sqlx.ExtContext, school *models.School) error {
	if err := r.fail["schools.create"]; err != nil {
		return err
	}
	school.ID = r.nextID("school")
	clone := *school
	r.schools[school.ID] = &clone
	return nil
}

type memStudentRepo struct{ *memoryStore }

func (r memStudentRepo) find(match func(*models.Student) bool) (*models.Student, error) {
	for _, s := range r.students {
		if match(s) {
			clone := *s
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r memStudentRepo) FindByID(_ context.Context, _ sqlx.ExtContext, id string) (*models.Student, error) {
	return r.find(func(s *models.Student) bool { return s.ID == id })
}

func (r memStudentRepo) FindDetail(_ context.Context, _ sqlx.ExtContext, id string) (*models.StudentDetail, error) {
	s, err := r.find(func(s *models.Student) bool { return s.ID == id })
	if err != nil {
		return nil, err
	}
	detail := &models.StudentDetail{Student: *s}
	if school, ok := r.schools[s.SchoolID]; ok {
		detail.SchoolName = school.Name
	}
	return detail, nil
}

func (r memStudentRepo) FindByNrcNo(_ context.Context, _ sqlx.ExtContext, nrcNo string) (*models.Student, error) {
	if err := r.fail["students.find"]; err != nil {
		return nil, err
	}
	return r.find(func(s *models.Student) bool { return s.NrcNo == nrcNo })
}

func (r memStudentRepo) FindByEmail(_ context.Context, _ sqlx.ExtContext, email string) (*models.Student, error) {
	return r.find(func(s *models.Student) bool { return s.Email == email })
}

func (r memStudentRepo) FindByRollNo(_ context.Context, _ sqlx.ExtContext, schoolID, year, rollNo string) (*models.Student, error) {
	return r.find(func(s *models.Student) bool {
		return s.SchoolID == schoolID && s.Year == year && s.RollNo == rollNo
	})
}

func (r memStudentRepo) Taken(_ context.Context, column, value, excludeID string) (bool, error) {
	_, err := r.find(func(s *models.Student) bool {
		if s.ID == excludeID {
			return false
		}
		if column == "email" {
			return s.Email == value
		}
		return s.NrcNo == value
	})
	return err == nil, nil
}

func (r memStudentRepo) List(_ context.Context, _ models.StudentFilter) ([]models.StudentDetail, int, error) {
	out := make([]models.StudentDetail, 0, len(r.students))
	for _, s := range r.students {
		out = append(out, models.StudentDetail{Student: *s})
	}
	return out, len(out), nil
}

func (r memStudentRepo) Create(_ context.Context, _ sqlx.ExtContext, student *models.Student) error {
	if err := r.fail["students.create"]; err != nil {
		return err
	}
	student.ID = r.nextID("student")
	student.CreatedAt = time.Now().UTC()
	student.UpdatedAt = student.CreatedAt
	clone := *student
	r.students[student.ID] = &clone
	return nil
}

func (r memStudentRepo) Update(_ context.Context, _ sqlx.ExtContext, student *models.Student) error {
	if err := r.fail["students.update"]; err != nil {
		return err
	}
	if _, ok := r.students[student.ID]; !ok {
		return sql.ErrNoRows
	}
	clone := *student
	r.students[student.ID] = &clone
	return nil
}

func (r memStudentRepo) Delete(_ context.Context, _ sqlx.ExtContext, id string) error {
	if _, ok := r.students[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.students, id)
	return nil
}

type memEmployeeRepo struct{ *memoryStore }

func (r memEmployeeRepo) FindByStudentID(_ context.Context, _ sqlx.ExtContext, studentID string) (*models.Employee, error) {
	if e := r.employeeFor(studentID); e != nil {
		clone := *e
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (r memEmployeeRepo) ListByStudentIDs(_ context.Context, studentIDs []string) ([]models.Employee, error) {
	var out []models.Employee
	for _, id := range studentIDs {
		if e := r.employeeFor(id); e != nil {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (r memEmployeeRepo) Create(_ context.Context, _ sqlx.ExtContext, employee *models.Employee) error {
	if err := r.fail["employees.create"]; err != nil {
		return err
	}
	employee.ID = r.nextID("employee")
	clone := *employee
	r.employees[employee.ID] = &clone
	return nil
}

func (r memEmployeeRepo) UpdateScore(_ context.Context, _ sqlx.ExtContext, id string, iqScore int) error {
	e, ok := r.employees[id]
	if !ok {
		return sql.ErrNoRows
	}
	e.IQScore = iqScore
	return nil
}

func (r memEmployeeRepo) UpdatePlacement(_ context.Context, _ sqlx.ExtContext, id, schoolID string, iqScore int) error {
	e, ok := r.employees[id]
	if !ok {
		return sql.ErrNoRows
	}
	e.SchoolID = schoolID
	e.IQScore = iqScore
	return nil
}

func (r memEmployeeRepo) DeleteByStudentID(_ context.Context, _ sqlx.ExtContext, studentID string) error {
	if err := r.fail["employees.delete"]; err != nil {
		return err
	}
	for id, e := range r.employees {
		if e.StudentID == studentID {
			delete(r.employees, id)
		}
	}
	return nil
}

type memAttendanceRepo struct{ *memoryStore }

func (r memAttendanceRepo) DeleteByStudentID(_ context.Context, _ sqlx.ExtContext, studentID string) error {
	for id, a := range r.attendance {
		if a.StudentID == studentID {
			delete(r.attendance, id)
		}
	}
	return nil
}

func (r memAttendanceRepo) List(_ context.Context, filter models.AttendanceFilter) ([]models.AttendanceDetail, int, error) {
	var out []models.AttendanceDetail
	for _, a := range r.attendance {
		if filter.StudentID != "" && a.StudentID != filter.StudentID {
			continue
		}
		if (filter.StartDate != "" && a.Date < filter.StartDate) || (filter.EndDate != "" && a.Date > filter.EndDate) {
			continue
		}
		detail := models.AttendanceDetail{Attendance: *a}
		if s, ok := r.students[a.StudentID]; ok {
			detail.StudentName = s.Name
			detail.RollNo = s.RollNo
		}
		out = append(out, detail)
	}
	return out, len(out), nil
}

func (r memAttendanceRepo) FindByID(_ context.Context, id string) (*models.Attendance, error) {
	a, ok := r.attendance[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *a
	return &clone, nil
}

func (r memAttendanceRepo) ExistsForDay(_ context.Context, studentID, date string) (bool, error) {
	for _, a := range r.attendance {
		if a.StudentID == studentID && a.Date == date {
			return true, nil
		}
	}
	return false, nil
}

func (r memAttendanceRepo) Create(_ context.Context, record *models.Attendance) error {
	record.ID = r.nextID("attendance")
	now := time.Now().UTC()
	record.CreatedAt, record.UpdatedAt = now, now
	clone := *record
	r.attendance[record.ID] = &clone
	return nil
}

func (r memAttendanceRepo) Update(_ context.Context, record *models.Attendance) error {
	if _, ok := r.attendance[record.ID]; !ok {
		return sql.ErrNoRows
	}
	clone := *record
	r.attendance[record.ID] = &clone
	return nil
}

func (r memAttendanceRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.attendance[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.attendance, id)
	return nil
}

func newTxProviderMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func intPtr(v int) *int { return &v }
