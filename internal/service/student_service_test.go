package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/intern-tracker-api/internal/models"
	appErrors "github.com/noah-isme/intern-tracker-api/pkg/errors"
	"github.com/noah-isme/intern-tracker-api/pkg/validation"
)

type recordingAudit struct {
	logs []models.AuditLog
}

func (r *recordingAudit) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	r.logs = append(r.logs, *log)
	return nil
}

type studentFixture struct {
	store  *memoryStore
	mock   sqlmock.Sqlmock
	audit  *recordingAudit
	svc    *StudentService
	school *models.School
}

func newStudentFixture(t *testing.T) *studentFixture {
	t.Helper()
	store := newMemoryStore()
	db, mock := newTxProviderMock(t)
	audit := &recordingAudit{}
	svc := NewStudentService(StudentServiceParams{
		DB:         db,
		Students:   memStudentRepo{store},
		Schools:    memSchoolRepo{store},
		Employees:  memEmployeeRepo{store},
		Attendance: memAttendanceRepo{store},
		Syncer:     NewEmployeeSyncer(memEmployeeRepo{store}, 60, nil),
		Audit:      audit,
		Validator:  validation.New(),
	})
	school := store.addSchool("NewU")
	school.ID = "6f1c1b5e-7a43-4d1e-9a55-2f0a7f5c9d10"
	store.schools = map[string]*models.School{school.ID: school}
	return &studentFixture{store: store, mock: mock, audit: audit, svc: svc, school: school}
}

func (f *studentFixture) request(iq int) models.StudentRequest {
	return models.StudentRequest{
		SchoolID: f.school.ID,
		RollNo:   "R-1",
		Branch:   "Yangon",
		Name:     "Aye Aye",
		Email:    "aye@example.com",
		NrcNo:    "12/ABC(N)000001",
		Phone:    "0911111111",
		Major:    "CS",
		Year:     "2026",
		IQScore:  intPtr(iq),
	}
}

func (f *studentFixture) expectCommit() {
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
}

func TestStudentServiceLifecycleKeepsEmployeeInvariant(t *testing.T) {
	f := newStudentFixture(t)
	ctx := context.Background()

	f.expectCommit()
	created, err := f.svc.Create(ctx, f.request(45))
	require.NoError(t, err)
	assert.False(t, created.IsEmployee())
	assert.Equal(t, "NewU", created.SchoolName)
	f.store.assertInvariant(t, 60)

	f.expectCommit()
	updated, err := f.svc.Update(ctx, created.ID, f.request(75))
	require.NoError(t, err)
	require.True(t, updated.IsEmployee())
	assert.Nil(t, updated.Employee.JPLevel)
	f.store.assertInvariant(t, 60)

	level := "N2"
	f.store.employeeFor(created.ID).JPLevel = &level

	f.expectCommit()
	updated, err = f.svc.Update(ctx, created.ID, f.request(30))
	require.NoError(t, err)
	assert.False(t, updated.IsEmployee())
	f.store.assertInvariant(t, 60)

	f.expectCommit()
	updated, err = f.svc.Update(ctx, created.ID, f.request(80))
	require.NoError(t, err)
	require.True(t, updated.IsEmployee())
	assert.Nil(t, updated.Employee.JPLevel)
	assert.Equal(t, 80, f.store.employeeFor(created.ID).IQScore)
	f.store.assertInvariant(t, 60)

	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestStudentServiceUpdateAboveThresholdOnlyTouchesScore(t *testing.T) {
	f := newStudentFixture(t)
	ctx := context.Background()

	f.expectCommit()
	created, err := f.svc.Create(ctx, f.request(65))
	require.NoError(t, err)
	skill := "Go"
	f.store.employeeFor(created.ID).SkillLanguage = &skill

	f.expectCommit()
	_, err = f.svc.Update(ctx, created.ID, f.request(90))
	require.NoError(t, err)

	employee := f.store.employeeFor(created.ID)
	assert.Equal(t, 90, employee.IQScore)
	require.NotNil(t, employee.SkillLanguage)
	assert.Equal(t, "Go", *employee.SkillLanguage)
}

func TestStudentServiceCreateRollsBackWhenEmployeeFails(t *testing.T) {
	f := newStudentFixture(t)
	f.store.fail["employees.create"] = errors.New("employees table locked")

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.Create(context.Background(), f.request(70))
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, appErrors.FromError(err).Status)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestStudentServiceCreateRejectsDuplicates(t *testing.T) {
	f := newStudentFixture(t)
	f.store.addStudent(models.Student{SchoolID: f.school.ID, RollNo: "R-1", Year: "2026", Email: "aye@example.com", NrcNo: "other"})

	_, err := f.svc.Create(context.Background(), f.request(70))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusConflict, appErr.Status)
	assert.Contains(t, appErr.Details, "email")
	assert.Contains(t, appErr.Details, "roll_no")
	assert.NotContains(t, appErr.Details, "nrc_no")
}

func TestStudentServiceCreateValidatesPayload(t *testing.T) {
	f := newStudentFixture(t)
	req := f.request(70)
	req.Email = "not-an-email"
	req.IQScore = intPtr(101)

	_, err := f.svc.Create(context.Background(), req)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusUnprocessableEntity, appErr.Status)
	assert.Equal(t, []string{"email must be a valid email address"}, appErr.Details["email"])
	assert.Equal(t, []string{"iq_score may not be greater than 100"}, appErr.Details["iq_score"])
}

func TestStudentServiceCreateUnknownSchool(t *testing.T) {
	f := newStudentFixture(t)
	req := f.request(70)
	req.SchoolID = "0b6d3a55-1111-4c2d-8e33-9a1b2c3d4e5f"

	_, err := f.svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Details, "school_id")
}

func TestStudentServiceDeleteCascades(t *testing.T) {
	f := newStudentFixture(t)
	ctx := context.Background()

	f.expectCommit()
	created, err := f.svc.Create(ctx, f.request(70))
	require.NoError(t, err)
	f.store.attendance["att-1"] = &models.Attendance{ID: "att-1", StudentID: created.ID}
	f.store.attendance["att-2"] = &models.Attendance{ID: "att-2", StudentID: "someone-else"}

	f.expectCommit()
	require.NoError(t, f.svc.Delete(ctx, &models.JWTClaims{UserID: "admin-1"}, created.ID))

	assert.Empty(t, f.store.students)
	assert.Empty(t, f.store.employees)
	assert.Len(t, f.store.attendance, 1)
	require.Len(t, f.audit.logs, 1)
	assert.Equal(t, models.AuditActionStudentDelete, f.audit.logs[0].Action)
	assert.Equal(t, "admin-1", *f.audit.logs[0].UserID)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestStudentServiceDeleteMissing(t *testing.T) {
	f := newStudentFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	err := f.svc.Delete(context.Background(), nil, "missing")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)
}

func TestStudentServiceGetLoadsEmployee(t *testing.T) {
	f := newStudentFixture(t)
	f.expectCommit()
	created, err := f.svc.Create(context.Background(), f.request(60))
	require.NoError(t, err)

	detail, err := f.svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.True(t, detail.IsEmployee())
	assert.Equal(t, "NewU", detail.SchoolName)

	_, err = f.svc.Get(context.Background(), "missing")
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)
}
