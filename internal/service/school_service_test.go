package service

import (
	"context"
	"database/sql"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/intern-tracker-api/internal/models"
	appErrors "github.com/noah-isme/intern-tracker-api/pkg/errors"
	"github.com/noah-isme/intern-tracker-api/pkg/validation"
)

type schoolRepoStub struct {
	memSchoolRepo
	emailsTaken map[string]bool
	deleted     []string
}

func (s *schoolRepoStub) List(_ context.Context, _ models.SchoolFilter) ([]models.SchoolSummary, int, error) {
	out := make([]models.SchoolSummary, 0, len(s.schools))
	for _, school := range s.schools {
		out = append(out, models.SchoolSummary{School: *school, StudentsCount: s.studentsAt(school.ID)})
	}
	return out, len(out), nil
}

func (s *schoolRepoStub) Update(_ context.Context, school *models.School) error {
	clone := *school
	s.schools[school.ID] = &clone
	return nil
}

func (s *schoolRepoStub) Delete(_ context.Context, id string) error {
	if _, ok := s.schools[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.schools, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *schoolRepoStub) TeacherEmailTaken(_ context.Context, email, _ string) (bool, error) {
	return s.emailsTaken[email], nil
}

func (s *schoolRepoStub) NameTaken(_ context.Context, name, excludeID string) (bool, error) {
	for _, school := range s.schools {
		if school.Name == name && school.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (s *schoolRepoStub) CountStudents(_ context.Context, id string) (int, error) {
	return s.studentsAt(id), nil
}

func newSchoolFixture() (*memoryStore, *schoolRepoStub, *recordingAudit, *SchoolService) {
	store := newMemoryStore()
	repo := &schoolRepoStub{memSchoolRepo: memSchoolRepo{store}, emailsTaken: map[string]bool{}}
	audit := &recordingAudit{}
	return store, repo, audit, NewSchoolService(repo, audit, nil, validation.New(), nil)
}

func TestSchoolServiceCreate(t *testing.T) {
	_, _, _, svc := newSchoolFixture()

	school, err := svc.Create(context.Background(), models.SchoolRequest{Name: " NewU ", TeacherName: "Daw Mya", TeacherEmail: "mya@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "NewU", school.Name)
	require.NotNil(t, school.TeacherEmail)
	assert.Equal(t, "mya@example.com", *school.TeacherEmail)
}

func TestSchoolServiceCreateRejectsTakenTeacherEmail(t *testing.T) {
	_, repo, _, svc := newSchoolFixture()
	repo.emailsTaken["mya@example.com"] = true

	_, err := svc.Create(context.Background(), models.SchoolRequest{Name: "NewU", TeacherName: "Daw Mya", TeacherEmail: "mya@example.com"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusConflict, appErr.Status)
	assert.Contains(t, appErr.Details, "teacher_email")
}

func TestSchoolServiceCreateRequiresTeacherEmail(t *testing.T) {
	_, _, _, svc := newSchoolFixture()

	_, err := svc.Create(context.Background(), models.SchoolRequest{Name: "NewU", TeacherName: "Daw Mya"})
	require.Error(t, err)
	assert.Equal(t, []string{"teacher_email is required"}, appErrors.FromError(err).Details["teacher_email"])
}

func TestSchoolServiceDeleteBlockedByStudents(t *testing.T) {
	store, repo, _, svc := newSchoolFixture()
	school := store.addSchool("NewU")
	store.addStudent(models.Student{SchoolID: school.ID})

	err := svc.Delete(context.Background(), nil, school.ID)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusUnprocessableEntity, appErr.Status)
	assert.Equal(t, "Cannot delete school with existing students", appErr.Message)
	assert.Empty(t, repo.deleted)
}

func TestSchoolServiceDeleteEmptySchool(t *testing.T) {
	store, repo, audit, svc := newSchoolFixture()
	school := store.addSchool("Empty")

	require.NoError(t, svc.Delete(context.Background(), &models.JWTClaims{UserID: "admin"}, school.ID))
	assert.Equal(t, []string{school.ID}, repo.deleted)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionSchoolDelete, audit.logs[0].Action)
}

func TestSchoolServiceGetMissing(t *testing.T) {
	_, _, _, svc := newSchoolFixture()
	_, err := svc.Get(context.Background(), "missing")
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)
}
