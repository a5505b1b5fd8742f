package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapabilityTable(t *testing.T) {
	cases := []struct {
		role UserRole
		cap  Capability
		want bool
	}{
		{RoleSuperuser, CapManageUsers, true},
		{RoleHRAdmin, CapManageUsers, false},
		{RoleSupervisor, CapManageSchools, true},
		{RoleLeader, CapManageSchools, false},
		{RoleLeader, CapManageStudents, true},
		{RoleLeader, CapManageEmployees, false},
		{RoleLeader, CapManageAttendance, true},
		{UserRole("guest"), CapRead, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Can(tc.role, tc.cap), "%s/%s", tc.role, tc.cap)
	}
	assert.True(t, RoleHRAdmin.Valid())
	assert.False(t, UserRole("SUPERADMIN").Valid())
}

func TestStudentSameDataIgnoresIdentityAndTimestamps(t *testing.T) {
	a := Student{ID: "1", SchoolID: "s", RollNo: "7", Branch: "B", Name: "Aye", Email: "a@x.io", NrcNo: "N1", Phone: "09", Major: "CS", Year: "3", IQScore: 70}
	b := a
	b.ID = "2"
	b.CreatedAt = time.Now()
	assert.True(t, a.SameData(&b))

	b.IQScore = 71
	assert.False(t, a.SameData(&b))
}

func TestPasswordResetTokenExpired(t *testing.T) {
	created := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	tok := PasswordResetToken{CreatedAt: created}
	assert.False(t, tok.Expired(created.Add(59*time.Minute), time.Hour))
	assert.True(t, tok.Expired(created.Add(61*time.Minute), time.Hour))
}

func TestUserIsProtected(t *testing.T) {
	assert.True(t, (&User{Role: RoleSuperuser}).IsProtected())
	assert.False(t, (&User{Role: RoleHRAdmin}).IsProtected())
	var nilUser *User
	assert.False(t, nilUser.IsProtected())
}

func TestForResource(t *testing.T) {
	entry := ForResource(AuditActionStudentExport, AuditResourceStudent, "")
	assert.Equal(t, AuditActionStudentExport, entry.Action)
	assert.Equal(t, AuditResourceStudent, entry.Resource)
	assert.Nil(t, entry.ResourceID)

	entry = ForResource("DELETE", AuditResourceSchool, "s-1")
	require.NotNil(t, entry.ResourceID)
	assert.Equal(t, "s-1", *entry.ResourceID)
}
