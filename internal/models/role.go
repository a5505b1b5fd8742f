package models

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleSuperuser  UserRole = "superuser"
	RoleHRAdmin    UserRole = "hr_admin"
	RoleSupervisor UserRole = "supervisor"
	RoleLeader     UserRole = "leader"
)

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	_, ok := roleCapabilities[r]
	return ok
}

// Capability names an action gated by role.
type Capability string

const (
	CapManageUsers      Capability = "users:manage"
	CapManageSchools    Capability = "schools:manage"
	CapManageStudents   Capability = "students:manage"
	CapManageEmployees  Capability = "employees:manage"
	CapManageAttendance Capability = "attendance:manage"
	CapRead             Capability = "read"
)

var roleCapabilities = map[UserRole]map[Capability]struct{}{
	RoleSuperuser:  capSet(CapManageUsers, CapManageSchools, CapManageStudents, CapManageEmployees, CapManageAttendance, CapRead),
	RoleHRAdmin:    capSet(CapManageSchools, CapManageStudents, CapManageEmployees, CapManageAttendance, CapRead),
	RoleSupervisor: capSet(CapManageSchools, CapManageStudents, CapManageEmployees, CapManageAttendance, CapRead),
	RoleLeader:     capSet(CapManageStudents, CapManageAttendance, CapRead),
}

func capSet(caps ...Capability) map[Capability]struct{} {
	set := make(map[Capability]struct{}, len(caps))
	for _, c := range caps {
		set[c] = struct{}{}
	}
	return set
}

// Can reports whether role grants capability.
func Can(role UserRole, capability Capability) bool {
	_, ok := roleCapabilities[role][capability]
	return ok
}
