package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionLogin          = "LOGIN"
	AuditActionLogout         = "LOGOUT"
	AuditActionUserCreate     = "USER_CREATE"
	AuditActionUserUpdate     = "USER_UPDATE"
	AuditActionUserDelete     = "USER_DELETE"
	AuditActionPasswordChange = "PASSWORD_CHANGE"
	AuditActionPasswordReset  = "PASSWORD_RESET"
	AuditActionStudentDelete  = "STUDENT_DELETE"
	AuditActionStudentImport  = "STUDENT_IMPORT"
	AuditActionSchoolDelete   = "SCHOOL_DELETE"
	AuditActionStudentExport  = "STUDENT_EXPORT"
)

// Audit resources name the table an entry refers to.
const (
	AuditResourceAuth    = "auth"
	AuditResourceUser    = "users"
	AuditResourceSchool  = "schools"
	AuditResourceStudent = "students"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// ForResource returns an entry for action on resource, pointing at id when it is not empty.
func ForResource(action, resource, id string) *AuditLog {
	entry := &AuditLog{Action: action, Resource: resource}
	if id != "" {
		entry.ResourceID = &id
	}
	return entry
}
