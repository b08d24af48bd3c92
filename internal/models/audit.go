package models

import "time"

// AuditAction identifies the event recorded in the audit trail.
type AuditAction string

const (
	AuditActionLogin          AuditAction = "LOGIN"
	AuditActionLogout         AuditAction = "LOGOUT"
	AuditActionPasswordChange AuditAction = "PASSWORD_CHANGE"
	AuditActionCodeIssued     AuditAction = "CODE_ISSUED"
	AuditActionCodeRevoked    AuditAction = "CODE_REVOKED"
	AuditActionRegistration   AuditAction = "REGISTRATION"
	AuditActionRecordWrite    AuditAction = "RECORD_WRITE"
	AuditActionUserChange     AuditAction = "USER_CHANGE"
	AuditActionMentorChange   AuditAction = "MENTOR_CHANGE"
)

// AuditLog is an append-only record of security-relevant events.
type AuditLog struct {
	ID         string      `db:"id" json:"id"`
	UserID     *string     `db:"user_id" json:"user_id,omitempty"`
	Action     AuditAction `db:"action" json:"action"`
	Resource   string      `db:"resource" json:"resource"`
	ResourceID *string     `db:"resource_id" json:"resource_id,omitempty"`
	NewValues  []byte      `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string      `db:"ip_address" json:"ip_address"`
	UserAgent  string      `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
}
