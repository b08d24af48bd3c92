package models

import "time"

// UserRole represents the available roles for access control.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleMentor  UserRole = "MENTOR"
	RoleStudent UserRole = "STUDENT"
)

// Capability is a named permission granted to roles through the capability
// table below. Route guards query the table through UserRole.Can instead of
// scattering per-role predicates.
type Capability string

const (
	CapManageUsers      Capability = "manage_users"
	CapManageCodes      Capability = "manage_codes"
	CapRecordAttendance Capability = "record_attendance"
	CapRecordScores     Capability = "record_scores"
	CapViewProgress     Capability = "view_progress"
	CapManageMentors    Capability = "manage_mentors"
	CapExportReports    Capability = "export_reports"
)

var roleCapabilities = map[UserRole]map[Capability]struct{}{
	RoleAdmin: {
		CapManageUsers:      {},
		CapManageCodes:      {},
		CapRecordAttendance: {},
		CapRecordScores:     {},
		CapViewProgress:     {},
		CapManageMentors:    {},
		CapExportReports:    {},
	},
	RoleMentor: {
		CapRecordAttendance: {},
		CapRecordScores:     {},
		CapViewProgress:     {},
		CapExportReports:    {},
	},
	RoleStudent: {
		CapViewProgress: {},
	},
}

// Can reports whether the role holds the capability.
func (r UserRole) Can(cap Capability) bool {
	caps, ok := roleCapabilities[r]
	if !ok {
		return false
	}
	_, ok = caps[cap]
	return ok
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// User represents an application user stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	Active       bool       `db:"active" json:"active"`
	MustChangePW bool       `db:"must_change_pw" json:"must_change_pw"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}
