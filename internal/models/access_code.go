package models

import "time"

// CodeType distinguishes registration invites from weekly verification codes.
type CodeType string

const (
	CodeTypeInvite CodeType = "INVITE"
	CodeTypeWeekly CodeType = "WEEKLY"
)

// Valid returns true when the code type is supported.
func (t CodeType) Valid() bool {
	return t == CodeTypeInvite || t == CodeTypeWeekly
}

// Reasons an access code fails validation, in priority order.
const (
	CodeReasonRevoked      = "revoked"
	CodeReasonExpired      = "expired"
	CodeReasonMaximumUsage = "maximum usage"
)

// AccessCode is a time-boxed, usage-capped token gating a self-service
// action. MaxUses == 0 means unlimited. UsageCount only increases and is
// mutated by the repository after a successful validation, never by
// Validate itself.
type AccessCode struct {
	ID         string     `db:"id" json:"id"`
	Code       string     `db:"code" json:"code"`
	Type       CodeType   `db:"code_type" json:"code_type"`
	IsActive   bool       `db:"is_active" json:"is_active"`
	ExpiresAt  *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	MaxUses    int        `db:"max_uses" json:"max_uses"`
	UsageCount int        `db:"usage_count" json:"usage_count"`
	CreatedBy  *string    `db:"created_by" json:"created_by,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// CodeValidationResult reports the outcome of validating an access code.
// Reason is set iff Valid is false.
type CodeValidationResult struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// Validate evaluates the code against the fixed-priority rule chain,
// short-circuiting at the first failing check. The order is load-bearing:
// a code that is both revoked and expired reports "revoked", never
// "expired". Validation is read-only.
func (c AccessCode) Validate(now time.Time) CodeValidationResult {
	if !c.IsActive {
		return CodeValidationResult{Reason: CodeReasonRevoked}
	}
	if c.ExpiresAt != nil && c.ExpiresAt.Before(now) {
		return CodeValidationResult{Reason: CodeReasonExpired}
	}
	if c.MaxUses > 0 && c.UsageCount >= c.MaxUses {
		return CodeValidationResult{Reason: CodeReasonMaximumUsage}
	}
	return CodeValidationResult{Valid: true}
}
