package models

// RegisterRequest is the self-service onboarding payload. The invite code
// gates the whole operation.
type RegisterRequest struct {
	InviteCode string `json:"invite_code" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	FullName   string `json:"full_name" validate:"required,min=2"`
	ProgramID  string `json:"program_id" validate:"required"`
	CohortYear int    `json:"cohort_year" validate:"required,gte=2000"`
	IP         string `json:"-"`
	UserAgent  string `json:"-"`
}

// RegisterResponse returns the created identities and the one-time
// temporary password. The password is never retrievable again.
type RegisterResponse struct {
	UserID            string `json:"user_id"`
	StudentID         string `json:"student_id"`
	Email             string `json:"email"`
	TemporaryPassword string `json:"temporary_password"`
}

// WeeklyCheckInRequest marks a supplemental-class week through a weekly
// access code.
type WeeklyCheckInRequest struct {
	Code string `json:"code" validate:"required"`
	Year int    `json:"year" validate:"required,gte=2000"`
	Week int    `json:"week" validate:"required,gte=1,lte=53"`
}
