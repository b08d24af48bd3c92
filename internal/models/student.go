package models

import "time"

// StudentStatus tracks a student's standing in the program.
type StudentStatus string

const (
	StudentStatusActive    StudentStatus = "ACTIVE"
	StudentStatusGraduated StudentStatus = "GRADUATED"
	StudentStatusWithdrawn StudentStatus = "WITHDRAWN"
)

// Student is a program participant.
type Student struct {
	ID         string        `db:"id" json:"id"`
	UserID     string        `db:"user_id" json:"user_id"`
	ProgramID  string        `db:"program_id" json:"program_id"`
	FullName   string        `db:"full_name" json:"full_name"`
	CohortYear int           `db:"cohort_year" json:"cohort_year"`
	Status     StudentStatus `db:"status" json:"status"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time     `db:"updated_at" json:"updated_at"`
}

// Mentor guides a group of students through the program.
type Mentor struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	FullName  string    `db:"full_name" json:"full_name"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// MentorAssignment links a student to a mentor for a period. A student has
// at most one active assignment; ended assignments are kept as history.
type MentorAssignment struct {
	ID        string     `db:"id" json:"id"`
	MentorID  string     `db:"mentor_id" json:"mentor_id"`
	StudentID string     `db:"student_id" json:"student_id"`
	StartedAt time.Time  `db:"started_at" json:"started_at"`
	EndedAt   *time.Time `db:"ended_at" json:"ended_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// StudentMentorView is a student's current assignment joined with the mentor
// name.
type StudentMentorView struct {
	Assignment MentorAssignment `json:"assignment"`
	MentorName string           `json:"mentor_name"`
}

// MentorAssignmentDetail joins the assignment with student metadata.
type MentorAssignmentDetail struct {
	MentorAssignment
	StudentName   string        `db:"student_name" json:"student_name"`
	StudentStatus StudentStatus `db:"student_status" json:"student_status"`
}
