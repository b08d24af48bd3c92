package models

import "time"

// WeeklyStatus represents the outcome recorded for one supplemental week.
// There is no LATE concept for weekly classes; a REJECTED check-in counts
// against the student exactly like an absence.
type WeeklyStatus string

const (
	WeeklyStatusPresent  WeeklyStatus = "PRESENT"
	WeeklyStatusExcused  WeeklyStatus = "EXCUSED"
	WeeklyStatusAbsent   WeeklyStatus = "ABSENT"
	WeeklyStatusRejected WeeklyStatus = "REJECTED"
)

// Valid returns true when the status is a supported value.
func (s WeeklyStatus) Valid() bool {
	switch s {
	case WeeklyStatusPresent, WeeklyStatusExcused, WeeklyStatusAbsent, WeeklyStatusRejected:
		return true
	default:
		return false
	}
}

// WeeklyCounts tallies supplemental-class weeks per bucket.
type WeeklyCounts struct {
	Present  int `json:"present"`
	Excused  int `json:"excused"`
	Absent   int `json:"absent"`
	Rejected int `json:"rejected"`
}

// Total returns the number of recorded weeks.
func (c WeeklyCounts) Total() int {
	return c.Present + c.Excused + c.Absent + c.Rejected
}

// Countable returns the weeks contributing to the percentage.
func (c WeeklyCounts) Countable() int {
	return c.Total() - c.Excused
}

// MarkWeeklyRequest is the staff-facing payload for setting one
// student-week directly, bypassing the code flow.
type MarkWeeklyRequest struct {
	StudentID string  `json:"student_id" validate:"required"`
	Year      int     `json:"year" validate:"required,gte=2000"`
	Week      int     `json:"week" validate:"required,gte=1,lte=53"`
	Status    string  `json:"status" validate:"required"`
	Notes     *string `json:"notes,omitempty"`
}

// WeeklyAttendance is a per-week supplemental class attendance row.
type WeeklyAttendance struct {
	ID        string       `db:"id" json:"id"`
	StudentID string       `db:"student_id" json:"student_id"`
	Year      int          `db:"year" json:"year"`
	Week      int          `db:"week" json:"week"`
	Status    WeeklyStatus `db:"status" json:"status"`
	Notes     *string      `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
}
