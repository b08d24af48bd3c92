package models

import "time"

// AttendanceStatus represents the status recorded for a single lesson.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "PRESENT"
	AttendanceStatusLate    AttendanceStatus = "LATE"
	AttendanceStatusAbsent  AttendanceStatus = "ABSENT"
	AttendanceStatusExcused AttendanceStatus = "EXCUSED"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusLate, AttendanceStatusAbsent, AttendanceStatusExcused:
		return true
	default:
		return false
	}
}

// AttendanceCounts tallies lesson statuses into categorical buckets.
// A lesson is never counted in more than one bucket.
type AttendanceCounts struct {
	Present int `json:"present"`
	Late    int `json:"late"`
	Absent  int `json:"absent"`
	Excused int `json:"excused"`
}

// Total returns the number of recorded lessons.
func (c AttendanceCounts) Total() int {
	return c.Present + c.Late + c.Absent + c.Excused
}

// Countable returns the number of lessons contributing to the percentage,
// i.e. everything that is not excused.
func (c AttendanceCounts) Countable() int {
	return c.Total() - c.Excused
}

// EffectivePresent weighs a late arrival as half a presence: two lates
// count as one absence-equivalent.
func (c AttendanceCounts) EffectivePresent() float64 {
	return float64(c.Present) + float64(c.Late)/2
}

// EffectiveAbsences is the mirror of EffectivePresent.
func (c AttendanceCounts) EffectiveAbsences() float64 {
	return float64(c.Absent) + float64(c.Late)/2
}

// PercentageResult is a percentage in [0,100] or the distinguished
// "undetermined" outcome when no countable units exist. Undetermined is a
// first-class value and must never be collapsed to zero.
type PercentageResult struct {
	Value      float64 `json:"value"`
	Determined bool    `json:"determined"`
}

// Undetermined returns the no-data-yet result.
func Undetermined() PercentageResult {
	return PercentageResult{}
}

// Percentage wraps a determined value.
func Percentage(v float64) PercentageResult {
	return PercentageResult{Value: v, Determined: true}
}

// Meets reports whether the percentage reaches the threshold. The boundary
// is inclusive. An undetermined result never meets a threshold.
func (p PercentageResult) Meets(threshold float64) bool {
	return p.Determined && p.Value >= threshold
}

// Lesson is a scheduled academic session. Exam-day lessons are excluded
// from attendance percentages.
type Lesson struct {
	ID        string    `db:"id" json:"id"`
	ProgramID string    `db:"program_id" json:"program_id"`
	Title     string    `db:"title" json:"title"`
	Date      time.Time `db:"date" json:"date"`
	IsExamDay bool      `db:"is_exam_day" json:"is_exam_day"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// LessonAttendance is a single per-lesson attendance row.
type LessonAttendance struct {
	ID        string           `db:"id" json:"id"`
	StudentID string           `db:"student_id" json:"student_id"`
	LessonID  string           `db:"lesson_id" json:"lesson_id"`
	Status    AttendanceStatus `db:"status" json:"status"`
	Notes     *string          `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// LessonAttendanceFilter scopes attendance queries.
type LessonAttendanceFilter struct {
	StudentID string
	ProgramID string
	Status    *AttendanceStatus
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
}

// CreateLessonRequest is the payload for scheduling a lesson.
type CreateLessonRequest struct {
	ProgramID string    `json:"program_id" validate:"required"`
	Title     string    `json:"title" validate:"required,min=2"`
	Date      time.Time `json:"date" validate:"required"`
	IsExamDay bool      `json:"is_exam_day"`
}

// RecordAttendanceRequest is the payload for recording one student-lesson
// status.
type RecordAttendanceRequest struct {
	StudentID string  `json:"student_id" validate:"required"`
	LessonID  string  `json:"lesson_id" validate:"required"`
	Status    string  `json:"status" validate:"required"`
	Notes     *string `json:"notes,omitempty"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
