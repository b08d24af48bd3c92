package models

import "time"

// Thresholds applied by the progress and eligibility calculations.
const (
	AttendanceThreshold  = 75.0
	OverallScoreMinimum  = 75.0
	SectionPassThreshold = 60.0
)

// StudentProgress is the recomputed per-request progress view for the
// academic domain. It is derived state and never persisted.
type StudentProgress struct {
	StudentID        string           `json:"student_id"`
	Counts           AttendanceCounts `json:"counts"`
	Attendance       PercentageResult `json:"attendance"`
	AttendanceMet    bool             `json:"attendance_met"`
	Sections         []SectionAverage `json:"sections"`
	OverallAverage   PercentageResult `json:"overall_average"`
	OverallMet       bool             `json:"overall_met"`
	AllSectionsMet   bool             `json:"all_sections_met"`
	RecordedLessons  int              `json:"recorded_lessons"`
	RecordedScores   int              `json:"recorded_scores"`
	GeneratedAt      time.Time        `json:"generated_at"`
}

// ProjectionResult carries the signed margin of future absences a student
// can still incur while finishing at the attendance threshold. Negative
// margins are meaningful and must not be clamped.
type ProjectionResult struct {
	StudentID        string           `json:"student_id"`
	Counts           AttendanceCounts `json:"counts"`
	RemainingLessons int              `json:"remaining_lessons"`
	AbsencesAllowed  int              `json:"absences_allowed"`
	OnTrack          bool             `json:"on_track"`
}

// EligibilitySnapshot composes the three graduation signals for one
// domain. The raw values that produced the flags ride along so callers can
// render them without recomputation.
type EligibilitySnapshot struct {
	AttendanceMet     bool             `json:"attendance_met"`
	OverallAverageMet bool             `json:"overall_average_met"`
	AllSectionsMet    bool             `json:"all_sections_met"`
	Attendance        PercentageResult `json:"attendance"`
	OverallAverage    PercentageResult `json:"overall_average"`
	Sections          []SectionAverage `json:"sections,omitempty"`
}

// Eligible is the conjunction of the three flags.
func (s EligibilitySnapshot) Eligible() bool {
	return s.AttendanceMet && s.OverallAverageMet && s.AllSectionsMet
}

// GraduationDecision is the combined academic + weekly verdict.
type GraduationDecision struct {
	StudentID   string              `json:"student_id"`
	Academic    EligibilitySnapshot `json:"academic"`
	Weekly      EligibilitySnapshot `json:"weekly"`
	CanGraduate bool                `json:"can_graduate"`
	GeneratedAt time.Time           `json:"generated_at"`
}
