package models

import "time"

// ExamScore is a single scored assessment. The percentage fed into the
// section aggregation is derived as Score/MaxScore*100 before aggregation.
type ExamScore struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	SectionID string    `db:"section_id" json:"section_id"`
	Score     float64   `db:"score" json:"score"`
	MaxScore  float64   `db:"max_score" json:"max_score"`
	TakenAt   time.Time `db:"taken_at" json:"taken_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Percent converts the raw score into a percentage of the maximum.
func (s ExamScore) Percent() float64 {
	if s.MaxScore == 0 {
		return 0
	}
	return s.Score / s.MaxScore * 100
}

// RecordScoreRequest is the payload for recording one exam result.
type RecordScoreRequest struct {
	StudentID string    `json:"student_id" validate:"required"`
	SectionID string    `json:"section_id" validate:"required"`
	Score     float64   `json:"score" validate:"gte=0"`
	MaxScore  float64   `json:"max_score" validate:"required,gt=0"`
	TakenAt   time.Time `json:"taken_at" validate:"required"`
}

// SectionAverage is the aggregated result for one scoring category.
// Sections with no recorded scores never appear in an aggregate: they are
// neither passing nor failing.
type SectionAverage struct {
	SectionID string  `json:"section_id"`
	Label     string  `json:"label"`
	Average   float64 `json:"average"`
	Passing   bool    `json:"passing"`
}

// sectionLabels maps known section identifiers to display names.
var sectionLabels = map[string]string{
	"QURAN":   "Quran Studies",
	"FIQH":    "Fiqh",
	"HADITH":  "Hadith",
	"AQIDAH":  "Aqidah",
	"SEERAH":  "Seerah",
	"GENERAL": "General Knowledge",
}

// SectionLabel resolves a section identifier to its display name. When the
// identifier is not part of the catalog, the raw identifier is returned
// unchanged and ok is false so callers can tell a real label from a
// data-quality gap.
func SectionLabel(sectionID string) (label string, ok bool) {
	if name, known := sectionLabels[sectionID]; known {
		return name, true
	}
	return sectionID, false
}
