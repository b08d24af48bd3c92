package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/mentorship-api/internal/models"
	appErrors "github.com/noah-isme/mentorship-api/pkg/errors"
)

// SectionAverages groups scores by section and averages the per-exam
// percentages within each group. Sections with no recorded scores never
// appear in the output. Results are sorted by section identifier so the
// rendering is stable between calls.
func SectionAverages(scores []models.ExamScore) []models.SectionAverage {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, score := range scores {
		sums[score.SectionID] += score.Percent()
		counts[score.SectionID]++
	}

	sections := make([]models.SectionAverage, 0, len(sums))
	for sectionID, sum := range sums {
		avg := sum / float64(counts[sectionID])
		label, _ := models.SectionLabel(sectionID)
		sections = append(sections, models.SectionAverage{
			SectionID: sectionID,
			Label:     label,
			Average:   avg,
			Passing:   avg >= models.SectionPassThreshold,
		})
	}
	sort.Slice(sections, func(i, j int) bool {
		return sections[i].SectionID < sections[j].SectionID
	})
	return sections
}

// OverallAverage is the mean over every individual exam percentage, not the
// mean of section means, so sections with more exams weigh proportionally
// more. No scores means undetermined.
func OverallAverage(scores []models.ExamScore) models.PercentageResult {
	if len(scores) == 0 {
		return models.Undetermined()
	}
	var sum float64
	for _, score := range scores {
		sum += score.Percent()
	}
	return models.Percentage(sum / float64(len(scores)))
}

// AllSectionsPassing reports whether every section with recorded scores is
// at or above the section pass threshold. An empty slice passes: absence of
// data is not failure.
func AllSectionsPassing(sections []models.SectionAverage) bool {
	for _, section := range sections {
		if !section.Passing {
			return false
		}
	}
	return true
}

// EvaluateAcademic builds the academic eligibility snapshot from counts and
// scores. Each missing-data axis defaults to met: a student is never held
// back for data that was simply not recorded.
func EvaluateAcademic(counts models.AttendanceCounts, scores []models.ExamScore) models.EligibilitySnapshot {
	attendance := CalculatePercentage(counts)
	sections := SectionAverages(scores)
	overall := OverallAverage(scores)

	snapshot := models.EligibilitySnapshot{
		Attendance:     attendance,
		OverallAverage: overall,
		Sections:       sections,
	}
	snapshot.AttendanceMet = !attendance.Determined || attendance.Meets(models.AttendanceThreshold)
	snapshot.OverallAverageMet = !overall.Determined || overall.Meets(models.OverallScoreMinimum)
	snapshot.AllSectionsMet = AllSectionsPassing(sections)
	return snapshot
}

// EvaluateWeekly builds the supplemental-class eligibility snapshot. Only
// attendance applies in this domain; the score axes are vacuously met.
func EvaluateWeekly(counts models.WeeklyCounts) models.EligibilitySnapshot {
	attendance := CalculateWeeklyPercentage(counts)
	return models.EligibilitySnapshot{
		Attendance:        attendance,
		AttendanceMet:     !attendance.Determined || attendance.Meets(models.AttendanceThreshold),
		OverallAverageMet: true,
		AllSectionsMet:    true,
	}
}

type eligibilityWeeklyRepository interface {
	Statuses(ctx context.Context, studentID string) ([]string, error)
}

// EligibilityService computes graduation decisions by combining the
// academic and weekly domains.
type EligibilityService struct {
	students   progressStudentRepository
	attendance progressAttendanceRepository
	scores     progressScoreRepository
	weekly     eligibilityWeeklyRepository
	logger     *zap.Logger
}

// NewEligibilityService constructs an EligibilityService instance.
func NewEligibilityService(students progressStudentRepository, attendance progressAttendanceRepository, scores progressScoreRepository, weekly eligibilityWeeklyRepository, logger *zap.Logger) *EligibilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EligibilityService{students: students, attendance: attendance, scores: scores, weekly: weekly, logger: logger}
}

// Evaluate produces the combined graduation decision for one student.
func (s *EligibilityService) Evaluate(ctx context.Context, studentID string) (*models.GraduationDecision, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	statuses, err := s.attendance.Statuses(ctx, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	scores, err := s.scores.ListByStudent(ctx, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam scores")
	}
	weeklyStatuses, err := s.weekly.Statuses(ctx, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load weekly attendance")
	}

	academic := EvaluateAcademic(ClassifyStatuses(statuses), scores)
	weekly := EvaluateWeekly(ClassifyWeeklyStatuses(weeklyStatuses))

	return &models.GraduationDecision{
		StudentID:   student.ID,
		Academic:    academic,
		Weekly:      weekly,
		CanGraduate: academic.Eligible() && weekly.Eligible(),
		GeneratedAt: time.Now().UTC(),
	}, nil
}
