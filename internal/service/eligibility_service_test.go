package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/mentorship-api/internal/models"
)

type mockWeeklyStatusRepo struct {
	statuses []string
}

func (m *mockWeeklyStatusRepo) Statuses(ctx context.Context, studentID string) ([]string, error) {
	return m.statuses, nil
}

func TestSectionAveragesGroupsAndSorts(t *testing.T) {
	scores := []models.ExamScore{
		{SectionID: "QURAN", Score: 90, MaxScore: 100},
		{SectionID: "FIQH", Score: 30, MaxScore: 100},
		{SectionID: "QURAN", Score: 70, MaxScore: 100},
		{SectionID: "FIQH", Score: 50, MaxScore: 100},
	}
	sections := SectionAverages(scores)
	require.Len(t, sections, 2)

	assert.Equal(t, "FIQH", sections[0].SectionID)
	assert.Equal(t, "Fiqh", sections[0].Label)
	assert.InDelta(t, 40.0, sections[0].Average, 1e-9)
	assert.False(t, sections[0].Passing)

	assert.Equal(t, "QURAN", sections[1].SectionID)
	assert.InDelta(t, 80.0, sections[1].Average, 1e-9)
	assert.True(t, sections[1].Passing)
}

func TestSectionAveragesUnknownSectionKeepsRawID(t *testing.T) {
	sections := SectionAverages([]models.ExamScore{{SectionID: "MYSTERY", Score: 60, MaxScore: 100}})
	require.Len(t, sections, 1)
	assert.Equal(t, "MYSTERY", sections[0].Label)
	assert.True(t, sections[0].Passing)
}

func TestSectionPassBoundaryInclusive(t *testing.T) {
	sections := SectionAverages([]models.ExamScore{{SectionID: "FIQH", Score: 60, MaxScore: 100}})
	require.Len(t, sections, 1)
	assert.True(t, sections[0].Passing)
}

func TestOverallAverageWeighsEveryExam(t *testing.T) {
	// Mean over all four exams, not the mean of the two section means.
	scores := []models.ExamScore{
		{SectionID: "QURAN", Score: 100, MaxScore: 100},
		{SectionID: "QURAN", Score: 100, MaxScore: 100},
		{SectionID: "QURAN", Score: 100, MaxScore: 100},
		{SectionID: "FIQH", Score: 0, MaxScore: 100},
	}
	overall := OverallAverage(scores)
	require.True(t, overall.Determined)
	assert.InDelta(t, 75.0, overall.Value, 1e-9)
}

func TestOverallAverageUndeterminedWithoutScores(t *testing.T) {
	assert.False(t, OverallAverage(nil).Determined)
}

func TestEvaluateAcademicMissingDataDefaultsMet(t *testing.T) {
	snapshot := EvaluateAcademic(models.AttendanceCounts{}, nil)
	assert.True(t, snapshot.AttendanceMet)
	assert.True(t, snapshot.OverallAverageMet)
	assert.True(t, snapshot.AllSectionsMet)
	assert.True(t, snapshot.Eligible())
	assert.False(t, snapshot.Attendance.Determined)
}

func TestEvaluateAcademicFailsOnSection(t *testing.T) {
	counts := models.AttendanceCounts{Present: 9, Absent: 1}
	scores := []models.ExamScore{
		{SectionID: "QURAN", Score: 95, MaxScore: 100},
		{SectionID: "FIQH", Score: 50, MaxScore: 100},
	}
	snapshot := EvaluateAcademic(counts, scores)
	assert.True(t, snapshot.AttendanceMet)
	assert.False(t, snapshot.AllSectionsMet)
	assert.False(t, snapshot.Eligible())
}

func TestEvaluateWeeklyOnlyAttendanceApplies(t *testing.T) {
	snapshot := EvaluateWeekly(models.WeeklyCounts{Present: 2, Rejected: 2})
	assert.False(t, snapshot.AttendanceMet)
	assert.True(t, snapshot.OverallAverageMet)
	assert.True(t, snapshot.AllSectionsMet)
	assert.False(t, snapshot.Eligible())
}

func TestEvaluateCombinesDomains(t *testing.T) {
	students := &mockStudentRepo{student: &models.Student{ID: "s1", ProgramID: "p1"}}
	attendance := &mockAttendanceRepo{statuses: []string{"PRESENT", "PRESENT", "PRESENT", "ABSENT"}}
	scores := &mockScoreRepo{scores: []models.ExamScore{
		{SectionID: "QURAN", Score: 90, MaxScore: 100},
	}}
	weekly := &mockWeeklyStatusRepo{statuses: []string{"PRESENT", "PRESENT", "PRESENT", "PRESENT"}}
	svc := NewEligibilityService(students, attendance, scores, weekly, zap.NewNop())

	decision, err := svc.Evaluate(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, decision.Academic.Eligible())
	assert.True(t, decision.Weekly.Eligible())
	assert.True(t, decision.CanGraduate)
}

func TestEvaluateWeeklyFailureBlocksGraduation(t *testing.T) {
	students := &mockStudentRepo{student: &models.Student{ID: "s1", ProgramID: "p1"}}
	attendance := &mockAttendanceRepo{statuses: []string{"PRESENT", "PRESENT", "PRESENT", "PRESENT"}}
	weekly := &mockWeeklyStatusRepo{statuses: []string{"PRESENT", "ABSENT", "ABSENT", "ABSENT"}}
	svc := NewEligibilityService(students, attendance, &mockScoreRepo{}, weekly, zap.NewNop())

	decision, err := svc.Evaluate(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, decision.Academic.Eligible())
	assert.False(t, decision.Weekly.Eligible())
	assert.False(t, decision.CanGraduate)
}
