package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/mentorship-api/internal/models"
)

type mockStudentRepo struct {
	student *models.Student
	err     error
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.student, nil
}

type mockAttendanceRepo struct {
	statuses  []string
	remaining int
}

func (m *mockAttendanceRepo) Statuses(ctx context.Context, studentID string) ([]string, error) {
	return m.statuses, nil
}

func (m *mockAttendanceRepo) RemainingLessons(ctx context.Context, programID string, after time.Time) (int, error) {
	return m.remaining, nil
}

type mockScoreRepo struct {
	scores []models.ExamScore
}

func (m *mockScoreRepo) ListByStudent(ctx context.Context, studentID string) ([]models.ExamScore, error) {
	return m.scores, nil
}

func TestClassifyStatusesDropsUnknown(t *testing.T) {
	counts := ClassifyStatuses([]string{"PRESENT", "LATE", "SABBATICAL", "ABSENT", "EXCUSED", ""})
	assert.Equal(t, models.AttendanceCounts{Present: 1, Late: 1, Absent: 1, Excused: 1}, counts)
}

func TestClassifyStatusesIdempotent(t *testing.T) {
	statuses := []string{"PRESENT", "PRESENT", "LATE", "ABSENT"}
	first := ClassifyStatuses(statuses)
	second := ClassifyStatuses(statuses)
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"PRESENT", "PRESENT", "LATE", "ABSENT"}, statuses)
}

func TestCalculatePercentageTwoLatesEqualOneAbsence(t *testing.T) {
	result := CalculatePercentage(models.AttendanceCounts{Present: 8, Late: 2})
	require.True(t, result.Determined)
	assert.InDelta(t, 90.0, result.Value, 1e-9)
}

func TestCalculatePercentageBoundaryInclusive(t *testing.T) {
	result := CalculatePercentage(models.AttendanceCounts{Present: 6, Absent: 2})
	require.True(t, result.Determined)
	assert.InDelta(t, 75.0, result.Value, 1e-9)
	assert.True(t, result.Meets(models.AttendanceThreshold))
}

func TestCalculatePercentageExcusedRemovedFromDenominator(t *testing.T) {
	result := CalculatePercentage(models.AttendanceCounts{Present: 7, Absent: 1, Excused: 2})
	require.True(t, result.Determined)
	assert.InDelta(t, 87.5, result.Value, 1e-9)
}

func TestCalculatePercentageUndetermined(t *testing.T) {
	allExcused := CalculatePercentage(models.AttendanceCounts{Excused: 5})
	assert.False(t, allExcused.Determined)
	assert.False(t, allExcused.Meets(models.AttendanceThreshold))

	empty := CalculatePercentage(models.AttendanceCounts{})
	assert.False(t, empty.Determined)
}

func TestAbsencesAllowed(t *testing.T) {
	assert.Equal(t, 5, AbsencesAllowed(models.AttendanceCounts{Present: 10}, 10))
	assert.Equal(t, -6, AbsencesAllowed(models.AttendanceCounts{Present: 2, Absent: 8}, 0))
}

func TestCalculateWeeklyPercentageRejectedCountsAgainst(t *testing.T) {
	result := CalculateWeeklyPercentage(models.WeeklyCounts{Present: 3, Rejected: 1})
	require.True(t, result.Determined)
	assert.InDelta(t, 75.0, result.Value, 1e-9)

	allExcused := CalculateWeeklyPercentage(models.WeeklyCounts{Excused: 4})
	assert.False(t, allExcused.Determined)
}

func TestStudentProgressComputesView(t *testing.T) {
	students := &mockStudentRepo{student: &models.Student{ID: "s1", ProgramID: "p1"}}
	attendance := &mockAttendanceRepo{statuses: []string{"PRESENT", "PRESENT", "PRESENT", "LATE", "LATE", "ABSENT"}}
	scores := &mockScoreRepo{scores: []models.ExamScore{
		{SectionID: "FIQH", Score: 80, MaxScore: 100},
		{SectionID: "QURAN", Score: 45, MaxScore: 50},
	}}
	svc := NewProgressService(students, attendance, scores, nil, zap.NewNop())

	progress, err := svc.StudentProgress(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", progress.StudentID)
	// effective present 4 of 6 countable
	assert.InDelta(t, 66.666, progress.Attendance.Value, 0.01)
	assert.False(t, progress.AttendanceMet)
	assert.Len(t, progress.Sections, 2)
	assert.InDelta(t, 85.0, progress.OverallAverage.Value, 1e-9)
	assert.True(t, progress.OverallMet)
	assert.True(t, progress.AllSectionsMet)
	assert.Equal(t, 6, progress.RecordedLessons)
	assert.Equal(t, 2, progress.RecordedScores)
}

func TestStudentProgressNotFound(t *testing.T) {
	svc := NewProgressService(&mockStudentRepo{err: sql.ErrNoRows}, &mockAttendanceRepo{}, &mockScoreRepo{}, nil, zap.NewNop())
	_, err := svc.StudentProgress(context.Background(), "missing")
	assert.Error(t, err)
}

func TestInvalidateStudentLeavesSiblingEntries(t *testing.T) {
	store := newFakeCacheStore()
	cache := newCacheServiceForTest(store)
	svc := NewProgressService(&mockStudentRepo{}, &mockAttendanceRepo{}, &mockScoreRepo{}, cache, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, cache.StoreProgress(ctx, &models.StudentProgress{StudentID: "s1"}))
	require.NoError(t, cache.StoreProgress(ctx, &models.StudentProgress{StudentID: "s12"}))

	svc.InvalidateStudent(ctx, "s1")

	assert.Nil(t, cache.GetProgress(ctx, "s1"))
	require.NotNil(t, cache.GetProgress(ctx, "s12"))
}

func TestProjectionOnTrack(t *testing.T) {
	students := &mockStudentRepo{student: &models.Student{ID: "s1", ProgramID: "p1"}}
	attendance := &mockAttendanceRepo{statuses: []string{
		"PRESENT", "PRESENT", "PRESENT", "PRESENT", "PRESENT",
		"PRESENT", "PRESENT", "PRESENT", "PRESENT", "PRESENT",
	}, remaining: 10}
	svc := NewProgressService(students, attendance, &mockScoreRepo{}, nil, zap.NewNop())

	projection, err := svc.Projection(context.Background(), "s1", nil)
	require.NoError(t, err)
	assert.Equal(t, 5, projection.AbsencesAllowed)
	assert.True(t, projection.OnTrack)
}

func TestProjectionRemainingOverride(t *testing.T) {
	students := &mockStudentRepo{student: &models.Student{ID: "s1", ProgramID: "p1"}}
	attendance := &mockAttendanceRepo{statuses: []string{
		"PRESENT", "PRESENT", "PRESENT", "PRESENT", "PRESENT",
		"PRESENT", "PRESENT", "PRESENT", "PRESENT", "PRESENT",
	}, remaining: 10}
	svc := NewProgressService(students, attendance, &mockScoreRepo{}, nil, zap.NewNop())

	override := 2
	projection, err := svc.Projection(context.Background(), "s1", &override)
	require.NoError(t, err)
	assert.Equal(t, 2, projection.RemainingLessons)
	assert.Equal(t, 3, projection.AbsencesAllowed)
}

func TestProjectionNegativeMarginNotClamped(t *testing.T) {
	students := &mockStudentRepo{student: &models.Student{ID: "s1", ProgramID: "p1"}}
	attendance := &mockAttendanceRepo{statuses: []string{
		"PRESENT", "PRESENT",
		"ABSENT", "ABSENT", "ABSENT", "ABSENT", "ABSENT", "ABSENT", "ABSENT", "ABSENT",
	}}
	svc := NewProgressService(students, attendance, &mockScoreRepo{}, nil, zap.NewNop())

	projection, err := svc.Projection(context.Background(), "s1", nil)
	require.NoError(t, err)
	assert.Equal(t, -6, projection.AbsencesAllowed)
	assert.False(t, projection.OnTrack)
}
