package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/mentorship-api/internal/models"
	appErrors "github.com/noah-isme/mentorship-api/pkg/errors"
)

// ClassifyStatuses folds raw per-lesson status strings into categorical
// counts. Unrecognised statuses are dropped without affecting any bucket,
// so stray rows shrink the denominator instead of polluting a category.
func ClassifyStatuses(statuses []string) models.AttendanceCounts {
	var counts models.AttendanceCounts
	for _, raw := range statuses {
		switch models.AttendanceStatus(raw) {
		case models.AttendanceStatusPresent:
			counts.Present++
		case models.AttendanceStatusLate:
			counts.Late++
		case models.AttendanceStatusAbsent:
			counts.Absent++
		case models.AttendanceStatusExcused:
			counts.Excused++
		}
	}
	return counts
}

// CalculatePercentage converts counts into an attendance percentage.
// Excused lessons are removed from the denominator entirely; when nothing
// countable remains the result is undetermined, never zero.
func CalculatePercentage(counts models.AttendanceCounts) models.PercentageResult {
	countable := counts.Countable()
	if countable <= 0 {
		return models.Undetermined()
	}
	return models.Percentage(counts.EffectivePresent() / float64(countable) * 100)
}

// AbsencesAllowed returns how many of the remaining lessons a student can
// miss and still finish at or above the attendance threshold, assuming
// perfect attendance otherwise. The value goes negative once the threshold
// is mathematically out of reach; callers must not clamp it.
func AbsencesAllowed(counts models.AttendanceCounts, remaining int) int {
	required := models.AttendanceThreshold / 100 * float64(counts.Countable()+remaining)
	margin := counts.EffectivePresent() + float64(remaining) - required
	return int(math.Floor(margin))
}

// ClassifyWeeklyStatuses folds raw weekly status strings into counts with
// the same drop-unknown rule as the lesson fold.
func ClassifyWeeklyStatuses(statuses []string) models.WeeklyCounts {
	var counts models.WeeklyCounts
	for _, raw := range statuses {
		switch models.WeeklyStatus(raw) {
		case models.WeeklyStatusPresent:
			counts.Present++
		case models.WeeklyStatusExcused:
			counts.Excused++
		case models.WeeklyStatusAbsent:
			counts.Absent++
		case models.WeeklyStatusRejected:
			counts.Rejected++
		}
	}
	return counts
}

// CalculateWeeklyPercentage converts weekly counts into a percentage.
// Rejected check-ins stay in the denominator and count fully against the
// student; only excused weeks are removed.
func CalculateWeeklyPercentage(counts models.WeeklyCounts) models.PercentageResult {
	countable := counts.Countable()
	if countable <= 0 {
		return models.Undetermined()
	}
	return models.Percentage(float64(counts.Present) / float64(countable) * 100)
}

type progressStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type progressAttendanceRepository interface {
	Statuses(ctx context.Context, studentID string) ([]string, error)
	RemainingLessons(ctx context.Context, programID string, after time.Time) (int, error)
}

type progressScoreRepository interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.ExamScore, error)
}

// ProgressService recomputes academic progress views on demand. Nothing it
// produces is persisted; the attendance and score rows are the only source
// of truth.
type ProgressService struct {
	students   progressStudentRepository
	attendance progressAttendanceRepository
	scores     progressScoreRepository
	cache      *CacheService
	logger     *zap.Logger
}

// NewProgressService constructs a ProgressService instance.
func NewProgressService(students progressStudentRepository, attendance progressAttendanceRepository, scores progressScoreRepository, cache *CacheService, logger *zap.Logger) *ProgressService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressService{students: students, attendance: attendance, scores: scores, cache: cache, logger: logger}
}

// StudentProgress computes the full progress view for one student.
func (s *ProgressService) StudentProgress(ctx context.Context, studentID string) (*models.StudentProgress, error) {
	if cached := s.cache.GetProgress(ctx, studentID); cached != nil {
		return cached, nil
	}

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
	counts := ClassifyStatuses(statuses)
	attendance := CalculatePercentage(counts)

	scores, err := s.scores.ListByStudent(ctx, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam scores")
	}
	sections := SectionAverages(scores)
	overall := OverallAverage(scores)

	progress := &models.StudentProgress{
		StudentID:       student.ID,
		Counts:          counts,
		Attendance:      attendance,
		AttendanceMet:   attendance.Meets(models.AttendanceThreshold),
		Sections:        sections,
		OverallAverage:  overall,
		OverallMet:      overall.Meets(models.OverallScoreMinimum),
		AllSectionsMet:  AllSectionsPassing(sections),
		RecordedLessons: counts.Total(),
		RecordedScores:  len(scores),
		GeneratedAt:     time.Now().UTC(),
	}

	if err := s.cache.StoreProgress(ctx, progress); err != nil {
		s.logger.Warn("failed to cache progress", zap.String("student_id", studentID), zap.Error(err))
	}
	return progress, nil
}

// Projection computes the forward-looking absence margin for one student.
// A non-nil remainingOverride replaces the scheduled-lesson count, for
// what-if queries.
func (s *ProgressService) Projection(ctx context.Context, studentID string, remainingOverride *int) (*models.ProjectionResult, error) {
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
	counts := ClassifyStatuses(statuses)

	var remaining int
	if remainingOverride != nil {
		if *remainingOverride < 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "remaining must not be negative")
		}
		remaining = *remainingOverride
	} else {
		remaining, err = s.attendance.RemainingLessons(ctx, student.ProgramID, time.Now().UTC())
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count remaining lessons")
		}
	}

	allowed := AbsencesAllowed(counts, remaining)
	return &models.ProjectionResult{
		StudentID:        student.ID,
		Counts:           counts,
		RemainingLessons: remaining,
		AbsencesAllowed:  allowed,
		OnTrack:          allowed >= 0,
	}, nil
}

// InvalidateStudent drops cached progress after an attendance or score
// write. Only the written student's entry is removed.
func (s *ProgressService) InvalidateStudent(ctx context.Context, studentID string) {
	if err := s.cache.DropProgress(ctx, studentID); err != nil {
		s.logger.Warn("failed to invalidate progress cache", zap.String("student_id", studentID), zap.Error(err))
	}
}
