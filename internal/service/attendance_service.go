package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/mentorship-api/internal/models"
	appErrors "github.com/noah-isme/mentorship-api/pkg/errors"
)

type attendanceRepository interface {
	List(ctx context.Context, filter models.LessonAttendanceFilter) ([]models.LessonAttendance, int, error)
	Upsert(ctx context.Context, record *models.LessonAttendance) (*models.LessonAttendance, error)
	FindLesson(ctx context.Context, id string) (*models.Lesson, error)
	CreateLesson(ctx context.Context, lesson *models.Lesson) error
}

type attendanceStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type attendanceScoreRepository interface {
	Create(ctx context.Context, score *models.ExamScore) error
}

type attendanceWeeklyRepository interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.WeeklyAttendance, error)
	Mark(ctx context.Context, record *models.WeeklyAttendance) (*models.WeeklyAttendance, error)
}

// AttendanceService covers the staff-facing write paths: lessons, lesson
// attendance, exam scores and direct weekly marks.
type AttendanceService struct {
	attendance attendanceRepository
	students   attendanceStudentRepository
	scores     attendanceScoreRepository
	weekly     attendanceWeeklyRepository
	progress   *ProgressService
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewAttendanceService constructs an AttendanceService instance.
func NewAttendanceService(attendance attendanceRepository, students attendanceStudentRepository, scores attendanceScoreRepository, weekly attendanceWeeklyRepository, progress *ProgressService, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AttendanceService{
		attendance: attendance,
		students:   students,
		scores:     scores,
		weekly:     weekly,
		progress:   progress,
		validator:  validate,
		logger:     logger,
	}
}

// CreateLesson schedules a lesson.
func (s *AttendanceService) CreateLesson(ctx context.Context, req models.CreateLessonRequest) (*models.Lesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson payload")
	}
	lesson := &models.Lesson{
		ProgramID: req.ProgramID,
		Title:     req.Title,
		Date:      req.Date,
		IsExamDay: req.IsExamDay,
	}
	if err := s.attendance.CreateLesson(ctx, lesson); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create lesson")
	}
	return lesson, nil
}

// Record upserts the status for one student-lesson pair. Re-recording the
// same lesson replaces the prior status.
func (s *AttendanceService) Record(ctx context.Context, req models.RecordAttendanceRequest) (*models.LessonAttendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	status := models.AttendanceStatus(req.Status)
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown attendance status")
	}

	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if _, err := s.attendance.FindLesson(ctx, req.LessonID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}

	record, err := s.attendance.Upsert(ctx, &models.LessonAttendance{
		StudentID: req.StudentID,
		LessonID:  req.LessonID,
		Status:    status,
		Notes:     req.Notes,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attendance")
	}
	if s.progress != nil {
		s.progress.InvalidateStudent(ctx, req.StudentID)
	}
	return record, nil
}

// List returns attendance rows with pagination metadata.
func (s *AttendanceService) List(ctx context.Context, filter models.LessonAttendanceFilter) ([]models.LessonAttendance, *models.Pagination, error) {
	rows, total, err := s.attendance.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	return rows, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// RecordScore stores one exam result.
func (s *AttendanceService) RecordScore(ctx context.Context, req models.RecordScoreRequest) (*models.ExamScore, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid score payload")
	}
	if req.Score > req.MaxScore {
		return nil, appErrors.Clone(appErrors.ErrValidation, "score exceeds maximum")
	}

	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	score := &models.ExamScore{
		StudentID: req.StudentID,
		SectionID: req.SectionID,
		Score:     req.Score,
		MaxScore:  req.MaxScore,
		TakenAt:   req.TakenAt,
	}
	if err := s.scores.Create(ctx, score); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record score")
	}
	if s.progress != nil {
		s.progress.InvalidateStudent(ctx, req.StudentID)
	}
	return score, nil
}

// MarkWeekly sets a student-week directly, for staff corrections.
func (s *AttendanceService) MarkWeekly(ctx context.Context, req models.MarkWeeklyRequest) (*models.WeeklyAttendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid weekly payload")
	}
	status := models.WeeklyStatus(req.Status)
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown weekly status")
	}

	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	record, err := s.weekly.Mark(ctx, &models.WeeklyAttendance{
		StudentID: req.StudentID,
		Year:      req.Year,
		Week:      req.Week,
		Status:    status,
		Notes:     req.Notes,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark week")
	}
	return record, nil
}

// WeeklyHistory returns the weekly record for one student.
func (s *AttendanceService) WeeklyHistory(ctx context.Context, studentID string) ([]models.WeeklyAttendance, error) {
	rows, err := s.weekly.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list weekly attendance")
	}
	return rows, nil
}
