package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/mentorship-api/internal/models"
	appErrors "github.com/noah-isme/mentorship-api/pkg/errors"
)

// One cache entry per student. The key schema lives here so writers and
// invalidators can never disagree on it, and removal is by exact key so
// students whose IDs share a prefix never evict each other.
func progressCacheKey(studentID string) string {
	return "progress:student:" + studentID
}

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// CacheService holds computed progress views for a short TTL. The attendance
// and score rows stay the source of truth; every entry is recomputable.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 10 * time.Minute
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active. Safe on a nil receiver.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// GetProgress returns the cached progress view for a student, or nil on miss
// or lookup failure. A failing cache degrades to recompute, never to an error.
func (s *CacheService) GetProgress(ctx context.Context, studentID string) *models.StudentProgress {
	if !s.Enabled() {
		return nil
	}

	var progress models.StudentProgress
	start := time.Now()
	err := s.repo.Get(ctx, progressCacheKey(studentID), &progress)
	duration := time.Since(start)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordCacheOperation(false, duration)
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) && s.logger != nil {
			s.logger.Warn("progress cache lookup failed", zap.String("student_id", studentID), zap.Error(err))
		}
		return nil
	}
	if s.metrics != nil {
		s.metrics.RecordCacheOperation(true, duration)
	}
	return &progress
}

// StoreProgress caches a computed view under its student's key.
func (s *CacheService) StoreProgress(ctx context.Context, progress *models.StudentProgress) error {
	if !s.Enabled() || progress == nil {
		return nil
	}

	start := time.Now()
	err := s.repo.Set(ctx, progressCacheKey(progress.StudentID), progress, s.defaultTTL)
	if s.metrics != nil {
		s.metrics.ObserveCacheWrite(time.Since(start))
	}
	if err != nil && s.logger != nil {
		s.logger.Warn("progress cache store failed", zap.String("student_id", progress.StudentID), zap.Error(err))
	}
	return err
}

// DropProgress removes exactly one student's cached view.
func (s *CacheService) DropProgress(ctx context.Context, studentID string) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.repo.Delete(ctx, progressCacheKey(studentID)); err != nil {
		if s.logger != nil {
			s.logger.Warn("progress cache drop failed", zap.String("student_id", studentID), zap.Error(err))
		}
		return err
	}
	return nil
}
