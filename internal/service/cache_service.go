package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

const cacheNamespace = "timetables"

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
	Counter(ctx context.Context, key string) (int64, error)
	Incr(ctx context.Context, key string) (int64, error)
}

// CacheService wraps the read cache with metrics and degrades to a no-op when disabled.
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
		defaultTTL = 2 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Get attempts to retrieve a cached entry. It returns true when the cache was hit.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return false, nil
		}
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
	return true, nil
}

// Set stores the value in cache.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Invalidate removes cached values for the provided pattern.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.repo.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("pattern", pattern), zap.Error(err))
		return err
	}
	return nil
}

// Generation returns the institute's current cache generation. Read keys embed it, so
// a bump retires every snapshot taken before it, including ones written late by a
// reader that loaded stale rows before the bump.
func (s *CacheService) Generation(ctx context.Context, instituteID string) (int64, error) {
	if !s.Enabled() {
		return 0, nil
	}
	gen, err := s.repo.Counter(ctx, InstituteGenerationKey(instituteID))
	if err != nil {
		s.logger.Warn("cache generation read failed", zap.String("institute_id", instituteID), zap.Error(err))
		return 0, err
	}
	return gen, nil
}

// InvalidateInstitute retires every cached read of one tenant by bumping its generation.
// When the bump fails the tenant's keys are deleted instead.
func (s *CacheService) InvalidateInstitute(ctx context.Context, instituteID string) error {
	if !s.Enabled() {
		return nil
	}
	_, err := s.repo.Incr(ctx, InstituteGenerationKey(instituteID))
	if err == nil {
		return nil
	}
	s.metrics.RecordCacheInvalidationFailure()
	s.logger.Warn("cache generation bump failed", zap.String("institute_id", instituteID), zap.Error(err))
	if delErr := s.Invalidate(ctx, InstituteCachePattern(instituteID)); delErr != nil {
		s.metrics.RecordCacheInvalidationFailure()
		return errors.Join(err, delErr)
	}
	return nil
}

// TimetableListCacheKey is the cache key of an institute's header list.
func TimetableListCacheKey(instituteID string, generation int64) string {
	return fmt.Sprintf("%s:%s:g%d:list", cacheNamespace, instituteID, generation)
}

// TimetableDetailsCacheKey is the cache key of one saved timetable with rows.
func TimetableDetailsCacheKey(instituteID string, generation int64, instituteTimeTableID int) string {
	return fmt.Sprintf("%s:%s:g%d:details:%d", cacheNamespace, instituteID, generation, instituteTimeTableID)
}

// InstituteCachePattern matches every snapshot key of an institute.
func InstituteCachePattern(instituteID string) string {
	return fmt.Sprintf("%s:%s:*", cacheNamespace, instituteID)
}

// InstituteGenerationKey holds the institute's generation counter. It sits outside
// InstituteCachePattern so pattern deletes never reset it.
func InstituteGenerationKey(instituteID string) string {
	return fmt.Sprintf("%s-gen:%s", cacheNamespace, instituteID)
}
