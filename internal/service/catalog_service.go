package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/univ-erp-api/internal/models"
	appErrors "github.com/noah-isme/univ-erp-api/pkg/errors"
)

type catalogSectionRepo interface {
	FindViewByID(ctx context.Context, id string) (*models.SectionView, error)
	ListBySemesterYear(ctx context.Context, semester string, year int) ([]models.SectionView, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.SectionView, error)
}

type catalogCourseRepo interface {
	FindByCode(ctx context.Context, code string) (*models.Course, error)
	List(ctx context.Context) ([]models.Course, error)
}

type accessGate interface {
	CanRead(principal *models.Principal) error
	CanModify(ctx context.Context, principal *models.Principal) error
}

// CatalogService is the read model over sections with derived seat counts.
// Results may be briefly cached in redis; the counts are recomputed from
// ENROLLED rows on every cache miss, so they never drift.
type CatalogService struct {
	sections catalogSectionRepo
	courses  catalogCourseRepo
	access   accessGate
	cache    *redis.Client
	cacheTTL time.Duration
	logger   *zap.Logger
	metrics  *MetricsService
}

// WithMetrics attaches cache instrumentation. Optional.
func (s *CatalogService) WithMetrics(metrics *MetricsService) *CatalogService {
	s.metrics = metrics
	return s
}

// NewCatalogService constructs a CatalogService. The redis client may be nil.
func NewCatalogService(sections catalogSectionRepo, courses catalogCourseRepo, access accessGate, cache *redis.Client, cacheTTL time.Duration, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &CatalogService{sections: sections, courses: courses, access: access, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// BrowseTerm returns the catalog for one (semester, year).
func (s *CatalogService) BrowseTerm(ctx context.Context, principal *models.Principal, semester string, year int) ([]models.SectionView, error) {
	if err := s.access.CanRead(principal); err != nil {
		return nil, err
	}
	semester = strings.TrimSpace(semester)
	if semester == "" || year <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "semester and year are required")
	}

	cacheKey := fmt.Sprintf("catalog:term:%s:%d", strings.ToLower(semester), year)
	if cached, ok := s.fromCache(ctx, cacheKey); ok {
		return cached, nil
	}

	views, err := s.sections.ListBySemesterYear(ctx, semester, year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to browse catalog")
	}
	s.toCache(ctx, cacheKey, views)
	return views, nil
}

// BrowseCourse returns all sections offered for a course code.
func (s *CatalogService) BrowseCourse(ctx context.Context, principal *models.Principal, courseCode string) ([]models.SectionView, error) {
	if err := s.access.CanRead(principal); err != nil {
		return nil, err
	}
	courseCode = strings.TrimSpace(courseCode)
	if courseCode == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course code is required")
	}

	course, err := s.courses.FindByCode(ctx, courseCode)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load course")
	}

	cacheKey := "catalog:course:" + course.ID
	if cached, ok := s.fromCache(ctx, cacheKey); ok {
		return cached, nil
	}

	views, err := s.sections.ListByCourse(ctx, course.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to list course sections")
	}
	s.toCache(ctx, cacheKey, views)
	return views, nil
}

// Section returns one section with its seat projection, bypassing the cache.
func (s *CatalogService) Section(ctx context.Context, principal *models.Principal, sectionID string) (*models.SectionView, error) {
	if err := s.access.CanRead(principal); err != nil {
		return nil, err
	}
	view, err := s.sections.FindViewByID(ctx, sectionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load section")
	}
	return view, nil
}

// Courses returns the course catalog.
func (s *CatalogService) Courses(ctx context.Context, principal *models.Principal) ([]models.Course, error) {
	if err := s.access.CanRead(principal); err != nil {
		return nil, err
	}
	courses, err := s.courses.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to list courses")
	}
	return courses, nil
}

func (s *CatalogService) fromCache(ctx context.Context, key string) ([]models.SectionView, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("catalog cache read failed", zap.String("key", key), zap.Error(err))
		}
		s.metrics.RecordCacheLookup(false)
		return nil, false
	}
	var views []models.SectionView
	if err := json.Unmarshal(raw, &views); err != nil {
		s.metrics.RecordCacheLookup(false)
		return nil, false
	}
	s.metrics.RecordCacheLookup(true)
	return views, true
}

func (s *CatalogService) toCache(ctx context.Context, key string, views []models.SectionView) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(views)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.cacheTTL).Err(); err != nil {
		s.logger.Warn("catalog cache write failed", zap.String("key", key), zap.Error(err))
	}
}
