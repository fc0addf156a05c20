package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/classtrack/classtrack-api/internal/models"
	appErrors "github.com/classtrack/classtrack-api/pkg/errors"
)

type dashboardTeacherRepository interface {
	AssignedClasses(ctx context.Context, teacherID string) ([]models.ClassGroup, error)
	CountStudentsInClasses(ctx context.Context, classIDs []string) (int, error)
}

type dashboardLedger interface {
	TodayCounts(ctx context.Context, classIDs []string, markedBy string, day time.Time) (present, absent int, err error)
	MonthCounts(ctx context.Context, classIDs []string, markedBy string, monthStart time.Time) (present, total int, err error)
	RecentActivity(ctx context.Context, classIDs []string, markedBy string, limit int) ([]models.RecentActivity, error)
}

const recentActivityLimit = 5

// DashboardService assembles the teacher landing page summary. The payload is
// cached per teacher; any ledger write by that teacher should invalidate it.
type DashboardService struct {
	teachers dashboardTeacherRepository
	ledger   dashboardLedger
	cache    *CacheService
	cacheTTL time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(teachers dashboardTeacherRepository, ledger dashboardLedger, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		teachers: teachers,
		ledger:   ledger,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Summary returns the teacher-scoped dashboard payload.
func (s *DashboardService) Summary(ctx context.Context, teacherID string) (*models.DashboardSummary, error) {
	cacheKey := dashboardCacheKey(teacherID)
	if s.cache.Enabled() {
		var cached models.DashboardSummary
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	classes, err := s.teachers.AssignedClasses(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assigned classes")
	}

	summary := &models.DashboardSummary{RecentActivity: []models.RecentActivity{}}
	if len(classes) == 0 {
		return summary, nil
	}

	classIDs := make([]string, len(classes))
	for i, class := range classes {
		classIDs[i] = class.ID
	}

	total, err := s.teachers.CountStudentsInClasses(ctx, classIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}
	summary.TotalStudents = total

	now := s.now()
	day := truncateToDay(now)
	present, absent, err := s.ledger.TodayCounts(ctx, classIDs, teacherID, day)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load today's counts")
	}
	summary.PresentToday = present
	summary.AbsentToday = absent
	if marked := present + absent; marked > 0 {
		summary.AttendanceRate = round1(float64(present) / float64(marked) * 100)
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthPresent, monthTotal, err := s.ledger.MonthCounts(ctx, classIDs, teacherID, monthStart)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load monthly counts")
	}
	if monthTotal > 0 {
		summary.MonthlyAverage = round1(float64(monthPresent) / float64(monthTotal) * 100)
	}

	activity, err := s.ledger.RecentActivity(ctx, classIDs, teacherID, recentActivityLimit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recent activity")
	}
	if activity != nil {
		summary.RecentActivity = activity
	}

	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, cacheKey, summary, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache dashboard summary", zap.Error(err))
		}
	}
	return summary, nil
}

// Invalidate drops the cached summary for one teacher.
func (s *DashboardService) Invalidate(ctx context.Context, teacherID string) {
	if !s.cache.Enabled() {
		return
	}
	if err := s.cache.Invalidate(ctx, dashboardCacheKey(teacherID)); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache",
			zap.String("teacher_id", teacherID), zap.Error(err))
	}
}

func dashboardCacheKey(teacherID string) string {
	return fmt.Sprintf("dashboard:summary:%s", teacherID)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
