package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classtrack/classtrack-api/internal/models"
	appErrors "github.com/classtrack/classtrack-api/pkg/errors"
)

type fakeDashboardTeachers struct {
	classes      []models.ClassGroup
	studentCount int
	classCalls   int
}

func (f *fakeDashboardTeachers) AssignedClasses(context.Context, string) ([]models.ClassGroup, error) {
	f.classCalls++
	return f.classes, nil
}

func (f *fakeDashboardTeachers) CountStudentsInClasses(context.Context, []string) (int, error) {
	return f.studentCount, nil
}

type fakeDashboardLedger struct {
	presentToday, absentToday int
	monthPresent, monthTotal  int
	activity                  []models.RecentActivity
}

func (f *fakeDashboardLedger) TodayCounts(context.Context, []string, string, time.Time) (int, int, error) {
	return f.presentToday, f.absentToday, nil
}

func (f *fakeDashboardLedger) MonthCounts(context.Context, []string, string, time.Time) (int, int, error) {
	return f.monthPresent, f.monthTotal, nil
}

func (f *fakeDashboardLedger) RecentActivity(context.Context, []string, string, int) ([]models.RecentActivity, error) {
	return f.activity, nil
}

// fakeCacheStore is an in-memory CacheRepository round-tripping through JSON
// the way the redis-backed repository does.
type fakeCacheStore struct {
	entries map[string][]byte
	sets    int
}

func newFakeCacheStore() *fakeCacheStore {
	return &fakeCacheStore{entries: map[string][]byte{}}
}

func (f *fakeCacheStore) Get(_ context.Context, key string, dest interface{}) error {
	raw, ok := f.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (f *fakeCacheStore) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.entries[key] = raw
	f.sets++
	return nil
}

func (f *fakeCacheStore) DeleteByPattern(_ context.Context, pattern string) error {
	delete(f.entries, pattern)
	return nil
}

func assignedClasses() []models.ClassGroup {
	return []models.ClassGroup{{ID: "class-1", Name: "FE", Section: "A"}}
}

func TestSummaryComputesRates(t *testing.T) {
	teachers := &fakeDashboardTeachers{classes: assignedClasses(), studentCount: 40}
	ledger := &fakeDashboardLedger{
		presentToday: 28,
		absentToday:  12,
		monthPresent: 300,
		monthTotal:   400,
	}
	svc := NewDashboardService(teachers, ledger, nil, 0, nil)

	summary, err := svc.Summary(context.Background(), "teacher-1")
	require.NoError(t, err)
	assert.Equal(t, 40, summary.TotalStudents)
	assert.Equal(t, 28, summary.PresentToday)
	assert.Equal(t, 12, summary.AbsentToday)
	assert.Equal(t, 70.0, summary.AttendanceRate)
	assert.Equal(t, 75.0, summary.MonthlyAverage)
	assert.NotNil(t, summary.RecentActivity)
}

func TestSummaryNoAssignedClasses(t *testing.T) {
	teachers := &fakeDashboardTeachers{}
	svc := NewDashboardService(teachers, &fakeDashboardLedger{}, nil, 0, nil)

	summary, err := svc.Summary(context.Background(), "teacher-1")
	require.NoError(t, err)
	assert.Zero(t, summary.TotalStudents)
	assert.Zero(t, summary.AttendanceRate)
	assert.Empty(t, summary.RecentActivity)
}

func TestSummaryZeroMarksToday(t *testing.T) {
	teachers := &fakeDashboardTeachers{classes: assignedClasses(), studentCount: 40}
	svc := NewDashboardService(teachers, &fakeDashboardLedger{}, nil, 0, nil)

	summary, err := svc.Summary(context.Background(), "teacher-1")
	require.NoError(t, err)
	assert.Zero(t, summary.AttendanceRate)
	assert.Zero(t, summary.MonthlyAverage)
}

func TestSummaryUsesCache(t *testing.T) {
	store := newFakeCacheStore()
	cache := NewCacheService(store, nil, time.Minute, nil, true)
	teachers := &fakeDashboardTeachers{classes: assignedClasses(), studentCount: 40}
	ledger := &fakeDashboardLedger{presentToday: 28, absentToday: 12}
	svc := NewDashboardService(teachers, ledger, cache, time.Minute, nil)

	first, err := svc.Summary(context.Background(), "teacher-1")
	require.NoError(t, err)
	assert.Equal(t, 1, store.sets)

	second, err := svc.Summary(context.Background(), "teacher-1")
	require.NoError(t, err)
	assert.Equal(t, first.PresentToday, second.PresentToday)
	// The second call was served from cache, not recomputed.
	assert.Equal(t, 1, teachers.classCalls)
}

func TestInvalidateDropsCachedSummary(t *testing.T) {
	store := newFakeCacheStore()
	cache := NewCacheService(store, nil, time.Minute, nil, true)
	teachers := &fakeDashboardTeachers{classes: assignedClasses(), studentCount: 40}
	svc := NewDashboardService(teachers, &fakeDashboardLedger{}, cache, time.Minute, nil)

	_, err := svc.Summary(context.Background(), "teacher-1")
	require.NoError(t, err)

	svc.Invalidate(context.Background(), "teacher-1")

	_, err = svc.Summary(context.Background(), "teacher-1")
	require.NoError(t, err)
	assert.Equal(t, 2, teachers.classCalls)
}

func TestSummaryNilCacheIsSafe(t *testing.T) {
	teachers := &fakeDashboardTeachers{classes: assignedClasses()}
	svc := NewDashboardService(teachers, &fakeDashboardLedger{}, nil, 0, nil)

	_, err := svc.Summary(context.Background(), "teacher-1")
	assert.NoError(t, err)
	svc.Invalidate(context.Background(), "teacher-1")
}
