package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classtrack/classtrack-api/internal/models"
	appErrors "github.com/classtrack/classtrack-api/pkg/errors"
)

type fakeAttendanceLedger struct {
	saved   *models.AttendanceRecord
	saveErr error
	records []models.AttendanceRecord
}

func (f *fakeAttendanceLedger) SaveDaily(_ context.Context, record *models.AttendanceRecord, marks []models.StudentMark) (*models.AttendanceRecord, error) {
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	saved := *record
	saved.ID = "rec-1"
	saved.Students = marks
	f.saved = &saved
	return &saved, nil
}

func (f *fakeAttendanceLedger) ListByClassAndDate(context.Context, string, time.Time, string) ([]models.AttendanceRecord, error) {
	return f.records, nil
}

func (f *fakeAttendanceLedger) ListByClassAndRange(context.Context, string, time.Time, time.Time, string) ([]models.AttendanceRecord, error) {
	return f.records, nil
}

func (f *fakeAttendanceLedger) ListByStudent(context.Context, string) ([]models.AttendanceRecord, error) {
	return f.records, nil
}

type fakeAttendanceStudents struct {
	count    int
	countErr error
	details  []models.StudentDetail
	findErr  error
}

func (f *fakeAttendanceStudents) CountByIDs(_ context.Context, _ string, ids []string) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	if f.count >= 0 {
		return f.count, nil
	}
	return len(ids), nil
}

func (f *fakeAttendanceStudents) FindByIDs(context.Context, []string) ([]models.StudentDetail, error) {
	return f.details, f.findErr
}

type fakeNotifier struct {
	enqueued []models.AbsenceNotification
}

func (f *fakeNotifier) EnqueueAbsences(notifications []models.AbsenceNotification) {
	f.enqueued = append(f.enqueued, notifications...)
}

func saveRequest(students ...models.StudentMarkInput) models.SaveAttendanceRequest {
	return models.SaveAttendanceRequest{
		ClassID:  "class-1",
		Date:     time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC),
		Students: students,
	}
}

func TestSaveDailyHappyPath(t *testing.T) {
	ledger := &fakeAttendanceLedger{}
	students := &fakeAttendanceStudents{count: -1}
	svc := NewAttendanceService(ledger, students, nil, nil, nil)

	saved, err := svc.SaveDaily(context.Background(), "teacher-1", saveRequest(
		models.StudentMarkInput{StudentID: "s1", Status: models.StatusPresent},
		models.StudentMarkInput{StudentID: "s2", Status: models.StatusAbsent},
	))
	require.NoError(t, err)
	assert.Equal(t, "teacher-1", saved.MarkedBy)
	// Dates are stored at midnight regardless of the request's clock time.
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), saved.Date)
	assert.Len(t, saved.Students, 2)
}

func TestSaveDailyRejectsEmptyRoster(t *testing.T) {
	svc := NewAttendanceService(&fakeAttendanceLedger{}, &fakeAttendanceStudents{count: -1}, nil, nil, nil)

	_, err := svc.SaveDaily(context.Background(), "teacher-1", saveRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSaveDailyRejectsDuplicateStudent(t *testing.T) {
	svc := NewAttendanceService(&fakeAttendanceLedger{}, &fakeAttendanceStudents{count: -1}, nil, nil, nil)

	_, err := svc.SaveDaily(context.Background(), "teacher-1", saveRequest(
		models.StudentMarkInput{StudentID: "s1", Status: models.StatusPresent},
		models.StudentMarkInput{StudentID: "s1", Status: models.StatusAbsent},
	))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "duplicate student")
}

func TestSaveDailyRejectsStudentsOutsideClass(t *testing.T) {
	ledger := &fakeAttendanceLedger{}
	svc := NewAttendanceService(ledger, &fakeAttendanceStudents{count: 1}, nil, nil, nil)

	_, err := svc.SaveDaily(context.Background(), "teacher-1", saveRequest(
		models.StudentMarkInput{StudentID: "s1", Status: models.StatusPresent},
		models.StudentMarkInput{StudentID: "s2", Status: models.StatusPresent},
	))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Nil(t, ledger.saved)
}

func TestSaveDailyNotifiesAbsentStudents(t *testing.T) {
	className := models.ClassName("FE")
	section := "A"
	students := &fakeAttendanceStudents{
		count: -1,
		details: []models.StudentDetail{
			{
				Student:      models.Student{ID: "s2", FullName: "Ravi Kumar", ParentPhone: "9876543210"},
				ClassName:    &className,
				ClassSection: &section,
			},
		},
	}
	notifier := &fakeNotifier{}
	svc := NewAttendanceService(&fakeAttendanceLedger{}, students, notifier, nil, nil)

	_, err := svc.SaveDaily(context.Background(), "teacher-1", saveRequest(
		models.StudentMarkInput{StudentID: "s1", Status: models.StatusPresent},
		models.StudentMarkInput{StudentID: "s2", Status: models.StatusAbsent},
	))
	require.NoError(t, err)

	require.Len(t, notifier.enqueued, 1)
	got := notifier.enqueued[0]
	assert.Equal(t, "s2", got.StudentID)
	assert.Equal(t, "Ravi Kumar", got.StudentName)
	assert.Equal(t, "9876543210", got.ParentPhone)
	assert.Equal(t, "FE-A", got.Class)
	assert.Equal(t, "2026-03-02", got.Date)
	assert.Equal(t, "absent", got.Reason)
}

func TestSaveDailyAllPresentSkipsNotifier(t *testing.T) {
	notifier := &fakeNotifier{}
	svc := NewAttendanceService(&fakeAttendanceLedger{}, &fakeAttendanceStudents{count: -1}, notifier, nil, nil)

	_, err := svc.SaveDaily(context.Background(), "teacher-1", saveRequest(
		models.StudentMarkInput{StudentID: "s1", Status: models.StatusPresent},
	))
	require.NoError(t, err)
	assert.Empty(t, notifier.enqueued)
}

func TestSaveDailySurvivesNotifierLookupFailure(t *testing.T) {
	students := &fakeAttendanceStudents{count: -1, findErr: errors.New("students unavailable")}
	notifier := &fakeNotifier{}
	svc := NewAttendanceService(&fakeAttendanceLedger{}, students, notifier, nil, nil)

	saved, err := svc.SaveDaily(context.Background(), "teacher-1", saveRequest(
		models.StudentMarkInput{StudentID: "s1", Status: models.StatusAbsent},
	))
	require.NoError(t, err)
	assert.NotNil(t, saved)
	assert.Empty(t, notifier.enqueued)
}

func TestSaveDailyNilNotifierIsSafe(t *testing.T) {
	svc := NewAttendanceService(&fakeAttendanceLedger{}, &fakeAttendanceStudents{count: -1}, nil, nil, nil)

	_, err := svc.SaveDaily(context.Background(), "teacher-1", saveRequest(
		models.StudentMarkInput{StudentID: "s1", Status: models.StatusAbsent},
	))
	require.NoError(t, err)
}
