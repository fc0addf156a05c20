package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classtrack/classtrack-api/internal/models"
)

func TestSaveDailyReplacesMarks(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	start := day.Add(9 * time.Hour)
	end := day.Add(10 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO attendance_records").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("rec-1"))
	mock.ExpectExec("DELETE FROM attendance_subject_marks").
		WithArgs("rec-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM attendance_entries").
		WithArgs("rec-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO attendance_entries").
		WithArgs("rec-1", "s1", models.StatusPresent).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO attendance_subject_marks").
		WithArgs("rec-1", "s1", "Maths", models.StatusPresent).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO attendance_entries").
		WithArgs("rec-1", "s2", models.StatusAbsent).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	record := &models.AttendanceRecord{
		ClassID:  "class-1",
		Date:     day,
		MarkedBy: "teacher-1",
		Timing:   models.TimingWindow{StartTime: &start, EndTime: &end},
	}
	marks := []models.StudentMark{
		{StudentID: "s1", Status: models.StatusPresent, Subjects: []models.SubjectMark{{Name: "Maths", Status: models.StatusPresent}}},
		{StudentID: "s2", Status: models.StatusAbsent},
	}

	saved, err := repo.SaveDaily(context.Background(), record, marks)
	require.NoError(t, err)
	assert.Equal(t, "rec-1", saved.ID)
	assert.Len(t, saved.Students, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveDailyRollsBackOnEntryFailure(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO attendance_records").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("rec-1"))
	mock.ExpectExec("DELETE FROM attendance_subject_marks").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM attendance_entries").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO attendance_entries").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	record := &models.AttendanceRecord{
		ClassID:  "class-1",
		Date:     time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		MarkedBy: "teacher-1",
	}
	_, err := repo.SaveDaily(context.Background(), record, []models.StudentMark{{StudentID: "s1", Status: models.StatusPresent}})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertStudentMark(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO attendance_records").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("rec-1"))
	mock.ExpectExec("INSERT INTO attendance_entries").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO attendance_subject_marks").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	record, err := repo.UpsertStudentMark(context.Background(), "class-1", day, "Maths", "s1", "teacher-1", nil, models.StatusPresent)
	require.NoError(t, err)
	assert.Equal(t, "rec-1", record.ID)
	require.Len(t, record.Students, 1)
	assert.Equal(t, models.StatusPresent, record.Students[0].Status)
	require.Len(t, record.Students[0].Subjects, 1)
	assert.Equal(t, "Maths", record.Students[0].Subjects[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByClassAndDateAttachesMarks(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	now := time.Now().UTC()

	recordRows := sqlmock.NewRows([]string{"id", "class_id", "date", "marked_by", "subject_teacher_id", "start_time", "end_time", "remarks", "created_at", "updated_at"}).
		AddRow("rec-1", "class-1", day, "teacher-1", nil, nil, nil, nil, now, now)
	mock.ExpectQuery("FROM attendance_records").
		WithArgs("class-1", day, "teacher-1").
		WillReturnRows(recordRows)

	entryRows := sqlmock.NewRows([]string{"record_id", "student_id", "student_name", "roll_number", "status"}).
		AddRow("rec-1", "s1", "Asha Verma", "01", "present").
		AddRow("rec-1", "s2", "Ravi Kumar", "02", "absent")
	mock.ExpectQuery("FROM attendance_entries ae").
		WillReturnRows(entryRows)

	subjectRows := sqlmock.NewRows([]string{"record_id", "student_id", "subject_name", "status"}).
		AddRow("rec-1", "s1", "Maths", "present")
	mock.ExpectQuery("FROM attendance_subject_marks").
		WillReturnRows(subjectRows)

	records, err := repo.ListByClassAndDate(context.Background(), "class-1", day, "teacher-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Len(t, records[0].Students, 2)
	assert.Equal(t, "Asha Verma", records[0].Students[0].StudentName)
	require.Len(t, records[0].Students[0].Subjects, 1)
	assert.Equal(t, "Maths", records[0].Students[0].Subjects[0].Name)
	assert.Empty(t, records[0].Students[1].Subjects)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByStudentFiltersOtherStudents(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	now := time.Now().UTC()

	recordRows := sqlmock.NewRows([]string{"id", "class_id", "date", "marked_by", "subject_teacher_id", "start_time", "end_time", "remarks", "created_at", "updated_at"}).
		AddRow("rec-1", "class-1", day, "teacher-1", nil, nil, nil, nil, now, now)
	mock.ExpectQuery("FROM attendance_records ar").
		WithArgs("s1").
		WillReturnRows(recordRows)

	entryRows := sqlmock.NewRows([]string{"record_id", "student_id", "student_name", "roll_number", "status"}).
		AddRow("rec-1", "s1", "Asha Verma", "01", "present").
		AddRow("rec-1", "s2", "Ravi Kumar", "02", "absent")
	mock.ExpectQuery("FROM attendance_entries ae").
		WillReturnRows(entryRows)
	mock.ExpectQuery("FROM attendance_subject_marks").
		WillReturnRows(sqlmock.NewRows([]string{"record_id", "student_id", "subject_name", "status"}))

	records, err := repo.ListByStudent(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Len(t, records[0].Students, 1)
	assert.Equal(t, "s1", records[0].Students[0].StudentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTodayCountsEmptyClassList(t *testing.T) {
	db, _, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	present, absent, err := repo.TodayCounts(context.Background(), nil, "teacher-1", time.Now())
	require.NoError(t, err)
	assert.Zero(t, present)
	assert.Zero(t, absent)
}

func TestTodayCounts(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectQuery("FROM attendance_entries ae").
		WillReturnRows(sqlmock.NewRows([]string{"present", "absent"}).AddRow(28, 12))

	present, absent, err := repo.TodayCounts(context.Background(), []string{"class-1"}, "teacher-1", time.Now())
	require.NoError(t, err)
	assert.Equal(t, 28, present)
	assert.Equal(t, 12, absent)
	assert.NoError(t, mock.ExpectationsWereMet())
}
