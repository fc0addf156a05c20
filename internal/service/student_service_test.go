package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classtrack/classtrack-api/internal/models"
	appErrors "github.com/classtrack/classtrack-api/pkg/errors"
)

type fakeStudentRepo struct {
	students   map[string]*models.StudentDetail
	byUser     map[string]*models.StudentDetail
	rollTaken  bool
	createErr  error
	created    []*models.Student
	deletedIDs []string
	roster     []models.RosterEntry
}

func newFakeStudentRepo() *fakeStudentRepo {
	return &fakeStudentRepo{
		students: map[string]*models.StudentDetail{},
		byUser:   map[string]*models.StudentDetail{},
	}
}

func (f *fakeStudentRepo) List(context.Context, models.StudentFilter) ([]models.StudentDetail, int, error) {
	out := make([]models.StudentDetail, 0, len(f.students))
	for _, s := range f.students {
		out = append(out, *s)
	}
	return out, len(out), nil
}

func (f *fakeStudentRepo) FindByID(_ context.Context, id string) (*models.StudentDetail, error) {
	s, ok := f.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return s, nil
}

func (f *fakeStudentRepo) FindByUserID(_ context.Context, userID string) (*models.StudentDetail, error) {
	s, ok := f.byUser[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return s, nil
}

func (f *fakeStudentRepo) ExistsByRollNumber(context.Context, string, string) (bool, error) {
	return f.rollTaken, nil
}

func (f *fakeStudentRepo) Create(_ context.Context, student *models.Student) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, student)
	detail := &models.StudentDetail{Student: *student}
	f.students[student.ID] = detail
	f.byUser[student.UserID] = detail
	return nil
}

func (f *fakeStudentRepo) Update(_ context.Context, student *models.Student) error {
	f.students[student.ID] = &models.StudentDetail{Student: *student}
	return nil
}

func (f *fakeStudentRepo) Delete(_ context.Context, id string) error {
	f.deletedIDs = append(f.deletedIDs, id)
	delete(f.students, id)
	return nil
}

func (f *fakeStudentRepo) Roster(context.Context, string) ([]models.RosterEntry, error) {
	return f.roster, nil
}

type fakeStudentUsers struct {
	emailTaken bool
	created    []*models.User
	deletedIDs []string
}

func (f *fakeStudentUsers) Create(_ context.Context, user *models.User) error {
	f.created = append(f.created, user)
	return nil
}

func (f *fakeStudentUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	for _, u := range f.created {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStudentUsers) ExistsByEmail(context.Context, string) (bool, error) {
	return f.emailTaken, nil
}

func (f *fakeStudentUsers) Delete(_ context.Context, id string) error {
	f.deletedIDs = append(f.deletedIDs, id)
	return nil
}

type fakeClassRepo struct {
	classes map[string]*models.ClassGroup
}

func (f *fakeClassRepo) FindByID(_ context.Context, id string) (*models.ClassGroup, error) {
	class, ok := f.classes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return class, nil
}

type fakeHistoryReader struct {
	records []models.AttendanceRecord
}

func (f *fakeHistoryReader) ListByStudent(context.Context, string) ([]models.AttendanceRecord, error) {
	return f.records, nil
}

func newTestStudentService(students *fakeStudentRepo, users *fakeStudentUsers, history *fakeHistoryReader) *StudentService {
	classes := &fakeClassRepo{classes: map[string]*models.ClassGroup{
		"class-1": {ID: "class-1", Name: "FE", Section: "A"},
	}}
	if history == nil {
		history = &fakeHistoryReader{}
	}
	return NewStudentService(students, users, classes, history, nil, nil)
}

func createStudentRequest() models.CreateStudentRequest {
	return models.CreateStudentRequest{
		FullName:    "Asha Verma",
		RollNumber:  "42",
		ClassID:     "class-1",
		Department:  "Computer",
		Semester:    2,
		ParentName:  "Rakesh Verma",
		ParentPhone: "+919876543210",
	}
}

func TestDeriveCredentials(t *testing.T) {
	creds := deriveCredentials("Asha  Verma", "42")
	assert.Equal(t, "ashaverma42@test.com", creds.Email)
	assert.Equal(t, "ashaverma42", creds.Password)
}

func TestCreateStudentProvisionsLogin(t *testing.T) {
	students := newFakeStudentRepo()
	users := &fakeStudentUsers{}
	svc := newTestStudentService(students, users, nil)

	detail, creds, err := svc.Create(context.Background(), createStudentRequest())
	require.NoError(t, err)
	require.NotNil(t, creds)
	assert.Equal(t, "ashaverma42@test.com", creds.Email)
	assert.Equal(t, "42", detail.RollNumber)

	require.Len(t, users.created, 1)
	assert.Equal(t, models.RoleStudent, users.created[0].Role)
	assert.Equal(t, users.created[0].ID, detail.UserID)
	// The stored hash must never equal the returned password.
	assert.NotEqual(t, creds.Password, users.created[0].PasswordHash)
}

func TestCreateStudentUnknownClass(t *testing.T) {
	svc := newTestStudentService(newFakeStudentRepo(), &fakeStudentUsers{}, nil)

	req := createStudentRequest()
	req.ClassID = "missing"
	_, _, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCreateStudentDuplicateRollNumber(t *testing.T) {
	students := newFakeStudentRepo()
	students.rollTaken = true
	users := &fakeStudentUsers{}
	svc := newTestStudentService(students, users, nil)

	_, _, err := svc.Create(context.Background(), createStudentRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, users.created)
}

func TestCreateStudentDuplicateDerivedEmail(t *testing.T) {
	users := &fakeStudentUsers{emailTaken: true}
	svc := newTestStudentService(newFakeStudentRepo(), users, nil)

	_, _, err := svc.Create(context.Background(), createStudentRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestCreateStudentInvalidParentPhone(t *testing.T) {
	svc := newTestStudentService(newFakeStudentRepo(), &fakeStudentUsers{}, nil)

	req := createStudentRequest()
	req.ParentPhone = "12345"
	_, _, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCreateStudentRollsBackLoginOnFailure(t *testing.T) {
	students := newFakeStudentRepo()
	students.createErr = errors.New("insert failed")
	users := &fakeStudentUsers{}
	svc := newTestStudentService(students, users, nil)

	_, _, err := svc.Create(context.Background(), createStudentRequest())
	require.Error(t, err)
	require.Len(t, users.created, 1)
	assert.Equal(t, []string{users.created[0].ID}, users.deletedIDs)
}

func TestDeleteStudentRemovesLogin(t *testing.T) {
	students := newFakeStudentRepo()
	users := &fakeStudentUsers{}
	svc := newTestStudentService(students, users, nil)

	_, _, err := svc.Create(context.Background(), createStudentRequest())
	require.NoError(t, err)
	studentID := students.created[0].ID

	require.NoError(t, svc.Delete(context.Background(), studentID))
	assert.Contains(t, students.deletedIDs, studentID)
	assert.Contains(t, users.deletedIDs, students.created[0].UserID)
}

func TestListClampsPagination(t *testing.T) {
	svc := newTestStudentService(newFakeStudentRepo(), &fakeStudentUsers{}, nil)

	_, page, err := svc.List(context.Background(), models.StudentFilter{Page: -3, PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)
}

func TestProfileComputesAttendanceTotals(t *testing.T) {
	students := newFakeStudentRepo()
	users := &fakeStudentUsers{}
	history := &fakeHistoryReader{}
	svc := newTestStudentService(students, users, history)

	_, _, err := svc.Create(context.Background(), createStudentRequest())
	require.NoError(t, err)
	created := students.created[0]

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	history.records = []models.AttendanceRecord{
		{Date: day, Students: []models.StudentMark{{StudentID: created.ID, Status: models.StatusPresent}}},
		{Date: day.AddDate(0, 0, 1), Students: []models.StudentMark{{StudentID: created.ID, Status: models.StatusPresent}}},
		{Date: day.AddDate(0, 0, 2), Students: []models.StudentMark{{StudentID: created.ID, Status: models.StatusAbsent}}},
	}

	profile, err := svc.Profile(context.Background(), created.UserID)
	require.NoError(t, err)
	assert.Equal(t, 3, profile.TotalDays)
	assert.Equal(t, 2, profile.Present)
	assert.Equal(t, 1, profile.Absent)
	assert.Equal(t, 66, profile.Percentage)
	assert.Equal(t, "ashaverma42@test.com", profile.Email)
}

func TestFindByUserIDWithoutEnrollment(t *testing.T) {
	svc := newTestStudentService(newFakeStudentRepo(), &fakeStudentUsers{}, nil)

	_, err := svc.FindByUserID(context.Background(), "user-without-student")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
