package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classtrack/classtrack-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func TestCreateSessionAssignsIDAndActive(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewQRSessionRepository(db)

	mock.ExpectExec("INSERT INTO qr_sessions").WillReturnResult(sqlmock.NewResult(1, 1))

	session := &models.QRSession{
		TeacherID: "teacher-1",
		ClassID:   "class-1",
		Subject:   "Maths",
		CenterLat: 19.0760,
		CenterLng: 72.8777,
		RadiusM:   100,
		StartTime: time.Now().UTC(),
		EndTime:   time.Now().UTC().Add(5 * time.Minute),
	}
	err := repo.Create(context.Background(), session)
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.True(t, session.Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindSessionByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewQRSessionRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "teacher_id", "class_id", "subject", "center_lat", "center_lng", "radius_m", "start_time", "end_time", "active", "created_at"}).
		AddRow("sess-1", "teacher-1", "class-1", "Maths", 19.0760, 72.8777, 100.0, now, now.Add(5*time.Minute), true, now)
	mock.ExpectQuery("FROM qr_sessions WHERE id").
		WithArgs("sess-1").
		WillReturnRows(rows)

	session, err := repo.FindByID(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "teacher-1", session.TeacherID)
	assert.True(t, session.Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindSessionByIDNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewQRSessionRepository(db)

	mock.ExpectQuery("FROM qr_sessions WHERE id").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeactivateSession(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewQRSessionRepository(db)

	mock.ExpectExec("UPDATE qr_sessions SET active = FALSE").
		WithArgs("sess-1", "teacher-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.Deactivate(context.Background(), "sess-1", "teacher-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeactivateSessionNotOwner(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewQRSessionRepository(db)

	mock.ExpectExec("UPDATE qr_sessions SET active = FALSE").
		WithArgs("sess-1", "other-teacher").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.Deactivate(context.Background(), "sess-1", "other-teacher")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertRedemptionFirstScan(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewQRSessionRepository(db)

	mock.ExpectExec("INSERT INTO qr_redemptions").WillReturnResult(sqlmock.NewResult(1, 1))

	inserted, err := repo.InsertRedemption(context.Background(), &models.RedemptionEvent{
		SessionID:  "sess-1",
		StudentID:  "student-1",
		RedeemedAt: time.Now().UTC(),
		Lat:        19.0760,
		Lng:        72.8777,
	})
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertRedemptionDuplicateScan(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewQRSessionRepository(db)

	// ON CONFLICT DO NOTHING reports zero affected rows on the second scan.
	mock.ExpectExec("INSERT INTO qr_redemptions").WillReturnResult(sqlmock.NewResult(0, 0))

	inserted, err := repo.InsertRedemption(context.Background(), &models.RedemptionEvent{
		SessionID: "sess-1",
		StudentID: "student-1",
	})
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHasRedemption(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewQRSessionRepository(db)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("sess-1", "student-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	marked, err := repo.HasRedemption(context.Background(), "sess-1", "student-1")
	require.NoError(t, err)
	assert.True(t, marked)
	assert.NoError(t, mock.ExpectationsWereMet())
}
