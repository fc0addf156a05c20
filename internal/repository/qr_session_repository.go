package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classtrack/classtrack-api/internal/models"
)

// QRSessionRepository handles persistence for QR attendance sessions.
//
// The qr_redemptions table carries a primary key on (session_id, student_id);
// InsertRedemption relies on it for the at-most-once guarantee instead of a
// read-then-write check.
type QRSessionRepository struct {
	db *sqlx.DB
}

// NewQRSessionRepository constructs the repository.
func NewQRSessionRepository(db *sqlx.DB) *QRSessionRepository {
	return &QRSessionRepository{db: db}
}

// Create persists a new session. Sessions are active from creation.
func (r *QRSessionRepository) Create(ctx context.Context, session *models.QRSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	session.Active = true
	session.CreatedAt = time.Now().UTC()
	query := `INSERT INTO qr_sessions (id, teacher_id, class_id, subject, center_lat, center_lng, radius_m, start_time, end_time, active, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	if _, err := r.db.ExecContext(ctx, query,
		session.ID, session.TeacherID, session.ClassID, session.Subject,
		session.CenterLat, session.CenterLng, session.RadiusM,
		session.StartTime, session.EndTime, session.Active, session.CreatedAt); err != nil {
		return fmt.Errorf("create qr session: %w", err)
	}
	return nil
}

// FindByID returns the session with the given identifier.
func (r *QRSessionRepository) FindByID(ctx context.Context, id string) (*models.QRSession, error) {
	var session models.QRSession
	query := `SELECT id, teacher_id, class_id, subject, center_lat, center_lng, radius_m, start_time, end_time, active, created_at
FROM qr_sessions WHERE id = $1`
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// Deactivate flips the session inactive. Only the owning teacher may do so.
func (r *QRSessionRepository) Deactivate(ctx context.Context, id, teacherID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE qr_sessions SET active = FALSE WHERE id = $1 AND teacher_id = $2`, id, teacherID)
	if err != nil {
		return false, fmt.Errorf("deactivate qr session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deactivate qr session: %w", err)
	}
	return n > 0, nil
}

// InsertRedemption appends a redemption event. It returns false without error
// when the student already redeemed this session; the conflict target makes
// the uniqueness check and the append a single atomic statement.
func (r *QRSessionRepository) InsertRedemption(ctx context.Context, event *models.RedemptionEvent) (bool, error) {
	query := `INSERT INTO qr_redemptions (session_id, student_id, redeemed_at, lat, lng)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (session_id, student_id) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query,
		event.SessionID, event.StudentID, event.RedeemedAt, event.Lat, event.Lng)
	if err != nil {
		return false, fmt.Errorf("insert redemption: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert redemption: %w", err)
	}
	return n > 0, nil
}

// HasRedemption reports whether the student already redeemed the session.
func (r *QRSessionRepository) HasRedemption(ctx context.Context, sessionID, studentID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM qr_redemptions WHERE session_id = $1 AND student_id = $2)`
	if err := r.db.GetContext(ctx, &exists, query, sessionID, studentID); err != nil {
		return false, fmt.Errorf("check redemption: %w", err)
	}
	return exists, nil
}

// ListRedemptions returns a session's redemption events, oldest first.
func (r *QRSessionRepository) ListRedemptions(ctx context.Context, sessionID string) ([]models.RedemptionEvent, error) {
	var events []models.RedemptionEvent
	query := `SELECT session_id, student_id, redeemed_at, lat, lng
FROM qr_redemptions WHERE session_id = $1 ORDER BY redeemed_at`
	if err := r.db.SelectContext(ctx, &events, query, sessionID); err != nil {
		return nil, fmt.Errorf("list redemptions: %w", err)
	}
	return events, nil
}
