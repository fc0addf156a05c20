package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/classtrack/classtrack-api/pkg/geo"
)

// Geofence is the permitted area for QR-based self-marking.
type Geofence struct {
	Center  geo.Point `json:"center"`
	RadiusM float64   `json:"radius_m"`
}

// QRSession is a time-bounded, location-bound attendance session.
// A session is active from the moment it is persisted; expiry is evaluated
// lazily against the validity window, there is no background sweep.
type QRSession struct {
	ID        string    `db:"id" json:"id"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	ClassID   string    `db:"class_id" json:"class_id"`
	Subject   string    `db:"subject" json:"subject"`
	CenterLat float64   `db:"center_lat" json:"-"`
	CenterLng float64   `db:"center_lng" json:"-"`
	RadiusM   float64   `db:"radius_m" json:"radius_m"`
	StartTime time.Time `db:"start_time" json:"start_time"`
	EndTime   time.Time `db:"end_time" json:"end_time"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Geofence returns the session's configured geofence.
func (s *QRSession) Geofence() Geofence {
	return Geofence{Center: geo.Point{Lat: s.CenterLat, Lng: s.CenterLng}, RadiusM: s.RadiusM}
}

// LiveAt reports whether the session accepts redemptions at the given time.
func (s *QRSession) LiveAt(now time.Time) bool {
	return s.Active && now.Before(s.EndTime) && !now.Before(s.StartTime)
}

// SessionTokenClaims is the payload of the signed session token embedded in
// the QR image. It carries only the session identifier; the geofence and the
// roster never leave the server.
type SessionTokenClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// CreateSessionRequest opens a QR attendance session for a class.
type CreateSessionRequest struct {
	ClassID         string  `json:"class_id" validate:"required"`
	Subject         string  `json:"subject" validate:"required"`
	Lat             float64 `json:"lat" validate:"latitude"`
	Lng             float64 `json:"lng" validate:"longitude"`
	RadiusM         float64 `json:"radius_m" validate:"omitempty,gt=0"`
	DurationMinutes int     `json:"duration_minutes" validate:"omitempty,gt=0"`
}

// QRSessionResponse returns the opaque token next to the session metadata.
// Rendering the token as a QR image is the client's job.
type QRSessionResponse struct {
	SessionID string    `json:"session_id"`
	Token     string    `json:"token"`
	ClassID   string    `json:"class_id"`
	Subject   string    `json:"subject"`
	RadiusM   float64   `json:"radius_m"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// RedeemRequest is a student's attempt to mark attendance from a scanned token.
type RedeemRequest struct {
	Token string  `json:"token" validate:"required"`
	Lat   float64 `json:"lat" validate:"latitude"`
	Lng   float64 `json:"lng" validate:"longitude"`
}

// RedeemResult confirms a successful redemption.
type RedeemResult struct {
	SessionID  string           `json:"session_id"`
	ClassID    string           `json:"class_id"`
	Subject    string           `json:"subject"`
	Status     AttendanceStatus `json:"status"`
	RedeemedAt time.Time        `json:"redeemed_at"`
	DistanceM  float64          `json:"distance_m"`
}

// VerifyLocationRequest is the read-only pre-check before scanning.
type VerifyLocationRequest struct {
	Token string  `json:"token" validate:"required"`
	Lat   float64 `json:"lat" validate:"latitude"`
	Lng   float64 `json:"lng" validate:"longitude"`
}

// LocationCheck reports the distance verdict without recording anything.
type LocationCheck struct {
	WithinRange bool    `json:"within_range"`
	DistanceM   float64 `json:"distance_m"`
	MaxRadiusM  float64 `json:"max_radius_m"`
}

// RedemptionEvent is one student's consumption of a session token.
// Events are append-only with at most one per (session, student).
type RedemptionEvent struct {
	SessionID  string    `db:"session_id" json:"session_id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	RedeemedAt time.Time `db:"redeemed_at" json:"redeemed_at"`
	Lat        float64   `db:"lat" json:"lat"`
	Lng        float64   `db:"lng" json:"lng"`
}
