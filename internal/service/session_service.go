package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/classtrack/classtrack-api/internal/models"
	appErrors "github.com/classtrack/classtrack-api/pkg/errors"
	"github.com/classtrack/classtrack-api/pkg/geo"
)

type sessionRepository interface {
	Create(ctx context.Context, session *models.QRSession) error
	FindByID(ctx context.Context, id string) (*models.QRSession, error)
	Deactivate(ctx context.Context, id, teacherID string) (bool, error)
	HasRedemption(ctx context.Context, sessionID, studentID string) (bool, error)
	InsertRedemption(ctx context.Context, event *models.RedemptionEvent) (bool, error)
}

type sessionLedger interface {
	UpsertStudentMark(ctx context.Context, classID string, date time.Time, subject, studentID, markedBy string, subjectTeacherID *string, status models.AttendanceStatus) (*models.AttendanceRecord, error)
}

// SessionConfig controls session issuance defaults and token signing.
type SessionConfig struct {
	TokenSecret     string
	DefaultRadiusM  float64
	DefaultDuration time.Duration
	MaxDuration     time.Duration
}

// SessionService manages the lifecycle of QR attendance sessions: issuance,
// redemption, location pre-checks and explicit deactivation. Expiry is lazy;
// a session past its window simply stops accepting redemptions.
type SessionService struct {
	sessions  sessionRepository
	ledger    sessionLedger
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
	config    SessionConfig
	now       func() time.Time
}

// NewSessionService constructs a SessionService.
func NewSessionService(sessions sessionRepository, ledger sessionLedger, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService, config SessionConfig) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.DefaultRadiusM <= 0 {
		config.DefaultRadiusM = 100
	}
	if config.DefaultDuration <= 0 {
		config.DefaultDuration = 5 * time.Minute
	}
	if config.MaxDuration <= 0 {
		config.MaxDuration = 2 * time.Hour
	}
	return &SessionService{
		sessions:  sessions,
		ledger:    ledger,
		validator: validate,
		logger:    logger,
		metrics:   metrics,
		config:    config,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateSession opens a session anchored at the teacher's location and returns
// the signed token the client renders as a QR code.
func (s *SessionService) CreateSession(ctx context.Context, teacherID string, req models.CreateSessionRequest) (*models.QRSessionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}

	radius := req.RadiusM
	if radius <= 0 {
		radius = s.config.DefaultRadiusM
	}
	duration := s.config.DefaultDuration
	if req.DurationMinutes > 0 {
		duration = time.Duration(req.DurationMinutes) * time.Minute
	}
	if duration > s.config.MaxDuration {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("session duration exceeds the maximum of %s", s.config.MaxDuration))
	}

	start := s.now()
	session := &models.QRSession{
		ID:        uuid.NewString(),
		TeacherID: teacherID,
		ClassID:   req.ClassID,
		Subject:   req.Subject,
		CenterLat: req.Lat,
		CenterLng: req.Lng,
		RadiusM:   radius,
		StartTime: start,
		EndTime:   start.Add(duration),
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist session")
	}

	token, err := s.signToken(session)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign session token")
	}

	s.logger.Info("qr session created",
		zap.String("session_id", session.ID),
		zap.String("class_id", session.ClassID),
		zap.String("subject", session.Subject),
		zap.Float64("radius_m", session.RadiusM),
		zap.Time("end_time", session.EndTime))

	return &models.QRSessionResponse{
		SessionID: session.ID,
		Token:     token,
		ClassID:   session.ClassID,
		Subject:   session.Subject,
		RadiusM:   session.RadiusM,
		StartTime: session.StartTime,
		EndTime:   session.EndTime,
	}, nil
}

// Deactivate closes a session before its window ends. Only the owner may.
func (s *SessionService) Deactivate(ctx context.Context, sessionID, teacherID string) error {
	ok, err := s.sessions.Deactivate(ctx, sessionID, teacherID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate session")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "session not found")
	}
	return nil
}

// Redeem marks the calling student present for the session the token resolves
// to. Checks run in order, each short-circuiting: token validity, session
// liveness, per-student uniqueness, geofence. The redemption event insert is
// conflict-guarded so two racing requests still produce exactly one mark.
func (s *SessionService) Redeem(ctx context.Context, student *models.StudentDetail, req models.RedeemRequest) (*models.RedeemResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid redeem payload")
	}

	session, err := s.resolveSession(ctx, req.Token)
	if err != nil {
		s.observe("invalid_token")
		return nil, err
	}

	now := s.now()
	if !session.LiveAt(now) {
		s.observe("session_expired")
		return nil, appErrors.Clone(appErrors.ErrSessionExpired, "")
	}

	marked, err := s.sessions.HasRedemption(ctx, session.ID, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check redemption")
	}
	if marked {
		s.observe("already_marked")
		return nil, appErrors.Clone(appErrors.ErrAlreadyMarked, "")
	}

	fence := session.Geofence()
	distance := geo.Distance(geo.Point{Lat: req.Lat, Lng: req.Lng}, fence.Center)
	if distance > fence.RadiusM {
		s.observe("out_of_range")
		return nil, appErrors.WithDetails(appErrors.ErrOutOfRange, map[string]interface{}{
			"distance_m":   math.Round(distance),
			"max_radius_m": fence.RadiusM,
		})
	}

	inserted, err := s.sessions.InsertRedemption(ctx, &models.RedemptionEvent{
		SessionID:  session.ID,
		StudentID:  student.ID,
		RedeemedAt: now,
		Lat:        req.Lat,
		Lng:        req.Lng,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record redemption")
	}
	if !inserted {
		// Lost a race with a concurrent redemption by the same student.
		s.observe("already_marked")
		return nil, appErrors.Clone(appErrors.ErrAlreadyMarked, "")
	}

	day := truncateToDay(now)
	if _, err := s.ledger.UpsertStudentMark(ctx, session.ClassID, day, session.Subject, student.ID, session.TeacherID, nil, models.StatusPresent); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save attendance mark")
	}

	s.observe("success")
	s.logger.Info("qr attendance marked",
		zap.String("session_id", session.ID),
		zap.String("student_id", student.ID),
		zap.Float64("distance_m", distance))

	return &models.RedeemResult{
		SessionID:  session.ID,
		ClassID:    session.ClassID,
		Subject:    session.Subject,
		Status:     models.StatusPresent,
		RedeemedAt: now,
		DistanceM:  distance,
	}, nil
}

// VerifyLocation answers "would I be in range" without recording anything.
func (s *SessionService) VerifyLocation(ctx context.Context, req models.VerifyLocationRequest) (*models.LocationCheck, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid location payload")
	}

	session, err := s.resolveSession(ctx, req.Token)
	if err != nil {
		return nil, err
	}
	if !session.LiveAt(s.now()) {
		return nil, appErrors.Clone(appErrors.ErrSessionExpired, "")
	}

	fence := session.Geofence()
	distance := geo.Distance(geo.Point{Lat: req.Lat, Lng: req.Lng}, fence.Center)
	return &models.LocationCheck{
		WithinRange: distance <= fence.RadiusM,
		DistanceM:   distance,
		MaxRadiusM:  fence.RadiusM,
	}, nil
}

// IssueStudentToken signs a long-lived identity token a student can present
// as a personal QR code.
func (s *SessionService) IssueStudentToken(studentID string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   studentID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.TokenSecret))
}

func (s *SessionService) resolveSession(ctx context.Context, tokenString string) (*models.QRSession, error) {
	claims, err := s.parseToken(tokenString)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidToken.Code, appErrors.ErrInvalidToken.Status, appErrors.ErrInvalidToken.Message)
	}
	session, err := s.sessions.FindByID(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidToken, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	return session, nil
}

// parseToken verifies the signature only. Expiry is judged against the
// session row so a post-window scan reports the session as expired rather
// than the token as malformed.
func (s *SessionService) parseToken(tokenString string) (*models.SessionTokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.SessionTokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.TokenSecret), nil
	}, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*models.SessionTokenClaims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return nil, errors.New("invalid session token claims")
	}
	return claims, nil
}

func (s *SessionService) signToken(session *models.QRSession) (string, error) {
	claims := &models.SessionTokenClaims{
		SessionID: session.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			IssuedAt:  jwt.NewNumericDate(session.StartTime),
			ExpiresAt: jwt.NewNumericDate(session.EndTime),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.TokenSecret))
}

func (s *SessionService) observe(result string) {
	if s.metrics != nil {
		s.metrics.ObserveRedemption(result)
	}
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
