package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/classtrack/classtrack-api/internal/models"
	appErrors "github.com/classtrack/classtrack-api/pkg/errors"
)

type teacherRepository interface {
	FindByUserID(ctx context.Context, userID string) (*models.Teacher, error)
	Upsert(ctx context.Context, teacher *models.Teacher, classIDs []string) error
	AssignedClasses(ctx context.Context, teacherID string) ([]models.ClassGroup, error)
}

type teacherUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type teacherClassLookup interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.ClassGroup, error)
}

// TeacherService manages the teaching profile attached to a login. A profile
// is created lazily on first save; before that, Get falls back to a skeleton
// so the client can render the onboarding form.
type TeacherService struct {
	teachers  teacherRepository
	users     teacherUserRepository
	classes   teacherClassLookup
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService constructs a TeacherService.
func NewTeacherService(teachers teacherRepository, users teacherUserRepository, classes teacherClassLookup, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &TeacherService{teachers: teachers, users: users, classes: classes, validator: validate, logger: logger}
}

// Profile returns the caller's teaching profile with assigned classes.
func (s *TeacherService) Profile(ctx context.Context, userID string) (*models.TeacherProfile, error) {
	teacher, err := s.teachers.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s.skeletonProfile(ctx, userID)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	assigned, err := s.teachers.AssignedClasses(ctx, teacher.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assigned classes")
	}
	return &models.TeacherProfile{Teacher: *teacher, AssignedClasses: assigned}, nil
}

// UpdateProfile creates or replaces the caller's teaching profile.
func (s *TeacherService) UpdateProfile(ctx context.Context, userID string, req models.UpdateTeacherProfileRequest) (*models.TeacherProfile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}

	found, err := s.classes.FindByIDs(ctx, req.ClassIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve classes")
	}
	if len(found) != len(req.ClassIDs) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "payload references unknown classes")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load login")
	}

	teacher := &models.Teacher{
		ID:            uuid.NewString(),
		UserID:        userID,
		FullName:      user.FullName,
		Department:    req.Department,
		Subjects:      req.Subjects,
		ContactNumber: req.ContactNumber,
	}
	if existing, err := s.teachers.FindByUserID(ctx, userID); err == nil {
		teacher.ID = existing.ID
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	if err := s.teachers.Upsert(ctx, teacher, req.ClassIDs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save profile")
	}

	s.logger.Info("teacher profile saved",
		zap.String("teacher_id", teacher.ID),
		zap.Int("classes", len(req.ClassIDs)),
		zap.Int("subjects", len(req.Subjects)))

	return s.Profile(ctx, userID)
}

// ResolveTeacherID maps a login identity to its teacher row.
func (s *TeacherService) ResolveTeacherID(ctx context.Context, userID string) (string, error) {
	teacher, err := s.teachers.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.Clone(appErrors.ErrNotFound, "complete your teaching profile first")
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return teacher.ID, nil
}

func (s *TeacherService) skeletonProfile(ctx context.Context, userID string) (*models.TeacherProfile, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load login")
	}
	return &models.TeacherProfile{
		Teacher:         models.Teacher{UserID: userID, FullName: user.FullName, Subjects: models.SubjectList{}},
		AssignedClasses: []models.ClassGroup{},
	}, nil
}
