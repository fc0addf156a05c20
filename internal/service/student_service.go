package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/classtrack/classtrack-api/internal/models"
	appErrors "github.com/classtrack/classtrack-api/pkg/errors"
)

// parentPhonePattern mirrors the format enforced for SMS delivery: a 10-digit
// Indian mobile number with an optional +91 prefix.
var parentPhonePattern = regexp.MustCompile(`^(\+91)?[0-9]{10}$`)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	FindByUserID(ctx context.Context, userID string) (*models.StudentDetail, error)
	ExistsByRollNumber(ctx context.Context, rollNumber, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
	Roster(ctx context.Context, classID string) ([]models.RosterEntry, error)
}

type studentUserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Delete(ctx context.Context, id string) error
}

type studentClassRepository interface {
	FindByID(ctx context.Context, id string) (*models.ClassGroup, error)
}

type studentHistoryReader interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.AttendanceRecord, error)
}

// StudentService owns student enrollment and the student-facing profile.
// Creating a student also provisions a login account with credentials derived
// from the name and roll number; they are returned exactly once.
type StudentService struct {
	students  studentRepository
	users     studentUserRepository
	classes   studentClassRepository
	history   studentHistoryReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs a StudentService.
func NewStudentService(students studentRepository, users studentUserRepository, classes studentClassRepository, history studentHistoryReader, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	svc := &StudentService{students: students, users: users, classes: classes, history: history, validator: validate, logger: logger}
	svc.validator.RegisterValidation("parent_phone", func(fl validator.FieldLevel) bool {
		return parentPhonePattern.MatchString(fl.Field().String())
	})
	return svc
}

// List returns students matching the filter with pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	students, total, err := s.students.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns one student by identifier.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Create enrolls a student and provisions their login account.
func (s *StudentService) Create(ctx context.Context, req models.CreateStudentRequest) (*models.StudentDetail, *models.StudentCredentials, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	if _, err := s.classes.FindByID(ctx, req.ClassID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	taken, err := s.students.ExistsByRollNumber(ctx, req.RollNumber, "")
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check roll number")
	}
	if taken {
		return nil, nil, appErrors.Clone(appErrors.ErrConflict, "roll number is already enrolled")
	}

	creds := deriveCredentials(req.FullName, req.RollNumber)
	emailTaken, err := s.users.ExistsByEmail(ctx, creds.Email)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}
	if emailTaken {
		return nil, nil, appErrors.Clone(appErrors.ErrConflict, "a login already exists for this name and roll number")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        creds.Email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Role:         models.RoleStudent,
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create login")
	}

	student := &models.Student{
		ID:          uuid.NewString(),
		FullName:    req.FullName,
		RollNumber:  req.RollNumber,
		ClassID:     req.ClassID,
		Department:  req.Department,
		Semester:    req.Semester,
		Photo:       req.Photo,
		ParentName:  req.ParentName,
		ParentPhone: req.ParentPhone,
		ParentEmail: req.ParentEmail,
		UserID:      user.ID,
	}
	if err := s.students.Create(ctx, student); err != nil {
		// Roll the provisioned login back so a retry is possible.
		if cleanupErr := s.users.Delete(ctx, user.ID); cleanupErr != nil {
			s.logger.Error("failed to clean up orphaned login",
				zap.String("user_id", user.ID), zap.Error(cleanupErr))
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}

	detail, err := s.students.FindByID(ctx, student.ID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load created student")
	}

	s.logger.Info("student enrolled",
		zap.String("student_id", student.ID),
		zap.String("roll_number", student.RollNumber),
		zap.String("class_id", student.ClassID))

	return detail, &creds, nil
}

// Update edits an enrolled student.
func (s *StudentService) Update(ctx context.Context, id string, req models.UpdateStudentRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	existing, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	student := existing.Student
	if req.FullName != nil {
		student.FullName = *req.FullName
	}
	if req.RollNumber != nil && *req.RollNumber != student.RollNumber {
		taken, err := s.students.ExistsByRollNumber(ctx, *req.RollNumber, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check roll number")
		}
		if taken {
			return nil, appErrors.Clone(appErrors.ErrConflict, "roll number is already enrolled")
		}
		student.RollNumber = *req.RollNumber
	}
	if req.ClassID != nil {
		if _, err := s.classes.FindByID(ctx, *req.ClassID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
		}
		student.ClassID = *req.ClassID
	}
	if req.Department != nil {
		student.Department = *req.Department
	}
	if req.Semester != nil {
		student.Semester = *req.Semester
	}
	if req.Photo != nil {
		student.Photo = req.Photo
	}
	if req.ParentName != nil {
		student.ParentName = *req.ParentName
	}
	if req.ParentPhone != nil {
		student.ParentPhone = *req.ParentPhone
	}
	if req.ParentEmail != nil {
		student.ParentEmail = req.ParentEmail
	}

	if err := s.students.Update(ctx, &student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return s.students.FindByID(ctx, id)
}

// Delete removes a student and their login. Attendance history rows keep the
// student reference; historical reports simply skip entries they can no
// longer resolve.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	if err := s.students.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	if err := s.users.Delete(ctx, student.UserID); err != nil {
		s.logger.Warn("failed to delete student login",
			zap.String("user_id", student.UserID), zap.Error(err))
	}
	return nil
}

// Roster returns the class roster in roll-number order.
func (s *StudentService) Roster(ctx context.Context, classID string) ([]models.RosterEntry, error) {
	roster, err := s.students.Roster(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	return roster, nil
}

// FindByUserID resolves the student row behind a login identity.
func (s *StudentService) FindByUserID(ctx context.Context, userID string) (*models.StudentDetail, error) {
	student, err := s.students.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no student enrollment for this account")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Profile assembles the student's own profile with attendance totals.
func (s *StudentService) Profile(ctx context.Context, userID string) (*models.StudentProfile, error) {
	student, err := s.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load login")
	}

	profile := &models.StudentProfile{StudentDetail: *student, Email: user.Email}

	records, err := s.history.ListByStudent(ctx, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance history")
	}
	for _, record := range records {
		for _, mark := range record.Students {
			if mark.StudentID != student.ID {
				continue
			}
			profile.TotalDays++
			if mark.Status == models.StatusPresent {
				profile.Present++
			} else {
				profile.Absent++
			}
		}
	}
	if profile.TotalDays > 0 {
		profile.Percentage = profile.Present * 100 / profile.TotalDays
	}
	return profile, nil
}

// deriveCredentials builds the initial login from name and roll number:
// lowercase name with spaces stripped, suffixed by the roll number.
func deriveCredentials(fullName, rollNumber string) models.StudentCredentials {
	base := strings.ToLower(strings.Join(strings.Fields(fullName), ""))
	return models.StudentCredentials{
		Email:    fmt.Sprintf("%s%s@test.com", base, rollNumber),
		Password: base + rollNumber,
	}
}
