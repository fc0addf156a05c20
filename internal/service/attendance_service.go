package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classtrack/classtrack-api/internal/models"
	appErrors "github.com/classtrack/classtrack-api/pkg/errors"
)

type attendanceLedger interface {
	SaveDaily(ctx context.Context, record *models.AttendanceRecord, marks []models.StudentMark) (*models.AttendanceRecord, error)
	ListByClassAndDate(ctx context.Context, classID string, date time.Time, markedBy string) ([]models.AttendanceRecord, error)
	ListByClassAndRange(ctx context.Context, classID string, from, to time.Time, markedBy string) ([]models.AttendanceRecord, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.AttendanceRecord, error)
}

type attendanceStudentRepository interface {
	CountByIDs(ctx context.Context, classID string, ids []string) (int, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.StudentDetail, error)
}

type absenceNotifier interface {
	EnqueueAbsences(notifications []models.AbsenceNotification)
}

// AttendanceService owns the attendance ledger use cases: teacher-driven
// roster saves and the read queries behind reports.
type AttendanceService struct {
	ledger    attendanceLedger
	students  attendanceStudentRepository
	notifier  absenceNotifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs an AttendanceService.
func NewAttendanceService(ledger attendanceLedger, students attendanceStudentRepository, notifier absenceNotifier, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AttendanceService{ledger: ledger, students: students, notifier: notifier, validator: validate, logger: logger}
}

// SaveDaily persists a full roster save for one (class, date, slot) tuple.
// Repeated saves for the same tuple overwrite the previous marks. Absent
// students fan out to the notifier after the save commits; notification
// failures never affect the response.
func (s *AttendanceService) SaveDaily(ctx context.Context, teacherID string, req models.SaveAttendanceRequest) (*models.AttendanceRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}

	ids := make([]string, 0, len(req.Students))
	seen := make(map[string]struct{}, len(req.Students))
	for _, mark := range req.Students {
		if _, dup := seen[mark.StudentID]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("duplicate student %s in payload", mark.StudentID))
		}
		seen[mark.StudentID] = struct{}{}
		ids = append(ids, mark.StudentID)
	}

	count, err := s.students.CountByIDs(ctx, req.ClassID, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify students")
	}
	if count != len(ids) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "payload references students outside the class")
	}

	record := &models.AttendanceRecord{
		ClassID:          req.ClassID,
		Date:             truncateToDay(req.Date),
		MarkedBy:         teacherID,
		SubjectTeacherID: req.SubjectTeacherID,
		Timing:           models.TimingWindow{StartTime: req.StartTime, EndTime: req.EndTime},
		Remarks:          req.Remarks,
	}

	marks := make([]models.StudentMark, 0, len(req.Students))
	for _, in := range req.Students {
		marks = append(marks, models.StudentMark{
			StudentID: in.StudentID,
			Status:    in.Status,
			Subjects:  in.Subjects,
		})
	}

	saved, err := s.ledger.SaveDaily(ctx, record, marks)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save attendance")
	}

	s.dispatchAbsences(ctx, saved)

	return saved, nil
}

// QueryByClassAndDate returns all slot records for a class on one day.
func (s *AttendanceService) QueryByClassAndDate(ctx context.Context, classID string, date time.Time, teacherID string) ([]models.AttendanceRecord, error) {
	records, err := s.ledger.ListByClassAndDate(ctx, classID, truncateToDay(date), teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to query attendance")
	}
	return records, nil
}

// QueryByClassAndRange returns records for a class over [from, to].
func (s *AttendanceService) QueryByClassAndRange(ctx context.Context, classID string, from, to time.Time, teacherID string) ([]models.AttendanceRecord, error) {
	records, err := s.ledger.ListByClassAndRange(ctx, classID, truncateToDay(from), truncateToDay(to), teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to query attendance")
	}
	return records, nil
}

// QueryByStudent returns a student's records ordered by date ascending.
func (s *AttendanceService) QueryByStudent(ctx context.Context, studentID string) ([]models.AttendanceRecord, error) {
	records, err := s.ledger.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to query attendance")
	}
	return records, nil
}

func (s *AttendanceService) dispatchAbsences(ctx context.Context, record *models.AttendanceRecord) {
	if s.notifier == nil {
		return
	}

	absentIDs := make([]string, 0)
	for _, mark := range record.Students {
		if mark.Status == models.StatusAbsent {
			absentIDs = append(absentIDs, mark.StudentID)
		}
	}
	if len(absentIDs) == 0 {
		return
	}

	details, err := s.students.FindByIDs(ctx, absentIDs)
	if err != nil {
		s.logger.Warn("failed to load absent students for notification",
			zap.String("record_id", record.ID), zap.Error(err))
		return
	}

	date := record.Date.Format("2006-01-02")
	notifications := make([]models.AbsenceNotification, 0, len(details))
	for _, d := range details {
		className := ""
		if d.ClassName != nil {
			className = string(*d.ClassName)
			if d.ClassSection != nil && *d.ClassSection != "" {
				className += "-" + *d.ClassSection
			}
		}
		notifications = append(notifications, models.AbsenceNotification{
			StudentID:   d.ID,
			StudentName: d.FullName,
			ParentPhone: d.ParentPhone,
			Class:       className,
			Date:        date,
			Reason:      "absent",
		})
	}

	s.notifier.EnqueueAbsences(notifications)
}
