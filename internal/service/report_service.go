package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classtrack/classtrack-api/internal/models"
	appErrors "github.com/classtrack/classtrack-api/pkg/errors"
	"github.com/classtrack/classtrack-api/pkg/export"
)

type reportLedger interface {
	ListByClassAndDate(ctx context.Context, classID string, date time.Time, markedBy string) ([]models.AttendanceRecord, error)
	ListByClassAndRange(ctx context.Context, classID string, from, to time.Time, markedBy string) ([]models.AttendanceRecord, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.AttendanceRecord, error)
}

type reportRoster interface {
	Roster(ctx context.Context, classID string) ([]models.RosterEntry, error)
}

// ReportService computes attendance reports on demand. All aggregation is a
// pure transform over ledger query results; nothing is persisted. Historical
// records can be ragged (missing subject lists, dangling student refs), so
// every scan skips what it cannot resolve instead of failing the report.
type ReportService struct {
	ledger    reportLedger
	roster    reportRoster
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReportService constructs a ReportService.
func NewReportService(ledger reportLedger, roster reportRoster, validate *validator.Validate, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ReportService{
		ledger:    ledger,
		roster:    roster,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		validator: validate,
		logger:    logger,
	}
}

// DailyReport aggregates all slot records for a class on one day.
func (s *ReportService) DailyReport(ctx context.Context, classID string, date time.Time, teacherID string) (*models.DailySummary, []models.AttendanceRecord, error) {
	records, err := s.ledger.ListByClassAndDate(ctx, classID, truncateToDay(date), teacherID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	summary := BuildDailySummary(records)
	return &summary, records, nil
}

// MonthlyReport aggregates a calendar month for a class.
func (s *ReportService) MonthlyReport(ctx context.Context, classID string, month time.Time, teacherID string) (*models.MonthlySummary, error) {
	from := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, -1)

	records, err := s.ledger.ListByClassAndRange(ctx, classID, from, to, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	roster, err := s.roster.Roster(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}

	summary := BuildMonthlySummary(records, len(roster))
	return &summary, nil
}

// TodayClassReport summarizes today's slots for one class/subject pair.
func (s *ReportService) TodayClassReport(ctx context.Context, classID, subject, teacherID string, now time.Time) (*models.TodayClassReport, error) {
	day := truncateToDay(now)
	records, err := s.ledger.ListByClassAndDate(ctx, classID, day, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	report := BuildTodayClassReport(records, subject)
	report.Date = day
	return &report, nil
}

// StudentWiseReport tabulates per-student subject totals over a date range.
func (s *ReportService) StudentWiseReport(ctx context.Context, classID, subject string, from, to time.Time, teacherID string) ([]models.StudentWiseRow, error) {
	records, err := s.ledger.ListByClassAndRange(ctx, classID, truncateToDay(from), truncateToDay(to), teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	roster, err := s.roster.Roster(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	return BuildStudentWiseSummary(records, subject, roster), nil
}

// StudentHistory computes a student's own attendance percentage and record
// list, ordered by date ascending.
func (s *ReportService) StudentHistory(ctx context.Context, studentID string) ([]models.AttendanceRecord, *models.MonthlySummary, error) {
	records, err := s.ledger.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}

	summary := models.MonthlySummary{TotalDays: len(records)}
	for _, record := range records {
		for _, mark := range record.Students {
			if mark.StudentID != studentID {
				continue
			}
			if mark.Status == models.StatusPresent {
				summary.Present++
			} else {
				summary.Absent++
			}
		}
	}
	if summary.TotalDays > 0 {
		summary.Percentage = int(math.Round(float64(summary.Present) / float64(summary.TotalDays) * 100))
	}
	return records, &summary, nil
}

// Export renders a student-wise report for the requested window as PDF or CSV.
func (s *ReportService) Export(ctx context.Context, teacherID string, req models.ReportExportRequest) (*models.ReportFile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report payload")
	}

	day := truncateToDay(req.Date)
	var from, to time.Time
	switch req.Period {
	case models.ReportWeekly:
		from, to = day.AddDate(0, 0, -6), day
	case models.ReportMonthly:
		from = time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
		to = from.AddDate(0, 1, -1)
	default:
		from, to = day, day
	}

	rows, err := s.StudentWiseReport(ctx, req.ClassID, req.Subject, from, to, teacherID)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{
		Headers: []string{"Roll Number", "Student", "Lectures", "Present", "Absent", "Percentage"},
	}
	for _, row := range rows {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Roll Number": row.RollNumber,
			"Student":     row.FullName,
			"Lectures":    fmt.Sprintf("%d", row.TotalLectures),
			"Present":     fmt.Sprintf("%d", row.Present),
			"Absent":      fmt.Sprintf("%d", row.Absent),
			"Percentage":  fmt.Sprintf("%d%%", row.Percentage),
		})
	}

	name := fmt.Sprintf("attendance-%s-%s-%s", req.Subject, req.Period, day.Format("2006-01-02"))
	switch req.Format {
	case models.FormatCSV:
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &models.ReportFile{Filename: name + ".csv", ContentType: "text/csv", Content: content}, nil
	default:
		title := fmt.Sprintf("Attendance Report (%s) %s - %s", req.Subject, from.Format("02 Jan 2006"), to.Format("02 Jan 2006"))
		content, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &models.ReportFile{Filename: name + ".pdf", ContentType: "application/pdf", Content: content}, nil
	}
}

// BuildDailySummary folds one day of slot records into a class summary.
// totalStudents follows the first record's roster size; slots are assumed to
// share the class roster.
func BuildDailySummary(records []models.AttendanceRecord) models.DailySummary {
	summary := models.DailySummary{SubjectWise: map[string]models.SubjectCounts{}}
	for i, record := range records {
		if i == 0 {
			summary.TotalStudents = len(record.Students)
		}
		slot := models.TimeSlotSummary{
			StartTime: record.Timing.StartTime,
			EndTime:   record.Timing.EndTime,
		}
		for _, mark := range record.Students {
			if mark.StudentID == "" {
				continue
			}
			if mark.Status == models.StatusPresent {
				summary.Present++
				slot.Present++
			} else {
				summary.Absent++
				slot.Absent++
			}
			for _, subject := range mark.Subjects {
				counts := summary.SubjectWise[subject.Name]
				if subject.Status == models.StatusPresent {
					counts.Present++
				} else {
					counts.Absent++
				}
				summary.SubjectWise[subject.Name] = counts
			}
		}
		slot.Total = slot.Present + slot.Absent
		summary.TimeWise = append(summary.TimeWise, slot)
	}
	return summary
}

// BuildMonthlySummary folds a month of records into aggregate counts.
// totalDays counts distinct calendar dates; percentage is present marks over
// the roster-size × days denominator, zero when the denominator is zero.
func BuildMonthlySummary(records []models.AttendanceRecord, totalStudentsInClass int) models.MonthlySummary {
	summary := models.MonthlySummary{}
	days := map[string]struct{}{}
	for _, record := range records {
		days[record.Date.Format("2006-01-02")] = struct{}{}
		for _, mark := range record.Students {
			if mark.StudentID == "" {
				continue
			}
			if mark.Status == models.StatusPresent {
				summary.Present++
			} else {
				summary.Absent++
			}
		}
	}
	summary.TotalDays = len(days)

	denominator := totalStudentsInClass * summary.TotalDays
	if denominator > 0 {
		summary.Percentage = int(math.Round(float64(summary.Present) / float64(denominator) * 100))
	}
	return summary
}

// BuildStudentWiseSummary tabulates per-student totals for one subject.
// Every roster student appears, zero-initialized, in roster order.
func BuildStudentWiseSummary(records []models.AttendanceRecord, subject string, roster []models.RosterEntry) []models.StudentWiseRow {
	rows := make([]models.StudentWiseRow, len(roster))
	index := make(map[string]int, len(roster))
	for i, entry := range roster {
		rows[i] = models.StudentWiseRow{
			StudentID:  entry.ID,
			FullName:   entry.FullName,
			RollNumber: entry.RollNumber,
		}
		index[entry.ID] = i
	}

	for _, record := range records {
		for _, mark := range record.Students {
			i, ok := index[mark.StudentID]
			if !ok {
				continue
			}
			for _, sm := range mark.Subjects {
				if sm.Name != subject {
					continue
				}
				rows[i].TotalLectures++
				if sm.Status == models.StatusPresent {
					rows[i].Present++
				} else {
					rows[i].Absent++
				}
			}
		}
	}

	for i := range rows {
		if rows[i].TotalLectures > 0 {
			rows[i].Percentage = int(math.Round(float64(rows[i].Present) / float64(rows[i].TotalLectures) * 100))
		}
	}
	return rows
}

// BuildTodayClassReport folds today's slot records for one subject. A student
// with no mark for the subject counts as absent, matching the roster view the
// teacher sees in class.
func BuildTodayClassReport(records []models.AttendanceRecord, subject string) models.TodayClassReport {
	report := models.TodayClassReport{}
	for _, record := range records {
		slot := models.TimeSlotSummary{
			StartTime: record.Timing.StartTime,
			EndTime:   record.Timing.EndTime,
		}
		for _, mark := range record.Students {
			if mark.StudentID == "" {
				continue
			}
			status := models.StatusAbsent
			for _, sm := range mark.Subjects {
				if sm.Name == subject {
					status = sm.Status
					break
				}
			}
			if status == models.StatusPresent {
				slot.Present++
				report.Present++
			} else {
				slot.Absent++
				report.Absent++
			}
		}
		slot.Total = slot.Present + slot.Absent
		report.TimeSlots = append(report.TimeSlots, slot)
		report.TotalStudents = len(record.Students)
	}
	return report
}
