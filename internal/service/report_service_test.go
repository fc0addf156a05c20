package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/classtrack/classtrack-api/internal/models"
)

func mark(studentID string, status models.AttendanceStatus, subjects ...models.SubjectMark) models.StudentMark {
	return models.StudentMark{StudentID: studentID, Status: status, Subjects: subjects}
}

func TestBuildDailySummaryEmpty(t *testing.T) {
	summary := BuildDailySummary(nil)

	assert.Zero(t, summary.TotalStudents)
	assert.Zero(t, summary.Present)
	assert.Zero(t, summary.Absent)
	assert.Empty(t, summary.TimeWise)
	assert.Empty(t, summary.SubjectWise)
}

func TestBuildDailySummaryTwoSlots(t *testing.T) {
	records := []models.AttendanceRecord{
		{
			Students: []models.StudentMark{
				mark("s1", models.StatusPresent, models.SubjectMark{Name: "Maths", Status: models.StatusPresent}),
				mark("s2", models.StatusAbsent, models.SubjectMark{Name: "Maths", Status: models.StatusAbsent}),
				mark("s3", models.StatusPresent),
			},
		},
		{
			Students: []models.StudentMark{
				mark("s1", models.StatusPresent, models.SubjectMark{Name: "Physics", Status: models.StatusPresent}),
				mark("s2", models.StatusPresent, models.SubjectMark{Name: "Physics", Status: models.StatusPresent}),
				mark("s3", models.StatusAbsent),
			},
		},
	}

	summary := BuildDailySummary(records)

	assert.Equal(t, 3, summary.TotalStudents)
	assert.Equal(t, 4, summary.Present)
	assert.Equal(t, 2, summary.Absent)

	assert.Len(t, summary.TimeWise, 2)
	assert.Equal(t, 2, summary.TimeWise[0].Present)
	assert.Equal(t, 1, summary.TimeWise[0].Absent)
	assert.Equal(t, 3, summary.TimeWise[0].Total)

	assert.Equal(t, models.SubjectCounts{Present: 1, Absent: 1}, summary.SubjectWise["Maths"])
	assert.Equal(t, models.SubjectCounts{Present: 2}, summary.SubjectWise["Physics"])
}

func TestBuildDailySummarySkipsBlankStudents(t *testing.T) {
	records := []models.AttendanceRecord{
		{Students: []models.StudentMark{mark("", models.StatusPresent), mark("s1", models.StatusPresent)}},
	}

	summary := BuildDailySummary(records)

	assert.Equal(t, 1, summary.Present)
	assert.Equal(t, 0, summary.Absent)
}

func TestBuildMonthlySummary(t *testing.T) {
	day1 := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
	records := []models.AttendanceRecord{
		{Date: day1, Students: []models.StudentMark{mark("s1", models.StatusPresent), mark("s2", models.StatusAbsent)}},
		{Date: day1, Students: []models.StudentMark{mark("s1", models.StatusPresent), mark("s2", models.StatusPresent)}},
		{Date: day2, Students: []models.StudentMark{mark("s1", models.StatusAbsent), mark("s2", models.StatusPresent)}},
	}

	summary := BuildMonthlySummary(records, 2)

	// Two slots on day1 still count as one day.
	assert.Equal(t, 2, summary.TotalDays)
	assert.Equal(t, 4, summary.Present)
	assert.Equal(t, 2, summary.Absent)
	// 4 present / (2 students * 2 days) = 100%.
	assert.Equal(t, 100, summary.Percentage)
}

func TestBuildMonthlySummaryZeroDenominator(t *testing.T) {
	summary := BuildMonthlySummary(nil, 0)
	assert.Zero(t, summary.Percentage)

	summary = BuildMonthlySummary(nil, 30)
	assert.Zero(t, summary.Percentage)
}

func TestBuildStudentWiseSummaryRosterOrderAndZeroInit(t *testing.T) {
	roster := []models.RosterEntry{
		{ID: "s1", FullName: "Asha Verma", RollNumber: "01"},
		{ID: "s2", FullName: "Ravi Kumar", RollNumber: "02"},
		{ID: "s3", FullName: "Meera Nair", RollNumber: "03"},
	}
	records := []models.AttendanceRecord{
		{Students: []models.StudentMark{
			mark("s2", models.StatusPresent, models.SubjectMark{Name: "Maths", Status: models.StatusPresent}),
			mark("s1", models.StatusAbsent, models.SubjectMark{Name: "Maths", Status: models.StatusAbsent}),
			// Unknown students are skipped, not reported.
			mark("ghost", models.StatusPresent, models.SubjectMark{Name: "Maths", Status: models.StatusPresent}),
		}},
		{Students: []models.StudentMark{
			mark("s2", models.StatusPresent,
				models.SubjectMark{Name: "Maths", Status: models.StatusPresent},
				models.SubjectMark{Name: "Physics", Status: models.StatusAbsent}),
		}},
	}

	rows := BuildStudentWiseSummary(records, "Maths", roster)

	assert.Len(t, rows, 3)
	assert.Equal(t, "s1", rows[0].StudentID)
	assert.Equal(t, "s2", rows[1].StudentID)
	assert.Equal(t, "s3", rows[2].StudentID)

	assert.Equal(t, 1, rows[0].TotalLectures)
	assert.Equal(t, 1, rows[0].Absent)
	assert.Equal(t, 0, rows[0].Percentage)

	assert.Equal(t, 2, rows[1].TotalLectures)
	assert.Equal(t, 2, rows[1].Present)
	assert.Equal(t, 100, rows[1].Percentage)

	// s3 never attended a Maths lecture; fully zero.
	assert.Zero(t, rows[2].TotalLectures)
	assert.Zero(t, rows[2].Percentage)
}

func TestBuildTodayClassReportMissingSubjectCountsAbsent(t *testing.T) {
	records := []models.AttendanceRecord{
		{Students: []models.StudentMark{
			mark("s1", models.StatusPresent, models.SubjectMark{Name: "Maths", Status: models.StatusPresent}),
			// Present overall but no Maths mark: absent for this report.
			mark("s2", models.StatusPresent, models.SubjectMark{Name: "Physics", Status: models.StatusPresent}),
			mark("s3", models.StatusAbsent),
		}},
	}

	report := BuildTodayClassReport(records, "Maths")

	assert.Equal(t, 3, report.TotalStudents)
	assert.Equal(t, 1, report.Present)
	assert.Equal(t, 2, report.Absent)
	assert.Len(t, report.TimeSlots, 1)
	assert.Equal(t, 3, report.TimeSlots[0].Total)
}
