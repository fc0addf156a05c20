package models

import "time"

// AttendanceStatus is the presence state for a student mark.
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "present"
	StatusAbsent  AttendanceStatus = "absent"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	return s == StatusPresent || s == StatusAbsent
}

// TimingWindow is the lecture time slot attached to a ledger record.
type TimingWindow struct {
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
}

// SubjectMark is a per-subject presence status inside a student mark.
type SubjectMark struct {
	Name   string           `json:"name"`
	Status AttendanceStatus `json:"status"`
}

// StudentMark is one student's entry within an attendance record.
type StudentMark struct {
	StudentID   string           `json:"student_id"`
	StudentName string           `json:"student_name,omitempty"`
	RollNumber  string           `json:"roll_number,omitempty"`
	Status      AttendanceStatus `json:"status"`
	Subjects    []SubjectMark    `json:"subjects,omitempty"`
}

// AttendanceRecord is the ledger entry for one (class, date, teacher,
// time-slot) tuple. Multiple slots per day appear as separate records.
type AttendanceRecord struct {
	ID               string        `db:"id" json:"id"`
	ClassID          string        `db:"class_id" json:"class_id"`
	Date             time.Time     `db:"date" json:"date"`
	MarkedBy         string        `db:"marked_by" json:"marked_by"`
	SubjectTeacherID *string       `db:"subject_teacher_id" json:"subject_teacher_id,omitempty"`
	Timing           TimingWindow  `json:"timing"`
	Remarks          *string       `db:"remarks" json:"remarks,omitempty"`
	Students         []StudentMark `json:"students"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time     `db:"updated_at" json:"updated_at"`
}

// StudentMarkInput is one student's entry in a save request.
type StudentMarkInput struct {
	StudentID string           `json:"student_id" validate:"required"`
	Status    AttendanceStatus `json:"status" validate:"required,oneof=present absent"`
	Subjects  []SubjectMark    `json:"subjects,omitempty" validate:"dive"`
}

// SaveAttendanceRequest records a full class roster for one time slot.
type SaveAttendanceRequest struct {
	ClassID          string             `json:"class_id" validate:"required"`
	Date             time.Time          `json:"date" validate:"required"`
	StartTime        *time.Time         `json:"start_time,omitempty"`
	EndTime          *time.Time         `json:"end_time,omitempty"`
	SubjectTeacherID *string            `json:"subject_teacher_id,omitempty"`
	Remarks          *string            `json:"remarks,omitempty"`
	Students         []StudentMarkInput `json:"students" validate:"required,min=1,dive"`
}

// AbsenceNotification is the webhook payload sent for one absent student.
type AbsenceNotification struct {
	StudentID   string `json:"studentId"`
	StudentName string `json:"studentName"`
	ParentPhone string `json:"parentPhone"`
	Class       string `json:"class"`
	Date        string `json:"date"`
	Reason      string `json:"reason"`
}

// SubjectCounts accumulates presence per subject label.
type SubjectCounts struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
}

// TimeSlotSummary accumulates presence per lecture time slot.
type TimeSlotSummary struct {
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Present   int        `json:"present"`
	Absent    int        `json:"absent"`
	Total     int        `json:"total"`
}

// DailySummary aggregates a single day of ledger records for a class.
type DailySummary struct {
	TotalStudents int                      `json:"total_students"`
	Present       int                      `json:"present"`
	Absent        int                      `json:"absent"`
	SubjectWise   map[string]SubjectCounts `json:"subject_wise"`
	TimeWise      []TimeSlotSummary        `json:"time_wise"`
}

// MonthlySummary aggregates a month of ledger records for a class.
type MonthlySummary struct {
	TotalDays  int `json:"total_days"`
	Present    int `json:"present"`
	Absent     int `json:"absent"`
	Percentage int `json:"percentage"`
}

// StudentWiseRow is one roster student's totals for a subject report.
type StudentWiseRow struct {
	StudentID     string `json:"student_id"`
	FullName      string `json:"full_name"`
	RollNumber    string `json:"roll_number"`
	TotalLectures int    `json:"total_lectures"`
	Present       int    `json:"present"`
	Absent        int    `json:"absent"`
	Percentage    int    `json:"percentage"`
}

// RecentActivity is a dashboard line for a recently saved record.
type RecentActivity struct {
	ClassID      string    `db:"class_id" json:"class_id"`
	ClassName    ClassName `db:"class_name" json:"class_name"`
	ClassSection string    `db:"class_section" json:"class_section"`
	Date         time.Time `db:"date" json:"date"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	PresentCount int       `db:"present_count" json:"present_count"`
	TotalCount   int       `db:"total_count" json:"total_count"`
}

// DashboardSummary is the teacher-scoped landing page payload.
type DashboardSummary struct {
	TotalStudents  int              `json:"total_students"`
	PresentToday   int              `json:"present_today"`
	AbsentToday    int              `json:"absent_today"`
	AttendanceRate float64          `json:"attendance_rate"`
	MonthlyAverage float64          `json:"monthly_average"`
	RecentActivity []RecentActivity `json:"recent_activity"`
}
