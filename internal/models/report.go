package models

import "time"

// TodayClassReport summarizes today's lecture slots for one class/subject.
type TodayClassReport struct {
	Date          time.Time         `json:"date"`
	TotalStudents int               `json:"total_students"`
	Present       int               `json:"present"`
	Absent        int               `json:"absent"`
	TimeSlots     []TimeSlotSummary `json:"time_slots"`
}

// ReportPeriod selects the export window.
type ReportPeriod string

const (
	ReportDaily   ReportPeriod = "daily"
	ReportWeekly  ReportPeriod = "weekly"
	ReportMonthly ReportPeriod = "monthly"
)

// ReportFormat selects the export encoding.
type ReportFormat string

const (
	FormatPDF ReportFormat = "pdf"
	FormatCSV ReportFormat = "csv"
)

// ReportExportRequest renders a student-wise attendance report file.
type ReportExportRequest struct {
	ClassID string       `json:"class_id" validate:"required"`
	Subject string       `json:"subject" validate:"required"`
	Date    time.Time    `json:"date" validate:"required"`
	Period  ReportPeriod `json:"period" validate:"required,oneof=daily weekly monthly"`
	Format  ReportFormat `json:"format" validate:"required,oneof=pdf csv"`
}

// ReportFile is a rendered export ready to stream to the client.
type ReportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}
