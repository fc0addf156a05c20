package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/classtrack/classtrack-api/internal/models"
	"github.com/classtrack/classtrack-api/internal/service"
	appErrors "github.com/classtrack/classtrack-api/pkg/errors"
	"github.com/classtrack/classtrack-api/pkg/response"
)

const dateLayout = "2006-01-02"

// AttendanceHandler wires the attendance, reporting and QR session endpoints.
type AttendanceHandler struct {
	attendance *service.AttendanceService
	reports    *service.ReportService
	sessions   *service.SessionService
	dashboard  *service.DashboardService
	teachers   *service.TeacherService
	students   *service.StudentService
}

// NewAttendanceHandler creates a new handler.
func NewAttendanceHandler(attendance *service.AttendanceService, reports *service.ReportService, sessions *service.SessionService, dashboard *service.DashboardService, teachers *service.TeacherService, students *service.StudentService) *AttendanceHandler {
	return &AttendanceHandler{
		attendance: attendance,
		reports:    reports,
		sessions:   sessions,
		dashboard:  dashboard,
		teachers:   teachers,
		students:   students,
	}
}

func (h *AttendanceHandler) teacherID(c *gin.Context) (string, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return "", false
	}
	id, err := h.teachers.ResolveTeacherID(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return "", false
	}
	return id, true
}

// Save godoc
// @Summary Save class attendance
// @Description Persist a full roster save for one class, date and time slot; repeated saves overwrite
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body models.SaveAttendanceRequest true "Attendance payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/save [post]
func (h *AttendanceHandler) Save(c *gin.Context) {
	teacherID, ok := h.teacherID(c)
	if !ok {
		return
	}

	var req models.SaveAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid attendance payload"))
		return
	}

	record, err := h.attendance.SaveDaily(c.Request.Context(), teacherID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.dashboard.Invalidate(c.Request.Context(), teacherID)
	response.Created(c, record)
}

// DailyReport godoc
// @Summary Daily attendance report
// @Description Per-subject and per-slot aggregation for one class and day
// @Tags Attendance
// @Produce json
// @Param class_id query string true "Class ID"
// @Param date query string false "Date (YYYY-MM-DD), defaults to today"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/daily-report [get]
func (h *AttendanceHandler) DailyReport(c *gin.Context) {
	teacherID, ok := h.teacherID(c)
	if !ok {
		return
	}

	classID := c.Query("class_id")
	if classID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "class_id is required"))
		return
	}
	date, err := parseDate(c.DefaultQuery("date", time.Now().UTC().Format(dateLayout)))
	if err != nil {
		response.Error(c, err)
		return
	}

	summary, records, err := h.reports.DailyReport(c.Request.Context(), classID, date, teacherID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"date": date, "summary": summary, "records": records}, nil)
}

// MonthlyReport godoc
// @Summary Monthly attendance report
// @Tags Attendance
// @Produce json
// @Param class_id query string true "Class ID"
// @Param month query string true "Month (YYYY-MM)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/monthly-report [get]
func (h *AttendanceHandler) MonthlyReport(c *gin.Context) {
	teacherID, ok := h.teacherID(c)
	if !ok {
		return
	}

	classID := c.Query("class_id")
	if classID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "class_id is required"))
		return
	}
	month, err := time.Parse("2006-01", c.Query("month"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "month must be YYYY-MM"))
		return
	}

	summary, err := h.reports.MonthlyReport(c.Request.Context(), classID, month, teacherID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// TodayClassReport godoc
// @Summary Today's class report for one subject
// @Tags Attendance
// @Produce json
// @Param class_id query string true "Class ID"
// @Param subject query string true "Subject name"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/today-class-report [get]
func (h *AttendanceHandler) TodayClassReport(c *gin.Context) {
	teacherID, ok := h.teacherID(c)
	if !ok {
		return
	}

	classID := c.Query("class_id")
	subject := c.Query("subject")
	if classID == "" || subject == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "class_id and subject are required"))
		return
	}

	report, err := h.reports.TodayClassReport(c.Request.Context(), classID, subject, teacherID, time.Now().UTC())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// DashboardSummary godoc
// @Summary Teacher dashboard summary
// @Description Totals, today's counts, monthly average and recent activity for the caller's classes
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/dashboard-summary [get]
func (h *AttendanceHandler) DashboardSummary(c *gin.Context) {
	teacherID, ok := h.teacherID(c)
	if !ok {
		return
	}

	summary, err := h.dashboard.Summary(c.Request.Context(), teacherID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// ExportReport godoc
// @Summary Export an attendance report file
// @Description Render a student-wise report for a daily, weekly or monthly window as PDF or CSV
// @Tags Attendance
// @Accept json
// @Produce application/pdf
// @Produce text/csv
// @Param payload body models.ReportExportRequest true "Report payload"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/report [post]
func (h *AttendanceHandler) ExportReport(c *gin.Context) {
	teacherID, ok := h.teacherID(c)
	if !ok {
		return
	}

	var req models.ReportExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid report payload"))
		return
	}

	file, err := h.reports.Export(c.Request.Context(), teacherID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Content)
}

// CreateQRSession godoc
// @Summary Open a QR attendance session
// @Description Persist a geofenced session and return the signed token the client renders as a QR code
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body models.CreateSessionRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/qr-session [post]
func (h *AttendanceHandler) CreateQRSession(c *gin.Context) {
	teacherID, ok := h.teacherID(c)
	if !ok {
		return
	}

	var req models.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid session payload"))
		return
	}

	session, err := h.sessions.CreateSession(c.Request.Context(), teacherID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// DeleteQRSession godoc
// @Summary Deactivate a QR attendance session
// @Tags Attendance
// @Produce json
// @Param id path string true "Session ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/qr-session/{id} [delete]
func (h *AttendanceHandler) DeleteQRSession(c *gin.Context) {
	teacherID, ok := h.teacherID(c)
	if !ok {
		return
	}

	if err := h.sessions.Deactivate(c.Request.Context(), c.Param("id"), teacherID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// MarkByQR godoc
// @Summary Mark attendance from a scanned QR token
// @Description Validates the token, session liveness, prior redemption and geofence, then records a present mark
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body models.RedeemRequest true "Redeem payload"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/mark-by-qr [post]
func (h *AttendanceHandler) MarkByQR(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	student, err := h.students.FindByUserID(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req models.RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid redeem payload"))
		return
	}

	result, err := h.sessions.Redeem(c.Request.Context(), student, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result, nil)
}

// VerifyLocation godoc
// @Summary Check distance to a session's geofence
// @Description Read-only pre-check; records nothing
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body models.VerifyLocationRequest true "Location payload"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/verify-location [post]
func (h *AttendanceHandler) VerifyLocation(c *gin.Context) {
	var req models.VerifyLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid location payload"))
		return
	}

	check, err := h.sessions.VerifyLocation(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, check, nil)
}

func parseDate(value string) (time.Time, error) {
	date, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}
	return date, nil
}
