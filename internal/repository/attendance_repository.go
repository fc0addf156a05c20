package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classtrack/classtrack-api/internal/models"
)

// AttendanceRepository is the durable ledger of attendance marks.
//
// Records are keyed by (class_id, date, marked_by, start_time); the QR flow
// writes into the slot-less record for the day, guarded by a partial unique
// index on (class_id, date, marked_by) WHERE start_time IS NULL so that
// concurrent redemptions resolve the same record atomically.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// SaveDaily overwrites or creates the record for the (class, date, teacher,
// time-slot) tuple and replaces its student marks wholesale.
func (r *AttendanceRepository) SaveDaily(ctx context.Context, record *models.AttendanceRecord, marks []models.StudentMark) (*models.AttendanceRecord, error) {
	now := time.Now().UTC()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin save attendance: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	recordID, err := upsertRecord(ctx, tx, record, now)
	if err != nil {
		return nil, err
	}
	record.ID = recordID

	// Overwrite semantics: drop the previous marks for this slot.
	if _, err := tx.ExecContext(ctx, `DELETE FROM attendance_subject_marks WHERE record_id = $1`, recordID); err != nil {
		return nil, fmt.Errorf("clear subject marks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM attendance_entries WHERE record_id = $1`, recordID); err != nil {
		return nil, fmt.Errorf("clear entries: %w", err)
	}

	for _, mark := range marks {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO attendance_entries (record_id, student_id, status) VALUES ($1, $2, $3)`,
			recordID, mark.StudentID, mark.Status); err != nil {
			return nil, fmt.Errorf("insert entry for %s: %w", mark.StudentID, err)
		}
		for _, subj := range mark.Subjects {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO attendance_subject_marks (record_id, student_id, subject_name, status) VALUES ($1, $2, $3, $4)`,
				recordID, mark.StudentID, subj.Name, subj.Status); err != nil {
				return nil, fmt.Errorf("insert subject mark for %s: %w", mark.StudentID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit save attendance: %w", err)
	}
	committed = true

	record.Students = marks
	record.UpdatedAt = now
	return record, nil
}

// UpsertStudentMark adds or updates one student's presence for (class, date,
// subject), creating the day's slot-less record when missing. The whole
// operation is a single transaction of conflict-target upserts so concurrent
// QR redemptions for the same key cannot lose updates.
func (r *AttendanceRepository) UpsertStudentMark(ctx context.Context, classID string, date time.Time, subject, studentID, markedBy string, subjectTeacherID *string, status models.AttendanceStatus) (*models.AttendanceRecord, error) {
	now := time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin upsert mark: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	var recordID string
	query := `INSERT INTO attendance_records (id, class_id, date, marked_by, subject_teacher_id, start_time, end_time, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, NULL, NULL, $6, $6)
ON CONFLICT (class_id, date, marked_by) WHERE start_time IS NULL
DO UPDATE SET updated_at = EXCLUDED.updated_at
RETURNING id`
	if err := tx.QueryRowxContext(ctx, query, uuid.NewString(), classID, date, markedBy, subjectTeacherID, now).Scan(&recordID); err != nil {
		return nil, fmt.Errorf("resolve attendance record: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO attendance_entries (record_id, student_id, status)
VALUES ($1, $2, $3)
ON CONFLICT (record_id, student_id) DO UPDATE SET status = EXCLUDED.status`,
		recordID, studentID, status); err != nil {
		return nil, fmt.Errorf("upsert entry: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO attendance_subject_marks (record_id, student_id, subject_name, status)
VALUES ($1, $2, $3, $4)
ON CONFLICT (record_id, student_id, subject_name) DO UPDATE SET status = EXCLUDED.status`,
		recordID, studentID, subject, status); err != nil {
		return nil, fmt.Errorf("upsert subject mark: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit upsert mark: %w", err)
	}
	committed = true

	return &models.AttendanceRecord{
		ID:               recordID,
		ClassID:          classID,
		Date:             date,
		MarkedBy:         markedBy,
		SubjectTeacherID: subjectTeacherID,
		Students: []models.StudentMark{{
			StudentID: studentID,
			Status:    status,
			Subjects:  []models.SubjectMark{{Name: subject, Status: status}},
		}},
		UpdatedAt: now,
	}, nil
}

// ListByClassAndDate returns all time slots recorded for a class on a day.
func (r *AttendanceRepository) ListByClassAndDate(ctx context.Context, classID string, date time.Time, markedBy string) ([]models.AttendanceRecord, error) {
	query := `SELECT id, class_id, date, marked_by, subject_teacher_id, start_time, end_time, remarks, created_at, updated_at
FROM attendance_records
WHERE class_id = $1 AND date = $2 AND ($3 = '' OR marked_by = $3)
ORDER BY start_time NULLS FIRST`
	records, err := r.scanRecords(ctx, query, classID, date, markedBy)
	if err != nil {
		return nil, fmt.Errorf("list attendance by date: %w", err)
	}
	return r.attachMarks(ctx, records, "")
}

// ListByClassAndRange returns records for a class between two dates inclusive,
// ordered by date then slot.
func (r *AttendanceRepository) ListByClassAndRange(ctx context.Context, classID string, from, to time.Time, markedBy string) ([]models.AttendanceRecord, error) {
	query := `SELECT id, class_id, date, marked_by, subject_teacher_id, start_time, end_time, remarks, created_at, updated_at
FROM attendance_records
WHERE class_id = $1 AND date >= $2 AND date <= $3 AND ($4 = '' OR marked_by = $4)
ORDER BY date, start_time NULLS FIRST`
	records, err := r.scanRecords(ctx, query, classID, from, to, markedBy)
	if err != nil {
		return nil, fmt.Errorf("list attendance by range: %w", err)
	}
	return r.attachMarks(ctx, records, "")
}

// ListByStudent returns the records containing a student's marks, date
// ascending. Each returned record carries only that student's entry.
func (r *AttendanceRepository) ListByStudent(ctx context.Context, studentID string) ([]models.AttendanceRecord, error) {
	query := `SELECT ar.id, ar.class_id, ar.date, ar.marked_by, ar.subject_teacher_id, ar.start_time, ar.end_time, ar.remarks, ar.created_at, ar.updated_at
FROM attendance_records ar
JOIN attendance_entries ae ON ae.record_id = ar.id
WHERE ae.student_id = $1
ORDER BY ar.date ASC, ar.start_time NULLS FIRST`
	records, err := r.scanRecords(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("list attendance by student: %w", err)
	}
	return r.attachMarks(ctx, records, studentID)
}

type recordRow struct {
	ID               string     `db:"id"`
	ClassID          string     `db:"class_id"`
	Date             time.Time  `db:"date"`
	MarkedBy         string     `db:"marked_by"`
	SubjectTeacherID *string    `db:"subject_teacher_id"`
	StartTime        *time.Time `db:"start_time"`
	EndTime          *time.Time `db:"end_time"`
	Remarks          *string    `db:"remarks"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
}

func (r *AttendanceRepository) scanRecords(ctx context.Context, query string, args ...interface{}) ([]models.AttendanceRecord, error) {
	var rows []recordRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	records := make([]models.AttendanceRecord, len(rows))
	for i, row := range rows {
		records[i] = models.AttendanceRecord{
			ID:               row.ID,
			ClassID:          row.ClassID,
			Date:             row.Date,
			MarkedBy:         row.MarkedBy,
			SubjectTeacherID: row.SubjectTeacherID,
			Timing:           models.TimingWindow{StartTime: row.StartTime, EndTime: row.EndTime},
			Remarks:          row.Remarks,
			CreatedAt:        row.CreatedAt,
			UpdatedAt:        row.UpdatedAt,
		}
	}
	return records, nil
}

type entryRow struct {
	RecordID    string                  `db:"record_id"`
	StudentID   string                  `db:"student_id"`
	StudentName *string                 `db:"student_name"`
	RollNumber  *string                 `db:"roll_number"`
	Status      models.AttendanceStatus `db:"status"`
}

type subjectRow struct {
	RecordID    string                  `db:"record_id"`
	StudentID   string                  `db:"student_id"`
	SubjectName string                  `db:"subject_name"`
	Status      models.AttendanceStatus `db:"status"`
}

// attachMarks loads entries and subject marks for the records. When onlyStudent
// is set, other students' entries are filtered out.
func (r *AttendanceRepository) attachMarks(ctx context.Context, records []models.AttendanceRecord, onlyStudent string) ([]models.AttendanceRecord, error) {
	if len(records) == 0 {
		return records, nil
	}
	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
	}

	entryQuery, args, err := sqlx.In(`SELECT ae.record_id, ae.student_id, s.full_name AS student_name, s.roll_number, ae.status
FROM attendance_entries ae
LEFT JOIN students s ON s.id = ae.student_id
WHERE ae.record_id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("build entry lookup: %w", err)
	}
	entryQuery = r.db.Rebind(entryQuery)
	var entries []entryRow
	if err := r.db.SelectContext(ctx, &entries, entryQuery, args...); err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}

	subjectQuery, args, err := sqlx.In(`SELECT record_id, student_id, subject_name, status
FROM attendance_subject_marks WHERE record_id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("build subject lookup: %w", err)
	}
	subjectQuery = r.db.Rebind(subjectQuery)
	var subjects []subjectRow
	if err := r.db.SelectContext(ctx, &subjects, subjectQuery, args...); err != nil {
		return nil, fmt.Errorf("load subject marks: %w", err)
	}

	subjectsByKey := make(map[string][]models.SubjectMark)
	for _, row := range subjects {
		key := row.RecordID + "|" + row.StudentID
		subjectsByKey[key] = append(subjectsByKey[key], models.SubjectMark{Name: row.SubjectName, Status: row.Status})
	}

	marksByRecord := make(map[string][]models.StudentMark)
	for _, row := range entries {
		if onlyStudent != "" && row.StudentID != onlyStudent {
			continue
		}
		mark := models.StudentMark{
			StudentID: row.StudentID,
			Status:    row.Status,
			Subjects:  subjectsByKey[row.RecordID+"|"+row.StudentID],
		}
		if row.StudentName != nil {
			mark.StudentName = *row.StudentName
		}
		if row.RollNumber != nil {
			mark.RollNumber = *row.RollNumber
		}
		marksByRecord[row.RecordID] = append(marksByRecord[row.RecordID], mark)
	}

	for i := range records {
		records[i].Students = marksByRecord[records[i].ID]
	}
	return records, nil
}

// TodayCounts returns present/absent totals for the teacher's classes on a day.
func (r *AttendanceRepository) TodayCounts(ctx context.Context, classIDs []string, markedBy string, day time.Time) (present, absent int, err error) {
	if len(classIDs) == 0 {
		return 0, 0, nil
	}
	query, args, err := sqlx.In(`SELECT
        COALESCE(SUM(CASE WHEN ae.status = 'present' THEN 1 ELSE 0 END), 0) AS present,
        COALESCE(SUM(CASE WHEN ae.status = 'absent' THEN 1 ELSE 0 END), 0) AS absent
FROM attendance_entries ae
JOIN attendance_records ar ON ar.id = ae.record_id
WHERE ar.class_id IN (?) AND ar.marked_by = ? AND ar.date = ?`, classIDs, markedBy, day)
	if err != nil {
		return 0, 0, fmt.Errorf("build today counts: %w", err)
	}
	query = r.db.Rebind(query)
	row := struct {
		Present int `db:"present"`
		Absent  int `db:"absent"`
	}{}
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return 0, 0, fmt.Errorf("today counts: %w", err)
	}
	return row.Present, row.Absent, nil
}

// MonthCounts returns present and total marks for the teacher's classes since
// the given month start.
func (r *AttendanceRepository) MonthCounts(ctx context.Context, classIDs []string, markedBy string, monthStart time.Time) (present, total int, err error) {
	if len(classIDs) == 0 {
		return 0, 0, nil
	}
	query, args, err := sqlx.In(`SELECT
        COALESCE(SUM(CASE WHEN ae.status = 'present' THEN 1 ELSE 0 END), 0) AS present,
        COUNT(ae.student_id) AS total
FROM attendance_entries ae
JOIN attendance_records ar ON ar.id = ae.record_id
WHERE ar.class_id IN (?) AND ar.marked_by = ? AND ar.date >= ?`, classIDs, markedBy, monthStart)
	if err != nil {
		return 0, 0, fmt.Errorf("build month counts: %w", err)
	}
	query = r.db.Rebind(query)
	row := struct {
		Present int `db:"present"`
		Total   int `db:"total"`
	}{}
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return 0, 0, fmt.Errorf("month counts: %w", err)
	}
	return row.Present, row.Total, nil
}

// RecentActivity returns the teacher's most recently created records.
func (r *AttendanceRepository) RecentActivity(ctx context.Context, classIDs []string, markedBy string, limit int) ([]models.RecentActivity, error) {
	if len(classIDs) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}
	query, args, err := sqlx.In(`SELECT ar.class_id, c.name AS class_name, c.section AS class_section,
        ar.date, ar.created_at,
        COALESCE(SUM(CASE WHEN ae.status = 'present' THEN 1 ELSE 0 END), 0) AS present_count,
        COUNT(ae.student_id) AS total_count
FROM attendance_records ar
JOIN classes c ON c.id = ar.class_id
LEFT JOIN attendance_entries ae ON ae.record_id = ar.id
WHERE ar.class_id IN (?) AND ar.marked_by = ?
GROUP BY ar.id, ar.class_id, c.name, c.section, ar.date, ar.created_at
ORDER BY ar.created_at DESC
LIMIT ?`, classIDs, markedBy, limit)
	if err != nil {
		return nil, fmt.Errorf("build recent activity: %w", err)
	}
	query = r.db.Rebind(query)
	var rows []models.RecentActivity
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("recent activity: %w", err)
	}
	return rows, nil
}

func upsertRecord(ctx context.Context, tx *sqlx.Tx, record *models.AttendanceRecord, now time.Time) (string, error) {
	var recordID string
	if record.Timing.StartTime == nil {
		query := `INSERT INTO attendance_records (id, class_id, date, marked_by, subject_teacher_id, start_time, end_time, remarks, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, NULL, NULL, $6, $7, $7)
ON CONFLICT (class_id, date, marked_by) WHERE start_time IS NULL
DO UPDATE SET subject_teacher_id = EXCLUDED.subject_teacher_id, remarks = EXCLUDED.remarks, updated_at = EXCLUDED.updated_at
RETURNING id`
		if err := tx.QueryRowxContext(ctx, query,
			record.ID, record.ClassID, record.Date, record.MarkedBy,
			record.SubjectTeacherID, record.Remarks, now).Scan(&recordID); err != nil {
			return "", fmt.Errorf("upsert record: %w", err)
		}
		return recordID, nil
	}

	query := `INSERT INTO attendance_records (id, class_id, date, marked_by, subject_teacher_id, start_time, end_time, remarks, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
ON CONFLICT (class_id, date, marked_by, start_time)
DO UPDATE SET subject_teacher_id = EXCLUDED.subject_teacher_id, end_time = EXCLUDED.end_time, remarks = EXCLUDED.remarks, updated_at = EXCLUDED.updated_at
RETURNING id`
	if err := tx.QueryRowxContext(ctx, query,
		record.ID, record.ClassID, record.Date, record.MarkedBy, record.SubjectTeacherID,
		record.Timing.StartTime, record.Timing.EndTime, record.Remarks, now).Scan(&recordID); err != nil {
		return "", fmt.Errorf("upsert record: %w", err)
	}
	return recordID, nil
}
