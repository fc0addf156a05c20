package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classtrack/classtrack-api/internal/models"
)

// StudentRepository handles persistence for students.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = `s.id, s.full_name, s.roll_number, s.class_id, s.department, s.semester, s.photo,
        s.parent_name, s.parent_phone, s.parent_email, s.user_id, s.created_at, s.updated_at,
        c.name AS class_name, c.section AS class_section`

// List returns students matching the filter with class metadata attached.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	base := `FROM students s LEFT JOIN classes c ON c.id = s.class_id`
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.Search != "" {
		where = append(where, fmt.Sprintf("(s.full_name ILIKE $%d OR s.roll_number ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.ClassID != "" {
		where = append(where, fmt.Sprintf("s.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	whereClause := strings.Join(where, " AND ")

	allowedSort := map[string]string{
		"name":        "s.full_name",
		"roll_number": "s.roll_number",
		"created_at":  "s.created_at",
	}
	sortColumn, ok := allowedSort[filter.SortBy]
	if !ok {
		sortColumn = "s.roll_number"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s %s WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d`,
		studentColumns, base, whereClause, sortColumn, order, size, offset)

	var rows []models.StudentDetail
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return rows, total, nil
}

// FindByID returns a student with class metadata.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	var student models.StudentDetail
	query := fmt.Sprintf(`SELECT %s FROM students s LEFT JOIN classes c ON c.id = s.class_id WHERE s.id = $1`, studentColumns)
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByUserID resolves the student owning a login identity.
func (r *StudentRepository) FindByUserID(ctx context.Context, userID string) (*models.StudentDetail, error) {
	var student models.StudentDetail
	query := fmt.Sprintf(`SELECT %s FROM students s LEFT JOIN classes c ON c.id = s.class_id WHERE s.user_id = $1`, studentColumns)
	if err := r.db.GetContext(ctx, &student, query, userID); err != nil {
		return nil, err
	}
	return &student, nil
}

// ExistsByRollNumber reports whether the roll number is already taken.
func (r *StudentRepository) ExistsByRollNumber(ctx context.Context, rollNumber, excludeID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM students WHERE roll_number = $1 AND id <> $2)`
	if err := r.db.GetContext(ctx, &exists, query, rollNumber, excludeID); err != nil {
		return false, fmt.Errorf("check roll number: %w", err)
	}
	return exists, nil
}

// Create inserts a new student row.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	now := time.Now().UTC()
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	student.CreatedAt = now
	student.UpdatedAt = now
	query := `INSERT INTO students (id, full_name, roll_number, class_id, department, semester, photo,
        parent_name, parent_phone, parent_email, user_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	if _, err := r.db.ExecContext(ctx, query,
		student.ID, student.FullName, student.RollNumber, student.ClassID, student.Department,
		student.Semester, student.Photo, student.ParentName, student.ParentPhone, student.ParentEmail,
		student.UserID, student.CreatedAt, student.UpdatedAt); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update overwrites mutable student fields.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	query := `UPDATE students SET full_name = $2, roll_number = $3, class_id = $4, department = $5,
        semester = $6, parent_name = $7, parent_phone = $8, parent_email = $9, updated_at = $10
WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query,
		student.ID, student.FullName, student.RollNumber, student.ClassID, student.Department,
		student.Semester, student.ParentName, student.ParentPhone, student.ParentEmail, student.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes the student row. Historical attendance entries keep their
// student reference and are left in place (documented orphaning behavior).
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Roster returns the slim roster for a class ordered by roll number.
func (r *StudentRepository) Roster(ctx context.Context, classID string) ([]models.RosterEntry, error) {
	var roster []models.RosterEntry
	query := `SELECT id, full_name, roll_number, photo FROM students WHERE class_id = $1 ORDER BY roll_number`
	if err := r.db.SelectContext(ctx, &roster, query, classID); err != nil {
		return nil, fmt.Errorf("class roster: %w", err)
	}
	return roster, nil
}

// CountByIDs returns how many of the given student ids exist in the class.
func (r *StudentRepository) CountByIDs(ctx context.Context, classID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In(`SELECT COUNT(*) FROM students WHERE class_id = ? AND id IN (?)`, classID, ids)
	if err != nil {
		return 0, fmt.Errorf("build student count: %w", err)
	}
	query = r.db.Rebind(query)
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count students by ids: %w", err)
	}
	return count, nil
}

// FindByIDs returns students for the given ids, keyed for notification fan-out.
func (r *StudentRepository) FindByIDs(ctx context.Context, ids []string) ([]models.StudentDetail, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(fmt.Sprintf(`SELECT %s FROM students s LEFT JOIN classes c ON c.id = s.class_id WHERE s.id IN (?)`, studentColumns), ids)
	if err != nil {
		return nil, fmt.Errorf("build student lookup: %w", err)
	}
	query = r.db.Rebind(query)
	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("find students by ids: %w", err)
	}
	return students, nil
}
