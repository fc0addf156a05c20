package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classtrack/classtrack-api/internal/models"
)

// TeacherRepository handles persistence for teacher profiles.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs the repository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// FindByUserID returns the teacher profile owned by a login identity.
func (r *TeacherRepository) FindByUserID(ctx context.Context, userID string) (*models.Teacher, error) {
	var teacher models.Teacher
	query := `SELECT id, user_id, full_name, department, subjects, contact_number, created_at, updated_at
FROM teachers WHERE user_id = $1`
	if err := r.db.GetContext(ctx, &teacher, query, userID); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// FindByID returns a teacher profile by identifier.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	var teacher models.Teacher
	query := `SELECT id, user_id, full_name, department, subjects, contact_number, created_at, updated_at
FROM teachers WHERE id = $1`
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// Upsert creates or replaces the profile for the given login identity and
// rewrites the class assignment links in the same transaction.
func (r *TeacherRepository) Upsert(ctx context.Context, teacher *models.Teacher, classIDs []string) error {
	now := time.Now().UTC()
	if teacher.ID == "" {
		teacher.ID = uuid.NewString()
	}
	if teacher.CreatedAt.IsZero() {
		teacher.CreatedAt = now
	}
	teacher.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin teacher upsert: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	query := `INSERT INTO teachers (id, user_id, full_name, department, subjects, contact_number, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (user_id)
DO UPDATE SET full_name = EXCLUDED.full_name, department = EXCLUDED.department,
        subjects = EXCLUDED.subjects, contact_number = EXCLUDED.contact_number, updated_at = EXCLUDED.updated_at
RETURNING id, created_at`
	if err := tx.QueryRowxContext(ctx, query,
		teacher.ID, teacher.UserID, teacher.FullName, teacher.Department,
		teacher.Subjects, teacher.ContactNumber, teacher.CreatedAt, teacher.UpdatedAt).
		Scan(&teacher.ID, &teacher.CreatedAt); err != nil {
		return fmt.Errorf("upsert teacher: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM teacher_classes WHERE teacher_id = $1`, teacher.ID); err != nil {
		return fmt.Errorf("clear teacher classes: %w", err)
	}
	for _, classID := range classIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO teacher_classes (teacher_id, class_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			teacher.ID, classID); err != nil {
			return fmt.Errorf("assign class %s: %w", classID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit teacher upsert: %w", err)
	}
	committed = true
	return nil
}

// AssignedClasses returns the class groups assigned to a teacher.
func (r *TeacherRepository) AssignedClasses(ctx context.Context, teacherID string) ([]models.ClassGroup, error) {
	var classes []models.ClassGroup
	query := `SELECT c.id, c.name, c.section, c.created_at, c.updated_at
FROM classes c
JOIN teacher_classes tc ON tc.class_id = c.id
WHERE tc.teacher_id = $1
ORDER BY c.name, c.section`
	if err := r.db.SelectContext(ctx, &classes, query, teacherID); err != nil {
		return nil, fmt.Errorf("assigned classes: %w", err)
	}
	return classes, nil
}

// CountStudentsInClasses returns the roster size across the given classes.
func (r *TeacherRepository) CountStudentsInClasses(ctx context.Context, classIDs []string) (int, error) {
	if len(classIDs) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In(`SELECT COUNT(*) FROM students WHERE class_id IN (?)`, classIDs)
	if err != nil {
		return 0, fmt.Errorf("build student count: %w", err)
	}
	query = r.db.Rebind(query)
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count class students: %w", err)
	}
	return count, nil
}
