package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classtrack/classtrack-api/internal/models"
)

// ClassRepository handles persistence for class groups.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs the repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// List returns all class groups ordered by year label then section.
func (r *ClassRepository) List(ctx context.Context) ([]models.ClassGroup, error) {
	var classes []models.ClassGroup
	query := `SELECT id, name, section, created_at, updated_at FROM classes ORDER BY name, section`
	if err := r.db.SelectContext(ctx, &classes, query); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

// Create inserts a new class group.
func (r *ClassRepository) Create(ctx context.Context, class *models.ClassGroup) error {
	now := time.Now().UTC()
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	class.CreatedAt = now
	class.UpdatedAt = now
	query := `INSERT INTO classes (id, name, section, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, query, class.ID, class.Name, class.Section, class.CreatedAt, class.UpdatedAt); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// FindByID returns the class group with the given identifier.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.ClassGroup, error) {
	var class models.ClassGroup
	query := `SELECT id, name, section, created_at, updated_at FROM classes WHERE id = $1`
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}

// FindByIDs returns the class groups for the given identifiers.
func (r *ClassRepository) FindByIDs(ctx context.Context, ids []string) ([]models.ClassGroup, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT id, name, section, created_at, updated_at FROM classes WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("build class lookup: %w", err)
	}
	query = r.db.Rebind(query)
	var classes []models.ClassGroup
	if err := r.db.SelectContext(ctx, &classes, query, args...); err != nil {
		return nil, fmt.Errorf("find classes: %w", err)
	}
	return classes, nil
}
