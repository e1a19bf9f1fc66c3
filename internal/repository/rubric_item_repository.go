package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-academic-api/internal/models"
)

const rubricItemColumns = `id, course_id, name, weight, category, active, created_at, updated_at`

// SiblingCheck validates a rubric change against the active items of the same course.
// It runs inside the write transaction while the course row is locked.
type SiblingCheck func(siblings []models.RubricItem) error

// RubricItemRepository persists rubric items.
type RubricItemRepository struct {
	db *sqlx.DB
}

// NewRubricItemRepository creates a new rubric item repository.
func NewRubricItemRepository(db *sqlx.DB) *RubricItemRepository {
	return &RubricItemRepository{db: db}
}

// ListByCourse returns rubric items of a course. Inactive items are included on request.
func (r *RubricItemRepository) ListByCourse(ctx context.Context, courseID string, includeInactive bool) ([]models.RubricItem, error) {
	query := `SELECT ` + rubricItemColumns + ` FROM rubric_items WHERE course_id = $1`
	if !includeInactive {
		query += ` AND active = TRUE`
	}
	query += ` ORDER BY created_at ASC, id ASC`
	var items []models.RubricItem
	if err := r.db.SelectContext(ctx, &items, query, courseID); err != nil {
		return nil, fmt.Errorf("list rubric items: %w", err)
	}
	return items, nil
}

// FindByID loads a rubric item by id.
func (r *RubricItemRepository) FindByID(ctx context.Context, id string) (*models.RubricItem, error) {
	query := `SELECT ` + rubricItemColumns + ` FROM rubric_items WHERE id = $1`
	var item models.RubricItem
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		return nil, err
	}
	return &item, nil
}

// CreateChecked inserts item after check accepts the current active siblings.
// sql.ErrNoRows is returned when the course does not exist.
func (r *RubricItemRepository) CreateChecked(ctx context.Context, item *models.RubricItem, check SiblingCheck) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		siblings, err := r.lockCourse(ctx, tx, item.CourseID)
		if err != nil {
			return err
		}
		if err := check(siblings); err != nil {
			return err
		}
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		now := time.Now().UTC()
		item.CreatedAt = now
		item.UpdatedAt = now
		const query = `INSERT INTO rubric_items (id, course_id, name, weight, category, active, created_at, updated_at)
        VALUES (:id, :course_id, :name, :weight, :category, :active, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, query, item); err != nil {
			return fmt.Errorf("insert rubric item: %w", err)
		}
		return nil
	})
}

// UpdateChecked rewrites item after check accepts the current active siblings.
func (r *RubricItemRepository) UpdateChecked(ctx context.Context, item *models.RubricItem, check SiblingCheck) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		siblings, err := r.lockCourse(ctx, tx, item.CourseID)
		if err != nil {
			return err
		}
		if err := check(siblings); err != nil {
			return err
		}
		item.UpdatedAt = time.Now().UTC()
		const query = `UPDATE rubric_items SET name = :name, weight = :weight, category = :category, active = :active, updated_at = :updated_at
        WHERE id = :id`
		result, err := tx.NamedExecContext(ctx, query, item)
		if err != nil {
			return fmt.Errorf("update rubric item: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("check updated rubric item rows: %w", err)
		}
		if affected == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
}

// Deactivate retires a rubric item; its grades stay stored but stop counting.
func (r *RubricItemRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE rubric_items SET active = FALSE, updated_at = $2 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("deactivate rubric item: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deactivated rubric item rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// lockCourse serialises rubric writes of one course and returns its active items.
func (r *RubricItemRepository) lockCourse(ctx context.Context, tx *sqlx.Tx, courseID string) ([]models.RubricItem, error) {
	var locked string
	if err := tx.GetContext(ctx, &locked, `SELECT id FROM courses WHERE id = $1 FOR UPDATE`, courseID); err != nil {
		return nil, err
	}
	query := `SELECT ` + rubricItemColumns + ` FROM rubric_items WHERE course_id = $1 AND active = TRUE`
	var siblings []models.RubricItem
	if err := tx.SelectContext(ctx, &siblings, query, courseID); err != nil {
		return nil, fmt.Errorf("load rubric siblings: %w", err)
	}
	return siblings, nil
}
