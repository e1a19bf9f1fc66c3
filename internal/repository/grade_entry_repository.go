package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/sma-academic-api/internal/models"
)

const upsertGradeEntryQuery = `INSERT INTO grade_entries (id, enrollment_id, rubric_item_id, score, note, created_at, updated_at)
        VALUES (:id, :enrollment_id, :rubric_item_id, :score, :note, :created_at, :updated_at)
        ON CONFLICT (enrollment_id, rubric_item_id)
        DO UPDATE SET score = EXCLUDED.score, note = EXCLUDED.note, updated_at = EXCLUDED.updated_at
        RETURNING id, created_at`

// GradeEntryRepository handles grade entry persistence.
type GradeEntryRepository struct {
	db *sqlx.DB
}

// NewGradeEntryRepository creates a new grade entry repository.
func NewGradeEntryRepository(db *sqlx.DB) *GradeEntryRepository {
	return &GradeEntryRepository{db: db}
}

// ListByEnrollment returns the grade entries of one enrollment.
func (r *GradeEntryRepository) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.GradeEntry, error) {
	const query = `SELECT id, enrollment_id, rubric_item_id, score, note, created_at, updated_at
        FROM grade_entries WHERE enrollment_id = $1 ORDER BY created_at ASC, id ASC`
	var entries []models.GradeEntry
	if err := r.db.SelectContext(ctx, &entries, query, enrollmentID); err != nil {
		return nil, fmt.Errorf("list grade entries: %w", err)
	}
	return entries, nil
}

// Upsert inserts the entry or updates the existing one for the same (enrollment, rubric item) pair.
// The stored id and creation time are written back to entry.
func (r *GradeEntryRepository) Upsert(ctx context.Context, entry *models.GradeEntry) error {
	return r.upsert(ctx, r.db, entry)
}

// BulkUpsert upserts entries atomically.
func (r *GradeEntryRepository) BulkUpsert(ctx context.Context, entries []models.GradeEntry) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		for i := range entries {
			if err := r.upsert(ctx, tx, &entries[i]); err != nil {
				return fmt.Errorf("bulk upsert grade entry: %w", err)
			}
		}
		return nil
	})
}

func (r *GradeEntryRepository) upsert(ctx context.Context, exec sqlx.ExtContext, entry *models.GradeEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now
	rows, err := sqlx.NamedQueryContext(ctx, exec, upsertGradeEntryQuery, entry)
	if err != nil {
		return fmt.Errorf("upsert grade entry: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&entry.ID, &entry.CreatedAt); err != nil {
			return fmt.Errorf("scan grade entry: %w", err)
		}
	}
	return rows.Err()
}

// FetchScores returns scores keyed by enrollment id, then rubric item id.
func (r *GradeEntryRepository) FetchScores(ctx context.Context, enrollmentIDs []string) (map[string]map[string]decimal.Decimal, error) {
	result := make(map[string]map[string]decimal.Decimal, len(enrollmentIDs))
	if len(enrollmentIDs) == 0 {
		return result, nil
	}
	placeholders := make([]string, len(enrollmentIDs))
	args := make([]interface{}, len(enrollmentIDs))
	for i, id := range enrollmentIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT enrollment_id, rubric_item_id, score FROM grade_entries WHERE enrollment_id IN (%s)`, strings.Join(placeholders, ","))
	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch scores: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			enrollmentID string
			rubricItemID string
			score        decimal.Decimal
		)
		if err := rows.Scan(&enrollmentID, &rubricItemID, &score); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		if result[enrollmentID] == nil {
			result[enrollmentID] = make(map[string]decimal.Decimal)
		}
		result[enrollmentID][rubricItemID] = score
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scores: %w", err)
	}
	return result, nil
}
