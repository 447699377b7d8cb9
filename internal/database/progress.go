package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"learnstream/internal/models"
	"learnstream/internal/progress"
)

var _ models.ProgressStore = (*ProgressRepository)(nil)

const progressColumns = `id, user_id, module_id, status, score, created_at, updated_at`

type ProgressRepository struct {
	db DBTX
}

func NewProgressRepository(db DBTX) *ProgressRepository {
	return &ProgressRepository{db: db}
}

func (r *ProgressRepository) Get(ctx context.Context, userID uuid.UUID, moduleID string) (models.UserProgress, error) {
	var p models.UserProgress
	err := r.db.GetContext(ctx, &p,
		`SELECT `+progressColumns+` FROM user_progress WHERE user_id = $1 AND module_id = $2`,
		userID, moduleID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.UserProgress{}, models.ErrNotFound
		}
		return models.UserProgress{}, fmt.Errorf("failed to get progress: %w", err)
	}
	return p, nil
}

// GetOrCreate inserts a fresh "started" record unless one exists. The
// (user_id, module_id) unique key keeps concurrent first opens from
// producing two rows.
func (r *ProgressRepository) GetOrCreate(ctx context.Context, userID uuid.UUID, moduleID string) (models.UserProgress, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_progress (user_id, module_id, status, score)
		VALUES ($1, $2, $3, 0)
		ON CONFLICT (user_id, module_id) DO NOTHING`,
		userID, moduleID, progress.StatusStarted,
	)
	if err != nil {
		return models.UserProgress{}, fmt.Errorf("failed to create progress: %w", err)
	}
	return r.Get(ctx, userID, moduleID)
}

func (r *ProgressRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.UserProgress, error) {
	rows := []models.UserProgress{}
	err := r.db.SelectContext(ctx, &rows,
		`SELECT `+progressColumns+` FROM user_progress WHERE user_id = $1 ORDER BY module_id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	return rows, nil
}

func (r *ProgressRepository) CompareAndSet(ctx context.Context, userID uuid.UUID, moduleID string, expected progress.Status, next progress.State) (models.UserProgress, bool, error) {
	var p models.UserProgress
	err := r.db.GetContext(ctx, &p, `
		UPDATE user_progress
		SET status = $4, score = $5, updated_at = now()
		WHERE user_id = $1 AND module_id = $2 AND status = $3
		RETURNING `+progressColumns,
		userID, moduleID, expected, next.Status, next.Score,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.UserProgress{}, false, nil
		}
		return models.UserProgress{}, false, fmt.Errorf("failed to update progress: %w", err)
	}
	return p, true, nil
}
