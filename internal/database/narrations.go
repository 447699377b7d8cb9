package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"learnstream/internal/models"
)

var _ models.NarrationStore = (*NarrationRepository)(nil)

type NarrationRepository struct {
	db DBTX
}

func NewNarrationRepository(db DBTX) *NarrationRepository {
	return &NarrationRepository{db: db}
}

func (r *NarrationRepository) Upsert(ctx context.Context, n models.Narration) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO module_narrations (module_id, segment_index, object_key)
		VALUES ($1, $2, $3)
		ON CONFLICT (module_id, segment_index)
		DO UPDATE SET object_key = EXCLUDED.object_key, created_at = now()`,
		n.ModuleID, n.SegmentIndex, n.ObjectKey,
	)
	if err != nil {
		return fmt.Errorf("failed to save narration %s/%d: %w", n.ModuleID, n.SegmentIndex, err)
	}
	return nil
}

func (r *NarrationRepository) Get(ctx context.Context, moduleID string, segment int) (models.Narration, error) {
	var n models.Narration
	err := r.db.GetContext(ctx, &n,
		`SELECT module_id, segment_index, object_key, created_at FROM module_narrations WHERE module_id = $1 AND segment_index = $2`,
		moduleID, segment,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Narration{}, models.ErrNotFound
		}
		return models.Narration{}, fmt.Errorf("failed to get narration: %w", err)
	}
	return n, nil
}

func (r *NarrationRepository) ListByModule(ctx context.Context, moduleID string) ([]models.Narration, error) {
	rows := []models.Narration{}
	err := r.db.SelectContext(ctx, &rows,
		`SELECT module_id, segment_index, object_key, created_at FROM module_narrations WHERE module_id = $1 ORDER BY segment_index`,
		moduleID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list narrations: %w", err)
	}
	return rows, nil
}
