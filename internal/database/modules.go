package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"learnstream/internal/models"
)

var _ models.ModuleStore = (*ModuleRepository)(nil)

const moduleColumns = `id, source_expert, topic_title, category, difficulty, estimated_minutes, description, content, created_at, updated_at`

type ModuleRepository struct {
	db DBTX
}

func NewModuleRepository(db DBTX) *ModuleRepository {
	return &ModuleRepository{db: db}
}

func (r *ModuleRepository) Get(ctx context.Context, id string) (models.ContentModule, error) {
	var m models.ContentModule
	err := r.db.GetContext(ctx, &m, `SELECT `+moduleColumns+` FROM content_modules WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ContentModule{}, models.ErrNotFound
		}
		return models.ContentModule{}, fmt.Errorf("failed to get content module: %w", err)
	}
	return m, nil
}

// Ensure never overwrites an existing module: rows are immutable once
// materialized.
func (r *ModuleRepository) Ensure(ctx context.Context, m models.ContentModule) (models.ContentModule, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO content_modules (id, source_expert, topic_title, category, difficulty, estimated_minutes, description, content)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`,
		m.ID, m.SourceExpert, m.TopicTitle, m.Category, m.Difficulty, m.EstimatedMinutes, m.Description, m.Content,
	)
	if err != nil {
		return models.ContentModule{}, fmt.Errorf("failed to materialize content module %s: %w", m.ID, err)
	}
	return r.Get(ctx, m.ID)
}
