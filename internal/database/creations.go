package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"learnstream/internal/models"
)

var _ models.CreationStore = (*CreationRepository)(nil)

const creationColumns = `id, user_id, module_id, content_type, object_key, content_length, created_at`

type CreationRepository struct {
	db DBTX
}

func NewCreationRepository(db DBTX) *CreationRepository {
	return &CreationRepository{db: db}
}

func (r *CreationRepository) Create(ctx context.Context, c models.Creation) (models.Creation, error) {
	var saved models.Creation
	err := r.db.GetContext(ctx, &saved, `
		INSERT INTO creations (id, user_id, module_id, content_type, object_key, content_length)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+creationColumns,
		c.ID, c.UserID, c.ModuleID, c.ContentType, c.ObjectKey, c.ContentLength,
	)
	if err != nil {
		return models.Creation{}, fmt.Errorf("failed to create creation: %w", err)
	}
	return saved, nil
}

func (r *CreationRepository) ListByUserModule(ctx context.Context, userID uuid.UUID, moduleID string) ([]models.Creation, error) {
	rows := []models.Creation{}
	err := r.db.SelectContext(ctx, &rows,
		`SELECT `+creationColumns+` FROM creations WHERE user_id = $1 AND module_id = $2 ORDER BY created_at DESC`,
		userID, moduleID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list creations: %w", err)
	}
	return rows, nil
}
