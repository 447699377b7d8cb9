package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"learnstream/internal/models"
)

var _ models.UserStore = (*UserRepository)(nil)

const userColumns = `id, subject_id, email, age, difficulty_preference, created_at, updated_at`

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetBySubject(ctx context.Context, subjectID string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE subject_id = $1`, subjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, models.ErrNotFound
		}
		return models.User{}, fmt.Errorf("failed to get user by subject: %w", err)
	}
	return user, nil
}

// Upsert relies on the unique subject_id. xmax is zero only for a freshly
// inserted tuple, which tells creation and update apart in one round trip.
func (r *UserRepository) Upsert(ctx context.Context, user models.User) (models.User, bool, error) {
	query := `
		INSERT INTO users (subject_id, email, age, difficulty_preference)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (subject_id)
		DO UPDATE SET
			email = EXCLUDED.email,
			age = EXCLUDED.age,
			difficulty_preference = EXCLUDED.difficulty_preference,
			updated_at = now()
		RETURNING ` + userColumns + `, (xmax = 0) AS inserted`

	var row struct {
		models.User
		Inserted bool `db:"inserted"`
	}
	err := r.db.GetContext(ctx, &row, query, user.SubjectID, user.Email, user.Age, user.DifficultyPreference)
	if err != nil {
		return models.User{}, false, fmt.Errorf("failed to upsert user: %w", err)
	}
	return row.User, row.Inserted, nil
}
