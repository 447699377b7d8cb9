package models

import (
	"context"
	"io"

	"github.com/google/uuid"

	"learnstream/internal/progress"
)

// UserStore defines persistence operations for users.
type UserStore interface {
	GetBySubject(ctx context.Context, subjectID string) (User, error)
	// Upsert creates the user or updates email, age and difficulty of the
	// row with the same subject id. created reports which one happened.
	Upsert(ctx context.Context, user User) (saved User, created bool, err error)
}

// ModuleStore defines persistence operations for content modules.
type ModuleStore interface {
	Get(ctx context.Context, id string) (ContentModule, error)
	// Ensure writes m unless a row with its id exists and returns the stored row.
	Ensure(ctx context.Context, m ContentModule) (ContentModule, error)
}

// ProgressStore defines persistence operations for progress records.
type ProgressStore interface {
	Get(ctx context.Context, userID uuid.UUID, moduleID string) (UserProgress, error)
	GetOrCreate(ctx context.Context, userID uuid.UUID, moduleID string) (UserProgress, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]UserProgress, error)
	// CompareAndSet writes next only while the stored status still equals
	// expected. ok is false when another writer got there first.
	CompareAndSet(ctx context.Context, userID uuid.UUID, moduleID string, expected progress.Status, next progress.State) (saved UserProgress, ok bool, err error)
}

// CreationStore defines persistence operations for You Do submissions.
type CreationStore interface {
	Create(ctx context.Context, c Creation) (Creation, error)
	ListByUserModule(ctx context.Context, userID uuid.UUID, moduleID string) ([]Creation, error)
}

// NarrationStore defines persistence operations for narration clips.
type NarrationStore interface {
	Upsert(ctx context.Context, n Narration) error
	Get(ctx context.Context, moduleID string, segment int) (Narration, error)
	ListByModule(ctx context.Context, moduleID string) ([]Narration, error)
}

// Object is an open blob. The caller closes it.
type Object struct {
	io.ReadCloser
	Size        int64
	ContentType string
}

// ObjectStorage stores opaque blobs by key.
type ObjectStorage interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	// Open fails with ErrNotFound when nothing is stored under key.
	Open(ctx context.Context, key string) (*Object, error)
	Remove(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}
