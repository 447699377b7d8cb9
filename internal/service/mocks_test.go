package service

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"learnstream/internal/models"
	"learnstream/internal/progress"
)

type mockUsers struct{ mock.Mock }

func (m *mockUsers) GetBySubject(ctx context.Context, subjectID string) (models.User, error) {
	args := m.Called(ctx, subjectID)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *mockUsers) Upsert(ctx context.Context, user models.User) (models.User, bool, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(models.User), args.Bool(1), args.Error(2)
}

type mockModules struct{ mock.Mock }

func (m *mockModules) Get(ctx context.Context, id string) (models.ContentModule, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.ContentModule), args.Error(1)
}

func (m *mockModules) Ensure(ctx context.Context, cm models.ContentModule) (models.ContentModule, error) {
	args := m.Called(ctx, cm)
	if echo, ok := args.Get(0).(bool); ok && echo {
		return cm, args.Error(1)
	}
	return args.Get(0).(models.ContentModule), args.Error(1)
}

type mockProgress struct{ mock.Mock }

func (m *mockProgress) Get(ctx context.Context, userID uuid.UUID, moduleID string) (models.UserProgress, error) {
	args := m.Called(ctx, userID, moduleID)
	return args.Get(0).(models.UserProgress), args.Error(1)
}

func (m *mockProgress) GetOrCreate(ctx context.Context, userID uuid.UUID, moduleID string) (models.UserProgress, error) {
	args := m.Called(ctx, userID, moduleID)
	return args.Get(0).(models.UserProgress), args.Error(1)
}

func (m *mockProgress) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.UserProgress, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.UserProgress), args.Error(1)
}

func (m *mockProgress) CompareAndSet(ctx context.Context, userID uuid.UUID, moduleID string, expected progress.Status, next progress.State) (models.UserProgress, bool, error) {
	args := m.Called(ctx, userID, moduleID, expected, next)
	return args.Get(0).(models.UserProgress), args.Bool(1), args.Error(2)
}

type mockCreations struct{ mock.Mock }

func (m *mockCreations) Create(ctx context.Context, c models.Creation) (models.Creation, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(models.Creation), args.Error(1)
}

func (m *mockCreations) ListByUserModule(ctx context.Context, userID uuid.UUID, moduleID string) ([]models.Creation, error) {
	args := m.Called(ctx, userID, moduleID)
	return args.Get(0).([]models.Creation), args.Error(1)
}

type mockNarrations struct{ mock.Mock }

func (m *mockNarrations) Upsert(ctx context.Context, n models.Narration) error {
	return m.Called(ctx, n).Error(0)
}

func (m *mockNarrations) Get(ctx context.Context, moduleID string, segment int) (models.Narration, error) {
	args := m.Called(ctx, moduleID, segment)
	return args.Get(0).(models.Narration), args.Error(1)
}

func (m *mockNarrations) ListByModule(ctx context.Context, moduleID string) ([]models.Narration, error) {
	args := m.Called(ctx, moduleID)
	return args.Get(0).([]models.Narration), args.Error(1)
}

type mockObjects struct{ mock.Mock }

func (m *mockObjects) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	return m.Called(ctx, key, reader, size, contentType).Error(0)
}

func (m *mockObjects) Open(ctx context.Context, key string) (*models.Object, error) {
	args := m.Called(ctx, key)
	obj, _ := args.Get(0).(*models.Object)
	return obj, args.Error(1)
}

func (m *mockObjects) Remove(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *mockObjects) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

type mockDirectory struct{ mock.Mock }

func (m *mockDirectory) Email(ctx context.Context, subject string) (string, error) {
	args := m.Called(ctx, subject)
	return args.String(0), args.Error(1)
}

var (
	_ models.UserStore      = (*mockUsers)(nil)
	_ models.ModuleStore    = (*mockModules)(nil)
	_ models.ProgressStore  = (*mockProgress)(nil)
	_ models.CreationStore  = (*mockCreations)(nil)
	_ models.NarrationStore = (*mockNarrations)(nil)
	_ models.ObjectStorage  = (*mockObjects)(nil)
	_ EmailDirectory        = (*mockDirectory)(nil)
)
