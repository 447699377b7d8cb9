package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learnstream/internal/config"
	"learnstream/internal/logger"
	"learnstream/internal/models"
)

// memModules is an in-memory content_modules table.
type memModules struct {
	mu   sync.Mutex
	rows map[string]models.ContentModule
}

func newMemModules() *memModules {
	return &memModules{rows: map[string]models.ContentModule{}}
}

func (m *memModules) Get(_ context.Context, id string) (models.ContentModule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return models.ContentModule{}, models.ErrNotFound
	}
	return row, nil
}

func (m *memModules) Ensure(_ context.Context, cm models.ContentModule) (models.ContentModule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row, ok := m.rows[cm.ID]; ok {
		return row, nil
	}
	m.rows[cm.ID] = cm
	return cm, nil
}

func (m *memModules) has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[id]
	return ok
}

// memNarrations rejects rows for modules that were never written, like the
// foreign key on module_narrations.
type memNarrations struct {
	mu      sync.Mutex
	modules *memModules
	rows    map[string]models.Narration
}

func newMemNarrations(modules *memModules) *memNarrations {
	return &memNarrations{modules: modules, rows: map[string]models.Narration{}}
}

func (m *memNarrations) id(moduleID string, segment int) string {
	return fmt.Sprintf("%s/%d", moduleID, segment)
}

func (m *memNarrations) Upsert(_ context.Context, n models.Narration) error {
	if !m.modules.has(n.ModuleID) {
		return errors.New(`violates foreign key constraint "module_narrations_module_id_fkey"`)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[m.id(n.ModuleID, n.SegmentIndex)] = n
	return nil
}

func (m *memNarrations) Get(_ context.Context, moduleID string, segment int) (models.Narration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.rows[m.id(moduleID, segment)]
	if !ok {
		return models.Narration{}, models.ErrNotFound
	}
	return n, nil
}

func (m *memNarrations) ListByModule(context.Context, string) ([]models.Narration, error) {
	return nil, nil
}

type memObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemObjects() *memObjects {
	return &memObjects{objects: map[string][]byte{}}
}

func (m *memObjects) Upload(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = b
	return nil
}

func (m *memObjects) Open(_ context.Context, key string) (*models.Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[key]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &models.Object{ReadCloser: io.NopCloser(bytes.NewReader(b)), Size: int64(len(b))}, nil
}

func (m *memObjects) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memObjects) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok, nil
}

func modulesFixture() []models.ContentModule {
	return []models.ContentModule{
		{ID: "1", Content: models.Content{IDoStory: []models.Segment{{Content: "one"}, {Content: "two"}}}},
		{ID: "2", Content: models.Content{IDoStory: []models.Segment{{Content: "three"}}}},
	}
}

func echoSynth(_ context.Context, text string) ([]byte, error) {
	return []byte("mp3:" + strings.ToUpper(text)), nil
}

func TestPlan(t *testing.T) {
	ctx := context.Background()
	modules := newMemModules()
	require.NoError(t, materialize(ctx, modulesFixture(), modules))
	store := newMemNarrations(modules)
	objects := newMemObjects()

	require.NoError(t, store.Upsert(ctx, models.Narration{ModuleID: "1", SegmentIndex: 1, ObjectKey: "narration/1/1.mp3"}))
	require.NoError(t, objects.Upload(ctx, "narration/1/1.mp3", strings.NewReader("mp3"), 3, "audio/mpeg"))
	// Recorded, but the object was lost.
	require.NoError(t, store.Upsert(ctx, models.Narration{ModuleID: "2", SegmentIndex: 0, ObjectKey: "narration/2/0.mp3"}))

	jobs, err := plan(ctx, modulesFixture(), store, objects, false)
	require.NoError(t, err)
	assert.Equal(t, []job{{ModuleID: "1", Segment: 0, Text: "one"}, {ModuleID: "2", Segment: 0, Text: "three"}}, jobs)

	jobs, err = plan(ctx, modulesFixture(), store, objects, true)
	require.NoError(t, err)
	assert.Len(t, jobs, 3)
}

func TestGenerate_FreshDatabase(t *testing.T) {
	ctx := context.Background()
	modules := newMemModules()
	store := newMemNarrations(modules)
	objects := newMemObjects()

	// Without the module rows every segment fails and its audio is removed.
	jobs, err := plan(ctx, modulesFixture(), store, objects, false)
	require.NoError(t, err)
	done, failed := generate(ctx, jobs, config.TTS{Workers: 1}, echoSynth, objects, store, logger.NewNop())
	assert.Zero(t, done)
	assert.Equal(t, 3, failed)
	assert.Empty(t, objects.objects)

	require.NoError(t, materialize(ctx, modulesFixture(), modules))
	assert.True(t, modules.has("1"))
	assert.True(t, modules.has("2"))

	jobs, err = plan(ctx, modulesFixture(), store, objects, false)
	require.NoError(t, err)
	done, failed = generate(ctx, jobs, config.TTS{Workers: 2}, echoSynth, objects, store, logger.NewNop())
	assert.Equal(t, 3, done)
	assert.Zero(t, failed)

	n, err := store.Get(ctx, "1", 1)
	require.NoError(t, err)
	assert.Equal(t, "narration/1/1.mp3", n.ObjectKey)
}

func TestGenerate(t *testing.T) {
	ctx := context.Background()
	modules := newMemModules()
	require.NoError(t, materialize(ctx, modulesFixture(), modules))
	store := newMemNarrations(modules)
	objects := newMemObjects()
	synth := func(ctx context.Context, text string) ([]byte, error) {
		if text == "bad" {
			return nil, errors.New("quota exceeded")
		}
		return echoSynth(ctx, text)
	}

	jobs := []job{
		{ModuleID: "1", Segment: 0, Text: "one"},
		{ModuleID: "1", Segment: 1, Text: "bad"},
		{ModuleID: "2", Segment: 0, Text: "three"},
	}
	done, failed := generate(ctx, jobs, config.TTS{Workers: 2}, synth, objects, store, logger.NewNop())
	assert.Equal(t, 2, done)
	assert.Equal(t, 1, failed)

	assert.Equal(t, []byte("mp3:ONE"), objects.objects["narration/1/0.mp3"])
	assert.Equal(t, []byte("mp3:THREE"), objects.objects["narration/2/0.mp3"])
	assert.NotContains(t, objects.objects, "narration/1/1.mp3")

	n, err := store.Get(ctx, "2", 0)
	require.NoError(t, err)
	assert.Equal(t, "narration/2/0.mp3", n.ObjectKey)
	_, err = store.Get(ctx, "1", 1)
	require.ErrorIs(t, err, models.ErrNotFound)
}
