package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"learnstream/internal/catalog"
	"learnstream/internal/logger"
	"learnstream/internal/models"
	"learnstream/internal/progress"
	"learnstream/internal/storage"
)

// Catalog is the read-only set of modules the feed offers.
type Catalog interface {
	Get(id string) (models.ContentModule, bool)
	List() []models.ContentModule
	Categories() []string
}

// LearningDeps groups the collaborators of LearningService.
type LearningDeps struct {
	Users      models.UserStore
	Modules    models.ModuleStore
	Progress   models.ProgressStore
	Creations  models.CreationStore
	Narrations models.NarrationStore
	Objects    models.ObjectStorage
	Catalog    Catalog
	Log        *logger.Logger
}

type LearningService struct {
	users      models.UserStore
	modules    models.ModuleStore
	progress   models.ProgressStore
	creations  models.CreationStore
	narrations models.NarrationStore
	objects    models.ObjectStorage
	catalog    Catalog
	log        *logger.Logger
}

func NewLearningService(d LearningDeps) *LearningService {
	return &LearningService{
		users:      d.Users,
		modules:    d.Modules,
		progress:   d.Progress,
		creations:  d.Creations,
		narrations: d.Narrations,
		objects:    d.Objects,
		catalog:    d.Catalog,
		log:        d.Log,
	}
}

// ProgressView is a progress record together with its projections.
type ProgressView struct {
	ModuleID     string               `json:"moduleId"`
	Status       progress.Status      `json:"status"`
	Score        int                  `json:"score"`
	Percent      int                  `json:"percent"`
	CurrentPhase progress.Phase       `json:"currentPhase"`
	Phases       []progress.PhaseView `json:"phases"`
	Changed      bool                 `json:"changed"`
	UpdatedAt    time.Time            `json:"updatedAt"`
}

func newProgressView(p models.UserProgress, changed bool) ProgressView {
	return ProgressView{
		ModuleID:     p.ModuleID,
		Status:       p.Status,
		Score:        p.Score,
		Percent:      progress.OverallPercent(p.Status),
		CurrentPhase: progress.CurrentPhase(p.Status),
		Phases:       progress.Views(p.Status),
		Changed:      changed,
		UpdatedAt:    p.UpdatedAt,
	}
}

// ModuleView is everything the lesson page needs for one module.
type ModuleView struct {
	Module     models.ContentModule `json:"module"`
	Progress   ProgressView         `json:"progress"`
	Narrations []int                `json:"narrations"`
	// Creations are the learner's earlier You Do submissions, newest first.
	Creations []models.Creation `json:"creations"`
}

// OpenModule loads a module for subject, writing the module row and a
// started progress record the first time.
func (s *LearningService) OpenModule(ctx context.Context, subject, moduleID string) (ModuleView, error) {
	user, err := s.user(ctx, subject)
	if err != nil {
		return ModuleView{}, err
	}
	module, err := s.materialize(ctx, moduleID)
	if err != nil {
		return ModuleView{}, err
	}

	rec, err := s.progress.GetOrCreate(ctx, user.ID, module.ID)
	if err != nil {
		return ModuleView{}, fmt.Errorf("failed to load progress: %w", err)
	}

	narrations, err := s.narrations.ListByModule(ctx, module.ID)
	if err != nil {
		return ModuleView{}, fmt.Errorf("failed to list narrations: %w", err)
	}
	segments := make([]int, 0, len(narrations))
	for _, n := range narrations {
		segments = append(segments, n.SegmentIndex)
	}

	creations, err := s.creations.ListByUserModule(ctx, user.ID, module.ID)
	if err != nil {
		return ModuleView{}, fmt.Errorf("failed to list creations: %w", err)
	}

	return ModuleView{
		Module:     module,
		Progress:   newProgressView(rec, false),
		Narrations: segments,
		Creations:  creations,
	}, nil
}

// CompletePhaseRequest marks a phase of a module as done.
type CompletePhaseRequest struct {
	ModuleID string `json:"moduleId"`
	Phase    string `json:"phase"`
	Score    *int   `json:"score,omitempty"`
}

// CompletePhase advances subject's progress in a module. Completing a phase
// that is already done changes nothing; completing one whose predecessor is
// not done fails with progress.ErrPhaseUnavailable.
func (s *LearningService) CompletePhase(ctx context.Context, subject string, req CompletePhaseRequest) (ProgressView, error) {
	if strings.TrimSpace(req.ModuleID) == "" {
		return ProgressView{}, invalid("moduleId", "Module ID is required")
	}
	phase, err := progress.ParsePhase(req.Phase)
	if err != nil {
		return ProgressView{}, invalid("phase", "Invalid phase %q", req.Phase)
	}
	score := 0
	if req.Score != nil {
		score = *req.Score
	}
	if err := progress.CheckScore(phase, score); err != nil {
		return ProgressView{}, invalid("score", "%s", err.Error())
	}

	user, err := s.user(ctx, subject)
	if err != nil {
		return ProgressView{}, err
	}
	module, err := s.materialize(ctx, req.ModuleID)
	if err != nil {
		return ProgressView{}, err
	}
	rec, err := s.progress.GetOrCreate(ctx, user.ID, module.ID)
	if err != nil {
		return ProgressView{}, fmt.Errorf("failed to load progress: %w", err)
	}

	// One re-read after a lost race; the second loser gives up.
	for attempt := 0; attempt < 2; attempt++ {
		next, changed, err := progress.Complete(rec.State(), phase, score)
		if err != nil {
			return ProgressView{}, err
		}
		if !changed {
			return newProgressView(rec, false), nil
		}

		saved, ok, err := s.progress.CompareAndSet(ctx, user.ID, module.ID, rec.Status, next)
		if err != nil {
			return ProgressView{}, fmt.Errorf("failed to update progress: %w", err)
		}
		if ok {
			s.log.Info("phase completed", "user_id", user.ID, "module_id", module.ID, "phase", phase, "status", saved.Status, "score", saved.Score)
			return newProgressView(saved, true), nil
		}

		s.log.Debug("progress changed concurrently, re-reading", "user_id", user.ID, "module_id", module.ID)
		if rec, err = s.progress.Get(ctx, user.ID, module.ID); err != nil {
			return ProgressView{}, fmt.Errorf("failed to reload progress: %w", err)
		}
	}
	return ProgressView{}, ErrConcurrentUpdate
}

// FeedItem is one card of the knowledge stream.
type FeedItem struct {
	ID               string            `json:"id"`
	Title            string            `json:"title"`
	SourceExpert     string            `json:"sourceExpert"`
	Category         string            `json:"category"`
	Difficulty       models.Difficulty `json:"difficulty"`
	EstimatedMinutes int               `json:"estimatedMinutes"`
	Description      string            `json:"description"`
	Status           *progress.Status  `json:"status,omitempty"`
	Score            int               `json:"score"`
	Percent          int               `json:"percent"`
	CallToAction     string            `json:"callToAction"`
}

// FeedStats summarizes progress over the whole catalog.
type FeedStats struct {
	TotalModules     int `json:"totalModules"`
	CompletedModules int `json:"completedModules"`
	CompletedPercent int `json:"completedPercent"`
	TotalScore       int `json:"totalScore"`
}

// FeedView is the home page payload.
type FeedView struct {
	User       models.User `json:"user"`
	Categories []string    `json:"categories"`
	Items      []FeedItem  `json:"items"`
	Stats      FeedStats   `json:"stats"`
}

// Feed lists catalog modules matching query and category, decorated with
// subject's progress. Stats always cover the whole catalog.
func (s *LearningService) Feed(ctx context.Context, subject, query, category string) (FeedView, error) {
	user, err := s.user(ctx, subject)
	if err != nil {
		return FeedView{}, err
	}
	records, err := s.progress.ListByUser(ctx, user.ID)
	if err != nil {
		return FeedView{}, fmt.Errorf("failed to list progress: %w", err)
	}
	byModule := make(map[string]progress.State, len(records))
	for _, r := range records {
		byModule[r.ModuleID] = r.State()
	}

	query = strings.ToLower(strings.TrimSpace(query))
	view := FeedView{User: user, Categories: s.catalog.Categories(), Items: []FeedItem{}}
	for _, m := range s.catalog.List() {
		var st *progress.State
		if state, ok := byModule[m.ID]; ok {
			st = &state
		}

		view.Stats.TotalModules++
		if st != nil {
			view.Stats.TotalScore += st.Score
			if st.Status.Terminal() {
				view.Stats.CompletedModules++
			}
		}

		if !matches(m, query, category) {
			continue
		}
		item := FeedItem{
			ID:               m.ID,
			Title:            m.TopicTitle,
			SourceExpert:     m.SourceExpert,
			Category:         m.Category,
			Difficulty:       m.Difficulty,
			EstimatedMinutes: m.EstimatedMinutes,
			Description:      m.Description,
			CallToAction:     progress.CallToAction(st),
		}
		if st != nil {
			status := st.Status
			item.Status = &status
			item.Score = st.Score
			item.Percent = progress.CardPercent(st.Status)
		}
		view.Items = append(view.Items, item)
	}
	if view.Stats.TotalModules > 0 {
		view.Stats.CompletedPercent = int(math.Round(float64(view.Stats.CompletedModules) / float64(view.Stats.TotalModules) * 100))
	}
	return view, nil
}

func matches(m models.ContentModule, query, category string) bool {
	if category != "" && category != catalog.AllCategories && m.Category != category {
		return false
	}
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(m.TopicTitle), query) ||
		strings.Contains(strings.ToLower(m.SourceExpert), query)
}

// CreationRequest is a You Do submission.
type CreationRequest struct {
	ModuleID    string             `json:"moduleId"`
	ContentType models.ContentType `json:"contentType"`
	Content     string             `json:"content"`
}

// CreationResult is the stored submission and the score it earns.
type CreationResult struct {
	Creation       models.Creation `json:"creation"`
	SuggestedScore int             `json:"suggestedScore"`
}

// SubmitCreation stores a You Do submission for subject. The body goes to
// object storage under a content key and a row records where. Resubmitting
// identical text reuses the stored object.
func (s *LearningService) SubmitCreation(ctx context.Context, subject string, req CreationRequest) (CreationResult, error) {
	if !req.ContentType.Valid() {
		return CreationResult{}, invalid("contentType", "Content type must be video or text")
	}
	content := strings.TrimSpace(req.Content)
	length := utf8.RuneCountInString(content)
	if length <= models.MinCreationLength {
		return CreationResult{}, invalid("content", "Content must be more than %d characters", models.MinCreationLength)
	}
	if limit := req.ContentType.MaxLength(); length > limit {
		return CreationResult{}, invalid("content", "Content must be at most %d characters", limit)
	}

	user, err := s.user(ctx, subject)
	if err != nil {
		return CreationResult{}, err
	}
	module, err := s.materialize(ctx, req.ModuleID)
	if err != nil {
		return CreationResult{}, err
	}

	body := []byte(content)
	key := storage.ContentKey(fmt.Sprintf("creations/%s/%s", user.ID, module.ID), body, ".txt")
	stored, err := s.objects.Exists(ctx, key)
	if err != nil {
		return CreationResult{}, fmt.Errorf("failed to look up creation: %w", err)
	}
	if !stored {
		if err := s.objects.Upload(ctx, key, bytes.NewReader(body), int64(len(body)), "text/plain; charset=utf-8"); err != nil {
			return CreationResult{}, fmt.Errorf("failed to store creation: %w", err)
		}
	}

	saved, err := s.creations.Create(ctx, models.Creation{
		ID:            uuid.New(),
		UserID:        user.ID,
		ModuleID:      module.ID,
		ContentType:   req.ContentType,
		ObjectKey:     key,
		ContentLength: length,
	})
	if err != nil {
		// An object that was there before belongs to an earlier row.
		if !stored {
			if rmErr := s.objects.Remove(ctx, key); rmErr != nil {
				s.log.Warn("failed to remove orphaned creation", "key", key, "error", rmErr)
			}
		}
		return CreationResult{}, fmt.Errorf("failed to record creation: %w", err)
	}
	s.log.Info("creation submitted", "user_id", user.ID, "module_id", module.ID, "content_type", req.ContentType, "length", length)

	return CreationResult{Creation: saved, SuggestedScore: progress.YouDoScore(length)}, nil
}

// Narration opens the generated audio for one I Do segment. A row whose
// object is gone reports models.ErrNotFound. The caller closes the object.
func (s *LearningService) Narration(ctx context.Context, moduleID string, segment int) (*models.Object, error) {
	if _, ok := s.catalog.Get(moduleID); !ok {
		return nil, fmt.Errorf("module %q: %w", moduleID, models.ErrNotFound)
	}
	n, err := s.narrations.Get(ctx, moduleID, segment)
	if err != nil {
		return nil, fmt.Errorf("failed to find narration: %w", err)
	}
	obj, err := s.objects.Open(ctx, n.ObjectKey)
	if err != nil {
		return nil, fmt.Errorf("failed to open narration: %w", err)
	}
	return obj, nil
}

func (s *LearningService) user(ctx context.Context, subject string) (models.User, error) {
	u, err := s.users.GetBySubject(ctx, subject)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.User{}, models.ErrNotOnboarded
		}
		return models.User{}, fmt.Errorf("failed to load user: %w", err)
	}
	return u, nil
}

// materialize returns the stored row for a catalog module, writing it first
// if needed.
func (s *LearningService) materialize(ctx context.Context, moduleID string) (models.ContentModule, error) {
	m, ok := s.catalog.Get(moduleID)
	if !ok {
		return models.ContentModule{}, fmt.Errorf("module %q: %w", moduleID, models.ErrNotFound)
	}
	stored, err := s.modules.Ensure(ctx, m)
	if err != nil {
		return models.ContentModule{}, fmt.Errorf("failed to materialize module: %w", err)
	}
	return stored, nil
}
