package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"learnstream/internal/progress"
)

// Difficulty is the content difficulty a learner asked for at onboarding.
type Difficulty string

const (
	DifficultySimplified Difficulty = "Simplified"
	DifficultyStandard   Difficulty = "Standard"
	DifficultyAdvanced   Difficulty = "Advanced"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultySimplified, DifficultyStandard, DifficultyAdvanced:
		return true
	}
	return false
}

// Age bounds accepted at onboarding, inclusive.
const (
	MinAge = 9
	MaxAge = 120
)

// User is a learner known to the application. SubjectID is the identity
// gateway's id and never changes once the row exists.
type User struct {
	ID                   uuid.UUID  `db:"id" json:"id"`
	SubjectID            string     `db:"subject_id" json:"subjectId"`
	Email                string     `db:"email" json:"email"`
	Age                  int        `db:"age" json:"age"`
	DifficultyPreference Difficulty `db:"difficulty_preference" json:"difficultyPreference"`
	CreatedAt            time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updatedAt"`
}

// Segment is one step of the I Do narrative.
type Segment struct {
	Type    string `json:"type" yaml:"type"`
	Content string `json:"content" yaml:"content"`
}

// Question is one item of the We Do exercise.
type Question struct {
	ID          string   `json:"id" yaml:"id"`
	Question    string   `json:"question" yaml:"question"`
	Type        string   `json:"type" yaml:"type"`
	Options     []string `json:"options,omitempty" yaml:"options,omitempty"`
	Explanation string   `json:"explanation" yaml:"explanation"`
}

// Exercise is the guided We Do activity.
type Exercise struct {
	Type        string     `json:"type" yaml:"type"`
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description" yaml:"description"`
	Questions   []Question `json:"questions" yaml:"questions"`
}

// Content is the structured payload of a module, stored as JSON.
type Content struct {
	IDoStory       []Segment `json:"i_do_story" yaml:"i_do_story"`
	WeDoExercise   Exercise  `json:"we_do_exercise" yaml:"we_do_exercise"`
	YouDoChallenge string    `json:"you_do_challenge" yaml:"you_do_challenge"`
}

func (c Content) Value() (driver.Value, error) {
	return json.Marshal(c)
}

func (c *Content) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	}
	return fmt.Errorf("cannot scan %T into models.Content", src)
}

// ContentModule is a static lesson. Rows are immutable once written.
type ContentModule struct {
	ID               string     `db:"id" json:"id" yaml:"id"`
	SourceExpert     string     `db:"source_expert" json:"sourceExpert" yaml:"source_expert"`
	TopicTitle       string     `db:"topic_title" json:"topicTitle" yaml:"topic_title"`
	Category         string     `db:"category" json:"category" yaml:"category"`
	Difficulty       Difficulty `db:"difficulty" json:"difficulty" yaml:"difficulty"`
	EstimatedMinutes int        `db:"estimated_minutes" json:"estimatedMinutes" yaml:"estimated_minutes"`
	Description      string     `db:"description" json:"description" yaml:"description"`
	Content          Content    `db:"content" json:"content" yaml:"content"`
	CreatedAt        time.Time  `db:"created_at" json:"createdAt" yaml:"-"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updatedAt" yaml:"-"`
}

// UserProgress is the single progress record of a user inside a module.
type UserProgress struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	UserID    uuid.UUID       `db:"user_id" json:"userId"`
	ModuleID  string          `db:"module_id" json:"moduleId"`
	Status    progress.Status `db:"status" json:"status"`
	Score     int             `db:"score" json:"score"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time       `db:"updated_at" json:"updatedAt"`
}

// State returns the part of the record the state machine works on.
func (p UserProgress) State() progress.State {
	return progress.State{Status: p.Status, Score: p.Score}
}

// ContentType is the kind of a You Do submission.
type ContentType string

const (
	ContentTypeVideo ContentType = "video"
	ContentTypeText  ContentType = "text"
)

func (t ContentType) Valid() bool {
	return t == ContentTypeVideo || t == ContentTypeText
}

// MaxLength is the longest submission accepted for the content type.
func (t ContentType) MaxLength() int {
	if t == ContentTypeVideo {
		return 500
	}
	return 1000
}

// MinCreationLength is the trimmed length a submission has to exceed.
const MinCreationLength = 50

// Creation is a stored You Do submission. The body lives in object storage
// under ObjectKey.
type Creation struct {
	ID            uuid.UUID   `db:"id" json:"id"`
	UserID        uuid.UUID   `db:"user_id" json:"userId"`
	ModuleID      string      `db:"module_id" json:"moduleId"`
	ContentType   ContentType `db:"content_type" json:"contentType"`
	ObjectKey     string      `db:"object_key" json:"objectKey"`
	ContentLength int         `db:"content_length" json:"contentLength"`
	CreatedAt     time.Time   `db:"created_at" json:"createdAt"`
}

// Narration points at generated audio for one I Do segment.
type Narration struct {
	ModuleID     string    `db:"module_id" json:"moduleId"`
	SegmentIndex int       `db:"segment_index" json:"segmentIndex"`
	ObjectKey    string    `db:"object_key" json:"objectKey"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

var (
	ErrNotFound     = errors.New("not found")
	ErrNotOnboarded = errors.New("user has not completed onboarding")
)
