// Package catalog exposes the built-in sample lessons. Modules are read from
// an embedded YAML document and copied into the database the first time a
// learner opens them.
package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"learnstream/internal/models"
)

//go:embed modules.yaml
var defaultModules []byte

// AllCategories matches every module when used as a category filter.
const AllCategories = "All"

// Catalog is an ordered, read-only set of content modules.
type Catalog struct {
	modules []models.ContentModule
	byID    map[string]int
}

type document struct {
	Modules []models.ContentModule `yaml:"modules"`
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Parse(bytes.NewReader(defaultModules))
}

// Parse reads a catalog document.
func Parse(r io.Reader) (*Catalog, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	c := &Catalog{byID: make(map[string]int, len(doc.Modules))}
	for i, m := range doc.Modules {
		if err := validate(m); err != nil {
			return nil, fmt.Errorf("module #%d: %w", i+1, err)
		}
		if _, dup := c.byID[m.ID]; dup {
			return nil, fmt.Errorf("duplicate module id %q", m.ID)
		}
		c.byID[m.ID] = len(c.modules)
		c.modules = append(c.modules, m)
	}
	return c, nil
}

func validate(m models.ContentModule) error {
	switch {
	case m.ID == "":
		return fmt.Errorf("missing id")
	case m.TopicTitle == "":
		return fmt.Errorf("module %q: missing topic title", m.ID)
	case !m.Difficulty.Valid():
		return fmt.Errorf("module %q: invalid difficulty %q", m.ID, m.Difficulty)
	case len(m.Content.IDoStory) == 0:
		return fmt.Errorf("module %q: empty story", m.ID)
	case len(m.Content.WeDoExercise.Questions) == 0:
		return fmt.Errorf("module %q: exercise has no questions", m.ID)
	case strings.TrimSpace(m.Content.YouDoChallenge) == "":
		return fmt.Errorf("module %q: missing challenge", m.ID)
	}
	return nil
}

// Get returns the module with the given id.
func (c *Catalog) Get(id string) (models.ContentModule, bool) {
	i, ok := c.byID[id]
	if !ok {
		return models.ContentModule{}, false
	}
	return c.modules[i], true
}

// List returns every module in catalog order.
func (c *Catalog) List() []models.ContentModule {
	out := make([]models.ContentModule, len(c.modules))
	copy(out, c.modules)
	return out
}

// Categories returns the distinct categories in first-seen order, prefixed
// with AllCategories.
func (c *Catalog) Categories() []string {
	seen := map[string]bool{}
	out := []string{AllCategories}
	for _, m := range c.modules {
		if !seen[m.Category] {
			seen[m.Category] = true
			out = append(out, m.Category)
		}
	}
	return out
}
