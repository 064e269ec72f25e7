// Package catalog provides the fixed, ordered phase catalog that seeds a
// fresh workflow.
package catalog

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/rogers-f/phasebook/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// Catalog is the parsed static workflow definition.
type Catalog struct {
	Title          string                          `yaml:"title"`
	Phases         []domain.Phase                  `yaml:"phases"`
	Considerations domain.AdditionalConsiderations `yaml:"considerations"`
}

var (
	loadOnce sync.Once
	builtin  *Catalog
)

// Parse decodes a catalog document and validates it. Every phase is reset to
// todo with no captured content, whatever the document says.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, domain.WrapEngineError(domain.ErrCatalogInvalid.Code, "parse catalog", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	for i := range c.Phases {
		c.Phases[i].Status = domain.StatusTodo
		c.Phases[i].UserInput = nil
		c.Phases[i].GeneratedOutput = nil
		for j := range c.Phases[i].Activities {
			if c.Phases[i].Activities[j].Deliverables == nil {
				c.Phases[i].Activities[j].Deliverables = []string{}
			}
		}
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	var problems []string
	if len(c.Phases) == 0 {
		problems = append(problems, "catalog has no phases")
	}
	seen := make(map[string]bool, len(c.Phases))
	for i, p := range c.Phases {
		switch {
		case p.ID == "":
			problems = append(problems, fmt.Sprintf("phase %d: id is required", i))
		case seen[p.ID]:
			problems = append(problems, fmt.Sprintf("phase %d: duplicate id %q", i, p.ID))
		}
		seen[p.ID] = true
		if len(p.Activities) == 0 {
			problems = append(problems, fmt.Sprintf("phase %q: at least one activity is required", p.ID))
		}
	}
	if len(problems) > 0 {
		return domain.NewEngineError(
			domain.ErrCatalogInvalid.Code,
			fmt.Sprintf("%s: %v", domain.ErrCatalogInvalid.Message, problems),
		)
	}
	return nil
}

func load() *Catalog {
	loadOnce.Do(func() {
		c, err := Parse(defaultCatalogYAML)
		if err != nil {
			// The catalog is compiled in; a bad one is a build defect.
			panic(err)
		}
		builtin = c
	})
	return builtin
}

// DefaultCatalog returns the ordered default phases, each todo with no
// captured content. The result is a fresh copy on every call.
func DefaultCatalog() []domain.Phase {
	return domain.ClonePhases(load().Phases)
}

// DefaultState returns a fresh workflow state built from the default catalog.
func DefaultState() domain.WorkflowState {
	c := load()
	return domain.WorkflowState{
		Title:          c.Title,
		Phases:         domain.ClonePhases(c.Phases),
		Considerations: Considerations(),
	}
}

// Title returns the workflow title.
func Title() string {
	return load().Title
}

// Considerations returns a copy of the additional considerations block.
func Considerations() domain.AdditionalConsiderations {
	c := load().Considerations
	points := make([]string, len(c.Points))
	copy(points, c.Points)
	return domain.AdditionalConsiderations{Title: c.Title, Points: points}
}

// WithPhases combines persisted phases with the static catalog title and
// considerations.
func WithPhases(phases []domain.Phase) domain.WorkflowState {
	return domain.WorkflowState{
		Title:          Title(),
		Phases:         domain.ClonePhases(phases),
		Considerations: Considerations(),
	}
}
