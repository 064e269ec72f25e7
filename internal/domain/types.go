// Package domain defines the core types for the phasebook workflow.
package domain

// Status is the completion status of a single phase.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// ActivityCategory breaks a requirements activity down by requirement type.
type ActivityCategory struct {
	Functional    string `json:"functional" yaml:"functional"`
	NonFunctional string `json:"nonFunctional" yaml:"nonFunctional"`
	Business      string `json:"business" yaml:"business"`
	User          string `json:"user" yaml:"user"`
}

// Activity is a catalog-defined unit of work within a phase. Activities are
// never mutated after the catalog is loaded.
type Activity struct {
	Title          string            `json:"title" yaml:"title"`
	Details        string            `json:"details" yaml:"details"`
	Origin         string            `json:"origin,omitempty" yaml:"origin,omitempty"`
	KeyQuestions   string            `json:"keyQuestions,omitempty" yaml:"keyQuestions,omitempty"`
	Considerations string            `json:"considerations,omitempty" yaml:"considerations,omitempty"`
	Examples       string            `json:"examples,omitempty" yaml:"examples,omitempty"`
	Techniques     string            `json:"techniques,omitempty" yaml:"techniques,omitempty"`
	Categories     *ActivityCategory `json:"categories,omitempty" yaml:"categories,omitempty"`
	Focus          string            `json:"focus,omitempty" yaml:"focus,omitempty"`
	Tools          string            `json:"tools,omitempty" yaml:"tools,omitempty"`
	Deliverables   []string          `json:"deliverables" yaml:"deliverables"`
}

// Phase is one stage of the workflow. Title, description and activities come
// from the catalog; status and the two content fields are owned by the state
// machine.
type Phase struct {
	ID              string     `json:"id" yaml:"id"`
	Title           string     `json:"title" yaml:"title"`
	Description     string     `json:"description" yaml:"description"`
	Activities      []Activity `json:"activities" yaml:"activities"`
	Status          Status     `json:"status" yaml:"status"`
	UserInput       *string    `json:"userInput" yaml:"-"`
	GeneratedOutput *string    `json:"generatedOutput" yaml:"-"`
}

// HasUserInput reports whether the phase holds non-empty user input.
func (p Phase) HasUserInput() bool {
	return p.UserInput != nil && *p.UserInput != ""
}

// HasGeneratedOutput reports whether the phase holds non-empty generated output.
func (p Phase) HasGeneratedOutput() bool {
	return p.GeneratedOutput != nil && *p.GeneratedOutput != ""
}

// Clone returns a copy of p that shares no mutable state with it.
// Activities are immutable and stay shared.
func (p Phase) Clone() Phase {
	c := p
	if p.UserInput != nil {
		v := *p.UserInput
		c.UserInput = &v
	}
	if p.GeneratedOutput != nil {
		v := *p.GeneratedOutput
		c.GeneratedOutput = &v
	}
	return c
}

// AdditionalConsiderations is the static closing section of the workflow.
type AdditionalConsiderations struct {
	Title  string   `json:"title" yaml:"title"`
	Points []string `json:"points" yaml:"points"`
}

// WorkflowState is the full ordered phase sequence plus the static title and
// considerations. Only Phases is persisted.
type WorkflowState struct {
	Title          string                   `json:"title"`
	Phases         []Phase                  `json:"phases"`
	Considerations AdditionalConsiderations `json:"considerations"`
}

// Clone deep-copies the phase sequence.
func (s WorkflowState) Clone() WorkflowState {
	c := s
	c.Phases = ClonePhases(s.Phases)
	return c
}

// ClonePhases deep-copies a phase sequence.
func ClonePhases(phases []Phase) []Phase {
	if phases == nil {
		return nil
	}
	out := make([]Phase, len(phases))
	for i, p := range phases {
		out[i] = p.Clone()
	}
	return out
}

// PromptContext is everything the generation provider is given for one call.
type PromptContext struct {
	PhaseTitle        string
	PhaseDescription  string
	ActivitiesSummary string
	UserInstruction   string
}

// WorkflowEvent is one entry of the append-only transition log.
type WorkflowEvent struct {
	Seq         int64  `json:"seq"`
	EventID     string `json:"event_id"`
	PhaseID     string `json:"phase_id"`
	EventType   string `json:"event_type"`
	PayloadJSON string `json:"payload_json"`
	CreatedAt   int64  `json:"created_at"`
}

// ExportRecord describes one document written to disk.
type ExportRecord struct {
	ExportID  string `json:"export_id"`
	FilePath  string `json:"file_path"`
	Checksum  string `json:"checksum"`
	SizeBytes int64  `json:"size_bytes"`
	CreatedAt int64  `json:"created_at"`
}

// Provider identifies a generation backend.
type Provider string

const (
	ProviderOpenAI   Provider = "openai"
	ProviderGoogleAI Provider = "googleai"
)
