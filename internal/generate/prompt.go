package generate

import (
	"strings"
	"text/template"

	"github.com/rogers-f/phasebook/internal/domain"
)

var promptTmpl = template.Must(template.New("phase").Parse(`You are an expert AI assistant for software engineering project planning and documentation.
You are currently helping to "execute" the following phase:

Phase Title: {{.PhaseTitle}}
Phase Description: {{.PhaseDescription}}
Key Activities & Deliverables for this phase:
{{.ActivitiesSummary}}
-------------------

The user wants to work on this phase and has provided the following input/request:
"{{.UserInstruction}}"

Based on the user's input and the context of this phase, please generate a comprehensive and actionable response.
This could involve:
- Drafting specific deliverables (e.g., user stories, architectural diagrams descriptions, API endpoint definitions).
- Answering questions related to the phase's activities.
- Elaborating on specific requirements or design choices.
- Identifying potential risks or considerations for this phase.
- Providing detailed explanations or examples relevant to the phase.

Aim to produce content that would directly contribute to completing this phase of the software project.
Be thorough, clear, and practical. If the user's input is a question, answer it fully. If it's a request for generation, fulfill it.
`))

// SummarizeActivities lists each activity with its deliverables, separated by
// blank lines.
func SummarizeActivities(activities []domain.Activity) string {
	parts := make([]string, len(activities))
	for i, a := range activities {
		parts[i] = "- " + a.Title + ": " + a.Details + "\n  Deliverables: " + strings.Join(a.Deliverables, ", ")
	}
	return strings.Join(parts, "\n\n")
}

// NewContext builds the prompt context for one generation on phase.
func NewContext(phase domain.Phase, instruction string) domain.PromptContext {
	return domain.PromptContext{
		PhaseTitle:        phase.Title,
		PhaseDescription:  phase.Description,
		ActivitiesSummary: SummarizeActivities(phase.Activities),
		UserInstruction:   instruction,
	}
}

// BuildPrompt renders the provider prompt for pc.
func BuildPrompt(pc domain.PromptContext) (string, error) {
	var b strings.Builder
	if err := promptTmpl.Execute(&b, pc); err != nil {
		return "", err
	}
	return b.String(), nil
}
