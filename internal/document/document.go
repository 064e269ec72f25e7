// Package document renders the workflow into the plain-text export format.
package document

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rogers-f/phasebook/internal/domain"
)

// FileName is the fixed name of the exported document.
const FileName = "Software_Engineering_Workflow_Documentation.txt"

// TimestampLayout formats the "Generated on" line.
const TimestampLayout = "2006-01-02 15:04:05 MST"

const rule = "--------------------------------------------------\n"

// Render produces the export document for state. Output depends only on
// state and generatedAt.
func Render(state domain.WorkflowState, generatedAt time.Time) string {
	var b strings.Builder

	b.WriteString(state.Title + "\n\n")
	b.WriteString("Generated on: " + generatedAt.Format(TimestampLayout) + "\n\n")

	for _, p := range state.Phases {
		writePhase(&b, p)
	}

	b.WriteString(rule)
	b.WriteString("ADDITIONAL CONSIDERATIONS\n")
	b.WriteString(rule + "\n")
	for _, point := range state.Considerations.Points {
		b.WriteString("- " + point + "\n")
	}

	return b.String()
}

func writePhase(b *strings.Builder, p domain.Phase) {
	b.WriteString(rule)
	fmt.Fprintf(b, "PHASE: %s (Status: %s)\n", p.Title, p.Status)
	b.WriteString(rule + "\n")
	b.WriteString("Description: " + p.Description + "\n\n")

	if p.HasUserInput() {
		b.WriteString("User Input to AI:\n" + *p.UserInput + "\n\n")
	}
	if p.HasGeneratedOutput() {
		b.WriteString("AI Generated Output:\n" + *p.GeneratedOutput + "\n\n")
	}
	if !p.HasUserInput() && !p.HasGeneratedOutput() && p.Status != domain.StatusCompleted {
		b.WriteString("This phase has not been fully processed with AI.\n\n")
	}
	if p.Status == domain.StatusCompleted && !p.HasGeneratedOutput() {
		b.WriteString("This phase was marked completed without AI generation, or AI output was cleared.\n\n")
	}

	b.WriteString("Activities:\n")
	for _, a := range p.Activities {
		b.WriteString("  - " + a.Title + ": " + a.Details + "\n")
		if len(a.Deliverables) > 0 {
			b.WriteString("    Deliverables: " + strings.Join(a.Deliverables, ", ") + "\n")
		}
	}
	b.WriteString("\n\n")
}

// Export writes content to dir/FileName, replacing any previous export, and
// returns the written path.
func Export(dir, content string) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", domain.WrapEngineError(domain.ErrExportFailed.Code, "create export directory", err)
	}

	tmp, err := os.CreateTemp(dir, ".phasebook-export-*")
	if err != nil {
		return "", domain.WrapEngineError(domain.ErrExportFailed.Code, "create temp file", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return "", domain.WrapEngineError(domain.ErrExportFailed.Code, "write document", err)
	}
	if err := tmp.Close(); err != nil {
		return "", domain.WrapEngineError(domain.ErrExportFailed.Code, "close document", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return "", domain.WrapEngineError(domain.ErrExportFailed.Code, "chmod document", err)
	}

	path := filepath.Join(dir, FileName)
	if err := os.Rename(tmpName, path); err != nil {
		return "", domain.WrapEngineError(domain.ErrExportFailed.Code, "rename document", err)
	}
	return path, nil
}
