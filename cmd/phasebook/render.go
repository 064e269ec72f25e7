package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/rogers-f/phasebook/internal/domain"
	"github.com/rogers-f/phasebook/internal/workflow"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	currentStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	statusStyles = map[domain.Status]lipgloss.Style{
		domain.StatusTodo:       lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		domain.StatusInProgress: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		domain.StatusCompleted:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	}
)

func statusLabel(s domain.Status) string {
	style, ok := statusStyles[s]
	if !ok {
		return string(s)
	}
	return style.Render(fmt.Sprintf("%-11s", s))
}

// printStatus writes the stepper view: one line per phase, current marked.
func printStatus(w io.Writer, snap workflow.Snapshot) {
	fmt.Fprintln(w, titleStyle.Render(snap.State.Title))
	fmt.Fprintln(w)
	for i, p := range snap.State.Phases {
		marker := "  "
		line := fmt.Sprintf("%d. %s", i+1, p.Title)
		if p.ID == snap.CurrentPhaseID {
			marker = "> "
			line = currentStyle.Render(line)
		}
		fmt.Fprintf(w, "%s%s %s %s\n", marker, statusLabel(p.Status), mutedStyle.Render(fmt.Sprintf("[%s]", p.ID)), line)
	}
	done, total := workflow.Progress(snap.State.Phases)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d/%d phases completed\n", done, total)
}

// printPhase writes one phase with its activities and captured content.
func printPhase(w io.Writer, p domain.Phase, current, raw bool) {
	header := p.Title
	if current {
		header += " (current)"
	}
	fmt.Fprintln(w, titleStyle.Render(header))
	fmt.Fprintf(w, "Status: %s\n\n", statusLabel(p.Status))
	fmt.Fprintln(w, p.Description)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Activities:")
	for _, a := range p.Activities {
		fmt.Fprintf(w, "  - %s: %s\n", a.Title, a.Details)
		if len(a.Deliverables) > 0 {
			fmt.Fprintf(w, "    Deliverables: %s\n", strings.Join(a.Deliverables, ", "))
		}
	}

	if p.HasUserInput() {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "User input:")
		fmt.Fprintln(w, *p.UserInput)
	}
	if p.HasGeneratedOutput() {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Generated output:")
		fmt.Fprintln(w, renderMarkdown(*p.GeneratedOutput, raw))
	}
}

// renderMarkdown renders generated text for the terminal. Rendering failures
// fall back to the raw text.
func renderMarkdown(md string, raw bool) string {
	if raw {
		return md
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}
