package workflow

import (
	"fmt"

	"github.com/rogers-f/phasebook/internal/domain"
)

// GateDecision is the result of evaluating a completion gate.
type GateDecision struct {
	Allow    bool
	Blockers []string
}

// Gate evaluates whether a phase may be marked completed from the
// interaction surface. RecordContent itself is never gated.
type Gate interface {
	Name() string
	Evaluate(phase domain.Phase) GateDecision
}

// ContentGate allows completion only once the phase holds user input or
// generated output.
type ContentGate struct{}

// Name returns the gate name.
func (ContentGate) Name() string {
	return "content"
}

// Evaluate checks that the phase has something to complete with.
func (ContentGate) Evaluate(phase domain.Phase) GateDecision {
	if phase.HasUserInput() || phase.HasGeneratedOutput() {
		return GateDecision{Allow: true}
	}
	return GateDecision{
		Allow:    false,
		Blockers: []string{fmt.Sprintf("phase %s has neither user input nor generated output", phase.ID)},
	}
}

// CompletionGates maps phase ids to gates, falling back to a default gate.
type CompletionGates struct {
	fallback Gate
	gates    map[string]Gate
}

// NewCompletionGates creates a registry that applies ContentGate to every phase.
func NewCompletionGates() *CompletionGates {
	return &CompletionGates{
		fallback: ContentGate{},
		gates:    make(map[string]Gate),
	}
}

// Register sets a custom gate for one phase.
func (r *CompletionGates) Register(phaseID string, gate Gate) {
	r.gates[phaseID] = gate
}

// Get returns the gate for a phase.
func (r *CompletionGates) Get(phaseID string) Gate {
	if g, ok := r.gates[phaseID]; ok {
		return g
	}
	return r.fallback
}

// Check evaluates the phase's gate and converts a block into
// ErrCompletionGateFailed.
func (r *CompletionGates) Check(phase domain.Phase) error {
	decision := r.Get(phase.ID).Evaluate(phase)
	if decision.Allow {
		return nil
	}
	return domain.NewEngineError(
		domain.ErrCompletionGateFailed.Code,
		fmt.Sprintf("gate blocked completion: %v", decision.Blockers),
	)
}
