// Package workflow implements the phasebook phase state machine.
//
// The machine owns status and captured content for every phase and the
// current-phase pointer. It performs no I/O and provides no locking: callers
// serialize access and react to changes through Subscribe.
package workflow

import (
	"fmt"
	"strings"

	"github.com/rogers-f/phasebook/internal/domain"
)

// validTransitions defines the legal status transitions.
// Each key is a source status, and the value is the set of valid targets.
// completed has no outgoing transitions.
var validTransitions = map[domain.Status]map[domain.Status]bool{
	domain.StatusTodo:       {domain.StatusInProgress: true, domain.StatusCompleted: true},
	domain.StatusInProgress: {domain.StatusCompleted: true},
}

// IsValidTransition checks if a status transition is legal.
func IsValidTransition(from, to domain.Status) bool {
	targets, ok := validTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

// Op names the operation that produced a Change.
type Op string

const (
	OpSelect  Op = "phase_selected"
	OpBegin   Op = "interaction_begun"
	OpRecord  Op = "content_recorded"
	OpHydrate Op = "hydrated"
)

// Snapshot is an immutable copy of the machine state.
type Snapshot struct {
	State          domain.WorkflowState `json:"state"`
	CurrentPhaseID string               `json:"current_phase_id"`
	Seq            uint64               `json:"seq"`
}

// Phase returns the phase with the given id from the snapshot.
func (s Snapshot) Phase(id string) (domain.Phase, bool) {
	for _, p := range s.State.Phases {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Phase{}, false
}

// Change describes one operation applied to the machine.
type Change struct {
	Op         Op
	PhaseID    string
	FromStatus domain.Status
	ToStatus   domain.Status
	Completed  bool
	Snapshot   Snapshot
}

// StatusChanged reports whether the operation moved the phase to a new status.
func (c Change) StatusChanged() bool {
	return c.FromStatus != c.ToStatus
}

// Listener receives every change after it has been applied.
type Listener func(Change)

// Machine is the phase state machine.
type Machine struct {
	state     domain.WorkflowState
	current   string
	seq       uint64
	listeners map[int]Listener
	order     []int
	nextID    int
}

// New creates a machine over a copy of state. The current phase starts at
// the first phase in catalog order.
func New(state domain.WorkflowState) *Machine {
	m := &Machine{
		state:     state.Clone(),
		listeners: make(map[int]Listener),
	}
	if len(m.state.Phases) > 0 {
		m.current = m.state.Phases[0].ID
	}
	return m
}

// Subscribe registers fn to be called synchronously after every operation,
// in subscription order. The returned function removes the listener.
func (m *Machine) Subscribe(fn Listener) (cancel func()) {
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.order = append(m.order, id)
	return func() {
		delete(m.listeners, id)
		for i, v := range m.order {
			if v == id {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
	}
}

// Snapshot returns an immutable copy of the current state.
func (m *Machine) Snapshot() Snapshot {
	return Snapshot{
		State:          m.state.Clone(),
		CurrentPhaseID: m.current,
		Seq:            m.seq,
	}
}

// Current returns the id of the focused phase.
func (m *Machine) Current() string {
	return m.current
}

// Phase returns a copy of the phase with the given id.
func (m *Machine) Phase(id string) (domain.Phase, error) {
	i, err := m.indexOf(id)
	if err != nil {
		return domain.Phase{}, err
	}
	return m.state.Phases[i].Clone(), nil
}

// SelectPhase moves focus to id. No status changes.
func (m *Machine) SelectPhase(id string) (Snapshot, error) {
	i, err := m.indexOf(id)
	if err != nil {
		return Snapshot{}, err
	}
	m.current = id
	st := m.state.Phases[i].Status
	return m.emit(Change{Op: OpSelect, PhaseID: id, FromStatus: st, ToStatus: st}), nil
}

// BeginInteraction focuses id and moves it from todo to in-progress.
// in-progress and completed phases keep their status.
func (m *Machine) BeginInteraction(id string) (Snapshot, error) {
	i, err := m.indexOf(id)
	if err != nil {
		return Snapshot{}, err
	}
	m.current = id
	p := &m.state.Phases[i]
	from := p.Status
	if p.Status == domain.StatusTodo {
		p.Status = domain.StatusInProgress
	}
	return m.emit(Change{Op: OpBegin, PhaseID: id, FromStatus: from, ToStatus: p.Status}), nil
}

// RecordContent overwrites the phase's user input and generated output.
// When markCompleted is set the phase becomes completed whatever its prior
// status, and focus auto-advances (see nextCurrent). Invalid UTF-8 is
// replaced with U+FFFD so the held text matches its JSON encoding.
func (m *Machine) RecordContent(id, userInput, generatedOutput string, markCompleted bool) (Snapshot, error) {
	i, err := m.indexOf(id)
	if err != nil {
		return Snapshot{}, err
	}
	userInput = strings.ToValidUTF8(userInput, "\uFFFD")
	generatedOutput = strings.ToValidUTF8(generatedOutput, "\uFFFD")
	p := &m.state.Phases[i]
	from := p.Status
	p.UserInput = &userInput
	p.GeneratedOutput = &generatedOutput
	if markCompleted {
		p.Status = domain.StatusCompleted
		m.current = nextCurrent(m.state.Phases, i)
	}
	return m.emit(Change{
		Op:         OpRecord,
		PhaseID:    id,
		FromStatus: from,
		ToStatus:   p.Status,
		Completed:  markCompleted,
	}), nil
}

// Restore sets the focus without emitting a change. It is used once after
// hydration; an unknown id leaves focus unchanged.
func (m *Machine) Restore(current string) bool {
	if _, err := m.indexOf(current); err != nil {
		return false
	}
	m.current = current
	return true
}

func (m *Machine) indexOf(id string) (int, error) {
	for i, p := range m.state.Phases {
		if p.ID == id {
			return i, nil
		}
	}
	return -1, domain.NewEngineError(
		domain.ErrPhaseNotFound.Code,
		fmt.Sprintf("%s: %q", domain.ErrPhaseNotFound.Message, id),
	)
}

func (m *Machine) emit(c Change) Snapshot {
	m.seq++
	c.Snapshot = m.Snapshot()
	for _, id := range append([]int(nil), m.order...) {
		if fn, ok := m.listeners[id]; ok {
			fn(c)
		}
	}
	return c.Snapshot
}
