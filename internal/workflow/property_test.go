package workflow

import (
	"fmt"
	"testing"

	"github.com/rogers-f/phasebook/internal/domain"
	"pgregory.net/rapid"
)

var allStatuses = []domain.Status{domain.StatusTodo, domain.StatusInProgress, domain.StatusCompleted}

func drawState(t *rapid.T) domain.WorkflowState {
	n := rapid.IntRange(1, 8).Draw(t, "numPhases")
	phases := make([]domain.Phase, n)
	for i := range phases {
		phases[i] = domain.Phase{
			ID:         fmt.Sprintf("p%d", i),
			Status:     rapid.SampledFrom(allStatuses).Draw(t, fmt.Sprintf("status-%d", i)),
			Activities: []domain.Activity{{Title: "a", Deliverables: []string{}}},
		}
	}
	return domain.WorkflowState{Phases: phases}
}

// TestProperty_CompletedNeverReverts drives random operation sequences and
// checks that every emitted change is either a no-op or a legal transition.
func TestProperty_CompletedNeverReverts(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		st := drawState(t)
		m := New(st)

		m.Subscribe(func(c Change) {
			if c.StatusChanged() && !IsValidTransition(c.FromStatus, c.ToStatus) {
				t.Fatalf("illegal transition %s -> %s on %s via %s", c.FromStatus, c.ToStatus, c.PhaseID, c.Op)
			}
			if c.FromStatus == domain.StatusCompleted && c.ToStatus != domain.StatusCompleted {
				t.Fatalf("completed phase %s reverted to %s", c.PhaseID, c.ToStatus)
			}
		})

		steps := rapid.IntRange(1, 30).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			idx := rapid.IntRange(0, len(st.Phases)-1).Draw(t, fmt.Sprintf("phase-%d", i))
			id := st.Phases[idx].ID
			switch rapid.IntRange(0, 2).Draw(t, fmt.Sprintf("op-%d", i)) {
			case 0:
				m.SelectPhase(id)
			case 1:
				m.BeginInteraction(id)
			case 2:
				complete := rapid.Bool().Draw(t, fmt.Sprintf("complete-%d", i))
				snap, _ := m.RecordContent(id, "in", "out", complete)
				p, _ := snap.Phase(id)
				if complete && p.Status != domain.StatusCompleted {
					t.Fatalf("RecordContent(markCompleted) left %s in %s", id, p.Status)
				}
			}
		}
	})
}

// TestProperty_AutoAdvanceTarget checks the focus chosen after a completion
// against an independent statement of the policy.
func TestProperty_AutoAdvanceTarget(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		st := drawState(t)
		m := New(st)
		idx := rapid.IntRange(0, len(st.Phases)-1).Draw(t, "completeIdx")

		snap, err := m.RecordContent(st.Phases[idx].ID, "", "", true)
		if err != nil {
			t.Fatalf("RecordContent: %v", err)
		}
		phases := snap.State.Phases

		var later, incomplete string
		for i, p := range phases {
			if i > idx && later == "" && p.Status == domain.StatusTodo {
				later = p.ID
			}
			if incomplete == "" && p.Status != domain.StatusCompleted {
				incomplete = p.ID
			}
		}

		want := phases[idx].ID
		switch {
		case later != "":
			want = later
		case incomplete != "":
			want = incomplete
		}
		if snap.CurrentPhaseID != want {
			t.Fatalf("current = %s, want %s (statuses %v)", snap.CurrentPhaseID, want, statuses(phases))
		}
	})
}

func statuses(phases []domain.Phase) []domain.Status {
	out := make([]domain.Status, len(phases))
	for i, p := range phases {
		out[i] = p.Status
	}
	return out
}
