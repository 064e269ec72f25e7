package workflow

import (
	"errors"
	"fmt"
	"testing"

	"github.com/rogers-f/phasebook/internal/catalog"
	"github.com/rogers-f/phasebook/internal/domain"
)

// threePhaseState builds [A, B, C] with the given statuses.
func threePhaseState(statuses ...domain.Status) domain.WorkflowState {
	ids := []string{"A", "B", "C"}
	var phases []domain.Phase
	for i, st := range statuses {
		phases = append(phases, domain.Phase{
			ID:         ids[i],
			Title:      "Phase " + ids[i],
			Status:     st,
			Activities: []domain.Activity{{Title: "work", Deliverables: []string{}}},
		})
	}
	return domain.WorkflowState{Title: "test", Phases: phases}
}

func statusOf(t *testing.T, s Snapshot, id string) domain.Status {
	t.Helper()
	p, ok := s.Phase(id)
	if !ok {
		t.Fatalf("phase %s missing from snapshot", id)
	}
	return p.Status
}

func TestNew_FocusesFirstPhase(t *testing.T) {
	m := New(catalog.DefaultState())
	if m.Current() != "fase1" {
		t.Errorf("Current = %q, want fase1", m.Current())
	}
}

func TestNew_CopiesInput(t *testing.T) {
	st := threePhaseState(domain.StatusTodo, domain.StatusTodo, domain.StatusTodo)
	m := New(st)
	st.Phases[0].Status = domain.StatusCompleted

	if got := statusOf(t, m.Snapshot(), "A"); got != domain.StatusTodo {
		t.Errorf("machine state changed through caller's slice: %s", got)
	}
}

func TestSelectPhase(t *testing.T) {
	m := New(threePhaseState(domain.StatusTodo, domain.StatusTodo, domain.StatusTodo))

	snap, err := m.SelectPhase("C")
	if err != nil {
		t.Fatalf("SelectPhase: %v", err)
	}
	if snap.CurrentPhaseID != "C" {
		t.Errorf("CurrentPhaseID = %q, want C", snap.CurrentPhaseID)
	}
	for _, id := range []string{"A", "B", "C"} {
		if got := statusOf(t, snap, id); got != domain.StatusTodo {
			t.Errorf("phase %s status = %s after select, want todo", id, got)
		}
	}
}

func TestUnknownPhase_NotFound(t *testing.T) {
	m := New(threePhaseState(domain.StatusTodo, domain.StatusTodo, domain.StatusTodo))

	ops := map[string]func() error{
		"select": func() error { _, err := m.SelectPhase("Z"); return err },
		"begin":  func() error { _, err := m.BeginInteraction("Z"); return err },
		"record": func() error { _, err := m.RecordContent("Z", "in", "out", true); return err },
		"phase":  func() error { _, err := m.Phase("Z"); return err },
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			err := op()
			if !errors.Is(err, domain.ErrPhaseNotFound) {
				t.Errorf("expected ErrPhaseNotFound, got %v", err)
			}
		})
	}
	if m.Current() != "A" {
		t.Errorf("failed operation moved focus to %q", m.Current())
	}
}

func TestBeginInteraction(t *testing.T) {
	tests := []struct {
		from domain.Status
		want domain.Status
	}{
		{domain.StatusTodo, domain.StatusInProgress},
		{domain.StatusInProgress, domain.StatusInProgress},
		{domain.StatusCompleted, domain.StatusCompleted},
	}
	for _, tt := range tests {
		t.Run(string(tt.from), func(t *testing.T) {
			m := New(threePhaseState(domain.StatusTodo, tt.from, domain.StatusTodo))
			snap, err := m.BeginInteraction("B")
			if err != nil {
				t.Fatalf("BeginInteraction: %v", err)
			}
			if got := statusOf(t, snap, "B"); got != tt.want {
				t.Errorf("status = %s, want %s", got, tt.want)
			}
			if snap.CurrentPhaseID != "B" {
				t.Errorf("CurrentPhaseID = %q, want B", snap.CurrentPhaseID)
			}

			again, _ := m.BeginInteraction("B")
			if got := statusOf(t, again, "B"); got != tt.want {
				t.Errorf("second BeginInteraction changed status to %s", got)
			}
		})
	}
}

func TestRecordContent_WithoutCompletion(t *testing.T) {
	m := New(threePhaseState(domain.StatusInProgress, domain.StatusTodo, domain.StatusTodo))

	snap, err := m.RecordContent("A", "question", "answer", false)
	if err != nil {
		t.Fatalf("RecordContent: %v", err)
	}
	p, _ := snap.Phase("A")
	if p.Status != domain.StatusInProgress {
		t.Errorf("status = %s, want in-progress", p.Status)
	}
	if *p.UserInput != "question" || *p.GeneratedOutput != "answer" {
		t.Errorf("content = %q/%q", *p.UserInput, *p.GeneratedOutput)
	}
	if snap.CurrentPhaseID != "A" {
		t.Errorf("focus moved to %q without completion", snap.CurrentPhaseID)
	}
}

func TestRecordContent_LastWriteWins(t *testing.T) {
	m := New(threePhaseState(domain.StatusTodo, domain.StatusTodo, domain.StatusTodo))

	m.RecordContent("A", "first", "one", false)
	snap, _ := m.RecordContent("A", "second", "", false)

	p, _ := snap.Phase("A")
	if *p.UserInput != "second" {
		t.Errorf("UserInput = %q, want second", *p.UserInput)
	}
	if *p.GeneratedOutput != "" {
		t.Errorf("GeneratedOutput = %q, want empty", *p.GeneratedOutput)
	}
}

func TestRecordContent_CompletionForcesStatus(t *testing.T) {
	for _, from := range []domain.Status{domain.StatusTodo, domain.StatusInProgress, domain.StatusCompleted} {
		t.Run(string(from), func(t *testing.T) {
			m := New(threePhaseState(from, domain.StatusTodo, domain.StatusTodo))
			snap, err := m.RecordContent("A", "", "", true)
			if err != nil {
				t.Fatalf("RecordContent: %v", err)
			}
			if got := statusOf(t, snap, "A"); got != domain.StatusCompleted {
				t.Errorf("status = %s, want completed", got)
			}
		})
	}
}

func TestAutoAdvance_SequentialCompletion(t *testing.T) {
	m := New(threePhaseState(domain.StatusTodo, domain.StatusTodo, domain.StatusTodo))

	steps := []struct {
		complete string
		want     string
	}{
		{"A", "B"},
		{"B", "C"},
		{"C", "C"},
	}
	for _, s := range steps {
		snap, err := m.RecordContent(s.complete, "in", "out", true)
		if err != nil {
			t.Fatalf("complete %s: %v", s.complete, err)
		}
		if snap.CurrentPhaseID != s.want {
			t.Errorf("after completing %s current = %q, want %q", s.complete, snap.CurrentPhaseID, s.want)
		}
	}
}

func TestAutoAdvance_SkipsEarlierCompleted(t *testing.T) {
	m := New(threePhaseState(domain.StatusCompleted, domain.StatusTodo, domain.StatusTodo))
	m.SelectPhase("B")

	snap, _ := m.RecordContent("B", "in", "out", true)
	if snap.CurrentPhaseID != "C" {
		t.Errorf("current = %q, want C", snap.CurrentPhaseID)
	}
}

func TestAutoAdvance_FallsBackToFirstIncomplete(t *testing.T) {
	// No todo after C; A is still in progress, so focus jumps back to A.
	m := New(threePhaseState(domain.StatusInProgress, domain.StatusCompleted, domain.StatusTodo))

	snap, _ := m.RecordContent("C", "in", "out", true)
	if snap.CurrentPhaseID != "A" {
		t.Errorf("current = %q, want A", snap.CurrentPhaseID)
	}
}

func TestAutoAdvance_TodoAfterPreferredOverEarlierInProgress(t *testing.T) {
	m := New(threePhaseState(domain.StatusInProgress, domain.StatusTodo, domain.StatusTodo))

	snap, _ := m.RecordContent("B", "in", "out", true)
	if snap.CurrentPhaseID != "C" {
		t.Errorf("current = %q, want C", snap.CurrentPhaseID)
	}
}

func TestSubscribe_ReceivesChanges(t *testing.T) {
	m := New(threePhaseState(domain.StatusTodo, domain.StatusTodo, domain.StatusTodo))

	var got []Change
	cancel := m.Subscribe(func(c Change) { got = append(got, c) })

	m.BeginInteraction("A")
	m.RecordContent("A", "in", "out", true)

	if len(got) != 2 {
		t.Fatalf("received %d changes, want 2", len(got))
	}
	if got[0].Op != OpBegin || got[0].FromStatus != domain.StatusTodo || got[0].ToStatus != domain.StatusInProgress {
		t.Errorf("first change = %+v", got[0])
	}
	if got[1].Op != OpRecord || !got[1].Completed || got[1].Snapshot.CurrentPhaseID != "B" {
		t.Errorf("second change = %+v", got[1])
	}
	if got[1].Snapshot.Seq <= got[0].Snapshot.Seq {
		t.Errorf("sequence did not increase: %d then %d", got[0].Snapshot.Seq, got[1].Snapshot.Seq)
	}

	cancel()
	m.SelectPhase("C")
	if len(got) != 2 {
		t.Errorf("listener called after cancel")
	}
}

func TestSubscribe_OrderAndSnapshotIsolation(t *testing.T) {
	m := New(threePhaseState(domain.StatusTodo, domain.StatusTodo, domain.StatusTodo))

	var calls []string
	m.Subscribe(func(c Change) {
		calls = append(calls, "first")
		c.Snapshot.State.Phases[0].Status = domain.StatusCompleted
	})
	m.Subscribe(func(c Change) { calls = append(calls, "second") })

	m.SelectPhase("A")

	if fmt.Sprint(calls) != "[first second]" {
		t.Errorf("calls = %v", calls)
	}
	if got := statusOf(t, m.Snapshot(), "A"); got != domain.StatusTodo {
		t.Errorf("listener mutated machine state: %s", got)
	}
}

func TestRestore(t *testing.T) {
	m := New(threePhaseState(domain.StatusTodo, domain.StatusTodo, domain.StatusTodo))
	if !m.Restore("C") || m.Current() != "C" {
		t.Errorf("Restore(C) failed, current = %q", m.Current())
	}
	if m.Restore("nope") {
		t.Error("Restore accepted an unknown id")
	}
	if m.Current() != "C" {
		t.Errorf("failed Restore moved focus to %q", m.Current())
	}
}

func TestIsValidTransition(t *testing.T) {
	tests := []struct {
		from  domain.Status
		to    domain.Status
		valid bool
	}{
		{domain.StatusTodo, domain.StatusInProgress, true},
		{domain.StatusTodo, domain.StatusCompleted, true},
		{domain.StatusInProgress, domain.StatusCompleted, true},
		// Invalid transitions:
		{domain.StatusInProgress, domain.StatusTodo, false},
		{domain.StatusCompleted, domain.StatusTodo, false},
		{domain.StatusCompleted, domain.StatusInProgress, false},
	}

	for _, tt := range tests {
		name := fmt.Sprintf("%s->%s", tt.from, tt.to)
		t.Run(name, func(t *testing.T) {
			got := IsValidTransition(tt.from, tt.to)
			if got != tt.valid {
				t.Errorf("IsValidTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.valid)
			}
		})
	}
}

func TestProgress(t *testing.T) {
	st := threePhaseState(domain.StatusCompleted, domain.StatusInProgress, domain.StatusCompleted)
	done, total := Progress(st.Phases)
	if done != 2 || total != 3 {
		t.Errorf("Progress = %d/%d, want 2/3", done, total)
	}
	if AllCompleted(st.Phases) {
		t.Error("AllCompleted = true with an in-progress phase")
	}
	st.Phases[1].Status = domain.StatusCompleted
	if !AllCompleted(st.Phases) {
		t.Error("AllCompleted = false with every phase completed")
	}
}

func TestRecordContent_ReplacesInvalidUTF8(t *testing.T) {
	m := New(threePhaseState(domain.StatusTodo, domain.StatusTodo, domain.StatusTodo))

	snap, err := m.RecordContent("A", "caf\xe9", "ok\xff", false)
	if err != nil {
		t.Fatalf("RecordContent: %v", err)
	}
	p, _ := snap.Phase("A")
	if *p.UserInput != "caf\uFFFD" || *p.GeneratedOutput != "ok\uFFFD" {
		t.Errorf("content = %q/%q, want replacement characters", *p.UserInput, *p.GeneratedOutput)
	}
}
