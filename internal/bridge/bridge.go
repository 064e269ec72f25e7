// Package bridge owns the live workflow: it hydrates the state machine from
// storage, serializes mutations, persists after each one, and connects the
// machine to generation, the event log and document export.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/rogers-f/phasebook/internal/catalog"
	"github.com/rogers-f/phasebook/internal/document"
	"github.com/rogers-f/phasebook/internal/domain"
	"github.com/rogers-f/phasebook/internal/generate"
	"github.com/rogers-f/phasebook/internal/guard"
	"github.com/rogers-f/phasebook/internal/observability"
	"github.com/rogers-f/phasebook/internal/store"
	"github.com/rogers-f/phasebook/internal/workflow"
)

// EventLog is the append-only transition log.
type EventLog interface {
	Append(ctx context.Context, event domain.WorkflowEvent) (domain.WorkflowEvent, error)
	ListSince(ctx context.Context, sinceSeq int64, limit int) ([]domain.WorkflowEvent, error)
}

// ExportLog records written documents.
type ExportLog interface {
	Record(ctx context.Context, path, content string, createdAt int64) (domain.ExportRecord, error)
	List(ctx context.Context, limit int) ([]domain.ExportRecord, error)
}

// Source reports where hydrated phases came from.
type Source string

const (
	SourceSaved   Source = "saved"
	SourceCatalog Source = "catalog"
)

// Bridge is the single owner of the live workflow state.
type Bridge struct {
	Store     *store.StateStore
	Events    EventLog
	Exports   ExportLog
	Generator generate.Generator
	Guard     *guard.Guard
	Gates     *workflow.CompletionGates
	ExportDir string
	Logger    *slog.Logger

	now     func() time.Time
	mu      sync.Mutex
	machine *workflow.Machine
}

// NewBridge creates a Bridge. Events and Exports may be nil, in which case
// transitions and exports are not logged.
func NewBridge(st *store.StateStore, events EventLog, exports ExportLog, gen generate.Generator, g *guard.Guard, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	if g == nil {
		g = guard.NewGuard(guard.GuardConfig{})
	}
	return &Bridge{
		Store:     st,
		Events:    events,
		Exports:   exports,
		Generator: gen,
		Guard:     g,
		Gates:     workflow.NewCompletionGates(),
		ExportDir: ".",
		Logger:    logger,
		now:       time.Now,
	}
}

// Hydrate builds the machine from saved progress, falling back to the
// catalog when nothing usable is stored, and writes the result back. A
// failed read leaves the bridge unhydrated and the slot untouched.
func (b *Bridge) Hydrate(ctx context.Context) (Source, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	phases, ok, err := b.Store.Load(ctx)
	if err != nil {
		b.Logger.Error("read saved progress failed", "error", err)
		return SourceCatalog, err
	}
	source := SourceCatalog
	state := catalog.DefaultState()
	if ok {
		state = catalog.WithPhases(phases)
		source = SourceSaved
	}

	m := workflow.New(state)
	if source == SourceSaved {
		if id, ok := b.Store.LoadCurrent(ctx); ok && !m.Restore(id) {
			b.Logger.Warn("saved focus no longer exists", "phase", id)
		}
	}
	m.Subscribe(b.onChange(context.WithoutCancel(ctx)))
	b.machine = m

	snap := m.Snapshot()
	b.Logger.Info("workflow hydrated", "source", source, "phases", len(snap.State.Phases), "current", snap.CurrentPhaseID)
	done, _ := workflow.Progress(snap.State.Phases)
	observability.SetPhasesCompleted(done)
	b.appendEvent(ctx, domain.WorkflowEvent{
		PhaseID:     snap.CurrentPhaseID,
		EventType:   string(workflow.OpHydrate),
		PayloadJSON: mustJSON(map[string]any{"source": source, "current": snap.CurrentPhaseID}),
	})

	return source, b.persist(ctx, snap)
}

// onChange returns the listener that logs, counts and records transitions.
func (b *Bridge) onChange(ctx context.Context) workflow.Listener {
	return func(c workflow.Change) {
		observability.RecordOperation(string(c.Op))
		if c.StatusChanged() {
			observability.RecordTransition(string(c.ToStatus))
			b.Logger.Info("phase status changed", "phase", c.PhaseID, "from", c.FromStatus, "to", c.ToStatus)
		}
		done, _ := workflow.Progress(c.Snapshot.State.Phases)
		observability.SetPhasesCompleted(done)

		b.appendEvent(ctx, domain.WorkflowEvent{
			PhaseID:   c.PhaseID,
			EventType: string(c.Op),
			PayloadJSON: mustJSON(map[string]any{
				"from":      c.FromStatus,
				"to":        c.ToStatus,
				"completed": c.Completed,
				"current":   c.Snapshot.CurrentPhaseID,
			}),
		})
	}
}

func (b *Bridge) appendEvent(ctx context.Context, ev domain.WorkflowEvent) {
	if b.Events == nil {
		return
	}
	ev.CreatedAt = b.now().Unix()
	if _, err := b.Events.Append(ctx, ev); err != nil {
		b.Logger.Warn("append workflow event failed", "type", ev.EventType, "phase", ev.PhaseID, "error", err)
	}
}

func (b *Bridge) persist(ctx context.Context, snap workflow.Snapshot) error {
	if err := b.Store.Save(ctx, snap.State.Phases); err != nil {
		return err
	}
	return b.Store.SaveCurrent(ctx, snap.CurrentPhaseID)
}

func (b *Bridge) ready() (*workflow.Machine, error) {
	if b.machine == nil {
		return nil, domain.NewEngineError(domain.ErrStoreInit.Code, "workflow not hydrated")
	}
	return b.machine, nil
}

// mutate runs op under the lock and persists its result.
func (b *Bridge) mutate(ctx context.Context, op func(m *workflow.Machine) (workflow.Snapshot, error)) (workflow.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	m, err := b.ready()
	if err != nil {
		return workflow.Snapshot{}, err
	}
	snap, err := op(m)
	if err != nil {
		return workflow.Snapshot{}, err
	}
	if err := b.persist(ctx, snap); err != nil {
		b.Logger.Error("persist workflow failed", "error", err)
		return snap, err
	}
	return snap, nil
}

// Snapshot returns the current state.
func (b *Bridge) Snapshot() (workflow.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	m, err := b.ready()
	if err != nil {
		return workflow.Snapshot{}, err
	}
	return m.Snapshot(), nil
}

// Phase returns one phase by id.
func (b *Bridge) Phase(id string) (domain.Phase, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	m, err := b.ready()
	if err != nil {
		return domain.Phase{}, err
	}
	return m.Phase(id)
}

// SelectPhase moves focus to the phase.
func (b *Bridge) SelectPhase(ctx context.Context, id string) (workflow.Snapshot, error) {
	return b.mutate(ctx, func(m *workflow.Machine) (workflow.Snapshot, error) {
		return m.SelectPhase(id)
	})
}

// BeginInteraction opens the phase for work.
func (b *Bridge) BeginInteraction(ctx context.Context, id string) (workflow.Snapshot, error) {
	return b.mutate(ctx, func(m *workflow.Machine) (workflow.Snapshot, error) {
		return m.BeginInteraction(id)
	})
}

// RecordContent stores content on the phase, optionally completing it.
func (b *Bridge) RecordContent(ctx context.Context, id, userInput, generatedOutput string, markCompleted bool) (workflow.Snapshot, error) {
	return b.mutate(ctx, func(m *workflow.Machine) (workflow.Snapshot, error) {
		return m.RecordContent(id, userInput, generatedOutput, markCompleted)
	})
}

// Complete marks the phase completed with the content it already holds.
// The phase's completion gate must allow it.
func (b *Bridge) Complete(ctx context.Context, id string) (workflow.Snapshot, error) {
	return b.mutate(ctx, func(m *workflow.Machine) (workflow.Snapshot, error) {
		p, err := m.Phase(id)
		if err != nil {
			return workflow.Snapshot{}, err
		}
		if err := b.Gates.Check(p); err != nil {
			return workflow.Snapshot{}, err
		}
		return m.RecordContent(id, deref(p.UserInput), deref(p.GeneratedOutput), true)
	})
}

// Generate asks the provider for content on the phase and records the
// instruction and output without completing it. A failed generation leaves
// the state untouched.
func (b *Bridge) Generate(ctx context.Context, id, instruction string) (workflow.Snapshot, string, error) {
	phase, err := b.Phase(id)
	if err != nil {
		return workflow.Snapshot{}, "", err
	}
	if strings.TrimSpace(instruction) == "" {
		return workflow.Snapshot{}, "", domain.ErrEmptyInstruction
	}

	release, err := b.Guard.Acquire(id)
	if err != nil {
		return workflow.Snapshot{}, "", err
	}
	defer release()

	ctx, span := observability.Tracer().Start(ctx, "bridge.Generate")
	defer span.End()
	span.SetAttributes(attribute.String("phase.id", id))

	start := b.now()
	output, err := b.Generator.Generate(ctx, generate.NewContext(phase, instruction))
	elapsed := b.now().Sub(start)
	if err != nil {
		observability.RecordGeneration(outcome(err), elapsed)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		b.Logger.Warn("generation failed", "phase", id, "error", err)
		return workflow.Snapshot{}, "", err
	}
	observability.RecordGeneration("ok", elapsed)
	b.Logger.Info("generation succeeded", "phase", id, "chars", len(output), "elapsed", elapsed)

	snap, err := b.RecordContent(ctx, id, instruction, output, false)
	return snap, output, err
}

func outcome(err error) string {
	var ee *domain.EngineError
	if !errors.As(err, &ee) {
		return "error"
	}
	switch ee.Code {
	case domain.ErrMissingCredential.Code:
		return "missing_credential"
	case domain.ErrEmptyInstruction.Code:
		return "empty_instruction"
	default:
		return "unavailable"
	}
}

// Document renders the current state as the export document.
func (b *Bridge) Document() (string, error) {
	snap, err := b.Snapshot()
	if err != nil {
		return "", err
	}
	return document.Render(snap.State, b.now()), nil
}

// Export renders the document and writes it to ExportDir.
func (b *Bridge) Export(ctx context.Context) (domain.ExportRecord, error) {
	content, err := b.Document()
	if err != nil {
		return domain.ExportRecord{}, err
	}

	path, err := document.Export(b.ExportDir, content)
	if err != nil {
		return domain.ExportRecord{}, err
	}
	observability.RecordExport()

	rec := domain.ExportRecord{
		FilePath:  path,
		Checksum:  store.Checksum(content),
		SizeBytes: int64(len(content)),
		CreatedAt: b.now().Unix(),
	}
	if b.Exports != nil {
		logged, err := b.Exports.Record(ctx, path, content, rec.CreatedAt)
		if err != nil {
			b.Logger.Warn("record export failed", "path", path, "error", err)
		} else {
			rec = logged
		}
	}
	b.Logger.Info("document exported", "path", path, "bytes", rec.SizeBytes)
	return rec, nil
}

// EventsSince lists logged transitions after sinceSeq.
func (b *Bridge) EventsSince(ctx context.Context, sinceSeq int64, limit int) ([]domain.WorkflowEvent, error) {
	if b.Events == nil {
		return []domain.WorkflowEvent{}, nil
	}
	return b.Events.ListSince(ctx, sinceSeq, limit)
}

// ExportHistory lists recorded exports, newest first.
func (b *Bridge) ExportHistory(ctx context.Context, limit int) ([]domain.ExportRecord, error) {
	if b.Exports == nil {
		return []domain.ExportRecord{}, nil
	}
	return b.Exports.List(ctx, limit)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// mustJSON marshals v to a JSON string, returning "{}" on error.
func mustJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
