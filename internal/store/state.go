package store

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/rogers-f/phasebook/internal/domain"
)

// DefaultStateKey is the slot holding the serialized phase list.
const DefaultStateKey = "softwareWorkflowProgress"

// StateStore saves and restores the phase list through a KV slot. The focus
// pointer lives in a sibling slot, <Key>.current.
type StateStore struct {
	KV     KV
	Key    string
	Logger *slog.Logger
}

// NewStateStore creates a StateStore. An empty key selects DefaultStateKey.
func NewStateStore(kv KV, key string, logger *slog.Logger) *StateStore {
	if key == "" {
		key = DefaultStateKey
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StateStore{KV: kv, Key: key, Logger: logger}
}

// Load returns the persisted phases. ok is false when the slot is empty or
// its content does not look like a phase list; callers then fall back to
// the catalog. A failed read is returned as ErrStoreQuery so that callers
// do not mistake it for an empty slot.
func (s *StateStore) Load(ctx context.Context) ([]domain.Phase, bool, error) {
	raw, found, err := s.KV.Get(ctx, s.Key)
	if err != nil {
		return nil, false, domain.WrapEngineError(domain.ErrStoreQuery.Code, "read saved progress", err)
	}
	if !found {
		return nil, false, nil
	}

	phases, err := decodePhases(raw)
	if err != nil {
		s.Logger.Warn("discarding saved progress", "key", s.Key, "error", err)
		return nil, false, nil
	}
	return phases, true, nil
}

// decodePhases accepts a non-empty JSON array whose first element carries a
// non-empty id and status.
func decodePhases(raw string) ([]domain.Phase, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &elems); err != nil {
		return nil, domain.WrapEngineError(domain.ErrMalformedState.Code, "saved progress is not a JSON array", err)
	}
	if len(elems) == 0 {
		return nil, domain.NewEngineError(domain.ErrMalformedState.Code, "saved progress is empty")
	}

	var head map[string]any
	if err := json.Unmarshal(elems[0], &head); err != nil {
		return nil, domain.WrapEngineError(domain.ErrMalformedState.Code, "first saved phase is not an object", err)
	}
	if !truthy(head["id"]) || !truthy(head["status"]) {
		return nil, domain.NewEngineError(domain.ErrMalformedState.Code, "first saved phase lacks id or status")
	}

	var phases []domain.Phase
	if err := json.Unmarshal([]byte(raw), &phases); err != nil {
		return nil, domain.WrapEngineError(domain.ErrMalformedState.Code, "decode saved phases", err)
	}
	for i := range phases {
		if phases[i].Activities == nil {
			phases[i].Activities = []domain.Activity{}
		}
	}
	return phases, nil
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case bool:
		return x
	case float64:
		return x != 0
	default:
		return true
	}
}

// Save serializes the full phase list into the slot.
func (s *StateStore) Save(ctx context.Context, phases []domain.Phase) error {
	data, err := json.Marshal(phases)
	if err != nil {
		return domain.WrapEngineError(domain.ErrStoreWrite.Code, "encode phases", err)
	}
	if err := s.KV.Put(ctx, s.Key, string(data)); err != nil {
		return domain.WrapEngineError(domain.ErrStoreWrite.Code, "save progress", err)
	}
	return nil
}

func (s *StateStore) currentKey() string {
	return s.Key + ".current"
}

// LoadCurrent returns the persisted focus pointer, if any.
func (s *StateStore) LoadCurrent(ctx context.Context) (string, bool) {
	v, found, err := s.KV.Get(ctx, s.currentKey())
	if err != nil {
		s.Logger.Warn("read saved focus failed", "key", s.currentKey(), "error", err)
		return "", false
	}
	return v, found && v != ""
}

// SaveCurrent persists the focus pointer.
func (s *StateStore) SaveCurrent(ctx context.Context, phaseID string) error {
	if err := s.KV.Put(ctx, s.currentKey(), phaseID); err != nil {
		return domain.WrapEngineError(domain.ErrStoreWrite.Code, "save focus", err)
	}
	return nil
}
