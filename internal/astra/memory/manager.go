package memory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/astralab/astra/internal/astra/store"
)

// Manager ties extraction and retrieval to the persistence store. Detected
// facts are persisted immediately; retrieval reads the full fact set and
// the recent message window on every call.
type Manager struct {
	store  *store.Store
	logger *slog.Logger
}

// NewManager creates a Manager. If logger is nil, the default slog logger
// is used.
func NewManager(st *store.Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: st, logger: logger}
}

// DetectAndExtract runs pattern extraction over user input and persists the
// fact on a match.
func (m *Manager) DetectAndExtract(ctx context.Context, message string) (Detection, error) {
	det := MatchPattern(message)
	if !det.Detected {
		return det, nil
	}
	if err := m.persist(ctx, det); err != nil {
		return Detection{}, err
	}
	return det, nil
}

// DetectAndExtractFromResponse runs structured extraction (JSON first, then
// pattern fallback) over model output and persists the fact on a match.
func (m *Manager) DetectAndExtractFromResponse(ctx context.Context, response string) (Detection, error) {
	det := ExtractStructured(response)
	if !det.Detected {
		return det, nil
	}
	if err := m.persist(ctx, det); err != nil {
		return Detection{}, err
	}
	return det, nil
}

func (m *Manager) persist(ctx context.Context, det Detection) error {
	fact := &store.MemoryFact{Key: det.Key, Value: det.Value}
	if _, err := m.store.InsertMemoryFact(ctx, fact); err != nil {
		return fmt.Errorf("persist detected fact: %w", err)
	}
	m.logger.Debug("stored memory fact",
		"key", det.Key,
		"from_json", det.FromJSON,
	)
	return nil
}

// RelevantMemory returns the stored facts most relevant to query, using the
// last 10 conversation messages for the recency bonus.
func (m *Manager) RelevantMemory(ctx context.Context, query string) ([]store.MemoryFact, error) {
	facts, err := m.store.GetAllMemoryFacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load memory facts: %w", err)
	}

	msgs, err := m.store.GetAllMessages(ctx)
	if err != nil {
		return nil, fmt.Errorf("load recent messages: %w", err)
	}
	if len(msgs) > 10 {
		msgs = msgs[len(msgs)-10:]
	}

	return RetrieveRelevantMemory(query, facts, msgs, DefaultMaxResults), nil
}

// Add stores a fact directly, bypassing detection. Used by surfaces that
// let the user enter facts by hand.
func (m *Manager) Add(ctx context.Context, key, value string) (*store.MemoryFact, error) {
	fact := &store.MemoryFact{Key: key, Value: value}
	if _, err := m.store.InsertMemoryFact(ctx, fact); err != nil {
		return nil, fmt.Errorf("store fact: %w", err)
	}
	return fact, nil
}

// All returns every stored fact, newest first.
func (m *Manager) All(ctx context.Context) ([]store.MemoryFact, error) {
	return m.store.GetAllMemoryFacts(ctx)
}

// Search returns facts whose key or value contains the given substring.
func (m *Manager) Search(ctx context.Context, query string) ([]store.MemoryFact, error) {
	return m.store.SearchMemoryFacts(ctx, query)
}

// Update rewrites an existing fact.
func (m *Manager) Update(ctx context.Context, fact *store.MemoryFact) error {
	return m.store.UpdateMemoryFact(ctx, fact)
}

// Delete removes a single fact by ID.
func (m *Manager) Delete(ctx context.Context, id int64) error {
	return m.store.DeleteMemoryFact(ctx, id)
}

// Clear removes every stored fact.
func (m *Manager) Clear(ctx context.Context) error {
	return m.store.DeleteAllMemoryFacts(ctx)
}
