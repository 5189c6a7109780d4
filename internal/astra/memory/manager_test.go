package memory

import (
	"context"
	"testing"

	"github.com/astralab/astra/internal/astra/store"
)

func newTestManager(t *testing.T) (*Manager, *store.Store) {
	t.Helper()
	st, err := store.New(":memory:", nil)
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return NewManager(st, nil), st
}

func TestManager_DetectAndExtractPersists(t *testing.T) {
	m, st := newTestManager(t)
	ctx := context.Background()

	det, err := m.DetectAndExtract(ctx, "remember that my birthday is June 1")
	if err != nil {
		t.Fatalf("DetectAndExtract: %v", err)
	}
	if !det.Detected || det.Key != "birthday" || det.Value != "June 1" {
		t.Fatalf("unexpected detection: %+v", det)
	}

	facts, err := st.GetAllMemoryFacts(ctx)
	if err != nil {
		t.Fatalf("GetAllMemoryFacts: %v", err)
	}
	if len(facts) != 1 || facts[0].Key != "birthday" {
		t.Errorf("fact not persisted: %+v", facts)
	}
}

func TestManager_DetectAndExtractNoMatchSavesNothing(t *testing.T) {
	m, st := newTestManager(t)
	ctx := context.Background()

	det, err := m.DetectAndExtract(ctx, "what time is it")
	if err != nil {
		t.Fatalf("DetectAndExtract: %v", err)
	}
	if det.Detected {
		t.Fatalf("unexpected detection: %+v", det)
	}

	facts, err := st.GetAllMemoryFacts(ctx)
	if err != nil {
		t.Fatalf("GetAllMemoryFacts: %v", err)
	}
	if len(facts) != 0 {
		t.Errorf("expected no facts, got %+v", facts)
	}
}

func TestManager_DetectAndExtractFromResponse(t *testing.T) {
	m, st := newTestManager(t)
	ctx := context.Background()

	response := `Saved. {"memory":{"key":"favorite color","value":"blue"}}`
	det, err := m.DetectAndExtractFromResponse(ctx, response)
	if err != nil {
		t.Fatalf("DetectAndExtractFromResponse: %v", err)
	}
	if !det.Detected || !det.FromJSON {
		t.Fatalf("expected JSON detection: %+v", det)
	}

	facts, err := st.GetAllMemoryFacts(ctx)
	if err != nil {
		t.Fatalf("GetAllMemoryFacts: %v", err)
	}
	if len(facts) != 1 || facts[0].Key != "favorite color" || facts[0].Value != "blue" {
		t.Errorf("fact not persisted: %+v", facts)
	}
}

func TestManager_RelevantMemory(t *testing.T) {
	m, st := newTestManager(t)
	ctx := context.Background()

	seed := []store.MemoryFact{
		{Key: "favorite color", Value: "blue"},
		{Key: "favorite food", Value: "pizza"},
	}
	for i := range seed {
		if _, err := st.InsertMemoryFact(ctx, &seed[i]); err != nil {
			t.Fatalf("InsertMemoryFact: %v", err)
		}
	}

	got, err := m.RelevantMemory(ctx, "what is my favorite color")
	if err != nil {
		t.Fatalf("RelevantMemory: %v", err)
	}
	if len(got) == 0 || got[0].Key != "favorite color" {
		t.Errorf("unexpected ranking: %+v", got)
	}
}

func TestManager_ClearRemovesAllFacts(t *testing.T) {
	m, st := newTestManager(t)
	ctx := context.Background()

	if _, err := st.InsertMemoryFact(ctx, &store.MemoryFact{Key: "a", Value: "b"}); err != nil {
		t.Fatalf("InsertMemoryFact: %v", err)
	}
	if err := m.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	facts, err := m.All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(facts) != 0 {
		t.Errorf("expected no facts after clear, got %+v", facts)
	}
}
