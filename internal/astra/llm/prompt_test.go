package llm_test

import (
	"strings"
	"testing"

	"github.com/astralab/astra/internal/astra/llm"
	"github.com/astralab/astra/internal/astra/store"
)

func TestBuildEnhancedSystemPrompt_BareBase(t *testing.T) {
	got := llm.BuildEnhancedSystemPrompt("base prompt", nil)
	if got != "base prompt" {
		t.Errorf("expected base prompt unchanged, got %q", got)
	}

	got = llm.BuildEnhancedSystemPrompt("base prompt", &llm.ConversationContext{})
	if got != "base prompt" {
		t.Errorf("expected base prompt unchanged for empty context, got %q", got)
	}
}

func TestBuildEnhancedSystemPrompt_MemorySection(t *testing.T) {
	convCtx := &llm.ConversationContext{
		MemoryFacts: []store.MemoryFact{
			{Key: "favorite color", Value: "blue"},
			{Key: "birthday", Value: "June 1"},
		},
	}
	got := llm.BuildEnhancedSystemPrompt("base", convCtx)

	if !strings.Contains(got, "Here is stored user memory:") {
		t.Fatalf("missing memory section header in %q", got)
	}
	colorIdx := strings.Index(got, "* favorite color: blue")
	birthdayIdx := strings.Index(got, "* birthday: June 1")
	if colorIdx < 0 || birthdayIdx < 0 {
		t.Fatalf("missing fact bullets in %q", got)
	}
	if colorIdx > birthdayIdx {
		t.Error("facts rendered out of retriever order")
	}
}

func TestBuildEnhancedSystemPrompt_HistorySection(t *testing.T) {
	convCtx := &llm.ConversationContext{
		RecentMessages: []store.Message{
			{Content: "hello", IsFromUser: true},
			{Content: "hi there", IsFromUser: false},
		},
	}
	got := llm.BuildEnhancedSystemPrompt("base", convCtx)

	if !strings.Contains(got, "Recent conversation history:") {
		t.Fatalf("missing history section in %q", got)
	}
	if !strings.Contains(got, "User: hello") || !strings.Contains(got, "Assistant: hi there") {
		t.Errorf("messages not rendered by role in %q", got)
	}
}

func TestBuildEnhancedSystemPrompt_SingleMessageNoHistory(t *testing.T) {
	convCtx := &llm.ConversationContext{
		RecentMessages: []store.Message{{Content: "hello", IsFromUser: true}},
	}
	got := llm.BuildEnhancedSystemPrompt("base", convCtx)
	if strings.Contains(got, "Recent conversation history:") {
		t.Error("history section should require more than one recent message")
	}
}

func TestBuildEnhancedSystemPrompt_HistoryCappedAtSix(t *testing.T) {
	var msgs []store.Message
	for _, content := range []string{"m1", "m2", "m3", "m4", "m5", "m6", "m7", "m8"} {
		msgs = append(msgs, store.Message{Content: content, IsFromUser: true})
	}
	got := llm.BuildEnhancedSystemPrompt("base", &llm.ConversationContext{RecentMessages: msgs})

	if strings.Contains(got, "User: m1") || strings.Contains(got, "User: m2") {
		t.Error("expected oldest messages beyond the 6-message cap to be dropped")
	}
	if !strings.Contains(got, "User: m3") || !strings.Contains(got, "User: m8") {
		t.Error("expected the last 6 messages to be present")
	}
	// Oldest-first within the window.
	if strings.Index(got, "User: m3") > strings.Index(got, "User: m8") {
		t.Error("history not rendered oldest first")
	}
}
