// Package llm implements the transport to a local Ollama-compatible
// inference server: single-shot and streaming generation, the post-failure
// cooldown policy, prompt assembly, and sentence segmentation of streamed
// output.
package llm

import (
	"time"

	"github.com/astralab/astra/internal/astra/store"
)

// ConversationContext is the request-scoped bundle injected into the system
// prompt for one turn. It is never persisted.
type ConversationContext struct {
	RecentMessages []store.Message    // oldest first, at most 10
	MemoryFacts    []store.MemoryFact // ranked by relevance, at most 5
}

// StreamingChunk is one incremental unit of model output. A chunk with
// Done=true terminates the stream; a chunk with Err set reports a failure
// and also terminates it.
type StreamingChunk struct {
	Content   string
	Done      bool
	Err       bool
	ErrMsg    string
	Model     string
	CreatedAt string
	Timestamp time.Time
}

// --- wire types (Ollama /api/generate) ---

type generateRequest struct {
	Model     string           `json:"model"`
	Prompt    string           `json:"prompt"`
	System    string           `json:"system,omitempty"`
	Stream    bool             `json:"stream"`
	Options   *generateOptions `json:"options,omitempty"`
	KeepAlive int              `json:"keep_alive"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"maxTokens"`
	TopP        float64 `json:"topP"`
	TopK        int     `json:"topK"`
}

type generateResponse struct {
	Model              string `json:"model"`
	CreatedAt          string `json:"created_at"`
	Response           string `json:"response"`
	Done               bool   `json:"done"`
	Context            []int  `json:"context,omitempty"`
	TotalDuration      int64  `json:"total_duration,omitempty"`
	LoadDuration       int64  `json:"load_duration,omitempty"`
	PromptEvalCount    int    `json:"prompt_eval_count,omitempty"`
	PromptEvalDuration int64  `json:"prompt_eval_duration,omitempty"`
	EvalCount          int    `json:"eval_count,omitempty"`
	EvalDuration       int64  `json:"eval_duration,omitempty"`
}
