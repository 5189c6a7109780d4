// Package chat implements the conversation orchestrator: it persists turns,
// assembles prompt context from memory and history, drives the streaming
// LLM call, segments output into sentences, and emits events to a consumer.
package chat

import "fmt"

// State is the orchestrator's position in the per-turn pipeline.
type State int32

const (
	StateIdle State = iota
	StateAwaitingContext
	StateStreaming
	StateFinalizing
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingContext:
		return "awaiting_context"
	case StateStreaming:
		return "streaming"
	case StateFinalizing:
		return "finalizing"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// EventKind discriminates orchestrator events.
type EventKind int

const (
	// EventSentence carries one complete sentence, emitted as soon as its
	// boundary is crossed, for incremental voice playback.
	EventSentence EventKind = iota
	// EventContent carries the raw text fragment of one streamed chunk.
	EventContent
	// EventDone signals turn completion and carries the full response.
	EventDone
	// EventError signals a failed turn.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventSentence:
		return "sentence"
	case EventContent:
		return "content"
	case EventDone:
		return "done"
	case EventError:
		return "error"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is one notification from the orchestrator to its consumer. Events
// for a single turn share a TurnID and arrive in pipeline order.
type Event struct {
	Kind         EventKind
	TurnID       string
	Content      string // sentence text or chunk fragment
	FullResponse string // set on EventDone
	ErrMsg       string // set on EventError
}
