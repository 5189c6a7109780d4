package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/astralab/astra/internal/astra/llm"
	"github.com/astralab/astra/internal/astra/memory"
	"github.com/astralab/astra/internal/astra/store"
)

// apologyMessage is persisted as the assistant turn when the pipeline fails.
const apologyMessage = "Sorry, I encountered a problem. Please try again."

// minResponseLenForExtraction gates memory extraction on model output:
// trivially short responses are not scanned.
const minResponseLenForExtraction = 50

// Transport is the LLM surface the orchestrator depends on.
type Transport interface {
	Send(ctx context.Context, text string, convCtx *llm.ConversationContext, systemPrompt string) (string, error)
	SendStreaming(ctx context.Context, text string, convCtx *llm.ConversationContext, systemPrompt string) (<-chan llm.StreamingChunk, error)
}

var _ Transport = (*llm.Client)(nil)

// Settings exposes the runtime toggles the orchestrator consults per turn.
type Settings interface {
	MemoryEnabled() bool
}

// Orchestrator coordinates one conversation pipeline. Turns are serialized:
// a second ProcessUserMessage blocks until the first completes, so at most
// one generation is in flight against the transport and at most one writer
// touches the live streaming message.
type Orchestrator struct {
	turnMu sync.Mutex

	store     *store.Store
	transport Transport
	mem       *memory.Manager
	settings  Settings
	logger    *slog.Logger

	systemPrompt string
	state        atomic.Int32
}

// New creates an Orchestrator. systemPrompt may be empty to use the default
// persona. If logger is nil, the default slog logger is used.
func New(st *store.Store, transport Transport, mem *memory.Manager, settings Settings, systemPrompt string, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if systemPrompt == "" {
		systemPrompt = llm.DefaultSystemPrompt
	}
	return &Orchestrator{
		store:        st,
		transport:    transport,
		mem:          mem,
		settings:     settings,
		logger:       logger,
		systemPrompt: systemPrompt,
	}
}

// State returns the orchestrator's current pipeline state.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

func (o *Orchestrator) setState(s State) {
	o.state.Store(int32(s))
}

// ProcessUserMessage runs one full turn: persist the user message, build
// context, stream the response, and emit events to emit as the pipeline
// progresses. Blank input is ignored without error. The returned error is
// for the caller's log only — user-visible failure handling (apology
// message, error event) has already happened by the time it is non-nil.
func (o *Orchestrator) ProcessUserMessage(ctx context.Context, text string, emit func(Event)) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	o.turnMu.Lock()
	defer o.turnMu.Unlock()
	defer o.setState(StateIdle)

	turnID := uuid.New().String()
	o.setState(StateAwaitingContext)

	if _, err := o.store.InsertMessage(ctx, &store.Message{Content: text, IsFromUser: true}); err != nil {
		return o.fail(ctx, turnID, nil, emit, fmt.Errorf("persist user message: %w", err))
	}

	memoryEnabled := o.settings == nil || o.settings.MemoryEnabled()

	// A pure "remember X" instruction is answered locally — no LLM
	// round-trip.
	if memoryEnabled {
		det, err := o.mem.DetectAndExtract(ctx, text)
		if err != nil {
			return o.fail(ctx, turnID, nil, emit, fmt.Errorf("memory extraction: %w", err))
		}
		if det.Detected {
			return o.confirmMemory(ctx, turnID, det, emit)
		}
	}

	convCtx, err := o.buildContext(ctx, memoryEnabled)
	if err != nil {
		return o.fail(ctx, turnID, nil, emit, fmt.Errorf("build context: %w", err))
	}

	o.setState(StateStreaming)
	chunks, err := o.transport.SendStreaming(ctx, text, convCtx, o.systemPrompt)
	if err != nil {
		return o.fail(ctx, turnID, nil, emit, fmt.Errorf("start stream: %w", err))
	}

	// Placeholder assistant message, mutated in place while streaming.
	assistant := &store.Message{IsFromUser: false, IsStreaming: true}
	if _, err := o.store.InsertMessage(ctx, assistant); err != nil {
		return o.fail(ctx, turnID, nil, emit, fmt.Errorf("persist assistant placeholder: %w", err))
	}

	var fullResponse, sentenceBuffer strings.Builder
	for chunk := range chunks {
		if chunk.Err {
			return o.fail(ctx, turnID, assistant, emit, fmt.Errorf("stream: %s", chunk.ErrMsg))
		}
		if chunk.Content != "" {
			fullResponse.WriteString(chunk.Content)
			sentenceBuffer.WriteString(chunk.Content)

			buffered := sentenceBuffer.String()
			if sentences := llm.ExtractCompleteSentences(buffered); len(sentences) > 0 {
				for _, sentence := range sentences {
					emit(Event{Kind: EventSentence, TurnID: turnID, Content: sentence})
				}
				remainder := buffered[llm.LastSentenceEnd(buffered):]
				sentenceBuffer.Reset()
				sentenceBuffer.WriteString(strings.TrimSpace(remainder))

				// Checkpoint the accumulating turn at each boundary.
				assistant.Content = fullResponse.String()
				if err := o.store.UpdateMessage(ctx, assistant); err != nil {
					o.logger.Warn("checkpoint streaming message", "err", err)
				}
			}
			emit(Event{Kind: EventContent, TurnID: turnID, Content: chunk.Content})
		}
		if chunk.Done {
			break
		}
	}

	if err := ctx.Err(); err != nil {
		return o.fail(ctx, turnID, assistant, emit, err)
	}

	return o.finalize(ctx, turnID, assistant, fullResponse.String(), sentenceBuffer.String(), memoryEnabled, emit)
}

// ProcessUserMessageSync runs one turn over the batch transport path and
// returns the assistant's response text. Used by callers that have no use
// for incremental events.
func (o *Orchestrator) ProcessUserMessageSync(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}

	o.turnMu.Lock()
	defer o.turnMu.Unlock()
	defer o.setState(StateIdle)

	o.setState(StateAwaitingContext)
	if _, err := o.store.InsertMessage(ctx, &store.Message{Content: text, IsFromUser: true}); err != nil {
		return "", o.failSync(ctx, fmt.Errorf("persist user message: %w", err))
	}

	memoryEnabled := o.settings == nil || o.settings.MemoryEnabled()
	if memoryEnabled {
		det, err := o.mem.DetectAndExtract(ctx, text)
		if err != nil {
			return "", o.failSync(ctx, fmt.Errorf("memory extraction: %w", err))
		}
		if det.Detected {
			confirmation := memoryConfirmation(det)
			if _, err := o.store.InsertMessage(ctx, &store.Message{
				Content:           confirmation,
				StreamingComplete: true,
			}); err != nil {
				return "", o.failSync(ctx, err)
			}
			return confirmation, nil
		}
	}

	convCtx, err := o.buildContext(ctx, memoryEnabled)
	if err != nil {
		return "", o.failSync(ctx, fmt.Errorf("build context: %w", err))
	}

	o.setState(StateStreaming)
	response, err := o.transport.Send(ctx, text, convCtx, o.systemPrompt)
	if err != nil {
		return "", o.failSync(ctx, err)
	}

	o.setState(StateFinalizing)
	display := response
	if memoryEnabled && len(response) > minResponseLenForExtraction {
		det, err := o.mem.DetectAndExtractFromResponse(ctx, response)
		if err != nil {
			o.logger.Warn("response memory extraction", "err", err)
		} else if det.FromJSON {
			display = memory.CleanJSONFromResponse(response)
		}
	}

	if _, err := o.store.InsertMessage(ctx, &store.Message{
		Content:           display,
		StreamingComplete: true,
	}); err != nil {
		return "", o.failSync(ctx, err)
	}
	return display, nil
}

// ClearAllMessages irreversibly deletes the conversation history. Memory
// facts are untouched.
func (o *Orchestrator) ClearAllMessages(ctx context.Context) error {
	return o.store.DeleteAllMessages(ctx)
}

// Messages returns the stored conversation, oldest first.
func (o *Orchestrator) Messages(ctx context.Context) ([]store.Message, error) {
	return o.store.GetAllMessages(ctx)
}

// buildContext assembles the request-scoped context: the last 10 messages
// plus the facts most relevant to their joined text.
func (o *Orchestrator) buildContext(ctx context.Context, memoryEnabled bool) (*llm.ConversationContext, error) {
	if !memoryEnabled {
		return nil, nil
	}

	msgs, err := o.store.GetAllMessages(ctx)
	if err != nil {
		return nil, err
	}
	if len(msgs) > 10 {
		msgs = msgs[len(msgs)-10:]
	}

	var parts []string
	for _, msg := range msgs {
		parts = append(parts, msg.Content)
	}
	facts, err := o.mem.RelevantMemory(ctx, strings.Join(parts, " "))
	if err != nil {
		return nil, err
	}

	return &llm.ConversationContext{RecentMessages: msgs, MemoryFacts: facts}, nil
}

// finalize flushes the sentence remainder, persists the completed turn,
// runs response-side memory extraction, and emits the done event.
func (o *Orchestrator) finalize(ctx context.Context, turnID string, assistant *store.Message, fullResponse, remainder string, memoryEnabled bool, emit func(Event)) error {
	o.setState(StateFinalizing)

	if trimmed := strings.TrimSpace(remainder); trimmed != "" {
		emit(Event{Kind: EventSentence, TurnID: turnID, Content: trimmed})
	}

	display := fullResponse
	if memoryEnabled && len(fullResponse) > minResponseLenForExtraction {
		det, err := o.mem.DetectAndExtractFromResponse(ctx, fullResponse)
		if err != nil {
			o.logger.Warn("response memory extraction", "err", err)
		} else if det.FromJSON {
			// The raw JSON is machine bookkeeping; the user sees prose.
			display = memory.CleanJSONFromResponse(fullResponse)
		}
	}

	assistant.Content = display
	assistant.IsStreaming = false
	assistant.StreamingComplete = true
	assistant.Timestamp = time.Now()
	if err := o.store.UpdateMessage(ctx, assistant); err != nil {
		return o.fail(ctx, turnID, assistant, emit, fmt.Errorf("persist assistant message: %w", err))
	}

	emit(Event{Kind: EventDone, TurnID: turnID, FullResponse: display})
	o.logger.Debug("turn complete", "turn_id", turnID, "response_len", len(display))
	return nil
}

// confirmMemory answers a detected "remember X" instruction locally.
func (o *Orchestrator) confirmMemory(ctx context.Context, turnID string, det memory.Detection, emit func(Event)) error {
	confirmation := memoryConfirmation(det)
	if _, err := o.store.InsertMessage(ctx, &store.Message{
		Content:           confirmation,
		StreamingComplete: true,
	}); err != nil {
		return o.fail(ctx, turnID, nil, emit, fmt.Errorf("persist confirmation: %w", err))
	}
	emit(Event{Kind: EventSentence, TurnID: turnID, Content: confirmation})
	emit(Event{Kind: EventDone, TurnID: turnID, FullResponse: confirmation})
	return nil
}

func memoryConfirmation(det memory.Detection) string {
	return fmt.Sprintf("I've remembered that your %s is %s.", det.Key, det.Value)
}

// fail persists the apology turn, emits the error event, and records the
// failed state. When the turn already inserted a streaming placeholder,
// the placeholder itself becomes the apology so no row is left flagged as
// live-streaming. It always returns err so callers can log the cause.
func (o *Orchestrator) fail(ctx context.Context, turnID string, assistant *store.Message, emit func(Event), err error) error {
	o.setState(StateFailed)
	o.logger.Error("turn failed", "turn_id", turnID, "err", err)

	// The apology must be persisted even when the turn died to a
	// cancelled context.
	pctx := context.WithoutCancel(ctx)
	if assistant != nil && assistant.ID != 0 {
		assistant.Content = apologyMessage
		assistant.IsStreaming = false
		assistant.StreamingComplete = true
		assistant.HasError = true
		assistant.ErrorMessage = err.Error()
		assistant.Timestamp = time.Now()
		if updateErr := o.store.UpdateMessage(pctx, assistant); updateErr != nil {
			o.logger.Error("persist apology message", "err", updateErr)
		}
	} else if _, insertErr := o.store.InsertMessage(pctx, &store.Message{
		Content:           apologyMessage,
		HasError:          true,
		ErrorMessage:      err.Error(),
		StreamingComplete: true,
	}); insertErr != nil {
		o.logger.Error("persist apology message", "err", insertErr)
	}

	emit(Event{Kind: EventError, TurnID: turnID, ErrMsg: err.Error()})
	return err
}

func (o *Orchestrator) failSync(ctx context.Context, err error) error {
	o.setState(StateFailed)
	o.logger.Error("turn failed", "err", err)
	if _, insertErr := o.store.InsertMessage(context.WithoutCancel(ctx), &store.Message{
		Content:           apologyMessage,
		HasError:          true,
		ErrorMessage:      err.Error(),
		StreamingComplete: true,
	}); insertErr != nil {
		o.logger.Error("persist apology message", "err", insertErr)
	}
	return err
}
