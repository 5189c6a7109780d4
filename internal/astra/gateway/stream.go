package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
	"github.com/oklog/ulid/v2"

	"github.com/astralab/astra/internal/astra/chat"
)

// streamEvent is one frame on the chat stream socket. IDs are ULIDs so
// clients can order and deduplicate events across reconnects.
type streamEvent struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	TurnID  string `json:"turn_id,omitempty"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

type streamRequest struct {
	Message string `json:"message"`
}

// handleChatStream upgrades to WebSocket and runs a send/stream loop: each
// text frame from the client is one user message, answered by a sequence of
// sentence/chunk frames ending in done or error. Frames for one turn are
// fully flushed before the next client message is read.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// The gateway binds to loopback; the shell connects from a
		// non-HTTP origin.
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Error("accept websocket", "err", err)
		return
	}
	defer ws.Close(websocket.StatusNormalClosure, "session ended")

	ctx := r.Context()
	s.logger.Info("chat stream opened", "remote", r.RemoteAddr)

	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			s.logger.Debug("chat stream closed", "err", err)
			return
		}

		var req streamRequest
		if err := json.Unmarshal(data, &req); err != nil {
			if writeErr := s.writeEvent(ctx, ws, streamEvent{
				Type:  "error",
				Error: "invalid message frame",
			}); writeErr != nil {
				return
			}
			continue
		}

		s.runStreamTurn(ctx, ws, req.Message)
	}
}

// runStreamTurn executes one turn and relays its events to the socket.
// Write failures stop the relay but not the turn: the pipeline still
// finalizes and persists so the client can recover via GET /api/messages.
func (s *Server) runStreamTurn(ctx context.Context, ws *websocket.Conn, message string) {
	var writeFailed bool
	emit := func(e chat.Event) {
		if writeFailed {
			return
		}
		ev := streamEvent{TurnID: e.TurnID}
		switch e.Kind {
		case chat.EventSentence:
			ev.Type = "sentence"
			ev.Content = e.Content
		case chat.EventContent:
			ev.Type = "chunk"
			ev.Content = e.Content
		case chat.EventDone:
			ev.Type = "done"
			ev.Content = e.FullResponse
		case chat.EventError:
			ev.Type = "error"
			ev.Error = e.ErrMsg
		}
		if err := s.writeEvent(ctx, ws, ev); err != nil {
			writeFailed = true
			s.logger.Debug("stream write failed", "err", err)
		}
	}

	if err := s.orch.ProcessUserMessage(ctx, message, emit); err != nil {
		// The error event has already been emitted by the pipeline.
		s.logger.Error("stream turn failed", "err", err)
	}
}

func (s *Server) writeEvent(ctx context.Context, ws *websocket.Conn, ev streamEvent) error {
	ev.ID = ulid.Make().String()
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return ws.Write(ctx, websocket.MessageText, data)
}
