package gateway

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/astralab/astra/internal/astra/llm"
)

func readEvent(t *testing.T, ctx context.Context, ws *websocket.Conn) streamEvent {
	t.Helper()
	_, data, err := ws.Read(ctx)
	if err != nil {
		t.Fatalf("read event: %v", err)
	}
	var ev streamEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("decode event %q: %v", data, err)
	}
	return ev
}

func TestChatStream(t *testing.T) {
	ft := &fakeTransport{chunks: []llm.StreamingChunk{
		{Content: "Hello there. "},
		{Content: "How can I help?"},
		{Done: true},
	}}
	srv, _, _ := newTestServer(t, ft)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/chat/stream"
	ws, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close(websocket.StatusNormalClosure, "")

	req, _ := json.Marshal(streamRequest{Message: "hi"})
	if err := ws.Write(ctx, websocket.MessageText, req); err != nil {
		t.Fatalf("write: %v", err)
	}

	var sentences []string
	var done *streamEvent
	seen := map[string]bool{}
	for done == nil {
		ev := readEvent(t, ctx, ws)
		if ev.ID == "" || seen[ev.ID] {
			t.Fatalf("event ID missing or duplicated: %+v", ev)
		}
		seen[ev.ID] = true

		switch ev.Type {
		case "sentence":
			sentences = append(sentences, ev.Content)
		case "chunk":
		case "done":
			d := ev
			done = &d
		case "error":
			t.Fatalf("unexpected error event: %+v", ev)
		}
	}

	if len(sentences) != 2 {
		t.Errorf("sentences = %v", sentences)
	}
	if done.Content != "Hello there. How can I help?" {
		t.Errorf("done content = %q", done.Content)
	}
	if done.TurnID == "" {
		t.Error("done event missing turn id")
	}
}

func TestChatStream_InvalidFrame(t *testing.T) {
	srv, _, _ := newTestServer(t, &fakeTransport{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/chat/stream"
	ws, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close(websocket.StatusNormalClosure, "")

	if err := ws.Write(ctx, websocket.MessageText, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	ev := readEvent(t, ctx, ws)
	if ev.Type != "error" {
		t.Errorf("event = %+v, want error frame", ev)
	}

	// The socket survives a bad frame.
	req, _ := json.Marshal(streamRequest{Message: ""})
	if err := ws.Write(ctx, websocket.MessageText, req); err != nil {
		t.Errorf("socket unusable after bad frame: %v", err)
	}
}
