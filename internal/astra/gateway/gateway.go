// Package gateway exposes the conversation pipeline to local clients over
// HTTP and WebSocket. It is a thin surface: request decoding, event
// relaying, and JSON rendering live here, the behavior lives in the chat,
// memory, and config packages.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/astralab/astra/internal/astra/chat"
	"github.com/astralab/astra/internal/astra/config"
	"github.com/astralab/astra/internal/astra/memory"
	"github.com/astralab/astra/internal/astra/store"
)

// Server holds the gateway's collaborators and builds its HTTP handler.
type Server struct {
	orch     *chat.Orchestrator
	mem      *memory.Manager
	settings *config.Settings
	logger   *slog.Logger
}

// New creates a gateway Server. If logger is nil, the default slog logger
// is used.
func New(orch *chat.Orchestrator, mem *memory.Manager, settings *config.Settings, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{orch: orch, mem: mem, settings: settings, logger: logger}
}

// Handler builds the chi route tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", s.handleChat)
		r.Get("/chat/stream", s.handleChatStream)

		r.Get("/messages", s.handleListMessages)
		r.Delete("/messages", s.handleClearMessages)

		r.Route("/memory", func(r chi.Router) {
			r.Get("/", s.handleListMemory)
			r.Post("/", s.handleAddMemory)
			r.Delete("/", s.handleClearMemory)
			r.Put("/{id}", s.handleUpdateMemory)
			r.Delete("/{id}", s.handleDeleteMemory)
		})

		r.Get("/settings", s.handleGetSettings)
		r.Patch("/settings", s.handlePatchSettings)
	})

	return r
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Response string `json:"response"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.respondError(w, http.StatusBadRequest, "message must not be empty")
		return
	}

	response, err := s.orch.ProcessUserMessageSync(r.Context(), req.Message)
	if err != nil {
		s.logger.Error("chat turn failed", "err", err)
		s.respondError(w, http.StatusBadGateway, "generation failed")
		return
	}
	s.respondJSON(w, http.StatusOK, chatResponse{Response: response})
}

type messageView struct {
	ID         int64  `json:"id"`
	Content    string `json:"content"`
	IsFromUser bool   `json:"is_from_user"`
	Timestamp  string `json:"timestamp"`
	HasError   bool   `json:"has_error,omitempty"`
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.orch.Messages(r.Context())
	if err != nil {
		s.logger.Error("list messages", "err", err)
		s.respondError(w, http.StatusInternalServerError, "storage error")
		return
	}
	views := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, messageView{
			ID:         m.ID,
			Content:    m.Content,
			IsFromUser: m.IsFromUser,
			Timestamp:  m.Timestamp.Format(time.RFC3339Nano),
			HasError:   m.HasError,
		})
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"messages": views})
}

func (s *Server) handleClearMessages(w http.ResponseWriter, r *http.Request) {
	if err := s.orch.ClearAllMessages(r.Context()); err != nil {
		s.logger.Error("clear messages", "err", err)
		s.respondError(w, http.StatusInternalServerError, "storage error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type factView struct {
	ID        int64  `json:"id"`
	Key       string `json:"key"`
	Value     string `json:"value"`
	Timestamp string `json:"timestamp"`
}

func factViewOf(f store.MemoryFact) factView {
	return factView{
		ID:        f.ID,
		Key:       f.Key,
		Value:     f.Value,
		Timestamp: f.Timestamp.Format(time.RFC3339Nano),
	}
}

func (s *Server) handleListMemory(w http.ResponseWriter, r *http.Request) {
	var (
		facts []store.MemoryFact
		err   error
	)
	if q := r.URL.Query().Get("q"); q != "" {
		facts, err = s.mem.Search(r.Context(), q)
	} else {
		facts, err = s.mem.All(r.Context())
	}
	if err != nil {
		s.logger.Error("list memory", "err", err)
		s.respondError(w, http.StatusInternalServerError, "storage error")
		return
	}
	views := make([]factView, 0, len(facts))
	for _, f := range facts {
		views = append(views, factViewOf(f))
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"facts": views})
}

type addFactRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (s *Server) handleAddMemory(w http.ResponseWriter, r *http.Request) {
	var req addFactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Key = strings.TrimSpace(req.Key)
	req.Value = strings.TrimSpace(req.Value)
	if req.Key == "" || req.Value == "" {
		s.respondError(w, http.StatusBadRequest, "key and value must not be empty")
		return
	}

	fact, err := s.mem.Add(r.Context(), req.Key, req.Value)
	if err != nil {
		s.logger.Error("add memory fact", "err", err)
		s.respondError(w, http.StatusInternalServerError, "storage error")
		return
	}
	s.respondJSON(w, http.StatusCreated, factViewOf(*fact))
}

func (s *Server) handleUpdateMemory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid fact id")
		return
	}

	var req addFactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Key = strings.TrimSpace(req.Key)
	req.Value = strings.TrimSpace(req.Value)
	if req.Key == "" || req.Value == "" {
		s.respondError(w, http.StatusBadRequest, "key and value must not be empty")
		return
	}

	fact := store.MemoryFact{ID: id, Key: req.Key, Value: req.Value}
	if err := s.mem.Update(r.Context(), &fact); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "no such fact")
			return
		}
		s.logger.Error("update memory fact", "err", err)
		s.respondError(w, http.StatusInternalServerError, "storage error")
		return
	}
	s.respondJSON(w, http.StatusOK, factViewOf(fact))
}

func (s *Server) handleDeleteMemory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid fact id")
		return
	}
	if err := s.mem.Delete(r.Context(), id); err != nil {
		s.logger.Error("delete memory fact", "err", err)
		s.respondError(w, http.StatusInternalServerError, "storage error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearMemory(w http.ResponseWriter, r *http.Request) {
	if err := s.mem.Clear(r.Context()); err != nil {
		s.logger.Error("clear memory", "err", err)
		s.respondError(w, http.StatusInternalServerError, "storage error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type settingsView struct {
	MemoryEnabled      bool `json:"memory_enabled"`
	VoiceOutputEnabled bool `json:"voice_output_enabled"`
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	snap := s.settings.Snapshot()
	s.respondJSON(w, http.StatusOK, settingsView{
		MemoryEnabled:      snap.MemoryEnabled,
		VoiceOutputEnabled: snap.VoiceOutputEnabled,
	})
}

type settingsPatch struct {
	MemoryEnabled      *bool `json:"memory_enabled"`
	VoiceOutputEnabled *bool `json:"voice_output_enabled"`
}

func (s *Server) handlePatchSettings(w http.ResponseWriter, r *http.Request) {
	var patch settingsPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if patch.MemoryEnabled != nil {
		s.settings.SetMemoryEnabled(*patch.MemoryEnabled)
	}
	if patch.VoiceOutputEnabled != nil {
		s.settings.SetVoiceOutputEnabled(*patch.VoiceOutputEnabled)
	}
	s.handleGetSettings(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	// A cheap storage round-trip doubles as the readiness probe.
	if _, err := s.orch.Messages(r.Context()); err != nil {
		s.respondError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("write response", "err", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	s.respondJSON(w, status, map[string]string{"error": msg})
}

const shutdownTimeout = 5 * time.Second

// ListenAndServe runs the gateway until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("gateway listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
