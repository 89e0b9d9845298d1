package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"vanguardd/internal/manager"
	"vanguardd/internal/orchestrator"
	"vanguardd/internal/retrieval"
	"vanguardd/pkg/types"
)

// Engine is the model-lifecycle/inference surface required by the HTTP layer.
type Engine interface {
	Ready() bool
	Health() types.HealthResponse
	Complete(ctx context.Context, msgs []types.ChatMessage, opts manager.GenOptions) (string, error)
}

// ConversationStore is the session persistence surface.
type ConversationStore interface {
	CreateSession(ctx context.Context, id, game, title string) error
	ListSessions(ctx context.Context, game string) ([]types.Session, error)
	AppendMessage(ctx context.Context, sessionID, role, content string) (types.Message, error)
	ListMessages(ctx context.Context, sessionID string) ([]types.Message, error)
}

// Searcher is the best-effort retrieval surface.
type Searcher interface {
	Search(ctx context.Context, query string, k int) retrieval.Context
}

// Generator runs one synthesis chain; one instance per endpoint profile.
type Generator interface {
	Profile() orchestrator.Profile
	Generate(ctx context.Context, req orchestrator.Request, rctx retrieval.Context) (orchestrator.Result, error)
}

// Server bundles the collaborators behind the HTTP surface.
type Server struct {
	Engine Engine
	Store  ConversationStore
	Search Searcher
	Guide  Generator
	Expert Generator
	Log    zerolog.Logger
}

// NewMux builds the chi router with all routes and middleware.
func NewMux(s *Server) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	// Frontend runs on a different origin; the gateway is loopback-only, so
	// allow-all matches the trust model.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
	}))
	r.Use(MetricsMiddleware)
	r.Use(RequestLogger(s.Log))
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", s.handleHealth)
	r.Post("/v1/chat/completions", s.handleChatCompletions)
	r.Post("/generate_guide", s.handleGenerateGuide)
	r.Post("/ask_expert", s.handleAskExpert)
	r.Get("/expert/sessions/{game}", s.handleListSessions)
	r.Post("/expert/sessions", s.handleCreateSession)
	r.Get("/expert/messages/{session_id}", s.handleListMessages)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if s.Engine.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("loading"))
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	MountSwagger(r)

	return r
}

// decodeJSON enforces content type and body size before decoding into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Engine.Health())
}

func (s *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req types.ChatCompletionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Messages) == 0 {
		writeJSONError(w, http.StatusBadRequest, "messages are required")
		return
	}
	temperature := defaultChatTemperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	maxTokens := defaultChatMaxTokens
	if req.MaxTokens != nil && *req.MaxTokens > 0 {
		maxTokens = *req.MaxTokens
	}

	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	text, err := s.Engine.Complete(ctx, req.Messages, manager.GenOptions{
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
			return
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.ChatCompletionResponse{
		ID:      "chatcmpl-" + uuid.NewString(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   "local-model",
		Choices: []types.ChatChoice{{
			Index:        0,
			Message:      types.ChatMessage{Role: types.RoleAssistant, Content: text},
			FinishReason: "stop",
		}},
	})
}

func (s *Server) handleGenerateGuide(w http.ResponseWriter, r *http.Request) {
	var req types.GuideRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Game) == "" || strings.TrimSpace(req.Achievement) == "" {
		writeJSONError(w, http.StatusBadRequest, "game and achievement are required")
		return
	}
	if !s.Engine.Ready() {
		writeJSONError(w, http.StatusServiceUnavailable, "Model not loaded. Brain is still initializing.")
		return
	}
	s.Log.Info().Str("game", req.Game).Str("achievement", req.Achievement).Msg("generating guide")

	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	profile := s.Guide.Profile()
	rctx := s.Search.Search(ctx, retrieval.Query(req.Game, req.Achievement, profile.SearchSuffix), profile.SearchResults)

	res, err := s.Guide.Generate(ctx, orchestrator.Request{Game: req.Game, Input: req.Achievement}, rctx)
	if err != nil {
		if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
			return
		}
		writeDomainError(w, err)
		return
	}
	if res.Origin == orchestrator.StageFallback {
		CountFallback(profile.Name)
	}
	writeJSON(w, http.StatusOK, types.GuideResponse{Guide: res.Text})
}

func (s *Server) handleAskExpert(w http.ResponseWriter, r *http.Request) {
	var req types.ExpertRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		writeJSONError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	if !s.Engine.Ready() {
		writeJSONError(w, http.StatusServiceUnavailable, "Model not loaded. Brain is still initializing.")
		return
	}
	s.Log.Info().Str("game", req.Game).Str("session_id", req.SessionID).Msg("expert query")

	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()

	// Persist the user turn before synthesis; a failed turn must not leave an
	// assistant message behind, so the answer is appended only on success.
	if _, err := s.Store.AppendMessage(ctx, req.SessionID, types.RoleUser, req.Question); err != nil {
		writeDomainError(w, err)
		return
	}

	profile := s.Expert.Profile()
	rctx := s.Search.Search(ctx, retrieval.Query(req.Game, req.Question, profile.SearchSuffix), profile.SearchResults)

	res, err := s.Expert.Generate(ctx, orchestrator.Request{Game: req.Game, Input: req.Question}, rctx)
	if err != nil {
		if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
			return
		}
		writeDomainError(w, err)
		return
	}
	if res.Origin == orchestrator.StageFallback {
		CountFallback(profile.Name)
	}
	if _, err := s.Store.AppendMessage(ctx, req.SessionID, types.RoleAssistant, res.Text); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.ExpertResponse{Answer: res.Text})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req types.SessionCreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ID) == "" || strings.TrimSpace(req.Game) == "" {
		writeJSONError(w, http.StatusBadRequest, "id and game are required")
		return
	}
	if err := s.Store.CreateSession(r.Context(), req.ID, req.Game, req.Title); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.StatusOK{Status: "ok"})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	game := chi.URLParam(r, "game")
	sessions, err := s.Store.ListSessions(r.Context(), game)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	msgs, err := s.Store.ListMessages(r.Context(), sessionID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}
