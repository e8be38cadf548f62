package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/taleweave"
	"github.com/aretw0/taleweave/internal/logging"
	"github.com/aretw0/taleweave/pkg/character"
	"github.com/aretw0/taleweave/pkg/dialogue"
	"github.com/aretw0/taleweave/pkg/domain"
	"github.com/aretw0/taleweave/pkg/regex"
	"github.com/aretw0/taleweave/pkg/worldbook"
	"github.com/go-chi/chi/v5"
)

// Engine is the Turn API served over HTTP. *taleweave.Engine satisfies it.
type Engine interface {
	InitializeDialogue(ctx context.Context, characterID string, rc domain.RuntimeConfig) (string, error)
	RunTurn(ctx context.Context, characterID, userMessage string, rc domain.RuntimeConfig, nodeID string) (*taleweave.TurnResult, error)
	SwitchBranch(ctx context.Context, characterID, nodeID string) ([]domain.DialogueNode, error)
	DeleteNode(ctx context.Context, characterID, nodeID string, policy dialogue.DeletePolicy) ([]domain.DialogueNode, error)
	EditNode(ctx context.Context, characterID, nodeID, content string) (*domain.DialogueNode, error)
	Path(ctx context.Context, characterID string) ([]domain.DialogueNode, error)
	Tree(ctx context.Context, characterID string) (*domain.DialogueTree, error)
}

// Server holds the HTTP handlers.
type Server struct {
	Engine     Engine
	Streams    *StreamManager
	Characters *character.Service
	WorldBooks *worldbook.Service
	Regex      *regex.Service

	logger *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithCharacters exposes character CRUD under /characters.
func WithCharacters(svc *character.Service) Option {
	return func(s *Server) {
		s.Characters = svc
	}
}

// WithWorldBooks exposes world-book CRUD under /characters/{id}/worldbook.
func WithWorldBooks(svc *worldbook.Service) Option {
	return func(s *Server) {
		s.WorldBooks = svc
	}
}

// WithRegexScripts exposes regex script CRUD under /regex/{owner}.
func WithRegexScripts(svc *regex.Service) Option {
	return func(s *Server) {
		s.Regex = svc
	}
}

// WithEngineServices exposes every resource service owned by the engine.
func WithEngineServices(e *taleweave.Engine) Option {
	return func(s *Server) {
		s.Characters = e.Characters
		s.WorldBooks = e.WorldBooks
		s.Regex = e.Regex
	}
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{
		Engine:  engine,
		Streams: NewStreamManager(),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)

	r.Post("/characters/{characterID}/dialogue", s.InitializeDialogue)
	r.Post("/characters/{characterID}/turns", s.RunTurn)
	r.Get("/characters/{characterID}/tree", s.GetTree)
	r.Get("/characters/{characterID}/path", s.GetPath)
	r.Put("/characters/{characterID}/current", s.SwitchBranch)
	r.Delete("/characters/{characterID}/nodes/{nodeID}", s.DeleteNode)
	r.Patch("/characters/{characterID}/nodes/{nodeID}", s.EditNode)
	r.Get("/characters/{characterID}/events", s.SubscribeEvents)
	s.mountResources(r)

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// InitializeRequest is the body of POST /characters/{id}/dialogue.
type InitializeRequest struct {
	RuntimeConfig domain.RuntimeConfig `json:"runtime_config"`
}

// TurnRequest is the body of POST /characters/{id}/turns.
type TurnRequest struct {
	Message       string               `json:"message"`
	NodeID        string               `json:"node_id,omitempty"`
	RuntimeConfig domain.RuntimeConfig `json:"runtime_config"`
}

// SwitchRequest is the body of PUT /characters/{id}/current.
type SwitchRequest struct {
	NodeID string `json:"node_id"`
}

// EditRequest is the body of PATCH /characters/{id}/nodes/{node}.
type EditRequest struct {
	Content string `json:"content"`
}

// PathResponse wraps a root-first node path.
type PathResponse struct {
	Path []domain.DialogueNode `json:"path"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	Field string `json:"field,omitempty"`
}

// InitializeDialogue handles POST /characters/{id}/dialogue.
func (s *Server) InitializeDialogue(w http.ResponseWriter, r *http.Request) {
	var body InitializeRequest
	if !s.decodeOptional(w, r, &body) {
		return
	}
	characterID := chi.URLParam(r, "characterID")

	nodeID, err := s.Engine.InitializeDialogue(r.Context(), characterID, body.RuntimeConfig)
	if err != nil {
		s.writeError(w, "InitializeDialogue", err)
		return
	}
	s.publish(characterID, "initialized", map[string]string{"node_id": nodeID})
	s.writeJSON(w, http.StatusCreated, map[string]string{"node_id": nodeID})
}

// RunTurn handles POST /characters/{id}/turns.
func (s *Server) RunTurn(w http.ResponseWriter, r *http.Request) {
	var body TurnRequest
	if !s.decode(w, r, &body) {
		return
	}
	characterID := chi.URLParam(r, "characterID")

	res, err := s.Engine.RunTurn(r.Context(), characterID, body.Message, body.RuntimeConfig, body.NodeID)
	if err != nil {
		s.writeError(w, "RunTurn", err)
		return
	}
	s.publish(characterID, "turn", res)
	s.writeJSON(w, http.StatusOK, res)
}

// GetTree handles GET /characters/{id}/tree.
func (s *Server) GetTree(w http.ResponseWriter, r *http.Request) {
	tree, err := s.Engine.Tree(r.Context(), chi.URLParam(r, "characterID"))
	if err != nil {
		s.writeError(w, "GetTree", err)
		return
	}
	s.writeJSON(w, http.StatusOK, tree)
}

// GetPath handles GET /characters/{id}/path.
func (s *Server) GetPath(w http.ResponseWriter, r *http.Request) {
	path, err := s.Engine.Path(r.Context(), chi.URLParam(r, "characterID"))
	if err != nil {
		s.writeError(w, "GetPath", err)
		return
	}
	s.writeJSON(w, http.StatusOK, PathResponse{Path: path})
}

// SwitchBranch handles PUT /characters/{id}/current.
func (s *Server) SwitchBranch(w http.ResponseWriter, r *http.Request) {
	var body SwitchRequest
	if !s.decode(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.NodeID) == "" {
		s.writeError(w, "SwitchBranch", &domain.ValidationError{Field: "node_id", Reason: "node id is required"})
		return
	}
	characterID := chi.URLParam(r, "characterID")

	path, err := s.Engine.SwitchBranch(r.Context(), characterID, body.NodeID)
	if err != nil {
		s.writeError(w, "SwitchBranch", err)
		return
	}
	s.publish(characterID, "switched", map[string]string{"node_id": body.NodeID})
	s.writeJSON(w, http.StatusOK, PathResponse{Path: path})
}

// DeleteNode handles DELETE /characters/{id}/nodes/{node}?policy=orphan|cascade.
func (s *Server) DeleteNode(w http.ResponseWriter, r *http.Request) {
	policy, err := dialogue.ParseDeletePolicy(r.URL.Query().Get("policy"))
	if err != nil {
		s.writeError(w, "DeleteNode", err)
		return
	}
	characterID := chi.URLParam(r, "characterID")
	nodeID := chi.URLParam(r, "nodeID")

	path, err := s.Engine.DeleteNode(r.Context(), characterID, nodeID, policy)
	if err != nil {
		s.writeError(w, "DeleteNode", err)
		return
	}
	s.publish(characterID, "deleted", map[string]string{"node_id": nodeID, "policy": policy.String()})
	s.writeJSON(w, http.StatusOK, PathResponse{Path: path})
}

// EditNode handles PATCH /characters/{id}/nodes/{node}.
func (s *Server) EditNode(w http.ResponseWriter, r *http.Request) {
	var body EditRequest
	if !s.decode(w, r, &body) {
		return
	}
	characterID := chi.URLParam(r, "characterID")

	node, err := s.Engine.EditNode(r.Context(), characterID, chi.URLParam(r, "nodeID"), body.Content)
	if err != nil {
		s.writeError(w, "EditNode", err)
		return
	}
	s.publish(characterID, "edited", map[string]string{"node_id": node.NodeID})
	s.writeJSON(w, http.StatusOK, node)
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "taleweave-http",
		"version": strings.TrimSpace(taleweave.Version),
	})
}

// publish broadcasts a dialogue event to the character's SSE subscribers.
func (s *Server) publish(characterID, event string, payload any) {
	data, err := json.Marshal(map[string]any{"event": event, "data": payload})
	if err != nil {
		s.logger.Warn("Event encode failed", "event", event, "error", err)
		return
	}
	s.Streams.Broadcast(characterID, string(data))
}

// StatusFor maps an error to the HTTP status it is reported with.
func StatusFor(err error) (int, string) {
	var validation *domain.ValidationError
	var execution *domain.ExecutionError
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict, "conflict"
	case errors.As(err, &execution):
		return http.StatusBadGateway, "execution"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (s *Server) writeError(w http.ResponseWriter, op string, err error) {
	status, kind := StatusFor(err)
	resp := ErrorResponse{Error: err.Error(), Kind: kind}
	var validation *domain.ValidationError
	if errors.As(err, &validation) {
		resp.Field = validation.Field
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", "error", err)
	} else {
		s.logger.Warn(op+" rejected", "status", status, "error", err)
	}
	s.writeJSON(w, status, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "error", err)
	}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeError(w, "Decode", &domain.ValidationError{Reason: fmt.Sprintf("invalid request body: %v", err)})
		return false
	}
	return true
}

// decodeOptional accepts an empty body.
func (s *Server) decodeOptional(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, "Decode", &domain.ValidationError{Reason: fmt.Sprintf("invalid request body: %v", err)})
		return false
	}
	return true
}
