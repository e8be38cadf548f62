package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/taleweave"
	"github.com/aretw0/taleweave/internal/logging"
	"github.com/aretw0/taleweave/pkg/dialogue"
	"github.com/aretw0/taleweave/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// PathResponse is the structured result of the branch tools.
type PathResponse struct {
	CharacterID string                `json:"character_id" jsonschema_description:"Character whose dialogue was read"`
	Path        []domain.DialogueNode `json:"path" jsonschema_description:"Nodes from the first turn to the current node"`
}

// InitializeResponse is the structured result of initialize_dialogue.
type InitializeResponse struct {
	NodeID string `json:"node_id" jsonschema_description:"Id of the opening turn"`
}

// Engine defines the Turn API the MCP server exposes.
type Engine interface {
	InitializeDialogue(ctx context.Context, characterID string, rc domain.RuntimeConfig) (string, error)
	RunTurn(ctx context.Context, characterID, userMessage string, rc domain.RuntimeConfig, nodeID string) (*taleweave.TurnResult, error)
	SwitchBranch(ctx context.Context, characterID, nodeID string) ([]domain.DialogueNode, error)
	DeleteNode(ctx context.Context, characterID, nodeID string, policy dialogue.DeletePolicy) ([]domain.DialogueNode, error)
	EditNode(ctx context.Context, characterID, nodeID, content string) (*domain.DialogueNode, error)
	Path(ctx context.Context, characterID string) ([]domain.DialogueNode, error)
	Tree(ctx context.Context, characterID string) (*domain.DialogueTree, error)
}

// CharacterLister backs the taleweave://characters resource.
type CharacterLister interface {
	List(ctx context.Context) ([]domain.Character, error)
}

// Server wraps the taleweave Engine and exposes it as an MCP Server.
type Server struct {
	engine     Engine
	characters CharacterLister
	mcpServer  *server.MCPServer
	logger     *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithCharacters exposes the character list as a resource.
func WithCharacters(c CharacterLister) Option {
	return func(s *Server) {
		s.characters = c
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		mcpServer: server.NewMCPServer("taleweave-mcp", strings.TrimSpace(taleweave.Version)),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops it when
// ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, Baggage, Sentry-Trace")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("initialize_dialogue",
		mcp.WithDescription("Open a character's dialogue with its first message and alternate greetings. Fails if the dialogue already has turns."),
		mcp.WithString("character_id", mcp.Required(), mcp.Description("Character id")),
		mcp.WithString("runtime_config", mcp.Description("JSON object with model, temperature, max_tokens, top_p, preset_id, user_name (optional)")),
		mcp.WithOutputSchema[InitializeResponse](),
	), mcp.NewStructuredToolHandler(s.handleInitialize))

	s.mcpServer.AddTool(mcp.NewTool("run_turn",
		mcp.WithDescription("Send one user message and append the generated reply below the current node."),
		mcp.WithString("character_id", mcp.Required(), mcp.Description("Character id")),
		mcp.WithString("message", mcp.Required(), mcp.Description("User message")),
		mcp.WithString("node_id", mcp.Description("Id for the new node (optional, generated when empty)")),
		mcp.WithString("runtime_config", mcp.Description("JSON object of generation overrides (optional)")),
		mcp.WithOutputSchema[taleweave.TurnResult](),
	), mcp.NewStructuredToolHandler(s.handleRunTurn))

	s.mcpServer.AddTool(mcp.NewTool("switch_branch",
		mcp.WithDescription("Move the current pointer to another node and return the path to it."),
		mcp.WithString("character_id", mcp.Required(), mcp.Description("Character id")),
		mcp.WithString("node_id", mcp.Required(), mcp.Description("Target node id")),
		mcp.WithOutputSchema[PathResponse](),
	), mcp.NewStructuredToolHandler(s.handleSwitchBranch))

	s.mcpServer.AddTool(mcp.NewTool("delete_node",
		mcp.WithDescription("Delete a node. Policy 'orphan' keeps descendants, 'cascade' removes them."),
		mcp.WithString("character_id", mcp.Required(), mcp.Description("Character id")),
		mcp.WithString("node_id", mcp.Required(), mcp.Description("Node to delete")),
		mcp.WithString("policy", mcp.Description("orphan (default) or cascade")),
		mcp.WithOutputSchema[PathResponse](),
	), mcp.NewStructuredToolHandler(s.handleDeleteNode))

	s.mcpServer.AddTool(mcp.NewTool("edit_node",
		mcp.WithDescription("Replace the text shown for a node."),
		mcp.WithString("character_id", mcp.Required(), mcp.Description("Character id")),
		mcp.WithString("node_id", mcp.Required(), mcp.Description("Node to edit")),
		mcp.WithString("content", mcp.Required(), mcp.Description("New assistant text")),
		mcp.WithOutputSchema[domain.DialogueNode](),
	), mcp.NewStructuredToolHandler(s.handleEditNode))

	s.mcpServer.AddTool(mcp.NewTool("get_path",
		mcp.WithDescription("Return the path from the first turn to the current node."),
		mcp.WithString("character_id", mcp.Required(), mcp.Description("Character id")),
		mcp.WithOutputSchema[PathResponse](),
	), mcp.NewStructuredToolHandler(s.handleGetPath))

	s.mcpServer.AddTool(mcp.NewTool("get_tree",
		mcp.WithDescription("Return the character's whole dialogue tree."),
		mcp.WithString("character_id", mcp.Required(), mcp.Description("Character id")),
		mcp.WithOutputSchema[domain.DialogueTree](),
	), mcp.NewStructuredToolHandler(s.handleGetTree))
}

// Handler methods for structured tools

func (s *Server) handleInitialize(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (InitializeResponse, error) {
	characterID, err := requireString(args, "character_id")
	if err != nil {
		return InitializeResponse{}, err
	}
	rc, err := runtimeConfig(args)
	if err != nil {
		return InitializeResponse{}, err
	}
	nodeID, err := s.engine.InitializeDialogue(ctx, characterID, rc)
	if err != nil {
		s.logger.Warn("MCP InitializeDialogue failed", "character", characterID, "error", err)
		return InitializeResponse{}, fmt.Errorf("initialize failed: %w", err)
	}
	return InitializeResponse{NodeID: nodeID}, nil
}

func (s *Server) handleRunTurn(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (taleweave.TurnResult, error) {
	characterID, err := requireString(args, "character_id")
	if err != nil {
		return taleweave.TurnResult{}, err
	}
	message, _ := args["message"].(string)
	nodeID, _ := args["node_id"].(string)
	rc, err := runtimeConfig(args)
	if err != nil {
		return taleweave.TurnResult{}, err
	}

	res, err := s.engine.RunTurn(ctx, characterID, message, rc, nodeID)
	if err != nil {
		s.logger.Warn("MCP RunTurn failed", "character", characterID, "error", err)
		return taleweave.TurnResult{}, fmt.Errorf("turn failed: %w", err)
	}
	return *res, nil
}

func (s *Server) handleSwitchBranch(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (PathResponse, error) {
	characterID, err := requireString(args, "character_id")
	if err != nil {
		return PathResponse{}, err
	}
	nodeID, err := requireString(args, "node_id")
	if err != nil {
		return PathResponse{}, err
	}
	path, err := s.engine.SwitchBranch(ctx, characterID, nodeID)
	if err != nil {
		return PathResponse{}, fmt.Errorf("switch failed: %w", err)
	}
	return PathResponse{CharacterID: characterID, Path: path}, nil
}

func (s *Server) handleDeleteNode(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (PathResponse, error) {
	characterID, err := requireString(args, "character_id")
	if err != nil {
		return PathResponse{}, err
	}
	nodeID, err := requireString(args, "node_id")
	if err != nil {
		return PathResponse{}, err
	}
	raw, _ := args["policy"].(string)
	policy, err := dialogue.ParseDeletePolicy(raw)
	if err != nil {
		return PathResponse{}, err
	}
	path, err := s.engine.DeleteNode(ctx, characterID, nodeID, policy)
	if err != nil {
		return PathResponse{}, fmt.Errorf("delete failed: %w", err)
	}
	return PathResponse{CharacterID: characterID, Path: path}, nil
}

func (s *Server) handleEditNode(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (domain.DialogueNode, error) {
	characterID, err := requireString(args, "character_id")
	if err != nil {
		return domain.DialogueNode{}, err
	}
	nodeID, err := requireString(args, "node_id")
	if err != nil {
		return domain.DialogueNode{}, err
	}
	content, _ := args["content"].(string)
	node, err := s.engine.EditNode(ctx, characterID, nodeID, content)
	if err != nil {
		return domain.DialogueNode{}, fmt.Errorf("edit failed: %w", err)
	}
	return *node, nil
}

func (s *Server) handleGetPath(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (PathResponse, error) {
	characterID, err := requireString(args, "character_id")
	if err != nil {
		return PathResponse{}, err
	}
	path, err := s.engine.Path(ctx, characterID)
	if err != nil {
		return PathResponse{}, fmt.Errorf("get path failed: %w", err)
	}
	return PathResponse{CharacterID: characterID, Path: path}, nil
}

func (s *Server) handleGetTree(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (domain.DialogueTree, error) {
	characterID, err := requireString(args, "character_id")
	if err != nil {
		return domain.DialogueTree{}, err
	}
	tree, err := s.engine.Tree(ctx, characterID)
	if err != nil {
		return domain.DialogueTree{}, fmt.Errorf("get tree failed: %w", err)
	}
	return *tree, nil
}

func (s *Server) registerResources() {
	if s.characters == nil {
		return
	}
	s.mcpServer.AddResource(mcp.NewResource("taleweave://characters", "Characters",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		chars, err := s.characters.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list characters: %w", err)
		}
		jsonBytes, _ := json.Marshal(chars)

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "taleweave://characters",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}

var errMissingArgument = errors.New("missing argument")

func requireString(args map[string]interface{}, key string) (string, error) {
	v, _ := args[key].(string)
	if strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("%w: %s", errMissingArgument, key)
	}
	return v, nil
}

// runtimeConfig decodes the optional runtime_config argument, given either
// as a JSON string or as an object.
func runtimeConfig(args map[string]interface{}) (domain.RuntimeConfig, error) {
	var rc domain.RuntimeConfig
	var raw []byte
	switch v := args["runtime_config"].(type) {
	case nil:
		return rc, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return rc, nil
		}
		raw = []byte(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return rc, fmt.Errorf("invalid runtime_config: %w", err)
		}
		raw = b
	}
	if err := json.Unmarshal(raw, &rc); err != nil {
		return rc, fmt.Errorf("invalid runtime_config: %w", err)
	}
	return rc, nil
}
