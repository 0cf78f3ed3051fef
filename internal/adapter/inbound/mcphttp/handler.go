package mcphttp

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/i2y/switchboard-mcp/internal/domain"
)

// MCPPath is where the streamable HTTP MCP endpoint is mounted.
const MCPPath = "/mcp"

// ToolLister returns the registered tools. ServeToolsUseCase implements it.
type ToolLister interface {
	Execute(ctx context.Context) ([]domain.ToolDefinition, error)
}

// Handlers holds dependencies for the HTTP handlers.
type Handlers struct {
	tools  ToolLister
	logger *slog.Logger
}

// NewHandlers creates a new Handlers struct.
func NewHandlers(tools ToolLister, logger *slog.Logger) *Handlers {
	return &Handlers{
		tools:  tools,
		logger: logger.With("component", "mcphttp_handler"),
	}
}

// NewRouter mounts the MCP endpoint next to the health and admin routes.
func (h *Handlers) NewRouter(mcpHandler http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.handleHealth)
	r.Get("/admin/tools", h.handleListTools)
	r.Handle(MCPPath, mcpHandler)
	return r
}

// ToolSummary is one entry of GET /admin/tools.
type ToolSummary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Method      string `json:"method"`
	Path        string `json:"path"`
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	tools, err := h.tools.Execute(r.Context())
	if err != nil {
		h.logger.Error("Health check failed", slog.Any("error", err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "tools": len(tools)})
}

func (h *Handlers) handleListTools(w http.ResponseWriter, r *http.Request) {
	tools, err := h.tools.Execute(r.Context())
	if err != nil {
		h.logger.Error("Failed to list tools",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.Any("error", err))
		http.Error(w, "failed to list tools", http.StatusInternalServerError)
		return
	}

	out := make([]ToolSummary, 0, len(tools))
	for _, t := range tools {
		out = append(out, ToolSummary{
			Name:        t.Name,
			Description: t.Description,
			Method:      t.Method,
			Path:        t.PathTemplate,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
