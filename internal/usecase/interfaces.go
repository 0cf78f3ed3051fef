package usecase

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	mcpGoServer "github.com/mark3labs/mcp-go/server"

	"github.com/i2y/switchboard-mcp/internal/domain"
)

// Standard errors returned by use cases and adapters.
var (
	ErrToolNotFound = errors.New("tool not found")
)

// --- Tool Storage ---

// ToolRepository stores the tool catalog.
type ToolRepository interface {
	// Save stores tool definitions. Names must be unique; a duplicate name
	// replaces the earlier definition in place.
	Save(ctx context.Context, tools []domain.ToolDefinition) error

	// List returns all stored tools in the order they were saved.
	List(ctx context.Context) ([]domain.ToolDefinition, error)

	// FindToolByName returns ErrToolNotFound for an unknown name.
	FindToolByName(ctx context.Context, name string) (*domain.ToolDefinition, error)
}

// --- Invocation Pipeline ---

// ArgumentValidator checks raw tool arguments and returns the coerced copy.
type ArgumentValidator interface {
	Validate(args map[string]any) (map[string]any, error)
}

// SchemaCompiler hands out the validator for a tool's input schema.
type SchemaCompiler interface {
	For(toolName string, schema map[string]any) ArgumentValidator
}

// RequestBuilder turns a definition plus validated arguments into an outbound request.
type RequestBuilder interface {
	Build(def domain.ToolDefinition, args map[string]any) (*domain.HTTPRequest, error)
}

// SecurityResolver chooses and applies credentials for a tool's security requirements.
type SecurityResolver interface {
	Resolve(ctx context.Context, toolName string, requirements []domain.SecurityRequirement) domain.AuthMutation
}

// ToolInvoker executes the outbound request and normalizes the outcome.
// It never returns a Go error; failures are error results.
type ToolInvoker interface {
	Execute(ctx context.Context, req *domain.HTTPRequest) domain.ToolResult
}

// --- MCP Server Abstraction ---

// MCPServerAdapter is the part of the mcp-go server the use cases need.
type MCPServerAdapter interface {
	AddTool(tool mcp.Tool, handlerFunc mcpGoServer.ToolHandlerFunc)
}
