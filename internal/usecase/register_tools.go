package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	mcpGoServer "github.com/mark3labs/mcp-go/server"

	"github.com/i2y/switchboard-mcp/internal/domain"
)

// ToolExecutor runs a tool call by name. InvokeToolUseCase implements it.
type ToolExecutor interface {
	Execute(ctx context.Context, toolName string, args map[string]any) domain.ToolResult
}

// RegisterToolsUseCase publishes every stored tool on the MCP server with a
// handler that routes calls through the executor.
type RegisterToolsUseCase struct {
	repository ToolRepository
	server     MCPServerAdapter
	executor   ToolExecutor
	logger     *slog.Logger
}

// NewRegisterToolsUseCase creates a new RegisterToolsUseCase.
func NewRegisterToolsUseCase(
	repository ToolRepository,
	server MCPServerAdapter,
	executor ToolExecutor,
	logger *slog.Logger,
) *RegisterToolsUseCase {
	return &RegisterToolsUseCase{
		repository: repository,
		server:     server,
		executor:   executor,
		logger:     logger.With("usecase", "RegisterTools"),
	}
}

// Execute registers all tools and returns how many were registered.
func (uc *RegisterToolsUseCase) Execute(ctx context.Context) (int, error) {
	tools, err := uc.repository.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list tools for registration: %w", err)
	}

	for _, def := range tools {
		tool, err := MCPTool(def)
		if err != nil {
			return 0, err
		}
		uc.server.AddTool(tool, uc.handlerFor(def.Name))
		uc.logger.Debug("Registered tool", slog.String("tool_name", def.Name))
	}

	uc.logger.Info("Registered tools with MCP server", slog.Int("count", len(tools)))
	return len(tools), nil
}

func (uc *RegisterToolsUseCase) handlerFor(toolName string) mcpGoServer.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := uc.executor.Execute(ctx, toolName, request.GetArguments())
		return CallToolResult(result), nil
	}
}

// MCPTool converts a definition into an mcp.Tool that advertises the input
// schema as-is.
func MCPTool(def domain.ToolDefinition) (mcp.Tool, error) {
	schema := def.InputSchema
	if schema == nil {
		schema = map[string]any{"type": "object"}
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return mcp.Tool{}, fmt.Errorf("failed to marshal input schema for tool %s: %w", def.Name, err)
	}
	return mcp.NewToolWithRawSchema(def.Name, def.Description, raw), nil
}

// CallToolResult wraps a tool result in a single text content block.
func CallToolResult(result domain.ToolResult) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(result.Text)},
		IsError: result.IsError,
	}
}
