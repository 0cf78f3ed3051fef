package usecase

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	mcpGoServer "github.com/mark3labs/mcp-go/server"
)

// UnknownToolName is the hidden tool that receives calls for names the
// server does not know. It never appears in tools/list.
const UnknownToolName = "switchboard_unknown_tool"

// requestedToolArgument carries the name the client actually asked for.
const requestedToolArgument = "tool"

// UnknownToolRouting makes calls for unregistered tool names produce a tool
// result ("Error: Unknown tool requested: <name>") instead of the JSON-RPC
// invalid-params error mcp-go would return on its own.
type UnknownToolRouting struct {
	executor ToolExecutor
	known    func(name string) bool
	logger   *slog.Logger
}

// NewUnknownToolRouting creates the routing. known reports whether a name is
// registered on the server.
func NewUnknownToolRouting(executor ToolExecutor, known func(name string) bool, logger *slog.Logger) *UnknownToolRouting {
	return &UnknownToolRouting{
		executor: executor,
		known:    known,
		logger:   logger.With("usecase", "UnknownToolRouting"),
	}
}

// ServerOptions returns the hook that redirects unknown names and the filter
// that hides the fallback tool. Pass them to server.NewMCPServer.
func (r *UnknownToolRouting) ServerOptions() []mcpGoServer.ServerOption {
	hooks := &mcpGoServer.Hooks{}
	hooks.AddBeforeCallTool(r.redirect)
	return []mcpGoServer.ServerOption{
		mcpGoServer.WithHooks(hooks),
		mcpGoServer.WithToolFilter(r.hide),
	}
}

// Register adds the fallback tool to the server.
func (r *UnknownToolRouting) Register(server MCPServerAdapter) {
	tool := mcp.NewTool(UnknownToolName, mcp.WithDescription("Reports calls to unknown tools."))
	server.AddTool(tool, r.handle)
}

func (r *UnknownToolRouting) redirect(_ context.Context, _ any, request *mcp.CallToolRequest) {
	name := request.Params.Name
	if name != UnknownToolName && r.known(name) {
		return
	}
	r.logger.Debug("Routing call for unknown tool", slog.String("tool_name", name))
	request.Params.Name = UnknownToolName
	request.Params.Arguments = map[string]any{requestedToolArgument: name}
}

func (r *UnknownToolRouting) hide(_ context.Context, tools []mcp.Tool) []mcp.Tool {
	out := make([]mcp.Tool, 0, len(tools))
	for _, t := range tools {
		if t.Name != UnknownToolName {
			out = append(out, t)
		}
	}
	return out
}

func (r *UnknownToolRouting) handle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, _ := request.GetArguments()[requestedToolArgument].(string)
	return CallToolResult(r.executor.Execute(ctx, name, nil)), nil
}
