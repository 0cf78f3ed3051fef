package usecase_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpGoServer "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/i2y/switchboard-mcp/internal/domain"
	"github.com/i2y/switchboard-mcp/internal/usecase"
)

func newRoutedServer(t *testing.T, executor usecase.ToolExecutor) *mcpGoServer.MCPServer {
	t.Helper()
	repo := new(MockToolRepository)
	repo.On("List", mock.Anything).Return([]domain.ToolDefinition{{Name: "whoami", Description: "Whoami"}}, nil)

	var srv *mcpGoServer.MCPServer
	routing := usecase.NewUnknownToolRouting(executor, func(name string) bool { return srv.GetTool(name) != nil }, newTestLogger())
	opts := append([]mcpGoServer.ServerOption{mcpGoServer.WithToolCapabilities(true)}, routing.ServerOptions()...)
	srv = mcpGoServer.NewMCPServer("test", "1.0.0", opts...)

	_, err := usecase.NewRegisterToolsUseCase(repo, srv, executor, newTestLogger()).Execute(context.Background())
	require.NoError(t, err)
	routing.Register(srv)
	return srv
}

func handleMessage(t *testing.T, srv *mcpGoServer.MCPServer, method string, params any, out any) {
	t.Helper()
	paramsJSON, err := json.Marshal(params)
	require.NoError(t, err)

	msg := json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"` + method + `","params":` + string(paramsJSON) + `}`)
	resp, ok := srv.HandleMessage(context.Background(), msg).(mcp.JSONRPCResponse)
	require.True(t, ok, "expected JSONRPCResponse")

	data, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, out))
}

type textResult struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	IsError bool `json:"isError"`
}

func TestUnknownToolRouting(t *testing.T) {
	t.Run("unknown name reaches the executor", func(t *testing.T) {
		executor := new(MockToolExecutor)
		executor.On("Execute", mock.Anything, "nope", map[string]any(nil)).
			Return(domain.ErrorResult("Error: Unknown tool requested: nope")).Once()
		srv := newRoutedServer(t, executor)

		var res textResult
		handleMessage(t, srv, "tools/call", map[string]any{"name": "nope", "arguments": map[string]any{"x": 1}}, &res)

		require.Len(t, res.Content, 1)
		assert.Equal(t, "Error: Unknown tool requested: nope", res.Content[0].Text)
		assert.True(t, res.IsError)
		executor.AssertExpectations(t)
	})

	t.Run("calling the fallback directly is unknown too", func(t *testing.T) {
		executor := new(MockToolExecutor)
		executor.On("Execute", mock.Anything, usecase.UnknownToolName, map[string]any(nil)).
			Return(domain.ErrorResult("Error: Unknown tool requested: " + usecase.UnknownToolName)).Once()
		srv := newRoutedServer(t, executor)

		var res textResult
		handleMessage(t, srv, "tools/call", map[string]any{
			"name":      usecase.UnknownToolName,
			"arguments": map[string]any{"tool": "whoami"},
		}, &res)

		require.Len(t, res.Content, 1)
		assert.Equal(t, "Error: Unknown tool requested: "+usecase.UnknownToolName, res.Content[0].Text)
		executor.AssertExpectations(t)
	})

	t.Run("known names are untouched", func(t *testing.T) {
		executor := new(MockToolExecutor)
		executor.On("Execute", mock.Anything, "whoami", map[string]any{"verbose": true}).
			Return(domain.ToolResult{Text: "API Response (Status: 200):\nok", StatusCode: 200}).Once()
		srv := newRoutedServer(t, executor)

		var res textResult
		handleMessage(t, srv, "tools/call", map[string]any{"name": "whoami", "arguments": map[string]any{"verbose": true}}, &res)

		require.Len(t, res.Content, 1)
		assert.Equal(t, "API Response (Status: 200):\nok", res.Content[0].Text)
		assert.False(t, res.IsError)
		executor.AssertExpectations(t)
	})

	t.Run("fallback is hidden from tools/list", func(t *testing.T) {
		srv := newRoutedServer(t, new(MockToolExecutor))

		var res struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		}
		handleMessage(t, srv, "tools/list", map[string]any{}, &res)

		require.Len(t, res.Tools, 1)
		assert.Equal(t, "whoami", res.Tools[0].Name)
	})
}
