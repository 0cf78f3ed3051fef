package httpinvoker_test

import (
	"errors"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i2y/switchboard-mcp/internal/adapter/outbound/catalog"
	"github.com/i2y/switchboard-mcp/internal/adapter/outbound/httpinvoker"
	"github.com/i2y/switchboard-mcp/internal/domain"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func catalogTool(t *testing.T, name string) domain.ToolDefinition {
	t.Helper()
	cat, err := catalog.LoadEmbedded()
	require.NoError(t, err)
	for _, tool := range cat.Tools {
		if tool.Name == name {
			return tool
		}
	}
	t.Fatalf("tool %s not in catalog", name)
	return domain.ToolDefinition{}
}

func TestBuilder_GetBroadcast(t *testing.T) {
	b := httpinvoker.NewBuilder("https://api.example.com", newTestLogger())

	req, err := b.Build(catalogTool(t, "get_broadcast"), map[string]any{"broadcast_id": "bc_123"})
	require.NoError(t, err)

	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, "https://api.example.com/v1/broadcasts/bc_123", req.URL)
	assert.Equal(t, map[string]string{"accept": "application/json"}, req.Headers)
	assert.Empty(t, req.Query)
	assert.False(t, req.HasBody)
	assert.Nil(t, req.Body)
}

func TestBuilder_MissingPathParameter(t *testing.T) {
	b := httpinvoker.NewBuilder("https://api.example.com", newTestLogger())

	_, err := b.Build(catalogTool(t, "get_broadcast"), map[string]any{})
	require.Error(t, err)

	var defErr *httpinvoker.DefinitionError
	require.True(t, errors.As(err, &defErr))
	assert.Equal(t, "Failed to resolve path parameters: /v1/broadcasts/{broadcast_id}", err.Error())
}

func TestBuilder_EveryCatalogPathResolves(t *testing.T) {
	cat, err := catalog.LoadEmbedded()
	require.NoError(t, err)
	b := httpinvoker.NewBuilder(cat.BaseURL, newTestLogger())

	for _, tool := range cat.Tools {
		args := map[string]any{}
		for _, name := range tool.PathParameters() {
			args[name] = "id_1"
		}
		req, err := b.Build(tool, args)
		require.NoError(t, err, tool.Name)
		assert.NotContains(t, req.URL, "{", tool.Name)
		assert.NotContains(t, req.URL, "}", tool.Name)

		if params := tool.PathParameters(); len(params) > 0 {
			delete(args, params[0])
			_, err := b.Build(tool, args)
			var defErr *httpinvoker.DefinitionError
			assert.True(t, errors.As(err, &defErr), tool.Name)
		}
	}
}

func TestBuilder_Parameters(t *testing.T) {
	def := domain.ToolDefinition{
		Name:         "search",
		Method:       "POST",
		PathTemplate: "/v1/things/{thing_id}/items",
		ExecutionParameters: []domain.ExecutionParameter{
			{Name: "thing_id", In: domain.ParameterInPath},
			{Name: "cursor", In: domain.ParameterInQuery},
			{Name: "limit", In: domain.ParameterInQuery},
			{Name: "ids", In: domain.ParameterInQuery},
			{Name: "skip", In: domain.ParameterInQuery},
			{Name: "X-Request-Id", In: domain.ParameterInHeader},
			{Name: "Accept", In: domain.ParameterInHeader},
		},
		RequestBodyContentType: "application/json",
	}
	b := httpinvoker.NewBuilder("https://api.example.com/", newTestLogger())

	req, err := b.Build(def, map[string]any{
		"thing_id":     "a b/c?d",
		"cursor":       "next",
		"limit":        float64(25),
		"ids":          []any{"x", "y"},
		"skip":         nil,
		"X-Request-Id": "req-1",
		"Accept":       "text/csv",
		"requestBody":  map[string]any{"name": "n"},
	})
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com/v1/things/a%20b%2Fc%3Fd/items", req.URL)
	assert.Equal(t, url.Values{"cursor": {"next"}, "limit": {"25"}, "ids": {"x", "y"}}, req.Query)
	assert.Equal(t, map[string]string{
		"accept":       "text/csv",
		"x-request-id": "req-1",
		"content-type": "application/json",
	}, req.Headers)
	assert.True(t, req.HasBody)
	assert.Equal(t, map[string]any{"name": "n"}, req.Body)
}

func TestBuilder_BodyRequiresContentType(t *testing.T) {
	def := domain.ToolDefinition{Name: "ping", Method: "POST", PathTemplate: "/ping"}
	b := httpinvoker.NewBuilder("https://api.example.com", newTestLogger())

	req, err := b.Build(def, map[string]any{"requestBody": "{}"})
	require.NoError(t, err)
	assert.False(t, req.HasBody)
	assert.NotContains(t, req.Headers, "content-type")
}

func TestBuilder_EncodesLikeURIComponent(t *testing.T) {
	def := domain.ToolDefinition{
		Name:                "get",
		Method:              "GET",
		PathTemplate:        "/v1/{id}",
		ExecutionParameters: []domain.ExecutionParameter{{Name: "id", In: domain.ParameterInPath}},
	}
	b := httpinvoker.NewBuilder("https://api.example.com", newTestLogger())

	tests := []struct {
		name string
		in   any
		want string
	}{
		{"unreserved", "-_.!~*'()", "-_.!~*'()"},
		{"reserved", "a+b&c=d#e", "a%2Bb%26c%3Dd%23e"},
		{"utf8", "é", "%C3%A9"},
		{"float", 12.5, "12.5"},
		{"whole number", float64(7), "7"},
		{"bool", true, "true"},
		{"array", []any{float64(1), float64(2)}, "1%2C2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := b.Build(def, map[string]any{"id": tt.in})
			require.NoError(t, err)
			assert.Equal(t, tt.want, strings.TrimPrefix(req.URL, "https://api.example.com/v1/"))
		})
	}
}
