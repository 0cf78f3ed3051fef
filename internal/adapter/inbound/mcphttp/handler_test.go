package mcphttp_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/i2y/switchboard-mcp/internal/adapter/inbound/mcphttp"
	"github.com/i2y/switchboard-mcp/internal/domain"
)

type MockToolLister struct {
	mock.Mock
}

func (m *MockToolLister) Execute(ctx context.Context) ([]domain.ToolDefinition, error) {
	args := m.Called(ctx)
	tools, _ := args.Get(0).([]domain.ToolDefinition)
	return tools, args.Error(1)
}

func newTestServer(t *testing.T, lister mcphttp.ToolLister, mcpHandler http.Handler) *httptest.Server {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	server := httptest.NewServer(mcphttp.NewHandlers(lister, logger).NewRouter(mcpHandler))
	t.Cleanup(server.Close)
	return server
}

var testTools = []domain.ToolDefinition{
	{Name: "list_broadcasts", Description: "List broadcasts", Method: "GET", PathTemplate: "/v1/broadcasts"},
	{Name: "whoami", Description: "Who am I", Method: "GET", PathTemplate: "/v1/whoami"},
}

func TestHealth(t *testing.T) {
	lister := new(MockToolLister)
	lister.On("Execute", mock.Anything).Return(testTools, nil)
	server := newTestServer(t, lister, http.NotFoundHandler())

	resp, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok","tools":2}`, string(body))
}

func TestHealth_RepositoryError(t *testing.T) {
	lister := new(MockToolLister)
	lister.On("Execute", mock.Anything).Return(nil, errors.New("boom"))
	server := newTestServer(t, lister, http.NotFoundHandler())

	resp, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestAdminTools(t *testing.T) {
	lister := new(MockToolLister)
	lister.On("Execute", mock.Anything).Return(testTools, nil)
	server := newTestServer(t, lister, http.NotFoundHandler())

	resp, err := http.Get(server.URL + "/admin/tools")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got []mcphttp.ToolSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, []mcphttp.ToolSummary{
		{Name: "list_broadcasts", Description: "List broadcasts", Method: "GET", Path: "/v1/broadcasts"},
		{Name: "whoami", Description: "Who am I", Method: "GET", Path: "/v1/whoami"},
	}, got)

	post, err := http.Post(server.URL+"/admin/tools", "application/json", nil)
	require.NoError(t, err)
	post.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, post.StatusCode)
}

func TestAdminTools_Error(t *testing.T) {
	lister := new(MockToolLister)
	lister.On("Execute", mock.Anything).Return(nil, errors.New("boom"))
	server := newTestServer(t, lister, http.NotFoundHandler())

	resp, err := http.Get(server.URL + "/admin/tools")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestMCPRouteIsMounted(t *testing.T) {
	var hits int
	mcpHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusAccepted)
	})
	server := newTestServer(t, new(MockToolLister), mcpHandler)

	for _, method := range []string{http.MethodPost, http.MethodGet, http.MethodDelete} {
		req, err := http.NewRequest(method, server.URL+mcphttp.MCPPath, nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusAccepted, resp.StatusCode, method)
	}
	assert.Equal(t, 3, hits)
}

func TestRecoversFromPanics(t *testing.T) {
	server := newTestServer(t, new(MockToolLister), http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("handler exploded")
	}))

	resp, err := http.Post(server.URL+mcphttp.MCPPath, "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}
