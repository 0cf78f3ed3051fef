package security_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/i2y/switchboard-mcp/internal/adapter/outbound/security"
	"github.com/i2y/switchboard-mcp/internal/domain"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type MockTokenSource struct {
	mock.Mock
}

func (m *MockTokenSource) Token(ctx context.Context, name string, scheme domain.SecurityScheme, creds domain.SchemeCredentials) (string, bool) {
	args := m.Called(ctx, name, scheme, creds)
	return args.String(0), args.Bool(1)
}

var testSchemes = map[string]domain.SecurityScheme{
	"HTTPBasic":   {Type: domain.SchemeTypeHTTP, HTTPScheme: "basic"},
	"Bearer":      {Type: domain.SchemeTypeHTTP, HTTPScheme: "bearer"},
	"HeaderKey":   {Type: domain.SchemeTypeAPIKey, In: domain.APIKeyInHeader, Name: "X-API-Key"},
	"QueryKey":    {Type: domain.SchemeTypeAPIKey, In: domain.APIKeyInQuery, Name: "api_key"},
	"SessionKey":  {Type: domain.SchemeTypeAPIKey, In: domain.APIKeyInCookie, Name: "session"},
	"OAuth":       {Type: domain.SchemeTypeOAuth2, ClientCredentialsTokenURL: "https://auth.example.com/token"},
	"OAuthNoFlow": {Type: domain.SchemeTypeOAuth2},
	"OIDC":        {Type: domain.SchemeTypeOpenIDConnect, OpenIDConnectURL: "https://auth.example.com/.well-known/openid-configuration"},
}

func req(schemes ...string) domain.SecurityRequirement {
	r := make(domain.SecurityRequirement, 0, len(schemes))
	for _, s := range schemes {
		r = append(r, domain.SchemeScopes{Scheme: s})
	}
	return r
}

func TestResolver_BasicAuthHeader(t *testing.T) {
	assert.Equal(t, "Basic YWxpY2U6czNjcjN0", security.BasicAuthHeader("alice", "s3cr3t"))

	creds := domain.Credentials{Schemes: map[string]domain.SchemeCredentials{
		"HTTPBasic": {BasicUsername: "alice", BasicPassword: "s3cr3t"},
	}}
	r := security.NewResolver(testSchemes, creds, nil, newTestLogger())

	m := r.Resolve(context.Background(), "whoami", []domain.SecurityRequirement{req("HTTPBasic")})
	assert.True(t, m.Satisfied)
	assert.Equal(t, "Basic YWxpY2U6czNjcjN0", m.Headers["authorization"])
	assert.Equal(t, []string{"HTTPBasic"}, m.Schemes)
}

func TestResolver_SharedBasicPreferred(t *testing.T) {
	creds := domain.Credentials{
		Schemes: map[string]domain.SchemeCredentials{
			"HTTPBasic": {BasicUsername: "bob", BasicPassword: "other"},
		},
		SharedBasic: &domain.BasicCredentials{Username: "alice", Password: "s3cr3t"},
	}
	r := security.NewResolver(testSchemes, creds, nil, newTestLogger())

	m := r.Resolve(context.Background(), "whoami", []domain.SecurityRequirement{req("HTTPBasic")})
	assert.Equal(t, "Basic YWxpY2U6czNjcjN0", m.Headers["authorization"])
}

func TestResolver_FirstSatisfiableSetWins(t *testing.T) {
	creds := domain.Credentials{Schemes: map[string]domain.SchemeCredentials{
		"HeaderKey": {APIKey: "k-123"},
	}}
	r := security.NewResolver(testSchemes, creds, nil, newTestLogger())

	reqs := []domain.SecurityRequirement{
		req("Bearer", "HeaderKey"),
		req("HeaderKey"),
	}
	m := r.Resolve(context.Background(), "list_labels", reqs)
	assert.True(t, m.Satisfied)
	assert.Equal(t, map[string]string{"x-api-key": "k-123"}, m.Headers)
	assert.Equal(t, []string{"HeaderKey"}, m.Schemes)
}

func TestResolver_NoneSatisfiable(t *testing.T) {
	r := security.NewResolver(testSchemes, domain.Credentials{}, nil, newTestLogger())

	reqs := []domain.SecurityRequirement{req("Bearer"), req("HTTPBasic"), req("Undeclared")}
	m := r.Resolve(context.Background(), "list_labels", reqs)
	assert.False(t, m.Satisfied)
	assert.Empty(t, m.Headers)
	assert.Empty(t, m.Query)
	assert.Empty(t, m.Cookies)
}

func TestResolver_NoRequirements(t *testing.T) {
	r := security.NewResolver(testSchemes, domain.Credentials{}, nil, newTestLogger())
	m := r.Resolve(context.Background(), "public", nil)
	assert.True(t, m.Satisfied)
	assert.Empty(t, m.Headers)
}

func TestResolver_ApplyPerSchemeType(t *testing.T) {
	creds := domain.Credentials{Schemes: map[string]domain.SchemeCredentials{
		"Bearer":     {BearerToken: "tok"},
		"QueryKey":   {APIKey: "q-1"},
		"SessionKey": {APIKey: "s-1"},
		"OIDC":       {OpenIDToken: "id-tok"},
		"OAuth":      {OAuthToken: "static"},
	}}
	r := security.NewResolver(testSchemes, creds, nil, newTestLogger())
	ctx := context.Background()

	tests := []struct {
		name        string
		req         domain.SecurityRequirement
		wantHeaders map[string]string
		wantQuery   map[string]string
		wantCookies []domain.Cookie
	}{
		{
			name:        "bearer",
			req:         req("Bearer"),
			wantHeaders: map[string]string{"authorization": "Bearer tok"},
			wantQuery:   map[string]string{},
		},
		{
			name:        "query api key",
			req:         req("QueryKey"),
			wantHeaders: map[string]string{},
			wantQuery:   map[string]string{"api_key": "q-1"},
		},
		{
			name:        "cookie api key",
			req:         req("SessionKey"),
			wantHeaders: map[string]string{},
			wantQuery:   map[string]string{},
			wantCookies: []domain.Cookie{{Name: "session", Value: "s-1"}},
		},
		{
			name:        "openid connect",
			req:         req("OIDC"),
			wantHeaders: map[string]string{"authorization": "Bearer id-tok"},
			wantQuery:   map[string]string{},
		},
		{
			name:        "oauth2 static token",
			req:         req("OAuth"),
			wantHeaders: map[string]string{"authorization": "Bearer static"},
			wantQuery:   map[string]string{},
		},
		{
			name:        "and set combines query and cookie",
			req:         req("QueryKey", "SessionKey"),
			wantHeaders: map[string]string{},
			wantQuery:   map[string]string{"api_key": "q-1"},
			wantCookies: []domain.Cookie{{Name: "session", Value: "s-1"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := r.Resolve(ctx, "tool", []domain.SecurityRequirement{tt.req})
			assert.True(t, m.Satisfied)
			assert.Equal(t, tt.wantHeaders, m.Headers)
			assert.Equal(t, tt.wantQuery, m.Query)
			assert.Equal(t, tt.wantCookies, m.Cookies)
		})
	}
}

func TestResolver_OAuthClientCredentials(t *testing.T) {
	oauthCreds := domain.SchemeCredentials{OAuthClientID: "cid", OAuthClientSecret: "secret"}
	creds := domain.Credentials{Schemes: map[string]domain.SchemeCredentials{
		"OAuth":       oauthCreds,
		"OAuthNoFlow": oauthCreds,
	}}

	t.Run("token acquired", func(t *testing.T) {
		tokens := new(MockTokenSource)
		tokens.On("Token", mock.Anything, "OAuth", testSchemes["OAuth"], oauthCreds).Return("fetched", true).Once()
		r := security.NewResolver(testSchemes, creds, tokens, newTestLogger())

		m := r.Resolve(context.Background(), "tool", []domain.SecurityRequirement{
			{{Scheme: "OAuth", Scopes: []string{"read"}}},
		})
		assert.True(t, m.Satisfied)
		assert.Equal(t, "Bearer fetched", m.Headers["authorization"])
		tokens.AssertExpectations(t)
	})

	t.Run("acquisition failure leaves request unauthenticated", func(t *testing.T) {
		tokens := new(MockTokenSource)
		tokens.On("Token", mock.Anything, "OAuth", testSchemes["OAuth"], oauthCreds).Return("", false).Once()
		r := security.NewResolver(testSchemes, creds, tokens, newTestLogger())

		m := r.Resolve(context.Background(), "tool", []domain.SecurityRequirement{req("OAuth")})
		assert.True(t, m.Satisfied)
		assert.NotContains(t, m.Headers, "authorization")
		tokens.AssertExpectations(t)
	})

	t.Run("client credentials without a flow are unsatisfiable", func(t *testing.T) {
		r := security.NewResolver(testSchemes, creds, new(MockTokenSource), newTestLogger())
		assert.False(t, r.Satisfiable(req("OAuthNoFlow")))
	})
}

func TestResolver_AnySatisfiable(t *testing.T) {
	tools := []domain.ToolDefinition{
		{Name: "public"},
		{Name: "whoami", SecurityRequirements: []domain.SecurityRequirement{req("HTTPBasic")}},
	}

	none := security.NewResolver(testSchemes, domain.Credentials{}, nil, newTestLogger())
	assert.False(t, none.AnySatisfiable(tools))

	some := security.NewResolver(testSchemes, domain.Credentials{
		SharedBasic: &domain.BasicCredentials{Username: "alice", Password: "s3cr3t"},
	}, nil, newTestLogger())
	assert.True(t, some.AnySatisfiable(tools))
}
