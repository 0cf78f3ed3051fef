// Package security picks which of a tool's security requirement sets can be
// met with the configured credentials and turns it into request changes.
package security

import (
	"context"
	"log/slog"
	"strings"

	"github.com/i2y/switchboard-mcp/internal/domain"
)

// TokenSource supplies OAuth2 access tokens. TokenProvider implements it.
type TokenSource interface {
	Token(ctx context.Context, name string, scheme domain.SecurityScheme, creds domain.SchemeCredentials) (string, bool)
}

// Resolver applies the first satisfiable requirement set of a tool.
type Resolver struct {
	schemes map[string]domain.SecurityScheme
	creds   domain.Credentials
	tokens  TokenSource
	logger  *slog.Logger
}

// NewResolver creates a Resolver over the declared schemes and resolved credentials.
func NewResolver(schemes map[string]domain.SecurityScheme, creds domain.Credentials, tokens TokenSource, logger *slog.Logger) *Resolver {
	return &Resolver{
		schemes: schemes,
		creds:   creds,
		tokens:  tokens,
		logger:  logger.With("component", "security_resolver"),
	}
}

// Resolve selects the first requirement set, in declaration order, whose
// schemes all have credentials, and returns the changes that apply it.
// When none can be met the mutation is empty and unsatisfied; the call
// proceeds without auth.
func (r *Resolver) Resolve(ctx context.Context, toolName string, requirements []domain.SecurityRequirement) domain.AuthMutation {
	if len(requirements) == 0 {
		return domain.AuthMutation{Satisfied: true}
	}

	for _, req := range requirements {
		if r.Satisfiable(req) {
			return r.apply(ctx, toolName, req)
		}
	}

	r.logger.Warn("Tool requires security but no suitable credentials found",
		slog.String("tool_name", toolName),
		slog.String("requirements", domain.FormatRequirements(requirements)))
	return domain.AuthMutation{}
}

// Satisfiable reports whether every scheme in the set has credentials.
// It only checks presence; OAuth2 tokens are not acquired here.
func (r *Resolver) Satisfiable(req domain.SecurityRequirement) bool {
	for _, s := range req {
		if !r.schemeSatisfiable(s.Scheme) {
			return false
		}
	}
	return true
}

// AnySatisfiable reports whether at least one tool that needs auth could
// get it. Tools without requirements are ignored.
func (r *Resolver) AnySatisfiable(tools []domain.ToolDefinition) bool {
	for _, t := range tools {
		for _, req := range t.SecurityRequirements {
			if r.Satisfiable(req) {
				return true
			}
		}
	}
	return false
}

func (r *Resolver) schemeSatisfiable(name string) bool {
	scheme, ok := r.schemes[name]
	if !ok {
		return false
	}
	c := r.creds.For(name)

	switch scheme.Type {
	case domain.SchemeTypeAPIKey:
		return c.APIKey != ""
	case domain.SchemeTypeHTTP:
		switch scheme.HTTPScheme {
		case "bearer":
			return c.BearerToken != ""
		case "basic":
			if r.creds.SharedBasic.Complete() {
				return true
			}
			return c.BasicUsername != "" && c.BasicPassword != ""
		}
		return false
	case domain.SchemeTypeOAuth2:
		if c.OAuthToken != "" {
			return true
		}
		return c.OAuthClientID != "" && c.OAuthClientSecret != "" && scheme.TokenURL() != ""
	case domain.SchemeTypeOpenIDConnect:
		return c.OpenIDToken != ""
	}
	return false
}

func (r *Resolver) apply(ctx context.Context, toolName string, req domain.SecurityRequirement) domain.AuthMutation {
	m := domain.AuthMutation{
		Headers:   map[string]string{},
		Query:     map[string]string{},
		Satisfied: true,
	}
	log := r.logger.With(slog.String("tool_name", toolName))

	for _, s := range req {
		scheme := r.schemes[s.Scheme]
		c := r.creds.For(s.Scheme)
		m.Schemes = append(m.Schemes, s.Scheme)

		switch scheme.Type {
		case domain.SchemeTypeAPIKey:
			switch scheme.In {
			case domain.APIKeyInHeader:
				m.Headers[strings.ToLower(scheme.Name)] = c.APIKey
			case domain.APIKeyInQuery:
				m.Query[scheme.Name] = c.APIKey
			case domain.APIKeyInCookie:
				m.Cookies = append(m.Cookies, domain.Cookie{Name: scheme.Name, Value: c.APIKey})
			}
			log.Debug("Applied API key", slog.String("scheme", s.Scheme), slog.String("in", string(scheme.In)))

		case domain.SchemeTypeHTTP:
			switch scheme.HTTPScheme {
			case "bearer":
				m.Headers["authorization"] = "Bearer " + c.BearerToken
			case "basic":
				username, password := c.BasicUsername, c.BasicPassword
				if r.creds.SharedBasic.Complete() {
					username, password = r.creds.SharedBasic.Username, r.creds.SharedBasic.Password
				}
				m.Headers["authorization"] = BasicAuthHeader(username, password)
			}
			log.Debug("Applied HTTP authentication", slog.String("scheme", s.Scheme), slog.String("type", scheme.HTTPScheme))

		case domain.SchemeTypeOAuth2:
			token := c.OAuthToken
			if token == "" && r.tokens != nil {
				token, _ = r.tokens.Token(ctx, s.Scheme, scheme, c)
			}
			if token == "" {
				log.Warn("No OAuth2 token available, sending request without it", slog.String("scheme", s.Scheme))
				continue
			}
			m.Headers["authorization"] = "Bearer " + token
			log.Debug("Applied OAuth2 token", slog.String("scheme", s.Scheme), slog.Any("scopes", s.Scopes))

		case domain.SchemeTypeOpenIDConnect:
			m.Headers["authorization"] = "Bearer " + c.OpenIDToken
			log.Debug("Applied OpenID Connect token", slog.String("scheme", s.Scheme), slog.Any("scopes", s.Scopes))
		}
	}
	return m
}
