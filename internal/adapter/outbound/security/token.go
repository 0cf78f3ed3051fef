package security

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/i2y/switchboard-mcp/internal/domain"
)

const (
	defaultTokenLifetime = 3600 * time.Second
	// Tokens are treated as expired this long before the server says so.
	tokenExpiryMargin = 60 * time.Second
)

type cachedToken struct {
	token     string
	expiresAt time.Time
}

// TokenCache holds acquired OAuth2 tokens keyed by scheme and client id.
// Entries are never evicted; an expired entry is simply ignored.
type TokenCache struct {
	mu      sync.RWMutex
	entries map[string]cachedToken
	now     func() time.Time
}

// NewTokenCache creates a cache. A nil now uses time.Now.
func NewTokenCache(now func() time.Time) *TokenCache {
	if now == nil {
		now = time.Now
	}
	return &TokenCache{entries: make(map[string]cachedToken), now: now}
}

// CacheKey returns the key a token for scheme and clientID is stored under.
func CacheKey(scheme, clientID string) string {
	return scheme + "_" + clientID
}

// Get returns the token stored under key while it is still valid.
func (c *TokenCache) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	if !ok || !entry.expiresAt.After(c.now()) {
		return "", false
	}
	return entry.token, true
}

// Put stores a token that the server said is valid for lifetime.
func (c *TokenCache) Put(key, token string, lifetime time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cachedToken{token: token, expiresAt: c.now().Add(lifetime - tokenExpiryMargin)}
}

// TokenProvider acquires OAuth2 access tokens with the client-credentials
// grant and caches them.
type TokenProvider struct {
	client *http.Client
	cache  *TokenCache
	group  singleflight.Group
	logger *slog.Logger
}

// NewTokenProvider creates a TokenProvider.
func NewTokenProvider(client *http.Client, cache *TokenCache, logger *slog.Logger) *TokenProvider {
	if client == nil {
		client = http.DefaultClient
	}
	if cache == nil {
		cache = NewTokenCache(nil)
	}
	return &TokenProvider{
		client: client,
		cache:  cache,
		logger: logger.With("component", "oauth_token_provider"),
	}
}

type tokenResponse struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   json.Number `json:"expires_in"`
}

// Token returns a cached or freshly acquired token. Any failure is logged
// and reported as false; it never aborts the tool call.
func (p *TokenProvider) Token(ctx context.Context, name string, scheme domain.SecurityScheme, creds domain.SchemeCredentials) (string, bool) {
	log := p.logger.With(slog.String("scheme", name))

	if creds.OAuthClientID == "" || creds.OAuthClientSecret == "" {
		log.Warn("Missing client credentials for OAuth2 scheme")
		return "", false
	}

	key := CacheKey(name, creds.OAuthClientID)
	if token, ok := p.cache.Get(key); ok {
		log.Debug("Using cached OAuth2 token")
		return token, true
	}

	tokenURL := scheme.TokenURL()
	if tokenURL == "" {
		log.Warn("No supported OAuth2 flow found")
		return "", false
	}

	// The flight is shared, so it must outlive the caller that started it.
	// Each caller still stops waiting when its own context ends.
	flightCtx := context.WithoutCancel(ctx)
	ch := p.group.DoChan(key, func() (any, error) {
		// Another caller may have filled the cache while we waited.
		if token, ok := p.cache.Get(key); ok {
			return token, nil
		}
		return p.fetch(flightCtx, key, tokenURL, creds)
	})

	select {
	case <-ctx.Done():
		log.Warn("Gave up waiting for OAuth2 token", slog.Any("error", ctx.Err()))
		return "", false
	case res := <-ch:
		if res.Err != nil {
			log.Error("Failed to acquire OAuth2 token", slog.String("token_url", tokenURL), slog.Any("error", res.Err))
			return "", false
		}
		if res.Shared {
			log.Debug("Shared in-flight OAuth2 token acquisition")
		}
		return res.Val.(string), true
	}
}

func (p *TokenProvider) fetch(ctx context.Context, key, tokenURL string, creds domain.SchemeCredentials) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	if creds.OAuthScopes != "" {
		form.Set("scope", creds.OAuthScopes)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", BasicAuthHeader(creds.OAuthClientID, creds.OAuthClientSecret))

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("no access_token in response")
	}

	lifetime := defaultTokenLifetime
	if secs, err := tr.ExpiresIn.Float64(); err == nil && secs > 0 {
		lifetime = time.Duration(secs * float64(time.Second))
	}
	p.cache.Put(key, tr.AccessToken, lifetime)
	p.logger.Info("Acquired OAuth2 token", slog.String("cache_key", key), slog.Duration("expires_in", lifetime))
	return tr.AccessToken, nil
}

// BasicAuthHeader returns the Authorization value for HTTP basic auth.
func BasicAuthHeader(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}
