package security

import (
	"strings"
	"unicode"

	"github.com/i2y/switchboard-mcp/internal/domain"
)

// Environment variable prefixes, one per credential field. The full name is
// the prefix followed by EnvKey(scheme), e.g. API_KEY_PETSTORE_AUTH.
const (
	EnvAPIKey            = "API_KEY_"
	EnvBearerToken       = "BEARER_TOKEN_"
	EnvBasicUsername     = "BASIC_USERNAME_"
	EnvBasicPassword     = "BASIC_PASSWORD_"
	EnvOAuthClientID     = "OAUTH_CLIENT_ID_"
	EnvOAuthClientSecret = "OAUTH_CLIENT_SECRET_"
	EnvOAuthScopes       = "OAUTH_SCOPES_"
	EnvOAuthToken        = "OAUTH_TOKEN_"
	EnvOpenIDToken       = "OPENID_TOKEN_"

	// The shared basic pair applies to every http/basic scheme.
	EnvSharedBasicUsername = "BASIC_USERNAME_HTTPBASIC"
	EnvSharedBasicPassword = "BASIC_PASSWORD_HTTPBASIC"
)

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// EnvKey maps a scheme name to its variable suffix: every rune outside
// [A-Za-z0-9] becomes '_' and the result is upper-cased.
func EnvKey(scheme string) string {
	var b strings.Builder
	b.Grow(len(scheme))
	for _, r := range scheme {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(unicode.ToUpper(r))
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// LoadCredentials resolves the credentials of every declared scheme once.
// Values in base (typically from the config file) are overridden by any
// non-empty variable found through lookup.
func LoadCredentials(schemes map[string]domain.SecurityScheme, lookup LookupFunc, base domain.Credentials) domain.Credentials {
	get := func(key string) string {
		if lookup == nil {
			return ""
		}
		v, _ := lookup(key)
		return v
	}
	override := func(dst *string, key string) {
		if v := get(key); v != "" {
			*dst = v
		}
	}

	out := domain.Credentials{Schemes: make(map[string]domain.SchemeCredentials, len(schemes))}
	for name, c := range base.Schemes {
		out.Schemes[name] = c
	}

	for name := range schemes {
		c := out.Schemes[name]
		suffix := EnvKey(name)
		override(&c.APIKey, EnvAPIKey+suffix)
		override(&c.BearerToken, EnvBearerToken+suffix)
		override(&c.BasicUsername, EnvBasicUsername+suffix)
		override(&c.BasicPassword, EnvBasicPassword+suffix)
		override(&c.OAuthClientID, EnvOAuthClientID+suffix)
		override(&c.OAuthClientSecret, EnvOAuthClientSecret+suffix)
		override(&c.OAuthScopes, EnvOAuthScopes+suffix)
		override(&c.OAuthToken, EnvOAuthToken+suffix)
		override(&c.OpenIDToken, EnvOpenIDToken+suffix)
		out.Schemes[name] = c
	}

	shared := domain.BasicCredentials{}
	if base.SharedBasic != nil {
		shared = *base.SharedBasic
	}
	override(&shared.Username, EnvSharedBasicUsername)
	override(&shared.Password, EnvSharedBasicPassword)
	if shared.Username != "" || shared.Password != "" {
		out.SharedBasic = &shared
	}
	return out
}
