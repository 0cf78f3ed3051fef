package domain

// SecuritySchemeType is the kind of a declared security scheme.
type SecuritySchemeType string

const (
	SchemeTypeAPIKey        SecuritySchemeType = "apiKey"
	SchemeTypeHTTP          SecuritySchemeType = "http"
	SchemeTypeOAuth2        SecuritySchemeType = "oauth2"
	SchemeTypeOpenIDConnect SecuritySchemeType = "openIdConnect"
)

// APIKeyLocation is where an apiKey credential is sent.
type APIKeyLocation string

const (
	APIKeyInHeader APIKeyLocation = "header"
	APIKeyInQuery  APIKeyLocation = "query"
	APIKeyInCookie APIKeyLocation = "cookie"
)

// SecurityScheme describes how one named scheme authenticates a request.
// Only the fields that belong to Type are meaningful.
type SecurityScheme struct {
	Type SecuritySchemeType

	// apiKey
	In   APIKeyLocation
	Name string

	// http: "basic" or "bearer", lower-cased.
	HTTPScheme string

	// oauth2
	ClientCredentialsTokenURL string
	PasswordTokenURL          string

	// openIdConnect
	OpenIDConnectURL string
}

// TokenURL returns the endpoint used to acquire an OAuth2 token: the
// client-credentials flow when declared, else the password flow.
func (s SecurityScheme) TokenURL() string {
	if s.ClientCredentialsTokenURL != "" {
		return s.ClientCredentialsTokenURL
	}
	return s.PasswordTokenURL
}

// Cookie is one name/value pair destined for the cookie header.
type Cookie struct {
	Name  string
	Value string
}

// AuthMutation is the set of changes a resolved security requirement makes
// to an outbound request.
type AuthMutation struct {
	Headers map[string]string
	Query   map[string]string
	Cookies []Cookie

	// Schemes lists the scheme names of the applied requirement set.
	Schemes []string

	// Satisfied is false when the tool needs auth but no set could be met.
	Satisfied bool
}
