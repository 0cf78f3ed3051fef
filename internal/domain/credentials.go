package domain

// BasicCredentials is a username/password pair.
type BasicCredentials struct {
	Username string
	Password string
}

// Complete reports whether both halves of the pair are present.
func (b *BasicCredentials) Complete() bool {
	return b != nil && b.Username != "" && b.Password != ""
}

// SchemeCredentials holds every secret that may be configured for one scheme.
type SchemeCredentials struct {
	APIKey            string `yaml:"api_key" toml:"api_key"`
	BearerToken       string `yaml:"bearer_token" toml:"bearer_token"`
	BasicUsername     string `yaml:"basic_username" toml:"basic_username"`
	BasicPassword     string `yaml:"basic_password" toml:"basic_password"`
	OAuthClientID     string `yaml:"oauth_client_id" toml:"oauth_client_id"`
	OAuthClientSecret string `yaml:"oauth_client_secret" toml:"oauth_client_secret"`
	OAuthScopes       string `yaml:"oauth_scopes" toml:"oauth_scopes"`
	OAuthToken        string `yaml:"oauth_token" toml:"oauth_token"`
	OpenIDToken       string `yaml:"openid_token" toml:"openid_token"`
}

// Credentials is the typed credential set resolved once at startup.
type Credentials struct {
	Schemes map[string]SchemeCredentials

	// SharedBasic, when complete, is preferred for every http/basic scheme.
	SharedBasic *BasicCredentials
}

// For returns the credentials configured for the named scheme.
func (c Credentials) For(scheme string) SchemeCredentials {
	if c.Schemes == nil {
		return SchemeCredentials{}
	}
	return c.Schemes[scheme]
}
