package domain

import (
	"net/url"
	"strings"
)

// HTTPRequest is the fully resolved outbound request produced for one tool call.
type HTTPRequest struct {
	Method string
	URL    string
	Query  url.Values

	// Headers are keyed by lower-cased name.
	Headers map[string]string

	Body    any
	HasBody bool
}

// ApplyAuth merges an auth mutation into the request. Auth headers and query
// values replace existing ones; cookies are prepended to any existing cookie
// header as "name=value; <existing>".
func (r *HTTPRequest) ApplyAuth(m AuthMutation) {
	if r.Headers == nil {
		r.Headers = make(map[string]string)
	}
	if r.Query == nil {
		r.Query = url.Values{}
	}
	for k, v := range m.Headers {
		r.Headers[strings.ToLower(k)] = v
	}
	for k, v := range m.Query {
		r.Query.Set(k, v)
	}
	for _, c := range m.Cookies {
		pair := c.Name + "=" + c.Value
		if existing := r.Headers["cookie"]; existing != "" {
			r.Headers["cookie"] = pair + "; " + existing
		} else {
			r.Headers["cookie"] = pair
		}
	}
}
