package httpinvoker

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/i2y/switchboard-mcp/internal/domain"
)

// DefinitionError reports a tool definition that could not produce a
// request, such as a path placeholder left without a value.
type DefinitionError struct {
	Path string
}

func (e *DefinitionError) Error() string {
	return "Failed to resolve path parameters: " + e.Path
}

// Builder turns a tool definition and validated arguments into a request.
type Builder struct {
	baseURL string
	logger  *slog.Logger
}

// NewBuilder creates a Builder that prefixes every path with baseURL.
func NewBuilder(baseURL string, logger *slog.Logger) *Builder {
	return &Builder{
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.With("component", "request_builder"),
	}
}

// Build places each execution parameter into the path, query or headers,
// attaches the request body and sets the baseline headers.
func (b *Builder) Build(def domain.ToolDefinition, args map[string]any) (*domain.HTTPRequest, error) {
	path := def.PathTemplate
	query := url.Values{}
	headers := map[string]string{"accept": "application/json"}

	for _, p := range def.ExecutionParameters {
		value, ok := args[p.Name]
		if !ok || value == nil {
			continue
		}
		switch p.In {
		case domain.ParameterInPath:
			path = strings.ReplaceAll(path, "{"+p.Name+"}", encodeURIComponent(stringify(value)))
		case domain.ParameterInQuery:
			addQuery(query, p.Name, value)
		case domain.ParameterInHeader:
			headers[strings.ToLower(p.Name)] = stringify(value)
		}
	}

	if strings.Contains(path, "{") {
		return nil, &DefinitionError{Path: path}
	}

	req := &domain.HTTPRequest{
		Method:  def.Method,
		URL:     b.baseURL + path,
		Query:   query,
		Headers: headers,
	}

	if def.RequestBodyContentType != "" {
		if body, ok := args[domain.RequestBodyArgument]; ok && body != nil {
			req.Body = body
			req.HasBody = true
			headers["content-type"] = def.RequestBodyContentType
		}
	}

	b.logger.Debug("Built request",
		slog.String("tool_name", def.Name),
		slog.String("method", req.Method),
		slog.String("url", req.URL),
		slog.Bool("has_body", req.HasBody))
	return req, nil
}

func addQuery(q url.Values, name string, value any) {
	if items, ok := value.([]any); ok {
		for _, item := range items {
			if item != nil {
				q.Add(name, stringify(item))
			}
		}
		return
	}
	q.Add(name, stringify(value))
}

// stringify renders an argument the way it appears in a URL or header.
func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case json.Number:
		return v.String()
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			if item != nil {
				parts[i] = stringify(item)
			}
		}
		return strings.Join(parts, ",")
	case map[string]any:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	default:
		return fmt.Sprint(v)
	}
}

// encodeURIComponent escapes everything except A-Z a-z 0-9 - _ . ! ~ * ' ( ).
func encodeURIComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
