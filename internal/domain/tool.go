package domain

import (
	"fmt"
	"strings"
)

// ParameterLocation says where an execution parameter is placed on the outbound request.
type ParameterLocation string

const (
	ParameterInPath   ParameterLocation = "path"
	ParameterInQuery  ParameterLocation = "query"
	ParameterInHeader ParameterLocation = "header"
)

// RequestBodyArgument is the argument that carries the outbound request body.
const RequestBodyArgument = "requestBody"

// AllowedMethods lists the HTTP verbs a tool definition may use.
var AllowedMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "PATCH": true, "DELETE": true,
}

// ExecutionParameter maps one tool argument onto the outbound request.
type ExecutionParameter struct {
	Name string            `json:"name" yaml:"name"`
	In   ParameterLocation `json:"in" yaml:"in"`
}

// SchemeScopes names one security scheme and the OAuth scopes it asks for.
// An empty Scopes slice means no scopes are needed.
type SchemeScopes struct {
	Scheme string   `json:"scheme"`
	Scopes []string `json:"scopes,omitempty"`
}

// SecurityRequirement is one requirement set. Every scheme in it must be
// satisfied (AND); a tool lists several sets of which one is enough (OR).
type SecurityRequirement []SchemeScopes

// String renders the set as "a AND b (scopes: x, y)".
func (r SecurityRequirement) String() string {
	parts := make([]string, 0, len(r))
	for _, s := range r {
		if len(s.Scopes) == 0 {
			parts = append(parts, s.Scheme)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s (scopes: %s)", s.Scheme, strings.Join(s.Scopes, ", ")))
	}
	return strings.Join(parts, " AND ")
}

// FormatRequirements renders requirement sets as "[a AND b] OR [c]".
func FormatRequirements(reqs []SecurityRequirement) string {
	parts := make([]string, 0, len(reqs))
	for _, r := range reqs {
		parts = append(parts, "["+r.String()+"]")
	}
	return strings.Join(parts, " OR ")
}

// ToolDefinition is the immutable description of one callable tool: the MCP
// facing name, description and input schema plus everything needed to turn a
// call into an HTTP request against the upstream API.
type ToolDefinition struct {
	// Name is the unique MCP tool name (e.g. "get_broadcast").
	Name string `json:"name"`

	// OperationID is the upstream operation identifier. Informational only.
	OperationID string `json:"operation_id,omitempty"`

	Description string `json:"description"`

	// InputSchema is the JSON Schema of the tool arguments, kept as data so
	// it can be served to clients unchanged.
	InputSchema map[string]any `json:"input_schema"`

	// Method is the upper-case HTTP verb.
	Method string `json:"method"`

	// PathTemplate is the request path with {param} placeholders.
	PathTemplate string `json:"path"`

	ExecutionParameters []ExecutionParameter `json:"parameters,omitempty"`

	// RequestBodyContentType is set when the operation accepts a body.
	RequestBodyContentType string `json:"request_body_content_type,omitempty"`

	SecurityRequirements []SecurityRequirement `json:"security,omitempty"`
}

// PathParameters returns the names of the parameters placed in the path.
func (d ToolDefinition) PathParameters() []string {
	var names []string
	for _, p := range d.ExecutionParameters {
		if p.In == ParameterInPath {
			names = append(names, p.Name)
		}
	}
	return names
}

// Validate checks the structural invariants of the definition: a known
// method, known parameter locations, and a path parameter for every
// {placeholder} in the path template.
func (d ToolDefinition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("tool has empty name")
	}
	if !AllowedMethods[d.Method] {
		return fmt.Errorf("tool %q has unsupported method %q", d.Name, d.Method)
	}
	if !strings.HasPrefix(d.PathTemplate, "/") {
		return fmt.Errorf("tool %q has invalid path %q (must start with /)", d.Name, d.PathTemplate)
	}

	declared := make(map[string]bool, len(d.ExecutionParameters))
	for _, p := range d.ExecutionParameters {
		switch p.In {
		case ParameterInPath, ParameterInQuery, ParameterInHeader:
		default:
			return fmt.Errorf("tool %q parameter %q has unsupported location %q", d.Name, p.Name, p.In)
		}
		if p.In == ParameterInPath {
			declared[p.Name] = true
		}
	}

	for _, placeholder := range PathPlaceholders(d.PathTemplate) {
		if !declared[placeholder] {
			return fmt.Errorf("tool %q path placeholder {%s} has no path parameter", d.Name, placeholder)
		}
	}
	return nil
}

// PathPlaceholders returns the names of the {param} tokens in a path template.
func PathPlaceholders(template string) []string {
	var names []string
	rest := template
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			return names
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return names
		}
		names = append(names, rest[open+1:open+end])
		rest = rest[open+end+1:]
	}
}
