// Package catalog loads the declarative tool catalog: the upstream server
// details, its security schemes and one entry per exposed operation.
package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/i2y/switchboard-mcp/internal/domain"
)

//go:embed switchboard.yaml
var embedded []byte

// Catalog is a validated tool catalog.
type Catalog struct {
	Name            string
	Version         string
	BaseURL         string
	SecuritySchemes map[string]domain.SecurityScheme
	Tools           []domain.ToolDefinition
}

type fileFormat struct {
	Server struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"server"`
	SecuritySchemes map[string]map[string]any `yaml:"security_schemes"`
	Tools           []toolEntry               `yaml:"tools"`
}

type toolEntry struct {
	Name                   string                      `yaml:"name"`
	OperationID            string                      `yaml:"operation_id"`
	Description            string                      `yaml:"description"`
	Method                 string                      `yaml:"method"`
	Path                   string                      `yaml:"path"`
	Parameters             []domain.ExecutionParameter `yaml:"parameters"`
	RequestBodyContentType string                      `yaml:"request_body_content_type"`
	Security               []requirementSet            `yaml:"security"`
	InputSchema            map[string]any              `yaml:"input_schema"`
}

// LoadEmbedded loads the Switchboard catalog compiled into the binary.
func LoadEmbedded() (*Catalog, error) {
	return Load(bytes.NewReader(embedded))
}

// LoadFile loads a catalog from a YAML file on disk.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog file '%s': %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes and validates a catalog.
func Load(r io.Reader) (*Catalog, error) {
	var raw fileFormat
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	if raw.Server.BaseURL == "" {
		return nil, fmt.Errorf("catalog has no server.base_url")
	}

	schemes := make(map[string]domain.SecurityScheme, len(raw.SecuritySchemes))
	for name, def := range raw.SecuritySchemes {
		s, err := decodeScheme(def)
		if err != nil {
			return nil, fmt.Errorf("security scheme %q: %w", name, err)
		}
		schemes[name] = s
	}

	cat := &Catalog{
		Name:            raw.Server.Name,
		Version:         raw.Server.Version,
		BaseURL:         strings.TrimRight(raw.Server.BaseURL, "/"),
		SecuritySchemes: schemes,
		Tools:           make([]domain.ToolDefinition, 0, len(raw.Tools)),
	}

	seen := make(map[string]bool, len(raw.Tools))
	for _, entry := range raw.Tools {
		def := entry.toDefinition()
		if err := def.Validate(); err != nil {
			return nil, err
		}
		if seen[def.Name] {
			return nil, fmt.Errorf("duplicate tool name %q", def.Name)
		}
		seen[def.Name] = true

		for _, req := range def.SecurityRequirements {
			for _, s := range req {
				if _, ok := schemes[s.Scheme]; !ok {
					return nil, fmt.Errorf("tool %q references undeclared security scheme %q", def.Name, s.Scheme)
				}
			}
		}
		cat.Tools = append(cat.Tools, def)
	}
	return cat, nil
}

func (e toolEntry) toDefinition() domain.ToolDefinition {
	def := domain.ToolDefinition{
		Name:                   e.Name,
		OperationID:            e.OperationID,
		Description:            e.Description,
		InputSchema:            e.InputSchema,
		Method:                 strings.ToUpper(e.Method),
		PathTemplate:           e.Path,
		ExecutionParameters:    e.Parameters,
		RequestBodyContentType: e.RequestBodyContentType,
	}
	for _, set := range e.Security {
		def.SecurityRequirements = append(def.SecurityRequirements, domain.SecurityRequirement(set))
	}
	return def
}

// requirementSet is one security entry. Schemes keep their declared order,
// which decides the winner when two of them set the same header.
type requirementSet domain.SecurityRequirement

func (r *requirementSet) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: security requirement must be a mapping of scheme to scopes", node.Line)
	}
	set := make(requirementSet, 0, len(node.Content)/2)
	seen := make(map[string]bool, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		if seen[name] {
			return fmt.Errorf("line %d: scheme %q listed twice in one requirement", node.Content[i].Line, name)
		}
		seen[name] = true

		var scopes []string
		if err := node.Content[i+1].Decode(&scopes); err != nil {
			return fmt.Errorf("scopes of scheme %q: %w", name, err)
		}
		set = append(set, domain.SchemeScopes{Scheme: name, Scopes: scopes})
	}
	*r = set
	return nil
}

// decodeScheme runs the declaration through kin-openapi so it is checked
// against the OpenAPI rules for security schemes.
func decodeScheme(def map[string]any) (domain.SecurityScheme, error) {
	data, err := json.Marshal(def)
	if err != nil {
		return domain.SecurityScheme{}, err
	}
	var ss openapi3.SecurityScheme
	if err := ss.UnmarshalJSON(data); err != nil {
		return domain.SecurityScheme{}, err
	}
	if err := ss.Validate(context.Background()); err != nil {
		return domain.SecurityScheme{}, err
	}

	out := domain.SecurityScheme{Type: domain.SecuritySchemeType(ss.Type)}
	switch out.Type {
	case domain.SchemeTypeAPIKey:
		out.In = domain.APIKeyLocation(ss.In)
		out.Name = ss.Name
	case domain.SchemeTypeHTTP:
		out.HTTPScheme = strings.ToLower(ss.Scheme)
	case domain.SchemeTypeOAuth2:
		if ss.Flows != nil {
			if ss.Flows.ClientCredentials != nil {
				out.ClientCredentialsTokenURL = ss.Flows.ClientCredentials.TokenURL
			}
			if ss.Flows.Password != nil {
				out.PasswordTokenURL = ss.Flows.Password.TokenURL
			}
		}
	case domain.SchemeTypeOpenIDConnect:
		out.OpenIDConnectURL = ss.OpenIdConnectUrl
	}
	return out, nil
}
