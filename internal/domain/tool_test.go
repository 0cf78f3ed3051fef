package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/i2y/switchboard-mcp/internal/domain"
)

func TestToolDefinition_Validate(t *testing.T) {
	valid := domain.ToolDefinition{
		Name:         "get_label",
		Method:       "GET",
		PathTemplate: "/v1/labels/{label_id}",
		ExecutionParameters: []domain.ExecutionParameter{
			{Name: "label_id", In: domain.ParameterInPath},
			{Name: "expand", In: domain.ParameterInQuery},
		},
	}

	tests := []struct {
		name    string
		mutate  func(d *domain.ToolDefinition)
		wantErr string
	}{
		{name: "valid", mutate: func(d *domain.ToolDefinition) {}},
		{
			name:    "empty name",
			mutate:  func(d *domain.ToolDefinition) { d.Name = "" },
			wantErr: "tool has empty name",
		},
		{
			name:    "lower-case method",
			mutate:  func(d *domain.ToolDefinition) { d.Method = "get" },
			wantErr: `tool "get_label" has unsupported method "get"`,
		},
		{
			name:    "relative path",
			mutate:  func(d *domain.ToolDefinition) { d.PathTemplate = "v1/labels" },
			wantErr: `tool "get_label" has invalid path "v1/labels" (must start with /)`,
		},
		{
			name: "unknown location",
			mutate: func(d *domain.ToolDefinition) {
				d.ExecutionParameters = append(d.ExecutionParameters, domain.ExecutionParameter{Name: "sid", In: "cookie"})
			},
			wantErr: `tool "get_label" parameter "sid" has unsupported location "cookie"`,
		},
		{
			name: "placeholder only in query",
			mutate: func(d *domain.ToolDefinition) {
				d.ExecutionParameters = []domain.ExecutionParameter{{Name: "label_id", In: domain.ParameterInQuery}}
			},
			wantErr: `tool "get_label" path placeholder {label_id} has no path parameter`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := valid
			def.ExecutionParameters = append([]domain.ExecutionParameter(nil), valid.ExecutionParameters...)
			tt.mutate(&def)

			err := def.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestPathPlaceholders(t *testing.T) {
	assert.Nil(t, domain.PathPlaceholders("/v1/whoami"))
	assert.Equal(t, []string{"a", "b"}, domain.PathPlaceholders("/v1/{a}/x/{b}"))
	assert.Equal(t, []string{"a"}, domain.PathPlaceholders("/v1/{a}/{broken"))
}

func TestToolDefinition_PathParameters(t *testing.T) {
	def := domain.ToolDefinition{ExecutionParameters: []domain.ExecutionParameter{
		{Name: "list_id", In: domain.ParameterInPath},
		{Name: "page", In: domain.ParameterInQuery},
		{Name: "phone_id", In: domain.ParameterInPath},
	}}
	assert.Equal(t, []string{"list_id", "phone_id"}, def.PathParameters())
}

func TestFormatRequirements(t *testing.T) {
	reqs := []domain.SecurityRequirement{
		{{Scheme: "HTTPBasic"}},
		{{Scheme: "ApiKey"}, {Scheme: "OAuth", Scopes: []string{"read", "write"}}},
	}
	assert.Equal(t, "[HTTPBasic] OR [ApiKey AND OAuth (scopes: read, write)]", domain.FormatRequirements(reqs))
	assert.Equal(t, "", domain.FormatRequirements(nil))
}
