package schema

import (
	"log/slog"
	"sync"

	"github.com/i2y/switchboard-mcp/internal/domain"
	"github.com/i2y/switchboard-mcp/internal/usecase"
)

// Compiler compiles and caches one validator per tool.
type Compiler struct {
	mu     sync.Mutex
	cache  map[string]*Validator
	logger *slog.Logger
}

// NewCompiler creates a Compiler.
func NewCompiler(logger *slog.Logger) *Compiler {
	return &Compiler{
		cache:  make(map[string]*Validator),
		logger: logger.With("component", "schema_compiler"),
	}
}

// For returns the validator for a tool's input schema. It never fails: a
// schema the interpreter cannot express yields the pass-through validator,
// so the tool stays callable with unchecked arguments.
func (c *Compiler) For(toolName string, schema map[string]any) usecase.ArgumentValidator {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.cache[toolName]; ok {
		return v
	}

	v, err := Compile(schema)
	if err != nil {
		c.logger.Warn("Failed to compile input schema, accepting any arguments",
			slog.String("tool_name", toolName), slog.Any("error", err))
		v = PassThrough()
	} else {
		c.logger.Debug("Compiled input schema", slog.String("tool_name", toolName))
	}
	c.cache[toolName] = v
	return v
}

// Warm compiles every schema up front so problems surface in startup logs.
// It returns the names of tools that fell back to pass-through validation.
func (c *Compiler) Warm(tools []domain.ToolDefinition) []string {
	var fallbacks []string
	for _, t := range tools {
		if v, ok := c.For(t.Name, t.InputSchema).(*Validator); ok && v.IsPassThrough() {
			fallbacks = append(fallbacks, t.Name)
		}
	}
	return fallbacks
}
