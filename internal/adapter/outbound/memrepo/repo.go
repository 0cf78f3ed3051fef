package memrepo

import (
	"context"
	"log/slog"
	"sync"

	"github.com/i2y/switchboard-mcp/internal/domain"
	"github.com/i2y/switchboard-mcp/internal/usecase"
)

// InMemoryToolRepository provides an in-memory implementation of the ToolRepository.
// Tools are listed in the order they were first saved.
type InMemoryToolRepository struct {
	mu     sync.RWMutex
	tools  map[string]domain.ToolDefinition
	order  []string
	logger *slog.Logger
}

// NewInMemoryToolRepository creates a new in-memory repository.
func NewInMemoryToolRepository(logger *slog.Logger) *InMemoryToolRepository {
	return &InMemoryToolRepository{
		tools:  make(map[string]domain.ToolDefinition),
		logger: logger.With("component", "mem_repo"),
	}
}

// Save stores the given tools. Saving a name that already exists replaces
// the definition but keeps its first position.
func (r *InMemoryToolRepository) Save(ctx context.Context, tools []domain.ToolDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for i, tool := range tools {
		if tool.Name == "" {
			r.logger.Warn("Skipping tool with empty name during save", slog.Int("index", i))
			continue
		}
		if _, exists := r.tools[tool.Name]; !exists {
			r.order = append(r.order, tool.Name)
		}
		r.tools[tool.Name] = tool
		count++
	}
	r.logger.Info("Saved tools", slog.Int("count", count), slog.Int("total_tools", len(r.tools)))
	return nil
}

// List returns all tools currently stored in memory.
func (r *InMemoryToolRepository) List(ctx context.Context) ([]domain.ToolDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]domain.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		list = append(list, r.tools[name])
	}
	r.logger.Debug("Listed tools from repository", slog.Int("count", len(list)))
	return list, nil
}

// FindToolByName retrieves a tool definition by its name.
func (r *InMemoryToolRepository) FindToolByName(ctx context.Context, name string) (*domain.ToolDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[name]
	if !ok {
		r.logger.Warn("Tool definition not found", slog.String("tool_name", name))
		return nil, usecase.ErrToolNotFound
	}
	r.logger.Debug("Found tool definition", slog.String("tool_name", name))
	return &tool, nil
}
