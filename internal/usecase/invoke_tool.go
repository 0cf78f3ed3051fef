package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/i2y/switchboard-mcp/internal/domain"
)

const instrumentationName = "github.com/i2y/switchboard-mcp/internal/usecase"

// InvokeToolUseCase runs one tool call through the pipeline:
// lookup, validation, request building, auth, execution.
type InvokeToolUseCase struct {
	repository ToolRepository
	compiler   SchemaCompiler
	builder    RequestBuilder
	security   SecurityResolver
	invoker    ToolInvoker
	tracer     trace.Tracer
	calls      metric.Int64Counter
	logger     *slog.Logger
}

// NewInvokeToolUseCase creates a new InvokeToolUseCase.
func NewInvokeToolUseCase(
	repo ToolRepository,
	compiler SchemaCompiler,
	builder RequestBuilder,
	security SecurityResolver,
	invoker ToolInvoker,
	logger *slog.Logger,
) *InvokeToolUseCase {
	log := logger.With("usecase", "InvokeTool")

	calls, err := otel.Meter(instrumentationName).Int64Counter(
		"switchboard.tool.invocations",
		metric.WithDescription("Number of tool invocations by tool and outcome"),
	)
	if err != nil {
		log.Warn("Failed to create invocation counter, metrics disabled", slog.Any("error", err))
		calls = noop.Int64Counter{}
	}

	return &InvokeToolUseCase{
		repository: repo,
		compiler:   compiler,
		builder:    builder,
		security:   security,
		invoker:    invoker,
		tracer:     otel.Tracer(instrumentationName),
		calls:      calls,
		logger:     log,
	}
}

// Execute invokes the named tool. It never returns a Go error and never
// panics: every failure is reported as an error result.
func (uc *InvokeToolUseCase) Execute(ctx context.Context, toolName string, args map[string]any) (result domain.ToolResult) {
	callID := uuid.NewString()
	log := uc.logger.With(slog.String("tool_name", toolName), slog.String("call_id", callID))

	ctx, span := uc.tracer.Start(ctx, "tool.invoke", trace.WithAttributes(
		attribute.String("tool.name", toolName),
		attribute.String("tool.call_id", callID),
	))
	defer func() {
		if r := recover(); r != nil {
			log.Error("Recovered from panic during tool invocation", slog.Any("panic", r))
			result = domain.ErrorResult(fmt.Sprintf("Unexpected error: %v", r))
		}

		outcome := "success"
		if result.IsError {
			outcome = "error"
			span.SetStatus(codes.Error, result.Text)
		}
		if result.StatusCode != 0 {
			span.SetAttributes(attribute.Int("http.response.status_code", result.StatusCode))
		}
		span.End()
		uc.calls.Add(ctx, 1, metric.WithAttributes(
			attribute.String("tool", toolName),
			attribute.String("outcome", outcome),
		))
	}()

	def, err := uc.repository.FindToolByName(ctx, toolName)
	if err != nil {
		if errors.Is(err, ErrToolNotFound) {
			log.Warn("Unknown tool requested")
			return domain.ErrorResult("Error: Unknown tool requested: " + toolName)
		}
		log.Error("Failed to look up tool", slog.Any("error", err))
		return domain.ErrorResult(fmt.Sprintf("Unexpected error: %v", err))
	}

	validated, err := uc.compiler.For(def.Name, def.InputSchema).Validate(args)
	if err != nil {
		log.Info("Rejected tool arguments", slog.Any("error", err))
		return domain.ErrorResult(fmt.Sprintf("Invalid arguments for tool '%s': %s", toolName, err.Error()))
	}

	req, err := uc.builder.Build(*def, validated)
	if err != nil {
		log.Error("Failed to build request", slog.Any("error", err))
		return domain.ErrorResult(err.Error())
	}

	if len(def.SecurityRequirements) > 0 {
		auth := uc.security.Resolve(ctx, toolName, def.SecurityRequirements)
		req.ApplyAuth(auth)
		if auth.Satisfied {
			log.Debug("Applied security", slog.Any("schemes", auth.Schemes))
		}
	}

	log.Info("Executing tool", slog.String("method", req.Method), slog.String("url", req.URL))
	result = uc.invoker.Execute(ctx, req)
	if result.IsError {
		log.Warn("Tool invocation failed", slog.String("error", result.Text))
	} else {
		log.Info("Tool invocation completed", slog.Int("status_code", result.StatusCode))
	}
	return result
}
