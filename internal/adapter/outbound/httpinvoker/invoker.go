package httpinvoker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"syscall"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/i2y/switchboard-mcp/internal/domain"
)

// maxErrorBodyLen caps how much of a response body an API error message quotes.
const maxErrorBodyLen = 200

// Invoker executes outbound requests with net/http and renders every
// outcome as a tool result.
type Invoker struct {
	client *http.Client
	strict bool
	tracer trace.Tracer
	logger *slog.Logger
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithStrictUpstreamStatus makes 5xx responses error results rendered as
// API errors instead of ordinary responses.
func WithStrictUpstreamStatus(strict bool) Option {
	return func(i *Invoker) { i.strict = strict }
}

// New creates a new HTTP Invoker.
func New(client *http.Client, logger *slog.Logger, opts ...Option) *Invoker {
	if client == nil {
		client = http.DefaultClient
	}
	i := &Invoker{
		client: client,
		tracer: otel.Tracer("github.com/i2y/switchboard-mcp/internal/adapter/outbound/httpinvoker"),
		logger: logger.With("component", "http_invoker"),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Execute sends exactly one request. Any HTTP response, whatever its
// status, is a successful result unless strict mode flags a 5xx.
func (i *Invoker) Execute(ctx context.Context, req *domain.HTTPRequest) domain.ToolResult {
	log := i.logger.With(slog.String("method", req.Method), slog.String("url", req.URL))

	ctx, span := i.tracer.Start(ctx, "HTTP "+req.Method, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	httpReq, err := i.newRequest(ctx, req)
	if err != nil {
		log.Error("Failed to prepare HTTP request", slog.Any("error", err))
		span.SetStatus(codes.Error, err.Error())
		return domain.ErrorResult("API request failed. API Request Setup Error: " + err.Error())
	}
	span.SetAttributes(
		attribute.String("http.request.method", req.Method),
		attribute.String("url.full", httpReq.URL.String()),
	)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	start := time.Now()
	resp, err := i.client.Do(httpReq)
	if err != nil {
		code := networkErrorCode(err)
		log.Error("HTTP request failed", slog.Any("error", err), slog.String("code", code))
		span.SetStatus(codes.Error, err.Error())
		text := "API Network Error: No response received from server."
		if code != "" {
			text += " (Code: " + code + ")"
		}
		return domain.ErrorResult(text)
	}
	defer resp.Body.Close()

	log = log.With(slog.Int("status_code", resp.StatusCode), slog.Duration("elapsed", time.Since(start)))
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error("Failed to read response body", slog.Any("error", err))
		span.SetStatus(codes.Error, err.Error())
		return domain.ToolResult{
			Text:       formatAPIError(resp, body),
			IsError:    true,
			StatusCode: resp.StatusCode,
		}
	}

	if i.strict && resp.StatusCode >= 500 {
		log.Warn("Upstream server error")
		span.SetStatus(codes.Error, resp.Status)
		return domain.ToolResult{
			Text:       formatAPIError(resp, body),
			IsError:    true,
			StatusCode: resp.StatusCode,
		}
	}

	log.Debug("Received HTTP response", slog.Int("size", len(body)))
	return domain.ToolResult{
		Text:       fmt.Sprintf("API Response (Status: %d):\n%s", resp.StatusCode, formatBody(resp, body)),
		StatusCode: resp.StatusCode,
	}
}

func (i *Invoker) newRequest(ctx context.Context, req *domain.HTTPRequest) (*http.Request, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %s: %w", req.URL, err)
	}
	if len(req.Query) > 0 {
		q := u.Query()
		for k, vs := range req.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	var body io.Reader
	if req.HasBody {
		data, err := encodeBody(req.Body)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), body)
	if err != nil {
		return nil, err
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	return httpReq, nil
}

// encodeBody sends strings as-is and JSON-encodes anything else.
func encodeBody(v any) ([]byte, error) {
	switch b := v.(type) {
	case string:
		return []byte(b), nil
	case []byte:
		return b, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	return data, nil
}

// formatBody pretty-prints JSON objects and arrays, keeping key order, and
// returns any other body as text.
func formatBody(resp *http.Response, body []byte) string {
	if len(body) == 0 {
		return fmt.Sprintf("(Status: %d - No body content)", resp.StatusCode)
	}
	if isJSON(resp) {
		trimmed := bytes.TrimSpace(body)
		if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
			var buf bytes.Buffer
			if err := json.Indent(&buf, trimmed, "", "  "); err == nil {
				return buf.String()
			}
		}
		if len(trimmed) > 0 && trimmed[0] == '"' {
			var s string
			if err := json.Unmarshal(trimmed, &s); err == nil {
				return s
			}
		}
	}
	return string(body)
}

func isJSON(resp *http.Response) bool {
	return strings.Contains(strings.ToLower(resp.Header.Get("Content-Type")), "application/json")
}

func formatAPIError(resp *http.Response, body []byte) string {
	statusText := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if statusText == "" {
		statusText = "Status text not available"
	}
	msg := fmt.Sprintf("API Error: Status %d (%s). ", resp.StatusCode, statusText)

	text := string(body)
	if compact := new(bytes.Buffer); json.Valid(body) && json.Compact(compact, body) == nil {
		text = compact.String()
	}
	if text == "" {
		return msg + "No response body received."
	}
	return msg + "Response: " + truncate(text, maxErrorBodyLen)
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "..."
}

// networkErrorCode maps a transport failure to the conventional errno-style
// code, or "" when none applies.
func networkErrorCode(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "ERR_CANCELED"
	case errors.Is(err, context.DeadlineExceeded):
		return "ETIMEDOUT"
	case errors.Is(err, syscall.ECONNREFUSED):
		return "ECONNREFUSED"
	case errors.Is(err, syscall.ECONNRESET):
		return "ECONNRESET"
	case errors.Is(err, syscall.ETIMEDOUT):
		return "ETIMEDOUT"
	case errors.Is(err, syscall.EHOSTUNREACH):
		return "EHOSTUNREACH"
	case errors.Is(err, syscall.ENETUNREACH):
		return "ENETUNREACH"
	case errors.Is(err, syscall.EPIPE):
		return "EPIPE"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTemporary {
			return "EAI_AGAIN"
		}
		return "ENOTFOUND"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "ETIMEDOUT"
	}
	return ""
}
