package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// Issue codes reported by a Validator.
const (
	CodeInvalidType      = "invalid_type"
	CodeInvalidEnumValue = "invalid_enum_value"
	CodeInvalidLiteral   = "invalid_literal"
	CodeInvalidUnion     = "invalid_union"
	CodeUnrecognizedKeys = "unrecognized_keys"
	CodeTooSmall         = "too_small"
	CodeTooBig           = "too_big"
	CodeInvalidString    = "invalid_string"
)

// Issue is one validation failure at a location inside the input.
type Issue struct {
	// Path holds property names (string) and array indexes (int).
	Path    []any
	Code    string
	Message string
}

// PathString joins the path with dots, e.g. "requestBody.labels.0".
func (i Issue) PathString() string {
	parts := make([]string, len(i.Path))
	for n, p := range i.Path {
		switch v := p.(type) {
		case int:
			parts[n] = strconv.Itoa(v)
		default:
			parts[n] = fmt.Sprint(v)
		}
	}
	return strings.Join(parts, ".")
}

func (i Issue) String() string {
	return fmt.Sprintf("%s (%s): %s", i.PathString(), i.Code, i.Message)
}

// ValidationError is returned when arguments do not satisfy a schema.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Issues))
	for n, issue := range e.Issues {
		parts[n] = issue.String()
	}
	return strings.Join(parts, ", ")
}

// CompileError reports a schema construct the interpreter cannot express.
type CompileError struct {
	// Pointer is a JSON-pointer-like location of the offending keyword.
	Pointer string
	Reason  string
}

func (e *CompileError) Error() string {
	if e.Pointer == "" {
		return "unsupported schema: " + e.Reason
	}
	return fmt.Sprintf("unsupported schema at %s: %s", e.Pointer, e.Reason)
}
