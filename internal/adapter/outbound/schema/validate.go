package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
	"unicode/utf8"
)

// Validator checks tool arguments against a compiled schema and returns the
// coerced arguments: absent optional properties with a default are filled in.
type Validator struct {
	root        *node
	passThrough bool
}

// PassThrough returns a validator that accepts any argument object unchanged.
func PassThrough() *Validator {
	return &Validator{root: &node{kind: kindAny}, passThrough: true}
}

// IsPassThrough reports whether the validator accepts everything.
func (v *Validator) IsPassThrough() bool { return v.passThrough }

// Validate checks args and returns the coerced copy. A nil args map is
// treated as an empty object. The input map is never modified.
func (v *Validator) Validate(args map[string]any) (map[string]any, error) {
	if args == nil {
		args = map[string]any{}
	}
	if v.passThrough {
		return args, nil
	}

	out, issues := v.root.validate(args, nil)
	if len(issues) > 0 {
		return nil, &ValidationError{Issues: issues}
	}
	result, ok := out.(map[string]any)
	if !ok {
		return nil, &ValidationError{Issues: []Issue{{
			Code:    CodeInvalidType,
			Message: fmt.Sprintf("Expected object, received %s", typeName(out)),
		}}}
	}
	return result, nil
}

func (n *node) validate(value any, path []any) (any, []Issue) {
	switch n.kind {
	case kindAny:
		return value, nil
	case kindNull:
		if value != nil {
			return nil, typeIssue(path, "null", value)
		}
		return nil, nil
	case kindBoolean:
		if _, ok := value.(bool); !ok {
			return nil, typeIssue(path, "boolean", value)
		}
		return value, nil
	case kindString:
		return n.validateString(value, path)
	case kindNumber, kindInteger:
		return n.validateNumber(value, path)
	case kindArray:
		return n.validateArray(value, path)
	case kindObject:
		return n.validateObject(value, path)
	case kindEnum:
		for _, allowed := range n.values {
			if jsonEqual(allowed, value) {
				return value, nil
			}
		}
		return nil, []Issue{{
			Path:    clonePath(path),
			Code:    CodeInvalidEnumValue,
			Message: fmt.Sprintf("Invalid enum value. Expected %s, received %s", enumList(n.values), quote(value)),
		}}
	case kindConst:
		if jsonEqual(n.values[0], value) {
			return value, nil
		}
		return nil, []Issue{{
			Path:    clonePath(path),
			Code:    CodeInvalidLiteral,
			Message: fmt.Sprintf("Invalid literal value, expected %s", jsonText(n.values[0])),
		}}
	case kindAnyOf:
		for _, opt := range n.options {
			if out, issues := opt.validate(value, path); len(issues) == 0 {
				return out, nil
			}
		}
		return nil, []Issue{{Path: clonePath(path), Code: CodeInvalidUnion, Message: "Invalid input"}}
	case kindOneOf:
		var (
			matched int
			result  any
		)
		for _, opt := range n.options {
			if out, issues := opt.validate(value, path); len(issues) == 0 {
				matched++
				result = out
			}
		}
		switch matched {
		case 1:
			return result, nil
		case 0:
			return nil, []Issue{{Path: clonePath(path), Code: CodeInvalidUnion, Message: "Invalid input"}}
		default:
			return nil, []Issue{{Path: clonePath(path), Code: CodeInvalidUnion, Message: "Input matches more than one schema"}}
		}
	case kindAllOf:
		out := value
		var all []Issue
		for _, opt := range n.options {
			next, issues := opt.validate(out, path)
			if len(issues) > 0 {
				all = append(all, issues...)
				continue
			}
			out = next
		}
		if len(all) > 0 {
			return nil, all
		}
		return out, nil
	}
	return value, nil
}

func (n *node) validateString(value any, path []any) (any, []Issue) {
	s, ok := value.(string)
	if !ok {
		return nil, typeIssue(path, "string", value)
	}
	var issues []Issue
	length := utf8.RuneCountInString(s)
	if n.minLength != nil && length < *n.minLength {
		issues = append(issues, Issue{
			Path:    clonePath(path),
			Code:    CodeTooSmall,
			Message: fmt.Sprintf("String must contain at least %d character(s)", *n.minLength),
		})
	}
	if n.maxLength != nil && length > *n.maxLength {
		issues = append(issues, Issue{
			Path:    clonePath(path),
			Code:    CodeTooBig,
			Message: fmt.Sprintf("String must contain at most %d character(s)", *n.maxLength),
		})
	}
	if n.pattern != nil && !n.pattern.MatchString(s) {
		issues = append(issues, Issue{Path: clonePath(path), Code: CodeInvalidString, Message: "Invalid"})
	}
	if len(issues) > 0 {
		return nil, issues
	}
	return s, nil
}

func (n *node) validateNumber(value any, path []any) (any, []Issue) {
	f, ok := toFloat(value)
	if !ok {
		expected := "number"
		if n.kind == kindInteger {
			expected = "integer"
		}
		return nil, typeIssue(path, expected, value)
	}
	if n.kind == kindInteger && f != math.Trunc(f) {
		return nil, []Issue{{Path: clonePath(path), Code: CodeInvalidType, Message: "Expected integer, received float"}}
	}

	var issues []Issue
	if n.minimum != nil && f < *n.minimum {
		issues = append(issues, Issue{Path: clonePath(path), Code: CodeTooSmall,
			Message: fmt.Sprintf("Number must be greater than or equal to %s", formatFloat(*n.minimum))})
	}
	if n.exclusiveMinimum != nil && f <= *n.exclusiveMinimum {
		issues = append(issues, Issue{Path: clonePath(path), Code: CodeTooSmall,
			Message: fmt.Sprintf("Number must be greater than %s", formatFloat(*n.exclusiveMinimum))})
	}
	if n.maximum != nil && f > *n.maximum {
		issues = append(issues, Issue{Path: clonePath(path), Code: CodeTooBig,
			Message: fmt.Sprintf("Number must be less than or equal to %s", formatFloat(*n.maximum))})
	}
	if n.exclusiveMaximum != nil && f >= *n.exclusiveMaximum {
		issues = append(issues, Issue{Path: clonePath(path), Code: CodeTooBig,
			Message: fmt.Sprintf("Number must be less than %s", formatFloat(*n.exclusiveMaximum))})
	}
	if len(issues) > 0 {
		return nil, issues
	}
	return value, nil
}

func (n *node) validateArray(value any, path []any) (any, []Issue) {
	items, ok := toSlice(value)
	if !ok {
		return nil, typeIssue(path, "array", value)
	}

	var issues []Issue
	if n.minItems != nil && len(items) < *n.minItems {
		issues = append(issues, Issue{Path: clonePath(path), Code: CodeTooSmall,
			Message: fmt.Sprintf("Array must contain at least %d element(s)", *n.minItems)})
	}
	if n.maxItems != nil && len(items) > *n.maxItems {
		issues = append(issues, Issue{Path: clonePath(path), Code: CodeTooBig,
			Message: fmt.Sprintf("Array must contain at most %d element(s)", *n.maxItems)})
	}

	out := make([]any, len(items))
	for i, item := range items {
		if n.items == nil {
			out[i] = item
			continue
		}
		v, itemIssues := n.items.validate(item, append(path, i))
		issues = append(issues, itemIssues...)
		out[i] = v
	}
	if len(issues) > 0 {
		return nil, issues
	}
	return out, nil
}

func (n *node) validateObject(value any, path []any) (any, []Issue) {
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, typeIssue(path, "object", value)
	}

	out := make(map[string]any, len(obj))
	var issues []Issue
	for _, name := range n.order {
		prop := n.properties[name]
		v, present := obj[name]
		if !present {
			switch {
			case n.required[name]:
				issues = append(issues, Issue{Path: clonePath(append(path, name)), Code: CodeInvalidType, Message: "Required"})
			case prop.hasDefault:
				out[name] = deepCopy(prop.def)
			}
			continue
		}
		coerced, propIssues := prop.validate(v, append(path, name))
		issues = append(issues, propIssues...)
		out[name] = coerced
	}

	var unknown []string
	for name, v := range obj {
		if _, declared := n.properties[name]; declared {
			continue
		}
		switch {
		case n.closed:
			unknown = append(unknown, name)
		case n.additional != nil:
			coerced, extraIssues := n.additional.validate(v, append(path, name))
			issues = append(issues, extraIssues...)
			out[name] = coerced
		default:
			out[name] = v
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		quoted := make([]string, len(unknown))
		for i, name := range unknown {
			quoted[i] = "'" + name + "'"
		}
		issues = append(issues, Issue{
			Path:    clonePath(path),
			Code:    CodeUnrecognizedKeys,
			Message: "Unrecognized key(s) in object: " + strings.Join(quoted, ", "),
		})
	}

	if len(issues) > 0 {
		return nil, issues
	}
	return out, nil
}

func typeIssue(path []any, expected string, value any) []Issue {
	received := typeName(value)
	message := fmt.Sprintf("Expected %s, received %s", expected, received)
	return []Issue{{Path: clonePath(path), Code: CodeInvalidType, Message: message}}
}

func typeName(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case map[string]any:
		return "object"
	}
	if _, ok := toFloat(value); ok {
		return "number"
	}
	if _, ok := toSlice(value); ok {
		return "array"
	}
	return fmt.Sprintf("%T", value)
}

// clonePath copies path so later appends on the shared backing array cannot
// rewrite a recorded issue.
func clonePath(path []any) []any {
	if len(path) == 0 {
		return nil
	}
	return append([]any(nil), path...)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func toSlice(v any) ([]any, bool) {
	if s, ok := v.([]any); ok {
		return s, true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
		// []byte is a string in disguise, not an array.
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func jsonEqual(a, b any) bool {
	fa, aNum := toFloat(a)
	fb, bNum := toFloat(b)
	if aNum || bNum {
		return aNum && bNum && fa == fb
	}
	return reflect.DeepEqual(a, b)
}

func formatFloat(f float64) string {
	return jsonText(f)
}

func jsonText(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func quote(v any) string {
	if s, ok := v.(string); ok {
		return "'" + s + "'"
	}
	return jsonText(v)
}

func enumList(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = quote(v)
	}
	return strings.Join(parts, " | ")
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = deepCopy(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = deepCopy(item)
		}
		return out
	default:
		return v
	}
}
