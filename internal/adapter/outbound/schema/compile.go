package schema

import (
	"fmt"
	"math"
	"regexp"
	"sort"
)

// Keywords the interpreter refuses to guess at.
var unsupportedKeywords = []string{
	"$ref", "$dynamicRef", "not", "if", "then", "else",
	"patternProperties", "dependentSchemas", "dependentRequired",
	"propertyNames", "unevaluatedProperties", "unevaluatedItems",
	"prefixItems", "contains",
}

// Compile turns a JSON Schema document, held as decoded data, into a Validator.
// A nil schema compiles to a validator that accepts any object.
func Compile(schema map[string]any) (*Validator, error) {
	if schema == nil {
		return &Validator{root: &node{kind: kindAny}}, nil
	}
	root, err := compileNode(schema, "#")
	if err != nil {
		return nil, err
	}
	return &Validator{root: root}, nil
}

func compileNode(raw any, ptr string) (*node, error) {
	switch v := raw.(type) {
	case bool:
		// true accepts everything; false has no useful meaning for tool inputs.
		if v {
			return &node{kind: kindAny}, nil
		}
		return nil, &CompileError{Pointer: ptr, Reason: "false schema"}
	case map[string]any:
		return compileObjectSchema(v, ptr)
	default:
		return nil, &CompileError{Pointer: ptr, Reason: fmt.Sprintf("schema must be an object, got %T", raw)}
	}
}

func compileObjectSchema(s map[string]any, ptr string) (*node, error) {
	for _, kw := range unsupportedKeywords {
		if _, ok := s[kw]; ok {
			return nil, &CompileError{Pointer: ptr + "/" + kw, Reason: "keyword not supported"}
		}
	}

	var parts []*node

	typed, err := compileType(s, ptr)
	if err != nil {
		return nil, err
	}
	if typed != nil {
		parts = append(parts, typed)
	}

	if raw, ok := s["enum"]; ok {
		values, ok := raw.([]any)
		if !ok || len(values) == 0 {
			return nil, &CompileError{Pointer: ptr + "/enum", Reason: "enum must be a non-empty array"}
		}
		parts = append(parts, &node{kind: kindEnum, values: values})
	}
	if c, ok := s["const"]; ok {
		parts = append(parts, &node{kind: kindConst, values: []any{c}})
	}

	for _, combinator := range []struct {
		keyword string
		kind    kind
	}{
		{"anyOf", kindAnyOf},
		{"allOf", kindAllOf},
		{"oneOf", kindOneOf},
	} {
		raw, ok := s[combinator.keyword]
		if !ok {
			continue
		}
		list, ok := raw.([]any)
		if !ok || len(list) == 0 {
			return nil, &CompileError{Pointer: ptr + "/" + combinator.keyword, Reason: "must be a non-empty array"}
		}
		options := make([]*node, 0, len(list))
		for i, sub := range list {
			n, err := compileNode(sub, fmt.Sprintf("%s/%s/%d", ptr, combinator.keyword, i))
			if err != nil {
				return nil, err
			}
			options = append(options, n)
		}
		parts = append(parts, &node{kind: combinator.kind, options: options})
	}

	var n *node
	switch len(parts) {
	case 0:
		n = &node{kind: kindAny}
	case 1:
		n = parts[0]
	default:
		n = &node{kind: kindAllOf, options: parts}
	}

	if nullable, _ := s["nullable"].(bool); nullable && n.kind != kindAny {
		n = &node{kind: kindAnyOf, options: []*node{n, {kind: kindNull}}}
	}

	if def, ok := s["default"]; ok {
		n.hasDefault = true
		n.def = def
	}
	return n, nil
}

// compileType handles the "type" keyword together with the keywords that
// refine a single type. A schema with properties but no type is an object.
func compileType(s map[string]any, ptr string) (*node, error) {
	var names []string
	switch t := s["type"].(type) {
	case nil:
		if _, ok := s["properties"]; ok {
			names = []string{"object"}
		} else if _, ok := s["items"]; ok {
			names = []string{"array"}
		}
	case string:
		names = []string{t}
	case []any:
		for i, item := range t {
			name, ok := item.(string)
			if !ok {
				return nil, &CompileError{Pointer: fmt.Sprintf("%s/type/%d", ptr, i), Reason: "type entries must be strings"}
			}
			names = append(names, name)
		}
	default:
		return nil, &CompileError{Pointer: ptr + "/type", Reason: "type must be a string or an array of strings"}
	}
	if len(names) == 0 {
		return nil, nil
	}

	options := make([]*node, 0, len(names))
	for _, name := range names {
		k, ok := typeKinds[name]
		if !ok {
			return nil, &CompileError{Pointer: ptr + "/type", Reason: fmt.Sprintf("unknown type %q", name)}
		}
		n, err := compileTyped(k, s, ptr)
		if err != nil {
			return nil, err
		}
		options = append(options, n)
	}
	if len(options) == 1 {
		return options[0], nil
	}
	return &node{kind: kindAnyOf, options: options}, nil
}

func compileTyped(k kind, s map[string]any, ptr string) (*node, error) {
	n := &node{kind: k}
	var err error
	switch k {
	case kindObject:
		err = compileObject(n, s, ptr)
	case kindArray:
		if raw, ok := s["items"]; ok {
			if n.items, err = compileNode(raw, ptr+"/items"); err != nil {
				return nil, err
			}
		}
		if n.minItems, err = intKeyword(s, "minItems", ptr); err != nil {
			return nil, err
		}
		n.maxItems, err = intKeyword(s, "maxItems", ptr)
	case kindString:
		if n.minLength, err = intKeyword(s, "minLength", ptr); err != nil {
			return nil, err
		}
		if n.maxLength, err = intKeyword(s, "maxLength", ptr); err != nil {
			return nil, err
		}
		if raw, ok := s["pattern"]; ok {
			expr, ok := raw.(string)
			if !ok {
				return nil, &CompileError{Pointer: ptr + "/pattern", Reason: "pattern must be a string"}
			}
			re, rerr := regexp.Compile(expr)
			if rerr != nil {
				return nil, &CompileError{Pointer: ptr + "/pattern", Reason: rerr.Error()}
			}
			n.pattern = re
		}
	case kindNumber, kindInteger:
		for _, kw := range []struct {
			name   string
			target **float64
		}{
			{"minimum", &n.minimum},
			{"maximum", &n.maximum},
			{"exclusiveMinimum", &n.exclusiveMinimum},
			{"exclusiveMaximum", &n.exclusiveMaximum},
		} {
			raw, ok := s[kw.name]
			if !ok {
				continue
			}
			f, ok := toFloat(raw)
			if !ok {
				// draft-04 boolean exclusive bounds are not supported
				return nil, &CompileError{Pointer: ptr + "/" + kw.name, Reason: "must be a number"}
			}
			*kw.target = &f
		}
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

func compileObject(n *node, s map[string]any, ptr string) error {
	n.properties = map[string]*node{}
	n.required = map[string]bool{}

	if raw, ok := s["properties"]; ok {
		props, ok := raw.(map[string]any)
		if !ok {
			return &CompileError{Pointer: ptr + "/properties", Reason: "properties must be an object"}
		}
		for name, sub := range props {
			p, err := compileNode(sub, ptr+"/properties/"+name)
			if err != nil {
				return err
			}
			n.properties[name] = p
			n.order = append(n.order, name)
		}
		// Map iteration is random; issues must come out in a stable order.
		sort.Strings(n.order)
	}

	if raw, ok := s["required"]; ok {
		list, ok := raw.([]any)
		if !ok {
			return &CompileError{Pointer: ptr + "/required", Reason: "required must be an array"}
		}
		for _, item := range list {
			name, ok := item.(string)
			if !ok {
				return &CompileError{Pointer: ptr + "/required", Reason: "required entries must be strings"}
			}
			n.required[name] = true
			if _, declared := n.properties[name]; !declared {
				n.properties[name] = &node{kind: kindAny}
				n.order = append(n.order, name)
			}
		}
		sort.Strings(n.order)
	}

	switch ap := s["additionalProperties"].(type) {
	case nil:
	case bool:
		n.closed = !ap
	case map[string]any:
		extra, err := compileNode(ap, ptr+"/additionalProperties")
		if err != nil {
			return err
		}
		n.additional = extra
	default:
		return &CompileError{Pointer: ptr + "/additionalProperties", Reason: "must be a boolean or a schema"}
	}
	return nil
}

func intKeyword(s map[string]any, name, ptr string) (*int, error) {
	raw, ok := s[name]
	if !ok {
		return nil, nil
	}
	f, ok := toFloat(raw)
	if !ok || f < 0 || f != math.Trunc(f) {
		return nil, &CompileError{Pointer: ptr + "/" + name, Reason: "must be a non-negative integer"}
	}
	i := int(f)
	return &i, nil
}
