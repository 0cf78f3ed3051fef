package schema

import "regexp"

type kind int

const (
	kindAny kind = iota
	kindObject
	kindArray
	kindString
	kindNumber
	kindInteger
	kindBoolean
	kindNull
	kindEnum
	kindConst
	kindAnyOf
	kindAllOf
	kindOneOf
)

var typeKinds = map[string]kind{
	"object":  kindObject,
	"array":   kindArray,
	"string":  kindString,
	"number":  kindNumber,
	"integer": kindInteger,
	"boolean": kindBoolean,
	"null":    kindNull,
}

// node is one compiled schema. Only the fields that belong to kind are set.
type node struct {
	kind kind

	hasDefault bool
	def        any

	// object
	properties map[string]*node
	order      []string
	required   map[string]bool
	additional *node
	closed     bool

	// array
	items    *node
	minItems *int
	maxItems *int

	// string
	minLength *int
	maxLength *int
	pattern   *regexp.Regexp

	// number, integer
	minimum          *float64
	maximum          *float64
	exclusiveMinimum *float64
	exclusiveMaximum *float64

	// enum, const
	values []any

	// anyOf, allOf, oneOf
	options []*node
}
