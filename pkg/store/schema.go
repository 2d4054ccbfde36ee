package store

import (
	"fmt"
	"strings"
)

// FieldKind classifies a target class field for import purposes.
type FieldKind int

const (
	// KindScalar is a plain value field.
	KindScalar FieldKind = iota
	// KindEnum is a fixed-choice field, imported like a scalar.
	KindEnum
	// KindSingleRef points at one related object.
	KindSingleRef
	// KindMultiRef holds an ordered collection of related objects.
	KindMultiRef
)

// String returns the config spelling of the kind.
func (k FieldKind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindEnum:
		return "enum"
	case KindSingleRef:
		return "ref"
	case KindMultiRef:
		return "refs"
	}
	return fmt.Sprintf("FieldKind(%d)", int(k))
}

// ClassSchema enumerates the fields of one target class. It is built from
// configuration once at startup and consulted via lookup during import.
type ClassSchema struct {
	Name   string
	Fields map[string]FieldKind

	// RefTargets maps reference fields to the related class name.
	RefTargets map[string]string

	// Hierarchical classes support parent placement.
	Hierarchical bool

	// Publishable classes carry a draft/live lifecycle.
	Publishable bool
}

// Kind returns the kind of a field, or false when the field is not part of
// the class schema.
func (c *ClassSchema) Kind(field string) (FieldKind, bool) {
	k, ok := c.Fields[field]
	return k, ok
}

// RefTarget returns the related class for a reference field.
func (c *ClassSchema) RefTarget(field string) string {
	return c.RefTargets[field]
}

// Schemas maps class names to their schema descriptors.
type Schemas map[string]*ClassSchema

// Class returns the schema for a class name.
func (s Schemas) Class(name string) (*ClassSchema, bool) {
	c, ok := s[name]
	return c, ok
}

// ParseFieldKind parses the config spelling of a field kind:
// "scalar", "enum", "ref:Class" or "refs:Class".
func ParseFieldKind(spec string) (FieldKind, string, error) {
	kind, target, _ := strings.Cut(strings.TrimSpace(spec), ":")
	switch kind {
	case "scalar":
		return KindScalar, "", nil
	case "enum":
		return KindEnum, "", nil
	case "ref":
		if target == "" {
			return 0, "", fmt.Errorf("ref field kind requires a target class, e.g. %q", "ref:Author")
		}
		return KindSingleRef, target, nil
	case "refs":
		if target == "" {
			return 0, "", fmt.Errorf("refs field kind requires a target class, e.g. %q", "refs:Category")
		}
		return KindMultiRef, target, nil
	}
	return 0, "", fmt.Errorf("unknown field kind %q", spec)
}
