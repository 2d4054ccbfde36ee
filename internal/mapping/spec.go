// Package mapping holds the declarative routing from source templates to
// target classes and fields, decoded once from configuration into typed
// values.
package mapping

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"

	"github.com/contentforge/gathersync/internal/pipeline"
)

// DefaultLookupField is the related-object field matched when a lookup spec
// does not name one.
const DefaultLookupField = "Title"

// LookupSpec controls how a reference field resolves its related object.
type LookupSpec struct {
	// Field is the related-class field matched against the source value.
	Field string `mapstructure:"field"`
	// Create makes a missing related object on demand.
	Create bool `mapstructure:"create"`
}

// Pipelines pairs a field-name pipeline with a value pipeline.
type Pipelines struct {
	Field []pipeline.Call
	Value []pipeline.Call
}

// FieldMapping routes one source field label. A plain-string config entry
// becomes an exact mapping: the target name is used verbatim and field-name
// pipelines are bypassed.
type FieldMapping struct {
	Target       string
	Exact        bool
	Lookup       LookupSpec
	Translations map[string]string
	Processors   Pipelines
}

// ParentSpec declares the parent object for hierarchical target classes.
type ParentSpec struct {
	Class string `mapstructure:"class"`
	Title string `mapstructure:"title"`
}

// ClassMapping holds the field specification for one target class.
type ClassMapping struct {
	Class      string
	Mappings   map[string]FieldMapping
	Skip       []string
	Parent     *ParentSpec
	Processors Pipelines
}

// Skipped reports whether a source field label is in the skip list.
func (c *ClassMapping) Skipped(label string) bool {
	for _, s := range c.Skip {
		if s == label {
			return true
		}
	}
	return false
}

// Mapping returns the field mapping for a source label, if any.
func (c *ClassMapping) Mapping(label string) (FieldMapping, bool) {
	fm, ok := c.Mappings[label]
	return fm, ok
}

// Spec is the full mapping configuration.
type Spec struct {
	// Classes maps a template name to its class mapping.
	Classes map[string]*ClassMapping
	// Default applies when no template-specific mapping exists.
	Default *ClassMapping
	// TemplateOrder lists templates processed first, in order.
	TemplateOrder []string
	// SkippedTemplates are excluded from the final catch-all pass.
	SkippedTemplates []string
}

// Resolve returns the class mapping for a template name: the exact entry,
// else the default, else a miss.
func (s *Spec) Resolve(templateName string) (*ClassMapping, bool) {
	if cm, ok := s.Classes[templateName]; ok {
		return cm, true
	}
	if s.Default != nil {
		return s.Default, true
	}
	return nil, false
}

// TemplateSkipped reports whether a template is excluded from the catch-all
// pass.
func (s *Spec) TemplateSkipped(name string) bool {
	for _, t := range s.SkippedTemplates {
		if t == name {
			return true
		}
	}
	return false
}

// Passes returns the template processing order: every TemplateOrder entry in
// sequence, then the remaining templates (in the given order) that are
// neither explicitly ordered nor skipped. Dependent-object templates listed
// early in TemplateOrder are therefore fully imported before anything that
// references them.
func (s *Spec) Passes(templates []string) []string {
	ordered := make(map[string]bool, len(s.TemplateOrder))
	passes := make([]string, 0, len(templates))
	for _, name := range s.TemplateOrder {
		ordered[name] = true
		passes = append(passes, name)
	}
	for _, name := range templates {
		if ordered[name] || s.TemplateSkipped(name) {
			continue
		}
		ordered[name] = true
		passes = append(passes, name)
	}
	return passes
}

// rawClass is the wire shape of one class mapping entry.
type rawClass struct {
	Fields struct {
		Mappings map[string]any `mapstructure:"mappings"`
		Skip     []string       `mapstructure:"skip"`
	} `mapstructure:"fields"`
	Parent     *ParentSpec      `mapstructure:"parent"`
	Processors map[string][]any `mapstructure:"processors"`
}

// rawField is the wire shape of a detailed field mapping.
type rawField struct {
	CMS          string            `mapstructure:"cms"`
	Lookup       *LookupSpec       `mapstructure:"lookup"`
	Translations map[string]string `mapstructure:"translations"`
	Processors   map[string][]any  `mapstructure:"processors"`
}

// Decode builds a Spec from the raw mappings configuration subtree. All
// shape errors surface here, once, instead of at every use site during an
// import.
func Decode(raw map[string]any) (*Spec, error) {
	spec := &Spec{Classes: make(map[string]*ClassMapping)}
	if raw == nil {
		return spec, nil
	}

	var top struct {
		Classes          map[string]map[string]any `mapstructure:"classes"`
		Default          map[string]any            `mapstructure:"default"`
		TemplateOrder    []string                  `mapstructure:"template_order"`
		SkippedTemplates []string                  `mapstructure:"skipped_templates"`
	}
	if err := mapstructure.Decode(raw, &top); err != nil {
		return nil, fmt.Errorf("malformed mappings config: %w", err)
	}
	spec.TemplateOrder = top.TemplateOrder
	spec.SkippedTemplates = top.SkippedTemplates

	for templateName, entry := range top.Classes {
		cm, err := decodeClassEntry(entry)
		if err != nil {
			return nil, fmt.Errorf("mappings for template %q: %w", templateName, err)
		}
		spec.Classes[templateName] = cm
	}

	if len(top.Default) > 0 {
		cm, err := decodeClassEntry(top.Default)
		if err != nil {
			return nil, fmt.Errorf("default mapping: %w", err)
		}
		spec.Default = cm
	}

	return spec, nil
}

// decodeClassEntry decodes the single {class: details} pair of a template
// mapping. Multiple classes per template are not supported.
func decodeClassEntry(entry map[string]any) (*ClassMapping, error) {
	if len(entry) != 1 {
		return nil, fmt.Errorf("expected exactly one target class, got %d", len(entry))
	}

	for className, details := range entry {
		var rc rawClass
		if err := mapstructure.Decode(details, &rc); err != nil {
			return nil, fmt.Errorf("class %q: %w", className, err)
		}

		cm := &ClassMapping{
			Class:    className,
			Mappings: make(map[string]FieldMapping, len(rc.Fields.Mappings)),
			Skip:     rc.Fields.Skip,
			Parent:   rc.Parent,
		}

		var err error
		if cm.Processors, err = decodePipelines(rc.Processors); err != nil {
			return nil, fmt.Errorf("class %q processors: %w", className, err)
		}

		for label, rawMapping := range rc.Fields.Mappings {
			fm, err := decodeFieldMapping(rawMapping)
			if err != nil {
				return nil, fmt.Errorf("class %q field %q: %w", className, label, err)
			}
			cm.Mappings[label] = fm
		}

		return cm, nil
	}
	return nil, fmt.Errorf("empty class entry")
}

// decodeFieldMapping decodes a string-or-struct field mapping entry.
func decodeFieldMapping(raw any) (FieldMapping, error) {
	switch m := raw.(type) {
	case string:
		return FieldMapping{Target: m, Exact: true, Lookup: LookupSpec{Field: DefaultLookupField}}, nil
	case map[string]any:
		var rf rawField
		if err := mapstructure.Decode(m, &rf); err != nil {
			return FieldMapping{}, err
		}

		fm := FieldMapping{
			Target:       rf.CMS,
			Exact:        rf.CMS != "",
			Lookup:       LookupSpec{Field: DefaultLookupField},
			Translations: rf.Translations,
		}
		if rf.Lookup != nil {
			fm.Lookup = *rf.Lookup
			if fm.Lookup.Field == "" {
				fm.Lookup.Field = DefaultLookupField
			}
		}

		var err error
		if fm.Processors, err = decodePipelines(rf.Processors); err != nil {
			return FieldMapping{}, err
		}
		return fm, nil
	}
	return FieldMapping{}, fmt.Errorf("unsupported mapping type %T", raw)
}

// decodePipelines parses {field: [...], value: [...]} processor lists.
func decodePipelines(raw map[string][]any) (Pipelines, error) {
	var p Pipelines
	var err error
	if p.Field, err = pipeline.ParseCalls(raw["field"]); err != nil {
		return p, fmt.Errorf("field pipeline: %w", err)
	}
	if p.Value, err = pipeline.ParseCalls(raw["value"]); err != nil {
		return p, fmt.Errorf("value pipeline: %w", err)
	}
	return p, nil
}
