// Package pipeline provides the ordered, named value transformation functions
// applied to field names and field values during an import.
//
// A pipeline is a sequence of calls folded over the input left-to-right.
// Values flowing through a pipeline are nil, a string, or a []string.
package pipeline

import (
	"fmt"
	"sort"
	"sync"
)

// Value is a pipeline input or output: nil, string, or []string.
type Value = any

// Func is a single transformation. The optional argument comes from
// configuration and is empty when the call carries none.
type Func func(v Value, arg string) Value

// Call names a processor with its optional argument.
type Call struct {
	Name string
	Arg  string
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Func)
)

// Register adds a processor to the registry, overwriting any previous
// processor of the same name.
func Register(name string, fn Func) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = fn
}

// Lookup retrieves a processor by name.
func Lookup(name string) (Func, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	fn, ok := registry[name]
	return fn, ok
}

// Names returns all registered processor names (sorted).
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply folds v through each call in order. Unrecognized processor names are
// skipped, not errors: partially configured or typo'd pipelines degrade to
// no-ops rather than aborting an import.
func Apply(calls []Call, v Value) Value {
	for _, call := range calls {
		fn, ok := Lookup(call.Name)
		if !ok {
			continue
		}
		v = fn(v, call.Arg)
	}
	return v
}

// ApplyString is Apply narrowed to string inputs and outputs, used for field
// name pipelines. A non-string result collapses to "".
func ApplyString(calls []Call, s string) string {
	out, _ := Apply(calls, s).(string)
	return out
}

// ParseCalls decodes a processor list from raw configuration. Each entry is
// either a bare name ("trimString") or a single-pair map with the argument
// (removePrefix: "gc_").
func ParseCalls(raw []any) ([]Call, error) {
	calls := make([]Call, 0, len(raw))
	for i, entry := range raw {
		switch e := entry.(type) {
		case string:
			calls = append(calls, Call{Name: e})
		case map[string]any:
			if len(e) != 1 {
				return nil, fmt.Errorf("processor entry %d must hold exactly one name: argument pair", i)
			}
			for name, arg := range e {
				calls = append(calls, Call{Name: name, Arg: fmt.Sprintf("%v", arg)})
			}
		default:
			return nil, fmt.Errorf("processor entry %d has unsupported type %T", i, entry)
		}
	}
	return calls, nil
}

// IsEmpty reports whether a pipeline value carries no content: nil, the empty
// string, or an empty list.
func IsEmpty(v Value) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case []string:
		return len(val) == 0
	}
	return false
}
