// Package patch builds the macro table of a project and applies it to the
// property graph.
package patch

import (
	"strings"

	"github.com/xkilldash9x/layerlint/internal/project"
)

// Collection is the parent name of patch definitions.
const Collection = "patch"

// Table maps %name% keys to their values, keeping the order in which keys were
// first defined.
type Table struct {
	keys   []string
	values map[string]string
}

func NewTable() *Table {
	return &Table{values: make(map[string]string)}
}

// Set defines or overwrites key. Overwriting keeps the original position.
func (t *Table) Set(key, value string) {
	if _, ok := t.values[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.values[key] = value
}

func (t *Table) Get(key string) (string, bool) {
	v, ok := t.values[key]
	return v, ok
}

func (t *Table) Len() int {
	return len(t.keys)
}

// Keys returns the keys in definition order.
func (t *Table) Keys() []string {
	return append([]string(nil), t.keys...)
}

// Map returns a copy of the table.
func (t *Table) Map() map[string]string {
	out := make(map[string]string, len(t.values))
	for k, v := range t.values {
		out[k] = v
	}
	return out
}

// Resolve repeatedly replaces every value that is exactly another key with
// that key's value. It stops after a pass without substitution, so cycles
// stall silently instead of looping. It returns the number of passes.
func (t *Table) Resolve() int {
	passes := 0
	for {
		passes++
		changed := 0
		for _, k := range t.keys {
			v := t.values[k]
			if !project.IsMacro(v) {
				continue
			}
			if r, ok := t.values[v]; ok && r != v {
				t.values[k] = r
				changed++
			}
		}
		if changed == 0 || passes > len(t.keys) {
			return passes
		}
	}
}

// Apply replaces every key found in s with its value, in definition order.
func (t *Table) Apply(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	for _, k := range t.keys {
		if strings.Contains(s, k) {
			s = strings.ReplaceAll(s, k, t.values[k])
		}
	}
	return s
}

// CollectPatchValues builds the table from every id/value pair under a
// "patch" parent, later definitions overwriting earlier ones, and resolves
// chained macros.
func CollectPatchValues(g *project.Graph) *Table {
	t := NewTable()
	for _, id := range g.Definitions(Collection) {
		if strings.TrimSpace(id.Value) == "" {
			continue
		}
		value := ""
		if v := g.Sibling(id, "value"); v != nil && v.ItemType == project.ItemProperty {
			value = v.Value
		}
		t.Set(project.MacroKey(id.Value), value)
	}
	t.Resolve()
	return t
}

// PatchAllFields stores the substituted value of every property whose value
// contains '%'. It returns how many properties changed.
func PatchAllFields(g *project.Graph, t *Table) int {
	changed := 0
	for _, p := range g.Properties {
		if p.ItemType != project.ItemProperty || !strings.Contains(p.Value, "%") {
			continue
		}
		patched := t.Apply(p.Value)
		p.SetPatchedValue(patched)
		if patched != p.Value {
			changed++
		}
	}
	return changed
}
