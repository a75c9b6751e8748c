package rules

import (
	"strings"

	"github.com/xkilldash9x/layerlint/internal/project"
)

// dataViewProperties name a dataview wherever they appear.
var dataViewProperties = map[string]bool{
	"dataview": true,
	"dataView": true,
	"view":     true,
	"result":   true,
}

// eventUsages returns the properties that call an event by id.
func eventUsages(g *project.Graph) []*project.JsonProperty {
	var out []*project.JsonProperty
	scalars(g, func(p *project.JsonProperty) {
		switch {
		case p.Name == "event" && actionType(g, p) == "event-next",
			p.Name == "event" && p.Parent == project.Tools.Collection(),
			p.Name == "onClick",
			p.Name == "target" && triggerType(g, p) == "event":
			out = append(out, p)
		}
	})
	return out
}

// dataViewUsages returns the properties that name a dataview.
func dataViewUsages(g *project.Graph) []*project.JsonProperty {
	var out []*project.JsonProperty
	scalars(g, func(p *project.JsonProperty) {
		switch {
		case p.Name == "target" && triggerType(g, p) == "dataview",
			dataViewProperties[p.Name]:
			out = append(out, p)
		}
	})
	return out
}

// comboUsages returns the comboId properties.
func comboUsages(g *project.Graph) []*project.JsonProperty {
	var out []*project.JsonProperty
	scalars(g, func(p *project.JsonProperty) {
		if p.Name == "comboId" {
			out = append(out, p)
		}
	})
	return out
}

// isPatchID reports whether p is the id of a patch definition.
func isPatchID(p *project.JsonProperty) bool {
	return p.Name == "id" && p.Parent == project.Patch.Collection()
}

// referencedStrings returns the string ids used through {{strings.id}}.
func referencedStrings(g *project.Graph) map[string]bool {
	used := make(map[string]bool)
	scalars(g, func(p *project.JsonProperty) {
		for _, id := range project.StringRefs(p.Value) {
			used[id] = true
		}
	})
	return used
}

// referencedMacros returns the %name% tokens used in any value other than a
// patch id.
func referencedMacros(g *project.Graph) map[string]bool {
	used := make(map[string]bool)
	scalars(g, func(p *project.JsonProperty) {
		if isPatchID(p) {
			return
		}
		for _, m := range project.MacroNames(p.Value) {
			used[strings.ToLower(m)] = true
		}
	})
	return used
}

// referencedDataViews returns the dataview ids named by usage properties or
// as the table of a {table.field} reference.
func referencedDataViews(g *project.Graph) map[string]bool {
	used := make(map[string]bool)
	for _, p := range dataViewUsages(g) {
		if v := strings.TrimSpace(p.Value); v != "" {
			used[v] = true
		}
	}
	scalars(g, func(p *project.JsonProperty) {
		for _, ref := range project.TableFieldRefs(p.Value) {
			used[ref.Table] = true
		}
	})
	return used
}

// valuesOf collects the trimmed values of props.
func valuesOf(props []*project.JsonProperty) map[string]bool {
	set := make(map[string]bool, len(props))
	for _, p := range props {
		if v := strings.TrimSpace(p.Value); v != "" {
			set[v] = true
		}
	}
	return set
}
