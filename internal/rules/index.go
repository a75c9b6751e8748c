package rules

import (
	"sort"
	"strings"

	"github.com/xkilldash9x/layerlint/internal/project"
)

const importsKey = "imports"

// element is one entry of a definition collection such as events[3].
type element struct {
	open *project.JsonProperty
	id   *project.JsonProperty
}

func (e element) path() string { return e.open.JsonPath }
func (e element) file() string { return e.open.FullFileName }

// idValue returns the trimmed id, or "" when missing.
func (e element) idValue() string {
	if e.id == nil {
		return ""
	}
	return strings.TrimSpace(e.id.Value)
}

// anchor is the property diagnostics about the element point at.
func (e element) anchor() *project.JsonProperty {
	if e.id != nil {
		return e.id
	}
	return e.open
}

// trimIndex removes one trailing [n] segment.
func trimIndex(path string) (string, bool) {
	if !strings.HasSuffix(path, "]") {
		return path, false
	}
	i := strings.LastIndexByte(path, '[')
	if i < 0 {
		return path, false
	}
	return path[:i], true
}

// elements returns the object entries of every array named collection, in
// graph order.
func elements(g *project.Graph, collection string) []element {
	var out []element
	for _, p := range g.Properties {
		if !p.IsOpening() || p.ItemType != project.ItemObject || p.Name != "" || p.Parent != collection {
			continue
		}
		arrayPath, ok := trimIndex(p.JsonPath)
		if !ok || !strings.HasSuffix(arrayPath, g.Divider+collection) {
			continue
		}
		// imports.<collection> lists references, not definitions.
		if strings.Contains(arrayPath, g.Divider+importsKey+g.Divider) {
			continue
		}
		out = append(out, element{open: p, id: g.Member(p.FullFileName, p.JsonPath, "id")})
	}
	return out
}

// member returns the trimmed value of a direct scalar member of e.
func member(g *project.Graph, e element, name string) (*project.JsonProperty, string) {
	return memberValue(g, e.file(), e.path(), name)
}

// memberValue returns a direct member of the object at objectPath and its
// trimmed value; containers have no value.
func memberValue(g *project.Graph, file, objectPath, name string) (*project.JsonProperty, string) {
	m := g.Member(file, objectPath, name)
	if m == nil || m.ItemType != project.ItemProperty {
		return m, ""
	}
	return m, strings.TrimSpace(m.Value)
}

// arrayItems returns the direct items of the array at arrayPath: scalar
// items and the opening markers of container items.
func arrayItems(g *project.Graph, file, arrayPath string) []*project.JsonProperty {
	var out []*project.JsonProperty
	prefix := arrayPath + "["
	for _, p := range g.FileProperties(file) {
		if !strings.HasPrefix(p.JsonPath, prefix) {
			continue
		}
		rest := p.JsonPath[len(prefix):]
		end := strings.IndexByte(rest, ']')
		if end < 0 || end != len(rest)-1 {
			continue
		}
		if p.ItemType == project.ItemProperty || p.IsOpening() {
			out = append(out, p)
		}
	}
	return out
}

// child returns the path of a named member of objectPath.
func child(g *project.Graph, objectPath, name string) string {
	return objectPath + g.Divider + name
}

// enclosing returns the path of the object holding the object that holds p:
// for root.events[0].actions[1].param.event it is root.events[0].actions[1].
func enclosing(p *project.JsonProperty, g *project.Graph) string {
	parent := p.ParentPath()
	if i := strings.LastIndex(parent, g.Divider); i >= 0 {
		return parent[:i]
	}
	return ""
}

// idSet collects the defined ids of a collection.
func idSet(g *project.Graph, collection string) map[string]bool {
	set := make(map[string]bool)
	for _, e := range elements(g, collection) {
		if id := e.idValue(); id != "" {
			set[id] = true
		}
	}
	return set
}

// scalars calls fn for every scalar property.
func scalars(g *project.Graph, fn func(p *project.JsonProperty)) {
	for _, p := range g.Properties {
		if p.ItemType == project.ItemProperty {
			fn(p)
		}
	}
}

// actionType returns the "type" of the action object whose "param" object
// holds p, or "" when p is not inside an action parameter block.
func actionType(g *project.Graph, p *project.JsonProperty) string {
	if p.Parent != "param" {
		return ""
	}
	action := enclosing(p, g)
	if action == "" {
		return ""
	}
	m := g.Member(p.FullFileName, action, "type")
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m.Value)
}

// triggerType returns the "type" of the trigger object holding p.
func triggerType(g *project.Graph, p *project.JsonProperty) string {
	if p.Parent != "trigger" {
		return ""
	}
	m := g.Sibling(p, "type")
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m.Value)
}

func isBlank(v string) bool {
	return strings.TrimSpace(v) == ""
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
