package rules

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/layerlint/internal/diagnostics"
	"github.com/xkilldash9x/layerlint/internal/project"
)

// overrideRule reports project definitions that replace an earlier
// definition with the same id and a different body. Replacing another project definition is a
// Warning; replacing a shared one is a Note, raised only when the project
// definition has a body of its own.
type overrideRule struct {
	*BaseRule
	collection string
	label      string
	key        func(id string) string
	// valued definitions keep their body in a "value" member.
	valued bool
}

func newOverrideRule(name string, ct project.ContentType, label string, valued bool, logger *zap.Logger) *overrideRule {
	key := identity
	if ct == project.Patch {
		key = func(id string) string { return strings.ToLower(project.MacroKey(id)) }
	}
	return &overrideRule{
		BaseRule: NewBaseRule(name,
			fmt.Sprintf("Flags %s definitions that replace an earlier definition with the same id and a different value.", strings.ToLower(label)),
			diagnostics.ValidationLogic, diagnostics.SeverityWarning, logger),
		collection: ct.Collection(),
		label:      label,
		key:        key,
		valued:     valued,
	}
}

// hasBody reports whether the definition carries anything besides its id.
func (r *overrideRule) hasBody(g *project.Graph, e element) bool {
	if r.valued {
		return r.body(g, e) != ""
	}
	for _, m := range g.Members(e.file(), e.path()) {
		if m.Name != "id" && m.Name != "" {
			return true
		}
	}
	return false
}

// body returns the comparable content of a definition: its "value" member
// for valued kinds, every scalar below it except the id otherwise. Nested
// scalars are rendered as relative path=value pairs in document order.
func (r *overrideRule) body(g *project.Graph, e element) string {
	base := e.path()
	if r.valued {
		m, v := member(g, e, "value")
		if m == nil || m.ItemType == project.ItemProperty {
			return v
		}
		base = m.JsonPath
	}
	var parts []string
	for _, p := range g.Subtree(e.file(), base) {
		if p.ItemType != project.ItemProperty {
			continue
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(p.JsonPath, base), g.Divider)
		if !r.valued && rel == "id" {
			continue
		}
		parts = append(parts, rel+"="+strings.TrimSpace(p.Value))
	}
	return strings.Join(parts, ", ")
}

func (r *overrideRule) Check(ctx context.Context, in *Input) ([]diagnostics.ReportItem, error) {
	g := in.Graph
	groups := make(map[string][]element)
	var order []string
	for _, e := range elements(g, r.collection) {
		id := e.idValue()
		if id == "" {
			continue
		}
		k := r.key(id)
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], e)
	}

	var out []diagnostics.ReportItem
	for _, k := range order {
		defs := groups[k]
		if len(defs) < 2 {
			continue
		}
		// Shared layers load beneath the project.
		sort.SliceStable(defs, func(i, j int) bool {
			return defs[i].open.Shared && !defs[j].open.Shared
		})
		for i := 1; i < len(defs); i++ {
			cur, prev := defs[i], defs[i-1]
			if cur.open.Shared {
				continue
			}
			oldBody, newBody := r.body(g, prev), r.body(g, cur)
			if oldBody == newBody {
				continue
			}
			sev := diagnostics.SeverityWarning
			if prev.open.Shared {
				if !r.hasBody(g, cur) {
					continue
				}
				sev = diagnostics.SeverityNote
			}
			item := r.itemAs(g, cur.anchor(), sev, fmt.Sprintf("%s %q overrides %q → %q (%s:%d → %s:%d)",
				r.label, cur.idValue(), oldBody, newBody,
				filepath.Base(prev.file()), prev.anchor().SourceLineNumber,
				filepath.Base(cur.file()), cur.anchor().SourceLineNumber))
			item.FullFileName = diagnostics.JoinFiles(cur.file(), prev.file())
			out = append(out, item)
		}
	}
	return out, nil
}
