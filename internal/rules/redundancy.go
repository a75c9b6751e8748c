package rules

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/layerlint/internal/diagnostics"
	"github.com/xkilldash9x/layerlint/internal/project"
)

// redundantRule reports project definitions nothing refers to. Shared
// definitions are never redundant: other projects may use them.
type redundantRule struct {
	*BaseRule
	collection string
	label      string
	// used returns the referenced ids, already passed through key.
	used func(g *project.Graph) map[string]bool
	key  func(id string) string
	// live exempts definitions that are used implicitly.
	live func(g *project.Graph, e element) bool
}

func (r *redundantRule) Check(ctx context.Context, in *Input) ([]diagnostics.ReportItem, error) {
	g := in.Graph
	used := r.used(g)
	var out []diagnostics.ReportItem
	for _, e := range elements(g, r.collection) {
		id := e.idValue()
		if id == "" || e.open.Shared {
			continue
		}
		if used[r.key(id)] || (r.live != nil && r.live(g, e)) {
			continue
		}
		out = append(out, r.item(g, e.anchor(), fmt.Sprintf("%s %q is never used", r.label, id)))
	}
	return out, nil
}

func identity(id string) string { return id }

func newRedundantStringsRule(logger *zap.Logger) *redundantRule {
	return &redundantRule{
		BaseRule: NewBaseRule("RedundantStrings",
			"Every project string is referenced through {{strings.id}}.",
			diagnostics.ValidationLogic, diagnostics.SeverityWarning, logger),
		collection: project.Strings.Collection(),
		label:      "String",
		used:       referencedStrings,
		key:        identity,
	}
}

func newRedundantEventsRule(logger *zap.Logger) *redundantRule {
	return &redundantRule{
		BaseRule: NewBaseRule("RedundantEvents",
			"Every project event has a trigger or is called by another event, tool or control.",
			diagnostics.ValidationLogic, diagnostics.SeverityWarning, logger),
		collection: project.Events.Collection(),
		label:      "Event",
		used:       func(g *project.Graph) map[string]bool { return valuesOf(eventUsages(g)) },
		key:        identity,
		live: func(g *project.Graph, e element) bool {
			return g.Member(e.file(), e.path(), "trigger") != nil
		},
	}
}

func newRedundantDataViewsRule(logger *zap.Logger) *redundantRule {
	return &redundantRule{
		BaseRule: NewBaseRule("RedundantDataViews",
			"Every project dataview is referenced by a trigger, a property or a {table.field} value.",
			diagnostics.ValidationLogic, diagnostics.SeverityWarning, logger),
		collection: project.DataViews.Collection(),
		label:      "Dataview",
		used:       referencedDataViews,
		key:        identity,
	}
}

func newRedundantPatchesRule(logger *zap.Logger) *redundantRule {
	return &redundantRule{
		BaseRule: NewBaseRule("RedundantPatches",
			"Every project patch is used as a %macro% somewhere.",
			diagnostics.ValidationLogic, diagnostics.SeverityNote, logger),
		collection: project.Patch.Collection(),
		label:      "Patch",
		used:       referencedMacros,
		key:        func(id string) string { return strings.ToLower(project.MacroKey(id)) },
	}
}

func newRedundantCombosRule(logger *zap.Logger) *redundantRule {
	return &redundantRule{
		BaseRule: NewBaseRule("RedundantCombos",
			"Every project combo is bound to a control through comboId.",
			diagnostics.ValidationLogic, diagnostics.SeverityNote, logger),
		collection: project.Combo.Collection(),
		label:      "Combo",
		used:       func(g *project.Graph) map[string]bool { return valuesOf(comboUsages(g)) },
		key:        identity,
	}
}
