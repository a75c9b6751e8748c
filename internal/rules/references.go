package rules

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/layerlint/internal/diagnostics"
	"github.com/xkilldash9x/layerlint/internal/project"
)

// danglingRule reports usage sites naming an id with no definition.
type danglingRule struct {
	*BaseRule
	label      string
	collection string
	usages     func(g *project.Graph) []*project.JsonProperty
	// ignore skips values the runtime supplies.
	ignore func(in *Input, v string) bool
}

func (r *danglingRule) Check(ctx context.Context, in *Input) ([]diagnostics.ReportItem, error) {
	g := in.Graph
	defined := idSet(g, r.collection)
	var out []diagnostics.ReportItem
	for _, p := range r.usages(g) {
		v := strings.TrimSpace(p.Value)
		if r.NeedsPatches() {
			v = strings.TrimSpace(p.PatchedValue())
		}
		if v == "" || project.IsPlaceholder(v) || strings.Contains(v, "%") || defined[v] {
			continue
		}
		if r.ignore != nil && r.ignore(in, v) {
			continue
		}
		out = append(out, r.item(g, p, fmt.Sprintf("%s %q is not defined", r.label, v)))
	}
	return out, nil
}

func newCallNonExistingEventsRule(logger *zap.Logger) *danglingRule {
	return &danglingRule{
		BaseRule: NewBaseRule("CallNonExistingEvents",
			"Events called by actions, tools, triggers and controls are defined.",
			diagnostics.ValidationLogic, diagnostics.SeverityError, logger),
		label:      "Event",
		collection: project.Events.Collection(),
		usages:     eventUsages,
	}
}

func newCallNonExistingDataViewsRule(logger *zap.Logger) *danglingRule {
	return &danglingRule{
		BaseRule: NewBaseRule("CallNonExistingDataViews",
			"Dataviews named by triggers and properties are defined or supplied by the system.",
			diagnostics.ValidationLogic, diagnostics.SeverityError, logger).waitsForPatches(),
		label:      "Dataview",
		collection: project.DataViews.Collection(),
		usages:     dataViewUsages,
		ignore:     (*Input).isSystemDataView,
	}
}

func newCallNonExistingCombosRule(logger *zap.Logger) *danglingRule {
	return &danglingRule{
		BaseRule: NewBaseRule("CallNonExistingCombos",
			"Combos bound through comboId are defined.",
			diagnostics.ValidationLogic, diagnostics.SeverityError, logger),
		label:      "Combo",
		collection: project.Combo.Collection(),
		usages:     comboUsages,
	}
}

type callNonExistingStringsRule struct{ *BaseRule }

func newCallNonExistingStringsRule(logger *zap.Logger) *callNonExistingStringsRule {
	return &callNonExistingStringsRule{NewBaseRule("CallNonExistingStrings",
		"Strings referenced through {{strings.id}} are defined.",
		diagnostics.ValidationLogic, diagnostics.SeverityError, logger)}
}

func (r *callNonExistingStringsRule) Check(ctx context.Context, in *Input) ([]diagnostics.ReportItem, error) {
	g := in.Graph
	defined := idSet(g, project.Strings.Collection())
	var out []diagnostics.ReportItem
	scalars(g, func(p *project.JsonProperty) {
		for _, id := range project.StringRefs(p.Value) {
			if !defined[id] {
				out = append(out, r.item(g, p, fmt.Sprintf("String %q is not defined", id)))
			}
		}
	})
	return out, nil
}

type callNonExistingPatchesRule struct{ *BaseRule }

func newCallNonExistingPatchesRule(logger *zap.Logger) *callNonExistingPatchesRule {
	return &callNonExistingPatchesRule{NewBaseRule("CallNonExistingPatches",
		"Every %macro% is a defined patch or a system macro.",
		diagnostics.ValidationLogic, diagnostics.SeverityError, logger).waitsForPatches()}
}

func (r *callNonExistingPatchesRule) Check(ctx context.Context, in *Input) ([]diagnostics.ReportItem, error) {
	g := in.Graph
	defined := make(map[string]bool)
	if in.Patches != nil {
		for _, k := range in.Patches.Keys() {
			defined[strings.ToLower(k)] = true
		}
	}
	var out []diagnostics.ReportItem
	scalars(g, func(p *project.JsonProperty) {
		if isPatchID(p) {
			return
		}
		seen := make(map[string]bool)
		for _, name := range project.MacroNames(p.Value) {
			key := strings.ToLower(name)
			if seen[key] || defined[key] || in.isSystemMacro(name) {
				continue
			}
			seen[key] = true
			out = append(out, r.item(g, p, fmt.Sprintf("Patch %s is not defined", name)))
		}
	})
	return out, nil
}

type callNonExistingTableFieldsRule struct{ *BaseRule }

func newCallNonExistingTableFieldsRule(logger *zap.Logger) *callNonExistingTableFieldsRule {
	return &callNonExistingTableFieldsRule{NewBaseRule("CallNonExistingTableFields",
		"The table of every {table.field} reference is a defined or system dataview.",
		diagnostics.ValidationLogic, diagnostics.SeverityError, logger).waitsForPatches()}
}

func (r *callNonExistingTableFieldsRule) Check(ctx context.Context, in *Input) ([]diagnostics.ReportItem, error) {
	g := in.Graph
	defined := idSet(g, project.DataViews.Collection())
	var out []diagnostics.ReportItem
	scalars(g, func(p *project.JsonProperty) {
		seen := make(map[string]bool)
		for _, ref := range project.TableFieldRefs(p.PatchedValue()) {
			if strings.EqualFold(ref.Table, project.Strings.Collection()) || defined[ref.Table] ||
				in.isSystemDataView(ref.Table) || seen[ref.String()] {
				continue
			}
			seen[ref.String()] = true
			out = append(out, r.item(g, p, fmt.Sprintf("Dataview %q of %s is not defined", ref.Table, ref)))
		}
	})
	return out, nil
}
