package rules

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/layerlint/internal/diagnostics"
	"github.com/xkilldash9x/layerlint/internal/project"
)

// knownTriggerTypes are the trigger kinds the runtime dispatches.
var knownTriggerTypes = map[string]bool{
	"control":  true,
	"dataview": true,
	"event":    true,
	"form":     true,
	"init":     true,
	"page":     true,
	"property": true,
	"tool":     true,
	"toolbar":  true,
}

// targetlessTriggers fire without a target.
var targetlessTriggers = map[string]bool{
	"form": true,
	"init": true,
}

type emptyStringValuesRule struct{ *BaseRule }

func newEmptyStringValuesRule(logger *zap.Logger) *emptyStringValuesRule {
	return &emptyStringValuesRule{NewBaseRule("EmptyStringValues",
		"String definitions carry a text value.",
		diagnostics.ValidationLogic, diagnostics.SeverityWarning, logger)}
}

func (r *emptyStringValuesRule) Check(ctx context.Context, in *Input) ([]diagnostics.ReportItem, error) {
	g := in.Graph
	var out []diagnostics.ReportItem
	for _, e := range elements(g, project.Strings.Collection()) {
		if e.idValue() == "" {
			continue
		}
		m, v := member(g, e, "value")
		if v != "" {
			continue
		}
		anchor := e.anchor()
		if m != nil {
			anchor = m
		}
		out = append(out, r.item(g, anchor, fmt.Sprintf("String %q has no value", e.idValue())))
	}
	return out, nil
}

type emptyEventsRule struct{ *BaseRule }

func newEmptyEventsRule(logger *zap.Logger) *emptyEventsRule {
	return &emptyEventsRule{NewBaseRule("EmptyEvents",
		"Events define at least one action.",
		diagnostics.ValidationLogic, diagnostics.SeverityWarning, logger)}
}

func (r *emptyEventsRule) Check(ctx context.Context, in *Input) ([]diagnostics.ReportItem, error) {
	g := in.Graph
	var out []diagnostics.ReportItem
	for _, e := range elements(g, project.Events.Collection()) {
		if e.idValue() == "" {
			continue
		}
		actions := g.Member(e.file(), e.path(), "actions")
		if actions != nil && actions.ItemType == project.ItemArray &&
			len(arrayItems(g, e.file(), actions.JsonPath)) > 0 {
			continue
		}
		out = append(out, r.item(g, e.anchor(), fmt.Sprintf("Event %q has no actions", e.idValue())))
	}
	return out, nil
}

type incompleteDataViewsRule struct{ *BaseRule }

func newIncompleteDataViewsRule(logger *zap.Logger) *incompleteDataViewsRule {
	return &incompleteDataViewsRule{NewBaseRule("IncompleteDataViews",
		"Dataview definitions name the table they hold.",
		diagnostics.ValidationLogic, diagnostics.SeverityWarning, logger)}
}

func (r *incompleteDataViewsRule) Check(ctx context.Context, in *Input) ([]diagnostics.ReportItem, error) {
	g := in.Graph
	var out []diagnostics.ReportItem
	for _, e := range elements(g, project.DataViews.Collection()) {
		if e.idValue() == "" {
			continue
		}
		if _, table := member(g, e, "table"); table == "" {
			out = append(out, r.item(g, e.anchor(), fmt.Sprintf("Dataview %q has no table", e.idValue())))
		}
	}
	return out, nil
}

type unknownTriggerTypesRule struct{ *BaseRule }

func newUnknownTriggerTypesRule(logger *zap.Logger) *unknownTriggerTypesRule {
	return &unknownTriggerTypesRule{NewBaseRule("UnknownTriggerTypes",
		"Event triggers use a trigger type the runtime knows.",
		diagnostics.ValidationLogic, diagnostics.SeverityWarning, logger)}
}

func (r *unknownTriggerTypesRule) Check(ctx context.Context, in *Input) ([]diagnostics.ReportItem, error) {
	g := in.Graph
	var out []diagnostics.ReportItem
	scalars(g, func(p *project.JsonProperty) {
		if p.Name != "type" || p.Parent != "trigger" {
			return
		}
		v := strings.TrimSpace(p.Value)
		if v == "" || knownTriggerTypes[strings.ToLower(v)] || project.IsPlaceholder(v) {
			return
		}
		out = append(out, r.item(g, p, fmt.Sprintf("Unknown trigger type %q", v)))
	})
	return out, nil
}

// inconsistentVersionsRule compares the top-level contentVersion of every
// project file against the most common one.
type inconsistentVersionsRule struct{ *BaseRule }

func newInconsistentVersionsRule(logger *zap.Logger) *inconsistentVersionsRule {
	return &inconsistentVersionsRule{NewBaseRule("InconsistentVersions",
		"All project files declare the same contentVersion.",
		diagnostics.ValidationLogic, diagnostics.SeverityWarning, logger)}
}

func (r *inconsistentVersionsRule) Check(ctx context.Context, in *Input) ([]diagnostics.ReportItem, error) {
	g := in.Graph
	counts := make(map[string]int)
	var order []string
	var props []*project.JsonProperty
	for _, file := range g.Files {
		p, ok := g.Versions[file]
		if !ok || p.Shared || isBlank(p.Value) {
			continue
		}
		v := strings.TrimSpace(p.Value)
		if counts[v] == 0 {
			order = append(order, v)
		}
		counts[v]++
		props = append(props, p)
	}
	if len(order) < 2 {
		return nil, nil
	}

	common := order[0]
	for _, v := range order[1:] {
		if counts[v] > counts[common] {
			common = v
		}
	}
	var out []diagnostics.ReportItem
	for _, p := range props {
		if v := strings.TrimSpace(p.Value); v != common {
			out = append(out, r.item(g, p, fmt.Sprintf("%s declares contentVersion %q, the project uses %q",
				filepath.Base(p.FullFileName), v, common)))
		}
	}
	return out, nil
}
