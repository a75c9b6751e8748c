package rules

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/layerlint/internal/diagnostics"
	"github.com/xkilldash9x/layerlint/internal/project"
)

// emptyIDRule reports collection entries whose id is missing or blank.
type emptyIDRule struct {
	*BaseRule
	collection string
	label      string
}

func newEmptyIDRule(name string, ct project.ContentType, label string, logger *zap.Logger) *emptyIDRule {
	return &emptyIDRule{
		BaseRule: NewBaseRule(name,
			fmt.Sprintf("Every %s definition has a non-empty id.", label),
			diagnostics.ValidationLogic, diagnostics.SeverityError, logger),
		collection: ct.Collection(),
		label:      label,
	}
}

func (r *emptyIDRule) Check(ctx context.Context, in *Input) ([]diagnostics.ReportItem, error) {
	var out []diagnostics.ReportItem
	for _, e := range elements(in.Graph, r.collection) {
		switch {
		case e.id == nil:
			out = append(out, r.item(in.Graph, e.open, fmt.Sprintf("The %s has no id", r.label)))
		case isBlank(e.id.Value):
			out = append(out, r.item(in.Graph, e.id, fmt.Sprintf("The %s id is empty", r.label)))
		}
	}
	return out, nil
}

// emptyTriggerTargetsRule reports triggers with a blank target.
type emptyTriggerTargetsRule struct {
	*BaseRule
}

func newEmptyTriggerTargetsRule(logger *zap.Logger) *emptyTriggerTargetsRule {
	return &emptyTriggerTargetsRule{NewBaseRule("EmptyTriggerTargets",
		"Event triggers name the control, dataview or tool they listen to.",
		diagnostics.ValidationLogic, diagnostics.SeverityError, logger)}
}

func (r *emptyTriggerTargetsRule) Check(ctx context.Context, in *Input) ([]diagnostics.ReportItem, error) {
	g := in.Graph
	var out []diagnostics.ReportItem
	for _, e := range elements(g, project.Events.Collection()) {
		trigger := g.Member(e.file(), e.path(), "trigger")
		if trigger == nil || trigger.ItemType != project.ItemObject {
			continue
		}
		if _, kind := memberValue(g, e.file(), trigger.JsonPath, "type"); targetlessTriggers[kind] {
			continue
		}
		target := g.Member(e.file(), trigger.JsonPath, "target")
		switch {
		case target == nil:
			out = append(out, r.item(g, trigger, fmt.Sprintf("The trigger of event %q has no target", e.idValue())))
		case isBlank(target.Value):
			out = append(out, r.item(g, target, fmt.Sprintf("The trigger target of event %q is empty", e.idValue())))
		}
	}
	return out, nil
}
