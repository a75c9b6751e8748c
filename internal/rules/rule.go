// Package rules holds the static-analysis predicates run over a sealed
// project graph, their registry and the runner that evaluates them.
package rules

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/layerlint/internal/diagnostics"
	"github.com/xkilldash9x/layerlint/internal/patch"
	"github.com/xkilldash9x/layerlint/internal/project"
	"github.com/xkilldash9x/layerlint/internal/schema"
	"github.com/xkilldash9x/layerlint/internal/services"
)

// Rule is one independent check. Check must not modify the graph.
type Rule interface {
	Name() string
	Description() string
	// NeedsPatches reports whether Check reads patched values or the patch
	// table and so has to wait for the patch pass.
	NeedsPatches() bool
	Check(ctx context.Context, in *Input) ([]diagnostics.ReportItem, error)
}

// Options are the project-independent knobs of the rule set.
type Options struct {
	// SystemMacros are macro names supplied by the runtime. A trailing "*"
	// matches any suffix.
	SystemMacros []string
	// SystemDataViews are dataviews every page has without defining them.
	SystemDataViews []string
}

// DefaultSystemMacros are always treated as defined.
var DefaultSystemMacros = []string{
	"%session.*%",
	"%currentDate%",
	"%currentTime%",
	"%company%",
	"%plant%",
	"%userId%",
	"%language%",
}

// DefaultSystemDataViews are always treated as defined.
var DefaultSystemDataViews = []string{
	"sysTools",
	"KeyFields",
	"TransView",
	"CallContextBpmData",
	"CallContextClientData",
}

// Input is everything a rule may read.
type Input struct {
	Graph    *project.Graph
	Files    *project.FileCache
	Patches  *patch.Table
	Latch    *patch.Latch
	Services services.Directory
	Schemas  schema.Source
	Options  Options
}

func (in *Input) isSystemMacro(name string) bool {
	for _, list := range [][]string{DefaultSystemMacros, in.Options.SystemMacros} {
		for _, m := range list {
			m = project.MacroKey(m)
			if strings.HasSuffix(m, "*%") {
				if strings.HasPrefix(strings.ToLower(name), strings.ToLower(strings.TrimSuffix(m, "*%"))) {
					return true
				}
				continue
			}
			if strings.EqualFold(m, name) {
				return true
			}
		}
	}
	return false
}

func (in *Input) isSystemDataView(name string) bool {
	for _, list := range [][]string{DefaultSystemDataViews, in.Options.SystemDataViews} {
		for _, dv := range list {
			if strings.EqualFold(dv, name) {
				return true
			}
		}
	}
	return false
}

// BaseRule carries the identity of a rule and builds its diagnostics. It is
// embedded by every rule.
type BaseRule struct {
	name           string
	description    string
	validationType diagnostics.ValidationType
	severity       diagnostics.Severity
	needsPatches   bool
	Logger         *zap.Logger
}

// NewBaseRule creates a BaseRule with a logger named after the rule.
func NewBaseRule(name, description string, vt diagnostics.ValidationType, sev diagnostics.Severity, logger *zap.Logger) *BaseRule {
	return &BaseRule{
		name:           name,
		description:    description,
		validationType: vt,
		severity:       sev,
		Logger:         logger.Named(name),
	}
}

func (b *BaseRule) Name() string        { return b.name }
func (b *BaseRule) Description() string { return b.description }
func (b *BaseRule) NeedsPatches() bool  { return b.needsPatches }

// waitsForPatches marks the rule as reading patched values.
func (b *BaseRule) waitsForPatches() *BaseRule {
	b.needsPatches = true
	return b
}

// item builds a diagnostic located at p with the rule's default severity.
func (b *BaseRule) item(g *project.Graph, p *project.JsonProperty, msg string) diagnostics.ReportItem {
	return b.itemAs(g, p, b.severity, msg)
}

func (b *BaseRule) itemAs(g *project.Graph, p *project.JsonProperty, sev diagnostics.Severity, msg string) diagnostics.ReportItem {
	item := diagnostics.ReportItem{
		ProjectName:    g.ProjectName,
		Message:        msg,
		ValidationType: b.validationType,
		Severity:       sev,
		Source:         b.name,
	}
	if p != nil {
		item.FullFileName = p.FullFileName
		item.FileType = p.FileType.String()
		item.LineID = p.LineID
		item.JsonPath = p.JsonPath
	}
	return item
}
