package rules

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/layerlint/internal/diagnostics"
	"github.com/xkilldash9x/layerlint/internal/jsonc"
	"github.com/xkilldash9x/layerlint/internal/project"
)

// duplicateIDsRule finds repeated names inside one object from the exact
// scanner output; the document tree alone cannot tell a duplicate key from
// a later assignment.
type duplicateIDsRule struct{ *BaseRule }

func newDuplicateIDsRule(logger *zap.Logger) *duplicateIDsRule {
	return &duplicateIDsRule{NewBaseRule("DuplicateIds",
		"An object never names the same property twice.",
		diagnostics.ValidationParse, diagnostics.SeverityError, logger)}
}

type scanFrame struct {
	object bool
	names  map[string]jsonc.ParsedProperty
}

func recordValue(p jsonc.ParsedProperty) string {
	switch p.Kind {
	case jsonc.KindObject:
		return "{...}"
	case jsonc.KindArray:
		return "[...]"
	default:
		return fmt.Sprintf("%q", p.Value)
	}
}

func (r *duplicateIDsRule) Check(ctx context.Context, in *Input) ([]diagnostics.ReportItem, error) {
	if in.Files == nil {
		return nil, nil
	}
	g := in.Graph
	var out []diagnostics.ReportItem
	for _, file := range g.Files {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		cached := in.Files.Load(file)
		if cached.Err != nil || cached.Scan.ErrorFound {
			continue
		}
		var stack []scanFrame
		for _, rec := range cached.Scan.Properties {
			switch rec.Kind {
			case jsonc.KindProperty, jsonc.KindObject, jsonc.KindArray:
				if n := len(stack); n > 0 && stack[n-1].object && rec.Name != "" {
					top := stack[n-1]
					if first, dup := top.names[rec.Name]; dup {
						out = append(out, r.duplicate(g, file, cached.Text, first, rec))
					} else {
						top.names[rec.Name] = rec
					}
				}
				if rec.Kind != jsonc.KindProperty {
					stack = append(stack, scanFrame{object: rec.Kind == jsonc.KindObject, names: make(map[string]jsonc.ParsedProperty)})
				}
			case jsonc.KindEndOfObject, jsonc.KindEndOfArray:
				if len(stack) > 0 {
					stack = stack[:len(stack)-1]
				}
			}
		}
	}
	return out, nil
}

func (r *duplicateIDsRule) duplicate(g *project.Graph, file, text string, first, dup jsonc.ParsedProperty) diagnostics.ReportItem {
	firstLine, _ := jsonc.LineColumn(text, first.StartOffset)
	dupLine, _ := jsonc.LineColumn(text, dup.StartOffset)

	// Point at the graph node of the repeated occurrence.
	var anchor *project.JsonProperty
	for _, p := range g.FileProperties(file) {
		if p.JsonPath != dup.Path || p.IsClosing() {
			continue
		}
		if anchor == nil || p.SourceLineNumber == dupLine {
			anchor = p
		}
	}
	item := r.item(g, anchor, fmt.Sprintf("Duplicate property %q: %s on line %d and %s on line %d",
		dup.Name, recordValue(first), firstLine, recordValue(dup), dupLine))
	item.FullFileName = file
	item.JsonPath = dup.Path
	if item.FileType == "" {
		item.FileType = g.FileTypes[file].String()
	}
	return item
}

type duplicateGUIDsRule struct{ *BaseRule }

func newDuplicateGUIDsRule(logger *zap.Logger) *duplicateGUIDsRule {
	return &duplicateGUIDsRule{NewBaseRule("DuplicateGuids",
		"Layout GUIDs are unique across all layout files.",
		diagnostics.ValidationLogic, diagnostics.SeverityError, logger)}
}

func (r *duplicateGUIDsRule) Check(ctx context.Context, in *Input) ([]diagnostics.ReportItem, error) {
	g := in.Graph
	first := make(map[string]*project.JsonProperty)
	var out []diagnostics.ReportItem
	scalars(g, func(p *project.JsonProperty) {
		if p.Name != "guid" || p.FileType != project.Layout || isBlank(p.Value) {
			return
		}
		key := strings.ToLower(strings.TrimSpace(p.Value))
		prev, ok := first[key]
		if !ok {
			first[key] = p
			return
		}
		item := r.item(g, p, fmt.Sprintf("GUID %s is already used at %s:%d",
			strings.TrimSpace(p.Value), filepath.Base(prev.FullFileName), prev.SourceLineNumber))
		item.FullFileName = diagnostics.JoinFiles(p.FullFileName, prev.FullFileName)
		out = append(out, item)
	})
	return out, nil
}

type mismatchedLayoutIDsRule struct{ *BaseRule }

func newMismatchedLayoutIDsRule(logger *zap.Logger) *mismatchedLayoutIDsRule {
	return &mismatchedLayoutIDsRule{NewBaseRule("MismatchedLayoutIds",
		"A layout component and its model carry the same id.",
		diagnostics.ValidationLogic, diagnostics.SeverityWarning, logger)}
}

func (r *mismatchedLayoutIDsRule) Check(ctx context.Context, in *Input) ([]diagnostics.ReportItem, error) {
	g := in.Graph
	var out []diagnostics.ReportItem
	for _, e := range elements(g, project.Layout.Collection()) {
		id := e.idValue()
		if id == "" {
			continue
		}
		modelID, v := memberValue(g, e.file(), child(g, e.path(), "model"), "id")
		if v == "" || v == id {
			continue
		}
		out = append(out, r.item(g, modelID, fmt.Sprintf("Layout id %q differs from its model id %q", id, v)))
	}
	return out, nil
}

type incorrectDataViewConditionsRule struct{ *BaseRule }

func newIncorrectDataViewConditionsRule(logger *zap.Logger) *incorrectDataViewConditionsRule {
	return &incorrectDataViewConditionsRule{NewBaseRule("IncorrectDataViewConditions",
		"dataview-condition actions read one dataview and write a different one.",
		diagnostics.ValidationLogic, diagnostics.SeverityError, logger)}
}

func (r *incorrectDataViewConditionsRule) Check(ctx context.Context, in *Input) ([]diagnostics.ReportItem, error) {
	g := in.Graph
	var out []diagnostics.ReportItem
	scalars(g, func(p *project.JsonProperty) {
		if p.Name != "type" || strings.TrimSpace(p.Value) != "dataview-condition" {
			return
		}
		param := child(g, p.ParentPath(), "param")
		_, source := memberValue(g, p.FullFileName, param, "dataview")
		res, result := memberValue(g, p.FullFileName, param, "result")
		switch {
		case source == "":
			out = append(out, r.item(g, p, "dataview-condition has no source dataview"))
		case result == "":
			out = append(out, r.item(g, p, "dataview-condition has no result dataview"))
		case strings.EqualFold(source, result):
			out = append(out, r.item(g, res, fmt.Sprintf("dataview-condition writes its result to its source dataview %q", source)))
		}
	})
	return out, nil
}

type incorrectTabIDsRule struct{ *BaseRule }

func newIncorrectTabIDsRule(logger *zap.Logger) *incorrectTabIDsRule {
	return &incorrectTabIDsRule{NewBaseRule("IncorrectTabIds",
		"Tab strip pages link to a declared tabId.",
		diagnostics.ValidationLogic, diagnostics.SeverityError, logger)}
}

const tabStripType = "metafx-tabstrip"

func (r *incorrectTabIDsRule) Check(ctx context.Context, in *Input) ([]diagnostics.ReportItem, error) {
	g := in.Graph
	tabIDs := make(map[string]bool)
	var strips []*project.JsonProperty
	scalars(g, func(p *project.JsonProperty) {
		switch {
		case p.Name == "tabId" && !isBlank(p.Value):
			tabIDs[strings.TrimSpace(p.Value)] = true
		case p.Name == "sourceTypeId" && strings.TrimSpace(p.Value) == tabStripType:
			strips = append(strips, p)
		}
	})

	var out []diagnostics.ReportItem
	for _, s := range strips {
		tabs := child(g, child(g, s.ParentPath(), "model"), "tabs")
		for _, tab := range arrayItems(g, s.FullFileName, tabs) {
			if !tab.IsOpening() {
				continue
			}
			page, v := memberValue(g, s.FullFileName, tab.JsonPath, "page")
			if v == "" || project.IsPlaceholder(v) || tabIDs[v] {
				continue
			}
			out = append(out, r.item(g, page, fmt.Sprintf("Tab page %q has no matching tabId", v)))
		}
	}
	return out, nil
}

// jsonSyntaxRule turns a failed scan into one diagnostic per file.
type jsonSyntaxRule struct{ *BaseRule }

func newJSONSyntaxRule(logger *zap.Logger) *jsonSyntaxRule {
	return &jsonSyntaxRule{NewBaseRule("JsonSyntax",
		"Every file is well-formed JSON with comments.",
		diagnostics.ValidationParse, diagnostics.SeverityError, logger)}
}

func (r *jsonSyntaxRule) Check(ctx context.Context, in *Input) ([]diagnostics.ReportItem, error) {
	if in.Files == nil {
		return nil, nil
	}
	g := in.Graph
	var out []diagnostics.ReportItem
	for _, file := range g.Files {
		cached := in.Files.Load(file)
		if cached.Err != nil || !cached.Scan.ErrorFound {
			continue
		}
		item := r.item(g, nil, "Invalid JSON:\n"+diagnostics.FormatErrorChain(cached.Scan.Err))
		item.FullFileName = file
		item.FileType = g.FileTypes[file].String()
		out = append(out, item)
	}
	return out, nil
}
