package rules

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/layerlint/internal/diagnostics"
	"github.com/xkilldash9x/layerlint/internal/project"
	"github.com/xkilldash9x/layerlint/internal/services"
)

// conventionalParams are supplied by the runtime to every service call.
var conventionalParams = map[string]bool{"ds": true}

type incorrectRestCallsRule struct{ *BaseRule }

func newIncorrectRestCallsRule(logger *zap.Logger) *incorrectRestCallsRule {
	return &incorrectRestCallsRule{NewBaseRule("IncorrectRestCalls",
		"rest-erp actions call an existing service method with its parameters.",
		diagnostics.ValidationLogic, diagnostics.SeverityError, logger).waitsForPatches()}
}

// patchedMember returns a direct member and its trimmed patched value.
func patchedMember(g *project.Graph, file, objectPath, name string) (*project.JsonProperty, string) {
	m := g.Member(file, objectPath, name)
	if m == nil || m.ItemType != project.ItemProperty {
		return m, ""
	}
	return m, strings.TrimSpace(m.PatchedValue())
}

func (r *incorrectRestCallsRule) Check(ctx context.Context, in *Input) ([]diagnostics.ReportItem, error) {
	g := in.Graph
	var (
		out  []diagnostics.ReportItem
		fail error
	)
	scalars(g, func(p *project.JsonProperty) {
		if fail != nil || p.Name != "type" || strings.TrimSpace(p.Value) != "rest-erp" {
			return
		}
		items, err := r.checkCall(in, p)
		if err != nil {
			fail = err
			return
		}
		out = append(out, items...)
	})
	return out, fail
}

func (r *incorrectRestCallsRule) checkCall(in *Input, typeProp *project.JsonProperty) ([]diagnostics.ReportItem, error) {
	g := in.Graph
	file := typeProp.FullFileName
	param := child(g, typeProp.ParentPath(), "param")

	svcProp, svc := patchedMember(g, file, param, "svc")
	if svc == "" {
		return []diagnostics.ReportItem{r.item(g, typeProp, "REST call has no service name")}, nil
	}
	if project.IsPlaceholder(svc) || strings.Contains(svc, "%") {
		return nil, nil
	}
	if parts := strings.Split(svc, "."); len(parts) != 3 {
		return []diagnostics.ReportItem{r.item(g, svcProp, fmt.Sprintf("Service name %q is not of the form Namespace.Module.Service", svc))}, nil
	}
	if in.Services == nil {
		return nil, nil
	}
	if _, err := in.Services.Methods(svc); err != nil {
		if errors.Is(err, services.ErrUnknownService) {
			return []diagnostics.ReportItem{r.item(g, svcProp, fmt.Sprintf("Unknown service %q", svc))}, nil
		}
		return nil, fmt.Errorf("failed to list methods of %s: %w", svc, err)
	}

	methodProp, method := patchedMember(g, file, param, "methodName")
	if method == "" {
		anchor := methodProp
		if anchor == nil {
			anchor = svcProp
		}
		return []diagnostics.ReportItem{r.item(g, anchor, fmt.Sprintf("REST call to %s has no method name", svc))}, nil
	}
	if project.IsPlaceholder(method) || strings.Contains(method, "%") {
		return nil, nil
	}
	signature, err := in.Services.Params(svc, method)
	if err != nil {
		if errors.Is(err, services.ErrUnknownMethod) {
			return []diagnostics.ReportItem{r.item(g, methodProp, fmt.Sprintf("Service %s has no method %q", svc, method))}, nil
		}
		return nil, fmt.Errorf("failed to read parameters of %s.%s: %w", svc, method, err)
	}
	known := make(map[string]bool, len(signature))
	for _, s := range signature {
		known[strings.ToLower(s)] = true
	}

	var out []diagnostics.ReportItem
	passed := make(map[string]bool)
	for _, item := range arrayItems(g, file, child(g, param, "methodParameters")) {
		if !item.IsOpening() {
			continue
		}
		fieldProp, field := patchedMember(g, file, item.JsonPath, "field")
		if field == "" {
			continue
		}
		// A placeholder field name is resolved at runtime and cannot be
		// checked against the signature.
		if project.IsPlaceholder(field) || strings.Contains(field, "%") {
			continue
		}
		passed[strings.ToLower(field)] = true
		if !known[strings.ToLower(field)] {
			out = append(out, r.item(g, fieldProp, fmt.Sprintf("%q is not a parameter of %s.%s", field, svc, method)))
		}
	}
	for _, s := range signature {
		if conventionalParams[strings.ToLower(s)] || passed[strings.ToLower(s)] {
			continue
		}
		out = append(out, r.item(g, methodProp, fmt.Sprintf("Required parameter %q of %s.%s is missing", s, svc, method)))
	}
	return out, nil
}

// schemaValidationRule validates every file that declares a $schema. Files
// are validated in parallel.
type schemaValidationRule struct{ *BaseRule }

func newSchemaValidationRule(logger *zap.Logger) *schemaValidationRule {
	return &schemaValidationRule{NewBaseRule("SchemaValidation",
		"Files that declare a $schema conform to it.",
		diagnostics.ValidationScheme, diagnostics.SeverityError, logger)}
}

// schemaLocation resolves a relative $schema against the declaring file.
func schemaLocation(file, ref string) string {
	switch {
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"), strings.HasPrefix(ref, "file://"):
		return ref
	case filepath.IsAbs(ref):
		return ref
	default:
		return filepath.Join(filepath.Dir(file), filepath.FromSlash(ref))
	}
}

func (r *schemaValidationRule) Check(ctx context.Context, in *Input) ([]diagnostics.ReportItem, error) {
	g := in.Graph
	if in.Schemas == nil || in.Files == nil || len(g.Schemas) == 0 {
		return nil, nil
	}
	files := make([]string, 0, len(g.Schemas))
	for f := range g.Schemas {
		files = append(files, f)
	}
	sort.Strings(files)

	var (
		mu  sync.Mutex
		out []diagnostics.ReportItem
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for _, file := range files {
		ref := strings.TrimSpace(g.Schemas[file])
		if ref == "" {
			continue
		}
		eg.Go(func() error {
			items := r.validateFile(egCtx, in, file, schemaLocation(file, ref))
			mu.Lock()
			out = append(out, items...)
			mu.Unlock()
			return egCtx.Err()
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *schemaValidationRule) validateFile(ctx context.Context, in *Input, file, location string) []diagnostics.ReportItem {
	g := in.Graph
	cached := in.Files.Load(file)
	if cached.Err != nil || cached.Scan.ErrorFound {
		return nil
	}

	fileItem := func(msg string) diagnostics.ReportItem {
		item := r.item(g, nil, msg)
		item.FullFileName = file
		item.FileType = g.FileTypes[file].String()
		return item
	}

	v, err := in.Schemas.Validator(ctx, location)
	if err != nil {
		r.Logger.Debug("Schema unavailable", zap.String("file", file), zap.String("schema", location), zap.Error(err))
		return []diagnostics.ReportItem{fileItem("Cannot load schema:\n" + diagnostics.FormatErrorChain(err))}
	}
	errs, err := v.Validate(cached.Text)
	if err != nil {
		return []diagnostics.ReportItem{fileItem("Cannot validate against schema:\n" + diagnostics.FormatErrorChain(err))}
	}

	out := make([]diagnostics.ReportItem, 0, len(errs))
	for _, e := range errs {
		item := r.item(g, g.Lookup(file, e.Path), fmt.Sprintf("Line %d: %s (%s)", e.Line, e.Message, e.Kind))
		item.FullFileName = file
		item.JsonPath = e.Path
		item.FileType = g.FileTypes[file].String()
		out = append(out, item)
	}
	return out
}
