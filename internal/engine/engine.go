// Package engine runs one validation pass over a project: build the graph,
// resolve patches, evaluate the rules, filter and persist the diagnostics.
package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/layerlint/internal/config"
	"github.com/xkilldash9x/layerlint/internal/diagnostics"
	"github.com/xkilldash9x/layerlint/internal/patch"
	"github.com/xkilldash9x/layerlint/internal/project"
	"github.com/xkilldash9x/layerlint/internal/rules"
	"github.com/xkilldash9x/layerlint/internal/schema"
	"github.com/xkilldash9x/layerlint/internal/services"
)

// File names under the project state directory.
const (
	ReportFileName = "report.json"
	IgnoreFileName = "ignore.json"
)

// -- Interfaces for Dependency Inversion --

// Store archives finished runs.
type Store interface {
	ArchiveRun(ctx context.Context, report *diagnostics.Report) error
}

// Engine validates projects. It is safe for concurrent use by several runs.
type Engine struct {
	cfg      config.Interface
	logger   *zap.Logger
	registry *rules.Registry
	services services.Directory
	schemas  schema.Source
	store    Store
	now      func() time.Time
}

// Option customizes an Engine.
type Option func(*Engine)

// WithStore archives every run in s.
func WithStore(s Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithServices sets the service directory used by the REST call checks.
func WithServices(d services.Directory) Option {
	return func(e *Engine) { e.services = d }
}

// WithSchemaSource sets where JSON schemas come from.
func WithSchemaSource(s schema.Source) Option {
	return func(e *Engine) { e.schemas = s }
}

// WithRegistry replaces the default rule catalogue.
func WithRegistry(r *rules.Registry) Option {
	return func(e *Engine) { e.registry = r }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an engine. Without WithServices the directory is loaded from
// services.manifest when configured.
func New(cfg config.Interface, logger *zap.Logger, opts ...Option) (*Engine, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	e := &Engine{
		cfg:    cfg,
		logger: logger.With(zap.String("component", "engine")),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		e.registry = rules.DefaultRegistry(logger)
	}
	if _, err := e.registry.Enabled(cfg.Rules().Disabled); err != nil {
		return nil, fmt.Errorf("invalid rules.disabled: %w", err)
	}
	if e.services == nil && cfg.Services().Manifest != "" {
		dir, err := services.LoadManifest(cfg.Services().Manifest)
		if err != nil {
			return nil, fmt.Errorf("failed to load service manifest: %w", err)
		}
		e.logger.Info("Service manifest loaded",
			zap.String("path", cfg.Services().Manifest),
			zap.Int("services", dir.Len()))
		e.services = dir
	}
	return e, nil
}

// Registry returns the rule catalogue in use.
func (e *Engine) Registry() *rules.Registry {
	return e.registry
}

// Run validates the project at projectDir. Only an unreadable project root,
// a failing state write or cancellation is an error; everything the project
// gets wrong is a diagnostic in the report.
func (e *Engine) Run(ctx context.Context, projectDir string) (*diagnostics.Report, error) {
	started := e.now()
	dir, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", projectDir, err)
	}
	runID := uuid.NewString()
	logger := e.logger.With(zap.String("run_id", runID))

	popts := e.projectOptions()
	cache := project.NewFileCache(popts.ScanOptions())
	graph, buildItems, err := project.NewBuilder(dir, popts, cache, e.logger).Build(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info("Project graph built",
		zap.String("project", graph.ProjectName),
		zap.Int("files", len(graph.Files)),
		zap.Int("properties", len(graph.Properties)),
		zap.Int64("files_read", cache.Reads()),
	)

	enabled, err := e.registry.Enabled(e.cfg.Rules().Disabled)
	if err != nil {
		return nil, err
	}
	in := &rules.Input{
		Graph:    graph,
		Files:    cache,
		Latch:    patch.NewLatch(),
		Services: e.services,
		Schemas:  e.schemas,
		Options: rules.Options{
			SystemMacros:    e.cfg.Rules().SystemMacros,
			SystemDataViews: e.cfg.Rules().SystemDataViews,
		},
	}

	// Patch resolution overlaps with the rules that do not read patched
	// values; the others wait for the latch.
	go func() {
		defer in.Latch.Release()
		in.Patches = patch.CollectPatchValues(graph)
		changed := patch.PatchAllFields(graph, in.Patches)
		logger.Debug("Patches applied", zap.Int("macros", in.Patches.Len()), zap.Int("changed", changed))
	}()

	ruleItems, err := rules.NewRunner(e.logger, e.cfg.Rules().Concurrency).Run(ctx, in, enabled)
	if err != nil {
		// Rules may have returned early; do not leave the patch pass behind.
		<-in.Latch.Done()
		return nil, err
	}
	<-in.Latch.Done()

	items := append(buildItems, ruleItems...)
	for i := range items {
		fillLine(graph, &items[i])
	}
	items = diagnostics.Dedupe(items)
	diagnostics.Sort(items)

	ignores, err := e.ignoreLists(dir)
	if err != nil {
		return nil, err
	}
	kept, suppressed := diagnostics.Filter(items, ignores...)

	report := &diagnostics.Report{
		RunID:       runID,
		ProjectName: graph.ProjectName,
		ProjectDir:  dir,
		StartedAt:   started,
		Duration:    e.now().Sub(started),
		Files:       len(graph.Files),
		Properties:  len(graph.Properties),
		Suppressed:  suppressed,
		Items:       kept,
		Summary:     diagnostics.Summarize(kept),
	}

	if err := diagnostics.SaveItems(StatePath(dir, e.cfg.Report().StateDir, ReportFileName), kept); err != nil {
		return nil, fmt.Errorf("failed to persist report: %w", err)
	}

	if e.store != nil {
		// Archive even when ctx was cancelled after the rules finished.
		archiveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if err := e.store.ArchiveRun(archiveCtx, report); err != nil {
			logger.Error("Failed to archive run", zap.Error(err))
		}
	}

	logger.Info("Validation finished",
		zap.String("project", report.ProjectName),
		zap.Int("diagnostics", report.Summary.Total),
		zap.Int("suppressed", suppressed),
		zap.Duration("took", report.Duration),
	)
	return report, nil
}

func (e *Engine) projectOptions() project.Options {
	p := e.cfg.Project()
	return project.Options{
		ProjectName: p.Name,
		RootName:    p.RootName,
		PathDivider: p.PathDivider,
		ImportTag:   p.ImportTag,
		PagesGlob:   p.PagesGlob,
		Manifest:    p.Manifest,
	}
}

// ignoreLists loads the global list, when configured, and the project list.
func (e *Engine) ignoreLists(projectDir string) ([]diagnostics.IgnoreList, error) {
	var lists []diagnostics.IgnoreList
	if path := e.cfg.Report().GlobalIgnoreFile; path != "" {
		global, err := diagnostics.LoadIgnoreList(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load global ignore list: %w", err)
		}
		lists = append(lists, global)
	}
	local, err := diagnostics.LoadIgnoreList(StatePath(projectDir, e.cfg.Report().StateDir, IgnoreFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to load project ignore list: %w", err)
	}
	return append(lists, local), nil
}

// StatePath is the location of a state file of the project at projectDir.
// A relative stateDir lives under the project.
func StatePath(projectDir, stateDir, name string) string {
	if filepath.IsAbs(stateDir) {
		return filepath.Join(stateDir, name)
	}
	return filepath.Join(projectDir, stateDir, name)
}

// fillLine sets the display line of an item anchored at a property.
func fillLine(g *project.Graph, item *diagnostics.ReportItem) {
	if item.Line > 0 || item.LineID <= 0 || item.LineID > len(g.Properties) {
		return
	}
	item.Line = g.Properties[item.LineID-1].SourceLineNumber
}
