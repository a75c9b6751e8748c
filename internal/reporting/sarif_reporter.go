// internal/reporting/sarif_reporter.go
package reporting

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/owenrumney/go-sarif/v2/sarif"
	"go.uber.org/zap"

	"github.com/xkilldash9x/layerlint/internal/diagnostics"
)

// Constants for tool identification in the SARIF report.
const (
	ToolName    = "layerlint"
	ToolInfoURI = "https://github.com/xkilldash9x/layerlint"
)

// SARIFReporter implements the Reporter interface for the SARIF 2.1.0 format.
// Each written report becomes one run; the document is emitted on Close.
// It is thread safe.
type SARIFReporter struct {
	writer io.WriteCloser
	opts   Options
	logger *zap.Logger
	// mu protects runs.
	mu   sync.Mutex
	runs []*sarif.Run
}

func NewSARIFReporter(writer io.WriteCloser, opts Options) *SARIFReporter {
	return &SARIFReporter{
		writer: writer,
		opts:   opts,
		logger: opts.logger("sarif_reporter"),
	}
}

// Write converts the report's diagnostics into SARIF results.
func (r *SARIFReporter) Write(report *diagnostics.Report) error {
	startTime := time.Now()

	run := sarif.NewRunWithInformationURI(ToolName, ToolInfoURI)
	if r.opts.ToolVersion != "" {
		run.Tool.Driver.WithVersion(r.opts.ToolVersion)
	}
	runProps := sarif.NewPropertyBag()
	runProps.AddString("projectName", report.ProjectName)
	runProps.AddString("runId", report.RunID)
	runProps.AddInteger("suppressed", report.Suppressed)
	run.AttachPropertyBag(runProps)

	for _, item := range report.Items {
		ruleID := item.Source
		if ruleID == "" {
			ruleID = "layerlint"
		}
		r.ensureRule(run, ruleID)

		result := sarif.NewRuleResult(ruleID).
			WithMessage(sarif.NewTextMessage(item.Message)).
			WithLevel(sarifLevel(item.Severity))
		if loc := r.location(report.ProjectDir, item); loc != nil {
			result.WithLocations([]*sarif.Location{loc})
		}

		props := sarif.NewPropertyBag()
		props.AddString("validationType", item.ValidationType.String())
		if item.FileType != "" {
			props.AddString("fileType", item.FileType)
		}
		if item.LineID > 0 {
			props.AddInteger("lineId", item.LineID)
		}
		result.AttachPropertyBag(props)
		run.AddResult(result)
	}

	r.mu.Lock()
	r.runs = append(r.runs, run)
	r.mu.Unlock()

	r.logger.Debug("Wrote diagnostics to SARIF buffer",
		zap.Int("results", len(report.Items)),
		zap.Duration("duration", time.Since(startTime)),
	)
	return nil
}

// Close finalizes the SARIF log and writes it to the output writer.
func (r *SARIFReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := sarif.New(sarif.Version210)
	if err != nil {
		_ = r.writer.Close()
		return fmt.Errorf("failed to create SARIF report: %w", err)
	}
	for _, run := range r.runs {
		doc.AddRun(run)
	}

	encodeErr := doc.PrettyWrite(r.writer)
	// Always attempt to close the writer, regardless of encoding success.
	closeErr := r.writer.Close()

	if encodeErr != nil {
		r.logger.Error("Failed to encode SARIF log", zap.Error(encodeErr))
		return fmt.Errorf("failed to encode SARIF output: %w", encodeErr)
	}
	if closeErr != nil {
		r.logger.Error("Failed to close output writer", zap.Error(closeErr))
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}
	r.logger.Debug("Wrote SARIF report", zap.Int("runs", len(r.runs)))
	return nil
}

// ensureRule registers ruleID with the run's driver once.
func (r *SARIFReporter) ensureRule(run *sarif.Run, ruleID string) {
	rule := run.AddRule(ruleID)
	if rule.ShortDescription != nil {
		return
	}
	rule.WithName(ruleID)
	description := r.opts.RuleDescriptions[ruleID]
	if description == "" {
		description = ruleID
	}
	rule.WithDescription(description)
}

// location anchors a result at its first file, the property's line and the
// JSON path as a logical location.
func (r *SARIFReporter) location(projectDir string, item diagnostics.ReportItem) *sarif.Location {
	if item.FullFileName == "" && item.JsonPath == "" {
		return nil
	}
	loc := sarif.NewLocation()
	if item.FullFileName != "" {
		file := strings.Split(item.FullFileName, diagnostics.FileSeparator)[0]
		physical := sarif.NewPhysicalLocation().WithArtifactLocation(sarif.NewSimpleArtifactLocation(artifactURI(projectDir, file)))
		if item.Line > 0 {
			physical.WithRegion(sarif.NewRegion().WithStartLine(item.Line))
		}
		loc.WithPhysicalLocation(physical)
	}
	if item.JsonPath != "" {
		loc.WithLogicalLocations([]*sarif.LogicalLocation{
			sarif.NewLogicalLocation().WithFullyQualifiedName(item.JsonPath).WithKind("member"),
		})
	}
	return loc
}

func artifactURI(projectDir, file string) string {
	if projectDir != "" {
		if rel, err := filepath.Rel(projectDir, file); err == nil {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.ToSlash(file)
}

// sarifLevel converts a severity to the SARIF level names.
func sarifLevel(s diagnostics.Severity) string {
	switch s {
	case diagnostics.SeverityError:
		return "error"
	case diagnostics.SeverityWarning:
		return "warning"
	default:
		return "note"
	}
}
