package reporting

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/layerlint/internal/diagnostics"
)

const (
	ansiRed    = "\x1b[31m"
	ansiYellow = "\x1b[33m"
	ansiCyan   = "\x1b[36m"
	ansiReset  = "\x1b[0m"
)

// TextReporter prints diagnostics grouped by file, one per line, followed by
// a summary. Reports are written as they arrive.
type TextReporter struct {
	writer io.WriteCloser
	opts   Options
	logger *zap.Logger
}

func NewTextReporter(writer io.WriteCloser, opts Options) *TextReporter {
	return &TextReporter{writer: writer, opts: opts, logger: opts.logger("text_reporter")}
}

func (r *TextReporter) Write(report *diagnostics.Report) error {
	w := bufio.NewWriter(r.writer)

	currentFile := "\x00"
	for i, item := range report.Items {
		file := displayFile(report.ProjectDir, item.FullFileName)
		if file != currentFile {
			if i > 0 {
				fmt.Fprintln(w)
			}
			if file == "" {
				fmt.Fprintln(w, "(project)")
			} else {
				fmt.Fprintln(w, file)
			}
			currentFile = file
		}
		fmt.Fprintf(w, "  %s %s [%s] %s\n", r.location(item), r.severity(item.Severity), item.Source, indent(item.Message))
	}

	if len(report.Items) > 0 {
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "%s: %s", report.ProjectName, report.Summary.Text())
	if report.Suppressed > 0 {
		fmt.Fprintf(w, " (%d suppressed)", report.Suppressed)
	}
	fmt.Fprintf(w, " in %d files, %s\n", report.Files, report.Duration.Round(time.Millisecond))

	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write text report: %w", err)
	}
	r.logger.Debug("Wrote text report", zap.Int("items", len(report.Items)))
	return nil
}

func (r *TextReporter) Close() error {
	return r.writer.Close()
}

func (r *TextReporter) location(item diagnostics.ReportItem) string {
	switch {
	case item.Line > 0:
		return fmt.Sprintf("%4d", item.Line)
	case item.JsonPath != "":
		return "   -"
	default:
		return "    "
	}
}

func (r *TextReporter) severity(s diagnostics.Severity) string {
	label := fmt.Sprintf("%-7s", s.String())
	if !r.opts.Color {
		return label
	}
	switch s {
	case diagnostics.SeverityError:
		return ansiRed + label + ansiReset
	case diagnostics.SeverityWarning:
		return ansiYellow + label + ansiReset
	case diagnostics.SeverityNote:
		return ansiCyan + label + ansiReset
	}
	return label
}

// displayFile shows files relative to the project when possible. Two-file
// diagnostics show both names.
func displayFile(projectDir, fullFileName string) string {
	if fullFileName == "" {
		return ""
	}
	parts := strings.Split(fullFileName, diagnostics.FileSeparator)
	for i, p := range parts {
		if projectDir == "" {
			continue
		}
		if rel, err := filepath.Rel(projectDir, p); err == nil {
			parts[i] = filepath.ToSlash(rel)
		}
	}
	return strings.Join(parts, " <- ")
}

// indent keeps continuation lines of multi-line messages aligned.
func indent(msg string) string {
	return strings.ReplaceAll(msg, "\n", "\n        ")
}
