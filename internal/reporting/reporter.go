// -- internal/reporting/reporter.go --
package reporting

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/layerlint/internal/diagnostics"
	"github.com/xkilldash9x/layerlint/internal/observability"
)

// Reporter writes validation reports to an output.
type Reporter interface {
	// Write renders one report. Reporters that produce a single document
	// buffer until Close.
	Write(report *diagnostics.Report) error
	// Close finalizes the output and closes the underlying writer.
	Close() error
}

// Options carry what reporters need beyond the report itself.
type Options struct {
	ToolVersion string
	// RuleDescriptions maps rule names to their descriptions.
	RuleDescriptions map[string]string
	// Color enables ANSI severity colors in text output.
	Color  bool
	Logger *zap.Logger
}

func (o Options) logger(name string) *zap.Logger {
	if o.Logger != nil {
		return o.Logger.Named(name)
	}
	return observability.GetLogger().Named(name)
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// NopCloser adapts w for reporters that must not close it.
func NopCloser(w io.Writer) io.WriteCloser {
	return &nopWriteCloser{w}
}

// New creates a reporter for format writing to outputPath, or to stdout when
// outputPath is empty or "stdout".
func New(format, outputPath string, opts Options) (Reporter, error) {
	if !Supported(format) {
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
	var writer io.WriteCloser
	if outputPath == "" || outputPath == "stdout" {
		writer = NopCloser(os.Stdout)
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
		}
		writer = f
	}
	return NewWithWriter(format, writer, opts)
}

// NewWithWriter creates a reporter that takes ownership of writer.
func NewWithWriter(format string, writer io.WriteCloser, opts Options) (Reporter, error) {
	switch strings.ToLower(format) {
	case "text":
		return NewTextReporter(writer, opts), nil
	case "json":
		return NewJSONReporter(writer, opts), nil
	case "sarif":
		return NewSARIFReporter(writer, opts), nil
	default:
		_ = writer.Close()
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// Supported reports whether format names a reporter.
func Supported(format string) bool {
	switch strings.ToLower(format) {
	case "text", "json", "sarif":
		return true
	}
	return false
}
