package reporting

import (
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/layerlint/internal/diagnostics"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// JSONReporter writes each report as one indented JSON document.
type JSONReporter struct {
	writer io.WriteCloser
	logger *zap.Logger
}

func NewJSONReporter(writer io.WriteCloser, opts Options) *JSONReporter {
	return &JSONReporter{writer: writer, logger: opts.logger("json_reporter")}
}

func (r *JSONReporter) Write(report *diagnostics.Report) error {
	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		return fmt.Errorf("failed to encode JSON report: %w", err)
	}
	r.logger.Debug("Wrote JSON report", zap.Int("items", len(report.Items)))
	return nil
}

func (r *JSONReporter) Close() error {
	return r.writer.Close()
}
