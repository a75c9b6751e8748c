package diagnostics

import (
	"fmt"
	"time"
)

// Summary counts diagnostics by severity, validation type and source.
type Summary struct {
	Total      int            `json:"total"`
	BySeverity map[string]int `json:"bySeverity"`
	ByType     map[string]int `json:"byType"`
	BySource   map[string]int `json:"bySource"`
}

// Report is the result of one validation run.
type Report struct {
	RunID       string        `json:"runId"`
	ProjectName string        `json:"projectName"`
	ProjectDir  string        `json:"projectDir"`
	StartedAt   time.Time     `json:"startedAt"`
	Duration    time.Duration `json:"duration"`
	Files       int           `json:"files"`
	Properties  int           `json:"properties"`
	Suppressed  int           `json:"suppressed"`
	Items       []ReportItem  `json:"items"`
	Summary     Summary       `json:"summary"`
}

// Summarize tallies items.
func Summarize(items []ReportItem) Summary {
	s := Summary{
		Total:      len(items),
		BySeverity: make(map[string]int),
		ByType:     make(map[string]int),
		BySource:   make(map[string]int),
	}
	for _, item := range items {
		s.BySeverity[item.Severity.String()]++
		s.ByType[item.ValidationType.String()]++
		s.BySource[item.Source]++
	}
	return s
}

// Count returns how many items carry severity sev.
func (s Summary) Count(sev Severity) int {
	return s.BySeverity[sev.String()]
}

// Text is a one-line human summary.
func (s Summary) Text() string {
	return fmt.Sprintf("%d diagnostics: %d errors, %d warnings, %d notes",
		s.Total, s.Count(SeverityError), s.Count(SeverityWarning), s.Count(SeverityNote))
}

// HasAtLeast reports whether any item is at or above min.
func (r *Report) HasAtLeast(min Severity) bool {
	if min == SeverityUnset {
		return false
	}
	for _, item := range r.Items {
		if item.Severity >= min {
			return true
		}
	}
	return false
}
