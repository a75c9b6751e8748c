// Package diagnostics holds the record every check produces, the fuzzy
// matching used by ignore lists and the persisted report.
package diagnostics

import (
	"fmt"
	"strings"
)

// ValidationType classifies where a diagnostic comes from. The zero value is
// unset and matches anything in fuzzy comparisons.
type ValidationType int

const (
	ValidationUnset ValidationType = iota
	ValidationFile
	ValidationScheme
	ValidationLogic
	ValidationParse
)

var validationNames = []string{"", "File", "Scheme", "Logic", "Parse"}

func (v ValidationType) String() string {
	if v < 0 || int(v) >= len(validationNames) {
		return ""
	}
	return validationNames[v]
}

func (v ValidationType) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *ValidationType) UnmarshalText(b []byte) error {
	parsed, err := ParseValidationType(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ParseValidationType accepts the names produced by String, case-insensitively.
func ParseValidationType(s string) (ValidationType, error) {
	for i, name := range validationNames {
		if strings.EqualFold(name, s) {
			return ValidationType(i), nil
		}
	}
	return ValidationUnset, fmt.Errorf("unknown validation type %q", s)
}

// Severity orders diagnostics from informational to blocking.
type Severity int

const (
	SeverityUnset Severity = iota
	SeverityNote
	SeverityWarning
	SeverityError
)

var severityNames = []string{"", "Note", "Warning", "Error"}

func (s Severity) String() string {
	if s < 0 || int(s) >= len(severityNames) {
		return ""
	}
	return severityNames[s]
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(b []byte) error {
	parsed, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func ParseSeverity(s string) (Severity, error) {
	for i, name := range severityNames {
		if strings.EqualFold(name, s) {
			return Severity(i), nil
		}
	}
	return SeverityUnset, fmt.Errorf("unknown severity %q", s)
}

// FileSeparator joins the two files of a diagnostic that involves both.
const FileSeparator = ";"

// JoinFiles builds a FullFileName naming two files.
func JoinFiles(first, second string) string {
	if first == second || second == "" {
		return first
	}
	if first == "" {
		return second
	}
	return first + FileSeparator + second
}

// ReportItem is one diagnostic.
type ReportItem struct {
	ProjectName    string         `json:"projectName,omitempty"`
	FullFileName   string         `json:"fullFileName,omitempty"`
	FileType       string         `json:"fileType,omitempty"`
	LineID         int            `json:"lineId,omitempty"`
	JsonPath       string         `json:"jsonPath,omitempty"`
	Message        string         `json:"message,omitempty"`
	ValidationType ValidationType `json:"validationType,omitempty"`
	Severity       Severity       `json:"severity,omitempty"`
	Source         string         `json:"source,omitempty"`
	// Line is the source line of the anchor property. It is for display
	// only and takes no part in Matches.
	Line int `json:"line,omitempty"`
}

// Matches reports whether r and other are fuzzy-equal: every field is equal
// or blank on at least one side.
func (r ReportItem) Matches(other ReportItem) bool {
	return textMatches(r.ProjectName, other.ProjectName) &&
		textMatches(r.FullFileName, other.FullFileName) &&
		textMatches(r.FileType, other.FileType) &&
		(r.LineID == 0 || other.LineID == 0 || r.LineID == other.LineID) &&
		textMatches(r.JsonPath, other.JsonPath) &&
		textMatches(r.Message, other.Message) &&
		(r.ValidationType == ValidationUnset || other.ValidationType == ValidationUnset || r.ValidationType == other.ValidationType) &&
		(r.Severity == SeverityUnset || other.Severity == SeverityUnset || r.Severity == other.Severity) &&
		textMatches(r.Source, other.Source)
}

func textMatches(a, b string) bool {
	return a == "" || b == "" || a == b
}

func (r ReportItem) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s/%s] %s", r.Severity, r.ValidationType, r.Source, r.Message)
	if r.FullFileName != "" {
		fmt.Fprintf(&b, " (%s", r.FullFileName)
		if r.JsonPath != "" {
			fmt.Fprintf(&b, " @ %s", r.JsonPath)
		}
		b.WriteString(")")
	}
	return b.String()
}
