// Package schema loads JSON Schemas referenced by layer files and validates
// file text against them.
package schema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/xkilldash9x/layerlint/internal/jsonc"
)

// Error is one schema violation.
type Error struct {
	Line    int
	Path    string
	Message string
	Kind    string
}

// Validator checks a document against one schema.
type Validator interface {
	Validate(document string) ([]Error, error)
}

// LoadError reports a schema that could not be fetched or compiled.
type LoadError struct {
	Location string
	Message  string
	Cause    error
}

func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load schema %s: %s: %v", e.Location, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load schema %s: %s", e.Location, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

type jsonSchemaValidator struct {
	schema *gojsonschema.Schema
	scan   jsonc.Options
}

// Compile builds a Validator from schema text. scan decides the root name and
// divider of the reported paths.
func Compile(schemaText string, scan jsonc.Options) (Validator, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaText))
	if err != nil {
		return nil, err
	}
	if scan.RootName == "" {
		scan.RootName = jsonc.DefaultRootName
	}
	if scan.PathDivider == "" {
		scan.PathDivider = jsonc.DefaultPathDivider
	}
	return &jsonSchemaValidator{schema: s, scan: scan}, nil
}

// Validate strips comments from document, validates it and locates each
// violation in the original text.
func (v *jsonSchemaValidator) Validate(document string) ([]Error, error) {
	res, err := v.schema.Validate(gojsonschema.NewStringLoader(jsonc.StripComments(document)))
	if err != nil {
		return nil, fmt.Errorf("failed to validate document: %w", err)
	}
	if res.Valid() {
		return nil, nil
	}

	out := make([]Error, 0, len(res.Errors()))
	for _, desc := range res.Errors() {
		path := FieldPath(desc.Field(), v.scan.RootName, v.scan.PathDivider)
		line := 0
		if p, ok, _ := jsonc.Find(document, path, v.scan); ok {
			line, _ = jsonc.LineColumn(document, p.StartOffset)
		}
		out = append(out, Error{
			Line:    line,
			Path:    path,
			Message: desc.Description(),
			Kind:    desc.Type(),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].Path < out[j].Path
	})
	return out, nil
}

// FieldPath converts a validator field such as "events.0.id" to the scanner
// path "root.events[0].id".
func FieldPath(field, rootName, divider string) string {
	if field == "" || field == "(root)" {
		return rootName
	}
	var b strings.Builder
	b.WriteString(rootName)
	for _, seg := range strings.Split(field, ".") {
		if _, err := strconv.Atoi(seg); err == nil {
			b.WriteString("[" + seg + "]")
			continue
		}
		b.WriteString(divider)
		b.WriteString(seg)
	}
	return b.String()
}
