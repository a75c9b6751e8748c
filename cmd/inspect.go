package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/layerlint/internal/config"
	"github.com/xkilldash9x/layerlint/internal/jsonc"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// record is the printable form of a scanner record.
type record struct {
	Kind      string `json:"kind"`
	Path      string `json:"path"`
	Name      string `json:"name,omitempty"`
	Value     string `json:"value,omitempty"`
	ValueType string `json:"valueType,omitempty"`
	Start     int    `json:"start"`
	End       int    `json:"end"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
}

func newRecord(text string, p jsonc.ParsedProperty) record {
	r := record{
		Kind:  p.Kind.String(),
		Path:  p.Path,
		Name:  p.Name,
		Value: p.Value,
		Start: p.StartOffset,
		End:   p.EndOffset,
	}
	if p.Kind == jsonc.KindProperty || p.Kind == jsonc.KindArrayValue {
		r.ValueType = p.ValueType.String()
	}
	if p.StartOffset != jsonc.Unset {
		r.Line, r.Column = jsonc.LineColumn(text, p.StartOffset)
	}
	return r
}

func scanOptions(cfg config.Interface) jsonc.Options {
	return jsonc.Options{
		RootName:    cfg.Project().RootName,
		PathDivider: cfg.Project().PathDivider,
	}
}

// newInspectCmd creates the `inspect` command, which dumps the scanner
// records of one file.
func newInspectCmd() *cobra.Command {
	var asJSON bool
	var omitValues bool

	inspectCmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Prints the property records the scanner produces for a JSONC file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			text, err := readText(args[0])
			if err != nil {
				return err
			}
			opts := scanOptions(cfg)
			opts.OmitValues = omitValues
			return runInspect(cmd.OutOrStdout(), text, opts, asJSON)
		},
	}
	inspectCmd.Flags().BoolVar(&asJSON, "json", false, "print records as JSON")
	inspectCmd.Flags().BoolVar(&omitValues, "omit-values", false, "print offsets and paths only")
	return inspectCmd
}

// runInspect scans text and prints every record. A scan error is returned
// after the partial records are printed.
func runInspect(out io.Writer, text string, opts jsonc.Options, asJSON bool) error {
	res := jsonc.Scan(text, opts)
	records := make([]record, 0, len(res.Properties))
	for _, p := range res.Properties {
		records = append(records, newRecord(text, p))
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(records); err != nil {
			return fmt.Errorf("failed to encode records: %w", err)
		}
	} else if err := printRecords(out, records); err != nil {
		return err
	}

	if res.ErrorFound {
		return fmt.Errorf("scan stopped: %w", res.Err)
	}
	return nil
}

func printRecords(out io.Writer, records []record) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LINE:COL\tSTART\tEND\tKIND\tTYPE\tPATH\tVALUE")
	for _, r := range records {
		fmt.Fprintf(tw, "%d:%d\t%d\t%d\t%s\t%s\t%s\t%s\n",
			r.Line, r.Column, r.Start, r.End, r.Kind, r.ValueType, r.Path, oneLine(r.Value))
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to print records: %w", err)
	}
	return nil
}

// newFindCmd creates the `find` command, which locates one path in a file.
func newFindCmd() *cobra.Command {
	findCmd := &cobra.Command{
		Use:   "find <file> <json-path>",
		Short: "Prints the location and source text of a JSON path in a JSONC file",
		Example: `  layerlint find events.jsonc root.events[2].id
  layerlint find pages/main.jsonc root.layout`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			text, err := readText(args[0])
			if err != nil {
				return err
			}
			return runFind(cmd.OutOrStdout(), text, args[1], scanOptions(cfg))
		},
	}
	return findCmd
}

// errPathNotFound is returned by find when the path does not occur.
var errPathNotFound = errors.New("path not found")

func runFind(out io.Writer, text, path string, opts jsonc.Options) error {
	p, ok, err := jsonc.Find(text, path, opts)
	if err != nil {
		return fmt.Errorf("failed to scan: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", errPathNotFound, path)
	}
	line, column := jsonc.LineColumn(text, p.StartOffset)
	fmt.Fprintf(out, "%s %s at %d:%d (bytes %d-%d)\n", p.Path, p.Kind, line, column, p.StartOffset, p.EndOffset)
	fmt.Fprintln(out, p.Span(text))
	return nil
}

func readText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

func oneLine(s string) string {
	s = strings.ReplaceAll(s, "\r", `\r`)
	return strings.ReplaceAll(s, "\n", `\n`)
}
