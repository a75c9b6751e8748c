package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrProjectRoot is returned when the project directory cannot be listed.
// It is the only failure that aborts a run.
var ErrProjectRoot = errors.New("project root is not readable")

// DefaultManifest lists the root-level files loaded in order when present.
var DefaultManifest = []string{
	"events.jsonc",
	"dataviews.jsonc",
	"rules.jsonc",
	"search.jsonc",
	"combo.jsonc",
	"tools.jsonc",
	"strings.jsonc",
	"patch.jsonc",
	"layout.jsonc",
}

const DefaultPagesGlob = "pages/**/*.jsonc"

// SourceFile is a file the run starts from.
type SourceFile struct {
	Path string
	Type ContentType
}

// Discover lists the manifest files present at the project root followed by
// the page files matched by pagesGlob, both in a stable order.
func Discover(projectDir string, manifest []string, pagesGlob string) ([]SourceFile, error) {
	if _, err := os.ReadDir(projectDir); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProjectRoot, err)
	}

	var files []SourceFile
	for _, name := range manifest {
		path := filepath.Join(projectDir, name)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			files = append(files, SourceFile{Path: path, Type: ContentTypeForFile(name)})
		}
	}

	if pagesGlob == "" {
		return files, nil
	}
	pages, err := doublestar.Glob(os.DirFS(projectDir), filepath.ToSlash(pagesGlob), doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("invalid pages glob %q: %w", pagesGlob, err)
	}
	sort.Strings(pages)
	for _, rel := range pages {
		path := filepath.Join(projectDir, filepath.FromSlash(rel))
		kind := ContentTypeForFile(path)
		if kind == Unknown {
			kind = Layout
		}
		files = append(files, SourceFile{Path: path, Type: kind})
	}
	return files, nil
}

// UnexpectedRootFiles returns the root-level .jsonc files for which loaded
// reports false.
func UnexpectedRootFiles(projectDir string, loaded func(string) bool) ([]string, error) {
	entries, err := os.ReadDir(projectDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProjectRoot, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".jsonc") {
			continue
		}
		path := filepath.Join(projectDir, e.Name())
		if !loaded(path) {
			out = append(out, path)
		}
	}
	return out, nil
}
