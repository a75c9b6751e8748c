package project

import (
	"os"
	"path"
	"path/filepath"
	"strings"
)

// FolderType describes where the shared library sits relative to the
// project, which decides how "../" prefixes in imports are read.
type FolderType int

const (
	FolderUnknown FolderType = iota
	FolderDeployment
	FolderRepository
	FolderIceRepository
)

func (f FolderType) String() string {
	switch f {
	case FolderDeployment:
		return "Deployment"
	case FolderRepository:
		return "Repository"
	case FolderIceRepository:
		return "IceRepository"
	default:
		return "Unknown"
	}
}

// SharedFolderName is the directory probed to detect the folder type.
const SharedFolderName = "shared"

// DetectFolderType probes for a shared folder one, two and three levels above
// projectDir.
func DetectFolderType(projectDir string) FolderType {
	probes := []struct {
		up   int
		kind FolderType
	}{
		{1, FolderRepository},
		{2, FolderDeployment},
		{3, FolderIceRepository},
	}
	for _, probe := range probes {
		parts := []string{projectDir}
		for i := 0; i < probe.up; i++ {
			parts = append(parts, "..")
		}
		parts = append(parts, SharedFolderName)
		if info, err := os.Stat(filepath.Join(parts...)); err == nil && info.IsDir() {
			return probe.kind
		}
	}
	return FolderUnknown
}

// ResolveImport turns an import reference found in a file under baseDir into
// a clean file path. The fragment after '#' is dropped. Imports are authored
// for the Deployment layout, so for files inside the project the number of
// leading ".." segments is adjusted to the detected folder type. An empty
// result means the reference names no file.
func ResolveImport(folder FolderType, inProject bool, baseDir, rawRef string) string {
	ref := rawRef
	if i := strings.IndexByte(ref, '#'); i >= 0 {
		ref = ref[:i]
	}
	ref = strings.TrimSpace(strings.ReplaceAll(ref, `\`, "/"))
	if ref == "" {
		return ""
	}
	if path.IsAbs(ref) || filepath.IsAbs(filepath.FromSlash(ref)) {
		return filepath.Clean(filepath.FromSlash(ref))
	}
	if inProject && strings.HasPrefix(ref, "../") {
		ref = adjustParentSegments(folder, ref)
	}
	return filepath.Join(baseDir, filepath.FromSlash(ref))
}

func adjustParentSegments(folder FolderType, ref string) string {
	segments := strings.Split(ref, "/")
	n := 0
	for n < len(segments) && segments[n] == ".." {
		n++
	}
	want := n
	switch folder {
	case FolderRepository:
		want = n - 1
	case FolderIceRepository:
		want = n + 1
	}
	if want < 0 {
		want = 0
	}
	out := make([]string, 0, want+len(segments)-n)
	for i := 0; i < want; i++ {
		out = append(out, "..")
	}
	out = append(out, segments[n:]...)
	return strings.Join(out, "/")
}

// isWithin reports whether target lies inside dir.
func isWithin(dir, target string) bool {
	rel, err := filepath.Rel(dir, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}
