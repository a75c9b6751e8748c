package project

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/layerlint/internal/diagnostics"
	"github.com/xkilldash9x/layerlint/internal/jsonc"
)

// Sources of the diagnostics raised while building the graph.
const (
	SourceImports  = "Imports"
	SourceVersions = "ContentVersion"
	SourceParser   = "JsonParser"
	SourceFiles    = "ProjectFiles"
)

const DefaultImportTag = "$ref"

// Options configures graph building.
type Options struct {
	ProjectName string
	RootName    string
	PathDivider string
	ImportTag   string
	PagesGlob   string
	Manifest    []string
}

func (o Options) withDefaults() Options {
	if o.RootName == "" {
		o.RootName = jsonc.DefaultRootName
	}
	if o.PathDivider == "" {
		o.PathDivider = jsonc.DefaultPathDivider
	}
	if o.ImportTag == "" {
		o.ImportTag = DefaultImportTag
	}
	if o.PagesGlob == "" {
		o.PagesGlob = DefaultPagesGlob
	}
	if o.Manifest == nil {
		o.Manifest = DefaultManifest
	}
	return o
}

// ScanOptions returns the scanner options matching the graph paths.
func (o Options) ScanOptions() jsonc.Options {
	o = o.withDefaults()
	return jsonc.Options{RootName: o.RootName, PathDivider: o.PathDivider}
}

// Builder loads a project into a Graph. A Builder is single-use and not safe
// for concurrent use: emission order defines line ids.
type Builder struct {
	opts       Options
	projectDir string
	folder     FolderType
	cache      *FileCache
	logger     *zap.Logger
	graph      *Graph
	visited    map[string]bool
	pending    []pendingReport
}

type pendingReport struct {
	prop *JsonProperty
	item diagnostics.ReportItem
}

type pendingImport struct {
	ref      string
	declared ContentType
	via      *JsonProperty
}

// NewBuilder prepares a builder for projectDir. cache may be shared with the
// rules that read scanner output later in the run.
func NewBuilder(projectDir string, opts Options, cache *FileCache, logger *zap.Logger) *Builder {
	opts = opts.withDefaults()
	dir := filepath.Clean(projectDir)
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	name := opts.ProjectName
	if name == "" {
		name = filepath.Base(dir)
	}
	if cache == nil {
		cache = NewFileCache(opts.ScanOptions())
	}
	return &Builder{
		opts:       opts,
		projectDir: dir,
		cache:      cache,
		logger:     logger.Named("builder"),
		graph:      NewGraph(name, dir, opts.RootName, opts.PathDivider),
		visited:    make(map[string]bool),
	}
}

// Build discovers the project files, loads them and their imports depth
// first, and seals the graph. Only an unreadable project root is an error;
// every other problem is returned as a diagnostic.
func (b *Builder) Build(ctx context.Context) (*Graph, []diagnostics.ReportItem, error) {
	files, err := Discover(b.projectDir, b.opts.Manifest, b.opts.PagesGlob)
	if err != nil {
		return nil, nil, err
	}
	b.folder = DetectFolderType(b.projectDir)
	b.graph.Folder = b.folder
	b.logger.Debug("Building project graph",
		zap.String("project", b.graph.ProjectName),
		zap.String("folder_type", b.folder.String()),
		zap.Int("files", len(files)),
	)

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		b.DeserializeFile(f.Path, f.Type, b.visited)
	}

	unexpected, err := UnexpectedRootFiles(b.projectDir, func(path string) bool { return b.visited[path] })
	if err != nil {
		return nil, nil, err
	}
	for _, path := range unexpected {
		b.report(nil, diagnostics.ReportItem{
			FullFileName:   path,
			FileType:       ContentTypeForFile(path).String(),
			Message:        fmt.Sprintf("File %s is not part of the project manifest and is never imported", filepath.Base(path)),
			ValidationType: diagnostics.ValidationFile,
			Severity:       diagnostics.SeverityNote,
			Source:         SourceFiles,
		})
	}

	b.graph.Seal()
	return b.graph, b.finish(), nil
}

// Graph returns the graph under construction.
func (b *Builder) Graph() *Graph {
	return b.graph
}

// DeserializeFile appends the properties of fullPath, then of the files it
// imports, to the graph. Each path is loaded at most once per visited set.
func (b *Builder) DeserializeFile(fullPath string, declared ContentType, visited map[string]bool) {
	b.deserialize(fullPath, declared, visited, nil)
}

func (b *Builder) deserialize(fullPath string, declared ContentType, visited map[string]bool, via *JsonProperty) {
	path := filepath.Clean(fullPath)
	if visited[path] {
		if prev, ok := b.graph.FileTypes[path]; ok && declared != Unknown && prev != Unknown && prev != declared {
			b.report(via, diagnostics.ReportItem{
				FullFileName:   diagnostics.JoinFiles(fileOf(via), path),
				Message:        fmt.Sprintf("%s is imported as %s but was already loaded as %s", filepath.Base(path), declared, prev),
				ValidationType: diagnostics.ValidationLogic,
				Severity:       diagnostics.SeverityNote,
				Source:         SourceImports,
			})
		}
		return
	}
	visited[path] = true

	fileType := declared
	if byName := ContentTypeForFile(path); byName != Unknown {
		if declared != Unknown && declared != byName {
			b.report(via, diagnostics.ReportItem{
				FullFileName:   diagnostics.JoinFiles(fileOf(via), path),
				Message:        fmt.Sprintf("%s is imported as %s but its file name implies %s", filepath.Base(path), declared, byName),
				ValidationType: diagnostics.ValidationLogic,
				Severity:       diagnostics.SeverityWarning,
				Source:         SourceImports,
			})
		}
		if declared == Unknown {
			fileType = byName
		}
	}
	b.graph.FileTypes[path] = fileType

	cached := b.cache.Load(path)
	if cached.Err != nil {
		msg := "Cannot read file:\n" + diagnostics.FormatErrorChain(cached.Err)
		if via != nil {
			msg = fmt.Sprintf("Cannot read imported file %s:\n%s", filepath.Base(path), diagnostics.FormatErrorChain(cached.Err))
		}
		b.report(via, diagnostics.ReportItem{
			FullFileName:   diagnostics.JoinFiles(fileOf(via), path),
			FileType:       fileType.String(),
			Message:        msg,
			ValidationType: diagnostics.ValidationFile,
			Severity:       diagnostics.SeverityError,
			Source:         SourceFiles,
		})
		return
	}
	b.graph.Files = append(b.graph.Files, path)

	// Scanner failures are reported per file by the syntax rule.
	if cached.Scan.ErrorFound {
		b.logger.Debug("Skipping file with syntax errors", zap.String("file", path), zap.Error(cached.Scan.Err))
		return
	}

	root, err := ParseTree(cached.Text)
	if err != nil {
		b.report(nil, diagnostics.ReportItem{
			FullFileName:   path,
			FileType:       fileType.String(),
			Message:        "Cannot parse file:\n" + diagnostics.FormatErrorChain(err),
			ValidationType: diagnostics.ValidationParse,
			Severity:       diagnostics.SeverityError,
			Source:         SourceParser,
		})
		return
	}

	w := &walker{
		b:        b,
		file:     path,
		fileType: fileType,
		shared:   !isWithin(b.projectDir, path),
	}
	if root.Kind != NodeObject && root.Kind != NodeArray {
		b.report(nil, diagnostics.ReportItem{
			FullFileName:   path,
			FileType:       fileType.String(),
			Message:        fmt.Sprintf("Document root is %s, expected an object or array", nodeKindName(root.Kind)),
			ValidationType: diagnostics.ValidationParse,
			Severity:       diagnostics.SeverityError,
			Source:         SourceParser,
		})
		return
	}
	w.container(root, b.opts.RootName, 0, "", "")
	b.graph.appendFile(path, w.props)
	b.logger.Debug("Deserialized file",
		zap.String("file", path),
		zap.String("type", fileType.String()),
		zap.Bool("shared", w.shared),
		zap.Int("properties", len(w.props)),
	)

	for _, imp := range w.imports {
		target := ResolveImport(b.folder, !w.shared, filepath.Dir(path), imp.ref)
		if target == "" {
			continue
		}
		b.deserialize(target, imp.declared, visited, imp.via)
	}
}

func fileOf(p *JsonProperty) string {
	if p == nil {
		return ""
	}
	return p.FullFileName
}

func nodeKindName(k NodeKind) string {
	switch k {
	case NodeString:
		return "a string"
	case NodeNumber:
		return "a number"
	case NodeBool:
		return "a boolean"
	default:
		return "null"
	}
}

// report queues a diagnostic; line ids are filled in once the graph is
// sealed.
func (b *Builder) report(prop *JsonProperty, item diagnostics.ReportItem) {
	b.pending = append(b.pending, pendingReport{prop: prop, item: item})
}

func (b *Builder) finish() []diagnostics.ReportItem {
	items := make([]diagnostics.ReportItem, 0, len(b.pending))
	for _, pr := range b.pending {
		item := pr.item
		item.ProjectName = b.graph.ProjectName
		if p := pr.prop; p != nil {
			item.LineID = p.LineID
			item.JsonPath = p.JsonPath
			if item.FileType == "" {
				item.FileType = p.FileType.String()
			}
			if item.FullFileName == "" {
				item.FullFileName = p.FullFileName
			}
		}
		items = append(items, item)
	}
	return items
}

// walker flattens one document tree.
type walker struct {
	b        *Builder
	file     string
	fileType ContentType
	shared   bool
	props    []*JsonProperty
	imports  []pendingImport
}

func (w *walker) emit(p *JsonProperty) *JsonProperty {
	p.FullFileName = w.file
	p.FileType = w.fileType
	p.Shared = w.shared
	p.divider = w.b.opts.PathDivider
	w.props = append(w.props, p)
	return p
}

// container emits the markers of an object or array node and walks its
// children. depth is the depth of the node as a member of its parent.
func (w *walker) container(n *Node, path string, depth int, parent, version string) {
	open, closing, item := "{", "}", ItemObject
	if n.Kind == NodeArray {
		open, closing, item = "[", "]", ItemArray
	}
	opening := w.emit(&JsonProperty{
		JsonPath:         path,
		JsonDepth:        depth + 1,
		Name:             n.Name,
		Value:            open,
		ItemType:         item,
		Parent:           parent,
		Version:          version,
		SourceLineNumber: n.Line,
	})

	childParent := parent
	if n.Name != "" {
		childParent = n.Name
	}
	current := version
	for i, child := range n.Children {
		childPath := path + w.b.opts.PathDivider + child.Name
		if n.Kind == NodeArray {
			childPath = path + "[" + strconv.Itoa(i) + "]"
		}
		switch child.Kind {
		case NodeObject, NodeArray:
			w.container(child, childPath, depth+1, childParent, current)
		case NodeNull:
			// Null members and elements never enter the graph.
			w.b.report(opening, diagnostics.ReportItem{
				Message:        fmt.Sprintf("Null value at %s", childPath),
				ValidationType: diagnostics.ValidationParse,
				Severity:       diagnostics.SeverityError,
				Source:         SourceParser,
			})
		default:
			w.scalar(child, childPath, depth+1, childParent, &current)
		}
	}

	w.emit(&JsonProperty{
		JsonPath:         path,
		JsonDepth:        depth,
		Name:             n.Name,
		Value:            closing,
		ItemType:         item,
		Parent:           parent,
		Version:          version,
		SourceLineNumber: n.EndLine,
	})
}

func (w *walker) scalar(n *Node, path string, depth int, parent string, version *string) {
	p := w.emit(&JsonProperty{
		JsonPath:         path,
		JsonDepth:        depth,
		Name:             n.Name,
		Value:            n.Value,
		ItemType:         ItemProperty,
		Parent:           parent,
		Version:          *version,
		SourceLineNumber: n.Line,
	})

	switch {
	case n.Name == "contentVersion":
		if *version != "" && *version != n.Value {
			w.b.report(p, diagnostics.ReportItem{
				Message:        fmt.Sprintf("contentVersion %q conflicts with the enclosing contentVersion %q", n.Value, *version),
				ValidationType: diagnostics.ValidationLogic,
				Severity:       diagnostics.SeverityError,
				Source:         SourceVersions,
			})
		}
		*version = n.Value
		p.Version = n.Value
		if _, ok := w.b.graph.Versions[w.file]; !ok && depth == 1 {
			w.b.graph.Versions[w.file] = p
		}
	case n.Name == "$schema":
		if _, ok := w.b.graph.Schemas[w.file]; !ok {
			w.b.graph.Schemas[w.file] = n.Value
		}
	case n.Name == w.b.opts.ImportTag && n.Kind == NodeString:
		w.imports = append(w.imports, pendingImport{
			ref:      n.Value,
			declared: w.declaredType(path),
			via:      p,
		})
	}
}

// declaredType reads the content type an import declares through an
// imports.<type> path segment.
func (w *walker) declaredType(path string) ContentType {
	segments := strings.Split(path, w.b.opts.PathDivider)
	for i, seg := range segments {
		if stripIndex(seg) != "imports" || i+1 >= len(segments) {
			continue
		}
		return ParseContentType(stripIndex(segments[i+1]))
	}
	return Unknown
}

func stripIndex(segment string) string {
	if i := strings.IndexByte(segment, '['); i >= 0 {
		return segment[:i]
	}
	return segment
}
