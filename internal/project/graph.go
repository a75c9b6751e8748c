package project

import (
	"strings"
)

// Graph is the flattened, ordered fact base of every property of every file
// loaded in one run. It is append-only while building and read-only once
// sealed.
type Graph struct {
	ProjectName string
	ProjectDir  string
	RootName    string
	Divider     string
	Folder      FolderType

	Properties []*JsonProperty
	// Files lists every file that was read, in load order.
	Files     []string
	FileTypes map[string]ContentType
	Schemas   map[string]string
	// Versions holds the top-level contentVersion property of each file.
	Versions map[string]*JsonProperty

	byFile  map[string][]*JsonProperty
	members map[string][]*JsonProperty
	sealed  bool
}

// NewGraph returns an empty graph for projectDir.
func NewGraph(projectName, projectDir, rootName, divider string) *Graph {
	return &Graph{
		ProjectName: projectName,
		ProjectDir:  projectDir,
		RootName:    rootName,
		Divider:     divider,
		FileTypes:   make(map[string]ContentType),
		Schemas:     make(map[string]string),
		Versions:    make(map[string]*JsonProperty),
		byFile:      make(map[string][]*JsonProperty),
		members:     make(map[string][]*JsonProperty),
	}
}

// appendFile adds the properties of one file; a file's properties are
// always contiguous.
func (g *Graph) appendFile(file string, props []*JsonProperty) {
	if g.sealed {
		panic("project: append to a sealed graph")
	}
	g.Properties = append(g.Properties, props...)
	g.byFile[file] = append(g.byFile[file], props...)
}

// Seal assigns line ids in insertion order and builds the lookup indices.
func (g *Graph) Seal() {
	if g.sealed {
		return
	}
	for i, p := range g.Properties {
		p.LineID = i + 1
		parent := p.ParentPath()
		if p.ItemType == ItemProperty || p.IsOpening() {
			key := memberKey(p.FullFileName, parent)
			g.members[key] = append(g.members[key], p)
		}
	}
	g.sealed = true
}

// Sealed reports whether line ids have been assigned.
func (g *Graph) Sealed() bool {
	return g.sealed
}

func memberKey(file, objectPath string) string {
	return file + "\x00" + objectPath
}

// Members returns the direct members of the object at objectPath: scalar
// properties and the opening markers of nested containers.
func (g *Graph) Members(file, objectPath string) []*JsonProperty {
	return g.members[memberKey(file, objectPath)]
}

// Member returns the first direct member named name of the object at
// objectPath, or nil.
func (g *Graph) Member(file, objectPath, name string) *JsonProperty {
	for _, m := range g.Members(file, objectPath) {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Sibling returns the member named name of the object that holds p.
func (g *Graph) Sibling(p *JsonProperty, name string) *JsonProperty {
	return g.Member(p.FullFileName, p.ParentPath(), name)
}

// FileProperties returns the properties of one file in order.
func (g *Graph) FileProperties(file string) []*JsonProperty {
	return g.byFile[file]
}

// Subtree returns every property strictly below path in file, markers
// included.
func (g *Graph) Subtree(file, path string) []*JsonProperty {
	var out []*JsonProperty
	for _, p := range g.byFile[file] {
		if p.JsonPath == path {
			continue
		}
		if strings.HasPrefix(p.JsonPath, path) {
			rest := p.JsonPath[len(path):]
			if strings.HasPrefix(rest, g.Divider) || strings.HasPrefix(rest, "[") {
				out = append(out, p)
			}
		}
	}
	return out
}

// Definitions returns the "id" properties of the elements of a collection,
// such as the events of an "events" array, across all files.
func (g *Graph) Definitions(collection string) []*JsonProperty {
	var out []*JsonProperty
	for _, p := range g.Properties {
		if p.ItemType == ItemProperty && p.Name == "id" && p.Parent == collection {
			out = append(out, p)
		}
	}
	return out
}

// Lookup finds the first property of file at path.
func (g *Graph) Lookup(file, path string) *JsonProperty {
	for _, p := range g.byFile[file] {
		if p.JsonPath == path {
			return p
		}
	}
	return nil
}
