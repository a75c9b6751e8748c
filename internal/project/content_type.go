package project

import (
	"path/filepath"
	"strings"
)

// ContentType is the kind of layer file a property belongs to.
type ContentType int

const (
	Unknown ContentType = iota
	DataViews
	Events
	Layout
	Rules
	Search
	Combo
	Tools
	Strings
	Patch
)

var contentTypeNames = []string{"Unknown", "DataViews", "Events", "Layout", "Rules", "Search", "Combo", "Tools", "Strings", "Patch"}

func (t ContentType) String() string {
	if t < 0 || int(t) >= len(contentTypeNames) {
		return "Unknown"
	}
	return contentTypeNames[t]
}

// Collection is the top-level property name that holds the definitions of a
// file of this type.
func (t ContentType) Collection() string {
	switch t {
	case Unknown:
		return ""
	default:
		return strings.ToLower(t.String())
	}
}

var contentTypeAliases = map[string]ContentType{
	"dataviews": DataViews,
	"dataview":  DataViews,
	"events":    Events,
	"event":     Events,
	"layout":    Layout,
	"layouts":   Layout,
	"rules":     Rules,
	"rule":      Rules,
	"search":    Search,
	"searches":  Search,
	"combo":     Combo,
	"combos":    Combo,
	"tools":     Tools,
	"tool":      Tools,
	"strings":   Strings,
	"string":    Strings,
	"patch":     Patch,
	"patches":   Patch,
}

// ParseContentType maps a collection or file base name to its content type.
func ParseContentType(name string) ContentType {
	return contentTypeAliases[strings.ToLower(strings.TrimSpace(name))]
}

// ContentTypeForFile derives the content type from a file name such as
// "events.jsonc".
func ContentTypeForFile(path string) ContentType {
	base := filepath.Base(path)
	return ParseContentType(strings.TrimSuffix(base, filepath.Ext(base)))
}
