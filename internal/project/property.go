package project

import (
	"strings"

	"github.com/xkilldash9x/layerlint/internal/jsonc"
)

// ItemType distinguishes scalar properties from container markers.
type ItemType int

const (
	ItemProperty ItemType = iota
	ItemObject
	ItemArray
)

func (t ItemType) String() string {
	switch t {
	case ItemObject:
		return "Object"
	case ItemArray:
		return "Array"
	default:
		return "Property"
	}
}

// JsonProperty is one node of the project graph: a scalar, or the opening or
// closing marker of an object or array.
type JsonProperty struct {
	LineID           int
	FullFileName     string
	JsonPath         string
	JsonDepth        int
	Name             string
	Value            string
	FileType         ContentType
	Version          string
	ItemType         ItemType
	Parent           string
	Shared           bool
	SourceLineNumber int

	divider      string
	parentPath   string
	parentCached bool
	patched      *string
}

// ParentPath is JsonPath up to its last divider. It is computed on first use
// and cached; Graph.Seal warms it for every property.
func (p *JsonProperty) ParentPath() string {
	if p.parentCached {
		return p.parentPath
	}
	divider := p.divider
	if divider == "" {
		divider = jsonc.DefaultPathDivider
	}
	if i := strings.LastIndex(p.JsonPath, divider); i >= 0 {
		p.parentPath = p.JsonPath[:i]
	}
	p.parentCached = true
	return p.parentPath
}

// PatchedValue returns the value after macro substitution, or Value when the
// patch pass left it untouched.
func (p *JsonProperty) PatchedValue() string {
	if p.patched != nil {
		return *p.patched
	}
	return p.Value
}

// SetPatchedValue stores the substituted value; Value is never modified.
func (p *JsonProperty) SetPatchedValue(v string) {
	p.patched = &v
}

// IsOpening reports whether p opens an object or array.
func (p *JsonProperty) IsOpening() bool {
	return p.ItemType != ItemProperty && (p.Value == "{" || p.Value == "[")
}

// IsClosing reports whether p closes an object or array.
func (p *JsonProperty) IsClosing() bool {
	return p.ItemType != ItemProperty && (p.Value == "}" || p.Value == "]")
}
