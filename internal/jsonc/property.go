package jsonc

// Kind identifies what a scanned record represents in the source text.
type Kind int

const (
	KindComment Kind = iota
	KindProperty
	KindArrayValue
	KindObject
	KindArray
	KindEndOfObject
	KindEndOfArray
	KindError
)

var kindNames = map[Kind]string{
	KindComment:     "Comment",
	KindProperty:    "Property",
	KindArrayValue:  "ArrayValue",
	KindObject:      "Object",
	KindArray:       "Array",
	KindEndOfObject: "EndOfObject",
	KindEndOfArray:  "EndOfArray",
	KindError:       "Error",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// ValueType is the lexical type of a scalar value.
type ValueType int

const (
	TypeUnknown ValueType = iota
	TypeNotProperty
	TypeString
	TypeNumber
	TypeBoolean
	TypeNull
)

var valueTypeNames = map[ValueType]string{
	TypeUnknown:     "Unknown",
	TypeNotProperty: "NotProperty",
	TypeString:      "String",
	TypeNumber:      "Number",
	TypeBoolean:     "Boolean",
	TypeNull:        "Null",
}

func (t ValueType) String() string {
	if name, ok := valueTypeNames[t]; ok {
		return name
	}
	return "Unknown"
}

// Unset marks an offset that was never assigned.
const Unset = -1

// ParsedProperty is one record produced by the scanner. Offsets are inclusive
// byte offsets into the scanned text.
//
// Property records span from the opening quote of the name through the last
// byte of the value. Object and Array records span from the opening bracket to
// the matching closing bracket once the container is closed.
type ParsedProperty struct {
	StartOffset int
	EndOffset   int
	Path        string
	Name        string
	Value       string
	Kind        Kind
	ValueType   ValueType
}

// Length returns the number of bytes covered by the record, or 0 when either
// offset is unset.
func (p ParsedProperty) Length() int {
	if p.StartOffset == Unset || p.EndOffset == Unset {
		return 0
	}
	return p.EndOffset - p.StartOffset + 1
}

// Span returns the source slice covered by the record.
func (p ParsedProperty) Span(text string) string {
	if p.Length() == 0 || p.EndOffset >= len(text) {
		return ""
	}
	return text[p.StartOffset : p.EndOffset+1]
}
