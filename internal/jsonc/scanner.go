// Package jsonc scans JSON-with-comments text into position-exact records,
// each carrying the byte range and the JSON path of the token it describes.
package jsonc

import (
	"strconv"
	"strings"
)

const (
	DefaultRootName    = "root"
	DefaultPathDivider = "."
)

// Options controls a scan. The zero value scans with the default root name and
// divider and captures values.
type Options struct {
	RootName    string
	PathDivider string
	// OmitValues leaves Value empty on every record; only offsets and paths
	// are produced.
	OmitValues bool
	// SearchPath restricts the output to records on the given path and stops
	// the scan once that path is complete.
	SearchPath string
}

func (o Options) withDefaults() Options {
	if o.RootName == "" {
		o.RootName = DefaultRootName
	}
	if o.PathDivider == "" {
		o.PathDivider = DefaultPathDivider
	}
	return o
}

// Result is the output of one scan. When ErrorFound is set the records are
// the partial output up to the failure and must not be trusted.
type Result struct {
	Properties []ParsedProperty
	Offset     int
	ErrorFound bool
	Err        error
	// Found is set in search mode when the target path was completed.
	Found bool
}

// Scan walks text once, left to right, and returns every comment, scalar,
// array value and bracket it meets. The first malformed token stops the scan.
func Scan(text string, opts Options) Result {
	c := &cursor{text: text, opts: opts.withDefaults()}
	c.scanDocument()

	res := Result{Properties: c.out, Offset: c.pos, Found: c.found}
	if c.err != nil {
		res.ErrorFound = true
		res.Err = c.err
	}
	return res
}

// cursor is the scan state threaded through every scan function.
type cursor struct {
	text string
	pos  int
	opts Options
	out  []ParsedProperty
	err  *ScanError

	found      bool
	targetOpen bool
}

func (c *cursor) peek() (byte, bool) {
	if c.pos >= len(c.text) {
		return 0, false
	}
	return c.text[c.pos], true
}

func (c *cursor) halted() bool {
	return c.err != nil || c.found
}

func (c *cursor) capture(v string) string {
	if c.opts.OmitValues {
		return ""
	}
	return v
}

func (c *cursor) childPath(parent, name string) string {
	return parent + c.opts.PathDivider + name
}

func indexPath(parent string, index int) string {
	return parent + "[" + strconv.Itoa(index) + "]"
}

func (c *cursor) fail(offset int, err error) {
	if c.err != nil {
		return
	}
	line, col := LineColumn(c.text, offset)
	c.err = &ScanError{Offset: offset, Line: line, Column: col, Err: err}
	c.out = append(c.out, ParsedProperty{
		StartOffset: offset,
		EndOffset:   offset,
		Value:       err.Error(),
		Kind:        KindError,
		ValueType:   TypeNotProperty,
	})
}

// emit appends a record and returns its index, or -1 when search mode
// discarded it.
func (c *cursor) emit(p ParsedProperty) int {
	target := c.opts.SearchPath
	if target == "" {
		c.out = append(c.out, p)
		return len(c.out) - 1
	}
	if !onPath(p.Path, target, c.opts.PathDivider) {
		return -1
	}
	c.out = append(c.out, p)
	if p.Path == target {
		switch p.Kind {
		case KindObject, KindArray:
			c.targetOpen = true
		case KindProperty, KindArrayValue:
			c.found = !c.targetOpen
		case KindEndOfObject, KindEndOfArray:
			c.found = c.targetOpen
		}
	}
	return len(c.out) - 1
}

func onPath(path, target, divider string) bool {
	if !strings.HasPrefix(path, target) {
		return false
	}
	rest := path[len(target):]
	return rest == "" || strings.HasPrefix(rest, divider) || rest[0] == '['
}

// skipWhitespace skips whitespace and commas, which only separate tokens.
func (c *cursor) skipWhitespace() {
	for c.pos < len(c.text) {
		ch := c.text[c.pos]
		if !isWhitespace(ch) && ch != ',' {
			return
		}
		c.pos++
	}
}

// skipTrivia skips whitespace and emits any comments met on the way.
func (c *cursor) skipTrivia(path string) {
	for !c.halted() {
		ch, ok := c.peek()
		switch {
		case !ok:
			return
		case isWhitespace(ch):
			c.pos++
		case ch == '/':
			c.scanComment(path)
		default:
			return
		}
	}
}

func (c *cursor) scanDocument() {
	root := c.opts.RootName
	for !c.halted() {
		c.skipWhitespace()
		ch, ok := c.peek()
		if !ok {
			return
		}
		switch ch {
		case '/':
			c.scanComment(root)
		case '{':
			c.scanObject(root, "")
		case '[':
			c.scanArray(root, "")
		default:
			c.fail(c.pos, ErrUnexpectedCharacter)
		}
	}
}

func (c *cursor) scanComment(path string) {
	start := c.pos
	c.pos++
	ch, ok := c.peek()
	if !ok {
		c.fail(start, ErrUnexpectedEnd)
		return
	}
	switch ch {
	case '/':
		c.pos++
		valueStart := c.pos
		for c.pos < len(c.text) && c.text[c.pos] != '\n' && c.text[c.pos] != '\r' {
			c.pos++
		}
		c.emit(ParsedProperty{
			StartOffset: start,
			EndOffset:   c.pos - 1,
			Path:        path,
			Value:       c.capture(c.text[valueStart:c.pos]),
			Kind:        KindComment,
			ValueType:   TypeNotProperty,
		})
	case '*':
		end := strings.Index(c.text[start+2:], "*/")
		if end < 0 {
			c.pos = len(c.text)
			c.fail(start, ErrUnterminatedComment)
			return
		}
		closeAt := start + 2 + end
		c.pos = closeAt + 2
		c.emit(ParsedProperty{
			StartOffset: start,
			EndOffset:   closeAt + 1,
			Path:        path,
			Value:       c.capture(c.text[start+2 : closeAt]),
			Kind:        KindComment,
			ValueType:   TypeNotProperty,
		})
	default:
		c.fail(start, ErrUnexpectedCharacter)
	}
}

// scanString consumes a quoted string and returns its content without the
// quotes and the offset of the closing quote. Escapes are validated but not
// decoded.
func (c *cursor) scanString() (string, int, bool) {
	start := c.pos
	c.pos++
	for {
		ch, ok := c.peek()
		if !ok {
			c.fail(start, ErrUnterminatedString)
			return "", 0, false
		}
		switch {
		case ch == '"':
			end := c.pos
			c.pos++
			return c.text[start+1 : end], end, true
		case ch == '\\':
			c.pos++
			esc, ok := c.peek()
			if !ok {
				c.fail(start, ErrUnterminatedString)
				return "", 0, false
			}
			switch esc {
			case '"', '\\', '/', 'b', 'f', 'n', 'r', 't':
				c.pos++
			case 'u':
				if c.pos+4 >= len(c.text) {
					c.pos = len(c.text)
					c.fail(start, ErrUnterminatedString)
					return "", 0, false
				}
				c.pos += 5
			default:
				c.fail(c.pos, ErrUnexpectedCharacter)
				return "", 0, false
			}
		case ch < 0x20:
			c.fail(c.pos, ErrControlCharacter)
			return "", 0, false
		default:
			c.pos++
		}
	}
}

// scanBare consumes an unquoted value up to the next terminator.
func (c *cursor) scanBare() (string, int, bool) {
	start := c.pos
	for c.pos < len(c.text) && !isValueTerminator(c.text[c.pos]) {
		c.pos++
	}
	raw := strings.TrimSpace(c.text[start:c.pos])
	if raw == "" {
		c.fail(start, ErrEmptyValue)
		return "", 0, false
	}
	return raw, c.pos - 1, true
}

func (c *cursor) closeContainer(open int, path, name string, kind Kind) {
	end := c.pos
	if open >= 0 {
		c.out[open].EndOffset = end
	}
	c.pos++
	c.emit(ParsedProperty{
		StartOffset: end,
		EndOffset:   end,
		Path:        path,
		Name:        name,
		Kind:        kind,
		ValueType:   TypeNotProperty,
	})
}

func (c *cursor) scanObject(path, name string) {
	open := c.emit(ParsedProperty{
		StartOffset: c.pos,
		EndOffset:   Unset,
		Path:        path,
		Name:        name,
		Kind:        KindObject,
		ValueType:   TypeNotProperty,
	})
	c.pos++
	for !c.halted() {
		c.skipWhitespace()
		ch, ok := c.peek()
		if !ok {
			c.fail(c.pos, ErrUnexpectedEnd)
			return
		}
		switch ch {
		case '/':
			c.scanComment(path)
		case '"':
			c.scanMember(path)
		case '}':
			c.closeContainer(open, path, name, KindEndOfObject)
			return
		default:
			c.fail(c.pos, ErrUnexpectedCharacter)
			return
		}
	}
}

func (c *cursor) scanArray(path, name string) {
	open := c.emit(ParsedProperty{
		StartOffset: c.pos,
		EndOffset:   Unset,
		Path:        path,
		Name:        name,
		Kind:        KindArray,
		ValueType:   TypeNotProperty,
	})
	c.pos++
	index := 0
	for !c.halted() {
		c.skipWhitespace()
		ch, ok := c.peek()
		if !ok {
			c.fail(c.pos, ErrUnexpectedEnd)
			return
		}
		elem := indexPath(path, index)
		switch {
		case ch == '/':
			c.scanComment(path)
		case ch == ']':
			c.closeContainer(open, path, name, KindEndOfArray)
			return
		case ch == '{':
			c.scanObject(elem, "")
			index++
		case ch == '[':
			c.scanArray(elem, "")
			index++
		case ch == '"':
			c.scanArrayString(elem)
			index++
		case isKeywordStart(ch):
			start := c.pos
			raw, end, ok := c.scanBare()
			if !ok {
				return
			}
			c.emit(ParsedProperty{
				StartOffset: start,
				EndOffset:   end,
				Path:        elem,
				Value:       c.capture(raw),
				Kind:        KindArrayValue,
				ValueType:   Classify(raw),
			})
			index++
		default:
			c.fail(c.pos, ErrUnexpectedCharacter)
			return
		}
	}
}

// scanArrayString handles a quoted string met inside an array: either a plain
// array value or a tolerated name:value pair.
func (c *cursor) scanArrayString(elem string) {
	start := c.pos
	s, end, ok := c.scanString()
	if !ok {
		return
	}
	for c.pos < len(c.text) && isWhitespace(c.text[c.pos]) {
		c.pos++
	}
	ch, ok := c.peek()
	if !ok {
		c.fail(c.pos, ErrUnexpectedEnd)
		return
	}
	switch ch {
	case ':':
		c.pos++
		c.scanValue(start, c.childPath(elem, s), s)
	case ',', ']', '/':
		c.emit(ParsedProperty{
			StartOffset: start,
			EndOffset:   end,
			Path:        elem,
			Value:       c.capture(s),
			Kind:        KindArrayValue,
			ValueType:   TypeString,
		})
	default:
		c.fail(c.pos, ErrUnexpectedCharacter)
	}
}

func (c *cursor) scanMember(objPath string) {
	nameStart := c.pos
	name, nameEnd, ok := c.scanString()
	if !ok {
		return
	}
	c.skipTrivia(objPath)
	if c.halted() {
		return
	}
	ch, ok := c.peek()
	if !ok {
		c.fail(c.pos, ErrUnexpectedEnd)
		return
	}
	switch ch {
	case ':':
		c.pos++
	case ',', ']':
		c.emit(ParsedProperty{
			StartOffset: nameStart,
			EndOffset:   nameEnd,
			Path:        objPath,
			Value:       c.capture(name),
			Kind:        KindArrayValue,
			ValueType:   TypeString,
		})
		return
	default:
		c.fail(c.pos, ErrUnexpectedCharacter)
		return
	}
	c.scanValue(nameStart, c.childPath(objPath, name), name)
}

// scanValue scans the value that follows a ':' divider. start is the offset
// of the property name.
func (c *cursor) scanValue(start int, path, name string) {
	c.skipTrivia(path)
	if c.halted() {
		return
	}
	ch, ok := c.peek()
	if !ok {
		c.fail(c.pos, ErrUnexpectedEnd)
		return
	}
	switch {
	case ch == '{':
		c.scanObject(path, name)
	case ch == '[':
		c.scanArray(path, name)
	case ch == '"':
		valueStart := c.pos
		s, end, ok := c.scanString()
		if !ok {
			return
		}
		c.emit(ParsedProperty{
			StartOffset: start,
			EndOffset:   end,
			Path:        path,
			Name:        name,
			Value:       c.capture(s),
			Kind:        KindProperty,
			ValueType:   Classify(c.text[valueStart : end+1]),
		})
	case isKeywordStart(ch):
		raw, end, ok := c.scanBare()
		if !ok {
			return
		}
		c.emit(ParsedProperty{
			StartOffset: start,
			EndOffset:   end,
			Path:        path,
			Name:        name,
			Value:       c.capture(raw),
			Kind:        KindProperty,
			ValueType:   Classify(raw),
		})
	default:
		c.fail(c.pos, ErrUnexpectedCharacter)
	}
}
