package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/xkilldash9x/layerlint/internal/jsonc"
)

// NodeKind is the JSON kind of a tree node.
type NodeKind int

const (
	NodeObject NodeKind = iota
	NodeArray
	NodeString
	NodeNumber
	NodeBool
	NodeNull
)

// Node is one element of an ordered document tree. Object members keep their
// source order, duplicates included.
type Node struct {
	Kind     NodeKind
	Name     string
	Value    string
	Line     int
	EndLine  int
	Children []*Node
}

// ErrEmptyDocument is returned for a file holding nothing but whitespace and
// comments.
var ErrEmptyDocument = errors.New("empty document")

// ParseTree builds the document tree of a JSONC text. Comments and trailing
// commas are blanked first so line numbers stay those of the source.
func ParseTree(text string) (*Node, error) {
	clean := jsonc.StripComments(text)
	p := &treeParser{
		dec:   json.NewDecoder(strings.NewReader(clean)),
		lines: lineStarts(clean),
	}
	p.dec.UseNumber()

	tok, err := p.dec.Token()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyDocument
	}
	if err != nil {
		return nil, p.wrap(err)
	}
	root, err := p.node("", tok, p.line())
	if err != nil {
		return nil, err
	}
	if _, err := p.dec.Token(); !errors.Is(err, io.EOF) {
		if err != nil {
			return nil, p.wrap(err)
		}
		return nil, fmt.Errorf("line %d: unexpected content after the document", p.line())
	}
	return root, nil
}

type treeParser struct {
	dec   *json.Decoder
	lines []int
}

func lineStarts(text string) []int {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// line returns the 1-based line of the last byte of the token just read.
func (p *treeParser) line() int {
	offset := int(p.dec.InputOffset()) - 1
	if offset < 0 {
		offset = 0
	}
	return sort.Search(len(p.lines), func(i int) bool { return p.lines[i] > offset })
}

func (p *treeParser) wrap(err error) error {
	return fmt.Errorf("line %d: %w", p.line(), err)
}

func (p *treeParser) node(name string, tok json.Token, line int) (*Node, error) {
	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			return p.object(name, line)
		case '[':
			return p.array(name, line)
		default:
			return nil, fmt.Errorf("line %d: unexpected %q", line, rune(v))
		}
	case string:
		return &Node{Kind: NodeString, Name: name, Value: v, Line: line}, nil
	case json.Number:
		return &Node{Kind: NodeNumber, Name: name, Value: v.String(), Line: line}, nil
	case bool:
		return &Node{Kind: NodeBool, Name: name, Value: strconv.FormatBool(v), Line: line}, nil
	case nil:
		return &Node{Kind: NodeNull, Name: name, Value: "null", Line: line}, nil
	}
	return nil, fmt.Errorf("line %d: unexpected token %v", line, tok)
}

func (p *treeParser) object(name string, line int) (*Node, error) {
	n := &Node{Kind: NodeObject, Name: name, Line: line}
	for p.dec.More() {
		keyTok, err := p.dec.Token()
		if err != nil {
			return nil, p.wrap(err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("line %d: expected a property name", p.line())
		}
		keyLine := p.line()
		valTok, err := p.dec.Token()
		if err != nil {
			return nil, p.wrap(err)
		}
		child, err := p.node(key, valTok, keyLine)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, child)
	}
	if _, err := p.dec.Token(); err != nil {
		return nil, p.wrap(err)
	}
	n.EndLine = p.line()
	return n, nil
}

func (p *treeParser) array(name string, line int) (*Node, error) {
	n := &Node{Kind: NodeArray, Name: name, Line: line}
	for p.dec.More() {
		tok, err := p.dec.Token()
		if err != nil {
			return nil, p.wrap(err)
		}
		child, err := p.node("", tok, p.line())
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, child)
	}
	if _, err := p.dec.Token(); err != nil {
		return nil, p.wrap(err)
	}
	n.EndLine = p.line()
	return n, nil
}
