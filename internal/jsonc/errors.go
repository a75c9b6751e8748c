package jsonc

import (
	"errors"
	"fmt"
)

var (
	ErrUnterminatedString  = errors.New("unterminated string")
	ErrUnterminatedComment = errors.New("unterminated comment")
	ErrUnexpectedCharacter = errors.New("unexpected character")
	ErrUnexpectedEnd       = errors.New("unexpected end of input")
	ErrControlCharacter    = errors.New("control character in string")
	ErrEmptyValue          = errors.New("missing value")
)

// ScanError reports where the scan stopped.
type ScanError struct {
	Offset int
	Line   int
	Column int
	Err    error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("line %d, column %d (offset %d): %v", e.Line, e.Column, e.Offset, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// LineColumn converts a byte offset into a 1-based line and column.
func LineColumn(text string, offset int) (line, column int) {
	if offset > len(text) {
		offset = len(text)
	}
	line, column = 1, 1
	for i := 0; i < offset; i++ {
		if text[i] == '\n' {
			line++
			column = 1
			continue
		}
		column++
	}
	return line, column
}
