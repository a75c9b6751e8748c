package jsonc

import (
	"bytes"
)

// Find returns the record describing path in text: the property or array
// value for scalars, the opening record (with its closing offset) for objects
// and arrays. The scan stops as soon as path is complete.
func Find(text, path string, opts Options) (ParsedProperty, bool, error) {
	opts.SearchPath = path
	res := Scan(text, opts)
	if !res.Found {
		return ParsedProperty{}, false, res.Err
	}
	for _, p := range res.Properties {
		if p.Path != path {
			continue
		}
		switch p.Kind {
		case KindProperty, KindArrayValue, KindObject, KindArray:
			return p, true, nil
		}
	}
	return ParsedProperty{}, false, nil
}

// StripComments returns text with every comment and every trailing comma
// blanked out with spaces. Line breaks and byte offsets are preserved, so
// positions reported by a strict JSON decoder on the result map back to the
// original text. An unterminated block comment is left in place.
func StripComments(text string) string {
	b := []byte(text)
	inString := false
	pendingComma := -1
	for i := 0; i < len(b); i++ {
		ch := b[i]
		if inString {
			switch ch {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
			pendingComma = -1
		case '/':
			if i+1 >= len(b) {
				pendingComma = -1
				continue
			}
			switch b[i+1] {
			case '/':
				for i < len(b) && b[i] != '\n' && b[i] != '\r' {
					b[i] = ' '
					i++
				}
				i--
			case '*':
				end := bytes.Index(b[i+2:], []byte("*/"))
				if end < 0 {
					return string(b)
				}
				stop := i + 2 + end + 2
				for j := i; j < stop; j++ {
					if b[j] != '\n' && b[j] != '\r' {
						b[j] = ' '
					}
				}
				i = stop - 1
			default:
				pendingComma = -1
			}
		case ',':
			pendingComma = i
		case ']', '}':
			if pendingComma >= 0 {
				b[pendingComma] = ' '
			}
			pendingComma = -1
		case ' ', '\t', '\r', '\n':
		default:
			pendingComma = -1
		}
	}
	return string(b)
}
