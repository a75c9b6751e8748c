package jsonc

// Classify returns the lexical type of a raw token. No numeric validation is
// done: "1-2-3" is a Number.
func Classify(text string) ValueType {
	switch text {
	case "":
		return TypeUnknown
	case "null":
		return TypeNull
	case "true", "false":
		return TypeBoolean
	}
	if len(text) >= 2 && text[0] == '"' && text[len(text)-1] == '"' {
		return TypeString
	}
	for i := 0; i < len(text); i++ {
		c := text[i]
		if (c < '0' || c > '9') && c != '.' && c != '-' {
			return TypeUnknown
		}
	}
	return TypeNumber
}

func isKeywordStart(c byte) bool {
	switch c {
	case '-', '.', 't', 'r', 'u', 'e', 'f', 'a', 'l', 's', 'n':
		return true
	}
	return c >= '0' && c <= '9'
}

func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

// isValueTerminator reports whether c ends a bare (unquoted) value.
func isValueTerminator(c byte) bool {
	switch c {
	case ',', ']', '}', ' ', '\t', '\r', '\n', '/':
		return true
	}
	return false
}
