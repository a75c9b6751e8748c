package project

import (
	"regexp"
	"strings"
)

var (
	macroPattern   = regexp.MustCompile(`^%[^%\s]+%$`)
	macroToken     = regexp.MustCompile(`%([A-Za-z_][A-Za-z0-9_.\-]*)%`)
	dottedToken    = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_\-]*)\.([A-Za-z0-9_\-.]+)$`)
	stringRefToken = regexp.MustCompile(`\{\{\s*strings\.([^{}\s]+)\s*\}\}`)
)

// IsMacro reports whether v is exactly one %name% token.
func IsMacro(v string) bool {
	return macroPattern.MatchString(v)
}

// MacroKey normalises a patch id to its %name% form.
func MacroKey(id string) string {
	return "%" + strings.Trim(strings.TrimSpace(id), "%") + "%"
}

// MacroNames returns the %name% tokens found anywhere in v, delimiters
// included.
func MacroNames(v string) []string {
	if !strings.Contains(v, "%") {
		return nil
	}
	return macroToken.FindAllString(v, -1)
}

// IsScriptPlaceholder reports whether v is a #_ expression _# script value.
func IsScriptPlaceholder(v string) bool {
	v = strings.TrimSpace(v)
	return len(v) >= 4 && strings.HasPrefix(v, "#_") && strings.HasSuffix(v, "_#")
}

// TableField is one {table.field} reference.
type TableField struct {
	Table string
	Field string
}

func (f TableField) String() string {
	return "{" + f.Table + "." + f.Field + "}"
}

// TableFieldRefs extracts every innermost {table.field} token of v. Braces
// may nest to any depth; only a brace pair with no brace inside it yields a
// token, and unbalanced closing braces are ignored.
func TableFieldRefs(v string) []TableField {
	if !strings.Contains(v, "{") {
		return nil
	}
	var (
		out   []TableField
		opens []int
	)
	for i := 0; i < len(v); i++ {
		switch v[i] {
		case '{':
			opens = append(opens, i)
		case '}':
			if len(opens) == 0 {
				continue
			}
			start := opens[len(opens)-1]
			opens = opens[:len(opens)-1]
			inner := v[start+1 : i]
			if strings.ContainsAny(inner, "{}") {
				continue
			}
			if m := dottedToken.FindStringSubmatch(strings.TrimSpace(inner)); m != nil {
				out = append(out, TableField{Table: m[1], Field: m[2]})
			}
		}
	}
	return out
}

// StringRefs returns the ids of every {{strings.id}} reference in v.
func StringRefs(v string) []string {
	if !strings.Contains(v, "strings.") {
		return nil
	}
	var out []string
	for _, m := range stringRefToken.FindAllStringSubmatch(v, -1) {
		out = append(out, m[1])
	}
	return out
}

// IsPlaceholder reports whether v stands for a value computed at run time:
// a macro, a script expression or a single table-field reference.
func IsPlaceholder(v string) bool {
	v = strings.TrimSpace(v)
	if IsMacro(v) || IsScriptPlaceholder(v) {
		return true
	}
	refs := TableFieldRefs(v)
	return len(refs) == 1 && refs[0].String() == v
}
