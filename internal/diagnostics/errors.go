package diagnostics

import (
	"errors"
	"strings"
)

// FormatErrorChain renders the message of err and of each wrapped cause, one
// per line. A wrapper's line omits the text of the cause it wraps.
func FormatErrorChain(err error) string {
	if err == nil {
		return ""
	}
	var msgs []string
	for e := err; e != nil; e = errors.Unwrap(e) {
		msgs = append(msgs, e.Error())
	}

	lines := make([]string, 0, len(msgs))
	for i, msg := range msgs {
		if i+1 < len(msgs) && strings.HasSuffix(msg, msgs[i+1]) {
			msg = strings.TrimRight(strings.TrimSuffix(msg, msgs[i+1]), ": ")
		}
		if msg != "" {
			lines = append(lines, msg)
		}
	}
	return strings.Join(lines, "\n")
}
