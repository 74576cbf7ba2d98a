// Package tag assigns and recognises the fixed-width hexadecimal identifiers
// that link a master-list entry to the note line it came from.
package tag

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultWidth is the number of hex digits in an identifier.
const DefaultWidth = 8

const open = "{0x"

// ErrExhausted is returned when the counter no longer fits the tag width.
var ErrExhausted = errors.New("tag: identifier space exhausted")

// Match is a well-formed tag found in a text.
type Match struct {
	// Index is the byte offset of the opening brace.
	Index int
	// Hex is the upper-cased payload without the 0x prefix.
	Hex string
}

// ID returns the identifier in its 0xHHHHHHHH form.
func (m Match) ID() string {
	return "0x" + m.Hex
}

// Recognize returns the first well-formed tag in text: "{0x" followed by
// exactly width hex digits. Malformed candidates are skipped.
func Recognize(text string, width int) (Match, bool) {
	if width <= 0 {
		width = DefaultWidth
	}
	from := 0
	for {
		i := strings.Index(text[from:], open)
		if i < 0 {
			return Match{}, false
		}
		start := from + i
		payload := start + len(open)
		if payload+width <= len(text) && allHex(text[payload:payload+width]) &&
			(payload+width == len(text) || !isHex(text[payload+width])) {
			return Match{Index: start, Hex: strings.ToUpper(text[payload : payload+width])}, true
		}
		from = payload
	}
}

// Embed tags text with id. When text has no tag, "{<id>)" is appended after
// exactly one space; otherwise the existing payload is replaced in place.
// The closing parenthesis matches tags already present in older documents.
func Embed(text, id string, width int) string {
	if width <= 0 {
		width = DefaultWidth
	}
	if m, ok := Recognize(text, width); ok {
		end := m.Index + len(open) + width
		return text[:m.Index+1] + id + text[end:]
	}
	trimmed := strings.TrimRight(text, " ")
	if trimmed == "" {
		return "{" + id + ")"
	}
	return trimmed + " {" + id + ")"
}

// Format renders id as the brace-enclosed tag written by sync.
func Format(id string) string {
	return "{" + id + "}"
}

// Append adds " {<id>}" to the end of line, before its line terminator.
// Leading indentation is kept.
func Append(line, id string) string {
	body := strings.TrimRight(line, "\r\n")
	eol := line[len(body):]
	if eol == "" {
		eol = "\n"
	}
	return strings.TrimRight(body, " \t") + " " + Format(id) + eol
}

// Registry hands out identifiers from a monotonically increasing counter.
// It is owned by a single sync run and is not safe for concurrent use.
type Registry struct {
	next  uint64
	width int
}

// NewRegistry returns a Registry whose next identifier is next.
func NewRegistry(next uint64, width int) *Registry {
	if width <= 0 {
		width = DefaultWidth
	}
	return &Registry{next: next, width: width}
}

// Assign returns the current counter value as an identifier and advances
// the counter by one.
func (r *Registry) Assign() (string, error) {
	if r.width < 16 && r.next >= uint64(1)<<(4*uint(r.width)) {
		return "", ErrExhausted
	}
	id := fmt.Sprintf("0x%0*X", r.width, r.next)
	r.next++
	return id, nil
}

// Next returns the value the next Assign call will use.
func (r *Registry) Next() uint64 {
	return r.next
}

// Recognize is Recognize with the registry's width.
func (r *Registry) Recognize(text string) (Match, bool) {
	return Recognize(text, r.width)
}

func allHex(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isHex(s[i]) {
			return false
		}
	}
	return true
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
