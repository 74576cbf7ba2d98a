// Package parser recognises checklist markers and date headers in
// line-oriented plain-text documents.
package parser

import (
	"fmt"
	"strings"
	"time"

	"github.com/starford/todosync/internal/apperr"
)

// DateLayout is the m/d/yy layout used for master-list section headers.
const DateLayout = "1/2/06"

// Marker is a family of checklist markers. A line is rewritten from
// Unchecked to Checked of the same family.
type Marker struct {
	Unchecked string `yaml:"unchecked"`
	Checked   string `yaml:"checked"`
}

// DefaultMarkers are used when no markers are configured.
var DefaultMarkers = []Marker{{Unchecked: "* [ ]", Checked: "* [x]"}}

// Match is a checklist line found by Scan. Text starts at the marker and is
// whitespace-trimmed.
type Match struct {
	Text   string
	Line   int
	Family int
}

// DateHeader is a line whose stripped content parses as m/d/yy.
type DateHeader struct {
	Date time.Time
	Line int
}

// Dated is a Match together with the date of its nearest preceding header.
type Dated struct {
	Match
	Date time.Time
}

// Parser scans documents for a configured set of marker families.
type Parser struct {
	markers []Marker
}

// New returns a Parser for markers, falling back to DefaultMarkers.
func New(markers []Marker) *Parser {
	if len(markers) == 0 {
		markers = DefaultMarkers
	}
	return &Parser{markers: markers}
}

// Find returns the byte offset and family index of the first marker family
// of the requested kind present in line.
func (p *Parser) Find(line string, checked bool) (int, int, bool) {
	for fam, m := range p.markers {
		marker := m.Unchecked
		if checked {
			marker = m.Checked
		}
		if marker == "" {
			continue
		}
		if idx := strings.Index(line, marker); idx >= 0 {
			return idx, fam, true
		}
	}
	return -1, -1, false
}

// Scan returns, in document order, every line carrying a marker of the
// requested kind.
func (p *Parser) Scan(lines []string, checked bool) []Match {
	var out []Match
	for i, line := range lines {
		idx, fam, ok := p.Find(line, checked)
		if !ok {
			continue
		}
		out = append(out, Match{
			Text:   strings.TrimSpace(line[idx:]),
			Line:   i,
			Family: fam,
		})
	}
	return out
}

// CheckOff rewrites the first unchecked marker in line to its checked form.
// A line that is already checked is returned unchanged. ok is false when the
// line carries no marker at all.
func (p *Parser) CheckOff(line string) (string, bool) {
	if idx, fam, found := p.Find(line, false); found {
		m := p.markers[fam]
		return line[:idx] + m.Checked + line[idx+len(m.Unchecked):], true
	}
	if _, _, found := p.Find(line, true); found {
		return line, true
	}
	return line, false
}

// Compact removes every whitespace character from line.
func Compact(line string) string {
	return strings.Join(strings.Fields(line), "")
}

// ParseDate parses line as a date header.
func ParseDate(line string) (time.Time, bool) {
	s := Compact(line)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(DateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FormatDate renders t as a section header (no leading zeros).
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ScanDateHeaders returns every date header in document order.
func ScanDateHeaders(lines []string) []DateHeader {
	var out []DateHeader
	for i, line := range lines {
		if d, ok := ParseDate(line); ok {
			out = append(out, DateHeader{Date: d, Line: i})
		}
	}
	return out
}

// AssignDates gives every match the date of its nearest preceding header.
// Both inputs must be in document order. A match with no preceding header is
// an integrity violation.
func AssignDates(headers []DateHeader, items []Match) ([]Dated, error) {
	out := make([]Dated, 0, len(items))
	h := -1
	for _, it := range items {
		for h+1 < len(headers) && headers[h+1].Line < it.Line {
			h++
		}
		if h < 0 {
			return nil, fmt.Errorf("parser: todo on line %d has no date header: %w", it.Line+1, apperr.ErrIntegrity)
		}
		out = append(out, Dated{Match: it, Date: headers[h].Date})
	}
	return out, nil
}

// SplitLines splits data into lines, keeping line terminators.
func SplitLines(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	lines := strings.SplitAfter(string(data), "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// JoinLines is the inverse of SplitLines.
func JoinLines(lines []string) []byte {
	return []byte(strings.Join(lines, ""))
}
