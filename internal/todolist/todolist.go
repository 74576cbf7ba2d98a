// Package todolist reads and edits the master todo document: a "#TODO"
// header followed by m/d/yy date sections of tagged checklist entries.
package todolist

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/starford/todosync/internal/apperr"
	"github.com/starford/todosync/internal/models"
	"github.com/starford/todosync/internal/parser"
	"github.com/starford/todosync/internal/storage"
	"github.com/starford/todosync/internal/tag"
)

// Header is the line under which date sections are inserted.
const Header = "#TODO"

// Entry is a new master-list line.
type Entry struct {
	Text string
	ID   string
	Path string
}

// Format renders e as "<text> {<id>} (in `<path>`)".
func (e Entry) Format() string {
	return fmt.Sprintf("%s %s (in `%s`)", e.Text, tag.Format(e.ID), e.Path)
}

// List is an in-memory copy of the master document.
type List struct {
	path   string
	lines  []string
	parser *parser.Parser
	width  int
}

// Template returns the contents of a new, empty master list.
func Template() []byte {
	return []byte(Header + "\n")
}

// Load reads the master list at path.
func Load(store storage.Provider, path string, p *parser.Parser, width int) (*List, error) {
	data, err := store.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("todolist: %s: %w", path, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("todolist: %w", err)
	}
	return &List{path: path, lines: parser.SplitLines(data), parser: p, width: width}, nil
}

// Bytes returns the current document contents.
func (l *List) Bytes() []byte {
	return parser.JoinLines(l.lines)
}

// Save writes the document back through store.
func (l *List) Save(store storage.Provider) error {
	if err := store.Write(l.path, l.Bytes()); err != nil {
		return fmt.Errorf("todolist: save: %w", err)
	}
	return nil
}

// HeaderLine returns the index of the "#TODO" line.
func (l *List) HeaderLine() (int, bool) {
	for i, line := range l.lines {
		if parser.Compact(line) == Header {
			return i, true
		}
	}
	return -1, false
}

// Validate checks the structural requirements sync relies on.
func (l *List) Validate() error {
	if _, ok := l.HeaderLine(); !ok {
		return fmt.Errorf("todolist: %s has no %s header: %w", l.path, Header, apperr.ErrIntegrity)
	}
	return nil
}

// CheckedIDs returns the identifiers of checked entries in document order.
// Checked lines without a tag are ad-hoc items and are skipped.
func (l *List) CheckedIDs() []string {
	var out []string
	for _, m := range l.parser.Scan(l.lines, true) {
		if t, ok := tag.Recognize(m.Text, l.width); ok {
			out = append(out, t.ID())
		}
	}
	return out
}

// Contains reports whether any line carries id.
func (l *List) Contains(id string) bool {
	return l.find(id) >= 0
}

// Outstanding returns the unchecked entries with their effective dates.
func (l *List) Outstanding() ([]models.DatedTodo, error) {
	dated, err := parser.AssignDates(parser.ScanDateHeaders(l.lines), l.parser.Scan(l.lines, false))
	if err != nil {
		return nil, fmt.Errorf("todolist: %s: %w", l.path, err)
	}
	out := make([]models.DatedTodo, 0, len(dated))
	for _, d := range dated {
		todo := models.DatedTodo{Text: d.Text, Assigned: d.Date, Line: d.Line}
		if t, ok := tag.Recognize(d.Text, l.width); ok {
			todo.ID = t.ID()
		}
		out = append(out, todo)
	}
	return out, nil
}

// AppendToday inserts entries at the top of today's section, creating the
// section directly after the header when it does not exist yet.
func (l *List) AppendToday(entries []Entry, today time.Time) error {
	if len(entries) == 0 {
		return nil
	}
	newLines := make([]string, len(entries))
	for i, e := range entries {
		newLines[i] = e.Format() + "\n"
	}

	if at, ok := l.section(today); ok {
		l.insert(at+1, newLines)
		return nil
	}

	h, ok := l.HeaderLine()
	if !ok {
		return fmt.Errorf("todolist: %s has no %s header: %w", l.path, Header, apperr.ErrIntegrity)
	}
	block := append([]string{parser.FormatDate(today) + "\n"}, newLines...)
	block = append(block, "\n")
	l.insert(h+1, block)
	return nil
}

// CheckOff marks the entry tagged id as done. It reports whether the
// document changed.
func (l *List) CheckOff(id string) (bool, error) {
	i := l.find(id)
	if i < 0 {
		return false, fmt.Errorf("todolist: %s: %w", id, apperr.ErrNotFound)
	}
	out, ok := l.parser.CheckOff(l.lines[i])
	if !ok {
		return false, fmt.Errorf("todolist: line %d has no checklist marker", i+1)
	}
	changed := out != l.lines[i]
	l.lines[i] = out
	return changed, nil
}

func (l *List) section(day time.Time) (int, bool) {
	y, m, d := day.Date()
	for _, h := range parser.ScanDateHeaders(l.lines) {
		hy, hm, hd := h.Date.Date()
		if hy == y && hm == m && hd == d {
			return h.Line, true
		}
	}
	return -1, false
}

func (l *List) find(id string) int {
	for i, line := range l.lines {
		if t, ok := tag.Recognize(line, l.width); ok && t.ID() == id {
			return i
		}
	}
	return -1
}

func (l *List) insert(at int, block []string) {
	if at > 0 && !strings.HasSuffix(l.lines[at-1], "\n") {
		l.lines[at-1] += "\n"
	}
	out := make([]string, 0, len(l.lines)+len(block))
	out = append(out, l.lines[:at]...)
	out = append(out, block...)
	out = append(out, l.lines[at:]...)
	l.lines = out
}
