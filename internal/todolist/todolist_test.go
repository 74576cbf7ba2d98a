package todolist

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/starford/todosync/internal/apperr"
	"github.com/starford/todosync/internal/parser"
	"github.com/starford/todosync/internal/storage"
	"github.com/starford/todosync/internal/tag"
	"github.com/starford/todosync/internal/testutil"
)

func load(t *testing.T, content string) (*List, *storage.FS, string) {
	t.Helper()
	root, store := testutil.TestWorkspace(t)
	testutil.WriteFile(t, root, "todo.md", content)
	l, err := Load(store, "todo.md", parser.New(nil), tag.DefaultWidth)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return l, store, root
}

func TestLoad_Missing(t *testing.T) {
	_, store := testutil.TestWorkspace(t)
	_, err := Load(store, "todo.md", parser.New(nil), tag.DefaultWidth)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestValidate_MissingHeader(t *testing.T) {
	l, _, _ := load(t, "1/2/24\n* [ ] a {0x00000000}\n")
	if err := l.Validate(); !errors.Is(err, apperr.ErrIntegrity) {
		t.Fatalf("err = %v, want ErrIntegrity", err)
	}
}

func TestAppendToday_CreatesSection(t *testing.T) {
	l, store, root := load(t, "# My list\n#TODO\n1/1/24\n* [ ] old {0x00000000} (in `n.md`)\n")
	today := time.Date(2024, 1, 2, 9, 0, 0, 0, time.Local)

	err := l.AppendToday([]Entry{{Text: "* [ ] new, 30 m", ID: "0x00000001", Path: "notes/a.md"}}, today)
	if err != nil {
		t.Fatalf("AppendToday: %v", err)
	}
	if err := l.Save(store); err != nil {
		t.Fatalf("Save: %v", err)
	}

	want := "# My list\n#TODO\n1/2/24\n* [ ] new, 30 m {0x00000001} (in `notes/a.md`)\n\n1/1/24\n* [ ] old {0x00000000} (in `n.md`)\n"
	if got := testutil.ReadFile(t, root, "todo.md"); got != want {
		t.Errorf("document =\n%s\nwant\n%s", got, want)
	}
}

func TestAppendToday_ExistingSection(t *testing.T) {
	l, _, _ := load(t, "#TODO\n1/2/24\n* [ ] first {0x00000000} (in `a.md`)\n")
	today := time.Date(2024, 1, 2, 18, 0, 0, 0, time.Local)

	if err := l.AppendToday([]Entry{{Text: "* [ ] second", ID: "0x00000001", Path: "b.md"}}, today); err != nil {
		t.Fatalf("AppendToday: %v", err)
	}
	got := string(l.Bytes())
	want := "#TODO\n1/2/24\n* [ ] second {0x00000001} (in `b.md`)\n* [ ] first {0x00000000} (in `a.md`)\n"
	if got != want {
		t.Errorf("document = %q, want %q", got, want)
	}
}

func TestAppendToday_HeaderWithoutNewline(t *testing.T) {
	l, _, _ := load(t, "#TODO")
	today := time.Date(2024, 1, 2, 0, 0, 0, 0, time.Local)
	if err := l.AppendToday([]Entry{{Text: "* [ ] x", ID: "0x00000001", Path: "a.md"}}, today); err != nil {
		t.Fatalf("AppendToday: %v", err)
	}
	if got := string(l.Bytes()); !strings.HasPrefix(got, "#TODO\n1/2/24\n") {
		t.Errorf("document = %q", got)
	}
}

func TestAppendToday_NoEntriesNoChange(t *testing.T) {
	content := "#TODO\n"
	l, _, _ := load(t, content)
	if err := l.AppendToday(nil, time.Now()); err != nil {
		t.Fatalf("AppendToday: %v", err)
	}
	if string(l.Bytes()) != content {
		t.Errorf("document changed: %q", l.Bytes())
	}
}

func TestCheckedIDs(t *testing.T) {
	l, _, _ := load(t, "#TODO\n1/2/24\n* [x] a {0x00000001}\n* [ ] b {0x00000002}\n* [x] adhoc\n* [x] c {0x0000000c}\n")
	ids := l.CheckedIDs()
	if len(ids) != 2 || ids[0] != "0x00000001" || ids[1] != "0x0000000C" {
		t.Errorf("ids = %v", ids)
	}
}

func TestOutstanding(t *testing.T) {
	l, _, _ := load(t, "#TODO\n1/3/24\n* [ ] a, 10 m {0x00000002}\n\n1/1/24\n* [ ] b {0x00000001}\n* [x] c {0x00000000}\n")
	todos, err := l.Outstanding()
	if err != nil {
		t.Fatalf("Outstanding: %v", err)
	}
	if len(todos) != 2 {
		t.Fatalf("len = %d, want 2", len(todos))
	}
	if todos[0].ID != "0x00000002" || todos[0].Assigned.Day() != 3 {
		t.Errorf("todos[0] = %+v", todos[0])
	}
	if todos[1].ID != "0x00000001" || todos[1].Assigned.Day() != 1 {
		t.Errorf("todos[1] = %+v", todos[1])
	}
}

func TestOutstanding_RogueItem(t *testing.T) {
	l, _, _ := load(t, "#TODO\n* [ ] rogue\n1/1/24\n")
	if _, err := l.Outstanding(); !errors.Is(err, apperr.ErrIntegrity) {
		t.Fatalf("err = %v, want ErrIntegrity", err)
	}
}

func TestCheckOff(t *testing.T) {
	l, _, _ := load(t, "#TODO\n1/1/24\n* [ ] a {0x00000001} (in `a.md`)\n")
	changed, err := l.CheckOff("0x00000001")
	if err != nil || !changed {
		t.Fatalf("CheckOff = %v, %v", changed, err)
	}
	if !strings.Contains(string(l.Bytes()), "* [x] a {0x00000001}") {
		t.Errorf("document = %q", l.Bytes())
	}
	changed, err = l.CheckOff("0x00000001")
	if err != nil || changed {
		t.Errorf("second CheckOff = %v, %v", changed, err)
	}
	if _, err := l.CheckOff("0x00000009"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
