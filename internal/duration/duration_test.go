package duration

import (
	"errors"
	"testing"
	"time"

	"github.com/starford/todosync/internal/apperr"
)

func TestExtract(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"Buy milk, 1 h 20 m", 80 * time.Minute},
		{"Call mom, 45 m", 45 * time.Minute},
		{"Write, report, 2 h", 2 * time.Hour},
		{"Gym, about 1 h then 5 m", 65 * time.Minute},
		{"Nap, 2 h 10 x", 2 * time.Hour},
	}
	for _, c := range cases {
		got, err := Extract(c.in)
		if err != nil {
			t.Errorf("Extract(%q): %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("Extract(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestExtract_Absent(t *testing.T) {
	if _, err := Extract("Water plants"); !errors.Is(err, ErrNoClause) {
		t.Errorf("no comma: err = %v, want ErrNoClause", err)
	}
	if _, err := Extract("Read book,"); !errors.Is(err, ErrUnreadable) {
		t.Errorf("empty clause: err = %v, want ErrUnreadable", err)
	}
	if _, err := Extract("Tea, 5 s"); !errors.Is(err, ErrUnreadable) {
		t.Errorf("unknown unit: err = %v, want ErrUnreadable", err)
	}
	if _, err := Extract("Eggs, milk"); !errors.Is(err, ErrUnreadable) {
		t.Errorf("no number: err = %v, want ErrUnreadable", err)
	}
}

func TestApplyPlaceholder(t *testing.T) {
	got := ApplyPlaceholder("Read book,")
	if got != "Read book, 30 m" {
		t.Errorf("ApplyPlaceholder = %q", got)
	}
	d, err := Extract(got)
	if err != nil || d != 30*time.Minute {
		t.Errorf("Extract after placeholder = %v, %v", d, err)
	}

	got = ApplyPlaceholder("Water plants")
	if got != "Water plants, 30 m" {
		t.Errorf("ApplyPlaceholder = %q", got)
	}
	if d, _ := Extract(got); d != Placeholder {
		t.Errorf("Extract = %v, want %v", d, Placeholder)
	}
}

func TestParseTokens(t *testing.T) {
	cases := []struct {
		in   []string
		want time.Duration
	}{
		{[]string{"1", "h", "30", "m"}, 90 * time.Minute},
		{[]string{"45", "m"}, 45 * time.Minute},
		{[]string{"2", "h"}, 2 * time.Hour},
		{[]string{"1 h 5 m"}, 65 * time.Minute},
	}
	for _, c := range cases {
		got, err := ParseTokens(c.in)
		if err != nil {
			t.Errorf("ParseTokens(%q): %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseTokens(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestParseTokens_Invalid(t *testing.T) {
	bad := [][]string{
		nil,
		{"1"},
		{"1", "d"},
		{"x", "m"},
		{"0", "m"},
		{"1", "h", "2"},
	}
	for _, in := range bad {
		if _, err := ParseTokens(in); !errors.Is(err, apperr.ErrBadDuration) {
			t.Errorf("ParseTokens(%q) err = %v, want ErrBadDuration", in, err)
		}
	}
}

func TestFormat(t *testing.T) {
	cases := map[time.Duration]string{
		80 * time.Minute: "1 h 20 m",
		2 * time.Hour:    "2 h",
		15 * time.Minute: "15 m",
	}
	for d, want := range cases {
		if got := Format(d); got != want {
			t.Errorf("Format(%v) = %q, want %q", d, got, want)
		}
	}
}
