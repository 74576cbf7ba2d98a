// Package duration reads time estimates from the trailing metadata clause of
// a todo ("Buy milk, 1 h 20 m") and from command-line duration tokens.
package duration

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/starford/todosync/internal/apperr"
)

// Placeholder is the estimate given to todos that carry none.
const Placeholder = 30 * time.Minute

var (
	// ErrNoClause means the text has no comma and so no metadata clause.
	ErrNoClause = errors.New("duration: no metadata clause")
	// ErrUnreadable means a clause exists but holds no recognisable estimate.
	ErrUnreadable = errors.New("duration: no estimate in metadata clause")
)

// Extract returns the estimate found after the last comma of text.
func Extract(text string) (time.Duration, error) {
	i := strings.LastIndex(text, ",")
	if i < 0 {
		return 0, ErrNoClause
	}
	d, ok := readClause(text[i+1:])
	if !ok {
		return 0, ErrUnreadable
	}
	return d, nil
}

// readClause applies the clause policy: the first number followed by "m" is
// minutes; the first number followed by "h" is hours, plus minutes when the
// second number is followed by "m".
func readClause(clause string) (time.Duration, bool) {
	fields := strings.Fields(clause)
	var nums []int
	for i, f := range fields {
		if isDigits(f) {
			nums = append(nums, i)
		}
	}
	if len(nums) == 0 {
		return 0, false
	}
	first, err := strconv.Atoi(fields[nums[0]])
	if err != nil {
		return 0, false
	}
	switch unitAfter(fields, nums[0]) {
	case "m":
		return time.Duration(first) * time.Minute, true
	case "h":
		d := time.Duration(first) * time.Hour
		if len(nums) > 1 && unitAfter(fields, nums[1]) == "m" {
			if extra, err := strconv.Atoi(fields[nums[1]]); err == nil {
				d += time.Duration(extra) * time.Minute
			}
		}
		return d, true
	}
	return 0, false
}

// ApplyPlaceholder appends the default 30 minute clause to text.
func ApplyPlaceholder(text string) string {
	trimmed := strings.TrimRight(text, " \t")
	if strings.HasSuffix(trimmed, ",") {
		return trimmed + " 30 m"
	}
	return trimmed + ", 30 m"
}

// ParseTokens parses alternating "<int> h" / "<int> m" tokens as given on
// the command line. Tokens may also arrive as a single quoted string.
func ParseTokens(tokens []string) (time.Duration, error) {
	fields := strings.Fields(strings.Join(tokens, " "))
	if len(fields) == 0 || len(fields)%2 != 0 {
		return 0, fmt.Errorf("%w: want \"<n> h\", \"<n> m\" or \"<n> h <n> m\", got %q", apperr.ErrBadDuration, strings.Join(fields, " "))
	}
	var total time.Duration
	for i := 0; i < len(fields); i += 2 {
		n, err := strconv.Atoi(fields[i])
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%w: %q is not a whole number", apperr.ErrBadDuration, fields[i])
		}
		switch fields[i+1] {
		case "h":
			total += time.Duration(n) * time.Hour
		case "m":
			total += time.Duration(n) * time.Minute
		default:
			return 0, fmt.Errorf("%w: unknown unit %q", apperr.ErrBadDuration, fields[i+1])
		}
	}
	if total <= 0 {
		return 0, fmt.Errorf("%w: duration must be positive", apperr.ErrBadDuration)
	}
	return total, nil
}

// Format renders d in the clause notation, e.g. "1 h 20 m".
func Format(d time.Duration) string {
	d = d.Round(time.Minute)
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%d h %d m", h, m)
	case h > 0:
		return fmt.Sprintf("%d h", h)
	default:
		return fmt.Sprintf("%d m", m)
	}
}

func unitAfter(fields []string, i int) string {
	if i+1 < len(fields) {
		return fields[i+1]
	}
	return ""
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
