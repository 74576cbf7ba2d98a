package schedule

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/todosync/internal/apperr"
	"github.com/starford/todosync/internal/duration"
	"github.com/starford/todosync/internal/models"
)

// Collect turns outstanding master-list items into scheduling candidates.
// Items without a readable estimate get the placeholder for this session
// only; the master list is not rewritten.
func Collect(items []models.DatedTodo, logger *slog.Logger) []models.Candidate {
	if logger == nil {
		logger = slog.Default()
	}
	out := make([]models.Candidate, 0, len(items))
	for _, it := range items {
		d, err := duration.Extract(it.Text)
		if err != nil {
			d = duration.Placeholder
			logger.Warn("schedule: no usable duration, using default",
				slog.String("todo", it.Text),
				slog.String("default", duration.Format(d)))
		}
		out = append(out, models.Candidate{Text: it.Text, ID: it.ID, Assigned: it.Assigned, Duration: d})
	}
	return out
}

// BySubstring keeps the candidates whose text contains sub.
func BySubstring(cands []models.Candidate, sub string) ([]models.Candidate, error) {
	var out []models.Candidate
	for _, c := range cands {
		if strings.Contains(c.Text, sub) {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("schedule: no todo contains %q: %w", sub, apperr.ErrNoMatch)
	}
	return out, nil
}

// ByKeywords keeps the candidates whose text contains every keyword,
// ignoring case.
func ByKeywords(cands []models.Candidate, keywords []string) ([]models.Candidate, error) {
	lower := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.TrimSpace(k); k != "" {
			lower = append(lower, strings.ToLower(k))
		}
	}
	var out []models.Candidate
	for _, c := range cands {
		text := strings.ToLower(c.Text)
		all := true
		for _, k := range lower {
			if !strings.Contains(text, k) {
				all = false
				break
			}
		}
		if all {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("schedule: no todo matches %s: %w", strings.Join(keywords, ", "), apperr.ErrNoMatch)
	}
	return out, nil
}
