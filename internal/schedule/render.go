package schedule

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/starford/todosync/internal/duration"
)

var (
	ruleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("81"))
	itemStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	metaStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

// Render prints res as a colored listing.
func Render(w io.Writer, res Result) error {
	var b strings.Builder
	if res.Exhausted {
		b.WriteString(warningStyle.Render(fmt.Sprintf(
			"%d todos are overdue, %s in total; the whole session goes to them", len(res.Items), duration.Format(res.Total))))
		b.WriteByte('\n')
	}
	b.WriteString(ruleStyle.Render(strings.Repeat("@", 43)))
	b.WriteByte('\n')
	if len(res.Items) == 0 {
		b.WriteString(metaStyle.Render("nothing fits the session"))
		b.WriteByte('\n')
	}
	for _, it := range res.Items {
		b.WriteString(itemStyle.Render(it.Item.Text))
		b.WriteString(metaStyle.Render(fmt.Sprintf("  [%s, %dd]", duration.Format(it.Duration), it.Priority)))
		b.WriteByte('\n')
	}
	if len(res.Items) > 0 {
		b.WriteString(metaStyle.Render("total " + duration.Format(res.Total)))
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}
