// Package session runs an interactive countdown over a produced schedule.
//
// Each item gets its estimated duration on the clock. While it runs, and
// after it expires, single-letter commands are read from the input, one per
// line:
//
//	a  add time (prompts for "<n> h" / "<n> m" tokens)
//	c  mark the item complete and move on
//	n  move on, leaving the item outstanding
//	q  cancel the session
//
// End of input cancels the session.
package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/starford/todosync/internal/duration"
	"github.com/starford/todosync/internal/models"
)

// DefaultTick is the countdown refresh interval.
const DefaultTick = time.Second

const help = "[a]dd time, [c]omplete, [n]ext, [q]uit"

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	clockStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	expiredStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Options configures a session.
type Options struct {
	In   io.Reader
	Out  io.Writer
	Tick time.Duration
	// Complete is called when the user marks an item done. An error keeps
	// the item on the clock.
	Complete func(models.ScheduledItem) error
	Logger   *slog.Logger
}

// Summary is the outcome of a session.
type Summary struct {
	Completed []models.ScheduledItem
	Skipped   []models.ScheduledItem
	Cancelled bool
}

type outcome int

const (
	outcomeCompleted outcome = iota
	outcomeSkipped
	outcomeCancelled
)

type runner struct {
	lines    <-chan string
	out      io.Writer
	tick     time.Duration
	complete func(models.ScheduledItem) error
	logger   *slog.Logger
}

// Run works through items in order until they are all done, skipped or
// the session is cancelled.
func Run(ctx context.Context, items []models.ScheduledItem, opts Options) (*Summary, error) {
	if opts.Tick <= 0 {
		opts.Tick = DefaultTick
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Complete == nil {
		opts.Complete = func(models.ScheduledItem) error { return nil }
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r := &runner{
		lines:    readLines(ctx, opts.In),
		out:      opts.Out,
		tick:     opts.Tick,
		complete: opts.Complete,
		logger:   opts.Logger,
	}

	sum := &Summary{}
	for i, it := range items {
		res, err := r.work(ctx, i, len(items), it)
		if err != nil {
			return sum, err
		}
		switch res {
		case outcomeCompleted:
			sum.Completed = append(sum.Completed, it)
		case outcomeSkipped:
			sum.Skipped = append(sum.Skipped, it)
		case outcomeCancelled:
			sum.Cancelled = true
			r.printf("%s\n", dimStyle.Render("session cancelled"))
			return sum, nil
		}
	}
	r.printf("%s\n", doneStyle.Render(fmt.Sprintf("session over: %d of %d done", len(sum.Completed), len(items))))
	return sum, nil
}

func (r *runner) work(ctx context.Context, i, n int, it models.ScheduledItem) (outcome, error) {
	r.printf("%s %s\n", headerStyle.Render(fmt.Sprintf("(%d/%d)", i+1, n)), it.Item.Text)
	r.printf("%s\n", dimStyle.Render(duration.Format(it.Duration)+" on the clock; "+help))

	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()

	deadline := time.Now().Add(it.Duration)
	expired := false
	for {
		if !expired && !time.Now().Before(deadline) {
			expired = true
			r.printf("\n%s %s\n", expiredStyle.Render("time is up"), dimStyle.Render(help))
		}
		var tick <-chan time.Time
		if !expired {
			tick = ticker.C
		}

		select {
		case <-ctx.Done():
			return outcomeCancelled, ctx.Err()
		case <-tick:
			r.printf("\r%s", clockStyle.Render(clock(time.Until(deadline))+" left"))
		case line, ok := <-r.lines:
			if !ok {
				return outcomeCancelled, nil
			}
			switch strings.ToLower(strings.TrimSpace(line)) {
			case "":
			case "a":
				d, ok, err := r.askDuration(ctx)
				if err != nil || !ok {
					return outcomeCancelled, err
				}
				if d == 0 {
					continue
				}
				if expired {
					deadline = time.Now()
					expired = false
				}
				deadline = deadline.Add(d)
				r.printf("%s\n", dimStyle.Render("added "+duration.Format(d)))
			case "c":
				if err := r.complete(it); err != nil {
					r.logger.Warn("session: could not mark complete", slog.String("todo", it.Item.Text), slog.String("error", err.Error()))
					r.printf("%s\n", expiredStyle.Render("could not mark complete: "+err.Error()))
					continue
				}
				r.printf("\n%s\n", doneStyle.Render("done"))
				return outcomeCompleted, nil
			case "n":
				return outcomeSkipped, nil
			case "q":
				return outcomeCancelled, nil
			default:
				r.printf("%s\n", dimStyle.Render(help))
			}
		}
	}
}

// askDuration prompts for extra time. A zero duration with ok set means the
// answer was unreadable; ok is false when the input ended.
func (r *runner) askDuration(ctx context.Context) (time.Duration, bool, error) {
	r.printf("\n%s ", "add how much? (e.g. 15 m)")
	select {
	case <-ctx.Done():
		return 0, false, ctx.Err()
	case line, ok := <-r.lines:
		if !ok {
			return 0, false, nil
		}
		d, err := duration.ParseTokens([]string{line})
		if err != nil {
			r.printf("%s\n", expiredStyle.Render(err.Error()))
			return 0, true, nil
		}
		return d, true, nil
	}
}

func (r *runner) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}

// readLines forwards input lines until EOF or ctx is done. The reader is
// not closed: after ctx is done the goroutine exits on the next line or
// EOF, so a Run on stdin leaves it parked in Scan until the process ends.
func readLines(ctx context.Context, in io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		if in == nil {
			return
		}
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case ch <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

func clock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	s := int((d % time.Minute) / time.Second)
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
