package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/starford/todosync/internal/models"
)

func item(text string, d time.Duration) models.ScheduledItem {
	return models.ScheduledItem{Item: models.Candidate{Text: text, ID: "id-" + text}, Duration: d}
}

func run(t *testing.T, input string, items []models.ScheduledItem, complete func(models.ScheduledItem) error) (*Summary, string) {
	t.Helper()
	var out bytes.Buffer
	sum, err := Run(context.Background(), items, Options{
		In:       strings.NewReader(input),
		Out:      &out,
		Tick:     time.Millisecond,
		Complete: complete,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return sum, out.String()
}

func TestRun_Commands(t *testing.T) {
	var completed []string
	items := []models.ScheduledItem{item("A", time.Hour), item("B", time.Hour), item("C", time.Hour)}
	sum, out := run(t, "c\nn\nq\n", items, func(it models.ScheduledItem) error {
		completed = append(completed, it.Item.ID)
		return nil
	})

	if len(completed) != 1 || completed[0] != "id-A" {
		t.Errorf("completed = %v", completed)
	}
	if len(sum.Completed) != 1 || len(sum.Skipped) != 1 || !sum.Cancelled {
		t.Errorf("summary = %+v", sum)
	}
	if !strings.Contains(out, "(3/3) C") {
		t.Errorf("third item never shown:\n%s", out)
	}
}

func TestRun_EOFCancels(t *testing.T) {
	sum, _ := run(t, "", []models.ScheduledItem{item("A", time.Hour)}, nil)
	if !sum.Cancelled || len(sum.Completed) != 0 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestRun_AddTime(t *testing.T) {
	sum, out := run(t, "a\n15 m\nc\n", []models.ScheduledItem{item("A", time.Hour)}, nil)
	if !strings.Contains(out, "added 15 m") {
		t.Errorf("output:\n%s", out)
	}
	if len(sum.Completed) != 1 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestRun_AddTimeRejectsBadTokens(t *testing.T) {
	sum, out := run(t, "a\nfive minutes\nn\n", []models.ScheduledItem{item("A", time.Hour)}, nil)
	if strings.Contains(out, "added") {
		t.Errorf("bad tokens accepted:\n%s", out)
	}
	if len(sum.Skipped) != 1 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestRun_Expiry(t *testing.T) {
	sum, out := run(t, "n\n", []models.ScheduledItem{item("A", 0)}, nil)
	if !strings.Contains(out, "time is up") {
		t.Errorf("no expiry notice:\n%s", out)
	}
	if len(sum.Skipped) != 1 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestRun_CompleteErrorKeepsItem(t *testing.T) {
	calls := 0
	sum, _ := run(t, "c\nc\n", []models.ScheduledItem{item("A", time.Hour)}, func(models.ScheduledItem) error {
		calls++
		if calls == 1 {
			return errors.New("disk full")
		}
		return nil
	})
	if calls != 2 || len(sum.Completed) != 1 {
		t.Errorf("calls = %d, summary = %+v", calls, sum)
	}
}

func TestRun_ContextCancel(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, []models.ScheduledItem{item("A", time.Hour)}, Options{In: pr, Tick: time.Millisecond})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestRun_ReaderReleasedAfterReturn(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	go func() { _, _ = pw.Write([]byte("q\n")) }()

	sum, err := Run(context.Background(), []models.ScheduledItem{item("A", time.Hour)}, Options{In: pr, Tick: time.Millisecond})
	if err != nil || !sum.Cancelled {
		t.Fatalf("Run = %+v, %v", sum, err)
	}

	// Input arriving after Run returns is consumed and the reader stops,
	// instead of blocking the writer on an abandoned channel send.
	done := make(chan struct{})
	go func() {
		_, _ = pw.Write([]byte("late\n"))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error("late input was never read")
	}
}

func TestClock(t *testing.T) {
	cases := map[time.Duration]string{
		-time.Second:              "00:00",
		90 * time.Second:          "01:30",
		time.Hour + 2*time.Minute: "1:02:00",
		time.Hour - time.Second/2: "1:00:00",
	}
	for in, want := range cases {
		if got := clock(in); got != want {
			t.Errorf("clock(%v) = %q, want %q", in, got, want)
		}
	}
}
