package syncer

import (
	"context"
	"fmt"
)

// Status summarises the persisted state and the master list.
type Status struct {
	Tracked     int
	Completed   int
	Outstanding int
	Notes       int
	Counter     uint64
	Pending     int // journal entries left by an interrupted run
	Unchecked   int // unchecked lines in the master list
}

// Status reads the state and the master list without modifying anything.
func (e *Engine) Status(ctx context.Context) (*Status, error) {
	st, err := e.states.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("status: load state: %w", err)
	}
	out := &Status{
		Tracked: len(st.Completions),
		Notes:   len(st.PathIDs),
		Counter: st.Counter,
		Pending: len(st.Journal),
	}
	for _, rec := range st.Completions {
		if rec.Completed {
			out.Completed++
		} else {
			out.Outstanding++
		}
	}
	master, err := e.loadMaster()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	items, err := master.Outstanding()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	out.Unchecked = len(items)
	return out, nil
}
