// Package schedule picks the outstanding todos that fit a work session.
//
// Priority is the age of an item in whole days. Items older than the
// configured threshold are always included; the remaining budget is then
// filled greedily by priority. The fill is a heuristic, not a knapsack
// solve: among the items that still fit, the highest priority wins and ties
// go to the item listed first.
package schedule

import (
	"time"

	"github.com/starford/todosync/internal/models"
)

// DefaultThreshold is the age in days above which an item always makes the
// schedule.
const DefaultThreshold = 7

// Result is a produced schedule.
type Result struct {
	Items []models.ScheduledItem
	// Exhausted is set when the overdue items alone exceed the budget.
	Exhausted bool
	Total     time.Duration
}

// Priority returns the number of calendar days between assigned and today.
// Items assigned in the future get a negative priority.
func Priority(assigned, today time.Time) int {
	a := civil(assigned)
	t := civil(today)
	return int(t.Sub(a).Hours() / 24)
}

// Priorities returns Priority for every candidate, index-aligned.
func Priorities(cands []models.Candidate, today time.Time) []int {
	out := make([]int, len(cands))
	for i, c := range cands {
		out[i] = Priority(c.Assigned, today)
	}
	return out
}

// Schedule builds a session of at most budget from cands. prios must be
// index-aligned with cands.
func Schedule(cands []models.Candidate, prios []int, threshold int, budget time.Duration) Result {
	var res Result
	var rest []int
	for i, c := range cands {
		if prios[i] > threshold {
			res.Items = append(res.Items, models.ScheduledItem{Item: c, Duration: c.Duration, Priority: prios[i]})
			res.Total += c.Duration
			continue
		}
		rest = append(rest, i)
	}
	if res.Total > budget {
		res.Exhausted = true
		return res
	}

	remaining := budget - res.Total
	for {
		best := -1
		for pos, i := range rest {
			if cands[i].Duration > remaining {
				continue
			}
			if best < 0 || prios[i] > prios[rest[best]] {
				best = pos
			}
		}
		if best < 0 {
			break
		}
		i := rest[best]
		rest = append(rest[:best], rest[best+1:]...)
		res.Items = append(res.Items, models.ScheduledItem{Item: cands[i], Duration: cands[i].Duration, Priority: prios[i]})
		res.Total += cands[i].Duration
		remaining -= cands[i].Duration
	}
	return res
}

// All returns every candidate as a schedule entry, in list order and
// without a budget. It backs the substring and keyword lookups.
func All(cands []models.Candidate, prios []int) Result {
	var res Result
	for i, c := range cands {
		res.Items = append(res.Items, models.ScheduledItem{Item: c, Duration: c.Duration, Priority: prios[i]})
		res.Total += c.Duration
	}
	return res
}

func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
