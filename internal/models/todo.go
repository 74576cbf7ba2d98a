// Package models defines the domain types for todosync.
package models

import "time"

// NewTodo is an untracked item that has just been assigned an identifier.
// Raw is the text as scanned; Text carries the placeholder duration when one
// was applied.
type NewTodo struct {
	Raw  string
	Text string
	ID   string
	Path string
	Line int
}

// Completion is the persisted record for an identifier. Completed never
// flips back to false once set.
type Completion struct {
	Completed bool   `yaml:"completed" json:"completed"`
	Path      string `yaml:"path" json:"path"`
}

// PendingItem is a journal entry written ahead of document mutation so that
// an interrupted run can be finished on the next start.
type PendingItem struct {
	ID   string `yaml:"id"`
	Path string `yaml:"path"`
	Line int    `yaml:"line"`
	Raw  string `yaml:"raw"`
	Text string `yaml:"text"`
}

// DatedTodo is an outstanding master-list item with its effective date.
type DatedTodo struct {
	Text     string
	ID       string
	Assigned time.Time
	Line     int
}

// Candidate is an item offered to the scheduler.
type Candidate struct {
	Text     string
	ID       string
	Assigned time.Time
	Duration time.Duration
}

// ScheduledItem is one entry of a produced schedule.
type ScheduledItem struct {
	Item     Candidate
	Duration time.Duration
	Priority int
}
