package todo

import (
	"errors"
	"time"
)

// Error texts are part of the wire contract; tools and HTTP handlers surface
// them verbatim.
var (
	ErrNotFound        = errors.New("Todo not found")
	ErrDuplicate       = errors.New("Todo with same title and date already exists")
	ErrNothingToDelete = errors.New("No matching todos to delete")
	ErrEmptyTitle      = errors.New("Title cannot be empty")
	ErrInvalidDate     = errors.New("Invalid date format")
)

// Task is a single to-do record.
type Task struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	Date  string `json:"date"`
	Done  bool   `json:"done"`
}

// NewTask is the input shape for create operations.
type NewTask struct {
	Title string `json:"title"`
	Date  string `json:"date"`
}

// Patch is a tri-state partial update: a nil field is "not provided" and
// leaves the current value untouched; a non-nil field is applied even when
// it holds a zero value, so an explicit done=false sticks.
type Patch struct {
	Title *string
	Date  *string
	Done  *bool
}

// SkippedItem records one batch-create input that was not applied.
type SkippedItem struct {
	Title  string `json:"title"`
	Date   string `json:"date"`
	Reason string `json:"reason"`
}

// BatchResult partitions a batch create into applied and skipped items.
type BatchResult struct {
	Created []Task        `json:"created"`
	Skipped []SkippedItem `json:"skipped"`
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// ValidateTitle rejects empty titles.
func ValidateTitle(title string) error {
	if title == "" {
		return ErrEmptyTitle
	}
	return nil
}

// ValidateDate accepts ISO-style date strings. The stored value is the
// literal input; parsing is only a well-formedness check.
func ValidateDate(date string) error {
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, date); err == nil {
			return nil
		}
	}
	return ErrInvalidDate
}

// sameSlot reports whether a task occupies the given (title, date) slot.
// Comparison is literal: no case folding, trimming, or date normalization.
func sameSlot(t Task, title, date string) bool {
	return t.Title == title && t.Date == date
}

func findDuplicate(tasks []Task, title, date string) (Task, bool) {
	for _, t := range tasks {
		if sameSlot(t, title, date) {
			return t, true
		}
	}
	return Task{}, false
}

func findByID(tasks []Task, id int) int {
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// nextID assigns ids the way the collection always has: one past the last
// element, starting at 1. Appends keep the sequence strictly increasing, so
// id order and append order coincide.
func nextID(tasks []Task) int {
	if len(tasks) == 0 {
		return 1
	}
	return tasks[len(tasks)-1].ID + 1
}
