// Package task defines the task-manager entity model, pure operations over
// the task forest, and incremental time-tracking aggregation.
package task

import "time"

// Priority orders tasks in listings.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Frequency controls how often a recurrence template generates instances.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// UpdateMode selects how far an edit of a recurring task reaches.
type UpdateMode string

const (
	UpdateSingle UpdateMode = "single"
	UpdateFuture UpdateMode = "future"
	UpdateAll    UpdateMode = "all"
)

// DeleteMode mirrors UpdateMode for deletions.
type DeleteMode string

const (
	DeleteSingle DeleteMode = "single"
	DeleteFuture DeleteMode = "future"
	DeleteAll    DeleteMode = "all"
)

// RecurrencePattern describes how a recurring template generates instances.
// Exclusions holds YYYY-MM-DD dates skipped by single-instance deletes.
type RecurrencePattern struct {
	Frequency  Frequency  `json:"frequency"`
	EndDate    *time.Time `json:"endDate,omitempty"`
	Exclusions []string   `json:"exclusions,omitempty"`
}

// Task is one node of the task forest. Children are owned exclusively by
// their parent; RecurrenceParentID is a lookup-only back-reference to the
// template that generated this instance.
type Task struct {
	ID                 string             `json:"id"`
	Title              string             `json:"title"`
	Description        string             `json:"description,omitempty"`
	Priority           Priority           `json:"priority"`
	DueDate            *time.Time         `json:"dueDate,omitempty"`
	ProjectID          string             `json:"projectId,omitempty"`
	ParentID           string             `json:"parentId,omitempty"`
	Children           []*Task            `json:"children,omitempty"`
	Expanded           bool               `json:"expanded"`
	TrackedMinutes     int                `json:"trackedMinutes"`
	Completed          bool               `json:"completed"`
	TimeSlot           string             `json:"timeSlot,omitempty"`
	Recurring          bool               `json:"recurring"`
	Recurrence         *RecurrencePattern `json:"recurrence,omitempty"`
	RecurrenceParentID string             `json:"recurrenceParentId,omitempty"`

	// Revision is the local optimistic revision counter. It never leaves
	// the process.
	Revision int64 `json:"-"`
}

// Clone returns a deep copy of t including its subtree.
func (t *Task) Clone() *Task {
	cp := *t
	if t.DueDate != nil {
		due := *t.DueDate
		cp.DueDate = &due
	}
	if t.Recurrence != nil {
		rec := *t.Recurrence
		if t.Recurrence.EndDate != nil {
			end := *t.Recurrence.EndDate
			rec.EndDate = &end
		}
		rec.Exclusions = append([]string(nil), t.Recurrence.Exclusions...)
		cp.Recurrence = &rec
	}
	if t.Children != nil {
		cp.Children = make([]*Task, len(t.Children))
		for i, c := range t.Children {
			cp.Children[i] = c.Clone()
		}
	}
	return &cp
}

// Project groups tasks. Tasks reference it by ID only; deleting a project
// does not cascade to its tasks.
type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Expanded    bool   `json:"expanded"`
}

// TimeTracking records one tracked interval against a task. A nil End marks
// the single active entry system-wide; Minutes stays 0 until the entry is
// stopped.
type TimeTracking struct {
	ID      string     `json:"id"`
	TaskID  string     `json:"taskId"`
	Start   time.Time  `json:"startTime"`
	End     *time.Time `json:"endTime,omitempty"`
	Minutes int        `json:"minutes"`
	Notes   string     `json:"notes,omitempty"`
}

// Active reports whether the entry is still accruing time.
func (tt *TimeTracking) Active() bool { return tt.End == nil }

// TimeBlock pins a task to a calendar slot. The labels are opaque strings
// and are not validated for overlap.
type TimeBlock struct {
	ID         string `json:"id"`
	TaskID     string `json:"taskId"`
	Date       string `json:"date"` // YYYY-MM-DD
	StartLabel string `json:"startLabel"`
	EndLabel   string `json:"endLabel"`
}
