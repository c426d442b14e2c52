package remote

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tasktide/tasktide/task"
)

// Timestamps cross the wire as RFC 3339 text in UTC.
const timestampLayout = time.RFC3339

func formatTime(t time.Time) string { return t.UTC().Format(timestampLayout) }

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(v any) (time.Time, error) {
	s, ok := v.(string)
	if !ok || s == "" {
		return time.Time{}, fmt.Errorf("timestamp column is %T, want string", v)
	}
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

func parseTimePtr(v any) (*time.Time, error) {
	if v == nil {
		return nil, nil
	}
	if s, ok := v.(string); ok && s == "" {
		return nil, nil
	}
	t, err := parseTime(v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func str(row Row, col string) string {
	if s, ok := row[col].(string); ok {
		return s
	}
	return ""
}

func boolean(row Row, col string) bool {
	switch v := row[col].(type) {
	case bool:
		return v
	case float64: // sqlite-style 0/1 through JSON
		return v != 0
	default:
		return false
	}
}

func integer(row Row, col string) int {
	switch v := row[col].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64: // JSON numbers decode as float64
		return int(v)
	default:
		return 0
	}
}

// EncodeTask flattens a task into its row shape. Children are never
// serialized: the hierarchy is derived from parent_id on read, so a remote
// row can never introduce a cycle.
func EncodeTask(ownerID string, t *task.Task) Row {
	row := Row{
		"id":                   t.ID,
		"owner_id":             ownerID,
		"title":                t.Title,
		"description":          t.Description,
		"priority":             string(t.Priority),
		"due_date":             formatTimePtr(t.DueDate),
		"project_id":           t.ProjectID,
		"parent_id":            t.ParentID,
		"expanded":             t.Expanded,
		"tracked_minutes":      t.TrackedMinutes,
		"completed":            t.Completed,
		"time_slot":            t.TimeSlot,
		"recurring":            t.Recurring,
		"recurrence_parent_id": t.RecurrenceParentID,
	}
	if t.Recurrence != nil {
		row["recurrence_frequency"] = string(t.Recurrence.Frequency)
		row["recurrence_end_date"] = formatTimePtr(t.Recurrence.EndDate)
		exclusions, _ := json.Marshal(t.Recurrence.Exclusions)
		row["recurrence_exclusions"] = string(exclusions)
	}
	return row
}

// DecodeTask parses a task row. The returned task has no children; callers
// assemble the forest with task.BuildForest.
func DecodeTask(row Row) (*task.Task, error) {
	id := str(row, "id")
	if id == "" {
		return nil, fmt.Errorf("task row without id")
	}
	due, err := parseTimePtr(row["due_date"])
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", id, err)
	}
	t := &task.Task{
		ID:                 id,
		Title:              str(row, "title"),
		Description:        str(row, "description"),
		Priority:           task.Priority(str(row, "priority")),
		DueDate:            due,
		ProjectID:          str(row, "project_id"),
		ParentID:           str(row, "parent_id"),
		Expanded:           boolean(row, "expanded"),
		TrackedMinutes:     integer(row, "tracked_minutes"),
		Completed:          boolean(row, "completed"),
		TimeSlot:           str(row, "time_slot"),
		Recurring:          boolean(row, "recurring"),
		RecurrenceParentID: str(row, "recurrence_parent_id"),
	}
	if freq := str(row, "recurrence_frequency"); freq != "" {
		end, err := parseTimePtr(row["recurrence_end_date"])
		if err != nil {
			return nil, fmt.Errorf("task %s: %w", id, err)
		}
		pattern := &task.RecurrencePattern{Frequency: task.Frequency(freq), EndDate: end}
		if raw := str(row, "recurrence_exclusions"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &pattern.Exclusions); err != nil {
				return nil, fmt.Errorf("task %s: parse exclusions: %w", id, err)
			}
		}
		t.Recurrence = pattern
	}
	return t, nil
}

// EncodeProject flattens a project into its row shape.
func EncodeProject(ownerID string, p *task.Project) Row {
	return Row{
		"id":          p.ID,
		"owner_id":    ownerID,
		"name":        p.Name,
		"description": p.Description,
		"expanded":    p.Expanded,
	}
}

// DecodeProject parses a project row.
func DecodeProject(row Row) (*task.Project, error) {
	id := str(row, "id")
	if id == "" {
		return nil, fmt.Errorf("project row without id")
	}
	return &task.Project{
		ID:          id,
		Name:        str(row, "name"),
		Description: str(row, "description"),
		Expanded:    boolean(row, "expanded"),
	}, nil
}

// EncodeTracking flattens a time-tracking entry into its row shape.
func EncodeTracking(ownerID string, tt *task.TimeTracking) Row {
	return Row{
		"id":         tt.ID,
		"owner_id":   ownerID,
		"task_id":    tt.TaskID,
		"start_time": formatTime(tt.Start),
		"end_time":   formatTimePtr(tt.End),
		"minutes":    tt.Minutes,
		"notes":      tt.Notes,
	}
}

// DecodeTracking parses a time-tracking row.
func DecodeTracking(row Row) (*task.TimeTracking, error) {
	id := str(row, "id")
	if id == "" {
		return nil, fmt.Errorf("tracking row without id")
	}
	start, err := parseTime(row["start_time"])
	if err != nil {
		return nil, fmt.Errorf("tracking %s: %w", id, err)
	}
	end, err := parseTimePtr(row["end_time"])
	if err != nil {
		return nil, fmt.Errorf("tracking %s: %w", id, err)
	}
	return &task.TimeTracking{
		ID:      id,
		TaskID:  str(row, "task_id"),
		Start:   start,
		End:     end,
		Minutes: integer(row, "minutes"),
		Notes:   str(row, "notes"),
	}, nil
}

// EncodeBlock flattens a time block into its row shape.
func EncodeBlock(ownerID string, b *task.TimeBlock) Row {
	return Row{
		"id":          b.ID,
		"owner_id":    ownerID,
		"task_id":     b.TaskID,
		"block_date":  b.Date,
		"start_label": b.StartLabel,
		"end_label":   b.EndLabel,
	}
}

// DecodeBlock parses a time-block row.
func DecodeBlock(row Row) (*task.TimeBlock, error) {
	id := str(row, "id")
	if id == "" {
		return nil, fmt.Errorf("time block row without id")
	}
	return &task.TimeBlock{
		ID:         id,
		TaskID:     str(row, "task_id"),
		Date:       str(row, "block_date"),
		StartLabel: str(row, "start_label"),
		EndLabel:   str(row, "end_label"),
	}, nil
}
