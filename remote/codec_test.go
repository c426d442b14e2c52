package remote

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/tasktide/tasktide/task"
)

// wireTrip pushes a row through JSON the way the HTTP transport does, so
// decode sees float64 numbers and plain maps.
func wireTrip(t *testing.T, row Row) Row {
	t.Helper()
	data, err := json.Marshal(row)
	if err != nil {
		t.Fatalf("marshal row: %v", err)
	}
	var out Row
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal row: %v", err)
	}
	return out
}

func TestTaskCodec(t *testing.T) {
	due := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	end := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	in := &task.Task{
		ID:             "11111111-2222-4333-8444-555555555555",
		Title:          "Write report",
		Description:    "quarterly numbers",
		Priority:       task.PriorityHigh,
		DueDate:        &due,
		ProjectID:      "proj-1",
		ParentID:       "parent-1",
		Expanded:       true,
		TrackedMinutes: 75,
		Completed:      false,
		TimeSlot:       "morning",
		Recurring:      true,
		Recurrence: &task.RecurrencePattern{
			Frequency:  task.FrequencyWeekly,
			EndDate:    &end,
			Exclusions: []string{"2026-04-15"},
		},
		RecurrenceParentID: "template-1",
	}

	row := EncodeTask("owner-1", in)
	if row["owner_id"] != "owner-1" {
		t.Fatalf("owner_id = %v", row["owner_id"])
	}
	if row["due_date"] != "2026-04-01T09:00:00Z" {
		t.Fatalf("due_date = %v, want RFC 3339 text", row["due_date"])
	}
	if _, ok := row["children"]; ok {
		t.Fatal("children must not be serialized")
	}

	out, err := DecodeTask(wireTrip(t, row))
	if err != nil {
		t.Fatalf("DecodeTask: %v", err)
	}
	in.Children = nil
	if !reflect.DeepEqual(out, in) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", out, in)
	}
}

func TestTaskCodec_NoOptionalFields(t *testing.T) {
	in := &task.Task{ID: "t1", Title: "bare", Priority: task.PriorityLow}
	out, err := DecodeTask(wireTrip(t, EncodeTask("owner-1", in)))
	if err != nil {
		t.Fatalf("DecodeTask: %v", err)
	}
	if out.DueDate != nil || out.Recurrence != nil {
		t.Fatalf("optional fields materialized: %+v", out)
	}
	if out.Title != "bare" || out.Priority != task.PriorityLow {
		t.Fatalf("fields lost: %+v", out)
	}
}

func TestDecodeTask_Invalid(t *testing.T) {
	if _, err := DecodeTask(Row{"title": "no id"}); err == nil {
		t.Fatal("expected error for row without id")
	}
	if _, err := DecodeTask(Row{"id": "t1", "due_date": "yesterday"}); err == nil {
		t.Fatal("expected error for malformed timestamp")
	}
}

func TestTrackingCodec(t *testing.T) {
	start := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	stop := start.Add(47 * time.Minute)
	in := &task.TimeTracking{
		ID:      "tt1",
		TaskID:  "t1",
		Start:   start,
		End:     &stop,
		Minutes: 47,
		Notes:   "focus block",
	}
	out, err := DecodeTracking(wireTrip(t, EncodeTracking("owner-1", in)))
	if err != nil {
		t.Fatalf("DecodeTracking: %v", err)
	}
	if !reflect.DeepEqual(out, in) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", out, in)
	}
}

func TestTrackingCodec_ActiveEntry(t *testing.T) {
	in := &task.TimeTracking{ID: "tt1", TaskID: "t1", Start: time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)}
	out, err := DecodeTracking(wireTrip(t, EncodeTracking("owner-1", in)))
	if err != nil {
		t.Fatalf("DecodeTracking: %v", err)
	}
	if !out.Active() || out.Minutes != 0 {
		t.Fatalf("active entry mangled: %+v", out)
	}
}

func TestProjectAndBlockCodec(t *testing.T) {
	p := &task.Project{ID: "p1", Name: "Inbox", Description: "default", Expanded: true}
	gotP, err := DecodeProject(wireTrip(t, EncodeProject("owner-1", p)))
	if err != nil || !reflect.DeepEqual(gotP, p) {
		t.Fatalf("project round trip: %+v err=%v", gotP, err)
	}

	b := &task.TimeBlock{ID: "b1", TaskID: "t1", Date: "2026-03-09", StartLabel: "09:00", EndLabel: "10:30"}
	gotB, err := DecodeBlock(wireTrip(t, EncodeBlock("owner-1", b)))
	if err != nil || !reflect.DeepEqual(gotB, b) {
		t.Fatalf("block round trip: %+v err=%v", gotB, err)
	}
}
