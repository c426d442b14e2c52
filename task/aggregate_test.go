package task

import (
	"testing"
	"time"
)

func TestDurationMinutes(t *testing.T) {
	start := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		end  time.Time
		want int
	}{
		{"47 minutes", start.Add(47 * time.Minute), 47},
		{"floors partial minute", start.Add(47*time.Minute + 59*time.Second), 47},
		{"zero", start, 0},
		{"clock skew clamps to zero", start.Add(-5 * time.Minute), 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := DurationMinutes(start, tc.end); got != tc.want {
				t.Errorf("DurationMinutes = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestStop(t *testing.T) {
	start := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	entry := &TimeTracking{ID: "tt1", TaskID: "t1", Start: start}

	if !entry.Active() {
		t.Fatal("entry should be active before Stop")
	}
	entry.Stop(start.Add(47 * time.Minute))
	if entry.Active() {
		t.Fatal("entry still active after Stop")
	}
	if entry.Minutes != 47 {
		t.Fatalf("Minutes = %d, want 47", entry.Minutes)
	}

	// Second Stop must not recompute.
	entry.Stop(start.Add(90 * time.Minute))
	if entry.Minutes != 47 {
		t.Fatalf("Minutes after double Stop = %d, want 47", entry.Minutes)
	}
}

func TestCreditAndDebitTracked(t *testing.T) {
	forest := []*Task{{ID: "t1", Title: "work"}}

	forest = CreditTracked(forest, "t1", 30)
	if got := Find(forest, "t1").TrackedMinutes; got != 30 {
		t.Fatalf("after credit: TrackedMinutes = %d, want 30", got)
	}

	forest = DebitTracked(forest, "t1", 30)
	if got := Find(forest, "t1").TrackedMinutes; got != 0 {
		t.Fatalf("after debit: TrackedMinutes = %d, want 0", got)
	}

	// Debit below zero clamps.
	forest = DebitTracked(forest, "t1", 10)
	if got := Find(forest, "t1").TrackedMinutes; got != 0 {
		t.Fatalf("debit below zero: TrackedMinutes = %d, want 0", got)
	}
}

func TestReviseTracked(t *testing.T) {
	forest := []*Task{{ID: "t1", TrackedMinutes: 45}}

	forest = ReviseTracked(forest, "t1", 45, 60)
	if got := Find(forest, "t1").TrackedMinutes; got != 60 {
		t.Fatalf("after upward revise: %d, want 60", got)
	}

	forest = ReviseTracked(forest, "t1", 60, 10)
	if got := Find(forest, "t1").TrackedMinutes; got != 10 {
		t.Fatalf("after downward revise: %d, want 10", got)
	}

	// A revision larger than the current total clamps at zero.
	forest = ReviseTracked(forest, "t1", 100, 0)
	if got := Find(forest, "t1").TrackedMinutes; got != 0 {
		t.Fatalf("after clamped revise: %d, want 0", got)
	}
}

// TestTrackedMinutesMatchesEntrySum exercises a mixed sequence of tracking
// operations and checks the aggregate equals the sum of surviving entries
// at the end, never dipping below zero along the way.
func TestTrackedMinutesMatchesEntrySum(t *testing.T) {
	forest := []*Task{{ID: "t1"}}
	start := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)

	entries := map[string]*TimeTracking{}

	check := func(step string) {
		t.Helper()
		got := Find(forest, "t1").TrackedMinutes
		if got < 0 {
			t.Fatalf("%s: TrackedMinutes went negative: %d", step, got)
		}
	}

	// Start + stop a 25-minute session.
	e1 := &TimeTracking{ID: "e1", TaskID: "t1", Start: start}
	e1.Stop(start.Add(25 * time.Minute))
	entries["e1"] = e1
	forest = CreditTracked(forest, "t1", e1.Minutes)
	check("stop e1")

	// Manual 30-minute entry.
	e2 := &TimeTracking{ID: "e2", TaskID: "t1", Start: start, Minutes: 30}
	end := start.Add(30 * time.Minute)
	e2.End = &end
	entries["e2"] = e2
	forest = CreditTracked(forest, "t1", e2.Minutes)
	check("add e2")

	// Edit e1 down to 10 minutes.
	forest = ReviseTracked(forest, "t1", e1.Minutes, 10)
	e1.Minutes = 10
	check("edit e1")

	// Delete e2.
	forest = DebitTracked(forest, "t1", e2.Minutes)
	delete(entries, "e2")
	check("delete e2")

	sum := 0
	for _, e := range entries {
		sum += e.Minutes
	}
	if got := Find(forest, "t1").TrackedMinutes; got != sum {
		t.Fatalf("TrackedMinutes = %d, want sum of entries %d", got, sum)
	}
}
