package task

import "time"

// DurationMinutes returns the whole minutes elapsed between start and end,
// floored, and clamped to zero when the clocks disagree.
func DurationMinutes(start, end time.Time) int {
	m := int(end.Sub(start) / time.Minute)
	if m < 0 {
		return 0
	}
	return m
}

// Stop finalizes an active entry at the given instant, computing its
// duration. Stopping an already-stopped entry is a no-op.
func (tt *TimeTracking) Stop(now time.Time) {
	if tt.End != nil {
		return
	}
	end := now
	tt.End = &end
	tt.Minutes = DurationMinutes(tt.Start, now)
}

// CreditTracked returns a new forest where taskID's TrackedMinutes has been
// increased by minutes. Used when an entry is stopped or added manually.
func CreditTracked(forest []*Task, taskID string, minutes int) []*Task {
	return applyTrackedDelta(forest, taskID, minutes)
}

// DebitTracked returns a new forest where taskID's TrackedMinutes has been
// decreased by minutes, clamped to zero. Used when an entry is deleted.
func DebitTracked(forest []*Task, taskID string, minutes int) []*Task {
	return applyTrackedDelta(forest, taskID, -minutes)
}

// ReviseTracked returns a new forest where taskID's TrackedMinutes has been
// shifted by (newMinutes − oldMinutes), clamped to zero. Used when an
// entry's duration is edited.
func ReviseTracked(forest []*Task, taskID string, oldMinutes, newMinutes int) []*Task {
	return applyTrackedDelta(forest, taskID, newMinutes-oldMinutes)
}

func applyTrackedDelta(forest []*Task, taskID string, delta int) []*Task {
	return Update(forest, taskID, func(t *Task) *Task {
		t.TrackedMinutes += delta
		if t.TrackedMinutes < 0 {
			t.TrackedMinutes = 0
		}
		return t
	})
}
