package syncstore

import "testing"

func TestQueue_FIFOOrder(t *testing.T) {
	q := NewQueue()
	q.Enqueue(Mutation{Op: OpAdd, Entity: EntityTask, ID: "a"})
	q.Enqueue(Mutation{Op: OpUpdate, Entity: EntityTask, ID: "b"})
	q.Enqueue(Mutation{Op: OpDelete, Entity: EntityProject, ID: "c"})

	drained := q.Drain()
	if len(drained) != 3 {
		t.Fatalf("drained %d mutations, want 3", len(drained))
	}
	for i, id := range []string{"a", "b", "c"} {
		if drained[i].ID != id {
			t.Fatalf("drain order %v, want a b c", drained)
		}
	}
	if q.Len() != 0 {
		t.Fatalf("queue not empty after drain: %d", q.Len())
	}
}

// TestQueue_FailuresLandInFreshQueue checks that re-enqueueing a failed
// replay after Drain appends to the new current queue, not the drained
// slice.
func TestQueue_FailuresLandInFreshQueue(t *testing.T) {
	q := NewQueue()
	q.Enqueue(Mutation{ID: "old"})

	drained := q.Drain()
	q.Enqueue(Mutation{ID: "during-drain"})
	q.Enqueue(drained[0]) // failed replay goes back

	second := q.Drain()
	if len(second) != 2 || second[0].ID != "during-drain" || second[1].ID != "old" {
		t.Fatalf("second drain = %v, want [during-drain old]", second)
	}
	if len(drained) != 1 {
		t.Fatalf("drained slice mutated: %v", drained)
	}
}
