package syncstore

import "sync"

// Op is the kind of a queued mutation.
type Op string

const (
	OpAdd    Op = "add"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// EntityKind names the collection a mutation touches.
type EntityKind string

const (
	EntityTask         EntityKind = "task"
	EntityProject      EntityKind = "project"
	EntityTimeTracking EntityKind = "timeTracking"
	EntityTimeBlock    EntityKind = "timeBlock"
)

// Mutation is one deferred remote write. Payload holds a deep copy of the
// entity as it looked when the mutation was recorded (*task.Task,
// *task.Project, *task.TimeTracking, or *task.TimeBlock); deletes carry
// only the ID. Revision ties the mutation to the local optimistic edit it
// confirms.
type Mutation struct {
	Op       Op
	Entity   EntityKind
	ID       string
	Revision int64
	Payload  any
}

// Queue accumulates mutations attempted while offline, in arrival order.
// It is held only in memory: durability of the queue across restarts is an
// explicit non-goal for a single-session client.
type Queue struct {
	mu      sync.Mutex
	pending []Mutation
}

// NewQueue creates an empty Queue.
func NewQueue() *Queue { return &Queue{} }

// Enqueue appends a mutation.
func (q *Queue) Enqueue(m Mutation) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, m)
}

// Drain returns the pending mutations in arrival order and installs a
// fresh empty queue. A replay failure is re-enqueued by the caller and
// lands in the new queue, so late failures never starve mutations recorded
// during the drain.
func (q *Queue) Drain() []Mutation {
	q.mu.Lock()
	defer q.mu.Unlock()
	pending := q.pending
	q.pending = nil
	return pending
}

// Len returns the number of pending mutations.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
