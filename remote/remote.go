// Package remote mediates between the in-memory entity shapes and the
// remote row store: row codecs, typed per-entity persistence, the change
// feed, and connectivity probing.
//
// The remote store itself is opaque: row-level CRUD keyed by table name and
// row identifier, owner-scoped selects, and a per-table change feed. Client
// is the HTTP implementation; InMemoryStore backs tests and offline runs.
package remote

import (
	"context"
	"errors"
	"fmt"
)

// Table names of the remote store.
const (
	TableTasks         = "tasks"
	TableProjects      = "projects"
	TableTimeBlocks    = "time_blocks"
	TableTimeTrackings = "time_trackings"
)

// Row is the wire shape of one remote record: snake_case columns, with
// timestamps rendered as RFC 3339 text.
type Row map[string]any

// EventType classifies a change-feed notification.
type EventType string

const (
	EventInsert EventType = "insert"
	EventUpdate EventType = "update"
	EventDelete EventType = "delete"
)

// Change is one change-feed notification. It is delivered for every row
// change in the table, regardless of which client made the change.
type Change struct {
	Event EventType `json:"event"`
	Row   Row       `json:"row"`
}

// Store is the remote row store boundary.
type Store interface {
	// Insert creates a row. The row must carry an "id" column.
	Insert(ctx context.Context, table string, row Row) error

	// Update overwrites the row with the given id (last writer wins).
	Update(ctx context.Context, table, id string, row Row) error

	// Delete removes the row with the given id.
	Delete(ctx context.Context, table, id string) error

	// SelectByOwner returns every row whose owner_id column matches.
	SelectByOwner(ctx context.Context, table, ownerID string) ([]Row, error)

	// Subscribe invokes fn for every change to the table until the
	// returned unsubscribe function is called or ctx is canceled.
	Subscribe(ctx context.Context, table string, fn func(Change)) (unsubscribe func(), err error)
}

// Error is a distinguishable remote-store failure.
type Error struct {
	Op     string // "insert", "select", ...
	Table  string
	Status int // HTTP status, 0 for transport failures
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("remote %s %s: status %d: %v", e.Op, e.Table, e.Status, e.Err)
	}
	return fmt.Sprintf("remote %s %s: %v", e.Op, e.Table, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsRemote reports whether err originated at the remote-store boundary.
func IsRemote(err error) bool {
	var re *Error
	return errors.As(err, &re)
}
