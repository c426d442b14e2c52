package remote

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tasktide/tasktide/cache"
	"github.com/tasktide/tasktide/task"
)

// Mediator performs all remote persistence on behalf of the synced store.
// It owns the translation between entity and row shapes, scopes every read
// and write to one owner identity, and caches owner-scoped list reads.
//
// The list cache is not invalidated by writes going through the mediator;
// callers invalidate after a mutation when they need fresh reads. Staleness
// between mutation and invalidation is an accepted trade-off.
type Mediator struct {
	store   Store
	ownerID string
	lists   *cache.Cache[[]Row]
	logger  *slog.Logger
}

// NewMediator creates a Mediator for one owner identity. lists may be nil
// to disable read caching.
func NewMediator(store Store, ownerID string, lists *cache.Cache[[]Row], logger *slog.Logger) *Mediator {
	return &Mediator{store: store, ownerID: ownerID, lists: lists, logger: logger}
}

// OwnerID returns the owner identity all operations are scoped to.
func (m *Mediator) OwnerID() string { return m.ownerID }

func (m *Mediator) listKey(table string) string {
	return fmt.Sprintf("%s.selectByOwner/%s", table, m.ownerID)
}

func (m *Mediator) selectRows(ctx context.Context, table string) ([]Row, error) {
	if m.lists != nil {
		if rows, ok := m.lists.Get(m.listKey(table)); ok {
			return rows, nil
		}
	}
	rows, err := m.store.SelectByOwner(ctx, table, m.ownerID)
	if err != nil {
		return nil, err
	}
	if m.lists != nil {
		m.lists.Set(m.listKey(table), rows)
	}
	return rows, nil
}

// InvalidateLists drops the cached list reads for the given tables, or for
// every table when none are named.
func (m *Mediator) InvalidateLists(tables ...string) {
	if m.lists == nil {
		return
	}
	if len(tables) == 0 {
		tables = []string{TableTasks, TableProjects, TableTimeBlocks, TableTimeTrackings}
	}
	for _, table := range tables {
		m.lists.Invalidate(m.listKey(table))
	}
}

// CreateTask persists a new task row.
func (m *Mediator) CreateTask(ctx context.Context, t *task.Task) error {
	return m.store.Insert(ctx, TableTasks, EncodeTask(m.ownerID, t))
}

// UpdateTask overwrites the remote task row (last writer wins).
func (m *Mediator) UpdateTask(ctx context.Context, t *task.Task) error {
	return m.store.Update(ctx, TableTasks, t.ID, EncodeTask(m.ownerID, t))
}

// DeleteTask removes the remote task row.
func (m *Mediator) DeleteTask(ctx context.Context, id string) error {
	return m.store.Delete(ctx, TableTasks, id)
}

// ListTasks returns the owner's tasks assembled into a forest.
func (m *Mediator) ListTasks(ctx context.Context) ([]*task.Task, error) {
	rows, err := m.selectRows(ctx, TableTasks)
	if err != nil {
		return nil, err
	}
	flat := make([]*task.Task, 0, len(rows))
	for _, row := range rows {
		t, err := DecodeTask(row)
		if err != nil {
			m.logger.Warn("skipping undecodable task row", "err", err)
			continue
		}
		flat = append(flat, t)
	}
	return task.BuildForest(flat), nil
}

// CreateProject persists a new project row.
func (m *Mediator) CreateProject(ctx context.Context, p *task.Project) error {
	return m.store.Insert(ctx, TableProjects, EncodeProject(m.ownerID, p))
}

// UpdateProject overwrites the remote project row.
func (m *Mediator) UpdateProject(ctx context.Context, p *task.Project) error {
	return m.store.Update(ctx, TableProjects, p.ID, EncodeProject(m.ownerID, p))
}

// DeleteProject removes the remote project row.
func (m *Mediator) DeleteProject(ctx context.Context, id string) error {
	return m.store.Delete(ctx, TableProjects, id)
}

// ListProjects returns the owner's projects.
func (m *Mediator) ListProjects(ctx context.Context) ([]*task.Project, error) {
	rows, err := m.selectRows(ctx, TableProjects)
	if err != nil {
		return nil, err
	}
	projects := make([]*task.Project, 0, len(rows))
	for _, row := range rows {
		p, err := DecodeProject(row)
		if err != nil {
			m.logger.Warn("skipping undecodable project row", "err", err)
			continue
		}
		projects = append(projects, p)
	}
	return projects, nil
}

// CreateTracking persists a new time-tracking row.
func (m *Mediator) CreateTracking(ctx context.Context, tt *task.TimeTracking) error {
	return m.store.Insert(ctx, TableTimeTrackings, EncodeTracking(m.ownerID, tt))
}

// UpdateTracking overwrites the remote time-tracking row.
func (m *Mediator) UpdateTracking(ctx context.Context, tt *task.TimeTracking) error {
	return m.store.Update(ctx, TableTimeTrackings, tt.ID, EncodeTracking(m.ownerID, tt))
}

// DeleteTracking removes the remote time-tracking row.
func (m *Mediator) DeleteTracking(ctx context.Context, id string) error {
	return m.store.Delete(ctx, TableTimeTrackings, id)
}

// ListTrackings returns the owner's time-tracking entries.
func (m *Mediator) ListTrackings(ctx context.Context) ([]*task.TimeTracking, error) {
	rows, err := m.selectRows(ctx, TableTimeTrackings)
	if err != nil {
		return nil, err
	}
	entries := make([]*task.TimeTracking, 0, len(rows))
	for _, row := range rows {
		tt, err := DecodeTracking(row)
		if err != nil {
			m.logger.Warn("skipping undecodable tracking row", "err", err)
			continue
		}
		entries = append(entries, tt)
	}
	return entries, nil
}

// CreateBlock persists a new time-block row.
func (m *Mediator) CreateBlock(ctx context.Context, b *task.TimeBlock) error {
	return m.store.Insert(ctx, TableTimeBlocks, EncodeBlock(m.ownerID, b))
}

// UpdateBlock overwrites the remote time-block row.
func (m *Mediator) UpdateBlock(ctx context.Context, b *task.TimeBlock) error {
	return m.store.Update(ctx, TableTimeBlocks, b.ID, EncodeBlock(m.ownerID, b))
}

// DeleteBlock removes the remote time-block row.
func (m *Mediator) DeleteBlock(ctx context.Context, id string) error {
	return m.store.Delete(ctx, TableTimeBlocks, id)
}

// ListBlocks returns the owner's time blocks.
func (m *Mediator) ListBlocks(ctx context.Context) ([]*task.TimeBlock, error) {
	rows, err := m.selectRows(ctx, TableTimeBlocks)
	if err != nil {
		return nil, err
	}
	blocks := make([]*task.TimeBlock, 0, len(rows))
	for _, row := range rows {
		b, err := DecodeBlock(row)
		if err != nil {
			m.logger.Warn("skipping undecodable time block row", "err", err)
			continue
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

// Subscribe registers fn for every change to the given table.
func (m *Mediator) Subscribe(ctx context.Context, table string, fn func(Change)) (func(), error) {
	return m.store.Subscribe(ctx, table, fn)
}
