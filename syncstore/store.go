// Package syncstore owns the canonical in-memory state of the task manager
// and keeps it reconciled with the remote store: optimistic local mutation,
// asynchronous remote persistence, offline queueing with replay on
// reconnect, and remote-authoritative reloads driven by change
// notifications.
package syncstore

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/tasktide/tasktide/identity"
	"github.com/tasktide/tasktide/localstore"
	"github.com/tasktide/tasktide/remote"
	"github.com/tasktide/tasktide/task"
)

// SnapshotStore is the slice of local persistence the store needs for the
// instant-startup snapshot.
type SnapshotStore interface {
	Get(key string) (value string, ok bool, err error)
	Put(key, value string) error
}

// Event announces that one in-memory collection changed. UI layers
// subscribe to re-render.
type Event struct {
	Collection string `json:"collection"` // "tasks", "projects", "timeBlocks", "timeTrackings"
}

// Store is the composition root of the sync engine.
type Store struct {
	med       *remote.Mediator
	resolver  *identity.Resolver
	snapshots SnapshotStore
	logger    *slog.Logger
	clock     func() time.Time

	mu        sync.Mutex
	online    bool
	queue     *Queue
	tasks     []*task.Task
	projects  []*task.Project
	blocks    []*task.TimeBlock
	trackings []*task.TimeTracking
	active    *task.TimeTracking

	// revision is the monotonic counter behind optimistic edits; inflight
	// and deleted map "kind/id" to the revision of the newest local
	// mutation the remote store has not confirmed yet. Remote reloads must
	// not clobber those entities with stale rows.
	revision int64
	inflight map[string]int64
	deleted  map[string]int64

	subMu        sync.Mutex
	subs         map[int]func(Event)
	nextSub      int
	unsubscribes []func()
}

// New creates a Store. snapshots may be nil to disable local snapshots
// (tests); the store starts offline until connectivity is observed.
func New(med *remote.Mediator, resolver *identity.Resolver, snapshots SnapshotStore, logger *slog.Logger) *Store {
	return &Store{
		med:       med,
		resolver:  resolver,
		snapshots: snapshots,
		logger:    logger,
		clock:     time.Now,
		queue:     NewQueue(),
		inflight:  make(map[string]int64),
		deleted:   make(map[string]int64),
		subs:      make(map[int]func(Event)),
	}
}

// Load primes the in-memory state: first from the local snapshot so the UI
// has data before any network round-trip, then from the remote store, and
// finally registers the change-feed subscriptions. A remote failure leaves
// the snapshot state in place and is not fatal.
func (s *Store) Load(ctx context.Context) error {
	s.loadSnapshot()

	if err := s.reloadAll(ctx); err != nil {
		s.logger.Warn("initial remote load failed; serving snapshot", "err", err)
	} else {
		s.setOnline(ctx, true)
	}

	reloads := map[string]func(context.Context){
		remote.TableTasks:         s.reloadTasks,
		remote.TableProjects:      s.reloadProjects,
		remote.TableTimeBlocks:    s.reloadBlocks,
		remote.TableTimeTrackings: s.reloadTrackings,
	}
	for table, reload := range reloads {
		reload := reload
		unsubscribe, err := s.med.Subscribe(ctx, table, func(remote.Change) {
			// Any row change, from any client, triggers a full reload of
			// the collection; the remote view wins for that collection.
			reload(ctx)
		})
		if err != nil {
			s.logger.Warn("change feed unavailable", "table", table, "err", err)
			continue
		}
		s.unsubscribes = append(s.unsubscribes, unsubscribe)
	}
	return nil
}

// Close tears down change-feed subscriptions and writes a final snapshot.
func (s *Store) Close() error {
	for _, unsubscribe := range s.unsubscribes {
		unsubscribe()
	}
	s.unsubscribes = nil
	s.persistSnapshot()
	return nil
}

// SetConnectivity records the observed connectivity state. The false→true
// transition drains the reconciliation queue.
func (s *Store) SetConnectivity(ctx context.Context, online bool) {
	s.setOnline(ctx, online)
}

// Online reports the last recorded connectivity state.
func (s *Store) Online() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

// PendingMutations returns the size of the reconciliation queue.
func (s *Store) PendingMutations() int { return s.queue.Len() }

func (s *Store) setOnline(ctx context.Context, online bool) {
	s.mu.Lock()
	was := s.online
	s.online = online
	s.mu.Unlock()
	if online && !was {
		s.drain(ctx)
	}
}

// drain replays queued mutations in original order. Failures are appended
// to the now-current queue rather than the drained one.
func (s *Store) drain(ctx context.Context) {
	pending := s.queue.Drain()
	if len(pending) == 0 {
		return
	}
	s.logger.Info("replaying offline mutations", "count", len(pending))
	for _, m := range pending {
		if err := s.replay(ctx, m); err != nil {
			s.logger.Warn("replay failed; requeued", "op", m.Op, "entity", m.Entity, "id", m.ID, "err", err)
			s.queue.Enqueue(m)
			continue
		}
		s.confirm(m)
	}
	s.med.InvalidateLists()
}

// replay issues one mutation against the remote mediator.
func (s *Store) replay(ctx context.Context, m Mutation) error {
	switch m.Entity {
	case EntityTask:
		switch m.Op {
		case OpAdd:
			return s.med.CreateTask(ctx, m.Payload.(*task.Task))
		case OpUpdate:
			return s.med.UpdateTask(ctx, m.Payload.(*task.Task))
		case OpDelete:
			return s.med.DeleteTask(ctx, m.ID)
		}
	case EntityProject:
		switch m.Op {
		case OpAdd:
			return s.med.CreateProject(ctx, m.Payload.(*task.Project))
		case OpUpdate:
			return s.med.UpdateProject(ctx, m.Payload.(*task.Project))
		case OpDelete:
			return s.med.DeleteProject(ctx, m.ID)
		}
	case EntityTimeTracking:
		switch m.Op {
		case OpAdd:
			return s.med.CreateTracking(ctx, m.Payload.(*task.TimeTracking))
		case OpUpdate:
			return s.med.UpdateTracking(ctx, m.Payload.(*task.TimeTracking))
		case OpDelete:
			return s.med.DeleteTracking(ctx, m.ID)
		}
	case EntityTimeBlock:
		switch m.Op {
		case OpAdd:
			return s.med.CreateBlock(ctx, m.Payload.(*task.TimeBlock))
		case OpUpdate:
			return s.med.UpdateBlock(ctx, m.Payload.(*task.TimeBlock))
		case OpDelete:
			return s.med.DeleteBlock(ctx, m.ID)
		}
	}
	return validationf("unknown mutation %s %s", m.Op, m.Entity)
}

// push persists one mutation: enqueue while offline, write-through while
// online. An online failure is surfaced to the caller; the optimistic
// local change stays in place and is not retried automatically.
func (s *Store) push(ctx context.Context, m Mutation) error {
	s.mu.Lock()
	online := s.online
	s.mu.Unlock()

	if !online {
		s.queue.Enqueue(m)
		return nil
	}
	if err := s.replay(ctx, m); err != nil {
		s.logger.Warn("remote write failed; local change retained",
			"op", m.Op, "entity", m.Entity, "id", m.ID, "err", err)
		return err
	}
	s.confirm(m)
	s.med.InvalidateLists(tableFor(m.Entity))
	return nil
}

func tableFor(kind EntityKind) string {
	switch kind {
	case EntityTask:
		return remote.TableTasks
	case EntityProject:
		return remote.TableProjects
	case EntityTimeTracking:
		return remote.TableTimeTrackings
	case EntityTimeBlock:
		return remote.TableTimeBlocks
	}
	return ""
}

func pendingKey(kind EntityKind, id string) string {
	return string(kind) + "/" + id
}

func splitPendingKey(key string) (EntityKind, string) {
	kind, id, _ := strings.Cut(key, "/")
	return EntityKind(kind), id
}

// markPendingLocked records a local optimistic edit awaiting confirmation
// and returns its revision.
func (s *Store) markPendingLocked(kind EntityKind, id string) int64 {
	s.revision++
	key := pendingKey(kind, id)
	s.inflight[key] = s.revision
	delete(s.deleted, key)
	return s.revision
}

// markDeletedLocked records a local optimistic delete awaiting confirmation
// and returns its revision.
func (s *Store) markDeletedLocked(kind EntityKind, id string) int64 {
	s.revision++
	key := pendingKey(kind, id)
	s.deleted[key] = s.revision
	delete(s.inflight, key)
	return s.revision
}

// confirm clears the pending marker for a mutation, unless a newer local
// edit to the same entity has been recorded since.
func (s *Store) confirm(m Mutation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pendingKey(m.Entity, m.ID)
	if rev, ok := s.inflight[key]; ok && rev == m.Revision {
		delete(s.inflight, key)
	}
	if rev, ok := s.deleted[key]; ok && rev == m.Revision {
		delete(s.deleted, key)
	}
}

// Subscribe registers fn for collection-change events. The returned
// function unsubscribes it.
func (s *Store) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.nextSub++
	id := s.nextSub
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) emit(collection string) {
	s.subMu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(Event{Collection: collection})
	}
}

// snapshot is the locally persisted startup state.
type snapshot struct {
	Tasks    []*task.Task    `json:"tasks"`
	Projects []*task.Project `json:"projects"`
}

func (s *Store) loadSnapshot() {
	if s.snapshots == nil {
		return
	}
	raw, ok, err := s.snapshots.Get(localstore.KeySnapshot)
	if err != nil {
		s.logger.Warn("snapshot read failed", "err", err)
		return
	}
	if !ok {
		return
	}
	var snap snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		s.logger.Warn("snapshot corrupt; ignoring", "err", err)
		return
	}
	s.mu.Lock()
	s.tasks = snap.Tasks
	s.projects = snap.Projects
	s.mu.Unlock()
}

// persistSnapshot writes the current forest and project list. Failures are
// logged only: the snapshot is an optimization, not the source of truth.
func (s *Store) persistSnapshot() {
	if s.snapshots == nil {
		return
	}
	s.mu.Lock()
	snap := snapshot{Tasks: cloneForest(s.tasks), Projects: cloneProjects(s.projects)}
	s.mu.Unlock()

	raw, err := json.Marshal(snap)
	if err != nil {
		s.logger.Warn("snapshot encode failed", "err", err)
		return
	}
	if err := s.snapshots.Put(localstore.KeySnapshot, string(raw)); err != nil {
		s.logger.Warn("snapshot write failed", "err", err)
	}
}

// reloadAll refreshes every collection from the remote store.
func (s *Store) reloadAll(ctx context.Context) error {
	s.med.InvalidateLists()
	forest, err := s.med.ListTasks(ctx)
	if err != nil {
		return err
	}
	projects, err := s.med.ListProjects(ctx)
	if err != nil {
		return err
	}
	blocks, err := s.med.ListBlocks(ctx)
	if err != nil {
		return err
	}
	trackings, err := s.med.ListTrackings(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.tasks = s.overlayTasksLocked(forest)
	s.projects = s.overlayProjectsLocked(projects)
	s.blocks = s.overlayBlocksLocked(blocks)
	s.trackings = s.overlayTrackingsLocked(trackings)
	s.resetActiveLocked()
	s.mu.Unlock()

	s.persistSnapshot()
	s.emit("tasks")
	s.emit("projects")
	s.emit("timeBlocks")
	s.emit("timeTrackings")
	return nil
}

func (s *Store) reloadTasks(ctx context.Context) {
	s.med.InvalidateLists(remote.TableTasks)
	forest, err := s.med.ListTasks(ctx)
	if err != nil {
		s.logger.Warn("task reload failed; previous state retained", "err", err)
		return
	}
	s.mu.Lock()
	s.tasks = s.overlayTasksLocked(forest)
	s.mu.Unlock()
	s.persistSnapshot()
	s.emit("tasks")
}

func (s *Store) reloadProjects(ctx context.Context) {
	s.med.InvalidateLists(remote.TableProjects)
	projects, err := s.med.ListProjects(ctx)
	if err != nil {
		s.logger.Warn("project reload failed; previous state retained", "err", err)
		return
	}
	s.mu.Lock()
	s.projects = s.overlayProjectsLocked(projects)
	s.mu.Unlock()
	s.persistSnapshot()
	s.emit("projects")
}

func (s *Store) reloadBlocks(ctx context.Context) {
	s.med.InvalidateLists(remote.TableTimeBlocks)
	blocks, err := s.med.ListBlocks(ctx)
	if err != nil {
		s.logger.Warn("time block reload failed; previous state retained", "err", err)
		return
	}
	s.mu.Lock()
	s.blocks = s.overlayBlocksLocked(blocks)
	s.mu.Unlock()
	s.emit("timeBlocks")
}

func (s *Store) reloadTrackings(ctx context.Context) {
	s.med.InvalidateLists(remote.TableTimeTrackings)
	trackings, err := s.med.ListTrackings(ctx)
	if err != nil {
		s.logger.Warn("tracking reload failed; previous state retained", "err", err)
		return
	}
	s.mu.Lock()
	s.trackings = s.overlayTrackingsLocked(trackings)
	s.resetActiveLocked()
	s.mu.Unlock()
	s.emit("timeTrackings")
}

// overlayTasksLocked merges a remote-authoritative forest with local edits
// the remote store has not confirmed yet: unconfirmed deletes stay deleted,
// and entities with a newer local revision keep their local field values.
// Everything else is overwritten by the remote view (last writer wins).
func (s *Store) overlayTasksLocked(forest []*task.Task) []*task.Task {
	for key := range s.deleted {
		if kind, id := splitPendingKey(key); kind == EntityTask {
			forest = task.Delete(forest, id)
		}
	}
	for key := range s.inflight {
		kind, id := splitPendingKey(key)
		if kind != EntityTask {
			continue
		}
		local := task.Find(s.tasks, id)
		if local == nil {
			continue
		}
		if task.Find(forest, id) != nil {
			forest = task.Update(forest, id, func(n *task.Task) *task.Task {
				keep := local.Clone()
				keep.Children = n.Children
				return keep
			})
			continue
		}
		keep := local.Clone()
		if keep.ParentID != "" && task.Find(forest, keep.ParentID) != nil {
			forest = task.Update(forest, keep.ParentID, func(p *task.Task) *task.Task {
				p.Children = append(p.Children, keep)
				return p
			})
		} else {
			forest = append(forest, keep)
		}
	}
	return forest
}

func (s *Store) overlayProjectsLocked(projects []*task.Project) []*task.Project {
	out := projects[:0:0]
	for _, p := range projects {
		if _, gone := s.deleted[pendingKey(EntityProject, p.ID)]; gone {
			continue
		}
		if _, pending := s.inflight[pendingKey(EntityProject, p.ID)]; pending {
			if local := findProject(s.projects, p.ID); local != nil {
				cp := *local
				out = append(out, &cp)
				continue
			}
		}
		out = append(out, p)
	}
	for key := range s.inflight {
		kind, id := splitPendingKey(key)
		if kind != EntityProject || findProject(out, id) != nil {
			continue
		}
		if local := findProject(s.projects, id); local != nil {
			cp := *local
			out = append(out, &cp)
		}
	}
	return out
}

func (s *Store) overlayBlocksLocked(blocks []*task.TimeBlock) []*task.TimeBlock {
	out := blocks[:0:0]
	for _, b := range blocks {
		if _, gone := s.deleted[pendingKey(EntityTimeBlock, b.ID)]; gone {
			continue
		}
		if _, pending := s.inflight[pendingKey(EntityTimeBlock, b.ID)]; pending {
			if local := findBlock(s.blocks, b.ID); local != nil {
				cp := *local
				out = append(out, &cp)
				continue
			}
		}
		out = append(out, b)
	}
	for key := range s.inflight {
		kind, id := splitPendingKey(key)
		if kind != EntityTimeBlock || findBlock(out, id) != nil {
			continue
		}
		if local := findBlock(s.blocks, id); local != nil {
			cp := *local
			out = append(out, &cp)
		}
	}
	return out
}

func (s *Store) overlayTrackingsLocked(trackings []*task.TimeTracking) []*task.TimeTracking {
	out := trackings[:0:0]
	for _, tt := range trackings {
		if _, gone := s.deleted[pendingKey(EntityTimeTracking, tt.ID)]; gone {
			continue
		}
		if _, pending := s.inflight[pendingKey(EntityTimeTracking, tt.ID)]; pending {
			if local := findTracking(s.trackings, tt.ID); local != nil {
				cp := *local
				out = append(out, &cp)
				continue
			}
		}
		out = append(out, tt)
	}
	for key := range s.inflight {
		kind, id := splitPendingKey(key)
		if kind != EntityTimeTracking || findTracking(out, id) != nil {
			continue
		}
		if local := findTracking(s.trackings, id); local != nil {
			cp := *local
			out = append(out, &cp)
		}
	}
	return out
}

// resetActiveLocked re-derives the single active entry from the tracking
// collection.
func (s *Store) resetActiveLocked() {
	s.active = nil
	for _, tt := range s.trackings {
		if tt.Active() {
			s.active = tt
			return
		}
	}
}

func findProject(projects []*task.Project, id string) *task.Project {
	for _, p := range projects {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func findBlock(blocks []*task.TimeBlock, id string) *task.TimeBlock {
	for _, b := range blocks {
		if b.ID == id {
			return b
		}
	}
	return nil
}

func findTracking(trackings []*task.TimeTracking, id string) *task.TimeTracking {
	for _, tt := range trackings {
		if tt.ID == id {
			return tt
		}
	}
	return nil
}

func cloneForest(forest []*task.Task) []*task.Task {
	out := make([]*task.Task, len(forest))
	for i, t := range forest {
		out[i] = t.Clone()
	}
	return out
}

func cloneProjects(projects []*task.Project) []*task.Project {
	out := make([]*task.Project, len(projects))
	for i, p := range projects {
		cp := *p
		out[i] = &cp
	}
	return out
}
