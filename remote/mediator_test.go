package remote

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/tasktide/tasktide/cache"
	"github.com/tasktide/tasktide/task"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestMediator(t *testing.T) (*Mediator, *InMemoryStore) {
	t.Helper()
	store := NewInMemoryStore()
	med := NewMediator(store, "owner-1", cache.New[[]Row](16, time.Minute), discardLogger())
	return med, store
}

func TestMediator_TaskLifecycle(t *testing.T) {
	med, _ := newTestMediator(t)
	ctx := context.Background()

	parent := &task.Task{ID: "p", Title: "parent", Priority: task.PriorityMedium}
	child := &task.Task{ID: "c", Title: "child", ParentID: "p", Priority: task.PriorityLow}
	if err := med.CreateTask(ctx, parent); err != nil {
		t.Fatalf("CreateTask parent: %v", err)
	}
	if err := med.CreateTask(ctx, child); err != nil {
		t.Fatalf("CreateTask child: %v", err)
	}

	med.InvalidateLists(TableTasks)
	forest, err := med.ListTasks(ctx)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(forest) != 1 {
		t.Fatalf("got %d roots, want 1", len(forest))
	}
	got := task.Find(forest, "p")
	if got == nil || len(got.Children) != 1 || got.Children[0].ID != "c" {
		t.Fatalf("hierarchy not rebuilt: %+v", got)
	}

	parent.Title = "renamed"
	if err := med.UpdateTask(ctx, parent); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if err := med.DeleteTask(ctx, "c"); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}

	med.InvalidateLists(TableTasks)
	forest, err = med.ListTasks(ctx)
	if err != nil {
		t.Fatalf("ListTasks after update: %v", err)
	}
	if task.Find(forest, "c") != nil {
		t.Fatal("deleted task still listed")
	}
	if task.Find(forest, "p").Title != "renamed" {
		t.Fatal("update not visible")
	}
}

// TestMediator_ListCacheIsExplicit pins the deliberate staleness contract:
// a list read after a mutation returns the cached view until the caller
// invalidates.
func TestMediator_ListCacheIsExplicit(t *testing.T) {
	med, _ := newTestMediator(t)
	ctx := context.Background()

	if err := med.CreateProject(ctx, &task.Project{ID: "p1", Name: "one"}); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	first, err := med.ListProjects(ctx)
	if err != nil || len(first) != 1 {
		t.Fatalf("ListProjects: %v %v", first, err)
	}

	if err := med.CreateProject(ctx, &task.Project{ID: "p2", Name: "two"}); err != nil {
		t.Fatalf("CreateProject second: %v", err)
	}
	stale, err := med.ListProjects(ctx)
	if err != nil {
		t.Fatalf("ListProjects stale: %v", err)
	}
	if len(stale) != 1 {
		t.Fatalf("cache invalidated implicitly: got %d projects", len(stale))
	}

	med.InvalidateLists(TableProjects)
	fresh, err := med.ListProjects(ctx)
	if err != nil {
		t.Fatalf("ListProjects fresh: %v", err)
	}
	if len(fresh) != 2 {
		t.Fatalf("after invalidate: got %d projects, want 2", len(fresh))
	}
}

func TestMediator_RemoteErrorIsDistinguishable(t *testing.T) {
	med, store := newTestMediator(t)
	store.SetFailing(true)

	err := med.CreateTask(context.Background(), &task.Task{ID: "t1", Title: "x"})
	if err == nil {
		t.Fatal("expected error from failing store")
	}
	if !IsRemote(err) {
		t.Fatalf("error not recognized as remote: %v", err)
	}
}

func TestInMemoryStore_SubscribeDeliversAllEvents(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	var events []EventType
	unsubscribe, err := store.Subscribe(ctx, TableTasks, func(c Change) {
		events = append(events, c.Event)
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	row := Row{"id": "t1", "owner_id": "owner-1", "title": "x"}
	if err := store.Insert(ctx, TableTasks, row); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	row["title"] = "y"
	if err := store.Update(ctx, TableTasks, "t1", row); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := store.Delete(ctx, TableTasks, "t1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	want := []EventType{EventInsert, EventUpdate, EventDelete}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("events = %v, want %v", events, want)
		}
	}

	unsubscribe()
	if err := store.Insert(ctx, TableTasks, Row{"id": "t2", "owner_id": "owner-1"}); err != nil {
		t.Fatalf("Insert after unsubscribe: %v", err)
	}
	if len(events) != 3 {
		t.Fatal("subscriber invoked after unsubscribe")
	}
}

func TestInMemoryStore_SelectScopedByOwner(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	_ = store.Insert(ctx, TableTasks, Row{"id": "mine", "owner_id": "owner-1"})
	_ = store.Insert(ctx, TableTasks, Row{"id": "theirs", "owner_id": "owner-2"})

	rows, err := store.SelectByOwner(ctx, TableTasks, "owner-1")
	if err != nil {
		t.Fatalf("SelectByOwner: %v", err)
	}
	if len(rows) != 1 || rows[0]["id"] != "mine" {
		t.Fatalf("rows = %v, want only owner-1's row", rows)
	}
}
