package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tasktide/tasktide/cache"
	"github.com/tasktide/tasktide/config"
	"github.com/tasktide/tasktide/identity"
	"github.com/tasktide/tasktide/remote"
	"github.com/tasktide/tasktide/server"
	"github.com/tasktide/tasktide/syncstore"
	"github.com/tasktide/tasktide/task"
)

func newTestServer(t *testing.T) (http.Handler, *syncstore.Store) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mem := remote.NewInMemoryStore()
	med := remote.NewMediator(mem, "owner-1", cache.New[[]remote.Row](16, time.Minute), logger)
	store := syncstore.New(med, identity.NewResolver(nil, logger), nil, logger)
	store.SetConnectivity(context.Background(), true)

	srv := server.New(*config.DefaultConfig(), store, "test", logger)
	return srv.Handler(), store
}

func doJSON(t *testing.T, mux http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func TestListTasks_Empty(t *testing.T) {
	mux, _ := newTestServer(t)
	rr := doJSON(t, mux, http.MethodGet, "/api/tasks", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var tasks []*task.Task
	if err := json.NewDecoder(rr.Body).Decode(&tasks); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tasks == nil {
		t.Error("expected empty array, not null")
	}
}

func TestCreateGetAndUpdateTask(t *testing.T) {
	mux, _ := newTestServer(t)

	rr := doJSON(t, mux, http.MethodPost, "/api/tasks", `{"title":"Write report","priority":"high"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var created task.Task
	if err := json.NewDecoder(rr.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !identity.IsValid(created.ID) {
		t.Errorf("expected generated stable id, got %q", created.ID)
	}

	rr2 := doJSON(t, mux, http.MethodGet, "/api/tasks/"+created.ID, "")
	if rr2.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d: %s", rr2.Code, rr2.Body.String())
	}

	rr3 := doJSON(t, mux, http.MethodPatch, "/api/tasks/"+created.ID, `{"completed":true}`)
	if rr3.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", rr3.Code, rr3.Body.String())
	}
	var updated task.Task
	if err := json.NewDecoder(rr3.Body).Decode(&updated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !updated.Completed || updated.Title != "Write report" {
		t.Errorf("partial update lost fields: %+v", updated)
	}
}

func TestGetTask_NotFound(t *testing.T) {
	mux, _ := newTestServer(t)
	rr := doJSON(t, mux, http.MethodGet, "/api/tasks/"+identity.New(), "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
}

func TestCreateTask_UnknownParentRejected(t *testing.T) {
	mux, _ := newTestServer(t)
	rr := doJSON(t, mux, http.MethodPost, "/api/tasks", `{"title":"orphan","parentId":"`+identity.New()+`"}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestUpdateTask_BadModeRejected(t *testing.T) {
	mux, store := newTestServer(t)
	created, err := store.AddTask(context.Background(), &task.Task{Title: "x"})
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	rr := doJSON(t, mux, http.MethodPatch, "/api/tasks/"+created.ID+"?mode=everything", `{"title":"y"}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}

func TestDeleteTask(t *testing.T) {
	mux, store := newTestServer(t)
	created, err := store.AddTask(context.Background(), &task.Task{Title: "doomed"})
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}

	rr := doJSON(t, mux, http.MethodDelete, "/api/tasks/"+created.ID, "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rr.Code, rr.Body.String())
	}
	if store.FindTask(created.ID) != nil {
		t.Error("task still present after delete")
	}
}

func TestProjectEndpoints(t *testing.T) {
	mux, _ := newTestServer(t)

	rr := doJSON(t, mux, http.MethodPost, "/api/projects", `{"name":"Inbox"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var created task.Project
	if err := json.NewDecoder(rr.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rr2 := doJSON(t, mux, http.MethodPatch, "/api/projects/"+created.ID, `{"name":"Renamed"}`)
	if rr2.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", rr2.Code, rr2.Body.String())
	}

	rr3 := doJSON(t, mux, http.MethodGet, "/api/projects", "")
	var projects []*task.Project
	if err := json.NewDecoder(rr3.Body).Decode(&projects); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(projects) != 1 || projects[0].Name != "Renamed" {
		t.Errorf("projects = %+v", projects)
	}
}

func TestTrackingEndpoints(t *testing.T) {
	mux, store := newTestServer(t)
	worked, err := store.AddTask(context.Background(), &task.Task{Title: "tracked"})
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}

	rr := doJSON(t, mux, http.MethodPost, "/api/trackings/start", `{"taskId":"`+worked.ID+`"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("start: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	rr2 := doJSON(t, mux, http.MethodGet, "/api/trackings/active", "")
	if rr2.Code != http.StatusOK {
		t.Fatalf("active: expected 200, got %d", rr2.Code)
	}

	rr3 := doJSON(t, mux, http.MethodPost, "/api/trackings/stop", "")
	if rr3.Code != http.StatusOK {
		t.Fatalf("stop: expected 200, got %d: %s", rr3.Code, rr3.Body.String())
	}

	// Stopping again is a validation error, not a server error
	rr4 := doJSON(t, mux, http.MethodPost, "/api/trackings/stop", "")
	if rr4.Code != http.StatusBadRequest {
		t.Errorf("second stop: expected 400, got %d", rr4.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	mux, _ := newTestServer(t)
	rr := doJSON(t, mux, http.MethodGet, "/api/status", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %v", resp["status"])
	}
	if online, ok := resp["online"].(bool); !ok || !online {
		t.Errorf("expected online true, got %v", resp["online"])
	}
}
