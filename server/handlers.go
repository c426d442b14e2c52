package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/tasktide/tasktide/remote"
	"github.com/tasktide/tasktide/syncstore"
	"github.com/tasktide/tasktide/task"
)

// errStatus maps store errors onto HTTP status codes: rejected input is the
// client's fault, a failed remote write is the upstream's.
func errStatus(err error) int {
	switch {
	case syncstore.IsValidation(err):
		return http.StatusBadRequest
	case remote.IsRemote(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func updateMode(r *http.Request) (task.UpdateMode, bool) {
	switch m := task.UpdateMode(r.URL.Query().Get("mode")); m {
	case "", task.UpdateSingle:
		return task.UpdateSingle, true
	case task.UpdateFuture, task.UpdateAll:
		return m, true
	}
	return "", false
}

func deleteMode(r *http.Request) (task.DeleteMode, bool) {
	switch m := task.DeleteMode(r.URL.Query().Get("mode")); m {
	case "", task.DeleteSingle:
		return task.DeleteSingle, true
	case task.DeleteFuture, task.DeleteAll:
		return m, true
	}
	return "", false
}

// --- Task handlers ---

func (s *Server) listTasks(w http.ResponseWriter, _ *http.Request) {
	tasks := s.store.Tasks()
	if tasks == nil {
		tasks = []*task.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var t task.Task
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	created, err := s.store.AddTask(r.Context(), &t)
	if err != nil {
		writeError(w, errStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	t := s.store.FindTask(r.PathValue("id"))
	if t == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	mode, ok := updateMode(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "mode must be single, future or all")
		return
	}
	existing := s.store.FindTask(id)
	if existing == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	// Decode partial update over the current state
	if err := json.NewDecoder(r.Body).Decode(existing); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	existing.ID = id // ensure ID is not overwritten

	if err := s.store.UpdateTask(r.Context(), existing, mode); err != nil {
		writeError(w, errStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.store.FindTask(id))
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	mode, ok := deleteMode(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "mode must be single, future or all")
		return
	}
	if err := s.store.DeleteTask(r.Context(), r.PathValue("id"), mode); err != nil {
		writeError(w, errStatus(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Project handlers ---

func (s *Server) listProjects(w http.ResponseWriter, _ *http.Request) {
	projects := s.store.Projects()
	if projects == nil {
		projects = []*task.Project{}
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	var p task.Project
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	created, err := s.store.AddProject(r.Context(), &p)
	if err != nil {
		writeError(w, errStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) updateProject(w http.ResponseWriter, r *http.Request) {
	var p task.Project
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	p.ID = r.PathValue("id")
	if err := s.store.UpdateProject(r.Context(), &p); err != nil {
		writeError(w, errStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) deleteProject(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteProject(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, errStatus(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Time block handlers ---

func (s *Server) listTimeBlocks(w http.ResponseWriter, _ *http.Request) {
	blocks := s.store.TimeBlocks()
	if blocks == nil {
		blocks = []*task.TimeBlock{}
	}
	writeJSON(w, http.StatusOK, blocks)
}

func (s *Server) createTimeBlock(w http.ResponseWriter, r *http.Request) {
	var b task.TimeBlock
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	created, err := s.store.AddTimeBlock(r.Context(), &b)
	if err != nil {
		writeError(w, errStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) updateTimeBlock(w http.ResponseWriter, r *http.Request) {
	var b task.TimeBlock
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	b.ID = r.PathValue("id")
	if err := s.store.UpdateTimeBlock(r.Context(), &b); err != nil {
		writeError(w, errStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) deleteTimeBlock(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteTimeBlock(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, errStatus(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Time tracking handlers ---

func (s *Server) listTrackings(w http.ResponseWriter, _ *http.Request) {
	entries := s.store.Trackings()
	if entries == nil {
		entries = []*task.TimeTracking{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) activeTracking(w http.ResponseWriter, _ *http.Request) {
	active := s.store.ActiveTracking()
	if active == nil {
		writeError(w, http.StatusNotFound, "no active tracking session")
		return
	}
	writeJSON(w, http.StatusOK, active)
}

type manualTrackingRequest struct {
	TaskID string    `json:"taskId"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Notes  string    `json:"notes"`
}

func (s *Server) addTracking(w http.ResponseWriter, r *http.Request) {
	var req manualTrackingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	entry, err := s.store.AddTracking(r.Context(), req.TaskID, req.Start, req.End, req.Notes)
	if err != nil {
		writeError(w, errStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) startTracking(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TaskID string `json:"taskId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	entry, err := s.store.StartTracking(r.Context(), req.TaskID)
	if err != nil {
		writeError(w, errStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) stopTracking(w http.ResponseWriter, r *http.Request) {
	entry, err := s.store.StopTracking(r.Context())
	if err != nil {
		writeError(w, errStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) updateTracking(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Minutes int    `json:"minutes"`
		Notes   string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	id := r.PathValue("id")
	if err := s.store.UpdateTrackingDuration(r.Context(), id, req.Minutes, req.Notes); err != nil {
		writeError(w, errStatus(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteTracking(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteTracking(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, errStatus(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
