package syncstore

import (
	"context"
	"time"

	"github.com/tasktide/tasktide/identity"
	"github.com/tasktide/tasktide/task"
)

// Tasks returns a deep copy of the task forest.
func (s *Store) Tasks() []*task.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneForest(s.tasks)
}

// RootTasks returns a deep copy of the tasks without a parent.
func (s *Store) RootTasks() []*task.Task {
	return task.Roots(s.Tasks())
}

// FindTask returns a deep copy of the task with the given id, or nil.
func (s *Store) FindTask(id string) *task.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t := task.Find(s.tasks, s.resolver.Resolve(id)); t != nil {
		return t.Clone()
	}
	return nil
}

// Projects returns a copy of the project list.
func (s *Store) Projects() []*task.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneProjects(s.projects)
}

// TimeBlocks returns a copy of the time-block list.
func (s *Store) TimeBlocks() []*task.TimeBlock {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*task.TimeBlock, len(s.blocks))
	for i, b := range s.blocks {
		cp := *b
		out[i] = &cp
	}
	return out
}

// Trackings returns a copy of the time-tracking list.
func (s *Store) Trackings() []*task.TimeTracking {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*task.TimeTracking, len(s.trackings))
	for i, tt := range s.trackings {
		cp := *tt
		out[i] = &cp
	}
	return out
}

// ActiveTracking returns a copy of the running entry, or nil.
func (s *Store) ActiveTracking() *task.TimeTracking {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return nil
	}
	cp := *s.active
	return &cp
}

// AddTask materializes a new task optimistically and persists it. The id
// is generated when empty and resolved when legacy; a referenced parent or
// project that does not exist locally is a validation error.
func (s *Store) AddTask(ctx context.Context, t *task.Task) (*task.Task, error) {
	nt := t.Clone()
	nt.Children = nil
	if nt.ID == "" {
		nt.ID = identity.New()
	} else {
		nt.ID = s.resolver.Resolve(nt.ID)
	}
	if nt.ParentID != "" {
		nt.ParentID = s.resolver.Resolve(nt.ParentID)
	}
	if nt.Priority == "" {
		nt.Priority = task.PriorityMedium
	}
	nt.TrackedMinutes = 0

	s.mu.Lock()
	if nt.ProjectID != "" && findProject(s.projects, nt.ProjectID) == nil {
		s.mu.Unlock()
		return nil, validationf("project %s not found", nt.ProjectID)
	}
	if nt.ParentID != "" && task.Find(s.tasks, nt.ParentID) == nil {
		s.mu.Unlock()
		return nil, validationf("parent task %s not found", nt.ParentID)
	}
	nt.Revision = s.markPendingLocked(EntityTask, nt.ID)
	if nt.ParentID != "" {
		s.tasks = task.Update(s.tasks, nt.ParentID, func(p *task.Task) *task.Task {
			p.Children = append(p.Children, nt.Clone())
			return p
		})
	} else {
		s.tasks = append(s.tasks, nt.Clone())
	}
	s.mu.Unlock()

	s.persistSnapshot()
	s.emit("tasks")
	err := s.push(ctx, Mutation{Op: OpAdd, Entity: EntityTask, ID: nt.ID, Revision: nt.Revision, Payload: nt.Clone()})
	return nt, err
}

// applyTaskFields copies the caller-editable fields of src onto dst,
// leaving ownership and derived state (children, tracked minutes, parent
// and recurrence back-references) alone.
func applyTaskFields(dst, src *task.Task) {
	dst.Title = src.Title
	dst.Description = src.Description
	dst.Priority = src.Priority
	dst.DueDate = src.DueDate
	dst.ProjectID = src.ProjectID
	dst.Expanded = src.Expanded
	dst.Completed = src.Completed
	dst.TimeSlot = src.TimeSlot
	dst.Recurring = src.Recurring
	if src.Recurrence != nil {
		dst.Recurrence = src.Clone().Recurrence
	}
}

// updateTaskLocked applies fields to one task and marks it pending,
// returning a deep copy ready for remote persistence, or nil when the task
// is absent. asFamily preserves the target's own due date and recurring
// flag, so a family-wide edit does not collapse every instance onto one
// date or strip the template's recurring marker.
func (s *Store) updateTaskLocked(id string, fields *task.Task, asFamily bool) *task.Task {
	if task.Find(s.tasks, id) == nil {
		return nil
	}
	rev := s.markPendingLocked(EntityTask, id)
	var updated *task.Task
	s.tasks = task.Update(s.tasks, id, func(t *task.Task) *task.Task {
		due := t.DueDate
		recurring := t.Recurring
		applyTaskFields(t, fields)
		if asFamily {
			t.DueDate = due
			t.Recurring = recurring
		}
		t.Revision = rev
		updated = t.Clone()
		return t
	})
	updated.Children = nil
	return updated
}

// UpdateTask applies an edit to a task. For recurring tasks, mode widens
// the edit to the recurrence template and sibling instances: UpdateSingle
// touches only the given task, UpdateFuture also rewrites the template and
// every instance due on or after the edited one, UpdateAll rewrites the
// whole family.
func (s *Store) UpdateTask(ctx context.Context, t *task.Task, mode task.UpdateMode) error {
	id := s.resolver.Resolve(t.ID)
	if mode == "" {
		mode = task.UpdateSingle
	}

	s.mu.Lock()
	existing := task.Find(s.tasks, id)
	if existing == nil {
		s.mu.Unlock()
		return validationf("task %s not found", id)
	}
	targets := []string{id}
	if mode != task.UpdateSingle {
		targets = s.familyTargetsLocked(existing, mode == task.UpdateFuture)
	}
	var payloads []*task.Task
	for _, target := range targets {
		if updated := s.updateTaskLocked(target, t, target != id); updated != nil {
			payloads = append(payloads, updated)
		}
	}
	s.mu.Unlock()

	s.persistSnapshot()
	s.emit("tasks")
	var firstErr error
	for _, payload := range payloads {
		err := s.push(ctx, Mutation{Op: OpUpdate, Entity: EntityTask, ID: payload.ID, Revision: payload.Revision, Payload: payload})
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// familyTargetsLocked returns the ids of the recurrence family members an
// edit of t reaches: the template, t itself, and either every instance or
// only those due on or after t. A task outside any recurrence family is
// its own sole target.
func (s *Store) familyTargetsLocked(t *task.Task, futureOnly bool) []string {
	templateID := t.RecurrenceParentID
	if templateID == "" && t.Recurring {
		templateID = t.ID
	}
	if templateID == "" {
		return []string{t.ID}
	}

	targets := []string{}
	if task.Find(s.tasks, templateID) != nil {
		targets = append(targets, templateID)
	}
	boundary := t.DueDate
	for _, candidate := range task.Flatten(s.tasks) {
		if candidate.RecurrenceParentID != templateID {
			continue
		}
		if futureOnly && boundary != nil && candidate.DueDate != nil && candidate.DueDate.Before(*boundary) {
			continue
		}
		targets = append(targets, candidate.ID)
	}
	if !contains(targets, t.ID) {
		targets = append(targets, t.ID)
	}
	return targets
}

func contains(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

// deleteTaskLocked removes one task (cascading to its children) and marks
// the delete pending, returning the mutation to push. The cascade is local
// only: child rows are removed remotely by their own delete mutations.
func (s *Store) deleteTaskLocked(id string) []Mutation {
	node := task.Find(s.tasks, id)
	if node == nil {
		return nil
	}
	var muts []Mutation
	for _, doomed := range task.Flatten([]*task.Task{node}) {
		rev := s.markDeletedLocked(EntityTask, doomed.ID)
		muts = append(muts, Mutation{Op: OpDelete, Entity: EntityTask, ID: doomed.ID, Revision: rev})
	}
	s.tasks = task.Delete(s.tasks, id)
	return muts
}

// DeleteTask removes a task. DeleteSingle on a generated recurrence
// instance records an exception date on its template instead of touching
// the rest of the family; DeleteFuture removes the instances due on or
// after this one and closes the template's end boundary; DeleteAll removes
// the template and every instance. Deleting an id that is already gone is
// a no-op, tolerated for stale UI state.
func (s *Store) DeleteTask(ctx context.Context, id string, mode task.DeleteMode) error {
	id = s.resolver.Resolve(id)
	if mode == "" {
		mode = task.DeleteSingle
	}

	s.mu.Lock()
	target := task.Find(s.tasks, id)
	if target == nil {
		s.mu.Unlock()
		return nil
	}

	var muts []Mutation
	switch {
	case mode == task.DeleteSingle && target.RecurrenceParentID != "":
		muts = append(muts, s.recordExceptionLocked(target)...)
		muts = append(muts, s.deleteTaskLocked(id)...)

	case mode == task.DeleteFuture && (target.RecurrenceParentID != "" || target.Recurring):
		boundary := target.DueDate
		for _, member := range s.familyTargetsLocked(target, true) {
			if member == s.templateIDLocked(target) {
				continue
			}
			muts = append(muts, s.deleteTaskLocked(member)...)
		}
		muts = append(muts, s.closeTemplateLocked(target, boundary)...)

	case mode == task.DeleteAll && (target.RecurrenceParentID != "" || target.Recurring):
		// familyTargetsLocked lists the template first, then every instance.
		for _, member := range s.familyTargetsLocked(target, false) {
			muts = append(muts, s.deleteTaskLocked(member)...)
		}

	default:
		muts = s.deleteTaskLocked(id)
	}
	s.mu.Unlock()

	s.persistSnapshot()
	s.emit("tasks")
	var firstErr error
	for _, m := range muts {
		if err := s.push(ctx, m); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Store) templateIDLocked(t *task.Task) string {
	if t.RecurrenceParentID != "" {
		return t.RecurrenceParentID
	}
	if t.Recurring {
		return t.ID
	}
	return ""
}

// recordExceptionLocked adds the instance's due date to its template's
// exclusion list so the instance is not regenerated.
func (s *Store) recordExceptionLocked(instance *task.Task) []Mutation {
	templateID := instance.RecurrenceParentID
	if templateID == "" || instance.DueDate == nil {
		return nil
	}
	if task.Find(s.tasks, templateID) == nil {
		return nil
	}
	exception := instance.DueDate.UTC().Format("2006-01-02")
	rev := s.markPendingLocked(EntityTask, templateID)
	var payload *task.Task
	s.tasks = task.Update(s.tasks, templateID, func(template *task.Task) *task.Task {
		if template.Recurrence == nil {
			template.Recurrence = &task.RecurrencePattern{Frequency: task.FrequencyDaily}
		}
		if !contains(template.Recurrence.Exclusions, exception) {
			template.Recurrence.Exclusions = append(template.Recurrence.Exclusions, exception)
		}
		template.Revision = rev
		payload = template.Clone()
		return template
	})
	payload.Children = nil
	return []Mutation{{Op: OpUpdate, Entity: EntityTask, ID: templateID, Revision: rev, Payload: payload}}
}

// closeTemplateLocked sets the template's recurrence end boundary so no
// instances are generated on or after the boundary date.
func (s *Store) closeTemplateLocked(member *task.Task, boundary *time.Time) []Mutation {
	templateID := s.templateIDLocked(member)
	if templateID == "" || boundary == nil || task.Find(s.tasks, templateID) == nil {
		return nil
	}
	rev := s.markPendingLocked(EntityTask, templateID)
	var payload *task.Task
	s.tasks = task.Update(s.tasks, templateID, func(template *task.Task) *task.Task {
		if template.Recurrence == nil {
			template.Recurrence = &task.RecurrencePattern{Frequency: task.FrequencyDaily}
		}
		end := *boundary
		template.Recurrence.EndDate = &end
		template.Revision = rev
		payload = template.Clone()
		return template
	})
	payload.Children = nil
	return []Mutation{{Op: OpUpdate, Entity: EntityTask, ID: templateID, Revision: rev, Payload: payload}}
}

// AddProject materializes a new project optimistically and persists it.
func (s *Store) AddProject(ctx context.Context, p *task.Project) (*task.Project, error) {
	np := *p
	if np.ID == "" {
		np.ID = identity.New()
	} else {
		np.ID = s.resolver.Resolve(np.ID)
	}
	if np.Name == "" {
		return nil, validationf("project name required")
	}

	s.mu.Lock()
	rev := s.markPendingLocked(EntityProject, np.ID)
	cp := np
	s.projects = append(s.projects, &cp)
	s.mu.Unlock()

	s.persistSnapshot()
	s.emit("projects")
	payload := np
	err := s.push(ctx, Mutation{Op: OpAdd, Entity: EntityProject, ID: np.ID, Revision: rev, Payload: &payload})
	return &np, err
}

// UpdateProject overwrites a project's fields.
func (s *Store) UpdateProject(ctx context.Context, p *task.Project) error {
	id := s.resolver.Resolve(p.ID)

	s.mu.Lock()
	existing := findProject(s.projects, id)
	if existing == nil {
		s.mu.Unlock()
		return validationf("project %s not found", id)
	}
	rev := s.markPendingLocked(EntityProject, id)
	existing.Name = p.Name
	existing.Description = p.Description
	existing.Expanded = p.Expanded
	payload := *existing
	s.mu.Unlock()

	s.persistSnapshot()
	s.emit("projects")
	return s.push(ctx, Mutation{Op: OpUpdate, Entity: EntityProject, ID: id, Revision: rev, Payload: &payload})
}

// DeleteProject removes a project. Tasks referencing it keep their weak
// reference; they are not cascaded.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	id = s.resolver.Resolve(id)

	s.mu.Lock()
	if findProject(s.projects, id) == nil {
		s.mu.Unlock()
		return nil
	}
	rev := s.markDeletedLocked(EntityProject, id)
	out := s.projects[:0:0]
	for _, p := range s.projects {
		if p.ID != id {
			out = append(out, p)
		}
	}
	s.projects = out
	s.mu.Unlock()

	s.persistSnapshot()
	s.emit("projects")
	return s.push(ctx, Mutation{Op: OpDelete, Entity: EntityProject, ID: id, Revision: rev})
}

// AddTimeBlock materializes a new time block and persists it.
func (s *Store) AddTimeBlock(ctx context.Context, b *task.TimeBlock) (*task.TimeBlock, error) {
	nb := *b
	if nb.ID == "" {
		nb.ID = identity.New()
	} else {
		nb.ID = s.resolver.Resolve(nb.ID)
	}
	nb.TaskID = s.resolver.Resolve(nb.TaskID)

	s.mu.Lock()
	if task.Find(s.tasks, nb.TaskID) == nil {
		s.mu.Unlock()
		return nil, validationf("task %s not found", nb.TaskID)
	}
	rev := s.markPendingLocked(EntityTimeBlock, nb.ID)
	cp := nb
	s.blocks = append(s.blocks, &cp)
	s.mu.Unlock()

	s.emit("timeBlocks")
	payload := nb
	err := s.push(ctx, Mutation{Op: OpAdd, Entity: EntityTimeBlock, ID: nb.ID, Revision: rev, Payload: &payload})
	return &nb, err
}

// UpdateTimeBlock overwrites a time block's fields.
func (s *Store) UpdateTimeBlock(ctx context.Context, b *task.TimeBlock) error {
	id := s.resolver.Resolve(b.ID)

	s.mu.Lock()
	existing := findBlock(s.blocks, id)
	if existing == nil {
		s.mu.Unlock()
		return validationf("time block %s not found", id)
	}
	rev := s.markPendingLocked(EntityTimeBlock, id)
	existing.Date = b.Date
	existing.StartLabel = b.StartLabel
	existing.EndLabel = b.EndLabel
	payload := *existing
	s.mu.Unlock()

	s.emit("timeBlocks")
	return s.push(ctx, Mutation{Op: OpUpdate, Entity: EntityTimeBlock, ID: id, Revision: rev, Payload: &payload})
}

// DeleteTimeBlock removes a time block.
func (s *Store) DeleteTimeBlock(ctx context.Context, id string) error {
	id = s.resolver.Resolve(id)

	s.mu.Lock()
	if findBlock(s.blocks, id) == nil {
		s.mu.Unlock()
		return nil
	}
	rev := s.markDeletedLocked(EntityTimeBlock, id)
	out := s.blocks[:0:0]
	for _, b := range s.blocks {
		if b.ID != id {
			out = append(out, b)
		}
	}
	s.blocks = out
	s.mu.Unlock()

	s.emit("timeBlocks")
	return s.push(ctx, Mutation{Op: OpDelete, Entity: EntityTimeBlock, ID: id, Revision: rev})
}

// StartTracking begins a tracking session for the task. If a session is
// already running it is stopped first, then the new one starts — strictly
// in that order, so at most one entry is ever active.
func (s *Store) StartTracking(ctx context.Context, taskID string) (*task.TimeTracking, error) {
	taskID = s.resolver.Resolve(taskID)

	s.mu.Lock()
	if task.Find(s.tasks, taskID) == nil {
		s.mu.Unlock()
		return nil, validationf("task %s not found", taskID)
	}
	hasActive := s.active != nil
	s.mu.Unlock()

	if hasActive {
		if _, err := s.StopTracking(ctx); err != nil && !IsValidation(err) {
			return nil, err
		}
	}

	entry := &task.TimeTracking{
		ID:     identity.New(),
		TaskID: taskID,
		Start:  s.clock(),
	}

	s.mu.Lock()
	rev := s.markPendingLocked(EntityTimeTracking, entry.ID)
	cp := *entry
	s.trackings = append(s.trackings, &cp)
	s.active = &cp
	s.mu.Unlock()

	s.emit("timeTrackings")
	payload := *entry
	err := s.push(ctx, Mutation{Op: OpAdd, Entity: EntityTimeTracking, ID: entry.ID, Revision: rev, Payload: &payload})
	return entry, err
}

// StopTracking finalizes the active session, crediting its duration to the
// owning task.
func (s *Store) StopTracking(ctx context.Context) (*task.TimeTracking, error) {
	s.mu.Lock()
	if s.active == nil {
		s.mu.Unlock()
		return nil, validationf("no active tracking session")
	}
	entry := s.active
	entry.Stop(s.clock())
	s.active = nil
	trackingRev := s.markPendingLocked(EntityTimeTracking, entry.ID)
	stopped := *entry

	s.tasks = task.CreditTracked(s.tasks, entry.TaskID, entry.Minutes)
	var taskPayload *task.Task
	var taskRev int64
	if task.Find(s.tasks, entry.TaskID) != nil {
		taskRev = s.markPendingLocked(EntityTask, entry.TaskID)
		s.tasks = task.Update(s.tasks, entry.TaskID, func(t *task.Task) *task.Task {
			t.Revision = taskRev
			taskPayload = t.Clone()
			return t
		})
		taskPayload.Children = nil
	}
	s.mu.Unlock()

	s.persistSnapshot()
	s.emit("timeTrackings")
	s.emit("tasks")

	payload := stopped
	err := s.push(ctx, Mutation{Op: OpUpdate, Entity: EntityTimeTracking, ID: stopped.ID, Revision: trackingRev, Payload: &payload})
	if taskPayload != nil {
		if terr := s.push(ctx, Mutation{Op: OpUpdate, Entity: EntityTask, ID: taskPayload.ID, Revision: taskRev, Payload: taskPayload}); terr != nil && err == nil {
			err = terr
		}
	}
	return &stopped, err
}

// AddTracking records a manually entered, already-completed interval and
// credits its duration to the task.
func (s *Store) AddTracking(ctx context.Context, taskID string, start, end time.Time, notes string) (*task.TimeTracking, error) {
	taskID = s.resolver.Resolve(taskID)
	if end.Before(start) {
		return nil, validationf("tracking interval ends before it starts")
	}

	entry := &task.TimeTracking{
		ID:      identity.New(),
		TaskID:  taskID,
		Start:   start,
		Minutes: task.DurationMinutes(start, end),
		Notes:   notes,
	}
	stop := end
	entry.End = &stop

	s.mu.Lock()
	if task.Find(s.tasks, taskID) == nil {
		s.mu.Unlock()
		return nil, validationf("task %s not found", taskID)
	}
	rev := s.markPendingLocked(EntityTimeTracking, entry.ID)
	cp := *entry
	s.trackings = append(s.trackings, &cp)
	s.tasks = task.CreditTracked(s.tasks, taskID, entry.Minutes)
	taskRev := s.markPendingLocked(EntityTask, taskID)
	var taskPayload *task.Task
	s.tasks = task.Update(s.tasks, taskID, func(t *task.Task) *task.Task {
		t.Revision = taskRev
		taskPayload = t.Clone()
		return t
	})
	taskPayload.Children = nil
	s.mu.Unlock()

	s.persistSnapshot()
	s.emit("timeTrackings")
	s.emit("tasks")

	payload := *entry
	err := s.push(ctx, Mutation{Op: OpAdd, Entity: EntityTimeTracking, ID: entry.ID, Revision: rev, Payload: &payload})
	if terr := s.push(ctx, Mutation{Op: OpUpdate, Entity: EntityTask, ID: taskPayload.ID, Revision: taskRev, Payload: taskPayload}); terr != nil && err == nil {
		err = terr
	}
	return entry, err
}

// UpdateTrackingDuration edits a completed entry's duration, shifting the
// owning task's tracked minutes by the difference.
func (s *Store) UpdateTrackingDuration(ctx context.Context, id string, minutes int, notes string) error {
	id = s.resolver.Resolve(id)
	if minutes < 0 {
		return validationf("duration must not be negative")
	}

	s.mu.Lock()
	entry := findTracking(s.trackings, id)
	if entry == nil {
		s.mu.Unlock()
		return validationf("tracking entry %s not found", id)
	}
	if entry.Active() {
		s.mu.Unlock()
		return validationf("cannot edit an active tracking session")
	}
	old := entry.Minutes
	entry.Minutes = minutes
	entry.Notes = notes
	rev := s.markPendingLocked(EntityTimeTracking, id)
	payload := *entry

	s.tasks = task.ReviseTracked(s.tasks, entry.TaskID, old, minutes)
	var taskPayload *task.Task
	var taskRev int64
	if task.Find(s.tasks, entry.TaskID) != nil {
		taskRev = s.markPendingLocked(EntityTask, entry.TaskID)
		s.tasks = task.Update(s.tasks, entry.TaskID, func(t *task.Task) *task.Task {
			t.Revision = taskRev
			taskPayload = t.Clone()
			return t
		})
		taskPayload.Children = nil
	}
	s.mu.Unlock()

	s.persistSnapshot()
	s.emit("timeTrackings")
	s.emit("tasks")

	err := s.push(ctx, Mutation{Op: OpUpdate, Entity: EntityTimeTracking, ID: id, Revision: rev, Payload: &payload})
	if taskPayload != nil {
		if terr := s.push(ctx, Mutation{Op: OpUpdate, Entity: EntityTask, ID: taskPayload.ID, Revision: taskRev, Payload: taskPayload}); terr != nil && err == nil {
			err = terr
		}
	}
	return err
}

// DeleteTracking removes an entry, debiting its duration from the owning
// task (clamped at zero).
func (s *Store) DeleteTracking(ctx context.Context, id string) error {
	id = s.resolver.Resolve(id)

	s.mu.Lock()
	entry := findTracking(s.trackings, id)
	if entry == nil {
		s.mu.Unlock()
		return nil
	}
	rev := s.markDeletedLocked(EntityTimeTracking, id)
	out := s.trackings[:0:0]
	for _, tt := range s.trackings {
		if tt.ID != id {
			out = append(out, tt)
		}
	}
	s.trackings = out
	if s.active != nil && s.active.ID == id {
		s.active = nil
	}

	s.tasks = task.DebitTracked(s.tasks, entry.TaskID, entry.Minutes)
	var taskPayload *task.Task
	var taskRev int64
	if task.Find(s.tasks, entry.TaskID) != nil {
		taskRev = s.markPendingLocked(EntityTask, entry.TaskID)
		s.tasks = task.Update(s.tasks, entry.TaskID, func(t *task.Task) *task.Task {
			t.Revision = taskRev
			taskPayload = t.Clone()
			return t
		})
		taskPayload.Children = nil
	}
	s.mu.Unlock()

	s.persistSnapshot()
	s.emit("timeTrackings")
	s.emit("tasks")

	err := s.push(ctx, Mutation{Op: OpDelete, Entity: EntityTimeTracking, ID: id, Revision: rev})
	if taskPayload != nil {
		if terr := s.push(ctx, Mutation{Op: OpUpdate, Entity: EntityTask, ID: taskPayload.ID, Revision: taskRev, Payload: taskPayload}); terr != nil && err == nil {
			err = terr
		}
	}
	return err
}
