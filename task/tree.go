package task

// Find returns the task with the given id, searching depth-first with
// parents visited before children. It returns nil when no task matches.
// Identifiers are assumed unique; the first match wins.
func Find(forest []*Task, id string) *Task {
	for _, t := range forest {
		if t.ID == id {
			return t
		}
		if found := Find(t.Children, id); found != nil {
			return found
		}
	}
	return nil
}

// Update returns a new forest in which the task with the given id has been
// replaced by fn(task). fn receives a deep copy and may mutate it freely.
// Every other task is structurally copied with its children re-processed,
// so no task in the input forest is mutated in place. An absent id yields a
// forest equal to the input.
func Update(forest []*Task, id string, fn func(*Task) *Task) []*Task {
	if forest == nil {
		return nil
	}
	out := make([]*Task, 0, len(forest))
	for _, t := range forest {
		if t.ID == id {
			out = append(out, fn(t.Clone()))
			continue
		}
		cp := *t
		cp.Children = Update(t.Children, id, fn)
		out = append(out, &cp)
	}
	return out
}

// Delete removes the task with the given id wherever it occurs in the
// forest. Children of a deleted task are discarded with it; they are not
// re-parented. An absent id yields a forest equal to the input.
func Delete(forest []*Task, id string) []*Task {
	if forest == nil {
		return nil
	}
	out := make([]*Task, 0, len(forest))
	for _, t := range forest {
		if t.ID == id {
			continue
		}
		cp := *t
		cp.Children = Delete(t.Children, id)
		out = append(out, &cp)
	}
	return out
}

// Roots returns the tasks of the forest that have no parent.
func Roots(forest []*Task) []*Task {
	var roots []*Task
	for _, t := range forest {
		if t.ParentID == "" {
			roots = append(roots, t)
		}
	}
	return roots
}

// Flatten returns every task in the forest in depth-first order.
func Flatten(forest []*Task) []*Task {
	var all []*Task
	for _, t := range forest {
		all = append(all, t)
		all = append(all, Flatten(t.Children)...)
	}
	return all
}

// BuildForest assembles a hierarchy from flat tasks using their ParentID
// back-references. Input order is preserved among siblings. Tasks whose
// parent is missing from the input are treated as roots, and a task can
// never end up among its own descendants because each node is placed
// exactly once.
func BuildForest(flat []*Task) []*Task {
	byID := make(map[string]*Task, len(flat))
	for _, t := range flat {
		cp := *t
		cp.Children = nil
		byID[cp.ID] = &cp
	}
	var roots []*Task
	for _, t := range flat {
		node := byID[t.ID]
		if t.ParentID != "" && t.ParentID != t.ID {
			if parent, ok := byID[t.ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots
}
