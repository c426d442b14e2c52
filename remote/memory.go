package remote

import (
	"context"
	"errors"
	"sync"
)

// InMemoryStore is a Store held entirely in process memory. It backs tests
// and offline demo runs, and delivers change notifications the same way
// the real store does: synchronously, for every row change, to every
// subscriber of the table.
type InMemoryStore struct {
	mu      sync.Mutex
	tables  map[string]map[string]Row
	subs    map[string]map[int]func(Change)
	nextSub int
	failing bool
}

// NewInMemoryStore creates an empty InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		tables: make(map[string]map[string]Row),
		subs:   make(map[string]map[int]func(Change)),
	}
}

// SetFailing switches the store into (or out of) a state where every
// operation fails with a *Error, simulating lost connectivity.
func (s *InMemoryStore) SetFailing(failing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = failing
}

func (s *InMemoryStore) failure(op, table string) error {
	return &Error{Op: op, Table: table, Err: errors.New("store unreachable")}
}

// Insert creates a row keyed by its "id" column.
func (s *InMemoryStore) Insert(ctx context.Context, table string, row Row) error {
	s.mu.Lock()
	if s.failing {
		s.mu.Unlock()
		return s.failure("insert", table)
	}
	id, _ := row["id"].(string)
	if id == "" {
		s.mu.Unlock()
		return &Error{Op: "insert", Table: table, Err: errors.New("row without id")}
	}
	if s.tables[table] == nil {
		s.tables[table] = make(map[string]Row)
	}
	s.tables[table][id] = cloneRow(row)
	fns := s.subscribers(table)
	s.mu.Unlock()

	notify(fns, Change{Event: EventInsert, Row: cloneRow(row)})
	return nil
}

// Update overwrites the row with the given id.
func (s *InMemoryStore) Update(ctx context.Context, table, id string, row Row) error {
	s.mu.Lock()
	if s.failing {
		s.mu.Unlock()
		return s.failure("update", table)
	}
	if _, ok := s.tables[table][id]; !ok {
		s.mu.Unlock()
		return &Error{Op: "update", Table: table, Status: 404, Err: errors.New("row not found")}
	}
	s.tables[table][id] = cloneRow(row)
	fns := s.subscribers(table)
	s.mu.Unlock()

	notify(fns, Change{Event: EventUpdate, Row: cloneRow(row)})
	return nil
}

// Delete removes the row with the given id.
func (s *InMemoryStore) Delete(ctx context.Context, table, id string) error {
	s.mu.Lock()
	if s.failing {
		s.mu.Unlock()
		return s.failure("delete", table)
	}
	row, ok := s.tables[table][id]
	if !ok {
		s.mu.Unlock()
		return &Error{Op: "delete", Table: table, Status: 404, Err: errors.New("row not found")}
	}
	delete(s.tables[table], id)
	fns := s.subscribers(table)
	s.mu.Unlock()

	notify(fns, Change{Event: EventDelete, Row: cloneRow(row)})
	return nil
}

// SelectByOwner returns the rows whose owner_id column matches ownerID.
func (s *InMemoryStore) SelectByOwner(ctx context.Context, table, ownerID string) ([]Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return nil, s.failure("select", table)
	}
	var rows []Row
	for _, row := range s.tables[table] {
		if owner, _ := row["owner_id"].(string); owner == ownerID {
			rows = append(rows, cloneRow(row))
		}
	}
	return rows, nil
}

// Subscribe registers fn for every change to table. The returned function
// unsubscribes it.
func (s *InMemoryStore) Subscribe(ctx context.Context, table string, fn func(Change)) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subs[table] == nil {
		s.subs[table] = make(map[int]func(Change))
	}
	s.nextSub++
	id := s.nextSub
	s.subs[table][id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs[table], id)
	}, nil
}

func (s *InMemoryStore) subscribers(table string) []func(Change) {
	fns := make([]func(Change), 0, len(s.subs[table]))
	for _, fn := range s.subs[table] {
		fns = append(fns, fn)
	}
	return fns
}

func notify(fns []func(Change), change Change) {
	for _, fn := range fns {
		fn(change)
	}
}

func cloneRow(row Row) Row {
	cp := make(Row, len(row))
	for k, v := range row {
		cp[k] = v
	}
	return cp
}
