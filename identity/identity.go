// Package identity validates stable entity identifiers and resolves legacy
// ones onto generated stable identifiers through a persisted mapping.
package identity

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// IsValid reports whether id is a canonical RFC 4122 version-4 UUID in the
// standard 8-4-4-4-12 form. Alternate encodings accepted by the uuid
// package (braced, URN, no dashes) are rejected.
func IsValid(id string) bool {
	if len(id) != 36 {
		return false
	}
	u, err := uuid.Parse(id)
	if err != nil {
		return false
	}
	return u.Version() == 4 && u.Variant() == uuid.RFC4122
}

// New returns a fresh stable identifier.
func New() string { return uuid.NewString() }

// MappingStore persists legacy→stable identifier mappings. The mapping is
// append-only: SaveMapping must not overwrite an existing legacy key.
type MappingStore interface {
	LookupMapping(legacyID string) (stableID string, ok bool, err error)
	SaveMapping(legacyID, stableID string) error
}

// Resolver maps legacy identifiers onto stable ones. Resolution is
// idempotent for the lifetime of the mapping store; when the store cannot
// be read or written, the resolver degrades to an in-process mapping that
// lasts for its own lifetime (logged, not fatal).
type Resolver struct {
	store  MappingStore
	logger *slog.Logger

	mu  sync.Mutex
	mem map[string]string // read-through cache and durability fallback
}

// NewResolver creates a Resolver backed by store. A nil store keeps all
// mappings in memory only.
func NewResolver(store MappingStore, logger *slog.Logger) *Resolver {
	return &Resolver{
		store:  store,
		logger: logger,
		mem:    make(map[string]string),
	}
}

// Resolve returns id unchanged when it is already a valid stable
// identifier. Otherwise it returns the stable identifier mapped to id,
// generating and persisting the mapping the first time the legacy id is
// seen. Repeated calls with the same input always return the same output.
func (r *Resolver) Resolve(id string) string {
	if IsValid(id) {
		return id
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if stable, ok := r.mem[id]; ok {
		return stable
	}
	if r.store != nil {
		stable, ok, err := r.store.LookupMapping(id)
		if err != nil {
			r.logger.Warn("identity mapping lookup failed", "legacy_id", id, "err", err)
		} else if ok {
			r.mem[id] = stable
			return stable
		}
	}

	stable := New()
	r.mem[id] = stable
	if r.store != nil {
		if err := r.store.SaveMapping(id, stable); err != nil {
			r.logger.Warn("identity mapping not persisted", "legacy_id", id, "err", err)
		}
	}
	return stable
}

// OwnerStore is the flat key/value surface the owner identity lives in.
type OwnerStore interface {
	Get(key string) (value string, ok bool, err error)
	Put(key, value string) error
}

const ownerKey = "owner_id"

// EnsureOwner returns the per-installation owner identity, generating and
// persisting it on first use. Unlike legacy resolution, a store failure
// here is fatal: every remote row is scoped by the owner identity, so an
// unavailable owner identity aborts the operation.
func EnsureOwner(store OwnerStore) (string, error) {
	owner, ok, err := store.Get(ownerKey)
	if err != nil {
		return "", fmt.Errorf("read owner identity: %w", err)
	}
	if ok && IsValid(owner) {
		return owner, nil
	}
	owner = New()
	if err := store.Put(ownerKey, owner); err != nil {
		return "", fmt.Errorf("persist owner identity: %w", err)
	}
	return owner, nil
}
