// Package metastore persists table profiles and semantic schemas keyed by
// table identifier. The pipeline must function correctly against an empty
// store, falling back to transient request-scoped enrichment.
package metastore

import (
	"sync"

	"github.com/subhatta123/bitool-sub002/internal/schema"
	"github.com/subhatta123/bitool-sub002/internal/semantic"
)

// Store is the read/write interface over persisted metadata. Reads return
// complete per-table snapshots: a caller never observes a partially updated
// record.
type Store interface {
	GetTableProfile(table string) (*schema.TableProfile, bool)
	PutTableProfile(profile *schema.TableProfile)
	GetSemanticSchema(table string) (*semantic.Schema, bool)
	PutSemanticSchema(s *semantic.Schema)
	HasSemanticSchema(table string) bool
}

// MemoryStore is an in-memory Store. Snapshots are stored as immutable values;
// a Put replaces the whole record under the lock so readers always see an
// internally consistent snapshot, stale or not.
type MemoryStore struct {
	mu        sync.RWMutex
	profiles  map[string]schema.TableProfile
	semantics map[string]semantic.Schema
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles:  make(map[string]schema.TableProfile),
		semantics: make(map[string]semantic.Schema),
	}
}

func (m *MemoryStore) GetTableProfile(table string) (*schema.TableProfile, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[table]
	if !ok {
		return nil, false
	}
	copied := p
	return &copied, true
}

func (m *MemoryStore) PutTableProfile(profile *schema.TableProfile) {
	if profile == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[profile.Name] = *profile
}

func (m *MemoryStore) GetSemanticSchema(table string) (*semantic.Schema, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.semantics[table]
	if !ok {
		return nil, false
	}
	copied := s
	copied.Persisted = true
	return &copied, true
}

func (m *MemoryStore) PutSemanticSchema(s *semantic.Schema) {
	if s == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.semantics[s.Table] = *s
}

func (m *MemoryStore) HasSemanticSchema(table string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.semantics[table]
	return ok
}
