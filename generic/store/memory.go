// Package store provides Store implementations.
package store

import (
	"bytes"
	"context"
	"slices"
	"sync"

	"github.com/warp/bookkeeper/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	collections map[generic.Collection][]generic.Record

	// FailOn makes the next matching operation fail; used by tests to
	// exercise persistence errors.
	FailOn func(op string, c generic.Collection) error
}

func NewMemory() *Memory {
	return &Memory{collections: make(map[generic.Collection][]generic.Record)}
}

func (m *Memory) LoadAll(_ context.Context, c generic.Collection) ([]generic.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.fail("load", c); err != nil {
		return nil, err
	}
	return cloneRecords(m.collections[c]), nil
}

// SaveAll upserts by id, keeping the position of existing records.
func (m *Memory) SaveAll(_ context.Context, c generic.Collection, records []generic.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("save", c); err != nil {
		return err
	}

	existing := m.collections[c]
	pos := make(map[string]int, len(existing))
	for i, r := range existing {
		pos[r.ID] = i
	}
	for _, r := range cloneRecords(records) {
		if i, ok := pos[r.ID]; ok {
			existing[i] = r
			continue
		}
		pos[r.ID] = len(existing)
		existing = append(existing, r)
	}
	m.collections[c] = existing
	return nil
}

func (m *Memory) ReplaceAll(_ context.Context, c generic.Collection, records []generic.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("replace", c); err != nil {
		return err
	}
	m.collections[c] = cloneRecords(records)
	return nil
}

// Reset drops every collection.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections = make(map[generic.Collection][]generic.Record)
}

func (m *Memory) fail(op string, c generic.Collection) error {
	if m.FailOn == nil {
		return nil
	}
	return m.FailOn(op, c)
}

func cloneRecords(in []generic.Record) []generic.Record {
	out := make([]generic.Record, len(in))
	for i, r := range in {
		out[i] = generic.Record{ID: r.ID, Data: bytes.Clone(r.Data)}
	}
	return out
}

// =============================================================================
// PROFILES - One Memory per business profile
// =============================================================================

var (
	_ generic.ProfileStore  = (*Profiles)(nil)
	_ generic.ProfileLister = (*Profiles)(nil)
)

// Profiles hands out an isolated Memory per profile id.
type Profiles struct {
	mu     sync.Mutex
	stores map[string]*Memory
}

func NewProfiles() *Profiles {
	return &Profiles{stores: make(map[string]*Memory)}
}

func (p *Profiles) ForProfile(id string) generic.Store {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.stores[id]
	if !ok {
		m = NewMemory()
		p.stores[id] = m
	}
	return m
}

// ResetProfile clears one profile.
func (p *Profiles) ResetProfile(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.stores, id)
	return nil
}

// ListProfiles returns every profile that has at least one record, sorted.
func (p *Profiles) ListProfiles(_ context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var ids []string
	for id, m := range p.stores {
		if !m.empty() {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func (m *Memory) empty() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, records := range m.collections {
		if len(records) > 0 {
			return false
		}
	}
	return true
}
