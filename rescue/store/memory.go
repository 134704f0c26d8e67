// Package store provides rescue.Store implementations.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/harvestlink/rescue-engine/rescue"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	donors  map[string]rescue.Donor
	pickups map[string]rescue.PickupRequest

	// insertion sequence, tie-break for identical CreatedAt
	seq       int
	pickupSeq map[string]int
	donorSeq  map[string]int
}

func NewMemory() *Memory {
	return &Memory{
		donors:    make(map[string]rescue.Donor),
		pickups:   make(map[string]rescue.PickupRequest),
		pickupSeq: make(map[string]int),
		donorSeq:  make(map[string]int),
	}
}

// =============================================================================
// DONORS
// =============================================================================

func (m *Memory) InsertDonor(_ context.Context, d rescue.Donor) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.donors[d.ID]; ok {
		return rescue.ErrDonorExists
	}
	m.donors[d.ID] = d
	m.seq++
	m.donorSeq[d.ID] = m.seq
	return nil
}

func (m *Memory) UpdateDonor(_ context.Context, d rescue.Donor) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.donors[d.ID]; !ok {
		return rescue.ErrDonorNotFound
	}
	m.donors[d.ID] = d
	return nil
}

func (m *Memory) GetDonor(_ context.Context, id string) (*rescue.Donor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.donors[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (m *Memory) GetDonorByEmail(_ context.Context, email string) (*rescue.Donor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, d := range m.donors {
		if strings.EqualFold(d.Email, email) {
			d := d
			return &d, nil
		}
	}
	return nil, nil
}

func (m *Memory) ListDonors(_ context.Context) ([]rescue.Donor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]rescue.Donor, 0, len(m.donors))
	for _, d := range m.donors {
		result = append(result, d)
	}
	sort.Slice(result, func(i, j int) bool {
		return newerFirst(result[i].CreatedAt, result[j].CreatedAt,
			m.donorSeq[result[i].ID], m.donorSeq[result[j].ID])
	})
	return result, nil
}

func (m *Memory) CountDonors(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.donors), nil
}

// =============================================================================
// PICKUP REQUESTS
// =============================================================================

func (m *Memory) InsertPickup(_ context.Context, p rescue.PickupRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pickups[p.ID] = clonePickup(p)
	m.seq++
	m.pickupSeq[p.ID] = m.seq
	return nil
}

func (m *Memory) GetPickup(_ context.Context, id string) (*rescue.PickupRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.pickups[id]
	if !ok {
		return nil, nil
	}
	p = clonePickup(p)
	return &p, nil
}

func (m *Memory) ListPickups(_ context.Context, filter rescue.PickupFilter) ([]rescue.PickupRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]rescue.PickupRequest, 0)
	for _, p := range m.pickups {
		if filter.Matches(p) {
			result = append(result, clonePickup(p))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return newerFirst(result[i].CreatedAt, result[j].CreatedAt,
			m.pickupSeq[result[i].ID], m.pickupSeq[result[j].ID])
	})
	return result, nil
}

// UpdatePickup checks the version and applies the patch under one lock.
func (m *Memory) UpdatePickup(_ context.Context, id string, patch rescue.PickupPatch, expectedVersion int, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.pickups[id]
	if !ok {
		return rescue.ErrPickupNotFound
	}
	if expectedVersion != 0 && p.Version != expectedVersion {
		return rescue.ErrConcurrentModification
	}

	patch.Apply(&p)
	p.UpdatedAt = at
	p.Version++
	m.pickups[id] = p
	return nil
}

// clonePickup copies pointer fields so callers never alias stored state.
func clonePickup(p rescue.PickupRequest) rescue.PickupRequest {
	if p.ActualWeight != nil {
		w := *p.ActualWeight
		p.ActualWeight = &w
	}
	if p.ConfirmedAt != nil {
		t := *p.ConfirmedAt
		p.ConfirmedAt = &t
	}
	if p.CompletedAt != nil {
		t := *p.CompletedAt
		p.CompletedAt = &t
	}
	return p
}

func newerFirst(a, b time.Time, seqA, seqB int) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return seqA > seqB
}
