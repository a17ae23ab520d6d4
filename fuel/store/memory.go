// Package store provides an in-memory Store implementation for tests and
// demos. Every operation runs fully under one mutex, so the atomicity the
// Store contract requires holds trivially; the SQLite implementation is the
// production counterpart.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tanklog/fuel-engine/fuel"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	accounts    map[fuel.AccountID]*fuel.Account
	byExternal  map[int64]fuel.AccountID
	vehicles    map[fuel.VehicleID]*fuel.Vehicle
	entries     map[fuel.EntryID]*fuel.RefuelEntry
	nextAccount fuel.AccountID
	nextVehicle fuel.VehicleID
	nextEntry   fuel.EntryID
}

var _ fuel.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		accounts:   make(map[fuel.AccountID]*fuel.Account),
		byExternal: make(map[int64]fuel.AccountID),
		vehicles:   make(map[fuel.VehicleID]*fuel.Vehicle),
		entries:    make(map[fuel.EntryID]*fuel.RefuelEntry),
	}
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func (m *Memory) UpsertAccount(_ context.Context, externalID int64, profile fuel.Profile) (*fuel.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.byExternal[externalID]; ok {
		acc := m.accounts[id]
		if applyProfile(acc, profile) {
			acc.UpdatedAt = time.Now().UTC()
		}
		return cloneAccount(acc), nil
	}

	m.nextAccount++
	now := time.Now().UTC()
	acc := &fuel.Account{
		ID:         m.nextAccount,
		ExternalID: externalID,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	applyProfile(acc, profile)
	m.accounts[acc.ID] = acc
	m.byExternal[externalID] = acc.ID
	return cloneAccount(acc), nil
}

func (m *Memory) GetAccount(_ context.Context, externalID int64) (*fuel.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byExternal[externalID]
	if !ok {
		return nil, &fuel.NotFoundError{Entity: "account", ID: externalID}
	}
	return cloneAccount(m.accounts[id]), nil
}

func (m *Memory) DeactivateAccount(_ context.Context, externalID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byExternal[externalID]
	if !ok {
		return &fuel.NotFoundError{Entity: "account", ID: externalID}
	}
	acc := m.accounts[id]
	if acc.Active {
		acc.Active = false
		acc.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func applyProfile(acc *fuel.Account, p fuel.Profile) bool {
	changed := false
	if p.Username != nil && acc.Username != *p.Username {
		acc.Username = *p.Username
		changed = true
	}
	if p.FirstName != nil && acc.FirstName != *p.FirstName {
		acc.FirstName = *p.FirstName
		changed = true
	}
	if p.LastName != nil && acc.LastName != *p.LastName {
		acc.LastName = *p.LastName
		changed = true
	}
	if p.Locale != nil && acc.Locale != *p.Locale {
		acc.Locale = *p.Locale
		changed = true
	}
	return changed
}

// =============================================================================
// VEHICLES
// =============================================================================

func (m *Memory) CreateVehicle(_ context.Context, accountID fuel.AccountID, spec fuel.VehicleSpec) (*fuel.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[accountID]; !ok {
		return nil, &fuel.NotFoundError{Entity: "account", ID: int64(accountID)}
	}

	activeCount := 0
	for _, v := range m.vehicles {
		if v.AccountID != accountID || !v.Active {
			continue
		}
		if strings.EqualFold(v.Name, spec.Name) {
			return nil, &fuel.ValidationError{Field: "name", Reason: "already in use"}
		}
		activeCount++
	}

	// The first active vehicle is default regardless of caller intent.
	makeDefault := spec.MakeDefault || activeCount == 0
	if makeDefault {
		m.clearDefaultLocked(accountID)
	}

	m.nextVehicle++
	now := time.Now().UTC()
	v := &fuel.Vehicle{
		ID:        m.nextVehicle,
		AccountID: accountID,
		Name:      spec.Name,
		Make:      spec.Make,
		Model:     spec.Model,
		Year:      spec.Year,
		Plate:     spec.Plate,
		Active:    true,
		Default:   makeDefault,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.vehicles[v.ID] = v
	return cloneVehicle(v), nil
}

func (m *Memory) ListVehicles(_ context.Context, accountID fuel.AccountID, activeOnly bool) ([]fuel.Vehicle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []fuel.Vehicle
	for _, v := range m.vehicles {
		if v.AccountID != accountID {
			continue
		}
		if activeOnly && !v.Active {
			continue
		}
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Default != b.Default {
			return a.Default
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (m *Memory) GetVehicle(_ context.Context, vehicleID fuel.VehicleID, accountID fuel.AccountID) (*fuel.Vehicle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.vehicles[vehicleID]
	if !ok || v.AccountID != accountID {
		return nil, &fuel.NotFoundError{Entity: "vehicle", ID: int64(vehicleID)}
	}
	return cloneVehicle(v), nil
}

func (m *Memory) GetDefaultVehicle(_ context.Context, accountID fuel.AccountID) (*fuel.Vehicle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, v := range m.vehicles {
		if v.AccountID == accountID && v.Active && v.Default {
			return cloneVehicle(v), nil
		}
	}
	return nil, &fuel.NotFoundError{Entity: "default vehicle", ID: int64(accountID)}
}

func (m *Memory) SetDefaultVehicle(_ context.Context, accountID fuel.AccountID, vehicleID fuel.VehicleID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	target, ok := m.vehicles[vehicleID]
	if !ok || target.AccountID != accountID || !target.Active {
		return &fuel.NotFoundError{Entity: "vehicle", ID: int64(vehicleID)}
	}
	if target.Default {
		return nil // already the default
	}

	m.clearDefaultLocked(accountID)
	target.Default = true
	target.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) DeleteVehicle(_ context.Context, vehicleID fuel.VehicleID, accountID fuel.AccountID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.vehicles[vehicleID]
	if !ok || v.AccountID != accountID {
		return &fuel.NotFoundError{Entity: "vehicle", ID: int64(vehicleID)}
	}
	wasDefault := v.Default

	for id, e := range m.entries {
		if e.VehicleID == vehicleID {
			delete(m.entries, id)
		}
	}
	delete(m.vehicles, vehicleID)

	if wasDefault {
		if next := m.oldestActiveLocked(accountID); next != nil {
			next.Default = true
			next.UpdatedAt = time.Now().UTC()
		}
	}
	return nil
}

func (m *Memory) clearDefaultLocked(accountID fuel.AccountID) {
	for _, v := range m.vehicles {
		if v.AccountID == accountID && v.Active && v.Default {
			v.Default = false
			v.UpdatedAt = time.Now().UTC()
		}
	}
}

// oldestActiveLocked picks the replacement default: earliest creation time,
// ties broken by ascending id.
func (m *Memory) oldestActiveLocked(accountID fuel.AccountID) *fuel.Vehicle {
	var oldest *fuel.Vehicle
	for _, v := range m.vehicles {
		if v.AccountID != accountID || !v.Active {
			continue
		}
		if oldest == nil ||
			v.CreatedAt.Before(oldest.CreatedAt) ||
			(v.CreatedAt.Equal(oldest.CreatedAt) && v.ID < oldest.ID) {
			oldest = v
		}
	}
	return oldest
}

// =============================================================================
// REFUEL ENTRIES
// =============================================================================

func (m *Memory) CreateRefuel(_ context.Context, vehicleID fuel.VehicleID, input fuel.RefuelInput) (*fuel.RefuelEntry, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.vehicles[vehicleID]; !ok {
		return nil, &fuel.NotFoundError{Entity: "vehicle", ID: int64(vehicleID)}
	}

	now := time.Now().UTC()
	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = now
	}
	occurredAt = occurredAt.UTC()

	existing := m.entriesOfLocked(vehicleID)
	prev := fuel.PrecedingEntry(existing, occurredAt, input.Odometer)
	derived := fuel.ComputeDerived(input.Odometer, input.Volume, input.TotalAmount, prev)

	m.nextEntry++
	e := &fuel.RefuelEntry{
		ID:           m.nextEntry,
		VehicleID:    vehicleID,
		OccurredAt:   occurredAt,
		Odometer:     input.Odometer,
		Volume:       input.Volume,
		TotalAmount:  input.TotalAmount,
		PricePerUnit: derived.PricePerUnit,
		Distance:     derived.Distance,
		Efficiency:   derived.Efficiency,
		FuelType:     input.FuelType,
		Station:      input.Station,
		Comment:      input.Comment,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.entries[e.ID] = e
	return cloneEntry(e), nil
}

func (m *Memory) ListRecentRefuels(_ context.Context, vehicleID fuel.VehicleID, limit int) ([]fuel.RefuelEntry, error) {
	if limit <= 0 {
		limit = fuel.DefaultRecentLimit
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := m.entriesOfLocked(vehicleID)
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.OccurredAt.Equal(b.OccurredAt) {
			return a.OccurredAt.After(b.OccurredAt)
		}
		return a.ID > b.ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) DeleteRefuel(_ context.Context, entryID fuel.EntryID, vehicleID fuel.VehicleID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[entryID]
	if !ok || e.VehicleID != vehicleID {
		return &fuel.NotFoundError{Entity: "refuel entry", ID: int64(entryID)}
	}
	delete(m.entries, entryID)
	return nil
}

func (m *Memory) CountRefuels(_ context.Context, vehicleID fuel.VehicleID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, e := range m.entries {
		if e.VehicleID == vehicleID {
			count++
		}
	}
	return count, nil
}

func (m *Memory) entriesOfLocked(vehicleID fuel.VehicleID) []fuel.RefuelEntry {
	var out []fuel.RefuelEntry
	for _, e := range m.entries {
		if e.VehicleID == vehicleID {
			out = append(out, *e)
		}
	}
	return out
}

// =============================================================================
// STATS
// =============================================================================

func (m *Memory) AccountStats(_ context.Context, accountID fuel.AccountID) (fuel.AccountStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var stats fuel.AccountStats
	for _, v := range m.vehicles {
		if v.AccountID != accountID {
			continue
		}
		stats.VehicleCount++
		for _, e := range m.entries {
			if e.VehicleID == v.ID {
				stats.RefuelCount++
			}
		}
	}
	return stats, nil
}

func (m *Memory) VehicleStats(_ context.Context, vehicleID fuel.VehicleID) (fuel.VehicleStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return fuel.AggregateVehicle(m.entriesOfLocked(vehicleID)), nil
}

// =============================================================================
// COPY HELPERS - callers never share pointers with the store
// =============================================================================

func cloneAccount(a *fuel.Account) *fuel.Account {
	c := *a
	return &c
}

func cloneVehicle(v *fuel.Vehicle) *fuel.Vehicle {
	c := *v
	return &c
}

func cloneEntry(e *fuel.RefuelEntry) *fuel.RefuelEntry {
	c := *e
	return &c
}
