package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tanklog/fuel-engine/fuel"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestAccount(t *testing.T, m *Memory) *fuel.Account {
	t.Helper()
	acc, err := m.UpsertAccount(context.Background(), 555001, fuel.Profile{})
	if err != nil {
		t.Fatalf("Failed to create account: %v", err)
	}
	return acc
}

func addVehicle(t *testing.T, m *Memory, accountID fuel.AccountID, name string, makeDefault bool) *fuel.Vehicle {
	t.Helper()
	v, err := m.CreateVehicle(context.Background(), accountID, fuel.VehicleSpec{
		Name:        name,
		MakeDefault: makeDefault,
	})
	if err != nil {
		t.Fatalf("Failed to create vehicle %q: %v", name, err)
	}
	return v
}

func refuelInput(occurredAt time.Time, odometer float64, volume, total string) fuel.RefuelInput {
	v, _ := decimal.NewFromString(volume)
	a, _ := decimal.NewFromString(total)
	return fuel.RefuelInput{
		OccurredAt:  occurredAt,
		Odometer:    odometer,
		Volume:      v,
		TotalAmount: a,
	}
}

// =============================================================================
// ACCOUNT TESTS
// =============================================================================

func TestMemory_UpsertAccount_Idempotent(t *testing.T) {
	// GIVEN: An account registered once
	// WHEN: The same external identity registers again with new profile data
	// THEN: The same surrogate id comes back, profile refreshed

	m := NewMemory()
	ctx := context.Background()

	name := "ada"
	first, err := m.UpsertAccount(ctx, 42, fuel.Profile{Username: &name})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	newName := "ada_l"
	second, err := m.UpsertAccount(ctx, 42, fuel.Profile{Username: &newName})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("ids differ: %d vs %d", first.ID, second.ID)
	}
	if second.Username != "ada_l" {
		t.Errorf("username: got %q, want ada_l", second.Username)
	}

	// Absent profile fields leave stored values alone.
	third, err := m.UpsertAccount(ctx, 42, fuel.Profile{})
	if err != nil {
		t.Fatalf("third upsert: %v", err)
	}
	if third.Username != "ada_l" {
		t.Errorf("username after empty profile: got %q, want ada_l", third.Username)
	}
}

func TestMemory_DeactivateAccount(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	acc := newTestAccount(t, m)

	if err := m.DeactivateAccount(ctx, acc.ExternalID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	got, err := m.GetAccount(ctx, acc.ExternalID)
	if err != nil {
		t.Fatalf("get after deactivate: %v", err)
	}
	if got.Active {
		t.Error("account still active after deactivation")
	}

	if err := m.DeactivateAccount(ctx, 999999); !fuel.IsNotFound(err) {
		t.Errorf("unknown account: got %v, want not-found", err)
	}
}

// =============================================================================
// DEFAULT VEHICLE INVARIANT TESTS
// =============================================================================

func TestMemory_FirstVehicleBecomesDefault(t *testing.T) {
	// GIVEN: An account with no vehicles
	// WHEN: "Civic" is added without asking for default, then "Truck" is
	//       added explicitly as default
	// THEN: Civic is default first, then Truck, never both

	m := NewMemory()
	ctx := context.Background()
	acc := newTestAccount(t, m)

	civic := addVehicle(t, m, acc.ID, "Civic", false)
	if !civic.Default {
		t.Error("first vehicle should be default regardless of the flag")
	}

	truck := addVehicle(t, m, acc.ID, "Truck", true)
	if !truck.Default {
		t.Error("explicitly requested default not honored")
	}

	vehicles, err := m.ListVehicles(ctx, acc.ID, true)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	defaults := 0
	for _, v := range vehicles {
		if v.Default {
			defaults++
		}
	}
	if defaults != 1 {
		t.Errorf("defaults: got %d, want exactly 1", defaults)
	}

	current, err := m.GetDefaultVehicle(ctx, acc.ID)
	if err != nil {
		t.Fatalf("get default: %v", err)
	}
	if current.ID != truck.ID {
		t.Errorf("default: got %q, want Truck", current.Name)
	}
}

func TestMemory_SetDefaultVehicle(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	acc := newTestAccount(t, m)

	civic := addVehicle(t, m, acc.ID, "Civic", false)
	truck := addVehicle(t, m, acc.ID, "Truck", false)

	if err := m.SetDefaultVehicle(ctx, acc.ID, truck.ID); err != nil {
		t.Fatalf("set default: %v", err)
	}
	current, _ := m.GetDefaultVehicle(ctx, acc.ID)
	if current.ID != truck.ID {
		t.Errorf("default: got %q, want Truck", current.Name)
	}

	// Setting the current default again is a no-op success.
	if err := m.SetDefaultVehicle(ctx, acc.ID, truck.ID); err != nil {
		t.Errorf("repeat set default: %v", err)
	}

	// Another account's vehicle is invisible.
	other, _ := m.UpsertAccount(ctx, 555002, fuel.Profile{})
	if err := m.SetDefaultVehicle(ctx, other.ID, civic.ID); !fuel.IsNotFound(err) {
		t.Errorf("foreign vehicle: got %v, want not-found", err)
	}
}

func TestMemory_DuplicateName_Rejected(t *testing.T) {
	m := NewMemory()
	acc := newTestAccount(t, m)

	addVehicle(t, m, acc.ID, "Civic", false)
	_, err := m.CreateVehicle(context.Background(), acc.ID, fuel.VehicleSpec{Name: "civic"})
	if !fuel.IsValidation(err) {
		t.Errorf("case-insensitive duplicate: got %v, want validation error", err)
	}
}

func TestMemory_DeleteVehicle_PromotesOldest(t *testing.T) {
	// GIVEN: Three vehicles, the first (and oldest) is default
	// WHEN: The default is deleted
	// THEN: The oldest remaining vehicle is promoted, entries are gone

	m := NewMemory()
	ctx := context.Background()
	acc := newTestAccount(t, m)

	civic := addVehicle(t, m, acc.ID, "Civic", false)
	truck := addVehicle(t, m, acc.ID, "Truck", false)
	addVehicle(t, m, acc.ID, "Van", false)

	when := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	if _, err := m.CreateRefuel(ctx, civic.ID, refuelInput(when, 10000.0, "35", "52.50")); err != nil {
		t.Fatalf("refuel: %v", err)
	}

	if err := m.DeleteVehicle(ctx, civic.ID, acc.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	current, err := m.GetDefaultVehicle(ctx, acc.ID)
	if err != nil {
		t.Fatalf("get default after delete: %v", err)
	}
	if current.ID != truck.ID {
		t.Errorf("promoted: got %q, want Truck (oldest remaining)", current.Name)
	}

	// Cascade removed the dead vehicle's entries.
	count, err := m.CountRefuels(ctx, civic.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Errorf("entries after cascade: got %d, want 0", count)
	}
}

func TestMemory_DeleteLastVehicle_NoDefaultLeft(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	acc := newTestAccount(t, m)

	only := addVehicle(t, m, acc.ID, "Civic", false)
	if err := m.DeleteVehicle(ctx, only.ID, acc.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := m.GetDefaultVehicle(ctx, acc.ID); !fuel.IsNotFound(err) {
		t.Errorf("default after last delete: got %v, want not-found", err)
	}
}

// =============================================================================
// REFUEL TESTS
// =============================================================================

func TestMemory_CreateRefuel_DerivedFields(t *testing.T) {
	// GIVEN: A first entry at odometer 10000.0
	// WHEN: A second entry lands at 10400.0 (35.00 L for 52.50)
	// THEN: The second carries price 1.50, distance 400.0, efficiency 11.43

	m := NewMemory()
	ctx := context.Background()
	acc := newTestAccount(t, m)
	v := addVehicle(t, m, acc.ID, "Civic", false)

	day1 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	first, err := m.CreateRefuel(ctx, v.ID, refuelInput(day1, 10000.0, "35.00", "52.50"))
	if err != nil {
		t.Fatalf("first refuel: %v", err)
	}
	if first.Distance != nil || first.Efficiency != nil {
		t.Error("first entry should have nil distance and efficiency")
	}

	second, err := m.CreateRefuel(ctx, v.ID, refuelInput(day1.Add(72*time.Hour), 10400.0, "35.00", "52.50"))
	if err != nil {
		t.Fatalf("second refuel: %v", err)
	}
	if second.PricePerUnit == nil || !second.PricePerUnit.Equal(decimal.NewFromFloat(1.5)) {
		t.Errorf("price: got %v, want 1.50", second.PricePerUnit)
	}
	if second.Distance == nil || *second.Distance != 400.0 {
		t.Errorf("distance: got %v, want 400.0", second.Distance)
	}
	want, _ := decimal.NewFromString("11.43")
	if second.Efficiency == nil || !second.Efficiency.Equal(want) {
		t.Errorf("efficiency: got %v, want 11.43", second.Efficiency)
	}
}

func TestMemory_CreateRefuel_OutOfOrder(t *testing.T) {
	// GIVEN: Entries at day 1 and day 5
	// WHEN: A backdated entry lands on day 3
	// THEN: Its derived fields come from the day-1 entry, not day-5

	m := NewMemory()
	ctx := context.Background()
	acc := newTestAccount(t, m)
	v := addVehicle(t, m, acc.ID, "Civic", false)

	day := func(n int) time.Time {
		return time.Date(2025, 3, n, 12, 0, 0, 0, time.UTC)
	}
	if _, err := m.CreateRefuel(ctx, v.ID, refuelInput(day(1), 10000.0, "35", "52.50")); err != nil {
		t.Fatalf("day 1: %v", err)
	}
	if _, err := m.CreateRefuel(ctx, v.ID, refuelInput(day(5), 10800.0, "35", "52.50")); err != nil {
		t.Fatalf("day 5: %v", err)
	}

	mid, err := m.CreateRefuel(ctx, v.ID, refuelInput(day(3), 10400.0, "35", "52.50"))
	if err != nil {
		t.Fatalf("day 3: %v", err)
	}
	if mid.Distance == nil || *mid.Distance != 400.0 {
		t.Errorf("backdated distance: got %v, want 400.0 (from day 1)", mid.Distance)
	}
}

func TestMemory_ListRecentRefuels_OrderAndLimit(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	acc := newTestAccount(t, m)
	v := addVehicle(t, m, acc.ID, "Civic", false)

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		in := refuelInput(base.Add(time.Duration(i)*24*time.Hour), 10000.0+float64(i)*100, "30", "45")
		if _, err := m.CreateRefuel(ctx, v.ID, in); err != nil {
			t.Fatalf("refuel %d: %v", i, err)
		}
	}

	entries, err := m.ListRecentRefuels(ctx, v.ID, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != fuel.DefaultRecentLimit {
		t.Fatalf("limit: got %d entries, want %d", len(entries), fuel.DefaultRecentLimit)
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].OccurredAt.After(entries[i-1].OccurredAt) {
			t.Fatal("entries not in newest-first order")
		}
	}
}

func TestMemory_DeleteRefuel_ScopedToVehicle(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	acc := newTestAccount(t, m)
	civic := addVehicle(t, m, acc.ID, "Civic", false)
	truck := addVehicle(t, m, acc.ID, "Truck", false)

	when := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	e, err := m.CreateRefuel(ctx, civic.ID, refuelInput(when, 10000.0, "35", "52.50"))
	if err != nil {
		t.Fatalf("refuel: %v", err)
	}

	if err := m.DeleteRefuel(ctx, e.ID, truck.ID); !fuel.IsNotFound(err) {
		t.Errorf("wrong vehicle: got %v, want not-found", err)
	}
	if err := m.DeleteRefuel(ctx, e.ID, civic.ID); err != nil {
		t.Errorf("delete: %v", err)
	}
	if err := m.DeleteRefuel(ctx, e.ID, civic.ID); !fuel.IsNotFound(err) {
		t.Errorf("repeat delete: got %v, want not-found", err)
	}
}

// =============================================================================
// STATS TESTS
// =============================================================================

func TestMemory_AccountStats(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	acc := newTestAccount(t, m)
	civic := addVehicle(t, m, acc.ID, "Civic", false)
	addVehicle(t, m, acc.ID, "Truck", false)

	when := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		in := refuelInput(when.Add(time.Duration(i)*24*time.Hour), 10000.0+float64(i)*100, "30", "45")
		if _, err := m.CreateRefuel(ctx, civic.ID, in); err != nil {
			t.Fatalf("refuel %d: %v", i, err)
		}
	}

	stats, err := m.AccountStats(ctx, acc.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.VehicleCount != 2 || stats.RefuelCount != 3 {
		t.Errorf("stats: got %+v, want 2 vehicles / 3 refuels", stats)
	}
}
