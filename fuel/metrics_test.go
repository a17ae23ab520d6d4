package fuel

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func entry(id EntryID, occurredAt time.Time, odometer float64) RefuelEntry {
	return RefuelEntry{
		ID:          id,
		OccurredAt:  occurredAt,
		Odometer:    odometer,
		Volume:      dec("40"),
		TotalAmount: dec("60"),
	}
}

func assertDecimal(t *testing.T, want string, got *decimal.Decimal, field string) {
	t.Helper()
	if got == nil {
		t.Fatalf("%s: got nil, want %s", field, want)
	}
	if !got.Equal(dec(want)) {
		t.Errorf("%s: got %s, want %s", field, got, want)
	}
}

// =============================================================================
// DERIVED METRIC TESTS
// =============================================================================

func TestComputeDerived_FirstEntry(t *testing.T) {
	// GIVEN: A vehicle with no prior entries
	// WHEN: The first refuel is logged (35.00 L, 52.50 total)
	// THEN: Price is computed, distance and efficiency stay nil

	d := ComputeDerived(10000.0, dec("35.00"), dec("52.50"), nil)

	assertDecimal(t, "1.5", d.PricePerUnit, "price")
	if d.Distance != nil {
		t.Errorf("distance: got %v, want nil for first entry", *d.Distance)
	}
	if d.Efficiency != nil {
		t.Errorf("efficiency: got %s, want nil for first entry", d.Efficiency)
	}
}

func TestComputeDerived_SecondEntry(t *testing.T) {
	// GIVEN: A previous entry at odometer 10000.0
	// WHEN: A second refuel at 10400.0 (35.00 L, 52.50 total)
	// THEN: Price 1.50, distance 400.0, efficiency 11.43

	prev := entry(1, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), 10000.0)
	d := ComputeDerived(10400.0, dec("35.00"), dec("52.50"), &prev)

	assertDecimal(t, "1.5", d.PricePerUnit, "price")
	if d.Distance == nil || *d.Distance != 400.0 {
		t.Fatalf("distance: got %v, want 400.0", d.Distance)
	}
	assertDecimal(t, "11.43", d.Efficiency, "efficiency")
}

func TestComputeDerived_OdometerRegression(t *testing.T) {
	// GIVEN: A previous entry at odometer 10400.0
	// WHEN: A new entry reports a lower reading (rollover or typo)
	// THEN: Distance and efficiency are nil, price still computed

	prev := entry(1, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), 10400.0)
	d := ComputeDerived(10100.0, dec("30"), dec("45"), &prev)

	assertDecimal(t, "1.5", d.PricePerUnit, "price")
	if d.Distance != nil {
		t.Errorf("distance: got %v, want nil on regression", *d.Distance)
	}
	if d.Efficiency != nil {
		t.Errorf("efficiency: got %s, want nil on regression", d.Efficiency)
	}
}

func TestComputeDerived_EqualOdometer(t *testing.T) {
	// GIVEN: A previous entry at the exact same odometer reading
	// WHEN: A new entry is logged
	// THEN: Distance is 0.0 (not a regression), efficiency 0

	prev := entry(1, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), 10000.0)
	d := ComputeDerived(10000.0, dec("10"), dec("15"), &prev)

	if d.Distance == nil || *d.Distance != 0.0 {
		t.Fatalf("distance: got %v, want 0.0", d.Distance)
	}
	assertDecimal(t, "0", d.Efficiency, "efficiency")
}

func TestComputeDerived_NonPositiveVolume(t *testing.T) {
	// GIVEN: A zero volume (should be blocked by validation upstream)
	// WHEN: Derived fields are computed anyway
	// THEN: No division happens, price and efficiency stay nil

	prev := entry(1, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), 10000.0)
	d := ComputeDerived(10400.0, decimal.Zero, dec("52.50"), &prev)

	if d.PricePerUnit != nil {
		t.Errorf("price: got %s, want nil for zero volume", d.PricePerUnit)
	}
	if d.Distance == nil || *d.Distance != 400.0 {
		t.Fatalf("distance: got %v, want 400.0", d.Distance)
	}
	if d.Efficiency != nil {
		t.Errorf("efficiency: got %s, want nil for zero volume", d.Efficiency)
	}
}

func TestComputeDerived_Rounding(t *testing.T) {
	// GIVEN: Values that do not divide evenly
	// WHEN: Derived fields are computed
	// THEN: Price and efficiency round to 2 places, distance to 1

	prev := entry(1, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), 10000.04)
	d := ComputeDerived(10333.37, dec("37.1"), dec("55.55"), &prev)

	assertDecimal(t, "1.5", d.PricePerUnit, "price") // 55.55/37.1 = 1.4973...
	if d.Distance == nil || *d.Distance != 333.3 {
		t.Fatalf("distance: got %v, want 333.3", d.Distance)
	}
	assertDecimal(t, "8.98", d.Efficiency, "efficiency") // 333.3/37.1 = 8.9838...
}

// =============================================================================
// ORDERING TESTS
// =============================================================================

func TestPrecedes_TotalOrder(t *testing.T) {
	noon := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	later := noon.Add(time.Hour)

	a := entry(1, noon, 10000.0)
	b := entry(2, later, 10100.0)
	c := entry(3, noon, 10050.0) // same time as a, higher odometer
	d := entry(4, noon, 10000.0) // fully tied with a except id

	if !Precedes(&a, &b) {
		t.Error("earlier timestamp should precede")
	}
	if !Precedes(&a, &c) {
		t.Error("lower odometer should precede at equal timestamp")
	}
	if !Precedes(&a, &d) || Precedes(&d, &a) {
		t.Error("lower id should break full ties")
	}
}

func TestPrecedingEntry(t *testing.T) {
	// GIVEN: Three entries out of insertion order
	// WHEN: A new entry lands between the second and third
	// THEN: The second is its preceding entry

	noon := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := []RefuelEntry{
		entry(3, noon.Add(48*time.Hour), 10800.0),
		entry(1, noon, 10000.0),
		entry(2, noon.Add(24*time.Hour), 10400.0),
	}

	prev := PrecedingEntry(entries, noon.Add(30*time.Hour), 10600.0)
	if prev == nil || prev.ID != 2 {
		t.Fatalf("got %v, want entry 2", prev)
	}

	// Before everything: no preceding entry.
	if p := PrecedingEntry(entries, noon.Add(-time.Hour), 9000.0); p != nil {
		t.Errorf("got entry %d, want nil before all entries", p.ID)
	}

	// Tied on timestamp and odometer: the existing entry precedes the
	// new one.
	if p := PrecedingEntry(entries, noon, 10000.0); p == nil || p.ID != 1 {
		t.Errorf("got %v, want entry 1 on full tie", p)
	}
}
