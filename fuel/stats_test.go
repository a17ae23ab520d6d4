package fuel

import (
	"testing"
	"time"
)

// =============================================================================
// AGGREGATION TESTS
// =============================================================================

func TestAggregateVehicle_Empty(t *testing.T) {
	// GIVEN: A vehicle with no refuel entries
	// WHEN: Stats are aggregated
	// THEN: Everything is zero, no error

	stats := AggregateVehicle(nil)

	if stats.TotalRefuels != 0 {
		t.Errorf("total refuels: got %d, want 0", stats.TotalRefuels)
	}
	if !stats.TotalVolume.IsZero() || !stats.TotalCost.IsZero() {
		t.Errorf("totals: got %s / %s, want zero", stats.TotalVolume, stats.TotalCost)
	}
	if !stats.AvgPricePerUnit.IsZero() || !stats.AvgEfficiency.IsZero() {
		t.Errorf("averages: got %s / %s, want zero", stats.AvgPricePerUnit, stats.AvgEfficiency)
	}
	if stats.TotalDistance != 0 {
		t.Errorf("distance: got %v, want 0", stats.TotalDistance)
	}
}

func TestAggregateVehicle_Totals(t *testing.T) {
	// GIVEN: Two entries, the first without derived distance/efficiency
	// WHEN: Stats are aggregated
	// THEN: Totals cover both; averages cover only entries with the field

	noon := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	first := RefuelEntry{
		ID:          1,
		OccurredAt:  noon,
		Odometer:    10000.0,
		Volume:      dec("35.00"),
		TotalAmount: dec("52.50"),
	}
	p1 := dec("1.5")
	first.PricePerUnit = &p1

	second := RefuelEntry{
		ID:          2,
		OccurredAt:  noon.Add(72 * time.Hour),
		Odometer:    10400.0,
		Volume:      dec("40.00"),
		TotalAmount: dec("64.00"),
	}
	p2 := dec("1.6")
	dist := 400.0
	eff := dec("10")
	second.PricePerUnit = &p2
	second.Distance = &dist
	second.Efficiency = &eff

	stats := AggregateVehicle([]RefuelEntry{first, second})

	if stats.TotalRefuels != 2 {
		t.Errorf("total refuels: got %d, want 2", stats.TotalRefuels)
	}
	if !stats.TotalVolume.Equal(dec("75")) {
		t.Errorf("total volume: got %s, want 75", stats.TotalVolume)
	}
	if !stats.TotalCost.Equal(dec("116.50")) {
		t.Errorf("total cost: got %s, want 116.50", stats.TotalCost)
	}
	if stats.TotalDistance != 400.0 {
		t.Errorf("total distance: got %v, want 400.0", stats.TotalDistance)
	}
	if !stats.AvgPricePerUnit.Equal(dec("1.55")) {
		t.Errorf("avg price: got %s, want 1.55", stats.AvgPricePerUnit)
	}
	// Only the second entry has efficiency; the average must not be
	// dragged down by the first.
	if !stats.AvgEfficiency.Equal(dec("10")) {
		t.Errorf("avg efficiency: got %s, want 10", stats.AvgEfficiency)
	}
}

func TestRefuelInput_Validate(t *testing.T) {
	base := RefuelInput{
		Odometer:    10000.0,
		Volume:      dec("35"),
		TotalAmount: dec("52.50"),
	}

	if err := base.Validate(); err != nil {
		t.Fatalf("valid input rejected: %v", err)
	}

	zeroVolume := base
	zeroVolume.Volume = dec("0")
	if err := zeroVolume.Validate(); !IsValidation(err) {
		t.Errorf("zero volume: got %v, want validation error", err)
	}

	negOdometer := base
	negOdometer.Odometer = -1
	if err := negOdometer.Validate(); !IsValidation(err) {
		t.Errorf("negative odometer: got %v, want validation error", err)
	}

	negTotal := base
	negTotal.TotalAmount = dec("-5")
	if err := negTotal.Validate(); !IsValidation(err) {
		t.Errorf("negative total: got %v, want validation error", err)
	}
}
