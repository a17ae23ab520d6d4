/*
stats.go - Aggregation over refuel entries

PURPOSE:
  Computes per-account and per-vehicle statistics. AggregateVehicle is a
  pure function over loaded entries so the same code backs every Store
  implementation; the count-only account stats are cheap enough for stores
  to answer directly.

NULL HANDLING:
  Averages are computed only over entries where the relevant derived field
  is non-nil. A vehicle with zero qualifying entries yields all-zero stats,
  never an error.
*/
package fuel

import "github.com/shopspring/decimal"

// AccountStats are counts scoped to one account's vehicles.
type AccountStats struct {
	VehicleCount int
	RefuelCount  int
}

// VehicleStats are totals and averages over one vehicle's refuel entries.
// Totals cover all entries; each average covers only the entries where its
// source derived field is present.
type VehicleStats struct {
	TotalRefuels    int
	TotalVolume     decimal.Decimal
	TotalCost       decimal.Decimal
	AvgPricePerUnit decimal.Decimal
	AvgEfficiency   decimal.Decimal
	TotalDistance   float64
}

// AggregateVehicle computes VehicleStats from a vehicle's entries.
func AggregateVehicle(entries []RefuelEntry) VehicleStats {
	stats := VehicleStats{
		TotalVolume:     decimal.Zero,
		TotalCost:       decimal.Zero,
		AvgPricePerUnit: decimal.Zero,
		AvgEfficiency:   decimal.Zero,
	}

	priceSum := decimal.Zero
	priceCount := 0
	effSum := decimal.Zero
	effCount := 0

	for _, e := range entries {
		stats.TotalRefuels++
		stats.TotalVolume = stats.TotalVolume.Add(e.Volume)
		stats.TotalCost = stats.TotalCost.Add(e.TotalAmount)

		if e.PricePerUnit != nil {
			priceSum = priceSum.Add(*e.PricePerUnit)
			priceCount++
		}
		if e.Efficiency != nil {
			effSum = effSum.Add(*e.Efficiency)
			effCount++
		}
		if e.Distance != nil {
			stats.TotalDistance += *e.Distance
		}
	}

	stats.TotalVolume = stats.TotalVolume.Round(2)
	stats.TotalCost = stats.TotalCost.Round(2)
	stats.TotalDistance = roundTo(stats.TotalDistance, 1)
	if priceCount > 0 {
		stats.AvgPricePerUnit = priceSum.Div(decimal.NewFromInt(int64(priceCount))).Round(2)
	}
	if effCount > 0 {
		stats.AvgEfficiency = effSum.Div(decimal.NewFromInt(int64(effCount))).Round(2)
	}

	return stats
}
