/*
metrics.go - Derived-metric computation for refuel entries

PURPOSE:
  Computes price-per-unit-volume, distance-since-previous, and fuel
  efficiency for a new entry given the chronologically preceding entry of
  the same vehicle. The computation is pure: given the same raw fields it
  always produces the same result, so derived columns can be recomputed or
  backfilled if the rules change.

RULES:
  price      = round(totalAmount / volume, 2)       when volume > 0
  distance   = round(odometer - prevOdometer, 1)    when a previous entry
               exists and odometer >= prevOdometer
  efficiency = round(distance / volume, 2)          when distance and
               volume > 0 are both available

  An odometer reading lower than the previous one is treated as invalid
  (rollover or typo): distance and efficiency stay nil, the raw reading is
  still stored. This is tolerant degradation, not data loss.

ORDERING:
  "Preceding" is defined by the total order (occurredAt, odometer, id).
  Precedes() implements it; stores use the same order when selecting the
  previous entry for a new row.
*/
package fuel

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Derived holds the computed fields for one refuel entry.
// Nil means the field is not computable from the available data.
type Derived struct {
	PricePerUnit *decimal.Decimal
	Distance     *float64
	Efficiency   *decimal.Decimal
}

// ComputeDerived fills the derived fields for a new entry. previous is the
// immediately preceding entry of the same vehicle, or nil for the first
// entry. The first entry always gets nil distance and efficiency.
func ComputeDerived(odometer float64, volume, totalAmount decimal.Decimal, previous *RefuelEntry) Derived {
	var d Derived

	if volume.IsPositive() {
		price := totalAmount.Div(volume).Round(2)
		d.PricePerUnit = &price
	}

	if previous != nil && odometer >= previous.Odometer {
		dist := roundTo(odometer-previous.Odometer, 1)
		d.Distance = &dist
	}

	if d.Distance != nil && volume.IsPositive() {
		eff := decimal.NewFromFloat(*d.Distance).Div(volume).Round(2)
		d.Efficiency = &eff
	}

	return d
}

// Precedes reports whether a comes strictly before b in the per-vehicle
// total order: occurrence timestamp, then odometer, then id. The order is
// total, so any set of entries for one vehicle has a well-defined
// "immediately preceding" entry.
func Precedes(a, b *RefuelEntry) bool {
	if !a.OccurredAt.Equal(b.OccurredAt) {
		return a.OccurredAt.Before(b.OccurredAt)
	}
	if a.Odometer != b.Odometer {
		return a.Odometer < b.Odometer
	}
	return a.ID < b.ID
}

// PrecedingEntry returns the latest existing entry that precedes a new
// entry at (occurredAt, odometer), or nil if none does. An existing entry
// tied on both timestamp and odometer precedes the new one, since the new
// row will receive a higher id.
func PrecedingEntry(entries []RefuelEntry, occurredAt time.Time, odometer float64) *RefuelEntry {
	var prev *RefuelEntry
	for i := range entries {
		e := &entries[i]
		if e.OccurredAt.After(occurredAt) {
			continue
		}
		if e.OccurredAt.Equal(occurredAt) && e.Odometer > odometer {
			continue
		}
		if prev == nil || Precedes(prev, e) {
			prev = e
		}
	}
	return prev
}

func roundTo(v float64, places int) float64 {
	shift := math.Pow(10, float64(places))
	return math.Round(v*shift) / shift
}
