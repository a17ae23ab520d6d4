/*
Package fuel provides the core entities and rules for refuel tracking.

PURPOSE:
  This package contains the domain types and pure algorithms for tracking
  vehicle fuel-refill history: accounts, their vehicles, refuel entries,
  and the metrics derived from consecutive entries.

KEY CONCEPTS IN THIS FILE (types.go):
  - Account: One external identity (e.g. a chat-platform user)
  - Vehicle: A tracked vehicle owned by an Account; at most one active
    vehicle per account carries the default flag
  - RefuelEntry: One fuel purchase with raw and derived fields
  - Typed identifiers: AccountID/VehicleID/EntryID prevent mixing ids

DESIGN PRINCIPLES:
  1. Precision: money and volume use decimal.Decimal, never float money
  2. Nullability: derived fields are pointers; nil means "not computable"
  3. Ownership: every reference is owning - vehicles belong to exactly one
     account, entries to exactly one vehicle
  4. Purity: derived fields are re-derivable from raw fields alone

SEE ALSO:
  - metrics.go: Derived-field computation
  - stats.go: Aggregation over entries
  - store.go: Persistence interface
  - errors.go: Error taxonomy
*/
package fuel

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type AccountID int64
type VehicleID int64
type EntryID int64

// DefaultRecentLimit bounds ListRecentRefuels when the caller passes no limit.
const DefaultRecentLimit = 10

// =============================================================================
// ACCOUNT - One tracked external identity
// =============================================================================

// Account represents one external identity. Accounts are created on first
// contact and soft-deactivated, never hard-deleted.
type Account struct {
	ID         AccountID
	ExternalID int64 // platform user id, unique and immutable
	Username   string
	FirstName  string
	LastName   string
	Active     bool
	Locale     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Profile carries the caller-supplied profile fields for an upsert.
// A nil field means "not supplied, leave untouched"; a non-nil field
// overwrites the stored value. The activity flag is never touched here.
type Profile struct {
	Username  *string
	FirstName *string
	LastName  *string
	Locale    *string
}

// =============================================================================
// VEHICLE - A tracked vehicle owned by an Account
// =============================================================================

type Vehicle struct {
	ID        VehicleID
	AccountID AccountID
	Name      string // unique per account among active vehicles, case-insensitive
	Make      string
	Model     string
	Year      int // 0 = unknown
	Plate     string
	Active    bool
	Default   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// VehicleSpec is the caller-supplied input for creating a vehicle.
type VehicleSpec struct {
	Name        string
	Make        string
	Model       string
	Year        int
	Plate       string
	MakeDefault bool
}

// =============================================================================
// REFUEL ENTRY - One fuel purchase, raw plus derived fields
// =============================================================================

// RefuelEntry is one fuel-purchase record. Raw fields come from the caller;
// derived fields are filled at creation time from the chronologically
// preceding entry of the same vehicle (see metrics.go) and are nil when not
// computable. Odometer and distance are kilometers; volume is liters.
type RefuelEntry struct {
	ID          EntryID
	VehicleID   VehicleID
	OccurredAt  time.Time
	Odometer    float64
	Volume      decimal.Decimal
	TotalAmount decimal.Decimal

	// Derived, nullable.
	PricePerUnit *decimal.Decimal // TotalAmount / Volume, 2dp
	Distance     *float64         // Odometer - previous Odometer, 1dp
	Efficiency   *decimal.Decimal // Distance / Volume, 2dp

	FuelType  string
	Station   string
	Comment   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RefuelInput is the caller-supplied input for logging a refuel.
// A zero OccurredAt means "now".
type RefuelInput struct {
	OccurredAt  time.Time
	Odometer    float64
	Volume      decimal.Decimal
	TotalAmount decimal.Decimal
	FuelType    string
	Station     string
	Comment     string
}

// Validate checks the raw fields. String length and format validation is the
// caller's job; this only guards the numeric domain the calculator and the
// aggregates rely on.
func (in RefuelInput) Validate() error {
	if !in.Volume.IsPositive() {
		return &ValidationError{Field: "volume", Reason: "must be positive"}
	}
	if in.Odometer < 0 {
		return &ValidationError{Field: "odometer", Reason: "must not be negative"}
	}
	if in.TotalAmount.IsNegative() {
		return &ValidationError{Field: "total_amount", Reason: "must not be negative"}
	}
	return nil
}
