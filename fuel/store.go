/*
store.go - Persistence interface for accounts, vehicles, and refuel entries

PURPOSE:
  Defines the contract between the domain and the database. Every mutating
  operation executes inside one atomic transaction: either the whole change
  commits or none of it does. Partial application - a default flag cleared
  on one vehicle but not set on another - must never be observable.

DEFAULT-VEHICLE INVARIANT:
  Among one account's active vehicles, exactly one carries the default flag
  whenever the account has at least one active vehicle, and zero otherwise.
  CreateVehicle, SetDefaultVehicle, and DeleteVehicle maintain this inside
  their transactions:
  - the account's first active vehicle becomes default unconditionally,
    overriding an explicit MakeDefault=false
  - SetDefaultVehicle clears every current default, then sets the target;
    re-setting the current default is a no-op success
  - deleting the default vehicle promotes the oldest remaining active
    vehicle (ties broken by ascending id), or leaves no default if none

OWNERSHIP SCOPING:
  Reads and deletes that take both an entity id and an owner id treat a
  mismatch as NotFound, never as a distinct "forbidden" case.

RETRY SAFETY:
  UpsertAccount, SetDefaultVehicle, and DeleteVehicle are idempotent, so
  blind retry after a transient failure is safe. CreateVehicle and
  CreateRefuel carry no idempotency token; retrying them can double-insert
  if the original attempt committed.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite with cascading foreign keys
  - fuel/store:   In-memory, for tests and demos

SEE ALSO:
  - errors.go: Error kinds every operation may return
*/
package fuel

import "context"

// Store is the durable entity store.
type Store interface {
	// UpsertAccount returns the existing account for externalID, applying
	// any supplied profile fields, or creates it with Active=true.
	// Idempotent under repeated calls with identical input.
	UpsertAccount(ctx context.Context, externalID int64, profile Profile) (*Account, error)

	// GetAccount looks an account up by its external identity.
	GetAccount(ctx context.Context, externalID int64) (*Account, error)

	// DeactivateAccount clears the activity flag. Accounts are never
	// hard-deleted.
	DeactivateAccount(ctx context.Context, externalID int64) error

	// CreateVehicle adds a vehicle for the account. Fails with a
	// ValidationError if an active vehicle with the same case-insensitive
	// name exists. The default flag is maintained per the invariant above.
	CreateVehicle(ctx context.Context, accountID AccountID, spec VehicleSpec) (*Vehicle, error)

	// ListVehicles returns the account's vehicles ordered default-first,
	// then creation time descending, ties by ascending id.
	ListVehicles(ctx context.Context, accountID AccountID, activeOnly bool) ([]Vehicle, error)

	// GetVehicle is ownership-scoped: a vehicle not belonging to the
	// account is NotFound.
	GetVehicle(ctx context.Context, vehicleID VehicleID, accountID AccountID) (*Vehicle, error)

	// GetDefaultVehicle returns the account's default vehicle, or NotFound
	// if the account has no active vehicles.
	GetDefaultVehicle(ctx context.Context, accountID AccountID) (*Vehicle, error)

	// SetDefaultVehicle makes the target the account's default. NotFound if
	// the target is missing, inactive, or owned by another account.
	SetDefaultVehicle(ctx context.Context, accountID AccountID, vehicleID VehicleID) error

	// DeleteVehicle removes the vehicle and cascades to its refuel entries.
	// Deleting the last vehicle is permitted here; refusing it is command-
	// layer policy, not a store rule.
	DeleteVehicle(ctx context.Context, vehicleID VehicleID, accountID AccountID) error

	// CreateRefuel logs a refuel with derived fields computed from the
	// chronologically preceding entry of the same vehicle.
	CreateRefuel(ctx context.Context, vehicleID VehicleID, input RefuelInput) (*RefuelEntry, error)

	// ListRecentRefuels returns entries newest-first (occurrence timestamp,
	// ties by descending id). limit <= 0 means DefaultRecentLimit.
	ListRecentRefuels(ctx context.Context, vehicleID VehicleID, limit int) ([]RefuelEntry, error)

	// DeleteRefuel removes one entry, scoped to its vehicle.
	DeleteRefuel(ctx context.Context, entryID EntryID, vehicleID VehicleID) error

	// CountRefuels returns the number of entries for a vehicle.
	CountRefuels(ctx context.Context, vehicleID VehicleID) (int, error)

	// AccountStats returns counts scoped to the account's vehicles.
	AccountStats(ctx context.Context, accountID AccountID) (AccountStats, error)

	// VehicleStats aggregates the vehicle's entries; zero entries yield
	// all-zero stats, not an error.
	VehicleStats(ctx context.Context, vehicleID VehicleID) (VehicleStats, error)
}
