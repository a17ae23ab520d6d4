/*
Package sqlite provides the SQLite-backed implementation of fuel.Store.

PURPOSE:
  Durable CRUD for accounts, vehicles, and refuel entries. In production,
  the same patterns apply to PostgreSQL - only minor SQL dialect
  differences.

INVARIANT ENFORCEMENT:
  The multi-row "one default vehicle per account" invariant is maintained
  with clear-then-set inside a single transaction, and backed by a partial
  unique index so a concurrent race cannot commit two defaults - it
  surfaces as fuel.ErrConstraint instead:

    CREATE UNIQUE INDEX idx_vehicles_one_default
        ON vehicles(account_id) WHERE is_default AND is_active

  Case-insensitive name uniqueness among an account's active vehicles is
  likewise a partial unique index on (account_id, lower(name)).

CASCADING DELETES:
  Declared as ON DELETE CASCADE foreign keys; the DSN enables
  _foreign_keys=on. Deleting an account row removes its vehicles, deleting
  a vehicle removes its refuel entries. No object-graph traversal.

ERROR MAPPING:
  Driver failures are mapped onto the fuel error taxonomy: busy/locked and
  context timeouts become ErrTransientStorage (retryable), index
  violations become ValidationError or ConstraintError depending on which
  index fired, everything else is ErrFatalStorage.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency.

USAGE:
  store, err := sqlite.New("./data/fuel.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - fuel/store.go: Interface definition and operation contracts
  - fuel/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/tanklog/fuel-engine/fuel"
)

// Store implements fuel.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ fuel.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Accounts (one per external identity; soft-deactivated, never deleted)
	CREATE TABLE IF NOT EXISTS accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		external_id INTEGER NOT NULL UNIQUE,
		username TEXT NOT NULL DEFAULT '',
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		locale TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Vehicles (owned by one account; cascade from the account row)
	CREATE TABLE IF NOT EXISTS vehicles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		account_id INTEGER NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		make TEXT NOT NULL DEFAULT '',
		model TEXT NOT NULL DEFAULT '',
		year INTEGER NOT NULL DEFAULT 0,
		plate TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		is_default BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_vehicles_account_name
		ON vehicles(account_id, name);
	CREATE INDEX IF NOT EXISTS idx_vehicles_account_default
		ON vehicles(account_id, is_default);

	-- CRITICAL: at most one default among an account's active vehicles.
	-- Turns a clear-then-set race into a detectable constraint violation.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_vehicles_one_default
		ON vehicles(account_id) WHERE is_default AND is_active;

	-- No two active vehicles of one account share a name, case-insensitively.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_vehicles_active_name
		ON vehicles(account_id, lower(name)) WHERE is_active;

	-- Refuel entries (owned by one vehicle; cascade from the vehicle row)
	CREATE TABLE IF NOT EXISTS refuels (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		vehicle_id INTEGER NOT NULL REFERENCES vehicles(id) ON DELETE CASCADE,
		occurred_at TEXT NOT NULL,
		odometer REAL NOT NULL,
		volume TEXT NOT NULL,
		total_amount TEXT NOT NULL,
		price_per_unit TEXT,
		distance REAL,
		efficiency TEXT,
		fuel_type TEXT NOT NULL DEFAULT '',
		station TEXT NOT NULL DEFAULT '',
		comment TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_refuels_vehicle_occurred
		ON refuels(vehicle_id, occurred_at);
	CREATE INDEX IF NOT EXISTS idx_refuels_vehicle_odometer
		ON refuels(vehicle_id, odometer);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ACCOUNTS
// =============================================================================

const accountColumns = `id, external_id, username, first_name, last_name, is_active, locale, created_at, updated_at`

// UpsertAccount returns the existing account for externalID, applying any
// supplied profile fields, or creates it with is_active=true.
func (s *Store) UpsertAccount(ctx context.Context, externalID int64, profile fuel.Profile) (*fuel.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var acc *fuel.Account
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := scanAccount(tx.QueryRowContext(ctx,
			`SELECT `+accountColumns+` FROM accounts WHERE external_id = ?`, externalID))
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return mapError(err)
		}

		now := time.Now().UTC()
		if existing != nil {
			if applyProfile(existing, profile) {
				existing.UpdatedAt = now
				_, err := tx.ExecContext(ctx,
					`UPDATE accounts SET username = ?, first_name = ?, last_name = ?, locale = ?, updated_at = ? WHERE id = ?`,
					existing.Username, existing.FirstName, existing.LastName,
					existing.Locale, formatTime(now), existing.ID)
				if err != nil {
					return mapError(err)
				}
			}
			acc = existing
			return nil
		}

		created := &fuel.Account{ExternalID: externalID, Active: true, CreatedAt: now, UpdatedAt: now}
		applyProfile(created, profile)
		res, err := tx.ExecContext(ctx,
			`INSERT INTO accounts (external_id, username, first_name, last_name, is_active, locale, created_at, updated_at)
			 VALUES (?, ?, ?, ?, TRUE, ?, ?, ?)`,
			externalID, created.Username, created.FirstName, created.LastName,
			created.Locale, formatTime(now), formatTime(now))
		if err != nil {
			return mapError(err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return mapError(err)
		}
		created.ID = fuel.AccountID(id)
		acc = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// GetAccount looks an account up by its external identity.
func (s *Store) GetAccount(ctx context.Context, externalID int64) (*fuel.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, err := scanAccount(s.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE external_id = ?`, externalID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &fuel.NotFoundError{Entity: "account", ID: externalID}
	}
	if err != nil {
		return nil, mapError(err)
	}
	return acc, nil
}

// DeactivateAccount clears the activity flag.
func (s *Store) DeactivateAccount(ctx context.Context, externalID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET is_active = FALSE, updated_at = ? WHERE external_id = ?`,
		formatTime(time.Now().UTC()), externalID)
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if n == 0 {
		return &fuel.NotFoundError{Entity: "account", ID: externalID}
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

const vehicleColumns = `id, account_id, name, make, model, year, plate, is_active, is_default, created_at, updated_at`

// CreateVehicle adds a vehicle, maintaining the default-vehicle invariant
// in the same transaction.
func (s *Store) CreateVehicle(ctx context.Context, accountID fuel.AccountID, spec fuel.VehicleSpec) (*fuel.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var created *fuel.Vehicle
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM accounts WHERE id = ?`, accountID).Scan(&exists)
		if err != nil {
			return mapError(err)
		}
		if exists == 0 {
			return &fuel.NotFoundError{Entity: "account", ID: int64(accountID)}
		}

		var duplicate int
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM vehicles WHERE account_id = ? AND is_active AND lower(name) = lower(?)`,
			accountID, spec.Name).Scan(&duplicate)
		if err != nil {
			return mapError(err)
		}
		if duplicate > 0 {
			return &fuel.ValidationError{Field: "name", Reason: "already in use"}
		}

		var activeCount int
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM vehicles WHERE account_id = ? AND is_active`, accountID).Scan(&activeCount)
		if err != nil {
			return mapError(err)
		}

		// The account's first active vehicle is default no matter what the
		// caller asked for.
		makeDefault := spec.MakeDefault || activeCount == 0
		if makeDefault {
			if err := clearDefault(ctx, tx, accountID); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		res, err := tx.ExecContext(ctx,
			`INSERT INTO vehicles (account_id, name, make, model, year, plate, is_active, is_default, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, TRUE, ?, ?, ?)`,
			accountID, spec.Name, spec.Make, spec.Model, spec.Year, spec.Plate,
			makeDefault, formatTime(now), formatTime(now))
		if err != nil {
			return mapError(err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return mapError(err)
		}

		created = &fuel.Vehicle{
			ID:        fuel.VehicleID(id),
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
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ListVehicles returns the account's vehicles, default-first, then newest
// first, ties by ascending id.
func (s *Store) ListVehicles(ctx context.Context, accountID fuel.AccountID, activeOnly bool) ([]fuel.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE account_id = ?`
	if activeOnly {
		query += ` AND is_active`
	}
	query += ` ORDER BY is_default DESC, created_at DESC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var vehicles []fuel.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, mapError(err)
		}
		vehicles = append(vehicles, *v)
	}
	return vehicles, mapError(rows.Err())
}

// GetVehicle is ownership-scoped: a mismatch is NotFound.
func (s *Store) GetVehicle(ctx context.Context, vehicleID fuel.VehicleID, accountID fuel.AccountID) (*fuel.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, err := scanVehicle(s.db.QueryRowContext(ctx,
		`SELECT `+vehicleColumns+` FROM vehicles WHERE id = ? AND account_id = ?`,
		vehicleID, accountID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &fuel.NotFoundError{Entity: "vehicle", ID: int64(vehicleID)}
	}
	if err != nil {
		return nil, mapError(err)
	}
	return v, nil
}

// GetDefaultVehicle returns the account's default active vehicle.
func (s *Store) GetDefaultVehicle(ctx context.Context, accountID fuel.AccountID) (*fuel.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, err := scanVehicle(s.db.QueryRowContext(ctx,
		`SELECT `+vehicleColumns+` FROM vehicles WHERE account_id = ? AND is_default AND is_active`,
		accountID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &fuel.NotFoundError{Entity: "default vehicle", ID: int64(accountID)}
	}
	if err != nil {
		return nil, mapError(err)
	}
	return v, nil
}

// SetDefaultVehicle atomically clears the current default and sets the
// target. Setting the current default again is a no-op success.
func (s *Store) SetDefaultVehicle(ctx context.Context, accountID fuel.AccountID, vehicleID fuel.VehicleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		var isDefault bool
		err := tx.QueryRowContext(ctx,
			`SELECT is_default FROM vehicles WHERE id = ? AND account_id = ? AND is_active`,
			vehicleID, accountID).Scan(&isDefault)
		if errors.Is(err, sql.ErrNoRows) {
			return &fuel.NotFoundError{Entity: "vehicle", ID: int64(vehicleID)}
		}
		if err != nil {
			return mapError(err)
		}
		if isDefault {
			return nil
		}

		if err := clearDefault(ctx, tx, accountID); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE vehicles SET is_default = TRUE, updated_at = ? WHERE id = ?`,
			formatTime(time.Now().UTC()), vehicleID)
		return mapError(err)
	})
}

// DeleteVehicle removes the vehicle; the ON DELETE CASCADE foreign key
// removes its refuel entries. If the vehicle was default, the oldest
// remaining active vehicle is promoted inside the same transaction.
func (s *Store) DeleteVehicle(ctx context.Context, vehicleID fuel.VehicleID, accountID fuel.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		var wasDefault bool
		err := tx.QueryRowContext(ctx,
			`SELECT is_default FROM vehicles WHERE id = ? AND account_id = ?`,
			vehicleID, accountID).Scan(&wasDefault)
		if errors.Is(err, sql.ErrNoRows) {
			return &fuel.NotFoundError{Entity: "vehicle", ID: int64(vehicleID)}
		}
		if err != nil {
			return mapError(err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM vehicles WHERE id = ?`, vehicleID); err != nil {
			return mapError(err)
		}

		if !wasDefault {
			return nil
		}

		// Promote the oldest remaining active vehicle, if any.
		var nextID fuel.VehicleID
		err = tx.QueryRowContext(ctx,
			`SELECT id FROM vehicles WHERE account_id = ? AND is_active ORDER BY created_at ASC, id ASC LIMIT 1`,
			accountID).Scan(&nextID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil // account transitions to no-default
		}
		if err != nil {
			return mapError(err)
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE vehicles SET is_default = TRUE, updated_at = ? WHERE id = ?`,
			formatTime(time.Now().UTC()), nextID)
		return mapError(err)
	})
}

func clearDefault(ctx context.Context, tx *sql.Tx, accountID fuel.AccountID) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE vehicles SET is_default = FALSE, updated_at = ? WHERE account_id = ? AND is_default AND is_active`,
		formatTime(time.Now().UTC()), accountID)
	return mapError(err)
}

// =============================================================================
// REFUEL ENTRIES
// =============================================================================

const refuelColumns = `id, vehicle_id, occurred_at, odometer, volume, total_amount,
	price_per_unit, distance, efficiency, fuel_type, station, comment, created_at, updated_at`

// CreateRefuel logs a refuel. Derived fields are computed from the
// immediately preceding entry - (occurred_at, odometer, id) order - taken
// inside the same transaction as the insert.
func (s *Store) CreateRefuel(ctx context.Context, vehicleID fuel.VehicleID, input fuel.RefuelInput) (*fuel.RefuelEntry, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var created *fuel.RefuelEntry
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM vehicles WHERE id = ?`, vehicleID).Scan(&exists)
		if err != nil {
			return mapError(err)
		}
		if exists == 0 {
			return &fuel.NotFoundError{Entity: "vehicle", ID: int64(vehicleID)}
		}

		now := time.Now().UTC()
		occurredAt := input.OccurredAt
		if occurredAt.IsZero() {
			occurredAt = now
		}
		occurredAt = occurredAt.UTC().Truncate(time.Second)
		occurredStr := formatTime(occurredAt)

		// An existing entry tied on both timestamp and odometer precedes the
		// new row, which will get a higher id.
		prev, err := scanRefuel(tx.QueryRowContext(ctx,
			`SELECT `+refuelColumns+` FROM refuels
			 WHERE vehicle_id = ? AND (occurred_at < ? OR (occurred_at = ? AND odometer <= ?))
			 ORDER BY occurred_at DESC, odometer DESC, id DESC LIMIT 1`,
			vehicleID, occurredStr, occurredStr, input.Odometer))
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return mapError(err)
		}

		derived := fuel.ComputeDerived(input.Odometer, input.Volume, input.TotalAmount, prev)

		res, err := tx.ExecContext(ctx,
			`INSERT INTO refuels (vehicle_id, occurred_at, odometer, volume, total_amount,
			     price_per_unit, distance, efficiency, fuel_type, station, comment, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			vehicleID, occurredStr, input.Odometer,
			input.Volume.String(), input.TotalAmount.String(),
			nullDecimal(derived.PricePerUnit), nullFloat(derived.Distance), nullDecimal(derived.Efficiency),
			input.FuelType, input.Station, input.Comment,
			formatTime(now), formatTime(now))
		if err != nil {
			return mapError(err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return mapError(err)
		}

		created = &fuel.RefuelEntry{
			ID:           fuel.EntryID(id),
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
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ListRecentRefuels returns entries newest-first, ties by descending id.
func (s *Store) ListRecentRefuels(ctx context.Context, vehicleID fuel.VehicleID, limit int) ([]fuel.RefuelEntry, error) {
	if limit <= 0 {
		limit = fuel.DefaultRecentLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryRefuels(ctx,
		`SELECT `+refuelColumns+` FROM refuels WHERE vehicle_id = ?
		 ORDER BY occurred_at DESC, id DESC LIMIT ?`, vehicleID, limit)
}

// DeleteRefuel removes one entry, scoped to its vehicle.
func (s *Store) DeleteRefuel(ctx context.Context, entryID fuel.EntryID, vehicleID fuel.VehicleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM refuels WHERE id = ? AND vehicle_id = ?`, entryID, vehicleID)
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if n == 0 {
		return &fuel.NotFoundError{Entity: "refuel entry", ID: int64(entryID)}
	}
	return nil
}

// CountRefuels returns the number of entries for a vehicle.
func (s *Store) CountRefuels(ctx context.Context, vehicleID fuel.VehicleID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM refuels WHERE vehicle_id = ?`, vehicleID).Scan(&count)
	if err != nil {
		return 0, mapError(err)
	}
	return count, nil
}

func (s *Store) queryRefuels(ctx context.Context, query string, args ...any) ([]fuel.RefuelEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var entries []fuel.RefuelEntry
	for rows.Next() {
		e, err := scanRefuel(rows)
		if err != nil {
			return nil, mapError(err)
		}
		entries = append(entries, *e)
	}
	return entries, mapError(rows.Err())
}

// =============================================================================
// STATS
// =============================================================================

// AccountStats returns counts scoped to the account's vehicles.
func (s *Store) AccountStats(ctx context.Context, accountID fuel.AccountID) (fuel.AccountStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats fuel.AccountStats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM vehicles WHERE account_id = ?`, accountID).Scan(&stats.VehicleCount)
	if err != nil {
		return fuel.AccountStats{}, mapError(err)
	}
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM refuels r JOIN vehicles v ON r.vehicle_id = v.id WHERE v.account_id = ?`,
		accountID).Scan(&stats.RefuelCount)
	if err != nil {
		return fuel.AccountStats{}, mapError(err)
	}
	return stats, nil
}

// VehicleStats aggregates the vehicle's entries in Go so the arithmetic
// matches the pure aggregation used everywhere else (decimal, not SQLite
// floating point).
func (s *Store) VehicleStats(ctx context.Context, vehicleID fuel.VehicleID) (fuel.VehicleStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := s.queryRefuels(ctx,
		`SELECT `+refuelColumns+` FROM refuels WHERE vehicle_id = ?`, vehicleID)
	if err != nil {
		return fuel.VehicleStats{}, err
	}
	return fuel.AggregateVehicle(entries), nil
}

// =============================================================================
// SCANNING & HELPERS
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*fuel.Account, error) {
	var (
		acc                  fuel.Account
		createdAt, updatedAt string
	)
	err := row.Scan(&acc.ID, &acc.ExternalID, &acc.Username, &acc.FirstName,
		&acc.LastName, &acc.Active, &acc.Locale, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	acc.CreatedAt = parseTime(createdAt)
	acc.UpdatedAt = parseTime(updatedAt)
	return &acc, nil
}

func scanVehicle(row rowScanner) (*fuel.Vehicle, error) {
	var (
		v                    fuel.Vehicle
		createdAt, updatedAt string
	)
	err := row.Scan(&v.ID, &v.AccountID, &v.Name, &v.Make, &v.Model, &v.Year,
		&v.Plate, &v.Active, &v.Default, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	v.CreatedAt = parseTime(createdAt)
	v.UpdatedAt = parseTime(updatedAt)
	return &v, nil
}

func scanRefuel(row rowScanner) (*fuel.RefuelEntry, error) {
	var (
		e                                fuel.RefuelEntry
		occurredAt, createdAt, updatedAt string
		volume, totalAmount              string
		pricePerUnit, efficiency         sql.NullString
		distance                         sql.NullFloat64
	)
	err := row.Scan(&e.ID, &e.VehicleID, &occurredAt, &e.Odometer,
		&volume, &totalAmount, &pricePerUnit, &distance, &efficiency,
		&e.FuelType, &e.Station, &e.Comment, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	e.OccurredAt = parseTime(occurredAt)
	e.CreatedAt = parseTime(createdAt)
	e.UpdatedAt = parseTime(updatedAt)
	e.Volume = parseDecimal(volume)
	e.TotalAmount = parseDecimal(totalAmount)
	if pricePerUnit.Valid {
		d := parseDecimal(pricePerUnit.String)
		e.PricePerUnit = &d
	}
	if distance.Valid {
		v := distance.Float64
		e.Distance = &v
	}
	if efficiency.Valid {
		d := parseDecimal(efficiency.String)
		e.Efficiency = &d
	}
	return &e, nil
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError(err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return mapError(tx.Commit())
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func nullDecimal(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

// mapError classifies driver failures into the fuel error taxonomy.
// Domain errors pass through untouched at the call sites.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled), isBusyError(err):
		return fmt.Errorf("%w: %v", fuel.ErrTransientStorage, err)
	case isUniqueError(err, "idx_vehicles_active_name"):
		return &fuel.ValidationError{Field: "name", Reason: "already in use"}
	case isUniqueError(err, "idx_vehicles_one_default"):
		return &fuel.ConstraintError{Constraint: "one default vehicle per account", Cause: err}
	default:
		return fmt.Errorf("%w: %v", fuel.ErrFatalStorage, err)
	}
}

func isBusyError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked")
}

func isUniqueError(err error, index string) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") && strings.Contains(msg, index)
}
