/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Account:
    AccountDTO, UpsertAccountRequest, AccountStatsDTO

  Vehicle:
    VehicleDTO, CreateVehicleRequest, DeletionTicketDTO

  Refuel:
    RefuelDTO, CreateRefuelRequest, VehicleStatsDTO

DECIMAL FIELDS:
  Monetary and volume amounts travel as JSON strings ("52.30", not 52.3)
  so no client-side float conversion loses cents. Odometer and distance
  are plain numbers (kilometres, one decimal place).

VALIDATION:
  Validation is done in handlers and the domain layer, not in DTOs.
  DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - fuel/types.go: Domain entities these map from
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/tanklog/fuel-engine/fuel"
)

// =============================================================================
// ACCOUNT TYPES
// =============================================================================

// AccountDTO represents an account in API responses.
type AccountDTO struct {
	ID         int64  `json:"id"`
	ExternalID int64  `json:"external_id"`
	Username   string `json:"username,omitempty"`
	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
	Active     bool   `json:"active"`
	Locale     string `json:"locale,omitempty"`
	CreatedAt  string `json:"created_at,omitempty"`
}

// UpsertAccountRequest registers or refreshes an account. Absent fields
// leave the stored profile untouched.
type UpsertAccountRequest struct {
	ExternalID int64   `json:"external_id"`
	Username   *string `json:"username,omitempty"`
	FirstName  *string `json:"first_name,omitempty"`
	LastName   *string `json:"last_name,omitempty"`
	Locale     *string `json:"locale,omitempty"`
}

// AccountStatsDTO summarizes an account's footprint.
type AccountStatsDTO struct {
	VehicleCount int `json:"vehicle_count"`
	RefuelCount  int `json:"refuel_count"`
}

// =============================================================================
// VEHICLE TYPES
// =============================================================================

// VehicleDTO represents a vehicle in API responses.
type VehicleDTO struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Make      string `json:"make,omitempty"`
	Model     string `json:"model,omitempty"`
	Year      int    `json:"year,omitempty"`
	Plate     string `json:"plate,omitempty"`
	Active    bool   `json:"active"`
	Default   bool   `json:"default"`
	CreatedAt string `json:"created_at,omitempty"`
}

// CreateVehicleRequest is the request to register a vehicle.
type CreateVehicleRequest struct {
	Name        string `json:"name"`
	Make        string `json:"make,omitempty"`
	Model       string `json:"model,omitempty"`
	Year        int    `json:"year,omitempty"`
	Plate       string `json:"plate,omitempty"`
	MakeDefault bool   `json:"make_default,omitempty"`
}

// DeletionTicketDTO carries a short-lived token authorizing one vehicle
// deletion.
type DeletionTicketDTO struct {
	Ticket    string `json:"ticket"`
	ExpiresAt string `json:"expires_at"`
}

// DeleteVehicleRequest confirms a deletion with a previously issued ticket.
type DeleteVehicleRequest struct {
	Ticket string `json:"ticket"`
}

// =============================================================================
// REFUEL TYPES
// =============================================================================

// RefuelDTO represents a refuel entry in API responses. Derived fields
// are null when they could not be computed.
type RefuelDTO struct {
	ID           int64    `json:"id"`
	VehicleID    int64    `json:"vehicle_id"`
	OccurredAt   string   `json:"occurred_at"`
	Odometer     float64  `json:"odometer"`
	Volume       string   `json:"volume"`
	TotalAmount  string   `json:"total_amount"`
	PricePerUnit *string  `json:"price_per_unit"`
	Distance     *float64 `json:"distance"`
	Efficiency   *string  `json:"efficiency"`
	FuelType     string   `json:"fuel_type,omitempty"`
	Station      string   `json:"station,omitempty"`
	Comment      string   `json:"comment,omitempty"`
	CreatedAt    string   `json:"created_at,omitempty"`
}

// CreateRefuelRequest is the request to log a refuel.
type CreateRefuelRequest struct {
	OccurredAt  string  `json:"occurred_at,omitempty"`
	Odometer    float64 `json:"odometer"`
	Volume      string  `json:"volume"`
	TotalAmount string  `json:"total_amount"`
	FuelType    string  `json:"fuel_type,omitempty"`
	Station     string  `json:"station,omitempty"`
	Comment     string  `json:"comment,omitempty"`
}

// VehicleStatsDTO aggregates a vehicle's refuel history.
type VehicleStatsDTO struct {
	TotalRefuels    int     `json:"total_refuels"`
	TotalVolume     string  `json:"total_volume"`
	TotalCost       string  `json:"total_cost"`
	TotalDistance   float64 `json:"total_distance"`
	AvgPricePerUnit string  `json:"avg_price_per_unit"`
	AvgEfficiency   string  `json:"avg_efficiency"`
}

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// MAPPERS
// =============================================================================

func toAccountDTO(a *fuel.Account) AccountDTO {
	return AccountDTO{
		ID:         int64(a.ID),
		ExternalID: a.ExternalID,
		Username:   a.Username,
		FirstName:  a.FirstName,
		LastName:   a.LastName,
		Active:     a.Active,
		Locale:     a.Locale,
		CreatedAt:  a.CreatedAt.Format(time.RFC3339),
	}
}

func toVehicleDTO(v *fuel.Vehicle) VehicleDTO {
	return VehicleDTO{
		ID:        int64(v.ID),
		Name:      v.Name,
		Make:      v.Make,
		Model:     v.Model,
		Year:      v.Year,
		Plate:     v.Plate,
		Active:    v.Active,
		Default:   v.Default,
		CreatedAt: v.CreatedAt.Format(time.RFC3339),
	}
}

func toRefuelDTO(e *fuel.RefuelEntry) RefuelDTO {
	dto := RefuelDTO{
		ID:          int64(e.ID),
		VehicleID:   int64(e.VehicleID),
		OccurredAt:  e.OccurredAt.Format(time.RFC3339),
		Odometer:    e.Odometer,
		Volume:      e.Volume.String(),
		TotalAmount: e.TotalAmount.String(),
		Distance:    e.Distance,
		FuelType:    e.FuelType,
		Station:     e.Station,
		Comment:     e.Comment,
		CreatedAt:   e.CreatedAt.Format(time.RFC3339),
	}
	if e.PricePerUnit != nil {
		dto.PricePerUnit = decimalString(*e.PricePerUnit)
	}
	if e.Efficiency != nil {
		dto.Efficiency = decimalString(*e.Efficiency)
	}
	return dto
}

func toVehicleStatsDTO(s fuel.VehicleStats) VehicleStatsDTO {
	return VehicleStatsDTO{
		TotalRefuels:    s.TotalRefuels,
		TotalVolume:     s.TotalVolume.String(),
		TotalCost:       s.TotalCost.String(),
		TotalDistance:   s.TotalDistance,
		AvgPricePerUnit: s.AvgPricePerUnit.String(),
		AvgEfficiency:   s.AvgEfficiency.String(),
	}
}

func decimalString(d decimal.Decimal) *string {
	s := d.String()
	return &s
}
