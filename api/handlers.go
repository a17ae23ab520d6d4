/*
handlers.go - HTTP API handlers for the fuel tracking engine

PURPOSE:
  Exposes the fuel tracking engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Accounts:
    POST   /api/accounts                          Register or refresh an account
    GET    /api/accounts/{externalID}             Get account details
    DELETE /api/accounts/{externalID}             Deactivate account
    GET    /api/accounts/{externalID}/stats       Account-level counters

  Vehicles:
    GET    /api/accounts/{externalID}/vehicles                         List vehicles
    POST   /api/accounts/{externalID}/vehicles                         Register vehicle
    GET    /api/accounts/{externalID}/vehicles/default                 Current default
    PUT    /api/accounts/{externalID}/vehicles/{id}/default            Switch default
    POST   /api/accounts/{externalID}/vehicles/{id}/deletion-ticket    Issue ticket
    DELETE /api/accounts/{externalID}/vehicles/{id}                    Delete (needs ticket)
    GET    /api/accounts/{externalID}/vehicles/{id}/stats              Vehicle aggregates

  Refuels:
    GET    /api/accounts/{externalID}/vehicles/{id}/refuels            Recent entries
    POST   /api/accounts/{externalID}/vehicles/{id}/refuels            Log a refuel
    DELETE /api/accounts/{externalID}/vehicles/{id}/refuels/{entryID}  Remove entry

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: fuel.Store (SQLite in production, memory in tests)
  - Tickets: deletion-ticket issuer

REQUEST FLOW:
  1. Parse HTTP request
  2. Resolve the account (every nested route is ownership-scoped)
  3. Call domain logic through the store
  4. Serialize response
  5. Map domain errors to HTTP status

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 404: Account, vehicle, or entry not found
  - 422: Validation failures (bad amounts, duplicate names)
  - 409: Constraint violations (default-vehicle race)
  - 503: Transient storage failures, safe to retry
  - 500: Everything else

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.
  Ownership scoping through the external account ID in the path is a
  routing convenience, not an auth mechanism.

SEE ALSO:
  - dto.go: Request/response data structures
  - tickets.go: Deletion ticket issuer
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/tanklog/fuel-engine/fuel"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   fuel.Store
	Tickets *TicketIssuer
}

// NewHandler creates a new handler with the given store.
func NewHandler(store fuel.Store) *Handler {
	return &Handler{
		Store:   store,
		Tickets: NewTicketIssuer(DefaultTicketTTL),
	}
}

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

// UpsertAccount registers a new account or refreshes an existing one.
// POST /api/accounts
func (h *Handler) UpsertAccount(w http.ResponseWriter, r *http.Request) {
	var req UpsertAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ExternalID == 0 {
		writeError(w, http.StatusUnprocessableEntity, "external_id is required", nil)
		return
	}

	acc, err := h.Store.UpsertAccount(r.Context(), req.ExternalID, fuel.Profile{
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Locale:    req.Locale,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(acc))
}

// GetAccount returns a single account by external ID.
// GET /api/accounts/{externalID}
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.resolveAccount(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(acc))
}

// DeactivateAccount soft-deletes an account. Its vehicles and history
// stay in place.
// DELETE /api/accounts/{externalID}
func (h *Handler) DeactivateAccount(w http.ResponseWriter, r *http.Request) {
	externalID, ok := pathInt64(w, r, "externalID")
	if !ok {
		return
	}
	if err := h.Store.DeactivateAccount(r.Context(), externalID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetAccountStats returns vehicle and refuel counts for the account.
// GET /api/accounts/{externalID}/stats
func (h *Handler) GetAccountStats(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.resolveAccount(w, r)
	if !ok {
		return
	}
	stats, err := h.Store.AccountStats(r.Context(), acc.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AccountStatsDTO{
		VehicleCount: stats.VehicleCount,
		RefuelCount:  stats.RefuelCount,
	})
}

// =============================================================================
// VEHICLE HANDLERS
// =============================================================================

// ListVehicles returns the account's active vehicles, default first.
// GET /api/accounts/{externalID}/vehicles
func (h *Handler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.resolveAccount(w, r)
	if !ok {
		return
	}
	vehicles, err := h.Store.ListVehicles(r.Context(), acc.ID, true)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]VehicleDTO, len(vehicles))
	for i := range vehicles {
		dtos[i] = toVehicleDTO(&vehicles[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateVehicle registers a vehicle for the account.
// POST /api/accounts/{externalID}/vehicles
func (h *Handler) CreateVehicle(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.resolveAccount(w, r)
	if !ok {
		return
	}

	var req CreateVehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusUnprocessableEntity, "name is required", nil)
		return
	}

	vehicle, err := h.Store.CreateVehicle(r.Context(), acc.ID, fuel.VehicleSpec{
		Name:        req.Name,
		Make:        req.Make,
		Model:       req.Model,
		Year:        req.Year,
		Plate:       req.Plate,
		MakeDefault: req.MakeDefault,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toVehicleDTO(vehicle))
}

// GetDefaultVehicle returns the account's current default vehicle.
// GET /api/accounts/{externalID}/vehicles/default
func (h *Handler) GetDefaultVehicle(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.resolveAccount(w, r)
	if !ok {
		return
	}
	vehicle, err := h.Store.GetDefaultVehicle(r.Context(), acc.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toVehicleDTO(vehicle))
}

// SetDefaultVehicle makes the vehicle the account's default.
// PUT /api/accounts/{externalID}/vehicles/{id}/default
func (h *Handler) SetDefaultVehicle(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.resolveAccount(w, r)
	if !ok {
		return
	}
	vehicleID, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}

	if err := h.Store.SetDefaultVehicle(r.Context(), acc.ID, fuel.VehicleID(vehicleID)); err != nil {
		writeDomainError(w, err)
		return
	}
	vehicle, err := h.Store.GetVehicle(r.Context(), fuel.VehicleID(vehicleID), acc.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toVehicleDTO(vehicle))
}

// IssueDeletionTicket returns a short-lived token that authorizes
// deleting this vehicle.
// POST /api/accounts/{externalID}/vehicles/{id}/deletion-ticket
func (h *Handler) IssueDeletionTicket(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.resolveAccount(w, r)
	if !ok {
		return
	}
	vehicleID, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}

	// Verify ownership before handing out a ticket.
	if _, err := h.Store.GetVehicle(r.Context(), fuel.VehicleID(vehicleID), acc.ID); err != nil {
		writeDomainError(w, err)
		return
	}

	token, expiresAt := h.Tickets.Issue(fuel.VehicleID(vehicleID))
	writeJSON(w, http.StatusOK, DeletionTicketDTO{
		Ticket:    token,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	})
}

// DeleteVehicle removes a vehicle and its entire refuel history. Requires
// a deletion ticket issued for this vehicle. Deleting the account's last
// active vehicle is refused so the account never loses its only vehicle
// by accident.
// DELETE /api/accounts/{externalID}/vehicles/{id}
func (h *Handler) DeleteVehicle(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.resolveAccount(w, r)
	if !ok {
		return
	}
	vehicleID, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}

	var req DeleteVehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if !h.Tickets.Redeem(req.Ticket, fuel.VehicleID(vehicleID)) {
		writeError(w, http.StatusUnprocessableEntity, "Invalid or expired deletion ticket", nil)
		return
	}

	// Last-vehicle policy lives here, not in the store: the store must
	// stay able to delete the final vehicle (account teardown).
	vehicles, err := h.Store.ListVehicles(r.Context(), acc.ID, true)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if len(vehicles) == 1 && vehicles[0].ID == fuel.VehicleID(vehicleID) {
		writeError(w, http.StatusUnprocessableEntity, "Cannot delete the only vehicle", nil)
		return
	}

	if err := h.Store.DeleteVehicle(r.Context(), fuel.VehicleID(vehicleID), acc.ID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetVehicleStats returns aggregates over the vehicle's refuel history.
// GET /api/accounts/{externalID}/vehicles/{id}/stats
func (h *Handler) GetVehicleStats(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.resolveAccount(w, r)
	if !ok {
		return
	}
	vehicleID, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	if _, err := h.Store.GetVehicle(r.Context(), fuel.VehicleID(vehicleID), acc.ID); err != nil {
		writeDomainError(w, err)
		return
	}

	stats, err := h.Store.VehicleStats(r.Context(), fuel.VehicleID(vehicleID))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toVehicleStatsDTO(stats))
}

// =============================================================================
// REFUEL HANDLERS
// =============================================================================

// ListRefuels returns the vehicle's most recent entries, newest first.
// GET /api/accounts/{externalID}/vehicles/{id}/refuels?limit=N
func (h *Handler) ListRefuels(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.resolveAccount(w, r)
	if !ok {
		return
	}
	vehicleID, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	if _, err := h.Store.GetVehicle(r.Context(), fuel.VehicleID(vehicleID), acc.ID); err != nil {
		writeDomainError(w, err)
		return
	}

	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		limit, _ = strconv.Atoi(s)
	}

	entries, err := h.Store.ListRecentRefuels(r.Context(), fuel.VehicleID(vehicleID), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]RefuelDTO, len(entries))
	for i := range entries {
		dtos[i] = toRefuelDTO(&entries[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateRefuel logs a refuel against the vehicle. Derived metrics come
// back in the response.
// POST /api/accounts/{externalID}/vehicles/{id}/refuels
func (h *Handler) CreateRefuel(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.resolveAccount(w, r)
	if !ok {
		return
	}
	vehicleID, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	if _, err := h.Store.GetVehicle(r.Context(), fuel.VehicleID(vehicleID), acc.ID); err != nil {
		writeDomainError(w, err)
		return
	}

	var req CreateRefuelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	input, err := parseRefuelRequest(req)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	entry, err := h.Store.CreateRefuel(r.Context(), fuel.VehicleID(vehicleID), input)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRefuelDTO(entry))
}

// DeleteRefuel removes one refuel entry.
// DELETE /api/accounts/{externalID}/vehicles/{id}/refuels/{entryID}
func (h *Handler) DeleteRefuel(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.resolveAccount(w, r)
	if !ok {
		return
	}
	vehicleID, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	entryID, ok := pathInt64(w, r, "entryID")
	if !ok {
		return
	}
	if _, err := h.Store.GetVehicle(r.Context(), fuel.VehicleID(vehicleID), acc.ID); err != nil {
		writeDomainError(w, err)
		return
	}

	if err := h.Store.DeleteRefuel(r.Context(), fuel.EntryID(entryID), fuel.VehicleID(vehicleID)); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseRefuelRequest(req CreateRefuelRequest) (fuel.RefuelInput, error) {
	volume, err := decimal.NewFromString(req.Volume)
	if err != nil {
		return fuel.RefuelInput{}, &fuel.ValidationError{Field: "volume", Reason: "not a valid amount"}
	}
	totalAmount, err := decimal.NewFromString(req.TotalAmount)
	if err != nil {
		return fuel.RefuelInput{}, &fuel.ValidationError{Field: "total_amount", Reason: "not a valid amount"}
	}

	var occurredAt time.Time
	if req.OccurredAt != "" {
		occurredAt, err = time.Parse(time.RFC3339, req.OccurredAt)
		if err != nil {
			return fuel.RefuelInput{}, &fuel.ValidationError{Field: "occurred_at", Reason: "must be RFC 3339"}
		}
	}

	return fuel.RefuelInput{
		OccurredAt:  occurredAt,
		Odometer:    req.Odometer,
		Volume:      volume,
		TotalAmount: totalAmount,
		FuelType:    req.FuelType,
		Station:     req.Station,
		Comment:     req.Comment,
	}, nil
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

// resolveAccount loads the account named in the URL path, writing the
// error response itself on failure.
func (h *Handler) resolveAccount(w http.ResponseWriter, r *http.Request) (*fuel.Account, bool) {
	externalID, ok := pathInt64(w, r, "externalID")
	if !ok {
		return nil, false
	}
	acc, err := h.Store.GetAccount(r.Context(), externalID)
	if err != nil {
		writeDomainError(w, err)
		return nil, false
	}
	return acc, true
}

func pathInt64(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid "+name, err)
		return 0, false
	}
	return v, true
}

// writeDomainError maps the fuel error taxonomy onto HTTP statuses.
// Transient and fatal storage details are never echoed back to clients.
func writeDomainError(w http.ResponseWriter, err error) {
	var (
		notFound   *fuel.NotFoundError
		validation *fuel.ValidationError
	)
	switch {
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, notFound.Error(), nil)
	case errors.As(err, &validation):
		writeError(w, http.StatusUnprocessableEntity, validation.Error(), nil)
	case errors.Is(err, fuel.ErrConstraint):
		writeError(w, http.StatusConflict, "Conflicting update, please retry", nil)
	case errors.Is(err, fuel.ErrTransientStorage):
		writeError(w, http.StatusServiceUnavailable, "Storage temporarily unavailable, try again later", nil)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", nil)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
