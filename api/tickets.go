/*
tickets.go - Short-lived deletion tickets

PURPOSE:
  Vehicle deletion is destructive (all refuel history goes with it), so it
  is a two-step operation: the client first requests a ticket for the
  vehicle, then presents that ticket with the DELETE call. A ticket is
  bound to one vehicle, usable once, and expires quickly.

WHY NOT RE-TYPING THE NAME:
  Name re-matching is a chat-UI affordance. For an HTTP API a random token
  with a TTL gives the same "are you sure" guarantee without string
  comparison edge cases.

SEE ALSO:
  - handlers.go: IssueDeletionTicket / DeleteVehicle
*/
package api

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/tanklog/fuel-engine/fuel"
)

// DefaultTicketTTL is how long an issued deletion ticket stays valid.
const DefaultTicketTTL = 5 * time.Minute

type ticket struct {
	vehicleID fuel.VehicleID
	expiresAt time.Time
}

// TicketIssuer issues and redeems single-use deletion tickets.
type TicketIssuer struct {
	mu      sync.Mutex
	ttl     time.Duration
	tickets map[string]ticket
	now     func() time.Time
}

// NewTicketIssuer creates an issuer with the given TTL (DefaultTicketTTL
// when ttl <= 0).
func NewTicketIssuer(ttl time.Duration) *TicketIssuer {
	if ttl <= 0 {
		ttl = DefaultTicketTTL
	}
	return &TicketIssuer{
		ttl:     ttl,
		tickets: make(map[string]ticket),
		now:     time.Now,
	}
}

// Issue creates a ticket bound to vehicleID and returns the token and its
// expiry.
func (t *TicketIssuer) Issue(vehicleID fuel.VehicleID) (string, time.Time) {
	buf := make([]byte, 16)
	rand.Read(buf)
	token := hex.EncodeToString(buf)

	t.mu.Lock()
	defer t.mu.Unlock()

	expiresAt := t.now().Add(t.ttl)
	t.tickets[token] = ticket{vehicleID: vehicleID, expiresAt: expiresAt}
	t.sweepLocked()
	return token, expiresAt
}

// Redeem consumes the token if it is valid for vehicleID. A redeemed or
// expired token cannot be used again.
func (t *TicketIssuer) Redeem(token string, vehicleID fuel.VehicleID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	tk, ok := t.tickets[token]
	if !ok {
		return false
	}
	delete(t.tickets, token)
	return tk.vehicleID == vehicleID && t.now().Before(tk.expiresAt)
}

// sweepLocked drops expired tickets. Called under t.mu.
func (t *TicketIssuer) sweepLocked() {
	now := t.now()
	for token, tk := range t.tickets {
		if !now.Before(tk.expiresAt) {
			delete(t.tickets, token)
		}
	}
}
