// Package model defines the core domain types for the slot swapping service.
package model

import (
	"time"

	"github.com/google/uuid"
)

// EventStatus is the lifecycle state of a calendar event.
type EventStatus string

const (
	// StatusBusy is the default: the slot is held and not offered for exchange.
	StatusBusy EventStatus = "BUSY"
	// StatusSwappable marks the slot as open for swap proposals.
	StatusSwappable EventStatus = "SWAPPABLE"
	// StatusSwapPending means the slot is tied up in exactly one active negotiation.
	StatusSwapPending EventStatus = "SWAP_PENDING"
)

// SwapStatus is the lifecycle state of a swap request.
// PENDING is the only non-terminal state; ACCEPTED and REJECTED never revert.
type SwapStatus string

const (
	SwapPending  SwapStatus = "PENDING"
	SwapAccepted SwapStatus = "ACCEPTED"
	SwapRejected SwapStatus = "REJECTED"
)

// User is an authenticated account. The password hash never leaves the server.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Event is a schedulable time block owned by exactly one user.
type Event struct {
	ID        uuid.UUID   `json:"id"`
	OwnerID   uuid.UUID   `json:"owner_id"`
	Title     string      `json:"title"`
	StartTime time.Time   `json:"start_time"`
	EndTime   time.Time   `json:"end_time"`
	Status    EventStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
}

// SwapRequest is one proposed exchange between two events. Requests are never
// deleted; terminal rows remain as the negotiation audit trail.
type SwapRequest struct {
	ID               uuid.UUID  `json:"id"`
	RequesterID      uuid.UUID  `json:"requester_id"`
	OfferedEventID   uuid.UUID  `json:"offered_event_id"`
	RequestedEventID uuid.UUID  `json:"requested_event_id"`
	Status           SwapStatus `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// SwappableEvent is the browse-listing projection: an open slot plus the
// display name of its owner.
type SwappableEvent struct {
	Event
	OwnerName string `json:"owner_name"`
}

// SwapRequestDetails joins a swap request with both event records and the
// requester's identity, as returned by the request listing endpoints.
type SwapRequestDetails struct {
	SwapRequest
	OfferedEvent   Event  `json:"offered_event_details"`
	RequestedEvent Event  `json:"requested_event_details"`
	RequesterName  string `json:"requester_name"`
	RequesterEmail string `json:"requester_email"`
}

// ─── Request payloads ────────────────────────────────────────────────────────

// SignupRequest is the payload for creating an account.
type SignupRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// LoginRequest is the payload for exchanging credentials for a token.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse carries a freshly minted bearer token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// CreateEventRequest is the payload for creating an event. Status is optional
// and restricted to BUSY or SWAPPABLE; it defaults to BUSY.
type CreateEventRequest struct {
	Title     string      `json:"title"`
	StartTime time.Time   `json:"start_time"`
	EndTime   time.Time   `json:"end_time"`
	Status    EventStatus `json:"status,omitempty"`
}

// UpdateEventRequest is the payload for editing an event. Nil fields are left
// unchanged.
type UpdateEventRequest struct {
	Title     *string      `json:"title,omitempty"`
	StartTime *time.Time   `json:"start_time,omitempty"`
	EndTime   *time.Time   `json:"end_time,omitempty"`
	Status    *EventStatus `json:"status,omitempty"`
}

// ProposeSwapRequest is the payload for POST /swaps/request-swap. Field names
// match the original client wire format.
type ProposeSwapRequest struct {
	MySlotID    uuid.UUID `json:"my_slot_id"`
	TheirSlotID uuid.UUID `json:"their_slot_id"`
}

// RespondSwapRequest is the payload for POST /swaps/response-swap/{id}.
type RespondSwapRequest struct {
	Accepted bool `json:"accepted"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
