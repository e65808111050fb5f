// Package repository defines the storage contracts for the slot swapping
// service and implements them for PostgreSQL (pgx) and in memory.
//
// All state-changing swap logic runs through Store.InTx: the transaction
// re-reads governing rows under row locks, the service re-validates against
// those fresh reads, and every resulting write lands before commit. Plain
// repository reads never lock.
package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/slotswapper/slotswapper/internal/model"
)

// Store is the full storage surface consumed by the service layer.
type Store interface {
	Users() UserRepository
	Events() EventRepository
	Swaps() SwapRepository

	// InTx runs fn inside a single transaction. If fn returns an error the
	// transaction is rolled back and nothing is visible to other callers.
	// Lock waits are bounded; exceeding the bound yields ErrUnavailable.
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// UserRepository handles persistence for accounts.
type UserRepository interface {
	// Create inserts a new user. A duplicate email yields ErrConflict.
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

// EventRepository handles unlocked reads and inserts for events.
type EventRepository interface {
	Create(ctx context.Context, e *model.Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Event, error)
	// ListByOwner returns the owner's events ordered by start time ascending.
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Event, error)
	// ListSwappable returns all SWAPPABLE events not owned by excludeOwnerID,
	// joined with the owner's display name, ordered by start time ascending.
	ListSwappable(ctx context.Context, excludeOwnerID uuid.UUID) ([]model.SwappableEvent, error)
}

// SwapRepository handles unlocked reads of the swap request ledger. Requests
// outlive the events they reference; detail reads report a deleted event as a
// placeholder carrying only its ID.
type SwapRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.SwapRequest, error)
	GetDetails(ctx context.Context, id uuid.UUID) (*model.SwapRequestDetails, error)
	// ListIncoming returns PENDING requests targeting events owned by userID,
	// newest first.
	ListIncoming(ctx context.Context, userID uuid.UUID) ([]model.SwapRequestDetails, error)
	// ListOutgoing returns all requests made by userID, newest first.
	ListOutgoing(ctx context.Context, userID uuid.UUID) ([]model.SwapRequestDetails, error)
}

// Tx is the set of operations available inside a transaction. Lock* methods
// acquire exclusive row locks; to avoid deadlock, callers lock the swap
// request row first and event rows in ascending id order.
type Tx interface {
	// LockEvent reads an event under an exclusive row lock.
	LockEvent(ctx context.Context, id uuid.UUID) (*model.Event, error)
	// UpdateEvent persists the event's mutable fields (title, times, status,
	// owner). The row must already be locked by this transaction.
	UpdateEvent(ctx context.Context, e *model.Event) error
	DeleteEvent(ctx context.Context, id uuid.UUID) error

	InsertSwapRequest(ctx context.Context, r *model.SwapRequest) error
	// LockSwapRequest reads a swap request under an exclusive row lock.
	LockSwapRequest(ctx context.Context, id uuid.UUID) (*model.SwapRequest, error)
	UpdateSwapRequestStatus(ctx context.Context, id uuid.UUID, status model.SwapStatus) error

	// SweepCompetingRequests rejects, in one set-based update, every PENDING
	// request other than exceptID that references eventA or eventB on either
	// side, and returns the swept requests so the caller can release their
	// other events.
	SweepCompetingRequests(ctx context.Context, eventA, eventB, exceptID uuid.UUID) ([]model.SwapRequest, error)

	// HasActiveRequest reports whether any PENDING request references the
	// event on either side.
	HasActiveRequest(ctx context.Context, eventID uuid.UUID) (bool, error)
}
