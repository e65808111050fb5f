// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer. SwapService is the swap
// negotiation engine; EventService and AuthService are thin collaborators.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/slotswapper/slotswapper/internal/metrics"
	"github.com/slotswapper/slotswapper/internal/model"
	"github.com/slotswapper/slotswapper/internal/repository"
)

// SwapService is the negotiation engine. It is the sole authority over event
// status transitions driven by the swap lifecycle and over the swap request
// state machine (PENDING → ACCEPTED | REJECTED, terminal states final).
//
// Every mutation follows the same discipline: validate against a plain read,
// then re-read the governing rows under row locks inside one transaction,
// re-validate, and write everything before commit. A locked re-read that
// disagrees with the validated read means a concurrent mutation won the race,
// and the operation aborts with ErrConflict.
type SwapService struct {
	store repository.Store
	log   zerolog.Logger
}

// NewSwapService constructs a SwapService.
func NewSwapService(store repository.Store, log zerolog.Logger) *SwapService {
	return &SwapService{store: store, log: log}
}

// Propose validates and creates a swap request: a PENDING ledger entry plus
// both events moving SWAPPABLE → SWAP_PENDING, atomically.
func (s *SwapService) Propose(ctx context.Context, requesterID, offeredID, requestedID uuid.UUID) (*model.SwapRequestDetails, error) {
	d, err := s.propose(ctx, requesterID, offeredID, requestedID)
	if errors.Is(err, repository.ErrConflict) {
		metrics.SwapConflicts.Inc()
	}
	return d, err
}

func (s *SwapService) propose(ctx context.Context, requesterID, offeredID, requestedID uuid.UUID) (*model.SwapRequestDetails, error) {
	if offeredID == requestedID {
		return nil, fmt.Errorf("%w: offered and requested event are the same", repository.ErrInvalidOperation)
	}

	offered, err := s.store.Events().GetByID(ctx, offeredID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: offered event", repository.ErrNotFound)
		}
		return nil, err
	}
	requested, err := s.store.Events().GetByID(ctx, requestedID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: requested event", repository.ErrNotFound)
		}
		return nil, err
	}

	if offered.OwnerID != requesterID {
		return nil, fmt.Errorf("%w: you do not own the offered event", repository.ErrForbidden)
	}
	if requested.OwnerID == requesterID {
		return nil, fmt.Errorf("%w: cannot swap with your own event", repository.ErrInvalidOperation)
	}
	if offered.Status != model.StatusSwappable {
		return nil, fmt.Errorf("%w: offered event is not swappable", repository.ErrInvalidState)
	}
	if requested.Status != model.StatusSwappable {
		return nil, fmt.Errorf("%w: requested event is not swappable", repository.ErrInvalidState)
	}

	now := time.Now().UTC()
	req := &model.SwapRequest{
		ID:               uuid.New(),
		RequesterID:      requesterID,
		OfferedEventID:   offeredID,
		RequestedEventID: requestedID,
		Status:           model.SwapPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err = s.store.InTx(ctx, func(tx repository.Tx) error {
		fresh, err := lockEventPair(ctx, tx, offeredID, requestedID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: event deleted during proposal", repository.ErrConflict)
			}
			return err
		}
		lockedOffered, lockedRequested := fresh[offeredID], fresh[requestedID]

		// Re-validate under lock. Anything that changed since the plain read
		// is a race lost to a concurrent proposal, response, or owner edit.
		if lockedOffered.Status != model.StatusSwappable ||
			lockedRequested.Status != model.StatusSwappable {
			return fmt.Errorf("%w: event is no longer swappable", repository.ErrConflict)
		}
		if lockedOffered.OwnerID != requesterID || lockedRequested.OwnerID == requesterID {
			return fmt.Errorf("%w: event ownership changed", repository.ErrConflict)
		}

		if err := tx.InsertSwapRequest(ctx, req); err != nil {
			return err
		}
		lockedOffered.Status = model.StatusSwapPending
		lockedRequested.Status = model.StatusSwapPending
		if err := tx.UpdateEvent(ctx, lockedOffered); err != nil {
			return err
		}
		return tx.UpdateEvent(ctx, lockedRequested)
	})
	if err != nil {
		return nil, err
	}

	metrics.SwapsProposed.Inc()
	s.log.Info().
		Str("swap_request_id", req.ID.String()).
		Str("requester_id", requesterID.String()).
		Msg("swap proposed")

	return s.store.Swaps().GetDetails(ctx, req.ID)
}

// Respond resolves a PENDING swap request. Only the owner of the requested
// event may respond. Accepting exchanges ownership of the two events, parks
// both at BUSY, and sweeps every competing PENDING request to REJECTED.
// Rejecting returns both events to SWAPPABLE.
func (s *SwapService) Respond(ctx context.Context, responderID, requestID uuid.UUID, accepted bool) (*model.SwapRequestDetails, error) {
	d, err := s.respond(ctx, responderID, requestID, accepted)
	if errors.Is(err, repository.ErrConflict) {
		metrics.SwapConflicts.Inc()
	}
	return d, err
}

func (s *SwapService) respond(ctx context.Context, responderID, requestID uuid.UUID, accepted bool) (*model.SwapRequestDetails, error) {
	req, err := s.store.Swaps().GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	requested, err := s.store.Events().GetByID(ctx, req.RequestedEventID)
	if err != nil {
		return nil, err
	}
	if requested.OwnerID != responderID {
		return nil, fmt.Errorf("%w: only the owner of the requested event may respond", repository.ErrForbidden)
	}
	if req.Status != model.SwapPending {
		return nil, fmt.Errorf("%w: swap request is no longer pending", repository.ErrInvalidState)
	}

	var sweptCount int
	err = s.store.InTx(ctx, func(tx repository.Tx) error {
		locked, err := tx.LockSwapRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if locked.Status != model.SwapPending {
			return fmt.Errorf("%w: swap request was resolved concurrently", repository.ErrConflict)
		}

		fresh, err := lockEventPair(ctx, tx, locked.OfferedEventID, locked.RequestedEventID)
		if err != nil {
			return err
		}
		offered := fresh[locked.OfferedEventID]
		target := fresh[locked.RequestedEventID]
		if target.OwnerID != responderID {
			return fmt.Errorf("%w: event ownership changed", repository.ErrConflict)
		}

		if accepted {
			sweptCount, err = s.accept(ctx, tx, locked, offered, target)
			return err
		}
		return s.reject(ctx, tx, locked, offered, target)
	})
	if err != nil {
		return nil, err
	}

	outcome := "rejected"
	if accepted {
		outcome = "accepted"
	}
	metrics.SwapsResolved.WithLabelValues(outcome).Inc()
	if sweptCount > 0 {
		metrics.CompetingSwept.Add(float64(sweptCount))
	}
	s.log.Info().
		Str("swap_request_id", requestID.String()).
		Str("responder_id", responderID.String()).
		Str("outcome", outcome).
		Msg("swap resolved")

	return s.store.Swaps().GetDetails(ctx, requestID)
}

// accept finalizes the negotiation: owners exchanged, both events BUSY, and
// every other PENDING request touching either event swept to REJECTED with
// its uninvolved events released. Returns the number of requests swept so the
// caller can record it after the transaction commits.
func (s *SwapService) accept(ctx context.Context, tx repository.Tx, req *model.SwapRequest, offered, target *model.Event) (int, error) {
	if err := tx.UpdateSwapRequestStatus(ctx, req.ID, model.SwapAccepted); err != nil {
		return 0, err
	}

	offered.OwnerID, target.OwnerID = target.OwnerID, offered.OwnerID
	offered.Status = model.StatusBusy
	target.Status = model.StatusBusy
	if err := tx.UpdateEvent(ctx, offered); err != nil {
		return 0, err
	}
	if err := tx.UpdateEvent(ctx, target); err != nil {
		return 0, err
	}

	swept, err := tx.SweepCompetingRequests(ctx, offered.ID, target.ID, req.ID)
	if err != nil {
		return 0, err
	}
	if len(swept) == 0 {
		return 0, nil
	}

	// Release each swept request's uninvolved event: it was held at
	// SWAP_PENDING by a negotiation that can no longer complete.
	others := make(map[uuid.UUID]struct{})
	for _, sr := range swept {
		for _, id := range []uuid.UUID{sr.OfferedEventID, sr.RequestedEventID} {
			if id != offered.ID && id != target.ID {
				others[id] = struct{}{}
			}
		}
	}
	for _, id := range sortedIDs(others) {
		e, err := tx.LockEvent(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return 0, err
		}
		if e.Status != model.StatusSwapPending {
			continue
		}
		held, err := tx.HasActiveRequest(ctx, id)
		if err != nil {
			return 0, err
		}
		if held {
			continue
		}
		e.Status = model.StatusSwappable
		if err := tx.UpdateEvent(ctx, e); err != nil {
			return 0, err
		}
	}
	return len(swept), nil
}

// reject closes the negotiation and returns both events to the open pool,
// re-checking under lock that no other active request still holds them.
func (s *SwapService) reject(ctx context.Context, tx repository.Tx, req *model.SwapRequest, offered, target *model.Event) error {
	if err := tx.UpdateSwapRequestStatus(ctx, req.ID, model.SwapRejected); err != nil {
		return err
	}
	for _, e := range []*model.Event{offered, target} {
		if e.Status != model.StatusSwapPending {
			continue
		}
		held, err := tx.HasActiveRequest(ctx, e.ID)
		if err != nil {
			return err
		}
		if held {
			continue
		}
		e.Status = model.StatusSwappable
		if err := tx.UpdateEvent(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// ─── Query surface ───────────────────────────────────────────────────────────

// ListSwappable returns every SWAPPABLE event not owned by the caller.
func (s *SwapService) ListSwappable(ctx context.Context, callerID uuid.UUID) ([]model.SwappableEvent, error) {
	return s.store.Events().ListSwappable(ctx, callerID)
}

// ListIncoming returns the PENDING requests targeting the caller's events.
func (s *SwapService) ListIncoming(ctx context.Context, callerID uuid.UUID) ([]model.SwapRequestDetails, error) {
	return s.store.Swaps().ListIncoming(ctx, callerID)
}

// ListOutgoing returns every request the caller has made.
func (s *SwapService) ListOutgoing(ctx context.Context, callerID uuid.UUID) ([]model.SwapRequestDetails, error) {
	return s.store.Swaps().ListOutgoing(ctx, callerID)
}

// ─── Lock ordering helpers ───────────────────────────────────────────────────

// lockEventPair locks two event rows in ascending id order so that
// overlapping negotiations cannot deadlock each other, and returns the fresh
// rows keyed by id.
func lockEventPair(ctx context.Context, tx repository.Tx, a, b uuid.UUID) (map[uuid.UUID]*model.Event, error) {
	first, second := a, b
	if bytes.Compare(b[:], a[:]) < 0 {
		first, second = b, a
	}
	out := make(map[uuid.UUID]*model.Event, 2)
	for _, id := range []uuid.UUID{first, second} {
		e, err := tx.LockEvent(ctx, id)
		if err != nil {
			return nil, err
		}
		out[id] = e
	}
	return out, nil
}

// sortedIDs returns the set's ids in ascending bytewise order, matching the
// lock order used everywhere else.
func sortedIDs(set map[uuid.UUID]struct{}) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
	return ids
}
