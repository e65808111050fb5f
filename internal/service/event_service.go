package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/slotswapper/slotswapper/internal/model"
	"github.com/slotswapper/slotswapper/internal/repository"
)

// EventService handles owner-scoped event CRUD. Direct status edits are
// restricted to BUSY and SWAPPABLE; SWAP_PENDING is owned by the swap engine,
// and an event parked there cannot be edited or deleted out from under the
// active negotiation.
type EventService struct {
	store repository.Store
}

// NewEventService constructs an EventService.
func NewEventService(store repository.Store) *EventService {
	return &EventService{store: store}
}

func validateTimes(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return fmt.Errorf("%w: start_time and end_time are required", repository.ErrInvalidOperation)
	}
	if !end.After(start) {
		return fmt.Errorf("%w: end_time must be after start_time", repository.ErrInvalidOperation)
	}
	return nil
}

func validateOwnerStatus(status model.EventStatus) error {
	if status != model.StatusBusy && status != model.StatusSwappable {
		return fmt.Errorf("%w: status must be BUSY or SWAPPABLE", repository.ErrInvalidOperation)
	}
	return nil
}

// Create inserts a new event owned by ownerID. Status defaults to BUSY.
func (s *EventService) Create(ctx context.Context, ownerID uuid.UUID, req model.CreateEventRequest) (*model.Event, error) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return nil, fmt.Errorf("%w: title is required", repository.ErrInvalidOperation)
	}
	if err := validateTimes(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}
	if req.Status == "" {
		req.Status = model.StatusBusy
	}
	if err := validateOwnerStatus(req.Status); err != nil {
		return nil, err
	}

	event := &model.Event{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Title:     req.Title,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Status:    req.Status,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Events().Create(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

// Get returns one of the caller's events. Events owned by other users are
// reported as not found rather than forbidden, matching the owner-scoped
// listing surface.
func (s *EventService) Get(ctx context.Context, ownerID, eventID uuid.UUID) (*model.Event, error) {
	event, err := s.store.Events().GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: event", repository.ErrNotFound)
	}
	return event, nil
}

// ListMine returns the caller's events ordered by start time.
func (s *EventService) ListMine(ctx context.Context, ownerID uuid.UUID) ([]model.Event, error) {
	return s.store.Events().ListByOwner(ctx, ownerID)
}

// Update patches the caller's event. The event row is re-read under lock so
// an edit cannot race a swap proposal: once the engine has parked the event
// at SWAP_PENDING the edit fails with ErrInvalidState.
func (s *EventService) Update(ctx context.Context, ownerID, eventID uuid.UUID, req model.UpdateEventRequest) (*model.Event, error) {
	if req.Status != nil {
		if err := validateOwnerStatus(*req.Status); err != nil {
			return nil, err
		}
	}

	var updated *model.Event
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		event, err := tx.LockEvent(ctx, eventID)
		if err != nil {
			return err
		}
		if event.OwnerID != ownerID {
			return fmt.Errorf("%w: event", repository.ErrNotFound)
		}
		if event.Status == model.StatusSwapPending {
			return fmt.Errorf("%w: event is part of an active swap negotiation", repository.ErrInvalidState)
		}

		if req.Title != nil {
			title := strings.TrimSpace(*req.Title)
			if title == "" {
				return fmt.Errorf("%w: title is required", repository.ErrInvalidOperation)
			}
			event.Title = title
		}
		if req.StartTime != nil {
			event.StartTime = *req.StartTime
		}
		if req.EndTime != nil {
			event.EndTime = *req.EndTime
		}
		if err := validateTimes(event.StartTime, event.EndTime); err != nil {
			return err
		}
		if req.Status != nil {
			event.Status = *req.Status
		}

		if err := tx.UpdateEvent(ctx, event); err != nil {
			return err
		}
		updated = event
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the caller's event. Deletion is refused while the event is
// the subject of an active swap request.
func (s *EventService) Delete(ctx context.Context, ownerID, eventID uuid.UUID) error {
	return s.store.InTx(ctx, func(tx repository.Tx) error {
		event, err := tx.LockEvent(ctx, eventID)
		if err != nil {
			return err
		}
		if event.OwnerID != ownerID {
			return fmt.Errorf("%w: event", repository.ErrNotFound)
		}
		if event.Status == model.StatusSwapPending {
			return fmt.Errorf("%w: event is part of an active swap negotiation", repository.ErrInvalidState)
		}
		held, err := tx.HasActiveRequest(ctx, eventID)
		if err != nil {
			return err
		}
		if held {
			return fmt.Errorf("%w: event is part of an active swap negotiation", repository.ErrInvalidState)
		}
		return tx.DeleteEvent(ctx, eventID)
	})
}
