package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/slotswapper/slotswapper/internal/model"
)

type postgresSwaps struct {
	db querier
}

const swapColumns = `id, requester_id, offered_event_id, requested_event_id, status, created_at, updated_at`

func scanSwap(row pgx.Row) (*model.SwapRequest, error) {
	var r model.SwapRequest
	err := row.Scan(&r.ID, &r.RequesterID, &r.OfferedEventID, &r.RequestedEventID,
		&r.Status, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: swap request", ErrNotFound)
		}
		return nil, fmt.Errorf("scan swap request: %w", translatePgErr(err))
	}
	return &r, nil
}

func (r *postgresSwaps) GetByID(ctx context.Context, id uuid.UUID) (*model.SwapRequest, error) {
	return scanSwap(r.db.QueryRow(ctx,
		`SELECT `+swapColumns+` FROM swap_requests WHERE id = $1`, id))
}

// detailsQuery joins a swap request with both event rows and the requester.
// Resolved requests outlive the events they reference, so the event joins are
// LEFT JOINs and the event columns may come back NULL.
const detailsQuery = `
	SELECT r.id, r.requester_id, r.offered_event_id, r.requested_event_id,
	       r.status, r.created_at, r.updated_at,
	       oe.owner_id, oe.title, oe.start_time, oe.end_time, oe.status, oe.created_at,
	       re.owner_id, re.title, re.start_time, re.end_time, re.status, re.created_at,
	       u.name, u.email
	FROM swap_requests r
	LEFT JOIN events oe ON oe.id = r.offered_event_id
	LEFT JOIN events re ON re.id = r.requested_event_id
	JOIN users u ON u.id = r.requester_id`

// nullableEvent holds the LEFT JOIN columns of one event row.
type nullableEvent struct {
	ownerID   *uuid.UUID
	title     *string
	startTime *time.Time
	endTime   *time.Time
	status    *string
	createdAt *time.Time
}

// event materializes the row, or a bare placeholder carrying only the
// recorded ID when the event has been deleted.
func (n nullableEvent) event(id uuid.UUID) model.Event {
	e := model.Event{ID: id}
	if n.ownerID == nil {
		return e
	}
	e.OwnerID = *n.ownerID
	e.Title = *n.title
	e.StartTime = *n.startTime
	e.EndTime = *n.endTime
	e.Status = model.EventStatus(*n.status)
	e.CreatedAt = *n.createdAt
	return e
}

func scanDetails(row pgx.Row) (*model.SwapRequestDetails, error) {
	var (
		d      model.SwapRequestDetails
		oe, re nullableEvent
	)
	err := row.Scan(
		&d.ID, &d.RequesterID, &d.OfferedEventID, &d.RequestedEventID,
		&d.Status, &d.CreatedAt, &d.UpdatedAt,
		&oe.ownerID, &oe.title, &oe.startTime, &oe.endTime, &oe.status, &oe.createdAt,
		&re.ownerID, &re.title, &re.startTime, &re.endTime, &re.status, &re.createdAt,
		&d.RequesterName, &d.RequesterEmail,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: swap request", ErrNotFound)
		}
		return nil, fmt.Errorf("scan swap details: %w", translatePgErr(err))
	}
	d.OfferedEvent = oe.event(d.OfferedEventID)
	d.RequestedEvent = re.event(d.RequestedEventID)
	return &d, nil
}

func (r *postgresSwaps) GetDetails(ctx context.Context, id uuid.UUID) (*model.SwapRequestDetails, error) {
	return scanDetails(r.db.QueryRow(ctx, detailsQuery+` WHERE r.id = $1`, id))
}

func (r *postgresSwaps) listDetails(ctx context.Context, query string, args ...any) ([]model.SwapRequestDetails, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list swap requests: %w", translatePgErr(err))
	}
	defer rows.Close()

	var out []model.SwapRequestDetails
	for rows.Next() {
		d, err := scanDetails(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (r *postgresSwaps) ListIncoming(ctx context.Context, userID uuid.UUID) ([]model.SwapRequestDetails, error) {
	return r.listDetails(ctx,
		detailsQuery+`
		WHERE r.status = $1 AND re.owner_id = $2
		ORDER BY r.created_at DESC`,
		model.SwapPending, userID,
	)
}

func (r *postgresSwaps) ListOutgoing(ctx context.Context, userID uuid.UUID) ([]model.SwapRequestDetails, error) {
	return r.listDetails(ctx,
		detailsQuery+`
		WHERE r.requester_id = $1
		ORDER BY r.created_at DESC`,
		userID,
	)
}
