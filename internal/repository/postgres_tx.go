package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/slotswapper/slotswapper/internal/model"
)

// InTx runs fn inside a single transaction with a bounded lock wait.
// Everything fn writes becomes visible atomically at commit; any error rolls
// the whole transaction back.
func (s *PostgresStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	pgtx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", translatePgErr(err))
	}
	defer pgtx.Rollback(ctx) //nolint:errcheck // no-op after commit

	// Bound lock waits so a contended row surfaces ErrUnavailable instead of
	// hanging the caller. SET LOCAL scopes the setting to this transaction.
	_, err = pgtx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds()))
	if err != nil {
		return fmt.Errorf("set lock timeout: %w", translatePgErr(err))
	}

	if err := fn(&pgTx{tx: pgtx}); err != nil {
		return err
	}
	if err := pgtx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", translatePgErr(err))
	}
	return nil
}

// pgTx implements Tx on an open pgx transaction.
type pgTx struct {
	tx pgx.Tx
}

// LockEvent acquires an exclusive row lock on the event and returns the fresh
// row. The lock is held until the transaction resolves.
func (t *pgTx) LockEvent(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	e, err := scanEvent(t.tx.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("lock event row: %w", translatePgErr(err))
	}
	return e, err
}

func (t *pgTx) UpdateEvent(ctx context.Context, e *model.Event) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE events
		 SET owner_id = $2, title = $3, start_time = $4, end_time = $5, status = $6
		 WHERE id = $1`,
		e.ID, e.OwnerID, e.Title, e.StartTime, e.EndTime, e.Status,
	)
	if err != nil {
		return fmt.Errorf("update event: %w", translatePgErr(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: event", ErrNotFound)
	}
	return nil
}

func (t *pgTx) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", translatePgErr(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: event", ErrNotFound)
	}
	return nil
}

func (t *pgTx) InsertSwapRequest(ctx context.Context, r *model.SwapRequest) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO swap_requests
		 (id, requester_id, offered_event_id, requested_event_id, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.ID, r.RequesterID, r.OfferedEventID, r.RequestedEventID, r.Status, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert swap request: %w", translatePgErr(err))
	}
	return nil
}

func (t *pgTx) LockSwapRequest(ctx context.Context, id uuid.UUID) (*model.SwapRequest, error) {
	r, err := scanSwap(t.tx.QueryRow(ctx,
		`SELECT `+swapColumns+` FROM swap_requests WHERE id = $1 FOR UPDATE`, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("lock swap request row: %w", translatePgErr(err))
	}
	return r, err
}

func (t *pgTx) UpdateSwapRequestStatus(ctx context.Context, id uuid.UUID, status model.SwapStatus) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE swap_requests SET status = $2, updated_at = now() WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return fmt.Errorf("update swap request status: %w", translatePgErr(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: swap request", ErrNotFound)
	}
	return nil
}

// SweepCompetingRequests rejects every other PENDING request touching either
// event in a single conditional update and returns the swept rows.
func (t *pgTx) SweepCompetingRequests(ctx context.Context, eventA, eventB, exceptID uuid.UUID) ([]model.SwapRequest, error) {
	rows, err := t.tx.Query(ctx,
		`UPDATE swap_requests
		 SET status = $1, updated_at = now()
		 WHERE status = $2
		   AND id <> $3
		   AND (offered_event_id   IN ($4, $5)
		     OR requested_event_id IN ($4, $5))
		 RETURNING `+swapColumns,
		model.SwapRejected, model.SwapPending, exceptID, eventA, eventB,
	)
	if err != nil {
		return nil, fmt.Errorf("sweep competing requests: %w", translatePgErr(err))
	}
	defer rows.Close()

	var swept []model.SwapRequest
	for rows.Next() {
		r, err := scanSwap(rows)
		if err != nil {
			return nil, err
		}
		swept = append(swept, *r)
	}
	return swept, rows.Err()
}

func (t *pgTx) HasActiveRequest(ctx context.Context, eventID uuid.UUID) (bool, error) {
	var n int
	err := t.tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM swap_requests
		 WHERE status = $1 AND (offered_event_id = $2 OR requested_event_id = $2)`,
		model.SwapPending, eventID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check active requests: %w", translatePgErr(err))
	}
	return n > 0, nil
}
