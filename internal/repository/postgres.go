package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/slotswapper/slotswapper/internal/model"
)

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
	users       *postgresUsers
	events      *postgresEvents
	swaps       *postgresSwaps
}

// NewPostgresStore constructs a PostgresStore. lockTimeout bounds how long a
// transaction waits on a contended row before failing with ErrUnavailable.
func NewPostgresStore(pool *pgxpool.Pool, lockTimeout time.Duration) *PostgresStore {
	return &PostgresStore{
		pool:        pool,
		lockTimeout: lockTimeout,
		users:       &postgresUsers{db: pool},
		events:      &postgresEvents{db: pool},
		swaps:       &postgresSwaps{db: pool},
	}
}

func (s *PostgresStore) Users() UserRepository   { return s.users }
func (s *PostgresStore) Events() EventRepository { return s.events }
func (s *PostgresStore) Swaps() SwapRepository   { return s.swaps }

// translatePgErr maps PostgreSQL error codes onto the service error taxonomy.
func translatePgErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "55P03": // lock_not_available
			return fmt.Errorf("%w: lock wait exceeded", ErrUnavailable)
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return fmt.Errorf("%w: transaction raced a concurrent update", ErrConflict)
		case "23505": // unique_violation
			return fmt.Errorf("%w: duplicate row", ErrConflict)
		}
	}
	return err
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx so the row scanners
// below can be shared between plain reads and in-transaction reads.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// ─── Users ───────────────────────────────────────────────────────────────────

type postgresUsers struct {
	db querier
}

func (r *postgresUsers) Create(ctx context.Context, u *model.User) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO users (id, email, name, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.CreatedAt,
	)
	if err != nil {
		if err = translatePgErr(err); errors.Is(err, ErrConflict) {
			return fmt.Errorf("%w: email already registered", ErrConflict)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

const userColumns = `id, email, name, password_hash, created_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: user", ErrNotFound)
		}
		return nil, fmt.Errorf("scan user: %w", translatePgErr(err))
	}
	return &u, nil
}

func (r *postgresUsers) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *postgresUsers) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// ─── Events ──────────────────────────────────────────────────────────────────

type postgresEvents struct {
	db querier
}

const eventColumns = `id, owner_id, title, start_time, end_time, status, created_at`

func scanEvent(row pgx.Row) (*model.Event, error) {
	var e model.Event
	err := row.Scan(&e.ID, &e.OwnerID, &e.Title, &e.StartTime, &e.EndTime, &e.Status, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: event", ErrNotFound)
		}
		return nil, fmt.Errorf("scan event: %w", translatePgErr(err))
	}
	return &e, nil
}

func (r *postgresEvents) Create(ctx context.Context, e *model.Event) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO events (id, owner_id, title, start_time, end_time, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.OwnerID, e.Title, e.StartTime, e.EndTime, e.Status, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", translatePgErr(err))
	}
	return nil
}

func (r *postgresEvents) GetByID(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	return scanEvent(r.db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
}

func (r *postgresEvents) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Event, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+eventColumns+` FROM events
		 WHERE owner_id = $1
		 ORDER BY start_time ASC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", translatePgErr(err))
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func (r *postgresEvents) ListSwappable(ctx context.Context, excludeOwnerID uuid.UUID) ([]model.SwappableEvent, error) {
	rows, err := r.db.Query(ctx,
		`SELECT e.id, e.owner_id, e.title, e.start_time, e.end_time, e.status, e.created_at, u.name
		 FROM events e
		 JOIN users u ON u.id = e.owner_id
		 WHERE e.status = $1 AND e.owner_id <> $2
		 ORDER BY e.start_time ASC`,
		model.StatusSwappable, excludeOwnerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list swappable events: %w", translatePgErr(err))
	}
	defer rows.Close()

	var events []model.SwappableEvent
	for rows.Next() {
		var e model.SwappableEvent
		if err := rows.Scan(&e.ID, &e.OwnerID, &e.Title, &e.StartTime, &e.EndTime,
			&e.Status, &e.CreatedAt, &e.OwnerName); err != nil {
			return nil, fmt.Errorf("scan swappable event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
