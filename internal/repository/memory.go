package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/slotswapper/slotswapper/internal/model"
)

// MemoryStore implements Store entirely in memory. It backs the "memory"
// database driver for local development and is the store used by the unit
// tests. Transactions are serialized by a single mutex and staged on cloned
// maps, so a failed transaction leaves no trace — the same
// commit-or-nothing contract the PostgreSQL store provides.
type MemoryStore struct {
	mu     chanMutex
	users  map[uuid.UUID]model.User
	events map[uuid.UUID]model.Event
	swaps  map[uuid.UUID]model.SwapRequest
}

// chanMutex is a mutex with a bounded, context-aware acquire, mirroring the
// lock_timeout behavior of the PostgreSQL store.
type chanMutex struct {
	ch chan struct{}
}

func newChanMutex() chanMutex {
	return chanMutex{ch: make(chan struct{}, 1)}
}

func (m *chanMutex) lock(ctx context.Context, timeout time.Duration) error {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case m.ch <- struct{}{}:
		return nil
	case <-t.C:
		return fmt.Errorf("%w: lock wait exceeded", ErrUnavailable)
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
	}
}

func (m *chanMutex) unlock() { <-m.ch }

// lockTimeout mirrors the default DB_LOCK_TIMEOUT.
const memLockTimeout = 3 * time.Second

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mu:     newChanMutex(),
		users:  make(map[uuid.UUID]model.User),
		events: make(map[uuid.UUID]model.Event),
		swaps:  make(map[uuid.UUID]model.SwapRequest),
	}
}

func (s *MemoryStore) Users() UserRepository   { return &memUsers{s: s} }
func (s *MemoryStore) Events() EventRepository { return &memEvents{s: s} }
func (s *MemoryStore) Swaps() SwapRepository   { return &memSwaps{s: s} }

// InTx serializes transactions behind the store mutex and stages all writes
// on cloned maps, publishing them only when fn succeeds.
func (s *MemoryStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := s.mu.lock(ctx, memLockTimeout); err != nil {
		return err
	}
	defer s.mu.unlock()

	tx := &memTx{
		events: cloneMap(s.events),
		swaps:  cloneMap(s.swaps),
	}
	if err := fn(tx); err != nil {
		return err
	}
	s.events = tx.events
	s.swaps = tx.swaps
	return nil
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ─── Users ───────────────────────────────────────────────────────────────────

type memUsers struct {
	s *MemoryStore
}

func (r *memUsers) Create(ctx context.Context, u *model.User) error {
	if err := r.s.mu.lock(ctx, memLockTimeout); err != nil {
		return err
	}
	defer r.s.mu.unlock()

	for _, existing := range r.s.users {
		if existing.Email == u.Email {
			return fmt.Errorf("%w: email already registered", ErrConflict)
		}
	}
	r.s.users[u.ID] = *u
	return nil
}

func (r *memUsers) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	if err := r.s.mu.lock(ctx, memLockTimeout); err != nil {
		return nil, err
	}
	defer r.s.mu.unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user", ErrNotFound)
	}
	return &u, nil
}

func (r *memUsers) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	if err := r.s.mu.lock(ctx, memLockTimeout); err != nil {
		return nil, err
	}
	defer r.s.mu.unlock()

	for _, u := range r.s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("%w: user", ErrNotFound)
}

// ─── Events ──────────────────────────────────────────────────────────────────

type memEvents struct {
	s *MemoryStore
}

func (r *memEvents) Create(ctx context.Context, e *model.Event) error {
	if err := r.s.mu.lock(ctx, memLockTimeout); err != nil {
		return err
	}
	defer r.s.mu.unlock()

	r.s.events[e.ID] = *e
	return nil
}

func (r *memEvents) GetByID(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	if err := r.s.mu.lock(ctx, memLockTimeout); err != nil {
		return nil, err
	}
	defer r.s.mu.unlock()

	e, ok := r.s.events[id]
	if !ok {
		return nil, fmt.Errorf("%w: event", ErrNotFound)
	}
	return &e, nil
}

func (r *memEvents) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Event, error) {
	if err := r.s.mu.lock(ctx, memLockTimeout); err != nil {
		return nil, err
	}
	defer r.s.mu.unlock()

	var events []model.Event
	for _, e := range r.s.events {
		if e.OwnerID == ownerID {
			events = append(events, e)
		}
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].StartTime.Before(events[j].StartTime)
	})
	return events, nil
}

func (r *memEvents) ListSwappable(ctx context.Context, excludeOwnerID uuid.UUID) ([]model.SwappableEvent, error) {
	if err := r.s.mu.lock(ctx, memLockTimeout); err != nil {
		return nil, err
	}
	defer r.s.mu.unlock()

	var events []model.SwappableEvent
	for _, e := range r.s.events {
		if e.Status != model.StatusSwappable || e.OwnerID == excludeOwnerID {
			continue
		}
		owner, ok := r.s.users[e.OwnerID]
		if !ok {
			continue
		}
		events = append(events, model.SwappableEvent{Event: e, OwnerName: owner.Name})
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].StartTime.Before(events[j].StartTime)
	})
	return events, nil
}

// ─── Swaps ───────────────────────────────────────────────────────────────────

type memSwaps struct {
	s *MemoryStore
}

func (r *memSwaps) GetByID(ctx context.Context, id uuid.UUID) (*model.SwapRequest, error) {
	if err := r.s.mu.lock(ctx, memLockTimeout); err != nil {
		return nil, err
	}
	defer r.s.mu.unlock()

	sr, ok := r.s.swaps[id]
	if !ok {
		return nil, fmt.Errorf("%w: swap request", ErrNotFound)
	}
	return &sr, nil
}

// details joins a request with its events and requester. Caller holds the
// lock. Requests outlive the events they reference, so a missing event is
// reported as a bare placeholder carrying only the recorded ID.
func (r *memSwaps) details(sr model.SwapRequest) model.SwapRequestDetails {
	offered, ok := r.s.events[sr.OfferedEventID]
	if !ok {
		offered = model.Event{ID: sr.OfferedEventID}
	}
	requested, ok := r.s.events[sr.RequestedEventID]
	if !ok {
		requested = model.Event{ID: sr.RequestedEventID}
	}
	d := model.SwapRequestDetails{
		SwapRequest:    sr,
		OfferedEvent:   offered,
		RequestedEvent: requested,
	}
	if requester, ok := r.s.users[sr.RequesterID]; ok {
		d.RequesterName = requester.Name
		d.RequesterEmail = requester.Email
	}
	return d
}

func (r *memSwaps) GetDetails(ctx context.Context, id uuid.UUID) (*model.SwapRequestDetails, error) {
	if err := r.s.mu.lock(ctx, memLockTimeout); err != nil {
		return nil, err
	}
	defer r.s.mu.unlock()

	sr, ok := r.s.swaps[id]
	if !ok {
		return nil, fmt.Errorf("%w: swap request", ErrNotFound)
	}
	d := r.details(sr)
	return &d, nil
}

func (r *memSwaps) list(keep func(model.SwapRequest) bool) ([]model.SwapRequestDetails, error) {
	var out []model.SwapRequestDetails
	for _, sr := range r.s.swaps {
		if !keep(sr) {
			continue
		}
		out = append(out, r.details(sr))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *memSwaps) ListIncoming(ctx context.Context, userID uuid.UUID) ([]model.SwapRequestDetails, error) {
	if err := r.s.mu.lock(ctx, memLockTimeout); err != nil {
		return nil, err
	}
	defer r.s.mu.unlock()

	return r.list(func(sr model.SwapRequest) bool {
		if sr.Status != model.SwapPending {
			return false
		}
		requested, ok := r.s.events[sr.RequestedEventID]
		return ok && requested.OwnerID == userID
	})
}

func (r *memSwaps) ListOutgoing(ctx context.Context, userID uuid.UUID) ([]model.SwapRequestDetails, error) {
	if err := r.s.mu.lock(ctx, memLockTimeout); err != nil {
		return nil, err
	}
	defer r.s.mu.unlock()

	return r.list(func(sr model.SwapRequest) bool {
		return sr.RequesterID == userID
	})
}

// ─── Transaction ─────────────────────────────────────────────────────────────

// memTx stages writes on cloned maps. The store mutex is held for the whole
// transaction, so row "locks" are implicit and re-reads always observe the
// latest committed state.
type memTx struct {
	events map[uuid.UUID]model.Event
	swaps  map[uuid.UUID]model.SwapRequest
}

func (t *memTx) LockEvent(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	e, ok := t.events[id]
	if !ok {
		return nil, fmt.Errorf("%w: event", ErrNotFound)
	}
	return &e, nil
}

func (t *memTx) UpdateEvent(ctx context.Context, e *model.Event) error {
	if _, ok := t.events[e.ID]; !ok {
		return fmt.Errorf("%w: event", ErrNotFound)
	}
	t.events[e.ID] = *e
	return nil
}

func (t *memTx) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	if _, ok := t.events[id]; !ok {
		return fmt.Errorf("%w: event", ErrNotFound)
	}
	delete(t.events, id)
	return nil
}

func (t *memTx) InsertSwapRequest(ctx context.Context, r *model.SwapRequest) error {
	t.swaps[r.ID] = *r
	return nil
}

func (t *memTx) LockSwapRequest(ctx context.Context, id uuid.UUID) (*model.SwapRequest, error) {
	sr, ok := t.swaps[id]
	if !ok {
		return nil, fmt.Errorf("%w: swap request", ErrNotFound)
	}
	return &sr, nil
}

func (t *memTx) UpdateSwapRequestStatus(ctx context.Context, id uuid.UUID, status model.SwapStatus) error {
	sr, ok := t.swaps[id]
	if !ok {
		return fmt.Errorf("%w: swap request", ErrNotFound)
	}
	sr.Status = status
	sr.UpdatedAt = time.Now().UTC()
	t.swaps[id] = sr
	return nil
}

func (t *memTx) SweepCompetingRequests(ctx context.Context, eventA, eventB, exceptID uuid.UUID) ([]model.SwapRequest, error) {
	var swept []model.SwapRequest
	for id, sr := range t.swaps {
		if sr.Status != model.SwapPending || id == exceptID {
			continue
		}
		touches := sr.OfferedEventID == eventA || sr.OfferedEventID == eventB ||
			sr.RequestedEventID == eventA || sr.RequestedEventID == eventB
		if !touches {
			continue
		}
		sr.Status = model.SwapRejected
		sr.UpdatedAt = time.Now().UTC()
		t.swaps[id] = sr
		swept = append(swept, sr)
	}
	return swept, nil
}

func (t *memTx) HasActiveRequest(ctx context.Context, eventID uuid.UUID) (bool, error) {
	for _, sr := range t.swaps {
		if sr.Status != model.SwapPending {
			continue
		}
		if sr.OfferedEventID == eventID || sr.RequestedEventID == eventID {
			return true, nil
		}
	}
	return false, nil
}
