package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/slotswapper/slotswapper/internal/auth"
	"github.com/slotswapper/slotswapper/internal/model"
	"github.com/slotswapper/slotswapper/internal/repository"
	"github.com/slotswapper/slotswapper/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	store := repository.NewMemoryStore()
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	log := zerolog.Nop()
	return NewRouter(
		log,
		issuer,
		NewAuthHandler(service.NewAuthService(store, issuer)),
		NewEventHandler(service.NewEventService(store)),
		NewSwapHandler(service.NewSwapService(store, log)),
	)
}

func do(t *testing.T, srv http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), "body: %s", rec.Body.String())
	return v
}

func signup(t *testing.T, srv http.Handler, name string) string {
	t.Helper()
	rec := do(t, srv, http.MethodPost, "/auth/signup", "", model.SignupRequest{
		Email:    name + "@example.com",
		Name:     name,
		Password: "hunter22",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[model.TokenResponse](t, rec).AccessToken
}

func createEvent(t *testing.T, srv http.Handler, token string, status model.EventStatus) model.Event {
	t.Helper()
	start := time.Now().UTC().Add(time.Hour)
	rec := do(t, srv, http.MethodPost, "/events", token, model.CreateEventRequest{
		Title:     "slot",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		Status:    status,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[model.Event](t, rec)
}

func TestAuthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	token := signup(t, srv, "alice")
	require.NotEmpty(t, token)

	rec := do(t, srv, http.MethodPost, "/auth/signup", "", model.SignupRequest{
		Email: "alice@example.com", Name: "alice2", Password: "hunter22",
	})
	assert.Equal(t, http.StatusConflict, rec.Code, "duplicate email")

	rec = do(t, srv, http.MethodPost, "/auth/login", "", model.LoginRequest{
		Email: "alice@example.com", Password: "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, srv, http.MethodPost, "/auth/login", "", model.LoginRequest{
		Email: "alice@example.com", Password: "hunter22",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decodeBody[model.TokenResponse](t, rec).AccessToken)
}

func TestProtectedRoutesRequireBearerToken(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/events", "/swaps/swappable-slots", "/swaps/incoming-requests"} {
		rec := do(t, srv, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}

	rec := do(t, srv, http.MethodGet, "/events", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, srv, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "health stays public")
}

func TestSwapFlowOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	aliceTok := signup(t, srv, "alice")
	bobTok := signup(t, srv, "bob")
	carolTok := signup(t, srv, "carol")

	aliceEvent := createEvent(t, srv, aliceTok, model.StatusSwappable)
	bobEvent := createEvent(t, srv, bobTok, model.StatusSwappable)
	carolEvent := createEvent(t, srv, carolTok, model.StatusSwappable)

	// Bob browses the open slots: alice's and carol's, never his own.
	rec := do(t, srv, http.MethodGet, "/swaps/swappable-slots", bobTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	open := decodeBody[[]model.SwappableEvent](t, rec)
	require.Len(t, open, 2)

	// Bob proposes his slot for alice's.
	rec = do(t, srv, http.MethodPost, "/swaps/request-swap", bobTok, model.ProposeSwapRequest{
		MySlotID:    bobEvent.ID,
		TheirSlotID: aliceEvent.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	proposed := decodeBody[model.SwapRequestDetails](t, rec)
	assert.Equal(t, model.SwapPending, proposed.Status)
	assert.Equal(t, "bob", proposed.RequesterName)

	// Carol cannot pile on to a held slot.
	rec = do(t, srv, http.MethodPost, "/swaps/request-swap", carolTok, model.ProposeSwapRequest{
		MySlotID:    carolEvent.ID,
		TheirSlotID: aliceEvent.ID,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Alice cannot edit the held slot either.
	title := "moved"
	rec = do(t, srv, http.MethodPut, "/events/"+aliceEvent.ID.String(), aliceTok,
		model.UpdateEventRequest{Title: &title})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// The request shows up for alice, and only for alice.
	rec = do(t, srv, http.MethodGet, "/swaps/incoming-requests", aliceTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	incoming := decodeBody[[]model.SwapRequestDetails](t, rec)
	require.Len(t, incoming, 1)
	assert.Equal(t, proposed.ID, incoming[0].ID)

	rec = do(t, srv, http.MethodGet, "/swaps/incoming-requests", carolTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[[]model.SwapRequestDetails](t, rec))

	respondPath := fmt.Sprintf("/swaps/response-swap/%s", proposed.ID)

	// Only the counterpart may respond.
	rec = do(t, srv, http.MethodPost, respondPath, carolTok, model.RespondSwapRequest{Accepted: true})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = do(t, srv, http.MethodPost, respondPath, bobTok, model.RespondSwapRequest{Accepted: true})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Alice accepts: the slots change hands.
	rec = do(t, srv, http.MethodPost, respondPath, aliceTok, model.RespondSwapRequest{Accepted: true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resolved := decodeBody[model.SwapRequestDetails](t, rec)
	assert.Equal(t, model.SwapAccepted, resolved.Status)

	// A resolved request cannot be resolved twice.
	rec = do(t, srv, http.MethodPost, respondPath, aliceTok, model.RespondSwapRequest{Accepted: false})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Bob now owns alice's old slot and vice versa; both are busy again.
	rec = do(t, srv, http.MethodGet, "/events/"+aliceEvent.ID.String(), bobTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	swappedIn := decodeBody[model.Event](t, rec)
	assert.Equal(t, model.StatusBusy, swappedIn.Status)

	// And the old owner lost access.
	rec = do(t, srv, http.MethodGet, "/events/"+aliceEvent.ID.String(), aliceTok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// The audit trail survives on bob's outgoing list.
	rec = do(t, srv, http.MethodGet, "/swaps/outgoing-requests", bobTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	outgoing := decodeBody[[]model.SwapRequestDetails](t, rec)
	require.Len(t, outgoing, 1)
	assert.Equal(t, model.SwapAccepted, outgoing[0].Status)
}

func TestEventEndpointValidation(t *testing.T) {
	srv := newTestServer(t)
	tok := signup(t, srv, "alice")

	rec := do(t, srv, http.MethodGet, "/events/not-a-uuid", tok, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	start := time.Now().UTC()
	rec = do(t, srv, http.MethodPost, "/events", tok, model.CreateEventRequest{
		Title:     "backwards",
		StartTime: start,
		EndTime:   start.Add(-time.Hour),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPost, "/events", tok, map[string]any{
		"title":         "bad field",
		"unknown_field": true,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
