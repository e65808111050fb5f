package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/slotswapper/slotswapper/internal/model"
	"github.com/slotswapper/slotswapper/internal/service"
)

// SwapHandler holds the swap negotiation endpoints.
type SwapHandler struct {
	svc *service.SwapService
}

// NewSwapHandler constructs a SwapHandler.
func NewSwapHandler(svc *service.SwapService) *SwapHandler {
	return &SwapHandler{svc: svc}
}

// ListSwappable handles GET /swaps/swappable-slots
// Returns every open slot owned by somebody else.
func (h *SwapHandler) ListSwappable(w http.ResponseWriter, r *http.Request) {
	caller, ok := Principal(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing principal")
		return
	}

	events, err := h.svc.ListSwappable(r.Context(), caller)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if events == nil {
		events = []model.SwappableEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

// Propose handles POST /swaps/request-swap
func (h *SwapHandler) Propose(w http.ResponseWriter, r *http.Request) {
	caller, ok := Principal(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing principal")
		return
	}

	var req model.ProposeSwapRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	details, err := h.svc.Propose(r.Context(), caller, req.MySlotID, req.TheirSlotID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, details)
}

// ListIncoming handles GET /swaps/incoming-requests
func (h *SwapHandler) ListIncoming(w http.ResponseWriter, r *http.Request) {
	caller, ok := Principal(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing principal")
		return
	}

	requests, err := h.svc.ListIncoming(r.Context(), caller)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if requests == nil {
		requests = []model.SwapRequestDetails{}
	}
	writeJSON(w, http.StatusOK, requests)
}

// ListOutgoing handles GET /swaps/outgoing-requests
func (h *SwapHandler) ListOutgoing(w http.ResponseWriter, r *http.Request) {
	caller, ok := Principal(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing principal")
		return
	}

	requests, err := h.svc.ListOutgoing(r.Context(), caller)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if requests == nil {
		requests = []model.SwapRequestDetails{}
	}
	writeJSON(w, http.StatusOK, requests)
}

// Respond handles POST /swaps/response-swap/{id}
func (h *SwapHandler) Respond(w http.ResponseWriter, r *http.Request) {
	caller, ok := Principal(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing principal")
		return
	}
	requestID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid swap request id")
		return
	}

	var req model.RespondSwapRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	details, err := h.svc.Respond(r.Context(), caller, requestID, req.Accepted)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}
