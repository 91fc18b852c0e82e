package rest

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Freeeeeet/slotswap/internal/model"
	"github.com/Freeeeeet/slotswap/internal/service"
)

// Handler holds the HTTP handlers for slots and swaps.
type Handler struct {
	slots  *service.SlotService
	swaps  *service.SwapService
	logger *zap.Logger
}

type createSlotRequest struct {
	Title     string    `json:"title"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type swapRequest struct {
	MySlotID    int64 `json:"my_slot_id"`
	TheirSlotID int64 `json:"their_slot_id"`
}

type swapResponse struct {
	Accepted *bool `json:"accepted"`
}

// userID достаёт ID пользователя, проставленный Authenticator
func userID(r *http.Request) int64 {
	id, _ := UserIDFromContext(r.Context())
	return id
}

// ListSlots handles GET /api/slots
func (h *Handler) ListSlots(w http.ResponseWriter, r *http.Request) {
	slots, err := h.slots.ListOwned(r.Context(), userID(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if slots == nil {
		slots = []*model.Slot{}
	}
	writeJSON(w, http.StatusOK, slots)
}

// CreateSlot handles POST /api/slots
func (h *Handler) CreateSlot(w http.ResponseWriter, r *http.Request) {
	var req createSlotRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	slot, err := h.slots.Create(r.Context(), userID(r), req.Title, req.StartTime, req.EndTime)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, slot)
}

// GetSlot handles GET /api/slots/{id}
func (h *Handler) GetSlot(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	slot, err := h.slots.Get(r.Context(), userID(r), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, slot)
}

// UpdateSlot handles PATCH and PUT /api/slots/{id}.
// Both are partial: only the fields present in the body change.
func (h *Handler) UpdateSlot(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var patch model.SlotPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	slot, err := h.slots.Update(r.Context(), userID(r), id, patch)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, slot)
}

// DeleteSlot handles DELETE /api/slots/{id}
func (h *Handler) DeleteSlot(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.slots.Delete(r.Context(), userID(r), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "deleted": true})
}

// ListSwappable handles GET /api/swappable-slots
func (h *Handler) ListSwappable(w http.ResponseWriter, r *http.Request) {
	slots, err := h.slots.ListExchangeable(r.Context(), userID(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if slots == nil {
		slots = []*model.MarketSlot{}
	}
	writeJSON(w, http.StatusOK, slots)
}

// ProposeSwap handles POST /api/swap-request
func (h *Handler) ProposeSwap(w http.ResponseWriter, r *http.Request) {
	var req swapRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.MySlotID <= 0 || req.TheirSlotID <= 0 {
		writeError(w, http.StatusBadRequest, "my_slot_id and their_slot_id are required")
		return
	}

	proposal, err := h.swaps.Propose(r.Context(), userID(r), req.MySlotID, req.TheirSlotID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, proposal)
}

// RespondSwap handles POST /api/swap-response/{id}
func (h *Handler) RespondSwap(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req swapResponse
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Accepted == nil {
		writeError(w, http.StatusBadRequest, "accepted is required")
		return
	}

	proposal, err := h.swaps.Respond(r.Context(), userID(r), id, *req.Accepted)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, proposal)
}

// ListRequests handles GET /api/requests
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	list, err := h.swaps.ListFor(r.Context(), userID(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GetRequest handles GET /api/requests/{id}
func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := h.swaps.Get(r.Context(), userID(r), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
