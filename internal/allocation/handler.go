package allocation

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/splittab/splittab/internal/models"
	"github.com/splittab/splittab/pkg/middleware"
	"github.com/splittab/splittab/pkg/response"
)

// Handler handles HTTP requests for allocation operations
type Handler struct {
	service *Service
}

// NewHandler creates a new allocation handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for allocation endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Put("/bulk", h.UpdateBulk)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Remove)
	r.Get("/budget/{itemId}", h.PortionBudget)
	r.Get("/participant/{participantId}", h.ListByParticipant)

	return r
}

// ListByParticipant handles GET /allocations/participant/{participantId}
// @Summary      List a participant's allocations
// @Tags         allocations
// @Produce      json
// @Param        participantId path string true "Participant ID"
// @Success      200 {object} response.APIResponse{data=[]models.Allocation}
// @Failure      404 {object} response.APIResponse
// @Router       /allocations/participant/{participantId} [get]
func (h *Handler) ListByParticipant(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}
	participantID := models.ParticipantID(chi.URLParam(r, "participantId"))

	allocations, err := h.service.ListByParticipant(r.Context(), owner, participantID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, allocations)
}

// Create handles POST /allocations
// @Summary      Allocate part of an item to a participant
// @Description  Create an allocation with a portion in [0,1]; the amount is derived from the item's current price and quantity and the participant's total is recalculated before returning
// @Tags         allocations
// @Accept       json
// @Produce      json
// @Param        request body CreateAllocationRequest true "Allocation creation request"
// @Success      201 {object} response.APIResponse{data=models.Allocation}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Failure      422 {object} response.APIResponse
// @Router       /allocations [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req CreateAllocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	alloc, err := h.service.Create(r.Context(), owner, &req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSONWithWarnings(w, http.StatusCreated, alloc, h.budgetWarnings(r, owner, alloc.ItemID))
}

// Update handles PUT /allocations/{id}
// @Summary      Change an allocation's portion
// @Description  Recomputes the amount from the item's current price and quantity and recalculates the participant's total
// @Tags         allocations
// @Accept       json
// @Produce      json
// @Param        id path string true "Allocation ID"
// @Param        request body UpdateAllocationRequest true "New portion"
// @Success      200 {object} response.APIResponse{data=models.Allocation}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /allocations/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}
	id := models.AllocationID(chi.URLParam(r, "id"))

	var req UpdateAllocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if req.Portion == nil {
		response.BadRequest(w, "Allocation portion is required")
		return
	}

	alloc, err := h.service.Update(r.Context(), owner, id, *req.Portion)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSONWithWarnings(w, http.StatusOK, alloc, h.budgetWarnings(r, owner, alloc.ItemID))
}

// UpdateBulk handles PUT /allocations/bulk
// @Summary      Update several allocations at once
// @Description  Applies a list of portion updates, recalculating each affected participant
// @Tags         allocations
// @Accept       json
// @Produce      json
// @Param        request body BulkUpdateRequest true "Bulk portion updates"
// @Success      200 {object} response.APIResponse{data=[]models.Allocation}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /allocations/bulk [put]
func (h *Handler) UpdateBulk(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req BulkUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if len(req.Allocations) == 0 {
		response.BadRequest(w, "At least one allocation update is required")
		return
	}

	allocations, err := h.service.UpdateMany(r.Context(), owner, req.Allocations)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, allocations)
}

// Remove handles DELETE /allocations/{id}
// @Summary      Remove an allocation
// @Description  Deletes the allocation and recalculates the participant's total; repeat calls report removed=false
// @Tags         allocations
// @Produce      json
// @Param        id path string true "Allocation ID"
// @Success      200 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Router       /allocations/{id} [delete]
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}
	id := models.AllocationID(chi.URLParam(r, "id"))

	removed, err := h.service.Remove(r.Context(), owner, id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]bool{"removed": removed})
}

// PortionBudget handles GET /allocations/budget/{itemId}
// @Summary      Check an item's portion budget
// @Description  Advisory check of the sum of portions allocated from one item; valid=false when the sum exceeds 1.0
// @Tags         allocations
// @Produce      json
// @Param        itemId path string true "Item ID"
// @Success      200 {object} response.APIResponse{data=settlement.PortionBudget}
// @Failure      404 {object} response.APIResponse
// @Router       /allocations/budget/{itemId} [get]
func (h *Handler) PortionBudget(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}
	itemID := models.ItemID(chi.URLParam(r, "itemId"))

	budget, err := h.service.ValidatePortionBudget(r.Context(), owner, itemID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, budget)
}

// budgetWarnings surfaces an over-allocated item as an advisory warning on
// write responses. Budget failures never block the write.
func (h *Handler) budgetWarnings(r *http.Request, owner models.UserID, itemID models.ItemID) []string {
	budget, err := h.service.ValidatePortionBudget(r.Context(), owner, itemID)
	if err != nil || budget.Valid {
		return nil
	}
	return []string{fmt.Sprintf("item has total allocation %.2f, exceeding 100%%", budget.Total)}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrItemNotFound), errors.Is(err, ErrParticipantNotFound), errors.Is(err, ErrAllocationNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrInvalidPortion):
		response.BadRequest(w, err.Error())
	case errors.Is(err, ErrCrossBillReference):
		response.UnprocessableEntity(w, err.Error())
	case errors.Is(err, ErrUnauthorized):
		response.Forbidden(w, err.Error())
	default:
		response.InternalError(w, "Failed to process allocation")
	}
}
