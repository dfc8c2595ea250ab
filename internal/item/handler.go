package item

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/splittab/splittab/internal/models"
	"github.com/splittab/splittab/pkg/middleware"
	"github.com/splittab/splittab/pkg/response"
)

// Handler handles HTTP requests for item operations
type Handler struct {
	service *Service
}

// NewHandler creates a new item handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for item endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Add)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Remove)

	return r
}

// Add handles POST /items
// @Summary      Add an item to a bill
// @Tags         items
// @Accept       json
// @Produce      json
// @Param        request body AddItemRequest true "Item creation request"
// @Success      201 {object} response.APIResponse{data=models.Item}
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Router       /items [post]
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	item, err := h.service.Add(r.Context(), owner, &req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, item)
}

// Get handles GET /items/{id}
// @Summary      Get an item with its allocations
// @Tags         items
// @Produce      json
// @Param        id path string true "Item ID"
// @Success      200 {object} response.APIResponse{data=models.Item}
// @Failure      404 {object} response.APIResponse
// @Router       /items/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	item, err := h.service.Get(r.Context(), owner, models.ItemID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, item)
}

// Update handles PUT /items/{id}
// @Summary      Update an item
// @Description  Partial edit; a price or quantity change cascades to every allocation of the item and the affected participants' totals before returning
// @Tags         items
// @Accept       json
// @Produce      json
// @Param        id path string true "Item ID"
// @Param        request body UpdateItemRequest true "Fields to change"
// @Success      200 {object} response.APIResponse{data=models.Item}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /items/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req UpdateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	item, err := h.service.Update(r.Context(), owner, models.ItemID(chi.URLParam(r, "id")), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, item)
}

// Remove handles DELETE /items/{id}
// @Summary      Remove an item
// @Description  Deletes the item and its allocations, recalculating each affected participant
// @Tags         items
// @Produce      json
// @Param        id path string true "Item ID"
// @Success      200 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /items/{id} [delete]
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	removed, err := h.service.Remove(r.Context(), owner, models.ItemID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]bool{"removed": removed})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrItemNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrValidation):
		response.BadRequest(w, err.Error())
	case errors.Is(err, ErrUnauthorized):
		response.Forbidden(w, err.Error())
	default:
		response.InternalError(w, "Failed to process item")
	}
}
