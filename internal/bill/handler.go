package bill

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/splittab/splittab/internal/models"
	"github.com/splittab/splittab/pkg/middleware"
	"github.com/splittab/splittab/pkg/response"
)

// Handler handles HTTP requests for bill operations
type Handler struct {
	service *Service
}

// NewHandler creates a new bill handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for bill endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Post("/{id}/ocr", h.ImportOCR)
	r.Post("/{id}/recalculate", h.Recalculate)
	r.Get("/{id}/participants", h.Participants)
	r.Get("/{id}/items", h.Items)
	r.Get("/{id}/allocations", h.Allocations)

	return r
}

// Create handles POST /bills
// @Summary      Create a bill
// @Description  Creates a bill owned by the caller; total_amount is derived from subtotal + tax + service charge
// @Tags         bills
// @Accept       json
// @Produce      json
// @Param        request body CreateBillRequest true "Bill creation request"
// @Success      201 {object} response.APIResponse{data=BillResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /bills [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req CreateBillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	bill, err := h.service.Create(r.Context(), owner, &req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, ToResponse(bill))
}

// List handles GET /bills
// @Summary      List the caller's bills
// @Tags         bills
// @Produce      json
// @Success      200 {object} response.APIResponse{data=[]BillResponse}
// @Router       /bills [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	bills, err := h.service.ListByOwner(r.Context(), owner)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, ToResponseList(bills))
}

// Get handles GET /bills/{id}
// @Summary      Get a bill with participants and items
// @Tags         bills
// @Produce      json
// @Param        id path string true "Bill ID"
// @Success      200 {object} response.APIResponse{data=BillResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /bills/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	bill, err := h.service.Get(r.Context(), owner, models.BillID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, ToResponse(bill))
}

// Update handles PUT /bills/{id}
// @Summary      Update a bill
// @Description  Partial edit; when any money component changes, the total is re-derived from the merged values
// @Tags         bills
// @Accept       json
// @Produce      json
// @Param        id path string true "Bill ID"
// @Param        request body UpdateBillRequest true "Fields to change"
// @Success      200 {object} response.APIResponse{data=BillResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /bills/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req UpdateBillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	bill, err := h.service.Update(r.Context(), owner, models.BillID(chi.URLParam(r, "id")), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, ToResponse(bill))
}

// Delete handles DELETE /bills/{id}
// @Summary      Delete a bill
// @Description  Cascades to all allocations, items and participants; deleted=false when the bill does not exist or is not the caller's
// @Tags         bills
// @Produce      json
// @Param        id path string true "Bill ID"
// @Success      200 {object} response.APIResponse
// @Router       /bills/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	deleted, err := h.service.Delete(r.Context(), owner, models.BillID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

// ImportOCR handles POST /bills/{id}/ocr
// @Summary      Import OCR results into a bill
// @Description  Stores the opaque OCR payload and bulk-inserts the extracted items; allocations are added separately
// @Tags         bills
// @Accept       json
// @Produce      json
// @Param        id path string true "Bill ID"
// @Param        request body OCRImportRequest true "OCR payload and extracted items"
// @Success      200 {object} response.APIResponse{data=BillResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /bills/{id}/ocr [post]
func (h *Handler) ImportOCR(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req OCRImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	bill, err := h.service.ImportOCR(r.Context(), owner, models.BillID(chi.URLParam(r, "id")), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, ToResponse(bill))
}

// Recalculate handles POST /bills/{id}/recalculate
// @Summary      Recalculate every participant total on a bill
// @Description  Full resum of all totals; also reports advisory consistency warnings such as over-allocated items
// @Tags         bills
// @Produce      json
// @Param        id path string true "Bill ID"
// @Success      200 {object} response.APIResponse{data=BillResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /bills/{id}/recalculate [post]
func (h *Handler) Recalculate(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	bill, warnings, err := h.service.Recalculate(r.Context(), owner, models.BillID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSONWithWarnings(w, http.StatusOK, ToResponse(bill), warnings)
}

// Participants handles GET /bills/{id}/participants
// @Summary      List a bill's participants
// @Tags         bills
// @Produce      json
// @Param        id path string true "Bill ID"
// @Success      200 {object} response.APIResponse{data=[]models.Participant}
// @Failure      404 {object} response.APIResponse
// @Router       /bills/{id}/participants [get]
func (h *Handler) Participants(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	participants, err := h.service.Participants(r.Context(), owner, models.BillID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, participants)
}

// Items handles GET /bills/{id}/items
// @Summary      List a bill's items
// @Tags         bills
// @Produce      json
// @Param        id path string true "Bill ID"
// @Success      200 {object} response.APIResponse{data=[]models.Item}
// @Failure      404 {object} response.APIResponse
// @Router       /bills/{id}/items [get]
func (h *Handler) Items(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	items, err := h.service.Items(r.Context(), owner, models.BillID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, items)
}

// Allocations handles GET /bills/{id}/allocations
// @Summary      List a bill's allocations
// @Tags         bills
// @Produce      json
// @Param        id path string true "Bill ID"
// @Success      200 {object} response.APIResponse{data=[]models.Allocation}
// @Failure      404 {object} response.APIResponse
// @Router       /bills/{id}/allocations [get]
func (h *Handler) Allocations(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	allocations, err := h.service.Allocations(r.Context(), owner, models.BillID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, allocations)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBillNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrValidation):
		response.BadRequest(w, err.Error())
	case errors.Is(err, ErrUnauthorized):
		response.Forbidden(w, err.Error())
	default:
		response.InternalError(w, "Failed to process bill")
	}
}
