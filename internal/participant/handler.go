package participant

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/splittab/splittab/internal/models"
	"github.com/splittab/splittab/pkg/middleware"
	"github.com/splittab/splittab/pkg/response"
)

// Handler handles HTTP requests for participant operations
type Handler struct {
	service *Service
}

// NewHandler creates a new participant handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for participant endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Add)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Remove)

	return r
}

// Add handles POST /participants
// @Summary      Add a participant to a bill
// @Tags         participants
// @Accept       json
// @Produce      json
// @Param        request body AddParticipantRequest true "Participant creation request"
// @Success      201 {object} response.APIResponse{data=models.Participant}
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Router       /participants [post]
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req AddParticipantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	p, err := h.service.Add(r.Context(), owner, &req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, p)
}

// Get handles GET /participants/{id}
// @Summary      Get a participant with their allocations
// @Tags         participants
// @Produce      json
// @Param        id path string true "Participant ID"
// @Success      200 {object} response.APIResponse{data=models.Participant}
// @Failure      404 {object} response.APIResponse
// @Router       /participants/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	p, err := h.service.Get(r.Context(), owner, models.ParticipantID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, p)
}

// Update handles PUT /participants/{id}
// @Summary      Update a participant's name or email
// @Tags         participants
// @Accept       json
// @Produce      json
// @Param        id path string true "Participant ID"
// @Param        request body UpdateParticipantRequest true "Fields to change"
// @Success      200 {object} response.APIResponse{data=models.Participant}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /participants/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req UpdateParticipantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	p, err := h.service.Update(r.Context(), owner, models.ParticipantID(chi.URLParam(r, "id")), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, p)
}

// Remove handles DELETE /participants/{id}
// @Summary      Remove a participant
// @Description  Deletes the participant and all of their allocations
// @Tags         participants
// @Produce      json
// @Param        id path string true "Participant ID"
// @Success      200 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /participants/{id} [delete]
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	removed, err := h.service.Remove(r.Context(), owner, models.ParticipantID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]bool{"removed": removed})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrParticipantNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrValidation):
		response.BadRequest(w, err.Error())
	case errors.Is(err, ErrUnauthorized):
		response.Forbidden(w, err.Error())
	default:
		response.InternalError(w, "Failed to process participant")
	}
}
