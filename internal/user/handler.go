package user

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/splittab/splittab/pkg/middleware"
	"github.com/splittab/splittab/pkg/response"
)

// Handler handles HTTP requests for account operations
type Handler struct {
	service *Service
}

// NewHandler creates a new user handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for the public account endpoints. Me is mounted
// separately behind the auth middleware.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/register", h.Register)
	r.Post("/login", h.Login)

	return r
}

// Register handles POST /users/register
// @Summary      Create an account
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request body RegisterRequest true "Account registration request"
// @Success      201 {object} response.APIResponse{data=AuthResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /users/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	u, token, err := h.service.Register(r.Context(), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, &AuthResponse{User: u, Token: token})
}

// Login handles POST /users/login
// @Summary      Authenticate and obtain a session token
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login request"
// @Success      200 {object} response.APIResponse{data=AuthResponse}
// @Failure      401 {object} response.APIResponse
// @Router       /users/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	u, token, err := h.service.Login(r.Context(), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, &AuthResponse{User: u, Token: token})
}

// Me handles GET /users/me
// @Summary      Get the authenticated account
// @Tags         users
// @Produce      json
// @Success      200 {object} response.APIResponse{data=models.User}
// @Failure      401 {object} response.APIResponse
// @Security     BearerAuth
// @Router       /users/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	u, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, u)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		response.BadRequest(w, err.Error())
	case errors.Is(err, ErrEmailTaken):
		response.Conflict(w, err.Error())
	case errors.Is(err, ErrInvalidCredentials):
		response.Unauthorized(w, err.Error())
	case errors.Is(err, ErrUserNotFound):
		response.NotFound(w, err.Error())
	default:
		response.InternalError(w, "Failed to process account")
	}
}
