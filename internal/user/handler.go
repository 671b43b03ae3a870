// AngelaMos | 2026
// handler.go

package user

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/templates/nz-market/internal/core"
	"github.com/carterperez-dev/templates/nz-market/internal/middleware"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/users", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authenticator)
			r.Get("/me", h.GetMe)
			r.Put("/me", h.UpdateMe)
		})

		r.Get("/{userID}", h.GetPublicProfile)
	})
}

// RegisterAdminRoutes expects r to already be mounted under /admin with
// authentication and the admin role enforced.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/users", h.ListUsers)
	r.Get("/users/{userID}", h.GetUser)
	r.Put("/users/{userID}/role", h.UpdateUserRole)
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	user, profile, err := h.service.GetMe(r.Context(), userID)
	if err != nil {
		core.WriteServiceError(w, err, "user")
		return
	}

	core.OK(w, ToUserResponse(user, profile))
}

func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req UpdateMeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	user, profile, err := h.service.UpdateMe(r.Context(), userID, req)
	if err != nil {
		core.WriteServiceError(w, err, "user")
		return
	}

	core.OK(w, ToUserResponse(user, profile))
}

func (h *Handler) GetPublicProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "userID")
	if !core.IsValidID(id) {
		core.NotFound(w, "user")
		return
	}

	user, profile, err := h.service.GetPublicProfile(r.Context(), id)
	if err != nil {
		core.WriteServiceError(w, err, "user")
		return
	}

	core.OK(w, ToPublicUserResponse(user, profile))
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := ListUsersParams{
		PageParams: core.PageFromRequest(r),
		Search:     q.Get("search"),
		Role:       q.Get("role"),
		Status:     q.Get("status"),
	}

	users, total, err := h.service.ListUsers(r.Context(), params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Paginated(
		w,
		ToUserResponseList(users),
		params.Page,
		params.PageSize,
		total,
	)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "userID")
	if !core.IsValidID(id) {
		core.NotFound(w, "user")
		return
	}

	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		core.WriteServiceError(w, err, "user")
		return
	}

	core.OK(w, ToUserResponse(user, nil))
}

func (h *Handler) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "userID")
	if !core.IsValidID(id) {
		core.NotFound(w, "user")
		return
	}

	var req UpdateUserRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	actorID := middleware.GetUserID(r.Context())
	user, err := h.service.UpdateUserRole(r.Context(), actorID, id, req.Role)
	if err != nil {
		core.WriteServiceError(w, err, "user")
		return
	}

	core.OK(w, ToUserResponse(user, nil))
}
