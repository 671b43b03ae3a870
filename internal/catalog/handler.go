// AngelaMos | 2026
// handler.go

package catalog

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

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
	r.Get("/categories", h.ListCategories)
	r.Get("/tags", h.ListTags)

	r.Route("/items", func(r chi.Router) {
		r.Get("/search", h.Search)
		r.Get("/latest", h.Latest)
		r.Get("/popular", h.Popular)
		r.Get("/{itemID}", h.GetItem)

		r.Group(func(r chi.Router) {
			r.Use(authenticator)
			r.Post("/", h.CreateItem)
			r.Get("/my-items", h.MyItems)
			r.Get("/favorites", h.Favorites)
			r.Put("/{itemID}", h.UpdateItem)
			r.Delete("/{itemID}", h.DeleteItem)
			r.Post("/{itemID}/favorite", h.AddFavorite)
			r.Delete("/{itemID}/favorite", h.RemoveFavorite)
		})
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		core.BadRequest(w, "invalid request body")
		return false
	}

	if err := h.validator.Struct(dst); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return false
	}

	return true
}

func itemID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "itemID")
	if !core.IsValidID(id) {
		core.NotFound(w, "item")
		return "", false
	}
	return id, true
}

func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req CreateItemRequest
	if !h.decode(w, r, &req) {
		return
	}

	detail, err := h.service.CreateItem(
		r.Context(),
		middleware.GetUserID(r.Context()),
		req,
	)
	if err != nil {
		core.WriteServiceError(w, err, "item")
		return
	}

	core.Created(w, ToItemResponse(detail))
}

func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	detail, err := h.service.GetItem(r.Context(), id)
	if err != nil {
		core.WriteServiceError(w, err, "item")
		return
	}

	core.OK(w, ToItemResponse(detail))
}

func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	var req UpdateItemRequest
	if !h.decode(w, r, &req) {
		return
	}

	detail, err := h.service.UpdateItem(
		r.Context(),
		id,
		middleware.GetUserID(r.Context()),
		middleware.IsAdmin(r.Context()),
		req,
	)
	if err != nil {
		core.WriteServiceError(w, err, "item")
		return
	}

	core.OK(w, ToItemResponse(detail))
}

func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	err := h.service.DeleteItem(
		r.Context(),
		id,
		middleware.GetUserID(r.Context()),
		middleware.IsAdmin(r.Context()),
	)
	if err != nil {
		core.WriteServiceError(w, err, "item")
		return
	}

	core.NoContent(w)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	params := SearchParams{
		PageParams: core.PageFromRequest(r),
		Keyword:    q.Get("keyword"),
		City:       q.Get("city"),
		SortBy:     q.Get("sort_by"),
		Direction:  q.Get("direction"),
	}
	if params.Keyword == "" {
		params.Keyword = q.Get("q")
	}

	if c := q.Get("category_id"); c != "" {
		if !core.IsValidID(c) {
			core.BadRequest(w, "category_id must be a valid id")
			return
		}
		params.CategoryID = c
	}

	var ok bool
	if params.MinPrice, ok = queryDecimal(w, r, "min_price"); !ok {
		return
	}
	if params.MaxPrice, ok = queryDecimal(w, r, "max_price"); !ok {
		return
	}

	items, total, err := h.service.Search(r.Context(), params)
	if err != nil {
		core.WriteServiceError(w, err, "item")
		return
	}

	page := params.PageParams
	page.Normalize()
	core.Paginated(w, items, page.Page, page.PageSize, total)
}

func queryDecimal(
	w http.ResponseWriter,
	r *http.Request,
	key string,
) (*decimal.Decimal, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, true
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		core.BadRequest(w, key+" must be a number")
		return nil, false
	}

	return &d, true
}

func (h *Handler) Latest(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.Latest(r.Context(), core.QueryInt(r, "limit", 0))
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, items)
}

func (h *Handler) Popular(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.Popular(r.Context(), core.QueryInt(r, "limit", 0))
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, items)
}

func (h *Handler) MyItems(w http.ResponseWriter, r *http.Request) {
	page := core.PageFromRequest(r)

	items, total, err := h.service.MyItems(
		r.Context(),
		middleware.GetUserID(r.Context()),
		page,
	)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Paginated(w, items, page.Page, page.PageSize, total)
}

func (h *Handler) Favorites(w http.ResponseWriter, r *http.Request) {
	page := core.PageFromRequest(r)

	items, total, err := h.service.Favorites(
		r.Context(),
		middleware.GetUserID(r.Context()),
		page,
	)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Paginated(w, items, page.Page, page.PageSize, total)
}

func (h *Handler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	err := h.service.AddFavorite(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		core.WriteServiceError(w, err, "item")
		return
	}

	core.NoContent(w)
}

func (h *Handler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	err := h.service.RemoveFavorite(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		core.WriteServiceError(w, err, "item")
		return
	}

	core.NoContent(w)
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	out := make([]*CategoryResponse, len(categories))
	for i := range categories {
		out[i] = ToCategoryResponse(&categories[i])
	}

	core.OK(w, out)
}

func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.service.ListTags(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	out := make([]TagResponse, len(tags))
	for i, t := range tags {
		out[i] = ToTagResponse(t)
	}

	core.OK(w, out)
}
