// AngelaMos | 2026
// handler.go

package order

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/templates/nz-market/internal/core"
	"github.com/carterperez-dev/templates/nz-market/internal/middleware"
)

const (
	signatureHeader = "Stripe-Signature"
	maxWebhookBody  = 64 << 10
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
	r.Post("/payments/stripe/webhook", h.Webhook)

	r.Route("/orders", func(r chi.Router) {
		r.Use(authenticator)

		r.Post("/", h.CreateOrder)
		r.Get("/", h.ListOrders)
		r.Get("/{orderID}", h.GetOrder)
		r.Post("/{orderID}/pay", h.Pay)
		r.Post("/{orderID}/cancel", h.Cancel)
		r.Post("/{orderID}/ship", h.Ship)
		r.Post("/{orderID}/deliver", h.Deliver)
		r.Get("/{orderID}/reviews", h.ListReviews)
		r.Post("/{orderID}/reviews", h.CreateReview)
	})
}

// RegisterAdminRoutes expects to be mounted under an admin-only router.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/orders/{orderID}/refund", h.Refund)
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

func orderParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "orderID")
	if !core.IsValidID(id) {
		core.NotFound(w, "order")
		return "", false
	}
	return id, true
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if !h.decode(w, r, &req) {
		return
	}

	o, err := h.service.CreateOrder(
		r.Context(),
		middleware.GetUserID(r.Context()),
		req.ItemID,
		req.Escrow,
	)
	if err != nil {
		core.WriteServiceError(w, err, "item")
		return
	}

	core.Created(w, ToOrderResponse(o, nil))
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	page := core.PageFromRequest(r)

	orders, total, err := h.service.ListOrders(
		r.Context(),
		middleware.GetUserID(r.Context()),
		r.URL.Query().Get("role"),
		page,
	)
	if err != nil {
		core.WriteServiceError(w, err, "order")
		return
	}

	out := make([]OrderResponse, len(orders))
	for i := range orders {
		out[i] = ToOrderResponse(&orders[i], nil)
	}

	core.Paginated(w, out, page.Page, page.PageSize, total)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderParam(w, r)
	if !ok {
		return
	}

	o, shipment, err := h.service.GetOrder(
		r.Context(),
		id,
		middleware.GetUserID(r.Context()),
		middleware.IsAdmin(r.Context()),
	)
	if err != nil {
		core.WriteServiceError(w, err, "order")
		return
	}

	core.OK(w, ToOrderResponse(o, shipment))
}

func (h *Handler) Pay(w http.ResponseWriter, r *http.Request) {
	id, ok := orderParam(w, r)
	if !ok {
		return
	}

	intent, err := h.service.CreatePaymentIntent(
		r.Context(),
		id,
		middleware.GetUserID(r.Context()),
	)
	if err != nil {
		core.WriteServiceError(w, err, "order")
		return
	}

	core.OK(w, intent)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := orderParam(w, r)
	if !ok {
		return
	}

	o, err := h.service.CancelOrder(r.Context(), id, middleware.GetUserID(r.Context()))
	if err != nil {
		core.WriteServiceError(w, err, "order")
		return
	}

	core.OK(w, ToOrderResponse(o, nil))
}

func (h *Handler) Ship(w http.ResponseWriter, r *http.Request) {
	id, ok := orderParam(w, r)
	if !ok {
		return
	}

	var req ShipOrderRequest
	if !h.decode(w, r, &req) {
		return
	}

	o, err := h.service.ShipOrder(
		r.Context(),
		id,
		middleware.GetUserID(r.Context()),
		req.Carrier,
		req.TrackingNo,
	)
	if err != nil {
		core.WriteServiceError(w, err, "order")
		return
	}

	core.OK(w, ToOrderResponse(o, nil))
}

func (h *Handler) Deliver(w http.ResponseWriter, r *http.Request) {
	id, ok := orderParam(w, r)
	if !ok {
		return
	}

	o, err := h.service.ConfirmDelivery(r.Context(), id, middleware.GetUserID(r.Context()))
	if err != nil {
		core.WriteServiceError(w, err, "order")
		return
	}

	core.OK(w, ToOrderResponse(o, nil))
}

func (h *Handler) Refund(w http.ResponseWriter, r *http.Request) {
	id, ok := orderParam(w, r)
	if !ok {
		return
	}

	var req RefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		core.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	o, err := h.service.RefundOrder(r.Context(), id, middleware.GetUserID(r.Context()), req.Reason)
	if err != nil {
		core.WriteServiceError(w, err, "order")
		return
	}

	core.OK(w, ToOrderResponse(o, nil))
}

func (h *Handler) CreateReview(w http.ResponseWriter, r *http.Request) {
	id, ok := orderParam(w, r)
	if !ok {
		return
	}

	var req CreateReviewRequest
	if !h.decode(w, r, &req) {
		return
	}

	rv, err := h.service.CreateReview(
		r.Context(),
		id,
		middleware.GetUserID(r.Context()),
		req.Rating,
		req.Content,
	)
	if err != nil {
		core.WriteServiceError(w, err, "review")
		return
	}

	core.Created(w, ToReviewResponse(rv))
}

func (h *Handler) ListReviews(w http.ResponseWriter, r *http.Request) {
	id, ok := orderParam(w, r)
	if !ok {
		return
	}

	reviews, err := h.service.ListReviews(
		r.Context(),
		id,
		middleware.GetUserID(r.Context()),
		middleware.IsAdmin(r.Context()),
	)
	if err != nil {
		core.WriteServiceError(w, err, "order")
		return
	}

	out := make([]ReviewResponse, len(reviews))
	for i := range reviews {
		out[i] = ToReviewResponse(&reviews[i])
	}

	core.OK(w, out)
}

// Webhook reads the raw body because the signature covers the exact
// bytes the provider sent.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	err = h.service.HandleWebhook(r.Context(), payload, r.Header.Get(signatureHeader))
	if err != nil {
		core.WriteServiceError(w, err, "payment")
		return
	}

	core.OK(w, WebhookResponse{Received: true})
}
