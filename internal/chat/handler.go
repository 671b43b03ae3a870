// AngelaMos | 2026
// handler.go

package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"

	"github.com/carterperez-dev/templates/nz-market/internal/config"
	"github.com/carterperez-dev/templates/nz-market/internal/core"
	"github.com/carterperez-dev/templates/nz-market/internal/middleware"
)

type Handler struct {
	service   *Service
	hub       *Hub
	validator *validator.Validate
	upgrader  websocket.Upgrader
	cfg       config.ChatConfig
}

func NewHandler(
	service *Service,
	hub *Hub,
	cfg config.ChatConfig,
	allowedOrigins []string,
) *Handler {
	return &Handler{
		service:   service,
		hub:       hub,
		validator: validator.New(validator.WithRequiredStructEnabled()),
		cfg:       cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/chat", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/ws", h.ServeWS)
		r.Get("/conversations", h.ListConversations)
		r.Post("/conversations", h.CreateConversation)
		r.Get("/conversations/{conversationID}/messages", h.ListMessages)
		r.Post("/conversations/{conversationID}/messages", h.SendMessage)
		r.Put("/conversations/{conversationID}/read", h.MarkAsRead)
		r.Get("/conversations/{conversationID}/unread-count", h.UnreadCount)
	})
}

func conversationID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "conversationID")
	if !core.IsValidID(id) {
		core.NotFound(w, "conversation")
		return "", false
	}
	return id, true
}

func (h *Handler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	var req CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	conv, err := h.service.CreateConversation(
		r.Context(),
		req.ItemID,
		middleware.GetUserID(r.Context()),
	)
	if err != nil {
		core.WriteServiceError(w, err, "item")
		return
	}

	core.OK(w, ToConversationResponse(conv))
}

func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	convs, err := h.service.ListConversations(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	out := make([]ConversationResponse, len(convs))
	for i := range convs {
		out[i] = ToConversationResponse(&convs[i])
	}

	core.OK(w, out)
}

func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(w, r)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	msg, err := h.service.SendMessage(
		r.Context(),
		id,
		middleware.GetUserID(r.Context()),
		req.Type,
		req.Content,
	)
	if err != nil {
		core.WriteServiceError(w, err, "conversation")
		return
	}

	core.Created(w, ToMessageResponse(msg))
}

func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(w, r)
	if !ok {
		return
	}

	page := core.PageFromRequest(r)
	msgs, total, err := h.service.ListMessages(
		r.Context(),
		id,
		middleware.GetUserID(r.Context()),
		page,
	)
	if err != nil {
		core.WriteServiceError(w, err, "conversation")
		return
	}

	out := make([]MessageResponse, len(msgs))
	for i := range msgs {
		out[i] = ToMessageResponse(&msgs[i])
	}

	core.Paginated(w, out, page.Page, page.PageSize, total)
}

func (h *Handler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(w, r)
	if !ok {
		return
	}

	n, err := h.service.MarkAsRead(r.Context(), id, middleware.GetUserID(r.Context()))
	if err != nil {
		core.WriteServiceError(w, err, "conversation")
		return
	}

	core.OK(w, ReadResponse{Updated: n})
}

func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(w, r)
	if !ok {
		return
	}

	n, err := h.service.UnreadCount(r.Context(), id, middleware.GetUserID(r.Context()))
	if err != nil {
		core.WriteServiceError(w, err, "conversation")
		return
	}

	core.OK(w, UnreadResponse{Unread: n})
}

// ServeWS upgrades an authenticated request and hands the connection
// to the hub. Clients then subscribe per conversation.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	client := &Client{
		hub:        h.hub,
		conn:       conn,
		send:       make(chan []byte, h.cfg.SendBuffer),
		replies:    make(chan []byte, 16),
		userID:     userID,
		authorizer: h.service,
		readLimit:  h.cfg.MaxMessageSize,
		rooms:      make(map[string]bool),
	}

	if !h.hub.attach(client) {
		_ = conn.WriteMessage(websocket.CloseMessage, //nolint:errcheck // closing anyway
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "chat unavailable"))
		_ = conn.Close() //nolint:errcheck // closing anyway
		return
	}

	go client.writePump()
	go client.readPump(context.WithoutCancel(r.Context()))
}
