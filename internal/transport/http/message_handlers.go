package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/relaychat/internal/proto"
	"github.com/vovakirdan/relaychat/internal/service/messages"
)

// MessageHandlers provides HTTP handlers for the /api/messages group.
type MessageHandlers struct {
	service *messages.Service
	log     *zerolog.Logger
}

// NewMessageHandlers creates a new message handlers instance.
func NewMessageHandlers(service *messages.Service, logger *zerolog.Logger) *MessageHandlers {
	return &MessageHandlers{
		service: service,
		log:     logger,
	}
}

// SendMessageRequest represents the send message request body.
type SendMessageRequest struct {
	Text  string `json:"text"`
	Image string `json:"image"`
}

// GetSidebarUsers lists every user except the caller.
// GET /api/messages/users
func (h *MessageHandlers) GetSidebarUsers(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized - No Token Provided"})
		return
	}

	users, err := h.service.Sidebar(c.Request.Context(), user.ID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", user.ID).Msg("failed to list sidebar users")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal Server Error"})
		return
	}

	resp := make([]UserResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, toUserResponse(u))
	}
	c.JSON(http.StatusOK, resp)
}

// GetMessages returns the conversation between the caller and :id.
// GET /api/messages/:id?limit=N
func (h *MessageHandlers) GetMessages(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized - No Token Provided"})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}

	msgs, err := h.service.Conversation(c.Request.Context(), user.ID, c.Param("id"), limit)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", user.ID).Str("other_id", c.Param("id")).Msg("failed to list messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal Server Error"})
		return
	}

	resp := make([]proto.Message, 0, len(msgs))
	for _, m := range msgs {
		resp = append(resp, toProtoMessage(messages.ToCore(m)))
	}
	c.JSON(http.StatusOK, resp)
}

// SendMessage stores a message to :id and pushes it to the receiver.
// POST /api/messages/send/:id
func (h *MessageHandlers) SendMessage(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized - No Token Provided"})
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	msg, err := h.service.Send(c.Request.Context(), messages.TransportREST, user.ID, c.Param("id"), req.Text, req.Image)
	if err != nil {
		status, body := messageErrorStatus(err)
		if status == http.StatusInternalServerError {
			h.log.Error().Err(err).Str("user_id", user.ID).Msg("failed to send message")
		}
		c.JSON(status, ErrorResponse{Error: body})
		return
	}

	c.JSON(http.StatusCreated, toProtoMessage(messages.ToCore(msg)))
}

func messageErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, messages.ErrEmptyMessage):
		return http.StatusBadRequest, "Message must have text or image"
	case errors.Is(err, messages.ErrSelfMessage):
		return http.StatusBadRequest, "Cannot send a message to yourself"
	case errors.Is(err, messages.ErrReceiverNotFound):
		return http.StatusNotFound, "Receiver not found"
	default:
		return http.StatusInternalServerError, "Internal Server Error"
	}
}
