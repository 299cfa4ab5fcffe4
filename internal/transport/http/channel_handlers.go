package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/campushub/campushub-server/internal/realtime"
	"github.com/campushub/campushub-server/internal/store"
)

// ChannelHandlers provides HTTP handlers for channel endpoints.
type ChannelHandlers struct {
	store store.Store
	reg   *realtime.Registry
	log   *zerolog.Logger
}

// NewChannelHandlers creates a new channel handlers instance.
func NewChannelHandlers(st store.Store, reg *realtime.Registry, logger *zerolog.Logger) *ChannelHandlers {
	return &ChannelHandlers{
		store: st,
		reg:   reg,
		log:   logger,
	}
}

// CreateChannelRequest represents the create channel request body.
type CreateChannelRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=64"`
	Description string `json:"description" binding:"max=256"`
	IsPrivate   bool   `json:"is_private"`
}

// ChannelResponse represents a channel in API responses.
type ChannelResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsPrivate   bool      `json:"is_private"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// MessageResponse represents a message in API responses.
type MessageResponse struct {
	ID          string    `json:"id"`
	ChannelID   string    `json:"channel_id"`
	SenderID    string    `json:"sender_id"`
	SenderRole  string    `json:"sender_role"`
	Content     string    `json:"content"`
	MessageType string    `json:"message_type"`
	ReplyToID   *string   `json:"reply_to_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// OnlineUserResponse represents a connected channel member.
type OnlineUserResponse struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

func channelResponse(ch *store.Channel) ChannelResponse {
	return ChannelResponse{
		ID:          ch.ID.String(),
		Name:        ch.Name,
		Description: ch.Description,
		IsPrivate:   ch.IsPrivate,
		CreatedBy:   ch.CreatedByID.String(),
		CreatedAt:   ch.CreatedAt,
	}
}

func (h *ChannelHandlers) channelID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid channel id"})
		return uuid.Nil, false
	}
	return id, true
}

// requireMember resolves the identity and checks channel membership,
// answering 403 when the caller does not belong to the channel.
func (h *ChannelHandlers) requireMember(c *gin.Context, channelID uuid.UUID) (uuid.UUID, bool) {
	identity, ok := identityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return uuid.Nil, false
	}

	member, err := h.store.IsMember(c.Request.Context(), channelID, identity.UserID)
	if err != nil {
		h.log.Error().Err(err).Str("channel_id", channelID.String()).Msg("membership check failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return uuid.Nil, false
	}
	if !member {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "not a channel member"})
		return uuid.Nil, false
	}
	return identity.UserID, true
}

// CreateChannel handles channel creation.
// POST /api/channels
func (h *ChannelHandlers) CreateChannel(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req CreateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create channel request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ch, err := h.store.CreateChannel(c.Request.Context(), req.Name, req.Description, req.IsPrivate, identity.UserID, identity.Role)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			c.JSON(http.StatusConflict, ErrorResponse{Error: "channel with this name already exists"})
			return
		}
		h.log.Error().Err(err).Str("channel_name", req.Name).Msg("failed to create channel")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("channel_id", ch.ID.String()).Str("channel_name", ch.Name).Msg("channel created")
	c.JSON(http.StatusCreated, channelResponse(ch))
}

// ListChannels handles listing channels visible to the caller.
// GET /api/channels
func (h *ChannelHandlers) ListChannels(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	channels, err := h.store.ListChannels(c.Request.Context(), identity.UserID)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list channels")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]ChannelResponse, 0, len(channels))
	for _, ch := range channels {
		response = append(response, channelResponse(ch))
	}
	c.JSON(http.StatusOK, response)
}

// JoinChannel adds the caller as a member of a public channel.
// POST /api/channels/:id/join
func (h *ChannelHandlers) JoinChannel(c *gin.Context) {
	channelID, ok := h.channelID(c)
	if !ok {
		return
	}
	identity, ok := identityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	ch, err := h.store.GetChannelByID(c.Request.Context(), channelID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "channel not found"})
			return
		}
		h.log.Error().Err(err).Str("channel_id", channelID.String()).Msg("failed to load channel")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	// Private channels are invite-only; their members are added by admins.
	if ch.IsPrivate {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "channel is private"})
		return
	}

	if err := h.store.AddMember(c.Request.Context(), channelID, identity.UserID, identity.Role); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			c.JSON(http.StatusOK, gin.H{"status": "already a member"})
			return
		}
		h.log.Error().Err(err).Str("channel_id", channelID.String()).Msg("failed to add member")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "joined"})
}

// LeaveChannel removes the caller's channel membership.
// POST /api/channels/:id/leave
func (h *ChannelHandlers) LeaveChannel(c *gin.Context) {
	channelID, ok := h.channelID(c)
	if !ok {
		return
	}
	userID, ok := h.requireMember(c, channelID)
	if !ok {
		return
	}

	if err := h.store.RemoveMember(c.Request.Context(), channelID, userID); err != nil {
		h.log.Error().Err(err).Str("channel_id", channelID.String()).Msg("failed to remove member")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	// Also drop transient presence so the user stops receiving relayed frames.
	h.reg.LeaveChannel(userID, channelID)

	c.JSON(http.StatusOK, gin.H{"status": "left"})
}

// ListMessages returns channel history, newest first.
// GET /api/channels/:id/messages?limit=50&before_id=<uuid>
func (h *ChannelHandlers) ListMessages(c *gin.Context) {
	channelID, ok := h.channelID(c)
	if !ok {
		return
	}
	if _, ok := h.requireMember(c, channelID); !ok {
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
			return
		}
		limit = n
	}

	var beforeID *uuid.UUID
	if raw := c.Query("before_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid before_id"})
			return
		}
		beforeID = &id
	}

	messages, err := h.store.ListMessages(c.Request.Context(), channelID, limit, beforeID)
	if err != nil {
		h.log.Error().Err(err).Str("channel_id", channelID.String()).Msg("failed to list messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]MessageResponse, 0, len(messages))
	for _, m := range messages {
		resp := MessageResponse{
			ID:          m.ID.String(),
			ChannelID:   m.ChannelID.String(),
			SenderID:    m.SenderID.String(),
			SenderRole:  string(m.SenderRole),
			Content:     m.Content,
			MessageType: string(m.Type),
			CreatedAt:   m.CreatedAt,
		}
		if m.ReplyToID != nil {
			id := m.ReplyToID.String()
			resp.ReplyToID = &id
		}
		response = append(response, resp)
	}
	c.JSON(http.StatusOK, response)
}

// OnlineUsers lists connected users present in the channel.
// GET /api/channels/:id/online
func (h *ChannelHandlers) OnlineUsers(c *gin.Context) {
	channelID, ok := h.channelID(c)
	if !ok {
		return
	}
	if _, ok := h.requireMember(c, channelID); !ok {
		return
	}

	online := h.reg.OnlineUsers(channelID)
	response := make([]OnlineUserResponse, 0, len(online))
	for _, u := range online {
		response = append(response, OnlineUserResponse{
			UserID: u.UserID.String(),
			Name:   u.Name,
			Role:   string(u.Role),
		})
	}
	c.JSON(http.StatusOK, response)
}

// TypingUsers lists users currently typing in the channel.
// GET /api/channels/:id/typing
func (h *ChannelHandlers) TypingUsers(c *gin.Context) {
	channelID, ok := h.channelID(c)
	if !ok {
		return
	}
	if _, ok := h.requireMember(c, channelID); !ok {
		return
	}

	typing := h.reg.TypingUsers(channelID)
	response := make([]string, 0, len(typing))
	for _, id := range typing {
		response = append(response, id.String())
	}
	c.JSON(http.StatusOK, gin.H{"typing": response})
}
