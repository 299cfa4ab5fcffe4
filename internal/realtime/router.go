package realtime

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/campushub/campushub-server/internal/proto"
	"github.com/campushub/campushub-server/internal/store"
)

// FrameKind is the closed set of inbound frame kinds. Adding a kind means
// extending this enum and the dispatch switch below.
type FrameKind int

const (
	FrameUnknown FrameKind = iota
	FrameJoinChannel
	FrameLeaveChannel
	FrameTyping
	FrameStopTyping
	FrameMessage
	FrameReaction
)

func frameKindOf(t string) FrameKind {
	switch t {
	case proto.InboundTypeJoinChannel:
		return FrameJoinChannel
	case proto.InboundTypeLeaveChannel:
		return FrameLeaveChannel
	case proto.InboundTypeTyping:
		return FrameTyping
	case proto.InboundTypeStopTyping:
		return FrameStopTyping
	case proto.InboundTypeMessage:
		return FrameMessage
	case proto.InboundTypeReaction:
		return FrameReaction
	default:
		return FrameUnknown
	}
}

// ChatStore is the persistence collaborator the router consults before
// relaying. Implemented by the SQLite store in production.
type ChatStore interface {
	IsMember(ctx context.Context, channelID, userID uuid.UUID) (bool, error)
	CreateMessage(ctx context.Context, msg store.NewMessage, channelID, senderID uuid.UUID, senderRole store.Role) (*store.Message, error)
	AddReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) (*store.Reaction, error)
	RemoveReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) (bool, error)
}

// Router decodes inbound frames into typed events and dispatches them
// against the registry, the relay, and the persistence collaborator.
type Router struct {
	reg   *Registry
	relay *Relay
	chat  ChatStore
	log   *zerolog.Logger
	now   func() time.Time
}

// NewRouter builds a router. chat is the persistence collaborator used for
// membership checks and message/reaction writes.
func NewRouter(reg *Registry, relay *Relay, chat ChatStore, logger *zerolog.Logger) *Router {
	return &Router{
		reg:   reg,
		relay: relay,
		chat:  chat,
		log:   logger,
		now:   time.Now,
	}
}

// HandleFrame processes one inbound frame from sender. Unknown types,
// malformed channel ids, and frames from non-members are dropped without a
// reply; the connection stays open.
func (rt *Router) HandleFrame(ctx context.Context, sender *Client, in proto.Inbound) {
	kind := frameKindOf(in.Type)
	if kind == FrameUnknown {
		rt.log.Debug().Str("type", in.Type).Str("user_id", sender.UserID.String()).Msg("ignoring unknown frame type")
		return
	}

	channelID, err := uuid.Parse(in.ChannelID)
	if err != nil {
		rt.log.Debug().Str("type", in.Type).Str("user_id", sender.UserID.String()).Msg("ignoring frame with invalid channel_id")
		return
	}

	member, err := rt.chat.IsMember(ctx, channelID, sender.UserID)
	if err != nil {
		rt.log.Warn().Err(err).Str("channel_id", channelID.String()).Msg("membership check failed")
		return
	}
	if !member {
		rt.log.Debug().
			Str("user_id", sender.UserID.String()).
			Str("channel_id", channelID.String()).
			Msg("dropping frame from non-member")
		return
	}

	switch kind {
	case FrameJoinChannel:
		rt.handleJoin(sender, channelID)
	case FrameLeaveChannel:
		rt.handleLeave(sender, channelID)
	case FrameTyping:
		rt.handleTyping(sender, channelID, in.IsTyping)
	case FrameStopTyping:
		rt.handleTyping(sender, channelID, false)
	case FrameMessage:
		rt.handleMessage(ctx, sender, channelID, in)
	case FrameReaction:
		rt.handleReaction(ctx, sender, channelID, in)
	}
}

func (rt *Router) presenceData(sender *Client, channelID uuid.UUID, online bool) proto.PresenceData {
	return proto.PresenceData{
		UserID:    sender.UserID.String(),
		UserName:  sender.Name,
		ChannelID: channelID.String(),
		IsOnline:  online,
		LastSeen:  rt.now(),
	}
}

func (rt *Router) handleJoin(sender *Client, channelID uuid.UUID) {
	if !rt.reg.JoinChannel(sender.UserID, channelID) {
		return
	}
	rt.relay.SendToChannel(proto.Outbound{
		Type: proto.OutboundTypeUserJoined,
		Data: rt.presenceData(sender, channelID, true),
	}, channelID, &sender.UserID)
}

func (rt *Router) handleLeave(sender *Client, channelID uuid.UUID) {
	rt.reg.LeaveChannel(sender.UserID, channelID)
	rt.relay.SendToChannel(proto.Outbound{
		Type: proto.OutboundTypeUserLeft,
		Data: rt.presenceData(sender, channelID, false),
	}, channelID, &sender.UserID)
}

func (rt *Router) handleTyping(sender *Client, channelID uuid.UUID, isTyping bool) {
	rt.reg.SetTyping(sender.UserID, channelID, isTyping)
	rt.relay.SendToChannel(proto.Outbound{
		Type: proto.OutboundTypeTyping,
		Data: proto.TypingData{
			UserID:    sender.UserID.String(),
			UserName:  sender.Name,
			ChannelID: channelID.String(),
			IsTyping:  isTyping,
		},
	}, channelID, &sender.UserID)
}

func (rt *Router) handleMessage(ctx context.Context, sender *Client, channelID uuid.UUID, in proto.Inbound) {
	msg := store.NewMessage{
		Content: in.Content,
		Type:    store.MessageType(in.MessageType),
	}
	if msg.Type == "" {
		msg.Type = store.MessageTypeText
	}
	if in.ReplyToID != nil {
		replyTo, err := uuid.Parse(*in.ReplyToID)
		if err != nil {
			return
		}
		msg.ReplyToID = &replyTo
	}

	created, err := rt.chat.CreateMessage(ctx, msg, channelID, sender.UserID, sender.Role)
	if err != nil {
		rt.log.Warn().Err(err).
			Str("user_id", sender.UserID.String()).
			Str("channel_id", channelID.String()).
			Msg("message rejected")
		rt.sendError(sender, ErrCodeMessageRejected, "message could not be saved")
		return
	}

	// The sender is included so clients can reconcile their optimistic copy
	// with the persisted id and timestamp.
	rt.relay.SendToChannel(proto.Outbound{
		Type: proto.OutboundTypeNewMessage,
		Data: proto.MessageData{
			ChannelID: channelID.String(),
			Message:   messageBody(created, sender.Name),
		},
	}, channelID, nil)
}

func (rt *Router) handleReaction(ctx context.Context, sender *Client, channelID uuid.UUID, in proto.Inbound) {
	messageID, err := uuid.Parse(in.MessageID)
	if err != nil {
		return
	}

	action := in.Action
	if action == "" {
		action = proto.ReactionActionAdd
	}

	switch action {
	case proto.ReactionActionAdd:
		if _, err := rt.chat.AddReaction(ctx, messageID, sender.UserID, in.Emoji); err != nil {
			if !errors.Is(err, store.ErrDuplicate) {
				rt.log.Warn().Err(err).Str("message_id", messageID.String()).Msg("reaction rejected")
			}
			rt.sendError(sender, ErrCodeReactionRejected, "reaction could not be saved")
			return
		}
	case proto.ReactionActionRemove:
		removed, err := rt.chat.RemoveReaction(ctx, messageID, sender.UserID, in.Emoji)
		if err != nil {
			rt.log.Warn().Err(err).Str("message_id", messageID.String()).Msg("reaction removal failed")
			rt.sendError(sender, ErrCodeReactionRejected, "reaction could not be removed")
			return
		}
		if !removed {
			return
		}
	default:
		rt.sendError(sender, ErrCodeBadRequest, "unknown reaction action")
		return
	}

	rt.relay.SendToChannel(proto.Outbound{
		Type: proto.OutboundTypeReaction,
		Data: proto.ReactionData{
			MessageID: messageID.String(),
			ChannelID: channelID.String(),
			UserID:    sender.UserID.String(),
			UserName:  sender.Name,
			Emoji:     in.Emoji,
			Action:    action,
		},
	}, channelID, nil)
}

func (rt *Router) sendError(sender *Client, code, msg string) {
	rt.relay.SendToUser(proto.Outbound{
		Type: proto.OutboundTypeError,
		Data: proto.ErrorData{Code: code, Msg: msg},
	}, sender.UserID)
}

func messageBody(m *store.Message, senderName string) proto.MessageBody {
	body := proto.MessageBody{
		ID:          m.ID.String(),
		ChannelID:   m.ChannelID.String(),
		SenderID:    m.SenderID.String(),
		SenderName:  senderName,
		SenderRole:  string(m.SenderRole),
		Content:     m.Content,
		MessageType: string(m.Type),
		CreatedAt:   m.CreatedAt,
	}
	if m.ReplyToID != nil {
		id := m.ReplyToID.String()
		body.ReplyToID = &id
	}
	return body
}
