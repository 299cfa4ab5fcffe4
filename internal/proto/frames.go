package proto

import "time"

// Inbound frame types accepted from clients.
const (
	InboundTypeJoinChannel  = "join_channel"
	InboundTypeLeaveChannel = "leave_channel"
	InboundTypeTyping       = "typing"
	InboundTypeStopTyping   = "stop_typing"
	InboundTypeMessage      = "message"
	InboundTypeReaction     = "reaction"
)

// Outbound frame types sent to clients.
const (
	OutboundTypeConnected  = "connected"
	OutboundTypeUserJoined = "user_joined"
	OutboundTypeUserLeft   = "user_left"
	OutboundTypeTyping     = "typing"
	OutboundTypeNewMessage = "new_message"
	OutboundTypeReaction   = "reaction"
	OutboundTypeError      = "error"
)

// Reaction actions.
const (
	ReactionActionAdd    = "add"
	ReactionActionRemove = "remove"
)

// Inbound is a frame coming from the client. Fields beyond Type and
// ChannelID are type-specific; unused ones stay at their zero value.
type Inbound struct {
	Type      string `json:"type"`
	ChannelID string `json:"channel_id"`

	// message
	Content     string  `json:"content,omitempty"`
	MessageType string  `json:"message_type,omitempty"`
	ReplyToID   *string `json:"reply_to_id,omitempty"`

	// typing
	IsTyping bool `json:"is_typing,omitempty"`

	// reaction
	MessageID string `json:"message_id,omitempty"`
	Emoji     string `json:"emoji,omitempty"`
	Action    string `json:"action,omitempty"`
}

// Outbound is the envelope for frames sent to the client.
type Outbound struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ConnectedData confirms a successful WebSocket session.
type ConnectedData struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// PresenceData notifies about a user joining or leaving a channel.
type PresenceData struct {
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	ChannelID string    `json:"channel_id"`
	IsOnline  bool      `json:"is_online"`
	LastSeen  time.Time `json:"last_seen"`
}

// TypingData notifies about a user's typing state.
type TypingData struct {
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name"`
	ChannelID string `json:"channel_id"`
	IsTyping  bool   `json:"is_typing"`
}

// MessageData carries a persisted message to channel members.
type MessageData struct {
	ChannelID string      `json:"channel_id"`
	Message   MessageBody `json:"message"`
}

// MessageBody is the wire form of a persisted message.
type MessageBody struct {
	ID          string    `json:"id"`
	ChannelID   string    `json:"channel_id"`
	SenderID    string    `json:"sender_id"`
	SenderName  string    `json:"sender_name"`
	SenderRole  string    `json:"sender_role"`
	Content     string    `json:"content"`
	MessageType string    `json:"message_type"`
	ReplyToID   *string   `json:"reply_to_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ReactionData carries a reaction delta to channel members.
type ReactionData struct {
	MessageID string `json:"message_id"`
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name"`
	Emoji     string `json:"emoji"`
	Action    string `json:"action"`
}

// ErrorData describes a failed frame back to its sender.
type ErrorData struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
