package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNotMember is returned when a user acts on a channel they do not belong to.
	ErrNotMember = errors.New("not a channel member")
	// ErrEmptyMessage is returned when a message has no content.
	ErrEmptyMessage = errors.New("empty message")
	// ErrDuplicate is returned on unique constraint violations (channel name, reaction).
	ErrDuplicate = errors.New("already exists")
)

// Role identifies what kind of account a user holds.
type Role string

const (
	RoleStudent   Role = "student"
	RoleProfessor Role = "professor"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleProfessor
}

// User represents a registered account.
type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// Channel represents a chat channel.
type Channel struct {
	ID            uuid.UUID
	Name          string
	Description   string
	IsPrivate     bool
	CreatedByID   uuid.UUID
	CreatedByRole Role
	CreatedAt     time.Time
}

// ChannelMember represents channel membership.
type ChannelMember struct {
	ChannelID  uuid.UUID
	MemberID   uuid.UUID
	MemberRole Role
	IsAdmin    bool
	JoinedAt   time.Time
}

// MessageType defines the kind of message content.
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeFile  MessageType = "file"
	MessageTypeVideo MessageType = "video"
)

// Message represents a persisted chat message.
type Message struct {
	ID         uuid.UUID
	ChannelID  uuid.UUID
	SenderID   uuid.UUID
	SenderRole Role
	Content    string
	Type       MessageType
	ReplyToID  *uuid.UUID
	CreatedAt  time.Time
}

// NewMessage carries the client-supplied fields of a message to be created.
type NewMessage struct {
	Content   string
	Type      MessageType
	ReplyToID *uuid.UUID
}

// Reaction represents an emoji reaction on a message.
type Reaction struct {
	ID        uuid.UUID
	MessageID uuid.UUID
	UserID    uuid.UUID
	Emoji     string
	CreatedAt time.Time
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, name, email, passwordHash string, role Role) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)

	// GetUserByEmail retrieves a user by email.
	GetUserByEmail(ctx context.Context, email string) (*User, error)
}

// ChannelStore handles channel and membership persistence.
type ChannelStore interface {
	// CreateChannel creates a new channel and adds the creator as admin member.
	CreateChannel(ctx context.Context, name, description string, isPrivate bool, creatorID uuid.UUID, creatorRole Role) (*Channel, error)

	// GetChannelByID retrieves a channel by ID.
	GetChannelByID(ctx context.Context, id uuid.UUID) (*Channel, error)

	// ListChannels lists channels visible to a user: public ones plus
	// private ones the user is a member of.
	ListChannels(ctx context.Context, userID uuid.UUID) ([]*Channel, error)

	// AddMember adds a user to a channel.
	AddMember(ctx context.Context, channelID, userID uuid.UUID, role Role) error

	// RemoveMember removes a user from a channel.
	RemoveMember(ctx context.Context, channelID, userID uuid.UUID) error

	// IsMember checks whether the user belongs to the channel.
	IsMember(ctx context.Context, channelID, userID uuid.UUID) (bool, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// CreateMessage validates membership and content, then persists the
	// message. Returns ErrNotMember when the sender does not belong to the
	// channel and ErrEmptyMessage for blank text content.
	CreateMessage(ctx context.Context, msg NewMessage, channelID, senderID uuid.UUID, senderRole Role) (*Message, error)

	// ListMessages retrieves messages from a channel, newest first.
	// If beforeID is set, only messages created before that message are
	// returned. Limit caps the number of rows.
	ListMessages(ctx context.Context, channelID uuid.UUID, limit int, beforeID *uuid.UUID) ([]*Message, error)
}

// ReactionStore handles reaction persistence.
type ReactionStore interface {
	// AddReaction records an emoji reaction. Returns ErrDuplicate when the
	// same user already reacted with the same emoji.
	AddReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) (*Reaction, error)

	// RemoveReaction deletes a reaction. Returns true if a row was removed.
	RemoveReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) (bool, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	ChannelStore
	MessageStore
	ReactionStore

	// Close closes the underlying database connection.
	Close() error
}
