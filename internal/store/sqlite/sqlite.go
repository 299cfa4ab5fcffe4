package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/campushub/campushub-server/internal/store"
)

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS channels (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL UNIQUE,
	description     TEXT NOT NULL DEFAULT '',
	is_private      BOOLEAN NOT NULL DEFAULT 0,
	created_by_id   TEXT NOT NULL,
	created_by_role TEXT NOT NULL,
	created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS channel_members (
	channel_id  TEXT NOT NULL REFERENCES channels(id) ON DELETE CASCADE,
	member_id   TEXT NOT NULL,
	member_role TEXT NOT NULL,
	is_admin    BOOLEAN NOT NULL DEFAULT 0,
	joined_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (channel_id, member_id)
);

CREATE TABLE IF NOT EXISTS messages (
	id           TEXT PRIMARY KEY,
	channel_id   TEXT NOT NULL REFERENCES channels(id) ON DELETE CASCADE,
	sender_id    TEXT NOT NULL,
	sender_role  TEXT NOT NULL,
	content      TEXT NOT NULL,
	message_type TEXT NOT NULL DEFAULT 'text',
	reply_to_id  TEXT,
	created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_messages_channel_created ON messages(channel_id, created_at);

CREATE TABLE IF NOT EXISTS reactions (
	id         TEXT PRIMARY KEY,
	message_id TEXT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
	user_id    TEXT NOT NULL,
	emoji      TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (message_id, user_id, emoji)
);
`

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// ==== UserStore implementation ====

// CreateUser creates a new user with hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, name, email, passwordHash string, role store.Role) (*store.User, error) {
	id := uuid.New()
	query := `
		INSERT INTO users (id, name, email, password_hash, role)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, id.String(), name, email, passwordHash, role); err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*store.User, error) {
	var user store.User
	var id string
	err := row.Scan(&id, &user.Name, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	user.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse user id: %w", err)
	}
	return &user, nil
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id uuid.UUID) (*store.User, error) {
	query := `
		SELECT id, name, email, password_hash, role, created_at
		FROM users
		WHERE id = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, id.String()))
}

// GetUserByEmail retrieves a user by email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	query := `
		SELECT id, name, email, password_hash, role, created_at
		FROM users
		WHERE email = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, email))
}

// ==== ChannelStore implementation ====

// CreateChannel creates a new channel and adds the creator as admin member.
func (s *SQLiteStore) CreateChannel(ctx context.Context, name, description string, isPrivate bool, creatorID uuid.UUID, creatorRole store.Role) (*store.Channel, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	id := uuid.New()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO channels (id, name, description, is_private, created_by_id, created_by_role)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id.String(), name, description, isPrivate, creatorID.String(), creatorRole)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, fmt.Errorf("insert channel: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO channel_members (channel_id, member_id, member_role, is_admin)
		VALUES (?, ?, ?, 1)
	`, id.String(), creatorID.String(), creatorRole)
	if err != nil {
		return nil, fmt.Errorf("insert creator membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return s.GetChannelByID(ctx, id)
}

func scanChannel(scan func(dest ...any) error) (*store.Channel, error) {
	var ch store.Channel
	var id, createdBy string
	err := scan(&id, &ch.Name, &ch.Description, &ch.IsPrivate, &createdBy, &ch.CreatedByRole, &ch.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query channel: %w", err)
	}
	if ch.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse channel id: %w", err)
	}
	if ch.CreatedByID, err = uuid.Parse(createdBy); err != nil {
		return nil, fmt.Errorf("parse channel creator id: %w", err)
	}
	return &ch, nil
}

// GetChannelByID retrieves a channel by ID.
func (s *SQLiteStore) GetChannelByID(ctx context.Context, id uuid.UUID) (*store.Channel, error) {
	query := `
		SELECT id, name, description, is_private, created_by_id, created_by_role, created_at
		FROM channels
		WHERE id = ?
	`
	row := s.db.QueryRowContext(ctx, query, id.String())
	return scanChannel(row.Scan)
}

// ListChannels lists public channels plus private channels the user belongs to.
func (s *SQLiteStore) ListChannels(ctx context.Context, userID uuid.UUID) ([]*store.Channel, error) {
	query := `
		SELECT id, name, description, is_private, created_by_id, created_by_role, created_at
		FROM channels
		WHERE is_private = 0
		   OR id IN (SELECT channel_id FROM channel_members WHERE member_id = ?)
		ORDER BY name
	`
	rows, err := s.db.QueryContext(ctx, query, userID.String())
	if err != nil {
		return nil, fmt.Errorf("query channels: %w", err)
	}
	defer rows.Close()

	var channels []*store.Channel
	for rows.Next() {
		ch, err := scanChannel(rows.Scan)
		if err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

// AddMember adds a user to a channel.
func (s *SQLiteStore) AddMember(ctx context.Context, channelID, userID uuid.UUID, role store.Role) error {
	query := `
		INSERT INTO channel_members (channel_id, member_id, member_role)
		VALUES (?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, channelID.String(), userID.String(), role); err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

// RemoveMember removes a user from a channel.
func (s *SQLiteStore) RemoveMember(ctx context.Context, channelID, userID uuid.UUID) error {
	query := `DELETE FROM channel_members WHERE channel_id = ? AND member_id = ?`
	if _, err := s.db.ExecContext(ctx, query, channelID.String(), userID.String()); err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	return nil
}

// IsMember checks whether the user belongs to the channel.
func (s *SQLiteStore) IsMember(ctx context.Context, channelID, userID uuid.UUID) (bool, error) {
	query := `SELECT 1 FROM channel_members WHERE channel_id = ? AND member_id = ?`
	var one int
	err := s.db.QueryRowContext(ctx, query, channelID.String(), userID.String()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query membership: %w", err)
	}
	return true, nil
}

// ==== MessageStore implementation ====

// CreateMessage validates membership and content, then persists the message.
func (s *SQLiteStore) CreateMessage(ctx context.Context, msg store.NewMessage, channelID, senderID uuid.UUID, senderRole store.Role) (*store.Message, error) {
	member, err := s.IsMember(ctx, channelID, senderID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, store.ErrNotMember
	}

	if msg.Type == "" {
		msg.Type = store.MessageTypeText
	}
	if msg.Type == store.MessageTypeText && strings.TrimSpace(msg.Content) == "" {
		return nil, store.ErrEmptyMessage
	}

	id := uuid.New()
	var replyTo any
	if msg.ReplyToID != nil {
		replyTo = msg.ReplyToID.String()
	}
	query := `
		INSERT INTO messages (id, channel_id, sender_id, sender_role, content, message_type, reply_to_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		id.String(), channelID.String(), senderID.String(), senderRole, msg.Content, msg.Type, replyTo)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	return s.getMessageByID(ctx, id)
}

func scanMessage(scan func(dest ...any) error) (*store.Message, error) {
	var m store.Message
	var id, channelID, senderID string
	var replyTo sql.NullString
	err := scan(&id, &channelID, &senderID, &m.SenderRole, &m.Content, &m.Type, &replyTo, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query message: %w", err)
	}
	if m.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse message id: %w", err)
	}
	if m.ChannelID, err = uuid.Parse(channelID); err != nil {
		return nil, fmt.Errorf("parse message channel id: %w", err)
	}
	if m.SenderID, err = uuid.Parse(senderID); err != nil {
		return nil, fmt.Errorf("parse message sender id: %w", err)
	}
	if replyTo.Valid {
		rid, err := uuid.Parse(replyTo.String)
		if err != nil {
			return nil, fmt.Errorf("parse reply_to id: %w", err)
		}
		m.ReplyToID = &rid
	}
	return &m, nil
}

func (s *SQLiteStore) getMessageByID(ctx context.Context, id uuid.UUID) (*store.Message, error) {
	query := `
		SELECT id, channel_id, sender_id, sender_role, content, message_type, reply_to_id, created_at
		FROM messages
		WHERE id = ?
	`
	row := s.db.QueryRowContext(ctx, query, id.String())
	return scanMessage(row.Scan)
}

// ListMessages retrieves messages from a channel, newest first.
func (s *SQLiteStore) ListMessages(ctx context.Context, channelID uuid.UUID, limit int, beforeID *uuid.UUID) ([]*store.Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `
		SELECT id, channel_id, sender_id, sender_role, content, message_type, reply_to_id, created_at
		FROM messages
		WHERE channel_id = ?
	`
	args := []any{channelID.String()}
	if beforeID != nil {
		query += ` AND created_at < (SELECT created_at FROM messages WHERE id = ?)`
		args = append(args, beforeID.String())
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []*store.Message
	for rows.Next() {
		m, err := scanMessage(rows.Scan)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// ==== ReactionStore implementation ====

// AddReaction records an emoji reaction on a message.
func (s *SQLiteStore) AddReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) (*store.Reaction, error) {
	if emoji == "" {
		return nil, store.ErrEmptyMessage
	}

	id := uuid.New()
	query := `
		INSERT INTO reactions (id, message_id, user_id, emoji)
		VALUES (?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, id.String(), messageID.String(), userID.String(), emoji); err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, fmt.Errorf("insert reaction: %w", err)
	}

	var r store.Reaction
	var rid, mid, uid string
	row := s.db.QueryRowContext(ctx, `
		SELECT id, message_id, user_id, emoji, created_at FROM reactions WHERE id = ?
	`, id.String())
	if err := row.Scan(&rid, &mid, &uid, &r.Emoji, &r.CreatedAt); err != nil {
		return nil, fmt.Errorf("query reaction: %w", err)
	}
	r.ID = id
	r.MessageID = messageID
	r.UserID = userID
	return &r, nil
}

// RemoveReaction deletes a reaction, reporting whether one existed.
func (s *SQLiteStore) RemoveReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) (bool, error) {
	query := `DELETE FROM reactions WHERE message_id = ? AND user_id = ? AND emoji = ?`
	result, err := s.db.ExecContext(ctx, query, messageID.String(), userID.String(), emoji)
	if err != nil {
		return false, fmt.Errorf("delete reaction: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
