package realtime

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/campushub/campushub-server/internal/store"
)

const (
	// TypingSoftExpiry is the window within which a typing entry is reported
	// by TypingUsers. Older entries are pruned lazily on read.
	TypingSoftExpiry = 5 * time.Second
	// TypingHardExpiry is the age at which the janitor sweep removes a typing
	// entry regardless of reads.
	TypingHardExpiry = 10 * time.Second
)

// OnlineUser describes a connected user present in a channel.
type OnlineUser struct {
	UserID uuid.UUID
	Name   string
	Role   store.Role
}

// Registry tracks live connections, per-channel presence sets, and
// per-channel typing state. All maps are guarded by a single mutex; no
// operation suspends while holding it. Exactly one instance is created at
// process start and injected into the relay and router.
type Registry struct {
	mu       sync.Mutex
	clients  map[uuid.UUID]*Client
	presence map[uuid.UUID]map[uuid.UUID]struct{}
	typing   map[uuid.UUID]map[uuid.UUID]time.Time

	now func() time.Time
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		clients:  make(map[uuid.UUID]*Client),
		presence: make(map[uuid.UUID]map[uuid.UUID]struct{}),
		typing:   make(map[uuid.UUID]map[uuid.UUID]time.Time),
		now:      time.Now,
	}
}

// Connect registers the client as the user's live connection. At most one
// connection per user: a prior connection is replaced and closed so its
// write loop exits and its socket is never used again. Presence survives a
// replace — the new connection inherits the channels the user had joined.
func (r *Registry) Connect(c *Client) {
	r.mu.Lock()
	prev := r.clients[c.UserID]
	r.clients[c.UserID] = c
	r.mu.Unlock()

	if prev != nil && prev != c {
		prev.Close()
	}
}

// Disconnect removes the user's connection and clears the user from every
// presence set and every typing map. No-op for unknown users; calling it
// twice is indistinguishable from calling it once.
func (r *Registry) Disconnect(userID uuid.UUID) {
	r.mu.Lock()
	c := r.clients[userID]
	delete(r.clients, userID)
	r.clearUserLocked(userID)
	r.mu.Unlock()

	if c != nil {
		c.Close()
	}
}

// DisconnectClient is Disconnect scoped to one specific connection. When the
// registry already holds a newer connection for the same user (last connect
// wins), only the stale client is closed and the user's state is untouched.
func (r *Registry) DisconnectClient(c *Client) {
	r.mu.Lock()
	if cur, ok := r.clients[c.UserID]; !ok || cur != c {
		r.mu.Unlock()
		c.Close()
		return
	}
	delete(r.clients, c.UserID)
	r.clearUserLocked(c.UserID)
	r.mu.Unlock()

	c.Close()
}

// clearUserLocked removes the user from all presence sets and typing maps,
// pruning emptied entries. Caller holds r.mu.
func (r *Registry) clearUserLocked(userID uuid.UUID) {
	for channelID, set := range r.presence {
		delete(set, userID)
		if len(set) == 0 {
			delete(r.presence, channelID)
		}
	}
	for channelID, typers := range r.typing {
		delete(typers, userID)
		if len(typers) == 0 {
			delete(r.typing, channelID)
		}
	}
}

// Client returns the user's live connection, if any.
func (r *Registry) Client(userID uuid.UUID) (*Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[userID]
	return c, ok
}

// IsOnline reports whether the user has a live connection.
func (r *Registry) IsOnline(userID uuid.UUID) bool {
	_, ok := r.Client(userID)
	return ok
}

// JoinChannel adds the user to the channel's presence set. Users without a
// live connection are ignored so presence never outlives the connection.
func (r *Registry) JoinChannel(userID, channelID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[userID]; !ok {
		return false
	}
	set, ok := r.presence[channelID]
	if !ok {
		set = make(map[uuid.UUID]struct{})
		r.presence[channelID] = set
	}
	set[userID] = struct{}{}
	return true
}

// LeaveChannel removes the user from the channel's presence set.
func (r *Registry) LeaveChannel(userID, channelID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.presence[channelID]
	if !ok {
		return
	}
	delete(set, userID)
	if len(set) == 0 {
		delete(r.presence, channelID)
	}
}

// SetTyping records the user's typing state in the channel. A true state
// stores the current timestamp; a false state deletes the entry.
func (r *Registry) SetTyping(userID, channelID uuid.UUID, isTyping bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !isTyping {
		if typers, ok := r.typing[channelID]; ok {
			delete(typers, userID)
			if len(typers) == 0 {
				delete(r.typing, channelID)
			}
		}
		return
	}

	if _, ok := r.clients[userID]; !ok {
		return
	}
	typers, ok := r.typing[channelID]
	if !ok {
		typers = make(map[uuid.UUID]time.Time)
		r.typing[channelID] = typers
	}
	typers[userID] = r.now()
}

// TypingUsers returns users whose typing entry is younger than the soft
// expiry. Older entries are evicted as a side effect of the read; the
// janitor sweep remains the authoritative cleanup for idle channels.
func (r *Registry) TypingUsers(channelID uuid.UUID) []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()

	typers, ok := r.typing[channelID]
	if !ok {
		return nil
	}

	now := r.now()
	active := make([]uuid.UUID, 0, len(typers))
	for userID, at := range typers {
		if now.Sub(at) < TypingSoftExpiry {
			active = append(active, userID)
		} else {
			delete(typers, userID)
		}
	}
	if len(typers) == 0 {
		delete(r.typing, channelID)
	}
	return active
}

// SweepTyping removes typing entries older than maxAge across all channels
// and returns the number removed.
func (r *Registry) SweepTyping(maxAge time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for channelID, typers := range r.typing {
		for userID, at := range typers {
			if now.Sub(at) > maxAge {
				delete(typers, userID)
				removed++
			}
		}
		if len(typers) == 0 {
			delete(r.typing, channelID)
		}
	}
	return removed
}

// ChannelClients snapshots the live connections of the channel's presence
// set, so fan-out can iterate without holding the lock.
func (r *Registry) ChannelClients(channelID uuid.UUID) []*Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.presence[channelID]
	if !ok {
		return nil
	}
	clients := make([]*Client, 0, len(set))
	for userID := range set {
		if c, ok := r.clients[userID]; ok {
			clients = append(clients, c)
		}
	}
	return clients
}

// OnlineUsers lists the connected users present in a channel.
func (r *Registry) OnlineUsers(channelID uuid.UUID) []OnlineUser {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.presence[channelID]
	if !ok {
		return nil
	}
	users := make([]OnlineUser, 0, len(set))
	for userID := range set {
		c, ok := r.clients[userID]
		if !ok {
			continue
		}
		users = append(users, OnlineUser{UserID: c.UserID, Name: c.Name, Role: c.Role})
	}
	return users
}
