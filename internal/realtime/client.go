package realtime

import (
	"sync"

	"github.com/google/uuid"

	"github.com/campushub/campushub-server/internal/proto"
	"github.com/campushub/campushub-server/internal/store"
)

// eventBuffer is the per-connection outbound queue depth. A client that
// falls this far behind is treated as dead.
const eventBuffer = 32

// Client is a live connection handle as seen by the registry. The transport
// layer drains Events into the socket; the registry never writes to the
// socket directly.
type Client struct {
	UserID uuid.UUID
	Name   string
	Role   store.Role

	events    chan proto.Outbound
	done      chan struct{}
	closeOnce sync.Once
}

// NewClient constructs a client handle for an authenticated connection.
func NewClient(userID uuid.UUID, name string, role store.Role) *Client {
	return &Client{
		UserID: userID,
		Name:   name,
		Role:   role,
		events: make(chan proto.Outbound, eventBuffer),
		done:   make(chan struct{}),
	}
}

// Events is drained by the connection's write loop.
func (c *Client) Events() <-chan proto.Outbound {
	return c.events
}

// Done is closed when the client is evicted or disconnected.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close marks the client dead. Idempotent.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// TrySend queues an outbound frame without blocking. Returns false when the
// client is closed or its queue is full, so fan-out to other recipients is
// never stalled by one slow connection.
func (c *Client) TrySend(out proto.Outbound) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.events <- out:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}
