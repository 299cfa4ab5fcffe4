package realtime

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/campushub/campushub-server/internal/log"
	"github.com/campushub/campushub-server/internal/proto"
	"github.com/campushub/campushub-server/internal/store"
)

func newTestClient(name string) *Client {
	return NewClient(uuid.New(), name, store.RoleStudent)
}

// mustFrame waits for a frame of the given type on the client's queue,
// skipping frames of other types.
func mustFrame(t *testing.T, c *Client, frameType string) proto.Outbound {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case out := <-c.Events():
			if out.Type == frameType {
				return out
			}
		case <-deadline:
			t.Fatalf("expected frame type %q not received", frameType)
			return proto.Outbound{}
		}
	}
}

// mustNoFrame asserts that no frame arrives within the window.
func mustNoFrame(t *testing.T, c *Client, window time.Duration) {
	t.Helper()

	select {
	case out := <-c.Events():
		t.Fatalf("unexpected frame received: %+v", out)
	case <-time.After(window):
	}
}

var nopLogger = log.Nop()
