package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestJanitorSweepsStaleTyping(t *testing.T) {
	reg := NewRegistry()
	base := time.Now()
	reg.now = func() time.Time { return base }

	c := newTestClient("alice")
	ch := uuid.New()
	reg.Connect(c)
	reg.SetTyping(c.UserID, ch, true)

	// Entry is now 11s old, past the hard expiry.
	reg.now = func() time.Time { return base.Add(11 * time.Second) }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	j := NewJanitorWithTimings(reg, 10*time.Millisecond, TypingHardExpiry, nopLogger)
	go j.Run(ctx)

	deadline := time.After(2 * time.Second)
	for {
		reg.mu.Lock()
		_, exists := reg.typing[ch]
		reg.mu.Unlock()
		if !exists {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("stale typing entry not swept")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestJanitorKeepsFreshTyping(t *testing.T) {
	reg := NewRegistry()
	c := newTestClient("alice")
	ch := uuid.New()
	reg.Connect(c)
	reg.SetTyping(c.UserID, ch, true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	j := NewJanitorWithTimings(reg, 10*time.Millisecond, TypingHardExpiry, nopLogger)
	go j.Run(ctx)

	time.Sleep(100 * time.Millisecond)
	if got := reg.TypingUsers(ch); len(got) != 1 || got[0] != c.UserID {
		t.Fatalf("fresh typing entry swept: %v", got)
	}
}

func TestJanitorStopsOnContextCancel(t *testing.T) {
	reg := NewRegistry()
	ctx, cancel := context.WithCancel(context.Background())

	j := NewJanitorWithTimings(reg, 5*time.Millisecond, TypingHardExpiry, nopLogger)
	done := make(chan struct{})
	go func() {
		j.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("janitor did not stop on cancel")
	}
}
