package realtime

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/campushub/campushub-server/internal/proto"
)

func TestSendToChannelExcludesUser(t *testing.T) {
	reg := NewRegistry()
	relay := NewRelay(reg, nopLogger)
	ch := uuid.New()

	alice := newTestClient("alice")
	bob := newTestClient("bob")
	reg.Connect(alice)
	reg.Connect(bob)
	reg.JoinChannel(alice.UserID, ch)
	reg.JoinChannel(bob.UserID, ch)

	relay.SendToChannel(proto.Outbound{Type: "probe"}, ch, &alice.UserID)

	mustFrame(t, bob, "probe")
	mustNoFrame(t, alice, 100*time.Millisecond)
}

func TestSendToChannelSkipsNonMembers(t *testing.T) {
	reg := NewRegistry()
	relay := NewRelay(reg, nopLogger)
	ch := uuid.New()

	alice := newTestClient("alice")
	outsider := newTestClient("carol")
	reg.Connect(alice)
	reg.Connect(outsider)
	reg.JoinChannel(alice.UserID, ch)

	relay.SendToChannel(proto.Outbound{Type: "probe"}, ch, nil)

	mustFrame(t, alice, "probe")
	mustNoFrame(t, outsider, 100*time.Millisecond)
}

func TestSendToChannelDisconnectsFailedRecipients(t *testing.T) {
	reg := NewRegistry()
	relay := NewRelay(reg, nopLogger)
	ch := uuid.New()

	alice := newTestClient("alice")
	stalled := newTestClient("bob")
	reg.Connect(alice)
	reg.Connect(stalled)
	reg.JoinChannel(alice.UserID, ch)
	reg.JoinChannel(stalled.UserID, ch)

	// Fill the stalled client's queue so the next send fails.
	for stalled.TrySend(proto.Outbound{Type: "filler"}) {
	}

	relay.SendToChannel(proto.Outbound{Type: "probe"}, ch, nil)

	mustFrame(t, alice, "probe")
	if reg.IsOnline(stalled.UserID) {
		t.Fatalf("stalled recipient not disconnected")
	}
	if got := reg.ChannelClients(ch); len(got) != 1 {
		t.Fatalf("expected only alice in channel, got %d clients", len(got))
	}
}

func TestSendToUserFailureDisconnects(t *testing.T) {
	reg := NewRegistry()
	relay := NewRelay(reg, nopLogger)
	ch := uuid.New()

	c := newTestClient("alice")
	reg.Connect(c)
	reg.JoinChannel(c.UserID, ch)
	reg.SetTyping(c.UserID, ch, true)

	c.Close() // simulate a dead socket
	relay.SendToUser(proto.Outbound{Type: "probe"}, c.UserID)

	if reg.IsOnline(c.UserID) {
		t.Fatalf("dead connection still registered")
	}
	if got := reg.TypingUsers(ch); len(got) != 0 {
		t.Fatalf("typing state survived implicit disconnect: %v", got)
	}
}

func TestSendToUserUnknownIsNoop(t *testing.T) {
	reg := NewRegistry()
	relay := NewRelay(reg, nopLogger)

	relay.SendToUser(proto.Outbound{Type: "probe"}, uuid.New())
}
