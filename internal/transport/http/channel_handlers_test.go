package http

import (
	"encoding/json"
	stdhttp "net/http"
	"testing"

	"github.com/google/uuid"
)

func TestCreateChannel(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerUser(t, "Alice", "professor")

	status, body := env.doJSON(t, stdhttp.MethodPost, "/api/channels", token, CreateChannelRequest{
		Name:        "algorithms",
		Description: "course discussion",
	})
	if status != stdhttp.StatusCreated {
		t.Fatalf("create channel: status %d, body %s", status, body)
	}
	var ch ChannelResponse
	if err := json.Unmarshal(body, &ch); err != nil {
		t.Fatalf("decode channel: %v", err)
	}
	if ch.Name != "algorithms" || ch.IsPrivate {
		t.Fatalf("unexpected channel: %+v", ch)
	}

	status, _ = env.doJSON(t, stdhttp.MethodPost, "/api/channels", token, CreateChannelRequest{Name: "algorithms"})
	if status != stdhttp.StatusConflict {
		t.Fatalf("duplicate name: expected 409, got %d", status)
	}
}

func TestListChannelsVisibility(t *testing.T) {
	env := newTestEnv(t)
	aliceToken := env.registerUser(t, "Alice", "professor")
	bobToken := env.registerUser(t, "Bob", "student")

	env.createChannel(t, aliceToken, "lounge")
	if status, body := env.doJSON(t, stdhttp.MethodPost, "/api/channels", aliceToken, CreateChannelRequest{
		Name:      "staff-only",
		IsPrivate: true,
	}); status != stdhttp.StatusCreated {
		t.Fatalf("create private channel: status %d, body %s", status, body)
	}

	status, body := env.doJSON(t, stdhttp.MethodGet, "/api/channels", bobToken, nil)
	if status != stdhttp.StatusOK {
		t.Fatalf("list channels: status %d, body %s", status, body)
	}
	var channels []ChannelResponse
	if err := json.Unmarshal(body, &channels); err != nil {
		t.Fatalf("decode channels: %v", err)
	}
	if len(channels) != 1 || channels[0].Name != "lounge" {
		t.Fatalf("bob should see only the public channel, got %+v", channels)
	}
}

func TestJoinChannel(t *testing.T) {
	env := newTestEnv(t)
	aliceToken := env.registerUser(t, "Alice", "professor")
	bobToken := env.registerUser(t, "Bob", "student")
	channelID := env.createChannel(t, aliceToken, "algorithms")

	status, _ := env.doJSON(t, stdhttp.MethodPost, "/api/channels/"+uuid.NewString()+"/join", bobToken, nil)
	if status != stdhttp.StatusNotFound {
		t.Fatalf("unknown channel: expected 404, got %d", status)
	}

	status, _ = env.doJSON(t, stdhttp.MethodPost, "/api/channels/not-a-uuid/join", bobToken, nil)
	if status != stdhttp.StatusBadRequest {
		t.Fatalf("bad id: expected 400, got %d", status)
	}

	status, _ = env.doJSON(t, stdhttp.MethodPost, "/api/channels/"+channelID+"/join", bobToken, nil)
	if status != stdhttp.StatusOK {
		t.Fatalf("join: expected 200, got %d", status)
	}

	// Joining twice is not an error.
	status, body := env.doJSON(t, stdhttp.MethodPost, "/api/channels/"+channelID+"/join", bobToken, nil)
	if status != stdhttp.StatusOK {
		t.Fatalf("rejoin: status %d, body %s", status, body)
	}
}

func TestJoinPrivateChannelForbidden(t *testing.T) {
	env := newTestEnv(t)
	aliceToken := env.registerUser(t, "Alice", "professor")
	bobToken := env.registerUser(t, "Bob", "student")

	status, body := env.doJSON(t, stdhttp.MethodPost, "/api/channels", aliceToken, CreateChannelRequest{
		Name:      "staff-only",
		IsPrivate: true,
	})
	if status != stdhttp.StatusCreated {
		t.Fatalf("create private channel: status %d, body %s", status, body)
	}
	var ch ChannelResponse
	if err := json.Unmarshal(body, &ch); err != nil {
		t.Fatalf("decode channel: %v", err)
	}

	status, _ = env.doJSON(t, stdhttp.MethodPost, "/api/channels/"+ch.ID+"/join", bobToken, nil)
	if status != stdhttp.StatusForbidden {
		t.Fatalf("private join: expected 403, got %d", status)
	}
}

func TestMessagesRequireMembership(t *testing.T) {
	env := newTestEnv(t)
	aliceToken := env.registerUser(t, "Alice", "professor")
	bobToken := env.registerUser(t, "Bob", "student")
	channelID := env.createChannel(t, aliceToken, "algorithms")

	status, _ := env.doJSON(t, stdhttp.MethodGet, "/api/channels/"+channelID+"/messages", bobToken, nil)
	if status != stdhttp.StatusForbidden {
		t.Fatalf("non-member history: expected 403, got %d", status)
	}

	status, _ = env.doJSON(t, stdhttp.MethodGet, "/api/channels/"+channelID+"/online", bobToken, nil)
	if status != stdhttp.StatusForbidden {
		t.Fatalf("non-member online: expected 403, got %d", status)
	}

	status, _ = env.doJSON(t, stdhttp.MethodGet, "/api/channels/"+channelID+"/typing", bobToken, nil)
	if status != stdhttp.StatusForbidden {
		t.Fatalf("non-member typing: expected 403, got %d", status)
	}
}

func TestLeaveChannel(t *testing.T) {
	env := newTestEnv(t)
	aliceToken := env.registerUser(t, "Alice", "professor")
	bobToken := env.registerUser(t, "Bob", "student")
	channelID := env.createChannel(t, aliceToken, "algorithms")

	if status, _ := env.doJSON(t, stdhttp.MethodPost, "/api/channels/"+channelID+"/join", bobToken, nil); status != stdhttp.StatusOK {
		t.Fatalf("join failed: %d", status)
	}
	if status, _ := env.doJSON(t, stdhttp.MethodPost, "/api/channels/"+channelID+"/leave", bobToken, nil); status != stdhttp.StatusOK {
		t.Fatalf("leave failed: %d", status)
	}

	// Membership is gone; member-only endpoints now refuse.
	status, _ := env.doJSON(t, stdhttp.MethodGet, "/api/channels/"+channelID+"/messages", bobToken, nil)
	if status != stdhttp.StatusForbidden {
		t.Fatalf("expected 403 after leave, got %d", status)
	}

	// Leaving a channel you are not in is a 403 as well.
	status, _ = env.doJSON(t, stdhttp.MethodPost, "/api/channels/"+channelID+"/leave", bobToken, nil)
	if status != stdhttp.StatusForbidden {
		t.Fatalf("double leave: expected 403, got %d", status)
	}
}

func TestListMessagesQueryValidation(t *testing.T) {
	env := newTestEnv(t)
	aliceToken := env.registerUser(t, "Alice", "professor")
	channelID := env.createChannel(t, aliceToken, "algorithms")

	status, _ := env.doJSON(t, stdhttp.MethodGet, "/api/channels/"+channelID+"/messages?limit=zero", aliceToken, nil)
	if status != stdhttp.StatusBadRequest {
		t.Fatalf("bad limit: expected 400, got %d", status)
	}

	status, _ = env.doJSON(t, stdhttp.MethodGet, "/api/channels/"+channelID+"/messages?before_id=nope", aliceToken, nil)
	if status != stdhttp.StatusBadRequest {
		t.Fatalf("bad before_id: expected 400, got %d", status)
	}

	status, body := env.doJSON(t, stdhttp.MethodGet, "/api/channels/"+channelID+"/messages", aliceToken, nil)
	if status != stdhttp.StatusOK {
		t.Fatalf("empty history: status %d, body %s", status, body)
	}
	var messages []MessageResponse
	if err := json.Unmarshal(body, &messages); err != nil {
		t.Fatalf("decode messages: %v", err)
	}
	if len(messages) != 0 {
		t.Fatalf("expected empty history, got %d messages", len(messages))
	}
}
