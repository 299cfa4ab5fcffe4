package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/campushub/campushub-server/internal/auth"
	"github.com/campushub/campushub-server/internal/config"
	"github.com/campushub/campushub-server/internal/log"
	"github.com/campushub/campushub-server/internal/realtime"
	"github.com/campushub/campushub-server/internal/store/sqlite"
)

// testEnv wires a full server over an in-memory store for handler tests.
type testEnv struct {
	server *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	logger := log.Nop()
	jwtConfig := &auth.JWTConfig{
		Secret:   []byte("test-secret"),
		Issuer:   "test",
		Audience: "test",
		TTL:      time.Hour,
	}
	authService := auth.NewService(st, jwtConfig)

	reg := realtime.NewRegistry()
	relay := realtime.NewRelay(reg, logger)
	router := realtime.NewRouter(reg, relay, st, logger)

	cfg := config.Default()
	srv := NewServer(cfg, authService, st, reg, router, logger)

	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{server: ts}
}

// doJSON performs a request against the test server, optionally with a
// bearer token, and returns the status code and raw body.
func (e *testEnv) doJSON(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := stdhttp.NewRequest(method, e.server.URL+path, reqBody)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response body: %v", err)
	}
	return resp.StatusCode, raw
}

// registerUser registers a user and returns their token.
func (e *testEnv) registerUser(t *testing.T, name, role string) string {
	t.Helper()

	status, body := e.doJSON(t, stdhttp.MethodPost, "/api/register", "", RegisterRequest{
		Name:     name,
		Email:    strings.ToLower(name) + "@example.com",
		Password: "secret123",
		Role:     role,
	})
	if status != stdhttp.StatusCreated {
		t.Fatalf("register %s: status %d, body %s", name, status, body)
	}

	var resp AuthResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode auth response: %v", err)
	}
	return resp.Token
}

// createChannel creates a channel and returns its id.
func (e *testEnv) createChannel(t *testing.T, token, name string) string {
	t.Helper()

	status, body := e.doJSON(t, stdhttp.MethodPost, "/api/channels", token, CreateChannelRequest{Name: name})
	if status != stdhttp.StatusCreated {
		t.Fatalf("create channel %s: status %d, body %s", name, status, body)
	}

	var resp ChannelResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode channel response: %v", err)
	}
	return resp.ID
}

// waitForOnline polls the online endpoint until the channel shows at least
// want connected members. Joins arrive on independent sockets, so tests use
// this to sequence presence before asserting on broadcasts.
func (e *testEnv) waitForOnline(t *testing.T, token, channelID string, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for {
		status, body := e.doJSON(t, stdhttp.MethodGet, "/api/channels/"+channelID+"/online", token, nil)
		if status == stdhttp.StatusOK {
			var users []OnlineUserResponse
			if err := json.Unmarshal(body, &users); err != nil {
				t.Fatalf("decode online response: %v", err)
			}
			if len(users) >= want {
				return
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("channel never reached %d online members", want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// wsURL converts the test server URL into the websocket endpoint URL.
func (e *testEnv) wsURL(token string) string {
	return "ws" + strings.TrimPrefix(e.server.URL, "http") + "/ws?token=" + token
}

// dialWS opens a websocket session and consumes the initial connected frame.
func (e *testEnv) dialWS(t *testing.T, ctx context.Context, token string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.Dial(ctx, e.wsURL(token), nil)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "test done") })

	frame := readWSFrame(t, ctx, conn, "connected")
	if len(frame.Data) == 0 {
		t.Fatalf("connected frame missing data")
	}
	return conn
}

// wsFrame is the wire shape of an outbound frame as seen by clients.
type wsFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// readWSFrame reads frames until one of the wanted type arrives.
func readWSFrame(t *testing.T, ctx context.Context, conn *websocket.Conn, wantType string) wsFrame {
	t.Helper()

	readCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	for {
		_, data, err := conn.Read(readCtx)
		if err != nil {
			t.Fatalf("waiting for %q frame: %v", wantType, err)
		}
		var frame wsFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		if frame.Type == wantType {
			return frame
		}
	}
}

// readNextWSFrame reads exactly one frame, for ordering assertions.
func readNextWSFrame(t *testing.T, ctx context.Context, conn *websocket.Conn) wsFrame {
	t.Helper()

	readCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	_, data, err := conn.Read(readCtx)
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var frame wsFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	return frame
}

// expectNoWSFrame asserts that nothing arrives on the socket within the
// window. The expired read context closes the connection, so this is only
// safe as the last thing a test does with the socket.
func expectNoWSFrame(t *testing.T, ctx context.Context, conn *websocket.Conn, window time.Duration) {
	t.Helper()

	readCtx, cancel := context.WithTimeout(ctx, window)
	defer cancel()

	_, data, err := conn.Read(readCtx)
	if err == nil {
		t.Fatalf("unexpected frame received: %s", data)
	}
}

// sendWSFrame writes an inbound frame as JSON.
func sendWSFrame(t *testing.T, ctx context.Context, conn *websocket.Conn, frame map[string]any) {
	t.Helper()

	raw, err := json.Marshal(frame)
	if err != nil {
		t.Fatalf("marshal frame: %v", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, raw); err != nil {
		t.Fatalf("write frame: %v", err)
	}
}
