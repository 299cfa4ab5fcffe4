package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/campushub/campushub-server/internal/auth"
	"github.com/campushub/campushub-server/internal/proto"
	"github.com/campushub/campushub-server/internal/realtime"
)

// WSHandler upgrades HTTP connections and bridges them to the realtime
// registry and router.
type WSHandler struct {
	authService *auth.Service
	reg         *realtime.Registry
	router      *realtime.Router
	frameLimit  int
	log         *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler. frameLimit caps inbound
// frames per minute per connection; zero disables the limit.
func NewWSHandler(authService *auth.Service, reg *realtime.Registry, router *realtime.Router, frameLimit int, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{
		authService: authService,
		reg:         reg,
		router:      router,
		frameLimit:  frameLimit,
		log:         logger,
	}
}

// Handle authenticates the caller, accepts the upgrade, and runs the
// read/write loops until either side closes.
// GET /ws?token=<jwt>
func (h *WSHandler) Handle(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
			token = strings.TrimPrefix(header, "Bearer ")
		}
	}

	// Authentication failures reject the connection before the handshake.
	identity, err := h.authService.ValidateToken(token)
	if err != nil {
		h.log.Debug().Err(err).Msg("ws auth failed")
		c.JSON(stdhttp.StatusUnauthorized, ErrorResponse{Error: "invalid token"})
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	client := realtime.NewClient(identity.UserID, identity.Name, identity.Role)
	h.reg.Connect(client)
	defer h.reg.DisconnectClient(client)

	h.log.Info().Str("user_id", identity.UserID.String()).Str("name", identity.Name).Msg("ws connected")

	client.TrySend(proto.Outbound{
		Type: proto.OutboundTypeConnected,
		Data: proto.ConnectedData{
			UserID:  identity.UserID.String(),
			Message: "Connected to real-time messaging",
		},
	})

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	h.log.Info().Str("user_id", identity.UserID.String()).Msg("ws disconnected")

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = "error"
			h.log.Warn().Err(err).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

// readLoop reads frames until the connection fails. Malformed frames are
// dropped and the connection stays open; transport errors end the session.
func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *realtime.Client) error {
	limiter := newFrameLimiter(h.frameLimit)
	defer limiter.stop()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		if !limiter.allow() {
			h.log.Warn().Str("user_id", client.UserID.String()).Msg("frame rate limit exceeded, dropping frame")
			continue
		}

		var inbound proto.Inbound
		if err := json.Unmarshal(data, &inbound); err != nil {
			h.log.Debug().Err(err).Str("user_id", client.UserID.String()).Msg("dropping malformed frame")
			continue
		}

		h.router.HandleFrame(ctx, client, inbound)
	}
}

// writeLoop drains the client's event queue into the socket. It ends when
// the client is closed (disconnect or eviction by a newer session) or when
// a write fails.
func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *realtime.Client) error {
	for {
		select {
		case event := <-client.Events():
			if err := wsjson.Write(ctx, conn, event); err != nil {
				h.log.Warn().Err(err).Str("user_id", client.UserID.String()).Msg("write ws event")
				return err
			}
		case <-client.Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
