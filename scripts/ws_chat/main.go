// Command ws_chat is a minimal interactive client for manual testing of the
// realtime endpoint. Obtain a token via POST /api/login first.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/campushub/campushub-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	token := flag.String("token", "", "JWT token (from /api/login)")
	channel := flag.String("channel", "", "channel id to join")
	flag.Parse()

	if *token == "" || *channel == "" {
		return errors.New("both -token and -channel are required")
	}

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr+"?token="+*token, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	if err := wsjson.Write(ctx, conn, proto.Inbound{
		Type:      proto.InboundTypeJoinChannel,
		ChannelID: *channel,
	}); err != nil {
		return fmt.Errorf("join channel: %w", err)
	}

	fmt.Printf("Connected to %s, channel %s\n", *addr, *channel)
	fmt.Println("Type messages and press Enter to send. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, conn, *channel)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func decodeData(data any, v any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var outbound proto.Outbound
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			// Treat expected shutdowns quietly.
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		switch outbound.Type {
		case proto.OutboundTypeNewMessage:
			var evt proto.MessageData
			if err := decodeData(outbound.Data, &evt); err != nil {
				log.Printf("unmarshal new_message: %v", err)
				continue
			}
			fmt.Printf("%s: %s\n", evt.Message.SenderName, evt.Message.Content)
		case proto.OutboundTypeUserJoined, proto.OutboundTypeUserLeft:
			var evt proto.PresenceData
			if err := decodeData(outbound.Data, &evt); err != nil {
				log.Printf("unmarshal presence: %v", err)
				continue
			}
			verb := "joined"
			if !evt.IsOnline {
				verb = "left"
			}
			fmt.Printf("* %s %s\n", evt.UserName, verb)
		case proto.OutboundTypeTyping:
			var evt proto.TypingData
			if err := decodeData(outbound.Data, &evt); err != nil {
				log.Printf("unmarshal typing: %v", err)
				continue
			}
			if evt.IsTyping {
				fmt.Printf("* %s is typing...\n", evt.UserName)
			}
		case proto.OutboundTypeReaction:
			var evt proto.ReactionData
			if err := decodeData(outbound.Data, &evt); err != nil {
				log.Printf("unmarshal reaction: %v", err)
				continue
			}
			fmt.Printf("* %s reacted %s (%s)\n", evt.UserName, evt.Emoji, evt.Action)
		case proto.OutboundTypeError:
			var evt proto.ErrorData
			if err := decodeData(outbound.Data, &evt); err != nil {
				log.Printf("unmarshal error frame: %v", err)
				continue
			}
			fmt.Printf("! %s: %s\n", evt.Code, evt.Msg)
		default:
			fmt.Printf("event=%s data=%v\n", outbound.Type, outbound.Data)
		}
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn, channel string) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}

			if err := wsjson.Write(ctx, conn, proto.Inbound{
				Type:      proto.InboundTypeMessage,
				ChannelID: channel,
				Content:   text,
			}); err != nil {
				log.Printf("send error: %v", err)
				return
			}
		}
	}
}
