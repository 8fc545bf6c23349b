package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/groupchat-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

type frame struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func run() error {
	addr := flag.String("addr", "ws://localhost:3000/ws", "WebSocket address")
	email := flag.String("email", "smoke@example.com", "email to enter the lobby with")
	nickname := flag.String("nickname", "smoke", "nickname used when the email is not registered")
	token := flag.String("token", "", "JWT issued by /api/login (needed with jwt_required)")
	text := flag.String("text", "hello from smoke test", "message text to send to the lobby")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	mustSend := func(typ string, data any) error {
		payload, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", typ, err)
		}
		if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
			return fmt.Errorf("send %s: %w", typ, err)
		}
		return nil
	}

	if err := mustSend(proto.InboundEnterLobby, proto.UserData{Email: *email, Nickname: *nickname, Token: *token}); err != nil {
		return err
	}

	for {
		var out frame
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		fmt.Printf("Received outbound: type=%s", out.Type)
		if out.Event != "" {
			fmt.Printf(" event=%s", out.Event)
		}
		fmt.Println()

		if out.Error != nil {
			return fmt.Errorf("server error %s: %s", out.Error.Code, out.Error.Msg)
		}

		switch out.Event {
		case proto.EventEnterLobbyResult:
			var res proto.EnterLobbyResult
			if err := json.Unmarshal(out.Data, &res); err != nil {
				return fmt.Errorf("unmarshal %s: %w", out.Event, err)
			}
			fmt.Printf("Lobby: id=%s name=%q history=%d\n", res.RoomName, res.DisplayName, len(res.Messages))
			if err := mustSend(proto.InboundSendMessage, proto.SendMessageData{
				RoomName: res.RoomName,
				Type:     "text",
				Content:  *text,
			}); err != nil {
				return err
			}
		case proto.EventNewMessage:
			var evt proto.NewMessage
			if err := json.Unmarshal(out.Data, &evt); err != nil {
				fmt.Printf("Raw data: %s\n", string(out.Data))
				return fmt.Errorf("unmarshal message: %w", err)
			}
			fmt.Printf("NewMessage: room=%s user=%s text=%q id=%s\n", evt.RoomName, evt.Message.User, evt.Message.Content, evt.Message.ID)
			if evt.Message.Content == *text {
				return nil
			}
		default:
			// keep looping for our own message
		}
	}
}
