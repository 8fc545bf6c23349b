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
	"sync"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/groupchat-server/internal/proto"
)

const lobbyID = "public_lobby"

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

type frame struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

// session tracks the room typed lines are sent to.
type session struct {
	mu      sync.Mutex
	current string
	user    proto.UserData
}

func (s *session) room() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *session) setRoom(id string) {
	s.mu.Lock()
	s.current = id
	s.mu.Unlock()
}

func run() error {
	addr := flag.String("addr", "ws://localhost:3000/ws", "WebSocket address")
	email := flag.String("email", "", "account email")
	nickname := flag.String("nickname", "cli-user", "nickname used when the email is not registered")
	token := flag.String("token", "", "JWT issued by /api/login")
	flag.Parse()

	if *email == "" {
		return errors.New("-email is required")
	}

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	sess := &session{
		current: lobbyID,
		user:    proto.UserData{Email: *email, Nickname: *nickname, Token: *token},
	}

	send := func(typ string, data any) {
		payload, err := json.Marshal(data)
		if err != nil {
			log.Printf("marshal %s: %v", typ, err)
			return
		}
		if writeErr := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); writeErr != nil {
			cancel()
			log.Printf("send: %v", writeErr)
		}
	}

	send(proto.InboundEnterLobby, sess.user)

	fmt.Printf("Connected to %s as %s\n", *addr, *email)
	fmt.Println("Type messages and press Enter to send. Commands: /create NAME [PASSWORD], /join ROOM [PASSWORD],")
	fmt.Println("/invite NICKNAME, /accept ROOM, /leave, /lobby. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn, sess)
	}()

	writeLoop(ctx, sess, send)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func readLoop(ctx context.Context, conn *websocket.Conn, sess *session) {
	for {
		var out frame
		if err := wsjson.Read(ctx, conn, &out); err != nil {
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

		if out.Error != nil {
			fmt.Printf("! %s: %s\n", out.Error.Code, out.Error.Msg)
			continue
		}

		switch out.Event {
		case proto.EventNewMessage:
			var evt proto.NewMessage
			if err := json.Unmarshal(out.Data, &evt); err != nil {
				log.Printf("unmarshal message: %v", err)
				continue
			}
			if evt.Message.SenderEmail == "" {
				fmt.Printf("[%s] * %s\n", evt.RoomName, evt.Message.Content)
				continue
			}
			fmt.Printf("[%s] %s: %s\n", evt.RoomName, evt.Message.User, describe(evt.Message))
		case proto.EventEnterLobbyResult:
			var res proto.EnterLobbyResult
			if err := json.Unmarshal(out.Data, &res); err != nil {
				log.Printf("unmarshal %s: %v", out.Event, err)
				continue
			}
			sess.setRoom(res.RoomName)
			printHistory(res.DisplayName, res.Messages)
		case proto.EventJoinRoomResult:
			var res proto.JoinRoomResult
			if err := json.Unmarshal(out.Data, &res); err != nil {
				log.Printf("unmarshal %s: %v", out.Event, err)
				continue
			}
			if !res.OK {
				fmt.Printf("join failed: %s\n", res.Msg)
				continue
			}
			sess.setRoom(res.RoomName)
			printHistory(res.DisplayName, res.Messages)
		case proto.EventCreateRoomResult:
			var res proto.Result
			if err := json.Unmarshal(out.Data, &res); err != nil {
				log.Printf("unmarshal %s: %v", out.Event, err)
				continue
			}
			fmt.Printf("%s: ok=%t %s %s\n", out.Event, res.OK, res.Msg, res.RoomName)
		case proto.EventReceiveInvitation:
			var inv proto.Invitation
			if err := json.Unmarshal(out.Data, &inv); err != nil {
				log.Printf("unmarshal %s: %v", out.Event, err)
				continue
			}
			fmt.Printf("%s invited you to %q, type /accept %s\n", inv.Inviter, inv.RoomDisplayName, inv.RoomName)
		case proto.EventLeftGroupSuccess, proto.EventGroupDeleted:
			var evt proto.RoomEvent
			if err := json.Unmarshal(out.Data, &evt); err != nil {
				log.Printf("unmarshal %s: %v", out.Event, err)
				continue
			}
			fmt.Printf("%s: %s\n", out.Event, evt.RoomName)
			if sess.room() == evt.RoomName {
				sess.setRoom(lobbyID)
			}
		case proto.EventRoomList, proto.EventMemberListUpdated:
			// noisy, not shown
		default:
			fmt.Printf("event=%s data=%s\n", out.Event, string(out.Data))
		}
	}
}

func describe(m proto.Message) string {
	switch m.Type {
	case "image", "file":
		if m.FileName != "" {
			return fmt.Sprintf("<%s %s>", m.Type, m.FileName)
		}
		return "<" + m.Type + ">"
	default:
		return m.Content
	}
}

func printHistory(name string, messages []proto.Message) {
	fmt.Printf("--- %s (%d messages) ---\n", name, len(messages))
	for _, m := range messages {
		fmt.Printf("%s: %s\n", m.User, describe(m))
	}
}

func writeLoop(ctx context.Context, sess *session, send func(string, any)) {
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
			if strings.HasPrefix(text, "/") {
				runCommand(sess, text, send)
				continue
			}
			send(proto.InboundSendMessage, proto.SendMessageData{RoomName: sess.room(), Type: "text", Content: text})
		}
	}
}

func runCommand(sess *session, text string, send func(string, any)) {
	fields := strings.Fields(text)
	arg := func(i int) string {
		if i < len(fields) {
			return fields[i]
		}
		return ""
	}

	switch fields[0] {
	case "/create":
		send(proto.InboundCreateRoom, proto.CreateRoomData{RoomName: arg(1), Password: arg(2)})
	case "/join":
		user := sess.user
		send(proto.InboundJoinRoom, proto.JoinRoomData{RoomName: arg(1), Password: arg(2), User: &user})
	case "/invite":
		send(proto.InboundInviteMember, proto.InviteMemberData{RoomName: sess.room(), TargetNickname: arg(1)})
	case "/accept":
		send(proto.InboundAcceptInvite, proto.RoomData{RoomName: arg(1)})
	case "/leave":
		send(proto.InboundLeaveGroup, proto.RoomData{RoomName: sess.room()})
	case "/lobby":
		send(proto.InboundEnterLobby, sess.user)
	default:
		fmt.Printf("unknown command %s\n", fields[0])
	}
}
