package core

import (
	"context"
	"testing"
	"time"

	"github.com/vovakirdan/groupchat-server/internal/store"
	"github.com/vovakirdan/groupchat-server/internal/store/jsonfile"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// expectNoEvent drains ch for wait and fails if an event of kind shows up.
func expectNoEvent(t *testing.T, ch <-chan *Event, kind EventKind, wait time.Duration) {
	t.Helper()

	timer := time.NewTimer(wait)
	defer timer.Stop()
	for {
		select {
		case ev := <-ch:
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected event kind %v: %+v", kind, ev)
			}
		case <-timer.C:
			return
		}
	}
}

func newTestHub(t *testing.T, opts Options) (*Hub, store.Store) {
	t.Helper()

	st := jsonfile.NewMemory()
	hub := NewHub(st, opts, nil)
	if err := hub.Bootstrap(context.Background()); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		_ = st.Close()
	})
	return hub, st
}

// connectUser registers a user in the store, connects a client and enters the lobby.
func connectUser(t *testing.T, hub *Hub, st store.Store, email, nickname string) *Client {
	t.Helper()

	ctx := context.Background()
	if _, err := st.GetUser(ctx, email); err != nil {
		if err := st.CreateUser(ctx, &store.User{Email: email, PasswordHash: "x", Nickname: nickname}); err != nil {
			t.Fatalf("create user: %v", err)
		}
	}

	c := NewClient(email + "-conn")
	hub.RegisterClient(c)
	mustEvent(t, c.Events, EventRoomList)

	c.Commands <- &Command{Kind: CommandEnterLobby, Email: email, Nickname: nickname}
	mustEvent(t, c.Events, EventEnterLobbyResult)
	return c
}

// createAndJoin creates a room as c and subscribes c to it. Returns the room id.
func createAndJoin(t *testing.T, c *Client, email, name, password string) string {
	t.Helper()

	c.Commands <- &Command{Kind: CommandCreateRoom, Room: name, Password: password}
	res := mustEvent(t, c.Events, EventCreateRoomResult)
	if !res.OK {
		t.Fatalf("create room %q failed: %s", name, res.Msg)
	}

	if ev := join(t, c, email, res.Room, password); !ev.OK {
		t.Fatalf("join own room failed: %s", ev.Msg)
	}
	return res.Room
}

func join(t *testing.T, c *Client, email, room, password string) *Event {
	t.Helper()

	c.Commands <- &Command{Kind: CommandJoinRoom, Room: room, Password: password, Email: email}
	return mustEvent(t, c.Events, EventJoinRoomResult)
}

// settings round-trips a getRoomSettings; commands of one client are handled in order,
// so this also waits for every command c sent before.
func settings(t *testing.T, c *Client, room string) *RoomSettings {
	t.Helper()

	c.Commands <- &Command{Kind: CommandGetRoomSettings, Room: room}
	return mustEvent(t, c.Events, EventRoomSettings).Settings
}
