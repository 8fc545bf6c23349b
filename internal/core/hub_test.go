package core

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/vovakirdan/groupchat-server/internal/store"
	"github.com/vovakirdan/groupchat-server/internal/store/jsonfile"
)

func mustMessage(t *testing.T, ch <-chan *Event, content string) *Event {
	t.Helper()

	for range 20 {
		ev := mustEvent(t, ch, EventNewMessage)
		if ev.Message.Content == content {
			return ev
		}
	}
	t.Fatalf("message %q not received", content)
	return nil
}

func TestBootstrapCreatesLobby(t *testing.T) {
	_, st := newTestHub(t, Options{LobbyName: "Town Square"})

	lobby, err := st.GetRoom(context.Background(), store.LobbyID)
	if err != nil {
		t.Fatalf("lobby missing: %v", err)
	}
	if lobby.Admin != store.LobbyAdmin || lobby.DisplayName != "Town Square" || lobby.HasPassword() {
		t.Fatalf("unexpected lobby: %+v", lobby)
	}
}

func TestNewClientReceivesRoomList(t *testing.T) {
	hub, st := newTestHub(t, Options{})

	alice := connectUser(t, hub, st, "a@x", "alice")
	createAndJoin(t, alice, "a@x", "friends", "")

	bob := NewClient("b")
	hub.RegisterClient(bob)

	ev := mustEvent(t, bob.Events, EventRoomList)
	if len(ev.Rooms) != 1 {
		t.Fatalf("expected only the created room (lobby excluded), got %+v", ev.Rooms)
	}
	r := ev.Rooms[0]
	if r.DisplayName != "friends" || !strings.HasPrefix(r.ID, "room_") || r.MemberCount != 1 || r.OnlineCount != 1 || r.HasPassword {
		t.Fatalf("unexpected summary: %+v", r)
	}
}

func TestEnterLobbyUsesStoredNickname(t *testing.T) {
	hub, st := newTestHub(t, Options{})
	ctx := context.Background()

	alice := connectUser(t, hub, st, "a@x", "alice")
	alice.Commands <- &Command{Kind: CommandSendMessage, Room: store.LobbyID, Content: "hello"}
	if ev := mustMessage(t, alice.Events, "hello"); ev.Message.User != "alice" {
		t.Fatalf("unexpected author: %+v", ev.Message)
	}

	u, _ := st.GetUser(ctx, "a@x")
	u.Nickname = "alicia"
	if err := st.UpdateUser(ctx, u); err != nil {
		t.Fatalf("update user: %v", err)
	}

	c := NewClient("late")
	hub.RegisterClient(c)
	c.Commands <- &Command{Kind: CommandEnterLobby, Email: "a@x", Nickname: "impostor"}
	ev := mustEvent(t, c.Events, EventEnterLobbyResult)
	if ev.Room != store.LobbyID || ev.DisplayName != "Public Lobby" {
		t.Fatalf("unexpected lobby result: %+v", ev)
	}
	if len(ev.Messages) != 1 || ev.Messages[0].User != "alicia" {
		t.Fatalf("lobby history should use the current nickname: %+v", ev.Messages)
	}

	c.Commands <- &Command{Kind: CommandSendMessage, Room: store.LobbyID, Content: "again"}
	if ev := mustMessage(t, c.Events, "again"); ev.Message.User != "alicia" {
		t.Fatalf("stored nickname must win over the claimed one: %+v", ev.Message)
	}
}

func TestEnterLobbyWithoutEmailIsIgnored(t *testing.T) {
	hub, _ := newTestHub(t, Options{})

	c := NewClient("anon")
	hub.RegisterClient(c)
	c.Commands <- &Command{Kind: CommandEnterLobby}
	expectNoEvent(t, c.Events, EventEnterLobbyResult, 200*time.Millisecond)
}

func TestCreateRoomRejectsDuplicateNames(t *testing.T) {
	hub, st := newTestHub(t, Options{})

	alice := connectUser(t, hub, st, "a@x", "alice")

	alice.Commands <- &Command{Kind: CommandCreateRoom, Room: "  friends  "}
	first := mustEvent(t, alice.Events, EventCreateRoomResult)
	if !first.OK || first.DisplayName != "friends" || !strings.HasPrefix(first.Room, "room_") {
		t.Fatalf("unexpected create result: %+v", first)
	}

	for _, name := range []string{"friends", "   ", "Public Lobby"} {
		alice.Commands <- &Command{Kind: CommandCreateRoom, Room: name}
		if ev := mustEvent(t, alice.Events, EventCreateRoomResult); ev.OK {
			t.Fatalf("create %q should fail, got %+v", name, ev)
		}
	}

	// An unbound connection may name the creator explicitly.
	anon := NewClient("anon")
	hub.RegisterClient(anon)
	anon.Commands <- &Command{Kind: CommandCreateRoom, Room: "bobs", Email: "b@x"}
	second := mustEvent(t, anon.Events, EventCreateRoomResult)
	if !second.OK || second.Room == first.Room {
		t.Fatalf("unexpected create result: %+v", second)
	}

	room, err := st.GetRoom(context.Background(), second.Room)
	if err != nil {
		t.Fatalf("get room: %v", err)
	}
	if room.Admin != "b@x" || len(room.Members) != 1 || room.Members[0] != "b@x" {
		t.Fatalf("unexpected room: %+v", room)
	}
}

func TestJoinRoomPasswordAndSingleMembership(t *testing.T) {
	hub, st := newTestHub(t, Options{})

	alice := connectUser(t, hub, st, "a@x", "alice")
	roomID := createAndJoin(t, alice, "a@x", "secret", "pw")

	bob := connectUser(t, hub, st, "b@x", "bob")

	if ev := join(t, bob, "b@x", roomID, "nope"); ev.OK || ev.Msg != "wrong password" {
		t.Fatalf("expected wrong password, got %+v", ev)
	}

	// Lookup by display name.
	ev := join(t, bob, "b@x", "secret", "pw")
	if !ev.OK || ev.Room != roomID || ev.IsAdmin {
		t.Fatalf("unexpected join result: %+v", ev)
	}
	if n := len(ev.Messages); n == 0 || ev.Messages[n-1].Type != string(store.MessageTypeSystem) {
		t.Fatalf("history should end with the join notice: %+v", ev.Messages)
	}
	mustMessage(t, alice.Events, "bob joined the group")

	// Members rejoin without the password.
	if ev := join(t, bob, "b@x", roomID, ""); !ev.OK {
		t.Fatalf("rejoin failed: %+v", ev)
	}

	room, _ := st.GetRoom(context.Background(), roomID)
	if len(room.Members) != 2 || room.Members[0] != "a@x" || room.Members[1] != "b@x" {
		t.Fatalf("membership must be recorded exactly once: %v", room.Members)
	}

	if ev := join(t, bob, "b@x", "ghost", ""); ev.OK {
		t.Fatalf("joining a missing room should fail")
	}

	anon := NewClient("anon")
	hub.RegisterClient(anon)
	anon.Commands <- &Command{Kind: CommandJoinRoom, Room: roomID}
	if ev := mustEvent(t, anon.Events, EventJoinRoomResult); ev.OK {
		t.Fatalf("join without user should fail")
	}
}

func TestJoinLobbyByName(t *testing.T) {
	hub, st := newTestHub(t, Options{})

	alice := connectUser(t, hub, st, "a@x", "alice")
	ev := join(t, alice, "a@x", "Public Lobby", "")
	if !ev.OK || ev.Room != store.LobbyID || ev.IsAdmin {
		t.Fatalf("unexpected lobby join: %+v", ev)
	}

	lobby, _ := st.GetRoom(context.Background(), store.LobbyID)
	if len(lobby.Members) != 0 {
		t.Fatalf("lobby membership must not be recorded: %v", lobby.Members)
	}
}

func TestSendMessageRequiresMembership(t *testing.T) {
	hub, st := newTestHub(t, Options{})
	ctx := context.Background()

	alice := connectUser(t, hub, st, "a@x", "alice")
	roomID := createAndJoin(t, alice, "a@x", "club", "")

	bob := connectUser(t, hub, st, "b@x", "bob")
	bob.Commands <- &Command{Kind: CommandSendMessage, Room: roomID, Content: "let me in"}
	settings(t, bob, roomID)

	if msgs, _ := st.ListMessages(ctx, roomID, 0); len(msgs) != 0 {
		t.Fatalf("non-member message was stored: %+v", msgs)
	}

	alice.Commands <- &Command{Kind: CommandUpdateMemberNickname, Room: roomID, TargetEmail: "a@x", NewNickname: "boss"}
	alice.Commands <- &Command{Kind: CommandSendMessage, Room: roomID, MessageType: "weird", Content: "hi"}
	ev := mustMessage(t, alice.Events, "hi")
	if ev.Message.User != "boss" || ev.Message.Type != "text" || ev.Message.SenderEmail != "a@x" || ev.Room != roomID {
		t.Fatalf("unexpected message: %+v", ev.Message)
	}

	alice.Commands <- &Command{Kind: CommandSendMessage, Room: roomID, MessageType: "file", Content: "data:...", FileName: "a.txt"}
	ev = mustMessage(t, alice.Events, "data:...")
	if ev.Message.Type != "file" || ev.Message.FileName != "a.txt" {
		t.Fatalf("unexpected file message: %+v", ev.Message)
	}
}

func TestDeleteMessageOwnership(t *testing.T) {
	hub, st := newTestHub(t, Options{})
	ctx := context.Background()

	alice := connectUser(t, hub, st, "a@x", "alice")
	roomID := createAndJoin(t, alice, "a@x", "club", "")
	bob := connectUser(t, hub, st, "b@x", "bob")
	join(t, bob, "b@x", roomID, "")

	alice.Commands <- &Command{Kind: CommandSendMessage, Room: roomID, Content: "from alice"}
	aliceMsg := mustMessage(t, bob.Events, "from alice").Message

	bob.Commands <- &Command{Kind: CommandDeleteMessage, Room: roomID, MessageID: aliceMsg.ID}
	settings(t, bob, roomID)
	if _, err := st.GetMessage(ctx, aliceMsg.ID); err != nil {
		t.Fatalf("a member must not delete someone else's message: %v", err)
	}

	bob.Commands <- &Command{Kind: CommandSendMessage, Room: roomID, Content: "from bob"}
	bobMsg := mustMessage(t, alice.Events, "from bob").Message

	// The admin may delete any message in the room.
	alice.Commands <- &Command{Kind: CommandDeleteMessage, Room: roomID, MessageID: bobMsg.ID}
	for _, c := range []*Client{alice, bob} {
		ev := mustEvent(t, c.Events, EventMessageDeleted)
		if ev.MessageID != bobMsg.ID || ev.Room != roomID {
			t.Fatalf("unexpected delete event: %+v", ev)
		}
	}
	if _, err := st.GetMessage(ctx, bobMsg.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected message removed from the log, got %v", err)
	}
}

func TestKickMember(t *testing.T) {
	hub, st := newTestHub(t, Options{})
	ctx := context.Background()

	alice := connectUser(t, hub, st, "a@x", "alice")
	roomID := createAndJoin(t, alice, "a@x", "club", "")
	bob := connectUser(t, hub, st, "b@x", "bob")
	join(t, bob, "b@x", roomID, "")

	// Non-admin kick and kicks of non-members or the admin are no-ops.
	bob.Commands <- &Command{Kind: CommandKickMember, Room: roomID, TargetEmail: "a@x"}
	if s := settings(t, bob, roomID); len(s.Members) != 2 {
		t.Fatalf("non-admin kick changed members: %+v", s.Members)
	}
	alice.Commands <- &Command{Kind: CommandKickMember, Room: roomID, TargetEmail: "ghost@x"}
	alice.Commands <- &Command{Kind: CommandKickMember, Room: roomID, TargetEmail: "a@x"}
	if s := settings(t, alice, roomID); len(s.Members) != 2 || s.OnlineCount != 2 {
		t.Fatalf("no-op kick changed the room: %+v", s)
	}

	alice.Commands <- &Command{Kind: CommandKickMember, Room: roomID, TargetEmail: "b@x"}
	mustEvent(t, alice.Events, EventMemberListUpdated)
	mustMessage(t, alice.Events, "bob was removed from the group")
	mustMessage(t, bob.Events, "bob was removed from the group")

	room, _ := st.GetRoom(ctx, roomID)
	if room.IsMember("b@x") {
		t.Fatalf("bob still a member: %v", room.Members)
	}

	// Bob no longer receives the room's traffic.
	alice.Commands <- &Command{Kind: CommandSendMessage, Room: roomID, Content: "after"}
	mustMessage(t, alice.Events, "after")
	expectNoEvent(t, bob.Events, EventNewMessage, 200*time.Millisecond)
}

func TestUpdateMemberNicknamePermissions(t *testing.T) {
	hub, st := newTestHub(t, Options{})
	ctx := context.Background()

	alice := connectUser(t, hub, st, "a@x", "alice")
	roomID := createAndJoin(t, alice, "a@x", "club", "")
	bob := connectUser(t, hub, st, "b@x", "bob")
	carol := connectUser(t, hub, st, "c@x", "carol")
	join(t, bob, "b@x", roomID, "")
	join(t, carol, "c@x", roomID, "")

	carol.Commands <- &Command{Kind: CommandUpdateMemberNickname, Room: roomID, TargetEmail: "b@x", NewNickname: "loser"}
	bob.Commands <- &Command{Kind: CommandUpdateMemberNickname, Room: roomID, TargetEmail: "b@x", NewNickname: "bobby"}
	mustEvent(t, bob.Events, EventMemberListUpdated)
	settings(t, carol, roomID)

	room, _ := st.GetRoom(ctx, roomID)
	if room.MemberNicknames["b@x"] != "bobby" {
		t.Fatalf("unexpected nicknames: %+v", room.MemberNicknames)
	}

	alice.Commands <- &Command{Kind: CommandUpdateMemberNickname, Room: roomID, TargetEmail: "b@x", NewNickname: ""}
	s := settings(t, alice, roomID)
	for _, m := range s.Members {
		if m.Email == "b@x" && m.GroupNickname != "" {
			t.Fatalf("empty nickname should clear the override: %+v", m)
		}
		if m.Email == "a@x" && !m.IsAdmin {
			t.Fatalf("admin flag missing: %+v", m)
		}
	}
}

func TestLeaveGroupPromotesAndDeletes(t *testing.T) {
	hub, st := newTestHub(t, Options{})
	ctx := context.Background()

	alice := connectUser(t, hub, st, "a@x", "alice")
	roomID := createAndJoin(t, alice, "a@x", "club", "")
	bob := connectUser(t, hub, st, "b@x", "bob")
	join(t, bob, "b@x", roomID, "")

	alice.Commands <- &Command{Kind: CommandLeaveGroup, Room: roomID}
	if ev := mustEvent(t, alice.Events, EventLeftGroup); ev.Room != roomID {
		t.Fatalf("unexpected left event: %+v", ev)
	}
	mustMessage(t, bob.Events, "alice left the group")

	room, _ := st.GetRoom(ctx, roomID)
	if room.Admin != "b@x" || len(room.Members) != 1 {
		t.Fatalf("expected bob promoted: %+v", room)
	}

	bob.Commands <- &Command{Kind: CommandLeaveGroup, Room: roomID}
	mustEvent(t, bob.Events, EventLeftGroup)
	if _, err := st.GetRoom(ctx, roomID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("room left by its last member should be deleted, got %v", err)
	}
	if msgs, _ := st.ListMessages(ctx, roomID, 0); len(msgs) != 0 {
		t.Fatalf("messages of deleted room survived: %d", len(msgs))
	}
}

func TestDeleteGroup(t *testing.T) {
	hub, st := newTestHub(t, Options{})
	ctx := context.Background()

	alice := connectUser(t, hub, st, "a@x", "alice")
	roomID := createAndJoin(t, alice, "a@x", "club", "")
	bob := connectUser(t, hub, st, "b@x", "bob")
	join(t, bob, "b@x", roomID, "")
	bob.Commands <- &Command{Kind: CommandSendMessage, Room: roomID, Content: "bye"}
	mustMessage(t, alice.Events, "bye")

	bob.Commands <- &Command{Kind: CommandDeleteGroup, Room: roomID}
	settings(t, bob, roomID)
	if _, err := st.GetRoom(ctx, roomID); err != nil {
		t.Fatalf("non-admin disbanded the room: %v", err)
	}

	alice.Commands <- &Command{Kind: CommandDeleteGroup, Room: roomID}
	if ev := mustEvent(t, bob.Events, EventGroupDeleted); ev.Room != roomID {
		t.Fatalf("unexpected group deleted event: %+v", ev)
	}
	mustEvent(t, alice.Events, EventGroupDeleted)

	if _, err := st.GetRoom(ctx, roomID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("room should be gone, got %v", err)
	}
	if msgs, _ := st.ListMessages(ctx, roomID, 0); len(msgs) != 0 {
		t.Fatalf("messages of disbanded room survived: %d", len(msgs))
	}
}

func TestChangeGroupName(t *testing.T) {
	hub, st := newTestHub(t, Options{})
	ctx := context.Background()

	alice := connectUser(t, hub, st, "a@x", "alice")
	one := createAndJoin(t, alice, "a@x", "one", "")
	createAndJoin(t, alice, "a@x", "two", "")
	bob := connectUser(t, hub, st, "b@x", "bob")
	join(t, bob, "b@x", one, "")

	alice.Commands <- &Command{Kind: CommandChangeGroupName, Room: one, NewName: "two"}
	bob.Commands <- &Command{Kind: CommandChangeGroupName, Room: one, NewName: "mine"}
	settings(t, alice, one)
	settings(t, bob, one)
	if room, _ := st.GetRoom(ctx, one); room.DisplayName != "one" {
		t.Fatalf("rename should have been ignored: %+v", room)
	}

	alice.Commands <- &Command{Kind: CommandChangeGroupName, Room: one, NewName: " uno "}
	ev := mustEvent(t, bob.Events, EventRoomInfoUpdated)
	if ev.NewName != "uno" || ev.Room != one {
		t.Fatalf("unexpected room info event: %+v", ev)
	}
	mustMessage(t, bob.Events, "alice changed the group name to “uno”")

	if room, _ := st.GetRoom(ctx, one); room.DisplayName != "uno" {
		t.Fatalf("rename not persisted: %+v", room)
	}
}

func TestInviteFlow(t *testing.T) {
	hub, st := newTestHub(t, Options{})
	ctx := context.Background()

	alice := connectUser(t, hub, st, "a@x", "alice")
	roomID := createAndJoin(t, alice, "a@x", "club", "")
	carol := connectUser(t, hub, st, "c@x", "carol")
	bob := connectUser(t, hub, st, "b@x", "bob")
	if err := st.CreateUser(ctx, &store.User{Email: "d@x", Nickname: "dave"}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	// Accepting without an invitation does nothing.
	carol.Commands <- &Command{Kind: CommandAcceptInvite, Room: roomID}
	if s := settings(t, carol, roomID); len(s.Members) != 1 {
		t.Fatalf("accept without invitation added a member: %+v", s.Members)
	}

	invite := func(c *Client, nickname string) *Event {
		c.Commands <- &Command{Kind: CommandInviteMember, Room: roomID, TargetNickname: nickname}
		return mustEvent(t, c.Events, EventInviteResult)
	}

	if ev := invite(alice, "dave"); ev.OK || !strings.Contains(ev.Msg, "not online") {
		t.Fatalf("expected offline failure, got %+v", ev)
	}
	if ev := invite(alice, "nobody"); ev.OK {
		t.Fatalf("expected unknown nickname failure")
	}
	if ev := invite(bob, "carol"); ev.OK {
		t.Fatalf("non-members must not invite")
	}

	if ev := invite(alice, "carol"); !ev.OK {
		t.Fatalf("invite failed: %+v", ev)
	}
	inv := mustEvent(t, carol.Events, EventInvitation)
	if inv.Room != roomID || inv.DisplayName != "club" || inv.Inviter != "alice" {
		t.Fatalf("unexpected invitation: %+v", inv)
	}

	carol.Commands <- &Command{Kind: CommandAcceptInvite, Room: roomID}
	if ev := mustEvent(t, carol.Events, EventInviteAccepted); ev.Room != roomID {
		t.Fatalf("unexpected accept event: %+v", ev)
	}
	mustMessage(t, alice.Events, "carol joined the group")

	room, _ := st.GetRoom(ctx, roomID)
	if !room.IsMember("c@x") {
		t.Fatalf("carol not added: %v", room.Members)
	}
	if ev := invite(alice, "carol"); ev.OK {
		t.Fatalf("inviting a member should fail")
	}
}

func TestLobbyIgnoresMemberManagement(t *testing.T) {
	hub, st := newTestHub(t, Options{})

	alice := connectUser(t, hub, st, "a@x", "alice")
	alice.Commands <- &Command{Kind: CommandLeaveGroup, Room: store.LobbyID}
	alice.Commands <- &Command{Kind: CommandInviteMember, Room: store.LobbyID, TargetNickname: "alice"}

	if ev := mustEvent(t, alice.Events, EventInviteResult); ev.OK {
		t.Fatalf("lobby invitations must fail")
	}
	expectNoEvent(t, alice.Events, EventLeftGroup, 100*time.Millisecond)
}

type tokenVerifier struct{}

func (tokenVerifier) VerifyIdentity(token, email string) error {
	if token == "good:"+email {
		return nil
	}
	return errors.New("bad token")
}

func TestIdentityVerifier(t *testing.T) {
	hub, _ := newTestHub(t, Options{Verifier: tokenVerifier{}})

	c := NewClient("c")
	hub.RegisterClient(c)

	c.Commands <- &Command{Kind: CommandEnterLobby, Email: "a@x", Token: "forged"}
	ev := mustEvent(t, c.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeUnauthorized {
		t.Fatalf("expected unauthorized error, got %+v", ev)
	}

	c.Commands <- &Command{Kind: CommandCreateRoom, Room: "x", Email: "a@x"}
	if ev := mustEvent(t, c.Events, EventCreateRoomResult); ev.OK {
		t.Fatalf("unverified creator accepted")
	}

	c.Commands <- &Command{Kind: CommandEnterLobby, Email: "a@x", Token: "good:a@x"}
	mustEvent(t, c.Events, EventEnterLobbyResult)
}

func TestDisconnectUpdatesOnlineCount(t *testing.T) {
	hub, st := newTestHub(t, Options{})

	alice := connectUser(t, hub, st, "a@x", "alice")
	createAndJoin(t, alice, "a@x", "club", "")

	bob := NewClient("b")
	hub.RegisterClient(bob)
	if ev := mustEvent(t, bob.Events, EventRoomList); ev.Rooms[0].OnlineCount != 1 {
		t.Fatalf("expected alice online: %+v", ev.Rooms)
	}

	hub.UnregisterClient(alice)
	for range 10 {
		ev := mustEvent(t, bob.Events, EventRoomList)
		if ev.Rooms[0].OnlineCount == 0 {
			return
		}
	}
	t.Fatalf("online count not updated after disconnect")
}

func TestHistoryIsCappedToMostRecent(t *testing.T) {
	hub, st := newTestHub(t, Options{HistoryLimit: 3})
	alice := connectUser(t, hub, st, "alice@x", "Alice")

	for i := range 5 {
		alice.Commands <- &Command{Kind: CommandSendMessage, Room: store.LobbyID, Content: "lobby-" + strconv.Itoa(i)}
	}
	settings(t, alice, store.LobbyID)

	if err := st.CreateUser(context.Background(), &store.User{Email: "bob@x", PasswordHash: "x", Nickname: "Bob"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	bob := NewClient("bob-conn")
	hub.RegisterClient(bob)
	mustEvent(t, bob.Events, EventRoomList)
	bob.Commands <- &Command{Kind: CommandEnterLobby, Email: "bob@x", Nickname: "Bob"}
	lobby := mustEvent(t, bob.Events, EventEnterLobbyResult)
	assertContents(t, lobby.Messages, "lobby-2", "lobby-3", "lobby-4")

	room := createAndJoin(t, alice, "alice@x", "Team", "")
	for i := range 5 {
		alice.Commands <- &Command{Kind: CommandSendMessage, Room: room, Content: "room-" + strconv.Itoa(i)}
	}
	settings(t, alice, room)

	rejoined := join(t, alice, "alice@x", room, "")
	assertContents(t, rejoined.Messages, "room-2", "room-3", "room-4")
}

func assertContents(t *testing.T, msgs []Message, want ...string) {
	t.Helper()

	if len(msgs) != len(want) {
		t.Fatalf("expected %d messages, got %d: %+v", len(want), len(msgs), msgs)
	}
	for i, m := range msgs {
		if m.Content != want[i] {
			t.Fatalf("message %d: expected %q, got %q", i, want[i], m.Content)
		}
	}
}

func TestDoneClosesWhenRunReturns(t *testing.T) {
	hub := NewHub(jsonfile.NewMemory(), Options{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	select {
	case <-hub.Done():
		t.Fatalf("done closed while running")
	default:
	}

	cancel()
	select {
	case <-hub.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("done not closed after cancel")
	}
}
