package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/groupchat-server/internal/metrics"
	"github.com/vovakirdan/groupchat-server/internal/store"
	"github.com/vovakirdan/groupchat-server/internal/utils"
)

const (
	defaultHistoryLimit = 100
	defaultLobbyName    = "Public Lobby"
)

// IdentityVerifier checks that a token was issued for email.
type IdentityVerifier interface {
	VerifyIdentity(token, email string) error
}

// Options tune hub behavior.
type Options struct {
	// HistoryLimit caps the messages returned on join. Zero means the default.
	HistoryLimit int
	// LobbyName is the display name given to the lobby when it is first created.
	LobbyName string
	// Verifier, when set, is required to accept the token of every claimed identity.
	Verifier IdentityVerifier
}

type clientCommand struct {
	client *Client
	cmd    *Command
}

// Hub owns presence, connection identity and pending invitations, and
// serializes every real-time operation on rooms, memberships and messages.
type Hub struct {
	store store.Store
	opts  Options
	log   *zerolog.Logger
	clock *utils.Clock

	register   chan *Client
	unregister chan *Client
	inbox      chan clientCommand
	stopped    chan struct{}

	clients  map[*Client]struct{}
	presence map[string]*Room
	invites  map[string]map[string]struct{} // email -> room ids
}

// NewHub creates a new chat hub instance.
func NewHub(st store.Store, opts Options, logger *zerolog.Logger) *Hub {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = defaultHistoryLimit
	}
	if strings.TrimSpace(opts.LobbyName) == "" {
		opts.LobbyName = defaultLobbyName
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Hub{
		store:      st,
		opts:       opts,
		log:        logger,
		clock:      utils.NewClock(),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		inbox:      make(chan clientCommand, 256),
		stopped:    make(chan struct{}),
		clients:    make(map[*Client]struct{}),
		presence:   make(map[string]*Room),
		invites:    make(map[string]map[string]struct{}),
	}
}

// Bootstrap makes sure the lobby exists and creates an empty presence set for every stored room.
// It must be called before Run.
func (h *Hub) Bootstrap(ctx context.Context) error {
	_, err := h.store.GetRoom(ctx, store.LobbyID)
	if errors.Is(err, store.ErrNotFound) {
		lobby := &store.Room{
			ID:              store.LobbyID,
			Admin:           store.LobbyAdmin,
			Members:         []string{},
			MemberNicknames: map[string]string{},
			DisplayName:     h.opts.LobbyName,
		}
		if err := h.store.CreateRoom(ctx, lobby); err != nil {
			return fmt.Errorf("create lobby: %w", err)
		}
		h.log.Info().Str("room", store.LobbyID).Msg("lobby created")
	} else if err != nil {
		return fmt.Errorf("load lobby: %w", err)
	}

	rooms, err := h.store.ListRooms(ctx)
	if err != nil {
		return fmt.Errorf("list rooms: %w", err)
	}
	for _, room := range rooms {
		h.room(room.ID)
	}
	h.log.Info().Int("rooms", len(rooms)).Msg("rooms loaded")
	return nil
}

// RegisterClient attaches a client to the hub. The client receives the room list right away.
func (h *Hub) RegisterClient(c *Client) {
	select {
	case h.register <- c:
	case <-h.stopped:
	}
}

// UnregisterClient detaches a client. Its Events channel is closed by the hub.
func (h *Hub) UnregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.stopped:
	}
}

// Done is closed once Run has returned; no store call is in flight after that.
func (h *Hub) Done() <-chan struct{} {
	return h.stopped
}

// Run processes hub events until the context is canceled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)

	for {
		select {
		case c := <-h.register:
			h.addClient(ctx, c)
		case c := <-h.unregister:
			h.removeClient(ctx, c)
		case in := <-h.inbox:
			if _, ok := h.clients[in.client]; !ok {
				continue
			}
			h.dispatch(ctx, in.client, in.cmd)
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) addClient(ctx context.Context, c *Client) {
	if _, exists := h.clients[c]; exists {
		return
	}
	h.clients[c] = struct{}{}
	metrics.SetWSActiveConnections(len(h.clients))
	go h.forward(ctx, c)

	rooms, err := h.roomList(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("build room list")
		return
	}
	h.send(c, &Event{Kind: EventRoomList, Rooms: rooms})
}

func (h *Hub) removeClient(ctx context.Context, c *Client) {
	if _, exists := h.clients[c]; !exists {
		return
	}
	delete(h.clients, c)
	metrics.SetWSActiveConnections(len(h.clients))

	for roomID := range c.rooms {
		if r, ok := h.presence[roomID]; ok {
			r.RemoveClient(c)
		}
	}
	if c.bound() && len(h.clientsByEmail(c.email)) == 0 {
		delete(h.invites, c.email)
	}

	close(c.done)
	close(c.Events)

	h.log.Debug().Str("client_id", c.ID).Str("email", c.email).Msg("client unregistered")
	h.broadcastRoomList(ctx)
}

// forward moves commands from one client into the hub inbox.
func (h *Hub) forward(ctx context.Context, c *Client) {
	for {
		select {
		case cmd := <-c.Commands:
			if cmd == nil {
				continue
			}
			select {
			case h.inbox <- clientCommand{client: c, cmd: cmd}:
			case <-c.done:
				return
			case <-ctx.Done():
				return
			}
		case <-c.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) dispatch(ctx context.Context, c *Client, cmd *Command) {
	start := time.Now()
	defer func() {
		metrics.ObserveCommand(cmd.Kind.String(), time.Since(start))
	}()

	switch cmd.Kind {
	case CommandEnterLobby:
		h.handleEnterLobby(ctx, c, cmd)
	case CommandCreateRoom:
		h.handleCreateRoom(ctx, c, cmd)
	case CommandJoinRoom:
		h.handleJoinRoom(ctx, c, cmd)
	case CommandGetRoomSettings:
		h.handleGetRoomSettings(ctx, c, cmd)
	case CommandSendMessage:
		h.handleSendMessage(ctx, c, cmd)
	case CommandDeleteMessage:
		h.handleDeleteMessage(ctx, c, cmd)
	case CommandKickMember:
		h.handleKickMember(ctx, c, cmd)
	case CommandUpdateMemberNickname:
		h.handleUpdateMemberNickname(ctx, c, cmd)
	case CommandLeaveGroup:
		h.handleLeaveGroup(ctx, c, cmd)
	case CommandDeleteGroup:
		h.handleDeleteGroup(ctx, c, cmd)
	case CommandChangeGroupName:
		h.handleChangeGroupName(ctx, c, cmd)
	case CommandInviteMember:
		h.handleInviteMember(ctx, c, cmd)
	case CommandAcceptInvite:
		h.handleAcceptInvite(ctx, c, cmd)
	default:
		h.send(c, &Event{Kind: EventError, Error: coreError(ErrCodeBadRequest, "unknown command")})
	}
}

// ==== presence and delivery ====

func (h *Hub) room(id string) *Room {
	r, ok := h.presence[id]
	if !ok {
		r = NewRoom(id)
		h.presence[id] = r
	}
	return r
}

func (h *Hub) subscribe(c *Client, roomID string) {
	h.room(roomID).AddClient(c)
	c.rooms[roomID] = struct{}{}
}

func (h *Hub) unsubscribe(c *Client, roomID string) {
	if r, ok := h.presence[roomID]; ok {
		r.RemoveClient(c)
	}
	delete(c.rooms, roomID)
	if c.current == roomID {
		c.current = ""
	}
}

func (h *Hub) dropPresence(roomID string) {
	r, ok := h.presence[roomID]
	if !ok {
		return
	}
	for c := range r.clients {
		delete(c.rooms, roomID)
		if c.current == roomID {
			c.current = ""
		}
	}
	delete(h.presence, roomID)
}

func (h *Hub) onlineCount(roomID string) int {
	if r, ok := h.presence[roomID]; ok {
		return r.Len()
	}
	return 0
}

func (h *Hub) clientsByEmail(email string) []*Client {
	var out []*Client
	for c := range h.clients {
		if c.email == email {
			out = append(out, c)
		}
	}
	return out
}

func (h *Hub) send(c *Client, ev *Event) {
	select {
	case c.Events <- ev:
	default:
		metrics.AddEventsDropped(1)
		h.log.Warn().Str("client_id", c.ID).Int("kind", int(ev.Kind)).Msg("client buffer full, event dropped")
	}
}

func (h *Hub) broadcast(roomID string, ev *Event) {
	r, ok := h.presence[roomID]
	if !ok {
		return
	}
	if dropped := r.Broadcast(ev); dropped > 0 {
		metrics.AddEventsDropped(dropped)
		h.log.Warn().Str("room", roomID).Int("dropped", dropped).Msg("slow clients, events dropped")
	}
}

func (h *Hub) broadcastAll(ev *Event) {
	for c := range h.clients {
		h.send(c, ev)
	}
}

func (h *Hub) broadcastRoomList(ctx context.Context) {
	rooms, err := h.roomList(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("build room list")
		return
	}
	h.broadcastAll(&Event{Kind: EventRoomList, Rooms: rooms})
}

// roomList lists every room except the lobby.
func (h *Hub) roomList(ctx context.Context) ([]RoomSummary, error) {
	rooms, err := h.store.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		if r.ID == store.LobbyID {
			continue
		}
		out = append(out, RoomSummary{
			ID:          r.ID,
			DisplayName: r.DisplayName,
			HasPassword: r.HasPassword(),
			Members:     r.Members,
			MemberCount: len(r.Members),
			OnlineCount: h.onlineCount(r.ID),
		})
	}
	return out, nil
}

// ==== shared helpers ====

// bind validates and records the identity claimed by a command.
// A registered user's stored nickname wins over the claimed one.
func (h *Hub) bind(ctx context.Context, c *Client, cmd *Command) error {
	email := strings.TrimSpace(cmd.Email)
	if email == "" {
		return ErrMissingIdentity
	}
	if h.opts.Verifier != nil {
		if err := h.opts.Verifier.VerifyIdentity(cmd.Token, email); err != nil {
			return fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
	}

	nickname := strings.TrimSpace(cmd.Nickname)
	user, err := h.store.GetUser(ctx, email)
	switch {
	case err == nil:
		nickname = user.Nickname
	case !errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("load user: %w", err)
	}
	if nickname == "" {
		nickname = email
	}

	if c.bound() && c.email != email {
		h.log.Info().Str("client_id", c.ID).Str("from", c.email).Str("to", email).Msg("connection identity changed")
	}
	c.email = email
	c.nickname = nickname
	return nil
}

// nicknameOf returns the current global nickname of email.
func (h *Hub) nicknameOf(ctx context.Context, email string) string {
	user, err := h.store.GetUser(ctx, email)
	if err != nil {
		return email
	}
	return user.Nickname
}

// managedRoom loads a room that member-management operations may act on.
// Missing rooms and the lobby yield nil.
func (h *Hub) managedRoom(ctx context.Context, id string) *store.Room {
	if id == "" || id == store.LobbyID {
		return nil
	}
	room, err := h.store.GetRoom(ctx, id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			h.log.Error().Err(err).Str("room", id).Msg("load room")
		}
		return nil
	}
	return room
}

// resolveRoom finds a room by id, then by display name.
func (h *Hub) resolveRoom(ctx context.Context, ref string) (*store.Room, error) {
	if ref == "" {
		return nil, store.ErrNotFound
	}
	room, err := h.store.GetRoom(ctx, ref)
	if err == nil || !errors.Is(err, store.ErrNotFound) {
		return room, err
	}
	return h.store.FindRoomByDisplayName(ctx, ref)
}

// postNotice appends a system message and delivers it to the room's subscribers.
func (h *Hub) postNotice(ctx context.Context, roomID, text string) {
	msg := &store.Message{
		ID:      h.clock.MessageID(),
		RoomID:  roomID,
		Type:    store.MessageTypeSystem,
		Content: text,
		Time:    time.Now(),
	}
	if err := h.store.AppendMessage(ctx, msg); err != nil {
		h.log.Error().Err(err).Str("room", roomID).Msg("append system notice")
		return
	}
	metrics.IncMessagesStored(string(msg.Type))
	h.broadcast(roomID, &Event{Kind: EventNewMessage, Room: roomID, Message: messageFromStore(msg)})
}

// history returns the recent messages of a room with authors shown by group nickname.
func (h *Hub) history(ctx context.Context, room *store.Room) ([]Message, error) {
	stored, err := h.store.ListMessages(ctx, room.ID, h.opts.HistoryLimit)
	if err != nil {
		return nil, err
	}
	out := make([]Message, 0, len(stored))
	for _, m := range stored {
		msg := messageFromStore(m)
		if m.SenderEmail != "" {
			msg.User = room.NicknameFor(m.SenderEmail, msg.User)
		}
		out = append(out, msg)
	}
	return out, nil
}

// lobbyHistory returns the recent lobby messages with authors shown by current global nickname.
func (h *Hub) lobbyHistory(ctx context.Context) ([]Message, error) {
	stored, err := h.store.ListMessages(ctx, store.LobbyID, h.opts.HistoryLimit)
	if err != nil {
		return nil, err
	}
	nicknames := make(map[string]string)
	out := make([]Message, 0, len(stored))
	for _, m := range stored {
		msg := messageFromStore(m)
		if m.SenderEmail != "" {
			nick, ok := nicknames[m.SenderEmail]
			if !ok {
				nick = msg.User
				if user, err := h.store.GetUser(ctx, m.SenderEmail); err == nil {
					nick = user.Nickname
				}
				nicknames[m.SenderEmail] = nick
			}
			msg.User = nick
		}
		out = append(out, msg)
	}
	return out, nil
}
