package core

import (
	"context"
	"errors"
	"strings"

	"github.com/vovakirdan/groupchat-server/internal/auth"
	"github.com/vovakirdan/groupchat-server/internal/store"
)

func (h *Hub) handleCreateRoom(ctx context.Context, c *Client, cmd *Command) {
	reply := func(ok bool, msg string, room *store.Room) {
		ev := &Event{Kind: EventCreateRoomResult, OK: ok, Msg: msg}
		if room != nil {
			ev.Room = room.ID
			ev.DisplayName = room.DisplayName
		}
		h.send(c, ev)
	}

	name := strings.TrimSpace(cmd.Room)
	if name == "" {
		reply(false, "room name must not be empty", nil)
		return
	}

	creator := c.email
	if creator == "" && h.opts.Verifier == nil {
		creator = strings.TrimSpace(cmd.Email)
	}
	if creator == "" {
		reply(false, "please log in first", nil)
		return
	}

	if _, err := h.store.FindRoomByDisplayName(ctx, name); err == nil {
		reply(false, "room name already in use", nil)
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		h.log.Error().Err(err).Str("name", name).Msg("check room name")
		reply(false, "internal error", nil)
		return
	}

	var passwordHash string
	if cmd.Password != "" {
		hash, err := auth.HashPassword(cmd.Password)
		if err != nil {
			h.log.Error().Err(err).Msg("hash room password")
			reply(false, "internal error", nil)
			return
		}
		passwordHash = hash
	}

	room := &store.Room{
		ID:              h.clock.RoomID(),
		PasswordHash:    passwordHash,
		Admin:           creator,
		Members:         []string{creator},
		MemberNicknames: map[string]string{},
		DisplayName:     name,
	}
	if err := h.store.CreateRoom(ctx, room); err != nil {
		if errors.Is(err, store.ErrRoomExists) {
			reply(false, "room name already in use", nil)
			return
		}
		h.log.Error().Err(err).Str("name", name).Msg("create room")
		reply(false, "internal error", nil)
		return
	}
	h.room(room.ID)

	h.log.Info().Str("room", room.ID).Str("name", name).Str("admin", creator).Msg("room created")
	reply(true, "room created", room)
	h.broadcastRoomList(ctx)
}

func (h *Hub) handleJoinRoom(ctx context.Context, c *Client, cmd *Command) {
	fail := func(msg string) {
		h.send(c, &Event{Kind: EventJoinRoomResult, OK: false, Msg: msg})
	}

	if err := h.bind(ctx, c, cmd); err != nil {
		h.rejectIdentity(c, err)
		fail("please log in first")
		return
	}

	room, err := h.resolveRoom(ctx, cmd.Room)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			h.log.Error().Err(err).Str("room", cmd.Room).Msg("resolve room")
		}
		fail("room does not exist")
		return
	}

	if room.ID == store.LobbyID {
		ev, err := h.enterLobby(ctx, c)
		if err != nil {
			h.log.Error().Err(err).Str("client_id", c.ID).Msg("join lobby")
			fail("internal error")
			return
		}
		ev.Kind = EventJoinRoomResult
		ev.Msg = "joined"
		h.send(c, ev)
		return
	}

	if room.HasPassword() && !room.IsMember(c.email) {
		if err := auth.ComparePassword(room.PasswordHash, cmd.Password); err != nil {
			fail("wrong password")
			return
		}
	}

	if room.AddMember(c.email) {
		if err := h.store.UpdateRoom(ctx, room); err != nil {
			h.log.Error().Err(err).Str("room", room.ID).Msg("add member")
			fail("internal error")
			return
		}
		h.postNotice(ctx, room.ID, c.nickname+" joined the group")
	}

	h.subscribe(c, room.ID)
	c.current = room.ID

	messages, err := h.history(ctx, room)
	if err != nil {
		h.log.Error().Err(err).Str("room", room.ID).Msg("load history")
	}

	h.send(c, &Event{
		Kind:        EventJoinRoomResult,
		OK:          true,
		Msg:         "joined",
		Room:        room.ID,
		DisplayName: room.DisplayName,
		Messages:    messages,
		IsAdmin:     room.Admin == c.email,
	})
	h.broadcastRoomList(ctx)
}

func (h *Hub) handleGetRoomSettings(ctx context.Context, c *Client, cmd *Command) {
	room, err := h.store.GetRoom(ctx, cmd.Room)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			h.log.Error().Err(err).Str("room", cmd.Room).Msg("load room settings")
		}
		return
	}

	members := make([]MemberInfo, 0, len(room.Members))
	for _, email := range room.Members {
		info := MemberInfo{
			Email:         email,
			Nickname:      "Unknown",
			GroupNickname: room.MemberNicknames[email],
			IsAdmin:       room.Admin == email,
		}
		if user, err := h.store.GetUser(ctx, email); err == nil {
			info.Nickname = user.Nickname
			info.Avatar = user.Avatar
		}
		members = append(members, info)
	}

	h.send(c, &Event{
		Kind:        EventRoomSettings,
		Room:        room.ID,
		DisplayName: room.DisplayName,
		Settings: &RoomSettings{
			Room:        room.ID,
			DisplayName: room.DisplayName,
			Admin:       room.Admin,
			OnlineCount: h.onlineCount(room.ID),
			Members:     members,
		},
	})
}
