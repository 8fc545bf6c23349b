package core

import (
	"context"
	"errors"
	"strings"

	"github.com/vovakirdan/groupchat-server/internal/store"
)

func (h *Hub) handleInviteMember(ctx context.Context, c *Client, cmd *Command) {
	reply := func(ok bool, msg string) {
		h.send(c, &Event{Kind: EventInviteResult, Room: cmd.Room, OK: ok, Msg: msg})
	}

	if !c.bound() {
		reply(false, "session expired, please reload the page")
		return
	}
	room := h.managedRoom(ctx, cmd.Room)
	if room == nil {
		reply(false, "group does not exist")
		return
	}
	if !room.IsMember(c.email) {
		reply(false, "you are not a member of this group")
		return
	}

	nickname := strings.TrimSpace(cmd.TargetNickname)
	target, err := h.store.FindUserByNickname(ctx, nickname)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			h.log.Error().Err(err).Str("nickname", nickname).Msg("find invitee")
		}
		reply(false, "no user with nickname “"+nickname+"”")
		return
	}
	if room.IsMember(target.Email) {
		reply(false, "user is already in the group")
		return
	}

	conns := h.clientsByEmail(target.Email)
	if len(conns) == 0 {
		reply(false, "invitation failed: "+nickname+" is not online")
		return
	}

	pending, ok := h.invites[target.Email]
	if !ok {
		pending = make(map[string]struct{})
		h.invites[target.Email] = pending
	}
	pending[room.ID] = struct{}{}

	ev := &Event{
		Kind:        EventInvitation,
		Room:        room.ID,
		DisplayName: room.DisplayName,
		Inviter:     h.nicknameOf(ctx, c.email),
	}
	for _, tc := range conns {
		h.send(tc, ev)
	}

	h.log.Info().Str("room", room.ID).Str("inviter", c.email).Str("invitee", target.Email).Msg("invitation sent")
	reply(true, "invitation sent to "+nickname)
}

func (h *Hub) handleAcceptInvite(ctx context.Context, c *Client, cmd *Command) {
	if !c.bound() {
		return
	}
	pending := h.invites[c.email]
	if _, ok := pending[cmd.Room]; !ok {
		h.log.Debug().Str("client_id", c.ID).Str("room", cmd.Room).Msg("accept without invitation ignored")
		return
	}
	delete(pending, cmd.Room)
	if len(pending) == 0 {
		delete(h.invites, c.email)
	}

	room := h.managedRoom(ctx, cmd.Room)
	if room == nil {
		return
	}
	if room.AddMember(c.email) {
		if err := h.store.UpdateRoom(ctx, room); err != nil {
			h.log.Error().Err(err).Str("room", room.ID).Msg("accept invitation")
			return
		}
		h.postNotice(ctx, room.ID, h.nicknameOf(ctx, c.email)+" joined the group")
	}

	h.send(c, &Event{Kind: EventInviteAccepted, Room: room.ID})
	h.broadcastRoomList(ctx)
}
