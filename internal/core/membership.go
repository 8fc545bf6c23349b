package core

import (
	"context"
	"errors"
	"strings"

	"github.com/vovakirdan/groupchat-server/internal/store"
)

// Admin-only operations invoked by anyone else are dropped without a reply.

func (h *Hub) handleKickMember(ctx context.Context, c *Client, cmd *Command) {
	room := h.managedRoom(ctx, cmd.Room)
	if room == nil {
		return
	}
	if !c.bound() || room.Admin != c.email {
		h.log.Debug().Str("client_id", c.ID).Str("room", room.ID).Msg("kick by non-admin ignored")
		return
	}
	target := cmd.TargetEmail
	if target == room.Admin || !room.RemoveMember(target) {
		return
	}
	if err := h.store.UpdateRoom(ctx, room); err != nil {
		h.log.Error().Err(err).Str("room", room.ID).Msg("kick member")
		return
	}

	h.postNotice(ctx, room.ID, h.nicknameOf(ctx, target)+" was removed from the group")
	h.broadcast(room.ID, &Event{Kind: EventMemberListUpdated, Room: room.ID})
	for _, tc := range h.clientsByEmail(target) {
		h.unsubscribe(tc, room.ID)
	}

	h.log.Info().Str("room", room.ID).Str("target", target).Msg("member kicked")
	h.broadcastRoomList(ctx)
}

func (h *Hub) handleUpdateMemberNickname(ctx context.Context, c *Client, cmd *Command) {
	room := h.managedRoom(ctx, cmd.Room)
	if room == nil {
		return
	}
	target := cmd.TargetEmail
	if !c.bound() || (c.email != room.Admin && c.email != target) {
		h.log.Debug().Str("client_id", c.ID).Str("room", room.ID).Msg("nickname change not allowed")
		return
	}
	if !room.IsMember(target) {
		return
	}

	if nick := strings.TrimSpace(cmd.NewNickname); nick == "" {
		delete(room.MemberNicknames, target)
	} else {
		room.MemberNicknames[target] = nick
	}
	if err := h.store.UpdateRoom(ctx, room); err != nil {
		h.log.Error().Err(err).Str("room", room.ID).Msg("update member nickname")
		return
	}
	h.broadcast(room.ID, &Event{Kind: EventMemberListUpdated, Room: room.ID})
}

func (h *Hub) handleLeaveGroup(ctx context.Context, c *Client, cmd *Command) {
	room := h.managedRoom(ctx, cmd.Room)
	if room == nil || !c.bound() {
		return
	}
	nick := room.NicknameFor(c.email, h.nicknameOf(ctx, c.email))
	if !room.RemoveMember(c.email) {
		return
	}

	deleted := false
	if room.Admin == c.email {
		if len(room.Members) > 0 {
			room.Admin = room.Members[0]
		} else {
			deleted = true
		}
	}

	for _, cl := range h.clientsByEmail(c.email) {
		h.unsubscribe(cl, room.ID)
	}

	if deleted {
		if err := h.store.DeleteRoom(ctx, room.ID); err != nil {
			h.log.Error().Err(err).Str("room", room.ID).Msg("delete abandoned room")
			return
		}
		h.broadcast(room.ID, &Event{Kind: EventGroupDeleted, Room: room.ID})
		h.forgetRoom(room.ID)
		h.log.Info().Str("room", room.ID).Msg("last member left, room deleted")
	} else {
		if err := h.store.UpdateRoom(ctx, room); err != nil {
			h.log.Error().Err(err).Str("room", room.ID).Msg("leave room")
			return
		}
		h.postNotice(ctx, room.ID, nick+" left the group")
	}

	h.send(c, &Event{Kind: EventLeftGroup, Room: room.ID})
	h.broadcastRoomList(ctx)
}

func (h *Hub) handleDeleteGroup(ctx context.Context, c *Client, cmd *Command) {
	room := h.managedRoom(ctx, cmd.Room)
	if room == nil {
		return
	}
	if !c.bound() || room.Admin != c.email {
		h.log.Debug().Str("client_id", c.ID).Str("room", room.ID).Msg("delete by non-admin ignored")
		return
	}

	if err := h.store.DeleteRoom(ctx, room.ID); err != nil {
		h.log.Error().Err(err).Str("room", room.ID).Msg("delete room")
		return
	}
	h.broadcast(room.ID, &Event{Kind: EventGroupDeleted, Room: room.ID})
	h.forgetRoom(room.ID)

	h.log.Info().Str("room", room.ID).Msg("room deleted")
	h.broadcastRoomList(ctx)
}

func (h *Hub) handleChangeGroupName(ctx context.Context, c *Client, cmd *Command) {
	room := h.managedRoom(ctx, cmd.Room)
	if room == nil {
		return
	}
	if !c.bound() || room.Admin != c.email {
		h.log.Debug().Str("client_id", c.ID).Str("room", room.ID).Msg("rename by non-admin ignored")
		return
	}
	name := strings.TrimSpace(cmd.NewName)
	if name == "" {
		return
	}
	other, err := h.store.FindRoomByDisplayName(ctx, name)
	switch {
	case err == nil && other.ID != room.ID:
		h.log.Debug().Str("room", room.ID).Str("name", name).Msg("rename to taken name ignored")
		return
	case err != nil && !errors.Is(err, store.ErrNotFound):
		h.log.Error().Err(err).Str("name", name).Msg("check room name")
		return
	}

	room.DisplayName = name
	if err := h.store.UpdateRoom(ctx, room); err != nil {
		h.log.Error().Err(err).Str("room", room.ID).Msg("rename room")
		return
	}

	actor := room.NicknameFor(c.email, h.nicknameOf(ctx, c.email))
	h.postNotice(ctx, room.ID, actor+" changed the group name to “"+name+"”")
	h.broadcast(room.ID, &Event{Kind: EventRoomInfoUpdated, Room: room.ID, NewName: name})
	h.broadcastRoomList(ctx)
}

// forgetRoom drops presence and pending invitations of a deleted room.
func (h *Hub) forgetRoom(roomID string) {
	h.dropPresence(roomID)
	for email, rooms := range h.invites {
		delete(rooms, roomID)
		if len(rooms) == 0 {
			delete(h.invites, email)
		}
	}
}
