package core

import (
	"context"
	"errors"
	"time"

	"github.com/vovakirdan/groupchat-server/internal/metrics"
	"github.com/vovakirdan/groupchat-server/internal/store"
)

func (h *Hub) handleSendMessage(ctx context.Context, c *Client, cmd *Command) {
	if !c.bound() {
		h.log.Debug().Str("client_id", c.ID).Msg("message from unbound connection ignored")
		return
	}
	room, err := h.store.GetRoom(ctx, cmd.Room)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			h.log.Error().Err(err).Str("room", cmd.Room).Msg("load room")
		}
		return
	}
	if room.ID != store.LobbyID && !room.IsMember(c.email) {
		h.log.Debug().Str("client_id", c.ID).Str("room", room.ID).Msg("message from non-member ignored")
		return
	}

	nickname := c.nickname
	var avatar *string
	if user, err := h.store.GetUser(ctx, c.email); err == nil {
		nickname = user.Nickname
		avatar = user.Avatar
	}

	msg := &store.Message{
		ID:          h.clock.MessageID(),
		RoomID:      room.ID,
		User:        room.NicknameFor(c.email, nickname),
		SenderEmail: c.email,
		Avatar:      avatar,
		Type:        store.ParseMessageType(cmd.MessageType),
		Content:     cmd.Content,
		FileName:    cmd.FileName,
		Time:        time.Now(),
	}
	if err := h.store.AppendMessage(ctx, msg); err != nil {
		h.log.Error().Err(err).Str("room", room.ID).Msg("append message")
		return
	}
	metrics.IncMessagesStored(string(msg.Type))

	h.broadcast(room.ID, &Event{Kind: EventNewMessage, Room: room.ID, Message: messageFromStore(msg)})
}

func (h *Hub) handleDeleteMessage(ctx context.Context, c *Client, cmd *Command) {
	if !c.bound() || cmd.MessageID == "" {
		return
	}
	msg, err := h.store.GetMessage(ctx, cmd.MessageID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			h.log.Error().Err(err).Str("message_id", cmd.MessageID).Msg("load message")
		}
		return
	}

	allowed := msg.SenderEmail == c.email
	if !allowed {
		if room, err := h.store.GetRoom(ctx, msg.RoomID); err == nil && room.Admin == c.email {
			allowed = true
		}
	}
	if !allowed {
		h.log.Debug().Str("client_id", c.ID).Str("message_id", msg.ID).Msg("delete of foreign message ignored")
		return
	}

	deleted, err := h.store.DeleteMessage(ctx, msg.ID)
	if err != nil {
		h.log.Error().Err(err).Str("message_id", msg.ID).Msg("delete message")
		return
	}
	if !deleted {
		return
	}
	h.broadcast(msg.RoomID, &Event{Kind: EventMessageDeleted, Room: msg.RoomID, MessageID: msg.ID})
}
