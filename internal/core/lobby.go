package core

import (
	"context"
	"errors"

	"github.com/vovakirdan/groupchat-server/internal/store"
)

func (h *Hub) handleEnterLobby(ctx context.Context, c *Client, cmd *Command) {
	if err := h.bind(ctx, c, cmd); err != nil {
		h.rejectIdentity(c, err)
		return
	}

	ev, err := h.enterLobby(ctx, c)
	if err != nil {
		h.log.Error().Err(err).Str("client_id", c.ID).Msg("enter lobby")
		return
	}
	ev.Kind = EventEnterLobbyResult
	h.send(c, ev)
}

// enterLobby subscribes a bound client to the lobby and builds the reply payload.
func (h *Hub) enterLobby(ctx context.Context, c *Client) (*Event, error) {
	lobby, err := h.store.GetRoom(ctx, store.LobbyID)
	if err != nil {
		return nil, err
	}
	messages, err := h.lobbyHistory(ctx)
	if err != nil {
		return nil, err
	}

	h.subscribe(c, store.LobbyID)
	c.current = store.LobbyID

	h.log.Debug().Str("client_id", c.ID).Str("email", c.email).Msg("entered lobby")
	return &Event{
		Room:        store.LobbyID,
		DisplayName: lobby.DisplayName,
		OK:          true,
		Messages:    messages,
	}, nil
}

// rejectIdentity handles a failed identity binding.
// Unverified tokens get a protocol error, everything else is ignored.
func (h *Hub) rejectIdentity(c *Client, err error) {
	h.log.Debug().Err(err).Str("client_id", c.ID).Msg("identity rejected")
	if errors.Is(err, ErrUnauthorized) {
		h.send(c, &Event{Kind: EventError, Error: coreError(ErrCodeUnauthorized, "invalid token")})
	}
}
