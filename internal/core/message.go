package core

import (
	"time"

	"github.com/vovakirdan/groupchat-server/internal/store"
)

// Message is a chat message as delivered to clients.
type Message struct {
	ID          string
	Room        string
	User        string
	SenderEmail string
	Avatar      *string
	Type        string
	Content     string
	FileName    string
	Time        time.Time
}

func messageFromStore(m *store.Message) Message {
	return Message{
		ID:          m.ID,
		Room:        m.RoomID,
		User:        m.User,
		SenderEmail: m.SenderEmail,
		Avatar:      m.Avatar,
		Type:        string(m.Type),
		Content:     m.Content,
		FileName:    m.FileName,
		Time:        m.Time,
	}
}
