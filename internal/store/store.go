package store

import (
	"context"
	"errors"
	"slices"
	"time"
)

// LobbyID is the fixed id of the always-present public room.
const LobbyID = "public_lobby"

// LobbyAdmin is the admin placeholder stored on the lobby.
const LobbyAdmin = "SYSTEM"

var (
	// ErrNotFound is returned when a user, room, or message does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUserExists is returned when registering an email that is already taken.
	ErrUserExists = errors.New("user already exists")
	// ErrRoomExists is returned when creating a room with an id that is already taken.
	ErrRoomExists = errors.New("room already exists")
)

// User represents a registered account. Email is the identity key.
type User struct {
	Email        string
	PasswordHash string
	Nickname     string
	Avatar       *string // data URI or nil
}

// Room represents a chat room (or the lobby).
type Room struct {
	ID              string
	PasswordHash    string // empty when the room has no password
	Admin           string
	Members         []string
	MemberNicknames map[string]string
	DisplayName     string
}

// MessageType classifies message content.
type MessageType string

const (
	MessageTypeText   MessageType = "text"
	MessageTypeImage  MessageType = "image"
	MessageTypeFile   MessageType = "file"
	MessageTypeSystem MessageType = "system"
)

// ParseMessageType maps client supplied types onto text, image or file.
func ParseMessageType(s string) MessageType {
	switch MessageType(s) {
	case MessageTypeImage:
		return MessageTypeImage
	case MessageTypeFile:
		return MessageTypeFile
	default:
		return MessageTypeText
	}
}

// Message represents a persisted chat message.
type Message struct {
	ID          string
	RoomID      string
	User        string // author display name at send time
	SenderEmail string // empty for system messages
	Avatar      *string
	Type        MessageType
	Content     string
	FileName    string
	Time        time.Time
}

// HasPassword reports whether joining the room requires a password.
func (r *Room) HasPassword() bool {
	return r.PasswordHash != ""
}

// IsMember reports whether email is in the member list.
func (r *Room) IsMember(email string) bool {
	return slices.Contains(r.Members, email)
}

// AddMember appends email to the member list. Returns false if already present.
func (r *Room) AddMember(email string) bool {
	if r.IsMember(email) {
		return false
	}
	r.Members = append(r.Members, email)
	return true
}

// RemoveMember drops email from the member list and its group nickname.
// Returns false if email was not a member.
func (r *Room) RemoveMember(email string) bool {
	idx := slices.Index(r.Members, email)
	if idx < 0 {
		return false
	}
	r.Members = slices.Delete(r.Members, idx, idx+1)
	delete(r.MemberNicknames, email)
	return true
}

// NicknameFor returns the group nickname of email, or fallback when none is set.
func (r *Room) NicknameFor(email, fallback string) string {
	if nick := r.MemberNicknames[email]; nick != "" {
		return nick
	}
	return fallback
}

// Clone returns a deep copy of the room.
func (r *Room) Clone() *Room {
	c := *r
	c.Members = slices.Clone(r.Members)
	c.MemberNicknames = make(map[string]string, len(r.MemberNicknames))
	for k, v := range r.MemberNicknames {
		c.MemberNicknames[k] = v
	}
	return &c
}

// Clone returns a deep copy of the user.
func (u *User) Clone() *User {
	c := *u
	if u.Avatar != nil {
		avatar := *u.Avatar
		c.Avatar = &avatar
	}
	return &c
}

// Clone returns a deep copy of the message.
func (m *Message) Clone() *Message {
	c := *m
	if m.Avatar != nil {
		avatar := *m.Avatar
		c.Avatar = &avatar
	}
	return &c
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser stores a new user. Returns ErrUserExists if the email is taken.
	CreateUser(ctx context.Context, user *User) error

	// GetUser retrieves a user by email.
	GetUser(ctx context.Context, email string) (*User, error)

	// FindUserByNickname retrieves the first user with the given global nickname.
	FindUserByNickname(ctx context.Context, nickname string) (*User, error)

	// UpdateUser overwrites nickname and avatar of an existing user.
	UpdateUser(ctx context.Context, user *User) error
}

// RoomStore handles room persistence.
type RoomStore interface {
	// CreateRoom stores a new room. Returns ErrRoomExists if the id is taken.
	CreateRoom(ctx context.Context, room *Room) error

	// GetRoom retrieves a room by id.
	GetRoom(ctx context.Context, id string) (*Room, error)

	// FindRoomByDisplayName retrieves a room by its display name.
	FindRoomByDisplayName(ctx context.Context, name string) (*Room, error)

	// ListRooms lists all rooms, lobby included, ordered by id.
	ListRooms(ctx context.Context) ([]*Room, error)

	// UpdateRoom overwrites admin, members, group nicknames and display name.
	UpdateRoom(ctx context.Context, room *Room) error

	// DeleteRoom removes a room together with all of its messages.
	DeleteRoom(ctx context.Context, id string) error
}

// MessageStore handles message persistence.
type MessageStore interface {
	// AppendMessage adds a message to the log.
	AppendMessage(ctx context.Context, msg *Message) error

	// GetMessage retrieves a message by id.
	GetMessage(ctx context.Context, id string) (*Message, error)

	// DeleteMessage removes a message by id. Returns false if nothing was removed.
	DeleteMessage(ctx context.Context, id string) (bool, error)

	// ListMessages returns the most recent limit messages of a room in chronological order.
	// A non-positive limit returns the whole history.
	ListMessages(ctx context.Context, roomID string, limit int) ([]*Message, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	RoomStore
	MessageStore

	// Close flushes pending writes and releases resources.
	Close() error
}
