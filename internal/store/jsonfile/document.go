package jsonfile

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/vovakirdan/groupchat-server/internal/store"
)

// document is the on-disk shape: users keyed by email, rooms keyed by id,
// and one flat message log.
type document struct {
	Users    map[string]*userRecord `json:"users"`
	Rooms    map[string]*roomRecord `json:"rooms"`
	Messages []*messageRecord       `json:"messages"`
}

type userRecord struct {
	Email        string  `json:"email"`
	PasswordHash string  `json:"passwordHash"`
	Nickname     string  `json:"nickname"`
	Avatar       *string `json:"avatar"`
}

type roomRecord struct {
	Password        *string           `json:"password"`
	Admin           string            `json:"admin"`
	Members         []string          `json:"members"`
	MemberNicknames map[string]string `json:"memberNicknames"`
	DisplayName     string            `json:"displayName"`
}

type messageRecord struct {
	ID          string    `json:"id"`
	RoomName    string    `json:"roomName"`
	User        string    `json:"user,omitempty"`
	SenderEmail string    `json:"senderEmail,omitempty"`
	Avatar      *string   `json:"avatar,omitempty"`
	Type        string    `json:"type"`
	Content     string    `json:"content"`
	FileName    string    `json:"fileName,omitempty"`
	Time        time.Time `json:"time"`
}

func newDocument() *document {
	return &document{
		Users:    make(map[string]*userRecord),
		Rooms:    make(map[string]*roomRecord),
		Messages: make([]*messageRecord, 0),
	}
}

func decodeDocument(data []byte) (*document, error) {
	doc := newDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if doc.Users == nil {
		doc.Users = make(map[string]*userRecord)
	}
	if doc.Rooms == nil {
		doc.Rooms = make(map[string]*roomRecord)
	}
	if doc.Messages == nil {
		doc.Messages = make([]*messageRecord, 0)
	}
	for id, room := range doc.Rooms {
		if room == nil {
			room = &roomRecord{}
			doc.Rooms[id] = room
		}
		// Older documents keyed rooms by name and carried no displayName.
		if room.DisplayName == "" {
			room.DisplayName = id
		}
		if room.Members == nil {
			room.Members = []string{}
		}
		if room.MemberNicknames == nil {
			room.MemberNicknames = make(map[string]string)
		}
	}
	return doc, nil
}

func (d *document) encode() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

func userFromRecord(rec *userRecord) *store.User {
	u := &store.User{
		Email:        rec.Email,
		PasswordHash: rec.PasswordHash,
		Nickname:     rec.Nickname,
		Avatar:       rec.Avatar,
	}
	return u.Clone()
}

func userToRecord(u *store.User) *userRecord {
	c := u.Clone()
	return &userRecord{
		Email:        c.Email,
		PasswordHash: c.PasswordHash,
		Nickname:     c.Nickname,
		Avatar:       c.Avatar,
	}
}

func roomFromRecord(id string, rec *roomRecord) *store.Room {
	r := &store.Room{
		ID:              id,
		Admin:           rec.Admin,
		Members:         slices.Clone(rec.Members),
		MemberNicknames: maps.Clone(rec.MemberNicknames),
		DisplayName:     rec.DisplayName,
	}
	if r.DisplayName == "" {
		r.DisplayName = id
	}
	if r.Members == nil {
		r.Members = []string{}
	}
	if r.MemberNicknames == nil {
		r.MemberNicknames = make(map[string]string)
	}
	if rec.Password != nil {
		r.PasswordHash = *rec.Password
	}
	return r
}

func roomToRecord(r *store.Room) *roomRecord {
	c := r.Clone()
	rec := &roomRecord{
		Admin:           c.Admin,
		Members:         c.Members,
		MemberNicknames: c.MemberNicknames,
		DisplayName:     c.DisplayName,
	}
	if rec.Members == nil {
		rec.Members = []string{}
	}
	if c.PasswordHash != "" {
		hash := c.PasswordHash
		rec.Password = &hash
	}
	return rec
}

func messageFromRecord(rec *messageRecord) *store.Message {
	m := &store.Message{
		ID:          rec.ID,
		RoomID:      rec.RoomName,
		User:        rec.User,
		SenderEmail: rec.SenderEmail,
		Avatar:      rec.Avatar,
		Type:        store.MessageType(rec.Type),
		Content:     rec.Content,
		FileName:    rec.FileName,
		Time:        rec.Time,
	}
	return m.Clone()
}

func messageToRecord(m *store.Message) *messageRecord {
	c := m.Clone()
	return &messageRecord{
		ID:          c.ID,
		RoomName:    c.RoomID,
		User:        c.User,
		SenderEmail: c.SenderEmail,
		Avatar:      c.Avatar,
		Type:        string(c.Type),
		Content:     c.Content,
		FileName:    c.FileName,
		Time:        c.Time,
	}
}
