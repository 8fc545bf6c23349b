package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/groupchat-server/internal/store"
)

// Store implements store.Store on a single JSON document.
//
// The document is held in memory and is the authoritative copy. Mutations bump its
// version and wake a background flusher which coalesces writes over the flush
// interval and replaces the file atomically.
type Store struct {
	mu      sync.RWMutex
	doc     *document
	version uint64 // bumped by every mutation
	flushed uint64 // version last written to disk

	path     string
	interval time.Duration
	log      *zerolog.Logger

	writeMu   sync.Mutex
	wake      chan struct{}
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// Open loads the document at path, creating an empty one when the file does not exist.
// A malformed document is an error.
func Open(path string, flushInterval time.Duration, logger *zerolog.Logger) (*Store, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	s := &Store{
		path:     path,
		interval: flushInterval,
		log:      logger,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		s.doc = newDocument()
		s.version = 1
		if err := s.Flush(); err != nil {
			return nil, fmt.Errorf("create document: %w", err)
		}
		logger.Info().Str("path", path).Msg("created empty document")
	case err != nil:
		return nil, fmt.Errorf("read document: %w", err)
	default:
		doc, err := decodeDocument(data)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		s.doc = doc
	}

	go s.flushLoop()
	return s, nil
}

// NewMemory returns a store that never touches the disk.
func NewMemory() *Store {
	nop := zerolog.Nop()
	s := &Store{
		doc:     newDocument(),
		log:     &nop,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	close(s.stopped)
	return s
}

// Close stops the flusher and writes any pending changes.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		<-s.stopped
		err = s.Flush()
	})
	return err
}

// Flush writes the document to disk if it changed since the last write.
func (s *Store) Flush() error {
	if s.path == "" {
		return nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	// Mutations made during the encode leave version ahead of flushed.
	s.mu.RLock()
	if s.version == s.flushed {
		s.mu.RUnlock()
		return nil
	}
	version := s.version
	data, err := s.doc.encode()
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	if err := writeAtomic(s.path, data); err != nil {
		return err
	}

	s.mu.Lock()
	s.flushed = version
	s.mu.Unlock()
	return nil
}

func (s *Store) flushLoop() {
	defer close(s.stopped)
	for {
		select {
		case <-s.wake:
			if s.interval > 0 {
				timer := time.NewTimer(s.interval)
				select {
				case <-timer.C:
				case <-s.done:
					timer.Stop()
					return
				}
			}
			if err := s.Flush(); err != nil {
				s.log.Error().Err(err).Str("path", s.path).Msg("flush document")
			}
		case <-s.done:
			return
		}
	}
}

// markDirty must be called with s.mu held for writing.
func (s *Store) markDirty() {
	s.version++
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp document: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace document: %w", err)
	}
	return nil
}

// ==== UserStore implementation ====

// CreateUser stores a new user.
func (s *Store) CreateUser(_ context.Context, user *store.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.doc.Users[user.Email]; exists {
		return store.ErrUserExists
	}
	s.doc.Users[user.Email] = userToRecord(user)
	s.markDirty()
	return nil
}

// GetUser retrieves a user by email.
func (s *Store) GetUser(_ context.Context, email string) (*store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.doc.Users[email]
	if !ok {
		return nil, fmt.Errorf("user not found: %w", store.ErrNotFound)
	}
	return userFromRecord(rec), nil
}

// FindUserByNickname retrieves the first user (by email order) with the given nickname.
func (s *Store) FindUserByNickname(_ context.Context, nickname string) (*store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, email := range sortedKeys(s.doc.Users) {
		rec := s.doc.Users[email]
		if rec.Nickname == nickname {
			return userFromRecord(rec), nil
		}
	}
	return nil, fmt.Errorf("user not found: %w", store.ErrNotFound)
}

// UpdateUser overwrites nickname and avatar of an existing user.
func (s *Store) UpdateUser(_ context.Context, user *store.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.doc.Users[user.Email]
	if !ok {
		return fmt.Errorf("user not found: %w", store.ErrNotFound)
	}
	updated := userToRecord(user)
	rec.Nickname = updated.Nickname
	rec.Avatar = updated.Avatar
	s.markDirty()
	return nil
}

// ==== RoomStore implementation ====

// CreateRoom stores a new room.
func (s *Store) CreateRoom(_ context.Context, room *store.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.doc.Rooms[room.ID]; exists {
		return store.ErrRoomExists
	}
	s.doc.Rooms[room.ID] = roomToRecord(room)
	s.markDirty()
	return nil
}

// GetRoom retrieves a room by id.
func (s *Store) GetRoom(_ context.Context, id string) (*store.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.doc.Rooms[id]
	if !ok {
		return nil, fmt.Errorf("room not found: %w", store.ErrNotFound)
	}
	return roomFromRecord(id, rec), nil
}

// FindRoomByDisplayName retrieves a room by its display name.
func (s *Store) FindRoomByDisplayName(_ context.Context, name string) (*store.Room, error) {
	if name == "" {
		return nil, fmt.Errorf("room not found: %w", store.ErrNotFound)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range sortedKeys(s.doc.Rooms) {
		rec := s.doc.Rooms[id]
		if rec.DisplayName == name {
			return roomFromRecord(id, rec), nil
		}
	}
	return nil, fmt.Errorf("room not found: %w", store.ErrNotFound)
}

// ListRooms lists all rooms ordered by id.
func (s *Store) ListRooms(_ context.Context) ([]*store.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rooms := make([]*store.Room, 0, len(s.doc.Rooms))
	for _, id := range sortedKeys(s.doc.Rooms) {
		rooms = append(rooms, roomFromRecord(id, s.doc.Rooms[id]))
	}
	return rooms, nil
}

// UpdateRoom overwrites the mutable fields of a room.
func (s *Store) UpdateRoom(_ context.Context, room *store.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.doc.Rooms[room.ID]
	if !ok {
		return fmt.Errorf("room not found: %w", store.ErrNotFound)
	}
	rec := roomToRecord(room)
	rec.Password = existing.Password
	s.doc.Rooms[room.ID] = rec
	s.markDirty()
	return nil
}

// DeleteRoom removes a room and every message that belongs to it.
func (s *Store) DeleteRoom(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.doc.Rooms[id]; !ok {
		return fmt.Errorf("room not found: %w", store.ErrNotFound)
	}
	delete(s.doc.Rooms, id)
	s.doc.Messages = slices.DeleteFunc(s.doc.Messages, func(m *messageRecord) bool {
		return m.RoomName == id
	})
	s.markDirty()
	return nil
}

// ==== MessageStore implementation ====

// AppendMessage adds a message to the log.
func (s *Store) AppendMessage(_ context.Context, msg *store.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.Messages = append(s.doc.Messages, messageToRecord(msg))
	s.markDirty()
	return nil
}

// GetMessage retrieves a message by id.
func (s *Store) GetMessage(_ context.Context, id string) (*store.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.doc.Messages {
		if rec.ID == id {
			return messageFromRecord(rec), nil
		}
	}
	return nil, fmt.Errorf("message not found: %w", store.ErrNotFound)
}

// DeleteMessage removes a message by id.
func (s *Store) DeleteMessage(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.doc.Messages)
	s.doc.Messages = slices.DeleteFunc(s.doc.Messages, func(m *messageRecord) bool {
		return m.ID == id
	})
	if len(s.doc.Messages) == before {
		return false, nil
	}
	s.markDirty()
	return true, nil
}

// ListMessages returns the last limit messages of a room in chronological order.
func (s *Store) ListMessages(_ context.Context, roomID string, limit int) ([]*store.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*messageRecord
	for _, rec := range s.doc.Messages {
		if rec.RoomName == roomID {
			matched = append(matched, rec)
		}
	}
	if limit > 0 && len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}

	messages := make([]*store.Message, 0, len(matched))
	for _, rec := range matched {
		messages = append(messages, messageFromRecord(rec))
	}
	return messages, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
