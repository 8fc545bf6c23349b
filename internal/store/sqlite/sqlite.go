package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/vovakirdan/groupchat-server/internal/store"
)

// Migrations holds the goose migrations applied by New and by the migrate command.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations that holds the sql files.
const MigrationsDir = "migrations"

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// DSN builds the connection string used for a database file.
func DSN(dbPath string) string {
	return dbPath + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
}

// New creates a new SQLite store and applies pending migrations.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, Migrate)
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply schema without migrations.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", DSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// Migrate applies all embedded migrations.
func Migrate(db *sql.DB) error {
	goose.SetBaseFS(Migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, MigrationsDir); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func isConstraintViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}

// ==== UserStore implementation ====

// CreateUser stores a new user.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *store.User) error {
	query := `
		INSERT INTO users (email, password_hash, nickname, avatar)
		VALUES (?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query, user.Email, user.PasswordHash, user.Nickname, nullString(user.Avatar))
	if err != nil {
		if isConstraintViolation(err) {
			return store.ErrUserExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by email.
func (s *SQLiteStore) GetUser(ctx context.Context, email string) (*store.User, error) {
	query := `
		SELECT email, password_hash, nickname, avatar
		FROM users
		WHERE email = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, email))
}

// FindUserByNickname retrieves the first user (by email order) with the given nickname.
func (s *SQLiteStore) FindUserByNickname(ctx context.Context, nickname string) (*store.User, error) {
	query := `
		SELECT email, password_hash, nickname, avatar
		FROM users
		WHERE nickname = ?
		ORDER BY email ASC
		LIMIT 1
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, nickname))
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*store.User, error) {
	var user store.User
	var avatar sql.NullString
	if err := row.Scan(&user.Email, &user.PasswordHash, &user.Nickname, &avatar); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	user.Avatar = stringPtr(avatar)
	return &user, nil
}

// UpdateUser overwrites nickname and avatar of an existing user.
func (s *SQLiteStore) UpdateUser(ctx context.Context, user *store.User) error {
	query := `
		UPDATE users SET nickname = ?, avatar = ?
		WHERE email = ?
	`
	result, err := s.db.ExecContext(ctx, query, user.Nickname, nullString(user.Avatar), user.Email)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("user not found: %w", store.ErrNotFound)
	}
	return nil
}

// ==== RoomStore implementation ====

// CreateRoom stores a new room with its members.
func (s *SQLiteStore) CreateRoom(ctx context.Context, room *store.Room) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op
	}()

	query := `
		INSERT INTO rooms (id, password_hash, admin, display_name)
		VALUES (?, ?, ?, ?)
	`
	var password *string
	if room.PasswordHash != "" {
		password = &room.PasswordHash
	}
	if _, err := tx.ExecContext(ctx, query, room.ID, nullString(password), room.Admin, room.DisplayName); err != nil {
		if isConstraintViolation(err) {
			return store.ErrRoomExists
		}
		return fmt.Errorf("insert room: %w", err)
	}

	if err := insertMembers(ctx, tx, room); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func insertMembers(ctx context.Context, tx *sql.Tx, room *store.Room) error {
	query := `
		INSERT INTO room_members (room_id, email, position, group_nickname)
		VALUES (?, ?, ?, ?)
	`
	for i, email := range room.Members {
		if _, err := tx.ExecContext(ctx, query, room.ID, email, i, room.MemberNicknames[email]); err != nil {
			return fmt.Errorf("insert room member: %w", err)
		}
	}
	return nil
}

// GetRoom retrieves a room by id.
func (s *SQLiteStore) GetRoom(ctx context.Context, id string) (*store.Room, error) {
	query := `
		SELECT id, password_hash, admin, display_name
		FROM rooms
		WHERE id = ?
	`
	room, err := scanRoom(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	if err := s.loadMembers(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// FindRoomByDisplayName retrieves a room by its display name.
func (s *SQLiteStore) FindRoomByDisplayName(ctx context.Context, name string) (*store.Room, error) {
	query := `
		SELECT id, password_hash, admin, display_name
		FROM rooms
		WHERE display_name = ?
	`
	room, err := scanRoom(s.db.QueryRowContext(ctx, query, name))
	if err != nil {
		return nil, err
	}
	if err := s.loadMembers(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

func scanRoom(row *sql.Row) (*store.Room, error) {
	var room store.Room
	var password sql.NullString
	if err := row.Scan(&room.ID, &password, &room.Admin, &room.DisplayName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("room not found: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query room: %w", err)
	}
	if password.Valid {
		room.PasswordHash = password.String
	}
	return &room, nil
}

func (s *SQLiteStore) loadMembers(ctx context.Context, room *store.Room) error {
	query := `
		SELECT email, group_nickname FROM room_members
		WHERE room_id = ?
		ORDER BY position ASC
	`
	rows, err := s.db.QueryContext(ctx, query, room.ID)
	if err != nil {
		return fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	room.Members = []string{}
	room.MemberNicknames = make(map[string]string)
	for rows.Next() {
		var email, nickname string
		if err := rows.Scan(&email, &nickname); err != nil {
			return fmt.Errorf("scan member: %w", err)
		}
		room.Members = append(room.Members, email)
		if nickname != "" {
			room.MemberNicknames[email] = nickname
		}
	}
	return rows.Err()
}

// ListRooms lists all rooms ordered by id.
func (s *SQLiteStore) ListRooms(ctx context.Context) ([]*store.Room, error) {
	query := `
		SELECT id, password_hash, admin, display_name
		FROM rooms
		ORDER BY id ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query rooms: %w", err)
	}

	var rooms []*store.Room
	for rows.Next() {
		var room store.Room
		var password sql.NullString
		if err := rows.Scan(&room.ID, &password, &room.Admin, &room.DisplayName); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan room: %w", err)
		}
		if password.Valid {
			room.PasswordHash = password.String
		}
		rooms = append(rooms, &room)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	// The single pooled connection must be released before loading members.
	rows.Close()

	for _, room := range rooms {
		if err := s.loadMembers(ctx, room); err != nil {
			return nil, err
		}
	}
	return rooms, nil
}

// UpdateRoom overwrites admin, display name, members and group nicknames.
func (s *SQLiteStore) UpdateRoom(ctx context.Context, room *store.Room) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op
	}()

	result, err := tx.ExecContext(ctx, `UPDATE rooms SET admin = ?, display_name = ? WHERE id = ?`,
		room.Admin, room.DisplayName, room.ID)
	if err != nil {
		return fmt.Errorf("update room: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("room not found: %w", store.ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM room_members WHERE room_id = ?`, room.ID); err != nil {
		return fmt.Errorf("clear room members: %w", err)
	}
	if err := insertMembers(ctx, tx, room); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// DeleteRoom removes a room, its members and its messages.
func (s *SQLiteStore) DeleteRoom(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE room_id = ?`, id); err != nil {
		return fmt.Errorf("delete room messages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM room_members WHERE room_id = ?`, id); err != nil {
		return fmt.Errorf("delete room members: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete room: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("room not found: %w", store.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ==== MessageStore implementation ====

// AppendMessage persists a message.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *store.Message) error {
	query := `
		INSERT INTO messages (id, room_id, user_name, sender_email, avatar, type, content, file_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		msg.ID, msg.RoomID, msg.User, msg.SenderEmail, nullString(msg.Avatar),
		string(msg.Type), msg.Content, msg.FileName, msg.Time,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

const messageColumns = `id, room_id, user_name, sender_email, avatar, type, content, file_name, created_at`

// GetMessage retrieves a message by id.
func (s *SQLiteStore) GetMessage(ctx context.Context, id string) (*store.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = ?`

	msg, err := scanMessage(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("message not found: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query message: %w", err)
	}
	return msg, nil
}

// DeleteMessage removes a message by id.
func (s *SQLiteStore) DeleteMessage(ctx context.Context, id string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete message: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// ListMessages returns the last limit messages of a room in chronological order.
func (s *SQLiteStore) ListMessages(ctx context.Context, roomID string, limit int) ([]*store.Message, error) {
	if limit <= 0 {
		limit = -1 // sqlite: no limit
	}
	query := `
		SELECT ` + messageColumns + ` FROM (
			SELECT seq, ` + messageColumns + `
			FROM messages
			WHERE room_id = ?
			ORDER BY seq DESC
			LIMIT ?
		) ORDER BY seq ASC
	`
	rows, err := s.db.QueryContext(ctx, query, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*store.Message, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(row scanner) (*store.Message, error) {
	var msg store.Message
	var avatar sql.NullString
	var msgType string
	err := row.Scan(
		&msg.ID,
		&msg.RoomID,
		&msg.User,
		&msg.SenderEmail,
		&avatar,
		&msgType,
		&msg.Content,
		&msg.FileName,
		&msg.Time,
	)
	if err != nil {
		return nil, err
	}
	msg.Avatar = stringPtr(avatar)
	msg.Type = store.MessageType(msgType)
	return &msg, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
