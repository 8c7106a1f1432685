package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

// ErrUnknownConversation is returned when a message references a
// conversation id that was never created.
var ErrUnknownConversation = errors.New("unknown conversation")

// Role represents the role of a message sender
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Conversation represents a logical thread of turns
type Conversation struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// Message represents a single message in a conversation
type Message struct {
	ID             int64     `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// Store provides database operations for conversations and messages
type Store struct {
	db *sql.DB
}

// New creates a new Store instance and initializes the database.
// The parent directory is created if it does not exist.
func New(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrent access
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db}

	if err := store.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// runMigrations applies any pending database migrations
func (s *Store) runMigrations() error {
	// Bootstrap the version table (also present in migrations)
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	var currentVersion int
	err = s.db.QueryRow(getSchemaVersionSQL).Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for i, migration := range migrations {
		version := i + 1
		if version <= currentVersion {
			continue
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(migration); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to apply migration %d: %w", version, err)
		}

		if _, err := tx.Exec(insertSchemaVersionSQL, version); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", version, err)
		}
	}

	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureConversation returns a usable conversation id. A non-empty id is
// returned unchanged with no side effect. An empty id creates a fresh
// conversation with a random identifier and returns it.
func (s *Store) EnsureConversation(id string) (string, error) {
	if id != "" {
		return id, nil
	}

	cid := uuid.New().String()
	_, err := s.db.Exec(`INSERT OR IGNORE INTO conversations (id, created_at) VALUES (?, ?)`,
		cid, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("failed to create conversation: %w", err)
	}
	return cid, nil
}

// GetConversation retrieves a conversation by ID, or nil if unknown
func (s *Store) GetConversation(id string) (*Conversation, error) {
	conv := &Conversation{}
	err := s.db.QueryRow(`SELECT id, created_at FROM conversations WHERE id = ?`, id).
		Scan(&conv.ID, &conv.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	return conv, nil
}

// AddMessage appends a message to a conversation. The FTS index entry is
// written by the insert trigger in the same transaction as the row.
func (s *Store) AddMessage(conversationID string, role Role, content string) (*Message, error) {
	msg := &Message{
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}

	res, err := s.db.Exec(`
		INSERT INTO messages (conversation_id, role, content, created_at)
		VALUES (?, ?, ?, ?)
	`, msg.ConversationID, msg.Role, msg.Content, msg.CreatedAt)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey {
			return nil, fmt.Errorf("%w: %s", ErrUnknownConversation, conversationID)
		}
		return nil, fmt.Errorf("failed to add message: %w", err)
	}

	msg.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get message id: %w", err)
	}

	return msg, nil
}

// GetRecentMessages retrieves up to limit most recent messages for a
// conversation, in chronological order. Recency is by descending id; the
// window is reversed before returning so callers always see oldest first.
// An unknown conversation yields an empty slice.
func (s *Store) GetRecentMessages(conversationID string, limit int) ([]*Message, error) {
	rows, err := s.db.Query(`
		SELECT id, conversation_id, role, content, created_at
		FROM messages WHERE conversation_id = ?
		ORDER BY id DESC LIMIT ?
	`, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		msg := &Message{}
		err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content, &msg.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to get chronological order
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// SearchMessages performs a ranked full-text search over message content
// across all conversations. A malformed query never surfaces an error:
// any FTS failure falls back to a substring search ordered by recency.
func (s *Store) SearchMessages(query string, limit int) ([]*Message, error) {
	rows, err := s.db.Query(`
		SELECT m.id, m.conversation_id, m.role, m.content, m.created_at
		FROM messages_fts f
		JOIN messages m ON m.id = f.rowid
		WHERE messages_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		// FTS query syntax errors land here; degrade to LIKE
		return s.searchMessagesSubstring(query, limit)
	}
	defer rows.Close()

	messages, err := scanMessages(rows)
	if err != nil {
		return s.searchMessagesSubstring(query, limit)
	}
	return messages, nil
}

func (s *Store) searchMessagesSubstring(query string, limit int) ([]*Message, error) {
	rows, err := s.db.Query(`
		SELECT id, conversation_id, role, content, created_at
		FROM messages
		WHERE content LIKE ?
		ORDER BY id DESC
		LIMIT ?
	`, "%"+query+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

func scanMessages(rows *sql.Rows) ([]*Message, error) {
	var messages []*Message
	for rows.Next() {
		msg := &Message{}
		err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content, &msg.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// DeleteMessage deletes a message; the delete trigger drops its index entry
func (s *Store) DeleteMessage(id int64) error {
	_, err := s.db.Exec("DELETE FROM messages WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

// GetMessageCount returns the number of messages in a conversation
func (s *Store) GetMessageCount(conversationID string) (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM messages WHERE conversation_id = ?", conversationID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}
