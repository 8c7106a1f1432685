// Package store provides SQLite-based persistence for conversations and messages,
// with an FTS5 index over message content kept in sync by triggers.
package store

// migrations contains SQL statements for database schema migrations.
// Each migration is run in order during database initialization.
var migrations = []string{
	// Migration 1: Create conversations table
	`CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL
	)`,

	// Migration 2: Create messages table
	`CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		conversation_id TEXT NOT NULL,
		role TEXT NOT NULL CHECK(role IN ('system', 'user', 'assistant')),
		content TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (conversation_id) REFERENCES conversations(id)
	)`,

	// Migration 3: Create index for per-conversation history queries
	`CREATE INDEX IF NOT EXISTS idx_messages_conversation_id ON messages(conversation_id)`,

	// Migration 4: Create schema version table for tracking migrations
	`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,

	// Migration 5: Create external-content FTS5 index over message content
	`CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
		content,
		role,
		conversation_id,
		created_at,
		content='messages',
		content_rowid='id'
	)`,

	// Migration 6: Sync triggers. The index mutation rides in the same
	// statement-level transaction as the row write, so no reader can see a
	// message without its index entry.
	`CREATE TRIGGER IF NOT EXISTS messages_ai AFTER INSERT ON messages BEGIN
		INSERT INTO messages_fts(rowid, content, role, conversation_id, created_at)
		VALUES (new.id, new.content, new.role, new.conversation_id, new.created_at);
	END`,
	`CREATE TRIGGER IF NOT EXISTS messages_ad AFTER DELETE ON messages BEGIN
		INSERT INTO messages_fts(messages_fts, rowid, content) VALUES('delete', old.id, old.content);
	END`,
	`CREATE TRIGGER IF NOT EXISTS messages_au AFTER UPDATE ON messages BEGIN
		INSERT INTO messages_fts(messages_fts, rowid, content) VALUES('delete', old.id, old.content);
		INSERT INTO messages_fts(rowid, content, role, conversation_id, created_at)
		VALUES (new.id, new.content, new.role, new.conversation_id, new.created_at);
	END`,
}

// getSchemaVersionSQL returns the current schema version
const getSchemaVersionSQL = `SELECT COALESCE(MAX(version), 0) FROM schema_version`

// insertSchemaVersionSQL records a migration as applied
const insertSchemaVersionSQL = `INSERT INTO schema_version (version) VALUES (?)`
