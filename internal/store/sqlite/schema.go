package sqlite

import (
	"database/sql"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	name          TEXT NOT NULL,
	role          TEXT NOT NULL DEFAULT 'agent',
	password_hash TEXT NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS customers (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL UNIQUE,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS conversations (
	id          TEXT PRIMARY KEY,
	customer_id TEXT NOT NULL,
	agent_id    TEXT,
	status      TEXT NOT NULL DEFAULT 'active',
	sentiment   TEXT NOT NULL DEFAULT 'neutral',
	created_at  DATETIME NOT NULL,
	updated_at  DATETIME NOT NULL,
	resolved_at DATETIME,
	FOREIGN KEY (customer_id) REFERENCES customers(id),
	FOREIGN KEY (agent_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS messages (
	id              TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL,
	content         TEXT NOT NULL,
	sender          TEXT NOT NULL,
	agent_id        TEXT,
	ai_suggestion   TEXT,
	ai_confidence   REAL,
	edited          BOOLEAN NOT NULL DEFAULT 0,
	timestamp       DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS faqs (
	id         TEXT PRIMARY KEY,
	question   TEXT NOT NULL,
	answer     TEXT NOT NULL,
	category   TEXT NOT NULL DEFAULT '',
	tags       TEXT NOT NULL DEFAULT '[]',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_conversations_updated ON conversations(updated_at DESC);
`

// Migrate applies the schema. It is safe to run repeatedly.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
