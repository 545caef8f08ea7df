// Package store persists articles, runs, digests, and conversation state
// in a single SQLite database. All failures wrap types.ErrStoreUnavailable;
// the pipeline treats them as fatal to the current run.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/user/newshound/internal/types"
)

type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL lets the workflow read while a pipeline run writes.
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS articles (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		title TEXT NOT NULL,
		content TEXT,
		summary TEXT,
		source_name TEXT,
		category TEXT NOT NULL,
		language TEXT,
		was_translated INTEGER NOT NULL DEFAULT 0,
		source_type TEXT,
		validation_status TEXT,
		credibility_score INTEGER NOT NULL DEFAULT 0,
		reasoning TEXT,
		is_actionable INTEGER NOT NULL DEFAULT 0,
		why_it_matters TEXT,
		cross_reference_count INTEGER NOT NULL DEFAULT 0,
		fetched_at TIMESTAMP NOT NULL,
		expires_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_articles_url ON articles(url);
	CREATE INDEX IF NOT EXISTS idx_articles_fetched ON articles(fetched_at);
	CREATE INDEX IF NOT EXISTS idx_articles_category ON articles(category);
	CREATE INDEX IF NOT EXISTS idx_articles_expires ON articles(expires_at);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP,
		status TEXT NOT NULL,
		fetched INTEGER NOT NULL DEFAULT 0,
		deduped INTEGER NOT NULL DEFAULT 0,
		verified INTEGER NOT NULL DEFAULT 0,
		actionable INTEGER NOT NULL DEFAULT 0,
		translated INTEGER NOT NULL DEFAULT 0,
		error_message TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	CREATE TABLE IF NOT EXISTS digests (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		chat_id INTEGER NOT NULL,
		items TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		decided_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_digests_created ON digests(created_at);
	CREATE INDEX IF NOT EXISTS idx_digests_chat_status ON digests(chat_id, status);

	CREATE TABLE IF NOT EXISTS conversations (
		chat_id INTEGER PRIMARY KEY,
		pending_digest_id TEXT,
		feedback TEXT,
		last_activity_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chat_messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		chat_id INTEGER NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_chat_messages_chat ON chat_messages(chat_id, id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// storeErr tags a failure with the store-unavailable class.
func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", types.ErrStoreUnavailable, op, err)
}
