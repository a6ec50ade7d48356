// Copyright 2024-2026 Aiku AI

// Package messagemap persists the correspondence between Telegram and
// Discord message IDs so that a relayed copy can be edited or deleted
// long after the original message was bridged.
//
// Every successful relay writes a forward entry (source id -> target ids)
// and a companion reverse entry (target id -> source ids) in a single
// transaction. Entries are never deleted; the map only grows.
package messagemap

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

//go:embed schema.sql
var schema string

// Store is an SQLite-backed bidirectional multi-map from
// (bridge, direction, message id) to an ordered set of message ids.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// New opens (or creates) the message map database at the given path and
// applies the schema. The parent directory is created if missing.
func New(path string, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open message map database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping message map database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply message map schema: %w", err)
	}

	log.Debug().Str("path", path).Msg("Message map opened")
	return &Store{db: db, log: log}, nil
}

// NewInMemory opens an ephemeral in-memory store. Used by tests.
func NewInMemory(log zerolog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", "file::memory:?cache=shared&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory message map: %w", err)
	}
	// A shared-cache in-memory database disappears when the last
	// connection closes, so keep exactly one around.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply message map schema: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert records that fromID (on the direction's origin platform) produced
// toID on the destination platform. It writes the forward entry and the
// companion reverse entry in one transaction, so a later edit or delete
// observes either both or neither. Inserting the same pair twice is a no-op.
func (s *Store) Insert(ctx context.Context, direction Direction, bridge, fromID, toID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin message map transaction: %w", err)
	}
	defer tx.Rollback()

	const q = `INSERT OR IGNORE INTO message_map (bridge, direction, source_id, target_id, reversed) VALUES (?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, q, bridge, string(direction), fromID, toID, 0); err != nil {
		return fmt.Errorf("failed to insert forward entry: %w", err)
	}
	if _, err := tx.ExecContext(ctx, q, bridge, string(direction), toID, fromID, 1); err != nil {
		return fmt.Errorf("failed to insert reverse entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit message map entry: %w", err)
	}

	s.log.Debug().
		Str("bridge", bridge).
		Stringer("direction", direction).
		Str("from_id", fromID).
		Str("to_id", toID).
		Msg("Stored message correspondence")
	return nil
}

// GetCorresponding returns, in insertion order, the ids of the messages the
// bridge sent for the message identified by fromID. An unknown key yields
// an empty slice, not an error.
func (s *Store) GetCorresponding(ctx context.Context, direction Direction, bridge, fromID string) ([]string, error) {
	return s.query(ctx, direction, bridge, fromID, 0)
}

// GetCorrespondingReverse returns the ids of the original messages that
// produced the relayed copy identified by toID. The lookup happens under
// the opposite direction, since the copy lives on the destination side of
// the original relay.
func (s *Store) GetCorrespondingReverse(ctx context.Context, direction Direction, bridge, toID string) ([]string, error) {
	return s.query(ctx, direction.Opposite(), bridge, toID, 1)
}

func (s *Store) query(ctx context.Context, direction Direction, bridge, id string, reversed int) ([]string, error) {
	const q = `SELECT target_id FROM message_map WHERE bridge = ? AND direction = ? AND source_id = ? AND reversed = ? ORDER BY seq`
	rows, err := s.db.QueryContext(ctx, q, bridge, string(direction), id, reversed)
	if err != nil {
		return nil, fmt.Errorf("failed to query message map: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var target string
		if err := rows.Scan(&target); err != nil {
			return nil, fmt.Errorf("failed to scan message map row: %w", err)
		}
		ids = append(ids, target)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate message map rows: %w", err)
	}
	return ids, nil
}
