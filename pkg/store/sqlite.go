package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// SQLite implements Store on a SQLite database file.
type SQLite struct {
	db   *sql.DB
	path string
}

// Verify SQLite implements Store.
var _ Store = (*SQLite)(nil)

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	dsn := MemoryPath
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		dsn = path + "?_journal=WAL&_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == MemoryPath {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	s := &SQLite{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS interactions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL,
		input TEXT NOT NULL DEFAULT '',
		emotion TEXT NOT NULL DEFAULT '',
		confidence REAL NOT NULL DEFAULT 0,
		scores_json TEXT,
		response TEXT NOT NULL DEFAULT '',
		provider_used TEXT NOT NULL,
		is_fallback INTEGER NOT NULL DEFAULT 0,
		timestamp DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_interactions_user ON interactions(user_id, timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_interactions_timestamp ON interactions(timestamp DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Path returns the database path.
func (s *SQLite) Path() string { return s.path }

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Save inserts r.
func (s *SQLite) Save(ctx context.Context, r *Record) (string, error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	r.Timestamp = r.Timestamp.UTC()

	var scores []byte
	if len(r.Scores) > 0 {
		var err error
		if scores, err = json.Marshal(r.Scores); err != nil {
			return "", fmt.Errorf("encode scores: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO interactions (id, user_id, type, input, emotion, confidence, scores_json, response, provider_used, is_fallback, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.UserID, r.Type, r.Input, r.Emotion, r.Confidence, nullString(scores), r.Response, r.ProviderUsed, r.IsFallback, r.Timestamp)
	if err != nil {
		return "", fmt.Errorf("insert interaction: %w", err)
	}
	return r.ID, nil
}

const selectColumns = `SELECT id, user_id, type, input, emotion, confidence, scores_json, response, provider_used, is_fallback, timestamp FROM interactions`

// Get returns one record.
func (s *SQLite) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Query returns records matching f, newest first.
func (s *SQLite) Query(ctx context.Context, f Filter) ([]Record, error) {
	var where []string
	var args []any
	if f.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, f.Type)
	}
	if f.Emotion != "" {
		where = append(where, "emotion = ?")
		args = append(args, f.Emotion)
	}
	if !f.Since.IsZero() {
		where = append(where, "timestamp >= ?")
		args = append(args, f.Since.UTC())
	}

	query := selectColumns
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	query += " ORDER BY timestamp DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query interactions: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	return records, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*Record, error) {
	var r Record
	var scores sql.NullString
	if err := sc.Scan(&r.ID, &r.UserID, &r.Type, &r.Input, &r.Emotion, &r.Confidence, &scores, &r.Response, &r.ProviderUsed, &r.IsFallback, &r.Timestamp); err != nil {
		return nil, err
	}
	if scores.Valid && scores.String != "" {
		if err := json.Unmarshal([]byte(scores.String), &r.Scores); err != nil {
			return nil, fmt.Errorf("decode scores: %w", err)
		}
	}
	return &r, nil
}

func nullString(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}
