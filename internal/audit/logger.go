// Package audit records write operations in an append-only SQLite log.
package audit

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"docbay/internal/constants"
	"docbay/internal/document"
)

const schema = `
CREATE TABLE IF NOT EXISTS audit_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp INTEGER NOT NULL,
	action TEXT NOT NULL,
	collection TEXT NOT NULL,
	record_id TEXT NOT NULL,
	user_id TEXT,
	fingerprint TEXT
);
CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_log(timestamp);
CREATE INDEX IF NOT EXISTS idx_audit_collection ON audit_log(collection);
`

// Logger provides thread-safe, append-only audit logging.
type Logger struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (creating if needed) the audit database at path and ensures
// the schema exists. Use ":memory:" for an ephemeral log.
func Open(path string) (*Logger, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize audit schema: %w", err)
	}
	return &Logger{db: db}, nil
}

// Close releases the underlying database handle.
func (l *Logger) Close() error {
	return l.db.Close()
}

// Log records an audit entry. The record, when present, is fingerprinted
// rather than stored.
func (l *Logger) Log(action, collection, recordID, userID string, record document.Doc) error {
	if !IsValidAction(action) {
		return fmt.Errorf("invalid action type: %s", action)
	}

	var fingerprint sql.NullString
	if fp := Fingerprint(record); fp != "" {
		fingerprint = sql.NullString{String: fp, Valid: true}
	}
	var user sql.NullString
	if userID != "" {
		user = sql.NullString{String: userID, Valid: true}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	_, err := l.db.Exec(`
		INSERT INTO audit_log (timestamp, action, collection, record_id, user_id, fingerprint)
		VALUES (?, ?, ?, ?, ?, ?)
	`, time.Now().Unix(), action, collection, recordID, user, fingerprint)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}

// QueryOptions for filtering audit logs
type QueryOptions struct {
	Limit      int
	Offset     int
	Action     string
	Collection string
	UserID     string
	Since      int64 // Unix timestamp
	Until      int64 // Unix timestamp
}

// Query retrieves audit log entries with filters, newest first.
func (l *Logger) Query(opts QueryOptions) ([]Entry, error) {
	if opts.Limit <= 0 {
		opts.Limit = constants.AuditDefaultQueryLimit
	}
	if opts.Limit > constants.AuditMaxQueryLimit {
		opts.Limit = constants.AuditMaxQueryLimit
	}

	query := `SELECT id, timestamp, action, collection, record_id, user_id, fingerprint
              FROM audit_log WHERE 1=1`
	args := []interface{}{}

	if opts.Action != "" {
		query += " AND action = ?"
		args = append(args, opts.Action)
	}
	if opts.Collection != "" {
		query += " AND collection = ?"
		args = append(args, opts.Collection)
	}
	if opts.UserID != "" {
		query += " AND user_id = ?"
		args = append(args, opts.UserID)
	}
	if opts.Since > 0 {
		query += " AND timestamp >= ?"
		args = append(args, opts.Since)
	}
	if opts.Until > 0 {
		query += " AND timestamp <= ?"
		args = append(args, opts.Until)
	}

	query += " ORDER BY id DESC LIMIT ? OFFSET ?"
	args = append(args, opts.Limit, opts.Offset)

	rows, err := l.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var user, fingerprint sql.NullString

		err := rows.Scan(&entry.ID, &entry.Timestamp, &entry.Action,
			&entry.Collection, &entry.RecordID, &user, &fingerprint)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		entry.UserID = user.String
		entry.Fingerprint = fingerprint.String
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// Count returns total number of audit entries matching filters
func (l *Logger) Count(opts QueryOptions) (int64, error) {
	query := `SELECT COUNT(*) FROM audit_log WHERE 1=1`
	args := []interface{}{}

	if opts.Action != "" {
		query += " AND action = ?"
		args = append(args, opts.Action)
	}
	if opts.Collection != "" {
		query += " AND collection = ?"
		args = append(args, opts.Collection)
	}
	if opts.UserID != "" {
		query += " AND user_id = ?"
		args = append(args, opts.UserID)
	}
	if opts.Since > 0 {
		query += " AND timestamp >= ?"
		args = append(args, opts.Since)
	}
	if opts.Until > 0 {
		query += " AND timestamp <= ?"
		args = append(args, opts.Until)
	}

	var count int64
	err := l.db.QueryRow(query, args...).Scan(&count)
	return count, err
}
