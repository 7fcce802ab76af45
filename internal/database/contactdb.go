package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/contactscan/internal/model"
)

// FileName is the database file name inside the data directory.
const FileName = "contactscan.db"

// ContactDB provides SQLite-based storage for contacts and page loads.
// It implements store.KV and store.Deleter.
type ContactDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures ContactDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a ContactDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*ContactDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (run a scan first)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &ContactDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Close closes the database connection.
func (cdb *ContactDB) Close() error {
	return cdb.db.Close()
}

// Path returns the database file path.
func (cdb *ContactDB) Path() string {
	return cdb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (cdb *ContactDB) createTables() error {
	schema := `
	-- Key-value pairs: the contact collection and scanning flags
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Page loads record the last content seen for each target
	CREATE TABLE IF NOT EXISTS pages (
		target TEXT PRIMARY KEY,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		status_code INTEGER,
		content_type TEXT,
		title TEXT,
		raw_hash TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_pages_timestamp ON pages(timestamp);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// Get returns the value stored under key.
func (cdb *ContactDB) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := cdb.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous value.
func (cdb *ContactDB) Set(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}

	query := `
	INSERT INTO kv (key, value) VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET
		value = excluded.value,
		updated_at = CURRENT_TIMESTAMP
	`
	if _, err := cdb.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (cdb *ContactDB) Delete(ctx context.Context, key string) error {
	if _, err := cdb.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Keys returns every stored key in lexical order.
func (cdb *ContactDB) Keys(ctx context.Context) ([]string, error) {
	rows, err := cdb.db.QueryContext(ctx, `SELECT key FROM kv ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// PageRecord represents a stored page load.
type PageRecord struct {
	Target      string
	Timestamp   time.Time
	StatusCode  int
	ContentType string
	Title       string
	RawHash     string
}

// RecordPage inserts or updates the load record for page.Target.
func (cdb *ContactDB) RecordPage(ctx context.Context, page *model.Page) error {
	query := `
	INSERT INTO pages (target, status_code, content_type, title, raw_hash)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(target) DO UPDATE SET
		status_code = excluded.status_code,
		content_type = excluded.content_type,
		title = excluded.title,
		raw_hash = excluded.raw_hash,
		timestamp = CURRENT_TIMESTAMP
	`

	_, err := cdb.db.ExecContext(ctx, query,
		page.Target,
		page.StatusCode,
		page.ContentType,
		page.Title,
		page.Hash,
	)
	if err != nil {
		return fmt.Errorf("failed to record page: %w", err)
	}
	return nil
}

// GetPage returns the load record for target, or nil if none exists.
func (cdb *ContactDB) GetPage(ctx context.Context, target string) (*PageRecord, error) {
	query := `
	SELECT target, timestamp, status_code, content_type, title, raw_hash
	FROM pages
	WHERE target = ?
	`

	var record PageRecord
	var timestamp string

	err := cdb.db.QueryRowContext(ctx, query, target).Scan(
		&record.Target,
		&timestamp,
		&record.StatusCode,
		&record.ContentType,
		&record.Title,
		&record.RawHash,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page: %w", err)
	}

	record.Timestamp = parseTimestamp(timestamp)
	return &record, nil
}

// ListPages returns every page record, most recent first.
func (cdb *ContactDB) ListPages(ctx context.Context) ([]PageRecord, error) {
	query := `
	SELECT target, timestamp, status_code, content_type, title, raw_hash
	FROM pages
	ORDER BY timestamp DESC, target
	`

	rows, err := cdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	defer rows.Close()

	var records []PageRecord
	for rows.Next() {
		var record PageRecord
		var timestamp string
		if err := rows.Scan(
			&record.Target,
			&timestamp,
			&record.StatusCode,
			&record.ContentType,
			&record.Title,
			&record.RawHash,
		); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		record.Timestamp = parseTimestamp(timestamp)
		records = append(records, record)
	}
	return records, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
