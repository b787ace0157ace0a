package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

// DownloadRecord is one row of the download audit log. Secrets are never
// stored, only the resolved ticker list.
type DownloadRecord struct {
	ID        int64  `json:"id"`
	TS        int64  `json:"ts"`
	Endpoint  string `json:"endpoint"`
	Tickers   string `json:"tickers"`
	RowCount  int    `json:"row_count"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	CreatedAt string `json:"created_at"`
}

func Open(path string) (*Store, error) {
	if path == "" {
		path = "data/tickers.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=3000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS secret_tickers (
			secret TEXT NOT NULL,
			ticker TEXT NOT NULL,
			PRIMARY KEY (secret, ticker)
		);`,
		`CREATE TABLE IF NOT EXISTS downloads (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts INTEGER NOT NULL,
			endpoint TEXT,
			tickers TEXT,
			row_count INTEGER,
			status TEXT,
			error TEXT,
			created_at TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_downloads_ts ON downloads(ts);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// AddTicker associates ticker with secret. Inserting an already-present pair
// is a no-op; the primary key makes concurrent identical writes safe.
func (s *Store) AddTicker(secret, ticker string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store not initialized")
	}
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO secret_tickers (secret, ticker) VALUES (?, ?)`,
		secret, ticker,
	)
	if err != nil {
		return fmt.Errorf("insert ticker: %w", err)
	}
	return nil
}

// ListTickers returns every ticker persisted under secret. Row order is
// whatever sqlite returns; callers must not rely on it.
func (s *Store) ListTickers(secret string) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}
	rows, err := s.db.Query(`SELECT ticker FROM secret_tickers WHERE secret = ?`, secret)
	if err != nil {
		return nil, fmt.Errorf("query tickers: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan ticker: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows tickers: %w", err)
	}
	return out, nil
}

func (s *Store) InsertDownload(d DownloadRecord) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store not initialized")
	}
	if d.CreatedAt == "" {
		d.CreatedAt = time.Now().Format(time.RFC3339)
	}
	_, err := s.db.Exec(
		`INSERT INTO downloads (ts, endpoint, tickers, row_count, status, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.TS, d.Endpoint, d.Tickers, d.RowCount, d.Status, d.Error, d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert download: %w", err)
	}
	return nil
}

func (s *Store) QueryDownloads(limit, offset int) ([]DownloadRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}
	if limit <= 0 {
		limit = 200
	}
	if limit > 1000 {
		limit = 1000
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.Query(
		`SELECT id, ts, endpoint, tickers, row_count, status, error, created_at
		 FROM downloads ORDER BY ts DESC, id DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("query downloads: %w", err)
	}
	defer rows.Close()

	var out []DownloadRecord
	for rows.Next() {
		var d DownloadRecord
		if err := rows.Scan(&d.ID, &d.TS, &d.Endpoint, &d.Tickers, &d.RowCount, &d.Status, &d.Error, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan download: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows download: %w", err)
	}
	return out, nil
}
