// Package metrics persists per-invocation statistics to a local SQLite file.
// The store is append-mostly; reads aggregate by command for the stats CLI
// and the admin API.
package metrics

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Invocation is a single handled command, as persisted for stats.
type Invocation struct {
	ID              int64     `json:"id,omitempty"`
	Command         string    `json:"command"`
	RequestID       string    `json:"requestId,omitempty"`
	CacheHit        bool      `json:"cacheHit"`
	TotalResults    int       `json:"totalResults"`
	ReturnedResults int       `json:"returnedResults"`
	Truncated       bool      `json:"truncated"`
	EngineMs        int64     `json:"engineMs"`
	ResponseBytes   int       `json:"responseBytes"`
	Failed          bool      `json:"failed"`
	Code            string    `json:"code,omitempty"`
	RecordedAt      time.Time `json:"recordedAt"`
}

// Aggregate is the per-command rollup of invocation records.
type Aggregate struct {
	Command       string  `json:"command"`
	Invocations   int64   `json:"invocations"`
	CacheHits     int64   `json:"cacheHits"`
	Failures      int64   `json:"failures"`
	TotalResults  int64   `json:"totalResults"`
	TotalReturned int64   `json:"totalReturned"`
	TruncatedRuns int64   `json:"truncatedRuns"`
	TotalBytes    int64   `json:"totalBytes"`
	TotalMs       int64   `json:"totalMs"`
	HitRate       float64 `json:"hitRate"`
	AvgMs         float64 `json:"avgMs"`
}

// computeRates fills the derived fields from the summed columns.
func (a *Aggregate) computeRates() {
	if a.Invocations > 0 {
		a.HitRate = float64(a.CacheHits) / float64(a.Invocations)
		a.AvgMs = float64(a.TotalMs) / float64(a.Invocations)
	}
}

// Store wraps the SQLite connection holding invocation records.
type Store struct {
	conn   *sql.DB
	logger *slog.Logger
	dbPath string
}

// Open opens or creates the metrics database at dbPath.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create metrics directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open metrics database: %w", err)
	}

	// Set pragmas for performance and reliability
	pragmas := []string{
		"PRAGMA journal_mode=WAL",   // Write-Ahead Logging for better concurrency
		"PRAGMA synchronous=NORMAL", // Balance between safety and performance
		"PRAGMA busy_timeout=5000",  // Wait up to 5 seconds on lock
		"PRAGMA temp_store=MEMORY",  // Use memory for temp tables
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	store := &Store{conn: conn, logger: logger, dbPath: dbPath}
	if err := store.initializeSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize metrics schema: %w", err)
	}

	return store, nil
}

func (s *Store) initializeSchema() error {
	_, err := s.conn.Exec(`
		CREATE TABLE IF NOT EXISTS invocations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			command TEXT NOT NULL,
			request_id TEXT,
			cache_hit INTEGER NOT NULL DEFAULT 0,
			total_results INTEGER NOT NULL DEFAULT 0,
			returned_results INTEGER NOT NULL DEFAULT 0,
			truncated INTEGER NOT NULL DEFAULT 0,
			engine_ms INTEGER NOT NULL DEFAULT 0,
			response_bytes INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0,
			code TEXT,
			recorded_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_invocations_recorded ON invocations(recorded_at);
		CREATE INDEX IF NOT EXISTS idx_invocations_command ON invocations(command);
	`)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.dbPath
}

// RecordInvocation persists one handled command. A nil store drops the
// record, so callers never need to branch on metrics being disabled.
func (s *Store) RecordInvocation(inv Invocation) error {
	if s == nil {
		return nil
	}

	recordedAt := inv.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}

	_, err := s.conn.Exec(`
		INSERT INTO invocations (
			command, request_id, cache_hit, total_results, returned_results,
			truncated, engine_ms, response_bytes, failed, code, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, inv.Command, inv.RequestID, boolToInt(inv.CacheHit), inv.TotalResults,
		inv.ReturnedResults, boolToInt(inv.Truncated), inv.EngineMs,
		inv.ResponseBytes, boolToInt(inv.Failed), inv.Code,
		recordedAt.UTC().Format(time.RFC3339))
	return err
}

// Aggregates returns per-command rollups for records at or after since.
func (s *Store) Aggregates(since time.Time) (map[string]*Aggregate, error) {
	rows, err := s.conn.Query(`
		SELECT
			command,
			COUNT(*) as invocations,
			SUM(cache_hit) as cache_hits,
			SUM(failed) as failures,
			SUM(total_results) as total_results,
			SUM(returned_results) as total_returned,
			SUM(truncated) as truncated_runs,
			COALESCE(SUM(response_bytes), 0) as total_bytes,
			SUM(engine_ms) as total_ms
		FROM invocations
		WHERE recorded_at >= ?
		GROUP BY command
		ORDER BY invocations DESC
	`, since.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]*Aggregate)
	for rows.Next() {
		var agg Aggregate
		if err := rows.Scan(
			&agg.Command,
			&agg.Invocations,
			&agg.CacheHits,
			&agg.Failures,
			&agg.TotalResults,
			&agg.TotalReturned,
			&agg.TruncatedRuns,
			&agg.TotalBytes,
			&agg.TotalMs,
		); err != nil {
			return nil, err
		}
		agg.computeRates()
		result[agg.Command] = &agg
	}

	return result, rows.Err()
}

// Recent returns the newest records, optionally filtered by command.
func (s *Store) Recent(limit int, command string) ([]Invocation, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows *sql.Rows
	var err error
	if command != "" {
		rows, err = s.conn.Query(`
			SELECT id, command, request_id, cache_hit, total_results,
			       returned_results, truncated, engine_ms, response_bytes,
			       failed, code, recorded_at
			FROM invocations
			WHERE command = ?
			ORDER BY id DESC
			LIMIT ?
		`, command, limit)
	} else {
		rows, err = s.conn.Query(`
			SELECT id, command, request_id, cache_hit, total_results,
			       returned_results, truncated, engine_ms, response_bytes,
			       failed, code, recorded_at
			FROM invocations
			ORDER BY id DESC
			LIMIT ?
		`, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Invocation
	for rows.Next() {
		var inv Invocation
		var cacheHit, truncated, failed int
		var requestID, code sql.NullString
		var recordedAt string
		if err := rows.Scan(
			&inv.ID, &inv.Command, &requestID, &cacheHit, &inv.TotalResults,
			&inv.ReturnedResults, &truncated, &inv.EngineMs, &inv.ResponseBytes,
			&failed, &code, &recordedAt,
		); err != nil {
			return nil, err
		}
		inv.RequestID = requestID.String
		inv.Code = code.String
		inv.CacheHit = cacheHit != 0
		inv.Truncated = truncated != 0
		inv.Failed = failed != 0
		inv.RecordedAt, _ = time.Parse(time.RFC3339, recordedAt)
		records = append(records, inv)
	}

	return records, rows.Err()
}

// Cleanup removes records older than the retention period.
func (s *Store) Cleanup(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).UTC().Format(time.RFC3339)
	result, err := s.conn.Exec(`DELETE FROM invocations WHERE recorded_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Stats returns the record count and the covered time range.
func (s *Store) Stats() (totalRecords int64, oldest, newest *time.Time, err error) {
	var oldestStr, newestStr sql.NullString
	err = s.conn.QueryRow(`
		SELECT COUNT(*), MIN(recorded_at), MAX(recorded_at) FROM invocations
	`).Scan(&totalRecords, &oldestStr, &newestStr)
	if err == sql.ErrNoRows {
		return 0, nil, nil, nil
	}
	if err != nil {
		return 0, nil, nil, err
	}

	if oldestStr.Valid {
		if t, parseErr := time.Parse(time.RFC3339, oldestStr.String); parseErr == nil {
			oldest = &t
		}
	}
	if newestStr.Valid {
		if t, parseErr := time.Parse(time.RFC3339, newestStr.String); parseErr == nil {
			newest = &t
		}
	}
	return
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
