// Package ledger persists the durable record of completed transcriptions.
// It is the only source of truth consulted across restarts: an identifier
// present here is never transcribed again.
package ledger

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const currentSchemaVersion = 2

// Record is one completed transcription. ArchivePath, Title, and the cached
// metadata fields are best-effort and may be empty.
type Record struct {
	ID              string
	TranscriptPath  string
	ArchivePath     string
	Title           string
	DurationSeconds float64
	HasDuration     bool
	CreatedAt       time.Time // zero when unknown
	UpdatedAt       time.Time
}

// Store is the durable completion ledger. All operations serialize on a
// single coarse lock; the store is shared between the pipeline worker and
// administrative listing.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open opens or creates the ledger database, transparently applying any
// pending additive schema migrations
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger migration failed: %w", err)
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// CheckIntegrity runs PRAGMA integrity_check on the ledger database
func (s *Store) CheckIntegrity() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result string
	if err := s.db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check query failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}

// migrate applies schema migrations. Migrations are additive only: an
// existing database is never rewritten, only extended.
func (s *Store) migrate() error {
	version, err := s.getSchemaVersion()
	if err != nil {
		return err
	}
	if version >= currentSchemaVersion {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if version < 1 {
		if _, err := tx.Exec(schemaV1); err != nil {
			return fmt.Errorf("failed to apply schema v1: %w", err)
		}
		if err := setSchemaVersion(tx, 1); err != nil {
			return err
		}
	}

	if version < 2 {
		// A database written by an old release may already carry some of
		// these columns; add only the missing ones.
		existing, err := tableColumns(tx, "processed")
		if err != nil {
			return err
		}
		for col, stmt := range schemaV2Columns {
			if existing[col] {
				continue
			}
			if _, err := tx.Exec(stmt); err != nil {
				return fmt.Errorf("failed to add column %s: %w", col, err)
			}
		}
		if err := setSchemaVersion(tx, 2); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}
	return nil
}

func (s *Store) getSchemaVersion() (int, error) {
	var exists int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&exists)
	if err != nil {
		return 0, err
	}
	if exists == 0 {
		return 0, nil
	}

	var version int
	err = s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

func setSchemaVersion(tx *sql.Tx, version int) error {
	if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
		return fmt.Errorf("failed to set schema version: %w", err)
	}
	return nil
}

func tableColumns(tx *sql.Tx, table string) (map[string]bool, error) {
	rows, err := tx.Query(fmt.Sprintf("PRAGMA table_info(%q)", table))
	if err != nil {
		return nil, fmt.Errorf("failed to inspect table %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

// Upsert records a completed transcription. Writing is insert-or-replace,
// never delete: re-processing the same identifier overwrites the previous
// row in place.
func (s *Store) Upsert(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var createdAt sql.NullInt64
	if !rec.CreatedAt.IsZero() {
		createdAt = sql.NullInt64{Int64: rec.CreatedAt.Unix(), Valid: true}
	}
	var duration sql.NullFloat64
	if rec.HasDuration {
		duration = sql.NullFloat64{Float64: rec.DurationSeconds, Valid: true}
	}

	_, err := s.db.Exec(`
		INSERT INTO processed (guid, transcript_path, archive_path, title, duration_seconds, created_at_unix)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(guid) DO UPDATE SET
			transcript_path = excluded.transcript_path,
			archive_path = excluded.archive_path,
			title = excluded.title,
			duration_seconds = excluded.duration_seconds,
			created_at_unix = excluded.created_at_unix,
			updated_at = CURRENT_TIMESTAMP
	`, rec.ID, rec.TranscriptPath, nullString(rec.ArchivePath), nullString(rec.Title), duration, createdAt)

	if err != nil {
		return fmt.Errorf("failed to upsert ledger record %s: %w", rec.ID, err)
	}
	return nil
}

// KnownIDs returns the set of identifiers with a completed transcription
func (s *Store) KnownIDs() (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query("SELECT guid FROM processed")
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan ledger row: %w", err)
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

// Get retrieves the transcript and archive locations for an identifier.
// Returns (Record{}, false, nil) when the identifier is unknown.
func (s *Store) Get(id string) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := scanRecord(s.db.QueryRow(selectRecord+" WHERE guid = ?", id))
	if err == sql.ErrNoRows {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("failed to get ledger record %s: %w", id, err)
	}
	return rec, true, nil
}

// AllRecords returns every ledger record
func (s *Store) AllRecords() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(selectRecord + " ORDER BY guid")
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

const selectRecord = `
	SELECT guid, transcript_path,
	       COALESCE(archive_path, ''), COALESCE(title, ''),
	       duration_seconds, created_at_unix, updated_at
	FROM processed`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		rec       Record
		duration  sql.NullFloat64
		createdAt sql.NullInt64
	)
	err := row.Scan(&rec.ID, &rec.TranscriptPath, &rec.ArchivePath, &rec.Title,
		&duration, &createdAt, &rec.UpdatedAt)
	if err != nil {
		return Record{}, err
	}
	if duration.Valid {
		rec.DurationSeconds = duration.Float64
		rec.HasDuration = true
	}
	if createdAt.Valid {
		rec.CreatedAt = time.Unix(createdAt.Int64, 0).UTC()
	}
	return rec, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
