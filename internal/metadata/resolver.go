// Package metadata resolves recording metadata out of the Voice Memos
// sqlite store. The store's schema is not fixed across application versions,
// so both the table and the individual columns are discovered at runtime.
package metadata

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/franz/memoscribe/internal/memo"
	"github.com/franz/memoscribe/internal/util"

	_ "modernc.org/sqlite" // SQLite driver
)

// Resolver extracts canonical recordings from a metadata store
type Resolver struct {
	StorePath       string // primary metadata database
	LegacyStorePath string // optional fallback for older app versions
	ContainerRoot   string // base for relative path columns
	RecordingsDir   string // fallback location for records without a path column
}

// Load produces a mapping from identifier to canonical recording.
//
// A missing store yields an empty mapping (falling back to the legacy store
// when one is configured). Permission-denied opening the store is surfaced
// as an explicit error wrapping util.ErrPermission so callers can prompt the
// operator. Any other open or query failure is logged and degrades to an
// empty mapping.
func (r *Resolver) Load() (map[string]memo.Recording, error) {
	records, err := r.loadStore(r.StorePath)
	if err == nil {
		return records, nil
	}
	if util.IsPermission(err) {
		return nil, fmt.Errorf("%w: cannot read metadata store %s (grant Full Disk Access in System Settings)",
			util.ErrPermission, r.StorePath)
	}

	if errors.Is(err, util.ErrNotFound) {
		if r.LegacyStorePath != "" {
			util.DebugLog("Metadata store %s not found, trying legacy store %s", r.StorePath, r.LegacyStorePath)
			records, lerr := r.loadStore(r.LegacyStorePath)
			if lerr == nil {
				return records, nil
			}
			if util.IsPermission(lerr) {
				return nil, fmt.Errorf("%w: cannot read metadata store %s (grant Full Disk Access in System Settings)",
					util.ErrPermission, r.LegacyStorePath)
			}
			util.DebugLog("Legacy metadata store unavailable: %v", lerr)
		} else {
			util.DebugLog("Metadata store not found at %s", r.StorePath)
		}
		return map[string]memo.Recording{}, nil
	}

	if errors.Is(err, util.ErrNoTable) {
		util.WarnLog("No recording table found in %s, continuing without metadata", r.StorePath)
		return map[string]memo.Recording{}, nil
	}

	util.WarnLog("Metadata store unreadable, continuing without metadata: %v", err)
	return map[string]memo.Recording{}, nil
}

// loadStore opens a single store read-only and extracts all recordings
func (r *Resolver) loadStore(path string) (map[string]memo.Recording, error) {
	if path == "" {
		return nil, util.ErrNotFound
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, util.ErrNotFound
		}
		return nil, err
	}

	// Read-only so we never take a lock the recording application could
	// block on, or be blocked by.
	dsn := fmt.Sprintf("file:%s?mode=ro", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata store: %w", err)
	}
	defer db.Close()

	table, err := discoverTable(db)
	if err != nil {
		return nil, err
	}

	return r.extractRecords(db, table)
}

// discoverTable locates the recording table. Known table names are tried
// first; failing that, every table is scanned for a column set that carries
// at least one GUID-like and one title-like column plus a date-like or
// duration-like column.
func discoverTable(db *sql.DB) (string, error) {
	existing, err := listTables(db)
	if err != nil {
		return "", fmt.Errorf("failed to list tables: %w", err)
	}

	for _, name := range knownTables {
		if existing[name] {
			return name, nil
		}
	}

	for name := range existing {
		cols, err := tableColumns(db, name)
		if err != nil {
			util.DebugLog("Skipping table %s: %v", name, err)
			continue
		}
		if hasAny(cols, guidColumns) && hasAny(cols, titleColumns) &&
			(hasAny(cols, dateColumns) || hasAny(cols, durationColumns)) {
			util.DebugLog("Discovered recording table %s by column heuristic", name)
			return name, nil
		}
	}

	return "", util.ErrNoTable
}

func listTables(db *sql.DB) (map[string]bool, error) {
	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type = 'table'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tables := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables[name] = true
	}
	return tables, rows.Err()
}

func tableColumns(db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%q)", table))
	if err != nil {
		return nil, err
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

func hasAny(cols map[string]bool, candidates []string) bool {
	for _, c := range candidates {
		if cols[c] {
			return true
		}
	}
	return false
}

// extractRecords reads every row of the recording table and resolves each
// canonical field through its candidate column list
func (r *Resolver) extractRecords(db *sql.DB, table string) (map[string]memo.Recording, error) {
	rows, err := db.Query(fmt.Sprintf("SELECT * FROM %q", table))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	records := make(map[string]memo.Recording)
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(rowMap, len(columns))
		for i, name := range columns {
			row[name] = values[i]
		}

		rec, ok := r.recordFromRow(row)
		if !ok {
			continue
		}
		records[rec.ID] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return records, nil
}

// recordFromRow builds one canonical recording from a row. Rows without any
// usable identifier are dropped.
func (r *Resolver) recordFromRow(row rowMap) (memo.Recording, bool) {
	id := row.pickString(guidColumns)
	if id == "" {
		// Fall back to the row primary key
		id = row.pickString([]string{primaryKeyCol})
	}
	if id == "" {
		return memo.Recording{}, false
	}

	rec := memo.Recording{
		ID:        id,
		Path:      r.resolvePath(row, id),
		Title:     strings.TrimSpace(row.pickString(titleColumns)),
		CreatedAt: row.pickTime(dateColumns),
		Trashed:   row.pickTruthy(trashColumns),
	}
	if d, ok := row.pickFloat(durationColumns); ok && d >= 0 {
		rec.DurationSeconds = d
		rec.HasDuration = true
	}
	return rec, true
}

// resolvePath interprets the path column value. A file:// prefix is
// stripped, ~/ expands to the user home, absolute paths pass through, and
// relative paths resolve against the store's container root. Records with
// no path column fall back to <recordings-dir>/<id>.m4a.
func (r *Resolver) resolvePath(row rowMap, id string) string {
	p := row.pickString(pathColumns)
	if p == "" {
		return filepath.Join(r.RecordingsDir, id+memo.AudioExtension)
	}

	p = strings.TrimPrefix(p, "file://")
	p = util.ExpandHome(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(r.ContainerRoot, p)
}
