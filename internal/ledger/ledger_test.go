package ledger

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"
)

func TestOpenAndMigrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.sqlite")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open ledger: %v", err)
	}
	defer store.Close()

	version, err := store.getSchemaVersion()
	if err != nil {
		t.Fatalf("failed to get schema version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("expected schema version %d, got %d", currentSchemaVersion, version)
	}
}

func TestUpgradeFromLegacySchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.sqlite")

	// Build a database exactly as an old release would have left it: the
	// v1 processed table, one row, and no schema_version table.
	db, err := sql.Open("sqlite", "file:"+path)
	if err != nil {
		t.Fatalf("failed to create legacy db: %v", err)
	}
	stmts := []string{
		`CREATE TABLE processed (
			guid TEXT PRIMARY KEY,
			transcript_path TEXT NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`INSERT INTO processed (guid, transcript_path) VALUES ('old-rec', '/t/old.txt')`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("failed to execute %q: %v", stmt, err)
		}
	}
	db.Close()

	store, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open legacy ledger: %v", err)
	}
	defer store.Close()

	// The legacy row must survive the upgrade with empty new columns
	rec, ok, err := store.Get("old-rec")
	if err != nil {
		t.Fatalf("failed to get legacy record: %v", err)
	}
	if !ok {
		t.Fatal("expected legacy record to survive migration")
	}
	if rec.TranscriptPath != "/t/old.txt" {
		t.Errorf("expected transcript path preserved, got %q", rec.TranscriptPath)
	}
	if rec.ArchivePath != "" || rec.Title != "" || rec.HasDuration || !rec.CreatedAt.IsZero() {
		t.Errorf("expected empty v2 columns on legacy record, got %+v", rec)
	}

	// New columns must be writable after the upgrade
	err = store.Upsert(Record{
		ID:             "old-rec",
		TranscriptPath: "/t/old.txt",
		ArchivePath:    "/a/old.m4a",
		Title:          "upgraded",
	})
	if err != nil {
		t.Fatalf("failed to upsert after migration: %v", err)
	}
}

func TestUpsertIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.sqlite")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open ledger: %v", err)
	}
	defer store.Close()

	created := time.Date(2024, time.June, 5, 10, 30, 0, 0, time.UTC)
	rec := Record{
		ID:              "abc",
		TranscriptPath:  "/t/one.txt",
		Title:           "note",
		DurationSeconds: 12.5,
		HasDuration:     true,
		CreatedAt:       created,
	}

	if err := store.Upsert(rec); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}

	rec.TranscriptPath = "/t/two.txt"
	if err := store.Upsert(rec); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	got, ok, err := store.Get("abc")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !ok {
		t.Fatal("expected record")
	}
	if got.TranscriptPath != "/t/two.txt" {
		t.Errorf("expected upsert to replace transcript path, got %q", got.TranscriptPath)
	}
	if got.Title != "note" || !got.HasDuration || got.DurationSeconds != 12.5 {
		t.Errorf("expected cached metadata preserved, got %+v", got)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("expected created at %v, got %v", created, got.CreatedAt)
	}

	ids, err := store.KnownIDs()
	if err != nil {
		t.Fatalf("KnownIDs failed: %v", err)
	}
	if len(ids) != 1 {
		t.Errorf("expected exactly one known id after double upsert, got %d", len(ids))
	}
}

func TestGetUnknownID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.sqlite")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open ledger: %v", err)
	}
	defer store.Close()

	_, ok, err := store.Get("nope")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if ok {
		t.Error("expected unknown id to report not found")
	}
}

func TestAllRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.sqlite")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open ledger: %v", err)
	}
	defer store.Close()

	for _, id := range []string{"b", "a", "c"} {
		if err := store.Upsert(Record{ID: id, TranscriptPath: "/t/" + id + ".txt"}); err != nil {
			t.Fatalf("upsert %s failed: %v", id, err)
		}
	}

	records, err := store.AllRecords()
	if err != nil {
		t.Fatalf("AllRecords failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for i, want := range []string{"a", "b", "c"} {
		if records[i].ID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, records[i].ID)
		}
	}
}
