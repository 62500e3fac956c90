package metadata

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/franz/memoscribe/internal/util"
)

// createStore builds a sqlite fixture at path with the given statements
func createStore(t *testing.T, path string, stmts ...string) {
	t.Helper()

	db, err := sql.Open("sqlite", "file:"+path)
	if err != nil {
		t.Fatalf("failed to open fixture store: %v", err)
	}
	defer db.Close()

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("failed to execute %q: %v", stmt, err)
		}
	}
}

func newResolver(dir, store string) *Resolver {
	return &Resolver{
		StorePath:     store,
		ContainerRoot: dir,
		RecordingsDir: filepath.Join(dir, "Recordings"),
	}
}

func TestResolverTitleColumnPriority(t *testing.T) {
	dir := t.TempDir()
	store := filepath.Join(dir, "CloudRecordings.db")
	createStore(t, store,
		`CREATE TABLE ZCLOUDRECORDING (ZUUID TEXT, ZTITLE TEXT, ZNAME TEXT, ZCREATIONDATE REAL)`,
		`INSERT INTO ZCLOUDRECORDING VALUES ('both', 'A', 'B', 0)`,
		`INSERT INTO ZCLOUDRECORDING VALUES ('only-zname', NULL, 'B', 0)`,
	)

	records, err := newResolver(dir, store).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := records["both"].Title; got != "A" {
		t.Errorf("expected ZTITLE to win, got %q", got)
	}
	if got := records["only-zname"].Title; got != "B" {
		t.Errorf("expected ZNAME fallback, got %q", got)
	}
}

func TestResolverEpochConversion(t *testing.T) {
	dir := t.TempDir()
	store := filepath.Join(dir, "CloudRecordings.db")
	createStore(t, store,
		`CREATE TABLE ZCLOUDRECORDING (ZUUID TEXT, ZTITLE TEXT, ZCREATIONDATE REAL)`,
		`INSERT INTO ZCLOUDRECORDING VALUES ('zero', 't', 0)`,
		`INSERT INTO ZCLOUDRECORDING VALUES ('day', 't', 86400)`,
		`INSERT INTO ZCLOUDRECORDING VALUES ('unknown', 't', NULL)`,
	)

	records, err := newResolver(dir, store).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)
	if got := records["zero"].CreatedAt; !got.Equal(want) {
		t.Errorf("expected %v for date 0, got %v", want, got)
	}
	want = time.Date(2001, time.January, 2, 0, 0, 0, 0, time.UTC)
	if got := records["day"].CreatedAt; !got.Equal(want) {
		t.Errorf("expected %v for date 86400, got %v", want, got)
	}
	if got := records["unknown"].CreatedAt; !got.IsZero() {
		t.Errorf("expected zero time for NULL date, got %v", got)
	}
}

func TestResolverTrashedFlag(t *testing.T) {
	dir := t.TempDir()
	store := filepath.Join(dir, "CloudRecordings.db")
	createStore(t, store,
		`CREATE TABLE ZCLOUDRECORDING (ZUUID TEXT, ZTITLE TEXT, ZCREATIONDATE REAL, ZTRASHED)`,
		`INSERT INTO ZCLOUDRECORDING VALUES ('kept-null', 't', 0, NULL)`,
		`INSERT INTO ZCLOUDRECORDING VALUES ('kept-zero', 't', 0, 0)`,
		`INSERT INTO ZCLOUDRECORDING VALUES ('kept-no', 't', 0, 'no')`,
		`INSERT INTO ZCLOUDRECORDING VALUES ('kept-false', 't', 0, 'false')`,
		`INSERT INTO ZCLOUDRECORDING VALUES ('gone-one', 't', 0, 1)`,
		`INSERT INTO ZCLOUDRECORDING VALUES ('gone-yes', 't', 0, 'yes')`,
	)

	records, err := newResolver(dir, store).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	for _, id := range []string{"kept-null", "kept-zero", "kept-no", "kept-false"} {
		if records[id].Trashed {
			t.Errorf("expected %s to not be trashed", id)
		}
	}
	for _, id := range []string{"gone-one", "gone-yes"} {
		if !records[id].Trashed {
			t.Errorf("expected %s to be trashed", id)
		}
	}
}

func TestResolverDuration(t *testing.T) {
	dir := t.TempDir()
	store := filepath.Join(dir, "CloudRecordings.db")
	createStore(t, store,
		`CREATE TABLE ZCLOUDRECORDING (ZUUID TEXT, ZTITLE TEXT, ZCREATIONDATE REAL, ZDURATION REAL)`,
		`INSERT INTO ZCLOUDRECORDING VALUES ('with', 't', 0, 42.5)`,
		`INSERT INTO ZCLOUDRECORDING VALUES ('without', 't', 0, NULL)`,
	)

	records, err := newResolver(dir, store).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	rec := records["with"]
	if !rec.HasDuration || rec.DurationSeconds != 42.5 {
		t.Errorf("expected duration 42.5, got %v (has=%v)", rec.DurationSeconds, rec.HasDuration)
	}
	if records["without"].HasDuration {
		t.Error("expected no duration for NULL value")
	}
}

func TestResolverTableDiscoveryHeuristic(t *testing.T) {
	dir := t.TempDir()
	store := filepath.Join(dir, "Recents.sqlite")
	createStore(t, store,
		// Not the recording table: no GUID-like column
		`CREATE TABLE settings (key TEXT, value TEXT)`,
		// Unknown table name, qualifying column set
		`CREATE TABLE ZMEMOENTRY (ZUUID TEXT, ZNAME TEXT, ZDATE REAL)`,
		`INSERT INTO ZMEMOENTRY VALUES ('abc', 'Memo', 86400)`,
	)

	records, err := newResolver(dir, store).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(records) != 1 {
		t.Fatalf("expected 1 record from discovered table, got %d", len(records))
	}
	if records["abc"].Title != "Memo" {
		t.Errorf("expected title from discovered table, got %q", records["abc"].Title)
	}
}

func TestResolverNoQualifyingTable(t *testing.T) {
	dir := t.TempDir()
	store := filepath.Join(dir, "CloudRecordings.db")
	createStore(t, store,
		`CREATE TABLE settings (key TEXT, value TEXT)`,
	)

	records, err := newResolver(dir, store).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected empty result for schema mismatch, got %d records", len(records))
	}
}

func TestResolverMissingStore(t *testing.T) {
	dir := t.TempDir()

	records, err := newResolver(dir, filepath.Join(dir, "nope.db")).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected empty result for missing store, got %d records", len(records))
	}
}

func TestResolverLegacyFallback(t *testing.T) {
	dir := t.TempDir()
	legacy := filepath.Join(dir, "Recents.sqlite")
	createStore(t, legacy,
		`CREATE TABLE ZVOICE (ZUUID TEXT, ZTITLE TEXT, ZDATE REAL)`,
		`INSERT INTO ZVOICE VALUES ('legacy-rec', 'Old', 0)`,
	)

	r := newResolver(dir, filepath.Join(dir, "missing.db"))
	r.LegacyStorePath = legacy

	records, err := r.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if records["legacy-rec"].Title != "Old" {
		t.Errorf("expected record from legacy store, got %+v", records["legacy-rec"])
	}
}

func TestResolverPrimaryKeyFallback(t *testing.T) {
	dir := t.TempDir()
	store := filepath.Join(dir, "CloudRecordings.db")
	createStore(t, store,
		`CREATE TABLE ZCLOUDRECORDING (Z_PK INTEGER PRIMARY KEY, ZTITLE TEXT, ZCREATIONDATE REAL)`,
		`INSERT INTO ZCLOUDRECORDING VALUES (7, 'No GUID', 0)`,
	)

	records, err := newResolver(dir, store).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, ok := records["7"]; !ok {
		t.Fatalf("expected identifier from primary key, got %d records", len(records))
	}
}

func TestResolverPathResolution(t *testing.T) {
	dir := t.TempDir()
	store := filepath.Join(dir, "CloudRecordings.db")
	createStore(t, store,
		`CREATE TABLE ZCLOUDRECORDING (ZUUID TEXT, ZTITLE TEXT, ZCREATIONDATE REAL, ZPATH TEXT)`,
		`INSERT INTO ZCLOUDRECORDING VALUES ('uri', 't', 0, 'file:///tmp/recordings/uri.m4a')`,
		`INSERT INTO ZCLOUDRECORDING VALUES ('abs', 't', 0, '/var/audio/abs.m4a')`,
		`INSERT INTO ZCLOUDRECORDING VALUES ('rel', 't', 0, 'Recordings/rel.m4a')`,
		`INSERT INTO ZCLOUDRECORDING VALUES ('none', 't', 0, NULL)`,
	)

	records, err := newResolver(dir, store).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	cases := map[string]string{
		"uri":  "/tmp/recordings/uri.m4a",
		"abs":  "/var/audio/abs.m4a",
		"rel":  filepath.Join(dir, "Recordings", "rel.m4a"),
		"none": filepath.Join(dir, "Recordings", "none.m4a"),
	}
	for id, want := range cases {
		if got := records[id].Path; got != want {
			t.Errorf("%s: expected path %q, got %q", id, want, got)
		}
	}
}

func TestCacheRecordForPathSynthesizes(t *testing.T) {
	dir := t.TempDir()
	cache := NewCache(newResolver(dir, filepath.Join(dir, "missing.db")))

	path := filepath.Join(dir, "Recordings", "ABCD.m4a")
	rec := cache.RecordForPath(path)

	if rec.ID != "ABCD" {
		t.Errorf("expected synthesized ID ABCD, got %q", rec.ID)
	}
	if rec.Path != path {
		t.Errorf("expected path %q, got %q", path, rec.Path)
	}
	if rec.Title != "" || !rec.CreatedAt.IsZero() || rec.HasDuration {
		t.Errorf("expected minimal record, got %+v", rec)
	}
}

func TestCacheRecordForPathRepoints(t *testing.T) {
	dir := t.TempDir()
	store := filepath.Join(dir, "CloudRecordings.db")
	createStore(t, store,
		`CREATE TABLE ZCLOUDRECORDING (ZUUID TEXT, ZTITLE TEXT, ZCREATIONDATE REAL)`,
		`INSERT INTO ZCLOUDRECORDING VALUES ('moved', 'Title', 0)`,
	)

	cache := NewCache(newResolver(dir, store))
	if err := cache.Refresh(); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	newPath := filepath.Join(dir, "elsewhere", "moved.m4a")
	rec := cache.RecordForPath(newPath)
	if rec.Path != newPath {
		t.Errorf("expected repointed path %q, got %q", newPath, rec.Path)
	}
	if rec.Title != "Title" {
		t.Errorf("expected metadata title preserved, got %q", rec.Title)
	}
}

func TestLoadStoreNotFoundError(t *testing.T) {
	r := newResolver(t.TempDir(), "")
	if _, err := r.loadStore("/does/not/exist.db"); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
