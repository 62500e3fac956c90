package ledger

// Schema v1 - the original processed-recordings table. Databases written by
// older releases contain exactly this shape, without a schema_version table.
const schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (
  version INTEGER PRIMARY KEY,
  applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS processed (
  guid TEXT PRIMARY KEY,
  transcript_path TEXT NOT NULL,
  updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// Schema v2 - archiving and cached metadata. Applied column by column so an
// older database missing only some of them still upgrades cleanly.
var schemaV2Columns = map[string]string{
	"archive_path":     "ALTER TABLE processed ADD COLUMN archive_path TEXT",
	"title":            "ALTER TABLE processed ADD COLUMN title TEXT",
	"duration_seconds": "ALTER TABLE processed ADD COLUMN duration_seconds REAL",
	"created_at_unix":  "ALTER TABLE processed ADD COLUMN created_at_unix INTEGER",
}
