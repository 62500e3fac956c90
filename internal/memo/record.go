// Package memo defines the canonical recording descriptor shared by the
// metadata resolver, the catalog, and the ingestion pipeline.
package memo

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/franz/memoscribe/internal/util"
)

// AudioExtension is the recording file suffix produced by Voice Memos
const AudioExtension = ".m4a"

// Recording is the normalized descriptor for one voice memo, independent of
// the metadata store's schema version. ID is non-empty and stable; Path may
// point at a file that does not yet, or no longer, exists on disk.
type Recording struct {
	ID              string
	Path            string
	Title           string
	CreatedAt       time.Time // zero when unknown
	DurationSeconds float64   // 0 when unknown
	HasDuration     bool
	Trashed         bool
}

// IDFromPath derives a recording identifier from a file path (the filename
// without its extension)
func IDFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// IsAudioFile reports whether the path carries the recording suffix
// (case-insensitive)
func IsAudioFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), AudioExtension)
}

// DisplayName returns the best human-readable label for a recording:
// the trimmed title when present, otherwise the filename stem, otherwise
// the identifier.
func (r Recording) DisplayName() string {
	if title := strings.TrimSpace(r.Title); title != "" {
		return title
	}
	if stem := IDFromPath(r.Path); stem != "" {
		return stem
	}
	return r.ID
}

// ResolveCreatedAt returns the recording's creation time: the metadata
// timestamp when present, else the on-disk creation time if the file exists,
// else a zero time.
func (r Recording) ResolveCreatedAt() time.Time {
	if !r.CreatedAt.IsZero() {
		return r.CreatedAt
	}
	if t, ok := util.FileCreationTime(r.Path); ok {
		return t
	}
	return time.Time{}
}
