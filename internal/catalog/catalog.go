// Package catalog merges the live recordings directory, resolved metadata,
// and ledger history into one deduplicated, ordered view.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/franz/memoscribe/internal/ledger"
	"github.com/franz/memoscribe/internal/memo"
)

// Order is the creation-time ordering policy for listings and backlog
// processing
type Order int

const (
	NewestFirst Order = iota
	OldestFirst
)

// ParseOrder normalizes an ordering policy string. Empty input yields the
// default (newest-first).
func ParseOrder(value string) (Order, error) {
	switch value {
	case "", "newest-first", "newest", "recent-first", "desc":
		return NewestFirst, nil
	case "oldest-first", "oldest", "asc":
		return OldestFirst, nil
	default:
		return NewestFirst, fmt.Errorf("invalid processing order %q (use 'newest-first' or 'oldest-first')", value)
	}
}

func (o Order) String() string {
	if o == OldestFirst {
		return "oldest-first"
	}
	return "newest-first"
}

// Entry is a canonical recording annotated with provenance. The flags are
// reporting-only; pipeline correctness never depends on them.
type Entry struct {
	memo.Recording
	ResolvedCreatedAt time.Time // zero when unknown
	InSource          bool      // file present in the recordings directory
	HasTranscript     bool      // transcript recorded in the ledger
	HasArchive        bool      // original relocated to the archive
}

// Build produces the ordered, deduplicated union of the recordings
// directory and the resolved metadata, annotated from the ledger. Trashed
// recordings are excluded; metadata-only records (recently deleted files
// still known to the store) are included.
//
// Directory enumeration errors are fatal to this call. The ledgerRecords
// map may be nil.
func Build(recordingsDir string, records map[string]memo.Recording, ledgerRecords map[string]ledger.Record, order Order) ([]Entry, error) {
	dirEntries, err := os.ReadDir(recordingsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read recordings directory %s: %w", recordingsDir, err)
	}

	var entries []Entry
	seen := make(map[string]bool)

	for _, de := range dirEntries {
		if de.IsDir() || !memo.IsAudioFile(de.Name()) {
			continue
		}
		path := filepath.Join(recordingsDir, de.Name())
		id := memo.IDFromPath(path)
		seen[id] = true

		rec, ok := records[id]
		if ok {
			if rec.Trashed {
				continue
			}
			rec.Path = path
		} else {
			// No metadata for this file; synthesize a minimal record
			rec = memo.Recording{ID: id, Path: path}
		}
		entries = append(entries, annotate(rec, true, ledgerRecords))
	}

	// Metadata-only records: still known to the store but no longer on disk
	for id, rec := range records {
		if seen[id] || rec.Trashed {
			continue
		}
		entries = append(entries, annotate(rec, false, ledgerRecords))
	}

	SortEntries(entries, order)
	return entries, nil
}

func annotate(rec memo.Recording, inSource bool, ledgerRecords map[string]ledger.Record) Entry {
	e := Entry{
		Recording:         rec,
		ResolvedCreatedAt: rec.ResolveCreatedAt(),
		InSource:          inSource,
	}
	if lr, ok := ledgerRecords[rec.ID]; ok {
		e.HasTranscript = lr.TranscriptPath != ""
		e.HasArchive = lr.ArchivePath != ""
	}
	return e
}

// SortEntries orders entries by resolved creation time per the policy.
// An unknown creation time sorts as the earliest possible instant, so it
// comes last under newest-first and first under oldest-first.
func SortEntries(entries []Entry, order Order) {
	sort.SliceStable(entries, func(i, j int) bool {
		if order == NewestFirst {
			return entries[i].ResolvedCreatedAt.After(entries[j].ResolvedCreatedAt)
		}
		return entries[i].ResolvedCreatedAt.Before(entries[j].ResolvedCreatedAt)
	})
}
