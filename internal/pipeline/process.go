package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ncruces/go-strftime"

	"github.com/franz/memoscribe/internal/ledger"
	"github.com/franz/memoscribe/internal/memo"
	"github.com/franz/memoscribe/internal/util"
)

const timestampFormat = "%Y-%m-%d_%H-%M-%S"

// process runs one recording through readiness checks, metadata
// re-resolution, transcription, transcript write, optional archiving, and
// the ledger upsert
func (p *Pipeline) process(ctx context.Context, path string) Outcome {
	id := memo.IDFromPath(path)

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			util.WarnLog("Skipping missing recording %s", id)
		} else {
			util.WarnLog("Skipping unreadable recording %s: %v", id, err)
		}
		return OutcomeSkipped
	}

	// The recording application may still be writing the file when the
	// filesystem event fires.
	readiness := &util.PollConfig{Attempts: p.cfg.ReadyAttempts, Interval: p.cfg.ReadyDelay}
	err := util.Poll(ctx, readiness, func() error {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if info.Size() == 0 {
			return fmt.Errorf("file is empty, recording may be in progress")
		}
		return nil
	}, id)
	if err != nil {
		if ctx.Err() != nil {
			return OutcomeAbandoned
		}
		util.ErrorLog("Giving up on %s after repeated readiness checks", id)
		return OutcomeAbandoned
	}

	// Re-resolve immediately before the irrevocable step: the store may
	// have gained a title or trash flag since enqueue.
	_ = p.cache.Refresh()
	rec := p.cache.RecordForPath(path)
	display := rec.DisplayName()

	p.mu.Lock()
	_, alreadyDone := p.completed[rec.ID]
	p.mu.Unlock()
	if alreadyDone {
		util.DebugLog("Skipping already processed recording %s", display)
		return OutcomeSkipped
	}
	if rec.Trashed {
		util.InfoLog("Skipping trashed recording %s", display)
		return OutcomeSkipped
	}

	text, err := p.tr.Transcribe(ctx, path, display)
	if err != nil {
		util.ErrorLog("Failed to transcribe %s: %v", display, err)
		return OutcomeFailed
	}

	filename := transcriptFilename(rec)
	outputPath := filepath.Join(p.cfg.TranscriptDir, filename)
	util.InfoLog("Writing transcript for %s to %s", display, filename)
	if err := os.WriteFile(outputPath, []byte(text+"\n"), 0o644); err != nil {
		util.ErrorLog("Failed to write transcript for %s: %v", display, err)
		return OutcomeFailed
	}

	archivePath := ""
	if p.cfg.ArchiveEnabled {
		archivePath = filepath.Join(p.cfg.ArchiveDir, filepath.Base(path))
		if err := util.MoveFile(path, archivePath); err != nil {
			util.WarnLog("Failed to archive %s: %v", display, err)
			archivePath = ""
		}
	}

	lrec := ledger.Record{
		ID:              rec.ID,
		TranscriptPath:  outputPath,
		ArchivePath:     archivePath,
		Title:           rec.Title,
		DurationSeconds: rec.DurationSeconds,
		HasDuration:     rec.HasDuration,
		CreatedAt:       rec.CreatedAt,
	}
	if err := p.led.Upsert(lrec); err != nil {
		util.ErrorLog("Failed to record completion of %s: %v", display, err)
		return OutcomeFailed
	}

	p.mu.Lock()
	p.completed[rec.ID] = struct{}{}
	p.mu.Unlock()

	util.SuccessLog("Transcribed %s", display)
	return OutcomeDone
}

// transcriptFilename derives the deterministic output name: the resolved
// creation time (or "undated") followed by the sanitized title (or
// "untitled")
func transcriptFilename(rec memo.Recording) string {
	stamp := "undated"
	if ts := rec.ResolveCreatedAt(); !ts.IsZero() {
		stamp = strftime.Format(timestampFormat, ts)
	}
	return fmt.Sprintf("%s_%s.txt", stamp, util.SanitizeFilename(rec.Title))
}
