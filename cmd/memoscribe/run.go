package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/franz/memoscribe/internal/config"
	"github.com/franz/memoscribe/internal/ledger"
	"github.com/franz/memoscribe/internal/metadata"
	"github.com/franz/memoscribe/internal/pipeline"
	"github.com/franz/memoscribe/internal/transcribe"
	"github.com/franz/memoscribe/internal/util"
	"github.com/franz/memoscribe/internal/watch"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Transcribe the backlog, optionally watching for new recordings",
	Long: `Scan the recordings directory, transcribe every recording not yet in the
ledger, and exit once the backlog drains. With --watch the process keeps
running and picks up new recordings as Voice Memos writes them.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().Bool("watch", false, "keep running and watch for new recordings")
	runCmd.Flags().String("model", "", "WhisperKit model identifier")
	runCmd.Flags().String("language", "", "language hint for Whisper (e.g. 'en', 'de')")
	runCmd.Flags().StringSlice("extra-args", nil, "extra arguments passed to the WhisperKit CLI")
	runCmd.Flags().Bool("archive", false, "move processed recordings into the archive directory")
	runCmd.Flags().String("archive-dir", "", "archive directory (implies --archive)")

	viper.BindPFlag("watch", runCmd.Flags().Lookup("watch"))
	viper.BindPFlag("model", runCmd.Flags().Lookup("model"))
	viper.BindPFlag("language", runCmd.Flags().Lookup("language"))
	viper.BindPFlag("extra-args", runCmd.Flags().Lookup("extra-args"))
	viper.BindPFlag("archive", runCmd.Flags().Lookup("archive"))
	viper.BindPFlag("archive-dir", runCmd.Flags().Lookup("archive-dir"))

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	util.SetVerbose(viper.GetBool("verbose"))
	util.SetQuiet(viper.GetBool("quiet"))

	settings, err := config.Load()
	if err != nil {
		return err
	}
	if err := settings.EnsureDirectories(); err != nil {
		return err
	}
	if err := checkRecordingsAccess(settings.RecordingsDir); err != nil {
		return err
	}

	// One service instance at a time; a second process would race the
	// in-flight dedup.
	lock := flock.New(settings.StateDB + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire instance lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another memoscribe instance is already running (lock: %s)", lock.Path())
	}
	defer lock.Unlock()

	tr, err := transcribe.New(transcribe.Options{
		Binary:    settings.WhisperKitCLI,
		Model:     settings.Model,
		Language:  settings.Language,
		ExtraArgs: settings.ExtraArgs,
	})
	if err != nil {
		return err
	}

	led, err := ledger.Open(settings.StateDB)
	if err != nil {
		return err
	}

	resolver := &metadata.Resolver{
		StorePath:       settings.MetadataDB,
		LegacyStorePath: settings.LegacyMetadataDB,
		ContainerRoot:   settings.ContainerRoot,
		RecordingsDir:   settings.RecordingsDir,
	}
	cache := metadata.NewCache(resolver)

	pl, err := pipeline.New(settings, cache, led, tr)
	if err != nil {
		led.Close()
		return err
	}

	util.InfoLog("Recording source: %s", settings.RecordingsDir)
	util.InfoLog("Transcript output: %s", settings.TranscriptDir)
	util.InfoLog("Processing order: %s", settings.Order)
	if settings.ArchiveEnabled {
		util.InfoLog("Archive directory: %s", settings.ArchiveDir)
	}

	// Queue the backlog before the worker starts so the progress bar can
	// size itself against the real count.
	queued, err := pl.EnqueueBacklog()
	if err != nil {
		led.Close()
		if util.IsPermission(err) {
			return fmt.Errorf("%w: cannot read %s (grant Full Disk Access in System Settings)",
				util.ErrPermission, settings.RecordingsDir)
		}
		return fmt.Errorf("failed to scan recordings: %w", err)
	}
	util.InfoLog("Backlog: %d recording(s) to process", queued)

	var bar *progressbar.ProgressBar
	if queued > 0 && util.IsTerminal(os.Stdout.Fd()) && !util.IsQuiet() {
		bar = progressbar.NewOptions(queued,
			progressbar.OptionSetDescription("Transcribing"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionThrottle(200*time.Millisecond),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetRenderBlankState(true),
		)
		pl.OnFinished = func(id string, outcome pipeline.Outcome) {
			bar.Add(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pl.Start(ctx)

	watching := viper.GetBool("watch")
	var watcher *watch.Watcher
	if watching {
		watcher, err = watch.Start(ctx, settings.RecordingsDir)
		if err != nil {
			util.WarnLog("Cannot watch recordings directory: %v", err)
			watching = false
		} else {
			go func() {
				for path := range watcher.Paths() {
					pl.Enqueue(path)
				}
			}()
		}
	}

	if watching {
		util.InfoLog("Watching for new recordings. Press Ctrl+C to exit.")
		<-ctx.Done()
	} else {
		drained := make(chan struct{})
		go func() {
			pl.Drain()
			close(drained)
		}()
		select {
		case <-drained:
		case <-ctx.Done():
			util.InfoLog("Interrupted, finishing current item...")
		}
	}

	// Shutdown order: feed first, then the worker, then the ledger.
	if watcher != nil {
		watcher.Close()
	}
	stop()
	pl.StopAndWait()
	if err := led.Close(); err != nil {
		util.WarnLog("Failed to close ledger: %v", err)
	}

	if bar != nil {
		bar.Finish()
	}

	stats := pl.Stats()
	util.SuccessLog("Run complete: %d transcribed, %d skipped, %d abandoned, %d failed",
		stats.Done, stats.Skipped, stats.Abandoned, stats.Failed)
	if stats.Failed > 0 {
		return fmt.Errorf("%d recording(s) failed to transcribe", stats.Failed)
	}
	return nil
}

// checkRecordingsAccess verifies the recordings directory exists and is
// readable, mapping the failure modes to operator guidance
func checkRecordingsAccess(dir string) error {
	_, err := os.ReadDir(dir)
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("recordings directory not found at %s (open the Voice Memos app once, or set --recordings-dir)", dir)
	}
	if errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: cannot read %s (grant the terminal Full Disk Access: System Settings, Privacy & Security, Full Disk Access)",
			util.ErrPermission, dir)
	}
	return fmt.Errorf("cannot read recordings directory: %w", err)
}
