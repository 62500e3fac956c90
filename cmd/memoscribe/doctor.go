package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/franz/memoscribe/internal/config"
	"github.com/franz/memoscribe/internal/ledger"
	"github.com/franz/memoscribe/internal/metadata"
	"github.com/franz/memoscribe/internal/transcribe"
	"github.com/franz/memoscribe/internal/util"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the environment and report problems",
	Long: `Verify that everything memoscribe needs is in place: the WhisperKit CLI,
the recordings directory, the metadata store, the transcript directory, and
the ledger database.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	util.SetVerbose(viper.GetBool("verbose"))

	settings, err := config.Load()
	if err != nil {
		return err
	}

	problems := 0

	// WhisperKit CLI
	if transcribe.Available(settings.WhisperKitCLI) {
		util.SuccessLog("WhisperKit CLI found (%s)", settings.WhisperKitCLI)
	} else {
		util.ErrorLog("WhisperKit CLI %q not found - install via `brew install whisperkit-cli`", settings.WhisperKitCLI)
		problems++
	}

	// Recordings directory
	switch _, err := os.ReadDir(settings.RecordingsDir); {
	case err == nil:
		util.SuccessLog("Recordings directory readable: %s", settings.RecordingsDir)
	case errors.Is(err, fs.ErrNotExist):
		util.ErrorLog("Recordings directory missing: %s (open the Voice Memos app once)", settings.RecordingsDir)
		problems++
	case errors.Is(err, fs.ErrPermission):
		util.ErrorLog("Recordings directory not readable: %s - grant the terminal Full Disk Access", settings.RecordingsDir)
		problems++
	default:
		util.ErrorLog("Recordings directory not readable: %v", err)
		problems++
	}

	// Metadata store
	resolver := &metadata.Resolver{
		StorePath:       settings.MetadataDB,
		LegacyStorePath: settings.LegacyMetadataDB,
		ContainerRoot:   settings.ContainerRoot,
		RecordingsDir:   settings.RecordingsDir,
	}
	records, err := resolver.Load()
	switch {
	case err != nil:
		util.ErrorLog("Metadata store: %v", err)
		problems++
	case len(records) == 0:
		util.WarnLog("Metadata store yielded no recordings (%s) - titles and dates will fall back to the filesystem", settings.MetadataDB)
	default:
		util.SuccessLog("Metadata store readable: %d recording(s) in %s", len(records), settings.MetadataDB)
	}

	// Transcript directory
	if err := util.EnsureDir(settings.TranscriptDir); err != nil {
		util.ErrorLog("Transcript directory: %v", err)
		problems++
	} else {
		util.SuccessLog("Transcript directory writable: %s", settings.TranscriptDir)
	}

	// Ledger
	if err := util.EnsureDir(settingsStateDir(settings)); err != nil {
		util.ErrorLog("Ledger directory: %v", err)
		problems++
	} else if led, err := ledger.Open(settings.StateDB); err != nil {
		util.ErrorLog("Ledger: %v", err)
		problems++
	} else {
		if err := led.CheckIntegrity(); err != nil {
			util.ErrorLog("Ledger: %v", err)
			problems++
		} else if ids, err := led.KnownIDs(); err == nil {
			util.SuccessLog("Ledger healthy: %d completed recording(s) in %s", len(ids), settings.StateDB)
		}
		led.Close()
	}

	if problems > 0 {
		return fmt.Errorf("%d problem(s) found", problems)
	}
	util.SuccessLog("All checks passed")
	return nil
}

func settingsStateDir(s *config.Settings) string {
	return filepath.Dir(s.StateDB)
}
