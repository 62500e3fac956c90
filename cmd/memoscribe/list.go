package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dhowden/tag"
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/franz/memoscribe/internal/catalog"
	"github.com/franz/memoscribe/internal/config"
	"github.com/franz/memoscribe/internal/ledger"
	"github.com/franz/memoscribe/internal/metadata"
	"github.com/franz/memoscribe/internal/util"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recordings with their transcription status",
	Long: `List every known recording: files in the recordings directory plus
metadata-only entries the store still remembers. The T and A columns mark
recordings that have been transcribed and archived.`,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	util.SetVerbose(viper.GetBool("verbose"))
	util.SetQuiet(viper.GetBool("quiet"))

	settings, err := config.Load()
	if err != nil {
		return err
	}

	// Ledger state is optional for listing; a missing or unreadable ledger
	// just means no completion markers.
	ledgerRecords := make(map[string]ledger.Record)
	if led, err := ledger.Open(settings.StateDB); err == nil {
		if records, err := led.AllRecords(); err == nil {
			for _, rec := range records {
				ledgerRecords[rec.ID] = rec
			}
		}
		led.Close()
	} else {
		util.WarnLog("Unable to read ledger: %v", err)
	}

	resolver := &metadata.Resolver{
		StorePath:       settings.MetadataDB,
		LegacyStorePath: settings.LegacyMetadataDB,
		ContainerRoot:   settings.ContainerRoot,
		RecordingsDir:   settings.RecordingsDir,
	}
	records, err := resolver.Load()
	if err != nil {
		return err
	}

	entries, err := catalog.Build(settings.RecordingsDir, records, ledgerRecords, settings.Order)
	if err != nil {
		if util.IsPermission(err) {
			return fmt.Errorf("%w: cannot read %s (grant Full Disk Access in System Settings)",
				util.ErrPermission, settings.RecordingsDir)
		}
		return err
	}

	if len(entries) == 0 {
		util.InfoLog("No recordings found in %s", settings.RecordingsDir)
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"T", "A", "When", "Age", "Duration", "Title"})

	for _, e := range entries {
		t.AppendRow(table.Row{
			mark(e.HasTranscript),
			mark(e.HasArchive),
			formatWhen(e.ResolvedCreatedAt),
			formatAge(e.ResolvedCreatedAt),
			formatDuration(e.DurationSeconds, e.HasDuration),
			displayTitle(e),
		})
	}

	t.Render()
	return nil
}

func mark(set bool) string {
	if set {
		return "✓"
	}
	return "."
}

func formatWhen(ts time.Time) string {
	if ts.IsZero() {
		return "unknown"
	}
	return ts.Local().Format("2006-01-02 15:04:05")
}

func formatAge(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return humanize.Time(ts)
}

func formatDuration(seconds float64, known bool) string {
	if !known {
		return "-"
	}
	total := int(seconds)
	minutes, rem := total/60, total%60
	if minutes > 0 {
		return fmt.Sprintf("%dm%02ds", minutes, rem)
	}
	return fmt.Sprintf("%ds", rem)
}

// displayTitle prefers the store title, then any title embedded in the
// audio file's tags, then the identifier
func displayTitle(e catalog.Entry) string {
	if e.Title != "" {
		return e.Title
	}
	if e.InSource {
		if title := embeddedTitle(e.Path); title != "" {
			return title
		}
	}
	return e.ID
}

func embeddedTitle(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return ""
	}
	return m.Title()
}
