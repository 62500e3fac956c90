// Package config assembles runtime settings from viper (flags, environment,
// config file) and the default Voice Memos container locations.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/franz/memoscribe/internal/catalog"
	"github.com/franz/memoscribe/internal/util"
)

// Settings is the resolved runtime configuration
type Settings struct {
	ContainerRoot    string
	RecordingsDir    string
	MetadataDB       string
	LegacyMetadataDB string // empty when no legacy store applies

	TranscriptDir  string
	ArchiveDir     string
	ArchiveEnabled bool
	StateDB        string

	WhisperKitCLI string
	Model         string
	Language      string
	ExtraArgs     []string

	Order         catalog.Order
	ReadyAttempts int
	ReadyDelay    time.Duration
}

// DefaultModel is the WhisperKit model used when none is configured
const DefaultModel = "large-v3-v20240930_turbo"

// Load resolves settings with viper precedence (flags > env > config file >
// detected defaults)
func Load() (*Settings, error) {
	container, recordings, metadataDB, legacyDB := detectContainer()

	if v := viper.GetString("container"); v != "" {
		container = util.ExpandHome(v)
		recordings = filepath.Join(container, "Recordings")
		metadataDB, legacyDB = storesForContainer(container)
	}
	if v := viper.GetString("recordings-dir"); v != "" {
		recordings = util.ExpandHome(v)
	}
	if v := viper.GetString("metadata-db"); v != "" {
		metadataDB = util.ExpandHome(v)
	}
	if v := viper.GetString("legacy-metadata-db"); v != "" {
		legacyDB = util.ExpandHome(v)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("%w: cannot determine home directory: %v", util.ErrInvalidConfig, err)
	}
	base := filepath.Join(home, "Documents", "MemoScribe")

	order, err := catalog.ParseOrder(viper.GetString("order"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrInvalidConfig, err)
	}

	s := &Settings{
		ContainerRoot:    container,
		RecordingsDir:    recordings,
		MetadataDB:       metadataDB,
		LegacyMetadataDB: legacyDB,

		TranscriptDir:  stringOr(viper.GetString("transcript-dir"), filepath.Join(base, "Transcripts")),
		ArchiveDir:     stringOr(viper.GetString("archive-dir"), filepath.Join(base, "Audio")),
		ArchiveEnabled: viper.GetBool("archive") || viper.GetString("archive-dir") != "",
		StateDB:        stringOr(viper.GetString("state-db"), filepath.Join(home, ".memoscribe", "state.sqlite")),

		WhisperKitCLI: stringOr(viper.GetString("whisperkit-cli"), "whisperkit-cli"),
		Model:         stringOr(viper.GetString("model"), DefaultModel),
		Language:      viper.GetString("language"),
		ExtraArgs:     viper.GetStringSlice("extra-args"),

		Order:         order,
		ReadyAttempts: 3,
		ReadyDelay:    time.Second,
	}

	s.TranscriptDir = util.ExpandHome(s.TranscriptDir)
	s.ArchiveDir = util.ExpandHome(s.ArchiveDir)
	s.StateDB = util.ExpandHome(s.StateDB)

	return s, nil
}

// EnsureDirectories creates the output directories and the state database
// parent. The recordings directory is never created here: its absence means
// the recording application has not run.
func (s *Settings) EnsureDirectories() error {
	if err := util.EnsureDir(s.TranscriptDir); err != nil {
		return err
	}
	if s.ArchiveEnabled {
		if err := util.EnsureDir(s.ArchiveDir); err != nil {
			return err
		}
	}
	return util.EnsureDir(filepath.Dir(s.StateDB))
}

// detectContainer probes the known Voice Memos container roots and returns
// the first with a readable Recordings directory, along with its metadata
// stores
func detectContainer() (container, recordings, metadataDB, legacyDB string) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", "", "", ""
	}

	roots := []string{
		filepath.Join(home, "Library", "Group Containers", "group.com.apple.VoiceMemos.shared"),
		filepath.Join(home, "Library", "Application Support", "com.apple.voicememos"),
		filepath.Join(home, "Library", "Containers", "com.apple.VoiceMemos",
			"Data", "Library", "Application Support", "com.apple.voicememos"),
	}

	for _, root := range roots {
		rec := filepath.Join(root, "Recordings")
		if !safeExists(rec) {
			continue
		}
		db, legacy := storesForContainer(root)
		return root, rec, db, legacy
	}

	// Nothing found: report the modern layout so error messages point at
	// the expected location
	root := roots[0]
	db, legacy := storesForContainer(root)
	return root, filepath.Join(root, "Recordings"), db, legacy
}

// storesForContainer picks the metadata store for a container root: the
// CloudRecordings database when present, otherwise the legacy Recents store.
// When both exist the Recents store becomes the fallback.
func storesForContainer(root string) (metadataDB, legacyDB string) {
	cloud := filepath.Join(root, "Recordings", "CloudRecordings.db")
	recents := filepath.Join(root, "Library", "Application Support", "Recents.sqlite")

	cloudExists := safeExists(cloud)
	recentsExists := safeExists(recents)

	switch {
	case cloudExists && recentsExists:
		return cloud, recents
	case recentsExists:
		return recents, ""
	default:
		return cloud, ""
	}
}

// safeExists reports existence, treating permission errors as absent
func safeExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func stringOr(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
