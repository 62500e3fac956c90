package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/franz/memoscribe/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version is set at build time
	Version = "dev"

	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "memoscribe",
		Short: "Transcribe Apple Voice Memos with WhisperKit",
		Long: `memoscribe watches the Voice Memos recordings folder, resolves recording
metadata out of the app's database, and drives each recording exactly once
through WhisperKit transcription. Completed work is tracked durably, so
restarts never transcribe the same recording twice.`,
		Version: Version,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.config/memoscribe/config.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "quiet output (errors only)")

	rootCmd.PersistentFlags().String("container", "", "Voice Memos container root override")
	rootCmd.PersistentFlags().String("recordings-dir", "", "recordings directory override")
	rootCmd.PersistentFlags().String("metadata-db", "", "metadata database override")
	rootCmd.PersistentFlags().String("transcript-dir", "", "directory to save transcripts")
	rootCmd.PersistentFlags().String("state-db", "", "ledger database file")
	rootCmd.PersistentFlags().String("order", "", "backlog processing order: newest-first or oldest-first")

	// Bind flags to viper
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	viper.BindPFlag("container", rootCmd.PersistentFlags().Lookup("container"))
	viper.BindPFlag("recordings-dir", rootCmd.PersistentFlags().Lookup("recordings-dir"))
	viper.BindPFlag("metadata-db", rootCmd.PersistentFlags().Lookup("metadata-db"))
	viper.BindPFlag("transcript-dir", rootCmd.PersistentFlags().Lookup("transcript-dir"))
	viper.BindPFlag("state-db", rootCmd.PersistentFlags().Lookup("state-db"))
	viper.BindPFlag("order", rootCmd.PersistentFlags().Lookup("order"))
}

func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for config in common locations
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home + "/.config/memoscribe")
		}
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// Read in environment variables that match
	viper.SetEnvPrefix("MEMOSCRIBE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && !viper.GetBool("quiet") {
		util.InfoLog("Using config file: %s", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
