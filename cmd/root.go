package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver

	"github.com/audiolibrelab/jampiano/internal/config"

	"github.com/spf13/cobra"
)

var (
	cfg          *config.Config
	cfgFile      string
	profile      string
	verboseLevel int
)

var rootCmd = &cobra.Command{
	Use:   "jampiano",
	Short: "Terminal virtual piano with a record and playback loop",
	Long: `JamPiano turns the qwerty row into an 18-key piano that plays a sampled
instrument over MIDI (for example FluidSynth with a piano soundfont).

A single button records a take, stops it, plays it back and stops playback.
Takes can be saved into a numbered recordings library.

Without a subcommand it acts as 'jampiano piano'.`,
	Args: cobra.NoArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// The piano owns the terminal, it sets up its own file logging
		if cmd.Name() != pianoCmd.Name() && cmd.HasParent() {
			setupLogging(os.Stderr, verboseLevel)
		}

		// Config commands that create or locate the file work without it
		if cmd.Name() == "init" || cmd.Name() == "path" {
			return nil
		}

		// Use default config path if not specified
		if cfgFile == "" {
			cfgFile = config.DefaultPath()
		}

		var err error
		cfg, err = config.LoadWithProfile(cfgFile, profile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return pianoCmd.RunE(cmd, args)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/jampiano.yaml)")
	rootCmd.PersistentFlags().StringVar(&profile, "profile", "", "configuration profile to use (overrides active_config from file)")
	rootCmd.PersistentFlags().IntVarP(&verboseLevel, "verbose", "v", 0, "verbose level: 0=info, 1=debug, 3=debug with PipeWire tracing")

	addPianoFlags(rootCmd)

	rootCmd.AddCommand(pianoCmd)
	rootCmd.AddCommand(portsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(recordingsCmd)
}

// setupLogging configures slog based on the verbose level
func setupLogging(w io.Writer, level int) {
	var slogLevel slog.Level
	switch level {
	case 0:
		slogLevel = slog.LevelInfo
	case 1:
		slogLevel = slog.LevelDebug
	case 2, 3:
		// Level 3 additionally traces the PipeWire tools we spawn
		slogLevel = slog.LevelDebug
	default:
		slogLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: slogLevel,
	}
	handler := slog.NewTextHandler(w, opts)
	logger := slog.New(handler)
	slog.SetDefault(logger)

	// Inherited by pw-link and pw-jack (level 3)
	if level >= 3 {
		os.Setenv("PIPEWIRE_DEBUG", "3")
	}
}
