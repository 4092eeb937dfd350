package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/audiolibrelab/jampiano/internal/audio"
	"github.com/audiolibrelab/jampiano/internal/config"
	"github.com/audiolibrelab/jampiano/internal/library"
	"github.com/audiolibrelab/jampiano/internal/midi"
	"github.com/audiolibrelab/jampiano/internal/service"
	"github.com/audiolibrelab/jampiano/internal/tui"
)

// LogFileName is written in the config directory while the piano owns the terminal
const LogFileName = "jampiano.log"

var (
	octaveFlag int
	portFlag   string
)

var pianoCmd = &cobra.Command{
	Use:   "piano",
	Short: "Play the piano",
	Long: `Open the keyboard view.

Keys a w s e d f t g y h u j k o l p ; ' play 18 notes from C of the first octave.
Space records, stops, plays and stops playback. Backspace resets the session,
z/x shift the octave and v saves the take into the recordings library.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPiano(cmd.Context())
	},
}

func addPianoFlags(c *cobra.Command) {
	c.Flags().IntVar(&octaveFlag, "octave", -1, "first octave shown (overrides config)")
	c.Flags().StringVar(&portFlag, "port", "", "MIDI output port name or substring (overrides config)")
}

func init() {
	addPianoFlags(pianoCmd)
}

func runPiano(ctx context.Context) error {
	closeLog, err := openLogFile()
	if err != nil {
		return err
	}
	defer closeLog()

	if portFlag != "" {
		cfg.MIDI.OutPort = portFlag
	}

	// Leftovers of a previous run
	if removed, err := audio.RemoveTempCaptures(cfg.Output.TempDirectory); err != nil {
		slog.Warn("Failed to clean temp directory", "dir", cfg.Output.TempDirectory, "error", err)
	} else if removed > 0 {
		slog.Info("Removed stale temporary captures", "count", removed)
	}

	sampler, err := midi.OpenSampler(cfg.MIDI)
	if err != nil {
		return fmt.Errorf("failed to open the sampler (is the synth running? see 'jampiano ports'): %w", err)
	}

	store, err := library.Open(cfg.Output.Library)
	if err != nil {
		sampler.Close()
		return fmt.Errorf("failed to open recordings library: %w", err)
	}

	backend := audio.NewBackend(cfg, sampler)
	svc := service.New(cfg, sampler, backend.NewRecorder(cfg), backend.NewPlayer(cfg), store)
	defer func() {
		if err := svc.Close(); err != nil {
			slog.Warn("Shutdown failed", "error", err)
		}
	}()

	if octaveFlag >= 0 {
		if err := svc.Keyboard().SetFirstOctave(octaveFlag); err != nil {
			return fmt.Errorf("--octave: %w", err)
		}
	}

	slog.Info("Piano started",
		"profile", cfg.Profile,
		"backend", backend.GetType(),
		"sampler", sampler.Name(),
		"recordings", store.NumberOfRecordings())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var input tui.Input
	if !strings.EqualFold(cfg.MIDI.InPort, "disabled") {
		watcher := midi.NewInputWatcher(cfg.MIDI.InPort)
		go watcher.Run(ctx)
		input = watcher
	}

	p := tea.NewProgram(tui.New(svc, input), tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("piano exited: %w", err)
	}
	return nil
}

// openLogFile sends slog output to the config directory
func openLogFile() (func(), error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to locate config directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(dir, LogFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	setupLogging(f, verboseLevel)
	return func() { f.Close() }, nil
}
