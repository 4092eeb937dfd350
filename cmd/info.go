package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/audiolibrelab/jampiano/internal/audio"
	"github.com/audiolibrelab/jampiano/internal/config"
	"github.com/audiolibrelab/jampiano/internal/keyboard"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show resolved configuration and file paths",
	Long:  `Display the resolved configuration with inheritance indicators and the paths JamPiano writes to. Shows which values are inherited from default vs profile-specific.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logDir, _ := config.ConfigDir()

		// Display file paths
		fmt.Printf("=== FILE PATHS ===\n")
		fmt.Printf("config: %s\n", cfgFile)
		fmt.Printf("library: %s\n", cfg.Output.Library)
		fmt.Printf("recordings: %s\n", cfg.Output.Directory)
		fmt.Printf("temp_capture: %s\n", filepath.Join(cfg.Output.TempDirectory, tempCaptureName()))
		fmt.Printf("log: %s\n", filepath.Join(logDir, LogFileName))
		if _, err := os.Stat(cfg.Output.Library); err != nil {
			fmt.Printf("library_status: not created yet\n")
		}

		kb := keyboard.FromConfig(cfg.Keyboard)
		keys := kb.Keys()
		fmt.Printf("keyboard: %s-%s\n", keyboard.NoteName(keys[0].Note), keyboard.NoteName(keys[len(keys)-1].Note))

		// Display resolved configuration with inheritance indicators
		fmt.Printf("\n=== RESOLVED CONFIGURATION (%s) ===\n", cfg.Profile)

		fmt.Printf("\n[Audio]\n")
		printField("backend", cfg.Audio.Backend, "audio.backend")
		printField("sample_rate", cfg.Audio.SampleRate, "audio.sample_rate")
		printField("sources", strings.Join(cfg.Audio.Sources, ", "), "audio.sources")
		printField("player", cfg.Audio.Player, "audio.player")

		fmt.Printf("\n[MIDI]\n")
		printField("out_port", cfg.MIDI.OutPort, "midi.out_port")
		printField("in_port", cfg.MIDI.InPort, "midi.in_port")
		printField("channel", cfg.MIDI.Channel, "midi.channel")
		printField("velocity", cfg.MIDI.Velocity, "midi.velocity")
		printField("program", cfg.MIDI.Program, "midi.program")
		printField("reverb", cfg.MIDI.Reverb, "midi.reverb")
		printField("release_ms", cfg.MIDI.ReleaseMs, "midi.release_ms")

		fmt.Printf("\n[Keyboard]\n")
		printField("first_octave", cfg.Keyboard.FirstOctave, "keyboard.first_octave")
		printField("min_octave", cfg.Keyboard.MinOctave, "keyboard.min_octave")
		printField("max_octave", cfg.Keyboard.MaxOctave, "keyboard.max_octave")

		fmt.Printf("\n[Output]\n")
		printField("directory", cfg.Output.Directory, "output.directory")
		printField("temp_directory", cfg.Output.TempDirectory, "output.temp_directory")
		printField("format", cfg.Output.Format, "output.format")
		printField("library", cfg.Output.Library, "output.library")

		return nil
	},
}

func tempCaptureName() string {
	if cfg.UsesAudioCapture() {
		return audio.CaptureFileName
	}
	return audio.TakeFileName
}

func printField(name string, value any, key string) {
	fmt.Printf("%s: %v %s\n", name, value, getInheritanceIndicator(cfg.Inheritance.Source(key)))
}

// getInheritanceIndicator returns a formatted indicator for inheritance status
func getInheritanceIndicator(status string) string {
	switch status {
	case config.SourceInherited:
		return "[inherited]"
	case config.SourceProfileSpecific:
		return "[profile-specific]"
	case config.SourceDefault:
		return "[default]"
	default:
		return "[unknown]"
	}
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
