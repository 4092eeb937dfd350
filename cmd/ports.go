package cmd

import (
	"fmt"
	"strings"

	"github.com/audiolibrelab/jampiano/internal/audio"
	"github.com/audiolibrelab/jampiano/internal/midi"

	"github.com/spf13/cobra"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List MIDI ports and capture sources",
	Long: `List the MIDI output ports the sampler can use, the MIDI inputs a hardware
keyboard can connect from, and for the pipewire backend the capturable PipeWire ports.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		listMIDIPorts()

		if cfg.UsesAudioCapture() {
			return listPipeWireSources()
		}
		return nil
	},
}

func listMIDIPorts() {
	outs := midi.OutPortNames()
	fmt.Printf("MIDI OUTPUTS (%d found):\n", len(outs))
	for i, name := range outs {
		marker := " "
		if cfg.MIDI.OutPort != "" && strings.Contains(strings.ToLower(name), strings.ToLower(cfg.MIDI.OutPort)) {
			marker = "*"
		}
		fmt.Printf(" %s%d. %s\n", marker, i+1, name)
	}

	ins := midi.InPortNames()
	fmt.Printf("\nMIDI INPUTS (%d found):\n", len(ins))
	for i, name := range ins {
		fmt.Printf("  %d. %s\n", i+1, name)
	}

	fmt.Printf("\nConfigure midi.out_port with a name or substring (current: %q)\n", cfg.MIDI.OutPort)
	fmt.Printf("and midi.in_port with a keyboard name, empty to auto-detect or \"disabled\".\n\n")
}

// listPipeWireSources lists available PipeWire/JACK sources
func listPipeWireSources() error {
	backend := &audio.PipeWireBackend{}
	sources, err := backend.ListSources()
	if err != nil {
		return fmt.Errorf("failed to get PipeWire sources: %w", err)
	}

	fmt.Printf("PIPEWIRE/JACK SOURCES (%d found):\n", len(sources))
	for i, source := range sources {
		fmt.Printf("  %d. %s\n", i+1, source)
	}

	fmt.Printf("\nConfigure audio.sources with one port (mono) or two (stereo),\n")
	fmt.Printf("for example [\"fluidsynth:left\", \"fluidsynth:right\"].\n")
	return nil
}
