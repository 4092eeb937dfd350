package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/audiolibrelab/jampiano/internal/audio"
	"github.com/audiolibrelab/jampiano/internal/library"
	"github.com/audiolibrelab/jampiano/internal/midi"
)

var recordingsCmd = &cobra.Command{
	Use:     "recordings",
	Aliases: []string{"recs"},
	Short:   "Browse saved recordings",
}

var recordingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved recordings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := library.Open(cfg.Output.Library)
		if err != nil {
			return fmt.Errorf("failed to open recordings library: %w", err)
		}
		defer store.Close()

		recs, err := store.List(cmd.Context())
		if err != nil {
			return err
		}

		if len(recs) == 0 {
			fmt.Println("No recordings yet. Press v in the piano to save a take.")
			return nil
		}

		fmt.Printf("%-5s %-9s %-8s %-10s %-16s %s\n", "#", "DURATION", "SIZE", "FORMAT", "SAVED", "PATH")
		for _, rec := range recs {
			fmt.Printf("%-5d %-9s %-8s %-10s %-16s %s\n",
				rec.Number,
				fmt.Sprintf("%.1fs", rec.Duration.Seconds()),
				humanize.Bytes(uint64(rec.Size)),
				rec.Format,
				humanize.Time(rec.CreatedAt),
				rec.Path)
		}
		fmt.Printf("\n%d recordings\n", store.NumberOfRecordings())
		return nil
	},
}

var recordingsPlayCmd = &cobra.Command{
	Use:   "play [number]",
	Short: "Play a saved recording",
	Long: `Play a saved recording. MIDI takes are played through the sampler,
audio recordings with the configured external player.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		number, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid recording number %q", args[0])
		}

		store, err := library.Open(cfg.Output.Library)
		if err != nil {
			return fmt.Errorf("failed to open recordings library: %w", err)
		}
		defer store.Close()

		rec, err := store.Get(cmd.Context(), number)
		if errors.Is(err, library.ErrNotFound) {
			return fmt.Errorf("recording %d not found (%d saved)", number, store.NumberOfRecordings())
		}
		if err != nil {
			return err
		}

		return playRecording(cmd.Context(), rec)
	},
}

// playRecording blocks until the recording ends or the process is interrupted
func playRecording(ctx context.Context, rec *library.Recording) error {
	buf := &audio.Buffer{Path: rec.Path, Duration: rec.Duration}

	var player audio.Player
	if strings.EqualFold(rec.Format, "mid") {
		take, err := audio.ReadTakeFile(rec.Path)
		if err != nil {
			return err
		}
		buf.Take = take

		sampler, err := midi.OpenSampler(cfg.MIDI)
		if err != nil {
			return fmt.Errorf("failed to open the sampler: %w", err)
		}
		defer sampler.Close()
		player = audio.NewTakePlayer(sampler)
	} else {
		player = audio.NewExecPlayer(cfg.Audio.Player)
	}

	if err := player.Load(buf); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	if err := player.Play(func() { close(done) }); err != nil {
		return err
	}
	fmt.Printf("Playing recording %d (%.1f sec.), Ctrl+C to stop\n", rec.Number, player.Duration().Seconds())

	select {
	case <-done:
	case <-ctx.Done():
		if err := player.Stop(); err != nil {
			return err
		}
		fmt.Println("Stopped")
	}

	// Let the last note-offs reach the synth
	time.Sleep(50 * time.Millisecond)
	return nil
}

func init() {
	recordingsCmd.AddCommand(recordingsListCmd)
	recordingsCmd.AddCommand(recordingsPlayCmd)
}
