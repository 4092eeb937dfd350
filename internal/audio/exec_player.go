package audio

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// preferredPlayers in order of preference
var preferredPlayers = []string{"ffplay", "mpv", "aplay", "vlc"}

// ExecPlayer implements the Player interface by running an external audio player
type ExecPlayer struct {
	// configured player, empty picks the first one found
	preferred string

	mutex    sync.Mutex
	buf      *Buffer
	cmd      *exec.Cmd
	playing  bool
	stopped  chan struct{}
	finished chan struct{}
}

// NewExecPlayer creates a player using the given command, or auto-detection when empty
func NewExecPlayer(preferred string) *ExecPlayer {
	return &ExecPlayer{preferred: preferred}
}

// Load checks that the capture file exists and can be played
func (p *ExecPlayer) Load(buf *Buffer) error {
	if buf == nil || buf.Path == "" {
		return fmt.Errorf("no audio file to load")
	}

	if _, err := os.Stat(buf.Path); err != nil {
		return fmt.Errorf("audio file not found: %s", buf.Path)
	}

	player, err := p.findAudioPlayer()
	if err != nil {
		return fmt.Errorf("no suitable audio player found: %w", err)
	}
	if _, err := playerArgs(player, buf.Path); err != nil {
		return err
	}

	p.Stop()

	p.mutex.Lock()
	p.buf = buf
	p.mutex.Unlock()
	return nil
}

// Play starts the external player. onComplete runs when the player exits on its own.
func (p *ExecPlayer) Play(onComplete func()) error {
	p.Stop()

	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.buf == nil {
		return fmt.Errorf("no audio file loaded")
	}

	player, err := p.findAudioPlayer()
	if err != nil {
		return fmt.Errorf("no suitable audio player found: %w", err)
	}

	args, err := playerArgs(player, p.buf.Path)
	if err != nil {
		return err
	}

	cmd := exec.Command(args[0], args[1:]...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("playback failed with %s: %w", player, err)
	}

	stopped := make(chan struct{})
	finished := make(chan struct{})
	p.cmd = cmd
	p.playing = true
	p.stopped = stopped
	p.finished = finished

	slog.Debug("Playback started", "player", player, "file", p.buf.Path)

	go func() {
		defer close(finished)
		err := cmd.Wait()

		p.mutex.Lock()
		natural := p.playing && p.stopped == stopped
		if natural {
			p.playing = false
			p.cmd = nil
		}
		p.mutex.Unlock()

		if !natural {
			return
		}
		if err != nil {
			slog.Warn("Player exited with error", "player", player, "error", err)
		}
		if onComplete != nil {
			onComplete()
		}
	}()

	return nil
}

// Stop kills the external player if it is running
func (p *ExecPlayer) Stop() error {
	p.mutex.Lock()
	if !p.playing {
		p.mutex.Unlock()
		return nil
	}
	p.playing = false
	close(p.stopped)
	cmd := p.cmd
	finished := p.finished
	p.cmd = nil
	p.mutex.Unlock()

	var err error
	if cmd != nil && cmd.Process != nil {
		err = cmd.Process.Kill()
	}

	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		slog.Warn("Player did not exit within timeout")
	}

	if err != nil && !strings.Contains(err.Error(), "process already finished") {
		return fmt.Errorf("failed to stop player: %w", err)
	}
	return nil
}

func (p *ExecPlayer) Duration() time.Duration {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.buf == nil {
		return 0
	}
	return p.buf.Duration
}

func (p *ExecPlayer) IsPlaying() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.playing
}

func (p *ExecPlayer) findAudioPlayer() (string, error) {
	if p.preferred != "" {
		if _, err := exec.LookPath(p.preferred); err != nil {
			return "", fmt.Errorf("configured player %s not found", p.preferred)
		}
		return p.preferred, nil
	}

	for _, player := range preferredPlayers {
		if _, err := exec.LookPath(player); err == nil {
			return player, nil
		}
	}

	return "", fmt.Errorf("no audio player found (tried: %s)", strings.Join(preferredPlayers, ", "))
}

// playerArgs builds the command line for a player
func playerArgs(player, audioFile string) ([]string, error) {
	switch filepath.Base(player) {
	case "vlc", "cvlc":
		return []string{player, "--intf", "dummy", "--play-and-exit", audioFile}, nil
	case "mpv":
		return []string{player, "--no-video", "--really-quiet", audioFile}, nil
	case "ffplay":
		return []string{player, "-nodisp", "-autoexit", "-loglevel", "quiet", audioFile}, nil
	case "aplay":
		// aplay only plays WAV files
		if !strings.EqualFold(filepath.Ext(audioFile), ".wav") {
			return nil, fmt.Errorf("aplay requires WAV format, got %s", filepath.Ext(audioFile))
		}
		return []string{player, "-q", audioFile}, nil
	default:
		return nil, fmt.Errorf("unsupported player: %s", player)
	}
}
