// Package session implements the record/playback loop driven by a single
// primary button. All methods must be called from one goroutine; background
// playback completion arrives as a Completion on the Completions channel.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/audiolibrelab/jampiano/internal/audio"
)

var (
	// ErrRecorderStart is returned when capture could not begin
	ErrRecorderStart = errors.New("recorder failed to start")

	// ErrNothingCaptured is returned when stopping yielded no audio, the session keeps recording
	ErrNothingCaptured = errors.New("nothing captured")

	// ErrPlaybackUnavailable is returned when the capture cannot be loaded for playback
	ErrPlaybackUnavailable = errors.New("playback unavailable")

	// ErrNoCapture is returned when playback is requested without a capture
	ErrNoCapture = errors.New("no captured audio")
)

// Completion reports the natural end of a playback
type Completion struct {
	Gen uint64
}

// Session is the recording session state machine
type Session struct {
	recorder audio.Recorder
	player   audio.Player

	state            State
	hasCapturedAudio bool
	lastDuration     time.Duration
	captured         *audio.Buffer

	// gen identifies the current playback, completions from older ones are stale
	gen         uint64
	completions chan Completion
}

// New creates a session in ReadyToRecord. The session holds the recorder exclusively.
func New(recorder audio.Recorder, player audio.Player) *Session {
	return &Session{
		recorder:    recorder,
		player:      player,
		state:       ReadyToRecord,
		completions: make(chan Completion, 4),
	}
}

func (s *Session) State() State { return s.state }

func (s *Session) HasCapturedAudio() bool { return s.hasCapturedAudio }

// LastRecordingDuration is the duration of the current capture, 0 when there is none
func (s *Session) LastRecordingDuration() time.Duration { return s.lastDuration }

// Captured returns the current capture, nil when there is none
func (s *Session) Captured() *audio.Buffer {
	if !s.hasCapturedAudio {
		return nil
	}
	return s.captured
}

// Label is the primary button caption
func (s *Session) Label() string { return LabelFor(s.state) }

// Info is the duration display
func (s *Session) Info() string { return InfoText(s.state, s.hasCapturedAudio, s.lastDuration) }

// Completions delivers playback completions; drain it on the session's goroutine
// and pass each value to HandleCompletion
func (s *Session) Completions() <-chan Completion { return s.completions }

// PressPrimaryButton advances the loop:
// ReadyToRecord -> Recording -> ReadyToPlay -> Playing -> ReadyToPlay
func (s *Session) PressPrimaryButton() error {
	switch s.state {
	case ReadyToRecord:
		return s.startRecording()
	case Recording:
		return s.stopRecording()
	case ReadyToPlay:
		return s.startPlayback()
	case Playing:
		s.stopPlayback()
		return nil
	}
	return fmt.Errorf("unknown state %s", s.state)
}

func (s *Session) startRecording() error {
	if err := s.recorder.Start(); err != nil {
		return fmt.Errorf("%w: %w", ErrRecorderStart, err)
	}

	s.state = Recording
	slog.Info("Recording started")
	return nil
}

func (s *Session) stopRecording() error {
	if err := s.recorder.Stop(); err != nil {
		slog.Warn("Recorder stop failed", "error", err)
	}

	buf := s.recorder.Captured()
	if buf == nil || buf.Duration <= 0 {
		// Refuse the transition and keep capturing so the state stays truthful
		if err := s.recorder.Start(); err != nil {
			s.discard()
			return errors.Join(ErrNothingCaptured, fmt.Errorf("%w: %w", ErrRecorderStart, err))
		}
		slog.Info("Nothing captured, still recording")
		return ErrNothingCaptured
	}

	if err := s.player.Load(buf); err != nil {
		s.discard()
		return fmt.Errorf("%w: %w", ErrPlaybackUnavailable, err)
	}

	s.captured = buf
	s.hasCapturedAudio = true
	s.lastDuration = buf.Duration
	s.state = ReadyToPlay

	slog.Info("Recording stopped", "duration", buf.Duration, "path", buf.Path)
	return nil
}

func (s *Session) startPlayback() error {
	if !s.hasCapturedAudio {
		return ErrNoCapture
	}

	s.gen++
	gen := s.gen
	if err := s.player.Play(func() { s.postCompletion(gen) }); err != nil {
		return fmt.Errorf("%w: %w", ErrPlaybackUnavailable, err)
	}

	s.state = Playing
	slog.Info("Playback started", "duration", s.lastDuration)
	return nil
}

func (s *Session) stopPlayback() {
	s.gen++
	if err := s.player.Stop(); err != nil {
		slog.Warn("Player stop failed", "error", err)
	}
	s.state = ReadyToPlay
	slog.Info("Playback stopped")
}

// postCompletion runs on the player's goroutine and never touches session state
func (s *Session) postCompletion(gen uint64) {
	select {
	case s.completions <- Completion{Gen: gen}:
	default:
		slog.Warn("Playback completion dropped", "gen", gen)
	}
}

// OnPlaybackCompleted returns to ReadyToPlay when playing, otherwise does nothing
func (s *Session) OnPlaybackCompleted() {
	if s.state != Playing {
		return
	}
	s.state = ReadyToPlay
	slog.Info("Playback completed")
}

// HandleCompletion applies a completion from the Completions channel.
// Completions of a playback that was since stopped or reset are ignored.
func (s *Session) HandleCompletion(c Completion) bool {
	if c.Gen != s.gen || s.state != Playing {
		slog.Debug("Ignoring stale playback completion", "gen", c.Gen, "current", s.gen)
		return false
	}
	s.OnPlaybackCompleted()
	return true
}

// Reset returns to ReadyToRecord from any state and deletes temporary captures
func (s *Session) Reset() {
	switch s.state {
	case Playing:
		if err := s.player.Stop(); err != nil {
			slog.Warn("Player stop failed during reset", "error", err)
		}
	case Recording:
		if err := s.recorder.Stop(); err != nil {
			slog.Warn("Recorder stop failed during reset", "error", err)
		}
	}

	s.gen++
	s.discard()
	slog.Info("Session reset")
}

// discard drops the capture, cleans temporary files and returns to ReadyToRecord
func (s *Session) discard() {
	if err := s.recorder.Cleanup(); err != nil {
		slog.Warn("Failed to delete temporary captures", "error", err)
	}
	s.captured = nil
	s.hasCapturedAudio = false
	s.lastDuration = 0
	s.state = ReadyToRecord
}
