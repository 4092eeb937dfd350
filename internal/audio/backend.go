package audio

import (
	"strings"

	"github.com/audiolibrelab/jampiano/internal/config"
)

// BackendType represents the type of capture backend
type BackendType string

const (
	BackendTypeMIDI     BackendType = "midi"
	BackendTypePipeWire BackendType = "pipewire"
	BackendTypeAuto     BackendType = "auto"
)

// Backend creates the recorder and player pair used by a session
type Backend interface {
	NewRecorder(cfg *config.Config) Recorder
	NewPlayer(cfg *config.Config) Player

	// List available capture sources
	ListSources() ([]string, error)

	// Get the backend type
	GetType() BackendType
}

// NewBackend selects the backend based on configuration. inst is the instrument
// the keyboard plays, tapped by the midi backend.
func NewBackend(cfg *config.Config, inst Instrument) Backend {
	switch determineBackend(cfg) {
	case BackendTypePipeWire:
		return &PipeWireBackend{}
	default:
		return &MIDIBackend{inst: inst}
	}
}

// determineBackend determines which backend to use based on configuration
func determineBackend(cfg *config.Config) BackendType {
	switch strings.ToLower(cfg.Audio.Backend) {
	case "pipewire":
		return BackendTypePipeWire
	case "midi", "auto":
		// Take capture needs nothing beyond the MIDI output already in use
		return BackendTypeMIDI
	}
	return BackendTypeMIDI
}

// MIDIBackend captures takes from the instrument and replays them through it
type MIDIBackend struct {
	inst Instrument
}

func (b *MIDIBackend) NewRecorder(cfg *config.Config) Recorder {
	return NewTakeRecorder(b.inst, cfg.Output.TempDirectory)
}

func (b *MIDIBackend) NewPlayer(cfg *config.Config) Player {
	return NewTakePlayer(b.inst)
}

// ListSources returns the instrument as the only source
func (b *MIDIBackend) ListSources() ([]string, error) {
	return []string{"instrument"}, nil
}

func (b *MIDIBackend) GetType() BackendType {
	return BackendTypeMIDI
}
