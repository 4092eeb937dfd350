package audio

import (
	"github.com/audiolibrelab/jampiano/internal/config"
)

// PipeWireBackend captures the synthesizer's audio output through PipeWire
type PipeWireBackend struct{}

// NewRecorder creates a new PipeWire recorder
func (p *PipeWireBackend) NewRecorder(cfg *config.Config) Recorder {
	return NewPipeWireRecorder(cfg)
}

// NewPlayer creates an external-player backed Player
func (p *PipeWireBackend) NewPlayer(cfg *config.Config) Player {
	return NewExecPlayer(cfg.Audio.Player)
}

// ListSources returns available PipeWire/JACK ports
func (p *PipeWireBackend) ListSources() ([]string, error) {
	return NewPipeWire().ListPorts()
}

// GetType returns the backend type
func (p *PipeWireBackend) GetType() BackendType {
	return BackendTypePipeWire
}
