// Package midi drives the sampled instrument over a MIDI output port and
// listens to hardware keyboards.
package midi

import (
	"fmt"
	"log/slog"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/audiolibrelab/jampiano/internal/config"
)

// Controller numbers
const (
	ccReverbSend  uint8 = 91
	ccAllNotesOff uint8 = 123
)

// SendFunc delivers one message to the instrument
type SendFunc func(msg gomidi.Message) error

// Sampler plays notes on a sampled instrument. Send failures are logged,
// never returned from NoteOn/NoteOff, so a missing synth never breaks the UI.
type Sampler struct {
	send     SendFunc
	channel  uint8
	velocity uint8

	mu   sync.RWMutex
	taps []func(gomidi.Message)

	port drivers.Out
}

// NewSampler creates a sampler over an arbitrary send function
func NewSampler(send SendFunc, channel, velocity uint8) *Sampler {
	return &Sampler{
		send:     send,
		channel:  channel,
		velocity: velocity,
	}
}

// OpenSampler opens the configured output port and selects the program and reverb send
func OpenSampler(cfg config.MIDIConfig) (*Sampler, error) {
	out, err := FindOutPort(cfg.OutPort)
	if err != nil {
		return nil, err
	}

	send, err := gomidi.SendTo(out)
	if err != nil {
		return nil, fmt.Errorf("failed to open MIDI output %s: %w", out.String(), err)
	}

	s := NewSampler(send, uint8(cfg.Channel), uint8(cfg.Velocity))
	s.port = out

	if err := s.Setup(uint8(cfg.Program), uint8(cfg.Reverb)); err != nil {
		out.Close()
		return nil, err
	}

	slog.Info("Sampler opened", "port", out.String(), "channel", cfg.Channel, "program", cfg.Program)
	return s, nil
}

// Setup selects the instrument program and sets the reverb send level
func (s *Sampler) Setup(program, reverb uint8) error {
	if err := s.send(gomidi.ProgramChange(s.channel, program)); err != nil {
		return fmt.Errorf("failed to send program change: %w", err)
	}
	if err := s.send(gomidi.ControlChange(s.channel, ccReverbSend, reverb)); err != nil {
		return fmt.Errorf("failed to send reverb level: %w", err)
	}
	return nil
}

// Name of the output port, empty when not bound to a port
func (s *Sampler) Name() string {
	if s.port == nil {
		return ""
	}
	return s.port.String()
}

// NoteOn starts a note with the configured velocity
func (s *Sampler) NoteOn(note int) {
	s.NoteOnVelocity(note, int(s.velocity))
}

// NoteOnVelocity starts a note with an explicit velocity, clamped to 1..127
func (s *Sampler) NoteOnVelocity(note, velocity int) {
	if !validNote(note) {
		slog.Warn("Note out of MIDI range", "note", note)
		return
	}
	velocity = max(1, min(velocity, 127))
	if err := s.Send(gomidi.NoteOn(s.channel, uint8(note), uint8(velocity))); err != nil {
		slog.Warn("Failed to start note", "note", note, "error", err)
	}
}

// NoteOff releases a note
func (s *Sampler) NoteOff(note int) {
	if !validNote(note) {
		return
	}
	if err := s.Send(gomidi.NoteOff(s.channel, uint8(note))); err != nil {
		slog.Warn("Failed to release note", "note", note, "error", err)
	}
}

// Send delivers a message and notifies taps once the instrument accepted it
func (s *Sampler) Send(msg gomidi.Message) error {
	if err := s.send(msg); err != nil {
		return err
	}

	s.mu.RLock()
	taps := s.taps
	s.mu.RUnlock()

	for _, tap := range taps {
		tap(msg)
	}
	return nil
}

// Tap registers an observer for every message the instrument accepts
func (s *Sampler) Tap(fn func(gomidi.Message)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.taps = append(s.taps[:len(s.taps):len(s.taps)], fn)
}

// AllNotesOff silences the channel
func (s *Sampler) AllNotesOff() {
	if err := s.send(gomidi.ControlChange(s.channel, ccAllNotesOff, 0)); err != nil {
		slog.Debug("Failed to send all notes off", "error", err)
	}
}

// Close silences the instrument and closes the output port
func (s *Sampler) Close() error {
	s.AllNotesOff()
	if s.port != nil {
		return s.port.Close()
	}
	return nil
}

func validNote(note int) bool {
	return note >= 0 && note <= 127
}
