package audio

import (
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// Buffer is a captured performance ready to be loaded by a Player
type Buffer struct {
	// Path of the temporary capture file (temp.mid or temp.wav)
	Path string

	// Take holds the captured messages for the midi backend, nil for audio captures
	Take *Take

	Duration time.Duration
}

// IsAudio reports whether the capture is an audio file rather than a MIDI take
func (b *Buffer) IsAudio() bool {
	return b != nil && b.Take == nil
}

// Recorder captures a performance. A recorder is held by one session at a time.
type Recorder interface {
	Start() error
	Stop() error

	// Captured returns the buffer of the last completed capture, nil when nothing was captured
	Captured() *Buffer

	IsRecording() bool

	// Cleanup deletes temporary captures
	Cleanup() error
}

// Player plays back a loaded buffer
type Player interface {
	Load(buf *Buffer) error

	// Play starts playback. onComplete runs on a background goroutine when
	// playback reaches its natural end, never after Stop.
	Play(onComplete func()) error

	Stop() error
	Duration() time.Duration
	IsPlaying() bool
}

// Instrument is the sound source the keyboard drives
type Instrument interface {
	Send(msg gomidi.Message) error

	// Tap registers an observer for every channel message sent to the instrument
	Tap(fn func(msg gomidi.Message))
}
