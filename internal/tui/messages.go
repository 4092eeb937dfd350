package tui

import (
	"github.com/audiolibrelab/jampiano/internal/midi"
	"github.com/audiolibrelab/jampiano/internal/session"
)

// PlaybackDoneMsg carries a playback completion posted by the player goroutine.
type PlaybackDoneMsg struct {
	Completion session.Completion
}

// ExternalNoteMsg is a note played on a hardware keyboard.
type ExternalNoteMsg midi.NoteEvent

// DeviceEventMsg reports a hardware keyboard connecting or disconnecting.
type DeviceEventMsg midi.DeviceEvent

// releaseMsg ends a qwerty note. Terminals report no key-up, so every key
// press schedules one; gen drops releases superseded by a repeat.
type releaseMsg struct {
	note int
	gen  uint64
}

// clearNoticeMsg clears a notice after a timeout.
type clearNoticeMsg struct {
	gen uint64
}
