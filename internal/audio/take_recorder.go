package audio

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// TakeFileName is the temporary take written on stop
const TakeFileName = "temp.mid"

// TakeRecorder implements the Recorder interface by capturing the messages
// sent to an instrument while recording
type TakeRecorder struct {
	tempDir string

	mutex     sync.Mutex
	recording bool
	started   time.Time
	events    []TakeEvent
	captured  *Buffer

	now func() time.Time
}

// NewTakeRecorder creates a recorder tapping inst
func NewTakeRecorder(inst Instrument, tempDir string) *TakeRecorder {
	r := &TakeRecorder{
		tempDir: tempDir,
		now:     time.Now,
	}
	inst.Tap(r.observe)
	return r
}

func (r *TakeRecorder) observe(msg gomidi.Message) {
	if len(msg) == 0 || msg[0] >= 0xF0 {
		return
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if !r.recording {
		return
	}

	cp := make(gomidi.Message, len(msg))
	copy(cp, msg)
	r.events = append(r.events, TakeEvent{At: r.now().Sub(r.started), Msg: cp})
}

// Start begins a new take, dropping any previous capture
func (r *TakeRecorder) Start() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.recording {
		return fmt.Errorf("take recording already in progress")
	}

	r.events = nil
	r.captured = nil
	r.started = r.now()
	r.recording = true

	slog.Debug("Take recording started")
	return nil
}

// Stop ends the take. A take without any note-on leaves Captured nil.
func (r *TakeRecorder) Stop() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if !r.recording {
		return fmt.Errorf("no recording in progress")
	}
	r.recording = false

	take := &Take{
		Events: r.events,
		Length: r.now().Sub(r.started),
	}
	r.events = nil

	if !take.HasNotes() {
		slog.Debug("Take contains no notes, nothing captured", "length", take.Length)
		return nil
	}

	closeHeldNotes(take)

	buf := &Buffer{Take: take, Duration: take.Length}

	path := filepath.Join(r.tempDir, TakeFileName)
	if err := os.MkdirAll(r.tempDir, 0755); err != nil {
		slog.Warn("Failed to create temp directory", "dir", r.tempDir, "error", err)
	} else if err := take.WriteFile(path); err != nil {
		slog.Warn("Failed to write temporary take", "path", path, "error", err)
	} else {
		buf.Path = path
	}

	r.captured = buf
	slog.Debug("Take recording completed", "events", len(take.Events), "length", take.Length, "path", buf.Path)
	return nil
}

// Captured returns the last completed take
func (r *TakeRecorder) Captured() *Buffer {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.captured
}

func (r *TakeRecorder) IsRecording() bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.recording
}

// Cleanup drops the capture and deletes temporary files
func (r *TakeRecorder) Cleanup() error {
	r.mutex.Lock()
	r.recording = false
	r.events = nil
	r.captured = nil
	r.mutex.Unlock()

	removed, err := RemoveTempCaptures(r.tempDir, TakeFileName)
	if err != nil {
		return err
	}
	slog.Debug("Take recorder cleaned up", "removed", removed)
	return nil
}

// closeHeldNotes appends a note-off at the end of the take for every note still held
func closeHeldNotes(take *Take) {
	type key struct{ ch, note uint8 }
	held := make(map[key]bool)
	var order []key

	for _, ev := range take.Events {
		var ch, note, vel uint8
		switch {
		case ev.Msg.GetNoteOn(&ch, &note, &vel) && vel > 0:
			k := key{ch, note}
			if !held[k] {
				order = append(order, k)
			}
			held[k] = true
		case ev.Msg.GetNoteOff(&ch, &note, &vel), ev.Msg.GetNoteOn(&ch, &note, &vel):
			held[key{ch, note}] = false
		}
	}

	for _, k := range order {
		if held[k] {
			take.Events = append(take.Events, TakeEvent{At: take.Length, Msg: gomidi.NoteOff(k.ch, k.note)})
		}
	}
}
