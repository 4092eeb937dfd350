package midi

import (
	"fmt"
	"log/slog"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// NoteEvent is a key pressed or released on a hardware keyboard
type NoteEvent struct {
	Note     uint8
	Velocity uint8
	Channel  uint8
	On       bool
}

// KeyboardInput listens to a hardware MIDI keyboard
type KeyboardInput struct {
	name     string
	inPort   drivers.In
	stopFunc func()

	mu       sync.Mutex
	closed   bool
	noteChan chan NoteEvent
	lost     chan struct{}
}

// OpenKeyboardInput starts listening on the named input port
func OpenKeyboardInput(name string) (*KeyboardInput, error) {
	in, err := findInPort(name)
	if err != nil {
		return nil, err
	}

	kb := &KeyboardInput{
		name:     name,
		inPort:   in,
		noteChan: make(chan NoteEvent, 32),
		lost:     make(chan struct{}),
	}

	stop, err := gomidi.ListenTo(in, kb.handle, gomidi.HandleError(func(listenErr error) {
		slog.Warn("MIDI input error", "device", name, "error", listenErr)
		kb.markLost()
	}))
	if err != nil {
		return nil, fmt.Errorf("listen %q: %w", name, err)
	}
	kb.stopFunc = stop

	return kb, nil
}

func (kb *KeyboardInput) handle(msg gomidi.Message, _ int32) {
	var ch, key, vel uint8
	var ev NoteEvent
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		ev = NoteEvent{Note: key, Velocity: vel, Channel: ch, On: true}
	case msg.GetNoteEnd(&ch, &key):
		ev = NoteEvent{Note: key, Channel: ch}
	default:
		return
	}
	kb.emit(ev)
}

// emit drops events when the consumer falls behind
func (kb *KeyboardInput) emit(ev NoteEvent) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	if kb.closed {
		return
	}
	select {
	case kb.noteChan <- ev:
	default:
		slog.Debug("MIDI input queue full, dropping event", "device", kb.name, "note", ev.Note)
	}
}

func (kb *KeyboardInput) markLost() {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	select {
	case <-kb.lost:
	default:
		close(kb.lost)
	}
}

func (kb *KeyboardInput) Name() string { return kb.name }

// NoteEvents is closed by Close
func (kb *KeyboardInput) NoteEvents() <-chan NoteEvent {
	return kb.noteChan
}

// Lost is closed when the driver reports the device gone
func (kb *KeyboardInput) Lost() <-chan struct{} {
	return kb.lost
}

func (kb *KeyboardInput) Close() error {
	if kb.stopFunc != nil {
		kb.stopFunc()
	}

	kb.mu.Lock()
	if !kb.closed {
		kb.closed = true
		close(kb.noteChan)
	}
	kb.mu.Unlock()

	if kb.inPort != nil {
		return kb.inPort.Close()
	}
	return nil
}
