package midi

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DeviceEventType distinguishes hot-plug events
type DeviceEventType int

const (
	DeviceConnected DeviceEventType = iota
	DeviceDisconnected
)

func (t DeviceEventType) String() string {
	if t == DeviceConnected {
		return "connected"
	}
	return "disconnected"
}

// DeviceEvent is emitted when a hardware keyboard connects/disconnects
type DeviceEvent struct {
	Type DeviceEventType
	Name string
}

// InputWatcher keeps a connection to a hardware keyboard across hot-plug,
// merging its notes into a single channel
type InputWatcher struct {
	pattern  string
	excluded []string
	pollRate time.Duration

	listInputs func() []string
	open       func(name string) (*KeyboardInput, error)

	mu      sync.Mutex
	current *KeyboardInput
	wg      sync.WaitGroup

	events chan DeviceEvent
	notes  chan NoteEvent
}

// NewInputWatcher watches for an input matching pattern (empty = first non-virtual input)
func NewInputWatcher(pattern string) *InputWatcher {
	return &InputWatcher{
		pattern:    pattern,
		excluded:   ExcludedInputs,
		pollRate:   time.Second,
		listInputs: InPortNames,
		open:       OpenKeyboardInput,
		events:     make(chan DeviceEvent, 16),
		notes:      make(chan NoteEvent, 64),
	}
}

// Events returns the channel for device connect/disconnect events
func (w *InputWatcher) Events() <-chan DeviceEvent {
	return w.events
}

// Notes returns the merged note events of the connected keyboard
func (w *InputWatcher) Notes() <-chan NoteEvent {
	return w.notes
}

// Run polls for devices until ctx is done, then closes both channels
func (w *InputWatcher) Run(ctx context.Context) {
	if w.pattern == "disabled" {
		<-ctx.Done()
		close(w.events)
		close(w.notes)
		return
	}

	ticker := time.NewTicker(w.pollRate)
	defer ticker.Stop()

	// Initial scan
	w.scan()

	for {
		select {
		case <-ctx.Done():
			w.disconnect(false)
			w.wg.Wait()
			close(w.events)
			close(w.notes)
			return
		case <-ticker.C:
			w.scan()
		}
	}
}

func (w *InputWatcher) scan() {
	names := w.listInputs()

	w.mu.Lock()
	current := w.current
	w.mu.Unlock()

	if current != nil {
		lost := false
		select {
		case <-current.Lost():
			lost = true
		default:
		}
		if !lost && containsName(names, current.Name()) {
			return
		}
		slog.Warn("MIDI keyboard disappeared", "device", current.Name())
		w.disconnect(true)
	}

	name, ok := selectInput(names, w.pattern, w.excluded)
	if !ok {
		return
	}

	kb, err := w.open(name)
	if err != nil {
		slog.Error("MIDI keyboard connect failed", "device", name, "error", err)
		return
	}

	w.mu.Lock()
	w.current = kb
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.forward(kb)
	}()

	slog.Info("MIDI keyboard connected", "device", name)
	w.emit(DeviceEvent{Type: DeviceConnected, Name: name})
}

// forward copies a keyboard's notes until it is closed
func (w *InputWatcher) forward(kb *KeyboardInput) {
	for ev := range kb.NoteEvents() {
		select {
		case w.notes <- ev:
		default:
		}
	}
}

func (w *InputWatcher) disconnect(notify bool) {
	w.mu.Lock()
	kb := w.current
	w.current = nil
	w.mu.Unlock()

	if kb == nil {
		return
	}
	if err := kb.Close(); err != nil {
		slog.Debug("Failed to close MIDI input", "device", kb.Name(), "error", err)
	}
	if notify {
		w.emit(DeviceEvent{Type: DeviceDisconnected, Name: kb.Name()})
	}
}

func (w *InputWatcher) emit(ev DeviceEvent) {
	select {
	case w.events <- ev:
	default:
		slog.Debug("Device event dropped", "event", ev.Type, "device", ev.Name)
	}
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
