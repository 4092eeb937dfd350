package audio

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// TakePlayer implements the Player interface by replaying a take through an instrument
type TakePlayer struct {
	inst Instrument

	mutex   sync.Mutex
	take    *Take
	playing bool
	stop    chan struct{}
	done    chan struct{}
}

// NewTakePlayer creates a player sending to inst
func NewTakePlayer(inst Instrument) *TakePlayer {
	return &TakePlayer{inst: inst}
}

// Load prepares a take for playback. Buffers without a take are read from their .mid file.
func (p *TakePlayer) Load(buf *Buffer) error {
	if buf == nil {
		return fmt.Errorf("no buffer to load")
	}

	take := buf.Take
	if take == nil {
		if !strings.EqualFold(filepath.Ext(buf.Path), ".mid") {
			return fmt.Errorf("take player cannot play %s", buf.Path)
		}
		var err error
		take, err = ReadTakeFile(buf.Path)
		if err != nil {
			return err
		}
	}

	p.Stop()

	p.mutex.Lock()
	p.take = take
	p.mutex.Unlock()

	return nil
}

// Play replays the loaded take on a background goroutine
func (p *TakePlayer) Play(onComplete func()) error {
	p.Stop()

	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.take == nil {
		return fmt.Errorf("no take loaded")
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	p.stop = stop
	p.done = done
	p.playing = true

	go p.run(p.take, stop, done, onComplete)

	slog.Debug("Take playback started", "events", len(p.take.Events), "length", p.take.Length)
	return nil
}

func (p *TakePlayer) run(take *Take, stop, done chan struct{}, onComplete func()) {
	defer close(done)

	sounding := newNoteTracker()
	defer sounding.release(p.inst)

	start := time.Now()
	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	wait := func(at time.Duration) bool {
		d := at - time.Since(start)
		if d <= 0 {
			select {
			case <-stop:
				return false
			default:
				return true
			}
		}
		timer.Reset(d)
		select {
		case <-stop:
			return false
		case <-timer.C:
			return true
		}
	}

	for _, ev := range take.Events {
		if !wait(ev.At) {
			return
		}
		if err := p.inst.Send(ev.Msg); err != nil {
			slog.Warn("Failed to replay take event", "error", err)
			continue
		}
		sounding.observe(ev.Msg)
	}

	if !wait(take.Length) {
		return
	}

	// Stop may have won the race to the lock, in which case completion is not reported
	p.mutex.Lock()
	natural := p.playing && p.stop == stop
	if natural {
		p.playing = false
	}
	p.mutex.Unlock()

	if natural && onComplete != nil {
		sounding.release(p.inst)
		onComplete()
	}
}

// Stop interrupts playback and silences the instrument
func (p *TakePlayer) Stop() error {
	p.mutex.Lock()
	if !p.playing {
		p.mutex.Unlock()
		return nil
	}
	p.playing = false
	close(p.stop)
	done := p.done
	p.mutex.Unlock()

	<-done
	slog.Debug("Take playback stopped")
	return nil
}

func (p *TakePlayer) Duration() time.Duration {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.take == nil {
		return 0
	}
	return p.take.Length
}

func (p *TakePlayer) IsPlaying() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.playing
}

// noteTracker remembers sounding notes so playback never leaves one hanging
type noteTracker struct {
	notes    map[[2]uint8]bool
	channels map[uint8]bool
}

func newNoteTracker() *noteTracker {
	return &noteTracker{notes: map[[2]uint8]bool{}, channels: map[uint8]bool{}}
}

func (t *noteTracker) observe(msg gomidi.Message) {
	var ch, key, vel uint8
	switch {
	case msg.GetNoteOn(&ch, &key, &vel) && vel > 0:
		t.notes[[2]uint8{ch, key}] = true
		t.channels[ch] = true
	case msg.GetNoteOff(&ch, &key, &vel), msg.GetNoteOn(&ch, &key, &vel):
		delete(t.notes, [2]uint8{ch, key})
	}
}

func (t *noteTracker) release(inst Instrument) {
	for k := range t.notes {
		if err := inst.Send(gomidi.NoteOff(k[0], k[1])); err != nil {
			slog.Debug("Failed to release note", "note", k[1], "error", err)
		}
	}
	for ch := range t.channels {
		// All Notes Off
		if err := inst.Send(gomidi.ControlChange(ch, 123, 0)); err != nil {
			slog.Debug("Failed to send all notes off", "channel", ch, "error", err)
		}
	}
	t.notes = map[[2]uint8]bool{}
	t.channels = map[uint8]bool{}
}
