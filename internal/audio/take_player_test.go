package audio

import (
	"testing"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
)

func shortTake() *Take {
	return &Take{
		Events: []TakeEvent{
			{At: 0, Msg: gomidi.NoteOn(0, 60, 100)},
			{At: 10 * time.Millisecond, Msg: gomidi.NoteOff(0, 60)},
		},
		Length: 20 * time.Millisecond,
	}
}

func TestTakePlayer_PlaysToCompletion(t *testing.T) {
	inst := &fakeInstrument{}
	p := NewTakePlayer(inst)

	if err := p.Load(&Buffer{Take: shortTake(), Duration: 20 * time.Millisecond}); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if p.Duration() != 20*time.Millisecond {
		t.Errorf("Expected duration 20ms, got %v", p.Duration())
	}

	completed := make(chan struct{})
	if err := p.Play(func() { close(completed) }); err != nil {
		t.Fatalf("Play failed: %v", err)
	}

	select {
	case <-completed:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected playback to complete")
	}

	if p.IsPlaying() {
		t.Error("Expected player idle after completion")
	}

	sent := inst.messages()
	if len(sent) < 2 {
		t.Fatalf("Expected take events replayed, got %d messages", len(sent))
	}
	var ch, key, vel uint8
	if !sent[0].GetNoteOn(&ch, &key, &vel) || key != 60 {
		t.Errorf("Expected note-on 60 first, got %v", sent[0])
	}
}

func TestTakePlayer_StopSuppressesCompletion(t *testing.T) {
	inst := &fakeInstrument{}
	p := NewTakePlayer(inst)

	long := &Take{
		Events: []TakeEvent{{At: 0, Msg: gomidi.NoteOn(0, 60, 100)}},
		Length: time.Minute,
	}
	p.Load(&Buffer{Take: long})

	completed := make(chan struct{}, 1)
	p.Play(func() { completed <- struct{}{} })

	time.Sleep(20 * time.Millisecond)
	if err := p.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	select {
	case <-completed:
		t.Error("Expected no completion after Stop")
	case <-time.After(50 * time.Millisecond):
	}

	// The held note is released and all notes off is sent
	sent := inst.messages()
	var sawOff, sawAllOff bool
	for _, msg := range sent {
		var ch, key, vel, ctl, val uint8
		if msg.GetNoteOff(&ch, &key, &vel) && key == 60 {
			sawOff = true
		}
		if msg.GetControlChange(&ch, &ctl, &val) && ctl == 123 {
			sawAllOff = true
		}
	}
	if !sawOff || !sawAllOff {
		t.Errorf("Expected note-off and all-notes-off after Stop, got %v", sent)
	}
}

func TestTakePlayer_LoadFromFile(t *testing.T) {
	path := t.TempDir() + "/temp.mid"
	if err := shortTake().WriteFile(path); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	p := NewTakePlayer(&fakeInstrument{})
	if err := p.Load(&Buffer{Path: path}); err != nil {
		t.Fatalf("Expected .mid buffer to load, got: %v", err)
	}
	if err := p.Load(&Buffer{Path: "/tmp/capture.wav"}); err == nil {
		t.Error("Expected error loading an audio file into the take player")
	}
	if err := p.Load(nil); err == nil {
		t.Error("Expected error loading nil buffer")
	}
}

func TestTakePlayer_PlayWithoutLoad(t *testing.T) {
	p := NewTakePlayer(&fakeInstrument{})
	if err := p.Play(nil); err == nil {
		t.Error("Expected error playing without a loaded take")
	}
}
