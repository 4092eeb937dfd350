package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/audiolibrelab/jampiano/internal/audio"
	"github.com/audiolibrelab/jampiano/internal/config"
	"github.com/audiolibrelab/jampiano/internal/keyboard"
	"github.com/audiolibrelab/jampiano/internal/library"
	"github.com/audiolibrelab/jampiano/internal/midi"
	"github.com/audiolibrelab/jampiano/internal/session"
)

type sentMessages struct {
	mu   sync.Mutex
	msgs []gomidi.Message
}

func (s *sentMessages) send(msg gomidi.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	return nil
}

func newTestService(t *testing.T, opts ...func(*config.Config)) (*PianoService, *library.Store) {
	t.Helper()

	cfg := config.Default()
	cfg.Output.Directory = filepath.Join(t.TempDir(), "recordings")
	cfg.Output.TempDirectory = filepath.Join(t.TempDir(), "tmp")
	cfg.Output.Format = "mid"
	for _, opt := range opts {
		opt(cfg)
	}

	sent := &sentMessages{}
	sampler := midi.NewSampler(sent.send, 0, 100)

	store, err := library.Open(":memory:")
	if err != nil {
		t.Fatalf("open library: %v", err)
	}

	backend := audio.NewBackend(cfg, sampler)
	svc := New(cfg, sampler, backend.NewRecorder(cfg), backend.NewPlayer(cfg), store)
	t.Cleanup(func() { svc.Close() })
	return svc, store
}

// recordTake plays one note while recording and stops
func recordTake(t *testing.T, svc *PianoService) {
	t.Helper()
	if err := svc.PressPrimaryButton(); err != nil {
		t.Fatalf("record: %v", err)
	}
	svc.NoteOn(60)
	time.Sleep(20 * time.Millisecond)
	svc.NoteOff(60)
	if err := svc.PressPrimaryButton(); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestSaveFlow(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	recordTake(t, svc)
	if svc.Status().State != session.ReadyToPlay {
		t.Fatalf("Expected ReadyToPlay, got %s", svc.Status().State)
	}

	rec, err := svc.Save(ctx)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if rec.Number != 1 || filepath.Base(rec.Path) != "1.mid" || rec.Format != "mid" {
		t.Errorf("Unexpected recording %+v", rec)
	}
	if _, err := os.Stat(rec.Path); err != nil {
		t.Errorf("Expected saved file: %v", err)
	}
	if store.NumberOfRecordings() != 1 {
		t.Errorf("Expected counter 1, got %d", store.NumberOfRecordings())
	}

	// Saving again numbers the next file
	rec2, err := svc.Save(ctx)
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	if rec2.Number != 2 {
		t.Errorf("Expected recording 2, got %d", rec2.Number)
	}

	recs, err := svc.ListRecordings(ctx)
	if err != nil || len(recs) != 2 {
		t.Errorf("Expected 2 cataloged recordings, got %d (%v)", len(recs), err)
	}
	if status := svc.Status(); status.Recordings != 2 || status.LastSaved != rec2.Path {
		t.Errorf("Unexpected status %+v", status)
	}
}

func TestSaveWithoutCapture(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Save(context.Background())
	if !errors.Is(err, ErrNothingToSave) {
		t.Errorf("Expected ErrNothingToSave, got %v", err)
	}
	if svc.GetLastError() == "" {
		t.Error("Expected last error to be set")
	}
}

func TestEmptyTakeKeepsRecording(t *testing.T) {
	svc, _ := newTestService(t)

	svc.PressPrimaryButton()
	err := svc.PressPrimaryButton()

	if !errors.Is(err, session.ErrNothingCaptured) {
		t.Errorf("Expected ErrNothingCaptured, got %v", err)
	}
	status := svc.Status()
	if status.State != session.Recording || status.Label != "STOP" {
		t.Errorf("Expected Recording / STOP, got %s / %s", status.State, status.Label)
	}
	if status.LastError == "" {
		t.Error("Expected a user-visible error")
	}
}

func TestPlaybackCompletesThroughChannel(t *testing.T) {
	svc, _ := newTestService(t)
	recordTake(t, svc)

	if err := svc.PressPrimaryButton(); err != nil {
		t.Fatalf("play: %v", err)
	}
	if svc.Status().State != session.Playing {
		t.Fatalf("Expected Playing, got %s", svc.Status().State)
	}

	select {
	case c := <-svc.Completions():
		if !svc.HandleCompletion(c) {
			t.Error("Expected completion to apply")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Expected playback completion")
	}

	if status := svc.Status(); status.State != session.ReadyToPlay || status.Label != "PLAY" {
		t.Errorf("Expected ReadyToPlay / PLAY, got %s / %s", status.State, status.Label)
	}
}

func TestResetClearsCapture(t *testing.T) {
	svc, _ := newTestService(t)
	recordTake(t, svc)

	svc.Reset()

	status := svc.Status()
	if status.State != session.ReadyToRecord || status.HasCapture || status.Info != "0.0" {
		t.Errorf("Unexpected status after reset %+v", status)
	}
	if _, err := svc.Save(context.Background()); !errors.Is(err, ErrNothingToSave) {
		t.Errorf("Expected nothing to save after reset, got %v", err)
	}
}

func TestResetKeepsSavedRecordings(t *testing.T) {
	// Temp and output directory shared, as an unvalidated config allows
	svc, _ := newTestService(t, func(cfg *config.Config) {
		cfg.Output.TempDirectory = cfg.Output.Directory
	})
	dir := svc.GetConfig().Output.Directory

	recordTake(t, svc)
	rec, err := svc.Save(context.Background())
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	other := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(other, []byte("keep"), 0644); err != nil {
		t.Fatal(err)
	}

	svc.Reset()

	for _, path := range []string{rec.Path, other} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("Expected %s to survive reset: %v", filepath.Base(path), err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, audio.TakeFileName)); !os.IsNotExist(err) {
		t.Errorf("Expected temp take removed, got %v", err)
	}
}

func TestSaveSkipsExistingFiles(t *testing.T) {
	svc, store := newTestService(t)
	dir := svc.GetConfig().Output.Directory

	os.MkdirAll(dir, 0755)
	if err := os.WriteFile(filepath.Join(dir, "1.mid"), []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	recordTake(t, svc)
	rec, err := svc.Save(context.Background())
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if rec.Number != 2 || filepath.Base(rec.Path) != "2.mid" {
		t.Errorf("Expected recording 2 at 2.mid, got %d at %s", rec.Number, rec.Path)
	}
	if store.NumberOfRecordings() != 2 {
		t.Errorf("Expected counter 2, got %d", store.NumberOfRecordings())
	}

	data, _ := os.ReadFile(filepath.Join(dir, "1.mid"))
	if string(data) != "old" {
		t.Error("Expected existing 1.mid untouched")
	}
}

func TestOctaveShift(t *testing.T) {
	svc, _ := newTestService(t)

	for i := 0; i < 10; i++ {
		svc.OctaveShift(keyboard.Up)
	}
	status := svc.Status()
	if status.Octave != status.MaxOctave {
		t.Errorf("Expected octave clamped at %d, got %d", status.MaxOctave, status.Octave)
	}
	if notice := svc.OctaveShift(keyboard.Up); notice == "" {
		t.Error("Expected a notice at the highest octave")
	}
}

func TestKeyboardOctaveOverride(t *testing.T) {
	svc, _ := newTestService(t)

	if err := svc.Keyboard().SetFirstOctave(5); err != nil {
		t.Fatalf("SetFirstOctave: %v", err)
	}
	if status := svc.Status(); status.Octave != 5 {
		t.Errorf("Expected octave 5 in status, got %d", status.Octave)
	}
	if err := svc.Keyboard().SetFirstOctave(svc.Status().MaxOctave + 1); err == nil {
		t.Error("Expected an out of range octave to be refused")
	}
}
