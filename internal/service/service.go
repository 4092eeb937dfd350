package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/audiolibrelab/jampiano/internal/audio"
	"github.com/audiolibrelab/jampiano/internal/config"
	"github.com/audiolibrelab/jampiano/internal/export"
	"github.com/audiolibrelab/jampiano/internal/keyboard"
	"github.com/audiolibrelab/jampiano/internal/library"
	"github.com/audiolibrelab/jampiano/internal/session"
)

// ErrNothingToSave is returned by Save when there is no capture
var ErrNothingToSave = errors.New("nothing to save, record a take first")

// Service represents the core JamPiano service interface
type Service interface {
	// Keyboard operations
	NoteOn(note int)
	NoteOnVelocity(note, velocity int)
	NoteOff(note int)
	OctaveShift(dir keyboard.Direction) string
	Keyboard() *keyboard.Keyboard

	// Session operations
	PressPrimaryButton() error
	Reset()
	Completions() <-chan session.Completion
	HandleCompletion(c session.Completion) bool

	// Library operations
	Save(ctx context.Context) (*library.Recording, error)
	ListRecordings(ctx context.Context) ([]library.Recording, error)

	// Information operations
	Status() Status
	GetConfig() *config.Config
	GetLastError() string

	Close() error
}

// Sampler is the instrument the keyboard plays
type Sampler interface {
	NoteOn(note int)
	NoteOnVelocity(note, velocity int)
	NoteOff(note int)
	Close() error
}

// Status is a snapshot for the UI
type Status struct {
	State      session.State
	Label      string
	Info       string
	HasCapture bool
	Duration   time.Duration

	Octave    int
	MinOctave int
	MaxOctave int

	Recordings int
	LastSaved  string
	LastError  string
}

var _ Service = (*PianoService)(nil)

// PianoService is the main service implementation
type PianoService struct {
	cfg      *config.Config
	sampler  Sampler
	recorder audio.Recorder
	session  *session.Session
	keyboard *keyboard.Keyboard
	store    *library.Store
	exporter *export.Exporter

	lastSaved string

	// Error tracking
	lastError      string
	lastErrorMutex sync.RWMutex
}

// New creates a new JamPiano service instance
func New(cfg *config.Config, sampler Sampler, recorder audio.Recorder, player audio.Player, store *library.Store) *PianoService {
	return &PianoService{
		cfg:      cfg,
		sampler:  sampler,
		recorder: recorder,
		session:  session.New(recorder, player),
		keyboard: keyboard.FromConfig(cfg.Keyboard),
		store:    store,
		exporter: export.New(cfg),
	}
}

// NoteOn starts a note on the sampler
func (s *PianoService) NoteOn(note int) {
	s.sampler.NoteOn(note)
}

// NoteOnVelocity starts a note played on a velocity-sensitive keyboard
func (s *PianoService) NoteOnVelocity(note, velocity int) {
	s.sampler.NoteOnVelocity(note, velocity)
}

// NoteOff releases a note on the sampler
func (s *PianoService) NoteOff(note int) {
	s.sampler.NoteOff(note)
}

// OctaveShift moves the keyboard, returning a notice at the range bounds
func (s *PianoService) OctaveShift(dir keyboard.Direction) string {
	notice := s.keyboard.OctaveShift(dir)
	if notice != "" {
		slog.Debug("Octave shift refused", "direction", dir, "octave", s.keyboard.FirstOctave())
	}
	return notice
}

func (s *PianoService) Keyboard() *keyboard.Keyboard {
	return s.keyboard
}

// PressPrimaryButton advances the record/playback loop
func (s *PianoService) PressPrimaryButton() error {
	from := s.session.State()
	slog.Debug("Service.PressPrimaryButton called", "state", from)

	err := s.session.PressPrimaryButton()
	switch {
	case err == nil:
		s.clearLastError()
	case errors.Is(err, session.ErrNothingCaptured):
		s.setLastError("Nothing captured yet, still recording")
	case errors.Is(err, session.ErrRecorderStart):
		s.setLastError(fmt.Sprintf("Failed to start recording: %v", err))
	default:
		s.setLastError(fmt.Sprintf("%s failed: %v", strings.ToLower(session.LabelFor(from)), err))
	}

	if err != nil {
		slog.Error("Service.PressPrimaryButton failed", "state", from, "error", err)
	}
	return err
}

// Reset discards the capture and returns to ReadyToRecord
func (s *PianoService) Reset() {
	s.session.Reset()
	s.lastSaved = ""
	s.clearLastError()
}

func (s *PianoService) Completions() <-chan session.Completion {
	return s.session.Completions()
}

func (s *PianoService) HandleCompletion(c session.Completion) bool {
	return s.session.HandleCompletion(c)
}

// Save exports the capture as the next numbered recording and catalogs it
func (s *PianoService) Save(ctx context.Context) (*library.Recording, error) {
	buf := s.session.Captured()
	if buf == nil {
		s.setLastError(ErrNothingToSave.Error())
		return nil, ErrNothingToSave
	}

	next := s.store.NextNumber()
	number := s.exporter.FreeNumber(next, buf)
	if number != next {
		slog.Warn("Recording numbers taken by existing files, skipping ahead", "from", next, "to", number)
	}

	path, err := s.exporter.Export(buf, number)
	if err != nil {
		s.setLastError(fmt.Sprintf("Failed to save recording: %v", err))
		return nil, err
	}

	var size int64
	if info, err := os.Stat(path); err == nil {
		size = info.Size()
	}

	rec := &library.Recording{
		Number:   number,
		Path:     path,
		Format:   strings.TrimPrefix(filepath.Ext(path), "."),
		Duration: buf.Duration,
		Size:     size,
	}
	if err := s.store.Add(ctx, rec); err != nil {
		// Keep files and catalog in step
		os.Remove(path)
		s.setLastError(fmt.Sprintf("Failed to catalog recording: %v", err))
		return nil, err
	}

	s.lastSaved = path
	s.clearLastError()
	slog.Info("Recording saved", "number", number, "path", path, "duration", buf.Duration)
	return rec, nil
}

func (s *PianoService) ListRecordings(ctx context.Context) ([]library.Recording, error) {
	return s.store.List(ctx)
}

// Status returns a snapshot of session, keyboard and library state
func (s *PianoService) Status() Status {
	min, max := s.keyboard.Range()
	return Status{
		State:      s.session.State(),
		Label:      s.session.Label(),
		Info:       s.session.Info(),
		HasCapture: s.session.HasCapturedAudio(),
		Duration:   s.session.LastRecordingDuration(),
		Octave:     s.keyboard.FirstOctave(),
		MinOctave:  min,
		MaxOctave:  max,
		Recordings: s.store.NumberOfRecordings(),
		LastSaved:  s.lastSaved,
		LastError:  s.GetLastError(),
	}
}

// GetConfig returns the current configuration
func (s *PianoService) GetConfig() *config.Config {
	return s.cfg
}

// GetLastError returns the last error message
func (s *PianoService) GetLastError() string {
	s.lastErrorMutex.RLock()
	defer s.lastErrorMutex.RUnlock()
	return s.lastError
}

// setLastError sets the last error message
func (s *PianoService) setLastError(err string) {
	s.lastErrorMutex.Lock()
	defer s.lastErrorMutex.Unlock()
	s.lastError = err
}

// clearLastError clears the last error message
func (s *PianoService) clearLastError() {
	s.lastErrorMutex.Lock()
	defer s.lastErrorMutex.Unlock()
	s.lastError = ""
}

// Close tears down the session and releases the sampler and library
func (s *PianoService) Close() error {
	s.session.Reset()

	var errs []error
	if err := s.sampler.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close sampler: %w", err))
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close library: %w", err))
	}
	return errors.Join(errs...)
}
