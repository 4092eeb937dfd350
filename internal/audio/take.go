package audio

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

const (
	takeResolution = smf.MetricTicks(960)
	takeTempo      = 120.0
)

// TakeEvent is a channel message at its offset from the start of the take
type TakeEvent struct {
	At  time.Duration
	Msg gomidi.Message
}

// Take is a captured keyboard performance
type Take struct {
	Events []TakeEvent
	Length time.Duration
}

// HasNotes reports whether the take contains at least one sounding note
func (t *Take) HasNotes() bool {
	if t == nil {
		return false
	}
	for _, ev := range t.Events {
		var ch, key, vel uint8
		if ev.Msg.GetNoteOn(&ch, &key, &vel) && vel > 0 {
			return true
		}
	}
	return false
}

// WriteSMF encodes the take as a single-track Standard MIDI File
func (t *Take) WriteSMF(w io.Writer) error {
	s := smf.New()
	s.TimeFormat = takeResolution

	var tr smf.Track
	tr.Add(0, smf.MetaTempo(takeTempo))

	var last uint32
	for _, ev := range t.Events {
		abs := takeResolution.Ticks(takeTempo, ev.At)
		if abs < last {
			abs = last
		}
		tr.Add(abs-last, ev.Msg)
		last = abs
	}

	end := takeResolution.Ticks(takeTempo, t.Length)
	if end < last {
		end = last
	}
	tr.Close(end - last)

	if err := s.Add(tr); err != nil {
		return fmt.Errorf("failed to add track: %w", err)
	}

	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write SMF: %w", err)
	}
	return nil
}

// WriteFile writes the take to path as a .mid file
func (t *Take) WriteFile(path string) error {
	var buf bytes.Buffer
	if err := t.WriteSMF(&buf); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// ReadTake decodes a Standard MIDI File into a take, merging all tracks
func ReadTake(r io.Reader) (*Take, error) {
	s, err := smf.ReadFrom(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read SMF: %w", err)
	}

	mt, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, fmt.Errorf("unsupported SMF time format: %v", s.TimeFormat)
	}

	take := &Take{}
	for _, track := range s.Tracks {
		var abs uint32
		bpm := takeTempo
		for _, ev := range track {
			abs += ev.Delta
			at := mt.Duration(bpm, abs)
			if at > take.Length {
				take.Length = at
			}

			var tempo float64
			if ev.Message.GetMetaTempo(&tempo) && tempo > 0 {
				bpm = tempo
				continue
			}

			// Meta and sysex events are not replayed
			if len(ev.Message) == 0 || ev.Message[0] >= 0xF0 {
				continue
			}

			take.Events = append(take.Events, TakeEvent{
				At:  at,
				Msg: gomidi.Message(ev.Message),
			})
		}
	}

	sort.SliceStable(take.Events, func(i, j int) bool {
		return take.Events[i].At < take.Events[j].At
	})
	return take, nil
}

// ReadTakeFile reads a .mid file written by WriteFile
func ReadTakeFile(path string) (*Take, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open take %s: %w", path, err)
	}
	defer f.Close()

	return ReadTake(f)
}
