// Package keyboard models the on-screen piano: which notes the qwerty row
// plays, the octave it starts at, and where each key sits for mouse input.
package keyboard

import (
	"fmt"

	"github.com/audiolibrelab/jampiano/internal/config"
)

// KeyCount is the number of playable keys, C through F of the next octave
const KeyCount = 18

// midiC0 is the MIDI number of C0, so C4 = 60
const midiC0 = 12

// Direction of an octave shift
type Direction int

const (
	Down Direction = -1
	Up   Direction = 1
)

func (d Direction) String() string {
	if d == Up {
		return "up"
	}
	return "down"
}

// qwerty keys ordered to allow for fingering similar to a real piano:
// home row for naturals, q-row for accidentals
var bindings = [KeyCount]string{"a", "w", "s", "e", "d", "f", "t", "g", "y", "h", "u", "j", "k", "o", "l", "p", ";", "'"}

var noteNames = [12]struct {
	name       string
	accidental bool
}{
	{"C", false}, {"C#", true}, {"D", false}, {"D#", true}, {"E", false}, {"F", false},
	{"F#", true}, {"G", false}, {"G#", true}, {"A", false}, {"A#", true}, {"B", false},
}

// Key is one playable key at the current octave
type Key struct {
	Index      int
	Note       int
	Name       string
	Accidental bool
	Binding    string
}

// Keyboard holds the first octave shown, bounded to [min, max]
type Keyboard struct {
	first int
	min   int
	max   int
}

// New creates a keyboard. first is clamped into [min, max].
func New(first, min, max int) *Keyboard {
	if max < min {
		max = min
	}
	kb := &Keyboard{min: min, max: max}
	kb.first = kb.clamp(first)
	return kb
}

// FromConfig creates a keyboard from the keyboard section of a profile
func FromConfig(cfg config.KeyboardConfig) *Keyboard {
	return New(cfg.FirstOctave, cfg.MinOctave, cfg.MaxOctave)
}

func (k *Keyboard) clamp(octave int) int {
	if octave < k.min {
		return k.min
	}
	if octave > k.max {
		return k.max
	}
	return octave
}

func (k *Keyboard) FirstOctave() int { return k.first }

// Range returns the allowed first-octave bounds
func (k *Keyboard) Range() (min, max int) { return k.min, k.max }

// SetFirstOctave moves the keyboard to an explicit octave
func (k *Keyboard) SetFirstOctave(octave int) error {
	if octave < k.min || octave > k.max {
		return fmt.Errorf("octave %d is outside [%d, %d]", octave, k.min, k.max)
	}
	k.first = octave
	return nil
}

// OctaveShift moves the keyboard one octave. At a bound the offset is left
// unchanged and a notice for the user is returned instead.
func (k *Keyboard) OctaveShift(dir Direction) string {
	next := k.first + int(dir)
	switch {
	case next > k.max:
		return fmt.Sprintf("already at the highest octave (%d)", k.max)
	case next < k.min:
		return fmt.Sprintf("already at the lowest octave (%d)", k.min)
	}
	k.first = next
	return ""
}

// Keys returns the playable keys at the current octave
func (k *Keyboard) Keys() []Key {
	keys := make([]Key, KeyCount)
	for i := range keys {
		keys[i] = k.key(i)
	}
	return keys
}

func (k *Keyboard) key(i int) Key {
	note := midiC0 + 12*k.first + i
	return Key{
		Index:      i,
		Note:       note,
		Name:       NoteName(note),
		Accidental: noteNames[i%12].accidental,
		Binding:    bindings[i],
	}
}

// NoteForKey maps a qwerty key to the note it plays at the current octave
func (k *Keyboard) NoteForKey(binding string) (int, bool) {
	for i, b := range bindings {
		if b == binding {
			return midiC0 + 12*k.first + i, true
		}
	}
	return 0, false
}

// NoteName formats a MIDI note number, e.g. 60 -> "C4"
func NoteName(note int) string {
	if note < 0 {
		return "?"
	}
	return fmt.Sprintf("%s%d", noteNames[note%12].name, note/12-1)
}
