package keyboard

const (
	// WhiteKeyWidth in terminal columns
	WhiteKeyWidth = 4

	// BlackKeyWidth in terminal columns, centered on the boundary between two white keys
	BlackKeyWidth = 3

	// BlackKeyRows is the height of the black keys, KeyRows of the whole keyboard
	BlackKeyRows = 3
	KeyRows      = 5
)

// Rect places a key on the terminal grid
type Rect struct {
	Key   Key
	X     int
	Width int
}

func (r Rect) contains(x int) bool {
	return x >= r.X && x < r.X+r.Width
}

// Layout returns the white and black key rectangles at the current octave
func (k *Keyboard) Layout() (white, black []Rect) {
	whites := 0
	for _, key := range k.Keys() {
		if key.Accidental {
			center := whites * WhiteKeyWidth
			black = append(black, Rect{Key: key, X: center - BlackKeyWidth/2, Width: BlackKeyWidth})
			continue
		}
		white = append(white, Rect{Key: key, X: whites * WhiteKeyWidth, Width: WhiteKeyWidth})
		whites++
	}
	return white, black
}

// Width is the number of columns the keyboard occupies
func (k *Keyboard) Width() int {
	white, _ := k.Layout()
	return len(white)*WhiteKeyWidth + 1
}

// HitTest finds the key under a mouse press relative to the keyboard origin.
// Black keys take precedence on the rows where they overlap white keys.
func (k *Keyboard) HitTest(x, row int) (Key, bool) {
	if row < 0 || row >= KeyRows || x < 0 {
		return Key{}, false
	}

	white, black := k.Layout()
	if row < BlackKeyRows {
		for _, r := range black {
			if r.contains(x) {
				return r.Key, true
			}
		}
	}
	for _, r := range white {
		if r.contains(x) {
			return r.Key, true
		}
	}
	return Key{}, false
}
