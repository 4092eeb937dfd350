package session

import (
	"fmt"
	"time"
)

// State of the record/playback loop
type State int

const (
	ReadyToRecord State = iota
	Recording
	ReadyToPlay
	Playing
)

func (s State) String() string {
	switch s {
	case ReadyToRecord:
		return "ready-to-record"
	case Recording:
		return "recording"
	case ReadyToPlay:
		return "ready-to-play"
	case Playing:
		return "playing"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// LabelFor is the primary button caption in each state
func LabelFor(s State) string {
	switch s {
	case Recording, Playing:
		return "STOP"
	case ReadyToPlay:
		return "PLAY"
	default:
		return "RECORD"
	}
}

// InfoText is the duration display: "0.0" until something was captured, then "3.2 sec."
func InfoText(s State, hasCapture bool, d time.Duration) string {
	if !hasCapture || s == ReadyToRecord || s == Recording {
		return "0.0"
	}
	return fmt.Sprintf("%.1f sec.", d.Seconds())
}
