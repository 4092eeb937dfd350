package midi

import (
	"fmt"
	"strings"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// ExcludedInputs are virtual/system ports that are never auto-connected
var ExcludedInputs = []string{"Midi Through", "Through Port", "Dummy", "RtMidi"}

// portScanTimeout bounds a port listing, some drivers hang while devices settle
const portScanTimeout = 3 * time.Second

// OutPortNames lists the available MIDI output ports
func OutPortNames() []string {
	var names []string
	for _, p := range gomidi.GetOutPorts() {
		names = append(names, p.String())
	}
	return names
}

// InPortNames lists the available MIDI input ports
func InPortNames() []string {
	ch := make(chan []string, 1)
	go func() {
		var names []string
		for _, p := range gomidi.GetInPorts() {
			names = append(names, p.String())
		}
		ch <- names
	}()

	select {
	case names := <-ch:
		return names
	case <-time.After(portScanTimeout):
		return nil
	}
}

// FindOutPort returns the first output port containing pattern (case-insensitive),
// or the first port when pattern is empty
func FindOutPort(pattern string) (drivers.Out, error) {
	ports := gomidi.GetOutPorts()
	names := make([]string, len(ports))
	for i, p := range ports {
		names[i] = p.String()
	}

	i, ok := matchPort(names, pattern)
	if !ok {
		if len(names) == 0 {
			return nil, fmt.Errorf("no MIDI output ports available, is the synthesizer running?")
		}
		return nil, fmt.Errorf("no MIDI output port matching %q (available: %s)", pattern, strings.Join(names, ", "))
	}
	return ports[i], nil
}

// findInPort returns the input port with exactly this name
func findInPort(name string) (drivers.In, error) {
	for _, p := range gomidi.GetInPorts() {
		if p.String() == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("input %q not found", name)
}

// matchPort finds the first name containing pattern, case-insensitive
func matchPort(names []string, pattern string) (int, bool) {
	if len(names) == 0 {
		return 0, false
	}
	if pattern == "" {
		return 0, true
	}
	for i, name := range names {
		if containsCI(name, pattern) {
			return i, true
		}
	}
	return 0, false
}

// selectInput picks the hardware keyboard to listen to. An empty pattern
// auto-detects the first input that is not excluded, "disabled" never selects.
func selectInput(names []string, pattern string, excluded []string) (string, bool) {
	if pattern == "disabled" {
		return "", false
	}

	for _, name := range names {
		if isExcluded(name, excluded) {
			continue
		}
		if pattern == "" || containsCI(name, pattern) {
			return name, true
		}
	}
	return "", false
}

func isExcluded(name string, excluded []string) bool {
	for _, pat := range excluded {
		if containsCI(name, pat) {
			return true
		}
	}
	return false
}

func containsCI(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
