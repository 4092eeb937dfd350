package audio

import (
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// PipeWire wraps the pw-link port operations used by the capture backend
type PipeWire struct {
	// Retry policy for connecting the synthesizer ports
	maxRetries int
	retryDelay time.Duration
}

// NewPipeWire creates a new PipeWire instance
func NewPipeWire() *PipeWire {
	return &PipeWire{
		maxRetries: 5,
		retryDelay: 500 * time.Millisecond,
	}
}

// ListPorts returns all available JACK ports via PipeWire
func (pw *PipeWire) ListPorts() ([]string, error) {
	output, err := exec.Command("pw-link", "-io").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list PipeWire ports: %w", err)
	}

	return parsePortList(string(output)), nil
}

// parsePortList extracts port names from pw-link output
func parsePortList(output string) []string {
	var ports []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "Input ports:") && !strings.HasPrefix(line, "Output ports:") {
			ports = append(ports, line)
		}
	}
	return ports
}

// ValidatePort checks if a specific port exists and has no duplicates
func (pw *PipeWire) ValidatePort(portName string) error {
	if portName == "" || portName == "disabled" {
		return nil
	}

	allPorts, err := pw.ListPorts()
	if err != nil {
		return err
	}

	return validatePortInList(portName, allPorts)
}

// validatePortInList applies the existence and duplicate checks to a known port list
func validatePortInList(portName string, allPorts []string) error {
	if portName == "" || portName == "disabled" {
		return nil
	}

	duplicates := findPortDuplicatesInList(portName, allPorts)
	switch {
	case len(duplicates) == 0:
		return fmt.Errorf("port not found: %s", portName)
	case len(duplicates) > 1:
		return fmt.Errorf("duplicate sources detected for '%s': %v. Please close conflicting applications", portName, duplicates)
	}

	return nil
}

// findPortDuplicatesInList finds all ports with exactly the same name
func findPortDuplicatesInList(portName string, allPorts []string) []string {
	var duplicates []string
	for _, port := range allPorts {
		if port == portName {
			duplicates = append(duplicates, port)
		}
	}

	return duplicates
}

// ConnectPortsWithRetry connects two JACK ports, retrying while the source is not yet registered
func (pw *PipeWire) ConnectPortsWithRetry(sourcePort, destPort string) error {
	for attempt := 1; attempt <= pw.maxRetries; attempt++ {
		if err := pw.ValidatePort(sourcePort); err == nil {
			err := pw.connectPorts(sourcePort, destPort)
			if err == nil {
				slog.Debug("Successfully connected ports", "source", sourcePort, "dest", destPort, "attempt", attempt)
				return nil
			}
			slog.Debug("Connection attempt failed", "source", sourcePort, "dest", destPort, "attempt", attempt, "error", err)
		} else {
			slog.Debug("Source port not available", "source", sourcePort, "attempt", attempt, "error", err)
		}

		if attempt < pw.maxRetries {
			time.Sleep(pw.retryDelay)
		}
	}

	return fmt.Errorf("failed to connect %s to %s after %d attempts", sourcePort, destPort, pw.maxRetries)
}

// connectPorts performs the actual port connection
func (pw *PipeWire) connectPorts(sourcePort, destPort string) error {
	output, err := exec.Command("pw-link", sourcePort, destPort).CombinedOutput()
	if err != nil {
		return fmt.Errorf("failed to connect ports: %w (output: %s)", err, string(output))
	}
	return nil
}
