package audio

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/audiolibrelab/jampiano/internal/config"
)

const (
	// CaptureFileName is the temporary audio capture written by ffmpeg
	CaptureFileName = "temp.wav"

	// captureClient is the JACK client name ffmpeg registers
	captureClient = "jampiano_capture"

	// minCaptureSize below which a capture is considered empty
	minCaptureSize = 1024
)

// PipeWireRecorder implements the Recorder interface by capturing the
// synthesizer's output ports with ffmpeg through pw-jack
type PipeWireRecorder struct {
	cfg *config.Config

	// PipeWire components
	pipewire *PipeWire

	// Recording state
	mutex      sync.Mutex
	recording  bool
	outputFile string
	captured   *Buffer
	stopChan   chan struct{}

	// FFmpeg process
	ffmpegCmd *exec.Cmd
	stderrMu  sync.Mutex
	stderrBuf strings.Builder
}

// NewPipeWireRecorder creates a new PipeWire-based recorder
func NewPipeWireRecorder(cfg *config.Config) *PipeWireRecorder {
	return &PipeWireRecorder{
		cfg:      cfg,
		pipewire: NewPipeWire(),
	}
}

// Start launches ffmpeg and connects the configured sources in the background
func (r *PipeWireRecorder) Start() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.recording {
		return fmt.Errorf("audio capture already in progress")
	}

	if err := os.MkdirAll(r.cfg.Output.TempDirectory, 0755); err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}

	r.captured = nil
	r.outputFile = filepath.Join(r.cfg.Output.TempDirectory, CaptureFileName)
	os.Remove(r.outputFile)

	if err := r.buildAndStartFFmpeg(r.outputFile); err != nil {
		return fmt.Errorf("failed to start FFmpeg: %w", err)
	}

	r.recording = true
	r.stopChan = make(chan struct{})
	go r.connectSources(r.stopChan)

	slog.Info("PipeWire capture started", "sources", r.cfg.Audio.Sources, "output", r.outputFile)
	return nil
}

// connectSources links each configured source to the matching ffmpeg input
func (r *PipeWireRecorder) connectSources(stop <-chan struct{}) {
	for i, source := range r.cfg.Audio.Sources {
		if i >= 2 {
			break
		}
		if source == "" || source == "disabled" {
			continue
		}

		select {
		case <-stop:
			return
		default:
		}

		destPort := fmt.Sprintf("%s:input_%d", captureClient, i+1)

		// Wait for FFmpeg port to be available
		if err := r.waitForSpecificPort(destPort, 5*time.Second); err != nil {
			slog.Error("FFmpeg JACK port did not appear", "port", destPort, "error", err)
			continue
		}

		if err := r.pipewire.ConnectPortsWithRetry(source, destPort); err != nil {
			slog.Error("Failed to connect source", "source", source, "dest", destPort, "error", err)
		} else {
			slog.Debug("Connected source", "source", source, "dest", destPort)
		}
	}
}

// Stop ends the capture. An empty file leaves Captured nil.
func (r *PipeWireRecorder) Stop() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if !r.recording {
		return fmt.Errorf("no recording in progress")
	}

	slog.Debug("Stopping PipeWire capture...")

	r.recording = false
	if r.stopChan != nil {
		close(r.stopChan)
		r.stopChan = nil
	}

	if err := r.stopFFmpeg(); err != nil {
		return fmt.Errorf("failed to stop FFmpeg: %w", err)
	}

	r.captured = r.validateOutputFile()
	return nil
}

func (r *PipeWireRecorder) Captured() *Buffer {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.captured
}

func (r *PipeWireRecorder) IsRecording() bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.recording
}

// Cleanup kills a running ffmpeg and deletes temporary captures
func (r *PipeWireRecorder) Cleanup() error {
	r.mutex.Lock()
	if r.ffmpegCmd != nil && r.ffmpegCmd.Process != nil {
		r.ffmpegCmd.Process.Kill()
		r.ffmpegCmd.Wait()
		r.ffmpegCmd = nil
	}
	if r.stopChan != nil {
		close(r.stopChan)
		r.stopChan = nil
	}
	r.recording = false
	r.captured = nil
	r.mutex.Unlock()

	removed, err := RemoveTempCaptures(r.cfg.Output.TempDirectory, CaptureFileName)
	if err != nil {
		return err
	}

	slog.Debug("PipeWire recorder cleaned up", "removed", removed)
	return nil
}

// ffmpegArgs builds the capture command line
func (r *PipeWireRecorder) ffmpegArgs(outputFile string) []string {
	channelCount := len(r.cfg.Audio.Sources)
	if channelCount == 0 {
		channelCount = 1 // Default to mono
	}
	if channelCount > 2 {
		channelCount = 2 // Cap at stereo
	}

	return []string{
		"pw-jack",
		"ffmpeg",
		"-f", "jack",
		"-channels", fmt.Sprintf("%d", channelCount),
		"-i", captureClient,
		"-ar", fmt.Sprintf("%d", r.cfg.Audio.SampleRate),
		"-c:a", "pcm_s16le",
		"-y", // Overwrite output
		outputFile,
	}
}

// buildAndStartFFmpeg starts the FFmpeg capture process
func (r *PipeWireRecorder) buildAndStartFFmpeg(outputFile string) error {
	// Set PipeWire environment variables
	env := os.Environ()
	env = append(env, "PIPEWIRE_QUANTUM=256/48000")
	env = append(env, "PIPEWIRE_LATENCY=256/48000")

	args := r.ffmpegArgs(outputFile)
	slog.Debug("Starting PipeWire FFmpeg", "command", strings.Join(args, " "))

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Env = env

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start FFmpeg: %w", err)
	}

	r.ffmpegCmd = cmd
	r.stderrMu.Lock()
	r.stderrBuf.Reset()
	r.stderrMu.Unlock()

	go r.readOutput(stdout, false)
	go r.readOutput(stderr, true)

	return nil
}

// readOutput drains a pipe, keeping stderr for error reports
func (r *PipeWireRecorder) readOutput(pipe io.ReadCloser, keep bool) {
	scanner := bufio.NewScanner(pipe)
	for scanner.Scan() {
		line := scanner.Text()
		if keep {
			r.stderrMu.Lock()
			r.stderrBuf.WriteString(line + "\n")
			r.stderrMu.Unlock()
		}
		slog.Debug("FFmpeg output", "line", line)
	}
	pipe.Close()
}

// stopFFmpeg interrupts FFmpeg so it finalizes the file, killing it after 5 seconds
func (r *PipeWireRecorder) stopFFmpeg() error {
	if r.ffmpegCmd == nil {
		return nil
	}

	if r.ffmpegCmd.Process != nil {
		slog.Debug("Sending SIGINT to FFmpeg process")
		if err := r.ffmpegCmd.Process.Signal(os.Interrupt); err != nil {
			slog.Debug("Failed to send interrupt to FFmpeg, falling back to SIGKILL", "error", err)
			r.ffmpegCmd.Process.Kill()
		}
	}

	done := make(chan error, 1)
	go func() {
		done <- r.ffmpegCmd.Wait()
	}()

	select {
	case err := <-done:
		r.ffmpegCmd = nil
		if err != nil {
			if exitErr, ok := err.(*exec.ExitError); ok {
				// Exit code 255 often means the process was interrupted gracefully
				if exitErr.ExitCode() == 255 {
					return nil
				}
				if exitErr.ProcessState != nil {
					stateStr := exitErr.ProcessState.String()
					if stateStr == "signal: interrupt" || stateStr == "signal: killed" {
						return nil
					}
				}
			}
			r.stderrMu.Lock()
			slog.Debug("FFmpeg stderr", "output", r.stderrBuf.String())
			r.stderrMu.Unlock()
			return fmt.Errorf("FFmpeg process failed: %w", err)
		}
		return nil

	case <-time.After(5 * time.Second):
		slog.Warn("FFmpeg did not exit within timeout, force killing")
		if r.ffmpegCmd.Process != nil {
			r.ffmpegCmd.Process.Kill()
		}
		<-done
		r.ffmpegCmd = nil
		return nil
	}
}

// validateOutputFile turns the capture file into a buffer, nil when nothing usable was written
func (r *PipeWireRecorder) validateOutputFile() *Buffer {
	fileInfo, err := os.Stat(r.outputFile)
	if err != nil {
		slog.Debug("No capture file written", "path", r.outputFile)
		return nil
	}

	if fileInfo.Size() < minCaptureSize {
		slog.Debug("Capture file too small", "path", r.outputFile, "size", fileInfo.Size())
		return nil
	}

	duration, err := WAVDuration(r.outputFile)
	if err != nil {
		slog.Warn("Failed to read capture duration", "path", r.outputFile, "error", err)
		return nil
	}
	if duration <= 0 {
		slog.Debug("Capture file holds no audio", "path", r.outputFile)
		return nil
	}

	slog.Debug("PipeWire capture validated", "size", fileInfo.Size(), "duration", duration)
	return &Buffer{Path: r.outputFile, Duration: duration}
}

// waitForSpecificPort waits for a specific JACK port to appear
func (r *PipeWireRecorder) waitForSpecificPort(portName string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		if err := r.pipewire.ValidatePort(portName); err == nil {
			slog.Debug("JACK port found", "port", portName)
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	return fmt.Errorf("timeout waiting for JACK port: %s", portName)
}
