// Package export writes a captured buffer to the recordings directory as <n>.<format>.
package export

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/audiolibrelab/jampiano/internal/audio"
	"github.com/audiolibrelab/jampiano/internal/config"
)

type Exporter struct {
	cfg *config.Config

	// ffmpeg binary used for transcoding audio captures
	ffmpeg string
}

func New(cfg *config.Config) *Exporter {
	return &Exporter{cfg: cfg, ffmpeg: "ffmpeg"}
}

// OutputPath is the file a recording number is saved to
func (e *Exporter) OutputPath(number int, buf *audio.Buffer) string {
	return filepath.Join(e.cfg.Output.Directory, fmt.Sprintf("%d.%s", number, e.formatFor(buf)))
}

// FreeNumber returns the first recording number from on whose output file
// does not exist yet
func (e *Exporter) FreeNumber(from int, buf *audio.Buffer) int {
	number := from
	for {
		if _, err := os.Stat(e.OutputPath(number, buf)); errors.Is(err, os.ErrNotExist) {
			return number
		}
		number++
	}
}

// formatFor picks "mid" for takes and the configured format for audio captures
func (e *Exporter) formatFor(buf *audio.Buffer) string {
	if buf.IsAudio() {
		return strings.ToLower(e.cfg.Output.Format)
	}
	return "mid"
}

// Export saves buf as recording number and returns the written file
func (e *Exporter) Export(buf *audio.Buffer, number int) (string, error) {
	if buf == nil {
		return "", fmt.Errorf("nothing to export")
	}

	if err := os.MkdirAll(e.cfg.Output.Directory, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	outputFile := e.OutputPath(number, buf)
	if _, err := os.Stat(outputFile); err == nil {
		return "", fmt.Errorf("output file already exists: %s (move it away or save again to use the next free number)", outputFile)
	}

	var err error
	switch {
	case !buf.IsAudio():
		err = buf.Take.WriteFile(outputFile)
	case e.formatFor(buf) == "wav":
		err = copyFile(buf.Path, outputFile)
	default:
		err = e.transcode(buf.Path, outputFile)
	}
	if err != nil {
		os.Remove(outputFile)
		return "", err
	}

	// Verify output file was created
	if _, err := os.Stat(outputFile); err != nil {
		return "", fmt.Errorf("output file not created: %s", outputFile)
	}

	slog.Info("Recording saved to", "file", outputFile)
	return outputFile, nil
}

func (e *Exporter) transcode(inputFile, outputFile string) error {
	if _, err := os.Stat(inputFile); err != nil {
		return fmt.Errorf("input file not found: %s", inputFile)
	}

	args := BuildFFmpegArgs(inputFile, outputFile, strings.ToLower(e.cfg.Output.Format), e.cfg.Audio.SampleRate)
	cmd := exec.Command(e.ffmpeg, args...)

	slog.Debug("Running FFmpeg for export", "command", strings.Join(cmd.Args, " "))

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("FFmpeg export failed: %w\nOutput: %s", err, string(output))
	}
	return nil
}

// BuildFFmpegArgs returns the transcode arguments for an audio capture
func BuildFFmpegArgs(inputFile, outputFile, format string, sampleRate int) []string {
	args := []string{"-i", inputFile, "-ar", fmt.Sprintf("%d", sampleRate)}

	switch format {
	case "mp3":
		args = append(args, "-c:a", "libmp3lame", "-q:a", "2")
	case "flac":
		args = append(args, "-c:a", "flac")
	default:
		args = append(args, "-c:a", "pcm_s16le")
	}

	return append(args,
		"-y", // Overwrite output file
		outputFile,
	)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("input file not found: %s", src)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy capture: %w", err)
	}
	return out.Close()
}
