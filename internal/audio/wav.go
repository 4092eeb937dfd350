package audio

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-audio/wav"
)

// WAVDuration reads the duration of a PCM WAV file from its header.
// ffmpeg interrupted by a signal may leave the data size unset (0 or
// 0xFFFFFFFF), which the decoder reports as is, so the bytes after the data
// chunk header are used instead.
func WAVDuration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}

	dec := wav.NewDecoder(f)
	if err := dec.FwdToPCM(); err != nil {
		return 0, fmt.Errorf("not a WAV file: %s: %w", path, err)
	}
	if dec.AvgBytesPerSec == 0 {
		return 0, fmt.Errorf("no byte rate in WAV header: %s", path)
	}

	dataStart, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	available := info.Size() - dataStart
	dataSize := int64(dec.PCMSize)
	if dataSize <= 0 || dataSize > available {
		dataSize = available
	}
	return time.Duration(float64(dataSize) / float64(dec.AvgBytesPerSec) * float64(time.Second)), nil
}
