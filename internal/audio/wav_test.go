package audio

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeTestWAV writes a 16-bit PCM WAV with dataSize bytes of silence.
// declaredSize overrides the data chunk size field when non-negative.
func writeTestWAV(t *testing.T, path string, sampleRate, channels, dataSize int, declaredSize int64) {
	t.Helper()

	blockAlign := channels * 2
	byteRate := sampleRate * blockAlign

	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+dataSize))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1)
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], 16)
	copy(header[36:40], "data")
	size := uint32(dataSize)
	if declaredSize >= 0 {
		size = uint32(declaredSize)
	}
	binary.LittleEndian.PutUint32(header[40:44], size)

	data := append(header, make([]byte, dataSize)...)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write WAV: %v", err)
	}
}

func TestWAVDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "temp.wav")
	// 2 seconds of 48kHz stereo 16-bit
	writeTestWAV(t, path, 48000, 2, 48000*2*2*2, -1)

	d, err := WAVDuration(path)
	if err != nil {
		t.Fatalf("WAVDuration failed: %v", err)
	}
	if d != 2*time.Second {
		t.Errorf("Expected 2s, got %v", d)
	}
}

func TestWAVDuration_UnsetDataSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "temp.wav")
	// Interrupted ffmpeg leaves the size field at 0
	writeTestWAV(t, path, 44100, 1, 44100*2, 0)

	d, err := WAVDuration(path)
	if err != nil {
		t.Fatalf("WAVDuration failed: %v", err)
	}
	if d != time.Second {
		t.Errorf("Expected 1s from the file size, got %v", d)
	}
}

func TestWAVDuration_NotWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "temp.wav")
	os.WriteFile(path, []byte("definitely not a riff file"), 0644)

	if _, err := WAVDuration(path); err == nil {
		t.Error("Expected error for non-WAV file")
	}
}
