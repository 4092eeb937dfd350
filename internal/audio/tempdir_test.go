package audio

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRemoveTempCaptures(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{TakeFileName, CaptureFileName, "1.mid", "notes.txt"} {
		os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644)
	}

	removed, err := RemoveTempCaptures(dir)
	if err != nil {
		t.Fatalf("RemoveTempCaptures failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("Expected 2 captures removed, got %d", removed)
	}

	// Files the recorders did not write survive
	for _, name := range []string{"1.mid", "notes.txt"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("Expected %s to remain: %v", name, err)
		}
	}
	for _, name := range []string{TakeFileName, CaptureFileName} {
		if _, err := os.Stat(filepath.Join(dir, name)); !os.IsNotExist(err) {
			t.Errorf("Expected %s to be removed", name)
		}
	}
}

func TestRemoveTempCaptures_Named(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, TakeFileName), []byte("x"), 0644)
	os.WriteFile(filepath.Join(dir, CaptureFileName), []byte("x"), 0644)

	removed, err := RemoveTempCaptures(dir, TakeFileName)
	if err != nil || removed != 1 {
		t.Fatalf("Expected (1, nil), got (%d, %v)", removed, err)
	}
	if _, err := os.Stat(filepath.Join(dir, CaptureFileName)); err != nil {
		t.Errorf("Expected %s to remain: %v", CaptureFileName, err)
	}
}

func TestRemoveTempCaptures_Missing(t *testing.T) {
	removed, err := RemoveTempCaptures(filepath.Join(t.TempDir(), "never-created"))
	if err != nil || removed != 0 {
		t.Errorf("Expected (0, nil) for a missing directory, got (%d, %v)", removed, err)
	}
}

func TestRemoveTempCaptures_Unset(t *testing.T) {
	if _, err := RemoveTempCaptures(""); err == nil {
		t.Error("Expected error for empty temp directory")
	}
}
