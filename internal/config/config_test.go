package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadWithProfile_MissingFileUsesDefaults(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "absent.yaml")

	cfg, err := LoadWithProfile(configFile, "")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.Audio.Backend != "midi" {
		t.Errorf("Expected backend 'midi', got %s", cfg.Audio.Backend)
	}
	if cfg.MIDI.Velocity != 100 || cfg.MIDI.Channel != 0 {
		t.Errorf("Expected velocity 100 on channel 0, got %d on %d", cfg.MIDI.Velocity, cfg.MIDI.Channel)
	}
	if cfg.Keyboard.FirstOctave != 2 || cfg.Keyboard.MinOctave != 0 || cfg.Keyboard.MaxOctave != 6 {
		t.Errorf("Unexpected keyboard defaults: %+v", cfg.Keyboard)
	}
	if cfg.Output.Format != "mid" {
		t.Errorf("Expected format 'mid', got %s", cfg.Output.Format)
	}
	if strings.HasPrefix(cfg.Output.Directory, "~") {
		t.Errorf("Expected expanded output directory, got %s", cfg.Output.Directory)
	}
	if cfg.Output.TempDirectory == "" || cfg.Output.Library == "" {
		t.Errorf("Expected derived temp directory and library path, got %+v", cfg.Output)
	}
}

func TestLoadWithProfile_MissingFileUnknownProfile(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "absent.yaml")

	if _, err := LoadWithProfile(configFile, "studio"); err == nil {
		t.Error("Expected error for a named profile without a config file")
	}
}

func TestLoadWithProfile_NoConfigFile(t *testing.T) {
	if _, err := LoadWithProfile("", ""); err == nil {
		t.Error("Expected error for empty config path")
	}
}

func TestLoadWithProfile_InheritsFromDefault(t *testing.T) {
	configFile := createTempConfig(t, `
active_config: studio

configs:
  default:
    midi:
      out_port: "FLUID"
      velocity: 90
      reverb: 64
    keyboard:
      first_octave: 3
    output:
      directory: /tmp/jampiano-default
  studio:
    midi:
      channel: 9
      reverb: 0
    keyboard:
      min_octave: 1
      max_octave: 5
`)

	cfg, err := LoadWithProfile(configFile, "")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.Profile != "studio" {
		t.Errorf("Expected active profile 'studio', got %s", cfg.Profile)
	}

	// Inherited from default
	if cfg.MIDI.Velocity != 90 {
		t.Errorf("Expected inherited velocity 90, got %d", cfg.MIDI.Velocity)
	}
	if cfg.Keyboard.FirstOctave != 3 {
		t.Errorf("Expected inherited first octave 3, got %d", cfg.Keyboard.FirstOctave)
	}
	if cfg.Output.Directory != "/tmp/jampiano-default" {
		t.Errorf("Expected inherited directory, got %s", cfg.Output.Directory)
	}

	// Profile-specific, explicit 0 wins over the inherited 64
	if cfg.MIDI.Channel != 9 {
		t.Errorf("Expected channel 9, got %d", cfg.MIDI.Channel)
	}
	if cfg.MIDI.Reverb != 0 {
		t.Errorf("Expected reverb 0, got %d", cfg.MIDI.Reverb)
	}

	// Built-in default untouched by either profile
	if cfg.MIDI.ReleaseMs != 400 {
		t.Errorf("Expected built-in release 400, got %d", cfg.MIDI.ReleaseMs)
	}

	checks := map[string]string{
		"midi.velocity":         SourceInherited,
		"midi.channel":          SourceProfileSpecific,
		"midi.reverb":           SourceProfileSpecific,
		"keyboard.min_octave":   SourceProfileSpecific,
		"keyboard.first_octave": SourceInherited,
		"midi.release_ms":       SourceDefault,
	}
	for key, want := range checks {
		if got := cfg.Inheritance.Source(key); got != want {
			t.Errorf("Expected %s to be %s, got %s", key, want, got)
		}
	}
}

func TestLoadWithProfile_ProfileFlagOverridesActiveConfig(t *testing.T) {
	configFile := createTempConfig(t, `
active_config: default

configs:
  default:
    midi:
      program: 0
  organ:
    midi:
      program: 19
`)

	cfg, err := LoadWithProfile(configFile, "Organ")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if cfg.MIDI.Program != 19 {
		t.Errorf("Expected program 19, got %d", cfg.MIDI.Program)
	}
}

func TestLoadWithProfile_UnknownProfile(t *testing.T) {
	configFile := createTempConfig(t, `
active_config: default
configs:
  default:
    midi:
      velocity: 80
`)

	_, err := LoadWithProfile(configFile, "missing")
	if err == nil {
		t.Fatal("Expected error for unknown profile")
	}
	if !strings.Contains(err.Error(), "missing") {
		t.Errorf("Expected error to name the profile, got: %v", err)
	}
}

func TestLoadWithProfile_ShorterSourcesListReplacesDefault(t *testing.T) {
	configFile := createTempConfig(t, `
active_config: capture
configs:
  default:
    audio:
      sources:
        - fluidsynth:left
        - fluidsynth:right
  capture:
    audio:
      backend: pipewire
      sources:
        - fluidsynth:mono
    output:
      format: wav
`)

	cfg, err := LoadWithProfile(configFile, "")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(cfg.Audio.Sources) != 1 || cfg.Audio.Sources[0] != "fluidsynth:mono" {
		t.Errorf("Expected single mono source, got %v", cfg.Audio.Sources)
	}
}

func TestLoadWithProfile_PipewireDefaultsToFlac(t *testing.T) {
	configFile := createTempConfig(t, `
active_config: default
configs:
  default:
    audio:
      backend: pipewire
`)

	cfg, err := LoadWithProfile(configFile, "")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if cfg.Output.Format != "flac" {
		t.Errorf("Expected format 'flac' for pipewire, got %s", cfg.Output.Format)
	}
}

func TestGlobalsRecordingsDirectory(t *testing.T) {
	configFile := createTempConfig(t, `
active_config: default
globals:
  output:
    recordings_directory: /tmp/jampiano-global
configs:
  default:
    output:
      directory: /tmp/jampiano-profile
`)

	cfg, err := LoadWithProfile(configFile, "")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if cfg.Output.Directory != "/tmp/jampiano-global" {
		t.Errorf("Expected global recordings directory, got %s", cfg.Output.Directory)
	}
}

func TestWriteDefaultAndReload(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "nested", "jampiano.yaml")

	if err := WriteDefault(configFile); err != nil {
		t.Fatalf("WriteDefault failed: %v", err)
	}
	if err := WriteDefault(configFile); err == nil {
		t.Error("Expected error when the config file already exists")
	}

	cfg, err := LoadWithProfile(configFile, "")
	if err != nil {
		t.Fatalf("Expected written config to load, got: %v", err)
	}
	if cfg.MIDI.Velocity != 100 || cfg.Keyboard.FirstOctave != 2 {
		t.Errorf("Unexpected reloaded values: %+v %+v", cfg.MIDI, cfg.Keyboard)
	}
}

func TestUpdateActiveConfig(t *testing.T) {
	configFile := createTempConfig(t, `
active_config: default
configs:
  default:
    midi:
      velocity: 100
  soft:
    midi:
      velocity: 40
`)

	if err := UpdateActiveConfig(configFile, "soft"); err != nil {
		t.Fatalf("UpdateActiveConfig failed: %v", err)
	}

	cfg, err := LoadWithProfile(configFile, "")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if cfg.MIDI.Velocity != 40 {
		t.Errorf("Expected velocity 40 from the new active profile, got %d", cfg.MIDI.Velocity)
	}

	if err := UpdateActiveConfig(configFile, "nope"); err == nil {
		t.Error("Expected error for unknown profile")
	}
}

func TestExpandPath(t *testing.T) {
	homeDir, _ := os.UserHomeDir()

	tests := []struct {
		input    string
		expected string
	}{
		{"~/Audio/test", filepath.Join(homeDir, "Audio/test")},
		{"~", homeDir},
		{"/absolute/path", "/absolute/path"},
		{"relative/path", "relative/path"},
	}

	for _, test := range tests {
		result := expandPath(test.input)
		if result != test.expected {
			t.Errorf("expandPath(%s) = %s, expected %s", test.input, result, test.expected)
		}
	}
}

func createTempConfig(t *testing.T, content string) string {
	t.Helper()
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write temp config: %v", err)
	}
	return configFile
}
