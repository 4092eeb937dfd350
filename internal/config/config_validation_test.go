package config

import (
	"os"
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg := Default()
	cfg.Output.Format = "mid"
	cfg.Output.Directory = "/tmp/jampiano"
	return cfg
}

func TestValidate_DefaultConfig(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Errorf("Expected default config to validate, got: %v", err)
	}
}

func TestValidate_Backend(t *testing.T) {
	cfg := validConfig()
	cfg.Audio.Backend = "alsa"

	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "audio.backend") {
		t.Errorf("Expected audio.backend error, got: %v", err)
	}
}

func TestValidate_MIDIRanges(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"channel too high", func(c *Config) { c.MIDI.Channel = 16 }, "midi.channel"},
		{"negative channel", func(c *Config) { c.MIDI.Channel = -1 }, "midi.channel"},
		{"zero velocity", func(c *Config) { c.MIDI.Velocity = 0 }, "midi.velocity"},
		{"velocity too high", func(c *Config) { c.MIDI.Velocity = 128 }, "midi.velocity"},
		{"program too high", func(c *Config) { c.MIDI.Program = 128 }, "midi.program"},
		{"negative reverb", func(c *Config) { c.MIDI.Reverb = -5 }, "midi.reverb"},
		{"zero release", func(c *Config) { c.MIDI.ReleaseMs = 0 }, "midi.release_ms"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil || !strings.Contains(err.Error(), tt.field) {
				t.Errorf("Expected error mentioning %s, got: %v", tt.field, err)
			}
		})
	}
}

func TestValidate_OctaveRange(t *testing.T) {
	tests := []struct {
		name      string
		first     int
		min       int
		max       int
		wantError bool
	}{
		{"defaults", 2, 0, 6, false},
		{"first at max", 8, 0, 8, false},
		{"max beyond midi range", 2, 0, 9, true},
		{"inverted range", 2, 5, 3, true},
		{"first below min", 0, 1, 6, true},
		{"first above max", 7, 0, 6, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Keyboard = KeyboardConfig{FirstOctave: tt.first, MinOctave: tt.min, MaxOctave: tt.max}
			err := Validate(cfg)
			if tt.wantError && err == nil {
				t.Error("Expected validation error")
			}
			if !tt.wantError && err != nil {
				t.Errorf("Expected no error, got: %v", err)
			}
		})
	}
}

func TestValidate_PipewireSources(t *testing.T) {
	cfg := validConfig()
	cfg.Audio.Backend = "pipewire"
	cfg.Output.Format = "flac"

	cfg.Audio.Sources = []string{"fluidsynth:left", "invalid_source"}
	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "audio.sources[1]") {
		t.Errorf("Expected indexed source error, got: %v", err)
	}

	cfg.Audio.Sources = []string{"a:1", "b:2", "c:3"}
	if err := Validate(cfg); err == nil {
		t.Error("Expected error for more than two sources")
	}

	cfg.Audio.Sources = []string{"alsa_output.pci-0000_00_1f.3.analog-stereo:monitor_FL"}
	if err := Validate(cfg); err != nil {
		t.Errorf("Expected device names with colons to validate, got: %v", err)
	}
}

func TestValidate_FormatMatchesBackend(t *testing.T) {
	cfg := validConfig()
	cfg.Output.Format = "wav"
	if err := Validate(cfg); err == nil {
		t.Error("Expected error for wav with the midi backend")
	}

	cfg.Audio.Backend = "pipewire"
	if err := Validate(cfg); err != nil {
		t.Errorf("Expected wav to validate with pipewire, got: %v", err)
	}

	cfg.Output.Format = "mid"
	if err := Validate(cfg); err == nil {
		t.Error("Expected error for mid with the pipewire backend")
	}
}

func TestIsValidAudioSource(t *testing.T) {
	tests := []struct {
		source string
		valid  bool
	}{
		{"fluidsynth:left", true},
		{"system:capture_1", true},
		{"device:with:colons:port", true},
		{"", false},
		{"noport", false},
		{":port", false},
		{"device:", false},
	}

	for _, tt := range tests {
		if got := isValidAudioSource(tt.source); got != tt.valid {
			t.Errorf("isValidAudioSource(%q) = %v, expected %v", tt.source, got, tt.valid)
		}
	}
}

func TestValidate_TempDirectory(t *testing.T) {
	homeDir, _ := os.UserHomeDir()

	tests := []struct {
		name      string
		temp      string
		wantError bool
	}{
		{"private temp dir", "/tmp/jampiano-tmp", false},
		{"sibling of output", "/tmp/jampiano-cache", false},
		{"inside output", "/tmp/jampiano/tmp", false},
		{"same as output", "/tmp/jampiano", true},
		{"same as output with trailing slash", "/tmp/jampiano/", true},
		{"parent of output", "/tmp", true},
		{"root", "/", true},
		{"home directory", homeDir, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Output.TempDirectory = tt.temp
			err := Validate(cfg)
			if tt.wantError && (err == nil || !strings.Contains(err.Error(), "output.temp_directory")) {
				t.Errorf("Expected output.temp_directory error, got: %v", err)
			}
			if !tt.wantError && err != nil {
				t.Errorf("Expected no error, got: %v", err)
			}
		})
	}
}

func TestLoadWithProfile_RejectsTempDirectoryEqualToOutput(t *testing.T) {
	configFile := createTempConfig(t, `
active_config: default
configs:
  default:
    output:
      directory: /tmp/jampiano-shared
      temp_directory: /tmp/jampiano-shared
`)

	if _, err := LoadWithProfile(configFile, ""); err == nil {
		t.Error("Expected error when the temp directory is the output directory")
	}
}
