package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultProfile is the profile every other profile falls back to
const DefaultProfile = "default"

// MaxOctave is the highest first octave that keeps all 18 keys inside the MIDI range
const MaxOctave = 8

// Inheritance sources reported by the info command
const (
	SourceDefault         = "default"
	SourceInherited       = "inherited"
	SourceProfileSpecific = "profile-specific"
)

type GlobalsConfig struct {
	Output GlobalOutputConfig `mapstructure:"output" yaml:"output"`
}

type GlobalOutputConfig struct {
	RecordingsDirectory string `mapstructure:"recordings_directory" yaml:"recordings_directory"`
}

type RootConfig struct {
	ActiveConfig string             `mapstructure:"active_config" yaml:"active_config"`
	Globals      *GlobalsConfig     `mapstructure:"globals,omitempty" yaml:"globals,omitempty"`
	Configs      map[string]*Config `mapstructure:"configs" yaml:"configs"`
}

type Config struct {
	Audio    AudioConfig    `mapstructure:"audio" yaml:"audio"`
	MIDI     MIDIConfig     `mapstructure:"midi" yaml:"midi"`
	Keyboard KeyboardConfig `mapstructure:"keyboard" yaml:"keyboard"`
	Output   OutputConfig   `mapstructure:"output" yaml:"output"`

	// Profile name the config was resolved from
	Profile string `mapstructure:"-" yaml:"-"`

	// Internal field to track inheritance information for info command
	Inheritance *InheritanceInfo `mapstructure:"-" yaml:"-"`
}

// InheritanceInfo maps a dotted key (e.g. "keyboard.first_octave") to where its value came from
type InheritanceInfo struct {
	Fields map[string]string
}

// Source returns the inheritance source of a key, SourceDefault when never overridden
func (i *InheritanceInfo) Source(key string) string {
	if i == nil || i.Fields == nil {
		return SourceDefault
	}
	if src, ok := i.Fields[key]; ok {
		return src
	}
	return SourceDefault
}

type AudioConfig struct {
	Backend    string   `mapstructure:"backend" yaml:"backend"` // "midi", "pipewire", "auto"
	SampleRate int      `mapstructure:"sample_rate" yaml:"sample_rate"`
	Sources    []string `mapstructure:"sources" yaml:"sources"` // PipeWire ports captured by the pipewire backend: mono=[port], stereo=[left,right]
	Player     string   `mapstructure:"player" yaml:"player"`   // external player for audio captures, empty picks the first one found
}

type MIDIConfig struct {
	OutPort   string `mapstructure:"out_port" yaml:"out_port"` // case-insensitive substring, empty = first output port
	InPort    string `mapstructure:"in_port" yaml:"in_port"`   // hardware keyboard, empty = auto-detect, "disabled" = off
	Channel   int    `mapstructure:"channel" yaml:"channel"`
	Velocity  int    `mapstructure:"velocity" yaml:"velocity"`
	Program   int    `mapstructure:"program" yaml:"program"`
	Reverb    int    `mapstructure:"reverb" yaml:"reverb"`
	ReleaseMs int    `mapstructure:"release_ms" yaml:"release_ms"`
}

type KeyboardConfig struct {
	FirstOctave int `mapstructure:"first_octave" yaml:"first_octave"`
	MinOctave   int `mapstructure:"min_octave" yaml:"min_octave"`
	MaxOctave   int `mapstructure:"max_octave" yaml:"max_octave"`
}

type OutputConfig struct {
	Directory     string `mapstructure:"directory" yaml:"directory"`
	TempDirectory string `mapstructure:"temp_directory" yaml:"temp_directory"`
	Format        string `mapstructure:"format" yaml:"format"`   // "mid" for the midi backend, "wav", "flac", "mp3" for pipewire
	Library       string `mapstructure:"library" yaml:"library"` // SQLite recordings library
}

// trackedKeys are reported by the info command
var trackedKeys = []string{
	"audio.backend", "audio.sample_rate", "audio.sources", "audio.player",
	"midi.out_port", "midi.in_port", "midi.channel", "midi.velocity", "midi.program", "midi.reverb", "midi.release_ms",
	"keyboard.first_octave", "keyboard.min_octave", "keyboard.max_octave",
	"output.directory", "output.temp_directory", "output.format", "output.library",
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			Backend:    "midi",
			SampleRate: 48000,
			Sources:    []string{"fluidsynth:left", "fluidsynth:right"},
		},
		MIDI: MIDIConfig{
			OutPort:   "FLUID",
			Channel:   0,
			Velocity:  100,
			Program:   0,
			Reverb:    40,
			ReleaseMs: 400,
		},
		Keyboard: KeyboardConfig{
			FirstOctave: 2,
			MinOctave:   0,
			MaxOctave:   6,
		},
		Output: OutputConfig{
			Directory: filepath.Join("~", "Audio", "JamPiano"),
		},
		Profile:     DefaultProfile,
		Inheritance: &InheritanceInfo{Fields: map[string]string{}},
	}
}

// ConfigDir returns ~/.config/jampiano, home of the log file and the library
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "jampiano"), nil
}

// DefaultPath returns the default config file location
func DefaultPath() string {
	return os.ExpandEnv("$HOME/.config/jampiano.yaml")
}

// LoadWithProfile resolves a profile from the config file.
// Built-in defaults are overlaid by configs.default, then by the selected profile.
// A missing file yields the built-in defaults.
func LoadWithProfile(configFile, profile string) (*Config, error) {
	if configFile == "" {
		return nil, fmt.Errorf("no config file specified, use --config flag")
	}

	cfg := Default()

	if _, err := os.Stat(configFile); errors.Is(err, os.ErrNotExist) {
		if profile != "" && profile != DefaultProfile {
			return nil, fmt.Errorf("configuration profile '%s' not found (no config file at %s)", profile, configFile)
		}
		slog.Debug("Config file not found, using built-in defaults", "path", configFile)
		if err := cfg.finalize(); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	v, rootConfig, err := readRoot(configFile)
	if err != nil {
		return nil, err
	}

	configName := strings.ToLower(profile)
	if configName == "" {
		configName = strings.ToLower(rootConfig.ActiveConfig)
	}
	if configName == "" {
		configName = DefaultProfile
	}

	if _, exists := rootConfig.Configs[configName]; !exists {
		if configName != DefaultProfile || len(rootConfig.Configs) > 0 {
			return nil, fmt.Errorf("configuration profile '%s' not found", configName)
		}
	}
	cfg.Profile = configName

	// Selected profile falls back to default
	if configName != DefaultProfile {
		if err := overlay(v, DefaultProfile, cfg, SourceInherited); err != nil {
			return nil, err
		}
	}
	if err := overlay(v, configName, cfg, SourceProfileSpecific); err != nil {
		return nil, err
	}

	// Global recordings directory takes priority over profile-specific directory
	if rootConfig.Globals != nil && rootConfig.Globals.Output.RecordingsDirectory != "" {
		cfg.Output.Directory = rootConfig.Globals.Output.RecordingsDirectory
		cfg.Inheritance.Fields["output.directory"] = SourceInherited
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// readRoot reads and parses the whole config file
func readRoot(configFile string) (*viper.Viper, *RootConfig, error) {
	v := viper.New()
	v.SetConfigFile(configFile)

	// Set environment variable prefix
	v.SetEnvPrefix("JAMPIANO")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
	}

	var rootConfig RootConfig
	if err := v.Unmarshal(&rootConfig); err != nil {
		return nil, nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return v, &rootConfig, nil
}

// overlay decodes configs.<name> on top of cfg. Only keys present in the file are written,
// so an explicit 0 in a profile overrides while a missing key keeps the underlying value.
func overlay(v *viper.Viper, name string, cfg *Config, source string) error {
	sub := v.Sub("configs." + name)
	if sub == nil {
		return nil
	}

	// Slices decode element-wise into the existing backing array, so a shorter list must start empty
	if sub.IsSet("audio.sources") {
		cfg.Audio.Sources = nil
	}

	if err := sub.Unmarshal(cfg); err != nil {
		return fmt.Errorf("error resolving configuration profile '%s': %w", name, err)
	}

	for _, key := range trackedKeys {
		if sub.IsSet(key) {
			cfg.Inheritance.Fields[key] = source
		}
	}
	return nil
}

// finalize expands paths, fills derived defaults and validates
func (c *Config) finalize() error {
	c.Output.Directory = expandPath(c.Output.Directory)

	if c.Output.TempDirectory == "" {
		c.Output.TempDirectory = filepath.Join(os.TempDir(), "jampiano")
	}
	c.Output.TempDirectory = expandPath(c.Output.TempDirectory)

	if c.Output.Library == "" {
		if dir, err := ConfigDir(); err == nil {
			c.Output.Library = filepath.Join(dir, "library.sqlite")
		}
	}
	c.Output.Library = expandPath(c.Output.Library)

	if c.Output.Format == "" {
		if c.UsesAudioCapture() {
			c.Output.Format = "flac"
		} else {
			c.Output.Format = "mid"
		}
	}

	return Validate(c)
}

// UsesAudioCapture reports whether the pipewire backend is selected
func (c *Config) UsesAudioCapture() bool {
	return strings.ToLower(c.Audio.Backend) == "pipewire"
}

// UpdateActiveConfig updates the active_config field in the config file
func UpdateActiveConfig(configFile, newActiveConfig string) error {
	if configFile == "" {
		return fmt.Errorf("no config file specified")
	}

	_, rootConfig, err := readRoot(configFile)
	if err != nil {
		return err
	}
	if _, ok := rootConfig.Configs[strings.ToLower(newActiveConfig)]; !ok {
		return fmt.Errorf("configuration profile '%s' not found", newActiveConfig)
	}

	// Create a new viper instance to avoid interfering with the one used for reading
	v := viper.New()
	v.SetConfigFile(configFile)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file %s: %w", configFile, err)
	}

	v.Set("active_config", newActiveConfig)

	if err := v.WriteConfig(); err != nil {
		return fmt.Errorf("error writing config file %s: %w", configFile, err)
	}

	return nil
}

// WriteDefault writes a starter config file with a single default profile.
// An existing file is never overwritten.
func WriteDefault(configFile string) error {
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists: %s", configFile)
	}

	root := RootConfig{
		ActiveConfig: DefaultProfile,
		Configs:      map[string]*Config{DefaultProfile: Default()},
	}

	out, err := yaml.Marshal(root)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configFile), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return os.WriteFile(configFile, out, 0644)
}

// Profiles lists the profile names defined in the config file
func Profiles(configFile string) ([]string, error) {
	_, rootConfig, err := readRoot(configFile)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(rootConfig.Configs))
	for name := range rootConfig.Configs {
		names = append(names, name)
	}
	return names, nil
}

func expandPath(path string) string {
	if path == "~" {
		homeDir, _ := os.UserHomeDir()
		return homeDir
	}
	if strings.HasPrefix(path, "~/") {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[2:])
	}
	return path
}

// isValidAudioSource checks if a source name is a JACK/PipeWire port ("device:port")
func isValidAudioSource(source string) bool {
	source = strings.TrimSpace(source)
	if source == "" {
		return false
	}

	// Device names may contain colons, the port is what follows the last one
	lastColonIndex := strings.LastIndex(source, ":")
	if lastColonIndex == -1 {
		return false
	}

	deviceName := strings.TrimSpace(source[:lastColonIndex])
	port := strings.TrimSpace(source[lastColonIndex+1:])

	return len(deviceName) > 0 && len(port) > 0
}

// validateTempDirectory keeps captures out of directories holding user files
func validateTempDirectory(temp, output string) error {
	temp = filepath.Clean(temp)
	if isWithin(filepath.Clean(output), temp) {
		return fmt.Errorf("output.temp_directory must not be or contain output.directory, got: %s", temp)
	}
	if home, err := os.UserHomeDir(); err == nil && temp == filepath.Clean(home) {
		return fmt.Errorf("output.temp_directory must not be the home directory, got: %s", temp)
	}
	return nil
}

// isWithin reports whether path is dir or below it
func isWithin(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Validate checks a resolved configuration
func Validate(c *Config) error {
	switch strings.ToLower(c.Audio.Backend) {
	case "midi", "pipewire", "auto":
	default:
		return fmt.Errorf("audio.backend must be 'midi', 'pipewire' or 'auto', got: %s", c.Audio.Backend)
	}

	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate must be > 0, got: %d", c.Audio.SampleRate)
	}

	if c.UsesAudioCapture() {
		if len(c.Audio.Sources) == 0 || len(c.Audio.Sources) > 2 {
			return fmt.Errorf("audio.sources must list 1 (mono) or 2 (stereo) ports, got %d", len(c.Audio.Sources))
		}
		for i, source := range c.Audio.Sources {
			if !isValidAudioSource(source) {
				return fmt.Errorf("audio.sources[%d] must be a valid audio source (JACK port), got: %s", i, source)
			}
		}
	}

	if c.MIDI.Channel < 0 || c.MIDI.Channel > 15 {
		return fmt.Errorf("midi.channel must be between 0 and 15, got: %d", c.MIDI.Channel)
	}
	if c.MIDI.Velocity < 1 || c.MIDI.Velocity > 127 {
		return fmt.Errorf("midi.velocity must be between 1 and 127, got: %d", c.MIDI.Velocity)
	}
	if c.MIDI.Program < 0 || c.MIDI.Program > 127 {
		return fmt.Errorf("midi.program must be between 0 and 127, got: %d", c.MIDI.Program)
	}
	if c.MIDI.Reverb < 0 || c.MIDI.Reverb > 127 {
		return fmt.Errorf("midi.reverb must be between 0 and 127, got: %d", c.MIDI.Reverb)
	}
	if c.MIDI.ReleaseMs <= 0 {
		return fmt.Errorf("midi.release_ms must be > 0, got: %d", c.MIDI.ReleaseMs)
	}

	kb := c.Keyboard
	if kb.MinOctave < 0 || kb.MaxOctave > MaxOctave || kb.MinOctave > kb.MaxOctave {
		return fmt.Errorf("keyboard octave range must satisfy 0 <= min_octave <= max_octave <= %d, got: [%d, %d]",
			MaxOctave, kb.MinOctave, kb.MaxOctave)
	}
	if kb.FirstOctave < kb.MinOctave || kb.FirstOctave > kb.MaxOctave {
		return fmt.Errorf("keyboard.first_octave must be within [%d, %d], got: %d", kb.MinOctave, kb.MaxOctave, kb.FirstOctave)
	}

	if c.Output.Directory == "" {
		return fmt.Errorf("output.directory is required")
	}
	if c.Output.TempDirectory != "" {
		if err := validateTempDirectory(c.Output.TempDirectory, c.Output.Directory); err != nil {
			return err
		}
	}

	format := strings.ToLower(c.Output.Format)
	if c.UsesAudioCapture() {
		if format != "wav" && format != "flac" && format != "mp3" {
			return fmt.Errorf("output.format must be 'wav', 'flac' or 'mp3' for the pipewire backend, got: %s", c.Output.Format)
		}
	} else if format != "mid" {
		return fmt.Errorf("output.format must be 'mid' for the midi backend, got: %s", c.Output.Format)
	}

	return nil
}
