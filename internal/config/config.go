package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// RenderConfig holds kit rendering settings.
type RenderConfig struct {
	Format          string  `toml:"format"` // "pcm16" or "float32"
	TargetPeak      float64 `toml:"target_peak"`
	Workers         int     `toml:"workers"` // 0 = one per CPU
	Pads            int     `toml:"pads"`
	ChordBank       string  `toml:"chord_bank"`
	PresetExtension string  `toml:"preset_extension"`
	BundleExtension string  `toml:"bundle_extension"`
}

// ResamplerConfig holds pitch-shift backend settings.
type ResamplerConfig struct {
	Provider   string `toml:"provider"` // "linear", "polyphase" or "command"
	Quality    string `toml:"quality"`  // polyphase: "low" or "high"
	Command    string `toml:"command"`
	TimeoutSec int    `toml:"timeout_sec"`
	Retries    int    `toml:"retries"`
	Serial     bool   `toml:"serial"`
}

// SliceConfig holds slice tool settings.
type SliceConfig struct {
	Count int    `toml:"count"`
	Mode  string `toml:"mode"` // "fragments" or "offsets"
}

// AudioConfig holds capture and playback settings.
type AudioConfig struct {
	SampleRate      int  `toml:"sample_rate"`
	MaxDurationSec  int  `toml:"max_duration_sec"`
	AuditionEnabled bool `toml:"audition_enabled"`
}

// OutputConfig controls where bundles are written.
type OutputConfig struct {
	Dir      string `toml:"dir"`
	CopyPath bool   `toml:"copy_path"`
}

// CustomChord is a user-defined voicing appended to the "custom" bank.
type CustomChord struct {
	Name    string `toml:"name"`
	Offsets []int  `toml:"offsets"`
}

// CustomTheme is a user-defined TUI color palette.
type CustomTheme struct {
	Name       string `toml:"name"`
	Primary    string `toml:"primary"`
	Secondary  string `toml:"secondary"`
	Accent     string `toml:"accent"`
	Error      string `toml:"error"`
	Success    string `toml:"success"`
	Warning    string `toml:"warning"`
	Background string `toml:"background"`
	Text       string `toml:"text"`
	Dimmed     string `toml:"dimmed"`
	Separator  string `toml:"separator"`
}

// Config is the top-level configuration.
type Config struct {
	Theme        string          `toml:"theme"`
	Render       RenderConfig    `toml:"render"`
	Resampler    ResamplerConfig `toml:"resampler"`
	Slice        SliceConfig     `toml:"slice"`
	Audio        AudioConfig     `toml:"audio"`
	Output       OutputConfig    `toml:"output"`
	CustomChords []CustomChord   `toml:"custom_chords"`
	CustomThemes []CustomTheme   `toml:"custom_theme"`
}

// Default returns a Config populated with all default values.
func Default() *Config {
	return &Config{
		Theme: "synthwave",
		Render: RenderConfig{
			Format:          "pcm16",
			TargetPeak:      0.9,
			Workers:         0,
			Pads:            16,
			ChordBank:       "extended",
			PresetExtension: "ablpreset",
			BundleExtension: "ablpresetbundle",
		},
		Resampler: ResamplerConfig{
			Provider:   "linear",
			Quality:    "high",
			Command:    "",
			TimeoutSec: 30,
			Retries:    2,
			Serial:     false,
		},
		Slice: SliceConfig{
			Count: 16,
			Mode:  "fragments",
		},
		Audio: AudioConfig{
			SampleRate:      44100,
			MaxDurationSec:  30,
			AuditionEnabled: true,
		},
		Output: OutputConfig{
			Dir:      ".",
			CopyPath: false,
		},
	}
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Render.Format) {
	case "pcm16", "float32":
	default:
		return fmt.Errorf("render.format: unknown format %q", c.Render.Format)
	}
	if c.Render.TargetPeak <= 0 || c.Render.TargetPeak > 1 {
		return fmt.Errorf("render.target_peak: %v not in (0, 1]", c.Render.TargetPeak)
	}
	if c.Render.Workers < 0 {
		return fmt.Errorf("render.workers: must not be negative")
	}
	if c.Render.Pads < 1 {
		return fmt.Errorf("render.pads: must be at least 1")
	}
	if c.Render.PresetExtension == "" || c.Render.BundleExtension == "" {
		return fmt.Errorf("render: preset and bundle extensions must be set")
	}
	switch c.Resampler.Provider {
	case "linear", "polyphase":
	case "command":
		if c.Resampler.Command == "" {
			return fmt.Errorf("resampler.command: required for the command provider")
		}
	default:
		return fmt.Errorf("resampler.provider: unknown provider %q", c.Resampler.Provider)
	}
	if c.Resampler.Retries < 0 {
		return fmt.Errorf("resampler.retries: must not be negative")
	}
	switch c.Slice.Mode {
	case "fragments", "offsets":
	default:
		return fmt.Errorf("slice.mode: unknown mode %q", c.Slice.Mode)
	}
	if c.Slice.Count < 1 || c.Slice.Count > c.Render.Pads {
		return fmt.Errorf("slice.count: %d not in [1, %d]", c.Slice.Count, c.Render.Pads)
	}
	for i, cc := range c.CustomChords {
		if strings.TrimSpace(cc.Name) == "" || len(cc.Offsets) == 0 {
			return fmt.Errorf("custom_chords[%d]: name and offsets are required", i)
		}
		if strings.Contains(cc.Name, "/") {
			return fmt.Errorf("custom_chords[%d]: name %q contains '/'", i, cc.Name)
		}
	}
	return nil
}

// DefaultPath returns the default config file path (~/.config/padforge/config.toml).
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "padforge", "config.toml")
}

// Save writes the config as TOML to the given path, creating parent
// directories if needed. The write is atomic: data is written to a
// temporary file and renamed into place so a crash mid-write cannot
// corrupt the existing config.
func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".padforge-config-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if err := toml.NewEncoder(tmp).Encode(cfg); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}

// Load reads the TOML config from path. If the file does not exist,
// it returns the default config without error.
func Load(path string) (*Config, error) {
	cfg := Default()

	_, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	_, err = toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}
