package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the resolved retake configuration.
type Config struct {
	Audio  AudioConfig  `mapstructure:"audio" yaml:"audio"`
	Output OutputConfig `mapstructure:"output" yaml:"output"`
	Server ServerConfig `mapstructure:"server" yaml:"server"`
}

type AudioConfig struct {
	SampleRate int    `mapstructure:"sample_rate" yaml:"sample_rate"`
	Channels   int    `mapstructure:"channels" yaml:"channels"`     // hardware input channels, downmixed to mono
	Backend    string `mapstructure:"backend" yaml:"backend"`       // "pipewire", "alsa", "auto"
	Source     string `mapstructure:"source" yaml:"source"`         // capture device/target, empty = default
	BlockSize  int    `mapstructure:"block_size" yaml:"block_size"` // samples per frame delivered by the feed
}

type OutputConfig struct {
	Directory string `mapstructure:"directory" yaml:"directory"`
	File      string `mapstructure:"file" yaml:"file"`
}

type ServerConfig struct {
	Port string `mapstructure:"port" yaml:"port"`
}

var defaultConfig = Config{
	Audio: AudioConfig{
		SampleRate: 44100,
		Channels:   1,
		Backend:    "auto",
		BlockSize:  1024,
	},
	Output: OutputConfig{
		Directory: filepath.Join(os.Getenv("HOME"), "Audio", "Retake"),
		File:      "output.wav",
	},
	Server: ServerConfig{
		Port: "8080",
	},
}

// Default returns a copy of the built-in configuration.
func Default() *Config {
	cfg := defaultConfig
	return &cfg
}

// Load reads the YAML config file at path and merges it over the
// defaults. A missing file is not an error; the defaults apply.
func Load(path string) (*Config, error) {
	cfg := defaultConfig

	if path == "" {
		path = os.ExpandEnv("$HOME/.config/retake.yaml")
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			if err := cfg.Validate(); err != nil {
				return nil, err
			}
			return &cfg, nil
		}
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file %s: %w", path, err)
	}

	cfg.Output.Directory = expandPath(cfg.Output.Directory)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration for values the capture and export
// paths cannot work with.
func (c *Config) Validate() error {
	if c.Audio.SampleRate < 8000 || c.Audio.SampleRate > 192000 {
		return fmt.Errorf("invalid sample rate %d: must be between 8000 and 192000", c.Audio.SampleRate)
	}
	if c.Audio.Channels < 1 || c.Audio.Channels > 8 {
		return fmt.Errorf("invalid channel count %d: must be between 1 and 8", c.Audio.Channels)
	}
	if c.Audio.BlockSize < 64 || c.Audio.BlockSize > 65536 {
		return fmt.Errorf("invalid block size %d: must be between 64 and 65536", c.Audio.BlockSize)
	}
	switch strings.ToLower(c.Audio.Backend) {
	case "pipewire", "alsa", "auto", "":
	default:
		return fmt.Errorf("unknown audio backend %q (valid: pipewire, alsa, auto)", c.Audio.Backend)
	}
	if c.Output.File == "" {
		return fmt.Errorf("output file must not be empty")
	}
	return nil
}

// OutputPath returns the full path of the export target.
func (c *Config) OutputPath() string {
	return filepath.Join(c.Output.Directory, c.Output.File)
}

// expandPath expands a leading ~ to the user's home directory
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
