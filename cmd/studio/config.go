package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/taigrr/studio/pkg/env"
	"github.com/taigrr/studio/pkg/post"
)

// Config is everything the commands read from studio.yaml, STUDIO_*
// variables and flags, in increasing order of precedence.
type Config struct {
	Preset  string `yaml:"preset" mapstructure:"preset"`
	Catalog string `yaml:"catalog" mapstructure:"catalog"`
	FPS     int    `yaml:"fps" mapstructure:"fps"`

	Model       ModelConfig       `yaml:"model" mapstructure:"model"`
	Environment EnvironmentConfig `yaml:"environment" mapstructure:"environment"`
	Post        post.Settings     `yaml:"post" mapstructure:"post"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// ModelConfig describes the procedural stand-in used when no model file is
// given, and the material it gets.
type ModelConfig struct {
	Shape     string  `yaml:"shape" mapstructure:"shape"`
	Color     string  `yaml:"color" mapstructure:"color"`
	Metallic  float32 `yaml:"metallic" mapstructure:"metallic"`
	Roughness float32 `yaml:"roughness" mapstructure:"roughness"`
	Size      float64 `yaml:"size" mapstructure:"size"`
	// Checker maps a UV checkerboard over the shape's color.
	Checker bool `yaml:"checker" mapstructure:"checker"`
}

type EnvironmentConfig struct {
	Enabled      bool          `yaml:"enabled" mapstructure:"enabled"`
	Background   bool          `yaml:"background" mapstructure:"background"`
	Strength     float32       `yaml:"strength" mapstructure:"strength"`
	Rotation     float32       `yaml:"rotation" mapstructure:"rotation"`
	Blurriness   float32       `yaml:"blurriness" mapstructure:"blurriness"`
	Fallback     string        `yaml:"fallback" mapstructure:"fallback"`
	MoodHints    bool          `yaml:"moodHints" mapstructure:"moodHints"`
	FadeDuration time.Duration `yaml:"fadeDuration" mapstructure:"fadeDuration"`
}

type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
	File  string `yaml:"file" mapstructure:"file"`
	Dev   bool   `yaml:"dev" mapstructure:"dev"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	return Config{
		Preset: "studio",
		FPS:    30,
		Model: ModelConfig{
			Shape:     "sphere",
			Color:     "#d0d0d0",
			Metallic:  0,
			Roughness: 0.35,
			Size:      1.2,
		},
		Environment: EnvironmentConfig{
			Enabled:      true,
			Background:   true,
			Strength:     1,
			Fallback:     "#202028",
			MoodHints:    true,
			FadeDuration: env.DefaultFadeDuration,
		},
		Post: post.DefaultSettings(),
		Log:  LogConfig{Level: "info"},
	}
}

// flagKeys maps command-line flags to config keys.
var flagKeys = map[string]string{
	"preset":    "preset",
	"catalog":   "catalog",
	"fps":       "fps",
	"shape":     "model.shape",
	"log-level": "log.level",
	"log-file":  "log.file",
	"exposure":  "post.exposure",
	"tone":      "post.toneMapping",
}

// loadConfig layers the defaults, a config file, the environment and the
// flags that were set. An empty path searches ./studio.yaml and the user
// config directory; a missing file is fine then.
func loadConfig(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	defaults, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return Config{}, fmt.Errorf("encode defaults: %w", err)
	}
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, fmt.Errorf("read defaults: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("studio")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "studio"))
		}
		if err := v.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("STUDIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if cfg.FPS <= 0 {
		cfg.FPS = 30
	}
	return cfg, nil
}

// loadCatalog reads the preset catalog named by the config, or returns the
// built-in one.
func loadCatalog(path string) (*env.Catalog, error) {
	if path == "" {
		return env.DefaultCatalog(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	c, err := env.LoadCatalog(f)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}
