package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/maastricht-university/edmo-facs/emotion"
)

type Service struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}
type Services struct {
	Visualization Service `mapstructure:"visualization"`
}
type Pipeline struct {
	Name      string `mapstructure:"name"`
	Version   string `mapstructure:"version"`
	LogLvl    string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}
type Emotion struct {
	Threshold    float64 `mapstructure:"threshold"`
	PatternsFile string  `mapstructure:"patterns_file"`
}
type Processing struct {
	Workers    int  `mapstructure:"workers"`
	SplitTasks bool `mapstructure:"split_tasks"`
}
type Root struct {
	Pipeline   Pipeline   `mapstructure:"pipeline"`
	Emotion    Emotion    `mapstructure:"emotion"`
	Processing Processing `mapstructure:"processing"`
	Services   Services   `mapstructure:"services"`
	Paths      struct {
		Outputs string `mapstructure:"outputs"`
	} `mapstructure:"paths"`
}

// EnvPrefix prefixes environment overrides, e.g. FACS_EMOTION_THRESHOLD.
const EnvPrefix = "FACS"

// New returns a viper instance carrying the defaults and env bindings.
// Callers may bind command line flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("pipeline.name", "edmo-facs")
	v.SetDefault("pipeline.version", "0.1.0")
	v.SetDefault("pipeline.log_level", "info")
	v.SetDefault("pipeline.log_format", "text")
	v.SetDefault("emotion.threshold", 0.2)
	v.SetDefault("emotion.patterns_file", "")
	v.SetDefault("processing.workers", 4)
	v.SetDefault("processing.split_tasks", true)
	v.SetDefault("services.visualization.url", "")
	v.SetDefault("services.visualization.timeout", 60*time.Second)
	v.SetDefault("paths.outputs", "results")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the first config file found and decodes it over the defaults.
// With no explicit file it looks for config/<CONFIG_ENV>/config.yaml and
// then src/shared/config.yaml; finding neither is not an error.
func Load(v *viper.Viper, file string) (*Root, error) {
	if file == "" {
		file = find()
	}
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var cfg Root
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func find() string {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	guess := []string{
		filepath.Join("config", env, "config.yaml"),
		filepath.Join("src", "shared", "config.yaml"),
	}
	for _, p := range guess {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

var ErrInvalidWorkers = errors.New("processing.workers must be at least 1")

func (r *Root) Validate() error {
	if err := emotion.ValidateThreshold(r.Emotion.Threshold); err != nil {
		return fmt.Errorf("emotion.threshold: %w", err)
	}
	if r.Processing.Workers < 1 {
		return ErrInvalidWorkers
	}
	return nil
}

// Patterns returns the pattern table named by emotion.patterns_file, or the
// built-in table when none is set.
func (r *Root) Patterns() (*emotion.PatternSet, error) {
	if r.Emotion.PatternsFile == "" {
		return emotion.DefaultPatterns(), nil
	}
	f, err := os.Open(r.Emotion.PatternsFile)
	if err != nil {
		return nil, fmt.Errorf("open patterns: %w", err)
	}
	defer f.Close()
	set, err := emotion.LoadPatterns(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.Emotion.PatternsFile, err)
	}
	return set, nil
}
