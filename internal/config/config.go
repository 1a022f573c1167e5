// Read-only runtime configuration: logging, model files, workers and window
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"thera/internal/runner"
	"thera/internal/upscale"
)

const (
	DefaultLogLevel     = "info"
	DefaultLogFile      = ""
	DefaultModelsDir    = "models"
	DefaultWorkers      = runner.DefaultSlots
	DefaultWatch        = true
	DefaultWindowWidth  = 1024
	DefaultWindowHeight = 768

	maxWorkers = 16
)

type Config struct {
	LogLevel string       `mapstructure:"log_level"`
	LogFile  string       `mapstructure:"log_file"`
	Workers  int          `mapstructure:"workers"`
	Watch    bool         `mapstructure:"watch"`
	Models   ModelsConfig `mapstructure:"models"`
	Window   WindowConfig `mapstructure:"window"`
}

// ModelsConfig locates the super-resolution graphs. Per-multiplier paths
// override the default file names; relative paths resolve against Dir.
type ModelsConfig struct {
	Dir string `mapstructure:"dir"`
	X2  string `mapstructure:"x2"`
	X4  string `mapstructure:"x4"`
	X8  string `mapstructure:"x8"`
}

type WindowConfig struct {
	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`
}

// NewDefaultConfig returns the configuration used when no file exists.
func NewDefaultConfig() Config {
	return Config{
		LogLevel: DefaultLogLevel,
		LogFile:  DefaultLogFile,
		Workers:  DefaultWorkers,
		Watch:    DefaultWatch,
		Models:   ModelsConfig{Dir: DefaultModelsDir},
		Window:   WindowConfig{Width: DefaultWindowWidth, Height: DefaultWindowHeight},
	}
}

// Binding returns the multiplier to model file map.
func (m ModelsConfig) Binding() upscale.ModelBinding {
	binding := upscale.DefaultBinding(m.Dir)
	for multiplier, override := range map[int]string{2: m.X2, 4: m.X4, 8: m.X8} {
		override = strings.TrimSpace(override)
		if override == "" {
			continue
		}
		if !filepath.IsAbs(override) {
			override = filepath.Join(m.Dir, override)
		}
		binding[multiplier] = override
	}
	return binding
}

// Level parses LogLevel.
func (c Config) Level() (logrus.Level, error) {
	return logrus.ParseLevel(c.LogLevel)
}

// ValidationError is one invalid setting.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every invalid setting.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}

	var b strings.Builder
	b.WriteString("config validation failed:")
	for _, err := range e {
		b.WriteString("\n  - ")
		b.WriteString(err.Error())
	}
	return b.String()
}

// Validate checks cfg and returns ValidationErrors when anything is wrong.
func Validate(cfg *Config) error {
	var errs ValidationErrors

	if _, err := cfg.Level(); err != nil {
		errs = append(errs, ValidationError{
			Field:   "log_level",
			Message: fmt.Sprintf("unknown level %q", cfg.LogLevel),
		})
	}

	if cfg.Workers < 1 || cfg.Workers > maxWorkers {
		errs = append(errs, ValidationError{
			Field:   "workers",
			Message: fmt.Sprintf("must be between 1 and %d, got %d", maxWorkers, cfg.Workers),
		})
	}

	if strings.TrimSpace(cfg.Models.Dir) == "" {
		errs = append(errs, ValidationError{
			Field:   "models.dir",
			Message: "must not be empty",
		})
	}

	if cfg.Window.Width < 1 || cfg.Window.Height < 1 {
		errs = append(errs, ValidationError{
			Field:   "window",
			Message: fmt.Sprintf("size must be positive, got %dx%d", cfg.Window.Width, cfg.Window.Height),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
