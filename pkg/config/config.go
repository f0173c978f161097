// Package config provides configuration loading and management for mrisubject.
// It handles loading configuration from YAML files, applies MRISUBJECT_*
// environment overrides and provides default values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"mrisubject/pkg/image"
	"mrisubject/pkg/subject"
)

// ErrInvalid is returned by Validate for unusable settings.
var ErrInvalid = errors.New("config: invalid value")

// Config represents the application configuration loaded from YAML
type Config struct {
	// Stack parameters for slice directories
	Stack struct {
		// PixelSpacing is the in-plane size of a pixel in mm
		PixelSpacing float64 `yaml:"pixelSpacing" env:"MRISUBJECT_PIXEL_SPACING"`

		// SliceGap represents the physical distance between consecutive MRI slices in mm
		SliceGap float64 `yaml:"sliceGap" env:"MRISUBJECT_SLICE_GAP"`
	} `yaml:"stack"`

	// Sampling parameters
	Sampling struct {
		// PatchSize is the patch size in voxels, one value per spatial axis
		PatchSize []int `yaml:"patchSize" env:"MRISUBJECT_PATCH_SIZE" envSeparator:","`

		// NumPatches is how many patches to draw; negative means unbounded
		NumPatches int `yaml:"numPatches" env:"MRISUBJECT_NUM_PATCHES"`

		// Seed fixes the random stream; 0 picks a fresh seed per run
		Seed uint64 `yaml:"seed" env:"MRISUBJECT_SEED"`
	} `yaml:"sampling"`

	// Consistency tolerances for comparing image geometry
	Consistency struct {
		RelativeTolerance float64 `yaml:"relativeTolerance" env:"MRISUBJECT_RELATIVE_TOLERANCE"`
		AbsoluteTolerance float64 `yaml:"absoluteTolerance" env:"MRISUBJECT_ABSOLUTE_TOLERANCE"`
	} `yaml:"consistency"`

	// Inversion controls how the transform history is undone
	Inversion struct {
		// Warn logs every transform that cannot be inverted
		Warn bool `yaml:"warn" env:"MRISUBJECT_INVERSION_WARN"`

		// IgnoreIntensity leaves intensity transforms out of the history
		IgnoreIntensity bool `yaml:"ignoreIntensity" env:"MRISUBJECT_IGNORE_INTENSITY"`

		// ImageInterpolation overrides the interpolation of resampling steps
		ImageInterpolation string `yaml:"imageInterpolation" env:"MRISUBJECT_IMAGE_INTERPOLATION"`
	} `yaml:"inversion"`

	// Output parameters
	Output struct {
		// HistoryPath is where the transform history is written, empty to skip
		HistoryPath string `yaml:"historyPath" env:"MRISUBJECT_HISTORY_PATH"`

		// MetricsPath is where the metrics textfile is written, empty to skip
		MetricsPath string `yaml:"metricsPath" env:"MRISUBJECT_METRICS_PATH"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose" env:"MRISUBJECT_VERBOSE"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Stack.PixelSpacing = 1.0
	cfg.Stack.SliceGap = 1.0

	cfg.Sampling.PatchSize = []int{32, 32, 1}
	cfg.Sampling.NumPatches = 10

	cfg.Consistency.RelativeTolerance = subject.DefaultRelativeTolerance
	cfg.Consistency.AbsoluteTolerance = subject.DefaultAbsoluteTolerance

	cfg.Inversion.Warn = true

	cfg.Output.HistoryPath = "output/history.yaml"
	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// Load reads configPath, applies environment overrides and validates the
// result.
func Load(configPath string) (*Config, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if err := ParseEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

// Validate checks that every setting can be used.
func (c *Config) Validate() error {
	if c.Stack.PixelSpacing <= 0 || c.Stack.SliceGap <= 0 {
		return fmt.Errorf("%w: spacing must be positive, got pixel %g and gap %g",
			ErrInvalid, c.Stack.PixelSpacing, c.Stack.SliceGap)
	}
	if _, err := c.PatchSize(); err != nil {
		return err
	}
	if c.Consistency.RelativeTolerance < 0 || c.Consistency.AbsoluteTolerance < 0 {
		return fmt.Errorf("%w: tolerances must not be negative", ErrInvalid)
	}
	if _, err := c.ImageInterpolation(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// Spacing returns the voxel spacing of slice stacks in mm.
func (c *Config) Spacing() [3]float64 {
	return [3]float64{c.Stack.PixelSpacing, c.Stack.PixelSpacing, c.Stack.SliceGap}
}

// PatchSize returns the configured patch size. A single value is used for
// every axis.
func (c *Config) PatchSize() ([3]int, error) {
	var size [3]int
	switch len(c.Sampling.PatchSize) {
	case 1:
		size = [3]int{c.Sampling.PatchSize[0], c.Sampling.PatchSize[0], c.Sampling.PatchSize[0]}
	case 3:
		copy(size[:], c.Sampling.PatchSize)
	default:
		return size, fmt.Errorf("%w: patch size needs 1 or 3 values, got %d", ErrInvalid, len(c.Sampling.PatchSize))
	}
	for _, n := range size {
		if n <= 0 {
			return size, fmt.Errorf("%w: patch size %v", ErrInvalid, size)
		}
	}
	return size, nil
}

// ImageInterpolation returns the interpolation override for inversion, or ""
// when resampling steps keep their own.
func (c *Config) ImageInterpolation() (image.Interpolation, error) {
	if c.Inversion.ImageInterpolation == "" {
		return "", nil
	}
	return image.ParseInterpolation(c.Inversion.ImageInterpolation)
}

// HistoryOptions turns the inversion section into subject history options.
func (c *Config) HistoryOptions() ([]subject.HistoryOption, error) {
	opts := []subject.HistoryOption{subject.WithWarnings(c.Inversion.Warn)}
	if c.Inversion.IgnoreIntensity {
		opts = append(opts, subject.IgnoreIntensity())
	}
	interp, err := c.ImageInterpolation()
	if err != nil {
		return nil, err
	}
	if interp != "" {
		opts = append(opts, subject.WithImageInterpolation(interp))
	}
	return opts, nil
}
