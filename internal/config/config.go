// Package config handles exporter configuration loading and management.
package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator"
	"go.uber.org/zap"

	"github.com/Faultbox/u3dexport/internal/export"
	"github.com/Faultbox/u3dexport/internal/source"
	"github.com/Faultbox/u3dexport/pkg/scene"
)

// ErrInvalidConfig is returned when a loaded configuration fails validation.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all exporter settings.
type Config struct {
	Export  ExportConfig  `yaml:"export"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// ExportConfig controls how scenes are sampled and packed.
type ExportConfig struct {
	MaximizePrecision bool           `yaml:"maximize_precision"`
	ClampOverflow     bool           `yaml:"clamp_overflow"`
	Frames            *FrameRange    `yaml:"frames,omitempty"`
	FrameRate         float64        `yaml:"frame_rate" validate:"gt=0,lte=1000"`
	Coordinates       CoordConfig    `yaml:"coordinates"`
	Animation         string         `yaml:"animation,omitempty"`
	Rotation          RotationConfig `yaml:"rotation"`
}

// FrameRange overrides the scene's frame range. Both ends are inclusive.
type FrameRange struct {
	Start int `yaml:"start"`
	End   int `yaml:"end" validate:"gtefield=Start"`
}

// CoordConfig names the source axis for each output axis, e.g. "-z".
type CoordConfig struct {
	X string `yaml:"x" validate:"required"`
	Y string `yaml:"y" validate:"required"`
	Z string `yaml:"z" validate:"required"`
}

// RotationConfig is the script origin rotation in Unreal rotator units.
type RotationConfig struct {
	Pitch int `yaml:"pitch" validate:"gte=-65536,lte=65536"`
	Yaw   int `yaml:"yaw" validate:"gte=-65536,lte=65536"`
	Roll  int `yaml:"roll" validate:"gte=-65536,lte=65536"`
}

// OutputConfig controls where and which files are written.
type OutputConfig struct {
	Dir           string `yaml:"dir"`                                                   // empty writes next to the target
	Extension     string `yaml:"extension" validate:"omitempty,max=16,excludesall=/\\"` // empty keeps the target's, or .3d
	WriteScript   bool   `yaml:"write_script"`
	WriteTracking bool   `yaml:"write_tracking"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error DEBUG INFO WARN WARNING ERROR"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Export: ExportConfig{
			MaximizePrecision: true,
			FrameRate:         source.DefaultFPS,
			Coordinates:       CoordConfig{X: "x", Y: "y", Z: "z"},
		},
		Output: OutputConfig{
			WriteScript:   true,
			WriteTracking: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate checks field constraints and the axis remap.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := c.Coords(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Coords parses the configured axis remap.
func (c *Config) Coords() (scene.CoordSystem, error) {
	a := c.Export.Coordinates
	return scene.ParseCoordSystem(a.X, a.Y, a.Z)
}

// ExportOptions converts the export section into pipeline options.
func (c *Config) ExportOptions() (export.Options, error) {
	coords, err := c.Coords()
	if err != nil {
		return export.Options{}, err
	}
	opts := export.Options{
		MaximizePrecision: c.Export.MaximizePrecision,
		ClampOverflow:     c.Export.ClampOverflow,
		Coords:            coords,
		Rotation:          [3]int{c.Export.Rotation.Pitch, c.Export.Rotation.Yaw, c.Export.Rotation.Roll},
	}
	if f := c.Export.Frames; f != nil {
		opts.Frames = &export.FrameRange{Start: f.Start, End: f.End}
	}
	return opts, nil
}

// SourceOptions returns the scene loading options.
func (c *Config) SourceOptions(log *zap.Logger) source.Options {
	return source.Options{
		FPS:       c.Export.FrameRate,
		Animation: c.Export.Animation,
		Logger:    log,
	}
}

// OutputPaths names the output files for target, honoring the output
// directory and extension settings.
func (c *Config) OutputPaths(target string) export.Paths {
	p := export.OutputPaths(target, c.Output.Extension)
	if c.Output.Dir != "" {
		p = p.In(c.Output.Dir)
	}
	if !c.Output.WriteScript {
		p.Script = ""
	}
	if !c.Output.WriteTracking {
		p.Log = ""
	}
	return p
}
