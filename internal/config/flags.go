package config

import (
	"errors"
	"flag"
	"fmt"
	"strconv"
	"strings"
)

// Flags holds command-line overrides. Zero values leave the loaded config
// unchanged.
type Flags struct {
	Config      string
	Debug       bool
	Dir         string
	Ext         string
	Frames      string
	NoPrecision bool
	Clamp       bool
	FPS         float64
	Animation   string
	Coords      string
	LogFile     string
	NoScript    bool
}

// RegisterFlags binds the override flags to fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.Config, "config", "", "Path to config file")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.Dir, "dir", "", "Output directory (default: next to the target)")
	fs.StringVar(&f.Ext, "ext", "", "Model file extension (default: .3d)")
	fs.StringVar(&f.Frames, "frames", "", "Frame range override as start:end")
	fs.BoolVar(&f.NoPrecision, "no-precision", false, "Disable precision maximization")
	fs.BoolVar(&f.Clamp, "clamp", false, "Saturate out of range positions instead of wrapping")
	fs.Float64Var(&f.FPS, "fps", 0, "Frames per second for RSM and glTF timelines")
	fs.StringVar(&f.Animation, "anim", "", "glTF animation name")
	fs.StringVar(&f.Coords, "coords", "", "Axis remap as x,y,z source axes, e.g. x,-z,y")
	fs.StringVar(&f.LogFile, "log", "", "Log file path")
	fs.BoolVar(&f.NoScript, "no-script", false, "Skip the import script")
	return f
}

// ParseFrameRange parses "start:end".
func ParseFrameRange(s string) (FrameRange, error) {
	a, b, ok := strings.Cut(s, ":")
	if !ok {
		return FrameRange{}, fmt.Errorf("frame range %q: expected start:end", s)
	}
	start, err := strconv.Atoi(strings.TrimSpace(a))
	if err != nil {
		return FrameRange{}, fmt.Errorf("frame range %q: %w", s, err)
	}
	end, err := strconv.Atoi(strings.TrimSpace(b))
	if err != nil {
		return FrameRange{}, fmt.Errorf("frame range %q: %w", s, err)
	}
	if end < start {
		return FrameRange{}, fmt.Errorf("frame range %q: end before start", s)
	}
	return FrameRange{Start: start, End: end}, nil
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) error {
	if f == nil {
		return nil
	}
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.LogFile != "" {
		cfg.Logging.LogFile = f.LogFile
	}
	if f.Dir != "" {
		cfg.Output.Dir = f.Dir
	}
	if f.Ext != "" {
		cfg.Output.Extension = f.Ext
	}
	if f.NoScript {
		cfg.Output.WriteScript = false
	}
	if f.NoPrecision {
		cfg.Export.MaximizePrecision = false
	}
	if f.Clamp {
		cfg.Export.ClampOverflow = true
	}
	if f.FPS > 0 {
		cfg.Export.FrameRate = f.FPS
	}
	if f.Animation != "" {
		cfg.Export.Animation = f.Animation
	}
	if f.Frames != "" {
		r, err := ParseFrameRange(f.Frames)
		if err != nil {
			return err
		}
		cfg.Export.Frames = &r
	}
	if f.Coords != "" {
		parts := strings.Split(f.Coords, ",")
		if len(parts) != 3 {
			return errors.New("coords: expected three comma separated axes")
		}
		cfg.Export.Coordinates = CoordConfig{X: parts[0], Y: parts[1], Z: parts[2]}
	}
	return nil
}
