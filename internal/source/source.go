// Package source opens animated scenes from files and exposes them through
// the scene interfaces.
//
// Supported inputs:
//   - .yaml/.yml: a recorded scene with explicit per-frame positions
//   - .rsm: a keyframed Ragnarok Online model
//   - .gltf/.glb: a glTF 2.0 document with node animations
package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/u3dexport/pkg/scene"
)

// Source errors.
var (
	ErrUnsupportedFormat = errors.New("unsupported scene format")
	ErrFrameOutOfRange   = errors.New("frame out of range")
	ErrInvalidFixture    = errors.New("invalid scene fixture")
	ErrNoAnimation       = errors.New("animation not found")
	ErrInvalidGLTF       = errors.New("invalid glTF document")
)

// DefaultFPS is the sampling rate for time based inputs.
const DefaultFPS = 30

// Options control how time based inputs are sampled.
type Options struct {
	FPS       float64 // frames per second for RSM and glTF timelines
	Animation string  // glTF animation name, first animation when empty
	Logger    *zap.Logger
}

func (o Options) fps() float64 {
	if o.FPS <= 0 {
		return DefaultFPS
	}
	return o.FPS
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// Open loads the scene at path, choosing the adapter by file extension.
func Open(path string, opts Options) (scene.Scene, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return OpenFixture(path)
	case ".rsm":
		return OpenRSM(path, opts)
	case ".gltf", ".glb":
		return OpenGLTF(path, opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// LoadNotes reads a YAML list of {frame, text} annotations.
func LoadNotes(path string) ([]scene.NoteKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading notes: %w", err)
	}
	var entries []noteEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing notes %s: %w", path, err)
	}
	keys := make([]scene.NoteKey, len(entries))
	for i, e := range entries {
		keys[i] = scene.NoteKey{Frame: e.Frame, Text: e.Text}
	}
	return keys, nil
}

type noteEntry struct {
	Frame int    `yaml:"frame"`
	Text  string `yaml:"text"`
}

// WithNotes returns s with keys appended after its own annotations.
// Trackers of s stay visible through the returned scene.
func WithNotes(s scene.Scene, keys []scene.NoteKey) scene.Scene {
	if len(keys) == 0 {
		return s
	}
	return &annotated{Scene: s, extra: keys}
}

type annotated struct {
	scene.Scene
	extra []scene.NoteKey
}

func (a *annotated) NoteKeys() []scene.NoteKey {
	own := a.Scene.NoteKeys()
	keys := make([]scene.NoteKey, 0, len(own)+len(a.extra))
	keys = append(keys, own...)
	return append(keys, a.extra...)
}

func (a *annotated) Trackers() []scene.Tracker {
	if t, ok := a.Scene.(scene.Tracked); ok {
		return t.Trackers()
	}
	return nil
}
