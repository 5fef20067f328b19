package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/flywave/go3d/vec3"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/u3dexport/pkg/notes"
	"github.com/Faultbox/u3dexport/pkg/scene"
	"github.com/Faultbox/u3dexport/pkg/u3d"
)

// Options configures an export.
type Options struct {
	MaximizePrecision bool
	ClampOverflow     bool
	Frames            *FrameRange // nil uses the scene's range
	Coords            scene.CoordSystem
	Rotation          [3]int // pitch, yaw, roll for the script origin
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		MaximizePrecision: true,
		Coords:            scene.Identity(),
	}
}

// Exporter runs the pipeline for one scene at a time.
type Exporter struct {
	opts Options
	log  *zap.Logger
}

// New creates an exporter. A nil logger disables logging.
func New(opts Options, log *zap.Logger) *Exporter {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Coords.IsZero() {
		opts.Coords = scene.Identity()
	}
	return &Exporter{opts: opts, log: log}
}

// Result is a finished export held in memory until written.
type Result struct {
	Frames        FrameRange
	Tris          []u3d.MeshTri
	VertsPerFrame int
	Packed        []uint32
	Transform     Transform
	Precision     bool
	Overflowed    int // positions that did not fit the packed range
	Rotation      [3]int
	Sequences     []notes.Sequence
	Notifies      []notes.Notify
	Materials     []*scene.Material
	Tracks        []u3d.Track
	Rejected      []string
}

// Run collects, samples, optimizes and packs sc. Annotations are parsed
// first so syntax errors fail before any sampling.
func (e *Exporter) Run(ctx context.Context, sc scene.Scene) (*Result, error) {
	if err := e.opts.Coords.Validate(); err != nil {
		return nil, err
	}

	frames := e.opts.Frames
	if frames == nil {
		start, end := sc.FrameRange()
		frames = &FrameRange{Start: start, End: end}
	}
	if err := frames.Validate(); err != nil {
		return nil, err
	}

	parsed, err := notes.ParseAll(sc.NoteKeys())
	if err != nil {
		return nil, fmt.Errorf("parsing notes: %w", err)
	}
	e.log.Named("notes").Debug("notes parsed",
		zap.Int("sequences", len(parsed.Sequences)),
		zap.Int("notifies", len(parsed.Notifies)))

	geom, err := Collect(ctx, sc.Meshes(), CollectOptions{
		Coords: e.opts.Coords,
		Logger: e.log.Named("collector"),
	})
	if err != nil {
		return nil, err
	}

	points, err := Sample(ctx, geom, SampleOptions{
		Frames: *frames,
		Coords: e.opts.Coords,
		Logger: e.log.Named("sampler"),
	})
	if err != nil {
		return nil, err
	}

	if err := checkCanceled(ctx); err != nil {
		return nil, err
	}
	xf := Optimize(points, e.opts.MaximizePrecision)
	e.log.Named("optimizer").Info("bounding transform",
		zap.Bool("maximize", e.opts.MaximizePrecision),
		zap.Float32s("offset", xf.Offset[:]),
		zap.Float32s("scale", xf.Scale[:]))

	res := &Result{
		Frames:        *frames,
		Tris:          geom.Tris,
		VertsPerFrame: geom.VertsPerFrame,
		Packed:        make([]uint32, len(points)),
		Transform:     xf,
		Precision:     e.opts.MaximizePrecision,
		Rotation:      e.opts.Rotation,
		Sequences:     parsed.Sequences,
		Notifies:      parsed.Notifies,
		Materials:     geom.Materials.Slots(),
		Rejected:      geom.Rejected,
	}

	pack := u3d.PackVertex
	if e.opts.ClampOverflow {
		pack = u3d.PackVertexClamped
	}
	for i, p := range points {
		if u3d.Overflows(p) {
			res.Overflowed++
		}
		res.Packed[i] = pack(p)
	}
	if res.Overflowed > 0 {
		e.log.Warn("positions outside packed range",
			zap.Int("count", res.Overflowed),
			zap.Bool("clamped", e.opts.ClampOverflow))
	}

	if tracked, ok := sc.(scene.Tracked); ok {
		res.Tracks, err = e.sampleTracks(ctx, tracked.Trackers(), *frames)
		if err != nil {
			return nil, err
		}
	}

	return res, nil
}

func (e *Exporter) sampleTracks(ctx context.Context, trackers []scene.Tracker, frames FrameRange) ([]u3d.Track, error) {
	tracks := make([]u3d.Track, 0, len(trackers))
	for _, tr := range trackers {
		track := u3d.Track{
			Name: tr.Name(),
			Loc:  make([]vec3.T, 0, frames.Count()),
			Rot:  make([]mgl32.Quat, 0, frames.Count()),
		}
		for frame := frames.Start; frame <= frames.End; frame++ {
			if err := checkCanceled(ctx); err != nil {
				return nil, err
			}
			loc, rot, err := tr.Transform(frame)
			if err != nil {
				return nil, fmt.Errorf("frame %d, tracker %q: %w", frame, tr.Name(), err)
			}
			track.Loc = append(track.Loc, e.opts.Coords.Apply(loc))
			track.Rot = append(track.Rot, e.opts.Coords.ApplyRotation(rot))
		}
		tracks = append(tracks, track)
	}
	if len(tracks) > 0 {
		e.log.Named("tracker").Debug("trackers sampled", zap.Int("count", len(tracks)))
	}
	return tracks, nil
}

// FrameCount returns the number of exported frames.
func (r *Result) FrameCount() int {
	return r.Frames.Count()
}

// Script builds the import script for the given mesh name and extension.
func (r *Result) Script(name, ext string) *u3d.Script {
	origin := r.Transform.Origin()
	scale := r.Transform.MeshScale()

	s := &u3d.Script{
		Name:       name,
		Ext:        ext,
		Origin:     [3]float32(origin),
		Rotation:   r.Rotation,
		Scale:      [3]float32(scale),
		FrameCount: r.FrameCount(),
		Sequences:  r.Sequences,
		Notifies:   r.Notifies,
	}
	for id, m := range r.Materials {
		if m == nil {
			continue
		}
		s.Textures = append(s.Textures, u3d.TextureBinding{Num: id, Texture: m.Texture})
	}
	return s
}

// Summary describes the export in one line.
func (r *Result) Summary() string {
	s := fmt.Sprintf("%d frames, %d polygons, %d vertices", r.FrameCount(), len(r.Tris), r.VertsPerFrame)
	if r.Precision {
		s += ", precision maximized"
	}
	if r.Overflowed > 0 {
		s += fmt.Sprintf(", %d positions out of range", r.Overflowed)
	}
	return s
}

// WriteFiles writes the model pair and, when their paths are set, the
// script and the tracking log. Every file is staged under a temporary name
// and renamed only after all of them were written. Files that already exist
// are moved aside first, so a failed rename restores every earlier output
// and never leaves a new data file next to an old animation file.
func (r *Result) WriteFiles(ctx context.Context, p Paths) (err error) {
	type output struct {
		path  string
		write func(io.Writer) error
	}
	outputs := []output{
		{p.Data, func(w io.Writer) error { return u3d.WriteData(w, r.Tris, r.VertsPerFrame) }},
		{p.Aniv, func(w io.Writer) error { return u3d.WriteAniv(w, r.Packed, r.VertsPerFrame, r.FrameCount()) }},
	}
	if p.Script != "" {
		outputs = append(outputs, output{p.Script, func(w io.Writer) error {
			return u3d.WriteScript(w, r.Script(p.Name, p.Ext))
		}})
	}
	if p.Log != "" && len(r.Tracks) > 0 {
		outputs = append(outputs, output{p.Log, func(w io.Writer) error {
			return u3d.WriteTracking(w, r.Tracks)
		}})
	}

	staged := make([]string, 0, len(outputs))
	defer func() {
		if err != nil {
			for _, tmp := range staged {
				os.Remove(tmp)
			}
		}
	}()

	for _, out := range outputs {
		if err := checkCanceled(ctx); err != nil {
			return err
		}
		tmp, err := stage(out.path, out.write)
		if err != nil {
			return err
		}
		staged = append(staged, tmp)
	}

	if err := checkCanceled(ctx); err != nil {
		return err
	}
	return commit(staged, func(i int) string { return outputs[i].path })
}

// commit renames each staged file onto its target. On failure the targets
// already replaced get their previous contents back, or are removed when
// there was none.
func commit(staged []string, target func(int) string) error {
	backups := make([]string, len(staged))
	done := 0
	rollback := func() {
		for i := done - 1; i >= 0; i-- {
			if backups[i] != "" {
				os.Rename(backups[i], target(i))
			} else {
				os.Remove(target(i))
			}
		}
	}

	for i, tmp := range staged {
		path := target(i)
		if fi, err := os.Lstat(path); err == nil && fi.Mode().IsRegular() {
			backup, err := reserve(path)
			if err != nil {
				rollback()
				return err
			}
			if err := os.Rename(path, backup); err != nil {
				os.Remove(backup)
				rollback()
				return fmt.Errorf("moving aside %s: %w", path, err)
			}
			backups[i] = backup
		}
		if err := os.Rename(tmp, path); err != nil {
			if backups[i] != "" {
				os.Rename(backups[i], path)
			}
			rollback()
			return fmt.Errorf("renaming %s: %w", path, err)
		}
		done++
	}

	for _, b := range backups {
		if b != "" {
			os.Remove(b)
		}
	}
	return nil
}

// reserve creates an empty file next to path to hold its previous contents.
func reserve(path string) (string, error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".old.*")
	if err != nil {
		return "", fmt.Errorf("reserving backup for %s: %w", path, err)
	}
	name := f.Name()
	f.Close()
	return name, nil
}

// stage writes a temporary file next to path and returns its name.
func stage(path string, write func(io.Writer) error) (string, error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	name := f.Name()

	werr := f.Chmod(0o644)
	if werr == nil {
		werr = write(f)
	}
	cerr := f.Close()
	if err := errors.Join(werr, cerr); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return name, nil
}
