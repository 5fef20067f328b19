// u3dexport converts animated scenes into Unreal vertex animation meshes.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/Faultbox/u3dexport/internal/config"
	"github.com/Faultbox/u3dexport/internal/export"
	"github.com/Faultbox/u3dexport/internal/logger"
	"github.com/Faultbox/u3dexport/internal/source"
	"github.com/Faultbox/u3dexport/pkg/notes"
)

// Exit codes.
const (
	exitOK       = 0
	exitFailure  = 1
	exitCanceled = 2
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(exitFailure)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var code int
	switch command {
	case "export", "x":
		code = cmdExport(args)
	case "info":
		code = cmdInfo(args)
	case "notes":
		code = cmdNotes(args)
	case "config":
		code = cmdConfig(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		code = exitFailure
	}
	os.Exit(code)
}

func printUsage() {
	fmt.Println(`u3dexport - Unreal vertex animation exporter

Usage:
  u3dexport <command> [options]

Commands:
  export [options] <scene>     Export a scene (.yaml, .rsm, .gltf, .glb)
  info <file>                  Show model file information (_d.3d, _a.3d, .rsm)
  notes [-frame N] <file>      Check sequence annotations
  config [-init] [-o path]     Print the effective config or write defaults

Export options:
  -o <path>          Output target, e.g. out/Bird (default: next to the scene)
  -notes <file>      YAML list of {frame, text} annotations to attach
  -frames start:end  Frame range override
  -coords x,y,z      Axis remap, e.g. x,-z,y
  -no-precision      Disable precision maximization
  -clamp             Saturate out of range positions instead of wrapping
  -fps <n>           Sampling rate for RSM and glTF timelines
  -anim <name>       glTF animation to export
  -dir, -ext, -no-script, -config, -log, -debug

Examples:
  u3dexport export -fps 15 data/model/windmill.rsm
  u3dexport export -o build/Bird -notes bird_notes.yaml bird.gltf
  u3dexport info build/Bird_a.3d`)
}

func cmdExport(args []string) int {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	out := fs.String("o", "", "Output target path")
	notesPath := fs.String("notes", "", "Annotation file to attach")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: u3dexport export [options] <scene>")
		return exitFailure
	}
	scenePath := fs.Arg(0)

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFailure
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFailure
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	paths, res, err := runExport(ctx, cfg, scenePath, *out, *notesPath)
	if err != nil {
		logger.Error("export failed", zap.String("scene", scenePath), zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, export.ErrCanceled) {
			return exitCanceled
		}
		return exitFailure
	}

	logger.Info("export finished", zap.String("mesh", paths.Name), zap.String("summary", res.Summary()))
	fmt.Printf("%s: %s\n", paths.Name, res.Summary())
	for _, p := range []string{paths.Data, paths.Aniv, paths.Script} {
		if p != "" {
			fmt.Printf("  %s\n", p)
		}
	}
	if paths.Log != "" && len(res.Tracks) > 0 {
		fmt.Printf("  %s\n", paths.Log)
	}
	for _, name := range res.Rejected {
		fmt.Printf("  skipped mesh %q (no vertices or faces)\n", name)
	}
	return exitOK
}

func runExport(ctx context.Context, cfg *config.Config, scenePath, target, notesPath string) (export.Paths, *export.Result, error) {
	sc, err := source.Open(scenePath, cfg.SourceOptions(logger.Named("source")))
	if err != nil {
		return export.Paths{}, nil, err
	}
	if notesPath != "" {
		keys, err := source.LoadNotes(notesPath)
		if err != nil {
			return export.Paths{}, nil, err
		}
		sc = source.WithNotes(sc, keys)
	}

	opts, err := cfg.ExportOptions()
	if err != nil {
		return export.Paths{}, nil, err
	}
	res, err := export.New(opts, logger.Named("export")).Run(ctx, sc)
	if err != nil {
		return export.Paths{}, nil, err
	}

	if target == "" {
		// Drop the scene's extension so the model extension applies.
		target = strings.TrimSuffix(scenePath, filepath.Ext(scenePath))
	}
	paths := cfg.OutputPaths(target)
	if err := os.MkdirAll(paths.Dir, 0o755); err != nil {
		return paths, nil, err
	}
	if err := res.WriteFiles(ctx, paths); err != nil {
		return paths, nil, err
	}
	return paths, res, nil
}

func cmdNotes(args []string) int {
	fs := flag.NewFlagSet("notes", flag.ExitOnError)
	frame := fs.Int("frame", 0, "Frame of a raw text annotation file")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: u3dexport notes [-frame N] <file>")
		return exitFailure
	}
	path := fs.Arg(0)

	var keys []notes.Key
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		loaded, err := source.LoadNotes(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return exitFailure
		}
		keys = loaded
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return exitFailure
		}
		keys = []notes.Key{{Frame: *frame, Text: string(data)}}
	}

	if err := printNotes(os.Stdout, keys); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFailure
	}
	return exitOK
}

// printNotes parses annotation keys and lists the sequences and notifies
// they define.
func printNotes(w io.Writer, keys []notes.Key) error {
	res, err := notes.ParseAll(keys)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Sequences: %d\n", len(res.Sequences))
	for _, s := range res.Sequences {
		fmt.Fprintf(w, "  %-16s start %-5d frames %-5d", s.Name, s.StartFrame, s.NumFrames)
		if s.Rate != "" {
			fmt.Fprintf(w, " rate %s", s.Rate)
		}
		if s.Group != "" {
			fmt.Fprintf(w, " group %s", s.Group)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "Notifies:  %d\n", len(res.Notifies))
	for _, n := range res.Notifies {
		fmt.Fprintf(w, "  %-16s %-16s time %s\n", n.Sequence, n.Function, n.Time)
	}
	return nil
}

func cmdConfig(args []string) int {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	initFile := fs.Bool("init", false, "Write the default config")
	out := fs.String("o", "", "Path for -init (default: user config directory)")
	fs.Parse(args)

	if *initFile {
		cfg := config.Default()
		var err error
		path := *out
		if path == "" {
			path = filepath.Join(config.ConfigDir(), "config.yaml")
			err = cfg.Save()
		} else {
			err = cfg.SaveTo(path)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return exitFailure
		}
		fmt.Printf("Wrote %s\n", path)
		return exitOK
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFailure
	}
	if err := cfg.Write(os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFailure
	}
	return exitOK
}
