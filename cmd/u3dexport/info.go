package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Faultbox/u3dexport/pkg/encoding"
	"github.com/Faultbox/u3dexport/pkg/formats"
	"github.com/Faultbox/u3dexport/pkg/u3d"
)

func cmdInfo(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: u3dexport info <file>")
		return exitFailure
	}
	path := args[0]

	var err error
	switch {
	case strings.EqualFold(filepath.Ext(path), ".rsm"):
		err = printRSMInfo(os.Stdout, path)
	default:
		err = printModelInfo(os.Stdout, path)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFailure
	}
	return exitOK
}

// printModelInfo prints a data or animation file. The kind comes from the
// _d/_a suffix, or from whichever parser accepts the bytes.
func printModelInfo(w io.Writer, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}

	base := strings.ToLower(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	switch {
	case strings.HasSuffix(base, "_d"):
		d, err := u3d.ParseData(data)
		if err != nil {
			return err
		}
		printData(w, path, d)
		checkPartner(w, path, d, nil)
	case strings.HasSuffix(base, "_a"):
		a, err := u3d.ParseAniv(data)
		if err != nil {
			return err
		}
		printAniv(w, path, a)
		checkPartner(w, path, nil, a)
	default:
		d, derr := u3d.ParseData(data)
		if derr == nil {
			printData(w, path, d)
			return nil
		}
		a, aerr := u3d.ParseAniv(data)
		if aerr == nil {
			printAniv(w, path, a)
			return nil
		}
		return errors.Join(derr, aerr)
	}
	return nil
}

func printData(w io.Writer, path string, d *u3d.Data) {
	fmt.Fprintf(w, "Data file: %s\n", path)
	fmt.Fprintf(w, "  Polygons: %d\n", d.Header.NumPolys)
	fmt.Fprintf(w, "  Vertices: %d\n", d.Header.NumVertices)

	slots := make(map[uint8]int)
	flags := make(map[uint8]int)
	for _, t := range d.Tris {
		slots[t.TextureNum]++
		if t.Flags != 0 {
			flags[t.Flags]++
		}
	}

	fmt.Fprintf(w, "  Texture slots: %d\n", len(slots))
	for _, id := range sortedKeys(slots) {
		fmt.Fprintf(w, "    [%3d] %d polygons\n", id, slots[id])
	}
	if len(flags) > 0 {
		fmt.Fprintln(w, "  Flags:")
		for _, f := range sortedKeys(flags) {
			fmt.Fprintf(w, "    0x%02x %d polygons\n", f, flags[f])
		}
	}
}

func printAniv(w io.Writer, path string, a *u3d.Aniv) {
	fmt.Fprintf(w, "Animation file: %s\n", path)
	fmt.Fprintf(w, "  Frames: %d\n", a.Header.NumFrames)
	fmt.Fprintf(w, "  Frame size: %d bytes (%d vertices)\n", a.Header.FrameSize, a.VertsPerFrame())

	if len(a.Verts) == 0 {
		return
	}
	var lo, hi [3]int32
	for i, v := range a.Verts {
		x, y, z := u3d.UnpackVertex(v)
		p := [3]int32{x, y, z}
		for k := range p {
			if i == 0 || p[k] < lo[k] {
				lo[k] = p[k]
			}
			if i == 0 || p[k] > hi[k] {
				hi[k] = p[k]
			}
		}
	}
	fmt.Fprintf(w, "  Bounds: min (%d, %d, %d) max (%d, %d, %d)\n", lo[0], lo[1], lo[2], hi[0], hi[1], hi[2])
}

// checkPartner looks for the other file of the pair next to path and
// reports whether the two agree.
func checkPartner(w io.Writer, path string, d *u3d.Data, a *u3d.Aniv) {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	stem = stem[:len(stem)-2]

	var err error
	var partner string
	if d != nil {
		partner = stem + "_a" + ext
		a, err = u3d.ParseAnivFile(partner)
	} else {
		partner = stem + "_d" + ext
		d, err = u3d.ParseDataFile(partner)
	}
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(w, "  Pair: %s unreadable: %v\n", partner, err)
		}
		return
	}
	if err := u3d.CheckPair(d, a); err != nil {
		fmt.Fprintf(w, "  Pair: %s MISMATCH: %v\n", partner, err)
		return
	}
	fmt.Fprintf(w, "  Pair: %s ok\n", partner)
}

func printRSMInfo(w io.Writer, path string) error {
	m, err := formats.ParseRSMFile(path)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "RSM model: %s\n", path)
	fmt.Fprintf(w, "  Version: %s\n", m.Version)
	fmt.Fprintf(w, "  Shading: %s\n", m.Shading)
	if m.HasAnimation() {
		fmt.Fprintf(w, "  Animation: %d ms\n", m.AnimLength)
	} else {
		fmt.Fprintln(w, "  Animation: none")
	}
	fmt.Fprintf(w, "  Nodes: %d (root %q)\n", len(m.Nodes), m.RootNode)
	fmt.Fprintf(w, "  Vertices: %d\n", m.VertexCount())
	fmt.Fprintf(w, "  Faces: %d\n", m.FaceCount())

	fmt.Fprintf(w, "  Textures: %d\n", len(m.Textures))
	for i, tex := range m.Textures {
		fmt.Fprintf(w, "    [%3d] %s\n", i, encoding.TextureName(tex))
	}
	fmt.Fprintln(w, "  Hierarchy:")
	for i := range m.Nodes {
		n := &m.Nodes[i]
		fmt.Fprintf(w, "    node %-20s verts %-5d faces %-5d keys pos/rot/scale %d/%d/%d\n",
			n.Name, len(n.Vertices), len(n.Faces), len(n.PosKeys), len(n.RotKeys), len(n.ScaleKeys))
	}
	return nil
}

func sortedKeys(m map[uint8]int) []uint8 {
	keys := make([]uint8, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
