package export

import (
	"path/filepath"
	"strings"
)

// DefaultExt is the model file extension used when none is given.
const DefaultExt = ".3d"

// Paths names the files of one export. An empty Script or Log path skips
// that file.
type Paths struct {
	Dir    string
	Name   string // class and mesh name
	Ext    string
	Data   string
	Aniv   string
	Script string
	Log    string
}

// OutputPaths derives the output file names from a target path. A trailing
// "_d" or "_a" on the base name is dropped so either model file can be
// named as the target. ext replaces the target's extension when non-empty.
func OutputPaths(target, ext string) Paths {
	dir := filepath.Dir(target)
	base := filepath.Base(target)
	if e := filepath.Ext(base); e != "" {
		base = strings.TrimSuffix(base, e)
		if ext == "" {
			ext = e
		}
	}
	if ext == "" {
		ext = DefaultExt
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	if n := len(base); n > 2 {
		suffix := strings.ToLower(base[n-2:])
		if suffix == "_d" || suffix == "_a" {
			base = base[:n-2]
		}
	}

	return Paths{
		Dir:    dir,
		Name:   base,
		Ext:    ext,
		Data:   filepath.Join(dir, base+"_d"+ext),
		Aniv:   filepath.Join(dir, base+"_a"+ext),
		Script: filepath.Join(dir, base+"_rc.uc"),
		Log:    filepath.Join(dir, base+".log"),
	}
}

// In returns p with every file moved into dir.
func (p Paths) In(dir string) Paths {
	move := func(path string) string {
		if path == "" {
			return ""
		}
		return filepath.Join(dir, filepath.Base(path))
	}
	p.Dir = dir
	p.Data = move(p.Data)
	p.Aniv = move(p.Aniv)
	p.Script = move(p.Script)
	p.Log = move(p.Log)
	return p
}
