package u3d

import (
	"bufio"
	"fmt"
	"io"

	"github.com/Faultbox/u3dexport/pkg/notes"
)

// DefaultTexture is bound to material slots with no texture name.
const DefaultTexture = "DefaultTexture"

// TextureBinding assigns a texture to a mesh map slot.
type TextureBinding struct {
	Num     int
	Texture string
}

// Script describes the import script written next to the model files.
type Script struct {
	Name       string     // class and mesh name, also the file name stem
	Ext        string     // model file extension, ".3d" when empty
	Origin     [3]float32 // MESH ORIGIN X Y Z
	Rotation   [3]int     // MESH ORIGIN PITCH YAW ROLL
	Scale      [3]float32 // MESH SCALE and MESHMAP SCALE
	FrameCount int
	Sequences  []notes.Sequence
	Notifies   []notes.Notify
	Textures   []TextureBinding
}

// WriteScript writes one #exec directive per line.
func WriteScript(w io.Writer, s *Script) error {
	ext := s.Ext
	if ext == "" {
		ext = ".3d"
	}

	bw := bufio.NewWriter(w)
	name := s.Name

	fmt.Fprintf(bw, "class %s extends Object;\n\n", name)
	fmt.Fprintf(bw, "#exec MESH IMPORT MESH=%s ANIVFILE=%s_a%s DATAFILE=%s_d%s\n", name, name, ext, name, ext)
	fmt.Fprintf(bw, "#exec MESH ORIGIN MESH=%s X=%f Y=%f Z=%f PITCH=%d YAW=%d ROLL=%d\n",
		name, s.Origin[0], s.Origin[1], s.Origin[2], s.Rotation[0], s.Rotation[1], s.Rotation[2])
	fmt.Fprintf(bw, "#exec MESH SCALE MESH=%s X=%f Y=%f Z=%f\n", name, s.Scale[0], s.Scale[1], s.Scale[2])
	fmt.Fprintf(bw, "#exec MESHMAP NEW MESHMAP=%s MESH=%s\n", name, name)
	fmt.Fprintf(bw, "#exec MESHMAP SCALE MESHMAP=%s X=%f Y=%f Z=%f\n", name, s.Scale[0], s.Scale[1], s.Scale[2])
	fmt.Fprintf(bw, "#exec MESH SEQUENCE MESH=%s SEQ=All STARTFRAME=0 NUMFRAMES=%d\n", name, s.FrameCount)

	for _, seq := range s.Sequences {
		fmt.Fprintf(bw, "#exec MESH SEQUENCE MESH=%s SEQ=%s STARTFRAME=%d NUMFRAMES=%d", name, seq.Name, seq.StartFrame, seq.NumFrames)
		if seq.Rate != "" {
			fmt.Fprintf(bw, " RATE=%s", seq.Rate)
		}
		if seq.Group != "" {
			fmt.Fprintf(bw, " GROUP=%s", seq.Group)
		}
		bw.WriteString("\n")
	}

	for _, n := range s.Notifies {
		fmt.Fprintf(bw, "#exec MESH NOTIFY MESH=%s SEQ=%s TIME=%s FUNCTION=%s\n", name, n.Sequence, n.Time, n.Function)
	}

	for _, tex := range s.Textures {
		texture := tex.Texture
		if texture == "" {
			texture = DefaultTexture
		}
		fmt.Fprintf(bw, "#exec MESHMAP SETTEXTURE MESHMAP=%s NUM=%d TEXTURE=%s\n", name, tex.Num, texture)
	}

	return bw.Flush()
}
