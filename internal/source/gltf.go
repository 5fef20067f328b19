package source

import (
	"fmt"
	"math"
	"path"
	"strings"

	"github.com/flywave/go3d/vec3"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"github.com/Faultbox/u3dexport/pkg/scene"
)

// GLTFScene exposes each triangle primitive of each mesh node as a mesh and
// every other node except cameras as a tracker. Nodes are evaluated at
// frame/fps seconds of the selected animation.
type GLTFScene struct {
	fps      float64
	nodes    []*gltf.Node
	parent   []int
	channels map[int][]*channel
	end      int
	meshes   []*gltfMesh
	trackers []*gltfTracker
	notes    []scene.NoteKey
}

type gltfMesh struct {
	scene     *GLTFScene
	name      string
	node      int
	positions [][3]float32
	faces     []scene.Face
	material  *scene.Material
}

type gltfTracker struct {
	scene *GLTFScene
	name  string
	node  int
}

// channel is one decoded animation channel.
type channel struct {
	path          gltf.TRSProperty
	interpolation gltf.Interpolation
	times         []float32
	values        [][4]float32
}

// OpenGLTF loads a .gltf or .glb document.
func OpenGLTF(path string, opts Options) (*GLTFScene, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening glTF: %w", err)
	}
	return NewGLTFScene(doc, opts)
}

// NewGLTFScene builds a scene from a loaded document.
func NewGLTFScene(doc *gltf.Document, opts Options) (*GLTFScene, error) {
	log := opts.logger()
	s := &GLTFScene{fps: opts.fps(), nodes: doc.Nodes, channels: make(map[int][]*channel)}

	s.parent = make([]int, len(s.nodes))
	for i := range s.parent {
		s.parent[i] = -1
	}
	for i, n := range s.nodes {
		if n == nil {
			return nil, fmt.Errorf("%w: node %d is empty", ErrInvalidGLTF, i)
		}
		for _, c := range n.Children {
			if int(c) >= len(s.nodes) || s.parent[c] >= 0 {
				return nil, fmt.Errorf("%w: node %d has invalid child %d", ErrInvalidGLTF, i, c)
			}
			s.parent[c] = i
		}
	}

	for i := range s.parent {
		steps := 0
		for p := s.parent[i]; p >= 0; p = s.parent[p] {
			if steps++; steps > len(s.nodes) {
				return nil, fmt.Errorf("%w: node hierarchy has a cycle at node %d", ErrInvalidGLTF, i)
			}
		}
	}

	if err := s.loadAnimation(doc, opts.Animation); err != nil {
		return nil, err
	}

	var roots []int
	sceneIdx := 0
	if doc.Scene != nil {
		sceneIdx = int(*doc.Scene)
	}
	if sceneIdx < len(doc.Scenes) && doc.Scenes[sceneIdx] != nil {
		sc := doc.Scenes[sceneIdx]
		for _, r := range sc.Nodes {
			roots = append(roots, int(r))
		}
		s.notes = extrasNotes(sc.Extras)
	} else {
		for i, p := range s.parent {
			if p < 0 {
				roots = append(roots, i)
			}
		}
	}

	mat := func(id int) *scene.Material {
		if id < 0 || id >= len(doc.Materials) || doc.Materials[id] == nil {
			return nil
		}
		src := doc.Materials[id]
		m := &scene.Material{Name: src.Name}
		if pbr := src.PBRMetallicRoughness; pbr != nil && pbr.BaseColorTexture != nil {
			if t := int(pbr.BaseColorTexture.Index); t < len(doc.Textures) && doc.Textures[t] != nil && doc.Textures[t].Source != nil {
				if img := int(*doc.Textures[t].Source); img < len(doc.Images) && doc.Images[img] != nil {
					m.Texture = imageName(doc.Images[img])
				}
			}
		}
		if m.Texture == "" {
			m.Texture = m.Name
		}
		return m
	}

	visited := make([]bool, len(s.nodes))
	var walk func(i int) error
	walk = func(i int) error {
		if i < 0 || i >= len(s.nodes) {
			return fmt.Errorf("%w: node %d out of range", ErrInvalidGLTF, i)
		}
		if visited[i] {
			return nil
		}
		visited[i] = true
		n := s.nodes[i]
		switch {
		case n.Mesh != nil:
			if int(*n.Mesh) >= len(doc.Meshes) || doc.Meshes[*n.Mesh] == nil {
				return fmt.Errorf("%w: node %d references mesh %d", ErrInvalidGLTF, i, *n.Mesh)
			}
			def := doc.Meshes[*n.Mesh]
			for p, prim := range def.Primitives {
				if prim == nil {
					continue
				}
				if prim.Mode != gltf.PrimitiveTriangles {
					log.Warn("skipping non-triangle primitive",
						zap.String("node", nodeName(n, i)), zap.Stringer("mode", prim.Mode))
					continue
				}
				m, err := s.loadPrimitive(doc, i, prim, mat)
				if err != nil {
					return fmt.Errorf("node %q primitive %d: %w", nodeName(n, i), p, err)
				}
				m.name = nodeName(n, i)
				if len(def.Primitives) > 1 {
					m.name = fmt.Sprintf("%s#%d", m.name, p)
				}
				s.meshes = append(s.meshes, m)
			}
		case n.Camera == nil:
			s.trackers = append(s.trackers, &gltfTracker{scene: s, name: nodeName(n, i), node: i})
		}
		for _, c := range n.Children {
			if err := walk(int(c)); err != nil {
				return err
			}
		}
		return nil
	}
	for _, r := range roots {
		if err := walk(r); err != nil {
			return nil, err
		}
	}

	log.Debug("loaded glTF scene",
		zap.Int("meshes", len(s.meshes)),
		zap.Int("trackers", len(s.trackers)),
		zap.Int("end_frame", s.end))
	return s, nil
}

func (s *GLTFScene) loadPrimitive(doc *gltf.Document, node int, prim *gltf.Primitive, mat func(int) *scene.Material) (*gltfMesh, error) {
	posIdx, ok := prim.Attributes["POSITION"]
	if !ok || int(posIdx) >= len(doc.Accessors) {
		return nil, fmt.Errorf("%w: missing POSITION", ErrInvalidGLTF)
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return nil, fmt.Errorf("reading positions: %w", err)
	}

	var indices []uint32
	if prim.Indices != nil {
		if int(*prim.Indices) >= len(doc.Accessors) {
			return nil, fmt.Errorf("%w: indices accessor %d", ErrInvalidGLTF, *prim.Indices)
		}
		if indices, err = modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil); err != nil {
			return nil, fmt.Errorf("reading indices: %w", err)
		}
	} else {
		indices = make([]uint32, len(positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	var uvs [][2]float32
	if uvIdx, ok := prim.Attributes["TEXCOORD_0"]; ok && int(uvIdx) < len(doc.Accessors) {
		if uvs, err = modeler.ReadTextureCoord(doc, doc.Accessors[uvIdx], nil); err != nil {
			return nil, fmt.Errorf("reading texture coordinates: %w", err)
		}
	}

	materialID := 0
	if prim.Material != nil {
		materialID = int(*prim.Material)
	}

	m := &gltfMesh{scene: s, node: node, positions: positions, material: mat(materialID)}
	mirrored := s.world(node, 0).Mat3().Det() < 0
	for i := 0; i+2 < len(indices); i += 3 {
		f := scene.Face{MaterialID: materialID}
		for c := 0; c < 3; c++ {
			v := int(indices[i+c])
			f.Verts[c] = v
			if v < len(uvs) {
				// glTF V grows downward.
				f.UV[c] = scene.TexCoord{U: uvs[v][0], V: 1 - uvs[v][1]}
				f.HasUV[c] = true
			}
		}
		if mirrored {
			f.Verts[1], f.Verts[2] = f.Verts[2], f.Verts[1]
			f.UV[1], f.UV[2] = f.UV[2], f.UV[1]
			f.HasUV[1], f.HasUV[2] = f.HasUV[2], f.HasUV[1]
		}
		m.faces = append(m.faces, f)
	}
	return m, nil
}

func (s *GLTFScene) loadAnimation(doc *gltf.Document, name string) error {
	anims := doc.Animations
	if len(anims) == 0 {
		if name != "" {
			return fmt.Errorf("%w: %q", ErrNoAnimation, name)
		}
		return nil
	}

	anim := anims[0]
	if name != "" {
		anim = nil
		for _, a := range anims {
			if a != nil && a.Name == name {
				anim = a
				break
			}
		}
		if anim == nil {
			return fmt.Errorf("%w: %q", ErrNoAnimation, name)
		}
	}
	if anim == nil {
		return nil
	}

	var last float32
	for ci, ch := range anim.Channels {
		if ch == nil || ch.Target.Node == nil || int(*ch.Target.Node) >= len(s.nodes) {
			continue
		}
		if ch.Target.Path == gltf.TRSWeights {
			// Morph weights do not move vertices through node transforms.
			continue
		}
		if ch.Sampler == nil || int(*ch.Sampler) >= len(anim.Samplers) || anim.Samplers[*ch.Sampler] == nil {
			return fmt.Errorf("%w: channel %d has no valid sampler", ErrInvalidGLTF, ci)
		}
		smp := anim.Samplers[*ch.Sampler]
		c := &channel{path: ch.Target.Path, interpolation: smp.Interpolation}

		var err error
		if c.times, err = readFloats(doc, smp.Input); err != nil {
			return fmt.Errorf("channel %d input: %w", ci, err)
		}
		if c.values, err = readVectors(doc, smp.Output); err != nil {
			return fmt.Errorf("channel %d output: %w", ci, err)
		}
		want := len(c.times)
		if c.interpolation == gltf.InterpolationCubicSpline {
			want *= 3
		}
		if len(c.values) != want {
			return fmt.Errorf("%w: channel %d has %d keys and %d values", ErrInvalidGLTF, ci, len(c.times), len(c.values))
		}
		if n := len(c.times); n > 0 && c.times[n-1] > last {
			last = c.times[n-1]
		}
		node := int(*ch.Target.Node)
		s.channels[node] = append(s.channels[node], c)
	}
	s.end = int(math.Ceil(float64(last) * s.fps))
	return nil
}

func readFloats(doc *gltf.Document, idx uint32) ([]float32, error) {
	if int(idx) >= len(doc.Accessors) {
		return nil, fmt.Errorf("%w: accessor %d", ErrInvalidGLTF, idx)
	}
	data, err := modeler.ReadAccessor(doc, doc.Accessors[idx], nil)
	if err != nil {
		return nil, err
	}
	values, ok := data.([]float32)
	if !ok {
		return nil, fmt.Errorf("%w: accessor %d is %T, want float scalars", ErrInvalidGLTF, idx, data)
	}
	return values, nil
}

func readVectors(doc *gltf.Document, idx uint32) ([][4]float32, error) {
	if int(idx) >= len(doc.Accessors) {
		return nil, fmt.Errorf("%w: accessor %d", ErrInvalidGLTF, idx)
	}
	data, err := modeler.ReadAccessor(doc, doc.Accessors[idx], nil)
	if err != nil {
		return nil, err
	}
	switch v := data.(type) {
	case [][3]float32:
		out := make([][4]float32, len(v))
		for i, e := range v {
			out[i] = [4]float32{e[0], e[1], e[2], 0}
		}
		return out, nil
	case [][4]float32:
		return v, nil
	default:
		return nil, fmt.Errorf("%w: accessor %d is %T, want float vectors", ErrInvalidGLTF, idx, data)
	}
}

// extrasNotes reads the "notes" list of a scene's extras, each entry a
// {frame, text} object.
func extrasNotes(extras any) []scene.NoteKey {
	fields, ok := extras.(map[string]any)
	if !ok {
		return nil
	}
	list, _ := fields["notes"].([]any)
	var keys []scene.NoteKey
	for _, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		frame, _ := entry["frame"].(float64)
		text, _ := entry["text"].(string)
		keys = append(keys, scene.NoteKey{Frame: int(frame), Text: text})
	}
	return keys
}

func nodeName(n *gltf.Node, i int) string {
	if n.Name != "" {
		return n.Name
	}
	return fmt.Sprintf("node%d", i)
}

func imageName(img *gltf.Image) string {
	if img.Name != "" {
		return img.Name
	}
	if img.URI == "" || strings.HasPrefix(img.URI, "data:") {
		return ""
	}
	base := path.Base(img.URI)
	return strings.TrimSuffix(base, path.Ext(base))
}

// sample evaluates the channel at t seconds.
func (c *channel) sample(t float32) [4]float32 {
	value := func(k int) [4]float32 {
		if c.interpolation == gltf.InterpolationCubicSpline {
			return c.values[3*k+1]
		}
		return c.values[k]
	}

	n := len(c.times)
	if t <= c.times[0] {
		return value(0)
	}
	if t >= c.times[n-1] {
		return value(n - 1)
	}
	k := 0
	for k+1 < n && c.times[k+1] <= t {
		k++
	}
	dt := c.times[k+1] - c.times[k]
	u := (t - c.times[k]) / dt

	switch c.interpolation {
	case gltf.InterpolationStep:
		return value(k)
	case gltf.InterpolationCubicSpline:
		u2, u3 := u*u, u*u*u
		v0, v1 := value(k), value(k+1)
		out0, in1 := c.values[3*k+2], c.values[3*(k+1)]
		var r [4]float32
		for i := range r {
			r[i] = (2*u3-3*u2+1)*v0[i] + (u3-2*u2+u)*dt*out0[i] + (-2*u3+3*u2)*v1[i] + (u3-u2)*dt*in1[i]
		}
		if c.path == gltf.TRSRotation {
			return quatArray(gltfQuat(r))
		}
		return r
	default:
		if c.path == gltf.TRSRotation {
			return quatArray(mgl32.QuatSlerp(gltfQuat(value(k)), gltfQuat(value(k+1)), u))
		}
		a, b := value(k), value(k+1)
		return [4]float32{a[0] + u*(b[0]-a[0]), a[1] + u*(b[1]-a[1]), a[2] + u*(b[2]-a[2]), 0}
	}
}

func gltfQuat(v [4]float32) mgl32.Quat {
	return mgl32.Quat{W: v[3], V: mgl32.Vec3{v[0], v[1], v[2]}}.Normalize()
}

func quatArray(q mgl32.Quat) [4]float32 {
	return [4]float32{q.V[0], q.V[1], q.V[2], q.W}
}

// local returns the node's own transform at t seconds.
func (s *GLTFScene) local(i int, t float32) mgl32.Mat4 {
	n := s.nodes[i]
	chans := s.channels[i]
	if len(chans) == 0 {
		return mgl32.Mat4(n.MatrixOrDefault()).Mul4(trs(n.TranslationOrDefault(), n.RotationOrDefault(), n.ScaleOrDefault()))
	}

	tr := n.TranslationOrDefault()
	rot := gltfQuat(n.RotationOrDefault())
	sc := n.ScaleOrDefault()

	for _, c := range chans {
		if len(c.times) == 0 {
			continue
		}
		v := c.sample(t)
		switch c.path {
		case gltf.TRSTranslation:
			tr = [3]float32{v[0], v[1], v[2]}
		case gltf.TRSRotation:
			rot = gltfQuat(v)
		case gltf.TRSScale:
			sc = [3]float32{v[0], v[1], v[2]}
		}
	}
	return trs(tr, quatArray(rot), sc)
}

// trs composes translation, rotation and scale in glTF order.
func trs(t [3]float32, r [4]float32, s [3]float32) mgl32.Mat4 {
	return mgl32.Translate3D(t[0], t[1], t[2]).
		Mul4(gltfQuat(r).Mat4()).
		Mul4(mgl32.Scale3D(s[0], s[1], s[2]))
}

// world returns the node's transform in scene space at t seconds.
func (s *GLTFScene) world(i int, t float32) mgl32.Mat4 {
	m := s.local(i, t)
	for p := s.parent[i]; p >= 0; p = s.parent[p] {
		m = s.local(p, t).Mul4(m)
	}
	return m
}

func (s *GLTFScene) seconds(frame int) float32 {
	return float32(float64(frame) / s.fps)
}

func (s *GLTFScene) Meshes() []scene.Mesh {
	meshes := make([]scene.Mesh, len(s.meshes))
	for i, m := range s.meshes {
		meshes[i] = m
	}
	return meshes
}

func (s *GLTFScene) FrameRange() (start, end int) { return 0, s.end }

func (s *GLTFScene) NoteKeys() []scene.NoteKey { return s.notes }

func (s *GLTFScene) Trackers() []scene.Tracker {
	trackers := make([]scene.Tracker, len(s.trackers))
	for i, t := range s.trackers {
		trackers[i] = t
	}
	return trackers
}

func (m *gltfMesh) Name() string { return m.name }

func (m *gltfMesh) NumVertices() int { return len(m.positions) }

func (m *gltfMesh) NumFaces() int { return len(m.faces) }

func (m *gltfMesh) Face(i int) scene.Face { return m.faces[i] }

func (m *gltfMesh) Material(int) *scene.Material { return m.material }

func (m *gltfMesh) Vertices(frame int) ([]vec3.T, error) {
	if frame < 0 {
		return nil, fmt.Errorf("mesh %q: %w: %d", m.name, ErrFrameOutOfRange, frame)
	}
	w := m.scene.world(m.node, m.scene.seconds(frame))
	verts := make([]vec3.T, len(m.positions))
	for i, p := range m.positions {
		verts[i] = vec3.T(mgl32.TransformCoordinate(mgl32.Vec3(p), w))
	}
	return verts, nil
}

func (t *gltfTracker) Name() string { return t.name }

func (t *gltfTracker) Transform(frame int) (vec3.T, mgl32.Quat, error) {
	if frame < 0 {
		return vec3.T{}, mgl32.QuatIdent(), fmt.Errorf("tracker %q: %w: %d", t.name, ErrFrameOutOfRange, frame)
	}
	w := t.scene.world(t.node, t.scene.seconds(frame))
	loc := vec3.T{w[12], w[13], w[14]}

	// Strip scale from the basis before reading the rotation.
	rot := w.Mat3()
	for c := 0; c < 3; c++ {
		col := mgl32.Vec3{rot[c*3], rot[c*3+1], rot[c*3+2]}
		if l := col.Len(); l > 1e-6 {
			rot[c*3], rot[c*3+1], rot[c*3+2] = col[0]/l, col[1]/l, col[2]/l
		}
	}
	return loc, mgl32.Mat4ToQuat(rot.Mat4()).Normalize(), nil
}
