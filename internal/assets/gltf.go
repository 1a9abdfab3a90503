package assets

import (
	"bytes"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/showcase/internal/engine/animation"
	"github.com/Faultbox/showcase/internal/engine/scene"
	"github.com/Faultbox/showcase/internal/logger"
)

// defaultMaterialColor is used by primitives without a material.
const defaultMaterialColor = 0xcccccc

// Decode parses a glTF or GLB document into a Model. External buffer URIs are
// not resolved; GLB and data-URI buffers are supported.
func Decode(data []byte) (*Model, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(bytes.NewReader(data)).Decode(doc); err != nil {
		return nil, fmt.Errorf("parsing gltf: %w", err)
	}

	b := &builder{
		doc:       doc,
		nodes:     make([]*scene.Node, len(doc.Nodes)),
		names:     uniqueNames(doc),
		materials: make(map[uint32]*scene.Material),
		joints:    jointSet(doc),
	}
	root, err := b.buildScene()
	if err != nil {
		scene.DisposeDrawables(b.detached())
		return nil, err
	}
	clips, err := b.buildClips()
	if err != nil {
		scene.DisposeDrawables(root)
		return nil, err
	}
	return &Model{Root: root, Clips: clips}, nil
}

type builder struct {
	doc       *gltf.Document
	nodes     []*scene.Node
	names     []string
	materials map[uint32]*scene.Material
	joints    map[uint32]bool
}

// uniqueNames gives every node a distinct name so clips can bind by name.
func uniqueNames(doc *gltf.Document) []string {
	names := make([]string, len(doc.Nodes))
	seen := make(map[string]int)
	for i, n := range doc.Nodes {
		name := n.Name
		if name == "" {
			name = fmt.Sprintf("node_%d", i)
		}
		if c := seen[name]; c > 0 {
			name = fmt.Sprintf("%s_%d", name, i)
		}
		seen[name]++
		names[i] = name
	}
	return names
}

func jointSet(doc *gltf.Document) map[uint32]bool {
	joints := make(map[uint32]bool)
	for _, s := range doc.Skins {
		for _, j := range s.Joints {
			joints[j] = true
		}
	}
	return joints
}

// detached groups whatever nodes were built so a failed decode can release them.
func (b *builder) detached() *scene.Node {
	g := scene.NewGroup("partial")
	for _, n := range b.nodes {
		if n != nil && n.Parent() == nil {
			g.Add(n)
		}
	}
	return g
}

func (b *builder) buildScene() (*scene.Node, error) {
	doc := b.doc

	for i, gn := range doc.Nodes {
		n := scene.NewGroup(b.names[i])
		if b.joints[uint32(i)] {
			n.Kind = scene.KindBone
		}
		setTransform(n, gn)
		b.nodes[i] = n
	}

	for i, gn := range doc.Nodes {
		for _, c := range gn.Children {
			if int(c) >= len(b.nodes) {
				return nil, fmt.Errorf("node %d: child index %d out of range", i, c)
			}
			b.nodes[i].Add(b.nodes[c])
		}
	}

	for i, gn := range doc.Nodes {
		if gn.Mesh == nil {
			continue
		}
		if err := b.attachMesh(i, gn); err != nil {
			return nil, err
		}
	}

	roots, err := b.rootIndices()
	if err != nil {
		return nil, err
	}
	root := scene.NewGroup("model")
	for _, idx := range roots {
		root.Add(b.nodes[idx])
	}
	return root, nil
}

func (b *builder) rootIndices() ([]int, error) {
	doc := b.doc
	var roots []int
	if len(doc.Scenes) > 0 {
		s := 0
		if doc.Scene != nil && int(*doc.Scene) < len(doc.Scenes) {
			s = int(*doc.Scene)
		}
		for _, idx := range doc.Scenes[s].Nodes {
			if int(idx) >= len(b.nodes) {
				return nil, fmt.Errorf("scene %d: node %d out of range", s, idx)
			}
			roots = append(roots, int(idx))
		}
		return roots, nil
	}
	for i, n := range b.nodes {
		if n.Parent() == nil {
			roots = append(roots, i)
		}
	}
	return roots, nil
}

func setTransform(n *scene.Node, gn *gltf.Node) {
	m := gn.MatrixOrDefault()
	if m != gltf.DefaultMatrix {
		var mat mgl32.Mat4
		for i, v := range m {
			mat[i] = float32(v)
		}
		decompose(n, mat)
		return
	}

	t := gn.TranslationOrDefault()
	r := gn.RotationOrDefault()
	s := gn.ScaleOrDefault()
	n.Position = mgl32.Vec3{float32(t[0]), float32(t[1]), float32(t[2])}
	n.Rotation = mgl32.Quat{W: float32(r[3]), V: mgl32.Vec3{float32(r[0]), float32(r[1]), float32(r[2])}}
	n.Scale = mgl32.Vec3{float32(s[0]), float32(s[1]), float32(s[2])}
}

// decompose splits an affine matrix without shear into translation, rotation and scale.
func decompose(n *scene.Node, m mgl32.Mat4) {
	n.Position = m.Col(3).Vec3()
	sx := m.Col(0).Vec3().Len()
	sy := m.Col(1).Vec3().Len()
	sz := m.Col(2).Vec3().Len()
	if m.Det() < 0 {
		sx = -sx
	}
	n.Scale = mgl32.Vec3{sx, sy, sz}

	rot := mgl32.Ident3()
	if sx != 0 && sy != 0 && sz != 0 {
		rot.SetCol(0, m.Col(0).Vec3().Mul(1/sx))
		rot.SetCol(1, m.Col(1).Vec3().Mul(1/sy))
		rot.SetCol(2, m.Col(2).Vec3().Mul(1/sz))
	}
	n.Rotation = mgl32.Mat4ToQuat(rot.Mat4()).Normalize()
}

func (b *builder) attachMesh(idx int, gn *gltf.Node) error {
	doc := b.doc
	if int(*gn.Mesh) >= len(doc.Meshes) {
		return fmt.Errorf("node %d: mesh index %d out of range", idx, *gn.Mesh)
	}
	mesh := doc.Meshes[*gn.Mesh]

	var skin *scene.Skin
	if gn.Skin != nil {
		s, err := b.buildSkin(*gn.Skin)
		if err != nil {
			return fmt.Errorf("node %d: %w", idx, err)
		}
		skin = s
	}

	parent := b.nodes[idx]
	for p, prim := range mesh.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles {
			logger.Sugar.Debugf("skipping non-triangle primitive %d of mesh %q", p, mesh.Name)
			continue
		}
		geom, err := b.buildGeometry(prim)
		if err != nil {
			return fmt.Errorf("mesh %q primitive %d: %w", mesh.Name, p, err)
		}
		mat := b.material(prim.Material)

		name := fmt.Sprintf("%s_primitive_%d", parent.Name, p)
		var node *scene.Node
		if skin != nil && geom.IsSkinned() {
			node = scene.NewSkinnedMesh(name, geom, skin, mat)
		} else {
			node = scene.NewMesh(name, geom, mat)
		}
		parent.Add(node)
	}
	return nil
}

func (b *builder) buildGeometry(prim *gltf.Primitive) (*scene.Geometry, error) {
	doc := b.doc
	g := &scene.Geometry{}

	acr := func(attr string) (*gltf.Accessor, bool, error) {
		i, ok := prim.Attributes[attr]
		if !ok {
			return nil, false, nil
		}
		if int(i) >= len(doc.Accessors) {
			return nil, false, fmt.Errorf("%s accessor %d out of range", attr, i)
		}
		return doc.Accessors[i], true, nil
	}

	pos, ok, err := acr(gltf.POSITION)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("primitive has no POSITION attribute")
	}
	if g.Positions, err = modeler.ReadPosition(doc, pos, nil); err != nil {
		return nil, fmt.Errorf("reading positions: %w", err)
	}

	if a, ok, err := acr(gltf.NORMAL); err != nil {
		return nil, err
	} else if ok {
		if g.Normals, err = modeler.ReadNormal(doc, a, nil); err != nil {
			return nil, fmt.Errorf("reading normals: %w", err)
		}
	}
	if a, ok, err := acr(gltf.TEXCOORD_0); err != nil {
		return nil, err
	} else if ok {
		if g.UVs, err = modeler.ReadTextureCoord(doc, a, nil); err != nil {
			return nil, fmt.Errorf("reading uvs: %w", err)
		}
	}
	if a, ok, err := acr(gltf.JOINTS_0); err != nil {
		return nil, err
	} else if ok {
		if g.Joints, err = modeler.ReadJoints(doc, a, nil); err != nil {
			return nil, fmt.Errorf("reading joints: %w", err)
		}
	}
	if a, ok, err := acr(gltf.WEIGHTS_0); err != nil {
		return nil, err
	} else if ok {
		if g.Weights, err = modeler.ReadWeights(doc, a, nil); err != nil {
			return nil, fmt.Errorf("reading weights: %w", err)
		}
	}

	if prim.Indices != nil {
		i := *prim.Indices
		if int(i) >= len(doc.Accessors) {
			return nil, fmt.Errorf("index accessor %d out of range", i)
		}
		if g.Indices, err = modeler.ReadIndices(doc, doc.Accessors[i], nil); err != nil {
			return nil, fmt.Errorf("reading indices: %w", err)
		}
	}

	if len(g.Normals) != len(g.Positions) {
		g.ComputeNormals()
	}
	return g, nil
}

// noMaterial keys the shared default material in the builder cache.
const noMaterial = ^uint32(0)

func (b *builder) material(idx *uint32) *scene.Material {
	key := noMaterial
	if idx != nil && int(*idx) < len(b.doc.Materials) {
		key = *idx
	}
	if m, ok := b.materials[key]; ok {
		return m
	}

	var m *scene.Material
	if key == noMaterial {
		m = scene.NewMaterial("default", defaultMaterialColor)
	} else {
		gm := b.doc.Materials[key]
		m = scene.NewMaterial(gm.Name, 0xffffff)
		if gm.PBRMetallicRoughness != nil {
			c := gm.PBRMetallicRoughness.BaseColorFactorOrDefault()
			m.Color = mgl32.Vec4{float32(c[0]), float32(c[1]), float32(c[2]), float32(c[3])}
		}
		m.DoubleSided = gm.DoubleSided
	}
	b.materials[key] = m
	return m
}

func (b *builder) buildSkin(idx uint32) (*scene.Skin, error) {
	doc := b.doc
	if int(idx) >= len(doc.Skins) {
		return nil, fmt.Errorf("skin index %d out of range", idx)
	}
	gs := doc.Skins[idx]

	skin := &scene.Skin{Joints: make([]*scene.Node, len(gs.Joints))}
	for i, j := range gs.Joints {
		if int(j) >= len(b.nodes) {
			return nil, fmt.Errorf("skin %d: joint %d out of range", idx, j)
		}
		skin.Joints[i] = b.nodes[j]
	}

	if gs.InverseBindMatrices != nil {
		a := *gs.InverseBindMatrices
		if int(a) >= len(doc.Accessors) {
			return nil, fmt.Errorf("skin %d: inverse bind accessor out of range", idx)
		}
		raw, err := modeler.ReadAccessor(doc, doc.Accessors[a], nil)
		if err != nil {
			return nil, fmt.Errorf("skin %d: reading inverse bind matrices: %w", idx, err)
		}
		mats, ok := raw.([][4][4]float32)
		if !ok {
			return nil, fmt.Errorf("skin %d: inverse bind matrices have type %T", idx, raw)
		}
		skin.InverseBind = make([]mgl32.Mat4, len(mats))
		for i, m := range mats {
			// accessor data is column-major, one column per inner array
			for c := 0; c < 4; c++ {
				for r := 0; r < 4; r++ {
					skin.InverseBind[i][c*4+r] = m[c][r]
				}
			}
		}
	}
	return skin, nil
}

func (b *builder) buildClips() ([]*animation.Clip, error) {
	doc := b.doc
	clips := make([]*animation.Clip, 0, len(doc.Animations))

	for ai, ga := range doc.Animations {
		name := ga.Name
		if name == "" {
			name = fmt.Sprintf("animation_%d", ai)
		}

		var tracks []animation.Track
		for ci, ch := range ga.Channels {
			if ch.Target.Node == nil || ch.Target.Path == gltf.TRSWeights {
				continue
			}
			node := *ch.Target.Node
			if int(node) >= len(b.names) {
				return nil, fmt.Errorf("animation %q channel %d: node %d out of range", name, ci, node)
			}
			if int(ch.Sampler) >= len(ga.Samplers) {
				return nil, fmt.Errorf("animation %q channel %d: sampler out of range", name, ci)
			}
			tr, err := b.buildTrack(ga.Samplers[ch.Sampler], ch.Target.Path)
			if err != nil {
				return nil, fmt.Errorf("animation %q channel %d: %w", name, ci, err)
			}
			tr.Node = b.names[node]
			tracks = append(tracks, tr)
		}
		clips = append(clips, animation.NewClip(name, tracks))
	}
	return clips, nil
}

func (b *builder) buildTrack(s *gltf.AnimationSampler, path gltf.TRSProperty) (animation.Track, error) {
	doc := b.doc
	var tr animation.Track

	switch path {
	case gltf.TRSTranslation:
		tr.Path = animation.PathTranslation
	case gltf.TRSRotation:
		tr.Path = animation.PathRotation
	case gltf.TRSScale:
		tr.Path = animation.PathScale
	}
	switch s.Interpolation {
	case gltf.InterpolationStep:
		tr.Interpolation = animation.InterpolationStep
	case gltf.InterpolationCubicSpline:
		tr.Interpolation = animation.InterpolationCubicSpline
	default:
		tr.Interpolation = animation.InterpolationLinear
	}

	if int(s.Input) >= len(doc.Accessors) || int(s.Output) >= len(doc.Accessors) {
		return tr, fmt.Errorf("sampler accessor out of range")
	}

	in, err := modeler.ReadAccessor(doc, doc.Accessors[s.Input], nil)
	if err != nil {
		return tr, fmt.Errorf("reading times: %w", err)
	}
	times, ok := in.([]float32)
	if !ok {
		return tr, fmt.Errorf("times have type %T", in)
	}
	tr.Times = times

	out, err := modeler.ReadAccessor(doc, doc.Accessors[s.Output], nil)
	if err != nil {
		return tr, fmt.Errorf("reading values: %w", err)
	}
	switch v := out.(type) {
	case [][3]float32:
		tr.Values = make([]float32, 0, len(v)*3)
		for _, e := range v {
			tr.Values = append(tr.Values, e[0], e[1], e[2])
		}
	case [][4]float32:
		tr.Values = make([]float32, 0, len(v)*4)
		for _, e := range v {
			tr.Values = append(tr.Values, e[0], e[1], e[2], e[3])
		}
	// quantized rotations are stored normalized
	case [][4]int8:
		tr.Values = dequantize(v, gltf.DenormalizeByte)
	case [][4]uint8:
		tr.Values = dequantize(v, gltf.DenormalizeUbyte)
	case [][4]int16:
		tr.Values = dequantize(v, gltf.DenormalizeShort)
	case [][4]uint16:
		tr.Values = dequantize(v, gltf.DenormalizeUshort)
	default:
		return tr, fmt.Errorf("values have unsupported type %T", out)
	}
	return tr, nil
}

func dequantize[T int8 | uint8 | int16 | uint16](v [][4]T, denorm func(T) float32) []float32 {
	out := make([]float32, 0, len(v)*4)
	for _, e := range v {
		out = append(out, denorm(e[0]), denorm(e[1]), denorm(e[2]), denorm(e[3]))
	}
	return out
}
