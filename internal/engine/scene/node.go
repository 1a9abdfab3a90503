// Package scene provides the scene graph rendered by the viewer: nodes tagged
// by kind, transforms, lights, and explicitly owned GPU-backed resources.
package scene

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Kind tags what a node is, so traversals never need type assertions.
type Kind int

const (
	KindGroup Kind = iota
	KindMesh
	KindSkinnedMesh
	KindBone
	KindAmbientLight
	KindDirectionalLight
)

func (k Kind) String() string {
	switch k {
	case KindGroup:
		return "group"
	case KindMesh:
		return "mesh"
	case KindSkinnedMesh:
		return "skinned_mesh"
	case KindBone:
		return "bone"
	case KindAmbientLight:
		return "ambient_light"
	case KindDirectionalLight:
		return "directional_light"
	default:
		return "unknown"
	}
}

// Node is an element of the scene graph.
type Node struct {
	Name string
	Kind Kind

	// Local transform
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3

	Visible       bool
	CastShadow    bool
	ReceiveShadow bool

	// Mesh data (KindMesh, KindSkinnedMesh)
	Geometry  *Geometry
	Materials []*Material
	Skin      *Skin

	// Light data (KindAmbientLight, KindDirectionalLight)
	Light *Light

	parent   *Node
	children []*Node
}

func newNode(name string, kind Kind) *Node {
	return &Node{
		Name:     name,
		Kind:     kind,
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
		Visible:  true,
	}
}

// NewGroup creates an empty transform node.
func NewGroup(name string) *Node {
	return newNode(name, KindGroup)
}

// NewBone creates a skeleton joint node.
func NewBone(name string) *Node {
	return newNode(name, KindBone)
}

// NewMesh creates a drawable node. A nil material list is allowed; the renderer
// falls back to a default material.
func NewMesh(name string, geometry *Geometry, materials ...*Material) *Node {
	n := newNode(name, KindMesh)
	n.Geometry = geometry
	n.Materials = materials
	return n
}

// NewSkinnedMesh creates a drawable node deformed by skin joints.
func NewSkinnedMesh(name string, geometry *Geometry, skin *Skin, materials ...*Material) *Node {
	n := NewMesh(name, geometry, materials...)
	n.Kind = KindSkinnedMesh
	n.Skin = skin
	return n
}

// IsDrawable reports whether the node carries geometry to render.
func (n *Node) IsDrawable() bool {
	return n.Kind == KindMesh || n.Kind == KindSkinnedMesh
}

// Parent returns the node's parent, or nil for a detached node.
func (n *Node) Parent() *Node {
	return n.parent
}

// Children returns the direct children. Callers must not modify the slice.
func (n *Node) Children() []*Node {
	return n.children
}

// Add attaches children to n, detaching them from any previous parent.
func (n *Node) Add(children ...*Node) {
	for _, c := range children {
		if c == nil || c == n {
			continue
		}
		if c.parent != nil {
			c.parent.Remove(c)
		}
		c.parent = n
		n.children = append(n.children, c)
	}
}

// Remove detaches child from n. It reports whether child was a direct child.
func (n *Node) Remove(child *Node) bool {
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i], n.children[i+1:]...)
			child.parent = nil
			return true
		}
	}
	return false
}

// Traverse calls fn for n and every descendant, depth first, parents before children.
func (n *Node) Traverse(fn func(*Node)) {
	fn(n)
	for _, c := range n.children {
		c.Traverse(fn)
	}
}

// FindByName returns the first node in the subtree with the given name.
func (n *Node) FindByName(name string) *Node {
	if n.Name == name {
		return n
	}
	for _, c := range n.children {
		if found := c.FindByName(name); found != nil {
			return found
		}
	}
	return nil
}

// SetRotationEuler sets the rotation from XYZ Euler angles in radians.
func (n *Node) SetRotationEuler(x, y, z float32) {
	n.Rotation = mgl32.AnglesToQuat(x, y, z, mgl32.XYZ)
}

// SetUniformScale sets the same scale on all axes.
func (n *Node) SetUniformScale(s float32) {
	n.Scale = mgl32.Vec3{s, s, s}
}

// LocalMatrix returns translation * rotation * scale.
func (n *Node) LocalMatrix() mgl32.Mat4 {
	t := mgl32.Translate3D(n.Position.X(), n.Position.Y(), n.Position.Z())
	r := n.Rotation.Normalize().Mat4()
	s := mgl32.Scale3D(n.Scale.X(), n.Scale.Y(), n.Scale.Z())
	return t.Mul4(r).Mul4(s)
}

// WorldMatrix returns the node transform composed with all of its ancestors.
func (n *Node) WorldMatrix() mgl32.Mat4 {
	m := n.LocalMatrix()
	for p := n.parent; p != nil; p = p.parent {
		m = p.LocalMatrix().Mul4(m)
	}
	return m
}

// Light holds the parameters of a light node.
type Light struct {
	Color     mgl32.Vec3
	Intensity float32

	// ShadowResolution is the shadow map size for shadow-casting directional lights.
	ShadowResolution int32
}

// NewAmbientLight creates a light that illuminates everything uniformly.
func NewAmbientLight(color uint32, intensity float32) *Node {
	n := newNode("ambient_light", KindAmbientLight)
	n.Light = &Light{Color: ColorFromHex(color), Intensity: intensity}
	return n
}

// NewDirectionalLight creates a light shining from its position towards the origin.
func NewDirectionalLight(color uint32, intensity float32) *Node {
	n := newNode("directional_light", KindDirectionalLight)
	n.Light = &Light{Color: ColorFromHex(color), Intensity: intensity}
	return n
}

// Direction returns the unit vector from the origin towards a directional light.
func (n *Node) Direction() mgl32.Vec3 {
	p := n.WorldMatrix().Col(3).Vec3()
	if p.Len() == 0 {
		return mgl32.Vec3{0, 1, 0}
	}
	return p.Normalize()
}

// ColorFromHex converts 0xRRGGBB to linear-ish float components in [0,1].
func ColorFromHex(hex uint32) mgl32.Vec3 {
	return mgl32.Vec3{
		float32((hex>>16)&0xff) / 255,
		float32((hex>>8)&0xff) / 255,
		float32(hex&0xff) / 255,
	}
}
