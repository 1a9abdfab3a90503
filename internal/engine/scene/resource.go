package scene

import (
	gomath "math"

	"github.com/go-gl/mathgl/mgl32"
)

// Resource is embedded by data that a renderer may mirror on the GPU. The
// owner of the node calls Dispose; renderers register releasers so the GPU
// copy goes away with it.
type Resource struct {
	releasers []func()
	disposed  bool
}

// OnDispose registers fn to run when the resource is disposed. If the
// resource is already disposed fn runs immediately.
func (r *Resource) OnDispose(fn func()) {
	if r.disposed {
		fn()
		return
	}
	r.releasers = append(r.releasers, fn)
}

// Dispose releases backend copies of the resource. Repeated calls are no-ops.
func (r *Resource) Dispose() {
	if r.disposed {
		return
	}
	r.disposed = true
	releasers := r.releasers
	r.releasers = nil
	for _, fn := range releasers {
		fn()
	}
}

// Disposed reports whether Dispose has run.
func (r *Resource) Disposed() bool {
	return r.disposed
}

// Geometry holds indexed vertex data.
type Geometry struct {
	Resource

	Positions [][3]float32
	Normals   [][3]float32
	UVs       [][2]float32
	Joints    [][4]uint16
	Weights   [][4]float32
	Indices   []uint32
}

// VertexCount returns the number of vertices.
func (g *Geometry) VertexCount() int {
	return len(g.Positions)
}

// IsSkinned reports whether the geometry carries joint influences.
func (g *Geometry) IsSkinned() bool {
	return len(g.Joints) == len(g.Positions) && len(g.Weights) == len(g.Positions) && len(g.Positions) > 0
}

// ComputeNormals fills Normals with area-weighted smooth vertex normals.
func (g *Geometry) ComputeNormals() {
	normals := make([]mgl32.Vec3, len(g.Positions))
	tri := func(a, b, c uint32) {
		pa, pb, pc := mgl32.Vec3(g.Positions[a]), mgl32.Vec3(g.Positions[b]), mgl32.Vec3(g.Positions[c])
		n := pb.Sub(pa).Cross(pc.Sub(pa))
		normals[a] = normals[a].Add(n)
		normals[b] = normals[b].Add(n)
		normals[c] = normals[c].Add(n)
	}
	if len(g.Indices) > 0 {
		for i := 0; i+2 < len(g.Indices); i += 3 {
			tri(g.Indices[i], g.Indices[i+1], g.Indices[i+2])
		}
	} else {
		for i := uint32(0); int(i)+2 < len(g.Positions); i += 3 {
			tri(i, i+1, i+2)
		}
	}

	g.Normals = make([][3]float32, len(normals))
	for i, n := range normals {
		if n.Len() > 0 {
			n = n.Normalize()
		} else {
			n = mgl32.Vec3{0, 1, 0}
		}
		g.Normals[i] = n
	}
}

// Bounds returns the local-space bounding box of the geometry.
func (g *Geometry) Bounds() AABB {
	b := EmptyAABB()
	for _, p := range g.Positions {
		b = b.Extend(mgl32.Vec3(p))
	}
	return b
}

// Material describes the surface of a mesh.
type Material struct {
	Resource

	Name        string
	Color       mgl32.Vec4
	DoubleSided bool
}

// NewMaterial creates an opaque material from a 0xRRGGBB colour.
func NewMaterial(name string, color uint32) *Material {
	c := ColorFromHex(color)
	return &Material{Name: name, Color: c.Vec4(1)}
}

// Skin binds a skinned mesh to its skeleton.
type Skin struct {
	Joints      []*Node
	InverseBind []mgl32.Mat4
}

// JointMatrices writes jointWorld * inverseBind for every joint into dst and
// returns it, growing dst as needed.
func (s *Skin) JointMatrices(dst []mgl32.Mat4) []mgl32.Mat4 {
	if cap(dst) < len(s.Joints) {
		dst = make([]mgl32.Mat4, len(s.Joints))
	}
	dst = dst[:len(s.Joints)]
	for i, j := range s.Joints {
		inv := mgl32.Ident4()
		if i < len(s.InverseBind) {
			inv = s.InverseBind[i]
		}
		dst[i] = j.WorldMatrix().Mul4(inv)
	}
	return dst
}

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// EmptyAABB returns a box that any point extends.
func EmptyAABB() AABB {
	inf := float32(gomath.Inf(1))
	return AABB{
		Min: mgl32.Vec3{inf, inf, inf},
		Max: mgl32.Vec3{-inf, -inf, -inf},
	}
}

// IsEmpty reports whether no point has been added.
func (b AABB) IsEmpty() bool {
	return b.Min.X() > b.Max.X()
}

// Extend grows the box to contain p.
func (b AABB) Extend(p mgl32.Vec3) AABB {
	for i := 0; i < 3; i++ {
		b.Min[i] = min(b.Min[i], p[i])
		b.Max[i] = max(b.Max[i], p[i])
	}
	return b
}

// Union returns a box containing both boxes.
func (b AABB) Union(o AABB) AABB {
	if o.IsEmpty() {
		return b
	}
	return b.Extend(o.Min).Extend(o.Max)
}

// Transform returns the box enclosing b's corners transformed by m.
func (b AABB) Transform(m mgl32.Mat4) AABB {
	if b.IsEmpty() {
		return b
	}
	out := EmptyAABB()
	for i := 0; i < 8; i++ {
		corner := mgl32.Vec3{b.Min.X(), b.Min.Y(), b.Min.Z()}
		if i&1 != 0 {
			corner[0] = b.Max.X()
		}
		if i&2 != 0 {
			corner[1] = b.Max.Y()
		}
		if i&4 != 0 {
			corner[2] = b.Max.Z()
		}
		out = out.Extend(mgl32.TransformCoordinate(corner, m))
	}
	return out
}

// Center returns the middle of the box.
func (b AABB) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Radius returns the half-diagonal length.
func (b AABB) Radius() float32 {
	return b.Max.Sub(b.Min).Len() / 2
}
