package scene

// Scene is the root of a scene graph.
type Scene struct {
	root *Node
}

// New creates an empty scene.
func New() *Scene {
	return &Scene{root: NewGroup("scene")}
}

// Root returns the scene's root node. It is never drawn itself.
func (s *Scene) Root() *Node {
	return s.root
}

// Add attaches nodes to the root.
func (s *Scene) Add(nodes ...*Node) {
	s.root.Add(nodes...)
}

// Remove detaches a top-level node.
func (s *Scene) Remove(n *Node) bool {
	return s.root.Remove(n)
}

// Children returns the top-level nodes.
func (s *Scene) Children() []*Node {
	return s.root.Children()
}

// Clear detaches every node. It does not dispose their resources.
func (s *Scene) Clear() {
	for _, c := range s.root.children {
		c.parent = nil
	}
	s.root.children = nil
}

// Traverse visits every node below the root, depth first.
func (s *Scene) Traverse(fn func(*Node)) {
	for _, c := range s.root.children {
		c.Traverse(fn)
	}
}

// Count returns the number of nodes below the root.
func (s *Scene) Count() int {
	n := 0
	s.Traverse(func(*Node) { n++ })
	return n
}

// Lights returns the ambient and first directional light in the scene.
func (s *Scene) Lights() (ambient, directional *Node) {
	s.Traverse(func(n *Node) {
		switch {
		case n.Kind == KindAmbientLight && ambient == nil && n.Visible:
			ambient = n
		case n.Kind == KindDirectionalLight && directional == nil && n.Visible:
			directional = n
		}
	})
	return ambient, directional
}

// Bounds returns the world-space box around all drawable geometry.
func (s *Scene) Bounds() AABB {
	b := EmptyAABB()
	s.Traverse(func(n *Node) {
		if n.IsDrawable() && n.Geometry != nil {
			b = b.Union(n.Geometry.Bounds().Transform(n.WorldMatrix()))
		}
	})
	return b
}

// NewPlaneGeometry builds a width x height quad in the XY plane facing +Z,
// centred on the origin.
func NewPlaneGeometry(width, height float32) *Geometry {
	hw, hh := width/2, height/2
	return &Geometry{
		Positions: [][3]float32{
			{-hw, hh, 0}, {hw, hh, 0},
			{-hw, -hh, 0}, {hw, -hh, 0},
		},
		Normals: [][3]float32{
			{0, 0, 1}, {0, 0, 1},
			{0, 0, 1}, {0, 0, 1},
		},
		UVs: [][2]float32{
			{0, 1}, {1, 1},
			{0, 0}, {1, 0},
		},
		Indices: []uint32{0, 2, 1, 2, 3, 1},
	}
}

// DisposeDrawables releases the geometry and every material of each drawable
// node under root. Shared resources are disposed once.
func DisposeDrawables(root *Node) {
	root.Traverse(func(n *Node) {
		if !n.IsDrawable() {
			return
		}
		if n.Geometry != nil {
			n.Geometry.Dispose()
		}
		for _, m := range n.Materials {
			if m != nil {
				m.Dispose()
			}
		}
	})
}
