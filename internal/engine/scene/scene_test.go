package scene

import (
	gomath "math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddReparents(t *testing.T) {
	a := NewGroup("a")
	b := NewGroup("b")
	child := NewBone("child")

	a.Add(child)
	require.Equal(t, a, child.Parent())

	b.Add(child)
	assert.Equal(t, b, child.Parent())
	assert.Empty(t, a.Children())
	assert.Len(t, b.Children(), 1)

	b.Add(b, nil)
	assert.Len(t, b.Children(), 1, "self and nil are ignored")
}

func TestTraverseOrderAndCount(t *testing.T) {
	s := New()
	root := NewGroup("model")
	arm := NewBone("arm")
	hand := NewBone("hand")
	arm.Add(hand)
	root.Add(arm, NewMesh("body", NewPlaneGeometry(1, 1)))
	s.Add(root, NewAmbientLight(0xffffff, 0.7))

	var names []string
	s.Traverse(func(n *Node) { names = append(names, n.Name) })

	assert.Equal(t, []string{"model", "arm", "hand", "body", "ambient_light"}, names)
	assert.Equal(t, 5, s.Count())
	assert.Equal(t, hand, s.Root().FindByName("hand"))
	assert.Nil(t, s.Root().FindByName("missing"))
}

func TestClearDetachesEverything(t *testing.T) {
	s := New()
	n := NewGroup("g")
	s.Add(n, NewGroup("h"))

	s.Clear()

	assert.Equal(t, 0, s.Count())
	assert.Nil(t, n.Parent())
}

func TestWorldMatrixComposesParents(t *testing.T) {
	parent := NewGroup("parent")
	parent.Position = mgl32.Vec3{0, -1, 0}
	parent.SetUniformScale(2)

	child := NewGroup("child")
	child.Position = mgl32.Vec3{1, 0, 0}
	parent.Add(child)

	p := mgl32.TransformCoordinate(mgl32.Vec3{}, child.WorldMatrix())
	assert.InDelta(t, 2, p.X(), 1e-6)
	assert.InDelta(t, -1, p.Y(), 1e-6)
	assert.InDelta(t, 0, p.Z(), 1e-6)
}

func TestPlaneRotatedIsHorizontal(t *testing.T) {
	plane := NewMesh("ground", NewPlaneGeometry(100, 100))
	plane.SetRotationEuler(gomath.Pi/2, 0, 0)
	plane.Position = mgl32.Vec3{0, -1.5, 0}

	b := plane.Geometry.Bounds().Transform(plane.WorldMatrix())
	assert.InDelta(t, -1.5, b.Min.Y(), 1e-4)
	assert.InDelta(t, -1.5, b.Max.Y(), 1e-4)
	assert.InDelta(t, -50, b.Min.X(), 1e-4)
	assert.InDelta(t, 50, b.Max.Z(), 1e-4)
}

func TestResourceDisposeOnce(t *testing.T) {
	g := NewPlaneGeometry(1, 1)
	calls := 0
	g.OnDispose(func() { calls++ })

	g.Dispose()
	g.Dispose()

	assert.True(t, g.Disposed())
	assert.Equal(t, 1, calls)

	late := 0
	g.OnDispose(func() { late++ })
	assert.Equal(t, 1, late, "releasers registered after dispose run immediately")
}

func TestDisposeDrawablesReleasesEveryMaterial(t *testing.T) {
	shared := NewMaterial("shared", 0xff0000)
	m1 := NewMesh("a", NewPlaneGeometry(1, 1), shared, NewMaterial("b", 0x00ff00))
	m2 := NewMesh("c", NewPlaneGeometry(1, 1), shared)
	light := NewDirectionalLight(0xffffff, 1)
	root := NewGroup("root")
	root.Add(m1, m2, light)

	DisposeDrawables(root)

	for _, n := range []*Node{m1, m2} {
		assert.True(t, n.Geometry.Disposed(), n.Name)
		for _, mat := range n.Materials {
			assert.True(t, mat.Disposed(), mat.Name)
		}
	}
}

func TestComputeNormalsFlatQuad(t *testing.T) {
	g := NewPlaneGeometry(2, 2)
	g.Normals = nil
	g.ComputeNormals()

	require.Len(t, g.Normals, 4)
	for _, n := range g.Normals {
		assert.InDelta(t, 1, n[2], 1e-6)
	}
}

func TestSkinJointMatrices(t *testing.T) {
	joint := NewBone("j")
	joint.Position = mgl32.Vec3{0, 2, 0}
	skin := &Skin{
		Joints:      []*Node{joint},
		InverseBind: []mgl32.Mat4{mgl32.Translate3D(0, -2, 0)},
	}

	m := skin.JointMatrices(nil)
	require.Len(t, m, 1)
	assert.True(t, m[0].ApproxEqualThreshold(mgl32.Ident4(), 1e-6), "bind pose yields identity")
}

func TestLightsAndDirection(t *testing.T) {
	s := New()
	dir := NewDirectionalLight(0xffffff, 1.5)
	dir.Position = mgl32.Vec3{0, 10, 0}
	s.Add(NewAmbientLight(0x808080, 0.7), dir)

	amb, d := s.Lights()
	require.NotNil(t, amb)
	require.NotNil(t, d)
	assert.InDelta(t, 128.0/255, amb.Light.Color.X(), 1e-6)
	assert.InDelta(t, 1, d.Direction().Y(), 1e-6)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "mesh", KindMesh.String())
	assert.Equal(t, "directional_light", KindDirectionalLight.String())
	assert.Equal(t, "unknown", Kind(99).String())
}
