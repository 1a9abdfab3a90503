// Package opengl renders scenes with OpenGL 4.1 core into an offscreen
// framebuffer that the hosting window composites over its background.
//
// Every call must happen on the thread that owns the GL context.
package opengl

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/showcase/internal/engine/camera"
	"github.com/Faultbox/showcase/internal/engine/render"
	"github.com/Faultbox/showcase/internal/engine/scene"
	"github.com/Faultbox/showcase/internal/engine/shadow"
	"github.com/Faultbox/showcase/internal/logger"
)

var defaultColor = mgl32.Vec4{0.8, 0.8, 0.8, 1}

// Target is an OpenGL render target.
type Target struct {
	fb        *framebuffer
	shadowMap *shadowMap

	lit       *program
	depth     *program
	composite *program
	quadVAO   uint32

	width, height int
	clear         [4]float32

	meshes map[*scene.Geometry]*gpuMesh
	joints []mgl32.Mat4

	surface  *surface
	disposed bool
	log      *zap.Logger
}

// NewTarget compiles the programs and creates the offscreen framebuffer.
func NewTarget() (*Target, error) {
	t := &Target{
		width:  1,
		height: 1,
		meshes: make(map[*scene.Geometry]*gpuMesh),
		log:    logger.Named("render"),
	}
	t.surface = &surface{target: t}

	var err error
	if t.lit, err = compileProgram("lit", litVertexShader, litFragmentShader); err != nil {
		t.Dispose()
		return nil, err
	}
	if t.depth, err = compileProgram("depth", depthVertexShader, depthFragmentShader); err != nil {
		t.Dispose()
		return nil, err
	}
	if t.composite, err = compileProgram("composite", compositeVertexShader, compositeFragmentShader); err != nil {
		t.Dispose()
		return nil, err
	}
	if t.fb, err = newFramebuffer(1, 1); err != nil {
		t.Dispose()
		return nil, fmt.Errorf("creating render target: %w", err)
	}

	// core profile draws need a bound VAO even without attributes
	gl.GenVertexArrays(1, &t.quadVAO)

	t.log.Debug("render target created")
	return t, nil
}

// Factory returns a render.Factory creating GL targets.
func Factory() render.Factory {
	return func() (render.Target, error) {
		return NewTarget()
	}
}

func (t *Target) SetSize(width, height int) {
	if t.disposed {
		return
	}
	t.width, t.height = max(width, 1), max(height, 1)
	t.fb.resize(int32(t.width), int32(t.height))
}

func (t *Target) Size() (int, int) {
	return t.width, t.height
}

func (t *Target) SetClearColor(rgba [4]float32) {
	t.clear = rgba
}

func (t *Target) Surface() render.Surface {
	return t.surface
}

// Render draws s from cam into the offscreen framebuffer, with a shadow pass
// first when the directional light casts shadows.
func (t *Target) Render(s *scene.Scene, cam *camera.Perspective) {
	if t.disposed {
		return
	}

	var ambient, lightColor mgl32.Vec3
	lightDir := mgl32.Vec3{0, 1, 0}
	amb, dir := s.Lights()
	if amb != nil {
		ambient = amb.Light.Color.Mul(amb.Light.Intensity)
	}
	if dir != nil {
		lightColor = dir.Light.Color.Mul(dir.Light.Intensity)
		lightDir = dir.Direction()
	}

	lightViewProj := mgl32.Ident4()
	shadows := false
	if dir != nil && dir.CastShadow {
		if bounds := shadow.CasterBounds(s); !bounds.IsEmpty() && t.ensureShadowMap(dir.Light.ShadowResolution) {
			lightViewProj = shadow.DirectionalLightMatrix(lightDir, bounds)
			t.depthPass(s, lightViewProj)
			shadows = true
		}
	}

	t.fb.bind(t.clear)
	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.Disable(gl.BLEND)

	p := t.lit
	p.use()
	p.setMat4("uViewProj", cam.ViewProjection())
	p.setMat4("uLightViewProj", lightViewProj)
	p.setVec3("uAmbient", ambient)
	p.setVec3("uLightColor", lightColor)
	p.setVec3("uLightDir", lightDir)
	p.setBool("uShadows", shadows)
	if t.shadowMap != nil {
		t.shadowMap.bindTexture(0)
	}
	p.setInt("uShadowMap", 0)

	s.Traverse(func(n *scene.Node) {
		if drawable(n) {
			t.draw(p, n, true)
		}
	})

	gl.Disable(gl.CULL_FACE)
	t.fb.unbind()
}

func drawable(n *scene.Node) bool {
	return n.IsDrawable() && n.Visible && n.Geometry != nil && !n.Geometry.Disposed() && n.Geometry.VertexCount() > 0
}

func (t *Target) ensureShadowMap(resolution int32) bool {
	if resolution <= 0 {
		resolution = shadow.DefaultResolution
	}
	if t.shadowMap != nil && t.shadowMap.resolution == resolution {
		return true
	}
	if t.shadowMap != nil {
		t.shadowMap.destroy()
		t.shadowMap = nil
	}
	sm, err := newShadowMap(resolution)
	if err != nil {
		t.log.Warn("shadows disabled", zap.Error(err))
		return false
	}
	t.shadowMap = sm
	return true
}

func (t *Target) depthPass(s *scene.Scene, lightViewProj mgl32.Mat4) {
	t.shadowMap.begin()
	p := t.depth
	p.use()
	p.setMat4("uLightViewProj", lightViewProj)
	s.Traverse(func(n *scene.Node) {
		if drawable(n) && n.CastShadow {
			t.draw(p, n, false)
		}
	})
	t.shadowMap.end()
}

func (t *Target) draw(p *program, n *scene.Node, lit bool) {
	m := t.mesh(n.Geometry)

	if n.Kind == scene.KindSkinnedMesh && n.Skin != nil && n.Geometry.IsSkinned() {
		t.joints = n.Skin.JointMatrices(t.joints[:0])
		joints := t.joints
		if len(joints) > maxJoints {
			joints = joints[:maxJoints]
		}
		p.setBool("uSkinned", true)
		p.setMat4s("uJoints", joints)
	} else {
		p.setBool("uSkinned", false)
		p.setMat4("uModel", n.WorldMatrix())
	}

	if lit {
		color := defaultColor
		doubleSided := false
		if len(n.Materials) > 0 && n.Materials[0] != nil {
			color = n.Materials[0].Color
			doubleSided = n.Materials[0].DoubleSided
		}
		p.setVec4("uColor", color)
		p.setBool("uReceiveShadow", n.ReceiveShadow)
		if doubleSided {
			gl.Disable(gl.CULL_FACE)
		} else {
			gl.Enable(gl.CULL_FACE)
			gl.CullFace(gl.BACK)
		}
	}

	m.draw()
}

// mesh returns the GPU copy of g, uploading it on first use. The copy is
// deleted when g is disposed.
func (t *Target) mesh(g *scene.Geometry) *gpuMesh {
	if m, ok := t.meshes[g]; ok {
		return m
	}
	m := uploadMesh(g)
	t.meshes[g] = m
	g.OnDispose(func() {
		if m, ok := t.meshes[g]; ok {
			m.delete()
			delete(t.meshes, g)
		}
	})
	return m
}

// Dispose deletes every GPU object owned by the target.
func (t *Target) Dispose() {
	if t.disposed {
		return
	}
	t.disposed = true

	for g, m := range t.meshes {
		m.delete()
		delete(t.meshes, g)
	}
	if t.fb != nil {
		t.fb.destroy()
	}
	if t.shadowMap != nil {
		t.shadowMap.destroy()
	}
	t.lit.delete()
	t.depth.delete()
	t.composite.delete()
	if t.quadVAO != 0 {
		gl.DeleteVertexArrays(1, &t.quadVAO)
		t.quadVAO = 0
	}
	t.log.Debug("render target disposed")
}

// surface blends the target's colour attachment over whatever the current
// framebuffer holds.
type surface struct {
	target *Target
}

func (s *surface) Composite() {
	t := s.target
	if t.disposed {
		return
	}
	gl.Disable(gl.DEPTH_TEST)
	gl.Disable(gl.CULL_FACE)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)

	t.composite.use()
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, t.fb.colorTexture)
	t.composite.setInt("uTexture", 0)

	gl.BindVertexArray(t.quadVAO)
	gl.DrawArrays(gl.TRIANGLES, 0, 3)
	gl.BindVertexArray(0)

	gl.Disable(gl.BLEND)
}
