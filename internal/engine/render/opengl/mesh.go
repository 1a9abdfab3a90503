package opengl

import (
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/showcase/internal/engine/scene"
)

// gpuMesh is the uploaded copy of a scene.Geometry.
type gpuMesh struct {
	vao     uint32
	buffers []uint32
	count   int32
	indexed bool
}

func uploadMesh(g *scene.Geometry) *gpuMesh {
	m := &gpuMesh{}
	gl.GenVertexArrays(1, &m.vao)
	gl.BindVertexArray(m.vao)

	m.floatAttrib(0, 3, flatten3(g.Positions))
	if len(g.Normals) == len(g.Positions) {
		m.floatAttrib(1, 3, flatten3(g.Normals))
	} else {
		gl.VertexAttrib3f(1, 0, 1, 0)
	}
	if g.IsSkinned() {
		joints := make([]uint16, 0, len(g.Joints)*4)
		for _, j := range g.Joints {
			joints = append(joints, j[0], j[1], j[2], j[3])
		}
		buf := m.newBuffer(gl.ARRAY_BUFFER, len(joints)*2, gl.Ptr(joints))
		gl.BindBuffer(gl.ARRAY_BUFFER, buf)
		gl.EnableVertexAttribArray(2)
		gl.VertexAttribIPointer(2, 4, gl.UNSIGNED_SHORT, 0, nil)

		weights := make([]float32, 0, len(g.Weights)*4)
		for _, w := range g.Weights {
			weights = append(weights, w[0], w[1], w[2], w[3])
		}
		m.floatAttrib(3, 4, weights)
	}

	if len(g.Indices) > 0 {
		m.newBuffer(gl.ELEMENT_ARRAY_BUFFER, len(g.Indices)*4, gl.Ptr(g.Indices))
		m.count = int32(len(g.Indices))
		m.indexed = true
	} else {
		m.count = int32(len(g.Positions))
	}

	gl.BindVertexArray(0)
	return m
}

func (m *gpuMesh) newBuffer(target uint32, size int, data unsafe.Pointer) uint32 {
	var buf uint32
	gl.GenBuffers(1, &buf)
	gl.BindBuffer(target, buf)
	gl.BufferData(target, size, data, gl.STATIC_DRAW)
	m.buffers = append(m.buffers, buf)
	return buf
}

func (m *gpuMesh) floatAttrib(index uint32, size int32, data []float32) {
	if len(data) == 0 {
		return
	}
	buf := m.newBuffer(gl.ARRAY_BUFFER, len(data)*4, gl.Ptr(data))
	gl.BindBuffer(gl.ARRAY_BUFFER, buf)
	gl.EnableVertexAttribArray(index)
	gl.VertexAttribPointerWithOffset(index, size, gl.FLOAT, false, 0, 0)
}

func (m *gpuMesh) draw() {
	gl.BindVertexArray(m.vao)
	if m.indexed {
		gl.DrawElementsWithOffset(gl.TRIANGLES, m.count, gl.UNSIGNED_INT, 0)
	} else {
		gl.DrawArrays(gl.TRIANGLES, 0, m.count)
	}
}

func (m *gpuMesh) delete() {
	if len(m.buffers) > 0 {
		gl.DeleteBuffers(int32(len(m.buffers)), &m.buffers[0])
		m.buffers = nil
	}
	if m.vao != 0 {
		gl.DeleteVertexArrays(1, &m.vao)
		m.vao = 0
	}
}

func flatten3(v [][3]float32) []float32 {
	out := make([]float32, 0, len(v)*3)
	for _, e := range v {
		out = append(out, e[0], e[1], e[2])
	}
	return out
}
