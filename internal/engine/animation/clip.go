// Package animation drives keyframed node animation: clips of per-node tracks
// played back by a mixer bound to a model root.
package animation

import (
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// Path names the node property a track animates.
type Path int

const (
	PathTranslation Path = iota
	PathRotation
	PathScale
)

func (p Path) String() string {
	switch p {
	case PathTranslation:
		return "translation"
	case PathRotation:
		return "rotation"
	case PathScale:
		return "scale"
	default:
		return "unknown"
	}
}

// Interpolation selects how values between keyframes are computed.
type Interpolation int

const (
	InterpolationLinear Interpolation = iota
	InterpolationStep
	InterpolationCubicSpline
)

// Track animates one property of one named node.
type Track struct {
	Node          string
	Path          Path
	Interpolation Interpolation

	// Times are keyframe times in seconds, ascending.
	Times []float32
	// Values holds Stride() components per keyframe; cubic spline tracks hold
	// in-tangent, value, out-tangent per keyframe.
	Values []float32
}

// Stride returns the number of components of one sampled value.
func (t *Track) Stride() int {
	if t.Path == PathRotation {
		return 4
	}
	return 3
}

// keyValue returns the value components of keyframe k.
func (t *Track) keyValue(k int) []float32 {
	n := t.Stride()
	if t.Interpolation == InterpolationCubicSpline {
		base := k*3*n + n
		return t.Values[base : base+n]
	}
	return t.Values[k*n : k*n+n]
}

func (t *Track) inTangent(k int) []float32 {
	n := t.Stride()
	return t.Values[k*3*n : k*3*n+n]
}

func (t *Track) outTangent(k int) []float32 {
	n := t.Stride()
	base := k*3*n + 2*n
	return t.Values[base : base+n]
}

// Valid reports whether Values has the length Times requires.
func (t *Track) Valid() bool {
	if len(t.Times) == 0 {
		return false
	}
	want := len(t.Times) * t.Stride()
	if t.Interpolation == InterpolationCubicSpline {
		want *= 3
	}
	return len(t.Values) == want
}

// Sample writes the track value at time tm into out, which must hold Stride()
// components. Times before the first keyframe or after the last clamp.
func (t *Track) Sample(tm float32, out []float32) {
	n := t.Stride()
	last := len(t.Times) - 1

	if last == 0 || tm <= t.Times[0] {
		copy(out[:n], t.keyValue(0))
		return
	}
	if tm >= t.Times[last] {
		copy(out[:n], t.keyValue(last))
		return
	}

	// first keyframe strictly after tm
	next := sort.Search(len(t.Times), func(i int) bool { return t.Times[i] > tm })
	prev := next - 1

	t0, t1 := t.Times[prev], t.Times[next]
	s := float32(0)
	if t1 > t0 {
		s = (tm - t0) / (t1 - t0)
	}

	switch t.Interpolation {
	case InterpolationStep:
		copy(out[:n], t.keyValue(prev))
	case InterpolationCubicSpline:
		dt := t1 - t0
		p0, m0 := t.keyValue(prev), t.outTangent(prev)
		p1, m1 := t.keyValue(next), t.inTangent(next)
		s2, s3 := s*s, s*s*s
		h00 := 2*s3 - 3*s2 + 1
		h10 := s3 - 2*s2 + s
		h01 := -2*s3 + 3*s2
		h11 := s3 - s2
		for i := 0; i < n; i++ {
			out[i] = h00*p0[i] + h10*dt*m0[i] + h01*p1[i] + h11*dt*m1[i]
		}
		if t.Path == PathRotation {
			q := quatFrom(out).Normalize()
			putQuat(out, q)
		}
	default:
		a, b := t.keyValue(prev), t.keyValue(next)
		if t.Path == PathRotation {
			putQuat(out, mgl32.QuatSlerp(quatFrom(a), quatFrom(b), s))
			return
		}
		for i := 0; i < n; i++ {
			out[i] = a[i] + s*(b[i]-a[i])
		}
	}
}

// quatFrom reads an x, y, z, w quaternion.
func quatFrom(v []float32) mgl32.Quat {
	return mgl32.Quat{W: v[3], V: mgl32.Vec3{v[0], v[1], v[2]}}
}

func putQuat(out []float32, q mgl32.Quat) {
	out[0], out[1], out[2], out[3] = q.V.X(), q.V.Y(), q.V.Z(), q.W
}

// Clip is a named set of tracks played together.
type Clip struct {
	Name     string
	Duration float32
	Tracks   []Track
}

// NewClip creates a clip whose duration is the last keyframe time of any track.
// Tracks with inconsistent value counts are dropped.
func NewClip(name string, tracks []Track) *Clip {
	c := &Clip{Name: name}
	for _, tr := range tracks {
		if !tr.Valid() {
			continue
		}
		c.Tracks = append(c.Tracks, tr)
		if end := tr.Times[len(tr.Times)-1]; end > c.Duration {
			c.Duration = end
		}
	}
	return c
}
