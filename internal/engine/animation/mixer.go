package animation

import (
	gomath "math"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/showcase/internal/engine/scene"
	"github.com/Faultbox/showcase/internal/logger"
)

// LoopMode controls what happens when an action reaches the end of its clip.
type LoopMode int

const (
	// LoopRepeat wraps playback back to the start.
	LoopRepeat LoopMode = iota
	// LoopOnce stops at the end and holds the final pose.
	LoopOnce
)

// Action is the playback state of one clip on one mixer.
type Action struct {
	clip     *Clip
	bindings []*scene.Node // per track; nil when the target node is missing

	time      float64
	timeScale float64
	weight    float32
	loop      LoopMode
	running   bool
	loops     int
}

// Clip returns the clip this action plays.
func (a *Action) Clip() *Clip {
	return a.clip
}

// Play starts or resumes playback.
func (a *Action) Play() *Action {
	a.running = true
	return a
}

// Stop halts playback and rewinds to the start.
func (a *Action) Stop() *Action {
	a.running = false
	a.time = 0
	a.loops = 0
	return a
}

// IsRunning reports whether the action advances on Update.
func (a *Action) IsRunning() bool {
	return a.running
}

// Time returns the local playback time in seconds, within [0, duration].
func (a *Action) Time() float64 {
	return a.time
}

// Loops returns how many times a repeating action has wrapped.
func (a *Action) Loops() int {
	return a.loops
}

// SetLoop sets the loop mode.
func (a *Action) SetLoop(mode LoopMode) *Action {
	a.loop = mode
	return a
}

// SetTimeScale sets the playback speed multiplier.
func (a *Action) SetTimeScale(s float64) *Action {
	a.timeScale = s
	return a
}

// SetEffectiveWeight sets the blend weight of this action.
func (a *Action) SetEffectiveWeight(w float32) *Action {
	a.weight = w
	return a
}

// Weight returns the blend weight.
func (a *Action) Weight() float32 {
	return a.weight
}

func (a *Action) advance(dt float64) {
	d := float64(a.clip.Duration)
	a.time += dt * a.timeScale
	if d <= 0 {
		a.time = 0
		return
	}

	switch a.loop {
	case LoopOnce:
		if a.time >= d {
			a.time = d
			a.running = false
		} else if a.time < 0 {
			a.time = 0
			a.running = false
		}
	default:
		if a.time >= d || a.time < 0 {
			a.loops += int(gomath.Floor(a.time / d))
			a.time = gomath.Mod(a.time, d)
			if a.time < 0 {
				a.time += d
			}
		}
	}
}

// Mixer plays actions against the nodes below a root.
type Mixer struct {
	root    *scene.Node
	actions []*Action
	byClip  map[*Clip]*Action
	time    float64

	sample [4]float32
	poses  map[*scene.Node]*pose
}

type pose struct {
	pos    mgl32.Vec3
	posW   float32
	rot    mgl32.Quat
	rotW   float32
	scale  mgl32.Vec3
	scaleW float32
}

// NewMixer creates a mixer animating nodes under root.
func NewMixer(root *scene.Node) *Mixer {
	return &Mixer{
		root:   root,
		byClip: make(map[*Clip]*Action),
		poses:  make(map[*scene.Node]*pose),
	}
}

// Root returns the node the mixer is bound to.
func (m *Mixer) Root() *scene.Node {
	return m.root
}

// ClipAction returns the action for clip, creating it on first use. Each clip
// has exactly one action per mixer.
func (m *Mixer) ClipAction(clip *Clip) *Action {
	if a, ok := m.byClip[clip]; ok {
		return a
	}

	a := &Action{
		clip:      clip,
		bindings:  make([]*scene.Node, len(clip.Tracks)),
		timeScale: 1,
		weight:    1,
	}
	missing := 0
	for i, tr := range clip.Tracks {
		a.bindings[i] = m.root.FindByName(tr.Node)
		if a.bindings[i] == nil {
			missing++
		}
	}
	if missing > 0 {
		logger.Debug("animation tracks without target node",
			zap.String("clip", clip.Name),
			zap.Int("missing", missing),
			zap.Int("tracks", len(clip.Tracks)),
		)
	}

	m.byClip[clip] = a
	m.actions = append(m.actions, a)
	return a
}

// Actions returns every action created on this mixer.
func (m *Mixer) Actions() []*Action {
	return m.actions
}

// RunningActions returns the number of actions currently playing.
func (m *Mixer) RunningActions() int {
	n := 0
	for _, a := range m.actions {
		if a.running {
			n++
		}
	}
	return n
}

// StopAll stops every action.
func (m *Mixer) StopAll() {
	for _, a := range m.actions {
		a.Stop()
	}
}

// Time returns the total seconds the mixer has been advanced.
func (m *Mixer) Time() float64 {
	return m.time
}

// Update advances every running action by dt seconds and applies the blended
// pose to the bound nodes.
func (m *Mixer) Update(dt float64) {
	m.time += dt

	clear(m.poses)
	for _, a := range m.actions {
		if !a.running {
			continue
		}
		a.advance(dt)
		if a.weight <= 0 {
			continue
		}
		m.accumulate(a)
	}

	for n, p := range m.poses {
		if p.posW > 0 {
			n.Position = p.pos.Mul(1 / p.posW)
		}
		if p.rotW > 0 {
			n.Rotation = p.rot.Normalize()
		}
		if p.scaleW > 0 {
			n.Scale = p.scale.Mul(1 / p.scaleW)
		}
	}
}

func (m *Mixer) accumulate(a *Action) {
	t := float32(a.time)
	w := a.weight
	for i := range a.clip.Tracks {
		node := a.bindings[i]
		if node == nil {
			continue
		}
		tr := &a.clip.Tracks[i]
		tr.Sample(t, m.sample[:])

		p := m.poses[node]
		if p == nil {
			p = &pose{}
			m.poses[node] = p
		}

		switch tr.Path {
		case PathTranslation:
			p.pos = p.pos.Add(mgl32.Vec3{m.sample[0], m.sample[1], m.sample[2]}.Mul(w))
			p.posW += w
		case PathScale:
			p.scale = p.scale.Add(mgl32.Vec3{m.sample[0], m.sample[1], m.sample[2]}.Mul(w))
			p.scaleW += w
		case PathRotation:
			q := quatFrom(m.sample[:])
			if p.rotW == 0 {
				p.rot = q
			} else {
				p.rot = mgl32.QuatSlerp(p.rot, q, w/(p.rotW+w))
			}
			p.rotW += w
		}
	}
}
