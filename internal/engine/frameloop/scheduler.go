// Package frameloop schedules per-frame callbacks on the render thread.
//
// Request returns a Handle the caller owns and can Cancel, so a component
// that re-requests itself every frame can stop cleanly at teardown. Post
// hands work from other goroutines (asset loads) back to the render thread.
package frameloop

import "sync"

// Handle identifies a pending frame request. The zero Handle is never issued.
type Handle uint64

// Scheduler runs requested callbacks once per frame.
type Scheduler struct {
	next     Handle
	pending  []request
	inFlight map[Handle]struct{} // current batch, not yet run

	mu     sync.Mutex
	posted []func()

	frames uint64
}

type request struct {
	id Handle
	fn func()
}

// New creates an idle scheduler.
func New() *Scheduler {
	return &Scheduler{inFlight: make(map[Handle]struct{})}
}

// Request schedules fn to run on the next frame.
func (s *Scheduler) Request(fn func()) Handle {
	s.next++
	s.pending = append(s.pending, request{id: s.next, fn: fn})
	return s.next
}

// Cancel drops a pending request, including one queued in the frame that is
// currently running. Unknown or already-run handles are ignored.
func (s *Scheduler) Cancel(h Handle) {
	delete(s.inFlight, h)
	for i, r := range s.pending {
		if r.id == h {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return
		}
	}
}

// Pending returns the number of frame requests waiting to run.
func (s *Scheduler) Pending() int {
	return len(s.pending)
}

// Post queues fn to run on the render thread at the start of the next frame.
// It is safe to call from any goroutine.
func (s *Scheduler) Post(fn func()) {
	s.mu.Lock()
	s.posted = append(s.posted, fn)
	s.mu.Unlock()
}

// RunFrame runs posted tasks, then every frame request made before this call.
// Requests made while the frame runs wait for the next frame. It returns the
// number of frame callbacks run.
func (s *Scheduler) RunFrame() int {
	s.mu.Lock()
	posted := s.posted
	s.posted = nil
	s.mu.Unlock()
	for _, fn := range posted {
		fn()
	}

	batch := s.pending
	s.pending = nil
	for _, r := range batch {
		s.inFlight[r.id] = struct{}{}
	}
	ran := 0
	for _, r := range batch {
		if _, ok := s.inFlight[r.id]; !ok {
			continue
		}
		delete(s.inFlight, r.id)
		r.fn()
		ran++
	}
	s.frames++
	return ran
}

// Frames returns the number of frames run.
func (s *Scheduler) Frames() uint64 {
	return s.frames
}
