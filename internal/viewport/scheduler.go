package viewport

import "time"

// Scheduler coalesces redraw requests into at most one draw per frame. The
// host calls Frame from its refresh callback (a tea.Tick in the terminal
// client, a manual loop in tests) while Pending reports true.
type Scheduler struct {
	anim    *Animator
	apply   func(Transform)
	draw    func()
	pending bool
}

// NewScheduler wires an animator whose intermediate transforms are handed
// to apply before draw runs. anim and apply may be nil.
func NewScheduler(anim *Animator, apply func(Transform), draw func()) *Scheduler {
	return &Scheduler{anim: anim, apply: apply, draw: draw}
}

func (s *Scheduler) Request() { s.pending = true }

func (s *Scheduler) Pending() bool {
	return s.pending || (s.anim != nil && s.anim.Active())
}

// Frame advances any running animation and draws if anything changed.
// It reports whether a draw happened.
func (s *Scheduler) Frame(now time.Time) bool {
	if s.anim != nil && s.anim.Active() {
		t, _ := s.anim.Step(now)
		if s.apply != nil {
			s.apply(t)
		}
		s.pending = true
	}
	if !s.pending {
		return false
	}
	s.pending = false
	if s.draw != nil {
		s.draw()
	}
	return true
}
