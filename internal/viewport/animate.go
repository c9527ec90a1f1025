package viewport

import "time"

const DefaultDuration = 450 * time.Millisecond

// Animator interpolates between two transforms. Starting a new animation
// replaces the one in flight.
type Animator struct {
	from, to Transform
	start    time.Time
	dur      time.Duration
	active   bool
}

func (a *Animator) Start(from, to Transform, now time.Time, d time.Duration) {
	a.from, a.to = from, to
	a.start, a.dur = now, d
	a.active = true
}

// Step returns the transform at now. done is true once the target has been
// reached; the final transform is exactly the target.
func (a *Animator) Step(now time.Time) (t Transform, done bool) {
	if !a.active {
		return a.to, true
	}
	if a.dur <= 0 {
		a.active = false
		return a.to, true
	}
	p := float64(now.Sub(a.start)) / float64(a.dur)
	if p >= 1 {
		a.active = false
		return a.to, true
	}
	if p < 0 {
		p = 0
	}
	e := cubicInOut(p)
	return Transform{
		X: lerp(a.from.X, a.to.X, e),
		Y: lerp(a.from.Y, a.to.Y, e),
		K: lerp(a.from.K, a.to.K, e),
	}, false
}

func (a *Animator) Cancel()      { a.active = false }
func (a *Animator) Active() bool { return a.active }

// Target is the destination of the current or last animation.
func (a *Animator) Target() Transform { return a.to }

func cubicInOut(t float64) float64 {
	t *= 2
	if t <= 1 {
		return t * t * t / 2
	}
	t -= 2
	return (t*t*t + 2) / 2
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }
