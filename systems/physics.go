// Package systems contains the arena's per-tick systems: body integration,
// collision geometry and the entity registry.
package systems

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/pthm-cable/arena/components"
	"github.com/pthm-cable/arena/config"
)

// Physics holds integration parameters.
type Physics struct {
	Drag        float64 // Fraction of linear velocity lost per tick
	RotDrag     float64 // Fraction of angular velocity lost per tick
	ForceScale  float64
	RotateScale float64
	Bounds      orb.Bound // Positions are clamped into this box
}

// NewPhysics builds integration parameters from config.
func NewPhysics(cfg *config.Config) Physics {
	return Physics{
		Drag:        cfg.Physics.Drag,
		RotDrag:     cfg.Physics.RotDrag,
		ForceScale:  cfg.Physics.ForceScale,
		RotateScale: cfg.Physics.RotateScale,
		Bounds: orb.Bound{
			Min: orb.Point{cfg.Derived.MinPos, cfg.Derived.MinPos},
			Max: orb.Point{cfg.Derived.MaxPos, cfg.Derived.MaxPos},
		},
	}
}

// Integrate advances one body by one tick: drag, acceleration into
// velocity, velocity into position and heading, then wrap and clamp.
func (p Physics) Integrate(b *components.Body) {
	b.VelX -= p.Drag * b.VelX
	b.VelY -= p.Drag * b.VelY
	b.VelR -= p.RotDrag * b.VelR

	b.VelX += b.AccX
	b.VelY += b.AccY
	b.VelR += b.AccR

	b.X += b.VelX
	b.Y += b.VelY
	b.R = WrapAngle(b.R + b.VelR)

	p.Clamp(b)
}

// Clamp keeps a body inside the bordered arena.
func (p Physics) Clamp(b *components.Body) {
	b.X = clamp(b.X, p.Bounds.Min.X(), p.Bounds.Max.X())
	b.Y = clamp(b.Y, p.Bounds.Min.Y(), p.Bounds.Max.Y())
}

// Forward requests thrust along the heading. Force is clamped to ±limit.
// Screen y grows downward, so positive heading turns counterclockwise.
func (p Physics) Forward(b *components.Body, force, limit float64) {
	f := clamp(force, -limit, limit)
	b.AccX = f * math.Cos(b.R) / p.ForceScale
	b.AccY = -f * math.Sin(b.R) / p.ForceScale
}

// Rotate requests angular acceleration. Force is clamped to ±limit.
func (p Physics) Rotate(b *components.Body, force, limit float64) {
	f := clamp(force, -limit, limit)
	b.AccR = f / p.RotateScale
}

// WrapAngle maps any finite angle into [0, 2π).
func WrapAngle(r float64) float64 {
	r = math.Mod(r, 2*math.Pi)
	if r < 0 {
		r += 2 * math.Pi
	}
	if r >= 2*math.Pi {
		r = 0
	}
	return r
}

func point(b *components.Body) orb.Point {
	return orb.Point{b.X, b.Y}
}

// Intersects reports whether two bodies overlap: their center distance is
// at most the sum of their half-widths.
func Intersects(a, b *components.Body) bool {
	return planar.Distance(point(a), point(b)) <= (a.Width+b.Width)/2
}

// Repel pushes two overlapping bodies apart along the line between their
// centers. The lighter body moves further.
func Repel(a, b *components.Body) {
	dx, dy := a.X-b.X, a.Y-b.Y
	dist := math.Hypot(dx, dy)
	overlap := (a.Width+b.Width)/2 - dist
	if overlap <= 0 {
		return
	}
	if dist == 0 {
		// Coincident centers: separate along x.
		dx, dy, dist = 1, 0, 1
	}
	nx, ny := dx/dist, dy/dist

	total := a.Mass + b.Mass
	shareA, shareB := 0.5, 0.5
	if total > 0 {
		shareA, shareB = b.Mass/total, a.Mass/total
	}
	a.X += nx * overlap * shareA
	a.Y += ny * overlap * shareA
	b.X -= nx * overlap * shareB
	b.Y -= ny * overlap * shareB
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
