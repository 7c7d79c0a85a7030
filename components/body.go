package components

// Body holds the physical state shared by every entity kind.
// Acceleration fields are requests set by programs and read by the next
// integration step; they persist until overwritten.
type Body struct {
	X, Y, R          float64 // Position and heading (radians, [0, 2π))
	VelX, VelY, VelR float64
	AccX, AccY, AccR float64
	Mass             float64
	Width, Height    float64
	Health           float64
}

// NewBody returns a square body of the given size at rest.
func NewBody(x, y, size, health float64) Body {
	return Body{X: x, Y: y, Width: size, Height: size, Mass: 1, Health: health}
}

// Damage subtracts health. It may go negative; removal happens at end of tick.
func (b *Body) Damage(amount float64) {
	b.Health -= amount
}

// Heal adds health. Callers clamp to the max-health stat.
func (b *Body) Heal(amount float64) {
	b.Health += amount
}

// Alive reports whether the body still has health.
func (b *Body) Alive() bool {
	return b.Health > 0
}
