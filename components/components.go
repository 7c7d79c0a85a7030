// Package components defines ECS components for the arena.
package components

// Kind is the closed set of entity variants living in the arena.
type Kind uint8

const (
	KindRobot  Kind = iota // Program-driven agent
	KindBullet             // Projectile fired by a robot
	KindCog                // Stationary resource node
	KindProbe              // Point probe for hit tests, never registered
	NumKinds
)

// Type codes reported to programs by _OTYPE.
const (
	TypeRobot  = 0x00
	TypeCog    = 0x04
	TypeBullet = 0x08
	TypeWall   = 0x12
)

func (k Kind) String() string {
	switch k {
	case KindRobot:
		return "robot"
	case KindBullet:
		return "bullet"
	case KindCog:
		return "cog"
	case KindProbe:
		return "probe"
	}
	return "unknown"
}

// TypeCode returns the byte a program sees for this kind.
func (k Kind) TypeCode() uint8 {
	switch k {
	case KindCog:
		return TypeCog
	case KindBullet:
		return TypeBullet
	}
	return TypeRobot
}

// Bullet holds projectile state.
type Bullet struct {
	Owner  int     // Registry id of the shooter; never hits it
	Damage float64 // Applied to the robot it hits
	TTL    int     // Ticks left before it expires
}

// Cog is a resource node a robot collects by touching it.
type Cog struct {
	Value int
}
