package game

import (
	"asteroids-server/internal/protocol"
	"asteroids-server/internal/vecmath"
)

// Size is an asteroid size class
type Size int

const (
	SizeLarge Size = iota
	SizeMedium
	SizeSmall
	sizeCount
)

func (s Size) String() string {
	switch s {
	case SizeLarge:
		return "LARGE"
	case SizeMedium:
		return "MEDIUM"
	case SizeSmall:
		return "SMALL"
	}
	return "UNKNOWN"
}

// Smaller returns the size children of s split into
func (s Size) Smaller() (Size, bool) {
	if s >= SizeSmall {
		return s, false
	}
	return s + 1, true
}

// ParticleType is the cosmetic class of a particle
type ParticleType int

const (
	ParticleThrust ParticleType = iota
	ParticleExplosion
	ParticleBulletHit
	particleTypeCount
)

func (t ParticleType) String() string {
	switch t {
	case ParticleThrust:
		return "THRUST"
	case ParticleExplosion:
		return "EXPLOSION"
	case ParticleBulletHit:
		return "BULLET_HIT"
	}
	return "UNKNOWN"
}

type Transform struct {
	Position vecmath.Vector2
	Rotation float64
}

type Velocity struct {
	Linear  vecmath.Vector2
	Angular float64
}

// Body is the kinematic state shared by every entity
type Body struct {
	Transform
	Velocity
}

// Asteroid drifts and spins across the torus
type Asteroid struct {
	ID string
	Body
	Size   Size
	Radius float64
}

// Update advances the asteroid one step
func (a *Asteroid) Update(dt, w, h float64) {
	a.Rotation = vecmath.NormalizeAngle(a.Rotation + a.Angular*dt)
	a.Position = vecmath.WrapPosition(a.Position.Add(a.Linear.Scale(dt)), w, h)
}

func (a *Asteroid) ToState() protocol.AsteroidState {
	return protocol.AsteroidState{
		ID:              a.ID,
		Position:        a.Position,
		Rotation:        a.Rotation,
		Velocity:        a.Linear,
		AngularVelocity: a.Angular,
		Size:            a.Size.String(),
		Radius:          a.Radius,
	}
}

// Bullet flies straight until it expires or hits something
type Bullet struct {
	ID      string
	OwnerID string
	Body
	CreatedAt int64
	Lifetime  float64 // ms remaining
}

// Update moves the bullet and reports whether it is still alive
func (b *Bullet) Update(dt, w, h float64) bool {
	b.Position = vecmath.WrapPosition(b.Position.Add(b.Linear.Scale(dt)), w, h)
	b.Lifetime -= dt * 1000
	return b.Lifetime > 0
}

func (b *Bullet) ToState() protocol.BulletState {
	return protocol.BulletState{
		ID:       b.ID,
		OwnerID:  b.OwnerID,
		Position: b.Position,
		Rotation: b.Rotation,
		Velocity: b.Linear,
		Lifetime: b.Lifetime,
	}
}

// Particle is cosmetic only
type Particle struct {
	ID string
	Body
	Lifetime    float64 // ms remaining
	MaxLifetime float64
	Type        ParticleType
}

// Update moves the particle and reports whether it is still alive.
// Explosion debris is damped every step.
func (p *Particle) Update(dt, w, h, damping float64) bool {
	p.Position = vecmath.WrapPosition(p.Position.Add(p.Linear.Scale(dt)), w, h)
	if p.Type == ParticleExplosion {
		p.Linear = p.Linear.Scale(damping)
	}
	p.Lifetime -= dt * 1000
	return p.Lifetime > 0
}

func (p *Particle) ToState() protocol.ParticleState {
	return protocol.ParticleState{
		ID:          p.ID,
		Position:    p.Position,
		Velocity:    p.Linear,
		Lifetime:    p.Lifetime,
		MaxLifetime: p.MaxLifetime,
		Type:        p.Type.String(),
	}
}
