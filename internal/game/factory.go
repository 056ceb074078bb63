package game

import (
	"math"
	"math/rand/v2"
	"strconv"

	"asteroids-server/internal/vecmath"
)

// Factory creates entities for one world. It owns the id sequence and the
// random source so the world and the resolver draw from the same stream.
type Factory struct {
	tuning *Tuning
	rng    *rand.Rand
	seq    uint64
}

// NewFactory creates a factory over the given tuning and random source
func NewFactory(t *Tuning, rng *rand.Rand) *Factory {
	return &Factory{tuning: t, rng: rng}
}

func (f *Factory) nextID(prefix byte) string {
	f.seq++
	return string(prefix) + strconv.FormatUint(f.seq, 36)
}

func (f *Factory) between(min, max float64) float64 {
	return min + f.rng.Float64()*(max-min)
}

// NewAsteroid creates an asteroid of the given size at pos with a random
// heading, a speed from the size's range, and a random spin
func (f *Factory) NewAsteroid(size Size, pos vecmath.Vector2) *Asteroid {
	return f.newAsteroid(size, pos, f.rng.Float64()*2*math.Pi)
}

func (f *Factory) newAsteroid(size Size, pos vecmath.Vector2, heading float64) *Asteroid {
	spec := f.tuning.Size(size)
	speed := f.between(spec.MinSpeed, spec.MaxSpeed)
	return &Asteroid{
		ID: f.nextID('a'),
		Body: Body{
			Transform: Transform{Position: pos, Rotation: f.rng.Float64() * 2 * math.Pi},
			Velocity: Velocity{
				Linear:  vecmath.FromAngle(heading, speed),
				Angular: f.between(-f.tuning.AsteroidMaxSpin, f.tuning.AsteroidMaxSpin),
			},
		},
		Size:   size,
		Radius: spec.Radius,
	}
}

// SplitAsteroid returns the children of a destroyed asteroid. Children fan
// out at 2*pi*i/n plus jitter and start clear of the parent's outline.
// SMALL asteroids yield nothing.
func (f *Factory) SplitAsteroid(parent *Asteroid) []*Asteroid {
	childSize, ok := parent.Size.Smaller()
	if !ok {
		return nil
	}
	n := f.tuning.Size(parent.Size).SplitCount
	if n <= 0 {
		return nil
	}
	childRadius := f.tuning.Size(childSize).Radius
	offset := parent.Radius + childRadius + f.tuning.SplitMargin

	children := make([]*Asteroid, 0, n)
	for i := 0; i < n; i++ {
		angle := 2*math.Pi*float64(i)/float64(n) + f.between(-f.tuning.SplitJitter, f.tuning.SplitJitter)
		pos := vecmath.WrapPosition(
			parent.Position.Add(vecmath.FromAngle(angle, offset)),
			f.tuning.WorldWidth, f.tuning.WorldHeight,
		)
		children = append(children, f.newAsteroid(childSize, pos, angle))
	}
	return children
}

// Points returns the score for destroying an asteroid of size s
func (f *Factory) Points(s Size) int {
	return f.tuning.Size(s).Points
}

// NewBullet fires from the muzzle along the owner's heading. Bullets do not
// inherit the ship's velocity.
func (f *Factory) NewBullet(owner *Player, now int64) *Bullet {
	dir := vecmath.FromAngle(owner.Rotation, 1)
	return &Bullet{
		ID:      f.nextID('b'),
		OwnerID: owner.ID,
		Body: Body{
			Transform: Transform{
				Position: vecmath.WrapPosition(
					owner.Position.Add(dir.Scale(f.tuning.MuzzleOffset)),
					f.tuning.WorldWidth, f.tuning.WorldHeight,
				),
				Rotation: owner.Rotation,
			},
			Velocity: Velocity{Linear: dir.Scale(f.tuning.BulletSpeed)},
		},
		CreatedAt: now,
		Lifetime:  f.tuning.BulletLifetimeMs,
	}
}

// NewParticle creates a particle of type t with the given velocity
func (f *Factory) NewParticle(t ParticleType, pos, vel vecmath.Vector2) *Particle {
	life := f.tuning.ParticleLifetimeMs[t]
	return &Particle{
		ID: f.nextID('x'),
		Body: Body{
			Transform: Transform{Position: pos},
			Velocity:  Velocity{Linear: vel},
		},
		Lifetime:    life,
		MaxLifetime: life,
		Type:        t,
	}
}

// Burst creates count particles of type t scattered around pos
func (f *Factory) Burst(t ParticleType, pos vecmath.Vector2, count int) []*Particle {
	out := make([]*Particle, 0, count)
	for i := 0; i < count; i++ {
		vel := vecmath.FromAngle(f.rng.Float64()*2*math.Pi, f.between(0.3, 1)*f.tuning.ParticleSpeed)
		out = append(out, f.NewParticle(t, pos, vel))
	}
	return out
}

// Thrust creates one exhaust particle behind the ship
func (f *Factory) Thrust(p *Player) *Particle {
	back := vecmath.FromAngle(p.Rotation+math.Pi, 1)
	pos := p.Position.Add(back.Scale(f.tuning.PlayerRadius))
	spread := f.between(-0.3, 0.3)
	vel := p.Linear.Add(back.Rotate(spread).Scale(f.tuning.ParticleSpeed * 0.5))
	return f.NewParticle(ParticleThrust, pos, vel)
}

