package game

import (
	"math"

	"asteroids-server/internal/protocol"
)

// SizeSpec is the per-size asteroid table. Creation, splitting and scoring
// all read from it.
type SizeSpec struct {
	Radius     float64
	MinSpeed   float64
	MaxSpeed   float64
	Points     int
	SplitCount int
}

// Tuning is every physics and gameplay constant one world runs with
type Tuning struct {
	WorldWidth  float64
	WorldHeight float64
	TickRate    int

	PlayerRadius      float64
	MaxSpeed          float64
	Acceleration      float64
	RotationSpeed     float64 // rad/s
	BrakeDeceleration float64
	MaxHealth         int
	Lives             int
	FireRateMs        int64
	MuzzleOffset      float64

	BulletSpeed      float64
	BulletRadius     float64
	BulletLifetimeMs float64

	Sizes            [sizeCount]SizeSpec
	AsteroidMaxSpin  float64 // rad/s
	SplitMargin      float64
	SplitJitter      float64 // rad
	MinAsteroids     int
	MaxAsteroids     int
	InitialAsteroids int

	ParticleLifetimeMs [particleTypeCount]float64
	ParticleSpeed      float64
	ExplosionDamping   float64 // velocity multiplier per tick
	ExplosionParticles int
	HitParticles       int

	AsteroidDamage int
	BulletDamage   int
	FriendlyFire   bool

	CellSize float64

	InvulnerabilityMs int64
	RespawnDelayMs    int64
	SpawnAttempts     int
	SpawnClearance    float64
	BorderMargin      float64
}

// DefaultTuning returns the stock arena constants
func DefaultTuning() Tuning {
	return Tuning{
		WorldWidth:  1600,
		WorldHeight: 1200,
		TickRate:    60,

		PlayerRadius:      15,
		MaxSpeed:          300,
		Acceleration:      200,
		RotationSpeed:     math.Pi,
		BrakeDeceleration: 300,
		MaxHealth:         100,
		Lives:             3,
		FireRateMs:        250,
		MuzzleOffset:      20,

		BulletSpeed:      500,
		BulletRadius:     2,
		BulletLifetimeMs: 1500,

		Sizes: [sizeCount]SizeSpec{
			SizeLarge:  {Radius: 40, MinSpeed: 20, MaxSpeed: 50, Points: 20, SplitCount: 2},
			SizeMedium: {Radius: 20, MinSpeed: 40, MaxSpeed: 80, Points: 50, SplitCount: 2},
			SizeSmall:  {Radius: 10, MinSpeed: 60, MaxSpeed: 120, Points: 100, SplitCount: 0},
		},
		AsteroidMaxSpin:  1.0,
		SplitMargin:      5,
		SplitJitter:      0.3,
		MinAsteroids:     4,
		MaxAsteroids:     12,
		InitialAsteroids: 6,

		ParticleLifetimeMs: [particleTypeCount]float64{
			ParticleThrust:    300,
			ParticleExplosion: 800,
			ParticleBulletHit: 200,
		},
		ParticleSpeed:      120,
		ExplosionDamping:   0.95,
		ExplosionParticles: 12,
		HitParticles:       4,

		AsteroidDamage: 100,
		BulletDamage:   25,
		FriendlyFire:   true,

		CellSize: 100,

		InvulnerabilityMs: 3000,
		RespawnDelayMs:    3000,
		SpawnAttempts:     50,
		SpawnClearance:    150,
		BorderMargin:      50,
	}
}

// Size returns the table row for s
func (t *Tuning) Size(s Size) SizeSpec {
	return t.Sizes[s]
}

// Movement extracts the constants the shared movement function needs
func (t *Tuning) Movement() MovementParams {
	return MovementParams{
		RotationSpeed:     t.RotationSpeed,
		Acceleration:      t.Acceleration,
		BrakeDeceleration: t.BrakeDeceleration,
		MaxSpeed:          t.MaxSpeed,
		WorldWidth:        t.WorldWidth,
		WorldHeight:       t.WorldHeight,
	}
}

// FixedStep is the simulation timestep in seconds
func (t *Tuning) FixedStep() float64 {
	if t.TickRate <= 0 {
		return 1.0 / 60
	}
	return 1.0 / float64(t.TickRate)
}

// Physics is the wire form of the movement constants sent on welcome
func (t *Tuning) Physics() protocol.Physics {
	return protocol.Physics{
		WorldWidth:        t.WorldWidth,
		WorldHeight:       t.WorldHeight,
		RotationSpeed:     t.RotationSpeed,
		Acceleration:      t.Acceleration,
		BrakeDeceleration: t.BrakeDeceleration,
		MaxSpeed:          t.MaxSpeed,
		PlayerRadius:      t.PlayerRadius,
		TickRate:          t.TickRate,
		FireRate:          t.FireRateMs,
	}
}

// MovementFromPhysics rebuilds movement constants from a welcome payload
func MovementFromPhysics(p protocol.Physics) MovementParams {
	return MovementParams{
		RotationSpeed:     p.RotationSpeed,
		Acceleration:      p.Acceleration,
		BrakeDeceleration: p.BrakeDeceleration,
		MaxSpeed:          p.MaxSpeed,
		WorldWidth:        p.WorldWidth,
		WorldHeight:       p.WorldHeight,
	}
}
