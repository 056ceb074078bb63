package game

import (
	"asteroids-server/internal/protocol"
	"asteroids-server/internal/vecmath"
)

// Effect is a particle burst to spawn
type Effect struct {
	Type     ParticleType
	Position vecmath.Vector2
}

// ScoreAward credits points to a player
type ScoreAward struct {
	PlayerID string
	Points   int
}

// Resolution describes everything a set of collisions changes. The resolver
// applies damage to the players it is given but never touches the entity
// collections; the world applies the rest.
type Resolution struct {
	RemovedBullets   []string
	RemovedAsteroids []string
	SpawnedAsteroids []*Asteroid
	Scores           []ScoreAward
	Effects          []Effect
	Destroyed        []string // players killed by this pass
	Respawns         []string // destroyed players with lives left
	Events           []protocol.Event
}

// Resolver turns collision events into a Resolution
type Resolver struct {
	tuning  *Tuning
	factory *Factory
}

// NewResolver creates a resolver splitting asteroids through factory
func NewResolver(t *Tuning, f *Factory) *Resolver {
	return &Resolver{tuning: t, factory: f}
}

// Resolve processes the three event lists in order. An asteroid or bullet
// consumed by an earlier event is skipped by later ones.
func (r *Resolver) Resolve(c Collisions, players map[string]*Player, asteroids map[string]*Asteroid, bullets map[string]*Bullet, now int64) *Resolution {
	res := &Resolution{}
	goneAsteroids := make(map[string]bool)
	goneBullets := make(map[string]bool)

	for _, hit := range c.PlayerAsteroid {
		p, ok := players[hit.PlayerID]
		if !ok || goneAsteroids[hit.AsteroidID] {
			continue
		}
		r.damage(res, p, r.tuning.AsteroidDamage, now)
	}

	for _, hit := range c.BulletAsteroid {
		if goneBullets[hit.BulletID] || goneAsteroids[hit.AsteroidID] {
			continue
		}
		b, ok := bullets[hit.BulletID]
		if !ok {
			continue
		}
		a, ok := asteroids[hit.AsteroidID]
		if !ok {
			continue
		}
		goneBullets[b.ID] = true
		goneAsteroids[a.ID] = true
		res.RemovedBullets = append(res.RemovedBullets, b.ID)
		res.RemovedAsteroids = append(res.RemovedAsteroids, a.ID)
		res.SpawnedAsteroids = append(res.SpawnedAsteroids, r.factory.SplitAsteroid(a)...)

		points := r.factory.Points(a.Size)
		res.Scores = append(res.Scores, ScoreAward{PlayerID: b.OwnerID, Points: points})
		res.Effects = append(res.Effects,
			Effect{Type: ParticleExplosion, Position: a.Position},
			Effect{Type: ParticleBulletHit, Position: b.Position},
		)
		res.Events = append(res.Events, protocol.Event{
			Type:     protocol.EvtAsteroidDestroyed,
			PlayerID: b.OwnerID,
			TargetID: a.ID,
			Size:     a.Size.String(),
			Points:   points,
			Position: a.Position,
		})
	}

	for _, hit := range c.PlayerBullet {
		if goneBullets[hit.BulletID] {
			continue
		}
		b, ok := bullets[hit.BulletID]
		if !ok {
			continue
		}
		p, ok := players[hit.PlayerID]
		if !ok || p.ID == b.OwnerID {
			continue
		}
		goneBullets[b.ID] = true
		res.RemovedBullets = append(res.RemovedBullets, b.ID)
		res.Effects = append(res.Effects, Effect{Type: ParticleBulletHit, Position: b.Position})
		r.damage(res, p, r.tuning.BulletDamage, now)
	}

	return res
}

func (r *Resolver) damage(res *Resolution, p *Player, dmg int, now int64) {
	applied, died := p.TakeDamage(dmg, now)
	if !applied {
		return
	}
	res.Events = append(res.Events, protocol.Event{
		Type:     protocol.EvtPlayerHit,
		PlayerID: p.ID,
		Damage:   dmg,
		Position: p.Position,
	})
	if !died {
		return
	}
	res.Destroyed = append(res.Destroyed, p.ID)
	if p.Lives > 0 {
		res.Respawns = append(res.Respawns, p.ID)
	}
	res.Effects = append(res.Effects, Effect{Type: ParticleExplosion, Position: p.Position})
	res.Events = append(res.Events, protocol.Event{
		Type:     protocol.EvtPlayerDestroyed,
		PlayerID: p.ID,
		Position: p.Position,
	})
}
