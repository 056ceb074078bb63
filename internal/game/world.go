package game

import (
	"math/rand/v2"

	"asteroids-server/internal/protocol"
	"asteroids-server/internal/vecmath"
)

// World owns every entity of one room. It is not safe for concurrent use;
// the owning room serializes all access.
type World struct {
	tuning   Tuning
	rng      *rand.Rand
	factory  *Factory
	engine   *CollisionEngine
	resolver *Resolver

	Players   map[string]*Player
	Asteroids map[string]*Asteroid
	Bullets   map[string]*Bullet
	Particles map[string]*Particle

	tick       uint64
	lastUpdate int64
	events     []protocol.Event
}

// NewWorld creates a world and seeds the initial asteroid field
func NewWorld(t Tuning, rng *rand.Rand) *World {
	w := &World{
		tuning:    t,
		rng:       rng,
		Players:   make(map[string]*Player),
		Asteroids: make(map[string]*Asteroid),
		Bullets:   make(map[string]*Bullet),
		Particles: make(map[string]*Particle),
	}
	w.factory = NewFactory(&w.tuning, rng)
	w.engine = NewCollisionEngine(&w.tuning)
	w.resolver = NewResolver(&w.tuning, w.factory)

	initial := min(t.InitialAsteroids, t.MaxAsteroids)
	for i := 0; i < initial; i++ {
		w.spawnAsteroid()
	}
	return w
}

// Tuning returns the constants this world runs with
func (w *World) Tuning() *Tuning {
	return &w.tuning
}

// Tick returns the number of completed updates
func (w *World) Tick() uint64 {
	return w.tick
}

// LastUpdate returns the timestamp of the last update in ms
func (w *World) LastUpdate() int64 {
	return w.lastUpdate
}

// AddPlayer places a new player at a safe spawn point, shielded for the
// invulnerability window
func (w *World) AddPlayer(id, name string, now int64) *Player {
	p := NewPlayer(id, name, w.FindSafeSpawn(w.tuning.SpawnClearance), &w.tuning)
	p.InvulnerableUntil = now + w.tuning.InvulnerabilityMs
	w.Players[id] = p
	return p
}

// RemovePlayer deletes the player; its bullets keep flying
func (w *World) RemovePlayer(id string) (*Player, bool) {
	p, ok := w.Players[id]
	if ok {
		delete(w.Players, id)
	}
	return p, ok
}

// ApplyInput moves the player by one input record and handles shooting
// and exhaust. Dead or unknown players are ignored.
func (w *World) ApplyInput(playerID string, in Input, dt float64, now int64) {
	p, ok := w.Players[playerID]
	if !ok || !p.Alive {
		return
	}
	p.Body = Move(p.Body, in, dt, w.tuning.Movement())

	if in.Thrust {
		w.addParticle(w.factory.Thrust(p))
	}
	if in.Shoot && p.CanShoot(now, w.tuning.FireRateMs) {
		b := w.factory.NewBullet(p, now)
		w.Bullets[b.ID] = b
		p.LastShotTime = now
	}
}

// Update advances the world by dt seconds: asteroids, bullets, particles,
// collisions, then population upkeep. The applied resolution is returned so
// the caller can schedule respawns.
func (w *World) Update(dt float64, now int64) *Resolution {
	w.tick++
	w.lastUpdate = now
	ww, wh := w.tuning.WorldWidth, w.tuning.WorldHeight

	for _, a := range w.Asteroids {
		a.Update(dt, ww, wh)
	}
	for id, b := range w.Bullets {
		if !b.Update(dt, ww, wh) {
			delete(w.Bullets, id)
		}
	}
	for id, p := range w.Particles {
		if !p.Update(dt, ww, wh, w.tuning.ExplosionDamping) {
			delete(w.Particles, id)
		}
	}

	hits := w.engine.Detect(w.Players, w.Asteroids, w.Bullets)
	res := w.resolver.Resolve(hits, w.Players, w.Asteroids, w.Bullets, now)
	w.apply(res)

	w.replenish()
	return res
}

func (w *World) apply(res *Resolution) {
	for _, id := range res.RemovedBullets {
		delete(w.Bullets, id)
	}
	for _, id := range res.RemovedAsteroids {
		delete(w.Asteroids, id)
	}
	for _, a := range res.SpawnedAsteroids {
		w.Asteroids[a.ID] = a
	}
	for _, s := range res.Scores {
		if p, ok := w.Players[s.PlayerID]; ok {
			p.AddScore(s.Points)
		}
	}
	for _, e := range res.Effects {
		n := w.tuning.HitParticles
		if e.Type == ParticleExplosion {
			n = w.tuning.ExplosionParticles
		}
		for _, p := range w.factory.Burst(e.Type, e.Position, n) {
			w.addParticle(p)
		}
	}
	w.events = append(w.events, res.Events...)
}

func (w *World) addParticle(p *Particle) {
	w.Particles[p.ID] = p
}

// replenish tops the field back up to the minimum with LARGE asteroids.
// It never removes asteroids and never spawns past the maximum.
func (w *World) replenish() {
	for len(w.Asteroids) < w.tuning.MinAsteroids && len(w.Asteroids) < w.tuning.MaxAsteroids {
		w.spawnAsteroid()
	}
}

func (w *World) spawnAsteroid() *Asteroid {
	a := w.factory.NewAsteroid(SizeLarge, w.FindSafeSpawn(w.tuning.SpawnClearance))
	w.Asteroids[a.ID] = a
	return a
}

// RespawnPlayer brings a dead player back at a safe point. It reports false
// if the player is gone, alive, or out of lives.
func (w *World) RespawnPlayer(id string, now int64) bool {
	p, ok := w.Players[id]
	if !ok || p.Alive || p.Lives <= 0 {
		return false
	}
	p.Respawn(w.FindSafeSpawn(w.tuning.SpawnClearance), now, w.tuning.InvulnerabilityMs)
	w.events = append(w.events, protocol.Event{
		Type:     protocol.EvtPlayerRespawned,
		PlayerID: id,
		Position: p.Position,
	})
	return true
}

// IsSafe reports whether pos clears every asteroid by minDistance plus its
// radius and every living player by minDistance
func (w *World) IsSafe(pos vecmath.Vector2, minDistance float64) bool {
	for _, a := range w.Asteroids {
		if vecmath.Distance(pos, a.Position) <= minDistance+a.Radius {
			return false
		}
	}
	for _, p := range w.Players {
		if p.Alive && vecmath.Distance(pos, p.Position) <= minDistance {
			return false
		}
	}
	return true
}

// FindSafeSpawn samples up to SpawnAttempts positions inside the border
// margin and returns the first safe one, or the world center.
func (w *World) FindSafeSpawn(minDistance float64) vecmath.Vector2 {
	m := w.tuning.BorderMargin
	for i := 0; i < w.tuning.SpawnAttempts; i++ {
		pos := vecmath.V(
			m+w.rng.Float64()*(w.tuning.WorldWidth-2*m),
			m+w.rng.Float64()*(w.tuning.WorldHeight-2*m),
		)
		if w.IsSafe(pos, minDistance) {
			return pos
		}
	}
	return vecmath.V(w.tuning.WorldWidth/2, w.tuning.WorldHeight/2)
}

// DrainEvents returns and clears the events gathered since the last call
func (w *World) DrainEvents() []protocol.Event {
	ev := w.events
	w.events = nil
	return ev
}

// Snapshot captures the full world state
func (w *World) Snapshot(now int64) *protocol.Snapshot {
	s := &protocol.Snapshot{
		Tick:      w.tick,
		Timestamp: now,
		Players:   make([]protocol.PlayerState, 0, len(w.Players)),
		Asteroids: make([]protocol.AsteroidState, 0, len(w.Asteroids)),
		Bullets:   make([]protocol.BulletState, 0, len(w.Bullets)),
		Particles: make([]protocol.ParticleState, 0, len(w.Particles)),
		Events:    []protocol.Event{},
	}
	for _, p := range w.Players {
		s.Players = append(s.Players, p.ToState())
	}
	for _, a := range w.Asteroids {
		s.Asteroids = append(s.Asteroids, a.ToState())
	}
	for _, b := range w.Bullets {
		s.Bullets = append(s.Bullets, b.ToState())
	}
	for _, p := range w.Particles {
		s.Particles = append(s.Particles, p.ToState())
	}
	return s
}
