package game

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asteroids-server/internal/protocol"
	"asteroids-server/internal/vecmath"
)

func newTestWorld(mod func(*Tuning)) *World {
	t := DefaultTuning()
	if mod != nil {
		mod(&t)
	}
	return NewWorld(t, rand.New(rand.NewPCG(42, 42)))
}

func clearAsteroids(w *World) {
	for id := range w.Asteroids {
		delete(w.Asteroids, id)
	}
}

func TestNewWorldSeedsAsteroids(t *testing.T) {
	w := newTestWorld(nil)
	assert.Len(t, w.Asteroids, 6)
	for _, a := range w.Asteroids {
		assert.Equal(t, SizeLarge, a.Size)
	}
}

func TestWorldAddRemovePlayer(t *testing.T) {
	w := newTestWorld(nil)
	p := w.AddPlayer("p1", "Ace", 1000)
	assert.True(t, p.Alive)
	assert.Equal(t, int64(1000+w.Tuning().InvulnerabilityMs), p.InvulnerableUntil)
	assert.Len(t, w.Players, 1)

	_, ok := w.RemovePlayer("p1")
	assert.True(t, ok)
	assert.Empty(t, w.Players)

	_, ok = w.RemovePlayer("p1")
	assert.False(t, ok)
}

func TestWorldFireRateGate(t *testing.T) {
	w := newTestWorld(nil)
	w.AddPlayer("p1", "Ace", 1000)
	dt := w.Tuning().FixedStep()

	w.ApplyInput("p1", Input{Shoot: true}, dt, 1000)
	w.ApplyInput("p1", Input{Shoot: true}, dt, 1100)
	assert.Len(t, w.Bullets, 1, "second shot inside the fire interval is dropped")

	w.ApplyInput("p1", Input{Shoot: true}, dt, 1250)
	assert.Len(t, w.Bullets, 2)
}

func TestWorldApplyInputIgnoresDeadAndUnknown(t *testing.T) {
	w := newTestWorld(nil)
	p := w.AddPlayer("p1", "Ace", 0)
	p.Alive = false
	before := p.Body

	w.ApplyInput("p1", Input{Thrust: true, Shoot: true}, 0.1, 5000)
	w.ApplyInput("ghost", Input{Thrust: true}, 0.1, 5000)
	assert.Equal(t, before, p.Body)
	assert.Empty(t, w.Bullets)
}

func TestWorldThrustSpawnsParticle(t *testing.T) {
	w := newTestWorld(nil)
	w.AddPlayer("p1", "Ace", 0)
	w.ApplyInput("p1", Input{Thrust: true}, 0.016, 100)

	require.Len(t, w.Particles, 1)
	for _, p := range w.Particles {
		assert.Equal(t, ParticleThrust, p.Type)
	}
}

func TestWorldBulletsExpire(t *testing.T) {
	w := newTestWorld(func(t *Tuning) { t.InitialAsteroids = 0; t.MinAsteroids = 0 })
	w.AddPlayer("p1", "Ace", 0)
	w.ApplyInput("p1", Input{Shoot: true}, 0.016, 1000)
	require.Len(t, w.Bullets, 1)

	w.Update(1.0, 2000)
	assert.Len(t, w.Bullets, 1)
	w.Update(0.6, 2600)
	assert.Empty(t, w.Bullets)
}

func TestWorldAsteroidsMoveAndWrap(t *testing.T) {
	w := newTestWorld(func(t *Tuning) { t.InitialAsteroids = 0; t.MinAsteroids = 0 })
	a := w.factory.NewAsteroid(SizeLarge, vecmath.V(5, 5))
	a.Linear = vecmath.V(-100, 0)
	a.Angular = 1
	w.Asteroids[a.ID] = a

	w.Update(0.1, 100)
	assert.InDelta(t, w.Tuning().WorldWidth-5, a.Position.X, 1e-9)
	assert.InDelta(t, vecmath.NormalizeAngle(a.Rotation), a.Rotation, 1e-12)
	assert.Equal(t, uint64(1), w.Tick())
	assert.Equal(t, int64(100), w.LastUpdate())
}

func TestWorldBulletDestroysAsteroid(t *testing.T) {
	w := newTestWorld(func(t *Tuning) { t.InitialAsteroids = 0; t.MinAsteroids = 0 })
	p := w.AddPlayer("P", "Ace", 0)
	p.Position = vecmath.V(1000, 1000)

	a := w.factory.NewAsteroid(SizeLarge, vecmath.V(100, 100))
	a.Linear = vecmath.Vector2{}
	w.Asteroids[a.ID] = a
	b := w.factory.NewBullet(p, 0)
	b.Position = vecmath.V(105, 100)
	b.Linear = vecmath.Vector2{}
	w.Bullets[b.ID] = b

	res := w.Update(1.0/60, 10)
	assert.NotContains(t, w.Asteroids, a.ID)
	assert.NotContains(t, w.Bullets, b.ID)
	assert.Len(t, w.Asteroids, 2)
	for _, c := range w.Asteroids {
		assert.Equal(t, SizeMedium, c.Size)
	}
	assert.Equal(t, 20, p.Score)
	assert.Len(t, w.Particles, w.tuning.ExplosionParticles+w.tuning.HitParticles)
	assert.Len(t, res.Events, 1)

	events := w.DrainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, protocol.EvtAsteroidDestroyed, events[0].Type)
	assert.Empty(t, w.DrainEvents())
}

func TestWorldReplenishToMinimum(t *testing.T) {
	w := newTestWorld(nil)
	clearAsteroids(w)

	w.Update(1.0/60, 10)
	assert.Len(t, w.Asteroids, w.tuning.MinAsteroids)
}

func TestWorldNeverDeletesPastMaximum(t *testing.T) {
	w := newTestWorld(nil)
	clearAsteroids(w)
	for i := 0; i < 15; i++ {
		a := w.factory.NewAsteroid(SizeSmall, vecmath.V(float64(i)*100+50, 1100))
		w.Asteroids[a.ID] = a
	}
	w.Update(1.0/60, 10)
	assert.Len(t, w.Asteroids, 15)
}

func TestWorldLethalCollisionSchedulesRespawn(t *testing.T) {
	w := newTestWorld(func(t *Tuning) { t.InitialAsteroids = 0; t.MinAsteroids = 0 })
	p := w.AddPlayer("p1", "Ace", 0)
	p.InvulnerableUntil = 0
	p.Lives = 2
	a := w.factory.NewAsteroid(SizeLarge, p.Position.Add(vecmath.V(20, 0)))
	a.Linear = vecmath.Vector2{}
	w.Asteroids[a.ID] = a

	res := w.Update(1.0/60, 1000)
	assert.False(t, p.Alive)
	assert.Equal(t, 1, p.Lives)
	assert.Equal(t, []string{"p1"}, res.Respawns)
}

func TestWorldRespawnPlayer(t *testing.T) {
	w := newTestWorld(nil)
	p := w.AddPlayer("p1", "Ace", 0)
	p.Lives = 2
	p.InvulnerableUntil = 0
	p.TakeDamage(100, 1000)
	require.False(t, p.Alive)

	ok := w.RespawnPlayer("p1", 4000)
	require.True(t, ok)
	assert.True(t, p.Alive)
	assert.Equal(t, p.MaxHealth, p.Health)
	assert.Equal(t, vecmath.Vector2{}, p.Linear)
	assert.Equal(t, 4000+w.tuning.InvulnerabilityMs, p.InvulnerableUntil)

	for _, a := range w.Asteroids {
		assert.Greater(t, vecmath.Distance(p.Position, a.Position), w.tuning.SpawnClearance+a.Radius)
	}

	delete(w.Players, "p1")
	assert.False(t, w.RespawnPlayer("p1", 5000), "removed player cannot respawn")
}

func TestWorldRespawnRequiresLives(t *testing.T) {
	w := newTestWorld(nil)
	p := w.AddPlayer("p1", "Ace", 0)
	p.Alive = false
	p.Lives = 0
	assert.False(t, w.RespawnPlayer("p1", 4000))
	assert.False(t, p.Alive)
}

func TestFindSafeSpawn(t *testing.T) {
	w := newTestWorld(nil)
	for i := 0; i < 20; i++ {
		pos := w.FindSafeSpawn(w.tuning.SpawnClearance)
		assert.True(t, w.IsSafe(pos, w.tuning.SpawnClearance))
		assert.GreaterOrEqual(t, pos.X, w.tuning.BorderMargin)
		assert.LessOrEqual(t, pos.X, w.tuning.WorldWidth-w.tuning.BorderMargin)
	}
}

func TestFindSafeSpawnFallsBackToCenter(t *testing.T) {
	w := newTestWorld(nil)
	// a clearance larger than the world can never be met
	pos := w.FindSafeSpawn(10000)
	assert.Equal(t, vecmath.V(w.tuning.WorldWidth/2, w.tuning.WorldHeight/2), pos)
}

func TestWorldSnapshot(t *testing.T) {
	w := newTestWorld(nil)
	w.AddPlayer("p1", "Ace", 0)
	w.ApplyInput("p1", Input{Shoot: true, Thrust: true}, 0.016, 1000)
	w.Update(0.016, 1016)

	s := w.Snapshot(1016)
	assert.Equal(t, w.Tick(), s.Tick)
	assert.Equal(t, int64(1016), s.Timestamp)
	assert.Len(t, s.Players, 1)
	assert.Len(t, s.Asteroids, len(w.Asteroids))
	assert.Len(t, s.Bullets, len(w.Bullets))
	assert.Len(t, s.Particles, len(w.Particles))
}
