package game

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asteroids-server/internal/protocol"
	"asteroids-server/internal/vecmath"
)

type fixture struct {
	tuning    *Tuning
	factory   *Factory
	engine    *CollisionEngine
	resolver  *Resolver
	players   map[string]*Player
	asteroids map[string]*Asteroid
	bullets   map[string]*Bullet
}

func newFixture(mod func(*Tuning)) *fixture {
	t := DefaultTuning()
	if mod != nil {
		mod(&t)
	}
	f := NewFactory(&t, rand.New(rand.NewPCG(7, 7)))
	return &fixture{
		tuning:    &t,
		factory:   f,
		engine:    NewCollisionEngine(&t),
		resolver:  NewResolver(&t, f),
		players:   make(map[string]*Player),
		asteroids: make(map[string]*Asteroid),
		bullets:   make(map[string]*Bullet),
	}
}

func (fx *fixture) player(id string, pos vecmath.Vector2) *Player {
	p := NewPlayer(id, id, pos, fx.tuning)
	fx.players[id] = p
	return p
}

func (fx *fixture) asteroid(size Size, pos vecmath.Vector2) *Asteroid {
	a := fx.factory.NewAsteroid(size, pos)
	a.Linear = vecmath.Vector2{}
	fx.asteroids[a.ID] = a
	return a
}

func (fx *fixture) bullet(owner *Player, pos vecmath.Vector2) *Bullet {
	b := fx.factory.NewBullet(owner, 0)
	b.Position = pos
	fx.bullets[b.ID] = b
	return b
}

func (fx *fixture) detect() Collisions {
	return fx.engine.Detect(fx.players, fx.asteroids, fx.bullets)
}

func TestDetectPlayerAsteroid(t *testing.T) {
	fx := newFixture(nil)
	p := fx.player("p1", vecmath.V(100, 100))
	a1 := fx.asteroid(SizeLarge, vecmath.V(140, 100))
	a2 := fx.asteroid(SizeSmall, vecmath.V(100, 120))
	fx.asteroid(SizeLarge, vecmath.V(600, 600))

	hits := fx.detect()
	require.Len(t, hits.PlayerAsteroid, 2, "each touching asteroid yields its own event")
	ids := []string{hits.PlayerAsteroid[0].AsteroidID, hits.PlayerAsteroid[1].AsteroidID}
	assert.ElementsMatch(t, []string{a1.ID, a2.ID}, ids)
	for _, h := range hits.PlayerAsteroid {
		assert.Equal(t, p.ID, h.PlayerID)
	}
}

func TestDetectSkipsDeadPlayers(t *testing.T) {
	fx := newFixture(nil)
	p := fx.player("p1", vecmath.V(100, 100))
	p.Alive = false
	fx.asteroid(SizeLarge, vecmath.V(120, 100))

	hits := fx.detect()
	assert.True(t, hits.Empty())
}

func TestDetectBulletAsteroid(t *testing.T) {
	fx := newFixture(nil)
	p := fx.player("p1", vecmath.V(900, 900))
	a := fx.asteroid(SizeMedium, vecmath.V(300, 300))
	b := fx.bullet(p, vecmath.V(310, 300))

	hits := fx.detect()
	require.Len(t, hits.BulletAsteroid, 1)
	assert.Equal(t, b.ID, hits.BulletAsteroid[0].BulletID)
	assert.Equal(t, a.ID, hits.BulletAsteroid[0].AsteroidID)
}

func TestDetectExcludesOwnBullets(t *testing.T) {
	fx := newFixture(nil)
	shooter := fx.player("shooter", vecmath.V(200, 200))
	other := fx.player("other", vecmath.V(600, 600))
	fx.bullet(shooter, vecmath.V(205, 200))
	b := fx.bullet(shooter, vecmath.V(605, 600))

	hits := fx.detect()
	require.Len(t, hits.PlayerBullet, 1)
	assert.Equal(t, other.ID, hits.PlayerBullet[0].PlayerID)
	assert.Equal(t, b.ID, hits.PlayerBullet[0].BulletID)
}

func TestDetectFriendlyFireOff(t *testing.T) {
	fx := newFixture(func(t *Tuning) { t.FriendlyFire = false })
	shooter := fx.player("shooter", vecmath.V(200, 200))
	fx.player("other", vecmath.V(600, 600))
	fx.bullet(shooter, vecmath.V(605, 600))

	assert.Empty(t, fx.detect().PlayerBullet)
}

func TestResolveLargeAsteroidDestroyed(t *testing.T) {
	fx := newFixture(nil)
	p := fx.player("P", vecmath.V(800, 800))
	a := fx.asteroid(SizeLarge, vecmath.V(100, 100))
	b := fx.bullet(p, vecmath.V(100, 100))

	hits := Collisions{BulletAsteroid: []BulletAsteroidHit{{BulletID: b.ID, AsteroidID: a.ID}}}
	res := fx.resolver.Resolve(hits, fx.players, fx.asteroids, fx.bullets, 1000)

	assert.Equal(t, []string{a.ID}, res.RemovedAsteroids)
	assert.Equal(t, []string{b.ID}, res.RemovedBullets)
	require.Len(t, res.SpawnedAsteroids, 2)
	for _, c := range res.SpawnedAsteroids {
		assert.Equal(t, SizeMedium, c.Size)
	}
	assert.Equal(t, []ScoreAward{{PlayerID: "P", Points: 20}}, res.Scores)

	var explosions, sparks int
	for _, e := range res.Effects {
		switch e.Type {
		case ParticleExplosion:
			explosions++
		case ParticleBulletHit:
			sparks++
		}
	}
	assert.Equal(t, 1, explosions)
	assert.Equal(t, 1, sparks)

	// the resolver leaves the collections alone
	assert.Contains(t, fx.asteroids, a.ID)
	assert.Contains(t, fx.bullets, b.ID)
}

func TestResolveLethalAsteroidLastLife(t *testing.T) {
	fx := newFixture(nil)
	p := fx.player("p1", vecmath.V(100, 100))
	p.Lives = 1
	p.InvulnerableUntil = 0
	a := fx.asteroid(SizeLarge, vecmath.V(120, 100))

	hits := Collisions{PlayerAsteroid: []PlayerAsteroidHit{{PlayerID: p.ID, AsteroidID: a.ID}}}
	res := fx.resolver.Resolve(hits, fx.players, fx.asteroids, fx.bullets, 1000)

	assert.Equal(t, 0, p.Health)
	assert.False(t, p.Alive)
	assert.Equal(t, 0, p.Lives)
	assert.Equal(t, []string{p.ID}, res.Destroyed)
	assert.Empty(t, res.Respawns, "no lives left")
	assert.Equal(t, []Effect{{Type: ParticleExplosion, Position: p.Position}}, res.Effects)
	assert.Empty(t, res.RemovedAsteroids, "asteroid survives ramming")
}

func TestResolveMultipleAsteroidsDecrementLivesOnce(t *testing.T) {
	fx := newFixture(nil)
	p := fx.player("p1", vecmath.V(100, 100))
	a1 := fx.asteroid(SizeLarge, vecmath.V(120, 100))
	a2 := fx.asteroid(SizeLarge, vecmath.V(80, 100))

	hits := Collisions{PlayerAsteroid: []PlayerAsteroidHit{
		{PlayerID: p.ID, AsteroidID: a1.ID},
		{PlayerID: p.ID, AsteroidID: a2.ID},
	}}
	res := fx.resolver.Resolve(hits, fx.players, fx.asteroids, fx.bullets, 1000)

	assert.Equal(t, 2, p.Lives)
	assert.Equal(t, []string{p.ID}, res.Destroyed)
	assert.Equal(t, []string{p.ID}, res.Respawns)
}

func TestResolveInvulnerablePlayer(t *testing.T) {
	fx := newFixture(nil)
	p := fx.player("p1", vecmath.V(100, 100))
	p.InvulnerableUntil = 2000
	a := fx.asteroid(SizeLarge, vecmath.V(120, 100))

	hits := Collisions{PlayerAsteroid: []PlayerAsteroidHit{{PlayerID: p.ID, AsteroidID: a.ID}}}
	res := fx.resolver.Resolve(hits, fx.players, fx.asteroids, fx.bullets, 1500)

	assert.Equal(t, 100, p.Health)
	assert.True(t, p.Alive)
	assert.Empty(t, res.Destroyed)
	assert.Empty(t, res.Events)
}

func TestResolvePlayerBullet(t *testing.T) {
	fx := newFixture(nil)
	shooter := fx.player("s", vecmath.V(800, 800))
	victim := fx.player("v", vecmath.V(100, 100))
	b := fx.bullet(shooter, vecmath.V(105, 100))

	hits := Collisions{PlayerBullet: []PlayerBulletHit{{PlayerID: victim.ID, BulletID: b.ID}}}
	res := fx.resolver.Resolve(hits, fx.players, fx.asteroids, fx.bullets, 1000)

	assert.Equal(t, 75, victim.Health)
	assert.Equal(t, []string{b.ID}, res.RemovedBullets)
	assert.Equal(t, []Effect{{Type: ParticleBulletHit, Position: b.Position}}, res.Effects)
	require.Len(t, res.Events, 1)
	assert.Equal(t, protocol.EvtPlayerHit, res.Events[0].Type)
}

func TestResolvePlayerBulletShieldedStillSparks(t *testing.T) {
	fx := newFixture(nil)
	shooter := fx.player("s", vecmath.V(800, 800))
	victim := fx.player("v", vecmath.V(100, 100))
	victim.InvulnerableUntil = 5000
	b := fx.bullet(shooter, vecmath.V(105, 100))

	hits := Collisions{PlayerBullet: []PlayerBulletHit{{PlayerID: victim.ID, BulletID: b.ID}}}
	res := fx.resolver.Resolve(hits, fx.players, fx.asteroids, fx.bullets, 1000)

	assert.Equal(t, 100, victim.Health)
	assert.Equal(t, []string{b.ID}, res.RemovedBullets)
	assert.Len(t, res.Effects, 1)
}

func TestResolveConsumedEntitiesSkipped(t *testing.T) {
	fx := newFixture(nil)
	shooter := fx.player("s", vecmath.V(800, 800))
	victim := fx.player("v", vecmath.V(100, 100))
	a := fx.asteroid(SizeSmall, vecmath.V(300, 300))
	b1 := fx.bullet(shooter, vecmath.V(305, 300))
	b2 := fx.bullet(shooter, vecmath.V(295, 300))

	hits := Collisions{
		BulletAsteroid: []BulletAsteroidHit{
			{BulletID: b1.ID, AsteroidID: a.ID},
			{BulletID: b2.ID, AsteroidID: a.ID},
		},
		PlayerBullet: []PlayerBulletHit{{PlayerID: victim.ID, BulletID: b1.ID}},
	}
	res := fx.resolver.Resolve(hits, fx.players, fx.asteroids, fx.bullets, 1000)

	assert.Equal(t, []string{a.ID}, res.RemovedAsteroids)
	assert.Equal(t, []string{b1.ID}, res.RemovedBullets)
	assert.Equal(t, 100, victim.Health, "consumed bullet cannot also hit a player")
	assert.Equal(t, []ScoreAward{{PlayerID: "s", Points: 100}}, res.Scores)
	assert.Empty(t, res.SpawnedAsteroids)
}
