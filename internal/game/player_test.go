package game

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"asteroids-server/internal/vecmath"
)

func newTestPlayer() *Player {
	t := DefaultTuning()
	return NewPlayer("p1", "Ace", vecmath.V(100, 100), &t)
}

func TestPlayerTakeDamage(t *testing.T) {
	p := newTestPlayer()
	applied, died := p.TakeDamage(25, 1000)
	assert.True(t, applied)
	assert.False(t, died)
	assert.Equal(t, 75, p.Health)
	assert.True(t, p.Alive)
}

func TestPlayerLethalDamageClampsAndDecrementsOnce(t *testing.T) {
	p := newTestPlayer()
	p.Health = 10

	applied, died := p.TakeDamage(100, 1000)
	assert.True(t, applied)
	assert.True(t, died)
	assert.Equal(t, 0, p.Health)
	assert.False(t, p.Alive)
	assert.Equal(t, 2, p.Lives)

	// second hit on a dead player is ignored
	applied, died = p.TakeDamage(100, 1000)
	assert.False(t, applied)
	assert.False(t, died)
	assert.Equal(t, 0, p.Health)
	assert.Equal(t, 2, p.Lives)
}

func TestPlayerInvulnerableTakesNoDamage(t *testing.T) {
	p := newTestPlayer()
	p.InvulnerableUntil = 5000

	applied, _ := p.TakeDamage(100, 4999)
	assert.False(t, applied)
	assert.Equal(t, 100, p.Health)

	applied, _ = p.TakeDamage(25, 5000)
	assert.True(t, applied)
}

func TestPlayerRespawn(t *testing.T) {
	p := newTestPlayer()
	p.TakeDamage(100, 1000)
	p.Linear = vecmath.V(50, 50)

	p.Respawn(vecmath.V(400, 300), 4000, 3000)
	assert.True(t, p.Alive)
	assert.Equal(t, p.MaxHealth, p.Health)
	assert.Equal(t, vecmath.Vector2{}, p.Linear)
	assert.Equal(t, vecmath.V(400, 300), p.Position)
	assert.Equal(t, int64(7000), p.InvulnerableUntil)
	assert.Equal(t, "p1", p.ID)
}

func TestPlayerFireRateGate(t *testing.T) {
	p := newTestPlayer()
	assert.True(t, p.CanShoot(1000, 250))
	p.LastShotTime = 1000
	assert.False(t, p.CanShoot(1249, 250))
	assert.True(t, p.CanShoot(1250, 250))

	p.Alive = false
	assert.False(t, p.CanShoot(5000, 250))
}

func TestPlayerScoreMonotonic(t *testing.T) {
	p := newTestPlayer()
	p.AddScore(20)
	p.AddScore(-5)
	assert.Equal(t, 20, p.Score)
}

func TestPlayerToState(t *testing.T) {
	p := newTestPlayer()
	s := p.ToState()
	assert.Equal(t, "p1", s.ID)
	assert.Equal(t, "Ace", s.Name)
	assert.Equal(t, 100, s.Health)
	assert.Equal(t, 3, s.Lives)
	assert.True(t, s.Alive)

	b := BodyFromState(s)
	assert.Equal(t, p.Body, b)
}
