package game

import (
	"math"

	"asteroids-server/internal/protocol"
	"asteroids-server/internal/vecmath"
)

// Player is a ship controlled by one connected client
type Player struct {
	ID   string
	Name string
	Body

	Health            int
	MaxHealth         int
	Score             int
	Lives             int
	Alive             bool
	LastShotTime      int64 // ms, 0 = never fired
	InvulnerableUntil int64 // ms
}

// NewPlayer creates a live player at pos, facing up
func NewPlayer(id, name string, pos vecmath.Vector2, t *Tuning) *Player {
	return &Player{
		ID:   id,
		Name: name,
		Body: Body{
			Transform: Transform{Position: pos, Rotation: -math.Pi / 2},
		},
		Health:    t.MaxHealth,
		MaxHealth: t.MaxHealth,
		Lives:     t.Lives,
		Alive:     true,
	}
}

// Invulnerable reports whether the spawn shield is up at now
func (p *Player) Invulnerable(now int64) bool {
	return now < p.InvulnerableUntil
}

// TakeDamage applies dmg unless the player is dead or shielded. It reports
// whether damage landed and whether this hit was the lethal one. Lives drop
// once per death since a dead player ignores further hits.
func (p *Player) TakeDamage(dmg int, now int64) (applied, died bool) {
	if !p.Alive || p.Invulnerable(now) {
		return false, false
	}
	p.Health -= dmg
	if p.Health <= 0 {
		p.Health = 0
		p.Alive = false
		if p.Lives > 0 {
			p.Lives--
		}
		return true, true
	}
	return true, false
}

// Respawn resets the player in place with full health and a fresh shield
func (p *Player) Respawn(pos vecmath.Vector2, now, invulnerableMs int64) {
	p.Position = pos
	p.Rotation = -math.Pi / 2
	p.Linear = vecmath.Vector2{}
	p.Angular = 0
	p.Health = p.MaxHealth
	p.Alive = true
	p.InvulnerableUntil = now + invulnerableMs
}

// CanShoot applies the fire-rate gate
func (p *Player) CanShoot(now, fireRateMs int64) bool {
	if !p.Alive {
		return false
	}
	return p.LastShotTime == 0 || now-p.LastShotTime >= fireRateMs
}

// AddScore credits points; score never decreases
func (p *Player) AddScore(points int) {
	if points > 0 {
		p.Score += points
	}
}

// ToState converts to protocol state
func (p *Player) ToState() protocol.PlayerState {
	return protocol.PlayerState{
		ID:                p.ID,
		Name:              p.Name,
		Position:          p.Position,
		Rotation:          p.Rotation,
		Velocity:          p.Linear,
		AngularVelocity:   p.Angular,
		Health:            p.Health,
		Score:             p.Score,
		Lives:             p.Lives,
		Alive:             p.Alive,
		InvulnerableUntil: p.InvulnerableUntil,
	}
}

// BodyFromState rebuilds a kinematic body from a snapshot entry
func BodyFromState(s protocol.PlayerState) Body {
	return Body{
		Transform: Transform{Position: s.Position, Rotation: s.Rotation},
		Velocity:  Velocity{Linear: s.Velocity, Angular: s.AngularVelocity},
	}
}
