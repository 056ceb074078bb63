package game

import (
	"asteroids-server/internal/spatial"
	"asteroids-server/internal/vecmath"
)

// PlayerAsteroidHit is a ship touching an asteroid
type PlayerAsteroidHit struct {
	PlayerID   string
	AsteroidID string
	Contact    vecmath.Contact
}

// BulletAsteroidHit is a bullet striking an asteroid
type BulletAsteroidHit struct {
	BulletID   string
	AsteroidID string
	Contact    vecmath.Contact
}

// PlayerBulletHit is a bullet striking a ship other than its owner's
type PlayerBulletHit struct {
	PlayerID string
	BulletID string
	Contact  vecmath.Contact
}

// Collisions holds the events of one detection pass, in pass order
type Collisions struct {
	PlayerAsteroid []PlayerAsteroidHit
	BulletAsteroid []BulletAsteroidHit
	PlayerBullet   []PlayerBulletHit
}

// Empty reports whether nothing collided
func (c *Collisions) Empty() bool {
	return len(c.PlayerAsteroid) == 0 && len(c.BulletAsteroid) == 0 && len(c.PlayerBullet) == 0
}

// CollisionEngine runs broad and narrow phase over one world's entities.
// The grid is rebuilt on every call; nothing carries across ticks.
type CollisionEngine struct {
	grid         *spatial.Grid
	playerRadius float64
	bulletRadius float64
	friendlyFire bool
}

// NewCollisionEngine creates an engine from the world tuning
func NewCollisionEngine(t *Tuning) *CollisionEngine {
	return &CollisionEngine{
		grid:         spatial.NewGrid(t.CellSize),
		playerRadius: t.PlayerRadius,
		bulletRadius: t.BulletRadius,
		friendlyFire: t.FriendlyFire,
	}
}

// rebuild repopulates the grid with living players, asteroids and bullets
func (e *CollisionEngine) rebuild(players map[string]*Player, asteroids map[string]*Asteroid, bullets map[string]*Bullet) {
	e.grid.Clear()
	for id, p := range players {
		if p.Alive {
			e.grid.Insert(spatial.Ref{Kind: spatial.KindPlayer, ID: id}, p.Position, e.playerRadius)
		}
	}
	for id, a := range asteroids {
		e.grid.Insert(spatial.Ref{Kind: spatial.KindAsteroid, ID: id}, a.Position, a.Radius)
	}
	for id, b := range bullets {
		e.grid.Insert(spatial.Ref{Kind: spatial.KindBullet, ID: id}, b.Position, e.bulletRadius)
	}
}

// Detect returns every collision among the given entities. A player may
// touch several asteroids in one pass; each produces its own event.
func (e *CollisionEngine) Detect(players map[string]*Player, asteroids map[string]*Asteroid, bullets map[string]*Bullet) Collisions {
	e.rebuild(players, asteroids, bullets)
	var out Collisions

	for id, p := range players {
		if !p.Alive {
			continue
		}
		for _, ref := range e.grid.QueryKind(p.Position, e.playerRadius, spatial.KindAsteroid) {
			a, ok := asteroids[ref.ID]
			if !ok {
				continue
			}
			if c := vecmath.CircleCircle(p.Position, e.playerRadius, a.Position, a.Radius); c.Collided {
				out.PlayerAsteroid = append(out.PlayerAsteroid, PlayerAsteroidHit{PlayerID: id, AsteroidID: ref.ID, Contact: c})
			}
		}
	}

	for id, b := range bullets {
		for _, ref := range e.grid.QueryKind(b.Position, e.bulletRadius, spatial.KindAsteroid) {
			a, ok := asteroids[ref.ID]
			if !ok {
				continue
			}
			if c := vecmath.CircleCircle(b.Position, e.bulletRadius, a.Position, a.Radius); c.Collided {
				out.BulletAsteroid = append(out.BulletAsteroid, BulletAsteroidHit{BulletID: id, AsteroidID: ref.ID, Contact: c})
			}
		}
	}

	if !e.friendlyFire {
		return out
	}
	for id, p := range players {
		if !p.Alive {
			continue
		}
		for _, ref := range e.grid.QueryKind(p.Position, e.playerRadius, spatial.KindBullet) {
			b, ok := bullets[ref.ID]
			if !ok || b.OwnerID == id {
				continue
			}
			if c := vecmath.CircleCircle(p.Position, e.playerRadius, b.Position, e.bulletRadius); c.Collided {
				out.PlayerBullet = append(out.PlayerBullet, PlayerBulletHit{PlayerID: id, BulletID: ref.ID, Contact: c})
			}
		}
	}
	return out
}
