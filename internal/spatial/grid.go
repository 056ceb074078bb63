package spatial

import (
	"math"

	"asteroids-server/internal/vecmath"
)

// Kind tags which entity collection a Ref points into
type Kind byte

const (
	KindPlayer   Kind = 'p'
	KindAsteroid Kind = 'a'
	KindBullet   Kind = 'b'
)

// Ref identifies an entity in the grid
type Ref struct {
	Kind Kind
	ID   string
}

type cellKey struct {
	cx, cy int
}

type entry struct {
	pos    vecmath.Vector2
	radius float64
	cells  []cellKey
}

// Grid is a uniform cell hash for broad-phase collision queries.
// It is not safe for concurrent use.
type Grid struct {
	cellSize float64
	cells    map[cellKey][]Ref
	entries  map[Ref]*entry
}

// NewGrid creates an empty grid with the given cell size
func NewGrid(cellSize float64) *Grid {
	if cellSize <= 0 {
		cellSize = 100
	}
	return &Grid{
		cellSize: cellSize,
		cells:    make(map[cellKey][]Ref),
		entries:  make(map[Ref]*entry),
	}
}

// CellSize returns the configured cell edge length
func (g *Grid) CellSize() float64 {
	return g.cellSize
}

// Len returns the number of indexed entities
func (g *Grid) Len() int {
	return len(g.entries)
}

// Clear resets all cells
func (g *Grid) Clear() {
	clear(g.cells)
	clear(g.entries)
}

// footprint appends every cell overlapped by the bounding square of the circle
func (g *Grid) footprint(pos vecmath.Vector2, radius float64, buf []cellKey) []cellKey {
	minCX := int(math.Floor((pos.X - radius) / g.cellSize))
	maxCX := int(math.Floor((pos.X + radius) / g.cellSize))
	minCY := int(math.Floor((pos.Y - radius) / g.cellSize))
	maxCY := int(math.Floor((pos.Y + radius) / g.cellSize))
	for cy := minCY; cy <= maxCY; cy++ {
		for cx := minCX; cx <= maxCX; cx++ {
			buf = append(buf, cellKey{cx, cy})
		}
	}
	return buf
}

// Insert adds ref to every cell overlapping its bounding box. Inserting a
// ref that is already present moves it.
func (g *Grid) Insert(ref Ref, pos vecmath.Vector2, radius float64) {
	if _, ok := g.entries[ref]; ok {
		g.Remove(ref)
	}
	e := &entry{pos: pos, radius: radius}
	e.cells = g.footprint(pos, radius, nil)
	for _, k := range e.cells {
		g.cells[k] = append(g.cells[k], ref)
	}
	g.entries[ref] = e
}

// Remove deletes ref from every bucket it was in, pruning empty buckets
func (g *Grid) Remove(ref Ref) {
	e, ok := g.entries[ref]
	if !ok {
		return
	}
	for _, k := range e.cells {
		bucket := g.cells[k]
		for i, r := range bucket {
			if r == ref {
				bucket = append(bucket[:i], bucket[i+1:]...)
				break
			}
		}
		if len(bucket) == 0 {
			delete(g.cells, k)
		} else {
			g.cells[k] = bucket
		}
	}
	delete(g.entries, ref)
}

// Query returns the deduplicated refs of every cell overlapping the given
// circle's bounding box. Results are candidates, not exact hits.
func (g *Grid) Query(pos vecmath.Vector2, radius float64) []Ref {
	var keys [16]cellKey
	var result []Ref
	seen := make(map[Ref]struct{})
	for _, k := range g.footprint(pos, radius, keys[:0]) {
		for _, r := range g.cells[k] {
			if _, dup := seen[r]; dup {
				continue
			}
			seen[r] = struct{}{}
			result = append(result, r)
		}
	}
	return result
}

// QueryKind is Query filtered to a single entity kind
func (g *Grid) QueryKind(pos vecmath.Vector2, radius float64, kind Kind) []Ref {
	all := g.Query(pos, radius)
	out := all[:0]
	for _, r := range all {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

// Position returns the indexed position and radius of ref
func (g *Grid) Position(ref Ref) (vecmath.Vector2, float64, bool) {
	e, ok := g.entries[ref]
	if !ok {
		return vecmath.Vector2{}, 0, false
	}
	return e.pos, e.radius, true
}
