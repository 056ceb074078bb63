package room

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"asteroids-server/internal/protocol"
)

const (
	codeChars  = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength = 6
)

// Registry owns every live room, keyed by id and by join code. Rooms are
// created on demand and reclaimed when their last player leaves.
type Registry struct {
	mu       sync.RWMutex
	rooms    map[string]*Room  // id -> room
	codes    map[string]string // code -> id
	opts     Options
	maxRooms int
	log      zerolog.Logger
	closed   bool
	wg       sync.WaitGroup
}

// NewRegistry creates an empty registry. Every room it creates uses opts.
func NewRegistry(opts Options, maxRooms int) *Registry {
	if maxRooms <= 0 {
		maxRooms = 100
	}
	return &Registry{
		rooms:    make(map[string]*Room),
		codes:    make(map[string]string),
		opts:     opts,
		maxRooms: maxRooms,
		log:      opts.Log.With().Str("component", "registry").Logger(),
	}
}

// Create starts a new room with a fresh id and unused code
func (g *Registry) Create() (*Room, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil, ErrRoomClosed
	}
	if len(g.rooms) >= g.maxRooms {
		return nil, fmt.Errorf("create room: %w", ErrTooManyRooms)
	}

	code := generateCode(codeLength)
	for _, exists := g.codes[code]; exists; _, exists = g.codes[code] {
		code = generateCode(codeLength)
	}

	r := New(uuid.NewString(), code, g.opts)
	r.OnEmpty = g.reclaim
	g.rooms[r.ID] = r
	g.codes[code] = r.ID

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		r.Run()
	}()

	g.log.Info().Str("room", code).Str("id", r.ID).Int("rooms", len(g.rooms)).Msg("room created")
	return r, nil
}

// Get returns the room with the given id
func (g *Registry) Get(id string) (*Room, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.rooms[id]
	return r, ok
}

// ByCode returns the room with the given join code, case-insensitively
func (g *Registry) ByCode(code string) (*Room, bool) {
	code = NormalizeCode(code)
	g.mu.RLock()
	defer g.mu.RUnlock()
	id, ok := g.codes[code]
	if !ok {
		return nil, false
	}
	r, ok := g.rooms[id]
	return r, ok
}

// Join puts conn into the room with the given code, or into a new room when
// code is empty. A room created here whose first join fails is reclaimed.
func (g *Registry) Join(code string, conn Conn, name string) (*Room, JoinResult, error) {
	if _, err := protocol.ValidateName(name); err != nil {
		return nil, JoinResult{}, err
	}

	var (
		r       *Room
		created bool
	)
	if strings.TrimSpace(code) == "" {
		nr, err := g.Create()
		if err != nil {
			return nil, JoinResult{}, err
		}
		r, created = nr, true
	} else {
		var ok bool
		if r, ok = g.ByCode(code); !ok {
			return nil, JoinResult{}, fmt.Errorf("join %s: %w", NormalizeCode(code), ErrRoomNotFound)
		}
	}

	res, err := r.Join(conn, name)
	if err != nil {
		if created {
			r.reclaimIfEmpty()
		}
		return nil, JoinResult{}, err
	}
	return r, res, nil
}

// List describes every room, sorted by code
func (g *Registry) List() []protocol.RoomInfo {
	g.mu.RLock()
	out := make([]protocol.RoomInfo, 0, len(g.rooms))
	for _, r := range g.rooms {
		out = append(out, protocol.RoomInfo{
			ID:      r.ID,
			Code:    r.Code,
			Players: r.NumPlayers(),
			Max:     r.opts.MaxPlayers,
		})
	}
	g.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Len returns the number of live rooms
func (g *Registry) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms)
}

// Shutdown stops every room and waits for their goroutines. Players still
// connected get their scores recorded as the rooms exit. New rooms are
// refused afterwards.
func (g *Registry) Shutdown() {
	g.mu.Lock()
	g.closed = true
	for id, r := range g.rooms {
		r.Stop()
		delete(g.rooms, id)
		delete(g.codes, r.Code)
	}
	g.mu.Unlock()
	g.wg.Wait()
	g.log.Info().Msg("registry shut down")
}

// reclaim is the rooms' OnEmpty callback
func (g *Registry) reclaim(id string) {
	g.mu.Lock()
	r, ok := g.rooms[id]
	if ok {
		delete(g.rooms, id)
		delete(g.codes, r.Code)
	}
	n := len(g.rooms)
	g.mu.Unlock()

	if ok {
		r.Stop()
		g.log.Info().Str("room", r.Code).Int("rooms", n).Msg("room reclaimed")
	}
}

// NormalizeCode upper-cases and trims a user-supplied room code
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func generateCode(n int) string {
	b := make([]byte, n)
	max := big.NewInt(int64(len(codeChars)))
	for i := range b {
		idx, _ := rand.Int(rand.Reader, max)
		b[i] = codeChars[idx.Int64()]
	}
	return string(b)
}
