package room

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"asteroids-server/internal/config"
	"asteroids-server/internal/game"
	"asteroids-server/internal/metrics"
	"asteroids-server/internal/protocol"
)

var (
	ErrRoomFull     = errors.New("room is full")
	ErrRoomNotFound = errors.New("room not found")
	ErrTooManyRooms = errors.New("too many rooms")
	ErrRoomClosed   = errors.New("room is closed")
)

// Options configures a room. Zero values fall back to DefaultOptions.
type Options struct {
	Tuning        game.Tuning
	TickRate      int
	SnapshotRate  int
	MaxPlayers    int
	InboxSize     int
	InputBuffer   int
	InputRetain   time.Duration
	MaxInputDelta time.Duration

	Log     zerolog.Logger
	Metrics *metrics.Metrics
	Scores  ScoreRecorder
	Rand    *rand.Rand
}

// DefaultOptions matches the default configuration
func DefaultOptions() Options {
	t := game.DefaultTuning()
	return Options{
		Tuning:        t,
		TickRate:      t.TickRate,
		SnapshotRate:  20,
		MaxPlayers:    8,
		InboxSize:     256,
		InputBuffer:   60,
		InputRetain:   time.Second,
		MaxInputDelta: 100 * time.Millisecond,
		Log:           zerolog.Nop(),
	}
}

// OptionsFromConfig builds room options from the loaded configuration
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Tuning:        cfg.Tuning(),
		TickRate:      cfg.Room.TickRate,
		SnapshotRate:  cfg.Room.SnapshotRate,
		MaxPlayers:    cfg.Room.MaxPlayers,
		InboxSize:     cfg.Room.InboxSize,
		InputBuffer:   cfg.Room.InputBuffer,
		InputRetain:   cfg.Room.InputRetain,
		MaxInputDelta: cfg.Room.MaxInputDelta,
		Log:           zerolog.Nop(),
	}
}

func (o *Options) normalize() {
	d := DefaultOptions()
	if o.TickRate <= 0 {
		o.TickRate = d.TickRate
	}
	if o.SnapshotRate <= 0 {
		o.SnapshotRate = d.SnapshotRate
	}
	if o.MaxPlayers <= 0 {
		o.MaxPlayers = d.MaxPlayers
	}
	if o.InboxSize <= 0 {
		o.InboxSize = d.InboxSize
	}
	if o.InputBuffer <= 0 {
		o.InputBuffer = d.InputBuffer
	}
	if o.InputRetain <= 0 {
		o.InputRetain = d.InputRetain
	}
	if o.MaxInputDelta <= 0 {
		o.MaxInputDelta = d.MaxInputDelta
	}
	if o.Tuning.TickRate <= 0 {
		o.Tuning = d.Tuning
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
}

type client struct {
	id      string
	name    string
	conn    Conn
	inputs  *InputBuffer
	clock   game.InputClock
	acked   uint64
	sentAck uint64
	respawn *time.Timer
}

// Room is one arena session. Everything it owns is touched only by the Run
// goroutine; other goroutines talk to it through Inbox.
type Room struct {
	Inbox chan any

	ID      string
	Code    string
	OnEmpty func(id string) // called from the room goroutine when the last player leaves

	opts    Options
	log     zerolog.Logger
	world   *game.World
	clients map[string]*client
	now     func() time.Time

	tickTicker *time.Ticker
	snapTicker *time.Ticker
	tickC      <-chan time.Time
	snapC      <-chan time.Time
	lastTick   time.Time

	players  atomic.Int32
	active   atomic.Bool
	quit     chan struct{}
	stopOnce sync.Once
}

// New creates an inactive room. Call Run to start its goroutine.
func New(id, code string, opts Options) *Room {
	opts.normalize()
	return &Room{
		Inbox:   make(chan any, opts.InboxSize),
		ID:      id,
		Code:    code,
		opts:    opts,
		log:     opts.Log.With().Str("room", code).Logger(),
		world:   game.NewWorld(opts.Tuning, opts.Rand),
		clients: make(map[string]*client),
		now:     time.Now,
		quit:    make(chan struct{}),
	}
}

// Stop terminates the room goroutine. Safe to call more than once.
func (r *Room) Stop() {
	r.stopOnce.Do(func() { close(r.quit) })
}

// Done is closed once the room is stopped
func (r *Room) Done() <-chan struct{} {
	return r.quit
}

// NumPlayers returns the current number of connected players
func (r *Room) NumPlayers() int {
	return int(r.players.Load())
}

// Active reports whether the tick and snapshot timers are running
func (r *Room) Active() bool {
	return r.active.Load()
}

func (r *Room) Run() {
	defer r.shutdown()
	for {
		// quit wins over queued commands so no join lands in a reclaimed room
		select {
		case <-r.quit:
			return
		default:
		}

		select {
		case <-r.quit:
			return
		case cmd := <-r.Inbox:
			r.safely("command", func() { r.handleCommand(cmd) })
		case <-r.tickC:
			r.safely("tick", r.tick)
		case <-r.snapC:
			r.safely("snapshot", r.broadcastSnapshot)
		}
	}
}

// safely contains a panic to this room so other rooms keep running
func (r *Room) safely(what string, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().
				Str("stage", what).
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Msg("recovered room panic")
		}
	}()
	fn()
}

func (r *Room) post(cmd any) bool {
	select {
	case r.Inbox <- cmd:
		return true
	case <-r.quit:
		return false
	}
}

// Join adds a player named name and blocks until the room answers
func (r *Room) Join(conn Conn, name string) (JoinResult, error) {
	name, err := protocol.ValidateName(name)
	if err != nil {
		return JoinResult{}, err
	}
	reply := make(chan joinReply, 1)
	if !r.post(join{conn: conn, name: name, reply: reply}) {
		return JoinResult{}, ErrRoomClosed
	}
	select {
	case rep := <-reply:
		return rep.res, rep.err
	case <-r.quit:
		return JoinResult{}, ErrRoomClosed
	}
}

// Input queues an input record without blocking. It reports false when the
// room is closed or its inbox is full.
func (r *Room) Input(playerID string, msg protocol.InputMsg) bool {
	select {
	case <-r.quit:
		return false
	default:
	}
	select {
	case r.Inbox <- input{playerID: playerID, msg: msg}:
		return true
	case <-r.quit:
		return false
	default:
		r.opts.Metrics.InputDropped(r.Code)
		return false
	}
}

// Leave removes a player
func (r *Room) Leave(playerID string) {
	r.post(leave{playerID: playerID})
}

// do runs fn on the room goroutine and waits for it
func (r *Room) do(fn func()) bool {
	done := make(chan struct{})
	if !r.post(exec{fn: fn, done: done}) {
		return false
	}
	select {
	case <-done:
		return true
	case <-r.quit:
		return false
	}
}

// reclaimIfEmpty fires OnEmpty when nobody is in the room
func (r *Room) reclaimIfEmpty() {
	r.do(func() {
		if len(r.clients) == 0 && r.OnEmpty != nil {
			r.OnEmpty(r.ID)
		}
	})
}

func (r *Room) handleCommand(cmd any) {
	switch c := cmd.(type) {
	case join:
		rep := joinReply{err: ErrRoomClosed}
		defer func() { c.reply <- rep }()
		rep.res, rep.err = r.handleJoin(c)
	case input:
		r.handleInput(c)
	case leave:
		r.handleLeave(c.playerID)
	case respawn:
		r.handleRespawn(c.playerID)
	case exec:
		defer close(c.done)
		c.fn()
	default:
		r.log.Warn().Str("type", fmt.Sprintf("%T", cmd)).Msg("unknown room command")
	}
}

func (r *Room) handleJoin(c join) (JoinResult, error) {
	if len(r.clients) >= r.opts.MaxPlayers {
		return JoinResult{}, fmt.Errorf("join %s: %w", r.Code, ErrRoomFull)
	}
	nowMs := r.now().UnixMilli()
	id := uuid.NewString()
	p := r.world.AddPlayer(id, c.name, nowMs)
	r.clients[id] = &client{
		id:     id,
		name:   c.name,
		conn:   c.conn,
		inputs: NewInputBuffer(r.opts.InputBuffer),
		clock: game.InputClock{
			Step:     r.world.Tuning().FixedStep(),
			MaxDelta: r.opts.MaxInputDelta.Seconds(),
		},
	}
	r.players.Store(int32(len(r.clients)))
	if len(r.clients) == 1 {
		r.activate()
	}

	physics := r.world.Tuning().Physics()
	physics.MaxInputDelta = r.opts.MaxInputDelta.Milliseconds()
	c.conn.SendJSON(protocol.Envelope{T: protocol.MsgWelcome, Data: protocol.WelcomeMsg{
		PlayerID:  id,
		RoomID:    r.ID,
		RoomCode:  r.Code,
		Physics:   physics,
		GameState: *r.world.Snapshot(nowMs),
	}})
	r.broadcastExcept(id, protocol.Envelope{T: protocol.MsgPlayerJoined, Data: protocol.PlayerJoinedMsg{
		Player: p.ToState(),
	}})

	r.opts.Metrics.Join(r.Code)
	r.log.Info().Str("player", id).Str("name", c.name).Int("players", len(r.clients)).Msg("player joined")
	return JoinResult{PlayerID: id, RoomID: r.ID, RoomCode: r.Code}, nil
}

func (r *Room) handleInput(c input) {
	cl, ok := r.clients[c.playerID]
	if !ok {
		return
	}
	accepted, evicted := cl.inputs.Push(c.msg, r.now().UnixMilli())
	if !accepted || evicted {
		r.opts.Metrics.InputDropped(r.Code)
	}
	if accepted {
		r.opts.Metrics.Input(r.Code)
	}
}

func (r *Room) handleLeave(playerID string) {
	cl, ok := r.clients[playerID]
	if !ok {
		return
	}
	r.retire(cl)
	r.broadcast(protocol.Envelope{T: protocol.MsgPlayerLeft, Data: protocol.PlayerLeftMsg{
		PlayerID:   playerID,
		PlayerName: cl.name,
	}})
	r.log.Info().Str("player", playerID).Int("players", len(r.clients)).Msg("player left")

	if len(r.clients) == 0 {
		r.deactivate()
		if r.OnEmpty != nil {
			r.OnEmpty(r.ID)
		}
	}
}

// retire removes a client and its ship and records the final score
func (r *Room) retire(cl *client) {
	if cl.respawn != nil {
		cl.respawn.Stop()
	}
	delete(r.clients, cl.id)
	r.players.Store(int32(len(r.clients)))

	if p, ok := r.world.RemovePlayer(cl.id); ok && r.opts.Scores != nil {
		r.opts.Scores.RecordScore(p.Name, r.Code, p.Score)
	}
	r.opts.Metrics.Leave(r.Code)
}

func (r *Room) handleRespawn(playerID string) {
	cl, ok := r.clients[playerID]
	if !ok {
		return
	}
	cl.respawn = nil
	if r.world.RespawnPlayer(playerID, r.now().UnixMilli()) {
		r.log.Debug().Str("player", playerID).Msg("player respawned")
	}
}

func (r *Room) scheduleRespawn(playerID string) {
	cl, ok := r.clients[playerID]
	if !ok {
		return
	}
	if cl.respawn != nil {
		cl.respawn.Stop()
	}
	delay := time.Duration(r.world.Tuning().RespawnDelayMs) * time.Millisecond
	cl.respawn = time.AfterFunc(delay, func() {
		r.post(respawn{playerID: playerID})
	})
}

func (r *Room) activate() {
	r.tickTicker = time.NewTicker(time.Second / time.Duration(r.opts.TickRate))
	r.snapTicker = time.NewTicker(time.Second / time.Duration(r.opts.SnapshotRate))
	r.tickC = r.tickTicker.C
	r.snapC = r.snapTicker.C
	r.lastTick = r.now()
	r.active.Store(true)
	r.log.Debug().Msg("room active")
}

func (r *Room) deactivate() {
	if r.tickTicker != nil {
		r.tickTicker.Stop()
		r.tickTicker = nil
	}
	if r.snapTicker != nil {
		r.snapTicker.Stop()
		r.snapTicker = nil
	}
	r.tickC = nil
	r.snapC = nil
	r.world.DrainEvents()
	if r.active.Swap(false) {
		r.log.Debug().Msg("room inactive")
	}
}

// shutdown runs when the loop exits. Players still connected are retired
// so their scores are recorded; OnEmpty is not called.
func (r *Room) shutdown() {
	r.deactivate()
	for _, cl := range r.clients {
		r.retire(cl)
	}
}

func (r *Room) tick() {
	now := r.now()
	nowMs := now.UnixMilli()
	retain := r.opts.InputRetain.Milliseconds()

	for _, cl := range r.clients {
		cl.inputs.Drain(func(msg protocol.InputMsg) {
			dt := cl.clock.Delta(msg.Timestamp)
			r.world.ApplyInput(cl.id, game.InputFromWire(msg.Input), dt, nowMs)
			cl.acked = max(cl.acked, msg.Sequence)
		})
		cl.inputs.Prune(nowMs, retain)
	}

	dt := max(0, min(now.Sub(r.lastTick).Seconds(), r.opts.MaxInputDelta.Seconds()))
	r.lastTick = now
	res := r.world.Update(dt, nowMs)
	for _, id := range res.Respawns {
		r.scheduleRespawn(id)
	}

	for _, cl := range r.clients {
		if cl.acked > cl.sentAck {
			cl.sentAck = cl.acked
			cl.conn.SendJSON(protocol.Envelope{T: protocol.MsgAck, Data: protocol.AckMsg{Sequence: cl.acked}})
		}
	}
	r.opts.Metrics.Tick(r.Code)
}

func (r *Room) broadcastSnapshot() {
	snap := r.world.Snapshot(r.now().UnixMilli())
	snap.Events = append(snap.Events, r.world.DrainEvents()...)
	b, err := protocol.EncodeSnapshot(snap)
	if err != nil {
		r.log.Error().Err(err).Msg("encode snapshot")
		return
	}
	for _, cl := range r.clients {
		cl.conn.SendBinary(b)
	}
	r.opts.Metrics.Snapshot(r.Code)
}

func (r *Room) broadcast(msg protocol.Envelope) {
	for _, cl := range r.clients {
		cl.conn.SendJSON(msg)
	}
}

func (r *Room) broadcastExcept(playerID string, msg protocol.Envelope) {
	for id, cl := range r.clients {
		if id != playerID {
			cl.conn.SendJSON(msg)
		}
	}
}
