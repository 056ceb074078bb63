package prediction

import (
	"time"

	"asteroids-server/internal/game"
	"asteroids-server/internal/protocol"
)

const (
	DefaultBufferSize    = 120
	DefaultMaxAge        = 2 * time.Second
	DefaultMaxInputDelta = 100 * time.Millisecond
)

type pendingInput struct {
	msg protocol.InputMsg
	at  int64   // local ms
	dt  float64 // step the server integrates this record with
}

// Predictor keeps a locally simulated copy of the own ship. Inputs are
// applied immediately, remembered until the server acknowledges them, and
// replayed on top of every authoritative snapshot.
//
// Predictor is not safe for concurrent use.
type Predictor struct {
	params  game.MovementParams
	clock   game.InputClock
	maxSize int
	maxAge  int64

	seq     uint64
	acked   uint64
	pending []pendingInput

	body  game.Body
	alive bool
}

// New creates a predictor. Steps between inputs follow the server's rule:
// step for the first record, then the timestamp gap clamped to maxDelta.
func New(params game.MovementParams, step float64, maxDelta time.Duration, bufferSize int, maxAge time.Duration) *Predictor {
	if maxDelta <= 0 {
		maxDelta = DefaultMaxInputDelta
	}
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Predictor{
		params:  params,
		clock:   game.InputClock{Step: step, MaxDelta: maxDelta.Seconds()},
		maxSize: bufferSize,
		maxAge:  maxAge.Milliseconds(),
		pending: make([]pendingInput, 0, bufferSize),
	}
}

// FromWelcome builds a predictor from the server's welcome message and
// seeds it with the player's initial state
func FromWelcome(w protocol.WelcomeMsg) *Predictor {
	step := 1.0 / 60
	if w.Physics.TickRate > 0 {
		step = 1 / float64(w.Physics.TickRate)
	}
	maxDelta := time.Duration(w.Physics.MaxInputDelta) * time.Millisecond
	p := New(game.MovementFromPhysics(w.Physics), step, maxDelta, DefaultBufferSize, DefaultMaxAge)
	if s, ok := w.GameState.FindPlayer(w.PlayerID); ok {
		p.Reset(s)
	}
	return p
}

// Reset replaces the predicted state with an authoritative one
func (p *Predictor) Reset(s protocol.PlayerState) {
	p.body = game.BodyFromState(s)
	p.alive = s.Alive
}

// ApplyLocal records a new input, predicts its effect and returns the
// message to send to the server
func (p *Predictor) ApplyLocal(in game.Input, now int64) protocol.InputMsg {
	p.seq++
	msg := protocol.InputMsg{Sequence: p.seq, Timestamp: now, Input: in.Wire()}

	p.evict(now)
	if len(p.pending) >= p.maxSize {
		copy(p.pending, p.pending[1:])
		p.pending = p.pending[:len(p.pending)-1]
	}
	dt := p.clock.Delta(now)
	p.pending = append(p.pending, pendingInput{msg: msg, at: now, dt: dt})

	if p.alive {
		p.body = game.Move(p.body, in, dt, p.params)
	}
	return msg
}

// Acknowledge records the server's highest processed sequence. Older or
// repeated acks are ignored.
func (p *Predictor) Acknowledge(seq uint64) {
	if seq > p.acked {
		p.acked = seq
	}
}

// Reconcile resets to the player's state in snap and replays every input
// the server has not acknowledged. It reports false when the player is not
// in the snapshot.
func (p *Predictor) Reconcile(snap *protocol.Snapshot, playerID string) bool {
	s, ok := snap.FindPlayer(playerID)
	if !ok {
		return false
	}
	p.Reset(s)

	kept := p.pending[:0]
	for _, pi := range p.pending {
		if pi.msg.Sequence > p.acked {
			kept = append(kept, pi)
		}
	}
	p.pending = kept

	if !p.alive {
		return true
	}
	for _, pi := range p.pending {
		p.body = game.Move(p.body, game.InputFromWire(pi.msg.Input), pi.dt, p.params)
	}
	return true
}

func (p *Predictor) evict(now int64) {
	i := 0
	for i < len(p.pending) && now-p.pending[i].at > p.maxAge {
		i++
	}
	if i > 0 {
		p.pending = append(p.pending[:0], p.pending[i:]...)
	}
}

// State returns the predicted body and aliveness
func (p *Predictor) State() (game.Body, bool) {
	return p.body, p.alive
}

// Sequence returns the last assigned input sequence
func (p *Predictor) Sequence() uint64 {
	return p.seq
}

// LastAcked returns the highest acknowledged sequence
func (p *Predictor) LastAcked() uint64 {
	return p.acked
}

// Pending returns the number of unacknowledged inputs still buffered
func (p *Predictor) Pending() int {
	n := 0
	for _, pi := range p.pending {
		if pi.msg.Sequence > p.acked {
			n++
		}
	}
	return n
}
