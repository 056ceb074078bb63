package protocol

import (
	"encoding/json"

	"asteroids-server/internal/vecmath"
)

// Client -> Server message types
const (
	MsgJoin  = "join"
	MsgInput = "input"
	MsgPing  = "ping"
	MsgLeave = "leave"
)

// Server -> Client message types
const (
	MsgWelcome      = "welcome"
	MsgSnapshot     = "snapshot"
	MsgAck          = "ack"
	MsgPong         = "pong"
	MsgPlayerJoined = "playerJoined"
	MsgPlayerLeft   = "playerLeft"
	MsgError        = "error"
)

// Snapshot event types
const (
	EvtAsteroidDestroyed = "asteroidDestroyed"
	EvtPlayerHit         = "playerHit"
	EvtPlayerDestroyed   = "playerDestroyed"
	EvtPlayerRespawned   = "playerRespawned"
)

// Envelope wraps all outgoing JSON messages with a type field
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages; json.RawMessage avoids double-unmarshal
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// InputState is one frame of held controls
type InputState struct {
	Thrust bool `json:"thrust" msgpack:"thrust"`
	Rotate int  `json:"rotate" msgpack:"rotate"` // -1 left, 0 none, 1 right
	Brake  bool `json:"brake" msgpack:"brake"`
	Shoot  bool `json:"shoot" msgpack:"shoot"`
}

// JoinMsg is sent when a player wants to enter a room. An empty room code
// creates a new room.
type JoinMsg struct {
	Name     string `json:"name"`
	RoomCode string `json:"roomCode,omitempty"`
}

// InputMsg carries one sequenced input record
type InputMsg struct {
	Sequence  uint64     `json:"sequence"`
	Timestamp int64      `json:"timestamp"` // client clock, ms
	Input     InputState `json:"input"`
}

// PingMsg is the application-level heartbeat
type PingMsg struct {
	Timestamp int64 `json:"timestamp"`
}

// PongMsg echoes the ping timestamp plus the server clock
type PongMsg struct {
	Timestamp  int64 `json:"timestamp"`
	ServerTime int64 `json:"serverTime"`
}

// Physics is the movement constant set the client must replay with
type Physics struct {
	WorldWidth        float64 `json:"worldWidth" msgpack:"worldWidth"`
	WorldHeight       float64 `json:"worldHeight" msgpack:"worldHeight"`
	RotationSpeed     float64 `json:"rotationSpeed" msgpack:"rotationSpeed"`
	Acceleration      float64 `json:"acceleration" msgpack:"acceleration"`
	BrakeDeceleration float64 `json:"brakeDeceleration" msgpack:"brakeDeceleration"`
	MaxSpeed          float64 `json:"maxSpeed" msgpack:"maxSpeed"`
	PlayerRadius      float64 `json:"playerRadius" msgpack:"playerRadius"`
	TickRate          int     `json:"tickRate" msgpack:"tickRate"`
	FireRate          int64   `json:"fireRate" msgpack:"fireRate"`           // ms
	MaxInputDelta     int64   `json:"maxInputDelta" msgpack:"maxInputDelta"` // ms
}

// WelcomeMsg is sent once to a player after a successful join
type WelcomeMsg struct {
	PlayerID  string   `json:"playerId"`
	RoomID    string   `json:"roomId"`
	RoomCode  string   `json:"roomCode"`
	Physics   Physics  `json:"physics"`
	GameState Snapshot `json:"gameState"`
}

// PlayerState is broadcast per player
type PlayerState struct {
	ID                string          `json:"id" msgpack:"id"`
	Name              string          `json:"name" msgpack:"name"`
	Position          vecmath.Vector2 `json:"position" msgpack:"position"`
	Rotation          float64         `json:"rotation" msgpack:"rotation"`
	Velocity          vecmath.Vector2 `json:"velocity" msgpack:"velocity"`
	AngularVelocity   float64         `json:"angularVelocity" msgpack:"angularVelocity"`
	Health            int             `json:"health" msgpack:"health"`
	Score             int             `json:"score" msgpack:"score"`
	Lives             int             `json:"lives" msgpack:"lives"`
	Alive             bool            `json:"isAlive" msgpack:"isAlive"`
	InvulnerableUntil int64           `json:"invulnerableUntil" msgpack:"invulnerableUntil"`
}

// AsteroidState is broadcast per asteroid
type AsteroidState struct {
	ID              string          `json:"id" msgpack:"id"`
	Position        vecmath.Vector2 `json:"position" msgpack:"position"`
	Rotation        float64         `json:"rotation" msgpack:"rotation"`
	Velocity        vecmath.Vector2 `json:"velocity" msgpack:"velocity"`
	AngularVelocity float64         `json:"angularVelocity" msgpack:"angularVelocity"`
	Size            string          `json:"size" msgpack:"size"`
	Radius          float64         `json:"radius" msgpack:"radius"`
}

// BulletState is broadcast per bullet
type BulletState struct {
	ID       string          `json:"id" msgpack:"id"`
	OwnerID  string          `json:"playerId" msgpack:"playerId"`
	Position vecmath.Vector2 `json:"position" msgpack:"position"`
	Rotation float64         `json:"rotation" msgpack:"rotation"`
	Velocity vecmath.Vector2 `json:"velocity" msgpack:"velocity"`
	Lifetime float64         `json:"lifetime" msgpack:"lifetime"`
}

// ParticleState is broadcast per particle
type ParticleState struct {
	ID          string          `json:"id" msgpack:"id"`
	Position    vecmath.Vector2 `json:"position" msgpack:"position"`
	Velocity    vecmath.Vector2 `json:"velocity" msgpack:"velocity"`
	Lifetime    float64         `json:"lifetime" msgpack:"lifetime"`
	MaxLifetime float64         `json:"maxLifetime" msgpack:"maxLifetime"`
	Type        string          `json:"type" msgpack:"type"`
}

// Event is a discrete gameplay occurrence since the previous snapshot
type Event struct {
	Type     string          `json:"type" msgpack:"type"`
	PlayerID string          `json:"playerId,omitempty" msgpack:"playerId,omitempty"`
	TargetID string          `json:"targetId,omitempty" msgpack:"targetId,omitempty"`
	Size     string          `json:"size,omitempty" msgpack:"size,omitempty"`
	Points   int             `json:"points,omitempty" msgpack:"points,omitempty"`
	Damage   int             `json:"damage,omitempty" msgpack:"damage,omitempty"`
	Position vecmath.Vector2 `json:"position" msgpack:"position"`
}

// Snapshot is the full authoritative world state
type Snapshot struct {
	Tick      uint64          `json:"tick" msgpack:"tick"`
	Timestamp int64           `json:"timestamp" msgpack:"timestamp"`
	Players   []PlayerState   `json:"players" msgpack:"players"`
	Asteroids []AsteroidState `json:"asteroids" msgpack:"asteroids"`
	Bullets   []BulletState   `json:"bullets" msgpack:"bullets"`
	Particles []ParticleState `json:"particles" msgpack:"particles"`
	Events    []Event         `json:"events" msgpack:"events"`
}

// FindPlayer returns the state of the given player, if present
func (s *Snapshot) FindPlayer(id string) (PlayerState, bool) {
	for _, p := range s.Players {
		if p.ID == id {
			return p, true
		}
	}
	return PlayerState{}, false
}

// AckMsg acknowledges the highest processed input sequence
type AckMsg struct {
	Sequence uint64 `json:"sequence"`
}

// PlayerJoinedMsg notifies room members of a new player
type PlayerJoinedMsg struct {
	Player PlayerState `json:"player"`
}

// PlayerLeftMsg notifies room members that a player left
type PlayerLeftMsg struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

// ErrorMsg sends error to client
type ErrorMsg struct {
	Message string `json:"message"`
}

// RoomInfo is returned by the API for the room list
type RoomInfo struct {
	ID      string `json:"id"`
	Code    string `json:"code"`
	Players int    `json:"players"`
	Max     int    `json:"max"`
}
