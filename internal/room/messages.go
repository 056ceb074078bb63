package room

import "asteroids-server/internal/protocol"

// Conn is the room's view of a connected client. Sends must not block.
type Conn interface {
	SendJSON(msg interface{})
	SendBinary(b []byte)
}

// ScoreRecorder receives a player's final score when they leave
type ScoreRecorder interface {
	RecordScore(name, roomCode string, score int)
}

// JoinResult identifies the player created by a successful join
type JoinResult struct {
	PlayerID string
	RoomID   string
	RoomCode string
}

// join: issued once per connection after the name is validated
type join struct {
	conn  Conn
	name  string
	reply chan<- joinReply
}

type joinReply struct {
	res JoinResult
	err error
}

// input: one sequenced input record from a player
type input struct {
	playerID string
	msg      protocol.InputMsg
}

// leave: explicit leave or disconnect
type leave struct {
	playerID string
}

// respawn: posted by a player's respawn timer
type respawn struct {
	playerID string
}

// exec runs fn inside the room goroutine
type exec struct {
	fn   func()
	done chan struct{}
}
