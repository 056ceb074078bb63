package server

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"asteroids-server/internal/protocol"
	"asteroids-server/internal/room"
)

const (
	writeWait         = 10 * time.Second
	defaultPongWait   = 30 * time.Second
	maxMessageSize    = 4096
	sendBufSize       = 256
	maxMessagesPerSec = 120 // 60 Hz input plus pings and control
	binaryMarker      = 0xFF
)

// Client is one websocket connection. Room membership is only touched by
// the read pump, and by the hub after the read pump has exited.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	log        zerolog.Logger
	remoteAddr string
	pongWait   time.Duration

	sendMu sync.Mutex
	send   chan []byte
	closed bool

	room     *room.Room
	playerID string

	msgCount   int
	msgResetAt time.Time
}

// NewClient creates a new Client
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string) *Client {
	pongWait := hub.cfg.LivenessTimeout
	if pongWait <= 0 {
		pongWait = defaultPongWait
	}
	return &Client{
		hub:        hub,
		conn:       conn,
		log:        hub.log.With().Str("ip", remoteAddr).Logger(),
		remoteAddr: remoteAddr,
		pongWait:   pongWait,
		send:       make(chan []byte, sendBufSize),
	}
}

func (c *Client) refreshDeadline() {
	c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
}

// ReadPump reads messages from the websocket. When it ends, for a close or
// a missed liveness deadline, the client leaves its room before the hub
// drops it.
func (c *Client) ReadPump() {
	defer func() {
		if rec := recover(); rec != nil {
			c.log.Error().Interface("panic", rec).Msg("recovered client panic")
		}
		c.hub.TrackDisconnect(c.remoteAddr)
		c.leaveRoom()
		select {
		case <-c.hub.done:
		default:
			select {
			case c.hub.unregister <- c:
			case <-c.hub.done:
			}
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.refreshDeadline()
	c.conn.SetPongHandler(func(string) error {
		c.refreshDeadline()
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn().Err(err).Msg("websocket read")
			}
			break
		}

		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > maxMessagesPerSec {
			c.log.Warn().Msg("rate limit exceeded, disconnecting")
			break
		}

		c.handleMessage(message)
	}
}

// WritePump writes queued messages and keeps the connection alive with pings
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.pongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			var err error
			if len(message) > 0 && message[0] == binaryMarker {
				err = c.conn.WriteMessage(websocket.BinaryMessage, message[1:])
			} else {
				err = c.conn.WriteMessage(websocket.TextMessage, message)
			}
			if err != nil {
				c.log.Debug().Err(err).Msg("websocket write")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendJSON queues a JSON text frame
func (c *Client) SendJSON(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.log.Error().Err(err).Msg("marshal")
		return
	}
	c.enqueue(data)
}

// SendBinary queues a binary frame. The marker byte tells WritePump to send
// it as binary; JSON text never starts with 0xFF.
func (c *Client) SendBinary(data []byte) {
	msg := make([]byte, len(data)+1)
	msg[0] = binaryMarker
	copy(msg[1:], data)
	c.enqueue(msg)
}

// enqueue never blocks: a slow client loses messages and is eventually
// reaped by the liveness timeout
func (c *Client) enqueue(data []byte) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		c.hub.metrics.SendDropped()
		c.log.Warn().Msg("send queue full, dropping message")
	}
}

func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) sendError(msg string) {
	c.SendJSON(protocol.Envelope{T: protocol.MsgError, Data: protocol.ErrorMsg{Message: msg}})
}

// handleMessage routes one incoming text frame
func (c *Client) handleMessage(raw []byte) {
	env, err := protocol.DecodeEnvelope(raw)
	if err != nil {
		c.log.Debug().Err(err).Msg("bad envelope")
		c.sendError("malformed message")
		return
	}

	switch env.T {
	case protocol.MsgJoin:
		c.handleJoin(env)
	case protocol.MsgInput:
		c.handleInput(env)
	case protocol.MsgPing:
		c.handlePing(env)
	case protocol.MsgLeave:
		c.leaveRoom()
	default:
		c.sendError("unknown message type")
	}
}

func (c *Client) handleJoin(env protocol.InEnvelope) {
	if c.room != nil {
		c.sendError("already in a room")
		return
	}
	msg, err := protocol.DecodePayload[protocol.JoinMsg](env)
	if err != nil {
		c.sendError("malformed join")
		return
	}
	r, res, err := c.hub.rooms.Join(msg.RoomCode, c, msg.Name)
	if err != nil {
		c.log.Info().Err(err).Str("code", msg.RoomCode).Msg("join rejected")
		c.sendError(joinErrorMessage(err))
		return
	}
	c.room = r
	c.playerID = res.PlayerID
	c.log.Debug().Str("room", res.RoomCode).Str("player", res.PlayerID).Msg("joined")
}

func joinErrorMessage(err error) string {
	switch {
	case errors.Is(err, protocol.ErrInvalidName):
		return "invalid name"
	case errors.Is(err, room.ErrRoomFull):
		return "room is full"
	case errors.Is(err, room.ErrRoomNotFound), errors.Is(err, room.ErrRoomClosed):
		return "room not found"
	case errors.Is(err, room.ErrTooManyRooms):
		return "server is full"
	default:
		return "join failed"
	}
}

func (c *Client) handleInput(env protocol.InEnvelope) {
	if c.room == nil {
		return
	}
	msg, err := protocol.DecodePayload[protocol.InputMsg](env)
	if err != nil {
		c.sendError("malformed input")
		return
	}
	if err := msg.Validate(); err != nil {
		c.sendError(err.Error())
		return
	}
	c.room.Input(c.playerID, msg)
}

func (c *Client) handlePing(env protocol.InEnvelope) {
	msg, err := protocol.DecodePayload[protocol.PingMsg](env)
	if err != nil {
		c.sendError("malformed ping")
		return
	}
	c.refreshDeadline()
	c.SendJSON(protocol.Envelope{T: protocol.MsgPong, Data: protocol.PongMsg{
		Timestamp:  msg.Timestamp,
		ServerTime: time.Now().UnixMilli(),
	}})
}

func (c *Client) leaveRoom() {
	if c.room == nil {
		return
	}
	c.room.Leave(c.playerID)
	c.room = nil
	c.playerID = ""
}
