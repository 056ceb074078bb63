// Command bot is a headless client. It joins a room, flies a scripted
// pattern using client-side prediction and logs how far each prediction
// drifted from the authoritative snapshot.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"asteroids-server/internal/game"
	"asteroids-server/internal/logging"
	"asteroids-server/internal/prediction"
	"asteroids-server/internal/protocol"
	"asteroids-server/internal/vecmath"
)

type frame struct {
	binary bool
	data   []byte
}

func main() {
	fs := pflag.NewFlagSet("bot", pflag.ExitOnError)
	url := fs.String("url", "ws://localhost:8080/ws", "server websocket URL")
	name := fs.String("name", "bot", "player name")
	code := fs.String("room", "", "room code to join (empty creates a room)")
	duration := fs.Duration("duration", 0, "stop after this long (0 runs until interrupted)")
	level := fs.String("log-level", "info", "log level")
	fs.Parse(os.Args[1:])

	log := logging.New(os.Stdout, *level, true)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	if err := run(ctx, *url, *name, *code, log); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		log.Fatal().Err(err).Msg("bot failed")
	}
}

func run(ctx context.Context, url, name, code string, log zerolog.Logger) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := send(conn, protocol.MsgJoin, protocol.JoinMsg{Name: name, RoomCode: code}); err != nil {
		return err
	}

	frames := make(chan frame, 64)
	readErr := make(chan error, 1)
	go func() {
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			frames <- frame{binary: mt == websocket.BinaryMessage, data: data}
		}
	}()

	var (
		pred     *prediction.Predictor
		playerID string
		step     = time.Second / 60
		ticker   = time.NewTicker(step)
		started  = time.Now()
	)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			send(conn, protocol.MsgLeave, nil)
			return ctx.Err()

		case err := <-readErr:
			return err

		case f := <-frames:
			if f.binary {
				if pred == nil {
					continue
				}
				snap, err := protocol.DecodeSnapshot(f.data)
				if err != nil {
					log.Warn().Err(err).Msg("bad snapshot")
					continue
				}
				before, _ := pred.State()
				if !pred.Reconcile(snap, playerID) {
					continue
				}
				after, alive := pred.State()
				log.Debug().
					Uint64("tick", snap.Tick).
					Float64("drift", vecmath.Distance(before.Position, after.Position)).
					Int("pending", pred.Pending()).
					Bool("alive", alive).
					Msg("reconciled")
				continue
			}

			env, err := protocol.DecodeEnvelope(f.data)
			if err != nil {
				log.Warn().Err(err).Msg("bad message")
				continue
			}
			switch env.T {
			case protocol.MsgWelcome:
				w, err := protocol.DecodePayload[protocol.WelcomeMsg](env)
				if err != nil {
					return err
				}
				pred = prediction.FromWelcome(w)
				playerID = w.PlayerID
				if w.Physics.TickRate > 0 {
					ticker.Reset(time.Second / time.Duration(w.Physics.TickRate))
				}
				log.Info().Str("room", w.RoomCode).Str("player", w.PlayerID).Msg("joined")
			case protocol.MsgAck:
				if a, err := protocol.DecodePayload[protocol.AckMsg](env); err == nil && pred != nil {
					pred.Acknowledge(a.Sequence)
				}
			case protocol.MsgError:
				e, _ := protocol.DecodePayload[protocol.ErrorMsg](env)
				return errors.New(e.Message)
			case protocol.MsgPlayerJoined, protocol.MsgPlayerLeft:
				log.Info().RawJSON("data", env.D).Str("type", env.T).Msg("room update")
			}

		case now := <-ticker.C:
			if pred == nil {
				continue
			}
			msg := pred.ApplyLocal(pattern(now.Sub(started)), now.UnixMilli())
			if err := send(conn, protocol.MsgInput, msg); err != nil {
				return err
			}
		}
	}
}

// pattern is the bot's flight plan: thrust and turn in alternating phases,
// firing continuously
func pattern(elapsed time.Duration) game.Input {
	phase := int(elapsed/(1500*time.Millisecond)) % 4
	in := game.Input{Shoot: true}
	switch phase {
	case 0:
		in.Thrust = true
	case 1:
		in.Rotate = 1
	case 2:
		in.Thrust = true
		in.Rotate = -1
	case 3:
		in.Brake = true
	}
	return in
}

func send(conn *websocket.Conn, t string, data interface{}) error {
	raw, err := json.Marshal(protocol.Envelope{T: t, Data: data})
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, raw)
}
