package game

import (
	"asteroids-server/internal/protocol"
	"asteroids-server/internal/vecmath"
)

// Input is one frame of held controls
type Input struct {
	Thrust bool
	Rotate int // -1, 0, 1
	Brake  bool
	Shoot  bool
}

// InputFromWire converts a decoded input record
func InputFromWire(in protocol.InputState) Input {
	return Input{Thrust: in.Thrust, Rotate: in.Rotate, Brake: in.Brake, Shoot: in.Shoot}
}

// Wire converts back to the protocol form
func (in Input) Wire() protocol.InputState {
	return protocol.InputState{Thrust: in.Thrust, Rotate: in.Rotate, Brake: in.Brake, Shoot: in.Shoot}
}

// MovementParams is the constant set Move depends on. Server and client
// prediction must use identical values.
type MovementParams struct {
	RotationSpeed     float64
	Acceleration      float64
	BrakeDeceleration float64
	MaxSpeed          float64
	WorldWidth        float64
	WorldHeight       float64
}

// Move integrates one input over dt seconds. It is pure: the server and
// client prediction both call it and must agree exactly.
//
// Order: rotate, thrust, brake, clamp speed, integrate, wrap.
func Move(b Body, in Input, dt float64, p MovementParams) Body {
	rotate := in.Rotate
	if rotate > 1 {
		rotate = 1
	} else if rotate < -1 {
		rotate = -1
	}
	b.Rotation = vecmath.NormalizeAngle(b.Rotation + float64(rotate)*p.RotationSpeed*dt)

	if in.Thrust {
		b.Linear = b.Linear.Add(vecmath.FromAngle(b.Rotation, p.Acceleration*dt))
	}

	if in.Brake {
		// never reverses direction
		speed := b.Linear.Len()
		if speed > 0 {
			dec := p.BrakeDeceleration * dt
			if dec >= speed {
				b.Linear = vecmath.Vector2{}
			} else {
				b.Linear = b.Linear.Scale((speed - dec) / speed)
			}
		}
	}

	b.Linear = b.Linear.ClampLen(p.MaxSpeed)
	b.Position = vecmath.WrapPosition(b.Position.Add(b.Linear.Scale(dt)), p.WorldWidth, p.WorldHeight)
	return b
}

// InputClock turns a client's input timestamps into integration steps. The
// first record uses Step; every later one uses the gap to the previous
// record in seconds, clamped to [0, MaxDelta]. The server and client
// prediction each keep one per player so they integrate identical steps.
type InputClock struct {
	Step     float64
	MaxDelta float64

	last    int64
	started bool
}

// Delta advances the clock to ts (ms) and returns the step for that record
func (c *InputClock) Delta(ts int64) float64 {
	prev, had := c.last, c.started
	c.last, c.started = ts, true
	if !had {
		return c.Step
	}
	return max(0, min(float64(ts-prev)/1000, c.MaxDelta))
}
