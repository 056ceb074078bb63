package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asteroids-server/internal/vecmath"
)

func TestDecodeJoinPayload(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"t":"join","d":{"name":"Ace","roomCode":"ABC234"}}`))
	require.NoError(t, err)
	assert.Equal(t, MsgJoin, env.T)

	join, err := DecodePayload[JoinMsg](env)
	require.NoError(t, err)
	assert.Equal(t, "Ace", join.Name)
	assert.Equal(t, "ABC234", join.RoomCode)
}

func TestDecodeInputPayload(t *testing.T) {
	raw := `{"t":"input","d":{"sequence":7,"timestamp":1000,"input":{"thrust":true,"rotate":-1,"brake":false,"shoot":true}}}`
	env, err := DecodeEnvelope([]byte(raw))
	require.NoError(t, err)

	in, err := DecodePayload[InputMsg](env)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), in.Sequence)
	assert.Equal(t, int64(1000), in.Timestamp)
	assert.True(t, in.Input.Thrust)
	assert.Equal(t, -1, in.Input.Rotate)
	assert.True(t, in.Input.Shoot)
	assert.NoError(t, in.Validate())
}

func TestDecodeEnvelopeErrors(t *testing.T) {
	_, err := DecodeEnvelope([]byte(`not json`))
	assert.Error(t, err)

	_, err = DecodeEnvelope([]byte(`{"d":{}}`))
	assert.ErrorIs(t, err, ErrMissingType)

	env, err := DecodeEnvelope([]byte(`{"t":"input","d":"oops"}`))
	require.NoError(t, err)
	_, err = DecodePayload[InputMsg](env)
	assert.Error(t, err)
}

func TestEncodeEnvelope(t *testing.T) {
	b, err := Encode(MsgAck, AckMsg{Sequence: 42})
	require.NoError(t, err)
	assert.JSONEq(t, `{"t":"ack","d":{"sequence":42}}`, string(b))
}

func TestSnapshotBinaryFrame(t *testing.T) {
	s := &Snapshot{
		Tick:      12,
		Timestamp: 99,
		Players: []PlayerState{{
			ID: "p1", Name: "Ace", Position: vecmath.V(1, 2), Health: 100, Lives: 3, Alive: true,
		}},
		Asteroids: []AsteroidState{{ID: "a1", Size: "LARGE", Radius: 40}},
		Events:    []Event{{Type: EvtAsteroidDestroyed, PlayerID: "p1", Points: 20}},
	}
	raw, err := EncodeSnapshot(s)
	require.NoError(t, err)

	got, err := DecodeSnapshot(raw)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), got.Tick)
	p, ok := got.FindPlayer("p1")
	require.True(t, ok)
	assert.Equal(t, vecmath.V(1, 2), p.Position)
	assert.Equal(t, "LARGE", got.Asteroids[0].Size)
	assert.Equal(t, 20, got.Events[0].Points)

	_, ok = got.FindPlayer("nobody")
	assert.False(t, ok)
}

func TestValidateName(t *testing.T) {
	good := map[string]string{
		"Ace":                "Ace",
		"  Space Cadet  ":    "Space Cadet",
		"a_b-c 9":            "a_b-c 9",
		"1234567890123456":   "1234567890123456",
	}
	for in, want := range good {
		got, err := ValidateName(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	for _, bad := range []string{"", "   ", "12345678901234567", "<script>", "emoji🚀", "tab\tname"} {
		_, err := ValidateName(bad)
		assert.ErrorIs(t, err, ErrInvalidName, "%q should be rejected", bad)
	}
}

func TestInputValidate(t *testing.T) {
	assert.ErrorIs(t, InputMsg{Sequence: 0}.Validate(), ErrInvalidInput)
	assert.ErrorIs(t, InputMsg{Sequence: 1, Timestamp: -5}.Validate(), ErrInvalidInput)
	assert.ErrorIs(t, InputMsg{Sequence: 1, Input: InputState{Rotate: 2}}.Validate(), ErrInvalidInput)
	assert.NoError(t, InputMsg{Sequence: 1, Input: InputState{Rotate: 1}}.Validate())
}
