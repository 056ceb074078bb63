package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Encode marshals a typed JSON envelope
func Encode(t string, data interface{}) ([]byte, error) {
	return json.Marshal(Envelope{T: t, Data: data})
}

// DecodeEnvelope parses an incoming JSON frame
func DecodeEnvelope(raw []byte) (InEnvelope, error) {
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return InEnvelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.T == "" {
		return InEnvelope{}, fmt.Errorf("decode envelope: %w", ErrMissingType)
	}
	return env, nil
}

// DecodePayload unmarshals the envelope payload into T
func DecodePayload[T any](env InEnvelope) (T, error) {
	var v T
	if len(env.D) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(env.D, &v); err != nil {
		return v, fmt.Errorf("decode %s payload: %w", env.T, err)
	}
	return v, nil
}

// EncodeSnapshot marshals a snapshot for a binary frame
func EncodeSnapshot(s *Snapshot) ([]byte, error) {
	return msgpack.Marshal(s)
}

// DecodeSnapshot parses a binary snapshot frame
func DecodeSnapshot(raw []byte) (*Snapshot, error) {
	var s Snapshot
	if err := msgpack.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &s, nil
}
