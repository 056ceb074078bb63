package protocol

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	MinNameLen = 1
	MaxNameLen = 16
)

var (
	ErrMissingType  = errors.New("missing message type")
	ErrInvalidName  = errors.New("invalid player name")
	ErrInvalidInput = errors.New("invalid input")
)

func nameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == ' ', r == '_', r == '-':
		return true
	}
	return false
}

// ValidateName trims the name and checks length and character set
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	n := utf8.RuneCountInString(name)
	if n < MinNameLen || n > MaxNameLen {
		return "", fmt.Errorf("%w: length must be %d-%d", ErrInvalidName, MinNameLen, MaxNameLen)
	}
	for _, r := range name {
		if !nameRune(r) {
			return "", fmt.Errorf("%w: character %q not allowed", ErrInvalidName, r)
		}
	}
	return name, nil
}

// Validate rejects structurally bad input records
func (m InputMsg) Validate() error {
	if m.Sequence == 0 {
		return fmt.Errorf("%w: sequence must be positive", ErrInvalidInput)
	}
	if m.Timestamp < 0 {
		return fmt.Errorf("%w: negative timestamp", ErrInvalidInput)
	}
	if m.Input.Rotate < -1 || m.Input.Rotate > 1 {
		return fmt.Errorf("%w: rotate out of range", ErrInvalidInput)
	}
	return nil
}
