// Package confirm validates inbound confirmations and cancels the matching
// escalation. It is the only external-facing entry point into the nag-loop
// state machine.
package confirm

import (
	"fmt"
	"strings"

	"github.com/lumehealth/carebot/internal/care"
	"github.com/lumehealth/carebot/internal/errors"
)

// tokenPrefix tags confirm-button payloads. The wire form is
// "taken:<slot>:<day>", e.g. "taken:medicine-morning:2024-01-01".
const tokenPrefix = "taken"

// Token is the parsed payload of a confirm button press.
type Token struct {
	Slot care.Slot
	Day  care.Day
}

// NewToken builds the token for one slot occurrence.
func NewToken(slot care.Slot, day care.Day) Token {
	return Token{Slot: slot, Day: day}
}

// String renders the wire form carried in the button payload.
func (t Token) String() string {
	return fmt.Sprintf("%s:%s:%s", tokenPrefix, t.Slot, t.Day)
}

// ParseToken parses a button payload. Anything that is not exactly
// prefix, known slot and well-formed day is rejected.
func ParseToken(raw string) (Token, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 3 || parts[0] != tokenPrefix {
		return Token{}, errors.MalformedToken(raw)
	}
	slot, err := care.ParseSlot(parts[1])
	if err != nil {
		return Token{}, errors.MalformedToken(raw)
	}
	day, err := care.ParseDay(parts[2])
	if err != nil {
		return Token{}, errors.MalformedToken(raw)
	}
	return Token{Slot: slot, Day: day}, nil
}
