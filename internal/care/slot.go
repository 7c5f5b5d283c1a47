// Package care defines the domain model for daily care obligations: the
// obligation slots, the occurrence day that scopes one day's instance of a
// slot, and the composite key identifying a single escalation.
package care

import "fmt"

// Slot identifies one of the recurring daily obligations.
type Slot string

const (
	SlotFood            Slot = "food"
	SlotMedicineMorning Slot = "medicine-morning"
	SlotMedicineEvening Slot = "medicine-evening"
)

// Slots returns all obligation slots in trigger order.
func Slots() []Slot {
	return []Slot{SlotFood, SlotMedicineMorning, SlotMedicineEvening}
}

// MedicineSlots returns the slots that escalate until confirmed.
func MedicineSlots() []Slot {
	return []Slot{SlotMedicineMorning, SlotMedicineEvening}
}

// Escalates reports whether an unconfirmed reminder for this slot starts a
// nag loop. Food reminders are one-shot; medicine reminders escalate.
func (s Slot) Escalates() bool {
	return s == SlotMedicineMorning || s == SlotMedicineEvening
}

// Valid reports whether s is one of the known slots.
func (s Slot) Valid() bool {
	switch s {
	case SlotFood, SlotMedicineMorning, SlotMedicineEvening:
		return true
	}
	return false
}

// Label returns a short human-readable name for the slot, used in message
// texts and status reports.
func (s Slot) Label() string {
	switch s {
	case SlotFood:
		return "food"
	case SlotMedicineMorning:
		return "morning medicine"
	case SlotMedicineEvening:
		return "evening medicine"
	}
	return string(s)
}

// ParseSlot parses a wire-format slot value. Unknown values are rejected.
func ParseSlot(raw string) (Slot, error) {
	s := Slot(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown obligation slot %q", raw)
	}
	return s, nil
}
