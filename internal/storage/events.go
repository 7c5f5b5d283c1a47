package storage

import (
	"time"

	"github.com/lumehealth/carebot/internal/care"
)

// EventKind classifies entries in the care event history.
type EventKind string

const (
	KindLinked         EventKind = "linked"
	KindReminderSent   EventKind = "reminder_sent"
	KindNagSent        EventKind = "nag_sent"
	KindConfirmed      EventKind = "confirmed"
	KindDeliveryFailed EventKind = "delivery_failed"
)

// Event is one row of the care history. Slot and Day are empty for linked
// events, which are not tied to an occurrence.
type Event struct {
	ID        int64
	Kind      EventKind
	Slot      care.Slot
	Day       care.Day
	ChatID    care.ChatID
	Detail    string
	CreatedAt time.Time
}

// Linked records a recipient change.
func Linked(chatID care.ChatID) Event {
	return Event{Kind: KindLinked, ChatID: chatID}
}

// ReminderSent records the initial reminder for one slot occurrence.
func ReminderSent(chatID care.ChatID, slot care.Slot, day care.Day) Event {
	return Event{Kind: KindReminderSent, Slot: slot, Day: day, ChatID: chatID}
}

// NagSent records one escalation firing that reached the recipient.
func NagSent(chatID care.ChatID, slot care.Slot, day care.Day) Event {
	return Event{Kind: KindNagSent, Slot: slot, Day: day, ChatID: chatID}
}

// Confirmed records an accepted confirmation.
func Confirmed(chatID care.ChatID, slot care.Slot, day care.Day) Event {
	return Event{Kind: KindConfirmed, Slot: slot, Day: day, ChatID: chatID}
}

// DeliveryFailed records a send that never reached the recipient; detail
// carries the delivery error text.
func DeliveryFailed(chatID care.ChatID, slot care.Slot, day care.Day, detail string) Event {
	return Event{Kind: KindDeliveryFailed, Slot: slot, Day: day, ChatID: chatID, Detail: detail}
}
