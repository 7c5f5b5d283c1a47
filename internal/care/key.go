package care

import "fmt"

// ChatID is the opaque identity of the reminder recipient: the chat the
// recipient linked from and the only chat whose confirmations are honored.
type ChatID int64

// Key is the composite identity of one escalation: which recipient, which
// obligation, which day. Scoping by day keeps a job created today from being
// cancelled by a confirmation meant for yesterday's occurrence.
type Key struct {
	Recipient ChatID
	Slot      Slot
	Day       Day
}

// String renders the key in its canonical log form.
func (k Key) String() string {
	return fmt.Sprintf("nag:%d:%s:%s", k.Recipient, k.Slot, k.Day)
}
