package message

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lumehealth/carebot/internal/care"
	"github.com/lumehealth/carebot/internal/confirm"
	"github.com/lumehealth/carebot/internal/errors"
	"github.com/lumehealth/carebot/internal/notify"
)

// ConfirmButtonLabel is the label on every confirm button.
const ConfirmButtonLabel = "✅ Taken"

// Catalog builds every user-facing message the bot sends.
type Catalog struct {
	renderer *Renderer

	mu   sync.RWMutex
	name string
}

// NewCatalog creates the message catalog.
func NewCatalog() *Catalog {
	return &Catalog{renderer: NewRenderer()}
}

// SetRecipientName sets the display name woven into reminder texts. An empty
// name keeps the generic phrasing.
func (c *Catalog) SetRecipientName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.name = strings.TrimSpace(name)
}

// vocative addresses the recipient mid-sentence: ", Nana" or empty.
func (c *Catalog) vocative() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.name == "" {
		return ""
	}
	return ", " + c.name
}

func (c *Catalog) render(markdown string, button *notify.Button) (notify.Message, error) {
	text, err := c.renderer.RenderHTML(markdown)
	if err != nil {
		return notify.Message{}, errors.InternalError("render message", err)
	}
	return notify.Message{Text: text, HTML: true, Button: button}, nil
}

func confirmButton(slot care.Slot, day care.Day) *notify.Button {
	return &notify.Button{
		Label: ConfirmButtonLabel,
		Token: confirm.NewToken(slot, day).String(),
	}
}

// Reminder is the initial notification when a slot's daily time arrives.
// Medicine reminders carry a confirm button; the food reminder does not.
func (c *Catalog) Reminder(slot care.Slot, day care.Day) (notify.Message, error) {
	switch slot {
	case care.SlotFood:
		return c.render(fmt.Sprintf("🍽️ **Food time%s!** Please eat something now.", c.vocative()), nil)
	case care.SlotMedicineMorning:
		return c.render(fmt.Sprintf("💊 **Morning medicine time%s!** Please take it, then press the button.", c.vocative()), confirmButton(slot, day))
	case care.SlotMedicineEvening:
		return c.render(fmt.Sprintf("💊 **Evening medicine time%s!** Please take it, then press the button.", c.vocative()), confirmButton(slot, day))
	default:
		return notify.Message{}, errors.New(errors.CategoryValidation, errors.SeverityWarning, "unknown slot").
			WithContext("slot", string(slot))
	}
}

// Nag is the repeated follow-up for an unconfirmed medicine slot.
func (c *Catalog) Nag(slot care.Slot, day care.Day) (notify.Message, error) {
	text := fmt.Sprintf("⏰ Still waiting%s: the **%s** on %s is unconfirmed. Please take it, then press the button.",
		c.vocative(), slot.Label(), day)
	return c.render(text, confirmButton(slot, day))
}

// ConfirmThanks acknowledges a confirmation, whether or not a nag loop was
// still running.
func (c *Catalog) ConfirmThanks(slot care.Slot, day care.Day) (notify.Message, error) {
	return c.render(fmt.Sprintf("✅ Noted, thank you! The **%s** on %s is confirmed.", slot.Label(), day), nil)
}

// Linked confirms that reminders now go to the caller's chat and lists the
// daily schedule so the recipient knows what to expect.
func (c *Catalog) Linked(times map[care.Slot]care.ClockTime) (notify.Message, error) {
	var b strings.Builder
	b.WriteString("🔗 **Linked!** Reminders and confirmations now belong to this chat.\n")
	if len(times) > 0 {
		b.WriteString("\nDaily schedule:\n")
		for _, slot := range care.Slots() {
			if at, ok := times[slot]; ok {
				fmt.Fprintf(&b, "- %s at %s\n", slot.Label(), at)
			}
		}
	}
	return c.render(b.String(), nil)
}

// NotLinked explains that no recipient is set up yet.
func (c *Catalog) NotLinked() (notify.Message, error) {
	return c.render("🤖 No recipient is linked yet. Send /linkme from the recipient's chat first.", nil)
}

// Unauthorized rejects a confirmation from a non-recipient chat.
func (c *Catalog) Unauthorized() (notify.Message, error) {
	return c.render("🙅 Only the linked recipient can confirm reminders.", nil)
}

// Malformed rejects an unparseable confirmation payload.
func (c *Catalog) Malformed() (notify.Message, error) {
	return c.render("🤔 That confirmation made no sense. Use the button on the latest reminder.", nil)
}

// Help is the static /start and /help reply.
func (c *Catalog) Help() (notify.Message, error) {
	return c.render(strings.Join([]string{
		"👋 I remind one person about food and medicine every day, and keep nagging until medicine is confirmed.",
		"",
		"- /linkme: receive reminders in this chat",
		"- /status: current recipient and escalation state",
		"- /start: this text",
	}, "\n"), nil)
}

// StatusReport carries the data the /status command renders.
type StatusReport struct {
	Linked        bool
	Recipient     care.ChatID
	Day           care.Day
	Active        map[care.Slot]bool
	LastConfirmed map[care.Slot]time.Time
	NextRuns      map[care.Slot]time.Time
}

// Status renders the /status reply.
func (c *Catalog) Status(report StatusReport) (notify.Message, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 **Care status** for %s\n\n", report.Day)

	if report.Linked {
		fmt.Fprintf(&b, "Recipient: `%d`\n", report.Recipient)
	} else {
		b.WriteString("Recipient: not linked\n")
	}

	for _, slot := range care.MedicineSlots() {
		state := "quiet"
		if report.Active[slot] {
			state = "⏰ escalating"
		}
		if at, ok := report.LastConfirmed[slot]; ok {
			state = "✅ confirmed at " + at.Format("15:04")
		}
		fmt.Fprintf(&b, "%s: %s\n", capitalize(slot.Label()), state)
	}

	if len(report.NextRuns) > 0 {
		b.WriteString("\nNext triggers:\n")
		slots := make([]care.Slot, 0, len(report.NextRuns))
		for slot := range report.NextRuns {
			slots = append(slots, slot)
		}
		sort.Slice(slots, func(i, j int) bool { return slots[i] < slots[j] })
		for _, slot := range slots {
			fmt.Fprintf(&b, "- %s at %s\n", slot.Label(), report.NextRuns[slot].Format("15:04"))
		}
	}

	return c.render(b.String(), nil)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
