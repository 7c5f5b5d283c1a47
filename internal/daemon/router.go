package daemon

import (
	"context"
	"strings"
	"time"

	"github.com/lumehealth/carebot/internal/care"
	"github.com/lumehealth/carebot/internal/errors"
	"github.com/lumehealth/carebot/internal/logfields"
	"github.com/lumehealth/carebot/internal/message"
	"github.com/lumehealth/carebot/internal/notify"
	"github.com/lumehealth/carebot/internal/storage"
	"github.com/lumehealth/carebot/internal/telegram"
)

// handleUpdate routes one polled update. Button presses and commands each get
// a reply; anything else is dropped quietly.
func (d *Daemon) handleUpdate(ctx context.Context, update telegram.Update) {
	switch {
	case update.CallbackQuery != nil:
		d.handleCallback(ctx, *update.CallbackQuery)
	case update.Message != nil && strings.HasPrefix(update.Message.Text, "/"):
		d.handleCommand(ctx, *update.Message)
	case update.Message != nil:
		d.logger.Debug("ignoring non-command message",
			logfields.ChatID(care.ChatID(update.Message.Chat.ID)),
			logfields.UpdateID(update.UpdateID))
	}
}

func (d *Daemon) handleCommand(ctx context.Context, msg telegram.Message) {
	chat := care.ChatID(msg.Chat.ID)
	cmd := commandName(msg.Text)
	d.logger.Info("command received", logfields.Command(cmd), logfields.ChatID(chat))

	switch cmd {
	case "/linkme":
		d.handleLink(ctx, chat)
	case "/status":
		d.handleStatus(ctx, chat)
	default:
		// /start, /help and anything unrecognized all get the help text.
		reply, err := d.catalog.Help()
		d.replyWith(ctx, chat, reply, err)
	}
}

// commandName extracts the bare command from "/cmd@botname args".
func commandName(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	name, _, _ := strings.Cut(fields[0], "@")
	return name
}

// handleLink makes the calling chat the recipient: runtime registry first so
// the change is immediate, then durable storage so it survives a restart.
func (d *Daemon) handleLink(ctx context.Context, chat care.ChatID) {
	d.registry.Link(chat)
	if err := d.store.SaveRecipient(ctx, chat); err != nil {
		d.logger.Error("persist recipient failed",
			logfields.ChatID(chat),
			logfields.Error(err))
	}
	d.record(ctx, storage.Linked(chat))
	d.logger.Info("recipient linked", logfields.ChatID(chat))

	reply, err := d.catalog.Linked(d.currentSlotTimes())
	d.replyWith(ctx, chat, reply, err)
}

// handleStatus reports who is linked, the escalation state of today's
// medicine slots, their last confirmation times and the next trigger runs.
func (d *Daemon) handleStatus(ctx context.Context, chat care.ChatID) {
	day := care.Today(d.loc)
	report := message.StatusReport{Day: day}

	if recipient, ok := d.registry.Resolve(ctx); ok {
		report.Linked = true
		report.Recipient = recipient
		report.Active = make(map[care.Slot]bool, 2)
		report.LastConfirmed = make(map[care.Slot]time.Time, 2)
		for _, slot := range care.MedicineSlots() {
			report.Active[slot] = d.escalation.IsActive(recipient, slot, day)
			if at, ok, err := d.store.LastConfirmation(ctx, slot, day); err != nil {
				d.logger.Warn("last confirmation lookup failed",
					logfields.Slot(slot),
					logfields.Error(err))
			} else if ok {
				report.LastConfirmed[slot] = at.In(d.loc)
			}
		}
	}

	report.NextRuns = make(map[care.Slot]time.Time, 3)
	for _, slot := range care.Slots() {
		if next, err := d.triggers.NextRun(slot); err == nil {
			report.NextRuns[slot] = next.In(d.loc)
		}
	}

	reply, err := d.catalog.Status(report)
	d.replyWith(ctx, chat, reply, err)
}

// handleCallback routes a button press through the confirmation handler and
// acknowledges it whatever the outcome. A successful confirmation edits the
// pressed reminder in place, retiring its button.
func (d *Daemon) handleCallback(ctx context.Context, cb telegram.CallbackQuery) {
	chat := care.ChatID(cb.From.ID)
	if cb.Message != nil {
		chat = care.ChatID(cb.Message.Chat.ID)
	}

	token, removed, err := d.confirmer.HandleCallback(ctx, chat, cb.Data)
	if err != nil {
		d.answerCallback(ctx, cb.ID, "")
		switch {
		case errors.IsCategory(err, errors.CategoryNotLinked):
			reply, rerr := d.catalog.NotLinked()
			d.replyWith(ctx, chat, reply, rerr)
		case errors.IsCategory(err, errors.CategoryUnauthorized):
			reply, rerr := d.catalog.Unauthorized()
			d.replyWith(ctx, chat, reply, rerr)
		default:
			reply, rerr := d.catalog.Malformed()
			d.replyWith(ctx, chat, reply, rerr)
		}
		return
	}

	d.record(ctx, storage.Confirmed(chat, token.Slot, token.Day))
	if removed == 0 {
		d.logger.Info("stale confirmation acknowledged",
			logfields.ChatID(chat),
			logfields.Slot(token.Slot),
			logfields.Day(token.Day))
	}

	d.answerCallback(ctx, cb.ID, "Recorded")

	thanks, rerr := d.catalog.ConfirmThanks(token.Slot, token.Day)
	if rerr != nil {
		d.logger.Error("render confirmation ack failed", logfields.Error(rerr))
		return
	}

	if cb.Message != nil {
		err := d.transport.EditMessageText(ctx, telegram.EditMessageTextRequest{
			ChatID:    cb.Message.Chat.ID,
			MessageID: cb.Message.MessageID,
			Text:      thanks.Text,
			ParseMode: telegram.ParseModeHTML,
		})
		if err == nil {
			return
		}
		d.logger.Warn("editing reminder failed, sending plain ack",
			logfields.ChatID(chat),
			logfields.MessageID(cb.Message.MessageID),
			logfields.Error(err))
	}
	if err := d.notifier.Send(ctx, chat, thanks); err != nil {
		d.logger.Warn("confirmation ack delivery failed",
			logfields.ChatID(chat),
			logfields.Error(err))
	}
}

func (d *Daemon) answerCallback(ctx context.Context, id, text string) {
	err := d.transport.AnswerCallbackQuery(ctx, telegram.AnswerCallbackQueryRequest{
		CallbackQueryID: id,
		Text:            text,
	})
	if err != nil {
		d.logger.Debug("answer callback query failed", logfields.Error(err))
	}
}

// replyWith sends a rendered reply, accepting the catalog's (message, error)
// pair directly.
func (d *Daemon) replyWith(ctx context.Context, chat care.ChatID, msg notify.Message, err error) {
	if err != nil {
		d.logger.Error("render reply failed", logfields.Error(err))
		return
	}
	if serr := d.notifier.Send(ctx, chat, msg); serr != nil {
		d.logger.Warn("reply delivery failed",
			logfields.ChatID(chat),
			logfields.Error(serr))
	}
}
