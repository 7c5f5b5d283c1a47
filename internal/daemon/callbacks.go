package daemon

import (
	"context"
	"log/slog"
	"time"

	"github.com/lumehealth/carebot/internal/care"
	"github.com/lumehealth/carebot/internal/logfields"
	"github.com/lumehealth/carebot/internal/storage"
)

// sendTimeout bounds one outbound delivery plus its bookkeeping. Timer
// callbacks have no inbound context, so each fire gets its own deadline.
const sendTimeout = 15 * time.Second

// onTrigger runs when a slot's daily time arrives. No recipient means no
// send; delivery failures are recorded but never stop the escalation from
// arming, since the nag loop is what retries an unheard reminder.
func (d *Daemon) onTrigger(slot care.Slot, day care.Day) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	recipient, ok := d.registry.Resolve(ctx)
	if !ok {
		d.logger.Info("reminder skipped, no recipient linked",
			logfields.Slot(slot),
			logfields.Day(day))
		return
	}

	msg, err := d.catalog.Reminder(slot, day)
	if err != nil {
		d.logger.Error("render reminder failed",
			logfields.Slot(slot),
			logfields.Error(err))
		return
	}

	if err := d.notifier.Send(ctx, recipient, msg); err != nil {
		d.record(ctx, storage.DeliveryFailed(recipient, slot, day, err.Error()))
	} else {
		d.record(ctx, storage.ReminderSent(recipient, slot, day))
	}

	if slot.Escalates() {
		if err := d.escalation.Start(recipient, slot, day); err != nil {
			d.logger.Error("arming escalation failed",
				logfields.Slot(slot),
				logfields.Day(day),
				logfields.Error(err))
		}
	}
}

// onNag runs on every escalation interval until the slot is confirmed.
func (d *Daemon) onNag(recipient care.ChatID, slot care.Slot, day care.Day) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	msg, err := d.catalog.Nag(slot, day)
	if err != nil {
		d.logger.Error("render nag failed",
			logfields.Slot(slot),
			logfields.Error(err))
		return
	}

	if err := d.notifier.Send(ctx, recipient, msg); err != nil {
		d.record(ctx, storage.DeliveryFailed(recipient, slot, day, err.Error()))
		return
	}
	d.record(ctx, storage.NagSent(recipient, slot, day))
}

// record appends one event to durable history and mirrors it to the relay.
// Bookkeeping failures are logged, never propagated into timer state.
func (d *Daemon) record(ctx context.Context, e storage.Event) {
	if err := d.store.AppendEvent(ctx, e); err != nil {
		d.logger.Error("append care event failed",
			slog.String("kind", string(e.Kind)),
			logfields.Error(err))
	}
	if d.relay != nil {
		if err := d.relay.PublishEvent(ctx, e); err != nil {
			d.logger.Warn("relay publish failed",
				slog.String("kind", string(e.Kind)),
				logfields.Error(err))
		}
	}
}
