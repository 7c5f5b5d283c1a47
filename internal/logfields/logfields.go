package logfields

import (
	"log/slog"

	"github.com/lumehealth/carebot/internal/care"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyChatID     = "chat_id"
	KeySlot       = "slot"
	KeyDay        = "day"
	KeyJobKey     = "job_key"
	KeyJobID      = "job_id"
	KeyAttempt    = "attempt"
	KeyCommand    = "command"
	KeyUpdateID   = "update_id"
	KeyMessageID  = "message_id"
	KeyDurationMS = "duration_ms"
	KeySubject    = "subject"
	KeyError      = "error"
	KeyMethod     = "method"
	KeyPath       = "path"
	KeyStatus     = "status"
	KeyRemoteAddr = "remote_addr"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func ChatID(id care.ChatID) slog.Attr { return slog.Int64(KeyChatID, int64(id)) }
func Slot(s care.Slot) slog.Attr      { return slog.String(KeySlot, string(s)) }
func Day(d care.Day) slog.Attr        { return slog.String(KeyDay, string(d)) }
func JobKey(k care.Key) slog.Attr     { return slog.String(KeyJobKey, k.String()) }
func JobID(id string) slog.Attr       { return slog.String(KeyJobID, id) }
func Attempt(n int) slog.Attr         { return slog.Int(KeyAttempt, n) }
func Command(c string) slog.Attr      { return slog.String(KeyCommand, c) }
func UpdateID(id int64) slog.Attr     { return slog.Int64(KeyUpdateID, id) }
func MessageID(id int64) slog.Attr    { return slog.Int64(KeyMessageID, id) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Subject(s string) slog.Attr      { return slog.String(KeySubject, s) }
func Method(m string) slog.Attr       { return slog.String(KeyMethod, m) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Status(code int) slog.Attr       { return slog.Int(KeyStatus, code) }
func RemoteAddr(a string) slog.Attr   { return slog.String(KeyRemoteAddr, a) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
